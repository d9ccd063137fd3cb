package ports

import "github.com/aalvaropc/headline/internal/domain"

// ArtifactStore persists run artifacts for later inspection.
type ArtifactStore interface {
	SaveRun(run domain.RunArtifact) (id string, err error)
}
