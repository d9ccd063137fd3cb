package ports

import "github.com/aalvaropc/headline/internal/domain"

// SuiteLoader loads probe suites from a source (e.g., filesystem).
type SuiteLoader interface {
	LoadSuite(path string) (domain.Suite, error)
}
