package ports

import (
	"context"

	"github.com/aalvaropc/headline/internal/domain"
)

// ProbeRunner sends one already-resolved probe and reports what came back.
// Transport failures are reported in ProbeResult.Error; the returned error is
// reserved for probes that cannot be sent at all (bad URL, invalid header).
type ProbeRunner interface {
	Fetch(ctx context.Context, probe domain.ProbeSpec) (domain.ProbeResult, error)
}
