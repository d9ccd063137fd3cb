package wire

import (
	"strings"

	"github.com/aalvaropc/headline/internal/domain"
)

// ParseHeader splits a header line at its first colon and trims both sides.
// Lines without a colon fail with a *domain.ParseError matching domain.ErrMalformedHeader.
func ParseHeader(line string) (domain.Header, error) {
	i := strings.IndexByte(line, ':')
	if i < 0 {
		return domain.Header{}, &domain.ParseError{Kind: domain.KindMalformedHeader, Line: line}
	}
	return domain.Header{
		Name:  strings.TrimSpace(line[:i]),
		Value: strings.TrimSpace(line[i+1:]),
	}, nil
}
