package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for broad classification.
var (
	ErrNotFound      = errors.New("not found")
	ErrInvalidConfig = errors.New("invalid config")
	ErrMissingVar    = errors.New("missing variable")
	ErrExecution     = errors.New("execution error")

	ErrMalformedStatusLine = errors.New("malformed status line")
	ErrMalformedHeader     = errors.New("malformed header")
	ErrHeadTooLarge        = errors.New("response head too large")
)

// ErrorKind is a coarse-grained categorization for errors.
type ErrorKind string

const (
	KindNotFound      ErrorKind = "not_found"
	KindInvalidConfig ErrorKind = "invalid_config"
	KindMissingVar    ErrorKind = "missing_variable"
	KindExecution     ErrorKind = "execution"

	KindMalformedStatusLine ErrorKind = "malformed_status_line"
	KindMalformedHeader     ErrorKind = "malformed_header"
	KindMalformedHead       ErrorKind = "malformed_head"
)

// OpError wraps an underlying error with operation context and a kind.
type OpError struct {
	Op   string
	Kind ErrorKind
	Path string // Optional: relevant file path
	Err  error
}

func (e *OpError) Error() string {
	if e == nil {
		return "<nil>"
	}

	base := fmt.Sprintf("%s: %s", e.Op, e.Kind)
	if e.Path != "" {
		base += fmt.Sprintf(" (path=%s)", e.Path)
	}
	if e.Err != nil {
		base += fmt.Sprintf(": %v", e.Err)
	}
	return base
}

func (e *OpError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// ParseError reports a line that does not follow the status-line or header grammar.
// Line carries the raw input for diagnostics.
type ParseError struct {
	Kind ErrorKind
	Line string
}

func (e *ParseError) Error() string {
	if e == nil {
		return "<nil>"
	}
	switch e.Kind {
	case KindMalformedStatusLine:
		return fmt.Sprintf("unexpected status line: %q", e.Line)
	case KindMalformedHeader:
		return fmt.Sprintf("unexpected header: %q", e.Line)
	default:
		return fmt.Sprintf("%s: %q", e.Kind, e.Line)
	}
}

// Is lets errors.Is match a ParseError against the sentinel of its kind.
func (e *ParseError) Is(target error) bool {
	if e == nil {
		return false
	}
	switch e.Kind {
	case KindMalformedStatusLine:
		return target == ErrMalformedStatusLine
	case KindMalformedHeader:
		return target == ErrMalformedHeader
	}
	return false
}

// IsKind helps callers classify errors without depending on infra packages.
func IsKind(err error, kind ErrorKind) bool {
	var pe *ParseError
	if errors.As(err, &pe) && pe.Kind == kind {
		return true
	}
	var oe *OpError
	if errors.As(err, &oe) {
		return oe.Kind == kind
	}
	return false
}
