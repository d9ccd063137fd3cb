package domain

import (
	"context"
	"errors"
	"io"
	"net"
	"os"
	"syscall"
	"time"
)

// RunErrorKind is a high-level classification of runtime errors.
type RunErrorKind string

const (
	RunErrorUnknown  RunErrorKind = "unknown"
	RunErrorTimeout  RunErrorKind = "timeout"
	RunErrorDNS      RunErrorKind = "dns"
	RunErrorConn     RunErrorKind = "connection"
	RunErrorProtocol RunErrorKind = "protocol"
	RunErrorConfig   RunErrorKind = "config"
	RunErrorCanceled RunErrorKind = "canceled"
)

// RunError represents a structured error produced while probing.
type RunError struct {
	Kind    RunErrorKind `json:"kind"`
	Message string       `json:"message"`
}

// NewRunError converts err into a RunError. It returns nil for a nil error.
func NewRunError(err error) *RunError {
	if err == nil {
		return nil
	}
	return &RunError{Kind: ClassifyRunError(err), Message: err.Error()}
}

// ClassifyRunError maps transport, parser and config errors to a RunErrorKind.
func ClassifyRunError(err error) RunErrorKind {
	if err == nil {
		return RunErrorUnknown
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, os.ErrDeadlineExceeded) {
		return RunErrorTimeout
	}
	if errors.Is(err, context.Canceled) {
		return RunErrorCanceled
	}

	if errors.Is(err, ErrMalformedStatusLine) ||
		errors.Is(err, ErrMalformedHeader) ||
		errors.Is(err, ErrHeadTooLarge) ||
		errors.Is(err, io.ErrUnexpectedEOF) {
		return RunErrorProtocol
	}

	if IsKind(err, KindInvalidConfig) || IsKind(err, KindMissingVar) {
		return RunErrorConfig
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return RunErrorDNS
	}

	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return RunErrorTimeout
	}

	if errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.EPIPE) ||
		errors.Is(err, io.EOF) {
		return RunErrorConn
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return RunErrorConn
	}

	return RunErrorUnknown
}

// AssertionResult is the output of a single assertion.
type AssertionResult struct {
	Name    string `json:"name"`
	Passed  bool   `json:"passed"`
	Message string `json:"message"`
}

// ExtractResult is the output of a single extract rule.
type ExtractResult struct {
	Name    string `json:"name"`
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// ResponseSnapshot stores a bounded view of the response.
type ResponseSnapshot struct {
	Headers   map[string][]string `json:"headers"`
	Body      []byte              `json:"body,omitempty"`
	Truncated bool                `json:"truncated,omitempty"`
}

// ProbeResult is the outcome of one probe.
type ProbeResult struct {
	Name   string     `json:"name"`
	Method HTTPMethod `json:"method"`
	URL    string     `json:"url"`

	Protocol   Protocol `json:"protocol,omitempty"`
	StatusCode int      `json:"status_code"`
	Reason     string   `json:"reason,omitempty"`
	LatencyMS  int64    `json:"latency_ms"`

	Assertions []AssertionResult `json:"assertions"`
	Extracts   []ExtractResult   `json:"extracts"`
	Extracted  Vars              `json:"extracted"`

	Response ResponseSnapshot `json:"response"`
	Error    *RunError        `json:"error,omitempty"`
}

// Failed reports whether the probe errored or any assertion or extract failed.
func (r ProbeResult) Failed() bool {
	if r.Error != nil {
		return true
	}
	for _, a := range r.Assertions {
		if !a.Passed {
			return true
		}
	}
	for _, e := range r.Extracts {
		if !e.Success {
			return true
		}
	}
	return false
}

// StatusLine rebuilds the decoded status line of the response.
func (r ProbeResult) StatusLine() StatusLine {
	return StatusLine{Protocol: r.Protocol, Code: r.StatusCode, Message: r.Reason}
}

// RunArtifact is a persisted suite run.
type RunArtifact struct {
	SuiteName       string `json:"suite_name"`
	SuitePath       string `json:"suite_path"`
	EnvironmentName string `json:"environment,omitempty"`

	StartedAt time.Time `json:"started_at"`
	EndedAt   time.Time `json:"ended_at"`

	Results []ProbeResult `json:"results"`
}

// Failures counts failed probes.
func (a RunArtifact) Failures() int {
	n := 0
	for _, r := range a.Results {
		if r.Failed() {
			n++
		}
	}
	return n
}
