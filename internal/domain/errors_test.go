package domain

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestOpErrorWrapUnwrap(t *testing.T) {
	root := errors.New("root")
	err := &OpError{
		Op:   "config.load",
		Kind: KindInvalidConfig,
		Path: "headline.yaml",
		Err:  root,
	}

	if !errors.Is(err, root) {
		t.Fatalf("expected errors.Is to match cause")
	}
	if !strings.Contains(err.Error(), "path=headline.yaml") {
		t.Fatalf("expected path in message, got %q", err.Error())
	}

	var got *OpError
	if !errors.As(fmt.Errorf("wrapped: %w", err), &got) {
		t.Fatalf("expected errors.As to match OpError")
	}
	if got.Kind != KindInvalidConfig {
		t.Fatalf("expected kind %s", KindInvalidConfig)
	}
}

func TestParseErrorMatchesSentinel(t *testing.T) {
	status := &ParseError{Kind: KindMalformedStatusLine, Line: "HTTP/1.2 200 OK"}
	header := &ParseError{Kind: KindMalformedHeader, Line: "NoColonHere"}

	if !errors.Is(status, ErrMalformedStatusLine) {
		t.Fatalf("expected status error to match ErrMalformedStatusLine")
	}
	if errors.Is(status, ErrMalformedHeader) {
		t.Fatalf("status error must not match ErrMalformedHeader")
	}
	if !errors.Is(header, ErrMalformedHeader) {
		t.Fatalf("expected header error to match ErrMalformedHeader")
	}
	if !strings.Contains(status.Error(), "HTTP/1.2 200 OK") {
		t.Fatalf("expected raw line in message, got %q", status.Error())
	}
}

func TestIsKind(t *testing.T) {
	cases := []struct {
		name string
		err  error
		kind ErrorKind
		want bool
	}{
		{"op error", &OpError{Op: "x", Kind: KindNotFound}, KindNotFound, true},
		{"op error other kind", &OpError{Op: "x", Kind: KindNotFound}, KindExecution, false},
		{"parse error", &ParseError{Kind: KindMalformedHeader}, KindMalformedHeader, true},
		{"parse error in op error", &OpError{Op: "wire.read_head", Kind: KindMalformedHead, Err: &ParseError{Kind: KindMalformedStatusLine}}, KindMalformedStatusLine, true},
		{"plain", errors.New("boom"), KindExecution, false},
		{"nil", nil, KindExecution, false},
	}
	for _, c := range cases {
		if got := IsKind(c.err, c.kind); got != c.want {
			t.Errorf("%s: IsKind = %v, want %v", c.name, got, c.want)
		}
	}
}
