package domain

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Vars is a key/value store used for templating and runtime variable resolution.
type Vars map[string]string

// Merge merges base and override vars (override wins) and returns a new map.
func Merge(base Vars, override Vars) Vars {
	out := Vars{}
	for k, v := range base {
		out[k] = v
	}
	for k, v := range override {
		out[k] = v
	}
	return out
}

// VarResolver resolves {{var}} placeholders in probe fields.
// It supports built-ins: {{$timestamp}} and {{$uuid}}.
type VarResolver struct {
	now    func() time.Time
	uuidV4 func() (string, error)
}

// VarResolverOption configures VarResolver.
type VarResolverOption func(*VarResolver)

// WithNow overrides the clock (useful for tests).
func WithNow(now func() time.Time) VarResolverOption {
	return func(r *VarResolver) { r.now = now }
}

// WithUUID overrides UUID generation (useful for tests).
func WithUUID(gen func() (string, error)) VarResolverOption {
	return func(r *VarResolver) { r.uuidV4 = gen }
}

func NewVarResolver(opts ...VarResolverOption) *VarResolver {
	r := &VarResolver{
		now:    time.Now,
		uuidV4: uuidV4,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// ResolveProbe returns a copy of p with placeholders in URL, header values and body resolved.
// Built-ins are computed once per call so repeated {{$uuid}} stays consistent within a probe.
func (r *VarResolver) ResolveProbe(p ProbeSpec, vars Vars) (ProbeSpec, error) {
	u, err := r.uuidV4()
	if err != nil {
		return ProbeSpec{}, &OpError{
			Op:   "vars.builtins.uuid",
			Kind: KindExecution,
			Err:  err,
		}
	}
	builtins := Vars{
		"$timestamp": strconv.FormatInt(r.now().Unix(), 10),
		"$uuid":      u,
	}

	out := p

	out.URL, err = resolveString(vars, builtins, p.URL)
	if err != nil {
		return ProbeSpec{}, wrapField(err, "probe.url")
	}

	out.Headers = Headers{}
	for k, v := range p.Headers {
		rv, err := resolveString(vars, builtins, v)
		if err != nil {
			return ProbeSpec{}, wrapField(err, "probe.headers."+k)
		}
		out.Headers[k] = rv
	}

	out.Body, err = resolveString(vars, builtins, p.Body)
	if err != nil {
		return ProbeSpec{}, wrapField(err, "probe.body")
	}

	return out, nil
}

func resolveString(vars Vars, builtins Vars, s string) (string, error) {
	if !strings.Contains(s, "{{") {
		return s, nil
	}

	var b strings.Builder
	b.Grow(len(s) + 16)

	for i := 0; i < len(s); {
		if i+1 < len(s) && s[i] == '{' && s[i+1] == '{' {
			start := i + 2
			end := strings.Index(s[start:], "}}")
			if end < 0 {
				return "", &OpError{
					Op:   "vars.resolve",
					Kind: KindInvalidConfig,
					Err:  errors.New("unclosed placeholder"),
				}
			}
			end = start + end

			name := strings.TrimSpace(s[start:end])
			if name == "" {
				return "", &OpError{
					Op:   "vars.resolve",
					Kind: KindInvalidConfig,
					Err:  errors.New("empty placeholder"),
				}
			}

			val, ok := builtins[name]
			if !ok {
				val, ok = vars[name]
			}
			if !ok {
				return "", &OpError{
					Op:   "vars.resolve",
					Kind: KindMissingVar,
					Err:  fmt.Errorf("%w: %s", ErrMissingVar, name),
				}
			}

			b.WriteString(val)
			i = end + 2
			continue
		}

		b.WriteByte(s[i])
		i++
	}

	return b.String(), nil
}

func wrapField(err error, field string) error {
	kind := KindExecution
	var oe *OpError
	if errors.As(err, &oe) {
		kind = oe.Kind
	}
	return &OpError{
		Op:   "vars.resolve",
		Kind: kind,
		Err:  fmt.Errorf("%s: %w", field, err),
	}
}

func uuidV4() (string, error) {
	var b [16]byte
	if _, err := rand.Read(b[:]); err != nil {
		return "", err
	}

	b[6] = (b[6] & 0x0f) | 0x40
	b[8] = (b[8] & 0x3f) | 0x80

	hexed := make([]byte, 36)
	hex.Encode(hexed[0:8], b[0:4])
	hexed[8] = '-'
	hex.Encode(hexed[9:13], b[4:6])
	hexed[13] = '-'
	hex.Encode(hexed[14:18], b[6:8])
	hexed[18] = '-'
	hex.Encode(hexed[19:23], b[8:10])
	hexed[23] = '-'
	hex.Encode(hexed[24:36], b[10:16])

	return string(hexed), nil
}
