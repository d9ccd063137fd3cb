package domain

import (
	"net/textproto"
	"strconv"
	"strings"
)

// Protocol is the HTTP version a status line was sent with.
type Protocol string

const (
	ProtocolHTTP10 Protocol = "HTTP/1.0"
	ProtocolHTTP11 Protocol = "HTTP/1.1"
)

// StatusLine is the decoded first line of an HTTP/1.x response.
// ICY responses are reported as HTTP/1.0.
type StatusLine struct {
	Protocol Protocol
	Code     int
	Message  string
}

// String renders the line the way it appears on the wire, without CRLF.
func (s StatusLine) String() string {
	proto := s.Protocol
	if proto == "" {
		proto = ProtocolHTTP11
	}

	var b strings.Builder
	b.WriteString(string(proto))
	b.WriteByte(' ')
	b.WriteString(strconv.Itoa(s.Code))
	if s.Message != "" {
		b.WriteByte(' ')
		b.WriteString(s.Message)
	}
	return b.String()
}

// Informational reports whether the code is 1xx.
func (s StatusLine) Informational() bool {
	return s.Code >= 100 && s.Code < 200
}

// Header is a single decoded "Name: value" line.
type Header struct {
	Name  string
	Value string
}

// Headers is a map representation of request headers in probe definitions.
type Headers map[string]string

// ResponseHead is a status line plus its header lines, in arrival order.
type ResponseHead struct {
	Status  StatusLine
	Headers []Header
}

// Get returns the first value for name, matched case-insensitively.
func (h ResponseHead) Get(name string) (string, bool) {
	for _, hdr := range h.Headers {
		if strings.EqualFold(hdr.Name, name) {
			return hdr.Value, true
		}
	}
	return "", false
}

// Values returns all values for name, matched case-insensitively.
func (h ResponseHead) Values(name string) []string {
	var out []string
	for _, hdr := range h.Headers {
		if strings.EqualFold(hdr.Name, name) {
			out = append(out, hdr.Value)
		}
	}
	return out
}

// ContentLength returns the declared body length, if any and if it is valid.
func (h ResponseHead) ContentLength() (int64, bool) {
	v, ok := h.Get("Content-Length")
	if !ok {
		return 0, false
	}
	n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

// Chunked reports whether the body uses chunked transfer coding.
func (h ResponseHead) Chunked() bool {
	for _, v := range h.Values("Transfer-Encoding") {
		for _, part := range strings.Split(v, ",") {
			if strings.EqualFold(strings.TrimSpace(part), "chunked") {
				return true
			}
		}
	}
	return false
}

// HeaderMap groups header values under canonical MIME keys.
func (h ResponseHead) HeaderMap() map[string][]string {
	out := make(map[string][]string, len(h.Headers))
	for _, hdr := range h.Headers {
		k := textproto.CanonicalMIMEHeaderKey(hdr.Name)
		out[k] = append(out[k], hdr.Value)
	}
	return out
}
