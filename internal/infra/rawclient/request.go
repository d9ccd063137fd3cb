package rawclient

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/net/http/httpguts"

	"github.com/aalvaropc/headline/internal/domain"
)

// buildRequest renders an HTTP/1.1 request. Headers from the probe win over the
// defaults (Host, User-Agent); Connection is always "close".
func buildRequest(t target, p domain.ProbeSpec, userAgent string) ([]byte, error) {
	method := strings.ToUpper(strings.TrimSpace(string(p.Method)))
	if method == "" {
		method = string(domain.MethodGet)
	}
	if !httpguts.ValidHeaderFieldName(method) {
		return nil, invalidRequest(fmt.Errorf("invalid method %q", method))
	}

	names := make([]string, 0, len(p.Headers))
	for k, v := range p.Headers {
		if !httpguts.ValidHeaderFieldName(k) {
			return nil, invalidRequest(fmt.Errorf("invalid header name %q", k))
		}
		if !httpguts.ValidHeaderFieldValue(v) {
			return nil, invalidRequest(fmt.Errorf("invalid value for header %q", k))
		}
		if strings.EqualFold(k, "Connection") {
			continue
		}
		names = append(names, k)
	}
	sort.Strings(names)

	has := func(name string) bool {
		for _, k := range names {
			if strings.EqualFold(k, name) {
				return true
			}
		}
		return false
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s %s HTTP/1.1\r\n", method, t.requestURI)
	if !has("Host") {
		fmt.Fprintf(&b, "Host: %s\r\n", t.hostHeader)
	}
	if !has("User-Agent") && userAgent != "" {
		fmt.Fprintf(&b, "User-Agent: %s\r\n", userAgent)
	}
	b.WriteString("Connection: close\r\n")
	for _, k := range names {
		fmt.Fprintf(&b, "%s: %s\r\n", k, p.Headers[k])
	}
	if !has("Content-Length") && (p.Body != "" || expectsBody(method)) {
		b.WriteString("Content-Length: " + strconv.Itoa(len(p.Body)) + "\r\n")
	}
	b.WriteString("\r\n")
	b.WriteString(p.Body)

	return []byte(b.String()), nil
}

// expectsBody reports methods whose empty body must still be framed with
// Content-Length: 0, otherwise servers may answer 411.
func expectsBody(method string) bool {
	switch domain.HTTPMethod(method) {
	case domain.MethodPost, domain.MethodPut, domain.MethodPatch:
		return true
	}
	return false
}

func invalidRequest(err error) error {
	return &domain.OpError{
		Op:   "rawclient.build",
		Kind: domain.KindInvalidConfig,
		Err:  err,
	}
}
