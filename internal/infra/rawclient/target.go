package rawclient

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"

	"golang.org/x/net/idna"

	"github.com/aalvaropc/headline/internal/domain"
)

// target is a probe URL split into what the dialer and the request line need.
type target struct {
	tls        bool
	host       string // ASCII host, no brackets
	addr       string // host:port for dialing
	hostHeader string
	requestURI string
}

func parseTarget(raw string) (target, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return target{}, invalidTarget(raw, err)
	}

	var port string
	var t target
	switch strings.ToLower(u.Scheme) {
	case "http":
		port = "80"
	case "https":
		port = "443"
		t.tls = true
	default:
		return target{}, invalidTarget(raw, fmt.Errorf("unsupported scheme %q (expected http|https)", u.Scheme))
	}

	hostname := u.Hostname()
	if hostname == "" {
		return target{}, invalidTarget(raw, errors.New("missing host"))
	}

	host := hostname
	if net.ParseIP(hostname) == nil {
		host, err = idna.Lookup.ToASCII(hostname)
		if err != nil {
			return target{}, invalidTarget(raw, err)
		}
	}

	if p := u.Port(); p != "" {
		port = p
	}

	t.host = host
	t.addr = net.JoinHostPort(host, port)
	t.hostHeader = host
	if strings.Contains(host, ":") {
		t.hostHeader = "[" + host + "]"
	}
	if u.Port() != "" {
		t.hostHeader += ":" + u.Port()
	}
	t.requestURI = u.RequestURI()
	return t, nil
}

func invalidTarget(raw string, err error) error {
	return &domain.OpError{
		Op:   "rawclient.target",
		Kind: domain.KindInvalidConfig,
		Err:  fmt.Errorf("url %q: %w", raw, err),
	}
}
