package rawclient

import (
	"bufio"
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http/httputil"
	"strings"
	"time"

	"github.com/aalvaropc/headline/internal/domain"
	"github.com/aalvaropc/headline/internal/ports"
	"github.com/aalvaropc/headline/internal/wire"
)

// maxInterimResponses bounds the 1xx heads skipped before the final response.
const maxInterimResponses = 8

// DialFunc matches net.Dialer.DialContext.
type DialFunc func(ctx context.Context, network, addr string) (net.Conn, error)

// Client sends one request per connection and decodes the response head with the wire package.
type Client struct {
	cfg    Config
	dial   DialFunc
	logger *slog.Logger
}

type Option func(*Client)

// WithDialer replaces the TCP dialer, e.g. to route through a test listener.
func WithDialer(d DialFunc) Option {
	return func(c *Client) { c.dial = d }
}

func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

func New(cfg Config, opts ...Option) *Client {
	dialer := &net.Dialer{Timeout: cfg.DialTimeout}
	c := &Client{
		cfg:    cfg,
		dial:   dialer.DialContext,
		logger: slog.New(slog.NewJSONHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

var _ ports.ProbeRunner = (*Client)(nil)

// Fetch sends probe and returns the decoded response. Network, TLS and parse
// failures land in ProbeResult.Error; an error is returned only when the probe
// itself is unusable.
func (c *Client) Fetch(ctx context.Context, probe domain.ProbeSpec) (domain.ProbeResult, error) {
	t, err := parseTarget(probe.URL)
	if err != nil {
		return domain.ProbeResult{}, err
	}

	req, err := buildRequest(t, probe, c.cfg.UserAgent)
	if err != nil {
		return domain.ProbeResult{}, err
	}

	method := probe.Method
	if method == "" {
		method = domain.MethodGet
	}

	result := domain.ProbeResult{
		Name:       probe.Name,
		Method:     method,
		URL:        probe.URL,
		Assertions: []domain.AssertionResult{},
		Extracts:   []domain.ExtractResult{},
		Extracted:  domain.Vars{},
		Response: domain.ResponseSnapshot{
			Headers: map[string][]string{},
		},
	}

	start := time.Now()
	head, body, truncated, err := c.roundTrip(ctx, t, method, req)
	result.LatencyMS = time.Since(start).Milliseconds()

	if err != nil && ctx.Err() != nil {
		err = ctx.Err()
	}

	if head != nil {
		result.Protocol = head.Status.Protocol
		result.StatusCode = head.Status.Code
		result.Reason = head.Status.Message
		result.Response.Headers = head.HeaderMap()
		result.Response.Body = body
		result.Response.Truncated = truncated
	}
	if err != nil {
		result.Error = domain.NewRunError(err)
		c.logger.Debug("rawclient.failed", "url", probe.URL, "kind", result.Error.Kind, "err", err)
		return result, nil
	}

	c.logger.Debug("rawclient.done",
		"url", probe.URL,
		"status", result.StatusCode,
		"latency_ms", result.LatencyMS,
		"body_bytes", len(body),
		"truncated", truncated,
	)
	return result, nil
}

// roundTrip returns a nil head when no status line was decoded. A non-nil head
// with an error means the body read failed.
func (c *Client) roundTrip(ctx context.Context, t target, method domain.HTTPMethod, req []byte) (*domain.ResponseHead, []byte, bool, error) {
	conn, err := c.dial(ctx, "tcp", t.addr)
	if err != nil {
		return nil, nil, false, err
	}
	defer conn.Close()

	stop := context.AfterFunc(ctx, func() {
		_ = conn.SetDeadline(time.Now())
	})
	defer stop()

	if c.cfg.ReadTimeout > 0 {
		if err := conn.SetDeadline(time.Now().Add(c.cfg.ReadTimeout)); err != nil {
			return nil, nil, false, err
		}
	}

	if t.tls {
		tlsConn := tls.Client(conn, c.tlsConfig(t))
		if err := tlsConn.HandshakeContext(ctx); err != nil {
			return nil, nil, false, err
		}
		conn = tlsConn
	}

	c.logger.Debug("rawclient.request", "addr", t.addr, "method", method, "uri", t.requestURI)

	if _, err := conn.Write(req); err != nil {
		return nil, nil, false, err
	}

	br := bufio.NewReader(conn)
	var head domain.ResponseHead
	for interim := 0; ; interim++ {
		if interim > maxInterimResponses {
			return nil, nil, false, &domain.OpError{
				Op:   "rawclient.read_head",
				Kind: domain.KindMalformedHead,
				Err:  fmt.Errorf("%w: more than %d interim responses", domain.ErrHeadTooLarge, maxInterimResponses),
			}
		}
		head, err = wire.ReadHead(br, c.cfg.Limits)
		if err != nil {
			return nil, nil, false, err
		}
		// Skip interim responses (100 Continue, 103 Early Hints); 101 ends the exchange.
		if head.Status.Informational() && head.Status.Code != 101 {
			continue
		}
		break
	}

	body, truncated, err := readBody(br, method, head, c.cfg.MaxBodyBytes)
	return &head, body, truncated, err
}

func (c *Client) tlsConfig(t target) *tls.Config {
	var cfg *tls.Config
	if c.cfg.TLSConfig != nil {
		cfg = c.cfg.TLSConfig.Clone()
	} else {
		cfg = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	if cfg.ServerName == "" {
		cfg.ServerName = t.host
	}
	// The response is decoded by the wire package, which only speaks HTTP/1.x.
	cfg.NextProtos = []string{"http/1.1"}
	return cfg
}

func readBody(r *bufio.Reader, method domain.HTTPMethod, head domain.ResponseHead, maxBytes int64) ([]byte, bool, error) {
	code := head.Status.Code
	if strings.EqualFold(string(method), string(domain.MethodHead)) ||
		head.Status.Informational() || code == 204 || code == 304 {
		return nil, false, nil
	}

	if head.Chunked() {
		return readBounded(httputil.NewChunkedReader(r), maxBytes)
	}

	if n, ok := head.ContentLength(); ok {
		b, truncated, err := readBounded(io.LimitReader(r, n), maxBytes)
		if err == nil && !truncated && int64(len(b)) < n {
			return b, false, io.ErrUnexpectedEOF
		}
		return b, truncated, err
	}

	return readBounded(r, maxBytes)
}

func readBounded(r io.Reader, maxBytes int64) ([]byte, bool, error) {
	if maxBytes <= 0 {
		maxBytes = domain.DefaultConfig().Client.MaxBodyBytes
	}
	lim := io.LimitReader(r, maxBytes+1)
	b, err := io.ReadAll(lim)
	if err != nil {
		return b, false, err
	}
	if int64(len(b)) > maxBytes {
		return b[:maxBytes], true, nil
	}
	return b, false, nil
}
