package rawclient

import (
	"bufio"
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/pem"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aalvaropc/headline/internal/domain"
)

// rawServer accepts one connection, captures the request head and writes reply verbatim.
func rawServer(t *testing.T, reply string) (addr string, requests <-chan *http.Request) {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = ln.Close() })

	ch := make(chan *http.Request, 1)
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()

		req, err := http.ReadRequest(bufio.NewReader(conn))
		if err == nil {
			ch <- req
		}
		_, _ = conn.Write([]byte(reply))
	}()

	return ln.Addr().String(), ch
}

func testClient(cfg Config) *Client {
	if cfg.ReadTimeout == 0 {
		cfg.ReadTimeout = 5 * time.Second
	}
	if cfg.MaxBodyBytes == 0 {
		cfg.MaxBodyBytes = 1024
	}
	cfg.UserAgent = "headline-test"
	return New(cfg)
}

func TestFetch_ContentLength(t *testing.T) {
	addr, reqs := rawServer(t, "HTTP/1.1 201 Created\r\nContent-Type: application/json\r\nContent-Length: 11\r\nX-Id: 7\r\n\r\n{\"id\":\"7\"}\n")

	res, err := testClient(Config{}).Fetch(context.Background(), domain.ProbeSpec{
		Name:    "create",
		Method:  domain.MethodPost,
		URL:     "http://" + addr + "/items?x=1",
		Headers: domain.Headers{"Authorization": "Bearer abc"},
		Body:    `{"a":1}`,
	})
	require.NoError(t, err)
	require.Nil(t, res.Error)

	assert.Equal(t, "create", res.Name)
	assert.Equal(t, domain.ProtocolHTTP11, res.Protocol)
	assert.Equal(t, 201, res.StatusCode)
	assert.Equal(t, "Created", res.Reason)
	assert.Equal(t, []string{"7"}, res.Response.Headers["X-Id"])
	assert.Equal(t, "{\"id\":\"7\"}\n", string(res.Response.Body))
	assert.False(t, res.Response.Truncated)

	req := <-reqs
	assert.Equal(t, http.MethodPost, req.Method)
	assert.Equal(t, "/items?x=1", req.RequestURI)
	assert.Equal(t, addr, req.Host)
	assert.Equal(t, "headline-test", req.Header.Get("User-Agent"))
	assert.Equal(t, "Bearer abc", req.Header.Get("Authorization"))
	assert.True(t, req.Close)
	assert.EqualValues(t, 7, req.ContentLength)
}

func TestFetch_Chunked(t *testing.T) {
	addr, _ := rawServer(t, "HTTP/1.1 200 OK\r\nTransfer-Encoding: chunked\r\n\r\n5\r\nhello\r\n6\r\n world\r\n0\r\n\r\n")

	res, err := testClient(Config{}).Fetch(context.Background(), domain.ProbeSpec{URL: "http://" + addr})
	require.NoError(t, err)
	require.Nil(t, res.Error)
	assert.Equal(t, domain.MethodGet, res.Method)
	assert.Equal(t, "hello world", string(res.Response.Body))
}

func TestFetch_SkipsInterimResponses(t *testing.T) {
	addr, _ := rawServer(t, "HTTP/1.1 100 Continue\r\n\r\nHTTP/1.1 103 Early Hints\r\nLink: </a.css>\r\n\r\nHTTP/1.1 200 OK\r\nContent-Length: 2\r\n\r\nok")

	res, err := testClient(Config{}).Fetch(context.Background(), domain.ProbeSpec{URL: "http://" + addr})
	require.NoError(t, err)
	require.Nil(t, res.Error)
	assert.Equal(t, 200, res.StatusCode)
	assert.Equal(t, "ok", string(res.Response.Body))
	assert.NotContains(t, res.Response.Headers, "Link")
}

func TestFetch_TooManyInterimResponses(t *testing.T) {
	reply := strings.Repeat("HTTP/1.1 100 Continue\r\n\r\n", 20) + "HTTP/1.1 200 OK\r\nContent-Length: 2\r\n\r\nok"
	addr, _ := rawServer(t, reply)

	res, err := testClient(Config{}).Fetch(context.Background(), domain.ProbeSpec{URL: "http://" + addr})
	require.NoError(t, err)
	require.NotNil(t, res.Error)
	assert.Equal(t, domain.RunErrorProtocol, res.Error.Kind)
	assert.Contains(t, res.Error.Message, "interim responses")
	assert.Zero(t, res.StatusCode)
}

func TestFetch_ICYReadsUntilClose(t *testing.T) {
	addr, _ := rawServer(t, "\r\nICY 200 OK\r\nicy-name: Radio\r\n\r\nstream-bytes")

	res, err := testClient(Config{}).Fetch(context.Background(), domain.ProbeSpec{URL: "http://" + addr + "/stream"})
	require.NoError(t, err)
	require.Nil(t, res.Error)
	assert.Equal(t, domain.ProtocolHTTP10, res.Protocol)
	assert.Equal(t, 200, res.StatusCode)
	assert.Equal(t, []string{"Radio"}, res.Response.Headers["Icy-Name"])
	assert.Equal(t, "stream-bytes", string(res.Response.Body))
}

func TestFetch_TruncatesBody(t *testing.T) {
	addr, _ := rawServer(t, "HTTP/1.0 200 OK\r\n\r\n"+strings.Repeat("x", 100))

	res, err := testClient(Config{MaxBodyBytes: 10}).Fetch(context.Background(), domain.ProbeSpec{URL: "http://" + addr})
	require.NoError(t, err)
	require.Nil(t, res.Error)
	assert.Len(t, res.Response.Body, 10)
	assert.True(t, res.Response.Truncated)
}

func TestFetch_HeadHasNoBody(t *testing.T) {
	addr, _ := rawServer(t, "HTTP/1.1 200 OK\r\nContent-Length: 1000\r\n\r\n")

	res, err := testClient(Config{}).Fetch(context.Background(), domain.ProbeSpec{Method: domain.MethodHead, URL: "http://" + addr})
	require.NoError(t, err)
	require.Nil(t, res.Error)
	assert.Empty(t, res.Response.Body)
}

func TestFetch_ShortBodyIsProtocolError(t *testing.T) {
	addr, _ := rawServer(t, "HTTP/1.1 200 OK\r\nContent-Length: 10\r\n\r\nabc")

	res, err := testClient(Config{}).Fetch(context.Background(), domain.ProbeSpec{URL: "http://" + addr})
	require.NoError(t, err)
	require.NotNil(t, res.Error)
	assert.Equal(t, domain.RunErrorProtocol, res.Error.Kind)
	assert.Equal(t, 200, res.StatusCode)
	assert.Equal(t, "abc", string(res.Response.Body))
}

func TestFetch_MalformedStatusLine(t *testing.T) {
	addr, _ := rawServer(t, "HTTP/1.2 200 OK\r\n\r\n")

	res, err := testClient(Config{}).Fetch(context.Background(), domain.ProbeSpec{URL: "http://" + addr})
	require.NoError(t, err)
	require.NotNil(t, res.Error)
	assert.Equal(t, domain.RunErrorProtocol, res.Error.Kind)
	assert.Contains(t, res.Error.Message, "HTTP/1.2 200 OK")
	assert.Zero(t, res.StatusCode)
}

func TestFetch_ConnectionRefused(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	res, err := testClient(Config{}).Fetch(context.Background(), domain.ProbeSpec{URL: "http://" + addr})
	require.NoError(t, err)
	require.NotNil(t, res.Error)
	assert.Equal(t, domain.RunErrorConn, res.Error.Kind)
}

func TestFetch_ContextCancelUnblocksRead(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	accepted := make(chan net.Conn, 1)
	go func() {
		conn, err := ln.Accept()
		if err == nil {
			accepted <- conn
		}
	}()

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		conn := <-accepted
		defer conn.Close()
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	res, err := testClient(Config{}).Fetch(ctx, domain.ProbeSpec{URL: "http://" + ln.Addr().String()})
	require.NoError(t, err)
	require.NotNil(t, res.Error)
	assert.Equal(t, domain.RunErrorCanceled, res.Error.Kind)
}

func TestFetch_ReadTimeout(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		time.Sleep(500 * time.Millisecond)
		conn.Close()
	}()

	res, err := testClient(Config{ReadTimeout: 30 * time.Millisecond}).Fetch(context.Background(), domain.ProbeSpec{URL: "http://" + ln.Addr().String()})
	require.NoError(t, err)
	require.NotNil(t, res.Error)
	assert.Equal(t, domain.RunErrorTimeout, res.Error.Kind)
}

func TestFetch_InvalidProbe(t *testing.T) {
	for _, probe := range []domain.ProbeSpec{
		{URL: "ftp://example.com/file"},
		{URL: "http:///nohost"},
		{URL: "http://example.com", Headers: domain.Headers{"X-Bad": "a\r\nInjected: 1"}},
		{URL: "http://example.com", Headers: domain.Headers{"Bad Name": "v"}},
		{URL: "http://example.com", Method: "GE T"},
	} {
		_, err := testClient(Config{}).Fetch(context.Background(), probe)
		require.Error(t, err, "probe %+v", probe)
		assert.True(t, domain.IsKind(err, domain.KindInvalidConfig), "probe %+v: %v", probe, err)
	}
}

func TestWithDialer(t *testing.T) {
	addr, reqs := rawServer(t, "HTTP/1.1 204 No Content\r\n\r\n")

	var dialed string
	c := New(Config{ReadTimeout: 5 * time.Second}, WithDialer(func(ctx context.Context, network, a string) (net.Conn, error) {
		dialed = a
		var d net.Dialer
		return d.DialContext(ctx, network, addr)
	}))

	res, err := c.Fetch(context.Background(), domain.ProbeSpec{URL: "http://api.example.test/ping"})
	require.NoError(t, err)
	require.Nil(t, res.Error)
	assert.Equal(t, 204, res.StatusCode)
	assert.Equal(t, "api.example.test:80", dialed)
	assert.Equal(t, "api.example.test", (<-reqs).Host)
}

func tlsServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Proto", r.Proto)
		_, _ = w.Write([]byte("hello"))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestFetch_TLS(t *testing.T) {
	srv := tlsServer(t)

	pool := x509.NewCertPool()
	pool.AddCert(srv.Certificate())

	res, err := testClient(Config{TLSConfig: &tls.Config{RootCAs: pool}}).Fetch(context.Background(), domain.ProbeSpec{URL: srv.URL})
	require.NoError(t, err)
	require.Nil(t, res.Error)
	assert.Equal(t, 200, res.StatusCode)
	assert.Equal(t, "hello", string(res.Response.Body))
	assert.Equal(t, []string{"HTTP/1.1"}, res.Response.Headers["X-Proto"])
}

func TestFetch_TLSUnknownAuthority(t *testing.T) {
	srv := tlsServer(t)

	res, err := testClient(Config{}).Fetch(context.Background(), domain.ProbeSpec{URL: srv.URL})
	require.NoError(t, err)
	require.NotNil(t, res.Error)
	assert.Zero(t, res.StatusCode)
}

func TestConfigFrom_CAFile(t *testing.T) {
	srv := tlsServer(t)

	caFile := filepath.Join(t.TempDir(), "ca.pem")
	pemBytes := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: srv.Certificate().Raw})
	require.NoError(t, os.WriteFile(caFile, pemBytes, 0o600))

	cfg, err := ConfigFrom(domain.ClientConfig{CAFile: caFile})
	require.NoError(t, err)
	require.NotNil(t, cfg.TLSConfig)
	assert.False(t, cfg.TLSConfig.InsecureSkipVerify)

	res, err := testClient(cfg).Fetch(context.Background(), domain.ProbeSpec{URL: srv.URL})
	require.NoError(t, err)
	require.Nil(t, res.Error)
	assert.Equal(t, "hello", string(res.Response.Body))
}

func TestConfigFrom_InsecureSkipVerify(t *testing.T) {
	srv := tlsServer(t)

	cfg, err := ConfigFrom(domain.ClientConfig{InsecureSkipVerify: true})
	require.NoError(t, err)

	res, err := testClient(cfg).Fetch(context.Background(), domain.ProbeSpec{URL: srv.URL})
	require.NoError(t, err)
	require.Nil(t, res.Error)
	assert.Equal(t, 200, res.StatusCode)
}

func TestConfigFrom_BadCAFile(t *testing.T) {
	dir := t.TempDir()

	_, err := ConfigFrom(domain.ClientConfig{CAFile: filepath.Join(dir, "missing.pem")})
	assert.True(t, domain.IsKind(err, domain.KindInvalidConfig))

	junk := filepath.Join(dir, "junk.pem")
	require.NoError(t, os.WriteFile(junk, []byte("not a certificate"), 0o600))
	_, err = ConfigFrom(domain.ClientConfig{CAFile: junk})
	assert.True(t, domain.IsKind(err, domain.KindInvalidConfig))
}

func TestConfigFrom_DefaultsLeaveTLSUnset(t *testing.T) {
	cfg, err := ConfigFrom(domain.DefaultConfig().Client)
	require.NoError(t, err)
	assert.Nil(t, cfg.TLSConfig)
	assert.Equal(t, 8*1024, cfg.Limits.MaxLineBytes)
}
