package rawclient

import (
	"crypto/tls"
	"crypto/x509"
	"errors"
	"os"
	"time"

	"github.com/aalvaropc/headline/internal/buildinfo"
	"github.com/aalvaropc/headline/internal/domain"
	"github.com/aalvaropc/headline/internal/wire"
)

type Config struct {
	// Dial timeout for the TCP connection. A context deadline can still shorten it.
	DialTimeout time.Duration

	// ReadTimeout bounds the whole exchange once connected: TLS handshake, request write,
	// head and body read.
	ReadTimeout time.Duration

	// MaxBodyBytes caps the buffered body; longer bodies are truncated, not failed.
	MaxBodyBytes int64

	Limits    wire.Limits
	UserAgent string

	// TLSConfig is cloned per connection. ServerName is filled from the URL when empty.
	TLSConfig *tls.Config
}

func DefaultConfig() Config {
	cfg, _ := ConfigFrom(domain.DefaultConfig().Client)
	return cfg
}

// ConfigFrom maps the client section of headline.yaml onto a Config.
// It fails only when ca_file cannot be read or holds no certificates.
func ConfigFrom(c domain.ClientConfig) (Config, error) {
	lim := wire.DefaultLimits()
	if c.MaxLineBytes > 0 {
		lim.MaxLineBytes = c.MaxLineBytes
	}
	if c.MaxHeaders > 0 {
		lim.MaxHeaders = c.MaxHeaders
	}

	cfg := Config{
		DialTimeout:  c.DialTimeout,
		ReadTimeout:  c.ReadTimeout,
		MaxBodyBytes: c.MaxBodyBytes,
		Limits:       lim,
		UserAgent:    "headline/" + buildinfo.Version,
	}

	if c.CAFile == "" && !c.InsecureSkipVerify {
		return cfg, nil
	}

	tc := &tls.Config{
		MinVersion: tls.VersionTLS12,
		InsecureSkipVerify: c.InsecureSkipVerify,
	}
	if c.CAFile != "" {
		pem, err := os.ReadFile(c.CAFile)
		if err != nil {
			return cfg, &domain.OpError{Op: "rawclient.config", Kind: domain.KindInvalidConfig, Path: c.CAFile, Err: err}
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(pem) {
			return cfg, &domain.OpError{
				Op:   "rawclient.config",
				Kind: domain.KindInvalidConfig,
				Path: c.CAFile,
				Err:  errors.New("no PEM certificates found"),
			}
		}
		tc.RootCAs = pool
	}
	cfg.TLSConfig = tc
	return cfg, nil
}
