package domain

import "time"

// Config represents the headline configuration loaded from headline.yaml.
type Config struct {
	Masking MaskingConfig
	Paths   PathsConfig
	Client  ClientConfig
}

type MaskingConfig struct {
	Enabled bool
}

type PathsConfig struct {
	RunsDir string
	EnvDir  string
}

// ClientConfig bounds the raw client: connection timeouts and how much of a response it will buffer.
type ClientConfig struct {
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	MaxBodyBytes int64

	MaxLineBytes int
	MaxHeaders   int

	// CAFile replaces the system roots with a PEM bundle when set.
	CAFile             string
	InsecureSkipVerify bool
}

// DefaultConfig provides sane defaults if headline.yaml is partially missing.
func DefaultConfig() Config {
	return Config{
		Masking: MaskingConfig{Enabled: true},
		Paths: PathsConfig{
			RunsDir: "runs",
			EnvDir:  "env",
		},
		Client: ClientConfig{
			DialTimeout:  5 * time.Second,
			ReadTimeout:  30 * time.Second,
			MaxBodyBytes: 256 * 1024,
			MaxLineBytes: 8 * 1024,
			MaxHeaders:   100,
		},
	}
}
