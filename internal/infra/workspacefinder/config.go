package workspacefinder

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/aalvaropc/headline/internal/domain"
)

// LoadConfig loads headline.yaml from the workspace root and applies defaults.
// On error the defaults are still returned so callers may carry on without a file.
func LoadConfig(root string) (domain.Config, error) {
	cfg := domain.DefaultConfig()

	path := filepath.Join(root, ConfigFileName)
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, &domain.OpError{
			Op:   "workspacefinder.loadconfig",
			Kind: domain.KindNotFound,
			Path: path,
			Err:  err,
		}
	}

	var y yamlConfig
	if err := yaml.Unmarshal(b, &y); err != nil {
		return cfg, &domain.OpError{
			Op:   "workspacefinder.loadconfig",
			Kind: domain.KindInvalidConfig,
			Path: path,
			Err:  err,
		}
	}

	if y.Headline.Masking.Enabled != nil {
		cfg.Masking.Enabled = *y.Headline.Masking.Enabled
	}
	if y.Headline.Paths.RunsDir != "" {
		cfg.Paths.RunsDir = y.Headline.Paths.RunsDir
	}
	if y.Headline.Paths.EnvDir != "" {
		cfg.Paths.EnvDir = y.Headline.Paths.EnvDir
	}

	c := y.Headline.Client
	if err := applyDuration(&cfg.Client.DialTimeout, c.DialTimeout, "client.dial_timeout"); err != nil {
		return domain.DefaultConfig(), configError(path, err)
	}
	if err := applyDuration(&cfg.Client.ReadTimeout, c.ReadTimeout, "client.read_timeout"); err != nil {
		return domain.DefaultConfig(), configError(path, err)
	}
	if c.MaxBodyBytes > 0 {
		cfg.Client.MaxBodyBytes = c.MaxBodyBytes
	}
	if c.MaxLineBytes > 0 {
		cfg.Client.MaxLineBytes = c.MaxLineBytes
	}
	if c.MaxHeaders > 0 {
		cfg.Client.MaxHeaders = c.MaxHeaders
	}
	if c.CAFile != "" {
		cfg.Client.CAFile = c.CAFile
		if !filepath.IsAbs(c.CAFile) {
			cfg.Client.CAFile = filepath.Join(root, c.CAFile)
		}
	}
	if c.InsecureSkipVerify != nil {
		cfg.Client.InsecureSkipVerify = *c.InsecureSkipVerify
	}

	return cfg, nil
}

func applyDuration(dst *time.Duration, raw string, field string) error {
	if raw == "" {
		return nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("field %s: %w", field, err)
	}
	if d < 0 {
		return fmt.Errorf("field %s: must not be negative", field)
	}
	*dst = d
	return nil
}

func configError(path string, err error) error {
	return &domain.OpError{
		Op:   "workspacefinder.loadconfig",
		Kind: domain.KindInvalidConfig,
		Path: path,
		Err:  err,
	}
}

type yamlConfig struct {
	Headline struct {
		Masking struct {
			Enabled *bool `yaml:"enabled"`
		} `yaml:"masking"`

		Paths struct {
			RunsDir string `yaml:"runs_dir"`
			EnvDir  string `yaml:"env_dir"`
		} `yaml:"paths"`

		Client struct {
			DialTimeout  string `yaml:"dial_timeout"`
			ReadTimeout  string `yaml:"read_timeout"`
			MaxBodyBytes int64  `yaml:"max_body_bytes"`
			MaxLineBytes int    `yaml:"max_line_bytes"`
			MaxHeaders   int    `yaml:"max_headers"`

			CAFile             string `yaml:"ca_file"`
			InsecureSkipVerify *bool  `yaml:"insecure_skip_verify"`
		} `yaml:"client"`
	} `yaml:"headline"`
}
