package config

import (
	"os"

	"gopkg.in/yaml.v3"

	"github.com/aalvaropc/headline/internal/domain"
	"github.com/aalvaropc/headline/internal/ports"
)

// Loader reads probe suites from YAML files.
type Loader struct{}

func NewLoader() *Loader {
	return &Loader{}
}

var _ ports.SuiteLoader = (*Loader)(nil)

func (l *Loader) LoadSuite(path string) (domain.Suite, error) {
	return LoadSuite(path)
}

func LoadSuite(path string) (domain.Suite, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return domain.Suite{}, &domain.OpError{
			Op:   "config.load_suite",
			Kind: domain.KindNotFound,
			Path: path,
			Err:  err,
		}
	}

	var dto YAMLSuite
	if err := yaml.Unmarshal(b, &dto); err != nil {
		return domain.Suite{}, &domain.OpError{
			Op:   "config.load_suite",
			Kind: domain.KindInvalidConfig,
			Path: path,
			Err:  err,
		}
	}

	return MapSuite(path, dto)
}
