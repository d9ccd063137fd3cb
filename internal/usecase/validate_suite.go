package usecase

import (
	"context"
	"fmt"

	"github.com/aalvaropc/headline/internal/domain"
	"github.com/aalvaropc/headline/internal/ports"
)

type ValidateSuite struct {
	suites   ports.SuiteLoader
	envs     ports.EnvironmentLoader
	resolver *domain.VarResolver
}

type ValidateOption func(*ValidateSuite)

func WithVarResolver(vr *domain.VarResolver) ValidateOption {
	return func(uc *ValidateSuite) {
		if vr != nil {
			uc.resolver = vr
		}
	}
}

func WithEnvLoader(l ports.EnvironmentLoader) ValidateOption {
	return func(uc *ValidateSuite) { uc.envs = l }
}

func NewValidateSuite(sl ports.SuiteLoader, opts ...ValidateOption) *ValidateSuite {
	uc := &ValidateSuite{
		suites:   sl,
		resolver: domain.NewVarResolver(),
	}
	for _, opt := range opts {
		opt(uc)
	}
	return uc
}

// Execute loads a suite and resolves every probe without any network I/O.
// Variables layer as in RunSuite.Execute, and extract keys of a probe are assumed
// available to the probes after it.
func (uc *ValidateSuite) Execute(ctx context.Context, path string, envNameOrPath string, overrides domain.Vars) (domain.Suite, error) {
	suite, err := uc.suites.LoadSuite(path)
	if err != nil {
		return domain.Suite{}, err
	}

	vars, _, err := LayerVars(uc.envs, envNameOrPath, suite.Vars, overrides)
	if err != nil {
		return suite, err
	}

	for _, p := range suite.Probes {
		if err := ctx.Err(); err != nil {
			return suite, err
		}

		if _, err := uc.resolver.ResolveProbe(p, vars); err != nil {
			return suite, fmt.Errorf("probe %q: %w", p.Name, err)
		}

		for k := range p.Extract {
			if _, ok := vars[k]; !ok {
				vars[k] = "x"
			}
		}
	}

	return suite, nil
}
