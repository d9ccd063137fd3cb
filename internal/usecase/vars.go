package usecase

import (
	"errors"
	"strings"

	"github.com/aalvaropc/headline/internal/domain"
	"github.com/aalvaropc/headline/internal/ports"
)

// LayerVars builds the starting variables for a run: base < environment < overrides.
// The environment already carries its secrets file on top of its own vars.
// An empty envNameOrPath skips the environment layer; the returned name is then empty.
func LayerVars(envs ports.EnvironmentLoader, envNameOrPath string, base, overrides domain.Vars) (domain.Vars, string, error) {
	if strings.TrimSpace(envNameOrPath) == "" {
		return domain.Merge(base, overrides), "", nil
	}
	if envs == nil {
		return nil, "", &domain.OpError{
			Op:   "usecase.environment",
			Kind: domain.KindInvalidConfig,
			Path: envNameOrPath,
			Err:  errors.New("no environment loader configured"),
		}
	}

	env, err := envs.LoadEnvironment(envNameOrPath)
	if err != nil {
		return nil, "", err
	}
	return domain.Merge(domain.Merge(base, env.Vars), overrides), env.Name, nil
}
