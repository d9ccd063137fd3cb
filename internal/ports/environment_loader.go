package ports

import "github.com/aalvaropc/headline/internal/domain"

// EnvironmentLoader loads a named variable set (e.g., env/staging.yaml).
type EnvironmentLoader interface {
	LoadEnvironment(nameOrPath string) (domain.Environment, error)
}
