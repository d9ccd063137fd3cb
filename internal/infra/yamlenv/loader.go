package yamlenv

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/aalvaropc/headline/internal/domain"
	"github.com/aalvaropc/headline/internal/ports"
)

// DefaultSecretsFile sits next to the environment files and overrides their vars.
const DefaultSecretsFile = "secrets.local.yaml"

type Loader struct {
	rootDir     string
	envDir      string
	secretsFile string
}

type Option func(*Loader)

func WithEnvDir(dir string) Option {
	return func(l *Loader) {
		if dir != "" {
			l.envDir = dir
		}
	}
}

func WithSecretsFile(name string) Option {
	return func(l *Loader) {
		if name != "" {
			l.secretsFile = name
		}
	}
}

func NewLoader(root string, opts ...Option) *Loader {
	l := &Loader{
		rootDir:     root,
		envDir:      "env",
		secretsFile: DefaultSecretsFile,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

var _ ports.EnvironmentLoader = (*Loader)(nil)

// LoadEnvironment accepts a name ("staging") looked up as <env_dir>/staging.yaml
// or .yml, or a path to a YAML file. A relative env_dir is taken from the root.
func (l *Loader) LoadEnvironment(nameOrPath string) (domain.Environment, error) {
	nameOrPath = strings.TrimSpace(nameOrPath)
	if nameOrPath == "" {
		return domain.Environment{}, &domain.OpError{
			Op:   "yamlenv.load",
			Kind: domain.KindInvalidConfig,
			Err:  errors.New("environment name is empty"),
		}
	}

	var envPath, envName string
	if isPath(nameOrPath) {
		envPath = filepath.Clean(nameOrPath)
		envName = strings.TrimSuffix(filepath.Base(envPath), filepath.Ext(envPath))
	} else {
		envName = nameOrPath
		envPath = l.lookup(envName)
	}

	base, err := readVars(envPath)
	if err != nil {
		return domain.Environment{}, err
	}

	secrets, err := readVarsOptional(filepath.Join(filepath.Dir(envPath), l.secretsFile))
	if err != nil {
		return domain.Environment{}, err
	}

	return domain.Environment{
		Name: envName,
		Vars: domain.Merge(base, secrets),
	}, nil
}

func (l *Loader) dir() string {
	if filepath.IsAbs(l.envDir) {
		return l.envDir
	}
	return filepath.Join(l.rootDir, l.envDir)
}

// lookup prefers .yaml; .yml is used only when it exists and .yaml does not.
func (l *Loader) lookup(name string) string {
	yamlPath := filepath.Join(l.dir(), name+".yaml")
	if _, err := os.Stat(yamlPath); err == nil {
		return yamlPath
	}
	ymlPath := filepath.Join(l.dir(), name+".yml")
	if _, err := os.Stat(ymlPath); err == nil {
		return ymlPath
	}
	return yamlPath
}

func isPath(s string) bool {
	ext := strings.ToLower(filepath.Ext(s))
	return ext == ".yaml" || ext == ".yml" || strings.ContainsRune(s, filepath.Separator) || strings.Contains(s, "/")
}

type yamlEnv struct {
	Vars map[string]string `yaml:"vars"`
}

func readVars(path string) (domain.Vars, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, &domain.OpError{
			Op:   "yamlenv.load",
			Kind: domain.KindNotFound,
			Path: path,
			Err:  err,
		}
	}

	var y yamlEnv
	if err := yaml.Unmarshal(b, &y); err != nil {
		return nil, &domain.OpError{
			Op:   "yamlenv.load",
			Kind: domain.KindInvalidConfig,
			Path: path,
			Err:  err,
		}
	}

	if y.Vars == nil {
		return domain.Vars{}, nil
	}
	return domain.Vars(y.Vars), nil
}

func readVarsOptional(path string) (domain.Vars, error) {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return domain.Vars{}, nil
		}
		return nil, &domain.OpError{
			Op:   "yamlenv.secrets",
			Kind: domain.KindExecution,
			Path: path,
			Err:  err,
		}
	}

	v, err := readVars(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load secrets: %w", err)
	}
	return v, nil
}
