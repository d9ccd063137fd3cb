package cli

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/aalvaropc/headline/internal/domain"
	"github.com/aalvaropc/headline/internal/infra/config"
	"github.com/aalvaropc/headline/internal/infra/logger"
	"github.com/aalvaropc/headline/internal/infra/rawclient"
	"github.com/aalvaropc/headline/internal/infra/runstore"
	"github.com/aalvaropc/headline/internal/infra/workspacefinder"
	"github.com/aalvaropc/headline/internal/infra/yamlenv"
	"github.com/aalvaropc/headline/internal/ports"
)

type workspaceCtx struct {
	root string
	cfg  domain.Config

	suites ports.SuiteLoader
	envs   ports.EnvironmentLoader
	runner ports.ProbeRunner
	store  ports.ArtifactStore
	logger *slog.Logger
}

// workspaceOption adjusts the loaded config before adapters are built from it.
type workspaceOption func(*domain.Config)

func withInsecureTLS(on bool) workspaceOption {
	return func(cfg *domain.Config) {
		if on {
			cfg.Client.InsecureSkipVerify = true
		}
	}
}

// loadWorkspace resolves the root and applies headline.yaml when present.
// A missing headline.yaml is not an error: defaults apply and the working
// directory becomes the root.
func loadWorkspace(rootFlag string, opts ...workspaceOption) (*workspaceCtx, error) {
	root, err := resolveWorkspaceRoot(rootFlag)
	if err != nil {
		return nil, err
	}

	cfg, err := workspacefinder.LoadConfig(root)
	if err != nil && !domain.IsKind(err, domain.KindNotFound) {
		return nil, err
	}

	for _, opt := range opts {
		opt(&cfg)
	}

	clientCfg, err := rawclient.ConfigFrom(cfg.Client)
	if err != nil {
		return nil, err
	}

	log := logger.L()

	return &workspaceCtx{
		root:   root,
		cfg:    cfg,
		suites: config.NewLoader(),
		envs:   yamlenv.NewLoader(root, yamlenv.WithEnvDir(cfg.Paths.EnvDir)),
		runner: rawclient.New(clientCfg, rawclient.WithLogger(log)),
		store:  runstore.NewJSONStore(root, cfg, runstore.WithIndex(true)),
		logger: log,
	}, nil
}

func resolveWorkspaceRoot(rootFlag string) (string, error) {
	w := strings.TrimSpace(rootFlag)
	if w != "" {
		abs, err := filepath.Abs(w)
		if err != nil {
			return "", fmt.Errorf("invalid root path: %w", err)
		}
		return abs, nil
	}

	wd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("get working directory: %w", err)
	}

	root, err := workspacefinder.NewFinder().FindRoot(wd)
	if err != nil {
		return wd, nil
	}
	return root, nil
}

// resolveSuitePath accepts a path relative to the working directory or to the
// workspace root. "smoke" also tries smoke.yaml and smoke.yml under the root.
func resolveSuitePath(ws *workspaceCtx, arg string) (string, error) {
	in := strings.TrimSpace(arg)
	if in == "" {
		return "", fmt.Errorf("suite is required (use --file or -f)")
	}

	if filepath.IsAbs(in) || fileExists(in) {
		return filepath.Clean(in), nil
	}

	candidates := []string{filepath.Join(ws.root, in)}
	if !hasYAMLExt(in) {
		candidates = append(candidates,
			filepath.Join(ws.root, in+".yaml"),
			filepath.Join(ws.root, in+".yml"),
		)
	}
	for _, p := range candidates {
		if fileExists(p) {
			return p, nil
		}
	}

	return "", &domain.OpError{
		Op:   "cli.resolve_suite",
		Kind: domain.KindNotFound,
		Path: in,
		Err:  domain.ErrNotFound,
	}
}

// parseVars turns repeated --var k=v flags into Vars.
func parseVars(in []string) (domain.Vars, error) {
	out := domain.Vars{}
	for _, kv := range in {
		k, v, ok := strings.Cut(kv, "=")
		k = strings.TrimSpace(k)
		if !ok || k == "" {
			return nil, fmt.Errorf("invalid --var %q (expected key=value)", kv)
		}
		out[k] = v
	}
	return out, nil
}

func hasYAMLExt(s string) bool {
	ext := strings.ToLower(filepath.Ext(s))
	return ext == ".yaml" || ext == ".yml"
}

func fileExists(path string) bool {
	st, err := os.Stat(path)
	return err == nil && !st.IsDir()
}
