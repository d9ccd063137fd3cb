package usecase

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/aalvaropc/headline/internal/domain"
	"github.com/aalvaropc/headline/internal/ports"
	ucassert "github.com/aalvaropc/headline/internal/usecase/assert"
	ucextract "github.com/aalvaropc/headline/internal/usecase/extract"
)

type RunSuite struct {
	suites   ports.SuiteLoader
	runner   ports.ProbeRunner
	store    ports.ArtifactStore
	envs     ports.EnvironmentLoader
	resolver *domain.VarResolver
	logger   *slog.Logger
	now      func() time.Time
}

type RunOption func(*RunSuite)

func WithLogger(l *slog.Logger) RunOption {
	return func(uc *RunSuite) {
		if l != nil {
			uc.logger = l
		}
	}
}

func WithResolver(vr *domain.VarResolver) RunOption {
	return func(uc *RunSuite) {
		if vr != nil {
			uc.resolver = vr
		}
	}
}

// WithEnvironments enables the environment layer of Execute.
func WithEnvironments(l ports.EnvironmentLoader) RunOption {
	return func(uc *RunSuite) { uc.envs = l }
}

func WithClock(now func() time.Time) RunOption {
	return func(uc *RunSuite) { uc.now = now }
}

// NewRunSuite wires a suite runner. store may be nil, in which case runs are not persisted.
func NewRunSuite(sl ports.SuiteLoader, pr ports.ProbeRunner, store ports.ArtifactStore, opts ...RunOption) *RunSuite {
	uc := &RunSuite{
		suites:   sl,
		runner:   pr,
		store:    store,
		resolver: domain.NewVarResolver(),
		logger:   slog.New(slog.NewJSONHandler(io.Discard, nil)),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(uc)
	}
	return uc
}

// Execute runs every probe of the suite at path in order and returns the artifact
// plus the store id (empty when no store is configured).
//
// Variables layer as suite vars < environment < secrets < overrides < values
// extracted by earlier probes. An empty envNameOrPath skips the environment.
// On cancellation the partial artifact is returned together with ctx.Err().
func (uc *RunSuite) Execute(ctx context.Context, path string, envNameOrPath string, overrides domain.Vars) (domain.RunArtifact, string, error) {
	suite, err := uc.suites.LoadSuite(path)
	if err != nil {
		return domain.RunArtifact{}, "", err
	}

	vars, envName, err := LayerVars(uc.envs, envNameOrPath, suite.Vars, overrides)
	if err != nil {
		return domain.RunArtifact{}, "", err
	}

	run := domain.RunArtifact{
		SuiteName:       suite.Name,
		SuitePath:       path,
		EnvironmentName: envName,
		StartedAt:       uc.now(),
		Results:         make([]domain.ProbeResult, 0, len(suite.Probes)),
	}

	for _, p := range suite.Probes {
		if err := ctx.Err(); err != nil {
			run.EndedAt = uc.now()
			return run, "", err
		}

		res := uc.ExecuteProbe(ctx, p, vars)
		for k, v := range res.Extracted {
			vars[k] = v
		}
		run.Results = append(run.Results, res)
	}

	run.EndedAt = uc.now()

	if err := ctx.Err(); err != nil {
		return run, "", err
	}

	if uc.store == nil {
		return run, "", nil
	}

	id, err := uc.store.SaveRun(run)
	if err != nil {
		return run, "", err
	}
	uc.logger.Info("suite.saved", "suite", run.SuiteName, "id", id, "failures", run.Failures())

	return run, id, nil
}

// ExecuteProbe resolves, sends and checks a single probe. It never returns an error:
// resolve and transport failures end up in ProbeResult.Error.
func (uc *RunSuite) ExecuteProbe(ctx context.Context, p domain.ProbeSpec, vars domain.Vars) domain.ProbeResult {
	uc.logger.Info("probe.start", "probe", p.Name, "method", string(p.Method))

	resolved, err := uc.resolver.ResolveProbe(p, vars)
	if err != nil {
		return uc.failed(p, err)
	}

	res, err := uc.runner.Fetch(ctx, resolved)
	if err != nil {
		return uc.failed(resolved, err)
	}
	res.Name = p.Name
	if res.Response.Headers == nil {
		res.Response.Headers = map[string][]string{}
	}

	// Assertions run even when the transport failed.
	res.Assertions = ucassert.Evaluate(resolved.Assert, res)

	if res.Error == nil {
		res.Extracted, res.Extracts = ucextract.Apply(res.Response, resolved.Extract)
	} else {
		res.Extracted, res.Extracts = domain.Vars{}, []domain.ExtractResult{}
	}

	attrs := []any{
		"probe", p.Name,
		"status", res.StatusCode,
		"latency_ms", res.LatencyMS,
		"failed", res.Failed(),
	}
	if res.Error != nil {
		attrs = append(attrs, "error_kind", string(res.Error.Kind))
	}
	uc.logger.Info("probe.done", attrs...)

	return res
}

func (uc *RunSuite) failed(p domain.ProbeSpec, err error) domain.ProbeResult {
	re := domain.NewRunError(err)
	uc.logger.Warn("probe.failed", "probe", p.Name, "error_kind", string(re.Kind), "err", err)

	method := p.Method
	if method == "" {
		method = domain.MethodGet
	}
	return domain.ProbeResult{
		Name:       p.Name,
		Method:     method,
		URL:        p.URL,
		Assertions: []domain.AssertionResult{},
		Extracts:   []domain.ExtractResult{},
		Extracted:  domain.Vars{},
		Response:   domain.ResponseSnapshot{Headers: map[string][]string{}},
		Error:      re,
	}
}
