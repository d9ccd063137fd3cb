package config

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/aalvaropc/headline/internal/domain"
)

func MapSuite(path string, ys YAMLSuite) (domain.Suite, error) {
	if strings.TrimSpace(ys.Name) == "" {
		return domain.Suite{}, invalidField(path, "name", "suite name is required")
	}
	if len(ys.Probes) == 0 {
		return domain.Suite{}, invalidField(path, "probes", "at least one probe is required")
	}

	suite := domain.Suite{
		Name:   ys.Name,
		Vars:   domain.Vars(ys.Vars),
		Probes: make([]domain.ProbeSpec, 0, len(ys.Probes)),
	}
	if suite.Vars == nil {
		suite.Vars = domain.Vars{}
	}

	for i, p := range ys.Probes {
		fieldPrefix := fmt.Sprintf("probes[%d]", i)
		if strings.TrimSpace(p.URL) == "" {
			return domain.Suite{}, invalidField(path, fieldPrefix+".url", "url is required")
		}

		method := domain.MethodGet
		if strings.TrimSpace(p.Method) != "" {
			m, err := parseMethod(p.Method)
			if err != nil {
				return domain.Suite{}, invalidField(path, fieldPrefix+".method", err.Error())
			}
			method = m
		}

		if p.JSON != nil && p.Body != "" {
			return domain.Suite{}, invalidField(path, fieldPrefix, "body and json are mutually exclusive")
		}

		name := strings.TrimSpace(p.Name)
		if name == "" {
			name = fmt.Sprintf("probe-%d", i+1)
		}

		probe := domain.ProbeSpec{
			Name:    name,
			Method:  method,
			URL:     p.URL,
			Headers: domain.Headers(p.Headers),
			Body:    p.Body,
			Assert: domain.AssertionsSpec{
				Status:       p.Assert.Status,
				MaxLatencyMS: p.Assert.MaxMS,
				Headers:      mapValueAssertions(p.Assert.Headers),
				JSONPath:     mapValueAssertions(p.Assert.JSONPath),
			},
			Extract: domain.ExtractSpec(p.Extract),
		}
		if probe.Headers == nil {
			probe.Headers = domain.Headers{}
		}
		if probe.Extract == nil {
			probe.Extract = domain.ExtractSpec{}
		}

		if p.JSON != nil {
			payload, err := json.Marshal(p.JSON)
			if err != nil {
				return domain.Suite{}, invalidField(path, fieldPrefix+".json", err.Error())
			}
			probe.Body = string(payload)
			if !hasHeader(probe.Headers, "Content-Type") {
				probe.Headers["Content-Type"] = "application/json"
			}
		}

		for k, rule := range probe.Extract {
			if strings.TrimSpace(rule) == "" {
				return domain.Suite{}, invalidField(path, fieldPrefix+".extract."+k, "empty extract rule")
			}
		}

		suite.Probes = append(suite.Probes, probe)
	}

	return suite, nil
}

func mapValueAssertions(in map[string]YAMLValueAssertion) map[string]domain.ValueAssertion {
	if in == nil {
		return map[string]domain.ValueAssertion{}
	}
	out := make(map[string]domain.ValueAssertion, len(in))
	for k, v := range in {
		out[k] = domain.ValueAssertion{
			Exists:   v.Exists,
			Eq:       v.Eq,
			Contains: v.Contains,
		}
	}
	return out
}

func hasHeader(h domain.Headers, name string) bool {
	for k := range h {
		if strings.EqualFold(k, name) {
			return true
		}
	}
	return false
}

func parseMethod(m string) (domain.HTTPMethod, error) {
	up := strings.ToUpper(strings.TrimSpace(m))
	switch domain.HTTPMethod(up) {
	case domain.MethodGet,
		domain.MethodPost,
		domain.MethodPut,
		domain.MethodPatch,
		domain.MethodDelete,
		domain.MethodHead,
		domain.MethodOptions:
		return domain.HTTPMethod(up), nil
	default:
		return "", fmt.Errorf("unsupported method %q", m)
	}
}

func invalidField(path, field, msg string) error {
	return &domain.OpError{
		Op:   "config.map",
		Kind: domain.KindInvalidConfig,
		Path: path,
		Err:  fmt.Errorf("field %s: %s: %w", field, msg, domain.ErrInvalidConfig),
	}
}
