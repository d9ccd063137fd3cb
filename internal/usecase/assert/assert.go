// Package assert evaluates probe assertions against a decoded response.
package assert

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/PaesslerAG/jsonpath"
	"github.com/aalvaropc/headline/internal/domain"
)

func Status(expected int, got int) domain.AssertionResult {
	if got == expected {
		return domain.AssertionResult{
			Name:    "status",
			Passed:  true,
			Message: fmt.Sprintf("status %d", got),
		}
	}

	return domain.AssertionResult{
		Name:    "status",
		Passed:  false,
		Message: fmt.Sprintf("expected status %d, got %d", expected, got),
	}
}

func MaxLatency(maxMs int, latencyMs int64) domain.AssertionResult {
	if latencyMs <= int64(maxMs) {
		return domain.AssertionResult{
			Name:    "max_ms",
			Passed:  true,
			Message: fmt.Sprintf("latency %dms <= %dms", latencyMs, maxMs),
		}
	}

	return domain.AssertionResult{
		Name:    "max_ms",
		Passed:  false,
		Message: fmt.Sprintf("expected latency <= %dms, got %dms", maxMs, latencyMs),
	}
}

// Evaluate applies the assertions spec to a probe result.
// Order is status, max_ms, headers by name, then jsonpath by expression.
// The body is parsed only if JSONPath assertions are present.
func Evaluate(spec domain.AssertionsSpec, res domain.ProbeResult) []domain.AssertionResult {
	out := []domain.AssertionResult{}

	if spec.Status != nil {
		out = append(out, Status(*spec.Status, res.StatusCode))
	}
	if spec.MaxLatencyMS != nil {
		out = append(out, MaxLatency(*spec.MaxLatencyMS, res.LatencyMS))
	}

	for _, name := range sortedKeys(spec.Headers) {
		val, err := lookupHeader(res.Response.Headers, name)
		out = append(out, valueChecks("header", name, spec.Headers[name], val, err)...)
	}

	if len(spec.JSONPath) == 0 {
		return out
	}

	doc, err := parseJSON(res.Response.Body)
	for _, expr := range sortedKeys(spec.JSONPath) {
		if err != nil {
			out = append(out, valueChecks("jsonpath", expr, spec.JSONPath[expr], "",
				fmt.Errorf("response body is not valid JSON"))...)
			continue
		}
		val, lookupErr := lookupJSONPath(doc, expr)
		out = append(out, valueChecks("jsonpath", expr, spec.JSONPath[expr], val, lookupErr)...)
	}

	return out
}

// valueChecks runs exists/eq/contains for one looked-up value.
// A non-nil lookupErr means the value is absent or unreadable.
func valueChecks(kind, key string, a domain.ValueAssertion, val string, lookupErr error) []domain.AssertionResult {
	var out []domain.AssertionResult
	if a.Exists {
		out = append(out, checkExists(kind, key, lookupErr))
	}
	if a.Eq != nil {
		out = append(out, checkEq(kind, key, val, lookupErr, *a.Eq))
	}
	if a.Contains != nil {
		out = append(out, checkContains(kind, key, val, lookupErr, *a.Contains))
	}
	return out
}

func checkExists(kind, key string, lookupErr error) domain.AssertionResult {
	name := kind + ".exists"
	if lookupErr != nil {
		return domain.AssertionResult{
			Name:    name,
			Passed:  false,
			Message: fmt.Sprintf("%s %q: %v", kind, key, lookupErr),
		}
	}
	return domain.AssertionResult{
		Name:    name,
		Passed:  true,
		Message: fmt.Sprintf("%s %q exists", kind, key),
	}
}

func checkEq(kind, key, val string, lookupErr error, expected string) domain.AssertionResult {
	name := kind + ".eq"
	if lookupErr != nil {
		return domain.AssertionResult{
			Name:    name,
			Passed:  false,
			Message: fmt.Sprintf("%s %q: %v", kind, key, lookupErr),
		}
	}
	if val == expected {
		return domain.AssertionResult{
			Name:    name,
			Passed:  true,
			Message: fmt.Sprintf("%s %q eq %q", kind, key, expected),
		}
	}
	return domain.AssertionResult{
		Name:    name,
		Passed:  false,
		Message: fmt.Sprintf("%s %q: expected %q, got %q", kind, key, expected, val),
	}
}

func checkContains(kind, key, val string, lookupErr error, sub string) domain.AssertionResult {
	name := kind + ".contains"
	if lookupErr != nil {
		return domain.AssertionResult{
			Name:    name,
			Passed:  false,
			Message: fmt.Sprintf("%s %q: %v", kind, key, lookupErr),
		}
	}
	if strings.Contains(val, sub) {
		return domain.AssertionResult{
			Name:    name,
			Passed:  true,
			Message: fmt.Sprintf("%s %q contains %q", kind, key, sub),
		}
	}
	return domain.AssertionResult{
		Name:    name,
		Passed:  false,
		Message: fmt.Sprintf("%s %q: %q does not contain %q", kind, key, val, sub),
	}
}

// lookupHeader joins repeated values with ", " so eq sees the whole field.
func lookupHeader(headers map[string][]string, name string) (string, error) {
	for k, vals := range headers {
		if strings.EqualFold(k, strings.TrimSpace(name)) && len(vals) > 0 {
			return strings.Join(vals, ", "), nil
		}
	}
	return "", fmt.Errorf("expected header to exist, missing")
}

func lookupJSONPath(doc any, expr string) (string, error) {
	val, err := jsonpath.Get(expr, doc)
	if err != nil {
		return "", fmt.Errorf("invalid jsonpath: %v", err)
	}
	if isEmptyJSONPathValue(val) {
		return "", fmt.Errorf("expected value to exist, got empty")
	}
	return jsonPathToString(val)
}

func jsonPathToString(val any) (string, error) {
	switch v := val.(type) {
	case string:
		return v, nil
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), nil
	case bool:
		return strconv.FormatBool(v), nil
	case nil:
		return "", fmt.Errorf("value is null")
	case []any:
		if len(v) == 1 {
			return jsonPathToString(v[0])
		}
		b, err := json.Marshal(v)
		return string(b), err
	case map[string]any:
		b, err := json.Marshal(v)
		return string(b), err
	default:
		return fmt.Sprint(v), nil
	}
}

func parseJSON(body []byte) (any, error) {
	var doc any
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, err
	}
	return doc, nil
}

func isEmptyJSONPathValue(v any) bool {
	if v == nil {
		return true
	}

	switch t := v.(type) {
	case string:
		return t == ""
	case []any:
		return len(t) == 0
	case map[string]any:
		return len(t) == 0
	default:
		return false
	}
}

func sortedKeys(m map[string]domain.ValueAssertion) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
