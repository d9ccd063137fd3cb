package extract

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/PaesslerAG/jsonpath"
	"github.com/aalvaropc/headline/internal/domain"
)

// Apply extracts variables from a response using rules keyed by variable name.
// A rule is either a JSONPath expression or "header:<Name>".
//
// Policy:
// - If the body is not JSON, every JSONPath rule fails; header rules still run.
// - A failing rule is reported in ExtractResult; other rules still run.
func Apply(resp domain.ResponseSnapshot, rules domain.ExtractSpec) (domain.Vars, []domain.ExtractResult) {
	if len(rules) == 0 {
		return domain.Vars{}, []domain.ExtractResult{}
	}

	keys := make([]string, 0, len(rules))
	for k := range rules {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var (
		doc    any
		docErr error
		parsed bool
	)

	extracted := domain.Vars{}
	results := make([]domain.ExtractResult, 0, len(keys))

	for _, name := range keys {
		rule := strings.TrimSpace(rules[name])

		if header, ok := strings.CutPrefix(rule, domain.HeaderExtractPrefix); ok {
			val, res := fromHeader(resp.Headers, name, strings.TrimSpace(header))
			if res.Success {
				extracted[name] = val
			}
			results = append(results, res)
			continue
		}

		if rule == "" {
			results = append(results, domain.ExtractResult{
				Name:    name,
				Success: false,
				Message: fmt.Sprintf("extract %q: empty jsonpath expression", name),
			})
			continue
		}

		if !parsed {
			doc, docErr = parseJSON(resp.Body)
			parsed = true
		}
		if docErr != nil {
			results = append(results, domain.ExtractResult{
				Name:    name,
				Success: false,
				Message: fmt.Sprintf("extract %q (%s): response body is not valid JSON", name, rule),
			})
			continue
		}

		val, res := fromJSONPath(doc, name, rule)
		if res.Success {
			extracted[name] = val
		}
		results = append(results, res)
	}

	return extracted, results
}

func fromHeader(headers map[string][]string, name, header string) (string, domain.ExtractResult) {
	if header == "" {
		return "", domain.ExtractResult{
			Name:    name,
			Success: false,
			Message: fmt.Sprintf("extract %q: empty header name", name),
		}
	}

	for k, vals := range headers {
		if strings.EqualFold(k, header) && len(vals) > 0 {
			return vals[0], domain.ExtractResult{
				Name:    name,
				Success: true,
				Message: fmt.Sprintf("extracted %q", name),
			}
		}
	}

	return "", domain.ExtractResult{
		Name:    name,
		Success: false,
		Message: fmt.Sprintf("extract %q (header:%s): header not present", name, header),
	}
}

func fromJSONPath(doc any, name, expr string) (string, domain.ExtractResult) {
	val, err := jsonpath.Get(expr, doc)
	if err != nil {
		return "", domain.ExtractResult{
			Name:    name,
			Success: false,
			Message: fmt.Sprintf("extract %q (%s): jsonpath error: %v", name, expr, err),
		}
	}

	if isEmptyValue(val) {
		return "", domain.ExtractResult{
			Name:    name,
			Success: false,
			Message: fmt.Sprintf("extract %q (%s): no value found", name, expr),
		}
	}

	s, err := toString(val)
	if err != nil {
		return "", domain.ExtractResult{
			Name:    name,
			Success: false,
			Message: fmt.Sprintf("extract %q (%s): cannot convert value to string: %v", name, expr, err),
		}
	}

	return s, domain.ExtractResult{
		Name:    name,
		Success: true,
		Message: fmt.Sprintf("extracted %q", name),
	}
}

func parseJSON(body []byte) (any, error) {
	var doc any
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, err
	}
	return doc, nil
}

func isEmptyValue(v any) bool {
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

func toString(v any) (string, error) {
	// jsonpath returns a slice for wildcard and filter access.
	if arr, ok := v.([]any); ok {
		if len(arr) == 0 {
			return "", fmt.Errorf("empty array")
		}
		if len(arr) == 1 {
			return toString(arr[0])
		}
		b, err := json.Marshal(arr)
		if err != nil {
			return "", err
		}
		return string(b), nil
	}

	switch t := v.(type) {
	case string:
		return t, nil
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), nil
	case bool, int, int64, uint64:
		return fmt.Sprint(t), nil
	case map[string]any:
		b, err := json.Marshal(t)
		if err != nil {
			return "", err
		}
		return string(b), nil
	default:
		return fmt.Sprint(t), nil
	}
}
