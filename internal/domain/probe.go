package domain

// HTTPMethod represents an HTTP method (e.g., GET, POST).
type HTTPMethod string

const (
	MethodGet     HTTPMethod = "GET"
	MethodPost    HTTPMethod = "POST"
	MethodPut     HTTPMethod = "PUT"
	MethodPatch   HTTPMethod = "PATCH"
	MethodDelete  HTTPMethod = "DELETE"
	MethodHead    HTTPMethod = "HEAD"
	MethodOptions HTTPMethod = "OPTIONS"
)

// ValueAssertion checks a single looked-up value (a header or a JSONPath result).
// A zero ValueAssertion produces no checks.
type ValueAssertion struct {
	Exists   bool
	Eq       *string
	Contains *string
}

// AssertionsSpec defines functional assertions for a probe.
type AssertionsSpec struct {
	// Status is an expected HTTP status code (optional).
	Status *int

	// MaxLatencyMS is a maximum allowed time to full response in milliseconds (optional).
	MaxLatencyMS *int

	// Headers are keyed by header name, matched case-insensitively.
	Headers map[string]ValueAssertion

	// JSONPath assertions are keyed by expression, e.g. "$.data.id".
	JSONPath map[string]ValueAssertion
}

// ExtractSpec defines variable extraction from responses.
// Map: variableName -> "$.json.path" or "header:Name".
type ExtractSpec map[string]string

// HeaderExtractPrefix marks an extract rule that reads a response header.
const HeaderExtractPrefix = "header:"

// ProbeSpec describes a single request sent over a raw connection and the checks run on its response.
type ProbeSpec struct {
	Name    string
	Method  HTTPMethod
	URL     string
	Headers Headers
	Body    string

	Assert  AssertionsSpec
	Extract ExtractSpec
}

// Suite groups probes that run in order and share variables.
type Suite struct {
	Name string

	// Vars are defaults for every probe; CLI overrides and extracted values win over them.
	Vars Vars

	Probes []ProbeSpec
}
