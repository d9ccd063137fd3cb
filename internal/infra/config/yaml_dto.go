package config

type YAMLSuite struct {
	Name   string            `yaml:"name"`
	Vars   map[string]string `yaml:"vars"`
	Probes []YAMLProbe       `yaml:"probes"`
}

type YAMLProbe struct {
	Name    string            `yaml:"name"`
	Method  string            `yaml:"method"`
	URL     string            `yaml:"url"`
	Headers map[string]string `yaml:"headers"`

	// Body is sent verbatim; JSON is marshaled and sent with a JSON content type.
	Body string         `yaml:"body"`
	JSON map[string]any `yaml:"json"`

	Assert  YAMLAssertions    `yaml:"assert"`
	Extract map[string]string `yaml:"extract"`
}

type YAMLAssertions struct {
	Status *int `yaml:"status"`
	MaxMS  *int `yaml:"max_ms"`

	Headers  map[string]YAMLValueAssertion `yaml:"headers"`
	JSONPath map[string]YAMLValueAssertion `yaml:"jsonpath"`
}

type YAMLValueAssertion struct {
	Exists   bool    `yaml:"exists"`
	Eq       *string `yaml:"eq"`
	Contains *string `yaml:"contains"`
}
