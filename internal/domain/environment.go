package domain

// Environment is a named set of variables layered between suite vars and --var overrides.
type Environment struct {
	Name string
	Vars Vars
}
