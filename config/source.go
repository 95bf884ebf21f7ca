package config

// Source indicates which layer supplied a configuration value.
type Source string

const (
	// SourceDefault is a built-in default.
	SourceDefault Source = "default"

	// SourceGlobal comes from ~/.config/<app>/config.yaml.
	SourceGlobal Source = "global"

	// SourceLocal comes from the per-repository file in the git root.
	SourceLocal Source = "local"

	// SourceEnv comes from an environment variable.
	SourceEnv Source = "env"

	// SourceFlag was passed as a command-line override.
	SourceFlag Source = "flag"
)
