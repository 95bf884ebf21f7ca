package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// ResolverConfig describes where a resolver looks for settings.
type ResolverConfig struct {
	// EnvPrefix is prepended to upper-cased key names for environment
	// lookup. With prefix "TICKETFLOW_", key "jira-url" maps to
	// TICKETFLOW_JIRA_URL.
	EnvPrefix string

	// GlobalConfigDir names the directory under ~/.config/ holding the
	// global config file.
	GlobalConfigDir string

	// GlobalConfigFile is the global filename, "config.yaml" if empty.
	GlobalConfigFile string

	// LocalConfigName is the per-repository config filename, looked up
	// in the git root. For example ".ticketflow.yaml".
	LocalConfigName string

	// Defaults seeds the lowest-precedence layer.
	Defaults map[string]string

	// ErrWriter receives warnings about unreadable config files.
	// Defaults to os.Stderr.
	ErrWriter io.Writer
}

func (c ResolverConfig) globalConfigFile() string {
	if c.GlobalConfigFile != "" {
		return c.GlobalConfigFile
	}
	return "config.yaml"
}

// Resolver merges settings from defaults, config files, environment
// variables, and flag overrides.
type Resolver struct {
	config     ResolverConfig
	globalPath string
	localPath  string
	gitRoot    string

	// Warnings collects non-fatal issues hit during resolution.
	Warnings []string
}

// NewResolver creates a resolver rooted at the current directory. The
// local config path is derived from the enclosing git repository, the
// global path from the user's home directory.
func NewResolver(cfg ResolverConfig) *Resolver {
	r := &Resolver{config: cfg}
	if cfg.ErrWriter == nil {
		r.config.ErrWriter = os.Stderr
	}

	if root := findGitRoot("."); root != "" {
		r.gitRoot = root
		if cfg.LocalConfigName != "" {
			r.localPath = filepath.Join(root, cfg.LocalConfigName)
		}
	}

	if cfg.GlobalConfigDir != "" {
		if home, err := os.UserHomeDir(); err == nil {
			r.globalPath = filepath.Join(home, ".config", cfg.GlobalConfigDir, cfg.globalConfigFile())
		}
	}

	return r
}

// NewResolverWithPaths creates a resolver reading from explicit file
// paths instead of the derived locations. Intended for tests.
func NewResolverWithPaths(cfg ResolverConfig, globalPath, localPath string) *Resolver {
	r := &Resolver{
		config:     cfg,
		globalPath: globalPath,
		localPath:  localPath,
	}
	if cfg.ErrWriter == nil {
		r.config.ErrWriter = os.Stderr
	}
	return r
}

func (r *Resolver) warn(msg string) {
	r.Warnings = append(r.Warnings, msg)
	if r.config.ErrWriter != nil {
		fmt.Fprintf(r.config.ErrWriter, "Warning: %s\n", msg)
	}
}

// Resolved is the merged view of all configuration layers.
type Resolved struct {
	values  map[string]string
	sources map[string]Source
}

// Get returns the value for key, or "" if unset.
func (c *Resolved) Get(key string) string {
	return c.values[key]
}

// Source reports which layer supplied the value for key.
func (c *Resolved) Source(key string) Source {
	return c.sources[key]
}

// All returns a copy of every resolved key-value pair.
func (c *Resolved) All() map[string]string {
	out := make(map[string]string, len(c.values))
	for k, v := range c.values {
		out[k] = v
	}
	return out
}

// Resolve merges all layers. Precedence, lowest to highest: defaults,
// global file, local file, environment.
func (r *Resolver) Resolve() *Resolved {
	cfg := &Resolved{
		values:  make(map[string]string),
		sources: make(map[string]Source),
	}

	for key, value := range r.config.Defaults {
		cfg.values[key] = value
		cfg.sources[key] = SourceDefault
	}
	r.applyFile(cfg, r.globalPath, SourceGlobal)
	r.applyFile(cfg, r.localPath, SourceLocal)
	r.applyEnv(cfg)

	return cfg
}

// ResolveWithFlags resolves all layers and then applies flag overrides,
// which beat every other source. Empty flag values are ignored.
func (r *Resolver) ResolveWithFlags(flags map[string]string) *Resolved {
	cfg := r.Resolve()
	for key, value := range flags {
		if value != "" {
			cfg.values[key] = value
			cfg.sources[key] = SourceFlag
		}
	}
	return cfg
}

func (r *Resolver) applyFile(cfg *Resolved, path string, source Source) {
	if path == "" {
		return
	}

	data, err := os.ReadFile(path)
	if err != nil {
		// A missing file is a layer that contributes nothing.
		return
	}

	var parsed map[string]any
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		r.warn(fmt.Sprintf("could not parse %s: %v", path, err))
		return
	}

	for key, value := range parsed {
		if s := scalarString(value); s != "" {
			cfg.values[key] = s
			cfg.sources[key] = source
		}
	}
}

func (r *Resolver) applyEnv(cfg *Resolved) {
	if r.config.EnvPrefix == "" {
		return
	}

	seen := make(map[string]bool)
	for k := range r.config.Defaults {
		seen[k] = true
	}
	for k := range cfg.values {
		seen[k] = true
	}

	for key := range seen {
		envKey := r.config.EnvPrefix + strings.ToUpper(strings.ReplaceAll(key, "-", "_"))
		if value := os.Getenv(envKey); value != "" {
			cfg.values[key] = value
			cfg.sources[key] = SourceEnv
		}
	}
}

// GitRoot returns the detected git repository root, if any.
func (r *Resolver) GitRoot() string {
	return r.gitRoot
}

// GlobalPath returns the path of the global config file.
func (r *Resolver) GlobalPath() string {
	return r.globalPath
}

// LocalPath returns the path of the per-repository config file.
func (r *Resolver) LocalPath() string {
	return r.localPath
}

// scalarString renders yaml scalars as strings; maps and lists are
// ignored since all settings are flat key-value pairs.
func scalarString(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case bool:
		if val {
			return "true"
		}
		return "false"
	case int, int64, float64:
		return fmt.Sprintf("%v", val)
	default:
		return ""
	}
}

// findGitRoot walks up from startDir looking for a .git directory.
func findGitRoot(startDir string) string {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return ""
	}

	for {
		if info, err := os.Stat(filepath.Join(dir, ".git")); err == nil && info.IsDir() {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}
