package config

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

func testResolver(t *testing.T, cfg ResolverConfig, global, local string) *Resolver {
	t.Helper()
	dir := t.TempDir()

	globalPath := filepath.Join(dir, "config.yaml")
	if global != "" {
		if err := os.WriteFile(globalPath, []byte(global), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	localPath := filepath.Join(dir, ".ticketflow.yaml")
	if local != "" {
		if err := os.WriteFile(localPath, []byte(local), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	return NewResolverWithPaths(cfg, globalPath, localPath)
}

func TestResolve_Defaults(t *testing.T) {
	r := testResolver(t, ResolverConfig{
		Defaults: map[string]string{
			"vcs-provider": "github",
			"vcs-remote":   "origin",
		},
	}, "", "")

	cfg := r.Resolve()

	if got := cfg.Get("vcs-provider"); got != "github" {
		t.Errorf("vcs-provider = %q, want github", got)
	}
	if got := cfg.Source("vcs-provider"); got != SourceDefault {
		t.Errorf("source = %q, want %q", got, SourceDefault)
	}
	if got := cfg.Get("unknown-key"); got != "" {
		t.Errorf("unknown key = %q, want empty", got)
	}
}

func TestResolve_GlobalOverridesDefaults(t *testing.T) {
	r := testResolver(t, ResolverConfig{
		Defaults: map[string]string{"vcs-provider": "github"},
	}, "vcs-provider: gitlab\njira-url: https://acme.atlassian.net\n", "")

	cfg := r.Resolve()

	if got := cfg.Get("vcs-provider"); got != "gitlab" {
		t.Errorf("vcs-provider = %q, want gitlab", got)
	}
	if got := cfg.Source("vcs-provider"); got != SourceGlobal {
		t.Errorf("source = %q, want %q", got, SourceGlobal)
	}
	// Keys absent from the defaults still resolve.
	if got := cfg.Get("jira-url"); got != "https://acme.atlassian.net" {
		t.Errorf("jira-url = %q", got)
	}
}

func TestResolve_LocalOverridesGlobal(t *testing.T) {
	r := testResolver(t, ResolverConfig{},
		"review-status: In Review\n",
		"review-status: Code Review\n")

	cfg := r.Resolve()

	if got := cfg.Get("review-status"); got != "Code Review" {
		t.Errorf("review-status = %q, want Code Review", got)
	}
	if got := cfg.Source("review-status"); got != SourceLocal {
		t.Errorf("source = %q, want %q", got, SourceLocal)
	}
}

func TestResolve_EnvOverridesFiles(t *testing.T) {
	t.Setenv("TICKETFLOW_JIRA_URL", "https://env.atlassian.net")

	r := testResolver(t, ResolverConfig{
		EnvPrefix: "TICKETFLOW_",
	}, "", "jira-url: https://local.atlassian.net\n")

	cfg := r.Resolve()

	if got := cfg.Get("jira-url"); got != "https://env.atlassian.net" {
		t.Errorf("jira-url = %q, want env value", got)
	}
	if got := cfg.Source("jira-url"); got != SourceEnv {
		t.Errorf("source = %q, want %q", got, SourceEnv)
	}
}

func TestResolve_EnvKeyMapping(t *testing.T) {
	// Hyphenated keys map to underscore env names.
	t.Setenv("TICKETFLOW_CLAUDE_MAX_TURNS", "12")

	r := testResolver(t, ResolverConfig{
		EnvPrefix: "TICKETFLOW_",
		Defaults:  map[string]string{"claude-max-turns": "20"},
	}, "", "")

	if got := r.Resolve().Get("claude-max-turns"); got != "12" {
		t.Errorf("claude-max-turns = %q, want 12", got)
	}
}

func TestResolveWithFlags(t *testing.T) {
	t.Setenv("TICKETFLOW_VCS_BASE", "develop")

	r := testResolver(t, ResolverConfig{
		EnvPrefix: "TICKETFLOW_",
		Defaults:  map[string]string{"vcs-base": "main"},
	}, "", "")

	cfg := r.ResolveWithFlags(map[string]string{
		"vcs-base": "release/1.4",
		"jira-url": "", // empty flag values are ignored
	})

	if got := cfg.Get("vcs-base"); got != "release/1.4" {
		t.Errorf("vcs-base = %q, want flag value", got)
	}
	if got := cfg.Source("vcs-base"); got != SourceFlag {
		t.Errorf("source = %q, want %q", got, SourceFlag)
	}
	if got := cfg.Get("jira-url"); got != "" {
		t.Errorf("jira-url = %q, want empty", got)
	}
}

func TestResolve_ScalarCoercion(t *testing.T) {
	local := "claude-max-turns: 8\nnotify-enabled: true\n"
	r := testResolver(t, ResolverConfig{}, "", local)

	cfg := r.Resolve()

	if got := cfg.Get("claude-max-turns"); got != "8" {
		t.Errorf("claude-max-turns = %q, want 8", got)
	}
	if got := cfg.Get("notify-enabled"); got != "true" {
		t.Errorf("notify-enabled = %q, want true", got)
	}
}

func TestResolve_MalformedFileWarns(t *testing.T) {
	var buf bytes.Buffer
	r := testResolver(t, ResolverConfig{
		ErrWriter: &buf,
		Defaults:  map[string]string{"vcs-provider": "github"},
	}, "", ": not valid yaml\n\t")

	cfg := r.Resolve()

	if len(r.Warnings) == 0 {
		t.Error("expected a warning for malformed local config")
	}
	if buf.Len() == 0 {
		t.Error("warning was not written to ErrWriter")
	}
	// Defaults survive a broken layer.
	if got := cfg.Get("vcs-provider"); got != "github" {
		t.Errorf("vcs-provider = %q, want github", got)
	}
}

func TestResolve_MissingFilesAreSilent(t *testing.T) {
	r := NewResolverWithPaths(ResolverConfig{
		Defaults: map[string]string{"vcs-remote": "origin"},
	}, filepath.Join(t.TempDir(), "absent.yaml"), "")

	cfg := r.Resolve()

	if len(r.Warnings) != 0 {
		t.Errorf("unexpected warnings: %v", r.Warnings)
	}
	if got := cfg.Get("vcs-remote"); got != "origin" {
		t.Errorf("vcs-remote = %q, want origin", got)
	}
}

func TestResolved_All(t *testing.T) {
	r := testResolver(t, ResolverConfig{
		Defaults: map[string]string{"vcs-provider": "github"},
	}, "", "jira-url: https://acme.atlassian.net\n")

	all := r.Resolve().All()

	if all["vcs-provider"] != "github" || all["jira-url"] != "https://acme.atlassian.net" {
		t.Errorf("All() = %v", all)
	}

	// Mutating the copy must not affect the resolved view.
	all["vcs-provider"] = "gitlab"
	if got := r.Resolve().Get("vcs-provider"); got != "github" {
		t.Errorf("vcs-provider = %q after mutating copy", got)
	}
}

func TestNewResolver_FindsGitRoot(t *testing.T) {
	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, ".git"), 0o755); err != nil {
		t.Fatal(err)
	}
	nested := filepath.Join(dir, "internal", "deep")
	if err := os.MkdirAll(nested, 0o755); err != nil {
		t.Fatal(err)
	}

	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.Chdir(wd) })
	if err := os.Chdir(nested); err != nil {
		t.Fatal(err)
	}

	r := NewResolver(ResolverConfig{LocalConfigName: ".ticketflow.yaml"})

	resolved, err := filepath.EvalSymlinks(r.GitRoot())
	if err != nil {
		t.Fatal(err)
	}
	want, err := filepath.EvalSymlinks(dir)
	if err != nil {
		t.Fatal(err)
	}
	if resolved != want {
		t.Errorf("GitRoot() = %q, want %q", resolved, want)
	}
	if filepath.Base(r.LocalPath()) != ".ticketflow.yaml" {
		t.Errorf("LocalPath() = %q", r.LocalPath())
	}
}
