// Package config resolves flat key-value settings from layered
// sources with a fixed precedence:
//
//	flags > environment > local file > global file > defaults
//
// The local file lives in the git repository root (for example
// .ticketflow.yaml) and carries per-project settings; the global file
// lives under ~/.config/<app>/ and carries user-wide ones.
//
// # Usage
//
//	resolver := config.NewResolver(config.ResolverConfig{
//	    EnvPrefix:       "TICKETFLOW_",
//	    GlobalConfigDir: "ticketflow",
//	    LocalConfigName: ".ticketflow.yaml",
//	    Defaults: map[string]string{
//	        "vcs-provider": "github",
//	        "vcs-remote":   "origin",
//	    },
//	})
//
//	resolved := resolver.Resolve()
//	fmt.Println(resolved.Get("vcs-provider")) // "github"
//	fmt.Println(resolved.Source("vcs-provider")) // "default"
//
// Environment variables are derived from key names: with prefix
// "TICKETFLOW_", the key "jira-url" is overridden by TICKETFLOW_JIRA_URL.
//
// Every resolved value remembers which layer it came from, so callers
// can report effective settings alongside their origin.
package config
