// Package prompt provides prompt template loading and management.
//
// Core types:
//   - Loader: loads prompt templates from project overrides or the
//     embedded defaults
//
// Example usage:
//
//	loader := prompt.NewLoader(projectDir)
//	text, err := loader.LoadWithVars("codegen", map[string]any{
//	    "TicketKey": "PROJ-123",
//	    "Summary":   "Fix login bug",
//	})
package prompt
