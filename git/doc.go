// Package git runs repository operations through the git CLI: branch
// creation and checkout, staging, commits, pushes, and working tree status.
//
// Core types:
//   - Context: repository handle exposing the git operations
//   - CommandRunner: interface for executing commands (with mocks for testing)
//
// Example usage:
//
//	repo, err := git.NewContext("/path/to/repo")
//	if err != nil {
//		return err
//	}
//	if err := repo.CheckoutNew("feature/proj-123-fix-login"); err != nil {
//		return err
//	}
//	result, err := repo.CommitAll("[PROJ-123] Fix login bug")
package git
