package git

import (
	"errors"
	"fmt"
)

// Sentinel errors for conditions callers branch on. Everything else
// surfaces as *Error with the git output attached.
var (
	ErrNotGitRepo      = errors.New("not a git repository")
	ErrBranchExists    = errors.New("branch already exists")
	ErrNothingToCommit = errors.New("nothing to commit")
)

// Error carries the failing operation and whatever git printed, which
// is usually more useful than the exit status alone.
type Error struct {
	Op     string // logical operation, e.g. "commit", "push"
	Output string // combined stdout/stderr from git
	Err    error
}

func (e *Error) Error() string {
	if e.Output != "" {
		return fmt.Sprintf("%s: %s", e.Op, e.Output)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }
