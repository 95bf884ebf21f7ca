package git

import (
	"fmt"
	"time"
)

// CommitResult describes a commit made through CommitAll. Workflow
// steps record these alongside the run so the PR step can reference
// the exact SHA it is publishing.
type CommitResult struct {
	SHA     string
	Branch  string
	Message string
	Date    time.Time
}

// PushResult describes a completed push.
type PushResult struct {
	Remote      string
	Branch      string
	SHA         string
	SetUpstream bool // true when upstream tracking was established by this push
	URL         string
}

// CommitAndPushResult pairs the commit with the push that published it.
type CommitAndPushResult struct {
	Commit *CommitResult
	Push   *PushResult
}

// CommitAll stages everything in the working tree and commits it.
// Returns ErrNothingToCommit when the tree is clean.
func (g *Context) CommitAll(message string) (*CommitResult, error) {
	if err := g.StageAll(); err != nil {
		return nil, fmt.Errorf("stage all: %w", err)
	}
	if err := g.Commit(message); err != nil {
		return nil, err
	}

	sha, err := g.HeadCommit()
	if err != nil {
		return nil, fmt.Errorf("resolve head: %w", err)
	}
	branch, err := g.CurrentBranch()
	if err != nil {
		return nil, fmt.Errorf("resolve branch: %w", err)
	}

	return &CommitResult{
		SHA:     sha,
		Branch:  branch,
		Message: message,
		Date:    time.Now(),
	}, nil
}

// PushCurrent pushes the current branch to origin, setting upstream
// tracking on the first push of a branch.
func (g *Context) PushCurrent() (*PushResult, error) {
	return g.PushCurrentTo("origin")
}

// PushCurrentTo is PushCurrent against an arbitrary remote.
func (g *Context) PushCurrentTo(remote string) (*PushResult, error) {
	branch, err := g.CurrentBranch()
	if err != nil {
		return nil, fmt.Errorf("resolve branch: %w", err)
	}

	setUpstream := !g.IsBranchPushed(branch)
	if err := g.Push(remote, branch, setUpstream); err != nil {
		return nil, err
	}

	sha, err := g.HeadCommit()
	if err != nil {
		return nil, fmt.Errorf("resolve head: %w", err)
	}

	// The remote URL is informational; a missing remote config should
	// not fail a push that already succeeded.
	url, _ := g.GetRemoteURL(remote)

	return &PushResult{
		Remote:      remote,
		Branch:      branch,
		SHA:         sha,
		SetUpstream: setUpstream,
		URL:         url,
	}, nil
}

// CommitAllAndPush commits the working tree and pushes to origin. When
// the push fails after a successful commit, the partial result still
// carries the commit so callers can retry the push alone.
func (g *Context) CommitAllAndPush(message string) (*CommitAndPushResult, error) {
	commit, err := g.CommitAll(message)
	if err != nil {
		return nil, err
	}

	push, err := g.PushCurrent()
	if err != nil {
		return &CommitAndPushResult{Commit: commit}, err
	}
	return &CommitAndPushResult{Commit: commit, Push: push}, nil
}

// CheckoutNew creates a branch at HEAD and switches to it.
func (g *Context) CheckoutNew(name string) error {
	if err := g.CreateBranch(name); err != nil {
		return err
	}
	return g.Checkout(name)
}

// CheckoutNewAt creates a branch at the given ref and switches to it.
// Used when a workflow wants its feature branch rooted at a base other
// than the current HEAD.
func (g *Context) CheckoutNewAt(name, ref string) error {
	if err := g.Checkout(ref); err != nil {
		return fmt.Errorf("checkout %q: %w", ref, err)
	}
	if err := g.CreateBranch(name); err != nil {
		return fmt.Errorf("create branch %q: %w", name, err)
	}
	if err := g.Checkout(name); err != nil {
		return fmt.Errorf("checkout %q: %w", name, err)
	}
	return nil
}
