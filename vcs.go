package ticketflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/randalmurphal/ticketflow/git"
	"github.com/randalmurphal/ticketflow/pr"
)

// GitVCS implements VcsClient over a local git checkout plus a pull request
// provider. Branch, commit and push operations run through the git CLI;
// pull requests go through the provider API. A nil provider is allowed for
// local-only use, in which case CreatePullRequest fails with
// pr.ErrNoProvider.
type GitVCS struct {
	repo     *git.Context
	provider pr.Provider
	logger   *slog.Logger

	remote    string
	base      string
	labels    []string
	reviewers []string
	draft     bool
}

// VCSOption configures a GitVCS.
type VCSOption func(*GitVCS)

// WithRemote sets the remote pushed to. Defaults to "origin".
func WithRemote(remote string) VCSOption {
	return func(v *GitVCS) { v.remote = remote }
}

// WithDefaultBase sets the pull request target branch when the caller does
// not name one.
func WithDefaultBase(base string) VCSOption {
	return func(v *GitVCS) { v.base = base }
}

// WithPRLabels sets labels applied to every pull request.
func WithPRLabels(labels ...string) VCSOption {
	return func(v *GitVCS) { v.labels = labels }
}

// WithPRReviewers sets reviewers requested on every pull request.
func WithPRReviewers(reviewers ...string) VCSOption {
	return func(v *GitVCS) { v.reviewers = reviewers }
}

// WithDraftPRs opens every pull request as a draft.
func WithDraftPRs() VCSOption {
	return func(v *GitVCS) { v.draft = true }
}

// WithVCSLogger sets the structured logger.
func WithVCSLogger(logger *slog.Logger) VCSOption {
	return func(v *GitVCS) { v.logger = logger }
}

// NewGitVCS builds a VcsClient over the repository. provider may be nil.
func NewGitVCS(repo *git.Context, provider pr.Provider, opts ...VCSOption) (*GitVCS, error) {
	if repo == nil {
		return nil, fmt.Errorf("git context is required")
	}
	v := &GitVCS{
		repo:     repo,
		provider: provider,
		logger:   slog.Default(),
		remote:   "origin",
	}
	for _, opt := range opts {
		opt(v)
	}
	return v, nil
}

// CreateBranch creates the named branch off base and checks it out. An
// existing branch of the same name is reused rather than treated as an
// error. Empty base branches off the current HEAD.
func (v *GitVCS) CreateBranch(ctx context.Context, name, base string) (string, error) {
	var err error
	if base != "" {
		err = v.repo.CheckoutNewAt(name, base)
	} else {
		err = v.repo.CheckoutNew(name)
	}
	if errors.Is(err, git.ErrBranchExists) {
		v.logger.Debug("reusing existing branch", "branch", name)
		if err := v.repo.Checkout(name); err != nil {
			return "", err
		}
		return name, nil
	}
	if err != nil {
		return "", err
	}
	return name, nil
}

// CurrentBranch returns the branch currently checked out.
func (v *GitVCS) CurrentBranch(ctx context.Context) (string, error) {
	return v.repo.CurrentBranch()
}

// Status reports staged, unstaged and untracked paths.
func (v *GitVCS) Status(ctx context.Context) (WorkspaceStatus, error) {
	summary, err := v.repo.StatusSummary()
	if err != nil {
		return WorkspaceStatus{}, err
	}
	return WorkspaceStatus{
		Staged:    summary.Staged,
		Unstaged:  summary.Unstaged,
		Untracked: summary.Untracked,
	}, nil
}

// CommitChanges stages the given paths and commits them, returning the
// commit hash. An empty file list commits everything in the working tree.
// A tree with nothing to commit fails with ErrNoChanges.
func (v *GitVCS) CommitChanges(ctx context.Context, message string, files []string) (string, error) {
	if len(files) == 0 {
		result, err := v.repo.CommitAll(message)
		if err != nil {
			return "", mapNothingToCommit(err)
		}
		return result.SHA, nil
	}

	if err := v.repo.Stage(files...); err != nil {
		return "", err
	}
	if err := v.repo.Commit(message); err != nil {
		return "", mapNothingToCommit(err)
	}
	return v.repo.HeadCommit()
}

// PushBranch pushes the named branch to the remote, setting upstream
// tracking on the first push.
func (v *GitVCS) PushBranch(ctx context.Context, name string) error {
	setUpstream := !v.repo.IsBranchPushed(name)
	return v.repo.Push(v.remote, name, setUpstream)
}

// CreatePullRequest opens a pull request from branch and returns its URL.
// If an open pull request for the branch already exists it is reused.
func (v *GitVCS) CreatePullRequest(ctx context.Context, branch, title, description string) (string, error) {
	if v.provider == nil {
		return "", pr.ErrNoProvider
	}

	b := pr.NewBuilder(title).
		WithBody(description).
		WithHead(branch).
		WithBase(v.base).
		WithLabels(v.labels...).
		WithReviewers(v.reviewers...)
	if v.draft {
		b.AsDraft()
	}

	pull, err := v.provider.CreatePR(ctx, b.Build())
	if errors.Is(err, pr.ErrExists) {
		existing, listErr := v.provider.ListPRs(ctx, pr.Filter{
			State: pr.StateOpen,
			Head:  branch,
			Limit: 1,
		})
		if listErr == nil && len(existing) > 0 {
			v.logger.Info("reusing existing pull request", "branch", branch, "url", existing[0].URL)
			return existing[0].URL, nil
		}
		return "", err
	}
	if err != nil {
		return "", err
	}
	return pull.URL, nil
}

// mapNothingToCommit converts the git layer's empty-commit sentinel into
// the workflow's ErrNoChanges so step handling stays uniform.
func mapNothingToCommit(err error) error {
	if errors.Is(err, git.ErrNothingToCommit) {
		return ErrNoChanges
	}
	return err
}
