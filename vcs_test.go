package ticketflow

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"reflect"
	"testing"

	"github.com/randalmurphal/ticketflow/git"
	"github.com/randalmurphal/ticketflow/pr"
)

func newTestVCS(t *testing.T, provider pr.Provider, opts ...VCSOption) (*GitVCS, *git.MockRunner) {
	t.Helper()

	runner := git.NewMockRunner()
	repo, err := git.NewContext(t.TempDir(), git.WithRunner(runner))
	if err != nil {
		t.Fatalf("NewContext failed: %v", err)
	}

	opts = append(opts, WithVCSLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	vcs, err := NewGitVCS(repo, provider, opts...)
	if err != nil {
		t.Fatalf("NewGitVCS failed: %v", err)
	}
	return vcs, runner
}

func TestNewGitVCS_RequiresRepo(t *testing.T) {
	_, err := NewGitVCS(nil, &pr.MockProvider{})
	if err == nil {
		t.Fatal("expected error for nil git context")
	}
}

func TestGitVCS_CreateBranch(t *testing.T) {
	vcs, runner := newTestVCS(t, &pr.MockProvider{})

	name, err := vcs.CreateBranch(context.Background(), "feature/proj-1-x", "")
	if err != nil {
		t.Fatalf("CreateBranch failed: %v", err)
	}
	if name != "feature/proj-1-x" {
		t.Errorf("branch = %q, want %q", name, "feature/proj-1-x")
	}

	if !runner.WasCalled("git", "branch", "feature/proj-1-x") {
		t.Error("expected git branch to be called")
	}
	if !runner.WasCalled("git", "checkout", "feature/proj-1-x") {
		t.Error("expected git checkout to be called")
	}
}

func TestGitVCS_CreateBranch_WithBase(t *testing.T) {
	vcs, runner := newTestVCS(t, &pr.MockProvider{})

	_, err := vcs.CreateBranch(context.Background(), "feature/proj-1-x", "develop")
	if err != nil {
		t.Fatalf("CreateBranch failed: %v", err)
	}

	// The base is checked out before the branch is created from it.
	if !runner.WasCalled("git", "checkout", "develop") {
		t.Error("expected checkout of the base branch")
	}
	if !runner.WasCalled("git", "branch", "feature/proj-1-x") {
		t.Error("expected git branch to be called")
	}
}

func TestGitVCS_CreateBranch_ReusesExisting(t *testing.T) {
	vcs, runner := newTestVCS(t, &pr.MockProvider{})
	runner.OnCommand("git", "branch", "feature/proj-1-x").
		Return("", &git.CommandError{Output: "fatal: a branch named 'feature/proj-1-x' already exists"})

	name, err := vcs.CreateBranch(context.Background(), "feature/proj-1-x", "")
	if err != nil {
		t.Fatalf("CreateBranch should reuse the branch, got: %v", err)
	}
	if name != "feature/proj-1-x" {
		t.Errorf("branch = %q, want %q", name, "feature/proj-1-x")
	}
	if !runner.WasCalled("git", "checkout", "feature/proj-1-x") {
		t.Error("expected checkout of the existing branch")
	}
}

func TestGitVCS_CurrentBranch(t *testing.T) {
	vcs, runner := newTestVCS(t, &pr.MockProvider{})
	runner.OnCommand("git", "rev-parse", "--abbrev-ref", "HEAD").Return("feature/z", nil)

	branch, err := vcs.CurrentBranch(context.Background())
	if err != nil {
		t.Fatalf("CurrentBranch failed: %v", err)
	}
	if branch != "feature/z" {
		t.Errorf("branch = %q, want %q", branch, "feature/z")
	}
}

func TestGitVCS_Status(t *testing.T) {
	vcs, runner := newTestVCS(t, &pr.MockProvider{})
	runner.OnCommand("git", "status", "--short").Return("M  staged.go\n M unstaged.go\n?? new.go", nil)

	status, err := vcs.Status(context.Background())
	if err != nil {
		t.Fatalf("Status failed: %v", err)
	}

	if !reflect.DeepEqual(status.Staged, []string{"staged.go"}) {
		t.Errorf("Staged = %v", status.Staged)
	}
	if !reflect.DeepEqual(status.Unstaged, []string{"unstaged.go"}) {
		t.Errorf("Unstaged = %v", status.Unstaged)
	}
	if !reflect.DeepEqual(status.Untracked, []string{"new.go"}) {
		t.Errorf("Untracked = %v", status.Untracked)
	}
}

func TestGitVCS_CommitChanges(t *testing.T) {
	vcs, runner := newTestVCS(t, &pr.MockProvider{})
	runner.OnCommand("git", "rev-parse", "HEAD").Return("abc123def", nil)

	sha, err := vcs.CommitChanges(context.Background(), "[PROJ-1] msg", []string{"a.go", "b.go"})
	if err != nil {
		t.Fatalf("CommitChanges failed: %v", err)
	}
	if sha != "abc123def" {
		t.Errorf("sha = %q, want %q", sha, "abc123def")
	}

	if !runner.WasCalled("git", "add", "--", "a.go", "b.go") {
		t.Error("expected the named files to be staged")
	}
	if !runner.WasCalled("git", "commit", "-m", "[PROJ-1] msg") {
		t.Error("expected git commit to be called")
	}
}

func TestGitVCS_CommitChanges_EmptyFilesCommitsAll(t *testing.T) {
	vcs, runner := newTestVCS(t, &pr.MockProvider{})
	runner.OnCommand("git", "rev-parse", "HEAD").Return("def456", nil)

	sha, err := vcs.CommitChanges(context.Background(), "msg", nil)
	if err != nil {
		t.Fatalf("CommitChanges failed: %v", err)
	}
	if sha != "def456" {
		t.Errorf("sha = %q, want %q", sha, "def456")
	}

	if !runner.WasCalled("git", "add", "-A") {
		t.Error("expected everything to be staged")
	}
}

func TestGitVCS_CommitChanges_NothingToCommit(t *testing.T) {
	vcs, runner := newTestVCS(t, &pr.MockProvider{})
	runner.OnCommand("git", "commit", "-m", "msg").
		Return("nothing to commit, working tree clean", errors.New("exit status 1"))

	_, err := vcs.CommitChanges(context.Background(), "msg", []string{"a.go"})
	if !errors.Is(err, ErrNoChanges) {
		t.Errorf("expected ErrNoChanges, got %v", err)
	}
}

func TestGitVCS_PushBranch_FirstPushSetsUpstream(t *testing.T) {
	vcs, runner := newTestVCS(t, &pr.MockProvider{})
	runner.OnCommand("git", "rev-parse", "--verify", "origin/feature/x").
		Return("", errors.New("unknown revision"))

	if err := vcs.PushBranch(context.Background(), "feature/x"); err != nil {
		t.Fatalf("PushBranch failed: %v", err)
	}

	if !runner.WasCalled("git", "push", "-u", "origin", "feature/x") {
		t.Error("expected push with upstream tracking")
	}
}

func TestGitVCS_PushBranch_AlreadyPushed(t *testing.T) {
	vcs, runner := newTestVCS(t, &pr.MockProvider{})

	if err := vcs.PushBranch(context.Background(), "feature/x"); err != nil {
		t.Fatalf("PushBranch failed: %v", err)
	}

	if !runner.WasCalled("git", "push", "origin", "feature/x") {
		t.Error("expected plain push")
	}
	if runner.WasCalled("git", "push", "-u") {
		t.Error("push should not set upstream when the branch is already on the remote")
	}
}

func TestGitVCS_CreatePullRequest(t *testing.T) {
	var captured pr.Options
	provider := &pr.MockProvider{
		CreatePRFunc: func(ctx context.Context, opts pr.Options) (*pr.PullRequest, error) {
			captured = opts
			return &pr.PullRequest{ID: 7, URL: "https://github.com/o/r/pull/7"}, nil
		},
	}
	vcs, _ := newTestVCS(t, provider,
		WithDefaultBase("develop"),
		WithPRLabels("auto"),
		WithPRReviewers("alice"),
		WithDraftPRs(),
	)

	url, err := vcs.CreatePullRequest(context.Background(), "feature/x", "[PROJ-1] Title", "body text")
	if err != nil {
		t.Fatalf("CreatePullRequest failed: %v", err)
	}
	if url != "https://github.com/o/r/pull/7" {
		t.Errorf("url = %q", url)
	}

	if captured.Title != "[PROJ-1] Title" {
		t.Errorf("Title = %q", captured.Title)
	}
	if captured.Body != "body text" {
		t.Errorf("Body = %q", captured.Body)
	}
	if captured.Head != "feature/x" {
		t.Errorf("Head = %q", captured.Head)
	}
	if captured.Base != "develop" {
		t.Errorf("Base = %q", captured.Base)
	}
	if !reflect.DeepEqual(captured.Labels, []string{"auto"}) {
		t.Errorf("Labels = %v", captured.Labels)
	}
	if !reflect.DeepEqual(captured.Reviewers, []string{"alice"}) {
		t.Errorf("Reviewers = %v", captured.Reviewers)
	}
	if !captured.Draft {
		t.Error("Draft should be set")
	}
}

func TestGitVCS_CreatePullRequest_NoProvider(t *testing.T) {
	vcs, _ := newTestVCS(t, nil)

	_, err := vcs.CreatePullRequest(context.Background(), "feature/x", "t", "b")
	if !errors.Is(err, pr.ErrNoProvider) {
		t.Errorf("expected pr.ErrNoProvider, got %v", err)
	}
}

func TestGitVCS_CreatePullRequest_ReusesExisting(t *testing.T) {
	provider := &pr.MockProvider{
		CreatePRFunc: func(ctx context.Context, opts pr.Options) (*pr.PullRequest, error) {
			return nil, pr.ErrExists
		},
		ListPRsFunc: func(ctx context.Context, filter pr.Filter) ([]*pr.PullRequest, error) {
			if filter.Head != "feature/x" || filter.State != pr.StateOpen {
				t.Errorf("unexpected filter: %+v", filter)
			}
			return []*pr.PullRequest{{ID: 42, URL: "https://example.com/pr/42"}}, nil
		},
	}
	vcs, _ := newTestVCS(t, provider)

	url, err := vcs.CreatePullRequest(context.Background(), "feature/x", "t", "b")
	if err != nil {
		t.Fatalf("CreatePullRequest should reuse the open PR, got: %v", err)
	}
	if url != "https://example.com/pr/42" {
		t.Errorf("url = %q, want the existing PR", url)
	}
}

func TestGitVCS_CreatePullRequest_ExistsButLookupFails(t *testing.T) {
	provider := &pr.MockProvider{
		CreatePRFunc: func(ctx context.Context, opts pr.Options) (*pr.PullRequest, error) {
			return nil, pr.ErrExists
		},
		ListPRsFunc: func(ctx context.Context, filter pr.Filter) ([]*pr.PullRequest, error) {
			return nil, errors.New("api unavailable")
		},
	}
	vcs, _ := newTestVCS(t, provider)

	_, err := vcs.CreatePullRequest(context.Background(), "feature/x", "t", "b")
	if !errors.Is(err, pr.ErrExists) {
		t.Errorf("expected pr.ErrExists when the lookup fails, got %v", err)
	}
}
