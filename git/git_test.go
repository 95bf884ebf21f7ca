package git

import (
	"errors"
	"reflect"
	"testing"
)

func newMockContext(t *testing.T, runner CommandRunner) *Context {
	t.Helper()
	return &Context{workDir: t.TempDir(), runner: runner}
}

func TestNewContext(t *testing.T) {
	t.Run("valid repo", func(t *testing.T) {
		runner := NewMockRunner()
		runner.OnCommand("git", "rev-parse", "--git-dir").Return(".git", nil)

		ctx, err := NewContext(t.TempDir(), WithRunner(runner))
		if err != nil {
			t.Fatalf("NewContext: %v", err)
		}
		if ctx.WorkDir() == "" {
			t.Error("WorkDir should be set")
		}
	})

	t.Run("not a git repository", func(t *testing.T) {
		runner := NewMockRunner()
		runner.OnCommand("git", "rev-parse", "--git-dir").
			Return("", &CommandError{Output: "fatal: not a git repository"})

		_, err := NewContext(t.TempDir(), WithRunner(runner))
		if !errors.Is(err, ErrNotGitRepo) {
			t.Errorf("err = %v, want ErrNotGitRepo", err)
		}
	})
}

func TestContext_CurrentBranch(t *testing.T) {
	runner := NewMockRunner()
	runner.OnCommand("git", "rev-parse", "--abbrev-ref", "HEAD").Return("feature/x", nil)

	branch, err := newMockContext(t, runner).CurrentBranch()
	if err != nil {
		t.Fatalf("CurrentBranch: %v", err)
	}
	if branch != "feature/x" {
		t.Errorf("branch = %q, want %q", branch, "feature/x")
	}
}

func TestContext_CreateBranch(t *testing.T) {
	t.Run("new branch", func(t *testing.T) {
		runner := NewMockRunner()
		runner.OnAnyCommand().Return("", nil)
		ctx := newMockContext(t, runner)

		if err := ctx.CreateBranch("feature/new"); err != nil {
			t.Fatalf("CreateBranch: %v", err)
		}
		if !runner.WasCalled("git", "branch", "feature/new") {
			t.Error("expected git branch feature/new")
		}
	})

	t.Run("already exists", func(t *testing.T) {
		runner := NewMockRunner()
		runner.OnCommand("git", "branch", "dup").
			Return("", &CommandError{Output: "fatal: a branch named 'dup' already exists"})
		ctx := newMockContext(t, runner)

		if err := ctx.CreateBranch("dup"); err != ErrBranchExists {
			t.Errorf("err = %v, want ErrBranchExists", err)
		}
	})
}

func TestContext_Stage(t *testing.T) {
	t.Run("files", func(t *testing.T) {
		runner := NewMockRunner()
		runner.OnAnyCommand().Return("", nil)
		ctx := newMockContext(t, runner)

		if err := ctx.Stage("a.go", "b.go"); err != nil {
			t.Fatalf("Stage: %v", err)
		}
		if !runner.WasCalled("git", "add", "--", "a.go", "b.go") {
			t.Error("expected git add -- a.go b.go")
		}
	})

	t.Run("no files is a no-op", func(t *testing.T) {
		runner := NewMockRunner()
		ctx := newMockContext(t, runner)

		if err := ctx.Stage(); err != nil {
			t.Fatalf("Stage: %v", err)
		}
		if runner.CallCount("git") != 0 {
			t.Error("Stage with no files must not invoke git")
		}
	})
}

func TestContext_Commit_NothingToCommit(t *testing.T) {
	runner := NewMockRunner()
	runner.OnCommand("git", "commit", "-m", "msg").
		Return("", &CommandError{Output: "nothing to commit, working tree clean"})
	ctx := newMockContext(t, runner)

	if err := ctx.Commit("msg"); err != ErrNothingToCommit {
		t.Errorf("err = %v, want ErrNothingToCommit", err)
	}
}

func TestContext_Push(t *testing.T) {
	t.Run("with upstream", func(t *testing.T) {
		runner := NewMockRunner()
		runner.OnAnyCommand().Return("", nil)
		ctx := newMockContext(t, runner)

		if err := ctx.Push("origin", "feature/x", true); err != nil {
			t.Fatalf("Push: %v", err)
		}
		if !runner.WasCalled("git", "push", "-u", "origin", "feature/x") {
			t.Error("expected git push -u origin feature/x")
		}
	})

	t.Run("without upstream", func(t *testing.T) {
		runner := NewMockRunner()
		runner.OnAnyCommand().Return("", nil)
		ctx := newMockContext(t, runner)

		if err := ctx.Push("origin", "feature/x", false); err != nil {
			t.Fatalf("Push: %v", err)
		}
		if !runner.WasCalled("git", "push", "origin", "feature/x") {
			t.Error("expected git push origin feature/x")
		}
	})
}

func TestContext_BranchExists(t *testing.T) {
	runner := NewMockRunner()
	runner.OnCommand("git", "rev-parse", "--verify", "known").Return("abc123", nil)
	runner.OnCommand("git", "rev-parse", "--verify", "unknown").
		Return("", &CommandError{Output: "fatal: needed a single revision"})
	ctx := newMockContext(t, runner)

	if !ctx.BranchExists("known") {
		t.Error("known branch should exist")
	}
	if ctx.BranchExists("unknown") {
		t.Error("unknown branch should not exist")
	}
}

func TestContext_IsClean(t *testing.T) {
	t.Run("clean", func(t *testing.T) {
		runner := NewMockRunner()
		runner.OnCommand("git", "status", "--short").Return("", nil)

		clean, err := newMockContext(t, runner).IsClean()
		if err != nil {
			t.Fatalf("IsClean: %v", err)
		}
		if !clean {
			t.Error("expected clean tree")
		}
	})

	t.Run("dirty", func(t *testing.T) {
		runner := NewMockRunner()
		runner.OnCommand("git", "status", "--short").Return("M  a.go", nil)

		clean, err := newMockContext(t, runner).IsClean()
		if err != nil {
			t.Fatalf("IsClean: %v", err)
		}
		if clean {
			t.Error("expected dirty tree")
		}
	})
}

func TestContext_StatusSummary(t *testing.T) {
	runner := NewMockRunner()
	runner.OnCommand("git", "status", "--short").
		Return("M  staged.go\n M unstaged.go\nMM both.go\n?? new.go", nil)

	summary, err := newMockContext(t, runner).StatusSummary()
	if err != nil {
		t.Fatalf("StatusSummary: %v", err)
	}

	if want := []string{"staged.go", "both.go"}; !reflect.DeepEqual(summary.Staged, want) {
		t.Errorf("Staged = %v, want %v", summary.Staged, want)
	}
	if want := []string{"unstaged.go", "both.go"}; !reflect.DeepEqual(summary.Unstaged, want) {
		t.Errorf("Unstaged = %v, want %v", summary.Unstaged, want)
	}
	if want := []string{"new.go"}; !reflect.DeepEqual(summary.Untracked, want) {
		t.Errorf("Untracked = %v, want %v", summary.Untracked, want)
	}
}

func TestParseShortStatus(t *testing.T) {
	tests := []struct {
		name      string
		output    string
		staged    []string
		unstaged  []string
		untracked []string
	}{
		{
			name:   "staged modification",
			output: "M  a.go",
			staged: []string{"a.go"},
		},
		{
			name:     "trimmed leading space",
			output:   "M b.go", // runner trimmed " M b.go"
			unstaged: []string{"b.go"},
		},
		{
			name:      "untracked",
			output:    "?? c.go",
			untracked: []string{"c.go"},
		},
		{
			name:     "staged and unstaged",
			output:   "MM d.go",
			staged:   []string{"d.go"},
			unstaged: []string{"d.go"},
		},
		{
			name:   "rename uses new path",
			output: "R  old.go -> new.go",
			staged: []string{"new.go"},
		},
		{
			name:   "staged deletion",
			output: "D  gone.go",
			staged: []string{"gone.go"},
		},
		{
			name:   "empty output",
			output: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := parseShortStatus(tt.output)
			if !reflect.DeepEqual(got.Staged, tt.staged) {
				t.Errorf("Staged = %v, want %v", got.Staged, tt.staged)
			}
			if !reflect.DeepEqual(got.Unstaged, tt.unstaged) {
				t.Errorf("Unstaged = %v, want %v", got.Unstaged, tt.unstaged)
			}
			if !reflect.DeepEqual(got.Untracked, tt.untracked) {
				t.Errorf("Untracked = %v, want %v", got.Untracked, tt.untracked)
			}
		})
	}
}

func TestContext_HeadCommit(t *testing.T) {
	runner := NewMockRunner()
	runner.OnCommand("git", "rev-parse", "HEAD").Return("abc123def456", nil)

	sha, err := newMockContext(t, runner).HeadCommit()
	if err != nil {
		t.Fatalf("HeadCommit: %v", err)
	}
	if sha != "abc123def456" {
		t.Errorf("sha = %q", sha)
	}
}

func TestContext_GetRemoteURL(t *testing.T) {
	runner := NewMockRunner()
	runner.OnCommand("git", "remote", "get-url", "origin").
		Return("git@github.com:acme/widgets.git", nil)

	url, err := newMockContext(t, runner).GetRemoteURL("origin")
	if err != nil {
		t.Fatalf("GetRemoteURL: %v", err)
	}
	if url != "git@github.com:acme/widgets.git" {
		t.Errorf("url = %q", url)
	}
}
