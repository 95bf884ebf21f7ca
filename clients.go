package ticketflow

import (
	"context"
	"fmt"
)

// =============================================================================
// Collaborator Interfaces
// =============================================================================

// TicketClient reads and updates issue-tracker tickets.
type TicketClient interface {
	// GetTicket fetches ticket details by key (e.g., "PROJ-123").
	GetTicket(ctx context.Context, key string) (Ticket, error)

	// AddComment posts a comment on the ticket.
	AddComment(ctx context.Context, key, text string) error

	// UpdateStatus transitions the ticket to the named status.
	UpdateStatus(ctx context.Context, key, statusName string) error
}

// GeneratedFile is one file produced by the code generator.
type GeneratedFile struct {
	Path     string `json:"path"` // Workspace-relative
	Content  string `json:"content"`
	Language string `json:"language,omitempty"`
}

// CodeGenRequest describes what the generator should produce.
type CodeGenRequest struct {
	Ticket   Ticket
	FileType string // component, service, test, util, or config
}

// Generation is the code generator's response: implementation files plus
// their tests, and usage accounting when the generator reports it.
type Generation struct {
	Files     []GeneratedFile `json:"files"`
	TestFiles []GeneratedFile `json:"testFiles,omitempty"`

	Model        string `json:"model,omitempty"`
	InputTokens  int    `json:"inputTokens,omitempty"`
	OutputTokens int    `json:"outputTokens,omitempty"`
}

// CodeGenClient produces source files and improvement suggestions.
type CodeGenClient interface {
	// GenerateCode produces implementation and test files for the request.
	GenerateCode(ctx context.Context, req CodeGenRequest) (*Generation, error)

	// SuggestImprovements asks for fixes given generated code and failing
	// test results. Returns free-form suggestion text.
	SuggestImprovements(ctx context.Context, code string, results TestResults) (string, error)
}

// WorkspaceStatus reports uncommitted changes in the working tree.
type WorkspaceStatus struct {
	Staged    []string `json:"staged"`
	Unstaged  []string `json:"unstaged"`
	Untracked []string `json:"untracked"`
}

// Changes returns the union of staged, unstaged and untracked paths,
// deduplicated, in first-seen order.
func (s WorkspaceStatus) Changes() []string {
	seen := make(map[string]struct{})
	var out []string
	for _, group := range [][]string{s.Staged, s.Unstaged, s.Untracked} {
		for _, p := range group {
			if _, ok := seen[p]; ok {
				continue
			}
			seen[p] = struct{}{}
			out = append(out, p)
		}
	}
	return out
}

// IsClean reports whether the working tree has no changes at all.
func (s WorkspaceStatus) IsClean() bool {
	return len(s.Staged) == 0 && len(s.Unstaged) == 0 && len(s.Untracked) == 0
}

// VcsClient performs branch, commit, push and pull-request operations.
type VcsClient interface {
	// CreateBranch creates (or reuses) the named branch off base and
	// returns the resolved branch name. Empty base means the repository
	// default branch.
	CreateBranch(ctx context.Context, name, base string) (string, error)

	// CurrentBranch returns the branch currently checked out.
	CurrentBranch(ctx context.Context) (string, error)

	// Status reports staged, unstaged and untracked paths.
	Status(ctx context.Context) (WorkspaceStatus, error)

	// CommitChanges stages the given paths and commits them, returning
	// the commit hash.
	CommitChanges(ctx context.Context, message string, files []string) (string, error)

	// PushBranch pushes the named branch to the default remote.
	PushBranch(ctx context.Context, name string) error

	// CreatePullRequest opens a pull request from branch and returns its
	// URL.
	CreatePullRequest(ctx context.Context, branch, title, description string) (string, error)
}

// TestFailureDetail describes one failing test.
type TestFailureDetail struct {
	Name    string `json:"name"`
	Message string `json:"message,omitempty"`
}

// TestResults is the outcome of a test-runner invocation.
type TestResults struct {
	Passed   int                 `json:"passed"`
	Failed   int                 `json:"failed"`
	Skipped  int                 `json:"skipped"`
	Coverage float64             `json:"coverage,omitempty"` // 0 when unknown
	Failures []TestFailureDetail `json:"failures,omitempty"`

	// Output is the raw runner output, kept for suggestion prompts but
	// not persisted with the step.
	Output string `json:"-"`
}

// TestRunnerClient executes the project's test suite.
type TestRunnerClient interface {
	// RunTests runs tests matching pattern; an empty pattern runs the
	// full suite.
	RunTests(ctx context.Context, pattern string) (TestResults, error)
}

// =============================================================================
// Services
// =============================================================================

// Services bundles the collaborator clients the pipeline depends on. All
// orchestration entry points receive their dependencies explicitly through
// this struct; there is no ambient registry or process-wide default.
type Services struct {
	Tickets TicketClient
	CodeGen CodeGenClient
	Vcs     VcsClient
	Tests   TestRunnerClient
}

// Validate returns an error naming the first missing client.
func (s Services) Validate() error {
	switch {
	case s.Tickets == nil:
		return fmt.Errorf("ticket client is required")
	case s.CodeGen == nil:
		return fmt.Errorf("code generation client is required")
	case s.Vcs == nil:
		return fmt.Errorf("vcs client is required")
	case s.Tests == nil:
		return fmt.Errorf("test runner client is required")
	}
	return nil
}
