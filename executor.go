package ticketflow

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// DefaultReviewStatus is the ticket status the update-ticket step moves a
// ticket to when none is configured.
const DefaultReviewStatus = "In Review"

// StepExecutor maps a step id to exactly one side-effecting operation
// against the collaborator clients, normalizing the outcome into a typed
// result or an error. It holds configuration only; every call is a pure
// function of the workflow snapshot and the clients.
type StepExecutor struct {
	services     Services
	workspace    string
	baseBranch   string
	reviewStatus string
	logger       *slog.Logger
}

// ExecutorOption configures a StepExecutor.
type ExecutorOption func(*StepExecutor)

// WithBaseBranch sets the branch new work branches off. Empty means the
// VCS client's default.
func WithBaseBranch(branch string) ExecutorOption {
	return func(e *StepExecutor) { e.baseBranch = branch }
}

// WithReviewStatus sets the ticket status used by the update-ticket step.
func WithReviewStatus(status string) ExecutorOption {
	return func(e *StepExecutor) { e.reviewStatus = status }
}

// WithExecutorLogger sets the structured logger.
func WithExecutorLogger(logger *slog.Logger) ExecutorOption {
	return func(e *StepExecutor) { e.logger = logger }
}

// NewStepExecutor builds an executor writing generated files under
// workspace.
func NewStepExecutor(services Services, workspace string, opts ...ExecutorOption) *StepExecutor {
	e := &StepExecutor{
		services:     services,
		workspace:    workspace,
		reviewStatus: DefaultReviewStatus,
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Execute runs one step against the collaborators and returns its typed
// result. Unknown step ids are an error.
func (e *StepExecutor) Execute(ctx context.Context, w DevelopmentWorkflow, stepID string) (StepResult, error) {
	switch stepID {
	case StepCreateBranch:
		return e.createBranch(ctx, w)
	case StepGenerateCode:
		return e.generateCode(ctx, w)
	case StepRunTests:
		return e.runTests(ctx, w)
	case StepCommitChanges:
		return e.commitChanges(ctx, w)
	case StepCreatePR:
		return e.createPR(ctx, w)
	case StepUpdateTicket:
		return e.updateTicket(ctx, w)
	default:
		return nil, fmt.Errorf("step %s: %w", stepID, ErrStepNotFound)
	}
}

// =============================================================================
// Step Operations
// =============================================================================

func (e *StepExecutor) createBranch(ctx context.Context, w DevelopmentWorkflow) (StepResult, error) {
	name := DeriveBranchName(w.Ticket)
	resolved, err := e.services.Vcs.CreateBranch(ctx, name, e.baseBranch)
	if err != nil {
		return nil, err
	}
	if resolved == "" {
		resolved = name
	}
	return BranchResult{Branch: resolved}, nil
}

func (e *StepExecutor) generateCode(ctx context.Context, w DevelopmentWorkflow) (StepResult, error) {
	fileType := InferFileType(w.Ticket)
	gen, err := e.services.CodeGen.GenerateCode(ctx, CodeGenRequest{
		Ticket:   w.Ticket,
		FileType: fileType,
	})
	if err != nil {
		return nil, err
	}
	if gen == nil || len(gen.Files)+len(gen.TestFiles) == 0 {
		return nil, ErrNoFilesGenerated
	}

	files, err := e.writeFiles(gen.Files)
	if err != nil {
		return nil, err
	}
	testFiles, err := e.writeFiles(gen.TestFiles)
	if err != nil {
		return nil, err
	}

	return CodeGenResult{
		Files:        files,
		TestFiles:    testFiles,
		FileType:     fileType,
		Model:        gen.Model,
		InputTokens:  gen.InputTokens,
		OutputTokens: gen.OutputTokens,
	}, nil
}

func (e *StepExecutor) runTests(ctx context.Context, w DevelopmentWorkflow) (StepResult, error) {
	results, err := e.services.Tests.RunTests(ctx, "")
	if err != nil {
		return nil, err
	}
	if results.Failed > 0 {
		return nil, &TestFailureError{
			Passed:      results.Passed,
			Failed:      results.Failed,
			Skipped:     results.Skipped,
			Suggestions: e.suggestFixes(ctx, w, results),
		}
	}
	return TestResult{
		Passed:   results.Passed,
		Failed:   results.Failed,
		Skipped:  results.Skipped,
		Coverage: results.Coverage,
	}, nil
}

func (e *StepExecutor) commitChanges(ctx context.Context, w DevelopmentWorkflow) (StepResult, error) {
	status, err := e.services.Vcs.Status(ctx)
	if err != nil {
		return nil, err
	}
	changes := status.Changes()
	if len(changes) == 0 {
		return nil, ErrNoChanges
	}

	hash, err := e.services.Vcs.CommitChanges(ctx, buildCommitMessage(w.Ticket), changes)
	if err != nil {
		return nil, err
	}
	return CommitResult{Hash: hash, Files: len(changes)}, nil
}

func (e *StepExecutor) createPR(ctx context.Context, w DevelopmentWorkflow) (StepResult, error) {
	branch := w.BranchName
	if branch == "" {
		current, err := e.services.Vcs.CurrentBranch(ctx)
		if err != nil {
			return nil, err
		}
		branch = current
	}

	if err := e.services.Vcs.PushBranch(ctx, branch); err != nil {
		return nil, err
	}

	url, err := e.services.Vcs.CreatePullRequest(ctx, branch, buildPRTitle(w.Ticket), buildPRBody(w.Ticket))
	if err != nil {
		return nil, err
	}
	return PRResult{URL: url, Branch: branch}, nil
}

func (e *StepExecutor) updateTicket(ctx context.Context, w DevelopmentWorkflow) (StepResult, error) {
	if err := e.services.Tickets.AddComment(ctx, w.Ticket.Key, buildCompletionComment(w)); err != nil {
		return nil, err
	}
	if err := e.services.Tickets.UpdateStatus(ctx, w.Ticket.Key, e.reviewStatus); err != nil {
		return nil, err
	}
	return TicketUpdateResult{Commented: true, TransitionTo: e.reviewStatus}, nil
}

// =============================================================================
// Helpers
// =============================================================================

// writeFiles writes generated files under the workspace, overwriting
// existing content. Paths that escape the workspace are rejected.
func (e *StepExecutor) writeFiles(files []GeneratedFile) ([]string, error) {
	var written []string
	for _, f := range files {
		if f.Path == "" || !filepath.IsLocal(f.Path) {
			return nil, fmt.Errorf("generated file path %q is not workspace-relative", f.Path)
		}
		dst := filepath.Join(e.workspace, filepath.FromSlash(f.Path))
		if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
			return nil, fmt.Errorf("create directory for %s: %w", f.Path, err)
		}
		if err := os.WriteFile(dst, []byte(f.Content), 0644); err != nil {
			return nil, fmt.Errorf("write %s: %w", f.Path, err)
		}
		written = append(written, f.Path)
	}
	return written, nil
}

// suggestFixes asks the generator for improvement text. Failures here are
// logged rather than raised so the test failure itself stays the reported
// error.
func (e *StepExecutor) suggestFixes(ctx context.Context, w DevelopmentWorkflow, results TestResults) string {
	suggestions, err := e.services.CodeGen.SuggestImprovements(ctx, e.generatedCode(w), results)
	if err != nil {
		e.logger.Warn("improvement suggestions unavailable",
			"workflow_id", w.ID,
			"error", err,
		)
		return ""
	}
	return suggestions
}

// generatedCode re-reads the files recorded by the generate-code step so
// suggestion prompts can include them.
func (e *StepExecutor) generatedCode(w DevelopmentWorkflow) string {
	step, ok := w.Step(StepGenerateCode)
	if !ok {
		return ""
	}

	var b strings.Builder
	for _, p := range metadataStrings(step.Metadata["files"]) {
		data, err := os.ReadFile(filepath.Join(e.workspace, filepath.FromSlash(p)))
		if err != nil {
			continue
		}
		fmt.Fprintf(&b, "// %s\n%s\n\n", p, data)
	}
	return b.String()
}

// metadataStrings normalizes a metadata value that may be []string in
// memory or []any after a JSON round-trip.
func metadataStrings(v any) []string {
	switch vals := v.(type) {
	case []string:
		return vals
	case []any:
		out := make([]string, 0, len(vals))
		for _, item := range vals {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

// fileTypeKeywords are checked in order against the ticket summary and
// description.
var fileTypeKeywords = []struct {
	keyword  string
	fileType string
}{
	{"test", "test"},
	{"service", "service"},
	{"util", "util"},
	{"config", "config"},
}

// InferFileType guesses the kind of file a ticket asks for from keywords
// in its summary and description, defaulting to "component".
func InferFileType(ticket Ticket) string {
	text := strings.ToLower(ticket.Summary + " " + ticket.Description)
	for _, k := range fileTypeKeywords {
		if strings.Contains(text, k.keyword) {
			return k.fileType
		}
	}
	return "component"
}

// buildCommitMessage combines ticket key, summary and description.
func buildCommitMessage(ticket Ticket) string {
	msg := fmt.Sprintf("[%s] %s", ticket.Key, ticket.Summary)
	if ticket.Description != "" {
		msg += "\n\n" + ticket.Description
	}
	return msg
}

// buildPRTitle generates the pull request title.
func buildPRTitle(ticket Ticket) string {
	return fmt.Sprintf("[%s] %s", ticket.Key, ticket.Summary)
}

// buildPRBody generates the templated pull request description: summary,
// ticket link, and a review checklist.
func buildPRBody(ticket Ticket) string {
	var b strings.Builder
	b.WriteString("## Summary\n\n")
	b.WriteString(ticket.Summary)
	b.WriteString("\n\n")
	if ticket.Description != "" {
		b.WriteString(ticket.Description)
		b.WriteString("\n\n")
	}
	b.WriteString("## Ticket\n\n")
	if ticket.URL != "" {
		fmt.Fprintf(&b, "[%s](%s)\n\n", ticket.Key, ticket.URL)
	} else {
		b.WriteString(ticket.Key)
		b.WriteString("\n\n")
	}
	b.WriteString("## Checklist\n\n")
	b.WriteString("- [ ] Code reviewed\n")
	b.WriteString("- [ ] Tests pass\n")
	b.WriteString("- [ ] Ticket acceptance criteria met\n")
	return b.String()
}

// buildCompletionComment summarizes the finished run for the ticket.
func buildCompletionComment(w DevelopmentWorkflow) string {
	pr := w.PullRequestURL
	if pr == "" {
		pr = "(pull request pending)"
	}
	var b strings.Builder
	b.WriteString("Development workflow completed.\n\n")
	if w.BranchName != "" {
		fmt.Fprintf(&b, "Branch: %s\n", w.BranchName)
	}
	fmt.Fprintf(&b, "Pull request: %s\n", pr)
	return b.String()
}
