package ticketflow

// Step identifiers, in execution order.
const (
	StepCreateBranch  = "create-branch"
	StepGenerateCode  = "generate-code"
	StepRunTests      = "run-tests"
	StepCommitChanges = "commit-changes"
	StepCreatePR      = "create-pr"
	StepUpdateTicket  = "update-ticket"
)

// StepOrder is the fixed execution order of the pipeline. Steps are never
// reordered, skipped, or run in parallel.
var StepOrder = []string{
	StepCreateBranch,
	StepGenerateCode,
	StepRunTests,
	StepCommitChanges,
	StepCreatePR,
	StepUpdateTicket,
}

// stepNames maps step ids to display names.
var stepNames = map[string]string{
	StepCreateBranch:  "Create branch",
	StepGenerateCode:  "Generate code",
	StepRunTests:      "Run tests",
	StepCommitChanges: "Commit changes",
	StepCreatePR:      "Create pull request",
	StepUpdateTicket:  "Update ticket",
}

// defaultSteps builds the full pending step sequence for a new workflow.
func defaultSteps() []WorkflowStep {
	steps := make([]WorkflowStep, 0, len(StepOrder))
	for _, id := range StepOrder {
		steps = append(steps, WorkflowStep{
			ID:     id,
			Name:   stepNames[id],
			Status: StepPending,
		})
	}
	return steps
}

// =============================================================================
// Step Results
// =============================================================================

// StepResult is the typed payload a step produces on success. Each result
// knows which step it belongs to and how to render itself into the generic
// metadata map kept on the persisted step.
type StepResult interface {
	// StepID returns the id of the step that produced the result.
	StepID() string

	// Metadata renders the result for persistence.
	Metadata() map[string]any
}

// BranchResult is the create-branch payload. The VCS client may resolve
// the request onto an existing branch of the same name; Branch is whatever
// it resolved.
type BranchResult struct {
	Branch string
}

func (r BranchResult) StepID() string { return StepCreateBranch }

func (r BranchResult) Metadata() map[string]any {
	return map[string]any{"branch": r.Branch}
}

// CodeGenResult is the generate-code payload.
type CodeGenResult struct {
	Files        []string // Workspace-relative implementation paths written
	TestFiles    []string // Workspace-relative test paths written
	FileType     string   // Inferred request file type
	Model        string
	InputTokens  int
	OutputTokens int
}

func (r CodeGenResult) StepID() string { return StepGenerateCode }

func (r CodeGenResult) Metadata() map[string]any {
	m := map[string]any{
		"files":     r.Files,
		"testFiles": r.TestFiles,
		"fileType":  r.FileType,
	}
	if r.Model != "" {
		m["model"] = r.Model
	}
	if r.InputTokens > 0 || r.OutputTokens > 0 {
		m["tokensIn"] = r.InputTokens
		m["tokensOut"] = r.OutputTokens
	}
	return m
}

// TestResult is the run-tests payload for a passing suite. A suite with
// failures never produces a TestResult; it raises TestFailureError instead.
type TestResult struct {
	Passed   int
	Failed   int
	Skipped  int
	Coverage float64 // 0 when the runner did not report coverage
}

func (r TestResult) StepID() string { return StepRunTests }

func (r TestResult) Metadata() map[string]any {
	m := map[string]any{
		"passed":  r.Passed,
		"failed":  r.Failed,
		"skipped": r.Skipped,
	}
	if r.Coverage > 0 {
		m["coverage"] = r.Coverage
	}
	return m
}

// CommitResult is the commit-changes payload.
type CommitResult struct {
	Hash  string
	Files int // Number of paths staged for the commit
}

func (r CommitResult) StepID() string { return StepCommitChanges }

func (r CommitResult) Metadata() map[string]any {
	return map[string]any{"commit": r.Hash, "files": r.Files}
}

// PRResult is the create-pr payload.
type PRResult struct {
	URL    string
	Branch string // Branch the pull request was opened from
}

func (r PRResult) StepID() string { return StepCreatePR }

func (r PRResult) Metadata() map[string]any {
	return map[string]any{"url": r.URL, "branch": r.Branch}
}

// TicketUpdateResult is the update-ticket payload.
type TicketUpdateResult struct {
	Commented    bool
	TransitionTo string // Status the ticket was moved to
}

func (r TicketUpdateResult) StepID() string { return StepUpdateTicket }

func (r TicketUpdateResult) Metadata() map[string]any {
	return map[string]any{
		"commented":  r.Commented,
		"transition": r.TransitionTo,
	}
}
