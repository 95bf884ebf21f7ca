package ticketflow

import (
	"errors"
	"fmt"
)

// Lookup errors
var (
	// ErrWorkflowNotFound indicates the workflow id is unknown to the store.
	ErrWorkflowNotFound = errors.New("workflow not found")

	// ErrStepNotFound indicates the step id is not part of the workflow.
	ErrStepNotFound = errors.New("step not found")
)

// State errors
var (
	// ErrStepNotFailed indicates a retry was requested for a step that is not failed.
	ErrStepNotFailed = errors.New("step is not in failed state")

	// ErrInvalidTransition indicates a step status change that the state
	// machine does not allow.
	ErrInvalidTransition = errors.New("invalid step status transition")

	// ErrWorkflowRunning indicates the workflow's step chain is already executing.
	ErrWorkflowRunning = errors.New("workflow is already running")
)

// Step execution errors
var (
	// ErrNoChanges indicates the workspace has no changes to commit.
	ErrNoChanges = errors.New("no changes to commit")

	// ErrNoFilesGenerated indicates the code generator returned no files.
	ErrNoFilesGenerated = errors.New("code generator returned no files")
)

// Collaborator errors
var (
	// ErrTicketNotFound indicates the ticket key does not exist in the tracker.
	ErrTicketNotFound = errors.New("ticket not found")

	// ErrUnauthorized indicates the tracker rejected the configured credentials.
	ErrUnauthorized = errors.New("unauthorized")
)

// StepError wraps a collaborator failure with workflow context.
type StepError struct {
	WorkflowID string // Workflow the step belongs to
	StepID     string // Step that was executing (e.g., "create-branch")
	Err        error  // Underlying collaborator error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("step %s: %v", e.StepID, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}

// TestFailureError is raised by the run-tests step when the suite reports
// failures. It carries the counts and the generated improvement suggestions
// so callers can surface both.
type TestFailureError struct {
	Passed      int
	Failed      int
	Skipped     int
	Suggestions string
}

func (e *TestFailureError) Error() string {
	msg := fmt.Sprintf("%d test(s) failed, %d passed", e.Failed, e.Passed)
	if e.Suggestions != "" {
		msg += "\n\nSuggested fixes:\n" + e.Suggestions
	}
	return msg
}

// StorageError wraps a persistence failure with operation context.
type StorageError struct {
	Op         string // Operation that failed (e.g., "save", "load")
	WorkflowID string // Workflow id, if known
	Err        error  // Underlying error
}

func (e *StorageError) Error() string {
	if e.WorkflowID != "" {
		return fmt.Sprintf("storage %s %s: %v", e.Op, e.WorkflowID, e.Err)
	}
	return fmt.Sprintf("storage %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}
