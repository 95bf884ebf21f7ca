package ticketflow

import (
	"fmt"
	"strings"
	"time"

	nanoid "github.com/matoous/go-nanoid/v2"
)

// =============================================================================
// Ticket Type
// =============================================================================

// Ticket is a snapshot of the issue-tracker item driving a workflow.
// It is fetched once when the workflow starts and never re-fetched.
type Ticket struct {
	Key         string            `json:"key"`
	Summary     string            `json:"summary"`
	Description string            `json:"description,omitempty"`
	Status      string            `json:"status,omitempty"`
	Priority    string            `json:"priority,omitempty"`
	Type        string            `json:"type,omitempty"` // bug, feature, task, etc.
	Labels      []string          `json:"labels,omitempty"`
	Assignee    string            `json:"assignee,omitempty"`
	Reporter    string            `json:"reporter,omitempty"`
	URL         string            `json:"url,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

// =============================================================================
// Status Enums
// =============================================================================

// StepStatus is the lifecycle state of a single workflow step.
type StepStatus string

// Step statuses.
const (
	StepPending    StepStatus = "pending"
	StepInProgress StepStatus = "in-progress"
	StepCompleted  StepStatus = "completed"
	StepFailed     StepStatus = "failed"
)

// WorkflowStatus is the aggregate state of a workflow, derived from its steps.
type WorkflowStatus string

// Workflow statuses.
const (
	WorkflowPending    WorkflowStatus = "pending"
	WorkflowInProgress WorkflowStatus = "in-progress"
	WorkflowCompleted  WorkflowStatus = "completed"
	WorkflowFailed     WorkflowStatus = "failed"
)

// Terminal reports whether the status is final.
func (s WorkflowStatus) Terminal() bool {
	return s == WorkflowCompleted || s == WorkflowFailed
}

// =============================================================================
// WorkflowStep
// =============================================================================

// WorkflowStep is one named unit of work within a workflow. Steps run at
// most once per attempt and are individually retryable after failure.
type WorkflowStep struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	Status    StepStatus     `json:"status"`
	StartedAt *time.Time     `json:"startedAt,omitempty"`
	EndedAt   *time.Time     `json:"endedAt,omitempty"`
	Error     string         `json:"error,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// validStepTransition reports whether a step may move from one status to
// another. Same-status updates are allowed so callers can merge metadata
// idempotently. The only way out of failed is an explicit reset to pending.
func validStepTransition(from, to StepStatus) bool {
	if from == to {
		return true
	}
	switch from {
	case StepPending:
		return to == StepInProgress || to == StepCompleted
	case StepInProgress:
		return to == StepCompleted || to == StepFailed
	case StepFailed:
		return to == StepPending
	default: // StepCompleted is terminal
		return false
	}
}

// applyStatus transitions the step, stamping StartedAt on the first move
// into in-progress and EndedAt on the first move into completed or failed.
// Timestamps are never overwritten once set. A reset to pending clears the
// failed attempt's error and timestamps but keeps accumulated metadata.
func (s *WorkflowStep) applyStatus(status StepStatus, now time.Time) {
	switch status {
	case StepPending:
		s.StartedAt = nil
		s.EndedAt = nil
		s.Error = ""
	case StepInProgress:
		if s.StartedAt == nil {
			t := now
			s.StartedAt = &t
		}
	case StepCompleted, StepFailed:
		if s.EndedAt == nil {
			t := now
			s.EndedAt = &t
		}
	}
	s.Status = status
}

// MergeMetadata merges patch into the step's metadata. Keys absent from the
// patch keep their previously recorded values.
func (s *WorkflowStep) MergeMetadata(patch map[string]any) {
	if len(patch) == 0 {
		return
	}
	if s.Metadata == nil {
		s.Metadata = make(map[string]any, len(patch))
	}
	for k, v := range patch {
		s.Metadata[k] = v
	}
}

// clone returns a copy with its own metadata map and timestamp pointers.
func (s WorkflowStep) clone() WorkflowStep {
	out := s
	if s.StartedAt != nil {
		t := *s.StartedAt
		out.StartedAt = &t
	}
	if s.EndedAt != nil {
		t := *s.EndedAt
		out.EndedAt = &t
	}
	if s.Metadata != nil {
		out.Metadata = make(map[string]any, len(s.Metadata))
		for k, v := range s.Metadata {
			out.Metadata[k] = v
		}
	}
	return out
}

// =============================================================================
// DevelopmentWorkflow
// =============================================================================

// DevelopmentWorkflow is one end-to-end run of the fixed six-step pipeline
// for a single ticket. Its status is derived from the step statuses and is
// never set independently except by explicit completion or failure.
type DevelopmentWorkflow struct {
	ID             string         `json:"id"`
	Ticket         Ticket         `json:"ticket"`
	Steps          []WorkflowStep `json:"steps"`
	BranchName     string         `json:"branchName,omitempty"`
	PullRequestURL string         `json:"pullRequestUrl,omitempty"`
	Status         WorkflowStatus `json:"status"`
	CreatedAt      time.Time      `json:"createdAt"`
	UpdatedAt      time.Time      `json:"updatedAt"`
}

// NewWorkflow builds a workflow for the ticket with the full step sequence
// pending.
func NewWorkflow(ticket Ticket) (DevelopmentWorkflow, error) {
	id, err := generateWorkflowID(ticket.Key)
	if err != nil {
		return DevelopmentWorkflow{}, err
	}
	now := time.Now()
	return DevelopmentWorkflow{
		ID:        id,
		Ticket:    ticket,
		Steps:     defaultSteps(),
		Status:    WorkflowPending,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// Step returns a pointer to the step with the given id.
func (w *DevelopmentWorkflow) Step(stepID string) (*WorkflowStep, bool) {
	for i := range w.Steps {
		if w.Steps[i].ID == stepID {
			return &w.Steps[i], true
		}
	}
	return nil, false
}

// FirstPending returns the first step in array order that is still pending.
func (w *DevelopmentWorkflow) FirstPending() (*WorkflowStep, bool) {
	for i := range w.Steps {
		if w.Steps[i].Status == StepPending {
			return &w.Steps[i], true
		}
	}
	return nil, false
}

// InProgress returns the step currently in progress, if any.
func (w *DevelopmentWorkflow) InProgress() (*WorkflowStep, bool) {
	for i := range w.Steps {
		if w.Steps[i].Status == StepInProgress {
			return &w.Steps[i], true
		}
	}
	return nil, false
}

// refreshStatus recomputes the derived status and bumps updatedAt.
func (w *DevelopmentWorkflow) refreshStatus(now time.Time) {
	w.Status = computeStatus(w.Steps)
	w.touch(now)
}

// touch bumps updatedAt, keeping it monotonically non-decreasing.
func (w *DevelopmentWorkflow) touch(now time.Time) {
	if now.After(w.UpdatedAt) {
		w.UpdatedAt = now
	}
}

// computeStatus derives workflow status from step statuses: failed if any
// step failed, completed if all completed, in-progress if any step has
// started, pending otherwise.
func computeStatus(steps []WorkflowStep) WorkflowStatus {
	allCompleted := len(steps) > 0
	anyStarted := false
	for i := range steps {
		switch steps[i].Status {
		case StepFailed:
			return WorkflowFailed
		case StepCompleted:
			anyStarted = true
		case StepInProgress:
			anyStarted = true
			allCompleted = false
		default:
			allCompleted = false
		}
	}
	switch {
	case allCompleted:
		return WorkflowCompleted
	case anyStarted:
		return WorkflowInProgress
	default:
		return WorkflowPending
	}
}

// Clone returns a deep copy safe for callers to inspect or mutate without
// affecting the stored workflow.
func (w DevelopmentWorkflow) Clone() DevelopmentWorkflow {
	out := w
	out.Steps = make([]WorkflowStep, len(w.Steps))
	for i := range w.Steps {
		out.Steps[i] = w.Steps[i].clone()
	}
	if w.Ticket.Labels != nil {
		out.Ticket.Labels = append([]string(nil), w.Ticket.Labels...)
	}
	if w.Ticket.Metadata != nil {
		out.Ticket.Metadata = make(map[string]string, len(w.Ticket.Metadata))
		for k, v := range w.Ticket.Metadata {
			out.Ticket.Metadata[k] = v
		}
	}
	return out
}

// Summary returns a human-readable one-line description of the workflow.
func (w DevelopmentWorkflow) Summary() string {
	done := 0
	for i := range w.Steps {
		if w.Steps[i].Status == StepCompleted {
			done++
		}
	}
	return fmt.Sprintf("Workflow %s [%s]: %s (%d/%d steps)",
		w.ID, w.Status, w.Ticket.Key, done, len(w.Steps))
}

// =============================================================================
// Helper Functions
// =============================================================================

const workflowIDAlphabet = "0123456789abcdefghijklmnopqrstuvwxyz"

// generateWorkflowID creates a unique workflow id from the ticket key.
func generateWorkflowID(key string) (string, error) {
	suffix, err := nanoid.Generate(workflowIDAlphabet, 8)
	if err != nil {
		return "", fmt.Errorf("generate workflow id: %w", err)
	}
	date := time.Now().Format("2006-01-02")
	return fmt.Sprintf("%s-%s-%s", date, strings.ToLower(key), suffix), nil
}
