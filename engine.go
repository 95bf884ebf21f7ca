package ticketflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/randalmurphal/ticketflow/artifact"
)

// CancelMessage is recorded on the interrupted step when a workflow is
// cancelled.
const CancelMessage = "Cancelled by user"

// Engine drives development workflows: it creates them from tickets, runs
// their steps in order through a StepExecutor, persists every transition
// through a ProgressStore, and emits lifecycle events.
//
// All dependencies arrive through the constructor. An Engine is safe for
// concurrent use; each workflow runs at most one step chain at a time.
type Engine struct {
	services  Services
	store     *ProgressStore
	executor  *StepExecutor
	bus       *EventBus
	logger    *slog.Logger
	artifacts *artifact.Manager

	mu       sync.Mutex
	inFlight map[string]chan struct{}
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithEventBus sets the event bus workflow events are emitted on.
func WithEventBus(bus *EventBus) EngineOption {
	return func(e *Engine) { e.bus = bus }
}

// WithEngineLogger sets the structured logger.
func WithEngineLogger(logger *slog.Logger) EngineOption {
	return func(e *Engine) { e.logger = logger }
}

// WithArtifacts keeps per-run artifacts (step results, failures, final
// workflow state) in the given manager. Artifact write errors are logged,
// never fatal to the workflow.
func WithArtifacts(m *artifact.Manager) EngineOption {
	return func(e *Engine) { e.artifacts = m }
}

// NewEngine builds an engine from its collaborators. The services must be
// fully populated; store and executor are required.
func NewEngine(services Services, store *ProgressStore, executor *StepExecutor, opts ...EngineOption) (*Engine, error) {
	if err := services.Validate(); err != nil {
		return nil, err
	}
	if store == nil {
		return nil, errors.New("progress store is required")
	}
	if executor == nil {
		return nil, errors.New("step executor is required")
	}

	e := &Engine{
		services: services,
		store:    store,
		executor: executor,
		logger:   slog.Default(),
		inFlight: make(map[string]chan struct{}),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.bus == nil {
		e.bus = NewEventBus(e.logger)
	}
	return e, nil
}

// Events returns the bus workflow events are emitted on.
func (e *Engine) Events() *EventBus {
	return e.bus
}

// Store returns the progress store backing this engine.
func (e *Engine) Store() *ProgressStore {
	return e.store
}

// =============================================================================
// Workflow Operations
// =============================================================================

// StartDevelopmentWorkflow fetches the ticket, creates and persists a new
// workflow with all steps pending, emits the started event, and launches
// the step chain in the background. The returned workflow is the initial
// snapshot; progress is observed through events and the store.
//
// The chain outlives ctx: cancelling the caller's context does not stop a
// workflow once started. Use CancelWorkflow for that.
func (e *Engine) StartDevelopmentWorkflow(ctx context.Context, ticketKey string) (DevelopmentWorkflow, error) {
	ticket, err := e.services.Tickets.GetTicket(ctx, ticketKey)
	if err != nil {
		return DevelopmentWorkflow{}, fmt.Errorf("fetch ticket %s: %w", ticketKey, err)
	}

	w, err := e.store.Create(ctx, ticket)
	if err != nil {
		return DevelopmentWorkflow{}, err
	}

	done, err := e.track(w.ID)
	if err != nil {
		return DevelopmentWorkflow{}, err
	}

	e.bus.Emit(Event{
		Type:       EventStarted,
		WorkflowID: w.ID,
		Message:    fmt.Sprintf("workflow started for %s", ticket.Key),
		Data:       map[string]any{"ticket": ticket.Key, "summary": ticket.Summary},
	})

	go e.runChain(context.WithoutCancel(ctx), w.ID, done)

	return w, nil
}

// ProcessWorkflowSteps runs the workflow's pending steps in order until it
// completes, a step fails, or ctx is cancelled. Terminal workflows are left
// untouched. Returns ErrWorkflowRunning if a chain is already active for
// this workflow.
func (e *Engine) ProcessWorkflowSteps(ctx context.Context, workflowID string) error {
	done, err := e.track(workflowID)
	if err != nil {
		return err
	}
	defer e.untrack(workflowID, done)

	return e.processSteps(ctx, workflowID)
}

// RetryFailedStep resets the named failed step to pending and resumes the
// step chain synchronously. The step keeps its metadata but loses its error
// and timestamps. Returns the workflow after the chain stops; if the chain
// fails again the step error is returned.
func (e *Engine) RetryFailedStep(ctx context.Context, workflowID, stepID string) (DevelopmentWorkflow, error) {
	done, err := e.track(workflowID)
	if err != nil {
		return DevelopmentWorkflow{}, err
	}
	defer e.untrack(workflowID, done)

	w, err := e.store.Get(ctx, workflowID)
	if err != nil {
		return DevelopmentWorkflow{}, err
	}
	step, ok := w.Step(stepID)
	if !ok {
		return DevelopmentWorkflow{}, fmt.Errorf("step %s in workflow %s: %w", stepID, workflowID, ErrStepNotFound)
	}
	if step.Status != StepFailed {
		return DevelopmentWorkflow{}, fmt.Errorf("step %s is %s: %w", stepID, step.Status, ErrStepNotFailed)
	}

	if _, err := e.store.UpdateStep(ctx, workflowID, stepID, StepPending, nil); err != nil {
		return DevelopmentWorkflow{}, err
	}

	if err := e.processSteps(ctx, workflowID); err != nil {
		return DevelopmentWorkflow{}, err
	}
	return e.store.Get(ctx, workflowID)
}

// CancelWorkflow stops a running workflow: the in-progress step (if any) is
// marked failed with CancelMessage and the workflow becomes failed. The
// chain observes the terminal status at its next iteration; a step that is
// mid-flight may still record its own outcome first. Cancelling a workflow
// that already reached a terminal status returns it unchanged.
func (e *Engine) CancelWorkflow(ctx context.Context, workflowID string) (DevelopmentWorkflow, error) {
	current, err := e.store.Get(ctx, workflowID)
	if err != nil {
		return DevelopmentWorkflow{}, err
	}
	if current.Status.Terminal() {
		return current, nil
	}

	var stepID string
	if step, ok := current.InProgress(); ok {
		stepID = step.ID
	}

	w, err := e.store.Fail(ctx, workflowID, CancelMessage)
	if err != nil {
		return DevelopmentWorkflow{}, err
	}
	e.archiveWorkflow(w)

	e.bus.Emit(Event{
		Type:       EventFailed,
		WorkflowID: workflowID,
		StepID:     stepID,
		Message:    CancelMessage,
	})
	return w, nil
}

// Wait blocks until the active step chain for the workflow exits. Returns
// immediately if none is running.
func (e *Engine) Wait(workflowID string) {
	e.mu.Lock()
	done, ok := e.inFlight[workflowID]
	e.mu.Unlock()
	if ok {
		<-done
	}
}

// =============================================================================
// Step Chain
// =============================================================================

// runChain is the background wrapper around processSteps. Panics in steps
// or listeners are converted into a workflow failure instead of crashing
// the process.
func (e *Engine) runChain(ctx context.Context, workflowID string, done chan struct{}) {
	defer e.untrack(workflowID, done)
	defer func() {
		if r := recover(); r != nil {
			e.recordFailure(ctx, workflowID, "", fmt.Errorf("step chain panic: %v", r))
		}
	}()

	if err := e.processSteps(ctx, workflowID); err != nil {
		e.logger.Error("workflow halted",
			"workflow_id", workflowID,
			"error", err,
		)
	}
}

// processSteps is the chain core: an explicit loop that reloads the
// workflow, picks the first pending step, and runs it, until no pending
// steps remain or the workflow fails. Reloading each iteration keeps the
// loop honest about concurrent cancellation.
func (e *Engine) processSteps(ctx context.Context, workflowID string) error {
	w, err := e.store.Get(ctx, workflowID)
	if err != nil {
		return err
	}
	if w.Status.Terminal() {
		return nil
	}

	for {
		if err := ctx.Err(); err != nil {
			return e.recordFailure(ctx, workflowID, "", fmt.Errorf("workflow interrupted: %w", err))
		}

		w, err := e.store.Get(ctx, workflowID)
		if err != nil {
			return err
		}
		if w.Status == WorkflowFailed {
			return nil
		}

		step, ok := w.FirstPending()
		if !ok {
			completed, err := e.store.Complete(ctx, workflowID)
			if err != nil {
				return err
			}
			e.archiveWorkflow(completed)
			e.bus.Emit(Event{
				Type:       EventCompleted,
				WorkflowID: workflowID,
				Message:    fmt.Sprintf("workflow completed for %s", completed.Ticket.Key),
				Data:       map[string]any{"pullRequestUrl": completed.PullRequestURL},
			})
			return nil
		}

		if err := e.runStep(ctx, w, step.ID); err != nil {
			return err
		}
	}
}

// runStep executes a single step: in-progress, execute, then completed or
// failed with the error recorded. A cancellation that lands while the step
// runs wins; the step's late result is discarded.
func (e *Engine) runStep(ctx context.Context, w DevelopmentWorkflow, stepID string) error {
	if _, err := e.store.UpdateStep(ctx, w.ID, stepID, StepInProgress, nil); err != nil {
		if errors.Is(err, ErrInvalidTransition) {
			e.logger.Debug("step start rejected",
				"workflow_id", w.ID,
				"step_id", stepID,
				"error", err,
			)
			return nil
		}
		return e.recordFailure(ctx, w.ID, stepID, err)
	}

	result, err := e.executor.Execute(ctx, w, stepID)
	if err != nil {
		return e.failStep(ctx, w.ID, stepID, err)
	}

	metadata := result.Metadata()
	e.archiveStepResult(w.ID, stepID, metadata)
	if _, err := e.store.UpdateStep(ctx, w.ID, stepID, StepCompleted, metadata); err != nil {
		if errors.Is(err, ErrInvalidTransition) {
			e.logger.Debug("late step completion discarded",
				"workflow_id", w.ID,
				"step_id", stepID,
			)
			return nil
		}
		return e.recordFailure(ctx, w.ID, stepID, err)
	}

	e.bus.Emit(Event{
		Type:       EventStepCompleted,
		WorkflowID: w.ID,
		StepID:     stepID,
		Message:    fmt.Sprintf("%s completed", stepNames[stepID]),
		Data:       metadata,
	})
	return nil
}

// failStep records a step failure and emits both the step-failed and
// failed events. The workflow's failed status derives from the step.
func (e *Engine) failStep(ctx context.Context, workflowID, stepID string, cause error) error {
	stepErr := &StepError{WorkflowID: workflowID, StepID: stepID, Err: cause}

	if _, err := e.store.UpdateStep(ctx, workflowID, stepID, StepFailed, map[string]any{"error": cause.Error()}); err != nil {
		e.logger.Error("record step failure",
			"workflow_id", workflowID,
			"step_id", stepID,
			"error", err,
		)
	}
	e.archiveStepError(workflowID, stepID, cause)
	if failed, err := e.store.Get(context.WithoutCancel(ctx), workflowID); err == nil {
		e.archiveWorkflow(failed)
	}

	e.bus.Emit(Event{
		Type:       EventStepFailed,
		WorkflowID: workflowID,
		StepID:     stepID,
		Message:    cause.Error(),
		Err:        cause,
	})
	e.bus.Emit(Event{
		Type:       EventFailed,
		WorkflowID: workflowID,
		StepID:     stepID,
		Message:    stepErr.Error(),
		Err:        stepErr,
	})
	return stepErr
}

// recordFailure marks the workflow failed for chain-level errors that are
// not tied to a step outcome (panics, storage faults, interrupted context)
// and emits the failed event. The chain context may already be cancelled,
// so the failure record is written with a detached context.
func (e *Engine) recordFailure(ctx context.Context, workflowID, stepID string, cause error) error {
	if failed, err := e.store.Fail(context.WithoutCancel(ctx), workflowID, cause.Error()); err != nil {
		e.logger.Error("record workflow failure",
			"workflow_id", workflowID,
			"error", err,
		)
	} else {
		e.archiveWorkflow(failed)
	}
	e.bus.Emit(Event{
		Type:       EventFailed,
		WorkflowID: workflowID,
		StepID:     stepID,
		Message:    cause.Error(),
		Err:        cause,
	})
	return cause
}

// =============================================================================
// Artifacts
// =============================================================================

// archiveStepResult keeps a completed step's metadata as a run artifact.
func (e *Engine) archiveStepResult(workflowID, stepID string, metadata map[string]any) {
	if e.artifacts == nil || len(metadata) == 0 {
		return
	}
	if err := e.artifacts.SaveStepResult(workflowID, stepID, metadata); err != nil {
		e.logger.Warn("save step artifact",
			"workflow_id", workflowID,
			"step_id", stepID,
			"error", err,
		)
	}
}

// archiveStepError keeps a failed step's error text as a run artifact.
func (e *Engine) archiveStepError(workflowID, stepID string, cause error) {
	if e.artifacts == nil {
		return
	}
	if err := e.artifacts.SaveStepError(workflowID, stepID, cause.Error()); err != nil {
		e.logger.Warn("save step error artifact",
			"workflow_id", workflowID,
			"step_id", stepID,
			"error", err,
		)
	}
}

// archiveWorkflow snapshots a terminal workflow and writes the run
// metadata the retention pass keys off.
func (e *Engine) archiveWorkflow(w DevelopmentWorkflow) {
	if e.artifacts == nil {
		return
	}
	if err := e.artifacts.SaveJSON(w.ID, artifact.ArtifactWorkflow, w); err != nil {
		e.logger.Warn("save workflow artifact", "workflow_id", w.ID, "error", err)
	}
	endedAt := w.UpdatedAt
	if endedAt.IsZero() {
		endedAt = time.Now()
	}
	if err := e.artifacts.WriteRunMetadata(w.ID, string(w.Status), endedAt); err != nil {
		e.logger.Warn("write run metadata", "workflow_id", w.ID, "error", err)
	}
}

// =============================================================================
// In-Flight Tracking
// =============================================================================

// track registers a running chain for the workflow. At most one chain may
// run per workflow at a time.
func (e *Engine) track(workflowID string) (chan struct{}, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, running := e.inFlight[workflowID]; running {
		return nil, fmt.Errorf("workflow %s: %w", workflowID, ErrWorkflowRunning)
	}
	done := make(chan struct{})
	e.inFlight[workflowID] = done
	return done, nil
}

func (e *Engine) untrack(workflowID string, done chan struct{}) {
	e.mu.Lock()
	delete(e.inFlight, workflowID)
	e.mu.Unlock()
	close(done)
}
