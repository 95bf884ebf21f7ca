package ticketflow

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

// ProgressStore is the authoritative record of workflow state: the only
// component that constructs or mutates the persisted representation of a
// DevelopmentWorkflow. It keeps an in-memory cache in front of a Storage
// backend and persists the whole workflow after every mutation.
//
// Writes follow load-mutate-persist with no version check. The engine's
// one-goroutine-per-workflow discipline plus the store mutex keep each
// workflow's persisted states observable in write order; concurrent
// external writers race last-write-wins on updatedAt.
type ProgressStore struct {
	storage Storage

	mu    sync.RWMutex
	cache map[string]*DevelopmentWorkflow
}

// NewProgressStore wraps the storage backend.
func NewProgressStore(storage Storage) *ProgressStore {
	return &ProgressStore{
		storage: storage,
		cache:   make(map[string]*DevelopmentWorkflow),
	}
}

// Create builds a new workflow for the ticket with every step pending,
// persists it, and returns a copy.
func (s *ProgressStore) Create(ctx context.Context, ticket Ticket) (DevelopmentWorkflow, error) {
	w, err := NewWorkflow(ticket)
	if err != nil {
		return DevelopmentWorkflow{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.storage.Save(ctx, w); err != nil {
		return DevelopmentWorkflow{}, err
	}
	s.cache[w.ID] = &w
	return w.Clone(), nil
}

// Get returns a copy of the workflow, reading through to storage on a
// cache miss.
func (s *ProgressStore) Get(ctx context.Context, id string) (DevelopmentWorkflow, error) {
	s.mu.RLock()
	if w, ok := s.cache[id]; ok {
		out := w.Clone()
		s.mu.RUnlock()
		return out, nil
	}
	s.mu.RUnlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	w, err := s.loadLocked(ctx, id)
	if err != nil {
		return DevelopmentWorkflow{}, err
	}
	return w.Clone(), nil
}

// UpdateStep applies a status transition to one step, merges the metadata
// patch, recomputes the derived workflow status, and persists the whole
// workflow. Returns the updated copy.
//
// When status is StepFailed the patch's "error" value is mirrored into the
// step's Error field. Completed create-branch and create-pr updates promote
// their branch / url metadata onto the workflow's BranchName and
// PullRequestURL fields.
func (s *ProgressStore) UpdateStep(ctx context.Context, workflowID, stepID string, status StepStatus, metadata map[string]any) (DevelopmentWorkflow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cached, err := s.loadLocked(ctx, workflowID)
	if err != nil {
		return DevelopmentWorkflow{}, err
	}

	w := cached.Clone()
	step, ok := w.Step(stepID)
	if !ok {
		return DevelopmentWorkflow{}, fmt.Errorf("step %s in workflow %s: %w", stepID, workflowID, ErrStepNotFound)
	}
	if !validStepTransition(step.Status, status) {
		return DevelopmentWorkflow{}, fmt.Errorf("step %s: %s -> %s: %w", stepID, step.Status, status, ErrInvalidTransition)
	}
	if status == StepInProgress && w.Status.Terminal() {
		return DevelopmentWorkflow{}, fmt.Errorf("workflow %s is %s: %w", workflowID, w.Status, ErrInvalidTransition)
	}

	step.applyStatus(status, time.Now())
	step.MergeMetadata(metadata)
	if status == StepFailed {
		if msg, ok := metadata["error"].(string); ok {
			step.Error = msg
		}
	}
	promoteStepFields(&w, step)
	w.refreshStatus(time.Now())

	if err := s.storage.Save(ctx, w); err != nil {
		return DevelopmentWorkflow{}, err
	}
	s.cache[workflowID] = &w
	return w.Clone(), nil
}

// promoteStepFields lifts step results that name workflow-level fields.
func promoteStepFields(w *DevelopmentWorkflow, step *WorkflowStep) {
	if step.Status != StepCompleted {
		return
	}
	switch step.ID {
	case StepCreateBranch:
		if b, ok := step.Metadata["branch"].(string); ok && b != "" {
			w.BranchName = b
		}
	case StepCreatePR:
		if u, ok := step.Metadata["url"].(string); ok && u != "" {
			w.PullRequestURL = u
		}
	}
}

// Complete marks the workflow finished: any step still pending is forced to
// completed (steps never reached are marked done rather than left dangling)
// and the derived status is recomputed. Calling it again on a completed
// workflow changes nothing.
func (s *ProgressStore) Complete(ctx context.Context, id string) (DevelopmentWorkflow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cached, err := s.loadLocked(ctx, id)
	if err != nil {
		return DevelopmentWorkflow{}, err
	}

	w := cached.Clone()
	now := time.Now()
	changed := false
	for i := range w.Steps {
		if w.Steps[i].Status == StepPending {
			w.Steps[i].applyStatus(StepCompleted, now)
			changed = true
		}
	}
	if !changed && w.Status == WorkflowCompleted {
		return w, nil
	}
	w.refreshStatus(now)

	if err := s.storage.Save(ctx, w); err != nil {
		return DevelopmentWorkflow{}, err
	}
	s.cache[id] = &w
	return w.Clone(), nil
}

// Fail marks the currently in-progress step (if any) as failed with the
// message, then forces the workflow status to failed even when no step was
// running — the manual/external cancellation path.
func (s *ProgressStore) Fail(ctx context.Context, id, errorMessage string) (DevelopmentWorkflow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cached, err := s.loadLocked(ctx, id)
	if err != nil {
		return DevelopmentWorkflow{}, err
	}

	w := cached.Clone()
	now := time.Now()
	if step, ok := w.InProgress(); ok {
		step.applyStatus(StepFailed, now)
		step.Error = errorMessage
	}
	w.refreshStatus(now)
	w.Status = WorkflowFailed

	if err := s.storage.Save(ctx, w); err != nil {
		return DevelopmentWorkflow{}, err
	}
	s.cache[id] = &w
	return w.Clone(), nil
}

// ListActive returns workflows with status pending or in-progress, most
// recently updated first.
func (s *ProgressStore) ListActive(ctx context.Context) ([]DevelopmentWorkflow, error) {
	all, err := s.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	var active []DevelopmentWorkflow
	for _, w := range all {
		if w.Status == WorkflowPending || w.Status == WorkflowInProgress {
			active = append(active, w)
		}
	}
	return active, nil
}

// ListAll returns every workflow, most recently updated first.
func (s *ProgressStore) ListAll(ctx context.Context) ([]DevelopmentWorkflow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, err := s.storage.LoadAll(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]DevelopmentWorkflow, 0, len(stored))
	seen := make(map[string]struct{}, len(stored))
	for _, w := range stored {
		seen[w.ID] = struct{}{}
		out = append(out, w.Clone())
		if _, ok := s.cache[w.ID]; !ok {
			cached := w
			s.cache[w.ID] = &cached
		}
	}
	// A freshly created workflow can be cached before a slow backend
	// lists it; include cache-only entries too.
	for id, c := range s.cache {
		if _, ok := seen[id]; !ok {
			out = append(out, c.Clone())
		}
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].UpdatedAt.After(out[j].UpdatedAt)
	})
	return out, nil
}

// Delete removes the workflow from cache and storage. Deleting an unknown
// id is not an error.
func (s *ProgressStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.cache, id)
	return s.storage.Delete(ctx, id)
}

// Close releases the underlying storage backend.
func (s *ProgressStore) Close() error {
	return s.storage.Close()
}

// loadLocked returns the cached workflow, reading through to storage on a
// miss. Callers must hold the write lock.
func (s *ProgressStore) loadLocked(ctx context.Context, id string) (*DevelopmentWorkflow, error) {
	if w, ok := s.cache[id]; ok {
		return w, nil
	}
	w, err := s.storage.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	s.cache[id] = &w
	return &w, nil
}
