package integrationtest

import (
	"path/filepath"
	"sync"
	"testing"

	ticketflow "github.com/randalmurphal/ticketflow"
)

// eventRecorder collects engine events across goroutines.
type eventRecorder struct {
	mu     sync.Mutex
	events []ticketflow.Event
}

func (r *eventRecorder) listener() ticketflow.Listener {
	return func(event ticketflow.Event) error {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.events = append(r.events, event)
		return nil
	}
}

func (r *eventRecorder) all() []ticketflow.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]ticketflow.Event(nil), r.events...)
}

func (r *eventRecorder) types() []ticketflow.EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	types := make([]ticketflow.EventType, len(r.events))
	for i, e := range r.events {
		types[i] = e.Type
	}
	return types
}

// testEngine bundles an engine over file storage with an event recorder.
type testEngine struct {
	engine    *ticketflow.Engine
	store     *ticketflow.ProgressStore
	recorder  *eventRecorder
	workspace string
}

// newTestEngine wires an engine from the given services, persisting to a
// temp directory. Extra options are passed through to NewEngine.
func newTestEngine(t *testing.T, services ticketflow.Services, opts ...ticketflow.EngineOption) *testEngine {
	t.Helper()

	baseDir := t.TempDir()
	storage, err := ticketflow.NewFileStorage(filepath.Join(baseDir, "workflows"))
	if err != nil {
		t.Fatalf("NewFileStorage: %v", err)
	}
	store := ticketflow.NewProgressStore(storage)

	workspace := filepath.Join(baseDir, "workspace")
	executor := ticketflow.NewStepExecutor(services, workspace)

	engine, err := ticketflow.NewEngine(services, store, executor, opts...)
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}

	recorder := &eventRecorder{}
	engine.Events().AddListener(recorder.listener())

	return &testEngine{
		engine:    engine,
		store:     store,
		recorder:  recorder,
		workspace: workspace,
	}
}
