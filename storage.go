package ticketflow

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Storage persists workflows durably. Implementations store whole-workflow
// records; filtering and ordering happen in ProgressStore.
type Storage interface {
	// Save writes the complete workflow, replacing any previous record.
	Save(ctx context.Context, w DevelopmentWorkflow) error

	// Load reads one workflow. Returns ErrWorkflowNotFound if absent.
	Load(ctx context.Context, id string) (DevelopmentWorkflow, error)

	// LoadAll reads every stored workflow, in unspecified order.
	LoadAll(ctx context.Context) ([]DevelopmentWorkflow, error)

	// Delete removes a workflow; absent ids are not an error.
	Delete(ctx context.Context, id string) error

	// Close releases resources held by the backend.
	Close() error
}

// =============================================================================
// FileStorage
// =============================================================================

// FileStorage stores each workflow as an indented JSON file under a base
// directory.
type FileStorage struct {
	dir string
}

// NewFileStorage creates the storage directory if needed.
func NewFileStorage(baseDir string) (*FileStorage, error) {
	dir := filepath.Join(baseDir, "workflows")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, &StorageError{Op: "init", Err: err}
	}
	return &FileStorage{dir: dir}, nil
}

// Dir returns the directory workflow files are written to.
func (s *FileStorage) Dir() string {
	return s.dir
}

func (s *FileStorage) path(id string) string {
	return filepath.Join(s.dir, id+".json")
}

// Save implements Storage.
func (s *FileStorage) Save(ctx context.Context, w DevelopmentWorkflow) error {
	data, err := json.MarshalIndent(w, "", "  ")
	if err != nil {
		return &StorageError{Op: "save", WorkflowID: w.ID, Err: err}
	}
	if err := os.WriteFile(s.path(w.ID), data, 0644); err != nil {
		return &StorageError{Op: "save", WorkflowID: w.ID, Err: err}
	}
	return nil
}

// Load implements Storage.
func (s *FileStorage) Load(ctx context.Context, id string) (DevelopmentWorkflow, error) {
	data, err := os.ReadFile(s.path(id))
	if err != nil {
		if os.IsNotExist(err) {
			return DevelopmentWorkflow{}, fmt.Errorf("load %s: %w", id, ErrWorkflowNotFound)
		}
		return DevelopmentWorkflow{}, &StorageError{Op: "load", WorkflowID: id, Err: err}
	}
	var w DevelopmentWorkflow
	if err := json.Unmarshal(data, &w); err != nil {
		return DevelopmentWorkflow{}, &StorageError{Op: "load", WorkflowID: id, Err: err}
	}
	return w, nil
}

// LoadAll implements Storage. Files that fail to parse are skipped.
func (s *FileStorage) LoadAll(ctx context.Context) ([]DevelopmentWorkflow, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, &StorageError{Op: "list", Err: err}
	}

	var out []DevelopmentWorkflow
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		id := strings.TrimSuffix(entry.Name(), ".json")
		w, err := s.Load(ctx, id)
		if err != nil {
			continue
		}
		out = append(out, w)
	}
	return out, nil
}

// Delete implements Storage; deleting an absent workflow is a no-op.
func (s *FileStorage) Delete(ctx context.Context, id string) error {
	if err := os.Remove(s.path(id)); err != nil && !os.IsNotExist(err) {
		return &StorageError{Op: "delete", WorkflowID: id, Err: err}
	}
	return nil
}

// Close implements Storage.
func (s *FileStorage) Close() error {
	return nil
}
