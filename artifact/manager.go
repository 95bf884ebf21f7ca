package artifact

import (
	"bytes"
	"compress/gzip"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// Artifact errors
var (
	// ErrArtifactNotFound indicates the requested artifact does not exist.
	ErrArtifactNotFound = errors.New("artifact not found")
)

// Config configures the artifact manager.
type Config struct {
	BaseDir       string // Base directory (default: ".ticketflow")
	CompressAbove int64  // Compress artifacts larger than this (default: 256KB)
}

// Manager saves and loads per-workflow artifacts: step results, test
// output, generated files, the rendered PR body. Artifacts live under
// <base>/runs/<workflowID>/.
type Manager struct {
	baseDir       string
	compressAbove int64
}

// Info describes a stored artifact.
type Info struct {
	Name       string    `json:"name"`
	Size       int64     `json:"size"`
	Compressed bool      `json:"compressed"`
	ModTime    time.Time `json:"modTime"`
}

// Well-known artifact names.
const (
	ArtifactWorkflow   = "workflow.json"
	ArtifactTestOutput = "test-output.txt"
	ArtifactPRBody     = "pr-body.md"
)

// NewManager creates an artifact manager.
func NewManager(cfg Config) *Manager {
	baseDir := cfg.BaseDir
	if baseDir == "" {
		baseDir = ".ticketflow"
	}
	compressAbove := cfg.CompressAbove
	if compressAbove == 0 {
		compressAbove = 256 * 1024
	}
	return &Manager{
		baseDir:       baseDir,
		compressAbove: compressAbove,
	}
}

// BaseDir returns the base directory.
func (m *Manager) BaseDir() string {
	return m.baseDir
}

// RunDir returns the directory for a workflow's run.
func (m *Manager) RunDir(workflowID string) string {
	return filepath.Join(m.baseDir, "runs", workflowID)
}

// ArtifactDir returns the artifact directory for a workflow.
func (m *Manager) ArtifactDir(workflowID string) string {
	return filepath.Join(m.RunDir(workflowID), "artifacts")
}

// FilesDir returns the generated-files directory for a workflow.
func (m *Manager) FilesDir(workflowID string) string {
	return filepath.Join(m.RunDir(workflowID), "files")
}

// Save stores an artifact, compressing it when it exceeds the threshold
// and the name looks like text.
func (m *Manager) Save(workflowID, name string, data []byte) error {
	dir := m.ArtifactDir(workflowID)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create artifact dir: %w", err)
	}

	path := filepath.Join(dir, name)
	if compressible(name) && int64(len(data)) > m.compressAbove {
		return saveCompressed(path+".gz", data)
	}
	return os.WriteFile(path, data, 0644)
}

// Load reads an artifact, transparently decompressing when it was stored
// compressed. Returns ErrArtifactNotFound when neither form exists.
func (m *Manager) Load(workflowID, name string) ([]byte, error) {
	path := filepath.Join(m.ArtifactDir(workflowID), name)

	data, err := os.ReadFile(path)
	if err == nil {
		return data, nil
	}
	if !os.IsNotExist(err) {
		return nil, err
	}

	data, err = loadCompressed(path + ".gz")
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%s/%s: %w", workflowID, name, ErrArtifactNotFound)
		}
		return nil, err
	}
	return data, nil
}

// Has reports whether the artifact exists in either form.
func (m *Manager) Has(workflowID, name string) bool {
	path := filepath.Join(m.ArtifactDir(workflowID), name)
	if _, err := os.Stat(path); err == nil {
		return true
	}
	_, err := os.Stat(path + ".gz")
	return err == nil
}

// Delete removes an artifact. Idempotent.
func (m *Manager) Delete(workflowID, name string) error {
	path := filepath.Join(m.ArtifactDir(workflowID), name)
	for _, p := range []string{path, path + ".gz"} {
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			return err
		}
	}
	return nil
}

// List returns all artifacts for a workflow, sorted by name.
func (m *Manager) List(workflowID string) ([]Info, error) {
	entries, err := os.ReadDir(m.ArtifactDir(workflowID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var infos []Info
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		fi, err := entry.Info()
		if err != nil {
			continue
		}
		name := entry.Name()
		compressed := strings.HasSuffix(name, ".gz")
		if compressed {
			name = strings.TrimSuffix(name, ".gz")
		}
		infos = append(infos, Info{
			Name:       name,
			Size:       fi.Size(),
			Compressed: compressed,
			ModTime:    fi.ModTime(),
		})
	}

	sort.Slice(infos, func(i, j int) bool { return infos[i].Name < infos[j].Name })
	return infos, nil
}

// SaveJSON marshals v and stores it under name.
func (m *Manager) SaveJSON(workflowID, name string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", name, err)
	}
	return m.Save(workflowID, name, data)
}

// LoadJSON reads an artifact and unmarshals it into v.
func (m *Manager) LoadJSON(workflowID, name string, v any) error {
	data, err := m.Load(workflowID, name)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}

// =============================================================================
// Pipeline Artifacts
// =============================================================================

// StepResultName returns the artifact name for a step's result payload.
func StepResultName(stepID string) string {
	return "step-" + stepID + ".json"
}

// StepErrorName returns the artifact name for a step's failure text.
func StepErrorName(stepID string) string {
	return "step-" + stepID + ".error.txt"
}

// SaveStepResult stores a completed step's result metadata.
func (m *Manager) SaveStepResult(workflowID, stepID string, metadata map[string]any) error {
	return m.SaveJSON(workflowID, StepResultName(stepID), metadata)
}

// LoadStepResult reads a step's stored result metadata.
func (m *Manager) LoadStepResult(workflowID, stepID string) (map[string]any, error) {
	var metadata map[string]any
	if err := m.LoadJSON(workflowID, StepResultName(stepID), &metadata); err != nil {
		return nil, err
	}
	return metadata, nil
}

// SaveStepError stores a failed step's error text.
func (m *Manager) SaveStepError(workflowID, stepID, message string) error {
	return m.Save(workflowID, StepErrorName(stepID), []byte(message))
}

// SaveTestOutput stores the raw test-runner output.
func (m *Manager) SaveTestOutput(workflowID, output string) error {
	return m.Save(workflowID, ArtifactTestOutput, []byte(output))
}

// LoadTestOutput reads the raw test-runner output.
func (m *Manager) LoadTestOutput(workflowID string) (string, error) {
	data, err := m.Load(workflowID, ArtifactTestOutput)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// SaveGeneratedFile keeps a copy of one generated file under the run's
// files directory, preserving its workspace-relative path.
func (m *Manager) SaveGeneratedFile(workflowID, relPath string, content []byte) error {
	if !filepath.IsLocal(relPath) {
		return fmt.Errorf("file path %q escapes the run directory", relPath)
	}
	path := filepath.Join(m.FilesDir(workflowID), relPath)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create files dir: %w", err)
	}
	return os.WriteFile(path, content, 0644)
}

// ListGeneratedFiles returns the relative paths of all kept file copies.
func (m *Manager) ListGeneratedFiles(workflowID string) ([]string, error) {
	root := m.FilesDir(workflowID)
	var files []string
	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		files = append(files, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	sort.Strings(files)
	return files, nil
}

// WriteRunMetadata records the run's terminal state for retention
// decisions (see LifecycleManager).
func (m *Manager) WriteRunMetadata(workflowID, status string, endedAt time.Time) error {
	dir := m.RunDir(workflowID)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create run dir: %w", err)
	}
	meta := workflowMeta{Status: status, EndedAt: endedAt}
	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, "metadata.json"), data, 0644)
}

// =============================================================================
// Compression
// =============================================================================

// compressible reports whether the artifact is text worth gzipping.
func compressible(name string) bool {
	switch filepath.Ext(name) {
	case ".txt", ".log", ".json", ".md", ".diff", ".patch":
		return true
	}
	return false
}

func saveCompressed(path string, data []byte) error {
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write(data); err != nil {
		return err
	}
	if err := zw.Close(); err != nil {
		return err
	}
	return os.WriteFile(path, buf.Bytes(), 0644)
}

func loadCompressed(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	zr, err := gzip.NewReader(f)
	if err != nil {
		return nil, err
	}
	defer zr.Close()

	return io.ReadAll(zr)
}
