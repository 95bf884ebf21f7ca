package artifact

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestNewManager_Defaults(t *testing.T) {
	m := NewManager(Config{})

	if m.baseDir != ".ticketflow" {
		t.Errorf("baseDir = %q, want %q", m.baseDir, ".ticketflow")
	}
	if m.compressAbove != 256*1024 {
		t.Errorf("compressAbove = %d, want %d", m.compressAbove, 256*1024)
	}
}

func TestManager_SaveLoad(t *testing.T) {
	dir := t.TempDir()
	m := NewManager(Config{BaseDir: dir})

	workflowID := "2026-08-28-proj-1-abc123"
	content := []byte("## Pull Request\n\nAdds the health endpoint.")

	if err := m.Save(workflowID, ArtifactPRBody, content); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := m.Load(workflowID, ArtifactPRBody)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if string(loaded) != string(content) {
		t.Errorf("content mismatch:\ngot:  %q\nwant: %q", loaded, content)
	}
}

func TestManager_Load_NotFound(t *testing.T) {
	m := NewManager(Config{BaseDir: t.TempDir()})

	_, err := m.Load("2026-08-28-proj-1-abc123", "missing.txt")
	if !errors.Is(err, ErrArtifactNotFound) {
		t.Errorf("err = %v, want ErrArtifactNotFound", err)
	}
}

func TestManager_Compression(t *testing.T) {
	dir := t.TempDir()
	m := NewManager(Config{BaseDir: dir, CompressAbove: 100})

	workflowID := "2026-08-28-proj-1-abc123"
	content := []byte(strings.Repeat("=== RUN   TestHealth\n--- PASS: TestHealth\n", 20))

	if err := m.SaveTestOutput(workflowID, string(content)); err != nil {
		t.Fatalf("SaveTestOutput: %v", err)
	}

	compressedPath := filepath.Join(dir, "runs", workflowID, "artifacts", ArtifactTestOutput+".gz")
	if _, err := os.Stat(compressedPath); err != nil {
		t.Fatalf("compressed artifact should exist: %v", err)
	}

	loaded, err := m.LoadTestOutput(workflowID)
	if err != nil {
		t.Fatalf("LoadTestOutput: %v", err)
	}
	if loaded != string(content) {
		t.Error("content mismatch after compression roundtrip")
	}
}

func TestManager_StepResultRoundTrip(t *testing.T) {
	m := NewManager(Config{BaseDir: t.TempDir()})

	workflowID := "2026-08-28-proj-1-abc123"
	metadata := map[string]any{
		"branch": "feature/proj-1-add-health-endpoint",
	}

	if err := m.SaveStepResult(workflowID, "create-branch", metadata); err != nil {
		t.Fatalf("SaveStepResult: %v", err)
	}

	loaded, err := m.LoadStepResult(workflowID, "create-branch")
	if err != nil {
		t.Fatalf("LoadStepResult: %v", err)
	}
	if loaded["branch"] != "feature/proj-1-add-health-endpoint" {
		t.Errorf("branch = %v", loaded["branch"])
	}
}

func TestManager_List(t *testing.T) {
	m := NewManager(Config{BaseDir: t.TempDir()})
	workflowID := "2026-08-28-proj-1-abc123"

	if err := m.Save(workflowID, "step-create-branch.json", []byte("{}")); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := m.Save(workflowID, ArtifactPRBody, []byte("body")); err != nil {
		t.Fatalf("Save: %v", err)
	}

	infos, err := m.List(workflowID)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(infos) != 2 {
		t.Fatalf("len(infos) = %d, want 2", len(infos))
	}
	// Sorted by name.
	if infos[0].Name != ArtifactPRBody || infos[1].Name != "step-create-branch.json" {
		t.Errorf("names = %q, %q", infos[0].Name, infos[1].Name)
	}
}

func TestManager_List_NoRun(t *testing.T) {
	m := NewManager(Config{BaseDir: t.TempDir()})

	infos, err := m.List("nope")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(infos) != 0 {
		t.Errorf("infos = %v, want empty", infos)
	}
}

func TestManager_HasDelete(t *testing.T) {
	m := NewManager(Config{BaseDir: t.TempDir()})
	workflowID := "2026-08-28-proj-1-abc123"

	if m.Has(workflowID, "x.txt") {
		t.Error("Has should be false before save")
	}
	if err := m.Save(workflowID, "x.txt", []byte("x")); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if !m.Has(workflowID, "x.txt") {
		t.Error("Has should be true after save")
	}
	if err := m.Delete(workflowID, "x.txt"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if m.Has(workflowID, "x.txt") {
		t.Error("Has should be false after delete")
	}
	// Idempotent.
	if err := m.Delete(workflowID, "x.txt"); err != nil {
		t.Fatalf("second Delete: %v", err)
	}
}

func TestManager_GeneratedFiles(t *testing.T) {
	m := NewManager(Config{BaseDir: t.TempDir()})
	workflowID := "2026-08-28-proj-1-abc123"

	if err := m.SaveGeneratedFile(workflowID, "internal/health/handler.go", []byte("package health")); err != nil {
		t.Fatalf("SaveGeneratedFile: %v", err)
	}
	if err := m.SaveGeneratedFile(workflowID, "internal/health/handler_test.go", []byte("package health")); err != nil {
		t.Fatalf("SaveGeneratedFile: %v", err)
	}

	files, err := m.ListGeneratedFiles(workflowID)
	if err != nil {
		t.Fatalf("ListGeneratedFiles: %v", err)
	}
	want := []string{"internal/health/handler.go", "internal/health/handler_test.go"}
	if len(files) != len(want) {
		t.Fatalf("files = %v, want %v", files, want)
	}
	for i := range want {
		if files[i] != want[i] {
			t.Errorf("files[%d] = %q, want %q", i, files[i], want[i])
		}
	}
}

func TestManager_SaveGeneratedFile_RejectsEscape(t *testing.T) {
	m := NewManager(Config{BaseDir: t.TempDir()})

	err := m.SaveGeneratedFile("wf", "../outside.go", []byte("nope"))
	if err == nil {
		t.Fatal("expected error for path escaping the run directory")
	}
}

func TestManager_WriteRunMetadata(t *testing.T) {
	dir := t.TempDir()
	m := NewManager(Config{BaseDir: dir})
	workflowID := "2026-08-28-proj-1-abc123"

	endedAt := time.Now().Add(-time.Hour)
	if err := m.WriteRunMetadata(workflowID, "completed", endedAt); err != nil {
		t.Fatalf("WriteRunMetadata: %v", err)
	}

	meta, err := loadRunMetadataFromDir(m.RunDir(workflowID))
	if err != nil {
		t.Fatalf("loadRunMetadataFromDir: %v", err)
	}
	if meta.Status != "completed" {
		t.Errorf("Status = %q, want completed", meta.Status)
	}
	if !meta.EndedAt.Equal(endedAt) {
		t.Errorf("EndedAt = %v, want %v", meta.EndedAt, endedAt)
	}
}

func TestCompressible(t *testing.T) {
	tests := []struct {
		name string
		want bool
	}{
		{"test-output.txt", true},
		{"step-run-tests.json", true},
		{"pr-body.md", true},
		{"archive.tar.gz", false},
		{"binary.bin", false},
	}
	for _, tt := range tests {
		if got := compressible(tt.name); got != tt.want {
			t.Errorf("compressible(%q) = %v, want %v", tt.name, got, tt.want)
		}
	}
}
