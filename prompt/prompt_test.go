package prompt

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNewLoader(t *testing.T) {
	loader := NewLoader("/tmp/project")

	if len(loader.dirs) != 2 {
		t.Errorf("expected 2 search dirs, got %d", len(loader.dirs))
	}
	if loader.cache == nil {
		t.Error("cache should be initialized")
	}
	if loader.funcMap == nil {
		t.Error("funcMap should be initialized")
	}
}

func TestLoader_LoadEmbedded(t *testing.T) {
	loader := NewLoader("/nonexistent")

	content, err := loader.Load("codegen")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !strings.Contains(content, "testFiles") {
		t.Error("codegen prompt should describe the testFiles field")
	}
}

func TestLoader_LoadFromDir(t *testing.T) {
	dir := t.TempDir()
	promptsDir := filepath.Join(dir, ".ticketflow", "prompts")
	os.MkdirAll(promptsDir, 0755)
	os.WriteFile(filepath.Join(promptsDir, "custom.txt"), []byte("Custom prompt content"), 0644)

	loader := NewLoader(dir)

	content, err := loader.Load("custom")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if content != "Custom prompt content" {
		t.Errorf("content = %q, want 'Custom prompt content'", content)
	}
}

func TestLoader_ProjectOverridesEmbedded(t *testing.T) {
	dir := t.TempDir()
	promptsDir := filepath.Join(dir, ".ticketflow", "prompts")
	os.MkdirAll(promptsDir, 0755)
	os.WriteFile(filepath.Join(promptsDir, "codegen.txt"), []byte("override"), 0644)

	loader := NewLoader(dir)

	content, err := loader.Load("codegen")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if content != "override" {
		t.Errorf("content = %q, want override", content)
	}
}

func TestLoader_LoadWithVars(t *testing.T) {
	loader := NewLoader("/nonexistent")

	content, err := loader.LoadWithVars("codegen", map[string]any{
		"TicketKey":   "PROJ-123",
		"Summary":     "Fix login bug",
		"Description": "Users cannot log in.",
		"FileType":    "service",
	})
	if err != nil {
		t.Fatalf("LoadWithVars: %v", err)
	}

	for _, want := range []string{"PROJ-123", "Fix login bug", "Users cannot log in.", "service"} {
		if !strings.Contains(content, want) {
			t.Errorf("rendered prompt missing %q", want)
		}
	}
}

func TestLoader_SuggestTemplate(t *testing.T) {
	loader := NewLoader("/nonexistent")

	content, err := loader.LoadWithVars("suggest", map[string]any{
		"Passed":   5,
		"Failed":   2,
		"Skipped":  0,
		"Failures": "--- FAIL: TestLogin",
	})
	if err != nil {
		t.Fatalf("LoadWithVars: %v", err)
	}
	if !strings.Contains(content, "2 failed") {
		t.Errorf("rendered prompt missing failure count:\n%s", content)
	}
	if !strings.Contains(content, "--- FAIL: TestLogin") {
		t.Error("rendered prompt missing failure detail")
	}
}

func TestLoader_Exists(t *testing.T) {
	loader := NewLoader("/nonexistent")

	if !loader.Exists("codegen") {
		t.Error("codegen should exist")
	}
	if loader.Exists("no-such-prompt") {
		t.Error("no-such-prompt should not exist")
	}
}

func TestLoader_List(t *testing.T) {
	loader := NewLoader("/nonexistent")

	names, err := loader.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}

	want := map[string]bool{"codegen": false, "suggest": false, "summarize": false}
	for _, name := range names {
		if _, ok := want[name]; ok {
			want[name] = true
		}
	}
	for name, found := range want {
		if !found {
			t.Errorf("List missing embedded prompt %q", name)
		}
	}
}

func TestLoader_NotFound(t *testing.T) {
	loader := NewLoader("/nonexistent")

	_, err := loader.Load("no-such-prompt")
	if err == nil {
		t.Fatal("expected error for unknown prompt")
	}
}

func TestLoader_AddFunc(t *testing.T) {
	dir := t.TempDir()
	promptsDir := filepath.Join(dir, "prompts")
	os.MkdirAll(promptsDir, 0755)
	os.WriteFile(filepath.Join(promptsDir, "shout.txt"), []byte(`{{ shout .Word }}`), 0644)

	loader := NewLoader(dir)
	loader.AddFunc("shout", func(s string) string { return strings.ToUpper(s) + "!" })

	content, err := loader.LoadWithVars("shout", map[string]any{"Word": "go"})
	if err != nil {
		t.Fatalf("LoadWithVars: %v", err)
	}
	if content != "GO!" {
		t.Errorf("content = %q, want GO!", content)
	}
}

func TestBuilder(t *testing.T) {
	got := NewBuilder().
		Add("intro").
		AddSection("Ticket", "PROJ-123").
		AddList("Checklist", []string{"tests pass", "reviewed"}).
		AddFile("main.go", "package main").
		Build()

	for _, want := range []string{
		"intro",
		"## Ticket\n\nPROJ-123",
		"- tests pass\n- reviewed",
		`<file path="main.go">`,
	} {
		if !strings.Contains(got, want) {
			t.Errorf("built prompt missing %q:\n%s", want, got)
		}
	}
}

func TestIndentString(t *testing.T) {
	got := indentString(2, "a\nb\n\nc")
	want := "  a\n  b\n\n  c"
	if got != want {
		t.Errorf("indentString = %q, want %q", got, want)
	}
}
