package ticketflow

import (
	"testing"
)

func TestDefaultSteps(t *testing.T) {
	steps := defaultSteps()

	wantOrder := []string{
		StepCreateBranch,
		StepGenerateCode,
		StepRunTests,
		StepCommitChanges,
		StepCreatePR,
		StepUpdateTicket,
	}

	if len(steps) != len(wantOrder) {
		t.Fatalf("steps count = %d, want %d", len(steps), len(wantOrder))
	}
	for i, id := range wantOrder {
		if steps[i].ID != id {
			t.Errorf("steps[%d].ID = %q, want %q", i, steps[i].ID, id)
		}
	}

	// Fresh slices each call; a caller mutating one workflow's steps must
	// not leak into the next.
	other := defaultSteps()
	steps[0].Status = StepCompleted
	if other[0].Status != StepPending {
		t.Error("defaultSteps should return independent slices")
	}
}

func TestCodeGenResult_Metadata(t *testing.T) {
	full := CodeGenResult{
		Files:        []string{"user.go"},
		TestFiles:    []string{"user_test.go"},
		FileType:     "service",
		Model:        "sonnet",
		InputTokens:  1200,
		OutputTokens: 800,
	}

	meta := full.Metadata()
	if meta["fileType"] != "service" {
		t.Errorf("fileType = %v, want service", meta["fileType"])
	}
	if meta["model"] != "sonnet" {
		t.Errorf("model = %v, want sonnet", meta["model"])
	}
	files, ok := meta["files"].([]string)
	if !ok || len(files) != 1 || files[0] != "user.go" {
		t.Errorf("files = %v, want [user.go]", meta["files"])
	}

	// Usage accounting is optional; absent values stay out of metadata.
	bare := CodeGenResult{Files: []string{"a.go"}, FileType: "component"}
	meta = bare.Metadata()
	if _, ok := meta["model"]; ok {
		t.Error("model should be omitted when the generator does not report it")
	}
	if _, ok := meta["tokensIn"]; ok {
		t.Error("tokensIn should be omitted when zero")
	}
}

func TestTestResult_Metadata(t *testing.T) {
	withCoverage := TestResult{Passed: 10, Failed: 0, Skipped: 2, Coverage: 81.5}
	meta := withCoverage.Metadata()
	if meta["passed"] != 10 || meta["skipped"] != 2 {
		t.Errorf("counts wrong: %v", meta)
	}
	if meta["coverage"] != 81.5 {
		t.Errorf("coverage = %v, want 81.5", meta["coverage"])
	}

	noCoverage := TestResult{Passed: 3}
	if _, ok := noCoverage.Metadata()["coverage"]; ok {
		t.Error("coverage should be omitted when unknown")
	}
}

func TestStepResults_StepIDs(t *testing.T) {
	results := []StepResult{
		BranchResult{Branch: "feature/x"},
		CodeGenResult{},
		TestResult{},
		CommitResult{Hash: "abc123"},
		PRResult{URL: "https://example.com/pr/1"},
		TicketUpdateResult{},
	}
	want := []string{
		StepCreateBranch,
		StepGenerateCode,
		StepRunTests,
		StepCommitChanges,
		StepCreatePR,
		StepUpdateTicket,
	}

	for i, r := range results {
		if r.StepID() != want[i] {
			t.Errorf("results[%d].StepID() = %q, want %q", i, r.StepID(), want[i])
		}
	}
}

func TestBranchResult_Metadata(t *testing.T) {
	meta := BranchResult{Branch: "feature/proj-1-x"}.Metadata()
	if meta["branch"] != "feature/proj-1-x" {
		t.Errorf("branch = %v, want feature/proj-1-x", meta["branch"])
	}
}

func TestPRResult_Metadata(t *testing.T) {
	meta := PRResult{URL: "https://example.com/pr/7", Branch: "feature/x"}.Metadata()
	if meta["url"] != "https://example.com/pr/7" {
		t.Errorf("url = %v", meta["url"])
	}
	if meta["branch"] != "feature/x" {
		t.Errorf("branch = %v", meta["branch"])
	}
}
