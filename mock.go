package ticketflow

import "context"

// MockTicketClient is a mock implementation of TicketClient for testing.
type MockTicketClient struct {
	GetTicketFunc    func(ctx context.Context, key string) (Ticket, error)
	AddCommentFunc   func(ctx context.Context, key, text string) error
	UpdateStatusFunc func(ctx context.Context, key, statusName string) error
}

// GetTicket implements TicketClient.
func (m *MockTicketClient) GetTicket(ctx context.Context, key string) (Ticket, error) {
	if m.GetTicketFunc != nil {
		return m.GetTicketFunc(ctx, key)
	}
	return Ticket{
		Key:     key,
		Summary: "Mock ticket",
		Status:  "To Do",
		Type:    "Task",
	}, nil
}

// AddComment implements TicketClient.
func (m *MockTicketClient) AddComment(ctx context.Context, key, text string) error {
	if m.AddCommentFunc != nil {
		return m.AddCommentFunc(ctx, key, text)
	}
	return nil
}

// UpdateStatus implements TicketClient.
func (m *MockTicketClient) UpdateStatus(ctx context.Context, key, statusName string) error {
	if m.UpdateStatusFunc != nil {
		return m.UpdateStatusFunc(ctx, key, statusName)
	}
	return nil
}

// MockCodeGenClient is a mock implementation of CodeGenClient for testing.
type MockCodeGenClient struct {
	GenerateCodeFunc        func(ctx context.Context, req CodeGenRequest) (*Generation, error)
	SuggestImprovementsFunc func(ctx context.Context, code string, results TestResults) (string, error)
}

// GenerateCode implements CodeGenClient.
func (m *MockCodeGenClient) GenerateCode(ctx context.Context, req CodeGenRequest) (*Generation, error) {
	if m.GenerateCodeFunc != nil {
		return m.GenerateCodeFunc(ctx, req)
	}
	return &Generation{
		Files: []GeneratedFile{
			{Path: "main.go", Content: "package main\n", Language: "go"},
		},
		TestFiles: []GeneratedFile{
			{Path: "main_test.go", Content: "package main\n", Language: "go"},
		},
	}, nil
}

// SuggestImprovements implements CodeGenClient.
func (m *MockCodeGenClient) SuggestImprovements(ctx context.Context, code string, results TestResults) (string, error) {
	if m.SuggestImprovementsFunc != nil {
		return m.SuggestImprovementsFunc(ctx, code, results)
	}
	return "Check the failing assertions", nil
}

// MockVcsClient is a mock implementation of VcsClient for testing.
type MockVcsClient struct {
	CreateBranchFunc      func(ctx context.Context, name, base string) (string, error)
	CurrentBranchFunc     func(ctx context.Context) (string, error)
	StatusFunc            func(ctx context.Context) (WorkspaceStatus, error)
	CommitChangesFunc     func(ctx context.Context, message string, files []string) (string, error)
	PushBranchFunc        func(ctx context.Context, name string) error
	CreatePullRequestFunc func(ctx context.Context, branch, title, description string) (string, error)
}

// CreateBranch implements VcsClient.
func (m *MockVcsClient) CreateBranch(ctx context.Context, name, base string) (string, error) {
	if m.CreateBranchFunc != nil {
		return m.CreateBranchFunc(ctx, name, base)
	}
	return name, nil
}

// CurrentBranch implements VcsClient.
func (m *MockVcsClient) CurrentBranch(ctx context.Context) (string, error) {
	if m.CurrentBranchFunc != nil {
		return m.CurrentBranchFunc(ctx)
	}
	return "main", nil
}

// Status implements VcsClient.
func (m *MockVcsClient) Status(ctx context.Context) (WorkspaceStatus, error) {
	if m.StatusFunc != nil {
		return m.StatusFunc(ctx)
	}
	return WorkspaceStatus{Untracked: []string{"main.go"}}, nil
}

// CommitChanges implements VcsClient.
func (m *MockVcsClient) CommitChanges(ctx context.Context, message string, files []string) (string, error) {
	if m.CommitChangesFunc != nil {
		return m.CommitChangesFunc(ctx, message, files)
	}
	return "abc123def456", nil
}

// PushBranch implements VcsClient.
func (m *MockVcsClient) PushBranch(ctx context.Context, name string) error {
	if m.PushBranchFunc != nil {
		return m.PushBranchFunc(ctx, name)
	}
	return nil
}

// CreatePullRequest implements VcsClient.
func (m *MockVcsClient) CreatePullRequest(ctx context.Context, branch, title, description string) (string, error) {
	if m.CreatePullRequestFunc != nil {
		return m.CreatePullRequestFunc(ctx, branch, title, description)
	}
	return "https://example.com/pr/1", nil
}

// MockTestRunner is a mock implementation of TestRunnerClient for testing.
type MockTestRunner struct {
	RunTestsFunc func(ctx context.Context, pattern string) (TestResults, error)
}

// RunTests implements TestRunnerClient.
func (m *MockTestRunner) RunTests(ctx context.Context, pattern string) (TestResults, error) {
	if m.RunTestsFunc != nil {
		return m.RunTestsFunc(ctx, pattern)
	}
	return TestResults{Passed: 1}, nil
}

// MockServices returns a Services bundle wired with default mocks. Tests
// override individual Func fields as needed.
func MockServices() Services {
	return Services{
		Tickets: &MockTicketClient{},
		CodeGen: &MockCodeGenClient{},
		Vcs:     &MockVcsClient{},
		Tests:   &MockTestRunner{},
	}
}
