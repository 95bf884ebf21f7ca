package git

import (
	"bytes"
	"errors"
	"os/exec"
	"strings"
)

// CommandRunner executes external commands. The production implementation
// shells out; tests swap in a mock so no real git repository is needed.
type CommandRunner interface {
	// Run executes name with args in dir (empty means the process working
	// directory) and returns trimmed stdout. Failures return a *CommandError
	// carrying the captured output.
	Run(dir, name string, args ...string) (string, error)
}

// CommandError describes a failed command with its captured output.
type CommandError struct {
	Command string   // Command name (e.g., "git")
	Args    []string // Command arguments
	Output  string   // Captured stderr/stdout, if any
	Err     error    // Underlying error (usually *exec.ExitError)
}

func (e *CommandError) Error() string {
	if e.Output != "" {
		return e.Output
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return "command failed"
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

// ExecRunner runs commands with os/exec.
type ExecRunner struct{}

// NewExecRunner creates the default command runner.
func NewExecRunner() *ExecRunner {
	return &ExecRunner{}
}

// Run implements CommandRunner.
func (r *ExecRunner) Run(dir, name string, args ...string) (string, error) {
	cmd := exec.Command(name, args...)
	cmd.Dir = dir

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		output := strings.TrimSpace(stderr.String())
		if output == "" {
			output = strings.TrimSpace(stdout.String())
		}
		return "", &CommandError{Command: name, Args: args, Output: output, Err: err}
	}
	return strings.TrimSpace(stdout.String()), nil
}

// =============================================================================
// Mock Runners
// =============================================================================

// MockResponse is a canned reply for one command pattern.
type MockResponse struct {
	Stdout string
	Err    error
}

// Call records one Run invocation.
type Call struct {
	WorkDir string
	Command string
	Args    []string
}

// MockRunner returns canned responses keyed by command pattern. Lookup
// order: exact command plus arguments, command name alone, the "*"
// wildcard, then DefaultResponse. Every invocation is recorded in Calls.
type MockRunner struct {
	Responses       map[string]MockResponse
	DefaultResponse MockResponse
	Calls           []Call
}

// NewMockRunner creates a mock runner with no canned responses; unmatched
// commands return the zero DefaultResponse.
func NewMockRunner() *MockRunner {
	return &MockRunner{Responses: make(map[string]MockResponse)}
}

// expectation binds a pending OnCommand pattern to its response.
type expectation struct {
	runner *MockRunner
	key    string
}

// OnCommand registers a response for the exact command and arguments.
func (m *MockRunner) OnCommand(command string, args ...string) *expectation {
	return &expectation{runner: m, key: commandKey(command, args)}
}

// OnAnyCommand registers a wildcard response used when nothing else matches.
func (m *MockRunner) OnAnyCommand() *expectation {
	return &expectation{runner: m, key: "*"}
}

// Return sets the canned stdout and error for the pattern.
func (e *expectation) Return(stdout string, err error) {
	e.runner.Responses[e.key] = MockResponse{Stdout: stdout, Err: err}
}

func commandKey(command string, args []string) string {
	if len(args) == 0 {
		return command
	}
	return command + " " + strings.Join(args, " ")
}

// Run implements CommandRunner.
func (m *MockRunner) Run(dir, name string, args ...string) (string, error) {
	m.Calls = append(m.Calls, Call{WorkDir: dir, Command: name, Args: args})

	if resp, ok := m.Responses[commandKey(name, args)]; ok {
		return resp.Stdout, resp.Err
	}
	if resp, ok := m.Responses[name]; ok {
		return resp.Stdout, resp.Err
	}
	if resp, ok := m.Responses["*"]; ok {
		return resp.Stdout, resp.Err
	}
	return m.DefaultResponse.Stdout, m.DefaultResponse.Err
}

// WasCalled reports whether the command ran with the given leading
// arguments. With no arguments it matches any invocation of the command.
func (m *MockRunner) WasCalled(command string, args ...string) bool {
	for _, call := range m.Calls {
		if call.Command != command {
			continue
		}
		if len(args) == 0 {
			return true
		}
		if len(call.Args) < len(args) {
			continue
		}
		if argsMatch(call.Args[:len(args)], args) {
			return true
		}
	}
	return false
}

// CallCount returns how many times the command ran, regardless of arguments.
func (m *MockRunner) CallCount(command string) int {
	count := 0
	for _, call := range m.Calls {
		if call.Command == command {
			count++
		}
	}
	return count
}

func argsMatch(actual, expected []string) bool {
	if len(actual) != len(expected) {
		return false
	}
	for i := range actual {
		if actual[i] != expected[i] {
			return false
		}
	}
	return true
}

// SequentialMockRunner replays queued responses in order, one per Run call,
// for tests that script an exact command sequence.
type SequentialMockRunner struct {
	Calls     []Call
	responses []MockResponse
	next      int
}

// NewSequentialMockRunner creates an empty sequential runner.
func NewSequentialMockRunner() *SequentialMockRunner {
	return &SequentialMockRunner{}
}

// AddOutput queues the next response.
func (m *SequentialMockRunner) AddOutput(stdout string, err error) {
	m.responses = append(m.responses, MockResponse{Stdout: stdout, Err: err})
}

// AddOutputError queues a failing response whose CommandError carries
// message as captured output and wraps err.
func (m *SequentialMockRunner) AddOutputError(stdout, message string, err error) {
	m.responses = append(m.responses, MockResponse{
		Stdout: stdout,
		Err:    &CommandError{Output: message, Err: err},
	})
}

// Run implements CommandRunner.
func (m *SequentialMockRunner) Run(dir, name string, args ...string) (string, error) {
	m.Calls = append(m.Calls, Call{WorkDir: dir, Command: name, Args: args})
	if m.next >= len(m.responses) {
		return "", &CommandError{Command: name, Args: args, Err: errors.New("no queued response")}
	}
	resp := m.responses[m.next]
	m.next++
	return resp.Stdout, resp.Err
}
