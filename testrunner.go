package ticketflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/randalmurphal/ticketflow/git"
)

// Test runner errors
var (
	// ErrNoFramework indicates no known test framework was detected in
	// the workspace.
	ErrNoFramework = errors.New("no test framework detected")
)

// Framework identifies the detected test framework.
type Framework string

// Supported frameworks.
const (
	FrameworkGo     Framework = "go"
	FrameworkNode   Framework = "node"
	FrameworkPytest Framework = "pytest"
)

// DetectFramework inspects the workspace for build files and returns the
// framework to run tests with.
func DetectFramework(dir string) (Framework, error) {
	exists := func(name string) bool {
		_, err := os.Stat(filepath.Join(dir, name))
		return err == nil
	}
	switch {
	case exists("go.mod"):
		return FrameworkGo, nil
	case exists("package.json"):
		return FrameworkNode, nil
	case exists("pytest.ini") || exists("pyproject.toml") || exists("setup.py"):
		return FrameworkPytest, nil
	}
	return "", fmt.Errorf("%w in %s", ErrNoFramework, dir)
}

// GoTestRunner implements TestRunnerClient over a CommandRunner. The
// framework is detected from the workspace on first use unless pinned;
// despite the name it also drives npm and pytest suites.
type GoTestRunner struct {
	workDir   string
	runner    git.CommandRunner
	framework Framework
	command   string
	logger    *slog.Logger
}

// TestRunnerOption configures a GoTestRunner.
type TestRunnerOption func(*GoTestRunner)

// WithTestCommand replaces the framework's default command with a shell
// command line, run via "sh -c".
func WithTestCommand(command string) TestRunnerOption {
	return func(r *GoTestRunner) { r.command = command }
}

// WithTestFramework pins the framework instead of detecting it.
func WithTestFramework(f Framework) TestRunnerOption {
	return func(r *GoTestRunner) { r.framework = f }
}

// WithTestExec swaps the command runner.
func WithTestExec(runner git.CommandRunner) TestRunnerOption {
	return func(r *GoTestRunner) { r.runner = runner }
}

// WithTestLogger sets the structured logger.
func WithTestLogger(logger *slog.Logger) TestRunnerOption {
	return func(r *GoTestRunner) { r.logger = logger }
}

// NewGoTestRunner creates a test runner for the project in workDir.
func NewGoTestRunner(workDir string, opts ...TestRunnerOption) *GoTestRunner {
	r := &GoTestRunner{
		workDir: workDir,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.runner == nil {
		r.runner = git.NewExecRunner()
	}
	return r
}

// RunTests implements TestRunnerClient. A failing suite is reported
// through TestResults, not an error; errors mean the suite could not be
// run at all.
func (r *GoTestRunner) RunTests(ctx context.Context, pattern string) (TestResults, error) {
	if err := ctx.Err(); err != nil {
		return TestResults{}, err
	}

	framework := r.framework
	if framework == "" && r.command == "" {
		detected, err := DetectFramework(r.workDir)
		if err != nil {
			return TestResults{}, err
		}
		framework = detected
	}

	name, args := r.buildCommand(framework, pattern)
	output, runErr := r.runner.Run(r.workDir, name, args...)
	if runErr != nil {
		// Failing tests exit non-zero; the captured output still parses.
		var cmdErr *git.CommandError
		if errors.As(runErr, &cmdErr) && cmdErr.Output != "" {
			output = cmdErr.Output
		} else {
			return TestResults{}, fmt.Errorf("run tests: %w", runErr)
		}
	}

	results := parseTestOutput(framework, output)
	results.Output = output

	if runErr != nil && results.Failed == 0 && results.Passed == 0 {
		// Non-zero exit with nothing parsed is a broken suite, not a
		// test failure.
		return TestResults{}, fmt.Errorf("run tests: %w", runErr)
	}

	r.logger.Debug("test run finished",
		"framework", string(framework),
		"passed", results.Passed,
		"failed", results.Failed,
		"skipped", results.Skipped,
	)
	return results, nil
}

func (r *GoTestRunner) buildCommand(framework Framework, pattern string) (string, []string) {
	if r.command != "" {
		cmd := r.command
		if pattern != "" {
			cmd += " " + pattern
		}
		return "sh", []string{"-c", cmd}
	}

	switch framework {
	case FrameworkNode:
		args := []string{"test"}
		if pattern != "" {
			args = append(args, "--", pattern)
		}
		return "npm", args
	case FrameworkPytest:
		args := []string{"-v"}
		if pattern != "" {
			args = append(args, "-k", pattern)
		}
		return "pytest", args
	default:
		args := []string{"test", "-race", "-v", "-cover"}
		if pattern != "" {
			args = append(args, "-run", pattern)
		}
		return "go", append(args, "./...")
	}
}

// parseTestOutput dispatches to the framework's output parser. An
// unrecognized framework (custom command) gets the Go parser first and
// the pytest parser as fallback.
func parseTestOutput(framework Framework, output string) TestResults {
	switch framework {
	case FrameworkNode:
		return parseNodeOutput(output)
	case FrameworkPytest:
		return parsePytestOutput(output)
	case FrameworkGo:
		return parseGoOutput(output)
	}
	results := parseGoOutput(output)
	if results.Passed == 0 && results.Failed == 0 {
		results = parsePytestOutput(output)
	}
	return results
}

var coverageRe = regexp.MustCompile(`coverage: (\d+(?:\.\d+)?)% of statements`)

// parseGoOutput parses `go test -v` output.
func parseGoOutput(output string) TestResults {
	var results TestResults
	var coverages []float64

	lines := strings.Split(output, "\n")
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(trimmed, "--- PASS:"):
			results.Passed++
		case strings.HasPrefix(trimmed, "--- SKIP:"):
			results.Skipped++
		case strings.HasPrefix(trimmed, "--- FAIL:"):
			results.Failed++
			fields := strings.Fields(trimmed)
			if len(fields) >= 3 {
				results.Failures = append(results.Failures, TestFailureDetail{
					Name:    fields[2],
					Message: goFailureMessage(lines, i),
				})
			}
		}
		if m := coverageRe.FindStringSubmatch(trimmed); m != nil {
			if v, err := strconv.ParseFloat(m[1], 64); err == nil {
				coverages = append(coverages, v)
			}
		}
	}

	if len(coverages) > 0 {
		var sum float64
		for _, v := range coverages {
			sum += v
		}
		results.Coverage = sum / float64(len(coverages))
	}
	return results
}

// goFailureMessage returns the first log line a failing test printed.
// With -v the t.Log/t.Error output sits indented between the test's
// "=== RUN" and "--- FAIL:" markers.
func goFailureMessage(lines []string, failIdx int) string {
	message := ""
	for j := failIdx - 1; j >= 0; j-- {
		line := lines[j]
		if !strings.HasPrefix(line, " ") && !strings.HasPrefix(line, "\t") {
			break
		}
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			message = trimmed
		}
	}
	return message
}

var (
	nodeSummaryRe   = regexp.MustCompile(`Tests:\s+(?:(\d+) failed, )?(?:(\d+) skipped, )?(\d+) passed`)
	nodeFailureRe   = regexp.MustCompile(`✕ (.+?)(?: \(\d+ ?ms\))?$`)
	pytestSummaryRe = regexp.MustCompile(`(?:(\d+) failed)?(?:, )?(?:(\d+) passed)?(?:, )?(?:(\d+) skipped)?(?:, \d+ \w+)* in [\d.]+s`)
	pytestFailureRe = regexp.MustCompile(`^FAILED (\S+)(?: - (.*))?$`)
)

// parseNodeOutput parses jest-style `npm test` output.
func parseNodeOutput(output string) TestResults {
	var results TestResults
	for _, line := range strings.Split(output, "\n") {
		trimmed := strings.TrimSpace(line)
		if m := nodeSummaryRe.FindStringSubmatch(trimmed); m != nil {
			results.Failed = atoiDefault(m[1])
			results.Skipped = atoiDefault(m[2])
			results.Passed = atoiDefault(m[3])
			continue
		}
		if m := nodeFailureRe.FindStringSubmatch(trimmed); m != nil {
			results.Failures = append(results.Failures, TestFailureDetail{Name: m[1]})
		}
	}
	return results
}

// parsePytestOutput parses pytest output.
func parsePytestOutput(output string) TestResults {
	var results TestResults
	for _, line := range strings.Split(output, "\n") {
		trimmed := strings.Trim(strings.TrimSpace(line), "= ")
		if m := pytestFailureRe.FindStringSubmatch(strings.TrimSpace(line)); m != nil {
			results.Failures = append(results.Failures, TestFailureDetail{
				Name:    m[1],
				Message: m[2],
			})
			continue
		}
		if m := pytestSummaryRe.FindStringSubmatch(trimmed); m != nil {
			results.Failed = atoiDefault(m[1])
			results.Passed = atoiDefault(m[2])
			results.Skipped = atoiDefault(m[3])
		}
	}
	return results
}

func atoiDefault(s string) int {
	if s == "" {
		return 0
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return n
}
