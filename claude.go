package ticketflow

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"

	"github.com/randalmurphal/ticketflow/git"
	"github.com/randalmurphal/ticketflow/prompt"
	"github.com/randalmurphal/ticketflow/task"
)

// Claude CLI errors
var (
	// ErrClaudeNotFound indicates the claude CLI binary was not found.
	ErrClaudeNotFound = errors.New("claude CLI not found")

	// ErrClaudeFailed indicates the claude CLI exited with an error.
	ErrClaudeFailed = errors.New("claude CLI failed")
)

// ClaudeCLI implements CodeGenClient by shelling out to the claude CLI
// binary. Requests are rendered from the prompt package's templates and
// responses are parsed from the CLI's JSON output; the model for each
// call comes from the task package's tier mapping unless overridden.
type ClaudeCLI struct {
	binary   string
	model    string
	maxTurns int
	workDir  string
	runner   git.CommandRunner
	prompts  *prompt.Loader
	logger   *slog.Logger
}

// ClaudeOption configures a ClaudeCLI.
type ClaudeOption func(*ClaudeCLI)

// WithClaudeBinary sets the claude binary path (default "claude").
func WithClaudeBinary(path string) ClaudeOption {
	return func(c *ClaudeCLI) { c.binary = path }
}

// WithClaudeModel pins every call to one model instead of the per-task
// default.
func WithClaudeModel(model string) ClaudeOption {
	return func(c *ClaudeCLI) { c.model = model }
}

// WithClaudeMaxTurns limits the number of conversation turns per call.
func WithClaudeMaxTurns(n int) ClaudeOption {
	return func(c *ClaudeCLI) { c.maxTurns = n }
}

// WithClaudeRunner swaps the command runner. Tests use git.MockRunner;
// the option also skips binary lookup since no process will be spawned.
func WithClaudeRunner(runner git.CommandRunner) ClaudeOption {
	return func(c *ClaudeCLI) { c.runner = runner }
}

// WithClaudePrompts sets the prompt loader, for projects overriding the
// embedded templates from a custom directory.
func WithClaudePrompts(loader *prompt.Loader) ClaudeOption {
	return func(c *ClaudeCLI) { c.prompts = loader }
}

// WithClaudeLogger sets the structured logger.
func WithClaudeLogger(logger *slog.Logger) ClaudeOption {
	return func(c *ClaudeCLI) { c.logger = logger }
}

// NewClaudeCLI creates a CodeGenClient over the claude CLI, operating in
// workDir. Returns ErrClaudeNotFound when the binary is not installed and
// no custom runner was supplied.
func NewClaudeCLI(workDir string, opts ...ClaudeOption) (*ClaudeCLI, error) {
	c := &ClaudeCLI{
		binary:   "claude",
		maxTurns: 10,
		workDir:  workDir,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.prompts == nil {
		c.prompts = prompt.NewLoader(workDir)
	}
	if c.runner == nil {
		if _, err := exec.LookPath(c.binary); err != nil {
			return nil, fmt.Errorf("%w: %s", ErrClaudeNotFound, c.binary)
		}
		c.runner = git.NewExecRunner()
	}
	return c, nil
}

// GenerateCode implements CodeGenClient.
func (c *ClaudeCLI) GenerateCode(ctx context.Context, req CodeGenRequest) (*Generation, error) {
	promptText, err := c.prompts.LoadWithVars("codegen", map[string]any{
		"TicketKey":   req.Ticket.Key,
		"Summary":     req.Ticket.Summary,
		"Description": req.Ticket.Description,
		"FileType":    req.FileType,
	})
	if err != nil {
		return nil, fmt.Errorf("render codegen prompt: %w", err)
	}

	out, err := c.run(ctx, task.Generate, promptText)
	if err != nil {
		return nil, err
	}

	gen, err := parseGeneration(out.Result)
	if err != nil {
		return nil, err
	}
	gen.Model = out.Model
	gen.InputTokens = out.InputTokens
	gen.OutputTokens = out.OutputTokens

	c.logger.Debug("code generated",
		"ticket", req.Ticket.Key,
		"files", len(gen.Files),
		"test_files", len(gen.TestFiles),
		"model", gen.Model,
	)
	return gen, nil
}

// SuggestImprovements implements CodeGenClient.
func (c *ClaudeCLI) SuggestImprovements(ctx context.Context, code string, results TestResults) (string, error) {
	promptText, err := c.prompts.LoadWithVars("suggest", map[string]any{
		"Code":     code,
		"Passed":   results.Passed,
		"Failed":   results.Failed,
		"Skipped":  results.Skipped,
		"Failures": formatFailures(results),
	})
	if err != nil {
		return "", fmt.Errorf("render suggest prompt: %w", err)
	}

	out, err := c.run(ctx, task.Suggest, promptText)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out.Result), nil
}

// Summarize condenses text for ticket comments. Runs on the fast model
// tier.
func (c *ClaudeCLI) Summarize(ctx context.Context, text string) (string, error) {
	promptText, err := c.prompts.LoadWithVars("summarize", map[string]any{
		"Text": text,
	})
	if err != nil {
		return "", fmt.Errorf("render summarize prompt: %w", err)
	}

	out, err := c.run(ctx, task.Summarize, promptText)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out.Result), nil
}

// run invokes the claude CLI once. Cancellation is honored before the
// process starts, not mid-execution.
func (c *ClaudeCLI) run(ctx context.Context, t task.Type, promptText string) (*claudeOutput, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	model := c.model
	if model == "" {
		model = string(task.SelectModel(t))
	}

	args := []string{"--print", "--output-format", "json", "--model", model}
	if c.maxTurns > 0 {
		args = append(args, "--max-turns", fmt.Sprintf("%d", c.maxTurns))
	}
	args = append(args, "-p", promptText)

	stdout, err := c.runner.Run(c.workDir, c.binary, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrClaudeFailed, err)
	}

	out, err := parseClaudeOutput([]byte(stdout))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrClaudeFailed, err)
	}
	if out.Model == "" {
		out.Model = model
	}
	return out, nil
}

// formatFailures renders failing tests for the suggest prompt, falling
// back to raw runner output when no structured failures were parsed.
func formatFailures(results TestResults) string {
	if len(results.Failures) == 0 {
		return strings.TrimSpace(results.Output)
	}
	var buf strings.Builder
	for _, f := range results.Failures {
		buf.WriteString("- ")
		buf.WriteString(f.Name)
		if f.Message != "" {
			buf.WriteString(": ")
			buf.WriteString(f.Message)
		}
		buf.WriteString("\n")
	}
	return strings.TrimSpace(buf.String())
}

// claudeOutput is the claude CLI's JSON envelope. Field names have varied
// across CLI versions, so both spellings are accepted.
type claudeOutput struct {
	Result       string `json:"result"`
	Model        string `json:"model"`
	TokensIn     int    `json:"tokens_in"`
	TokensOut    int    `json:"tokens_out"`
	InputTokens  int    `json:"input_tokens"`
	OutputTokens int    `json:"output_tokens"`
}

func (o *claudeOutput) normalize() {
	if o.InputTokens == 0 {
		o.InputTokens = o.TokensIn
	}
	if o.OutputTokens == 0 {
		o.OutputTokens = o.TokensOut
	}
}

// parseClaudeOutput parses the CLI's JSON envelope, tolerating leading or
// trailing noise around the JSON object.
func parseClaudeOutput(data []byte) (*claudeOutput, error) {
	data = bytes.TrimSpace(data)

	var out claudeOutput
	if err := json.Unmarshal(data, &out); err != nil {
		start := bytes.Index(data, []byte("{"))
		end := bytes.LastIndex(data, []byte("}"))
		if start < 0 || end <= start {
			return nil, fmt.Errorf("no json in output")
		}
		if err := json.Unmarshal(data[start:end+1], &out); err != nil {
			return nil, fmt.Errorf("parse json output: %w", err)
		}
	}
	out.normalize()
	return &out, nil
}

// parseGeneration extracts the Generation payload from the model's
// response text, stripping markdown fences when the model added them.
func parseGeneration(text string) (*Generation, error) {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	text = strings.TrimSpace(text)

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return nil, fmt.Errorf("parse generation: no json object in response")
	}

	var gen Generation
	if err := json.Unmarshal([]byte(text[start:end+1]), &gen); err != nil {
		return nil, fmt.Errorf("parse generation: %w", err)
	}
	return &gen, nil
}
