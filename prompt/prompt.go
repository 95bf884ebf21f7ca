package prompt

import (
	"bytes"
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"text/template"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Built-in templates for the code generation, fix suggestion, and
// comment summarization prompts.
//
//go:embed prompts/*.txt
var embeddedPrompts embed.FS

// Loader resolves named prompt templates. Project-local files override
// the embedded defaults, so teams can tune prompts per repository
// without forking the engine.
type Loader struct {
	dirs    []string
	funcMap template.FuncMap

	mu    sync.Mutex
	cache map[string]*template.Template
}

// NewLoader creates a loader for the given project directory. Lookup
// order: .ticketflow/prompts/ in the project, then prompts/ in the
// project, then the embedded defaults.
func NewLoader(projectDir string) *Loader {
	return &Loader{
		dirs: []string{
			filepath.Join(projectDir, ".ticketflow", "prompts"),
			filepath.Join(projectDir, "prompts"),
		},
		cache:   make(map[string]*template.Template),
		funcMap: defaultFuncMap(),
	}
}

// AddFunc registers a template function available to all prompts.
// Must be called before the first Load.
func (l *Loader) AddFunc(name string, fn any) {
	l.funcMap[name] = fn
}

// Load returns the rendered prompt with no variables bound.
func (l *Loader) Load(name string) (string, error) {
	return l.LoadWithVars(name, nil)
}

// LoadWithVars renders the named prompt with the given variables.
func (l *Loader) LoadWithVars(name string, vars map[string]any) (string, error) {
	tmpl, err := l.template(name)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, vars); err != nil {
		return "", fmt.Errorf("render prompt %s: %w", name, err)
	}
	return buf.String(), nil
}

// Exists reports whether a prompt with this name can be resolved.
func (l *Loader) Exists(name string) bool {
	_, err := l.read(name)
	return err == nil
}

// List returns the names of all resolvable prompts, project-local and
// embedded.
func (l *Loader) List() ([]string, error) {
	seen := make(map[string]bool)

	for _, dir := range l.dirs {
		entries, err := os.ReadDir(dir)
		if err != nil {
			continue
		}
		for _, entry := range entries {
			if name, ok := promptName(entry.Name()); ok && !entry.IsDir() {
				seen[name] = true
			}
		}
	}

	if entries, err := embeddedPrompts.ReadDir("prompts"); err == nil {
		for _, entry := range entries {
			if name, ok := promptName(entry.Name()); ok {
				seen[name] = true
			}
		}
	}

	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	return names, nil
}

func promptName(filename string) (string, bool) {
	return strings.CutSuffix(filename, ".txt")
}

func (l *Loader) template(name string) (*template.Template, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if tmpl, ok := l.cache[name]; ok {
		return tmpl, nil
	}

	content, err := l.read(name)
	if err != nil {
		return nil, err
	}
	tmpl, err := template.New(name).Funcs(l.funcMap).Parse(content)
	if err != nil {
		return nil, fmt.Errorf("parse prompt template %s: %w", name, err)
	}

	l.cache[name] = tmpl
	return tmpl, nil
}

func (l *Loader) read(name string) (string, error) {
	filename := name + ".txt"

	for _, dir := range l.dirs {
		if data, err := os.ReadFile(filepath.Join(dir, filename)); err == nil {
			return string(data), nil
		}
	}

	data, err := embeddedPrompts.ReadFile("prompts/" + filename)
	if err != nil {
		return "", fmt.Errorf("prompt not found: %s", name)
	}
	return string(data), nil
}

func defaultFuncMap() template.FuncMap {
	return template.FuncMap{
		"join":    strings.Join,
		"trim":    strings.TrimSpace,
		"upper":   strings.ToUpper,
		"lower":   strings.ToLower,
		"title":   cases.Title(language.English).String,
		"indent":  indentString,
		"default": defaultValue,
	}
}

// indentString prefixes every non-empty line with the given number of
// spaces.
func indentString(indent int, s string) string {
	if s == "" {
		return s
	}
	prefix := strings.Repeat(" ", indent)
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		if line != "" {
			lines[i] = prefix + line
		}
	}
	return strings.Join(lines, "\n")
}

// defaultValue substitutes defaultVal when value is nil or an empty
// string.
func defaultValue(defaultVal, value any) any {
	if value == nil {
		return defaultVal
	}
	if s, ok := value.(string); ok && s == "" {
		return defaultVal
	}
	return value
}

// Builder assembles a prompt from markdown-ish parts. Used for one-off
// prompts that do not warrant a template file.
type Builder struct {
	parts []string
}

// NewBuilder creates an empty prompt builder.
func NewBuilder() *Builder {
	return &Builder{}
}

// Add appends a free-form text block.
func (b *Builder) Add(text string) *Builder {
	b.parts = append(b.parts, text)
	return b
}

// AddSection appends a block with a markdown header.
func (b *Builder) AddSection(header, content string) *Builder {
	b.parts = append(b.parts, fmt.Sprintf("## %s\n\n%s", header, content))
	return b
}

// AddList appends a bulleted list, optionally headed.
func (b *Builder) AddList(header string, items []string) *Builder {
	var buf strings.Builder
	if header != "" {
		fmt.Fprintf(&buf, "## %s\n\n", header)
	}
	for _, item := range items {
		fmt.Fprintf(&buf, "- %s\n", item)
	}
	b.parts = append(b.parts, buf.String())
	return b
}

// AddFile appends file content wrapped in a tagged block, so the model
// can tell code apart from instructions.
func (b *Builder) AddFile(path, content string) *Builder {
	b.parts = append(b.parts, fmt.Sprintf("<file path=%q>\n%s\n</file>", path, content))
	return b
}

// Build joins all parts with blank lines.
func (b *Builder) Build() string {
	return strings.Join(b.parts, "\n\n")
}
