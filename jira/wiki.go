package jira

import (
	"fmt"
	"regexp"
	"strings"
)

// WikiConverter translates between Markdown and the Wiki Markup dialect
// used by Jira Server and Data Center (REST API v2). Ticket comments
// are authored in Markdown and converted on the way out.
type WikiConverter struct{}

// NewWikiConverter creates a Wiki Markup converter.
func NewWikiConverter() *WikiConverter {
	return &WikiConverter{}
}

var (
	mdCodeBlockRe  = regexp.MustCompile("(?s)```(\\w*)\\n(.*?)\\n```")
	mdBoldRe       = regexp.MustCompile(`\*\*([^*]+)\*\*`)
	mdStrikeRe     = regexp.MustCompile(`~~([^~]+)~~`)
	mdInlineCodeRe = regexp.MustCompile("`([^`]+)`")
	mdLinkRe       = regexp.MustCompile(`\[([^\]]+)\]\(([^)]+)\)`)
	mdBulletRe     = regexp.MustCompile(`(?m)^- (.+)$`)
	mdNumberedRe   = regexp.MustCompile(`(?m)^\d+\. (.+)$`)
	mdHRuleRe      = regexp.MustCompile(`(?m)^---+$`)

	wikiCodeBlockRe  = regexp.MustCompile(`(?s)\{code(?::(\w+))?\}(.*?)\{code\}`)
	wikiQuoteRe      = regexp.MustCompile(`(?s)\{quote\}(.*?)\{quote\}`)
	wikiInlineCodeRe = regexp.MustCompile(`\{\{([^}]+)\}\}`)
	wikiBoldRe       = regexp.MustCompile(`\*([^*\n]+)\*`)
	wikiItalicRe     = regexp.MustCompile(`_([^_]+)_`)
	wikiStrikeRe     = regexp.MustCompile(`-([^-\s][^-]*[^-\s])-`)
	wikiLinkRe       = regexp.MustCompile(`\[([^|\]]+)\|([^\]]+)\]`)
	wikiBareLinkRe   = regexp.MustCompile(`\[([^\]|]+)\]`)
	wikiBulletRe     = regexp.MustCompile(`(?m)^\* (.+)$`)
	wikiHRuleRe      = regexp.MustCompile(`(?m)^----+$`)
)

// ToWiki converts Markdown to Jira Wiki Markup.
func (c *WikiConverter) ToWiki(markdown string) string {
	// Fenced code goes first so nothing inside it is rewritten.
	result := mdCodeBlockRe.ReplaceAllStringFunc(markdown, func(s string) string {
		m := mdCodeBlockRe.FindStringSubmatch(s)
		if len(m) != 3 {
			return s
		}
		if m[1] != "" {
			return "{code:" + m[1] + "}\n" + m[2] + "\n{code}"
		}
		return "{code}\n" + m[2] + "\n{code}"
	})

	// "## Header" becomes "h2. Header", deepest level first so "##"
	// is not eaten by the "#" pattern.
	for level := 6; level >= 1; level-- {
		re := regexp.MustCompile(`(?m)^` + strings.Repeat("#", level) + ` (.+)$`)
		result = re.ReplaceAllString(result, fmt.Sprintf("h%d. $1", level))
	}

	result = mdBoldRe.ReplaceAllString(result, `*$1*`)
	result = mdStrikeRe.ReplaceAllString(result, `-$1-`)
	result = mdInlineCodeRe.ReplaceAllString(result, `{{$1}}`)
	result = quoteBlocksToWiki(result)
	result = mdLinkRe.ReplaceAllString(result, `[$1|$2]`)
	result = mdBulletRe.ReplaceAllString(result, `* $1`)
	result = mdNumberedRe.ReplaceAllString(result, `# $1`)
	result = mdHRuleRe.ReplaceAllString(result, `----`)

	return result
}

// quoteBlocksToWiki wraps consecutive "> " lines in {quote} markers.
func quoteBlocksToWiki(s string) string {
	var out []string
	var quoted []string

	flush := func() {
		if len(quoted) > 0 {
			out = append(out, strings.Join(quoted, "\n"), "{quote}")
			quoted = nil
		}
	}

	for _, line := range strings.Split(s, "\n") {
		if rest, ok := strings.CutPrefix(line, "> "); ok {
			if len(quoted) == 0 {
				out = append(out, "{quote}")
			}
			quoted = append(quoted, rest)
			continue
		}
		flush()
		out = append(out, line)
	}
	flush()

	return strings.Join(out, "\n")
}

// FromWiki converts Jira Wiki Markup to Markdown.
func (c *WikiConverter) FromWiki(wiki string) string {
	// Code blocks first, for the same reason as in ToWiki.
	result := wikiCodeBlockRe.ReplaceAllStringFunc(wiki, func(s string) string {
		m := wikiCodeBlockRe.FindStringSubmatch(s)
		if len(m) != 3 {
			return s
		}
		return "```" + m[1] + "\n" + strings.Trim(m[2], "\n") + "\n```"
	})

	result = wikiQuoteRe.ReplaceAllStringFunc(result, func(s string) string {
		m := wikiQuoteRe.FindStringSubmatch(s)
		if len(m) != 2 {
			return s
		}
		lines := strings.Split(strings.Trim(m[1], "\n"), "\n")
		for i, line := range lines {
			lines[i] = "> " + line
		}
		return strings.Join(lines, "\n")
	})

	// Numbered lists before headers, so "# item" is not mistaken for
	// an h1 heading. Blank lines reset the counter.
	result = numberedListsFromWiki(result)

	for level := 1; level <= 6; level++ {
		re := regexp.MustCompile(fmt.Sprintf(`(?m)^h%d\. (.+)$`, level))
		result = re.ReplaceAllString(result, strings.Repeat("#", level)+` $1`)
	}

	// Inline code before bold, since {{x}} must not become emphasis.
	result = wikiInlineCodeRe.ReplaceAllString(result, "`$1`")
	result = boldFromWiki(result)
	result = wikiItalicRe.ReplaceAllString(result, `*$1*`)
	result = wikiStrikeRe.ReplaceAllString(result, `~~$1~~`)
	result = wikiLinkRe.ReplaceAllString(result, `[$1]($2)`)

	// Bare bracketed URLs become self-linked.
	result = wikiBareLinkRe.ReplaceAllStringFunc(result, func(s string) string {
		url := strings.Trim(s, "[]")
		if strings.HasPrefix(url, "http") {
			return "[" + url + "](" + url + ")"
		}
		return s
	})

	result = wikiBulletRe.ReplaceAllString(result, `- $1`)
	result = wikiHRuleRe.ReplaceAllString(result, `---`)

	return result
}

func numberedListsFromWiki(s string) string {
	lines := strings.Split(s, "\n")
	counter := 0
	for i, line := range lines {
		switch {
		case strings.HasPrefix(line, "# ") && !strings.HasPrefix(line, "# h"):
			counter++
			lines[i] = fmt.Sprintf("%d. %s", counter, strings.TrimPrefix(line, "# "))
		case strings.TrimSpace(line) == "":
			counter = 0
		}
	}
	return strings.Join(lines, "\n")
}

// boldFromWiki rewrites *text* as **text**, skipping bullet list lines
// where the leading star is a list marker.
func boldFromWiki(s string) string {
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "* ") || strings.HasPrefix(trimmed, "- ") {
			continue
		}
		lines[i] = wikiBoldRe.ReplaceAllString(line, `**$1**`)
	}
	return strings.Join(lines, "\n")
}

// RichTextConverter abstracts over the two Jira rich text formats so
// callers can comment without caring which deployment they talk to.
type RichTextConverter interface {
	// ToJira converts Markdown to the deployment's format, ADF (a JSON
	// document) for Cloud or a Wiki Markup string for Server.
	ToJira(markdown string) (any, error)
	// FromJira converts the deployment's format back to Markdown.
	FromJira(content any) (string, error)
}

// CloudConverter is the RichTextConverter for Jira Cloud (ADF).
type CloudConverter struct {
	adf *ADFConverter
}

// NewCloudConverter creates a converter for Jira Cloud.
func NewCloudConverter() *CloudConverter {
	return &CloudConverter{adf: NewADFConverter()}
}

// ToJira converts Markdown to an ADF document.
func (c *CloudConverter) ToJira(markdown string) (any, error) {
	return c.adf.ToADF(markdown)
}

// FromJira converts an ADF document to Markdown.
func (c *CloudConverter) FromJira(content any) (string, error) {
	return c.adf.FromADFAny(content)
}

// ServerConverter is the RichTextConverter for Jira Server and Data
// Center (Wiki Markup).
type ServerConverter struct {
	wiki *WikiConverter
}

// NewServerConverter creates a converter for Jira Server/DC.
func NewServerConverter() *ServerConverter {
	return &ServerConverter{wiki: NewWikiConverter()}
}

// ToJira converts Markdown to Wiki Markup.
func (c *ServerConverter) ToJira(markdown string) (any, error) {
	return c.wiki.ToWiki(markdown), nil
}

// FromJira converts Wiki Markup to Markdown.
func (c *ServerConverter) FromJira(content any) (string, error) {
	if s, ok := content.(string); ok {
		return c.wiki.FromWiki(s), nil
	}
	return "", nil
}

// NewRichTextConverter picks the converter for a deployment type.
func NewRichTextConverter(deployment DeploymentType) RichTextConverter {
	if deployment == DeploymentCloud {
		return NewCloudConverter()
	}
	return NewServerConverter()
}

// WikiToMarkdown converts Wiki Markup to Markdown.
func WikiToMarkdown(wiki string) string {
	return NewWikiConverter().FromWiki(wiki)
}

// MarkdownToWiki converts Markdown to Wiki Markup.
func MarkdownToWiki(markdown string) string {
	return NewWikiConverter().ToWiki(markdown)
}
