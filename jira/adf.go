package jira

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ADFDocument represents an Atlassian Document Format document.
// This is used for rich text fields in Jira Cloud API v3.
type ADFDocument struct {
	Version int       `json:"version"` // Always 1
	Type    string    `json:"type"`    // Always "doc"
	Content []ADFNode `json:"content"`
}

// ADFNode represents a node in an ADF document.
type ADFNode struct {
	Type    string         `json:"type"`
	Content []ADFNode      `json:"content,omitempty"`
	Text    string         `json:"text,omitempty"`
	Marks   []ADFMark      `json:"marks,omitempty"`
	Attrs   map[string]any `json:"attrs,omitempty"`
}

// ADFMark represents formatting applied to text.
type ADFMark struct {
	Type  string         `json:"type"`
	Attrs map[string]any `json:"attrs,omitempty"`
}

// ADF node types
const (
	ADFNodeDoc         = "doc"
	ADFNodeParagraph   = "paragraph"
	ADFNodeText        = "text"
	ADFNodeHardBreak   = "hardBreak"
	ADFNodeHeading     = "heading"
	ADFNodeBulletList  = "bulletList"
	ADFNodeOrderedList = "orderedList"
	ADFNodeListItem    = "listItem"
	ADFNodeCodeBlock   = "codeBlock"
	ADFNodeBlockquote  = "blockquote"
	ADFNodeRule        = "rule"
	ADFNodeMention     = "mention"
	ADFNodeEmoji       = "emoji"
	ADFNodeInlineCard  = "inlineCard"
)

// ADF mark types
const (
	ADFMarkStrong = "strong"
	ADFMarkEm     = "em"
	ADFMarkStrike = "strike"
	ADFMarkCode   = "code"
	ADFMarkLink   = "link"
)

// NewADFDocument creates a new empty ADF document.
func NewADFDocument() *ADFDocument {
	return &ADFDocument{
		Version: 1,
		Type:    ADFNodeDoc,
		Content: []ADFNode{},
	}
}

// Validate validates the ADF document structure.
func (d *ADFDocument) Validate() error {
	if d.Version != 1 {
		return ErrADFVersionOnly
	}
	if d.Type != ADFNodeDoc {
		return ErrADFTypeInvalid
	}
	return nil
}

// AddParagraph adds a paragraph with plain text to the document.
func (d *ADFDocument) AddParagraph(text string) {
	node := ADFNode{
		Type: ADFNodeParagraph,
		Content: []ADFNode{
			{Type: ADFNodeText, Text: text},
		},
	}
	d.Content = append(d.Content, node)
}

// AddHeading adds a heading at the given level (1-6).
func (d *ADFDocument) AddHeading(level int, text string) {
	if level < 1 {
		level = 1
	}
	if level > 6 {
		level = 6
	}
	node := ADFNode{
		Type: ADFNodeHeading,
		Attrs: map[string]any{
			"level": level,
		},
		Content: []ADFNode{
			{Type: ADFNodeText, Text: text},
		},
	}
	d.Content = append(d.Content, node)
}

// AddCodeBlock adds a code block with optional language.
func (d *ADFDocument) AddCodeBlock(code, language string) {
	node := ADFNode{
		Type: ADFNodeCodeBlock,
		Content: []ADFNode{
			{Type: ADFNodeText, Text: code},
		},
	}
	if language != "" {
		node.Attrs = map[string]any{"language": language}
	}
	d.Content = append(d.Content, node)
}

// AddBulletList adds a bullet list with the given items.
func (d *ADFDocument) AddBulletList(items []string) {
	listItems := make([]ADFNode, 0, len(items))
	for _, item := range items {
		listItems = append(listItems, ADFNode{
			Type: ADFNodeListItem,
			Content: []ADFNode{
				{
					Type: ADFNodeParagraph,
					Content: []ADFNode{
						{Type: ADFNodeText, Text: item},
					},
				},
			},
		})
	}
	d.Content = append(d.Content, ADFNode{
		Type:    ADFNodeBulletList,
		Content: listItems,
	})
}

// AddOrderedList adds a numbered list with the given items.
func (d *ADFDocument) AddOrderedList(items []string) {
	listItems := make([]ADFNode, 0, len(items))
	for _, item := range items {
		listItems = append(listItems, ADFNode{
			Type: ADFNodeListItem,
			Content: []ADFNode{
				{
					Type: ADFNodeParagraph,
					Content: []ADFNode{
						{Type: ADFNodeText, Text: item},
					},
				},
			},
		})
	}
	d.Content = append(d.Content, ADFNode{
		Type:    ADFNodeOrderedList,
		Content: listItems,
	})
}

// AddBlockquote adds a blockquote containing a single paragraph.
func (d *ADFDocument) AddBlockquote(text string) {
	node := ADFNode{
		Type: ADFNodeBlockquote,
		Content: []ADFNode{
			{
				Type: ADFNodeParagraph,
				Content: []ADFNode{
					{Type: ADFNodeText, Text: text},
				},
			},
		},
	}
	d.Content = append(d.Content, node)
}

// AddRule adds a horizontal rule.
func (d *ADFDocument) AddRule() {
	d.Content = append(d.Content, ADFNode{Type: ADFNodeRule})
}

// ADFConverter converts between Markdown and ADF documents. It handles
// the block structures that show up in generated ticket comments:
// headings, paragraphs, code blocks, lists, blockquotes, and rules.
type ADFConverter struct{}

// NewADFConverter creates a new ADF converter.
func NewADFConverter() *ADFConverter {
	return &ADFConverter{}
}

// ToADF converts Markdown text to an ADF document.
func (c *ADFConverter) ToADF(markdown string) (*ADFDocument, error) {
	doc := NewADFDocument()
	lines := strings.Split(markdown, "\n")

	i := 0
	for i < len(lines) {
		line := lines[i]
		trimmed := strings.TrimSpace(line)

		switch {
		case trimmed == "":
			i++

		case strings.HasPrefix(trimmed, "```"):
			lang := strings.TrimPrefix(trimmed, "```")
			var code []string
			i++
			for i < len(lines) && !strings.HasPrefix(strings.TrimSpace(lines[i]), "```") {
				code = append(code, lines[i])
				i++
			}
			if i < len(lines) {
				i++ // closing fence
			}
			doc.AddCodeBlock(strings.Join(code, "\n"), lang)

		case strings.HasPrefix(trimmed, "#"):
			level := 0
			for level < len(trimmed) && trimmed[level] == '#' {
				level++
			}
			if level <= 6 && level < len(trimmed) && trimmed[level] == ' ' {
				doc.AddHeading(level, strings.TrimSpace(trimmed[level:]))
				i++
			} else {
				doc.Content = append(doc.Content, c.parseInlineFormatting(trimmed))
				i++
			}

		case trimmed == "---" || trimmed == "***":
			doc.AddRule()
			i++

		case strings.HasPrefix(trimmed, "> "):
			doc.AddBlockquote(strings.TrimPrefix(trimmed, "> "))
			i++

		case strings.HasPrefix(trimmed, "- ") || strings.HasPrefix(trimmed, "* "):
			var items []string
			for i < len(lines) {
				t := strings.TrimSpace(lines[i])
				if strings.HasPrefix(t, "- ") {
					items = append(items, strings.TrimPrefix(t, "- "))
				} else if strings.HasPrefix(t, "* ") {
					items = append(items, strings.TrimPrefix(t, "* "))
				} else {
					break
				}
				i++
			}
			doc.AddBulletList(items)

		case isOrderedItem(trimmed):
			var items []string
			for i < len(lines) && isOrderedItem(strings.TrimSpace(lines[i])) {
				t := strings.TrimSpace(lines[i])
				idx := strings.Index(t, ". ")
				items = append(items, t[idx+2:])
				i++
			}
			doc.AddOrderedList(items)

		default:
			doc.Content = append(doc.Content, c.parseInlineFormatting(trimmed))
			i++
		}
	}

	return doc, nil
}

func isOrderedItem(s string) bool {
	idx := strings.Index(s, ". ")
	if idx < 1 {
		return false
	}
	for _, r := range s[:idx] {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// parseInlineFormatting converts a single line of Markdown into a
// paragraph node, translating **bold**, *italic*, `code`, and
// [text](url) spans into text nodes with marks.
func (c *ADFConverter) parseInlineFormatting(line string) ADFNode {
	var content []ADFNode
	var plain strings.Builder

	flush := func() {
		if plain.Len() > 0 {
			content = append(content, ADFNode{Type: ADFNodeText, Text: plain.String()})
			plain.Reset()
		}
	}

	i := 0
	for i < len(line) {
		switch {
		case strings.HasPrefix(line[i:], "**"):
			end := strings.Index(line[i+2:], "**")
			if end < 0 {
				plain.WriteString(line[i:])
				i = len(line)
				continue
			}
			flush()
			content = append(content, ADFNode{
				Type:  ADFNodeText,
				Text:  line[i+2 : i+2+end],
				Marks: []ADFMark{{Type: ADFMarkStrong}},
			})
			i += end + 4

		case line[i] == '*':
			end := strings.IndexByte(line[i+1:], '*')
			if end < 0 {
				plain.WriteByte(line[i])
				i++
				continue
			}
			flush()
			content = append(content, ADFNode{
				Type:  ADFNodeText,
				Text:  line[i+1 : i+1+end],
				Marks: []ADFMark{{Type: ADFMarkEm}},
			})
			i += end + 2

		case line[i] == '`':
			end := strings.IndexByte(line[i+1:], '`')
			if end < 0 {
				plain.WriteByte(line[i])
				i++
				continue
			}
			flush()
			content = append(content, ADFNode{
				Type:  ADFNodeText,
				Text:  line[i+1 : i+1+end],
				Marks: []ADFMark{{Type: ADFMarkCode}},
			})
			i += end + 2

		case line[i] == '[':
			closeBracket := strings.IndexByte(line[i:], ']')
			if closeBracket < 0 || i+closeBracket+1 >= len(line) || line[i+closeBracket+1] != '(' {
				plain.WriteByte(line[i])
				i++
				continue
			}
			closeParen := strings.IndexByte(line[i+closeBracket:], ')')
			if closeParen < 0 {
				plain.WriteByte(line[i])
				i++
				continue
			}
			flush()
			text := line[i+1 : i+closeBracket]
			href := line[i+closeBracket+2 : i+closeBracket+closeParen]
			content = append(content, ADFNode{
				Type:  ADFNodeText,
				Text:  text,
				Marks: []ADFMark{{Type: ADFMarkLink, Attrs: map[string]any{"href": href}}},
			})
			i += closeBracket + closeParen + 1

		default:
			plain.WriteByte(line[i])
			i++
		}
	}
	flush()

	if len(content) == 0 {
		content = []ADFNode{{Type: ADFNodeText, Text: ""}}
	}
	return ADFNode{Type: ADFNodeParagraph, Content: content}
}

// FromADF converts an ADF document to Markdown.
func (c *ADFConverter) FromADF(doc *ADFDocument) (string, error) {
	if doc == nil {
		return "", nil
	}
	if err := doc.Validate(); err != nil {
		return "", err
	}

	var w strings.Builder
	for i := range doc.Content {
		c.nodeToMarkdown(&w, &doc.Content[i])
	}
	return strings.TrimSpace(w.String()), nil
}

// FromADFAny converts a decoded JSON value (as produced by unmarshaling
// an API response into any) to Markdown. Plain strings pass through,
// which covers API v2 responses that were decoded the same way.
func (c *ADFConverter) FromADFAny(v any) (string, error) {
	switch val := v.(type) {
	case nil:
		return "", nil
	case string:
		return val, nil
	case *ADFDocument:
		return c.FromADF(val)
	}

	raw, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("encode adf value: %w", err)
	}
	var doc ADFDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		return "", fmt.Errorf("decode adf document: %w", err)
	}
	return c.FromADF(&doc)
}

func (c *ADFConverter) nodeToMarkdown(w *strings.Builder, node *ADFNode) {
	switch node.Type {
	case ADFNodeParagraph:
		c.inlineToMarkdown(w, node.Content)
		w.WriteString("\n\n")

	case ADFNodeHeading:
		level := 1
		if l, ok := node.Attrs["level"].(float64); ok {
			level = int(l)
		} else if l, ok := node.Attrs["level"].(int); ok {
			level = l
		}
		w.WriteString(strings.Repeat("#", level))
		w.WriteString(" ")
		c.inlineToMarkdown(w, node.Content)
		w.WriteString("\n\n")

	case ADFNodeCodeBlock:
		lang := ""
		if l, ok := node.Attrs["language"].(string); ok {
			lang = l
		}
		w.WriteString("```")
		w.WriteString(lang)
		w.WriteString("\n")
		for i := range node.Content {
			w.WriteString(node.Content[i].Text)
		}
		w.WriteString("\n```\n\n")

	case ADFNodeBulletList:
		for i := range node.Content {
			w.WriteString("- ")
			c.listItemToMarkdown(w, &node.Content[i])
			w.WriteString("\n")
		}
		w.WriteString("\n")

	case ADFNodeOrderedList:
		for i := range node.Content {
			fmt.Fprintf(w, "%d. ", i+1)
			c.listItemToMarkdown(w, &node.Content[i])
			w.WriteString("\n")
		}
		w.WriteString("\n")

	case ADFNodeBlockquote:
		var inner strings.Builder
		for i := range node.Content {
			c.nodeToMarkdown(&inner, &node.Content[i])
		}
		for _, line := range strings.Split(strings.TrimSpace(inner.String()), "\n") {
			w.WriteString("> ")
			w.WriteString(line)
			w.WriteString("\n")
		}
		w.WriteString("\n")

	case ADFNodeRule:
		w.WriteString("---\n\n")

	case ADFNodeText:
		c.textToMarkdown(w, node)

	default:
		// Unknown block type: render its children so content is not lost.
		for i := range node.Content {
			c.nodeToMarkdown(w, &node.Content[i])
		}
	}
}

func (c *ADFConverter) listItemToMarkdown(w *strings.Builder, item *ADFNode) {
	for i := range item.Content {
		if item.Content[i].Type == ADFNodeParagraph {
			c.inlineToMarkdown(w, item.Content[i].Content)
		} else {
			c.nodeToMarkdown(w, &item.Content[i])
		}
	}
}

func (c *ADFConverter) inlineToMarkdown(w *strings.Builder, nodes []ADFNode) {
	for i := range nodes {
		node := &nodes[i]
		switch node.Type {
		case ADFNodeText:
			c.textToMarkdown(w, node)
		case ADFNodeHardBreak:
			w.WriteString("\n")
		case ADFNodeMention:
			if text, ok := node.Attrs["text"].(string); ok {
				w.WriteString(text)
			}
		case ADFNodeEmoji:
			if short, ok := node.Attrs["shortName"].(string); ok {
				w.WriteString(short)
			}
		case ADFNodeInlineCard:
			if url, ok := node.Attrs["url"].(string); ok {
				w.WriteString(url)
			}
		default:
			c.inlineToMarkdown(w, node.Content)
		}
	}
}

func (c *ADFConverter) textToMarkdown(w *strings.Builder, node *ADFNode) {
	text := node.Text
	for _, mark := range node.Marks {
		switch mark.Type {
		case ADFMarkStrong:
			text = "**" + text + "**"
		case ADFMarkEm:
			text = "*" + text + "*"
		case ADFMarkStrike:
			text = "~~" + text + "~~"
		case ADFMarkCode:
			text = "`" + text + "`"
		case ADFMarkLink:
			if href, ok := mark.Attrs["href"].(string); ok {
				text = "[" + text + "](" + href + ")"
			}
		}
	}
	w.WriteString(text)
}

// MarkdownToADF converts Markdown text to an ADF document.
func MarkdownToADF(markdown string) (*ADFDocument, error) {
	return NewADFConverter().ToADF(markdown)
}

// ADFToMarkdown converts an ADF document to Markdown.
func ADFToMarkdown(doc *ADFDocument) (string, error) {
	return NewADFConverter().FromADF(doc)
}
