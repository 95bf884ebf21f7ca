package pr

import (
	"fmt"
	"strings"
)

// Builder constructs PR options using a fluent interface.
type Builder struct {
	opts Options
}

// NewBuilder creates a new PR builder with the given title.
func NewBuilder(title string) *Builder {
	return &Builder{
		opts: Options{
			Title: title,
			Base:  "main",
		},
	}
}

// WithTicket adds a ticket reference to the title.
// Example: "Add feature" -> "[PROJ-123] Add feature"
func (b *Builder) WithTicket(ticketKey string) *Builder {
	b.opts.Title = fmt.Sprintf("[%s] %s", ticketKey, b.opts.Title)
	return b
}

// WithBody sets the PR body.
func (b *Builder) WithBody(body string) *Builder {
	b.opts.Body = body
	return b
}

// WithSummary creates a formatted body with summary, changes, and test plan.
func (b *Builder) WithSummary(summary string, changes []string, testPlan string) *Builder {
	var body strings.Builder

	body.WriteString("## Summary\n\n")
	body.WriteString(summary)

	if len(changes) > 0 {
		body.WriteString("\n\n## Changes\n\n")
		for _, change := range changes {
			body.WriteString("- ")
			body.WriteString(change)
			body.WriteString("\n")
		}
	}

	if testPlan != "" {
		body.WriteString("\n## Test Plan\n\n")
		body.WriteString(testPlan)
	}

	body.WriteString("\n\n---\n*Generated by ticketflow*")
	b.opts.Body = body.String()
	return b
}

// WithBase sets the target branch.
func (b *Builder) WithBase(base string) *Builder {
	if base != "" {
		b.opts.Base = base
	}
	return b
}

// WithHead sets the source branch.
func (b *Builder) WithHead(head string) *Builder {
	b.opts.Head = head
	return b
}

// WithLabels adds labels.
func (b *Builder) WithLabels(labels ...string) *Builder {
	b.opts.Labels = append(b.opts.Labels, labels...)
	return b
}

// WithReviewers adds reviewers.
func (b *Builder) WithReviewers(reviewers ...string) *Builder {
	b.opts.Reviewers = append(b.opts.Reviewers, reviewers...)
	return b
}

// WithAssignees adds assignees.
func (b *Builder) WithAssignees(assignees ...string) *Builder {
	b.opts.Assignees = append(b.opts.Assignees, assignees...)
	return b
}

// AsDraft creates as a draft PR.
func (b *Builder) AsDraft() *Builder {
	b.opts.Draft = true
	return b
}

// Build returns the constructed PR options.
func (b *Builder) Build() Options {
	return b.opts
}
