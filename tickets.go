package ticketflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/randalmurphal/ticketflow/jira"
)

// defaultStatusAliases maps a requested status to equivalent transition
// names. Jira workflows name the review column inconsistently, so the
// adapter walks these when the requested name is not available.
var defaultStatusAliases = map[string][]string{
	"In Review": {"Code Review", "Review"},
}

// JiraTickets implements TicketClient over the Jira REST API. Rich text is
// converted between Markdown and the instance's native format (ADF on
// Cloud, Wiki Markup on Server).
type JiraTickets struct {
	client  *jira.Client
	logger  *slog.Logger
	aliases map[string][]string
}

// TicketsOption configures a JiraTickets.
type TicketsOption func(*JiraTickets)

// WithTicketsLogger sets the structured logger.
func WithTicketsLogger(logger *slog.Logger) TicketsOption {
	return func(t *JiraTickets) { t.logger = logger }
}

// WithStatusAlias registers transition names tried, in order, when the
// requested status has no matching transition. Replaces any default
// aliases for that status.
func WithStatusAlias(status string, aliases ...string) TicketsOption {
	return func(t *JiraTickets) { t.aliases[status] = aliases }
}

// NewJiraTickets builds a TicketClient over the Jira client.
func NewJiraTickets(client *jira.Client, opts ...TicketsOption) (*JiraTickets, error) {
	if client == nil {
		return nil, fmt.Errorf("jira client is required")
	}
	t := &JiraTickets{
		client:  client,
		logger:  slog.Default(),
		aliases: make(map[string][]string, len(defaultStatusAliases)),
	}
	for status, aliases := range defaultStatusAliases {
		t.aliases[status] = aliases
	}
	for _, opt := range opts {
		opt(t)
	}
	return t, nil
}

// GetTicket fetches the issue and maps it to a workflow Ticket. The
// description comes back as Markdown regardless of deployment type.
func (t *JiraTickets) GetTicket(ctx context.Context, key string) (Ticket, error) {
	issue, err := t.client.GetIssue(ctx, key)
	if err != nil {
		return Ticket{}, t.wrapErr(key, err)
	}

	description, err := t.client.RichTextConverter().FromJira(issue.Fields.Description)
	if err != nil {
		t.logger.Warn("could not convert ticket description", "key", key, "error", err)
		description = ""
	}

	ticket := Ticket{
		Key:         issue.Key,
		Summary:     issue.Fields.Summary,
		Description: description,
		Status:      issue.Fields.StatusName(),
		Labels:      issue.Fields.Labels,
		URL:         t.client.BaseURL() + "/browse/" + issue.Key,
	}
	if issue.Fields.Priority != nil {
		ticket.Priority = issue.Fields.Priority.Name
	}
	if issue.Fields.IssueType != nil {
		ticket.Type = strings.ToLower(issue.Fields.IssueType.Name)
	}
	if issue.Fields.Assignee != nil {
		ticket.Assignee = issue.Fields.Assignee.DisplayName
	}
	if issue.Fields.Reporter != nil {
		ticket.Reporter = issue.Fields.Reporter.DisplayName
	}
	return ticket, nil
}

// AddComment posts a Markdown comment, converted to the instance's rich
// text format.
func (t *JiraTickets) AddComment(ctx context.Context, key, text string) error {
	body, err := t.client.RichTextConverter().ToJira(text)
	if err != nil {
		return fmt.Errorf("convert comment for %s: %w", key, err)
	}
	if _, err := t.client.AddComment(ctx, key, body); err != nil {
		return t.wrapErr(key, err)
	}
	return nil
}

// UpdateStatus transitions the ticket to the named status. When the
// workflow does not expose a transition with that name, registered
// aliases are tried in order.
func (t *JiraTickets) UpdateStatus(ctx context.Context, key, statusName string) error {
	names := []string{statusName}
	for status, aliases := range t.aliases {
		if strings.EqualFold(status, statusName) {
			names = append(names, aliases...)
			break
		}
	}

	for _, name := range names {
		err := t.client.TransitionIssueByName(ctx, key, name)
		if err == nil {
			if !strings.EqualFold(name, statusName) {
				t.logger.Info("transitioned via alias", "key", key, "requested", statusName, "used", name)
			}
			return nil
		}
		if !errors.Is(err, jira.ErrTransitionNotFound) {
			return t.wrapErr(key, err)
		}
	}

	return fmt.Errorf("ticket %s has no transition to %q: %w", key, statusName, jira.ErrTransitionNotFound)
}

// wrapErr maps tracker failures onto the workflow's sentinel errors so
// callers can branch without importing the jira package.
func (t *JiraTickets) wrapErr(key string, err error) error {
	switch {
	case jira.IsNotFound(err):
		return fmt.Errorf("ticket %s: %w", key, ErrTicketNotFound)
	case jira.IsUnauthorized(err):
		return fmt.Errorf("ticket %s: %w", key, ErrUnauthorized)
	}
	return fmt.Errorf("ticket %s: %w", key, err)
}
