package ticketflow

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/randalmurphal/ticketflow/jira"
)

// newJiraFixture builds a JiraTickets against a test server using API v2 so
// rich text travels as plain wiki strings.
func newJiraFixture(t *testing.T, handler http.Handler) (*JiraTickets, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	cfg := jira.DefaultConfig()
	cfg.URL = server.URL
	cfg.APIVersion = jira.APIVersionV2
	cfg.Auth = jira.AuthConfig{Type: jira.AuthPAT, Token: "test-token"}
	cfg.RateLimit.RetryWaitMin = time.Millisecond
	cfg.RateLimit.RetryWaitMax = 5 * time.Millisecond
	cfg.RateLimit.RetryJitter = false

	client, err := jira.NewClient(cfg)
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}
	tickets, err := NewJiraTickets(client)
	if err != nil {
		t.Fatalf("NewJiraTickets failed: %v", err)
	}
	return tickets, server
}

func TestJiraTicketsGetTicket(t *testing.T) {
	tickets, server := newJiraFixture(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(jira.Issue{
			ID:  "10500",
			Key: "PROJ-123",
			Fields: jira.IssueFields{
				Summary:     "Fix login bug",
				Description: "h2. Steps\n* open the login page",
				Status:      &jira.Status{Name: "To Do"},
				Priority:    &jira.Priority{Name: "High"},
				IssueType:   &jira.IssueType{Name: "Bug"},
				Labels:      []string{"auth"},
				Assignee:    &jira.User{DisplayName: "Dana"},
			},
		})
	}))

	ticket, err := tickets.GetTicket(context.Background(), "PROJ-123")
	if err != nil {
		t.Fatalf("GetTicket failed: %v", err)
	}

	if ticket.Key != "PROJ-123" {
		t.Errorf("Key = %q, want %q", ticket.Key, "PROJ-123")
	}
	if ticket.Summary != "Fix login bug" {
		t.Errorf("Summary = %q, want %q", ticket.Summary, "Fix login bug")
	}
	if ticket.Status != "To Do" {
		t.Errorf("Status = %q, want %q", ticket.Status, "To Do")
	}
	// Wiki markup comes back as Markdown.
	if !strings.Contains(ticket.Description, "## Steps") {
		t.Errorf("Description = %q, want markdown heading", ticket.Description)
	}
	if !strings.Contains(ticket.Description, "- open the login page") {
		t.Errorf("Description = %q, want markdown list item", ticket.Description)
	}
	if ticket.Priority != "High" {
		t.Errorf("Priority = %q, want %q", ticket.Priority, "High")
	}
	if ticket.Type != "bug" {
		t.Errorf("Type = %q, want %q", ticket.Type, "bug")
	}
	if ticket.Assignee != "Dana" {
		t.Errorf("Assignee = %q, want %q", ticket.Assignee, "Dana")
	}
	wantURL := server.URL + "/browse/PROJ-123"
	if ticket.URL != wantURL {
		t.Errorf("URL = %q, want %q", ticket.URL, wantURL)
	}
}

func TestJiraTicketsGetTicketNotFound(t *testing.T) {
	tickets, _ := newJiraFixture(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))

	_, err := tickets.GetTicket(context.Background(), "PROJ-404")
	if !errors.Is(err, ErrTicketNotFound) {
		t.Errorf("GetTicket error = %v, want %v", err, ErrTicketNotFound)
	}
}

func TestJiraTicketsGetTicketUnauthorized(t *testing.T) {
	tickets, _ := newJiraFixture(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))

	_, err := tickets.GetTicket(context.Background(), "PROJ-1")
	if !errors.Is(err, ErrUnauthorized) {
		t.Errorf("GetTicket error = %v, want %v", err, ErrUnauthorized)
	}
}

func TestJiraTicketsAddComment(t *testing.T) {
	var gotBody map[string]any
	tickets, _ := newJiraFixture(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(jira.Comment{ID: "42"})
	}))

	err := tickets.AddComment(context.Background(), "PROJ-5", "## Update\n\nwork `started`")
	if err != nil {
		t.Fatalf("AddComment failed: %v", err)
	}

	// API v2 carries wiki markup in the body field.
	body, ok := gotBody["body"].(string)
	if !ok {
		t.Fatalf("body = %T, want string", gotBody["body"])
	}
	if !strings.Contains(body, "h2. Update") {
		t.Errorf("body = %q, want wiki heading", body)
	}
	if !strings.Contains(body, "{{started}}") {
		t.Errorf("body = %q, want wiki inline code", body)
	}
}

func TestJiraTicketsUpdateStatusAlias(t *testing.T) {
	var transitionedTo string
	tickets, _ := newJiraFixture(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			_ = json.NewEncoder(w).Encode(jira.TransitionsResponse{
				Transitions: []jira.Transition{
					{ID: "11", Name: "Backlog"},
					{ID: "21", Name: "Code Review"},
				},
			})
		case http.MethodPost:
			var req jira.TransitionRequest
			_ = json.NewDecoder(r.Body).Decode(&req)
			transitionedTo = req.Transition.ID
			w.WriteHeader(http.StatusNoContent)
		}
	}))

	// "In Review" is not offered; the adapter falls back to "Code Review".
	if err := tickets.UpdateStatus(context.Background(), "PROJ-9", "In Review"); err != nil {
		t.Fatalf("UpdateStatus failed: %v", err)
	}
	if transitionedTo != "21" {
		t.Errorf("transition id = %q, want %q", transitionedTo, "21")
	}
}

func TestJiraTicketsUpdateStatusNoTransition(t *testing.T) {
	tickets, _ := newJiraFixture(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(jira.TransitionsResponse{
			Transitions: []jira.Transition{{ID: "11", Name: "Backlog"}},
		})
	}))

	err := tickets.UpdateStatus(context.Background(), "PROJ-9", "Deployed")
	if !errors.Is(err, jira.ErrTransitionNotFound) {
		t.Errorf("UpdateStatus error = %v, want %v", err, jira.ErrTransitionNotFound)
	}
}
