package ticketflow

import (
	"strings"
	"testing"
)

func contains(s, sub string) bool {
	return strings.Contains(s, sub)
}

func containsAll(s string, subs ...string) bool {
	for _, sub := range subs {
		if !strings.Contains(s, sub) {
			return false
		}
	}
	return true
}

func mustWorkflow(t *testing.T, ticket Ticket) DevelopmentWorkflow {
	t.Helper()
	w, err := NewWorkflow(ticket)
	if err != nil {
		t.Fatalf("NewWorkflow: %v", err)
	}
	return w
}
