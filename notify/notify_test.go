package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/randalmurphal/ticketflow/auth"
)

// =============================================================================
// Event Type Tests
// =============================================================================

func TestEventTypes(t *testing.T) {
	// Verify all event types are unique
	types := []EventType{
		EventWorkflowStarted,
		EventWorkflowCompleted,
		EventWorkflowFailed,
		EventStepCompleted,
		EventStepFailed,
	}

	seen := make(map[EventType]bool)
	for _, et := range types {
		if seen[et] {
			t.Errorf("duplicate event type: %s", et)
		}
		seen[et] = true
	}
}

func TestSeverityLevels(t *testing.T) {
	// Verify severity levels are unique
	levels := []string{SeverityInfo, SeverityWarning, SeverityError}

	seen := make(map[string]bool)
	for _, s := range levels {
		if seen[s] {
			t.Errorf("duplicate severity: %s", s)
		}
		seen[s] = true
	}
}

// =============================================================================
// NopNotifier Tests
// =============================================================================

func TestNopNotifier(t *testing.T) {
	n := NopNotifier{}
	ctx := context.Background()

	err := n.Notify(ctx, Event{
		Type:    EventWorkflowStarted,
		Message: "test",
	})

	if err != nil {
		t.Errorf("NopNotifier.Notify() error = %v, want nil", err)
	}
}

// =============================================================================
// LogNotifier Tests
// =============================================================================

func TestLogNotifier(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	n := NewLogNotifier(logger)
	ctx := context.Background()

	event := Event{
		Type:       EventWorkflowCompleted,
		WorkflowID: "wf-123",
		TicketKey:  "PROJ-42",
		Message:    "Workflow completed",
		Severity:   SeverityInfo,
		Timestamp:  time.Now(),
	}

	err := n.Notify(ctx, event)
	if err != nil {
		t.Errorf("LogNotifier.Notify() error = %v", err)
	}

	output := buf.String()
	if !strings.Contains(output, "Workflow completed") {
		t.Errorf("Log output missing message: %s", output)
	}
	if !strings.Contains(output, "wf-123") {
		t.Errorf("Log output missing workflow_id: %s", output)
	}
	if !strings.Contains(output, "PROJ-42") {
		t.Errorf("Log output missing ticket_key: %s", output)
	}
}

func TestLogNotifier_Severity(t *testing.T) {
	tests := []struct {
		severity string
		wantLog  string
	}{
		{SeverityInfo, "level=INFO"},
		{SeverityWarning, "level=WARN"},
		{SeverityError, "level=ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.severity, func(t *testing.T) {
			var buf bytes.Buffer
			logger := slog.New(slog.NewTextHandler(&buf, nil))
			n := NewLogNotifier(logger)

			err := n.Notify(context.Background(), Event{
				Type:     EventWorkflowStarted,
				Message:  "test",
				Severity: tt.severity,
			})

			if err != nil {
				t.Errorf("Notify() error = %v", err)
			}

			if !strings.Contains(buf.String(), tt.wantLog) {
				t.Errorf("Log output = %q, want to contain %q", buf.String(), tt.wantLog)
			}
		})
	}
}

func TestLogNotifier_NilLogger(t *testing.T) {
	n := NewLogNotifier(nil)
	if n.Logger == nil {
		t.Error("NewLogNotifier should use default logger when nil")
	}
}

// =============================================================================
// WebhookNotifier Tests
// =============================================================================

func TestWebhookNotifier(t *testing.T) {
	var receivedBody []byte
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("Method = %s, want POST", r.Method)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("Content-Type = %s, want application/json", ct)
		}
		receivedBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	n := NewWebhookNotifier(server.URL)
	ctx := context.Background()

	event := Event{
		Type:       EventWorkflowCompleted,
		WorkflowID: "wf-123",
		TicketKey:  "PROJ-42",
		Message:    "Webhook test",
		Severity:   SeverityInfo,
		Timestamp:  time.Now(),
	}

	err := n.Notify(ctx, event)
	if err != nil {
		t.Errorf("WebhookNotifier.Notify() error = %v", err)
	}

	var parsed Event
	if err := json.Unmarshal(receivedBody, &parsed); err != nil {
		t.Errorf("Failed to parse received body: %v", err)
	}
	if parsed.WorkflowID != "wf-123" {
		t.Errorf("Received WorkflowID = %s, want wf-123", parsed.WorkflowID)
	}
}

func TestWebhookNotifier_CustomHeaders(t *testing.T) {
	var receivedAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		receivedAuth = r.Header.Get("Authorization")
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	n := NewWebhookNotifier(server.URL, WithWebhookHeaders(map[string]string{
		"Authorization": "Bearer test-token",
	}))

	err := n.Notify(context.Background(), Event{Type: EventWorkflowStarted})
	if err != nil {
		t.Errorf("Notify() error = %v", err)
	}

	if receivedAuth != "Bearer test-token" {
		t.Errorf("Authorization header = %q, want 'Bearer test-token'", receivedAuth)
	}
}

func TestWebhookNotifier_JWTSigning(t *testing.T) {
	cfg := auth.JWTConfig{
		Secret: []byte("0123456789abcdef0123456789abcdef"),
		Issuer: "ticketflow",
	}

	var receivedAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		receivedAuth = r.Header.Get("Authorization")
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	n := NewWebhookNotifier(server.URL, WithWebhookJWT(cfg, "notifier"))

	err := n.Notify(context.Background(), Event{Type: EventWorkflowFailed})
	if err != nil {
		t.Fatalf("Notify() error = %v", err)
	}

	token, ok := strings.CutPrefix(receivedAuth, "Bearer ")
	if !ok {
		t.Fatalf("Authorization header = %q, want bearer token", receivedAuth)
	}

	claims, err := auth.ValidateToken(cfg, token)
	if err != nil {
		t.Fatalf("ValidateToken() error = %v", err)
	}
	if claims.Subject != "notifier" {
		t.Errorf("Subject = %q, want notifier", claims.Subject)
	}
}

func TestWebhookNotifier_ErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	n := NewWebhookNotifier(server.URL)
	err := n.Notify(context.Background(), Event{Type: EventWorkflowStarted})

	if err == nil {
		t.Error("Notify() should return error for 500 status")
	}
}

func TestWebhookNotifier_NetworkError(t *testing.T) {
	n := NewWebhookNotifier("http://localhost:99999") // Invalid port
	err := n.Notify(context.Background(), Event{Type: EventWorkflowStarted})

	if err == nil {
		t.Error("Notify() should return error for network failure")
	}
}

// =============================================================================
// SlackNotifier Tests
// =============================================================================

func TestSlackNotifier(t *testing.T) {
	var receivedPayload slackPayload
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		json.Unmarshal(body, &receivedPayload)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	n := NewSlackNotifier(server.URL,
		WithSlackChannel("#test"),
		WithSlackUsername("testbot"),
	)

	event := Event{
		Type:       EventWorkflowCompleted,
		WorkflowID: "wf-123",
		TicketKey:  "PROJ-42",
		Message:    "PR created: https://github.com/org/repo/pull/1",
		Severity:   SeverityInfo,
		Timestamp:  time.Now(),
		Metadata: map[string]any{
			"pr_url": "https://github.com/org/repo/pull/1",
		},
	}

	err := n.Notify(context.Background(), event)
	if err != nil {
		t.Errorf("SlackNotifier.Notify() error = %v", err)
	}

	if receivedPayload.Channel != "#test" {
		t.Errorf("Channel = %s, want #test", receivedPayload.Channel)
	}
	if receivedPayload.Username != "testbot" {
		t.Errorf("Username = %s, want testbot", receivedPayload.Username)
	}
	if len(receivedPayload.Attachments) == 0 {
		t.Fatal("Missing attachments")
	}
	if footer := receivedPayload.Attachments[0].Footer; !strings.Contains(footer, "PROJ-42") {
		t.Errorf("Footer = %q, want to contain ticket key", footer)
	}
}

func TestSlackNotifier_EventEmoji(t *testing.T) {
	// Terminal events should be visually distinct from each other and
	// from the fallback.
	types := []EventType{
		EventWorkflowStarted,
		EventWorkflowCompleted,
		EventWorkflowFailed,
		EventStepFailed,
		EventType("unknown"),
	}

	seen := make(map[string]EventType)
	for _, et := range types {
		emoji := eventEmoji(et)
		if emoji == "" {
			t.Errorf("eventEmoji(%s) = empty", et)
		}
		if prev, ok := seen[emoji]; ok {
			t.Errorf("eventEmoji(%s) collides with %s", et, prev)
		}
		seen[emoji] = et
	}
}

func TestSlackNotifier_SeverityColor(t *testing.T) {
	tests := []struct {
		severity  string
		wantColor string
	}{
		{SeverityInfo, "good"},
		{SeverityWarning, "warning"},
		{SeverityError, "danger"},
	}

	for _, tt := range tests {
		t.Run(tt.severity, func(t *testing.T) {
			if color := severityColor(tt.severity); color != tt.wantColor {
				t.Errorf("severityColor() = %s, want %s", color, tt.wantColor)
			}
		})
	}
}

// =============================================================================
// MultiNotifier Tests
// =============================================================================

func TestMultiNotifier(t *testing.T) {
	var calls []string

	notifier1 := &mockNotifier{name: "n1", calls: &calls}
	notifier2 := &mockNotifier{name: "n2", calls: &calls}

	multi := NewMultiNotifier(notifier1, notifier2)

	err := multi.Notify(context.Background(), Event{Type: EventWorkflowStarted})
	if err != nil {
		t.Errorf("MultiNotifier.Notify() error = %v", err)
	}

	if len(calls) != 2 {
		t.Errorf("Call count = %d, want 2", len(calls))
	}
	if calls[0] != "n1" || calls[1] != "n2" {
		t.Errorf("Calls = %v, want [n1, n2]", calls)
	}
}

func TestMultiNotifier_ContinuesOnError(t *testing.T) {
	var calls []string

	notifier1 := &mockNotifier{name: "n1", calls: &calls, err: context.DeadlineExceeded}
	notifier2 := &mockNotifier{name: "n2", calls: &calls}

	var logBuf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logBuf, nil))
	multi := NewMultiNotifier(notifier1, notifier2)
	multi.Logger = logger

	err := multi.Notify(context.Background(), Event{Type: EventWorkflowStarted})

	// Should return the error but still call both notifiers
	if err == nil {
		t.Error("MultiNotifier should return last error")
	}

	if len(calls) != 2 {
		t.Errorf("Call count = %d, want 2 (both notifiers called)", len(calls))
	}
}

type mockNotifier struct {
	name  string
	calls *[]string
	err   error
}

func (m *mockNotifier) Notify(ctx context.Context, event Event) error {
	*m.calls = append(*m.calls, m.name)
	return m.err
}
