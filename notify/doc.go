// Package notify delivers workflow event notifications to external
// channels.
//
// Core types:
//   - Notifier: Interface for sending notifications
//   - Event: Notification event with type, message, and metadata
//   - EventType: Type of event (workflow_started, step_failed, etc.)
//
// Implementations:
//   - SlackNotifier: Sends notifications to Slack webhooks
//   - WebhookNotifier: Sends notifications to generic webhooks,
//     optionally signed with a JWT bearer token
//   - LogNotifier: Logs notifications (for testing/debugging)
//   - MultiNotifier: Combines multiple notifiers
//   - NopNotifier: No-op notifier (for testing)
//
// Example usage:
//
//	notifier := notify.NewSlackNotifier(webhookURL,
//	    notify.WithSlackChannel("#dev-alerts"),
//	    notify.WithSlackUsername("ticketflow"),
//	)
//	err := notifier.Notify(ctx, notify.Event{
//	    Type:       notify.EventWorkflowCompleted,
//	    WorkflowID: wf.ID,
//	    TicketKey:  wf.TicketKey,
//	    Message:    "Workflow completed successfully",
//	})
package notify
