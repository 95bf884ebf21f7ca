package notify

import (
	"context"
	"log/slog"
)

// NopNotifier discards every event. Used when no notification channel
// is configured.
type NopNotifier struct{}

// Notify implements Notifier.
func (NopNotifier) Notify(ctx context.Context, event Event) error {
	return nil
}

// MultiNotifier fans an event out to several channels, e.g. Slack plus
// a webhook. A failing channel never blocks the others.
type MultiNotifier struct {
	Notifiers []Notifier
	Logger    *slog.Logger
}

// NewMultiNotifier creates a fan-out over the given notifiers.
func NewMultiNotifier(notifiers ...Notifier) *MultiNotifier {
	return &MultiNotifier{
		Notifiers: notifiers,
		Logger:    slog.Default(),
	}
}

// Notify implements Notifier. Every notifier is attempted; failures
// are logged and the last one is returned.
func (n *MultiNotifier) Notify(ctx context.Context, event Event) error {
	var lastErr error
	for _, notifier := range n.Notifiers {
		err := notifier.Notify(ctx, event)
		if err == nil {
			continue
		}
		lastErr = err
		if n.Logger != nil {
			n.Logger.Warn("notifier failed",
				"error", err,
				"event_type", event.Type,
				"workflow_id", event.WorkflowID,
			)
		}
	}
	return lastErr
}
