package ticketflow

import (
	"context"
	"time"

	"github.com/randalmurphal/ticketflow/notify"
)

// notifyTimeout bounds a single notification delivery.
const notifyTimeout = 10 * time.Second

// NotifyListener adapts a Notifier into an event bus listener, so
// workflow lifecycle events fan out to Slack, webhooks, or logs:
//
//	bus.AddListener(ticketflow.NotifyListener(notifier))
//
// Delivery failures propagate as listener errors; the bus logs them
// without disturbing the workflow.
func NotifyListener(n notify.Notifier) Listener {
	return func(event Event) error {
		ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
		defer cancel()
		return n.Notify(ctx, toNotifyEvent(event))
	}
}

// toNotifyEvent translates an engine lifecycle event into the
// notification schema.
func toNotifyEvent(event Event) notify.Event {
	out := notify.Event{
		Type:       notifyType(event.Type),
		WorkflowID: event.WorkflowID,
		StepID:     event.StepID,
		Message:    event.Message,
		Severity:   notifySeverity(event.Type),
		Timestamp:  event.Timestamp,
		Metadata:   event.Data,
	}
	if key, ok := event.Data["ticket"].(string); ok {
		out.TicketKey = key
	}
	return out
}

func notifyType(t EventType) notify.EventType {
	switch t {
	case EventStarted:
		return notify.EventWorkflowStarted
	case EventCompleted:
		return notify.EventWorkflowCompleted
	case EventFailed:
		return notify.EventWorkflowFailed
	case EventStepCompleted:
		return notify.EventStepCompleted
	case EventStepFailed:
		return notify.EventStepFailed
	}
	return notify.EventType(t)
}

func notifySeverity(t EventType) string {
	switch t {
	case EventFailed, EventStepFailed:
		return notify.SeverityError
	}
	return notify.SeverityInfo
}
