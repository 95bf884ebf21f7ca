package notify

import (
	"context"
	"log/slog"
)

// LogNotifier writes events to a structured logger. It doubles as a
// local development channel and as a fallback when no remote channel
// is configured.
type LogNotifier struct {
	Logger *slog.Logger
}

// NewLogNotifier creates a notifier over the given logger, or the
// default logger when nil.
func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogNotifier{Logger: logger}
}

// Notify implements Notifier. Event severity maps onto the log level.
func (n *LogNotifier) Notify(ctx context.Context, event Event) error {
	n.Logger.Log(ctx, logLevel(event.Severity), event.Message,
		"type", event.Type,
		"workflow_id", event.WorkflowID,
		"ticket_key", event.TicketKey,
		"step_id", event.StepID,
		"metadata", event.Metadata,
	)
	return nil
}

func logLevel(severity string) slog.Level {
	switch severity {
	case SeverityError:
		return slog.LevelError
	case SeverityWarning:
		return slog.LevelWarn
	default:
		return slog.LevelInfo
	}
}
