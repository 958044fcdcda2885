package notify

import (
	"context"
	"log/slog"
)

type Kind string

const (
	KindInfo  Kind = "info"
	KindError Kind = "error"
)

type (
	// Notifier shows a message to the user. Delivery is fire-and-forget;
	// callers never observe the outcome.
	Notifier interface {
		Notify(kind Kind, title, description string)
	}

	// Log records notifications as structured log entries.
	Log struct {
		logger *slog.Logger
	}

	// Func adapts a function to Notifier.
	Func func(kind Kind, title, description string)

	discard struct{}
)

// Discard drops every notification.
var Discard Notifier = discard{}

func NewLog(logger *slog.Logger) *Log {
	return &Log{logger: logger}
}

func (l *Log) Notify(kind Kind, title, description string) {
	lvl := slog.LevelInfo
	if kind == KindError {
		lvl = slog.LevelError
	}
	l.logger.Log(context.Background(), lvl, "Notification",
		slog.String("kind", string(kind)),
		slog.String("title", title),
		slog.String("description", description))
}

func (f Func) Notify(kind Kind, title, description string) {
	f(kind, title, description)
}

func (discard) Notify(Kind, string, string) {}
