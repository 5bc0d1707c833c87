// Package notifier provides the delivery backends a dispatcher can show
// notifications through.
package notifier

import (
	"context"
	"log/slog"

	"notifyd/internal/domain"
)

// Runner is implemented by backends that need a long-running loop to
// receive events (polling, socket reads). The caller runs it in its own
// goroutine next to the server.
type Runner interface {
	Run(ctx context.Context) error
}

// Log is the default backend. It writes every notification to the log and
// never produces events, which makes it a safe stand-in on hosts without a
// native toast surface.
type Log struct {
	logger *slog.Logger
}

func NewLog(logger *slog.Logger) *Log {
	return &Log{logger: logger}
}

func (l *Log) Show(ctx context.Context, tag, markup string) error {
	l.logger.Info("notification shown", "tag", tag, "markup", markup)
	return nil
}

// Subscribe is a no-op: the log backend has no event source.
func (l *Log) Subscribe(sink domain.EventSink) {}
