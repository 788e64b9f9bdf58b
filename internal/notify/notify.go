// Package notify delivers user-visible notices to logs, live clients and the
// activity journal.
package notify

import (
	"context"
	"log/slog"

	"github.com/starford/pastename/internal/models"
)

// Notifier receives notices.
type Notifier interface {
	Notify(ctx context.Context, n models.Notice)
}

// Func adapts a function to Notifier.
type Func func(ctx context.Context, n models.Notice)

// Notify calls f.
func (f Func) Notify(ctx context.Context, n models.Notice) { f(ctx, n) }

// Fanout sends every notice to each notifier in order.
type Fanout []Notifier

// Notify implements Notifier.
func (f Fanout) Notify(ctx context.Context, n models.Notice) {
	for _, nt := range f {
		if nt != nil {
			nt.Notify(ctx, n)
		}
	}
}

// Log writes notices to logger at the matching level.
func Log(logger *slog.Logger) Notifier {
	return Func(func(ctx context.Context, n models.Notice) {
		level := slog.LevelInfo
		switch n.Level {
		case models.NoticeWarn:
			level = slog.LevelWarn
		case models.NoticeError:
			level = slog.LevelError
		}
		logger.Log(ctx, level, "notice: "+n.Message,
			slog.String("old_name", n.OldName),
			slog.String("new_name", n.NewName),
			slog.String("document", n.Document))
	})
}

// Recorder persists notices.
type Recorder interface {
	Record(ctx context.Context, n models.Notice) (int64, error)
}

// Journal stores notices in rec, logging failures instead of returning them.
func Journal(rec Recorder, logger *slog.Logger) Notifier {
	return Func(func(ctx context.Context, n models.Notice) {
		if _, err := rec.Record(ctx, n); err != nil {
			logger.Warn("notify: journal record failed", slog.String("error", err.Error()))
		}
	})
}
