package shared

import (
	"context"
	"log/slog"
	"time"
)

// Detach runs fn in its own goroutine, outside the caller's cancellation, and logs any
// error or panic. The caller never waits for it and never sees its outcome.
func Detach(ctx context.Context, logger *slog.Logger, name string, fn func(context.Context) error) {
	if logger == nil {
		logger = slog.Default()
	}
	detached := context.WithoutCancel(ctx)
	go func() {
		start := time.Now()
		defer func() {
			if rec := recover(); rec != nil {
				logger.Error("detached task panicked", slog.String("task", name), slog.Any("panic", rec))
			}
		}()
		if err := fn(detached); err != nil {
			logger.Warn("detached task failed",
				slog.String("task", name),
				slog.Duration("elapsed", time.Since(start)),
				slog.Any("error", err))
		}
	}()
}
