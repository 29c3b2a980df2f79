package middleware

import (
	"context"
	"log/slog"
	"time"

	"github.com/xraph/coalesce"
)

// Logging returns middleware that logs task start and completion.
func Logging(logger *slog.Logger) Middleware {
	return func(ctx context.Context, task coalesce.Executable, next Handler) error {
		logger.Info("task started",
			slog.Uint64("task_id", uint64(task.ID())),
		)

		start := time.Now()
		err := next(ctx)
		elapsed := time.Since(start)

		if err != nil {
			logger.Error("task failed",
				slog.Uint64("task_id", uint64(task.ID())),
				slog.Duration("elapsed", elapsed),
				slog.String("error", err.Error()),
			)
		} else {
			logger.Info("task completed",
				slog.Uint64("task_id", uint64(task.ID())),
				slog.Duration("elapsed", elapsed),
			)
		}

		return err
	}
}
