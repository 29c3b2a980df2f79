package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"

	"github.com/xraph/coalesce"
)

// Recover returns middleware that recovers from panics in the handler
// chain. Panics are converted to errors and logged with a stack trace.
//
// The registry's own Executable wrapper already reports a panicking job
// as aborted, so waiters never hang either way; this middleware protects
// the worker goroutine from custom Executable implementations and from
// panics raised in other middleware.
func Recover(logger *slog.Logger) Middleware {
	return func(ctx context.Context, task coalesce.Executable, next Handler) (retErr error) {
		defer func() {
			if r := recover(); r != nil {
				stack := string(debug.Stack())
				logger.Error("task execution panicked",
					slog.Uint64("task_id", uint64(task.ID())),
					slog.Any("panic", r),
					slog.String("stack", stack),
				)
				retErr = fmt.Errorf("panic in task %d: %v", task.ID(), r)
			}
		}()
		return next(ctx)
	}
}
