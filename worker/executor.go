// Package worker provides the task execution engine: an Executor that
// runs dequeued Executables through middleware, and a Pool that manages
// concurrent worker goroutines draining the work queue.
package worker

import (
	"context"
	"log/slog"

	"github.com/xraph/coalesce"
	"github.com/xraph/coalesce/middleware"
)

// Executor runs a single Executable through the middleware chain. Result
// delivery is the Executable's own responsibility; it reports into the
// registry whether or not anyone inspects the returned error.
type Executor struct {
	mw     middleware.Middleware
	logger *slog.Logger
}

// NewExecutor creates an Executor with the given middleware chain.
func NewExecutor(logger *slog.Logger, mws ...middleware.Middleware) *Executor {
	return &Executor{
		mw:     middleware.Chain(mws...),
		logger: logger,
	}
}

// Execute runs task through the middleware chain. The returned error is
// the outcome the task reported, surfaced for logging and metrics.
func (e *Executor) Execute(ctx context.Context, task coalesce.Executable) error {
	terminal := func(ctx context.Context) error {
		return task.Execute(ctx)
	}
	return e.mw(ctx, task, terminal)
}
