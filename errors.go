package coalesce

import "errors"

var (
	// ErrQueueClosed is returned by Enqueue and LookupOrEnqueue once the
	// work queue has been permanently closed. It signals the coordinator
	// is shutting down; no further work can be submitted.
	ErrQueueClosed = errors.New("coalesce: work queue closed")

	// ErrTaskAborted is observed through a Handle when the executing side
	// disappeared without reporting a result: the task panicked, or the
	// coordinator shut down before the task ran. It is distinct from any
	// error the job itself returns.
	ErrTaskAborted = errors.New("coalesce: task aborted before reporting a result")
)
