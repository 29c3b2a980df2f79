package coalesce

import "context"

// Observer receives lifecycle notifications from a Manager. It is an
// internal seam in the style of a callback registry: the hook package
// provides the standard implementation that fans events out to opt-in
// extensions.
//
// Observers are invoked outside the registry mutex and must not block;
// slow work belongs on the observer's own goroutine.
type Observer interface {
	// TaskEnqueued fires after a task is pushed onto the work queue.
	// keyed reports whether the task carries a dedup key.
	TaskEnqueued(ctx context.Context, id TaskID, keyed bool)

	// TaskCoalesced fires when a single-flight lookup attaches a new
	// waiter to an already in-flight task instead of queuing a new one.
	TaskCoalesced(ctx context.Context, id TaskID)

	// TaskCompleted fires after a completion was fanned out to the
	// task's waiters. err is the error the job reported, if any.
	TaskCompleted(ctx context.Context, id TaskID, err error)

	// TaskAborted fires for each task whose waiters were drained with
	// the aborted signal at shutdown.
	TaskAborted(ctx context.Context, id TaskID)
}
