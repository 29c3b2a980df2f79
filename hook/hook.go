// Package hook defines lifecycle observers for a coalesce Manager.
//
// Extensions are notified of registry events and can react to them, for
// example by recording metrics or emitting audit trails. Each lifecycle
// hook is a separate interface so extensions opt in only
// to the events they care about.
//
// # Implementing an Extension
//
//	type MyExtension struct{}
//
//	func (e *MyExtension) Name() string { return "my-extension" }
//
//	// Opt in to specific hooks by implementing their interfaces.
//	func (e *MyExtension) OnTaskCompleted(ctx context.Context, id coalesce.TaskID, err error) error {
//	    log.Printf("task %d completed: err=%v", id, err)
//	    return nil
//	}
//
// # Lifecycle Hooks
//
//   - [TaskEnqueued] — a task was pushed onto the work queue
//   - [TaskCoalesced] — a single-flight lookup joined an in-flight task
//   - [TaskCompleted] — a task's result was fanned out to its waiters
//   - [TaskAborted] — a task's waiters were drained with the aborted signal
//
// The [Registry] fans each event out to all registered extensions that
// implement the corresponding hook interface, and satisfies
// coalesce.Observer so it plugs directly into a Manager.
package hook

import (
	"context"

	"github.com/xraph/coalesce"
)

// Extension is the base interface all extensions must implement.
type Extension interface {
	// Name returns a unique human-readable name for the extension.
	Name() string
}

// TaskEnqueued is called after a task is pushed onto the work queue.
type TaskEnqueued interface {
	OnTaskEnqueued(ctx context.Context, id coalesce.TaskID, keyed bool) error
}

// TaskCoalesced is called when a single-flight lookup attaches a new
// waiter to an already in-flight task instead of queuing new work.
type TaskCoalesced interface {
	OnTaskCoalesced(ctx context.Context, id coalesce.TaskID) error
}

// TaskCompleted is called after a completion was fanned out to a task's
// waiters. err is the error the task reported, or nil on success.
type TaskCompleted interface {
	OnTaskCompleted(ctx context.Context, id coalesce.TaskID, err error) error
}

// TaskAborted is called for each task whose waiters were drained with the
// aborted signal at shutdown.
type TaskAborted interface {
	OnTaskAborted(ctx context.Context, id coalesce.TaskID) error
}
