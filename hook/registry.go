package hook

import (
	"context"
	"log/slog"

	"github.com/xraph/coalesce"
)

// Named entry types pair a hook implementation with the extension name
// captured at registration time. This avoids type-asserting back to
// Extension inside the emit methods.
type taskEnqueuedEntry struct {
	name string
	hook TaskEnqueued
}

type taskCoalescedEntry struct {
	name string
	hook TaskCoalesced
}

type taskCompletedEntry struct {
	name string
	hook TaskCompleted
}

type taskAbortedEntry struct {
	name string
	hook TaskAborted
}

// Registry holds registered extensions and dispatches lifecycle events to
// them. It type-caches extensions at registration time so emit calls
// iterate only over extensions that implement the relevant hook.
//
// Registry satisfies coalesce.Observer; hand it to a Manager via
// coalesce.WithObserver.
type Registry struct {
	extensions []Extension
	logger     *slog.Logger

	// Type-cached slices for each lifecycle hook.
	taskEnqueued  []taskEnqueuedEntry
	taskCoalesced []taskCoalescedEntry
	taskCompleted []taskCompletedEntry
	taskAborted   []taskAbortedEntry
}

var _ coalesce.Observer = (*Registry)(nil)

// NewRegistry creates an extension registry with the given logger.
func NewRegistry(logger *slog.Logger) *Registry {
	return &Registry{logger: logger}
}

// Register adds an extension and type-asserts it into all applicable hook
// caches. Extensions are notified in registration order.
func (r *Registry) Register(e Extension) {
	r.extensions = append(r.extensions, e)
	name := e.Name()

	if h, ok := e.(TaskEnqueued); ok {
		r.taskEnqueued = append(r.taskEnqueued, taskEnqueuedEntry{name, h})
	}
	if h, ok := e.(TaskCoalesced); ok {
		r.taskCoalesced = append(r.taskCoalesced, taskCoalescedEntry{name, h})
	}
	if h, ok := e.(TaskCompleted); ok {
		r.taskCompleted = append(r.taskCompleted, taskCompletedEntry{name, h})
	}
	if h, ok := e.(TaskAborted); ok {
		r.taskAborted = append(r.taskAborted, taskAbortedEntry{name, h})
	}
}

// Extensions returns the registered extensions in registration order.
func (r *Registry) Extensions() []Extension {
	return r.extensions
}

// TaskEnqueued notifies all TaskEnqueued hooks.
func (r *Registry) TaskEnqueued(ctx context.Context, id coalesce.TaskID, keyed bool) {
	for _, entry := range r.taskEnqueued {
		if err := entry.hook.OnTaskEnqueued(ctx, id, keyed); err != nil {
			r.logHookError(entry.name, "task_enqueued", id, err)
		}
	}
}

// TaskCoalesced notifies all TaskCoalesced hooks.
func (r *Registry) TaskCoalesced(ctx context.Context, id coalesce.TaskID) {
	for _, entry := range r.taskCoalesced {
		if err := entry.hook.OnTaskCoalesced(ctx, id); err != nil {
			r.logHookError(entry.name, "task_coalesced", id, err)
		}
	}
}

// TaskCompleted notifies all TaskCompleted hooks.
func (r *Registry) TaskCompleted(ctx context.Context, id coalesce.TaskID, taskErr error) {
	for _, entry := range r.taskCompleted {
		if err := entry.hook.OnTaskCompleted(ctx, id, taskErr); err != nil {
			r.logHookError(entry.name, "task_completed", id, err)
		}
	}
}

// TaskAborted notifies all TaskAborted hooks.
func (r *Registry) TaskAborted(ctx context.Context, id coalesce.TaskID) {
	for _, entry := range r.taskAborted {
		if err := entry.hook.OnTaskAborted(ctx, id); err != nil {
			r.logHookError(entry.name, "task_aborted", id, err)
		}
	}
}

// logHookError logs a failed hook invocation. Hook failures never affect
// registry operation.
func (r *Registry) logHookError(name, event string, id coalesce.TaskID, err error) {
	r.logger.Error("extension hook failed",
		slog.String("extension", name),
		slog.String("event", event),
		slog.Uint64("task_id", uint64(id)),
		slog.String("error", err.Error()),
	)
}
