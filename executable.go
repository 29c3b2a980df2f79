package coalesce

import (
	"context"
	"fmt"
)

// Executable is the type-erased unit of work the worker pool drains from
// the queue. It couples a concrete job, its identifier, its optional dedup
// key, and the manager to report into, so that heterogeneous job types can
// share one queue.
type Executable interface {
	// ID returns the task identifier, for logs, metrics and traces.
	ID() TaskID

	// Execute runs the wrapped job to completion and reports its result
	// into the registry exactly once, fanning it out to every waiter.
	// The returned error mirrors what was reported and exists for
	// observability only; result delivery does not depend on the caller
	// inspecting it.
	Execute(ctx context.Context) error
}

// managedTask is the Executable implementation produced by Enqueue. The
// generic wrapper is what lets the registry stay ignorant of job types:
// by the time a task is on the queue, T appears only inside closures.
type managedTask[Key comparable, T any] struct {
	id      TaskID
	key     *Key
	job     Job[T]
	manager *Manager[Key]
}

func (t *managedTask[Key, T]) ID() TaskID { return t.id }

func (t *managedTask[Key, T]) Execute(ctx context.Context) (retErr error) {
	// A panicking job must still report, or its waiters would hang
	// forever. The panic surfaces to them as ErrTaskAborted, never as the
	// job's own error type.
	defer func() {
		if r := recover(); r != nil {
			var zero T
			retErr = fmt.Errorf("%w: panic: %v", ErrTaskAborted, r)
			Complete(t.manager, t.id, t.key, zero, retErr)
		}
	}()

	value, err := t.job.Execute(ctx)
	Complete(t.manager, t.id, t.key, value, err)
	return err
}
