package coalesce

import "context"

// TaskID identifies a submitted task. IDs are allocated from a counter
// under the registry mutex: strictly increasing, starting at 1, wrapping
// on overflow. No collision detection is performed; the full 64-bit space
// is assumed never to be exhausted while an old, unresolved task is still
// referenced.
type TaskID uint64

// result pairs a task outcome with the error (if any) it reported.
type result[T any] struct {
	value T
	err   error
}

// Handle is the caller-held future result of a submitted task. Multiple
// Handles may exist for one TaskID (several observers of one submission,
// or single-flight lookups coalescing onto one in-flight task) and every
// Handle created before the task completes is guaranteed to receive the
// result.
//
// A Handle carries no cancellation capability: dropping it does not stop
// execution, and the task runs to completion regardless.
type Handle[T any] struct {
	id  TaskID
	out <-chan result[T]
}

// ID returns the task identifier this Handle observes.
func (h *Handle[T]) ID() TaskID { return h.id }

// Resolve blocks until the task's result is delivered, returning the
// value the job produced or the error it reported. If the executing side
// disappeared without reporting (the task panicked or the coordinator
// shut down first), Resolve returns ErrTaskAborted rather than hanging.
//
// Resolve is the only blocking operation in the coordination core; ctx
// lets the caller impose its own deadline and yields ctx.Err() when it
// expires.
func (h *Handle[T]) Resolve(ctx context.Context) (T, error) {
	select {
	case res, ok := <-h.out:
		if !ok {
			var zero T
			return zero, ErrTaskAborted
		}
		return res.value, res.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// TryResolve is the non-blocking variant of Resolve. The second return
// reports whether a result (or the aborted signal) was available.
func (h *Handle[T]) TryResolve() (T, bool, error) {
	select {
	case res, ok := <-h.out:
		if !ok {
			var zero T
			return zero, true, ErrTaskAborted
		}
		return res.value, true, res.err
	default:
		var zero T
		return zero, false, nil
	}
}
