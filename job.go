package coalesce

import "context"

// Job is a unit of asynchronous work producing a value of type T.
// Execute may block or take arbitrary time; the coordination layer imposes
// no deadline of its own, so implementations should honor ctx if they want
// to participate in shutdown.
type Job[T any] interface {
	Execute(ctx context.Context) (T, error)
}

// Keyed is a Job that also exposes a deduplication key identifying "the
// same logical unit of work". The key is read once, before the job is
// queued, and is used purely for single-flight coalescing; it is never
// passed to Execute.
type Keyed[Key comparable, T any] interface {
	Job[T]
	Key() Key
}

// JobFunc adapts an ordinary function to the Job interface.
type JobFunc[T any] func(ctx context.Context) (T, error)

// Execute calls f.
func (f JobFunc[T]) Execute(ctx context.Context) (T, error) { return f(ctx) }
