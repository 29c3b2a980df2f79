package coalesce

import (
	"context"
	"log/slog"
	"sync"

	"github.com/xraph/coalesce/queue"
)

// waiter is a type-erased one-shot result sender. deliver is a closure
// captured at Handle creation time that already knows how to apply a
// concretely typed result to its concretely typed channel; abort closes
// that channel so the Handle observes ErrTaskAborted. The registry owns a
// waiter from registration until it is fired, exactly once, by either path.
type waiter struct {
	deliver func(value any, err error)
	abort   func()
}

// newWaiter registers the delivery closure for a channel of type T. The
// success assertion cannot mismatch: a waiter is only ever created
// alongside a Handle of the same type for the same task.
func newWaiter[T any](ch chan result[T]) waiter {
	return waiter{
		deliver: func(value any, err error) {
			if err != nil {
				var zero T
				ch <- result[T]{value: zero, err: err}
				return
			}
			if value == nil {
				var zero T
				ch <- result[T]{value: zero}
				return
			}
			ch <- result[T]{value: value.(T)}
		},
		abort: func() { close(ch) },
	}
}

// Manager is the jobs registry: the shared coordination point through
// which callers submit work and running tasks report completion. It owns
// the identifier counter, the per-task waiter lists, the dedup key map,
// and the producer side of the work queue, all behind a single mutex so
// no caller can ever observe a half-updated registry.
//
// A Manager is shared by reference: every producer and the worker pool
// hold the same instance for the lifetime of the embedding database.
type Manager[Key comparable] struct {
	mu sync.Mutex

	lastTaskID uint64
	waiters    map[TaskID][]waiter
	keyed      map[Key]TaskID
	queue      *queue.Unbounded[Executable]

	logger   *slog.Logger
	observer Observer
}

type managerOptions struct {
	logger   *slog.Logger
	observer Observer
}

// ManagerOption configures a Manager.
type ManagerOption func(*managerOptions)

// WithLogger sets the logger used for registry diagnostics.
// Defaults to slog.Default().
func WithLogger(logger *slog.Logger) ManagerOption {
	return func(o *managerOptions) { o.logger = logger }
}

// WithObserver sets the lifecycle observer notified of registry events.
func WithObserver(obs Observer) ManagerOption {
	return func(o *managerOptions) { o.observer = obs }
}

// NewManager creates an empty registry with an open work queue.
func NewManager[Key comparable](opts ...ManagerOption) *Manager[Key] {
	o := managerOptions{logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}

	return &Manager[Key]{
		waiters:  make(map[TaskID][]waiter),
		keyed:    make(map[Key]TaskID),
		queue:    queue.New[Executable](),
		logger:   o.logger,
		observer: o.observer,
	}
}

// Queue returns the consumer endpoint of the work queue, for a worker
// pool to drain. It is side-effect-free, may be called repeatedly, and
// the channel may be shared by any number of concurrent consumers; the
// channel's own synchronization, not the registry mutex, governs access.
func (m *Manager[Key]) Queue() <-chan Executable { return m.queue.Chan() }

// Close permanently closes the work queue. Subsequent submissions fail
// with ErrQueueClosed; already-queued tasks are still delivered to
// consumers until the queue drains.
func (m *Manager[Key]) Close() { m.queue.Close() }

// Abort drains every outstanding waiter with the aborted signal and
// clears the dedup bookkeeping. Handles for tasks that never reported
// (dropped from a closed queue, or interrupted by forced shutdown)
// observe ErrTaskAborted instead of hanging silently.
//
// Call Abort only after the worker pool has stopped; a completion
// reported afterward for an aborted task is a logged no-op.
func (m *Manager[Key]) Abort() {
	m.mu.Lock()
	aborted := m.waiters
	m.waiters = make(map[TaskID][]waiter)
	m.keyed = make(map[Key]TaskID)
	m.mu.Unlock()

	for id, ws := range aborted {
		for _, w := range ws {
			w.abort()
		}
		if m.observer != nil {
			m.observer.TaskAborted(context.Background(), id)
		}
	}
}

// Enqueue allocates a new TaskID, wraps job (plus the optional dedup key)
// into an Executable, pushes it onto the work queue, registers exactly one
// waiter, and returns the Handle observing it. It never blocks beyond the
// registry critical section and fails only with ErrQueueClosed.
//
// key is bookkeeping for the Executable's completion report; Enqueue does
// not consult or record the dedup map; use LookupOrEnqueue for
// single-flight submission.
//
// This is a package-level generic function because Go does not allow
// generic methods introducing a result type on a non-generic receiver.
func Enqueue[Key comparable, T any](m *Manager[Key], job Job[T], key *Key) (*Handle[T], error) {
	m.mu.Lock()
	h, err := enqueueLocked(m, job, key)
	m.mu.Unlock()

	if err != nil {
		return nil, err
	}
	if m.observer != nil {
		m.observer.TaskEnqueued(context.Background(), h.id, key != nil)
	}
	return h, nil
}

func enqueueLocked[Key comparable, T any](m *Manager[Key], job Job[T], key *Key) (*Handle[T], error) {
	// The counter wraps on overflow; the first allocated id is 1.
	m.lastTaskID++
	id := TaskID(m.lastTaskID)

	task := &managedTask[Key, T]{id: id, key: key, job: job, manager: m}
	if err := m.queue.Push(Executable(task)); err != nil {
		return nil, ErrQueueClosed
	}

	return newHandleLocked[T](m, id), nil
}

// NewHandle registers an additional waiter against an existing,
// not-yet-completed task and returns a fresh Handle for it. The type
// parameter T must match the task's result type; that correspondence is
// the caller's contract and is what makes delivery-time type recovery
// infallible.
func NewHandle[T any, Key comparable](m *Manager[Key], id TaskID) *Handle[T] {
	m.mu.Lock()
	defer m.mu.Unlock()
	return newHandleLocked[T](m, id)
}

func newHandleLocked[T any, Key comparable](m *Manager[Key], id TaskID) *Handle[T] {
	// Buffered so the single delivery never blocks, even if the Handle
	// owner already walked away.
	ch := make(chan result[T], 1)
	m.waiters[id] = append(m.waiters[id], newWaiter(ch))
	return &Handle[T]{id: id, out: ch}
}

// LookupOrEnqueue is the single-flight submission path. If a task for
// job's key is already in flight, a new waiter is attached to it and no
// work is queued; otherwise the job is enqueued and the key mapping is
// recorded until completion. Exactly one Executable is ever queued per
// distinct, concurrently in-flight key.
func LookupOrEnqueue[Key comparable, T any](m *Manager[Key], job Keyed[Key, T]) (*Handle[T], error) {
	key := job.Key()

	m.mu.Lock()
	if id, ok := m.keyed[key]; ok {
		h := newHandleLocked[T](m, id)
		m.mu.Unlock()

		if m.observer != nil {
			m.observer.TaskCoalesced(context.Background(), id)
		}
		return h, nil
	}

	h, err := enqueueLocked(m, Job[T](job), &key)
	if err == nil {
		m.keyed[key] = h.id
	}
	m.mu.Unlock()

	if err != nil {
		return nil, err
	}
	if m.observer != nil {
		m.observer.TaskEnqueued(context.Background(), h.id, true)
	}
	return h, nil
}

// Complete reports a task's outcome into the registry: the dedup key
// mapping (if any) is removed, and the task's waiter list is removed and
// drained atomically with it. Every waiter receives its own copy of the
// success value; a reported error is a single shared instance handed to
// all of them. Delivery is best-effort: a waiter whose Handle was
// already discarded simply never has its buffered result read.
//
// Complete is called exactly once per task by its Executable. A repeated
// call for an already-drained task is a tolerated no-op, but since it
// indicates a double-completion bug in the calling code it is logged.
func Complete[Key comparable, T any](m *Manager[Key], id TaskID, key *Key, value T, err error) {
	m.mu.Lock()
	if key != nil {
		delete(m.keyed, *key)
	}

	ws, ok := m.waiters[id]
	delete(m.waiters, id)

	// Fan out inside the critical section so removal and delivery are one
	// atomic step; the buffered one-shot channels make each send
	// non-blocking.
	for _, w := range ws {
		w.deliver(value, err)
	}
	m.mu.Unlock()

	if !ok {
		m.logger.Warn("completion reported for task with no registered waiters",
			slog.Uint64("task_id", uint64(id)),
		)
		return
	}

	if m.observer != nil {
		m.observer.TaskCompleted(context.Background(), id, err)
	}
}
