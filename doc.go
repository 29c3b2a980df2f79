// Package coalesce is an in-process job coordination core: background work
// is submitted once per logical deduplication key while any number of
// concurrent callers await its single result, even though the coordinator
// does not know the concrete result type of any job it manages.
//
// Coalesce is designed as a library, not a service. Construct a Manager,
// hand its queue endpoint to a worker pool, and submit jobs as ordinary
// Go values.
//
// # Quick Start
//
//	m := coalesce.NewManager[string]()
//
//	// Somewhere, a worker drains the queue:
//	go func() {
//	    for task := range m.Queue() {
//	        _ = task.Execute(context.Background())
//	    }
//	}()
//
//	// Any number of callers request the same unit of work; exactly one
//	// execution happens and every caller shares its result.
//	h, err := coalesce.LookupOrEnqueue(m, rebuildIndex{collection: "users"})
//	if err != nil {
//	    return err
//	}
//	count, err := h.Resolve(ctx)
//
// # Architecture
//
// The Manager owns all registry state (the identifier counter, the
// key-to-task deduplication map, the per-task waiter lists, and the producer
// side of the work queue) behind a single mutex. Jobs are wrapped into
// type-erased Executables so heterogeneous result types share one queue;
// each waiter carries a closure that knows how to apply a typed result to
// its typed one-shot channel, so fan-out needs no reflection at delivery.
//
// The queue, worker, middleware, hook, and engine subpackages provide the
// surrounding machinery: an unbounded MPMC work queue, a concurrent worker
// pool, composable execution middleware (logging, panic recovery, OTel
// metrics and tracing), lifecycle observers, and a wiring layer that owns
// startup and orderly shutdown.
//
// Coalesce deliberately provides no priority scheduling, no cooperative
// cancellation of in-flight work, and no persistence; it is the
// coordination layer an embedding database builds those on top of.
package coalesce
