package worker_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/xraph/coalesce"
	"github.com/xraph/coalesce/middleware"
	"github.com/xraph/coalesce/worker"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func setupTestPool(t *testing.T, concurrency int, opts ...worker.PoolOption) (*worker.Pool, *coalesce.Manager[string]) {
	t.Helper()
	logger := discardLogger()
	m := coalesce.NewManager[string]()

	executor := worker.NewExecutor(logger, middleware.Recover(logger))
	all := append([]worker.PoolOption{worker.WithPoolConcurrency(concurrency)}, opts...)
	pool := worker.NewPool(m.Queue(), executor, logger, all...)
	return pool, m
}

func TestPool_StartStop(t *testing.T) {
	pool, _ := setupTestPool(t, 2)

	if err := pool.Start(context.Background()); err != nil {
		t.Fatalf("unexpected start error: %v", err)
	}

	// Double start should be no-op.
	if err := pool.Start(context.Background()); err != nil {
		t.Fatalf("unexpected double-start error: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := pool.Stop(ctx); err != nil {
		t.Fatalf("unexpected stop error: %v", err)
	}

	// Double stop should be no-op.
	if err := pool.Stop(ctx); err != nil {
		t.Fatalf("unexpected double-stop error: %v", err)
	}
}

func TestPool_ExecutesQueuedTasks(t *testing.T) {
	pool, m := setupTestPool(t, 2)

	handles := make([]*coalesce.Handle[int], 0, 5)
	for i := 0; i < 5; i++ {
		v := i
		h, err := coalesce.Enqueue(m, coalesce.JobFunc[int](func(_ context.Context) (int, error) {
			return v * 2, nil
		}), nil)
		if err != nil {
			t.Fatalf("enqueue error: %v", err)
		}
		handles = append(handles, h)
	}

	if err := pool.Start(context.Background()); err != nil {
		t.Fatalf("start error: %v", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = pool.Stop(ctx)
	}()

	for i, h := range handles {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		v, err := h.Resolve(ctx)
		cancel()
		if err != nil {
			t.Fatalf("handle %d resolve error: %v", i, err)
		}
		if v != i*2 {
			t.Errorf("handle %d value = %d, want %d", i, v, i*2)
		}
	}
}

func TestPool_SingleFlightUnderLoad(t *testing.T) {
	pool, m := setupTestPool(t, 4)

	var executions atomic.Int32
	job := keyedFunc{
		key: "rebuild",
		fn: func(_ context.Context) (int, error) {
			executions.Add(1)
			time.Sleep(100 * time.Millisecond)
			return 1, nil
		},
	}

	handles := make([]*coalesce.Handle[int], 0, 6)
	for i := 0; i < 6; i++ {
		h, err := coalesce.LookupOrEnqueue(m, job)
		if err != nil {
			t.Fatalf("lookup error: %v", err)
		}
		handles = append(handles, h)
	}

	if err := pool.Start(context.Background()); err != nil {
		t.Fatalf("start error: %v", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = pool.Stop(ctx)
	}()

	for i, h := range handles {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		v, err := h.Resolve(ctx)
		cancel()
		if err != nil {
			t.Fatalf("handle %d resolve error: %v", i, err)
		}
		if v != 1 {
			t.Errorf("handle %d value = %d, want 1", i, v)
		}
	}

	if n := executions.Load(); n != 1 {
		t.Fatalf("job executed %d times, want 1", n)
	}
}

func TestPool_StopDrainsClosedQueue(t *testing.T) {
	pool, m := setupTestPool(t, 1)

	if err := pool.Start(context.Background()); err != nil {
		t.Fatalf("start error: %v", err)
	}

	h, err := coalesce.Enqueue(m, coalesce.JobFunc[int](func(_ context.Context) (int, error) {
		return 9, nil
	}), nil)
	if err != nil {
		t.Fatalf("enqueue error: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	v, err := h.Resolve(ctx)
	if err != nil {
		t.Fatalf("resolve error: %v", err)
	}
	if v != 9 {
		t.Errorf("value = %d, want 9", v)
	}

	m.Close()

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer stopCancel()
	if err := pool.Stop(stopCtx); err != nil {
		t.Fatalf("stop error: %v", err)
	}
}

func TestPool_RateLimit(t *testing.T) {
	pool, m := setupTestPool(t, 2, worker.WithRateLimit(20, 1))

	start := time.Now()
	handles := make([]*coalesce.Handle[int], 0, 4)
	for i := 0; i < 4; i++ {
		h, err := coalesce.Enqueue(m, coalesce.JobFunc[int](func(_ context.Context) (int, error) {
			return 0, nil
		}), nil)
		if err != nil {
			t.Fatalf("enqueue error: %v", err)
		}
		handles = append(handles, h)
	}

	if err := pool.Start(context.Background()); err != nil {
		t.Fatalf("start error: %v", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = pool.Stop(ctx)
	}()

	for _, h := range handles {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if _, err := h.Resolve(ctx); err != nil {
			cancel()
			t.Fatalf("resolve error: %v", err)
		}
		cancel()
	}

	// 4 tasks at 20/s with burst 1 cannot all finish instantly.
	if elapsed := time.Since(start); elapsed < 100*time.Millisecond {
		t.Errorf("4 rate-limited tasks finished in %v, expected throttling", elapsed)
	}
}

func TestExecutor_RunsMiddleware(t *testing.T) {
	logger := discardLogger()
	var wrapped atomic.Bool

	executor := worker.NewExecutor(logger, func(ctx context.Context, _ coalesce.Executable, next middleware.Handler) error {
		wrapped.Store(true)
		return next(ctx)
	})

	m := coalesce.NewManager[string]()
	h, err := coalesce.Enqueue(m, coalesce.JobFunc[int](func(_ context.Context) (int, error) {
		return 3, nil
	}), nil)
	if err != nil {
		t.Fatalf("enqueue error: %v", err)
	}

	task := <-m.Queue()
	if err := executor.Execute(context.Background(), task); err != nil {
		t.Fatalf("execute error: %v", err)
	}
	if !wrapped.Load() {
		t.Fatal("middleware was not invoked")
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if v, err := h.Resolve(ctx); err != nil || v != 3 {
		t.Fatalf("resolve = (%d, %v), want (3, nil)", v, err)
	}
}

func TestExecutor_SurfacesJobError(t *testing.T) {
	executor := worker.NewExecutor(discardLogger())
	m := coalesce.NewManager[string]()

	boom := errors.New("boom")
	h, err := coalesce.Enqueue(m, coalesce.JobFunc[int](func(_ context.Context) (int, error) {
		return 0, boom
	}), nil)
	if err != nil {
		t.Fatalf("enqueue error: %v", err)
	}

	task := <-m.Queue()
	if execErr := executor.Execute(context.Background(), task); !errors.Is(execErr, boom) {
		t.Fatalf("execute error = %v, want boom", execErr)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if _, resErr := h.Resolve(ctx); !errors.Is(resErr, boom) {
		t.Fatalf("resolve error = %v, want boom", resErr)
	}
}

// keyedFunc adapts a function to the Keyed interface for tests.
type keyedFunc struct {
	key string
	fn  func(ctx context.Context) (int, error)
}

func (k keyedFunc) Key() string { return k.key }

func (k keyedFunc) Execute(ctx context.Context) (int, error) { return k.fn(ctx) }
