package worker

import (
	"context"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/xraph/coalesce"
	"github.com/xraph/coalesce/id"
)

// Pool manages a set of concurrent worker goroutines that drain the work
// queue and execute tasks through the Executor. Tasks execute outside any
// registry lock; each one re-enters the registry exactly once, through
// its own completion report.
type Pool struct {
	queue       <-chan coalesce.Executable
	executor    *Executor
	concurrency int
	limiter     *rate.Limiter
	workerID    id.WorkerID
	logger      *slog.Logger

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	cancel  context.CancelFunc
	group   *errgroup.Group
}

// PoolOption configures a Pool.
type PoolOption func(*Pool)

// WithPoolConcurrency sets the number of concurrent worker goroutines.
func WithPoolConcurrency(n int) PoolOption {
	return func(p *Pool) { p.concurrency = n }
}

// WithRateLimit caps sustained task executions per second across the pool
// using a token bucket. burst values below 1 are raised to 1. A zero or
// negative perSecond disables rate limiting.
func WithRateLimit(perSecond float64, burst int) PoolOption {
	return func(p *Pool) {
		if perSecond <= 0 {
			p.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		p.limiter = rate.NewLimiter(rate.Limit(perSecond), burst)
	}
}

// NewPool creates a worker pool draining the given queue endpoint.
func NewPool(
	queue <-chan coalesce.Executable,
	executor *Executor,
	logger *slog.Logger,
	opts ...PoolOption,
) *Pool {
	p := &Pool{
		queue:       queue,
		executor:    executor,
		concurrency: 4,
		workerID:    id.NewWorkerID(),
		logger:      logger,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// WorkerID returns the pool's unique worker identifier.
func (p *Pool) WorkerID() id.WorkerID { return p.workerID }

// Start launches the worker goroutines. It returns immediately.
func (p *Pool) Start(_ context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.running {
		return nil
	}
	p.running = true

	p.logger.Info("worker pool starting",
		slog.String("worker_id", p.workerID.String()),
		slog.Int("concurrency", p.concurrency),
	)

	// baseCtx outlives Start's caller; it is cancelled only when a Stop
	// deadline forces in-flight tasks to wind down.
	baseCtx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel
	p.stopCh = make(chan struct{})
	p.group = &errgroup.Group{}

	stopCh := p.stopCh
	for range p.concurrency {
		p.group.Go(func() error {
			p.dequeueLoop(baseCtx, stopCh)
			return nil
		})
	}

	return nil
}

// Stop signals all workers to stop and waits for them to finish. If the
// context has a deadline, active tasks are cancelled when time runs out.
func (p *Pool) Stop(ctx context.Context) error {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return nil
	}
	p.running = false
	stopCh := p.stopCh
	group := p.group
	cancel := p.cancel
	p.mu.Unlock()

	p.logger.Info("worker pool stopping", slog.String("worker_id", p.workerID.String()))

	// Signal all workers to stop.
	close(stopCh)

	// Wait for completion or context deadline.
	done := make(chan struct{})
	go func() {
		_ = group.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.logger.Info("worker pool stopped gracefully")
	case <-ctx.Done():
		p.logger.Warn("worker pool shutdown timed out, cancelling active tasks")
		cancel()
		<-done
	}

	cancel()
	return nil
}

// dequeueLoop is run by each worker goroutine. It exits when the pool is
// stopped or the queue is closed and drained.
func (p *Pool) dequeueLoop(ctx context.Context, stopCh <-chan struct{}) {
	for {
		select {
		case <-stopCh:
			return
		case task, ok := <-p.queue:
			if !ok {
				return
			}
			p.run(ctx, task)
		}
	}
}

func (p *Pool) run(ctx context.Context, task coalesce.Executable) {
	if p.limiter != nil {
		if err := p.limiter.Wait(ctx); err != nil {
			// Forced shutdown while throttled; the task still runs so its
			// waiters are not left hanging, and a ctx-aware job returns
			// promptly.
			p.logger.Debug("rate limiter interrupted",
				slog.Uint64("task_id", uint64(task.ID())),
				slog.String("error", err.Error()),
			)
		}
	}

	if err := p.executor.Execute(ctx, task); err != nil {
		p.logger.Debug("task execution failed",
			slog.Uint64("task_id", uint64(task.ID())),
			slog.String("error", err.Error()),
		)
	}
}
