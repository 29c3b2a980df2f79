// Package engine wires the coalesce subsystems together: it builds a
// Manager, middleware chain, hook registry, and worker pool from one set
// of options, and owns the start/stop lifecycle.
//
// This package exists to break the import cycle: the root coalesce
// package defines Executable and Observer (imported by worker, middleware
// and hook) and so cannot import those packages back. The engine package
// sits above all subsystem packages and below the application layer.
package engine

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/xraph/coalesce"
	"github.com/xraph/coalesce/hook"
	"github.com/xraph/coalesce/id"
	mw "github.com/xraph/coalesce/middleware"
	"github.com/xraph/coalesce/worker"
)

// Config holds configuration for an Engine.
type Config struct {
	// Concurrency is the number of worker goroutines draining the queue.
	Concurrency int

	// ShutdownTimeout is the maximum time Stop waits for in-flight tasks
	// when the caller's context carries no deadline of its own.
	ShutdownTimeout time.Duration

	// RateLimit is the maximum sustained task executions per second
	// across the pool. Zero disables rate limiting.
	RateLimit float64

	// RateBurst is the burst size for the token-bucket rate limiter.
	// Defaults to 1 if RateLimit is set but RateBurst is zero.
	RateBurst int
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Concurrency:     4,
		ShutdownTimeout: 30 * time.Second,
	}
}

// options collects Build inputs. It is deliberately non-generic so a
// single Option type serves every Engine instantiation.
type options struct {
	config     Config
	logger     *slog.Logger
	mws        []mw.Middleware
	extensions []hook.Extension
}

// Option configures an Engine at Build time.
type Option func(*options)

// WithConfig replaces the engine configuration wholesale.
func WithConfig(cfg Config) Option {
	return func(o *options) { o.config = cfg }
}

// WithConcurrency sets the number of worker goroutines.
func WithConcurrency(n int) Option {
	return func(o *options) { o.config.Concurrency = n }
}

// WithShutdownTimeout sets the default graceful-shutdown budget.
func WithShutdownTimeout(d time.Duration) Option {
	return func(o *options) { o.config.ShutdownTimeout = d }
}

// WithRateLimit caps sustained task executions per second.
func WithRateLimit(perSecond float64, burst int) Option {
	return func(o *options) {
		o.config.RateLimit = perSecond
		o.config.RateBurst = burst
	}
}

// WithLogger sets the logger shared by every subsystem.
// Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithMiddleware adds middleware to the execution chain.
func WithMiddleware(m mw.Middleware) Option {
	return func(o *options) { o.mws = append(o.mws, m) }
}

// WithExtension registers a lifecycle extension with the engine.
func WithExtension(e hook.Extension) Option {
	return func(o *options) { o.extensions = append(o.extensions, e) }
}

// Engine owns a Manager and the worker pool draining its queue.
// Create one with Build, then Start it.
type Engine[Key comparable] struct {
	manager  *coalesce.Manager[Key]
	pool     *worker.Pool
	hooks    *hook.Registry
	config   Config
	engineID id.EngineID
	logger   *slog.Logger

	mu      sync.Mutex
	started bool
}

// Build assembles an Engine: hook registry, Manager, middleware chain,
// executor, and worker pool, in that order.
func Build[Key comparable](opts ...Option) *Engine[Key] {
	o := options{
		config: DefaultConfig(),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(&o)
	}

	hooks := hook.NewRegistry(o.logger)
	for _, e := range o.extensions {
		hooks.Register(e)
	}

	manager := coalesce.NewManager[Key](
		coalesce.WithLogger(o.logger),
		coalesce.WithObserver(hooks),
	)

	executor := worker.NewExecutor(o.logger, o.mws...)
	pool := worker.NewPool(manager.Queue(), executor, o.logger,
		worker.WithPoolConcurrency(o.config.Concurrency),
		worker.WithRateLimit(o.config.RateLimit, o.config.RateBurst),
	)

	return &Engine[Key]{
		manager:  manager,
		pool:     pool,
		hooks:    hooks,
		config:   o.config,
		engineID: id.NewEngineID(),
		logger:   o.logger,
	}
}

// Manager returns the engine's registry, for callers that need the raw
// coordination surface (NewHandle, Complete, Queue).
func (e *Engine[Key]) Manager() *coalesce.Manager[Key] { return e.manager }

// Hooks returns the engine's extension registry.
func (e *Engine[Key]) Hooks() *hook.Registry { return e.hooks }

// Start launches the worker pool. It returns immediately and is a no-op
// if the engine is already running.
func (e *Engine[Key]) Start(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.started {
		return nil
	}
	e.started = true

	e.logger.Info("engine starting",
		slog.String("engine_id", e.engineID.String()),
		slog.Int("concurrency", e.config.Concurrency),
	)

	return e.pool.Start(ctx)
}

// Stop shuts the engine down in order: the work queue is closed so no new
// submissions land, the pool drains what it can within the deadline, and
// every waiter still outstanding (tasks never picked up, or interrupted
// by a forced stop) is aborted so no Handle hangs.
//
// If ctx carries no deadline, Config.ShutdownTimeout is applied.
func (e *Engine[Key]) Stop(ctx context.Context) error {
	e.mu.Lock()
	if !e.started {
		e.mu.Unlock()
		return nil
	}
	e.started = false
	e.mu.Unlock()

	if _, ok := ctx.Deadline(); !ok && e.config.ShutdownTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.config.ShutdownTimeout)
		defer cancel()
	}

	e.manager.Close()
	err := e.pool.Stop(ctx)
	e.manager.Abort()

	e.logger.Info("engine stopped", slog.String("engine_id", e.engineID.String()))
	return err
}

// Submit enqueues a key-less job and returns the Handle observing it.
func Submit[Key comparable, T any](e *Engine[Key], job coalesce.Job[T]) (*coalesce.Handle[T], error) {
	return coalesce.Enqueue(e.manager, job, nil)
}

// SubmitKeyed submits a keyed job single-flight: concurrent submissions
// for the same key share one execution and one result.
func SubmitKeyed[Key comparable, T any](e *Engine[Key], job coalesce.Keyed[Key, T]) (*coalesce.Handle[T], error) {
	return coalesce.LookupOrEnqueue(e.manager, job)
}
