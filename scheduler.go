package jobsystem

import (
	"context"
	"fmt"
	"time"

	"github.com/Swind/go-job-system/config"
	"github.com/Swind/go-job-system/core"
)

// Scheduler owns a worker pool and the dispatch queue feeding it.
//
// Jobs are built with the core.Declare* helpers (or SubmitClosure for one-off
// closures), optionally attached to a CompletionSignal, and submitted. Submit
// never blocks; callers synchronize through the signal.
type Scheduler struct {
	pool            *WorkerPool
	logger          core.Logger
	defaultPriority core.Priority
	shutdownTimeout time.Duration
}

// Option customizes a Scheduler.
type Option func(*options)

type options struct {
	id       string
	dispatch core.DispatcherConfig
}

// WithID names the scheduler's pool in logs and metrics.
func WithID(id string) Option {
	return func(o *options) { o.id = id }
}

// WithLogger sets the logger. Defaults to a zerolog logger built from the
// config's log section.
func WithLogger(l core.Logger) Option {
	return func(o *options) { o.dispatch.Logger = l }
}

// WithMetrics sets the metrics sink.
func WithMetrics(m core.Metrics) Option {
	return func(o *options) { o.dispatch.Metrics = m }
}

// WithHooks sets the per-job instrumentation hooks.
func WithHooks(h core.JobHooks) Option {
	return func(o *options) { o.dispatch.Hooks = h }
}

// WithPanicHandler sets the handler for panicking jobs.
func WithPanicHandler(h core.PanicHandler) Option {
	return func(o *options) { o.dispatch.PanicHandler = h }
}

// WithRejectedJobHandler sets the handler for rejected and dropped jobs.
func WithRejectedJobHandler(h core.RejectedJobHandler) Option {
	return func(o *options) { o.dispatch.RejectedJobHandler = h }
}

// New creates a stopped scheduler from cfg. Unset fields of cfg take their
// defaults; an invalid cfg is reported as an error.
func New(cfg config.Config, opts ...Option) (*Scheduler, error) {
	cfg = cfg.WithDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("new scheduler: %w", err)
	}
	prio, _ := cfg.Priority()

	o := options{id: "scheduler"}
	for _, opt := range opts {
		opt(&o)
	}
	if o.dispatch.Logger == nil {
		o.dispatch.Logger = core.NewZerologLogger(nil, cfg.Log.Level, cfg.Log.Format)
	}
	o.dispatch.HistorySize = cfg.HistorySize

	pool, err := NewWorkerPool(o.id, cfg.Workers, &o.dispatch)
	if err != nil {
		return nil, err
	}
	return &Scheduler{
		pool:            pool,
		logger:          o.dispatch.Logger,
		defaultPriority: prio,
		shutdownTimeout: cfg.ShutdownTimeoutDuration(),
	}, nil
}

// Init creates a scheduler with the given number of workers and starts it.
func Init(workers int, opts ...Option) (*Scheduler, error) {
	if workers < 1 {
		return nil, fmt.Errorf("init scheduler with %d workers: %w", workers, core.ErrInvalidWorkerCount)
	}
	s, err := New(config.Config{Workers: workers}, opts...)
	if err != nil {
		return nil, err
	}
	s.Start(context.Background())
	return s, nil
}

// Start spawns the workers. Calling Start on a running scheduler is a no-op.
func (s *Scheduler) Start(ctx context.Context) {
	s.pool.Start(ctx)
}

// Submit schedules h. The job's signal, if any, is registered before a worker
// can see the job. After shutdown Submit returns an error wrapping
// core.ErrSchedulerShutdown and leaves h untouched.
func (s *Scheduler) Submit(h *core.JobHandle) error {
	return s.pool.Submit(h)
}

// SubmitClosure wraps fn in a one-off closure job and submits it at priority.
// sig may be nil. captures are owned by the job and released after fn returns.
// If submission fails the job is discarded, releasing the captures.
func (s *Scheduler) SubmitClosure(name string, fn func(), priority core.Priority, sig *core.CompletionSignal, captures ...any) error {
	h := core.NewClosureJob(name, fn, captures...).SetPriority(priority).RegisterSignal(sig)
	if err := s.Submit(h); err != nil {
		h.Discard()
		return err
	}
	return nil
}

// Go submits fn as a closure job at the configured default priority.
func (s *Scheduler) Go(name string, fn func(), sig *core.CompletionSignal) error {
	return s.SubmitClosure(name, fn, s.defaultPriority, sig)
}

// DefaultPriority returns the priority Go submits at.
func (s *Scheduler) DefaultPriority() core.Priority { return s.defaultPriority }

// Shutdown stops the workers after their current job. Jobs still queued are
// dropped without running; their signals are completed so no waiter hangs.
func (s *Scheduler) Shutdown() {
	s.pool.Stop()
}

// ShutdownGraceful runs every queued job before stopping the workers. A
// timeout <= 0 uses the configured shutdown timeout.
func (s *Scheduler) ShutdownGraceful(timeout time.Duration) error {
	if timeout <= 0 {
		timeout = s.shutdownTimeout
	}
	return s.pool.StopGraceful(timeout)
}

// IsRunning reports whether the workers are running.
func (s *Scheduler) IsRunning() bool { return s.pool.IsRunning() }

// WorkerCount returns the number of workers.
func (s *Scheduler) WorkerCount() int { return s.pool.WorkerCount() }

// Logger returns the scheduler's logger.
func (s *Scheduler) Logger() core.Logger { return s.logger }

// Stats returns a snapshot of pool and queue state.
func (s *Scheduler) Stats() core.PoolStats { return s.pool.Stats() }

// RecentJobs returns up to limit execution records, newest first.
func (s *Scheduler) RecentJobs(limit int) []core.JobExecutionRecord {
	return s.pool.RecentJobs(limit)
}
