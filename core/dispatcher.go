package core

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"
)

const (
	reasonShuttingDown = "shutting down"
	reasonShutdown     = "shutdown"
)

// Dispatcher accepts submitted jobs, hands them to workers in priority order
// and runs them with panic recovery, hooks, metrics and execution history.
// Worker goroutines are owned by the caller (see jobsystem.WorkerPool): each
// one loops on GetWork and Execute.
type Dispatcher struct {
	queue       *DispatchQueue
	workerCount int

	logger             Logger
	panicHandler       PanicHandler
	metrics            Metrics
	rejectedJobHandler RejectedJobHandler
	hooks              JobHooks
	history            *executionHistory

	// pending counts jobs accepted by Submit that have not finished or been
	// dropped. Graceful shutdown waits for it to reach zero.
	pending      atomic.Int64
	metricActive atomic.Int32

	submitted atomic.Int64
	completed atomic.Int64
	panicked  atomic.Int64
	rejected  atomic.Int64

	// Lifecycle
	shuttingDown atomic.Bool
}

// NewDispatcher creates a dispatcher sized for workerCount workers.
func NewDispatcher(workerCount int, config *DispatcherConfig) *Dispatcher {
	if config == nil {
		config = &DispatcherConfig{}
	}
	d := &Dispatcher{
		queue:              NewDispatchQueue(workerCount),
		workerCount:        workerCount,
		logger:             config.Logger,
		panicHandler:       config.PanicHandler,
		metrics:            config.Metrics,
		rejectedJobHandler: config.RejectedJobHandler,
		hooks:              config.Hooks,
		history:            newExecutionHistory(config.HistorySize),
	}

	// Use defaults if not provided
	if d.logger == nil {
		d.logger = NewDefaultLogger()
	}
	if d.panicHandler == nil {
		d.panicHandler = NewDefaultPanicHandler(d.logger)
	}
	if d.metrics == nil {
		d.metrics = &NilMetrics{}
	}
	if d.rejectedJobHandler == nil {
		d.rejectedJobHandler = NewDefaultRejectedJobHandler(d.logger)
	}
	if d.hooks == nil {
		d.hooks = NilHooks{}
	}
	return d
}

// Submit schedules h. The job's CompletionSignal is registered before the job
// is pushed, so no worker can complete it before the registration happened.
// Submit never blocks.
//
// After shutdown began, Submit returns ErrSchedulerShutdown and leaves h
// unscheduled, so the caller may Discard it. Submitting a nil, empty,
// already submitted or receiver-less method job panics.
func (d *Dispatcher) Submit(h *JobHandle) error {
	if h == nil {
		panic("Dispatcher: Submit called with nil job")
	}
	if d.shuttingDown.Load() {
		d.reject(h.info(-1), reasonShuttingDown)
		return fmt.Errorf("submit %s: %w", h.name, ErrSchedulerShutdown)
	}

	h.beginSchedule()
	if sig := h.signal; sig != nil {
		sig.Register()
	}
	d.pending.Add(1)

	if !d.queue.Push(h) {
		// Lost the race against Shutdown: the job was registered, so it has
		// to be completed to keep waiters from hanging.
		info := h.info(-1)
		h.abandon()
		d.pending.Add(-1)
		d.reject(info, reasonShuttingDown)
		return fmt.Errorf("submit %s: %w", h.name, ErrSchedulerShutdown)
	}

	d.submitted.Add(1)
	d.metrics.RecordJobSubmitted(h.priority)
	d.recordQueueDepth()
	return nil
}

// GetWork blocks until a job is available (called by workers).
// It returns false when stopCh is closed or the dispatcher shut down.
func (d *Dispatcher) GetWork(stopCh <-chan struct{}) (*JobHandle, bool) {
	h, ok := d.queue.PopBlocking(stopCh)
	if !ok {
		return nil, false
	}
	d.recordQueueDepth()
	return h, true
}

// Execute runs h on the calling worker. A panicking entry point is reported
// to the PanicHandler and does not propagate.
func (d *Dispatcher) Execute(ctx context.Context, workerID int, h *JobHandle) {
	info := h.info(workerID)
	startedAt := time.Now()

	d.metricActive.Add(1)
	defer func() {
		d.metricActive.Add(-1)
		d.pending.Add(-1)
	}()

	ctx = d.hooks.OnJobStart(ctx, info)

	h.run(JobScheduled, func(recovered any, stack []byte) {
		finishedAt := time.Now()
		duration := finishedAt.Sub(startedAt)
		panicked := recovered != nil

		if panicked {
			d.panicked.Add(1)
			d.panicHandler.HandlePanic(ctx, info, recovered, stack)
			d.metrics.RecordJobPanic(info.Name, recovered)
		}
		d.completed.Add(1)
		d.hooks.OnJobEnd(ctx, info, duration, panicked)
		d.metrics.RecordJobDuration(info.Name, info.Priority, duration)
		d.history.Add(JobExecutionRecord{
			JobID:      info.ID,
			Name:       info.Name,
			Kind:       info.Kind,
			Priority:   info.Priority,
			WorkerID:   workerID,
			QueueDelay: info.QueueDelay(startedAt),
			StartedAt:  startedAt,
			FinishedAt: finishedAt,
			Duration:   duration,
			Panicked:   panicked,
		})
	})
}

// Shutdown stops accepting jobs and drops every job still queued. Dropped jobs
// never run: their snapshots are released, their signals completed and they
// are reported to the RejectedJobHandler. Jobs already running are not
// interrupted.
func (d *Dispatcher) Shutdown() {
	// 1. Mark as shutting down to stop accepting new jobs
	d.shuttingDown.Store(true)

	// 2. Close the queue so parked workers wake up
	d.queue.Close()

	// 3. Tear down whatever is left
	for _, h := range d.queue.Drain() {
		info := h.info(-1)
		h.abandon()
		d.pending.Add(-1)
		d.reject(info, reasonShutdown)
	}
	d.recordQueueDepth()
}

// ShutdownGraceful stops accepting jobs and waits for queued and running jobs
// to finish. If the timeout expires first, the remaining queue is dropped as
// in Shutdown and ErrShutdownTimeout is returned.
func (d *Dispatcher) ShutdownGraceful(timeout time.Duration) error {
	d.shuttingDown.Store(true)

	deadline := time.After(timeout)
	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()

	for {
		if d.pending.Load() == 0 {
			d.queue.Close()
			return nil
		}
		select {
		case <-deadline:
			d.Shutdown()
			return fmt.Errorf("after %v with %d jobs left: %w", timeout, d.pending.Load(), ErrShutdownTimeout)
		case <-ticker.C:
		}
	}
}

// IsShuttingDown reports whether Shutdown or ShutdownGraceful was called.
func (d *Dispatcher) IsShuttingDown() bool { return d.shuttingDown.Load() }

func (d *Dispatcher) reject(info JobInfo, reason string) {
	d.rejected.Add(1)
	d.rejectedJobHandler.HandleRejectedJob(info, reason)
	d.metrics.RecordJobRejected(reason)
}

func (d *Dispatcher) recordQueueDepth() {
	depths := d.queue.LenByPriority()
	for p, n := range depths {
		d.metrics.RecordQueueDepth(Priority(p), n)
	}
}

// Metrics
func (d *Dispatcher) WorkerCount() int    { return d.workerCount }
func (d *Dispatcher) QueuedJobCount() int { return d.queue.Len() }
func (d *Dispatcher) ActiveJobCount() int { return int(d.metricActive.Load()) }

// PendingJobCount returns the number of accepted jobs that have not finished.
func (d *Dispatcher) PendingJobCount() int { return int(d.pending.Load()) }

// Logger returns the logger this dispatcher reports through.
func (d *Dispatcher) Logger() Logger { return d.logger }

// RecentJobs returns up to limit execution records, newest first.
func (d *Dispatcher) RecentJobs(limit int) []JobExecutionRecord {
	return d.history.Recent(limit)
}

// Stats returns a snapshot of the dispatcher's counters.
func (d *Dispatcher) Stats() DispatcherStats {
	byTier := d.queue.LenByPriority()
	queued := 0
	for _, n := range byTier {
		queued += n
	}
	stats := DispatcherStats{
		Queued:       queued,
		QueuedByTier: byTier,
		Active:       d.ActiveJobCount(),
		Submitted:    d.submitted.Load(),
		Completed:    d.completed.Load(),
		Panicked:     d.panicked.Load(),
		Rejected:     d.rejected.Load(),
		ShuttingDown: d.shuttingDown.Load(),
	}
	if last, ok := d.history.Last(); ok {
		stats.LastJobName = last.Name
		stats.LastJobFinished = last.FinishedAt
	}
	return stats
}
