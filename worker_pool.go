package jobsystem

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/Swind/go-job-system/core"
)

// WorkerPool manages a fixed set of worker goroutines.
// Every worker pulls jobs from the pool's Dispatcher and executes them.
type WorkerPool struct {
	id         string
	workers    int
	dispatcher *core.Dispatcher
	logger     core.Logger
	wg         sync.WaitGroup
	ctx        context.Context
	cancel     context.CancelFunc
	stopped    chan struct{} // closed once workers exited and the queue was torn down
	running    bool
	runningMu  sync.RWMutex
}

// NewWorkerPool creates a stopped pool with the given number of workers.
// A nil config uses core defaults.
func NewWorkerPool(id string, workers int, config *core.DispatcherConfig) (*WorkerPool, error) {
	if workers < 1 {
		return nil, fmt.Errorf("worker pool %s: %d workers: %w", id, workers, core.ErrInvalidWorkerCount)
	}
	d := core.NewDispatcher(workers, config)
	return &WorkerPool{
		id:         id,
		workers:    workers,
		dispatcher: d,
		logger:     d.Logger(),
	}, nil
}

// Start starts all worker goroutines. Cancelling ctx stops the pool the same
// way Stop does: once the workers exited, jobs still queued are dropped and
// further submissions are rejected.
func (wp *WorkerPool) Start(ctx context.Context) {
	wp.runningMu.Lock()
	defer wp.runningMu.Unlock()

	if wp.running || wp.stopped != nil {
		return // Already running, or stopped for good
	}

	wp.ctx, wp.cancel = context.WithCancel(ctx)
	wp.stopped = make(chan struct{})
	wp.running = true

	for i := 0; i < wp.workers; i++ {
		wp.wg.Add(1)
		go wp.workerLoop(i, wp.ctx)
	}
	go wp.watch(wp.ctx, wp.stopped)
	wp.logger.Info("pool.started", core.F("pool", wp.id), core.F("workers", wp.workers))
}

// watch tears the dispatcher down after the workers exited. With no worker
// left nothing would drain the queue, so queued jobs are dropped and their
// signals completed.
func (wp *WorkerPool) watch(ctx context.Context, stopped chan struct{}) {
	defer close(stopped)

	<-ctx.Done()
	wp.Join()
	wp.dispatcher.Shutdown()

	wp.runningMu.Lock()
	wp.running = false
	wp.runningMu.Unlock()
	wp.logger.Info("pool.stopped", core.F("pool", wp.id), core.F("cause", context.Cause(ctx)))
}

// Submit hands h to the dispatcher. Jobs may be submitted before Start; they
// wait in the queue until workers run.
func (wp *WorkerPool) Submit(h *core.JobHandle) error {
	return wp.dispatcher.Submit(h)
}

// Stop stops the pool. Jobs still queued are dropped (their signals are
// completed); jobs already running finish first.
func (wp *WorkerPool) Stop() {
	// Always shut the dispatcher down so dropped jobs release their
	// snapshots, even if the pool was never started
	wp.dispatcher.Shutdown()
	wp.stopWorkers()
}

// StopGraceful stops the pool after every queued job ran.
// Returns an error wrapping core.ErrShutdownTimeout if the timeout is exceeded
// first; the remaining jobs are then dropped as in Stop.
func (wp *WorkerPool) StopGraceful(timeout time.Duration) error {
	if !wp.IsRunning() {
		// Nothing can drain the queue without workers
		wp.dispatcher.Shutdown()
		wp.stopWorkers()
		return nil
	}

	err := wp.dispatcher.ShutdownGraceful(timeout)

	// Drained or timed out, now cancel workers. Anything that slipped into
	// the queue meanwhile is dropped once they exited.
	wp.stopWorkers()

	if err != nil {
		wp.logger.Warn("pool.drain_timeout", core.F("pool", wp.id), core.F("err", err))
		return err
	}
	return nil
}

// stopWorkers cancels the workers and waits until watch tore the
// dispatcher down. A pool that was never started has nothing to wait for.
func (wp *WorkerPool) stopWorkers() {
	wp.runningMu.RLock()
	cancel, stopped := wp.cancel, wp.stopped
	wp.runningMu.RUnlock()

	if cancel == nil {
		return
	}
	cancel()
	<-stopped
}

// ID returns the ID of the pool
func (wp *WorkerPool) ID() string {
	return wp.id
}

// IsRunning returns whether the pool is running
func (wp *WorkerPool) IsRunning() bool {
	wp.runningMu.RLock()
	defer wp.runningMu.RUnlock()
	return wp.running
}

// workerLoop is the main loop for each worker
func (wp *WorkerPool) workerLoop(id int, ctx context.Context) {
	defer wp.wg.Done()
	stopCh := ctx.Done()

	for {
		h, ok := wp.dispatcher.GetWork(stopCh)
		if !ok {
			// Dispatcher closed or context canceled
			return
		}

		// Entry-point panics are handled by the dispatcher. Anything reaching
		// this recover is a broken handle or a panicking handler.
		func() {
			defer func() {
				if r := recover(); r != nil {
					wp.logger.Error("worker.panic",
						core.F("pool", wp.id),
						core.F("worker", id),
						core.F("job", h.Name()),
						core.F("panic", r),
						core.F("stack", debug.Stack()),
					)
				}
			}()
			wp.dispatcher.Execute(ctx, id, h)
		}()
	}
}

// Join waits for all worker goroutines to finish
func (wp *WorkerPool) Join() {
	wp.wg.Wait()
}

// WorkerCount returns the number of workers
func (wp *WorkerPool) WorkerCount() int {
	return wp.workers
}

func (wp *WorkerPool) QueuedJobCount() int {
	return wp.dispatcher.QueuedJobCount()
}

func (wp *WorkerPool) ActiveJobCount() int {
	return wp.dispatcher.ActiveJobCount()
}

// RecentJobs returns up to limit execution records, newest first.
func (wp *WorkerPool) RecentJobs(limit int) []core.JobExecutionRecord {
	return wp.dispatcher.RecentJobs(limit)
}

// Stats returns a snapshot of the pool state.
func (wp *WorkerPool) Stats() core.PoolStats {
	return core.PoolStats{
		ID:         wp.id,
		Workers:    wp.workers,
		Running:    wp.IsRunning(),
		Dispatcher: wp.dispatcher.Stats(),
	}
}
