package core

import (
	"context"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"
)

// =============================================================================
// PanicHandler: Interface for handling job panics
// =============================================================================

// PanicHandler is called when a job's entry point panics on a worker.
// By the time it is called the job's snapshot has been released; its
// CompletionSignal is completed right after the handler returns.
//
// Implementations should be thread-safe as they may be called concurrently.
type PanicHandler interface {
	// HandlePanic is called when a job panics.
	//
	// Parameters:
	// - ctx: The context returned by JobHooks.OnJobStart for this job
	// - info: Identity of the job and of the worker that ran it
	// - panicInfo: The panic value recovered from the job
	// - stackTrace: The stack trace at the time of panic
	HandlePanic(ctx context.Context, info JobInfo, panicInfo any, stackTrace []byte)
}

// DefaultPanicHandler logs panics through a Logger. Bursts are throttled so a
// job that panics in a tight loop cannot flood the log.
type DefaultPanicHandler struct {
	logger  Logger
	limiter *throttle
}

// NewDefaultPanicHandler creates a panic handler logging to logger.
func NewDefaultPanicHandler(logger Logger) *DefaultPanicHandler {
	if logger == nil {
		logger = NewDefaultLogger()
	}
	return &DefaultPanicHandler{logger: logger, limiter: newThrottle()}
}

// HandlePanic logs the panic with its stack trace.
func (h *DefaultPanicHandler) HandlePanic(ctx context.Context, info JobInfo, panicInfo any, stackTrace []byte) {
	ok, suppressed := h.limiter.allow()
	if !ok {
		return
	}
	h.logger.Error("job.panic",
		F("job", info.Name),
		F("job_id", info.ID),
		F("worker", info.WorkerID),
		F("priority", info.Priority),
		F("panic", panicInfo),
		F("suppressed", suppressed),
		F("stack", stackTrace),
	)
}

// =============================================================================
// Metrics: Interface for observability and monitoring
// =============================================================================

// Metrics defines the interface for collecting job execution metrics.
// Implementations can send metrics to monitoring systems (Prometheus, StatsD, etc.).
//
// Methods should be non-blocking and fast to avoid impacting job execution performance.
type Metrics interface {
	// RecordJobSubmitted records that a job entered the dispatch queue.
	RecordJobSubmitted(priority Priority)

	// RecordJobDuration records how long a job's entry point took, including
	// snapshot release.
	RecordJobDuration(jobName string, priority Priority, duration time.Duration)

	// RecordJobPanic records that a job panicked during execution.
	RecordJobPanic(jobName string, panicInfo any)

	// RecordQueueDepth records the number of queued jobs in one tier.
	RecordQueueDepth(priority Priority, depth int)

	// RecordJobRejected records that a job was rejected or dropped (e.g., during shutdown).
	RecordJobRejected(reason string)
}

// NilMetrics provides a no-op metrics implementation that does nothing.
// This is the default when no metrics interface is provided.
type NilMetrics struct{}

func (m *NilMetrics) RecordJobSubmitted(priority Priority)                              {}
func (m *NilMetrics) RecordJobDuration(jobName string, priority Priority, d time.Duration) {}
func (m *NilMetrics) RecordJobPanic(jobName string, panicInfo any)                      {}
func (m *NilMetrics) RecordQueueDepth(priority Priority, depth int)                     {}
func (m *NilMetrics) RecordJobRejected(reason string)                                   {}

// =============================================================================
// RejectedJobHandler: Interface for handling rejected jobs
// =============================================================================

// RejectedJobHandler is called when a job is rejected by the dispatcher.
// This can happen when:
// - The job is submitted after shutdown began ("shutting down")
// - The job was still queued when a forced shutdown dropped it ("shutdown")
//
// Implementations should be thread-safe as they may be called concurrently.
type RejectedJobHandler interface {
	HandleRejectedJob(info JobInfo, reason string)
}

// DefaultRejectedJobHandler logs rejected jobs at warn level, throttled.
type DefaultRejectedJobHandler struct {
	logger  Logger
	limiter *throttle
}

// NewDefaultRejectedJobHandler creates a handler logging to logger.
func NewDefaultRejectedJobHandler(logger Logger) *DefaultRejectedJobHandler {
	if logger == nil {
		logger = NewDefaultLogger()
	}
	return &DefaultRejectedJobHandler{logger: logger, limiter: newThrottle()}
}

// HandleRejectedJob logs the rejected job.
func (h *DefaultRejectedJobHandler) HandleRejectedJob(info JobInfo, reason string) {
	ok, suppressed := h.limiter.allow()
	if !ok {
		return
	}
	h.logger.Warn("job.rejected",
		F("job", info.Name),
		F("job_id", info.ID),
		F("priority", info.Priority),
		F("reason", reason),
		F("suppressed", suppressed),
	)
}

// =============================================================================
// JobHooks: profiling / instrumentation around job execution
// =============================================================================

// JobHooks is invoked by workers around every job. OnJobStart runs before the
// entry point; OnJobEnd runs after the snapshot was released and before the
// job's CompletionSignal is completed.
type JobHooks interface {
	OnJobStart(ctx context.Context, info JobInfo) context.Context
	OnJobEnd(ctx context.Context, info JobInfo, duration time.Duration, panicked bool)
}

// NilHooks does nothing.
type NilHooks struct{}

func (NilHooks) OnJobStart(ctx context.Context, info JobInfo) context.Context { return ctx }
func (NilHooks) OnJobEnd(ctx context.Context, info JobInfo, d time.Duration, panicked bool) {
}

// =============================================================================
// DispatcherConfig: Configuration for Dispatcher
// =============================================================================

// DispatcherConfig holds configuration options for Dispatcher.
// All handlers are optional; if not provided, default implementations will be used.
type DispatcherConfig struct {
	// Logger receives lifecycle messages. Defaults to a zerolog console logger.
	Logger Logger

	// PanicHandler is called when a job panics. Defaults to DefaultPanicHandler.
	PanicHandler PanicHandler

	// Metrics is called to record job execution metrics. Defaults to NilMetrics.
	Metrics Metrics

	// RejectedJobHandler is called when a job is rejected. Defaults to DefaultRejectedJobHandler.
	RejectedJobHandler RejectedJobHandler

	// Hooks wraps every job execution. Defaults to NilHooks.
	Hooks JobHooks

	// HistorySize is the number of execution records kept for RecentJobs.
	HistorySize int
}

// DefaultDispatcherConfig returns a config with default handlers.
func DefaultDispatcherConfig() *DispatcherConfig {
	logger := NewDefaultLogger()
	return &DispatcherConfig{
		Logger:             logger,
		PanicHandler:       NewDefaultPanicHandler(logger),
		Metrics:            &NilMetrics{},
		RejectedJobHandler: NewDefaultRejectedJobHandler(logger),
		Hooks:              NilHooks{},
		HistorySize:        defaultJobHistoryCapacity,
	}
}

// throttle is a token bucket that also counts what it dropped.
type throttle struct {
	limiter    *rate.Limiter
	suppressed atomic.Int64
}

func newThrottle() *throttle {
	return &throttle{limiter: rate.NewLimiter(rate.Limit(10), 20)}
}

// allow reports whether an event may be emitted, and how many were dropped
// since the last allowed one.
func (t *throttle) allow() (bool, int64) {
	if !t.limiter.Allow() {
		t.suppressed.Add(1)
		return false, 0
	}
	return true, t.suppressed.Swap(0)
}
