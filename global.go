package jobsystem

import (
	"sync"

	"github.com/Swind/go-job-system/core"
)

// =============================================================================
// Global Scheduler Helper (Singleton)
// =============================================================================

var (
	globalScheduler *Scheduler
	globalMu        sync.Mutex
)

// InitGlobalScheduler initializes the process-wide scheduler with the given
// number of workers and starts it. Later calls are no-ops until
// ShutdownGlobalScheduler.
func InitGlobalScheduler(workers int, opts ...Option) error {
	globalMu.Lock()
	defer globalMu.Unlock()

	if globalScheduler != nil {
		return nil // Already initialized
	}

	s, err := Init(workers, append([]Option{WithID("global")}, opts...)...)
	if err != nil {
		return err
	}
	globalScheduler = s
	return nil
}

// GetGlobalScheduler returns the process-wide scheduler.
// It panics if InitGlobalScheduler has not been called.
func GetGlobalScheduler() *Scheduler {
	globalMu.Lock()
	defer globalMu.Unlock()

	if globalScheduler == nil {
		panic("GlobalScheduler not initialized. Call InitGlobalScheduler() first.")
	}
	return globalScheduler
}

// ShutdownGlobalScheduler stops the process-wide scheduler. Queued jobs are
// dropped and their signals completed.
func ShutdownGlobalScheduler() {
	globalMu.Lock()
	defer globalMu.Unlock()

	if globalScheduler != nil {
		globalScheduler.Shutdown()
		globalScheduler = nil
	}
}

// Submit schedules h on the process-wide scheduler.
func Submit(h *core.JobHandle) error {
	return GetGlobalScheduler().Submit(h)
}

// SubmitClosure schedules a one-off closure on the process-wide scheduler.
func SubmitClosure(name string, fn func(), priority core.Priority, sig *core.CompletionSignal, captures ...any) error {
	return GetGlobalScheduler().SubmitClosure(name, fn, priority, sig, captures...)
}
