package core

import (
	"context"
	"runtime"
	"sync"
	"sync/atomic"
)

// =============================================================================
// CompletionSignal: shared pending counter with a blocking wait
// =============================================================================

// CompletionSignal counts outstanding jobs and lets callers block until all of
// them completed. Many jobs may share one signal.
//
// Register is called by the scheduler before a job becomes visible to any
// worker, and Complete after the job's entry point returned and its captured
// state was released. A waiter released by Wait therefore observes every
// side effect of the jobs it waited for, including their release hooks.
//
// The zero value is ready to use. A signal must not be copied after first use
// and must outlive every job registered against it.
type CompletionSignal struct {
	pending atomic.Int64

	mu   sync.Mutex
	done chan struct{} // nil while pending == 0
}

// NewCompletionSignal returns an idle signal.
func NewCompletionSignal() *CompletionSignal {
	return &CompletionSignal{}
}

// Register adds one outstanding job.
func (s *CompletionSignal) Register() {
	s.mu.Lock()
	if s.pending.Add(1) == 1 {
		s.done = make(chan struct{})
	}
	s.mu.Unlock()
}

// Complete marks one outstanding job as finished and wakes all waiters when
// the count drops to zero. Completing more jobs than were registered panics.
func (s *CompletionSignal) Complete() {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := s.pending.Add(-1)
	if n < 0 {
		s.pending.Add(1)
		panic("CompletionSignal: Complete called more times than Register")
	}
	if n == 0 && s.done != nil {
		close(s.done)
		s.done = nil
	}
}

// Pending returns the number of registered jobs that have not completed yet.
func (s *CompletionSignal) Pending() int {
	return int(s.pending.Load())
}

// Done returns a channel that is closed once the pending count is zero.
// The channel reflects the batch outstanding at call time: jobs registered
// after it was obtained are not covered.
func (s *CompletionSignal) Done() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.done == nil {
		return closedChan
	}
	return s.done
}

// Wait blocks until the pending count is zero. It returns immediately when
// nothing is outstanding, and may be called from several goroutines at once.
func (s *CompletionSignal) Wait() {
	if s.pending.Load() == 0 {
		return
	}
	<-s.Done()
}

// WaitContext is Wait bounded by ctx. On cancellation it returns ctx.Err()
// and leaves the pending count untouched.
func (s *CompletionSignal) WaitContext(ctx context.Context) error {
	if s.pending.Load() == 0 {
		return nil
	}
	select {
	case <-s.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// SpinWait busy-waits until the pending count is zero, yielding the processor
// between checks. Only use it on low-latency paths where the batch is known
// to be short; Wait is the right choice everywhere else.
func (s *CompletionSignal) SpinWait() {
	for s.pending.Load() != 0 {
		runtime.Gosched()
	}
}

var closedChan = func() chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}()
