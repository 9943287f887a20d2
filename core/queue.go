package core

import (
	"sync"
)

const (
	defaultQueueCap     = 16
	compactMinCap       = 64 // Don't compact if capacity is less than this
	compactShrinkFactor = 4  // Trigger compaction when len < cap/4
)

// =============================================================================
// tierQueue: FIFO of jobs sharing one priority
// =============================================================================

// tierQueue is not synchronized; DispatchQueue guards it.
type tierQueue struct {
	jobs []*JobHandle
}

func (q *tierQueue) push(h *JobHandle) {
	if q.jobs == nil {
		q.jobs = make([]*JobHandle, 0, defaultQueueCap)
	}
	q.jobs = append(q.jobs, h)
}

func (q *tierQueue) pop() (*JobHandle, bool) {
	if len(q.jobs) == 0 {
		return nil, false
	}
	h := q.jobs[0]
	// Zero out the element in the underlying array to prevent memory leak
	q.jobs[0] = nil
	q.jobs = q.jobs[1:]
	q.maybeCompact()
	return h, true
}

func (q *tierQueue) maybeCompact() {
	n := len(q.jobs)
	c := cap(q.jobs)

	if c < compactMinCap {
		return
	}
	if n == 0 {
		q.jobs = make([]*JobHandle, 0, defaultQueueCap)
		return
	}
	if n*compactShrinkFactor >= c {
		return
	}

	newCap := max(max(c/2, defaultQueueCap), n)
	compacted := make([]*JobHandle, n, newCap)
	copy(compacted, q.jobs)
	q.jobs = compacted
}

func (q *tierQueue) drain() []*JobHandle {
	out := q.jobs
	q.jobs = nil
	return out
}

// =============================================================================
// DispatchQueue: multi-producer / multi-consumer priority queue
// =============================================================================

// DispatchQueue holds ready jobs ordered by priority tier, FIFO within a tier.
// A job of a higher tier is always dequeued before any job of a lower tier.
//
// Push never blocks. PopBlocking parks a consumer until a job arrives, the
// queue is closed, or the consumer's stop channel fires.
type DispatchQueue struct {
	mu     sync.Mutex
	tiers  [NumPriorities]tierQueue
	count  int
	closed bool

	// signal carries wake-up tokens for parked consumers. A dropped token is
	// harmless: a full buffer means some consumer is about to re-check.
	signal   chan struct{}
	closedCh chan struct{}
}

// NewDispatchQueue creates a queue sized for the given number of consumers.
func NewDispatchQueue(consumers int) *DispatchQueue {
	if consumers < 1 {
		consumers = 1
	}
	return &DispatchQueue{
		signal:   make(chan struct{}, consumers*2),
		closedCh: make(chan struct{}),
	}
}

// Push appends h to its tier. It returns false if the queue is closed.
func (q *DispatchQueue) Push(h *JobHandle) bool {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return false
	}
	q.tiers[h.priority].push(h)
	q.count++
	q.mu.Unlock()

	select {
	case q.signal <- struct{}{}:
	default:
		// Signal channel full, but job is already queued
	}
	return true
}

// Pop removes the next job without blocking.
func (q *DispatchQueue) Pop() (*JobHandle, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for p := NumPriorities - 1; p >= 0; p-- {
		if h, ok := q.tiers[p].pop(); ok {
			q.count--
			return h, true
		}
	}
	return nil, false
}

// PopBlocking removes the next job, waiting while the queue is empty.
// It returns false once stopCh is closed, or once the queue is closed and empty.
func (q *DispatchQueue) PopBlocking(stopCh <-chan struct{}) (*JobHandle, bool) {
	for {
		// Fast-exit check so a closed stopCh wins over queued work.
		select {
		case <-stopCh:
			return nil, false
		default:
		}

		if h, ok := q.Pop(); ok {
			return h, true
		}

		select {
		case <-q.signal:
			continue
		case <-q.closedCh:
			if h, ok := q.Pop(); ok {
				return h, true
			}
			return nil, false
		case <-stopCh:
			return nil, false
		}
	}
}

// Len returns the number of queued jobs.
func (q *DispatchQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.count
}

// LenByPriority returns the number of queued jobs per tier, indexed by Priority.
func (q *DispatchQueue) LenByPriority() [NumPriorities]int {
	q.mu.Lock()
	defer q.mu.Unlock()
	var out [NumPriorities]int
	for p := range q.tiers {
		out[p] = len(q.tiers[p].jobs)
	}
	return out
}

// Close stops accepting jobs and wakes every parked consumer. Jobs already
// queued stay poppable until drained.
func (q *DispatchQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	q.closed = true
	close(q.closedCh)
}

// IsClosed reports whether Close was called.
func (q *DispatchQueue) IsClosed() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed
}

// Drain removes and returns every queued job, highest tier first.
func (q *DispatchQueue) Drain() []*JobHandle {
	q.mu.Lock()
	defer q.mu.Unlock()

	out := make([]*JobHandle, 0, q.count)
	for p := NumPriorities - 1; p >= 0; p-- {
		out = append(out, q.tiers[p].drain()...)
	}
	q.count = 0
	return out
}
