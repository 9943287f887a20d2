package core

import "time"

// JobInfo identifies a job while it is dispatched and executed.
type JobInfo struct {
	ID          string
	Name        string
	Priority    Priority
	Kind        string // "func", "method" or "closure"
	WorkerID    int    // -1 outside a worker
	SubmittedAt time.Time
}

// QueueDelay returns how long the job waited between submission and start.
func (i JobInfo) QueueDelay(startedAt time.Time) time.Duration {
	if i.SubmittedAt.IsZero() {
		return 0
	}
	d := startedAt.Sub(i.SubmittedAt)
	if d < 0 {
		return 0
	}
	return d
}

// JobExecutionRecord captures a completed job execution event.
type JobExecutionRecord struct {
	JobID      string
	Name       string
	Kind       string
	Priority   Priority
	WorkerID   int
	QueueDelay time.Duration
	StartedAt  time.Time
	FinishedAt time.Time
	Duration   time.Duration
	Panicked   bool
}

// DispatcherStats represents runtime observability state for a dispatcher.
type DispatcherStats struct {
	Queued          int
	QueuedByTier    [NumPriorities]int
	Active          int
	Submitted       int64
	Completed       int64
	Panicked        int64
	Rejected        int64
	ShuttingDown    bool
	LastJobName     string
	LastJobFinished time.Time
}

// PoolStats represents runtime observability state for a worker pool and the
// dispatcher feeding it.
type PoolStats struct {
	ID         string
	Workers    int
	Running    bool
	Dispatcher DispatcherStats
}
