package jobsystem

import "github.com/Swind/go-job-system/core"

// Re-export commonly used types from core package for convenience.
// This allows users to import only the jobsystem package for most use cases.

// JobHandle is one schedulable job
type JobHandle = core.JobHandle

// CompletionSignal counts outstanding jobs and wakes waiters at zero
type CompletionSignal = core.CompletionSignal

// Priority is the dispatch tier of a job
type Priority = core.Priority

// Releaser is implemented by captured values that need deterministic teardown
type Releaser = core.Releaser

// Cloner is implemented by arguments that must be deep-copied into a job
type Cloner[T any] = core.Cloner[T]

// JobExecutionRecord describes one finished job
type JobExecutionRecord = core.JobExecutionRecord

// Priority constants
const (
	PriorityStream  Priority = core.PriorityStream
	PriorityLow     Priority = core.PriorityLow
	PriorityRegular Priority = core.PriorityRegular
	PriorityHigh    Priority = core.PriorityHigh
)

// NewCompletionSignal returns an idle signal.
func NewCompletionSignal() *CompletionSignal {
	return core.NewCompletionSignal()
}

// Sentinel errors
var (
	ErrSchedulerShutdown  = core.ErrSchedulerShutdown
	ErrShutdownTimeout    = core.ErrShutdownTimeout
	ErrInvalidWorkerCount = core.ErrInvalidWorkerCount
)
