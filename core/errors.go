package core

import "errors"

var (
	// ErrSchedulerShutdown is returned when a job is submitted after shutdown began.
	ErrSchedulerShutdown = errors.New("scheduler is shut down")

	// ErrShutdownTimeout is returned when a graceful shutdown could not drain the queue in time.
	ErrShutdownTimeout = errors.New("graceful shutdown timed out")

	// ErrInvalidWorkerCount is returned for a worker count below one.
	ErrInvalidWorkerCount = errors.New("worker count must be at least 1")
)
