package core

import (
	"fmt"
	"reflect"
	"runtime/debug"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// JobHandle: one job instance from creation through completion
// =============================================================================

// JobState is the lifecycle state of a JobHandle.
type JobState int32

const (
	// JobEmpty is the state of a handle whose contents were moved out.
	JobEmpty JobState = iota
	// JobUnscheduled is the state of a freshly created handle.
	JobUnscheduled
	// JobScheduled means the handle was submitted and waits in the queue.
	JobScheduled
	// JobRunning means a worker is executing the entry point.
	JobRunning
	// JobComplete means the entry point returned and the snapshot was released.
	JobComplete
	// JobDiscarded means the handle was dropped without running.
	JobDiscarded
)

func (s JobState) String() string {
	switch s {
	case JobEmpty:
		return "empty"
	case JobUnscheduled:
		return "unscheduled"
	case JobScheduled:
		return "scheduled"
	case JobRunning:
		return "running"
	case JobComplete:
		return "complete"
	case JobDiscarded:
		return "discarded"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// JobHandle couples an entry point and its argument snapshot with a priority
// and an optional CompletionSignal.
//
// A handle is configured while unscheduled (BindReceiver, SetPriority,
// RegisterSignal), then submitted exactly once. From submission on, the
// scheduler owns it: it must not be reconfigured, moved or resubmitted.
// Contract violations panic.
//
// A JobHandle is not safe for concurrent configuration from several goroutines.
type JobHandle struct {
	id       string
	name     string
	priority Priority
	signal   *CompletionSignal

	// receiver is the non-owning target of a method job.
	receiver any
	entry    *entryPoint

	state       atomic.Int32
	submittedAt time.Time
}

func newJobHandle(name string, entry *entryPoint) *JobHandle {
	h := &JobHandle{
		id:       uuid.NewString(),
		name:     name,
		priority: DefaultPriority,
		entry:    entry,
	}
	h.state.Store(int32(JobUnscheduled))
	return h
}

// ID returns the unique id assigned at creation. It survives Move.
func (h *JobHandle) ID() string { return h.id }

// Name returns the diagnostic label of the job.
func (h *JobHandle) Name() string { return h.name }

// Priority returns the dispatch tier.
func (h *JobHandle) Priority() Priority { return h.priority }

// Signal returns the attached CompletionSignal, or nil.
func (h *JobHandle) Signal() *CompletionSignal { return h.signal }

// State returns the current lifecycle state.
func (h *JobHandle) State() JobState { return JobState(h.state.Load()) }

// SetPriority sets the dispatch tier. Must be called before submission.
func (h *JobHandle) SetPriority(p Priority) *JobHandle {
	h.mustBeConfigurable("SetPriority")
	if !p.Valid() {
		panic(fmt.Sprintf("JobHandle: invalid priority %d", int(p)))
	}
	h.priority = p
	return h
}

// BindReceiver sets the object a method job is invoked on. The job does not
// own the receiver: it must stay valid until the job completed, and the
// scheduler does not synchronize access to it from concurrent jobs.
//
// Binding a receiver to a non-method job, or a receiver of the wrong type,
// panics.
func (h *JobHandle) BindReceiver(receiver any) *JobHandle {
	h.mustBeConfigurable("BindReceiver")
	if !h.entry.needsReceiver() {
		panic(fmt.Sprintf("JobHandle: %s is a %s job and takes no receiver", h.name, h.entry.kind))
	}
	if !h.entry.acceptsReceiver(receiver) {
		panic(fmt.Sprintf("JobHandle: %s cannot bind receiver of type %v", h.name, reflect.TypeOf(receiver)))
	}
	h.receiver = receiver
	return h
}

// RegisterSignal attaches sig to the job. The scheduler registers the job on
// sig when it is submitted and completes it after the job finished.
// Passing nil detaches any previous signal.
func (h *JobHandle) RegisterSignal(sig *CompletionSignal) *JobHandle {
	h.mustBeConfigurable("RegisterSignal")
	h.signal = sig
	return h
}

// Move transfers the snapshot, receiver, priority, signal, name and id into
// a new handle. The source is left empty and can no longer be submitted.
func (h *JobHandle) Move() *JobHandle {
	if !h.state.CompareAndSwap(int32(JobUnscheduled), int32(JobEmpty)) {
		panic(fmt.Sprintf("JobHandle: cannot move %s job %s", h.State(), h.name))
	}
	dst := &JobHandle{
		id:       h.id,
		name:     h.name,
		priority: h.priority,
		signal:   h.signal,
		receiver: h.receiver,
		entry:    h.entry,
	}
	dst.state.Store(int32(JobUnscheduled))

	h.signal = nil
	h.receiver = nil
	h.entry = nil
	return dst
}

// Discard drops an unsubmitted job and releases its snapshot immediately.
// Discarding an empty or already discarded handle is a no-op.
func (h *JobHandle) Discard() {
	if h.state.CompareAndSwap(int32(JobUnscheduled), int32(JobDiscarded)) {
		h.entry.release()
		h.entry = nil
		h.receiver = nil
		h.signal = nil
		return
	}
	switch h.State() {
	case JobEmpty, JobDiscarded:
		return
	default:
		panic(fmt.Sprintf("JobHandle: cannot discard %s job %s", h.State(), h.name))
	}
}

// RunNow executes an unsubmitted job on the calling goroutine: the signal
// (if any) is registered, the entry point runs with the snapshot's
// arguments, then the snapshot is released, then the signal is completed.
//
// RunNow runs a job at most once. Calling it on a submitted, completed,
// moved-from or discarded handle panics: a submitted job belongs to the
// scheduler. A panic raised by the entry point still releases the snapshot
// and completes the signal before it propagates.
func (h *JobHandle) RunNow() {
	h.run(JobUnscheduled, nil)
}

// finishFunc observes a finished job after its snapshot was released and
// before its signal is completed. recovered is non-nil if the entry point
// panicked; the panic is then considered handled.
type finishFunc func(recovered any, stack []byte)

// run executes a handle currently in state from (JobUnscheduled for
// RunNow, JobScheduled for workers).
func (h *JobHandle) run(from JobState, finished finishFunc) {
	if from == JobUnscheduled && h.State() == JobUnscheduled {
		h.checkReceiver()
	}
	if !h.state.CompareAndSwap(int32(from), int32(JobRunning)) {
		panic(fmt.Sprintf("JobHandle: cannot run %s job %s", h.State(), h.name))
	}
	if from == JobUnscheduled && h.signal != nil {
		h.signal.Register()
	}

	entry, receiver, sig := h.entry, h.receiver, h.signal

	// Completion is deferred first so it fires last, even if a Releaser or
	// the finish observer panics.
	defer func() {
		h.signal = nil
		if sig != nil {
			sig.Complete()
		}
	}()
	defer func() {
		recovered := recover()
		var stack []byte
		if recovered != nil {
			stack = debug.Stack()
		}

		h.entry = nil
		h.receiver = nil
		entry.release()
		h.state.Store(int32(JobComplete))

		if finished != nil {
			finished(recovered, stack)
			return
		}
		if recovered != nil {
			panic(recovered)
		}
	}()

	entry.invoke(receiver)
}

// beginSchedule moves the handle into the scheduled state.
func (h *JobHandle) beginSchedule() {
	h.checkReceiver()
	if !h.state.CompareAndSwap(int32(JobUnscheduled), int32(JobScheduled)) {
		panic(fmt.Sprintf("JobHandle: cannot submit %s job %s", h.State(), h.name))
	}
	h.submittedAt = time.Now()
}

// abandon tears down a scheduled job that will never run: the snapshot is
// released and the signal completed so no waiter blocks on it.
func (h *JobHandle) abandon() {
	if !h.state.CompareAndSwap(int32(JobScheduled), int32(JobDiscarded)) {
		return
	}
	sig := h.signal
	h.signal = nil
	h.receiver = nil
	if h.entry != nil {
		h.entry.release()
		h.entry = nil
	}
	if sig != nil {
		sig.Complete()
	}
}

func (h *JobHandle) checkReceiver() {
	if h.entry == nil {
		return
	}
	if h.entry.needsReceiver() && h.receiver == nil {
		panic(fmt.Sprintf("JobHandle: method job %s has no receiver bound", h.name))
	}
}

func (h *JobHandle) mustBeConfigurable(op string) {
	if s := h.State(); s != JobUnscheduled {
		panic(fmt.Sprintf("JobHandle: %s on %s job %s", op, s, h.name))
	}
}

func (h *JobHandle) info(workerID int) JobInfo {
	kind := ""
	if h.entry != nil {
		kind = h.entry.kind.String()
	}
	return JobInfo{
		ID:          h.id,
		Name:        h.name,
		Priority:    h.priority,
		Kind:        kind,
		WorkerID:    workerID,
		SubmittedAt: h.submittedAt,
	}
}
