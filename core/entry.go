package core

// entryKind tells which callable shape an entry point was built from.
type entryKind int

const (
	entryFunc entryKind = iota
	entryMethod
	entryClosure
)

func (k entryKind) String() string {
	switch k {
	case entryFunc:
		return "func"
	case entryMethod:
		return "method"
	case entryClosure:
		return "closure"
	default:
		return "unknown"
	}
}

// entryPoint is the single runnable shape the queue and the workers deal
// with. Method, free function and closure jobs only differ in how they are
// constructed.
type entryPoint struct {
	kind entryKind
	snap snapshot

	// invoke calls the bound callable with the snapshot's arguments.
	// receiver is nil for anything but method entries.
	invoke func(receiver any)

	// acceptsReceiver is set for method entries only.
	acceptsReceiver func(receiver any) bool
}

func newFuncEntry(snap snapshot, call func()) *entryPoint {
	return &entryPoint{
		kind:   entryFunc,
		snap:   snap,
		invoke: func(any) { call() },
	}
}

func newClosureEntry(snap snapshot, call func()) *entryPoint {
	return &entryPoint{
		kind:   entryClosure,
		snap:   snap,
		invoke: func(any) { call() },
	}
}

// newMethodEntry binds call to a receiver of type *R supplied at run time.
func newMethodEntry[R any](snap snapshot, call func(*R)) *entryPoint {
	return &entryPoint{
		kind: entryMethod,
		snap: snap,
		invoke: func(receiver any) {
			call(receiver.(*R))
		},
		acceptsReceiver: func(receiver any) bool {
			r, ok := receiver.(*R)
			return ok && r != nil
		},
	}
}

func (e *entryPoint) needsReceiver() bool {
	return e.kind == entryMethod
}

// release drops the snapshot and the callable. Safe to call once.
func (e *entryPoint) release() {
	if e.snap != nil {
		e.snap.release()
		e.snap = nil
	}
	e.invoke = nil
	e.acceptsReceiver = nil
}
