package core

// =============================================================================
// Job declarations
//
// A declaration binds a name and an entry-point signature once; New then
// builds independent JobHandles, each with its own argument snapshot.
//
//	var computeJob = core.DeclareMethod1("Compute", (*Host).Compute)
//
//	job := computeJob.New(42)
//	job.BindReceiver(host)
//	scheduler.Submit(job)
// =============================================================================

func mustEntry(name string, isNil bool) {
	if isNil {
		panic("core: job declaration " + name + " has a nil entry point")
	}
}

// -----------------------------------------------------------------------------
// Free functions
// -----------------------------------------------------------------------------

// FuncJob0 declares a job running a free function without parameters.
type FuncJob0 struct {
	name string
	fn   func()
}

// DeclareFunc0 declares a job named name running fn. It panics if fn is nil.
func DeclareFunc0(name string, fn func()) FuncJob0 {
	mustEntry(name, fn == nil)
	return FuncJob0{name: name, fn: fn}
}

// Name returns the name given to the declaration.
func (d FuncJob0) Name() string { return d.name }

// New builds an unscheduled handle for the function.
func (d FuncJob0) New() *JobHandle {
	return newJobHandle(d.name, newFuncEntry(&args0{}, d.fn))
}

// FuncJob1 declares a job running a free function with one parameter.
type FuncJob1[A any] struct {
	name string
	fn   func(A)
}

// DeclareFunc1 declares a job running fn with one argument. The argument is
// captured when New is called, not when the job runs. It panics if fn is nil.
func DeclareFunc1[A any](name string, fn func(A)) FuncJob1[A] {
	mustEntry(name, fn == nil)
	return FuncJob1[A]{name: name, fn: fn}
}

// Name returns the declared job name.
func (d FuncJob1[A]) Name() string { return d.name }

// New snapshots a and returns an unscheduled handle. Slices and maps are
// copied; pointers are borrowed and must outlive the job.
func (d FuncJob1[A]) New(a A) *JobHandle {
	s := newArgs1(a, nil)
	return newJobHandle(d.name, newFuncEntry(s, func() { d.fn(s.a) }))
}

// FuncJob2 declares a job running a free function with two parameters.
type FuncJob2[A, B any] struct {
	name string
	fn   func(A, B)
}

// DeclareFunc2 declares a job running fn with two arguments.
func DeclareFunc2[A, B any](name string, fn func(A, B)) FuncJob2[A, B] {
	mustEntry(name, fn == nil)
	return FuncJob2[A, B]{name: name, fn: fn}
}

// Name returns the declared job name.
func (d FuncJob2[A, B]) Name() string { return d.name }

// New snapshots the arguments and returns an unscheduled handle.
func (d FuncJob2[A, B]) New(a A, b B) *JobHandle {
	s := newArgs2(a, b, nil)
	return newJobHandle(d.name, newFuncEntry(s, func() { d.fn(s.a, s.b) }))
}

// FuncJob3 declares a job running a free function with three parameters.
type FuncJob3[A, B, C any] struct {
	name string
	fn   func(A, B, C)
}

// DeclareFunc3 declares a job running fn with three arguments.
func DeclareFunc3[A, B, C any](name string, fn func(A, B, C)) FuncJob3[A, B, C] {
	mustEntry(name, fn == nil)
	return FuncJob3[A, B, C]{name: name, fn: fn}
}

// Name returns the declared job name.
func (d FuncJob3[A, B, C]) Name() string { return d.name }

// New snapshots the arguments and returns an unscheduled handle.
func (d FuncJob3[A, B, C]) New(a A, b B, c C) *JobHandle {
	s := newArgs3(a, b, c, nil)
	return newJobHandle(d.name, newFuncEntry(s, func() { d.fn(s.a, s.b, s.c) }))
}

// FuncJob4 declares a job running a free function with four parameters.
type FuncJob4[A, B, C, D any] struct {
	name string
	fn   func(A, B, C, D)
}

// DeclareFunc4 declares a job running fn with four arguments.
func DeclareFunc4[A, B, C, D any](name string, fn func(A, B, C, D)) FuncJob4[A, B, C, D] {
	mustEntry(name, fn == nil)
	return FuncJob4[A, B, C, D]{name: name, fn: fn}
}

// Name returns the declared job name.
func (d FuncJob4[A, B, C, D]) Name() string { return d.name }

// New snapshots the arguments and returns an unscheduled handle.
func (d FuncJob4[A, B, C, D]) New(a A, b B, c C, dd D) *JobHandle {
	s := newArgs4(a, b, c, dd, nil)
	return newJobHandle(d.name, newFuncEntry(s, func() { d.fn(s.a, s.b, s.c, s.d) }))
}

// -----------------------------------------------------------------------------
// Methods
//
// The entry point is a method expression such as (*Host).Compute. The
// receiver is supplied per job through JobHandle.BindReceiver and is not
// owned by the job.
// -----------------------------------------------------------------------------

// MethodJob0 declares a job calling a method without parameters.
type MethodJob0[R any] struct {
	name string
	fn   func(*R)
}

// DeclareMethod0 declares a job calling the method expression fn on the
// receiver bound with JobHandle.BindReceiver. It panics if fn is nil.
func DeclareMethod0[R any](name string, fn func(*R)) MethodJob0[R] {
	mustEntry(name, fn == nil)
	return MethodJob0[R]{name: name, fn: fn}
}

// Name returns the declared job name.
func (d MethodJob0[R]) Name() string { return d.name }

// New returns an unscheduled handle. Bind a receiver before submitting it.
func (d MethodJob0[R]) New() *JobHandle {
	return newJobHandle(d.name, newMethodEntry(&args0{}, d.fn))
}

// MethodJob1 declares a job calling a method with one parameter.
type MethodJob1[R, A any] struct {
	name string
	fn   func(*R, A)
}

// DeclareMethod1 declares a method job with one argument.
func DeclareMethod1[R, A any](name string, fn func(*R, A)) MethodJob1[R, A] {
	mustEntry(name, fn == nil)
	return MethodJob1[R, A]{name: name, fn: fn}
}

// Name returns the declared job name.
func (d MethodJob1[R, A]) Name() string { return d.name }

// New snapshots a. The receiver still has to be bound.
func (d MethodJob1[R, A]) New(a A) *JobHandle {
	s := newArgs1(a, nil)
	return newJobHandle(d.name, newMethodEntry(s, func(r *R) { d.fn(r, s.a) }))
}

// MethodJob2 declares a job calling a method with two parameters.
type MethodJob2[R, A, B any] struct {
	name string
	fn   func(*R, A, B)
}

// DeclareMethod2 declares a method job with two arguments.
func DeclareMethod2[R, A, B any](name string, fn func(*R, A, B)) MethodJob2[R, A, B] {
	mustEntry(name, fn == nil)
	return MethodJob2[R, A, B]{name: name, fn: fn}
}

// Name returns the declared job name.
func (d MethodJob2[R, A, B]) Name() string { return d.name }

// New snapshots the arguments. The receiver still has to be bound.
func (d MethodJob2[R, A, B]) New(a A, b B) *JobHandle {
	s := newArgs2(a, b, nil)
	return newJobHandle(d.name, newMethodEntry(s, func(r *R) { d.fn(r, s.a, s.b) }))
}

// MethodJob3 declares a job calling a method with three parameters.
type MethodJob3[R, A, B, C any] struct {
	name string
	fn   func(*R, A, B, C)
}

// DeclareMethod3 declares a method job with three arguments.
func DeclareMethod3[R, A, B, C any](name string, fn func(*R, A, B, C)) MethodJob3[R, A, B, C] {
	mustEntry(name, fn == nil)
	return MethodJob3[R, A, B, C]{name: name, fn: fn}
}

// Name returns the declared job name.
func (d MethodJob3[R, A, B, C]) Name() string { return d.name }

// New snapshots the arguments. The receiver still has to be bound.
func (d MethodJob3[R, A, B, C]) New(a A, b B, c C) *JobHandle {
	s := newArgs3(a, b, c, nil)
	return newJobHandle(d.name, newMethodEntry(s, func(r *R) { d.fn(r, s.a, s.b, s.c) }))
}

// MethodJob4 declares a job calling a method with four parameters.
type MethodJob4[R, A, B, C, D any] struct {
	name string
	fn   func(*R, A, B, C, D)
}

// DeclareMethod4 declares a method job with four arguments.
func DeclareMethod4[R, A, B, C, D any](name string, fn func(*R, A, B, C, D)) MethodJob4[R, A, B, C, D] {
	mustEntry(name, fn == nil)
	return MethodJob4[R, A, B, C, D]{name: name, fn: fn}
}

// Name returns the declared job name.
func (d MethodJob4[R, A, B, C, D]) Name() string { return d.name }

// New snapshots the arguments. The receiver still has to be bound.
func (d MethodJob4[R, A, B, C, D]) New(a A, b B, c C, dd D) *JobHandle {
	s := newArgs4(a, b, c, dd, nil)
	return newJobHandle(d.name, newMethodEntry(s, func(r *R) { d.fn(r, s.a, s.b, s.c, s.d) }))
}

// -----------------------------------------------------------------------------
// Closures
//
// A closure declaration fixes the parameter list ahead of time; the closure
// itself is supplied per job. Values passed as captures are owned by the job
// and released (see Releaser) once the closure returned.
// -----------------------------------------------------------------------------

// ClosureJob0 declares a closure job without parameters.
type ClosureJob0 struct {
	name string
}

// DeclareClosure0 declares a closure job. The closure is passed to New.
func DeclareClosure0(name string) ClosureJob0 {
	return ClosureJob0{name: name}
}

// Name returns the declared job name.
func (d ClosureJob0) Name() string { return d.name }

// New wraps fn in an unscheduled handle. captures are owned by the job and
// released after fn returned. It panics if fn is nil.
func (d ClosureJob0) New(fn func(), captures ...any) *JobHandle {
	return NewClosureJob(d.name, fn, captures...)
}

// ClosureJob1 declares a closure job with one parameter.
type ClosureJob1[A any] struct {
	name string
}

// DeclareClosure1 declares a closure job taking one argument.
func DeclareClosure1[A any](name string) ClosureJob1[A] {
	return ClosureJob1[A]{name: name}
}

// Name returns the declared job name.
func (d ClosureJob1[A]) Name() string { return d.name }

// New snapshots a and the captures, then wraps fn.
func (d ClosureJob1[A]) New(fn func(A), a A, captures ...any) *JobHandle {
	mustEntry(d.name, fn == nil)
	s := newArgs1(a, captures)
	return newJobHandle(d.name, newClosureEntry(s, func() { fn(s.a) }))
}

// ClosureJob2 declares a closure job with two parameters.
type ClosureJob2[A, B any] struct {
	name string
}

// DeclareClosure2 declares a closure job taking two arguments.
func DeclareClosure2[A, B any](name string) ClosureJob2[A, B] {
	return ClosureJob2[A, B]{name: name}
}

// Name returns the declared job name.
func (d ClosureJob2[A, B]) Name() string { return d.name }

// New snapshots the arguments and the captures, then wraps fn.
func (d ClosureJob2[A, B]) New(fn func(A, B), a A, b B, captures ...any) *JobHandle {
	mustEntry(d.name, fn == nil)
	s := newArgs2(a, b, captures)
	return newJobHandle(d.name, newClosureEntry(s, func() { fn(s.a, s.b) }))
}

// ClosureJob3 declares a closure job with three parameters.
type ClosureJob3[A, B, C any] struct {
	name string
}

// DeclareClosure3 declares a closure job taking three arguments.
func DeclareClosure3[A, B, C any](name string) ClosureJob3[A, B, C] {
	return ClosureJob3[A, B, C]{name: name}
}

// Name returns the declared job name.
func (d ClosureJob3[A, B, C]) Name() string { return d.name }

// New snapshots the arguments and the captures, then wraps fn.
func (d ClosureJob3[A, B, C]) New(fn func(A, B, C), a A, b B, c C, captures ...any) *JobHandle {
	mustEntry(d.name, fn == nil)
	s := newArgs3(a, b, c, captures)
	return newJobHandle(d.name, newClosureEntry(s, func() { fn(s.a, s.b, s.c) }))
}

// ClosureJob4 declares a closure job with four parameters.
type ClosureJob4[A, B, C, D any] struct {
	name string
}

// DeclareClosure4 declares a closure job taking four arguments.
func DeclareClosure4[A, B, C, D any](name string) ClosureJob4[A, B, C, D] {
	return ClosureJob4[A, B, C, D]{name: name}
}

// Name returns the declared job name.
func (d ClosureJob4[A, B, C, D]) Name() string { return d.name }

// New snapshots the arguments and the captures, then wraps fn.
func (d ClosureJob4[A, B, C, D]) New(fn func(A, B, C, D), a A, b B, c C, dd D, captures ...any) *JobHandle {
	mustEntry(d.name, fn == nil)
	s := newArgs4(a, b, c, dd, captures)
	return newJobHandle(d.name, newClosureEntry(s, func() { fn(s.a, s.b, s.c, s.d) }))
}

// NewClosureJob builds a one-off closure job without a separate declaration.
// This is what Scheduler.SubmitClosure uses for fire-and-forget work.
func NewClosureJob(name string, fn func(), captures ...any) *JobHandle {
	mustEntry(name, fn == nil)
	s := &args0{owned: ownCaptures(captures)}
	return newJobHandle(name, newClosureEntry(s, fn))
}
