package core

import "reflect"

// =============================================================================
// Argument snapshots: owned copies of a job's bound arguments
// =============================================================================

// Releaser is implemented by values whose teardown must be observed. A job
// calls Release exactly once on every Releaser it owns, on the worker that
// executed it, after the entry point returned and before the job's
// CompletionSignal is completed.
//
// A job owns its closure captures and every non-pointer argument. Pointer
// arguments are borrowed from the caller and never released by the job; hand
// a pointer over as a capture to transfer its ownership.
type Releaser interface {
	Release()
}

// Cloner is implemented by values that know how to produce an independent
// deep copy. Arguments bound to a job are cloned at creation time when they
// implement Cloner. Other slices and maps get a shallow copy of their
// elements, so later mutation of the caller's container cannot leak into the
// job; use Cloner when the elements themselves share storage.
type Cloner[T any] interface {
	Clone() T
}

// snapshot is the type-erased view of an argument snapshot.
type snapshot interface {
	// release tears down every owned value. Called once.
	release()
}

func captureArg[T any](v T) T {
	if c, ok := any(v).(Cloner[T]); ok {
		return c.Clone()
	}
	rv := reflect.ValueOf(any(v))
	switch rv.Kind() {
	case reflect.Slice:
		if rv.IsNil() {
			return v
		}
		cp := reflect.MakeSlice(rv.Type(), rv.Len(), rv.Len())
		reflect.Copy(cp, rv)
		return cp.Interface().(T)
	case reflect.Map:
		if rv.IsNil() {
			return v
		}
		cp := reflect.MakeMapWithSize(rv.Type(), rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			cp.SetMapIndex(iter.Key(), iter.Value())
		}
		return cp.Interface().(T)
	default:
		return v
	}
}

// releaseArg releases an argument value the job owns. Pointers are borrowed.
func releaseArg(v any) {
	r, ok := v.(Releaser)
	if !ok {
		return
	}
	switch reflect.ValueOf(v).Kind() {
	case reflect.Pointer, reflect.UnsafePointer:
		return
	}
	r.Release()
}

// releaseOwned releases a value whose ownership was handed to the job.
func releaseOwned(v any) {
	if r, ok := v.(Releaser); ok {
		r.Release()
	}
}

// captures holds extra state a closure job owns besides its parameters.
type captures []any

func ownCaptures(values []any) captures {
	if len(values) == 0 {
		return nil
	}
	return append(captures(nil), values...)
}

func (c captures) release() {
	for i := range c {
		releaseOwned(c[i])
		c[i] = nil
	}
}

type args0 struct {
	owned captures
}

func (s *args0) release() {
	s.owned.release()
}

type args1[A any] struct {
	a     A
	owned captures
}

func newArgs1[A any](a A, owned []any) *args1[A] {
	return &args1[A]{a: captureArg(a), owned: ownCaptures(owned)}
}

func (s *args1[A]) release() {
	releaseArg(s.a)
	s.owned.release()
	var zeroA A
	s.a = zeroA
}

type args2[A, B any] struct {
	a     A
	b     B
	owned captures
}

func newArgs2[A, B any](a A, b B, owned []any) *args2[A, B] {
	return &args2[A, B]{a: captureArg(a), b: captureArg(b), owned: ownCaptures(owned)}
}

func (s *args2[A, B]) release() {
	releaseArg(s.a)
	releaseArg(s.b)
	s.owned.release()
	var (
		zeroA A
		zeroB B
	)
	s.a, s.b = zeroA, zeroB
}

type args3[A, B, C any] struct {
	a     A
	b     B
	c     C
	owned captures
}

func newArgs3[A, B, C any](a A, b B, c C, owned []any) *args3[A, B, C] {
	return &args3[A, B, C]{a: captureArg(a), b: captureArg(b), c: captureArg(c), owned: ownCaptures(owned)}
}

func (s *args3[A, B, C]) release() {
	releaseArg(s.a)
	releaseArg(s.b)
	releaseArg(s.c)
	s.owned.release()
	var (
		zeroA A
		zeroB B
		zeroC C
	)
	s.a, s.b, s.c = zeroA, zeroB, zeroC
}

type args4[A, B, C, D any] struct {
	a     A
	b     B
	c     C
	d     D
	owned captures
}

func newArgs4[A, B, C, D any](a A, b B, c C, d D, owned []any) *args4[A, B, C, D] {
	return &args4[A, B, C, D]{
		a:     captureArg(a),
		b:     captureArg(b),
		c:     captureArg(c),
		d:     captureArg(d),
		owned: ownCaptures(owned),
	}
}

func (s *args4[A, B, C, D]) release() {
	releaseArg(s.a)
	releaseArg(s.b)
	releaseArg(s.c)
	releaseArg(s.d)
	s.owned.release()
	var (
		zeroA A
		zeroB B
		zeroC C
		zeroD D
	)
	s.a, s.b, s.c, s.d = zeroA, zeroB, zeroC, zeroD
}
