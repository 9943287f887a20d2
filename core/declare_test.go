package core

import (
	"maps"
	"slices"
	"testing"
)

// samples implements Cloner so a job gets its own copy of the backing array.
type samples []int

func (s samples) Clone() samples { return slices.Clone(s) }

type accumulator struct {
	calls []string
	sum   int
}

func (a *accumulator) Reset() { a.calls = append(a.calls, "reset"); a.sum = 0 }
func (a *accumulator) Add1(x int) { a.sum += x }
func (a *accumulator) Add2(x, y int) { a.sum += x + y }
func (a *accumulator) Add3(x, y, z int) { a.sum += x + y + z }
func (a *accumulator) Label(s string, x, y, z int) { a.calls = append(a.calls, s); a.sum += x + y + z }

// TestDeclareFunc_Arities runs one job of every free-function arity
func TestDeclareFunc_Arities(t *testing.T) {
	var got []int
	f0 := DeclareFunc0("f0", func() { got = append(got, 0) })
	f1 := DeclareFunc1("f1", func(a int) { got = append(got, a) })
	f2 := DeclareFunc2("f2", func(a, b int) { got = append(got, a+b) })
	f3 := DeclareFunc3("f3", func(a, b, c int) { got = append(got, a+b+c) })
	f4 := DeclareFunc4("f4", func(a, b, c, d int) { got = append(got, a+b+c+d) })

	for _, h := range []*JobHandle{f0.New(), f1.New(1), f2.New(1, 1), f3.New(1, 1, 1), f4.New(1, 1, 1, 1)} {
		h.RunNow()
	}

	if !slices.Equal(got, []int{0, 1, 2, 3, 4}) {
		t.Errorf("got %v, want [0 1 2 3 4]", got)
	}
	if f3.Name() != "f3" {
		t.Errorf("Name() = %q", f3.Name())
	}
}

// TestDeclareMethod_Arities runs one job of every method arity on one receiver
func TestDeclareMethod_Arities(t *testing.T) {
	acc := &accumulator{}
	m0 := DeclareMethod0("Reset", (*accumulator).Reset)
	m1 := DeclareMethod1("Add1", (*accumulator).Add1)
	m2 := DeclareMethod2("Add2", (*accumulator).Add2)
	m3 := DeclareMethod3("Add3", (*accumulator).Add3)
	m4 := DeclareMethod4("Label", (*accumulator).Label)

	m0.New().BindReceiver(acc).RunNow()
	m1.New(1).BindReceiver(acc).RunNow()
	m2.New(1, 2).BindReceiver(acc).RunNow()
	m3.New(1, 2, 3).BindReceiver(acc).RunNow()
	m4.New("done", 1, 1, 1).BindReceiver(acc).RunNow()

	if acc.sum != 1+3+6+3 {
		t.Errorf("sum = %d, want 13", acc.sum)
	}
	if !slices.Equal(acc.calls, []string{"reset", "done"}) {
		t.Errorf("calls = %v", acc.calls)
	}
	if m4.Name() != "Label" {
		t.Errorf("Name() = %q", m4.Name())
	}
}

// TestDeclareClosure_Arities runs closure jobs of every arity and checks captures are released
func TestDeclareClosure_Arities(t *testing.T) {
	res := &releaseRecorder{}
	total := 0

	DeclareClosure0("c0").New(func() { total++ }, res).RunNow()
	DeclareClosure1[int]("c1").New(func(a int) { total += a }, 1).RunNow()
	DeclareClosure2[int, int]("c2").New(func(a, b int) { total += a + b }, 1, 1).RunNow()
	DeclareClosure3[int, int, int]("c3").New(func(a, b, c int) { total += a + b + c }, 1, 1, 1).RunNow()
	DeclareClosure4[int, int, int, int]("c4").New(func(a, b, c, d int) { total += a + b + c + d }, 1, 1, 1, 1, res).RunNow()

	if total != 11 {
		t.Errorf("total = %d, want 11", total)
	}
	if res.count.Load() != 2 {
		t.Errorf("capture released %d times, want 2", res.count.Load())
	}
}

// TestSnapshot_ValueDurability verifies arguments outlive the caller's variables
// Main test items:
// 1. A string bound at creation is seen unchanged by the job
// 2. A Cloner argument is deep-copied, so caller mutation does not leak in
// 3. Plain slices and maps are copied into fresh storage
// 4. Pointer arguments are shared with the caller
func TestSnapshot_ValueDurability(t *testing.T) {
	var gotStr string
	var gotSamples samples
	var gotBytes []byte
	var gotMap map[string]int
	var gotPtr *int

	str := DeclareFunc1("str", func(s string) { gotStr = s })
	cloned := DeclareFunc1("cloned", func(s samples) { gotSamples = s })
	bytesJob := DeclareFunc1("bytes", func(b []byte) { gotBytes = slices.Clone(b) })
	mapJob := DeclareFunc1("map", func(m map[string]int) { gotMap = maps.Clone(m) })
	ptrJob := DeclareFunc1("ptr", func(p *int) { gotPtr = p })

	var strJob *JobHandle
	func() {
		local := "abc"
		strJob = str.New(local)
		local = "xyz"
		_ = local
	}()

	data := samples{1, 2, 3}
	clonedJob := cloned.New(data)
	data[0] = 99

	buf := []byte("abc")
	bufJob := bytesJob.New(buf)
	copy(buf, "xyz")

	m := map[string]int{"k": 1}
	mJob := mapJob.New(m)
	m["k"] = 2
	m["extra"] = 3

	n := 7
	pJob := ptrJob.New(&n)

	strJob.RunNow()
	clonedJob.RunNow()
	bufJob.RunNow()
	mJob.RunNow()
	pJob.RunNow()

	if gotStr != "abc" {
		t.Errorf("string arg = %q, want abc", gotStr)
	}
	if !slices.Equal(gotSamples, samples{1, 2, 3}) {
		t.Errorf("cloned arg = %v, want [1 2 3]", gotSamples)
	}
	if string(gotBytes) != "abc" {
		t.Errorf("byte slice arg = %q, want abc", gotBytes)
	}
	if len(gotMap) != 1 || gotMap["k"] != 1 {
		t.Errorf("map arg = %v, want map[k:1]", gotMap)
	}
	if gotPtr != &n {
		t.Error("pointer arg was not passed through")
	}
}

// TestSnapshot_NilContainers verifies nil slices and maps stay nil
func TestSnapshot_NilContainers(t *testing.T) {
	sliceNil, mapNil := false, false
	DeclareFunc2("nil", func(s []int, m map[int]int) {
		sliceNil, mapNil = s == nil, m == nil
	}).New(nil, nil).RunNow()

	if !sliceNil || !mapNil {
		t.Errorf("nil slice kept = %v, nil map kept = %v", sliceNil, mapNil)
	}
}

// handleValue is a by-value Releaser; the job owns its copy.
type handleValue struct {
	rec *releaseRecorder
}

func (h handleValue) Release() { h.rec.Release() }

// TestSnapshot_ReleaseArguments verifies only owned values are released
// Main test items:
// 1. Non-pointer Releaser arguments are released once, after the entry point
// 2. Pointer arguments are borrowed and never released
// 3. A pointer handed over as a capture is released once
func TestSnapshot_ReleaseArguments(t *testing.T) {
	owned := &releaseRecorder{}
	job := DeclareFunc1("owned", func(h handleValue) {
		if h.rec.released.Load() {
			t.Error("argument released before the entry point ran")
		}
	})
	job.New(handleValue{rec: owned}).RunNow()
	if owned.count.Load() != 1 {
		t.Errorf("owned value released %d times, want 1", owned.count.Load())
	}

	conn := &releaseRecorder{}
	use := DeclareFunc1("borrow", func(*releaseRecorder) {})
	use.New(conn).RunNow()
	use.New(conn).RunNow()
	if conn.count.Load() != 0 {
		t.Errorf("borrowed pointer released %d times, want 0", conn.count.Load())
	}

	handed := &releaseRecorder{}
	DeclareClosure1[*releaseRecorder]("handover").New(func(*releaseRecorder) {}, handed, handed).RunNow()
	if handed.count.Load() != 1 {
		t.Errorf("captured pointer released %d times, want 1", handed.count.Load())
	}
}

// TestDeclare_NilEntryPanics verifies nil callables are refused at declaration
func TestDeclare_NilEntryPanics(t *testing.T) {
	expectPanic(t, "nil entry point", func() { DeclareFunc0("nil", nil) })
	expectPanic(t, "nil entry point", func() { DeclareMethod1[accumulator, int]("nil", nil) })
	expectPanic(t, "nil entry point", func() { NewClosureJob("nil", nil) })
	expectPanic(t, "nil entry point", func() { DeclareClosure1[int]("nil").New(nil, 1) })
}

// TestPriority_Parse covers tier names and text round-trips
func TestPriority_Parse(t *testing.T) {
	cases := map[string]Priority{
		"":        PriorityStream,
		"stream":  PriorityStream,
		"LOW":     PriorityLow,
		"regular": PriorityRegular,
		"normal":  PriorityRegular,
		" high ":  PriorityHigh,
	}
	for in, want := range cases {
		got, err := ParsePriority(in)
		if err != nil || got != want {
			t.Errorf("ParsePriority(%q) = %v, %v; want %v", in, got, err, want)
		}
	}
	if _, err := ParsePriority("urgent"); err == nil {
		t.Error("expected error for unknown priority")
	}

	var p Priority
	if err := p.UnmarshalText([]byte("high")); err != nil || p != PriorityHigh {
		t.Errorf("UnmarshalText = %v, %v", p, err)
	}
	if _, err := Priority(9).MarshalText(); err == nil {
		t.Error("expected MarshalText error for invalid priority")
	}
}
