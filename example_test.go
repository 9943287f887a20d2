package jobsystem_test

import (
	"fmt"
	"sync/atomic"

	jobsystem "github.com/Swind/go-job-system"
	"github.com/Swind/go-job-system/core"
)

type mesh struct {
	vertices [4]int
}

func (m *mesh) Scale(i, factor int) { m.vertices[i] = (i + 1) * factor }

var scaleJob = core.DeclareMethod2("Scale", (*mesh).Scale)

// ExampleScheduler_Submit declares a method job once and submits a batch
// that shares one CompletionSignal.
func ExampleScheduler_Submit() {
	s, err := jobsystem.Init(2, jobsystem.WithLogger(core.NewNoOpLogger()))
	if err != nil {
		panic(err)
	}
	defer s.Shutdown()

	m := &mesh{}
	sig := jobsystem.NewCompletionSignal()
	for i := range m.vertices {
		job := scaleJob.New(i, 10).BindReceiver(m).RegisterSignal(sig)
		if err := s.Submit(job); err != nil {
			panic(err)
		}
	}
	sig.Wait()

	fmt.Println(m.vertices)
	// Output:
	// [10 20 30 40]
}

type tempFile struct {
	name    string
	removed *atomic.Bool
}

func (f tempFile) Release() { f.removed.Store(true) }

// ExampleScheduler_SubmitClosure hands captured state to a closure job; it is
// released before the signal completes.
func ExampleScheduler_SubmitClosure() {
	jobsystem.InitGlobalScheduler(1, jobsystem.WithLogger(core.NewNoOpLogger()))
	defer jobsystem.ShutdownGlobalScheduler()

	var removed atomic.Bool
	f := tempFile{name: "scratch.bin", removed: &removed}

	sig := jobsystem.NewCompletionSignal()
	jobsystem.SubmitClosure("write-scratch", func() {
		fmt.Println("writing", f.name)
	}, jobsystem.PriorityRegular, sig, f)
	sig.Wait()

	fmt.Println("removed:", removed.Load())
	// Output:
	// writing scratch.bin
	// removed: true
}
