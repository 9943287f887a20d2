// Package jobsystem provides an in-process priority job scheduler for Go.
//
// Work is described by job handles that own a snapshot of their arguments.
// A fixed pool of worker goroutines pulls handles from a four-tier priority
// queue and runs them; completion is observed through a CompletionSignal
// shared by any number of jobs.
//
// # Quick Start
//
// Initialize a scheduler at application startup:
//
//	s, err := jobsystem.Init(4) // 4 workers
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer s.Shutdown()
//
// Declare a job once and create handles from it:
//
//	var resize = core.DeclareMethod2("Resize", (*Image).Resize)
//
//	sig := jobsystem.NewCompletionSignal()
//	for _, img := range images {
//		s.Submit(resize.New(w, h).BindReceiver(img).RegisterSignal(sig))
//	}
//	sig.Wait()
//
// # Key Concepts
//
// JobHandle: A single schedulable unit. Arguments are copied into the handle
// at creation: slices and maps get their own copy, values implementing
// core.Cloner are deep-copied, pointers are borrowed. Owned values
// implementing core.Releaser are released after the job runs, before its
// signal completes. A handle is configured (priority, receiver, signal)
// before submission and is frozen afterwards.
//
// Priority: High, Regular, Low and Stream (the default). A worker always
// takes the oldest job of the highest non-empty tier.
//
// CompletionSignal: A counter registered once per job at submission and
// completed once per job after it ran or was dropped. Wait blocks until the
// counter returns to zero.
//
// # Shutdown
//
// Shutdown stops the workers and drops every job still queued. Dropped jobs
// never run, but their arguments are released and their signals completed,
// so no waiter is left blocked. ShutdownGraceful drains the queue first.
// Cancelling the context passed to Start has the same effect as Shutdown.
//
// # Global Scheduler
//
//	jobsystem.InitGlobalScheduler(runtime.NumCPU())
//	defer jobsystem.ShutdownGlobalScheduler()
//
//	sig := jobsystem.NewCompletionSignal()
//	jobsystem.SubmitClosure("flush", flush, jobsystem.PriorityLow, sig)
//	sig.Wait()
//
// For more details, see https://github.com/Swind/go-job-system
package jobsystem
