package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/urfave/cli/v2"

	jobsystem "github.com/Swind/go-job-system"
	"github.com/Swind/go-job-system/config"
	"github.com/Swind/go-job-system/core"
	promexp "github.com/Swind/go-job-system/observability/prometheus"
	"github.com/Swind/go-job-system/observability/tracing"
)

func RunCommand() *cli.Command {
	return &cli.Command{
		Name:  "run",
		Usage: "Start a scheduler and push a batch of jobs through it",

		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "jobs",
				Aliases: []string{"n"},
				Value:   10000,
				Usage:   "Number of jobs in the batch",
			},
			&cli.IntFlag{
				Name:  "work",
				Value: 1000,
				Usage: "Loop iterations per job",
			},
			&cli.StringFlag{
				Name:    "priority",
				Aliases: []string{"p"},
				Usage:   "Priority tier for the batch (high|regular|low|stream); defaults to config",
			},
			&cli.IntFlag{
				Name:    "workers",
				Aliases: []string{"w"},
				Usage:   "Override the configured worker count",
			},
			&cli.BoolFlag{
				Name:  "metrics",
				Usage: "Serve /metrics while running (overrides config)",
			},
			&cli.BoolFlag{
				Name:  "hold",
				Usage: "Keep running after the batch until interrupted",
			},
		},

		Action: runAction,
	}
}

// sumRange adds every integer in [from, to) into out.
var sumRange = core.DeclareFunc3("sum-range", func(from, to int, out *atomic.Int64) {
	var s int64
	for i := from; i < to; i++ {
		s += int64(i)
	}
	out.Add(s)
})

func runAction(c *cli.Context) error {
	// 1. Get flags
	cfgPath := c.String("config")
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return cli.Exit(fmt.Sprintf("Failed: %v", err), 1)
	}
	if c.IsSet("workers") {
		cfg.Workers = c.Int("workers")
	}
	if c.IsSet("metrics") {
		cfg.Metrics.Enabled = c.Bool("metrics")
	}
	if c.IsSet("priority") {
		cfg.DefaultPriority = c.String("priority")
	}

	// 2. Validate (format only)
	if err := cfg.Validate(); err != nil {
		return cli.Exit(fmt.Sprintf("Failed: %v", err), 1)
	}
	jobs := c.Int("jobs")
	if jobs < 1 {
		return cli.Exit("jobs must be at least 1", 1)
	}
	work := c.Int("work")
	if work < 0 {
		return cli.Exit("work must not be negative", 1)
	}

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 3. Wire the scheduler
	logger := core.NewZerologLogger(os.Stderr, cfg.Log.Level, cfg.Log.Format)
	opts := []jobsystem.Option{jobsystem.WithID("jobsys"), jobsystem.WithLogger(logger)}

	var reg *prom.Registry
	if cfg.Metrics.Enabled {
		reg = prom.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		exporter, err := promexp.NewMetricsExporter(cfg.Metrics.Namespace, reg, promexp.ExporterOptions{})
		if err != nil {
			return cli.Exit(fmt.Sprintf("Failed: %v", err), 1)
		}
		opts = append(opts, jobsystem.WithMetrics(exporter))
	}
	if cfg.Tracing.Enabled {
		tp := tracing.NewProvider(cfg.Tracing.ServiceName, logger)
		defer tp.Shutdown(context.Background())
		opts = append(opts, jobsystem.WithHooks(tracing.NewHooksWithProvider(tp)))
	}

	s, err := jobsystem.New(cfg, opts...)
	if err != nil {
		return cli.Exit(fmt.Sprintf("Failed: %v", err), 1)
	}
	s.Start(ctx)
	defer func() {
		if err := s.ShutdownGraceful(0); err != nil {
			logger.Warn("scheduler.shutdown_timeout", core.F("err", err))
		}
	}()

	if reg != nil {
		poller, err := promexp.NewSnapshotPoller(cfg.Metrics.Namespace, reg, cfg.PollIntervalDuration())
		if err != nil {
			return cli.Exit(fmt.Sprintf("Failed: %v", err), 1)
		}
		poller.AddScheduler("jobsys", s)
		poller.Start(ctx)
		defer poller.Stop()

		srv := serveMetrics(cfg.Metrics.Listen, reg, logger)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	if cfgPath != "" {
		go func() {
			err := config.Watch(ctx, cfgPath, logger, func(next config.Config) {
				logger.SetLevel(next.Log.Level)
				if next.Workers != cfg.Workers {
					logger.Warn("config.workers_ignored", core.F("configured", cfg.Workers), core.F("requested", next.Workers))
				}
			})
			if err != nil {
				logger.Warn("config.watch_failed", core.F("err", err))
			}
		}()
	}

	// 4. Run the batch
	var total atomic.Int64
	sig := jobsystem.NewCompletionSignal()
	prio := s.DefaultPriority()
	started := time.Now()
	for i := 0; i < jobs; i++ {
		h := sumRange.New(0, work, &total).SetPriority(prio).RegisterSignal(sig)
		if err := s.Submit(h); err != nil {
			h.Discard()
			return cli.Exit(fmt.Sprintf("Failed: %v", err), 1)
		}
	}
	if err := sig.WaitContext(ctx); err != nil {
		return cli.Exit(fmt.Sprintf("Interrupted: %v", err), 130)
	}
	elapsed := time.Since(started)

	// 5. Format output
	stats := s.Stats()
	fmt.Fprintf(c.App.Writer, "✓ %d jobs on %d workers at %s priority in %s (%.0f jobs/s)\n",
		jobs, stats.Workers, prio, elapsed.Round(time.Microsecond), float64(jobs)/elapsed.Seconds())
	fmt.Fprintf(c.App.Writer, "  sum=%d completed=%d panicked=%d\n",
		total.Load(), stats.Dispatcher.Completed, stats.Dispatcher.Panicked)

	if c.Bool("hold") {
		logger.Info("jobsys.holding", core.F("hint", "interrupt to exit"))
		<-ctx.Done()
	}
	return nil
}

func serveMetrics(addr string, reg *prom.Registry, logger core.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		logger.Info("metrics.listening", core.F("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics.serve_failed", core.F("err", err))
		}
	}()
	return srv
}
