package prometheus

import (
	"context"
	"sync"
	"time"

	"github.com/Swind/go-job-system/core"
	prom "github.com/prometheus/client_golang/prometheus"
)

// SchedulerSnapshotProvider provides current scheduler stats snapshots.
// *jobsystem.Scheduler and *jobsystem.WorkerPool implement it.
type SchedulerSnapshotProvider interface {
	Stats() core.PoolStats
}

// SnapshotPoller periodically exports scheduler Stats() snapshots into Prometheus gauges.
type SnapshotPoller struct {
	interval time.Duration

	schedulersMu sync.RWMutex
	schedulers   map[string]SchedulerSnapshotProvider

	queued       *prom.GaugeVec
	active       *prom.GaugeVec
	workers      *prom.GaugeVec
	running      *prom.GaugeVec
	shuttingDown *prom.GaugeVec
	submitted    *prom.GaugeVec
	completed    *prom.GaugeVec
	panicked     *prom.GaugeVec
	rejected     *prom.GaugeVec

	stateMu sync.Mutex
	started bool
	cancel  context.CancelFunc
	done    chan struct{}
}

// NewSnapshotPoller creates a snapshot poller and registers its collectors.
func NewSnapshotPoller(namespace string, reg prom.Registerer, interval time.Duration) (*SnapshotPoller, error) {
	if namespace == "" {
		namespace = "jobsystem"
	}
	if reg == nil {
		reg = prom.DefaultRegisterer
	}
	if interval <= 0 {
		interval = time.Second
	}

	gauge := func(name, help string, labels ...string) *prom.GaugeVec {
		return prom.NewGaugeVec(prom.GaugeOpts{
			Namespace: namespace,
			Name:      name,
			Help:      help,
		}, append([]string{"scheduler"}, labels...))
	}

	p := &SnapshotPoller{
		interval:     interval,
		schedulers:   make(map[string]SchedulerSnapshotProvider),
		queued:       gauge("scheduler_queued", "Queued jobs per scheduler and priority tier.", "priority"),
		active:       gauge("scheduler_active", "Jobs currently executing per scheduler."),
		workers:      gauge("scheduler_workers", "Worker count per scheduler."),
		running:      gauge("scheduler_running", "Scheduler running state (1=running, 0=stopped)."),
		shuttingDown: gauge("scheduler_shutting_down", "Scheduler shutdown state (1=shutting down, 0=accepting)."),
		submitted:    gauge("scheduler_submitted_jobs", "Scheduler submitted job count snapshot."),
		completed:    gauge("scheduler_completed_jobs", "Scheduler completed job count snapshot."),
		panicked:     gauge("scheduler_panicked_jobs", "Scheduler panicked job count snapshot."),
		rejected:     gauge("scheduler_rejected_jobs", "Scheduler rejected job count snapshot."),
	}

	var err error
	for _, g := range []**prom.GaugeVec{
		&p.queued, &p.active, &p.workers, &p.running, &p.shuttingDown,
		&p.submitted, &p.completed, &p.panicked, &p.rejected,
	} {
		if *g, err = registerCollector(reg, *g); err != nil {
			return nil, err
		}
	}
	return p, nil
}

// AddScheduler adds or replaces a scheduler snapshot provider by name.
func (p *SnapshotPoller) AddScheduler(name string, provider SchedulerSnapshotProvider) {
	if p == nil || provider == nil {
		return
	}
	name = normalizeLabel(name, "scheduler")
	p.schedulersMu.Lock()
	p.schedulers[name] = provider
	p.schedulersMu.Unlock()
}

// Start begins periodic polling; repeated calls are no-ops.
func (p *SnapshotPoller) Start(ctx context.Context) {
	if p == nil {
		return
	}

	p.stateMu.Lock()
	if p.started {
		p.stateMu.Unlock()
		return
	}
	pollCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.done = make(chan struct{})
	p.started = true
	p.stateMu.Unlock()

	go p.loop(pollCtx)
}

// Stop stops periodic polling; repeated calls are safe.
func (p *SnapshotPoller) Stop() {
	if p == nil {
		return
	}

	p.stateMu.Lock()
	if !p.started {
		p.stateMu.Unlock()
		return
	}
	cancel := p.cancel
	done := p.done
	p.stateMu.Unlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}

	p.stateMu.Lock()
	p.started = false
	p.cancel = nil
	p.done = nil
	p.stateMu.Unlock()
}

func (p *SnapshotPoller) loop(ctx context.Context) {
	defer close(p.done)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.collectOnce()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.collectOnce()
		}
	}
}

func (p *SnapshotPoller) collectOnce() {
	p.schedulersMu.RLock()
	defer p.schedulersMu.RUnlock()

	for name, provider := range p.schedulers {
		stats := provider.Stats()
		d := stats.Dispatcher
		for prio, n := range d.QueuedByTier {
			p.queued.WithLabelValues(name, core.Priority(prio).String()).Set(float64(n))
		}
		p.active.WithLabelValues(name).Set(float64(d.Active))
		p.workers.WithLabelValues(name).Set(float64(stats.Workers))
		p.running.WithLabelValues(name).Set(boolGauge(stats.Running))
		p.shuttingDown.WithLabelValues(name).Set(boolGauge(d.ShuttingDown))
		p.submitted.WithLabelValues(name).Set(float64(d.Submitted))
		p.completed.WithLabelValues(name).Set(float64(d.Completed))
		p.panicked.WithLabelValues(name).Set(float64(d.Panicked))
		p.rejected.WithLabelValues(name).Set(float64(d.Rejected))
	}
}

func boolGauge(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
