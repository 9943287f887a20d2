package prometheus

import (
	"errors"
	"fmt"
	"time"

	"github.com/Swind/go-job-system/core"
	prom "github.com/prometheus/client_golang/prometheus"
)

// ExporterOptions controls collector configuration.
type ExporterOptions struct {
	DurationBuckets []float64

	// ConstLabels are attached to every collector, e.g. {"scheduler": "render"}.
	ConstLabels prom.Labels
}

// MetricsExporter adapts core.Metrics to Prometheus collectors.
type MetricsExporter struct {
	jobDurationSeconds *prom.HistogramVec
	jobSubmittedTotal  *prom.CounterVec
	jobPanicTotal      *prom.CounterVec
	jobRejectedTotal   *prom.CounterVec
	queueDepth         *prom.GaugeVec
}

var _ core.Metrics = (*MetricsExporter)(nil)

// NewMetricsExporter creates and registers Prometheus collectors for core.Metrics.
func NewMetricsExporter(namespace string, reg prom.Registerer, opts ExporterOptions) (*MetricsExporter, error) {
	if namespace == "" {
		namespace = "jobsystem"
	}
	if reg == nil {
		reg = prom.DefaultRegisterer
	}
	buckets := opts.DurationBuckets
	if len(buckets) == 0 {
		buckets = prom.DefBuckets
	}

	durationVec := prom.NewHistogramVec(prom.HistogramOpts{
		Namespace:   namespace,
		Name:        "job_duration_seconds",
		Help:        "Job execution duration in seconds, including argument teardown.",
		Buckets:     buckets,
		ConstLabels: opts.ConstLabels,
	}, []string{"job", "priority"})
	submittedVec := prom.NewCounterVec(prom.CounterOpts{
		Namespace:   namespace,
		Name:        "job_submitted_total",
		Help:        "Total number of jobs accepted by the dispatch queue.",
		ConstLabels: opts.ConstLabels,
	}, []string{"priority"})
	panicVec := prom.NewCounterVec(prom.CounterOpts{
		Namespace:   namespace,
		Name:        "job_panic_total",
		Help:        "Total number of job panics.",
		ConstLabels: opts.ConstLabels,
	}, []string{"job"})
	rejectedVec := prom.NewCounterVec(prom.CounterOpts{
		Namespace:   namespace,
		Name:        "job_rejected_total",
		Help:        "Total number of rejected or dropped jobs.",
		ConstLabels: opts.ConstLabels,
	}, []string{"reason"})
	queueDepthVec := prom.NewGaugeVec(prom.GaugeOpts{
		Namespace:   namespace,
		Name:        "queue_depth",
		Help:        "Current number of queued jobs per priority tier.",
		ConstLabels: opts.ConstLabels,
	}, []string{"priority"})

	var err error
	if durationVec, err = registerCollector(reg, durationVec); err != nil {
		return nil, err
	}
	if submittedVec, err = registerCollector(reg, submittedVec); err != nil {
		return nil, err
	}
	if panicVec, err = registerCollector(reg, panicVec); err != nil {
		return nil, err
	}
	if rejectedVec, err = registerCollector(reg, rejectedVec); err != nil {
		return nil, err
	}
	if queueDepthVec, err = registerCollector(reg, queueDepthVec); err != nil {
		return nil, err
	}

	return &MetricsExporter{
		jobDurationSeconds: durationVec,
		jobSubmittedTotal:  submittedVec,
		jobPanicTotal:      panicVec,
		jobRejectedTotal:   rejectedVec,
		queueDepth:         queueDepthVec,
	}, nil
}

// RecordJobSubmitted counts a job entering the queue.
func (m *MetricsExporter) RecordJobSubmitted(priority core.Priority) {
	if m == nil {
		return
	}
	m.jobSubmittedTotal.WithLabelValues(priorityLabel(priority)).Inc()
}

// RecordJobDuration records job execution duration.
func (m *MetricsExporter) RecordJobDuration(jobName string, priority core.Priority, duration time.Duration) {
	if m == nil {
		return
	}
	m.jobDurationSeconds.WithLabelValues(normalizeLabel(jobName, "unknown"), priorityLabel(priority)).Observe(duration.Seconds())
}

// RecordJobPanic records job panic events.
func (m *MetricsExporter) RecordJobPanic(jobName string, panicInfo any) {
	if m == nil {
		return
	}
	m.jobPanicTotal.WithLabelValues(normalizeLabel(jobName, "unknown")).Inc()
}

// RecordQueueDepth records the depth of one priority tier.
func (m *MetricsExporter) RecordQueueDepth(priority core.Priority, depth int) {
	if m == nil {
		return
	}
	m.queueDepth.WithLabelValues(priorityLabel(priority)).Set(float64(depth))
}

// RecordJobRejected records job rejection events.
func (m *MetricsExporter) RecordJobRejected(reason string) {
	if m == nil {
		return
	}
	m.jobRejectedTotal.WithLabelValues(normalizeLabel(reason, "unknown")).Inc()
}

func normalizeLabel(v string, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}

func priorityLabel(priority core.Priority) string {
	if !priority.Valid() {
		return "unknown"
	}
	return priority.String()
}

func registerCollector[T prom.Collector](reg prom.Registerer, collector T) (T, error) {
	err := reg.Register(collector)
	if err == nil {
		return collector, nil
	}

	var alreadyRegisteredErr prom.AlreadyRegisteredError
	if errors.As(err, &alreadyRegisteredErr) {
		existing, ok := alreadyRegisteredErr.ExistingCollector.(T)
		if !ok {
			return collector, fmt.Errorf("collector type mismatch for %T", collector)
		}
		return existing, nil
	}

	return collector, err
}
