// Package tracing wraps job execution in OpenTelemetry spans.
package tracing

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/Swind/go-job-system/core"
)

// tracerName is the instrumentation scope name for job tracing.
const tracerName = "github.com/Swind/go-job-system"

// SpanName is the name of every job execution span.
const SpanName = "jobsystem.job.execute"

// Hooks implements core.JobHooks by starting a span in OnJobStart and
// ending it in OnJobEnd. Chain, if set, is invoked after the span is
// started and before it ends.
type Hooks struct {
	tracer trace.Tracer
	Chain  core.JobHooks
}

var _ core.JobHooks = (*Hooks)(nil)

// NewHooks returns hooks using the global TracerProvider. With no provider
// configured the noop tracer is used.
func NewHooks() *Hooks {
	return NewHooksWithTracer(otel.Tracer(tracerName))
}

// NewHooksWithProvider returns hooks that trace through tp.
func NewHooksWithProvider(tp trace.TracerProvider) *Hooks {
	if tp == nil {
		return NewHooks()
	}
	return NewHooksWithTracer(tp.Tracer(tracerName))
}

// NewHooksWithTracer returns hooks using the provided tracer.
func NewHooksWithTracer(tracer trace.Tracer) *Hooks {
	return &Hooks{tracer: tracer}
}

// OnJobStart starts the job span and returns a context carrying it.
func (h *Hooks) OnJobStart(ctx context.Context, info core.JobInfo) context.Context {
	startedAt := time.Now()
	ctx, _ = h.tracer.Start(ctx, SpanName,
		trace.WithAttributes(
			attribute.String("jobsystem.job.id", info.ID),
			attribute.String("jobsystem.job.name", info.Name),
			attribute.String("jobsystem.job.priority", info.Priority.String()),
			attribute.String("jobsystem.job.kind", info.Kind),
			attribute.Int("jobsystem.worker.id", info.WorkerID),
			attribute.Int64("jobsystem.queue_delay_ms", info.QueueDelay(startedAt).Milliseconds()),
		),
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithTimestamp(startedAt),
	)
	if h.Chain != nil {
		ctx = h.Chain.OnJobStart(ctx, info)
	}
	return ctx
}

// OnJobEnd records the outcome on the span started by OnJobStart and ends it.
func (h *Hooks) OnJobEnd(ctx context.Context, info core.JobInfo, duration time.Duration, panicked bool) {
	if h.Chain != nil {
		h.Chain.OnJobEnd(ctx, info, duration, panicked)
	}

	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		span.End()
		return
	}
	span.SetAttributes(attribute.Int64("jobsystem.job.duration_us", duration.Microseconds()))
	if panicked {
		err := fmt.Errorf("job %q panicked", info.Name)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}
