package tracing

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/Swind/go-job-system/core"
)

// NewProvider returns an SDK TracerProvider tagged with serviceName. Ended
// spans are written to logger at debug level; extra processors (exporters in
// a real deployment) are added after it.
func NewProvider(serviceName string, logger core.Logger, processors ...sdktrace.SpanProcessor) *sdktrace.TracerProvider {
	if serviceName == "" {
		serviceName = "jobsystem"
	}
	opts := []sdktrace.TracerProviderOption{
		sdktrace.WithResource(resource.NewSchemaless(attribute.String("service.name", serviceName))),
		sdktrace.WithSpanProcessor(NewLogSpanProcessor(logger)),
	}
	for _, p := range processors {
		opts = append(opts, sdktrace.WithSpanProcessor(p))
	}
	return sdktrace.NewTracerProvider(opts...)
}

// LogSpanProcessor logs every ended span. Failed spans are logged at warn
// level.
type LogSpanProcessor struct {
	logger core.Logger
}

var _ sdktrace.SpanProcessor = (*LogSpanProcessor)(nil)

func NewLogSpanProcessor(logger core.Logger) *LogSpanProcessor {
	if logger == nil {
		logger = core.NewNoOpLogger()
	}
	return &LogSpanProcessor{logger: logger}
}

func (p *LogSpanProcessor) OnStart(context.Context, sdktrace.ReadWriteSpan) {}

func (p *LogSpanProcessor) OnEnd(s sdktrace.ReadOnlySpan) {
	fields := []core.Field{
		core.F("span", s.Name()),
		core.F("trace_id", s.SpanContext().TraceID().String()),
		core.F("duration", s.EndTime().Sub(s.StartTime())),
	}
	for _, a := range s.Attributes() {
		switch a.Key {
		case "jobsystem.job.name", "jobsystem.job.id", "jobsystem.worker.id":
			fields = append(fields, core.F(string(a.Key), a.Value.Emit()))
		}
	}
	if s.Status().Code == codes.Error {
		p.logger.Warn("trace.span", append(fields, core.F("status", s.Status().Description))...)
		return
	}
	p.logger.Debug("trace.span", fields...)
}

func (p *LogSpanProcessor) Shutdown(context.Context) error   { return nil }
func (p *LogSpanProcessor) ForceFlush(context.Context) error { return nil }
