package tracing_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"

	jobsystem "github.com/Swind/go-job-system"
	"github.com/Swind/go-job-system/core"
	"github.com/Swind/go-job-system/observability/tracing"
)

func setupTestHooks() (*tracetest.SpanRecorder, *tracing.Hooks) {
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	return sr, tracing.NewHooksWithProvider(tp)
}

func newTestInfo() core.JobInfo {
	return core.JobInfo{
		ID:          "job-1",
		Name:        "bake-lightmap",
		Priority:    core.PriorityHigh,
		Kind:        "method",
		WorkerID:    3,
		SubmittedAt: time.Now(),
	}
}

func attrMap(attrs []attribute.KeyValue) map[string]any {
	m := make(map[string]any, len(attrs))
	for _, a := range attrs {
		switch a.Value.Type() {
		case attribute.STRING:
			m[string(a.Key)] = a.Value.AsString()
		case attribute.INT64:
			m[string(a.Key)] = a.Value.AsInt64()
		}
	}
	return m
}

func TestHooks_CreatesSpanWithAttributes(t *testing.T) {
	sr, hooks := setupTestHooks()
	info := newTestInfo()

	ctx := hooks.OnJobStart(context.Background(), info)
	if !trace.SpanFromContext(ctx).SpanContext().IsValid() {
		t.Fatal("expected a valid span in the returned context")
	}
	hooks.OnJobEnd(ctx, info, 5*time.Millisecond, false)

	spans := sr.Ended()
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}
	if spans[0].Name() != tracing.SpanName {
		t.Errorf("span name = %q, want %q", spans[0].Name(), tracing.SpanName)
	}

	attrs := attrMap(spans[0].Attributes())
	expected := map[string]any{
		"jobsystem.job.id":          "job-1",
		"jobsystem.job.name":        "bake-lightmap",
		"jobsystem.job.priority":    "high",
		"jobsystem.job.kind":        "method",
		"jobsystem.worker.id":       int64(3),
		"jobsystem.job.duration_us": int64(5000),
	}
	for key, want := range expected {
		got, ok := attrs[key]
		if !ok {
			t.Errorf("missing attribute %q", key)
			continue
		}
		if got != want {
			t.Errorf("attribute %q = %v, want %v", key, got, want)
		}
	}
	if spans[0].Status().Code != codes.Ok {
		t.Errorf("status = %v, want Ok", spans[0].Status().Code)
	}
}

func TestHooks_Panic_SetsErrorStatus(t *testing.T) {
	sr, hooks := setupTestHooks()
	info := newTestInfo()

	ctx := hooks.OnJobStart(context.Background(), info)
	hooks.OnJobEnd(ctx, info, time.Millisecond, true)

	spans := sr.Ended()
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}
	if spans[0].Status().Code != codes.Error {
		t.Errorf("status = %v, want Error", spans[0].Status().Code)
	}

	found := false
	for _, ev := range spans[0].Events() {
		if ev.Name == "exception" {
			found = true
			break
		}
	}
	if !found {
		t.Error("expected 'exception' event to be recorded on span")
	}
}

type countingHooks struct {
	starts, ends int
	sawSpan      bool
}

func (c *countingHooks) OnJobStart(ctx context.Context, info core.JobInfo) context.Context {
	c.starts++
	c.sawSpan = trace.SpanFromContext(ctx).SpanContext().IsValid()
	return ctx
}

func (c *countingHooks) OnJobEnd(ctx context.Context, info core.JobInfo, d time.Duration, panicked bool) {
	c.ends++
}

func TestHooks_Chain(t *testing.T) {
	sr, hooks := setupTestHooks()
	inner := &countingHooks{}
	hooks.Chain = inner
	info := newTestInfo()

	ctx := hooks.OnJobStart(context.Background(), info)
	hooks.OnJobEnd(ctx, info, 0, false)

	if inner.starts != 1 || inner.ends != 1 {
		t.Fatalf("chained hooks = %d starts, %d ends; want 1, 1", inner.starts, inner.ends)
	}
	if !inner.sawSpan {
		t.Error("chained OnJobStart did not receive the job span")
	}
	if len(sr.Ended()) != 1 {
		t.Fatalf("expected 1 span, got %d", len(sr.Ended()))
	}
}

func TestHooks_DefaultNoopSafe(t *testing.T) {
	hooks := tracing.NewHooks()
	info := newTestInfo()

	ctx := hooks.OnJobStart(context.Background(), info)
	hooks.OnJobEnd(ctx, info, time.Millisecond, true)
}

func TestHooks_WithScheduler(t *testing.T) {
	sr, hooks := setupTestHooks()

	s, err := jobsystem.Init(2,
		jobsystem.WithLogger(core.NewNoOpLogger()),
		jobsystem.WithHooks(hooks),
	)
	if err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	defer s.Shutdown()

	sig := jobsystem.NewCompletionSignal()
	if err := s.SubmitClosure("ok", func() {}, jobsystem.PriorityRegular, sig); err != nil {
		t.Fatalf("SubmitClosure failed: %v", err)
	}
	if err := s.SubmitClosure("boom", func() { panic("boom") }, jobsystem.PriorityLow, sig); err != nil {
		t.Fatalf("SubmitClosure failed: %v", err)
	}
	sig.Wait()

	spans := sr.Ended()
	if len(spans) != 2 {
		t.Fatalf("expected 2 spans, got %d", len(spans))
	}
	byName := make(map[string]sdktrace.ReadOnlySpan, len(spans))
	for _, sp := range spans {
		byName[attrMap(sp.Attributes())["jobsystem.job.name"].(string)] = sp
	}
	if byName["ok"] == nil || byName["ok"].Status().Code != codes.Ok {
		t.Errorf("span for ok job missing or not Ok")
	}
	if byName["boom"] == nil || byName["boom"].Status().Code != codes.Error {
		t.Errorf("span for boom job missing or not Error")
	}
	if got := attrMap(byName["boom"].Attributes())["jobsystem.job.kind"]; got != "closure" {
		t.Errorf("boom kind = %v, want closure", got)
	}
}

type capturedLine struct {
	level string
	msg   string
}

type captureLogger struct {
	mu    sync.Mutex
	lines []capturedLine
}

func (l *captureLogger) add(level, msg string) {
	l.mu.Lock()
	l.lines = append(l.lines, capturedLine{level, msg})
	l.mu.Unlock()
}

func (l *captureLogger) Debug(msg string, fields ...core.Field) { l.add("debug", msg) }
func (l *captureLogger) Info(msg string, fields ...core.Field)  { l.add("info", msg) }
func (l *captureLogger) Warn(msg string, fields ...core.Field)  { l.add("warn", msg) }
func (l *captureLogger) Error(msg string, fields ...core.Field) { l.add("error", msg) }

func TestNewProvider_LogsEndedSpans(t *testing.T) {
	logger := &captureLogger{}
	sr := tracetest.NewSpanRecorder()
	tp := tracing.NewProvider("render-farm", logger, sr)
	defer tp.Shutdown(context.Background())

	hooks := tracing.NewHooksWithProvider(tp)
	info := newTestInfo()

	ctx := hooks.OnJobStart(context.Background(), info)
	hooks.OnJobEnd(ctx, info, time.Millisecond, false)
	ctx = hooks.OnJobStart(context.Background(), info)
	hooks.OnJobEnd(ctx, info, time.Millisecond, true)

	if len(sr.Ended()) != 2 {
		t.Fatalf("extra processor saw %d spans, want 2", len(sr.Ended()))
	}
	res := sr.Ended()[0].Resource()
	if v, ok := res.Set().Value("service.name"); !ok || v.AsString() != "render-farm" {
		t.Errorf("resource = %v, want service.name=render-farm", res)
	}

	logger.mu.Lock()
	defer logger.mu.Unlock()
	if len(logger.lines) != 2 {
		t.Fatalf("logged %d lines, want 2", len(logger.lines))
	}
	if logger.lines[0] != (capturedLine{"debug", "trace.span"}) {
		t.Errorf("first line = %+v, want debug trace.span", logger.lines[0])
	}
	if logger.lines[1] != (capturedLine{"warn", "trace.span"}) {
		t.Errorf("second line = %+v, want warn trace.span", logger.lines[1])
	}
}
