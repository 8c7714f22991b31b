// Package observability wires OpenTelemetry metrics and tracing
// around each subprocess attempt a worker runs. Grounded on the
// teacher's middleware.Metrics/middleware.Tracing, collapsed into a
// single Observer since taskq's worker loop has one instrumentation
// point (the subprocess attempt) rather than a middleware chain
// around an arbitrary handler.
package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/taskq-dev/taskq/job"
)

// instrumentationName is the scope name reported for every metric and
// span taskq produces.
const instrumentationName = "github.com/taskq-dev/taskq"

// Observer records duration, execution counts, and a trace span for
// each subprocess attempt. Safe for concurrent use across workers; if
// no MeterProvider/TracerProvider is configured, the OTel API's noop
// implementations make it a zero-overhead pass-through.
type Observer struct {
	duration   metric.Float64Histogram
	executions metric.Int64Counter
	tracer     trace.Tracer
}

// New constructs an Observer using the globally configured OTel
// providers.
func New() *Observer {
	meter := otel.Meter(instrumentationName)

	duration, _ := meter.Float64Histogram(
		"taskq.job.duration",
		metric.WithDescription("Duration of a job subprocess attempt in seconds"),
		metric.WithUnit("s"),
	)
	executions, _ := meter.Int64Counter(
		"taskq.job.executions",
		metric.WithDescription("Total number of job subprocess attempts"),
		metric.WithUnit("{execution}"),
	)

	return &Observer{
		duration:   duration,
		executions: executions,
		tracer:     otel.Tracer(instrumentationName),
	}
}

// StartAttempt opens a span for one subprocess attempt of j and
// starts its duration timer. The caller must invoke the returned func
// exactly once when the attempt finishes, passing whether it
// succeeded.
func (o *Observer) StartAttempt(ctx context.Context, j *job.Job) func(success bool) {
	start := time.Now()
	_, span := o.tracer.Start(ctx, "taskq.job.execute",
		trace.WithAttributes(
			attribute.String("taskq.job.id", j.ID),
			attribute.Int("taskq.job.priority", j.Priority),
			attribute.Int("taskq.job.attempts", j.Attempts),
		),
		trace.WithSpanKind(trace.SpanKindInternal),
	)

	return func(success bool) {
		defer span.End()
		elapsed := time.Since(start).Seconds()

		status := "ok"
		if !success {
			status = "error"
		}
		attrs := metric.WithAttributes(
			attribute.String("job_id", j.ID),
			attribute.String("status", status),
		)
		o.duration.Record(ctx, elapsed, attrs)
		o.executions.Add(ctx, 1, attrs)

		if success {
			span.SetStatus(codes.Ok, "")
		} else {
			span.SetStatus(codes.Error, "job attempt failed")
		}
	}
}
