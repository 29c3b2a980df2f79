package middleware

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/xraph/coalesce"
)

// tracerName is the instrumentation scope name for coalesce tracing.
const tracerName = "github.com/xraph/coalesce"

// Tracing returns middleware that wraps task execution in an OpenTelemetry
// span. If no TracerProvider is configured globally, the default noop
// tracer is used and this middleware becomes a pass-through with zero
// overhead.
//
// The span is named "coalesce.task.execute" and carries the task id as
// an attribute. On error, the span status is set to codes.Error with the
// error message.
func Tracing() Middleware {
	tracer := otel.Tracer(tracerName)
	return TracingWithTracer(tracer)
}

// TracingWithTracer returns tracing middleware using the provided tracer.
// This variant allows injecting a specific TracerProvider for testing or
// when multiple providers are in use.
func TracingWithTracer(tracer trace.Tracer) Middleware {
	return func(ctx context.Context, task coalesce.Executable, next Handler) error {
		ctx, span := tracer.Start(ctx, "coalesce.task.execute",
			trace.WithAttributes(
				attribute.Int64("coalesce.task.id", int64(task.ID())),
			),
			trace.WithSpanKind(trace.SpanKindInternal),
		)
		defer span.End()

		err := next(ctx)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		} else {
			span.SetStatus(codes.Ok, "")
		}

		return err
	}
}
