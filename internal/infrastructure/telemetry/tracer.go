package telemetry

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// StartHTTPSpan starts a server span for an incoming HTTP request.
func StartHTTPSpan(ctx context.Context, tracer trace.Tracer, method, route string) (context.Context, trace.Span) {
	return tracer.Start(ctx, method+" "+route,
		trace.WithSpanKind(trace.SpanKindServer),
		trace.WithAttributes(
			attribute.String("http.method", method),
			attribute.String("http.route", route),
		),
	)
}

// StartServiceSpan starts an internal span for a service operation.
func StartServiceSpan(ctx context.Context, tracer trace.Tracer, service, operation string) (context.Context, trace.Span) {
	return tracer.Start(ctx, service+"."+operation,
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("service.name", service),
			attribute.String("service.operation", operation),
		),
	)
}

// WithSpanError records err on the span and marks it failed. Nil is a no-op.
func WithSpanError(span trace.Span, err error) {
	if err == nil {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
