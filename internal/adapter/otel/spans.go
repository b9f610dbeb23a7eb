package otel

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "contactrelay"

// StartSubmitSpan starts a span covering one contact form submission.
func StartSubmitSpan(ctx context.Context, submissionID string) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "submit",
		trace.WithAttributes(attribute.String("submission.id", submissionID)),
	)
}

// StartTemplateSpan starts a span for loading a template from disk.
func StartTemplateSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "template.load",
		trace.WithAttributes(attribute.String("template.name", name)),
	)
}

// StartSMTPSpan starts a span for one SMTP send attempt.
func StartSMTPSpan(ctx context.Context, addr string) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "smtp.send",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attribute.String("server.address", addr)),
	)
}
