package otel

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "arbiter"

// StartSubmitSpan starts a span for a decision submission.
func StartSubmitSpan(ctx context.Context, decisionID, sourceSystem, decisionType string) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "submit",
		trace.WithAttributes(
			attribute.String("decision.id", decisionID),
			attribute.String("decision.source_system", sourceSystem),
			attribute.String("decision.type", decisionType),
		),
	)
}

// StartReviewSpan starts a span for a human review action.
func StartReviewSpan(ctx context.Context, decisionID, reviewerID, action string) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "review",
		trace.WithAttributes(
			attribute.String("decision.id", decisionID),
			attribute.String("reviewer.id", reviewerID),
			attribute.String("review.action", action),
		),
	)
}

// StartDispatchSpan starts a span for notification dispatch of a queued decision.
func StartDispatchSpan(ctx context.Context, decisionID, provider string) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "dispatch",
		trace.WithAttributes(
			attribute.String("decision.id", decisionID),
			attribute.String("notify.provider", provider),
		),
	)
}
