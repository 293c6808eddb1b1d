package otel

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "arbiter"

// Metrics holds all arbiter metric instruments.
type Metrics struct {
	DecisionsSubmitted    metric.Int64Counter
	DecisionsAutoApproved metric.Int64Counter
	ReviewsProcessed      metric.Int64Counter
	ReviewConflicts       metric.Int64Counter
	ResolutionTime        metric.Float64Histogram
}

// NewMetrics creates all metric instruments.
func NewMetrics() (*Metrics, error) {
	meter := otel.Meter(meterName)
	m := &Metrics{}
	var err error

	m.DecisionsSubmitted, err = meter.Int64Counter("arbiter.decisions.submitted",
		metric.WithDescription("Number of decisions submitted for oversight"))
	if err != nil {
		return nil, err
	}

	m.DecisionsAutoApproved, err = meter.Int64Counter("arbiter.decisions.auto_approved",
		metric.WithDescription("Number of decisions approved without human review"))
	if err != nil {
		return nil, err
	}

	m.ReviewsProcessed, err = meter.Int64Counter("arbiter.reviews.processed",
		metric.WithDescription("Number of human review actions applied"))
	if err != nil {
		return nil, err
	}

	m.ReviewConflicts, err = meter.Int64Counter("arbiter.reviews.conflicts",
		metric.WithDescription("Number of review writes rejected by version conflict"))
	if err != nil {
		return nil, err
	}

	// Human review runs minutes to days; the default latency buckets top out
	// far below that.
	m.ResolutionTime, err = meter.Float64Histogram("arbiter.decision.resolution_seconds",
		metric.WithDescription("Time from submission to terminal status in seconds"),
		metric.WithExplicitBucketBoundaries(1, 10, 60, 600, 3600, 14400, 86400, 259200))
	if err != nil {
		return nil, err
	}

	return m, nil
}
