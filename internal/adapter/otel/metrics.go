package otel

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "contactrelay"

// Metrics holds the contact relay metric instruments.
type Metrics struct {
	SubmissionsReceived  metric.Int64Counter
	SubmissionsRejected  metric.Int64Counter
	SubmissionsDelivered metric.Int64Counter
	SubmissionsFailed    metric.Int64Counter
	DispatchDuration     metric.Float64Histogram
}

// NewMetrics creates all metric instruments on the global meter provider.
func NewMetrics() (*Metrics, error) {
	meter := otel.Meter(meterName)
	m := &Metrics{}
	var err error

	m.SubmissionsReceived, err = meter.Int64Counter("contactrelay.submissions.received",
		metric.WithDescription("Number of submissions received"))
	if err != nil {
		return nil, err
	}

	m.SubmissionsRejected, err = meter.Int64Counter("contactrelay.submissions.rejected",
		metric.WithDescription("Number of submissions that failed validation"))
	if err != nil {
		return nil, err
	}

	m.SubmissionsDelivered, err = meter.Int64Counter("contactrelay.submissions.delivered",
		metric.WithDescription("Number of submissions whose email was accepted by the relay"))
	if err != nil {
		return nil, err
	}

	m.SubmissionsFailed, err = meter.Int64Counter("contactrelay.submissions.failed",
		metric.WithDescription("Number of submissions that could not be delivered"))
	if err != nil {
		return nil, err
	}

	m.DispatchDuration, err = meter.Float64Histogram("contactrelay.dispatch.duration_seconds",
		metric.WithDescription("Email dispatch duration in seconds"),
		metric.WithUnit("s"))
	if err != nil {
		return nil, err
	}

	return m, nil
}
