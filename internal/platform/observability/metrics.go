package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "github.com/NeerajSreeMailee/Genius-Technology-2-sub000/internal/platform/observability"

// AuthMetrics records OIDC and HMAC verification outcomes.
type AuthMetrics struct {
	attempts metric.Int64Counter
	latency  metric.Float64Histogram
}

// NewAuthMetrics registers the verification instruments on meter, or the global meter when nil.
func NewAuthMetrics(meter metric.Meter) (*AuthMetrics, error) {
	if meter == nil {
		meter = otel.Meter(meterName)
	}
	attempts, err := meter.Int64Counter("auth.verifications",
		metric.WithDescription("Service and webhook credential verifications"))
	if err != nil {
		return nil, err
	}
	latency, err := meter.Float64Histogram("auth.verification.latency",
		metric.WithUnit("ms"),
		metric.WithDescription("Credential verification latency"))
	if err != nil {
		return nil, err
	}
	return &AuthMetrics{attempts: attempts, latency: latency}, nil
}

// RecordVerification implements auth.MetricsRecorder.
func (m *AuthMetrics) RecordVerification(ctx context.Context, kind string, success bool, reason string, duration time.Duration) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("kind", kind),
		attribute.Bool("success", success),
		attribute.String("reason", reason),
	)
	m.attempts.Add(ctx, 1, attrs)
	m.latency.Record(ctx, float64(duration)/float64(time.Millisecond), attrs)
}
