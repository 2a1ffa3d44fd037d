package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "github.com/WailSalutem-Health-Care/lab-portal"

// Metrics holds all custom metrics for the service
type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal metric.Int64Counter
	HTTPDurationMs    metric.Float64Histogram

	// Lab backend metrics
	BackendRequestsTotal metric.Int64Counter
	BackendDurationMs    metric.Float64Histogram

	// Business metrics
	SessionTotal       metric.Int64Counter
	ResultsViewedTotal metric.Int64Counter

	// Auth metrics
	AuthFailuresTotal metric.Int64Counter
}

// InitMetrics initializes all custom metrics on the global meter provider
func InitMetrics() (*Metrics, error) {
	return NewMetrics(otel.Meter(meterName))
}

// NewMetrics creates the instruments on meter.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	httpRequestsTotal, err := meter.Int64Counter(
		"http_server_requests_total",
		metric.WithDescription("Total number of HTTP requests"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, err
	}

	httpDurationMs, err := meter.Float64Histogram(
		"http_server_duration_milliseconds",
		metric.WithDescription("HTTP request duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	backendRequestsTotal, err := meter.Int64Counter(
		"lab_backend_requests_total",
		metric.WithDescription("Total number of requests sent to the lab backend"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, err
	}

	backendDurationMs, err := meter.Float64Histogram(
		"lab_backend_duration_milliseconds",
		metric.WithDescription("Lab backend request duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	sessionTotal, err := meter.Int64Counter(
		"portal_session_total",
		metric.WithDescription("Total number of session operations"),
		metric.WithUnit("{operation}"),
	)
	if err != nil {
		return nil, err
	}

	resultsViewedTotal, err := meter.Int64Counter(
		"portal_results_viewed_total",
		metric.WithDescription("Total number of order results opened"),
		metric.WithUnit("{view}"),
	)
	if err != nil {
		return nil, err
	}

	authFailuresTotal, err := meter.Int64Counter(
		"auth_failures_total",
		metric.WithDescription("Total number of authentication failures"),
		metric.WithUnit("{failure}"),
	)
	if err != nil {
		return nil, err
	}

	return &Metrics{
		HTTPRequestsTotal:    httpRequestsTotal,
		HTTPDurationMs:       httpDurationMs,
		BackendRequestsTotal: backendRequestsTotal,
		BackendDurationMs:    backendDurationMs,
		SessionTotal:         sessionTotal,
		ResultsViewedTotal:   resultsViewedTotal,
		AuthFailuresTotal:    authFailuresTotal,
	}, nil
}

// RecordHTTPRequest records an HTTP request metric
func (m *Metrics) RecordHTTPRequest(ctx context.Context, method, route string, statusCode int, durationMs float64) {
	attrs := []attribute.KeyValue{
		attribute.String("http_method", method),
		attribute.String("http_route", route),
		attribute.Int("http_status_code", statusCode),
	}

	m.HTTPRequestsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.HTTPDurationMs.Record(ctx, durationMs, metric.WithAttributes(attrs...))
}

// RecordBackendRequest records one call to the lab backend. A statusCode of
// 0 means the request never got a response.
func (m *Metrics) RecordBackendRequest(ctx context.Context, operation string, statusCode int, durationMs float64) {
	attrs := []attribute.KeyValue{
		attribute.String("operation", operation),
		attribute.Int("http_status_code", statusCode),
	}

	m.BackendRequestsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.BackendDurationMs.Record(ctx, durationMs, metric.WithAttributes(attrs...))
}

// RecordSessionOperation records a login or logout
func (m *Metrics) RecordSessionOperation(ctx context.Context, operation string) {
	m.SessionTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("operation", operation),
	))
}

// RecordResultsViewed records an order's results being opened
func (m *Metrics) RecordResultsViewed(ctx context.Context, grouped bool) {
	m.ResultsViewedTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.Bool("grouped", grouped),
	))
}

// RecordAuthFailure records an authentication failure metric
func (m *Metrics) RecordAuthFailure(ctx context.Context, reason string) {
	m.AuthFailuresTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("reason", reason),
	))
}
