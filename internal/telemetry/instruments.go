package telemetry

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

// InstrumentationName scopes every SDK meter.
const InstrumentationName = "github.com/coachpo/starkbank"

// Instruments groups the counters and histograms recorded by the transport,
// the pagination layer and the ingestion service.
type Instruments struct {
	requests metric.Int64Counter
	duration metric.Float64Histogram
	retries  metric.Int64Counter
	pages    metric.Int64Counter
	ingested metric.Int64Counter
}

// NewInstruments registers the SDK instruments on meter. A nil meter falls
// back to the global meter provider.
func NewInstruments(meter metric.Meter) (*Instruments, error) {
	if meter == nil {
		meter = otel.Meter(InstrumentationName)
	}
	requests, err := meter.Int64Counter(MetricRequests,
		metric.WithDescription("StarkBank API requests by method, endpoint and result"),
		metric.WithUnit("{request}"))
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", MetricRequests, err)
	}
	duration, err := meter.Float64Histogram(MetricRequestDuration,
		metric.WithDescription("StarkBank API request latency"),
		metric.WithUnit("ms"))
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", MetricRequestDuration, err)
	}
	retries, err := meter.Int64Counter(MetricRetries,
		metric.WithDescription("Retried StarkBank API requests"),
		metric.WithUnit("{retry}"))
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", MetricRetries, err)
	}
	pages, err := meter.Int64Counter(MetricPages,
		metric.WithDescription("List pages fetched from the StarkBank API"),
		metric.WithUnit("{page}"))
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", MetricPages, err)
	}
	ingested, err := meter.Int64Counter(MetricIngestedItems,
		metric.WithDescription("Entities written by the ingestion service"),
		metric.WithUnit("{item}"))
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", MetricIngestedItems, err)
	}
	return &Instruments{requests: requests, duration: duration, retries: retries, pages: pages, ingested: ingested}, nil
}

// RecordRequest counts one completed request attempt chain.
func (i *Instruments) RecordRequest(ctx context.Context, method, endpoint string, status int, errCode string, elapsed time.Duration) {
	if i == nil {
		return
	}
	result := ResultSuccess
	if errCode != "" {
		result = ResultError
	}
	attrs := metric.WithAttributes(
		AttrMethod.String(method),
		AttrEndpoint.String(endpoint),
		AttrStatus.Int(status),
		AttrResult.String(result),
		AttrErrorCode.String(errCode),
	)
	i.requests.Add(ctx, 1, attrs)
	i.duration.Record(ctx, float64(elapsed)/float64(time.Millisecond), metric.WithAttributes(
		AttrMethod.String(method),
		AttrEndpoint.String(endpoint),
	))
}

// RecordRetry counts one retry of a failed attempt.
func (i *Instruments) RecordRetry(ctx context.Context, method, endpoint, errCode string) {
	if i == nil {
		return
	}
	i.retries.Add(ctx, 1, metric.WithAttributes(
		AttrMethod.String(method),
		AttrEndpoint.String(endpoint),
		AttrErrorCode.String(errCode),
	))
}

// RecordPage counts one list page decoded for resource.
func (i *Instruments) RecordPage(ctx context.Context, resource string) {
	if i == nil {
		return
	}
	i.pages.Add(ctx, 1, metric.WithAttributes(AttrResource.String(resource)))
}

// RecordIngested counts items persisted for a feed.
func (i *Instruments) RecordIngested(ctx context.Context, feed string, n int) {
	if i == nil || n <= 0 {
		return
	}
	i.ingested.Add(ctx, int64(n), metric.WithAttributes(AttrFeed.String(feed)))
}
