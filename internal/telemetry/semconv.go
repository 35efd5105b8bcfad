package telemetry

import "go.opentelemetry.io/otel/attribute"

// Attribute keys attached to SDK metrics.
const (
	AttrMethod      = attribute.Key("http.method")
	AttrEndpoint    = attribute.Key("starkbank.endpoint")
	AttrResource    = attribute.Key("starkbank.resource")
	AttrStatus      = attribute.Key("http.status_code")
	AttrResult      = attribute.Key("result")
	AttrErrorCode   = attribute.Key("error.code")
	AttrEnvironment = attribute.Key("environment")
	AttrFeed        = attribute.Key("ingest.feed")
)

// Result values for AttrResult.
const (
	ResultSuccess = "success"
	ResultError   = "error"
)

// Metric names.
const (
	MetricRequests        = "starkbank_requests_total"
	MetricRequestDuration = "starkbank_request_duration_ms"
	MetricRetries         = "starkbank_retries_total"
	MetricPages           = "starkbank_pages_total"
	MetricIngestedItems   = "starkbank_ingested_items_total"
)
