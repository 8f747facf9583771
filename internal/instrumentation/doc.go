// Package instrumentation provides OpenTelemetry instrumentation for agendahook.
//
// This package enables observability through:
//   - OpenTelemetry metrics for pipeline runs, Google API calls, OAuth token
//     refreshes, webhook deliveries and HTTP trigger requests
//   - Distributed tracing for a run and the API calls it makes
//   - Prometheus metrics export via /metrics endpoint on dedicated port
//   - OTLP export support for modern observability platforms
//   - A per-run audit record
//
// # Metrics
//
//   - briefing_runs_total, briefing_run_duration_seconds: runs by trigger and result
//   - calendar_events_fetched_total: events contributed per calendar
//   - google_api_operations_total, google_api_operation_duration_seconds
//   - oauth_auth_total, oauth_token_refresh_total
//   - webhook_deliveries_total, webhook_delivery_duration_seconds: by HTTP status
//   - http_requests_total, http_request_duration_seconds: trigger server
//
// # Configuration
//
// Instrumentation can be configured via environment variables:
//   - INSTRUMENTATION_ENABLED: Enable/disable instrumentation (default: true)
//   - METRICS_EXPORTER: Metrics exporter type (prometheus, otlp, stdout, default: prometheus)
//   - TRACING_EXPORTER: Tracing exporter type (otlp, stdout, none, default: none)
//   - OTEL_EXPORTER_OTLP_ENDPOINT: OTLP endpoint for traces/metrics
//   - OTEL_TRACES_SAMPLER_ARG: Sampling rate (0.0 to 1.0, default: 1.0)
//   - OTEL_SERVICE_NAME: Service name (default: agendahook)
//   - RUN_AUDIT_ENABLED: Emit one audit record per run (default: true)
//
// All Metrics methods are nil-safe, so components accept a nil *Metrics
// when instrumentation is not wanted (tests, one-shot CLI runs).
package instrumentation
