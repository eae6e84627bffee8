// Package instrumentation provides OpenTelemetry instrumentation for the
// fittoken server.
//
// This package enables production-grade observability through:
//   - OpenTelemetry metrics for HTTP requests, code exchanges, and Google API calls
//   - Distributed tracing for the calls made to Google during the callback
//   - Prometheus metrics export via /metrics endpoint on dedicated port
//   - OTLP export support for modern observability platforms
//   - A per-callback audit record of every token issued or refused
//
// # Metrics
//
// Server/HTTP Metrics:
//   - http_requests_total: Counter of HTTP requests by method, path, and status
//   - http_request_duration_seconds: Histogram of HTTP request durations
//   - http_requests_in_flight: Gauge of requests currently being served
//
// Google API Metrics:
//   - google_api_operations_total: Counter of Google API operations by service, operation, status
//   - google_api_operation_duration_seconds: Histogram of Google API operation durations
//
// OAuth Metrics:
//   - oauth_exchange_total: Counter of authorization code exchanges by result
//   - token_downloads_total: Counter of credential files handed out by file name source
//
// # Tracing
//
// Client spans are created for each Google call (google.<service>.<operation>):
//   - google.oauth2.exchange
//   - google.oauth2.userinfo
//
// # Configuration
//
// Settings come from config.Config through NewConfig:
//   - INSTRUMENTATION_ENABLED: Enable/disable instrumentation (default: true)
//   - METRICS_EXPORTER: prometheus or otlp (default: prometheus)
//   - TRACING_EXPORTER: none, otlp or stdout (default: none)
//   - OTEL_EXPORTER_OTLP_ENDPOINT: OTLP endpoint for traces/metrics
//   - OTEL_EXPORTER_OTLP_INSECURE: Send OTLP without TLS (default: false)
//   - METRICS_DETAILED_LABELS: Add user_domain to token downloads (default: false)
//   - AUDIT_LOGGING_ENABLED: Write a record per callback (default: true)
//   - AUDIT_LOGGING_INCLUDE_PII: Include full email addresses in audit records (default: false)
//
// # Example Usage
//
//	provider, err := instrumentation.NewProvider(ctx, instrumentation.NewConfig(cfg, version))
//	if err != nil {
//		return err
//	}
//	defer provider.Shutdown(ctx)
//
//	recorder := provider.Metrics()
//	recorder.RecordHTTPRequest(ctx, "GET", "/authorize", 302, time.Since(start))
//	recorder.RecordOAuthExchange(ctx, instrumentation.OAuthResultSuccess)
package instrumentation
