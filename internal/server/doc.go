// Package server provides the HTTP endpoint that hands out Google Fit refresh
// tokens, together with its health and metrics servers.
//
// # Routes
//
//   - GET /: landing page with the link that starts the consent flow
//   - GET /authorize: redirect to Google's consent screen
//   - GET /oauth2callback: exchange the code and download the credential file
//   - GET /healthz, /readyz, /healthz/detailed: Kubernetes probes
//
// Every failure of the flow is rendered as an HTML page with status 200. The
// callback never retries: each Google call is attempted once and bounded by
// the configured HTTP timeout.
//
// # Security Features
//
//   - Security headers on all HTTP responses (HSTS when served over HTTPS)
//   - Rate limiting per client IP on the flow routes
//   - Unexpected errors are replaced by an incident reference on the page;
//     the cause is only logged
//   - Access tokens are never written to the download or the logs
//
// MetricsServer exposes Prometheus metrics on a separate address so they are
// not reachable through the public endpoint.
package server
