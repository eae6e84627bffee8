// Package config loads the fittoken configuration.
//
// Values come from environment variables (parsed with caarlos0/env) and may be
// overridden by command-line flags in the cmd package. The resulting Config is
// built once at process start; handlers never read the environment themselves.
//
// # Environment
//
//   - CLIENT_ID, CLIENT_SECRET: Google OAuth client identity
//   - APP_SECRET_KEY: application secret of the hosted deployment
//   - REDIRECT_URL: callback URL registered with Google
//   - HTTP_ADDR, HTTP_TIMEOUT: listen address and outbound timeout
//   - RATE_LIMIT_RATE, RATE_LIMIT_BURST, TRUST_PROXY: per-IP rate limiting
//   - METRICS_ENABLED, METRICS_ADDR: dedicated Prometheus server
//   - LOG_LEVEL: debug, info, warn or error
package config
