package config

import (
	"fmt"
	"net/url"
	"time"

	"github.com/caarlos0/env/v11"
)

const (
	// DefaultRedirectURL is the callback registered for the hosted deployment.
	DefaultRedirectURL = "https://google-fit-auth-one.vercel.app/oauth2callback"

	// DefaultHTTPAddr is the default listen address for the web endpoint.
	DefaultHTTPAddr = ":8080"

	// DefaultHTTPTimeout bounds every outbound call to Google.
	DefaultHTTPTimeout = 15 * time.Second

	// DefaultMetricsAddr is the default address for the dedicated metrics server.
	DefaultMetricsAddr = ":9090"
)

// Credentials is the OAuth client identity. Missing values are empty strings.
type Credentials struct {
	ClientID     string
	ClientSecret string
}

// Complete reports whether both the client ID and the client secret are set.
func (c Credentials) Complete() bool {
	return c.ClientID != "" && c.ClientSecret != ""
}

// Config holds the process configuration. It is built once at startup and
// passed by value to the components that need it.
type Config struct {
	// ClientID is the Google OAuth client identifier.
	ClientID string `env:"CLIENT_ID"`

	// ClientSecret is the Google OAuth client secret.
	ClientSecret string `env:"CLIENT_SECRET"`

	// SecretKey is the application secret of the hosted deployment. No handler
	// reads it; it is kept so existing deployments can be moved without
	// renaming their environment.
	SecretKey string `env:"APP_SECRET_KEY"`

	// RedirectURL is the absolute callback URL registered with Google.
	RedirectURL string `env:"REDIRECT_URL" envDefault:"https://google-fit-auth-one.vercel.app/oauth2callback"`

	// HTTPAddr is the listen address of the web endpoint.
	HTTPAddr string `env:"HTTP_ADDR" envDefault:":8080"`

	// HTTPTimeout is the timeout of every outbound request. Must be positive.
	HTTPTimeout time.Duration `env:"HTTP_TIMEOUT" envDefault:"15s"`

	// RateLimit is the number of requests per second allowed per client IP on
	// the OAuth routes. Zero disables rate limiting.
	RateLimit int `env:"RATE_LIMIT_RATE" envDefault:"10"`

	// RateLimitBurst is the token bucket size of the rate limiter.
	RateLimitBurst int `env:"RATE_LIMIT_BURST" envDefault:"20"`

	// TrustProxy makes the rate limiter honour X-Forwarded-For and X-Real-IP.
	TrustProxy bool `env:"TRUST_PROXY" envDefault:"false"`

	// MetricsEnabled starts the Prometheus metrics server on MetricsAddr.
	MetricsEnabled bool `env:"METRICS_ENABLED" envDefault:"true"`

	// MetricsAddr is the listen address of the metrics server.
	MetricsAddr string `env:"METRICS_ADDR" envDefault:":9090"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	// InstrumentationEnabled turns OpenTelemetry metrics and tracing on.
	InstrumentationEnabled bool `env:"INSTRUMENTATION_ENABLED" envDefault:"true"`

	// MetricsExporter is prometheus or otlp.
	MetricsExporter string `env:"METRICS_EXPORTER" envDefault:"prometheus"`

	// TracingExporter is none, otlp or stdout.
	TracingExporter string `env:"TRACING_EXPORTER" envDefault:"none"`

	// OTLPEndpoint is the collector host:port, required by either otlp exporter.
	OTLPEndpoint string `env:"OTEL_EXPORTER_OTLP_ENDPOINT"`

	// OTLPInsecure sends OTLP over plain HTTP.
	OTLPInsecure bool `env:"OTEL_EXPORTER_OTLP_INSECURE" envDefault:"false"`

	// MetricsDetailedLabels adds the user's email domain to download metrics.
	MetricsDetailedLabels bool `env:"METRICS_DETAILED_LABELS" envDefault:"false"`

	// AuditLogging writes one audit record per callback.
	AuditLogging bool `env:"AUDIT_LOGGING_ENABLED" envDefault:"true"`

	// AuditIncludePII puts full email addresses in audit records.
	AuditIncludePII bool `env:"AUDIT_LOGGING_INCLUDE_PII" envDefault:"false"`
}

// Load parses the configuration from environment variables.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}

// Credentials returns the OAuth client identity.
func (c Config) Credentials() Credentials {
	return Credentials{
		ClientID:     c.ClientID,
		ClientSecret: c.ClientSecret,
	}
}

// Validate checks the settings the server cannot start without.
// Missing client credentials are deliberately not rejected here: the
// endpoints report them to the user on every request.
func (c Config) Validate() error {
	if c.RedirectURL == "" {
		return fmt.Errorf("redirect URL is required")
	}
	u, err := url.Parse(c.RedirectURL)
	if err != nil {
		return fmt.Errorf("invalid redirect URL: %w", err)
	}
	if !u.IsAbs() || u.Host == "" {
		return fmt.Errorf("redirect URL must be absolute (got %q)", c.RedirectURL)
	}
	if u.Scheme != "https" && u.Scheme != "http" {
		return fmt.Errorf("invalid redirect URL scheme: %s. Must be http or https", u.Scheme)
	}

	if c.HTTPTimeout <= 0 {
		return fmt.Errorf("HTTP timeout must be positive, got %s", c.HTTPTimeout)
	}

	if c.RateLimit < 0 {
		return fmt.Errorf("rate limit must not be negative, got %d", c.RateLimit)
	}
	if c.RateLimitBurst < 0 {
		return fmt.Errorf("rate limit burst must not be negative, got %d", c.RateLimitBurst)
	}

	return nil
}
