package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// unsetEnv clears the given variables for the duration of the test.
func unsetEnv(t *testing.T, keys ...string) {
	t.Helper()
	for _, k := range keys {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
}

var configKeys = []string{
	"CLIENT_ID", "CLIENT_SECRET", "APP_SECRET_KEY", "REDIRECT_URL", "HTTP_ADDR",
	"HTTP_TIMEOUT", "RATE_LIMIT_RATE", "RATE_LIMIT_BURST", "TRUST_PROXY",
	"METRICS_ENABLED", "METRICS_ADDR", "LOG_LEVEL",
	"INSTRUMENTATION_ENABLED", "METRICS_EXPORTER", "TRACING_EXPORTER",
	"OTEL_EXPORTER_OTLP_ENDPOINT", "OTEL_EXPORTER_OTLP_INSECURE",
	"METRICS_DETAILED_LABELS", "AUDIT_LOGGING_ENABLED", "AUDIT_LOGGING_INCLUDE_PII",
}

func TestLoad_Defaults(t *testing.T) {
	unsetEnv(t, configKeys...)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, DefaultRedirectURL, cfg.RedirectURL)
	assert.Equal(t, DefaultHTTPAddr, cfg.HTTPAddr)
	assert.Equal(t, DefaultHTTPTimeout, cfg.HTTPTimeout)
	assert.Equal(t, DefaultMetricsAddr, cfg.MetricsAddr)
	assert.Equal(t, 10, cfg.RateLimit)
	assert.Equal(t, 20, cfg.RateLimitBurst)
	assert.True(t, cfg.MetricsEnabled)
	assert.False(t, cfg.Credentials().Complete())

	assert.True(t, cfg.InstrumentationEnabled)
	assert.Equal(t, "prometheus", cfg.MetricsExporter)
	assert.Equal(t, "none", cfg.TracingExporter)
	assert.Empty(t, cfg.OTLPEndpoint)
	assert.True(t, cfg.AuditLogging)
	assert.False(t, cfg.AuditIncludePII)
	assert.False(t, cfg.MetricsDetailedLabels)
}

func TestLoad_FromEnv(t *testing.T) {
	unsetEnv(t, configKeys...)
	t.Setenv("CLIENT_ID", "id-123.apps.googleusercontent.com")
	t.Setenv("CLIENT_SECRET", "s3cret")
	t.Setenv("REDIRECT_URL", "http://localhost:8080/oauth2callback")
	t.Setenv("HTTP_TIMEOUT", "3s")
	t.Setenv("RATE_LIMIT_RATE", "0")

	cfg, err := Load()
	require.NoError(t, err)

	creds := cfg.Credentials()
	assert.Equal(t, "id-123.apps.googleusercontent.com", creds.ClientID)
	assert.Equal(t, "s3cret", creds.ClientSecret)
	assert.True(t, creds.Complete())
	assert.Equal(t, "http://localhost:8080/oauth2callback", cfg.RedirectURL)
	assert.Equal(t, 3*time.Second, cfg.HTTPTimeout)
	assert.Equal(t, 0, cfg.RateLimit)
}

func TestLoad_InstrumentationFromEnv(t *testing.T) {
	unsetEnv(t, configKeys...)
	t.Setenv("INSTRUMENTATION_ENABLED", "false")
	t.Setenv("METRICS_EXPORTER", "otlp")
	t.Setenv("TRACING_EXPORTER", "otlp")
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "collector:4318")
	t.Setenv("OTEL_EXPORTER_OTLP_INSECURE", "true")
	t.Setenv("AUDIT_LOGGING_INCLUDE_PII", "true")

	cfg, err := Load()
	require.NoError(t, err)

	assert.False(t, cfg.InstrumentationEnabled)
	assert.Equal(t, "otlp", cfg.MetricsExporter)
	assert.Equal(t, "otlp", cfg.TracingExporter)
	assert.Equal(t, "collector:4318", cfg.OTLPEndpoint)
	assert.True(t, cfg.OTLPInsecure)
	assert.True(t, cfg.AuditIncludePII)
}

func TestLoad_InvalidDuration(t *testing.T) {
	unsetEnv(t, configKeys...)
	t.Setenv("HTTP_TIMEOUT", "soon")

	_, err := Load()
	assert.Error(t, err)
}

func TestCredentials_Complete(t *testing.T) {
	tests := []struct {
		name  string
		creds Credentials
		want  bool
	}{
		{"both set", Credentials{ClientID: "id", ClientSecret: "secret"}, true},
		{"missing id", Credentials{ClientSecret: "secret"}, false},
		{"missing secret", Credentials{ClientID: "id"}, false},
		{"empty", Credentials{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.creds.Complete())
		})
	}
}

func TestConfig_Validate(t *testing.T) {
	valid := Config{
		RedirectURL:    DefaultRedirectURL,
		HTTPTimeout:    DefaultHTTPTimeout,
		RateLimit:      10,
		RateLimitBurst: 20,
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{"valid", func(c *Config) {}, false},
		{"localhost redirect", func(c *Config) { c.RedirectURL = "http://localhost:8080/oauth2callback" }, false},
		{"missing credentials are allowed", func(c *Config) { c.ClientID = ""; c.ClientSecret = "" }, false},
		{"empty redirect", func(c *Config) { c.RedirectURL = "" }, true},
		{"relative redirect", func(c *Config) { c.RedirectURL = "/oauth2callback" }, true},
		{"bad scheme", func(c *Config) { c.RedirectURL = "ftp://example.com/cb" }, true},
		{"zero timeout", func(c *Config) { c.HTTPTimeout = 0 }, true},
		{"negative timeout", func(c *Config) { c.HTTPTimeout = -time.Second }, true},
		{"negative rate", func(c *Config) { c.RateLimit = -1 }, true},
		{"negative burst", func(c *Config) { c.RateLimitBurst = -1 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
