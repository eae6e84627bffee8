package instrumentation

import (
	"fmt"

	"github.com/teemow/fittoken/internal/config"
)

// ServiceName is the OpenTelemetry service.name resource attribute.
const ServiceName = "fittoken"

// Config selects how telemetry leaves the process.
type Config struct {
	ServiceVersion string

	// Enabled false yields a provider whose recorder drops everything.
	Enabled bool

	// MetricsExporter is ExporterPrometheus or ExporterOTLP.
	MetricsExporter string

	// TracingExporter is ExporterNone, ExporterOTLP or ExporterStdout.
	TracingExporter string

	// OTLPEndpoint is host:port without a scheme.
	OTLPEndpoint string
	OTLPInsecure bool

	// DetailedLabels adds user_domain to token_downloads_total.
	DetailedLabels bool

	AuditLogging AuditLoggingConfig
}

// AuditLoggingConfig holds configuration for audit logging.
type AuditLoggingConfig struct {
	// Enabled writes a record for every callback.
	Enabled bool

	// IncludePII logs the full email next to its hash.
	// SECURITY: Ensure audit logs are stored securely with appropriate access controls.
	IncludePII bool
}

// NewConfig derives the instrumentation settings from the process configuration.
func NewConfig(cfg config.Config, version string) Config {
	return Config{
		ServiceVersion:  version,
		Enabled:         cfg.InstrumentationEnabled,
		MetricsExporter: cfg.MetricsExporter,
		TracingExporter: cfg.TracingExporter,
		OTLPEndpoint:    cfg.OTLPEndpoint,
		OTLPInsecure:    cfg.OTLPInsecure,
		DetailedLabels:  cfg.MetricsDetailedLabels,
		AuditLogging: AuditLoggingConfig{
			Enabled:    cfg.AuditLogging,
			IncludePII: cfg.AuditIncludePII,
		},
	}
}

// Validate checks the exporter selection. A disabled configuration is always valid.
func (c Config) Validate() error {
	if !c.Enabled {
		return nil
	}

	switch c.MetricsExporter {
	case ExporterPrometheus:
	case ExporterOTLP:
		if c.OTLPEndpoint == "" {
			return fmt.Errorf("OTLP endpoint is required when using OTLP metrics exporter")
		}
	default:
		return fmt.Errorf("invalid metrics exporter %q, must be one of: prometheus, otlp", c.MetricsExporter)
	}

	switch c.TracingExporter {
	case ExporterNone, ExporterStdout:
	case ExporterOTLP:
		if c.OTLPEndpoint == "" {
			return fmt.Errorf("OTLP endpoint is required when using OTLP tracing exporter")
		}
	default:
		return fmt.Errorf("invalid tracing exporter %q, must be one of: none, otlp, stdout", c.TracingExporter)
	}

	return nil
}

// Constants for metric label values.
const (
	// Status values
	StatusSuccess = "success"
	StatusError   = "error"

	// OAuth exchange result values. Failure means Google answered with an OAuth
	// error or without a refresh token; error means the exchange never got an
	// answer (network, timeout, malformed response).
	OAuthResultSuccess = "success"
	OAuthResultFailure = "failure"
	OAuthResultError   = "error"

	// Google service names
	ServiceOAuth2 = "oauth2"

	// Google API operations
	OperationExchange = "exchange"
	OperationUserInfo = "userinfo"

	// Exporter types
	ExporterPrometheus = "prometheus"
	ExporterOTLP       = "otlp"
	ExporterStdout     = "stdout"
	ExporterNone       = "none"
)
