package instrumentation

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/teemow/fittoken/internal/logging"
)

// Outcomes of a single callback, as recorded in the audit trail.
const (
	OutcomeIssued           = "issued"
	OutcomeConfigMissing    = "config_missing"
	OutcomeCodeMissing      = "code_missing"
	OutcomeExchangeRejected = "exchange_rejected"
	OutcomeExchangeFailed   = "exchange_failed"
)

// TokenIssuance captures one pass through the OAuth callback for audit logging.
//
// # Privacy Considerations
//
// The UserEmail field contains PII. LogAttrs only emits an anonymized hash and
// the email domain; LogAuditAttrs emits the full address and must only be
// used when audit logs are routed to secure storage.
type TokenIssuance struct {
	// User identity (from the userinfo lookup, may be empty)
	UserEmail string

	// StemSource names where the download file name came from.
	StemSource string

	// Outcome is one of the Outcome* constants.
	Outcome string

	// GoogleError is the OAuth error code Google returned, if any.
	GoogleError string

	// Incident is the reference shown to the user for unexpected failures.
	Incident string

	// Execution details
	StartTime time.Time
	Duration  time.Duration
	Error     string

	// Tracing context
	TraceID string
	SpanID  string
}

// NewTokenIssuance creates a new TokenIssuance with timing started.
// Call Complete() when the callback finishes.
func NewTokenIssuance() *TokenIssuance {
	return &TokenIssuance{StartTime: time.Now()}
}

// WithUser sets the user identity information.
func (ti *TokenIssuance) WithUser(email string) *TokenIssuance {
	ti.UserEmail = email
	return ti
}

// WithStemSource records where the download file name came from.
func (ti *TokenIssuance) WithStemSource(source string) *TokenIssuance {
	ti.StemSource = source
	return ti
}

// WithGoogleError records the OAuth error code from the token endpoint.
func (ti *TokenIssuance) WithGoogleError(code string) *TokenIssuance {
	ti.GoogleError = code
	return ti
}

// WithIncident records the incident reference shown to the user.
func (ti *TokenIssuance) WithIncident(id string) *TokenIssuance {
	ti.Incident = id
	return ti
}

// WithSpanContext extracts trace context from the current span.
func (ti *TokenIssuance) WithSpanContext(ctx context.Context) *TokenIssuance {
	span := trace.SpanFromContext(ctx)
	if span.SpanContext().IsValid() {
		ti.TraceID = span.SpanContext().TraceID().String()
		ti.SpanID = span.SpanContext().SpanID().String()
	}
	return ti
}

// Complete marks the callback as finished with the given outcome and
// calculates the duration.
func (ti *TokenIssuance) Complete(outcome string, err error) *TokenIssuance {
	ti.Duration = time.Since(ti.StartTime)
	ti.Outcome = outcome
	if err != nil {
		ti.Error = err.Error()
	}
	return ti
}

// Success reports whether a credential file was handed out.
func (ti *TokenIssuance) Success() bool {
	return ti.Outcome == OutcomeIssued
}

// UserDomain returns the domain portion of the user's email for lower-cardinality logging.
func (ti *TokenIssuance) UserDomain() string {
	return ExtractUserDomain(ti.UserEmail)
}

// LogAttrs returns slog attributes with the user anonymized.
func (ti *TokenIssuance) LogAttrs() []slog.Attr {
	attrs := []slog.Attr{
		slog.String("outcome", ti.Outcome),
		slog.Duration("duration", ti.Duration),
		slog.Bool("success", ti.Success()),
	}
	if ti.UserEmail != "" {
		attrs = append(attrs,
			logging.UserHash(ti.UserEmail),
			slog.String("user_domain", ti.UserDomain()),
		)
	}
	return ti.appendOptional(attrs)
}

// LogAuditAttrs returns slog attributes including the full user email.
//
// # Security Warning
//
// This method includes PII (full email). Ensure audit logs are stored securely
// with appropriate access controls.
func (ti *TokenIssuance) LogAuditAttrs() []slog.Attr {
	attrs := []slog.Attr{
		slog.String("outcome", ti.Outcome),
		slog.Duration("duration", ti.Duration),
		slog.Bool("success", ti.Success()),
	}
	if ti.UserEmail != "" {
		attrs = append(attrs, slog.String("user", ti.UserEmail))
	}
	attrs = ti.appendOptional(attrs)
	if ti.SpanID != "" {
		attrs = append(attrs, slog.String("span_id", ti.SpanID))
	}
	return attrs
}

func (ti *TokenIssuance) appendOptional(attrs []slog.Attr) []slog.Attr {
	if ti.StemSource != "" {
		attrs = append(attrs, logging.StemSource(ti.StemSource))
	}
	if ti.GoogleError != "" {
		attrs = append(attrs, slog.String("google_error", ti.GoogleError))
	}
	if ti.Incident != "" {
		attrs = append(attrs, logging.Incident(ti.Incident))
	}
	if ti.TraceID != "" {
		attrs = append(attrs, slog.String("trace_id", ti.TraceID))
	}
	if ti.Error != "" {
		attrs = append(attrs, slog.String("error", ti.Error))
	}
	return attrs
}

// AuditLogger writes one structured record per callback.
type AuditLogger struct {
	logger     *slog.Logger
	includePII bool
	enabled    bool
}

// NewAuditLogger creates an enabled AuditLogger that anonymizes users.
func NewAuditLogger(logger *slog.Logger) *AuditLogger {
	return NewAuditLoggerWithConfig(logger, AuditLoggingConfig{Enabled: true})
}

// NewAuditLoggerWithConfig creates a new AuditLogger with the given configuration.
func NewAuditLoggerWithConfig(logger *slog.Logger, config AuditLoggingConfig) *AuditLogger {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuditLogger{
		logger:     logger.With(slog.String("component", "audit")),
		includePII: config.IncludePII,
		enabled:    config.Enabled,
	}
}

// LogIssuance logs the callback outcome. Full user emails are only included
// when the logger was configured with IncludePII.
func (al *AuditLogger) LogIssuance(ctx context.Context, ti *TokenIssuance) {
	if al == nil || !al.enabled {
		return
	}

	var attrs []slog.Attr
	if al.includePII {
		attrs = ti.LogAuditAttrs()
	} else {
		attrs = ti.LogAttrs()
	}

	level := slog.LevelInfo
	msg := "token_issued"
	if !ti.Success() {
		level = slog.LevelWarn
		msg = "token_issue_failed"
	}
	al.logger.LogAttrs(ctx, level, msg, attrs...)
}
