package server

import (
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/teemow/fittoken/internal/instrumentation"
)

const contentSecurityPolicy = "default-src 'none'; style-src 'unsafe-inline'; frame-ancestors 'none'"

// securityHeaders sets security headers on every response.
// HSTS is only sent when the service is reached over HTTPS, which is inferred
// from the scheme of the registered redirect URL.
func securityHeaders(redirectURL string, next http.Handler) http.Handler {
	hsts := isHTTPS(redirectURL)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()

		// Prevent clickjacking attacks
		h.Set("X-Frame-Options", "DENY")

		// Prevent MIME type sniffing
		h.Set("X-Content-Type-Options", "nosniff")

		// Pages carry inline styles only
		h.Set("Content-Security-Policy", contentSecurityPolicy)

		// The callback URL carries the authorization code
		h.Set("Referrer-Policy", "no-referrer")

		// Credential downloads must never be cached
		h.Set("Cache-Control", "no-store")

		if hsts {
			h.Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}

		next.ServeHTTP(w, r)
	})
}

func isHTTPS(rawURL string) bool {
	u, err := url.Parse(rawURL)
	return err == nil && u.Scheme == "https"
}

// validateHTTPSRequirement checks that the redirect URL is served over HTTPS.
// HTTP is allowed only for loopback addresses (localhost, 127.0.0.1, ::1).
func validateHTTPSRequirement(redirectURL string) error {
	u, err := url.Parse(redirectURL)
	if err != nil {
		return fmt.Errorf("invalid redirect URL: %w", err)
	}

	if u.Scheme == "http" {
		host := u.Hostname()
		if host != "localhost" && host != "127.0.0.1" && host != "::1" {
			return fmt.Errorf("redirect URL should use HTTPS outside of local development (got: %s)", redirectURL)
		}
	} else if u.Scheme != "https" {
		return fmt.Errorf("invalid URL scheme: %s. Must be http (localhost only) or https", u.Scheme)
	}

	return nil
}

// responseWriter captures the status code written by a handler.
type responseWriter struct {
	http.ResponseWriter
	statusCode  int
	wroteHeader bool
}

func newResponseWriter(w http.ResponseWriter) *responseWriter {
	return &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
}

// WriteHeader records the status code before delegating.
func (rw *responseWriter) WriteHeader(code int) {
	if !rw.wroteHeader {
		rw.statusCode = code
		rw.wroteHeader = true
	}
	rw.ResponseWriter.WriteHeader(code)
}

// Write marks the header as written with an implicit 200.
func (rw *responseWriter) Write(b []byte) (int, error) {
	rw.wroteHeader = true
	return rw.ResponseWriter.Write(b)
}

// Unwrap lets http.ResponseController reach the underlying writer.
func (rw *responseWriter) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}

// instrumentHTTP records request count, duration and the in-flight gauge for a
// route. The route pattern is used as path label to keep cardinality bounded.
func instrumentHTTP(metrics *instrumentation.Metrics, route string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		metrics.IncrementInFlight(ctx)
		defer metrics.DecrementInFlight(ctx)

		start := time.Now()
		rw := newResponseWriter(w)
		next.ServeHTTP(rw, r)

		metrics.RecordHTTPRequest(ctx, r.Method, route, rw.statusCode, time.Since(start))
	})
}
