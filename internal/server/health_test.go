package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func serveHealth(t *testing.T, h *HealthChecker, path string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()

	mux := http.NewServeMux()
	h.RegisterHealthEndpoints(mux)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return rec, body
}

func TestHealthChecker_Liveness(t *testing.T) {
	h := NewHealthChecker("1.0.0", true)
	h.SetReady(false)
	h.MarkShuttingDown()

	// Liveness ignores readiness and shutdown
	rec, body := serveHealth(t, h, "/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Equal(t, healthStatusOK, body["status"])
}

func TestHealthChecker_Readiness(t *testing.T) {
	tests := []struct {
		name         string
		ready        bool
		shuttingDown bool
		wantCode     int
		wantStatus   string
	}{
		{"ready", true, false, http.StatusOK, healthStatusOK},
		{"not ready", false, false, http.StatusServiceUnavailable, healthStatusNotReady},
		{"shutting down", true, true, http.StatusServiceUnavailable, healthStatusNotReady},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHealthChecker("1.0.0", true)
			h.SetReady(tt.ready)
			if tt.shuttingDown {
				h.MarkShuttingDown()
			}

			rec, body := serveHealth(t, h, "/readyz")
			assert.Equal(t, tt.wantCode, rec.Code)
			assert.Equal(t, tt.wantStatus, body["status"])
			assert.Contains(t, body, "checks")
		})
	}
}

func TestHealthChecker_Detailed(t *testing.T) {
	t.Run("configured", func(t *testing.T) {
		h := NewHealthChecker("1.2.3", true)

		rec, body := serveHealth(t, h, "/healthz/detailed")
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, healthStatusOK, body["status"])
		assert.Equal(t, "1.2.3", body["version"])
		assert.Equal(t, credentialsConfigured, body["credentials"])
		assert.NotEmpty(t, body["uptime"])
	})

	t.Run("missing credentials stay ready", func(t *testing.T) {
		h := NewHealthChecker("1.2.3", false)
		assert.True(t, h.IsReady())

		rec, body := serveHealth(t, h, "/healthz/detailed")
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, credentialsMissing, body["credentials"])
	})

	t.Run("shutting down", func(t *testing.T) {
		h := NewHealthChecker("1.2.3", true)
		h.MarkShuttingDown()

		rec, body := serveHealth(t, h, "/healthz/detailed")
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
		assert.Equal(t, healthStatusShuttingDown, body["status"])
	})
}
