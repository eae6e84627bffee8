package server

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRateLimiter(t *testing.T, rate, burst int, trustProxy bool) *RateLimiter {
	t.Helper()
	rl := NewRateLimiter(rate, burst, trustProxy)
	t.Cleanup(rl.Stop)
	return rl
}

func TestRateLimiter_Allow(t *testing.T) {
	rl := newTestRateLimiter(t, 1, 2, false)

	assert.True(t, rl.Allow("10.0.0.1"))
	assert.True(t, rl.Allow("10.0.0.1"))
	assert.False(t, rl.Allow("10.0.0.1"), "third request within the burst window must be rejected")

	// Buckets are per IP
	assert.True(t, rl.Allow("10.0.0.2"))
}

func TestRateLimiter_Refill(t *testing.T) {
	rl := newTestRateLimiter(t, 100, 1, false)

	require.True(t, rl.Allow("10.0.0.1"))
	require.False(t, rl.Allow("10.0.0.1"))

	time.Sleep(50 * time.Millisecond)
	assert.True(t, rl.Allow("10.0.0.1"))
}

func TestRateLimiter_MinimumBurst(t *testing.T) {
	rl := newTestRateLimiter(t, 1, 0, false)

	assert.True(t, rl.Allow("10.0.0.1"), "a zero burst is raised to one")
}

func TestRateLimiter_Sweep(t *testing.T) {
	rl := newTestRateLimiter(t, 1, 1, false)
	rl.Allow("10.0.0.1")

	rl.sweep(time.Now())
	assert.Len(t, rl.limiters, 1)

	rl.sweep(time.Now().Add(rateLimitIdleTimeout + time.Minute))
	assert.Empty(t, rl.limiters)
}

func TestRateLimiter_StopIdempotent(t *testing.T) {
	rl := NewRateLimiter(1, 1, false)
	rl.Stop()
	rl.Stop()
}

func TestRateLimiter_Middleware(t *testing.T) {
	rl := newTestRateLimiter(t, 1, 1, false)
	handler := rl.Middleware(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodGet, "/authorize", nil)
	req.RemoteAddr = "192.0.2.1:1234"

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("Retry-After"))
}

func TestGetClientIP(t *testing.T) {
	tests := []struct {
		name       string
		remoteAddr string
		headers    map[string]string
		trustProxy bool
		want       string
	}{
		{
			name:       "remote addr",
			remoteAddr: "192.0.2.1:1234",
			want:       "192.0.2.1",
		},
		{
			name:       "ipv6 remote addr",
			remoteAddr: "[2001:db8::1]:443",
			want:       "2001:db8::1",
		},
		{
			name:       "remote addr without port",
			remoteAddr: "192.0.2.1",
			want:       "192.0.2.1",
		},
		{
			name:       "proxy headers ignored when untrusted",
			remoteAddr: "192.0.2.1:1234",
			headers:    map[string]string{"X-Forwarded-For": "203.0.113.7"},
			want:       "192.0.2.1",
		},
		{
			name:       "first forwarded address when trusted",
			remoteAddr: "192.0.2.1:1234",
			headers:    map[string]string{"X-Forwarded-For": "203.0.113.7, 10.0.0.1"},
			trustProxy: true,
			want:       "203.0.113.7",
		},
		{
			name:       "real ip when trusted",
			remoteAddr: "192.0.2.1:1234",
			headers:    map[string]string{"X-Real-IP": "203.0.113.8"},
			trustProxy: true,
			want:       "203.0.113.8",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remoteAddr
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}

			assert.Equal(t, tt.want, getClientIP(req, tt.trustProxy))
		})
	}
}
