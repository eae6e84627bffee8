package server

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"
)

const (
	// rateLimitCleanupInterval is how often idle buckets are swept.
	rateLimitCleanupInterval = 5 * time.Minute

	// rateLimitIdleTimeout is how long a bucket may stay unused before removal.
	rateLimitIdleTimeout = 10 * time.Minute
)

// RateLimiter implements a token bucket rate limiter per IP address
type RateLimiter struct {
	mu         sync.RWMutex
	limiters   map[string]*bucket
	rate       int  // tokens per second
	burst      int  // max burst size
	trustProxy bool // whether to trust proxy headers

	stopOnce sync.Once
	stop     chan struct{}
}

// bucket represents a token bucket for rate limiting
type bucket struct {
	tokens     float64
	lastUpdate time.Time
	mu         sync.Mutex
}

// NewRateLimiter creates a new rate limiter and starts its cleanup goroutine.
// rate: tokens per second, burst: maximum burst size (at least 1),
// trustProxy: whether to trust proxy headers. Call Stop to end the cleanup.
func NewRateLimiter(rate, burst int, trustProxy bool) *RateLimiter {
	if burst < 1 {
		burst = 1
	}
	rl := &RateLimiter{
		limiters:   make(map[string]*bucket),
		rate:       rate,
		burst:      burst,
		trustProxy: trustProxy,
		stop:       make(chan struct{}),
	}

	go rl.cleanupInactiveLimiters(rateLimitCleanupInterval)

	return rl
}

// Allow checks if a request from the given IP should be allowed
func (rl *RateLimiter) Allow(ip string) bool {
	rl.mu.RLock()
	b, exists := rl.limiters[ip]
	rl.mu.RUnlock()

	if !exists {
		rl.mu.Lock()
		// Another request may have created the bucket in the meantime
		if b, exists = rl.limiters[ip]; !exists {
			b = &bucket{
				tokens:     float64(rl.burst),
				lastUpdate: time.Now(),
			}
			rl.limiters[ip] = b
		}
		rl.mu.Unlock()
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	now := time.Now()
	elapsed := now.Sub(b.lastUpdate).Seconds()

	// Add tokens based on elapsed time
	b.tokens += elapsed * float64(rl.rate)
	if b.tokens > float64(rl.burst) {
		b.tokens = float64(rl.burst)
	}
	b.lastUpdate = now

	if b.tokens >= 1 {
		b.tokens--
		return true
	}

	return false
}

// Stop ends the cleanup goroutine. It is safe to call more than once.
func (rl *RateLimiter) Stop() {
	rl.stopOnce.Do(func() { close(rl.stop) })
}

// cleanupInactiveLimiters removes limiters that haven't been used recently
func (rl *RateLimiter) cleanupInactiveLimiters(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-rl.stop:
			return
		case now := <-ticker.C:
			rl.sweep(now)
		}
	}
}

func (rl *RateLimiter) sweep(now time.Time) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	for ip, b := range rl.limiters {
		b.mu.Lock()
		if now.Sub(b.lastUpdate) > rateLimitIdleTimeout {
			delete(rl.limiters, ip)
		}
		b.mu.Unlock()
	}
}

// Middleware rejects requests over the limit with 429 and a Retry-After header.
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := getClientIP(r, rl.trustProxy)

		if !rl.Allow(ip) {
			w.Header().Set("Retry-After", "1")
			http.Error(w, "rate limit exceeded, please try again later", http.StatusTooManyRequests)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// getClientIP extracts the client IP address from the request
// trustProxy: if true, trust X-Forwarded-For and X-Real-IP headers (only if behind trusted proxy)
func getClientIP(r *http.Request, trustProxy bool) string {
	if trustProxy {
		// Take the first IP if multiple
		if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
			first, _, _ := strings.Cut(xff, ",")
			return strings.TrimSpace(first)
		}

		if xri := r.Header.Get("X-Real-IP"); xri != "" {
			return strings.TrimSpace(xri)
		}
	}

	// Fall back to RemoteAddr (always trusted)
	return extractIPFromAddr(r.RemoteAddr)
}

// extractIPFromAddr extracts the IP address from "IP:port" or "[IPv6]:port" format
func extractIPFromAddr(addr string) string {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return addr
	}
	return host
}
