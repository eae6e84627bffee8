package server

import (
	"context"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teemow/fittoken/internal/instrumentation"
)

func TestNewMetricsServer(t *testing.T) {
	tests := []struct {
		name        string
		config      MetricsServerConfig
		errContains string
	}{
		{
			name: "valid config",
			config: MetricsServerConfig{
				Addr:                    ":9090",
				InstrumentationProvider: createTestProvider(t, instrumentation.ExporterPrometheus),
			},
		},
		{
			name: "default addr",
			config: MetricsServerConfig{
				InstrumentationProvider: createTestProvider(t, instrumentation.ExporterPrometheus),
			},
		},
		{
			name:        "nil provider",
			config:      MetricsServerConfig{Addr: ":9090"},
			errContains: "instrumentation provider is required",
		},
		{
			name: "disabled provider",
			config: MetricsServerConfig{
				Addr:                    ":9090",
				InstrumentationProvider: createDisabledProvider(t),
			},
			errContains: "instrumentation provider is not enabled",
		},
		{
			name: "non-prometheus exporter",
			config: MetricsServerConfig{
				Addr:                    ":9090",
				InstrumentationProvider: createTestProvider(t, instrumentation.ExporterOTLP),
			},
			errContains: "does not export prometheus metrics",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server, err := NewMetricsServer(tt.config)
			if tt.errContains != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errContains)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, server)
		})
	}
}

func TestNewMetricsServer_DefaultAddr(t *testing.T) {
	server, err := NewMetricsServer(MetricsServerConfig{
		InstrumentationProvider: createTestProvider(t, instrumentation.ExporterPrometheus),
	})
	require.NoError(t, err)
	assert.Equal(t, DefaultMetricsAddr, server.Addr())
}

func TestMetricsServer_StartAndShutdown(t *testing.T) {
	provider := createTestProvider(t, instrumentation.ExporterPrometheus)
	provider.Metrics().RecordOAuthExchange(context.Background(), instrumentation.OAuthResultSuccess)

	server, err := NewMetricsServer(MetricsServerConfig{
		Addr:                    "127.0.0.1:0",
		InstrumentationProvider: provider,
	})
	require.NoError(t, err)

	ready := make(chan struct{})
	serverErr := make(chan error, 1)
	go func() {
		serverErr <- server.StartWithReadySignal(ready)
	}()

	select {
	case <-ready:
	case err := <-serverErr:
		t.Fatalf("metrics server failed to start: %v", err)
	case <-time.After(5 * time.Second):
		t.Fatal("metrics server did not become ready")
	}

	resp, err := http.Get("http://" + server.Addr() + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get("http://" + server.Addr() + "/metrics")
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "oauth_exchange_total")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, server.Shutdown(ctx))

	select {
	case err := <-serverErr:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("metrics server did not stop")
	}
}

func TestMetricsServer_StartBindError(t *testing.T) {
	server, err := NewMetricsServer(MetricsServerConfig{
		Addr:                    "127.0.0.1:-1",
		InstrumentationProvider: createTestProvider(t, instrumentation.ExporterPrometheus),
	})
	require.NoError(t, err)

	ready := make(chan struct{})
	err = server.StartWithReadySignal(ready)
	require.Error(t, err)

	select {
	case <-ready:
		t.Fatal("ready must not be closed when binding fails")
	default:
	}
}

func TestMetricsServer_ShutdownWithoutStart(t *testing.T) {
	server, err := NewMetricsServer(MetricsServerConfig{
		Addr:                    ":9090",
		InstrumentationProvider: createTestProvider(t, instrumentation.ExporterPrometheus),
	})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	assert.NoError(t, server.Shutdown(ctx))
}

// Helper functions

func createTestProvider(t *testing.T, metricsExporter string) *instrumentation.Provider {
	t.Helper()
	ctx := context.Background()
	provider, err := instrumentation.NewProvider(ctx, instrumentation.Config{
		ServiceVersion:  "1.0.0",
		Enabled:         true,
		MetricsExporter: metricsExporter,
		TracingExporter: instrumentation.ExporterNone,
		OTLPEndpoint:    "127.0.0.1:4318",
		OTLPInsecure:    true,
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		// An OTLP provider has no collector to flush to.
		shutdownCtx, cancel := context.WithTimeout(ctx, time.Second)
		defer cancel()
		_ = provider.Shutdown(shutdownCtx)
	})
	return provider
}

func createDisabledProvider(t *testing.T) *instrumentation.Provider {
	t.Helper()
	provider, err := instrumentation.NewProvider(context.Background(), instrumentation.Config{
		ServiceVersion: "1.0.0",
	})
	require.NoError(t, err)
	return provider
}
