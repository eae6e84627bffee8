package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/teemow/fittoken/internal/config"
	"github.com/teemow/fittoken/internal/instrumentation"
	"github.com/teemow/fittoken/internal/logging"
	"github.com/teemow/fittoken/internal/server"
)

const metricsStartupTimeout = 5 * time.Second

// serveFlags holds flag values. A flag only overrides the environment when it
// was set explicitly on the command line.
type serveFlags struct {
	clientID       string
	clientSecret   string
	redirectURL    string
	httpAddr       string
	httpTimeout    time.Duration
	rateLimit      int
	rateLimitBurst int
	trustProxy     bool
	metricsEnabled bool
	metricsAddr    string
	debug          bool
}

func newServeCmd() *cobra.Command {
	var flags serveFlags

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the token web endpoint",
		Long: `Start the web endpoint that issues Google Fit refresh tokens.

Routes:
  GET /                 Landing page with the "connect" link
  GET /authorize        Redirect to Google's consent screen
  GET /oauth2callback   Exchange the code and download <name>.json
  GET /healthz, /readyz Health probes

Configuration (environment, overridden by flags):
  CLIENT_ID, CLIENT_SECRET   Google OAuth client (required for the flow)
  REDIRECT_URL               Callback registered with Google
  HTTP_ADDR                  Listen address (default :8080)
  HTTP_TIMEOUT               Timeout of each call to Google (default 15s)
  RATE_LIMIT_RATE/BURST      Per-IP rate limit on the flow routes
  TRUST_PROXY                Use X-Forwarded-For for rate limiting
  METRICS_ENABLED/ADDR       Prometheus metrics server (default :9090)
  LOG_LEVEL                  debug, info, warn or error

Missing client credentials do not prevent startup: every flow request then
shows a configuration error page.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}

			applyFlagOverrides(cmd, &cfg, flags)

			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}

			return runServe(cmd.Context(), cfg)
		},
	}

	addServeFlags(cmd, &flags)
	return cmd
}

func addServeFlags(cmd *cobra.Command, flags *serveFlags) {
	fs := cmd.Flags()
	fs.StringVar(&flags.clientID, "client-id", "", "Google OAuth client ID. Can also use CLIENT_ID env var.")
	fs.StringVar(&flags.clientSecret, "client-secret", "", "Google OAuth client secret. Can also use CLIENT_SECRET env var.")
	fs.StringVar(&flags.redirectURL, "redirect-url", config.DefaultRedirectURL, "Callback URL registered with Google. Can also use REDIRECT_URL env var.")
	fs.StringVar(&flags.httpAddr, "http-addr", config.DefaultHTTPAddr, "HTTP server address. Can also use HTTP_ADDR env var.")
	fs.DurationVar(&flags.httpTimeout, "http-timeout", config.DefaultHTTPTimeout, "Timeout of each request to Google. Can also use HTTP_TIMEOUT env var.")
	fs.IntVar(&flags.rateLimit, "rate-limit", 10, "Requests per second per client IP on the flow routes (0 disables). Can also use RATE_LIMIT_RATE env var.")
	fs.IntVar(&flags.rateLimitBurst, "rate-limit-burst", 20, "Burst size of the rate limiter. Can also use RATE_LIMIT_BURST env var.")
	fs.BoolVar(&flags.trustProxy, "trust-proxy", false, "Trust X-Forwarded-For and X-Real-IP for rate limiting. Only enable behind a trusted proxy. Can also use TRUST_PROXY env var.")
	fs.BoolVar(&flags.metricsEnabled, "metrics-enabled", true, "Enable the metrics server on a dedicated port. Can also use METRICS_ENABLED env var.")
	fs.StringVar(&flags.metricsAddr, "metrics-addr", config.DefaultMetricsAddr, "Metrics server address. Can also use METRICS_ADDR env var.")
	fs.BoolVar(&flags.debug, "debug", false, "Enable debug logging")
}

// applyFlagOverrides copies explicitly set flags into cfg.
func applyFlagOverrides(cmd *cobra.Command, cfg *config.Config, flags serveFlags) {
	changed := cmd.Flags().Changed

	if changed("client-id") {
		cfg.ClientID = flags.clientID
	}
	if changed("client-secret") {
		cfg.ClientSecret = flags.clientSecret
	}
	if changed("redirect-url") {
		cfg.RedirectURL = flags.redirectURL
	}
	if changed("http-addr") {
		cfg.HTTPAddr = flags.httpAddr
	}
	if changed("http-timeout") {
		cfg.HTTPTimeout = flags.httpTimeout
	}
	if changed("rate-limit") {
		cfg.RateLimit = flags.rateLimit
	}
	if changed("rate-limit-burst") {
		cfg.RateLimitBurst = flags.rateLimitBurst
	}
	if changed("trust-proxy") {
		cfg.TrustProxy = flags.trustProxy
	}
	if changed("metrics-enabled") {
		cfg.MetricsEnabled = flags.metricsEnabled
	}
	if changed("metrics-addr") {
		cfg.MetricsAddr = flags.metricsAddr
	}
	if flags.debug {
		cfg.LogLevel = "debug"
	}
}

func runServe(ctx context.Context, cfg config.Config) error {
	level, err := logging.ParseLevel(cfg.LogLevel)
	if err != nil {
		return err
	}
	logger := logging.NewLogger(os.Stderr, level)
	slog.SetDefault(logger)

	if !cfg.Credentials().Complete() {
		logger.Warn("CLIENT_ID or CLIENT_SECRET is not set; the consent flow will report a configuration error")
	}
	if cfg.SecretKey == "" {
		logger.Warn("APP_SECRET_KEY is not set")
	}

	// Setup graceful shutdown
	shutdownCtx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// Initialize instrumentation provider
	instrConfig := instrumentation.NewConfig(cfg, version)

	provider, err := instrumentation.NewProvider(shutdownCtx, instrConfig)
	if err != nil {
		return fmt.Errorf("failed to create instrumentation provider: %w", err)
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := provider.Shutdown(flushCtx); err != nil {
			logger.Error("Error during instrumentation shutdown", logging.Err(err))
		}
	}()

	metricsServer, err := startMetricsServer(cfg, provider, logger)
	if err != nil {
		return err
	}
	if metricsServer != nil {
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := metricsServer.Shutdown(ctx); err != nil {
				logger.Error("Error during metrics server shutdown", logging.Err(err))
			}
		}()
	}

	srv := server.New(server.Options{
		Config:      cfg,
		Metrics:     provider.Metrics(),
		AuditLogger: instrumentation.NewAuditLoggerWithConfig(logger, instrConfig.AuditLogging),
		Logger:      logger,
		Version:     version,
	})

	logger.Info("Starting fittoken",
		slog.String("version", version),
		slog.String("addr", cfg.HTTPAddr),
		slog.String("redirect_url", cfg.RedirectURL),
		slog.Duration("http_timeout", cfg.HTTPTimeout))

	serverDone := make(chan error, 1)
	go func() {
		defer close(serverDone)
		if err := srv.Start(cfg.HTTPAddr); err != nil {
			serverDone <- err
		}
	}()

	select {
	case <-shutdownCtx.Done():
		logger.Info("Shutdown signal received, stopping HTTP server")
		ctx, cancel := context.WithTimeout(context.Background(), server.DefaultShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("error shutting down HTTP server: %w", err)
		}
	case err := <-serverDone:
		if err != nil {
			return fmt.Errorf("HTTP server stopped with error: %w", err)
		}
	}

	logger.Info("HTTP server gracefully stopped")
	return nil
}

// startMetricsServer starts the Prometheus server when metrics are enabled and
// exported through Prometheus. It returns nil when there is nothing to serve.
func startMetricsServer(cfg config.Config, provider *instrumentation.Provider, logger *slog.Logger) (*server.MetricsServer, error) {
	if !cfg.MetricsEnabled || !provider.Enabled() {
		return nil, nil
	}
	if !provider.ServesPrometheus() {
		logger.Info("Metrics are not exported through Prometheus, metrics server disabled")
		return nil, nil
	}

	metricsServer, err := server.NewMetricsServer(server.MetricsServerConfig{
		Addr:                    cfg.MetricsAddr,
		InstrumentationProvider: provider,
		Logger:                  logger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create metrics server: %w", err)
	}

	// Use ready channel to confirm metrics server started successfully
	metricsReady := make(chan struct{})
	metricsErr := make(chan error, 1)
	go func() {
		if err := metricsServer.StartWithReadySignal(metricsReady); err != nil && !errors.Is(err, http.ErrServerClosed) {
			metricsErr <- err
		}
		close(metricsErr)
	}()

	select {
	case <-metricsReady:
		logger.Info("Metrics server started", slog.String("addr", metricsServer.Addr()))
		return metricsServer, nil
	case err := <-metricsErr:
		return nil, fmt.Errorf("metrics server failed to start: %w", err)
	case <-time.After(metricsStartupTimeout):
		return nil, fmt.Errorf("metrics server startup timed out")
	}
}
