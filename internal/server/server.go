package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"mime"
	"net"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/oauth2"

	"github.com/teemow/fittoken/internal/config"
	"github.com/teemow/fittoken/internal/google"
	"github.com/teemow/fittoken/internal/instrumentation"
	"github.com/teemow/fittoken/internal/logging"
	"github.com/teemow/fittoken/internal/pages"
)

// Routes served by the web endpoint.
const (
	RouteHome      = pages.HomePath
	RouteAuthorize = pages.AuthorizePath
	RouteCallback  = "/oauth2callback"
)

const (
	contentTypeHTML = "text/html; charset=utf-8"
	contentTypeJSON = "application/json"

	readHeaderTimeout = 10 * time.Second
	idleTimeout       = 120 * time.Second
)

// Options configures a Server. Only Config is required; every other field has
// a production default.
type Options struct {
	Config config.Config

	// OAuthConfig overrides the client configuration built from Config.
	OAuthConfig *oauth2.Config

	// UserInfoEndpoint overrides the base URL of Google's OAuth2 API.
	UserInfoEndpoint string

	Exchanger   Exchanger
	UserInfo    UserInfoFetcher
	Metrics     *instrumentation.Metrics
	AuditLogger *instrumentation.AuditLogger
	Logger      *slog.Logger

	// RateLimiter limits the OAuth routes. When nil one is created from
	// Config unless Config.RateLimit is zero.
	RateLimiter *RateLimiter
	Health      *HealthChecker
	Version     string

	Now           func() time.Time
	NewIncidentID func() string
}

// Server is the web endpoint that walks a browser through Google's consent
// screen and hands back the resulting refresh token as a download.
type Server struct {
	cfg         config.Config
	creds       config.Credentials
	oauthConfig *oauth2.Config

	exchanger   Exchanger
	userInfo    UserInfoFetcher
	metrics     *instrumentation.Metrics
	auditLogger *instrumentation.AuditLogger
	logger      *slog.Logger
	rateLimiter *RateLimiter
	ownsLimiter bool
	health      *HealthChecker

	now           func() time.Time
	newIncidentID func() string

	handler    http.Handler
	httpServer *http.Server
}

// New creates a Server from opts.
func New(opts Options) *Server {
	cfg := opts.Config

	s := &Server{
		cfg:           cfg,
		creds:         cfg.Credentials(),
		oauthConfig:   opts.OAuthConfig,
		exchanger:     opts.Exchanger,
		userInfo:      opts.UserInfo,
		metrics:       opts.Metrics,
		auditLogger:   opts.AuditLogger,
		logger:        opts.Logger,
		rateLimiter:   opts.RateLimiter,
		health:        opts.Health,
		now:           opts.Now,
		newIncidentID: opts.NewIncidentID,
	}

	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.metrics == nil {
		s.metrics = &instrumentation.Metrics{}
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.newIncidentID == nil {
		s.newIncidentID = uuid.NewString
	}
	if s.health == nil {
		s.health = NewHealthChecker(opts.Version, s.creds.Complete())
	}
	if s.oauthConfig == nil {
		s.oauthConfig = google.NewOAuthConfig(s.creds, cfg.RedirectURL)
	}

	timeout := cfg.HTTPTimeout
	if timeout <= 0 {
		timeout = config.DefaultHTTPTimeout
	}
	httpClient := &http.Client{Timeout: timeout}

	if s.exchanger == nil {
		s.exchanger = google.NewExchanger(s.oauthConfig, httpClient)
	}
	if s.userInfo == nil {
		s.userInfo = google.NewUserInfoFetcher(httpClient, opts.UserInfoEndpoint)
	}
	s.exchanger = &instrumentedExchanger{next: s.exchanger, metrics: s.metrics}
	s.userInfo = &instrumentedUserInfo{next: s.userInfo, metrics: s.metrics}

	if s.rateLimiter == nil && cfg.RateLimit > 0 {
		s.rateLimiter = NewRateLimiter(cfg.RateLimit, cfg.RateLimitBurst, cfg.TrustProxy)
		s.ownsLimiter = true
	}

	s.handler = s.routes()
	return s
}

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()

	s.handleFlow(mux, "GET /{$}", RouteHome, s.handleIndex)
	s.handleFlow(mux, "GET "+RouteAuthorize, RouteAuthorize, s.handleAuthorize)
	s.handleFlow(mux, "GET "+RouteCallback, RouteCallback, s.handleCallback)

	s.health.RegisterHealthEndpoints(mux)

	return securityHeaders(s.cfg.RedirectURL, mux)
}

// handleFlow registers a user-facing route with rate limiting and metrics.
func (s *Server) handleFlow(mux *http.ServeMux, pattern, route string, h http.HandlerFunc) {
	var handler http.Handler = h
	if s.rateLimiter != nil {
		handler = s.rateLimiter.Middleware(handler)
	}
	mux.Handle(pattern, instrumentHTTP(s.metrics, route, handler))
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

// Handler returns the root handler of the web endpoint.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Start listens on addr and serves until Shutdown is called.
func (s *Server) Start(addr string) error {
	return s.StartWithReadySignal(addr, nil)
}

// StartWithReadySignal is like Start but closes ready once the listener is
// bound. It returns nil after a graceful shutdown.
func (s *Server) StartWithReadySignal(addr string, ready chan<- struct{}) error {
	if err := validateHTTPSRequirement(s.cfg.RedirectURL); err != nil {
		s.logger.Warn("Redirect URL is not HTTPS", logging.Err(err))
	}
	if !s.creds.Complete() {
		s.logger.Warn("CLIENT_ID or CLIENT_SECRET is not set; every flow request will show the configuration error page")
	}

	// The callback makes two sequential outbound calls, each bounded by the timeout
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.handler,
		ReadHeaderTimeout: readHeaderTimeout,
		WriteTimeout:      2*s.cfg.HTTPTimeout + 10*time.Second,
		IdleTimeout:       idleTimeout,
	}

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	s.logger.Info("Starting web server", slog.String("addr", listener.Addr().String()))
	if ready != nil {
		close(ready)
	}

	if err := s.httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("web server error: %w", err)
	}
	return nil
}

// Shutdown fails readiness, then gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.health.MarkShuttingDown()
	if s.ownsLimiter {
		s.rateLimiter.Stop()
	}
	if s.httpServer != nil {
		return s.httpServer.Shutdown(ctx)
	}
	return nil
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	body, err := pages.RenderLanding()
	if err != nil {
		s.renderFailure(w, r, err)
		return
	}
	writeHTML(w, body)
}

func (s *Server) handleAuthorize(w http.ResponseWriter, r *http.Request) {
	if !s.creds.Complete() {
		s.logger.WarnContext(r.Context(), "Authorization requested without client credentials",
			logging.Route(RouteAuthorize))
		s.renderError(w, r, configurationError(msgCredentialsMissingAuthorize))
		return
	}

	http.Redirect(w, r, google.AuthCodeURL(s.oauthConfig), http.StatusFound)
}

// download is a credential file ready to be sent to the browser.
type download struct {
	body   []byte
	stem   string
	source google.StemSource
	email  string
}

func (s *Server) handleCallback(w http.ResponseWriter, r *http.Request) {
	ctx, span := instrumentation.StartSpan(r.Context(), "oauth2callback")
	defer span.End()

	issuance := instrumentation.NewTokenIssuance().WithSpanContext(ctx)
	logger := logging.WithOperation(s.logger, "oauth2callback")

	dl, perr := s.issueToken(ctx, r, logger)
	if perr != nil {
		var exErr *google.ExchangeError
		if errors.As(perr.Err, &exErr) {
			issuance.WithGoogleError(exErr.Code)
		}
		issuance.WithIncident(perr.Incident).Complete(perr.Outcome, perr.Err)
		s.auditLogger.LogIssuance(ctx, issuance)
		instrumentation.SetSpanError(span, perr)

		s.renderError(w, r.WithContext(ctx), perr)
		return
	}

	issuance.WithUser(dl.email).WithStemSource(string(dl.source)).Complete(instrumentation.OutcomeIssued, nil)
	s.auditLogger.LogIssuance(ctx, issuance)
	s.metrics.RecordTokenDownload(ctx, string(dl.source), dl.email)
	span.SetAttributes(attribute.String(instrumentation.SpanAttrStemSource, string(dl.source)))
	instrumentation.SetSpanSuccess(span)

	filename := dl.stem + ".json"
	logger.InfoContext(ctx, "Token generated and sent for download",
		slog.String("filename", filename),
		logging.StemSource(string(dl.source)),
		logging.UserHash(dl.email))

	w.Header().Set("Content-Type", contentTypeJSON)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": filename}))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(dl.body)
}

// issueToken runs the callback flow: configuration check, code check, one
// exchange attempt, then a best-effort profile lookup for the file name.
func (s *Server) issueToken(ctx context.Context, r *http.Request, logger *slog.Logger) (*download, *pageError) {
	if !s.creds.Complete() {
		return nil, configurationError(msgCredentialsMissing)
	}

	query := r.URL.Query()
	code := query.Get("code")
	if code == "" {
		if googleErr := query.Get("error"); googleErr != "" {
			logger.InfoContext(ctx, "Authorization was not granted", slog.String("google_error", googleErr))
		}
		return nil, authorizationDeniedError()
	}

	token, err := s.exchanger.Exchange(ctx, code)
	if err != nil {
		var exErr *google.ExchangeError
		if errors.As(err, &exErr) {
			return nil, exchangeError(err, s.cfg.RedirectURL, "")
		}
		incident := s.newIncidentID()
		logger.ErrorContext(ctx, "Token exchange failed", logging.Err(err), logging.Incident(incident))
		return nil, exchangeError(err, s.cfg.RedirectURL, incident)
	}

	logger.DebugContext(ctx, "Authorization code exchanged",
		slog.String("refresh_token", logging.SanitizeToken(token.RefreshToken)))

	info, err := s.userInfo.Fetch(ctx, token.AccessToken)
	if err != nil {
		logger.WarnContext(ctx, "User info lookup failed, naming file by timestamp", logging.Err(err))
		info = nil
	}

	stem, source := google.FilenameStem(info, s.now())
	logger.DebugContext(ctx, "Derived file name", logging.StemSource(string(source)))

	body, err := google.NewTokenBundle(token.RefreshToken, s.creds).Marshal()
	if err != nil {
		incident := s.newIncidentID()
		logger.ErrorContext(ctx, "Failed to encode token bundle", logging.Err(err), logging.Incident(incident))
		return nil, exchangeError(err, s.cfg.RedirectURL, incident)
	}

	dl := &download{body: body, stem: stem, source: source}
	if info != nil {
		dl.email = info.Email
	}
	return dl, nil
}

// renderError writes the error page. Flow errors are reported with status 200.
func (s *Server) renderError(w http.ResponseWriter, r *http.Request, perr *pageError) {
	s.logger.DebugContext(r.Context(), "Rendering error page",
		slog.String("outcome", perr.Outcome),
		logging.Err(perr.Err))

	body, err := pages.RenderError(perr.Title, perr.Detail)
	if err != nil {
		s.renderFailure(w, r, err)
		return
	}
	writeHTML(w, body)
}

func (s *Server) renderFailure(w http.ResponseWriter, r *http.Request, err error) {
	s.logger.ErrorContext(r.Context(), "Failed to render page", logging.Err(err))
	http.Error(w, "internal server error", http.StatusInternalServerError)
}

func writeHTML(w http.ResponseWriter, body []byte) {
	w.Header().Set("Content-Type", contentTypeHTML)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}
