package api

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"
	"time"

	"grimm.is/firegate/internal/allowlist"
	"grimm.is/firegate/internal/audit"
	"grimm.is/firegate/internal/clock"
	"grimm.is/firegate/internal/config"
	"grimm.is/firegate/internal/firewall"
	"grimm.is/firegate/internal/i18n"
	"grimm.is/firegate/internal/logging"
	"grimm.is/firegate/internal/metrics"
	"grimm.is/firegate/internal/ratelimit"
	"grimm.is/firegate/internal/scheduler"
)

// ServerConfig holds HTTP server timeouts.
type ServerConfig struct {
	ReadHeaderTimeout time.Duration
	ReadTimeout       time.Duration
	WriteTimeout      time.Duration
	IdleTimeout       time.Duration
	MaxHeaderBytes    int
	ShutdownTimeout   time.Duration
}

// DefaultServerConfig returns the server timeouts. WriteTimeout leaves room
// for a queued grant plus two firewall-cmd runs.
func DefaultServerConfig() *ServerConfig {
	return &ServerConfig{
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 16,
		ShutdownTimeout:   15 * time.Second,
	}
}

// Granter applies grants; allowlist.Coordinator implements it.
type Granter interface {
	Grant(ctx context.Context, req allowlist.GrantRequest) (allowlist.GrantResult, error)
}

// History reads audit events; audit.Store implements it.
type History interface {
	Query(ctx context.Context, f audit.Filter) ([]audit.Event, error)
}

// Tasks reports scheduled task state; scheduler.Scheduler implements it.
type Tasks interface {
	IsRunning() bool
	GetStatus() []scheduler.TaskStatus
}

// ServerOptions holds dependencies for the API server.
type ServerOptions struct {
	Config  *config.Config
	Granter Granter
	Gateway firewall.Gateway
	Table   *allowlist.Table
	History History // optional
	Tasks   Tasks   // optional
	Limiter *ratelimit.Limiter
	Metrics *metrics.Registry
	Logger  *logging.Logger
}

// Server handles API requests.
type Server struct {
	cfg     *config.Config
	granter Granter
	gateway firewall.Gateway
	table   *allowlist.Table
	history History
	tasks   Tasks
	limiter *ratelimit.Limiter
	metrics *metrics.Registry
	auth    *Authenticator
	logger  *logging.Logger
	mux     *http.ServeMux
}

// NewServer creates a new API server with the provided options.
func NewServer(opts ServerOptions) (*Server, error) {
	if opts.Config == nil {
		return nil, errors.New("api: config is required")
	}
	if opts.Granter == nil || opts.Gateway == nil || opts.Table == nil {
		return nil, errors.New("api: granter, gateway and table are required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.Default()
	}

	s := &Server{
		cfg:     opts.Config,
		granter: opts.Granter,
		gateway: opts.Gateway,
		table:   opts.Table,
		history: opts.History,
		tasks:   opts.Tasks,
		limiter: opts.Limiter,
		metrics: opts.Metrics,
		auth:    NewAuthenticator(opts.Config.Secret, opts.Config.Plain),
		logger:  logger.WithComponent("api"),
		mux:     http.NewServeMux(),
	}
	s.initRoutes()
	return s, nil
}

func (s *Server) initRoutes() {
	prefix := s.cfg.Endpoint

	s.handle("add", prefix+"/add", s.handleAdd)
	s.handle("list", prefix+"/list", s.handleList)
	s.handle("grants", prefix+"/grants", s.handleGrants)
	if s.history != nil {
		s.handle("history", prefix+"/history", s.handleHistory)
	}
	if s.tasks != nil {
		s.handle("status", prefix+"/status", s.handleStatus)
	}
	if s.cfg.Metrics && s.metrics != nil {
		s.mux.Handle("GET "+prefix+"/metrics", s.metrics.Handler())
	}
	if s.cfg.Test {
		s.handle("root", "/{$}", s.handleSmokeTest)
	}
}

// handle registers h under path, answering CORS preflights and counting
// requests per route.
func (s *Server) handle(route, path string, h http.HandlerFunc) {
	s.mux.HandleFunc(path, func(w http.ResponseWriter, r *http.Request) {
		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		defer func() { s.metrics.RecordAPIRequest(route, rw.statusCode) }()

		switch r.Method {
		case http.MethodOptions:
			setCORS(rw)
			rw.WriteHeader(http.StatusNoContent)
		case http.MethodGet, http.MethodHead, http.MethodPost:
			h(rw, r)
		default:
			rw.Header().Set("Allow", "GET, POST, OPTIONS")
			WriteJSON(rw, http.StatusMethodNotAllowed, errorResponse("method not allowed."))
		}
	})
}

// Handler returns the complete handler chain.
func (s *Server) Handler() http.Handler {
	return s.loggingMiddleware(i18n.Middleware(s.mux))
}

// Serve runs the server on ln until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	cfg := DefaultServerConfig()
	server := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		ReadTimeout:       cfg.ReadTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		MaxHeaderBytes:    cfg.MaxHeaderBytes,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("API server listening", "addr", ln.Addr().String(), "endpoint", s.cfg.Endpoint)
		errCh <- server.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return err
	}
	s.logger.Info("API server stopped")
	return nil
}

// loggingMiddleware logs all API requests.
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := clock.Now()
		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(wrapped, r)

		if strings.HasSuffix(r.URL.Path, "/metrics") {
			return
		}
		args := []any{
			"method", r.Method,
			"path", r.URL.Path,
			"status", wrapped.statusCode,
			"remote", getClientIP(r, s.cfg.TrustsProxy()),
			"duration", time.Since(start).Round(time.Millisecond),
		}
		switch {
		case wrapped.statusCode >= 500:
			s.logger.Error("request", args...)
		case wrapped.statusCode >= 400:
			s.logger.Warn("request", args...)
		default:
			s.logger.Debug("request", args...)
		}
	})
}
