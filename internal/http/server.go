package http

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"caixa/internal/core"
	"caixa/internal/log"
	"caixa/internal/middleware/ratelimit"
	"caixa/internal/middleware/security"
	"caixa/internal/middleware/trace"
)

// ReportAPI is the part of the report service the handlers use.
type ReportAPI interface {
	Build(ctx context.Context, f core.Filter) (core.Report, error)
	Import(ctx context.Context, titles []core.Title) (int, error)
	RequestRefresh(ctx context.Context, f core.Filter) (uuid.UUID, error)
}

// ReadyCheck reports whether a dependency can serve requests.
type ReadyCheck func(ctx context.Context) error

type Server struct {
	http.Server
	reports  ReportAPI
	logger   *slog.Logger
	ready    map[string]ReadyCheck
	started  time.Time
	limiter  *ratelimit.Limiter
	tracer   *trace.Middleware
	detector *security.Detector

	buildTimeout time.Duration
	shutdownOnce sync.Once
}

type ServerOption func(*Server)

// WithReadyCheck adds a named dependency check to /readyz.
func WithReadyCheck(name string, check ReadyCheck) ServerOption {
	return func(s *Server) { s.ready[name] = check }
}

// WithRateLimit overrides the write-endpoint rate limit.
func WithRateLimit(cfg ratelimit.Config) ServerOption {
	return func(s *Server) {
		if s.limiter != nil {
			s.limiter.Stop()
		}
		s.limiter = ratelimit.NewLimiter(cfg)
	}
}

// WithBuildTimeout bounds synchronous report builds.
func WithBuildTimeout(d time.Duration) ServerOption {
	return func(s *Server) { s.buildTimeout = d }
}

// NewServer configures routes and middleware, returning a ready-to-run http.Server.
func NewServer(addr string, reports ReportAPI, logger *slog.Logger, opts ...ServerOption) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With(log.FieldComponent, log.ComponentHTTP)
	detector := security.NewDetector()

	s := &Server{
		reports:      reports,
		logger:       logger,
		ready:        make(map[string]ReadyCheck),
		started:      time.Now(),
		detector:     detector,
		tracer:       trace.NewMiddleware(detector.ExtractClientIP, logger),
		buildTimeout: 60 * time.Second,
	}
	s.limiter = ratelimit.NewLimiter(ratelimit.DefaultConfig())
	for _, opt := range opts {
		opt(s)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.HandleFunc("GET /api/report", s.handleReport)
	mux.HandleFunc("GET /api/report.xlsx", s.handleReportXLSX)
	mux.HandleFunc("POST /api/titles", s.handleImportTitles)
	mux.HandleFunc("POST /api/report/refresh", s.handleRefresh)

	var h http.Handler = mux
	h = s.limiter.Middleware(detector.ExtractClientIP, s.onRateLimit, http.MethodPost)(h)
	h = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(h)
	h = detector.Middleware(logger)(h)
	h = log.Middleware(logger, trace.GetRequestID)(h)
	h = s.tracer.Middleware(h)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      2 * time.Minute,
		IdleTimeout:       2 * time.Minute,
	}
	return s
}

func (s *Server) onRateLimit(w http.ResponseWriter, r *http.Request) {
	s.logger.WarnContext(r.Context(), "Rate limit exceeded",
		log.FieldClientIP, s.detector.ExtractClientIP(r),
		log.FieldMethod, r.Method,
		log.FieldPath, r.URL.Path)
	ErrorResponse(http.StatusTooManyRequests, "rate limit exceeded", trace.GetRequestID(r.Context())).Write(w)
}

// Shutdown gracefully shuts down the server and its background routines.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		err = s.Server.Shutdown(ctx)
	})
	return err
}
