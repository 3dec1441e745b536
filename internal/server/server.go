package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"vortexconv/internal/alert"
	"vortexconv/internal/config"
	"vortexconv/internal/history"
	"vortexconv/internal/logger"
	"vortexconv/internal/probe"
	"vortexconv/internal/stats"
	"vortexconv/internal/template"
)

// Server is the HTTP front end for conversion and health probing.
type Server struct {
	cfg      config.Config
	engine   *gin.Engine
	stats    *stats.Stats
	merger   *template.Merger
	prober   *probe.Prober
	notifier alert.Notifier
	history  *history.Recorder
	limiter  *ipLimiter
}

type Option func(*Server)

// WithMerger enables template merging. Without it every response is the
// bare aggregate, as if template=false were passed.
func WithMerger(m *template.Merger) Option {
	return func(s *Server) { s.merger = m }
}

func WithProber(p *probe.Prober) Option {
	return func(s *Server) { s.prober = p }
}

// WithNotifier sets where DOWN health checks are reported.
func WithNotifier(n alert.Notifier) Option {
	return func(s *Server) { s.notifier = n }
}

// WithHistory records every conversion run.
func WithHistory(r *history.Recorder) Option {
	return func(s *Server) { s.history = r }
}

func WithStats(st *stats.Stats) Option {
	return func(s *Server) { s.stats = st }
}

func New(cfg config.Config, opts ...Option) (*Server, error) {
	s := &Server{
		cfg:      cfg,
		stats:    stats.New(),
		notifier: alert.Nop,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.prober == nil {
		p, err := probe.New(cfg.Probe)
		if err != nil {
			return nil, err
		}
		s.prober = p
	}
	if cfg.Server.RateLimit.RPS > 0 {
		s.limiter = newIPLimiter(cfg.Server.RateLimit.RPS, cfg.Server.RateLimit.Burst)
	}

	s.engine = gin.New()
	if err := s.engine.SetTrustedProxies(nil); err != nil {
		return nil, fmt.Errorf("trusted proxies: %w", err)
	}
	s.engine.Use(gin.Recovery(), requestID(), s.countRequests(), accessLog(), s.rateLimit())
	s.routes()
	return s, nil
}

func (s *Server) routes() {
	s.engine.GET("/convert/:format", s.handleConvert)
	s.engine.POST("/convert/:format", s.handleConvert)
	s.engine.GET("/health", s.handleHealth)
	s.engine.GET("/stats", s.handleStats)
	s.engine.GET("/metrics", s.handleMetrics)
	s.engine.GET("/ping", s.handlePing)
}

func (s *Server) Handler() http.Handler {
	return s.engine
}

func (s *Server) Stats() *stats.Stats {
	return s.stats
}

// Run serves on addr until ctx is cancelled, then drains in-flight requests.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadTimeout:       s.cfg.Server.ReadTimeout,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Log.Infof("🚀 Listening on %s", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		logger.Log.Info("Shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
