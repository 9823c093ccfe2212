// Package server exposes the meetplot analysis pipeline over HTTP.
//
// The API surface:
//
//	POST /v1/analyses           raw transcript body → analysis report
//	GET  /v1/analyses           list stored analyses, newest first
//	GET  /v1/analyses/{id}      load one stored analysis
//	GET  /v1/search             full-text search over stored segments
//	GET  /v1/search/semantic    embedding search over indexed segments
//	GET  /healthz, /readyz      liveness and readiness probes
//	GET  /metrics               Prometheus scrape endpoint
//
// Storage, the semantic index, and the embedder are all optional
// collaborators; endpoints that need a missing one respond 503.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/meetplot/meetplot/internal/health"
	"github.com/meetplot/meetplot/internal/observe"
	"github.com/meetplot/meetplot/internal/report"
	"github.com/meetplot/meetplot/internal/store"
	"github.com/meetplot/meetplot/internal/transcript"
	"github.com/meetplot/meetplot/pkg/provider/embeddings"
)

const (
	// defaultMaxBodyBytes caps the size of an uploaded transcript. A day-long
	// meeting transcript is well under a megabyte; 10 MiB leaves headroom.
	defaultMaxBodyBytes = 10 << 20

	shutdownTimeout = 15 * time.Second
)

// Server is the HTTP front end. Construct with [New], then either mount
// [Server.Handler] yourself or call [Server.Run].
type Server struct {
	addr     string
	tlsCert  string
	tlsKey   string
	analyses store.AnalysisStore
	semantic store.SemanticIndex
	embedder embeddings.Provider
	health   *health.Handler
	metrics  *observe.Metrics
	logger   *slog.Logger
	maxBody  int64

	// mu guards the hot-reloadable pipeline settings below.
	mu        sync.RWMutex
	composer  *report.Composer
	parseOpts []transcript.Option
}

// Option is a functional option for [New].
type Option func(*Server)

// WithStore sets the analysis store. Without one, POST responses carry no ID
// and the read endpoints respond 503.
func WithStore(s store.AnalysisStore) Option {
	return func(srv *Server) { srv.analyses = s }
}

// WithSemanticIndex sets the semantic index used by /v1/search/semantic and
// populated after each successful save.
func WithSemanticIndex(s store.SemanticIndex) Option {
	return func(srv *Server) { srv.semantic = s }
}

// WithEmbedder sets the embeddings provider that feeds the semantic index.
func WithEmbedder(p embeddings.Provider) Option {
	return func(srv *Server) { srv.embedder = p }
}

// WithComposer sets the report composer. Defaults to a composer without
// collaborators (structural sections only).
func WithComposer(c *report.Composer) Option {
	return func(srv *Server) { srv.composer = c }
}

// WithParseOptions sets the transcript parse options applied to every
// uploaded transcript.
func WithParseOptions(opts ...transcript.Option) Option {
	return func(srv *Server) { srv.parseOpts = opts }
}

// WithHealth sets the health handler serving /healthz and /readyz.
// Defaults to a handler with no readiness checks.
func WithHealth(h *health.Handler) Option {
	return func(srv *Server) { srv.health = h }
}

// WithMetrics sets the metrics sink. Defaults to [observe.DefaultMetrics].
func WithMetrics(m *observe.Metrics) Option {
	return func(srv *Server) { srv.metrics = m }
}

// WithLogger sets the logger. Defaults to [slog.Default].
func WithLogger(l *slog.Logger) Option {
	return func(srv *Server) { srv.logger = l }
}

// WithTLS enables TLS with the given certificate and key files.
func WithTLS(certFile, keyFile string) Option {
	return func(srv *Server) {
		srv.tlsCert = certFile
		srv.tlsKey = keyFile
	}
}

// WithMaxBodyBytes overrides the upload size cap.
func WithMaxBodyBytes(n int64) Option {
	return func(srv *Server) {
		if n > 0 {
			srv.maxBody = n
		}
	}
}

// New creates a [Server] listening on addr once [Server.Run] is called.
func New(addr string, opts ...Option) *Server {
	srv := &Server{
		addr:    addr,
		maxBody: defaultMaxBodyBytes,
	}
	for _, o := range opts {
		o(srv)
	}
	if srv.composer == nil {
		srv.composer = report.NewComposer()
	}
	if srv.health == nil {
		srv.health = health.New()
	}
	if srv.metrics == nil {
		srv.metrics = observe.DefaultMetrics()
	}
	if srv.logger == nil {
		srv.logger = slog.Default()
	}
	return srv
}

// SetParseOptions replaces the parse options applied to subsequent uploads.
// Used by the config watcher for hot reload.
func (s *Server) SetParseOptions(opts ...transcript.Option) {
	s.mu.Lock()
	s.parseOpts = opts
	s.mu.Unlock()
}

// SetComposer replaces the report composer used for subsequent uploads.
// Used by the config watcher for hot reload.
func (s *Server) SetComposer(c *report.Composer) {
	if c == nil {
		return
	}
	s.mu.Lock()
	s.composer = c
	s.mu.Unlock()
}

// pipeline returns the composer and parse options as a consistent pair.
func (s *Server) pipeline() (*report.Composer, []transcript.Option) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.composer, s.parseOpts
}

// Handler returns the complete route tree wrapped in the observability
// middleware.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /v1/analyses", s.handleCreateAnalysis)
	mux.HandleFunc("GET /v1/analyses", s.handleListAnalyses)
	mux.HandleFunc("GET /v1/analyses/{id}", s.handleGetAnalysis)
	mux.HandleFunc("GET /v1/search", s.handleSearch)
	mux.HandleFunc("GET /v1/search/semantic", s.handleSemanticSearch)

	s.health.Register(mux)
	mux.Handle("GET /metrics", promhttp.Handler())

	return observe.Middleware(s.metrics)(mux)
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	httpSrv := &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", "addr", s.addr, "tls", s.tlsCert != "")
		var err error
		if s.tlsCert != "" {
			err = httpSrv.ListenAndServeTLS(s.tlsCert, s.tlsKey)
		} else {
			err = httpSrv.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server: shutdown: %w", err)
	}
	return nil
}
