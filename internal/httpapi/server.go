// Package httpapi serves the toast stack over HTTP and a websocket stream.
package httpapi

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/jmylchreest/toastd/internal/metrics"
	"github.com/jmylchreest/toastd/internal/stack"
)

// DefaultStreamPing is the websocket keepalive interval.
const DefaultStreamPing = 30 * time.Second

const (
	writeWait      = 10 * time.Second
	maxRequestBody = 1 << 20
	tracerName     = "toastd/httpapi"
)

// Config holds the optional collaborators of a Server.
type Config struct {
	Logger *slog.Logger

	// Expirer honours the duration field. Nil ignores durations.
	Expirer *stack.Expirer

	// Metrics instruments requests. MetricsHandler is mounted at /metrics when set.
	Metrics        *metrics.HTTP
	MetricsHandler http.Handler

	// StreamPing is the websocket keepalive interval (default 30s).
	StreamPing time.Duration

	// Tracer defaults to the global tracer provider's tracer.
	Tracer trace.Tracer
}

// Server exposes a stack.Manager over HTTP.
type Server struct {
	stack    *stack.Manager
	expirer  *stack.Expirer
	logger   *slog.Logger
	tracer   trace.Tracer
	upgrader websocket.Upgrader
	ping     time.Duration
	router   chi.Router

	closeOnce sync.Once
	closing   chan struct{}
}

// New creates a Server for m.
func New(m *stack.Manager, cfg Config) *Server {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.StreamPing <= 0 {
		cfg.StreamPing = DefaultStreamPing
	}
	if cfg.Tracer == nil {
		cfg.Tracer = otel.Tracer(tracerName)
	}

	s := &Server{
		stack:   m,
		expirer: cfg.Expirer,
		logger:  cfg.Logger,
		tracer:  cfg.Tracer,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			// Local clients only; the listener is bound to loopback by default
			CheckOrigin: func(*http.Request) bool { return true },
		},
		ping:    cfg.StreamPing,
		closing: make(chan struct{}),
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(requestLogger(s.logger))
	r.Use(middleware.Recoverer)
	r.Use(tracing(s.tracer))
	if cfg.Metrics != nil {
		r.Use(cfg.Metrics.Middleware)
	}

	r.Get("/healthz", s.handleHealth)
	if cfg.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", cfg.MetricsHandler)
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/toasts", s.handleShow)
		r.Post("/toasts/hide-all", s.handleHideAll)
		r.Get("/toasts/{id}", s.handleGet)
		r.Patch("/toasts/{id}", s.handleUpdate)
		r.Delete("/toasts/{id}", s.handleDestroy)
		r.Post("/toasts/{id}/hide", s.handleHide)
		r.Get("/state", s.handleState)
		r.Put("/visible", s.handleVisible)
		r.Post("/unfold", s.handleUnfold)
		r.Get("/stream", s.handleStream)
	})

	s.router = r
	return s
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Close ends open streams.
func (s *Server) Close() {
	s.closeOnce.Do(func() { close(s.closing) })
}

// ListenAndServe serves on addr until ctx is done, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is done.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http api listening", "addr", ln.Addr().String())
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	s.Close()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown http server: %w", err)
	}
	return nil
}

// requestLogger logs each request with slog once it completes.
func requestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			logger.Debug("http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start),
				"request_id", middleware.GetReqID(r.Context()),
			)
		})
	}
}
