// Package metrics exposes stack activity as Prometheus metrics.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/jmylchreest/toastd/internal/stack"
)

// Config configures the collectors.
type Config struct {
	// Namespace prefixes every metric name (default: "toastd").
	Namespace string

	// Registry receives the collectors (default: prometheus.DefaultRegisterer).
	Registry prometheus.Registerer

	// Buckets are the histogram buckets for request duration.
	Buckets []float64
}

// Option configures the collectors.
type Option func(*Config)

// WithNamespace sets the metric namespace.
func WithNamespace(namespace string) Option {
	return func(c *Config) {
		c.Namespace = namespace
	}
}

// WithRegistry sets the Prometheus registry.
func WithRegistry(registry prometheus.Registerer) Option {
	return func(c *Config) {
		c.Registry = registry
	}
}

// WithBuckets sets the request duration buckets.
func WithBuckets(buckets []float64) Option {
	return func(c *Config) {
		c.Buckets = buckets
	}
}

func newConfig(opts []Option) Config {
	cfg := Config{
		Namespace: "toastd",
		Registry:  prometheus.DefaultRegisterer,
		Buckets:   prometheus.DefBuckets,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

// Stack counts stack events and reports the committed state at scrape time.
type Stack struct {
	events   *prometheus.CounterVec
	tracked  prometheus.GaugeFunc
	history  prometheus.GaugeFunc
	open     prometheus.GaugeFunc
	unfolded prometheus.GaugeFunc
	visible  prometheus.GaugeFunc
	panics   prometheus.CounterFunc
	remove   func()
}

// NewStack registers stack collectors for m and starts counting its events.
func NewStack(m *stack.Manager, opts ...Option) *Stack {
	cfg := newConfig(opts)
	factory := promauto.With(cfg.Registry)

	snapshotGauge := func(name, help string, value func(stack.Snapshot) float64) prometheus.GaugeFunc {
		return factory.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: cfg.Namespace,
			Name:      name,
			Help:      help,
		}, func() float64 { return value(m.Snapshot()) })
	}

	s := &Stack{
		events: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Name:      "stack_events_total",
			Help:      "Total number of stack events by kind",
		}, []string{"kind"}),

		tracked: snapshotGauge("toasts_tracked", "Number of toasts in the foreground and history",
			func(s stack.Snapshot) float64 { return float64(s.Len()) }),

		history: snapshotGauge("toasts_history", "Number of toasts in history",
			func(s stack.Snapshot) float64 { return float64(len(s.History)) }),

		open: snapshotGauge("toasts_open", "Number of tracked toasts that are still open",
			func(s stack.Snapshot) float64 {
				n := 0
				for _, t := range s.Toasts() {
					if t.Open {
						n++
					}
				}
				return float64(n)
			}),

		unfolded: snapshotGauge("stack_unfolded", "1 when the stack is unfolded",
			func(s stack.Snapshot) float64 { return boolValue(s.Unfolded) }),

		visible: snapshotGauge("stack_visible", "1 when the stack is visible",
			func(s stack.Snapshot) float64 { return boolValue(s.Visible) }),

		panics: factory.NewCounterFunc(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Name:      "callback_panics_total",
			Help:      "Total number of recovered panics in toast callbacks and observers",
		}, func() float64 { return float64(m.CallbackPanics()) }),
	}

	// Pre-create every kind so dashboards see zeros
	for k := stack.EventShown; k <= stack.EventViewChanged; k++ {
		s.events.WithLabelValues(k.String())
	}

	s.remove = m.Observe(func(ev stack.Event) {
		s.events.WithLabelValues(ev.Kind.String()).Inc()
	})
	return s
}

// Stop stops counting events. Registered gauges keep reporting.
func (s *Stack) Stop() {
	s.remove()
}

func boolValue(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

// HTTP instruments HTTP handlers.
type HTTP struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewHTTP registers HTTP request collectors.
func NewHTTP(opts ...Option) *HTTP {
	cfg := newConfig(opts)
	factory := promauto.With(cfg.Registry)

	return &HTTP{
		requests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests",
		}, []string{"method", "route", "status"}),

		duration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: cfg.Namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   cfg.Buckets,
		}, []string{"method", "route"}),
	}
}

// Middleware records every request under its chi route pattern.
func (h *HTTP) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if p := rctx.RoutePattern(); p != "" {
				route = p
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		h.requests.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
		h.duration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}
