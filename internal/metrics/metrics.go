// Package metrics exports planner and compiler counters to Prometheus.
//
// A Collector satisfies htn.Monitor, so it can be attached to an evaluator
// directly or fanned out next to an htn.StatsMonitor with htn.Monitors.
package metrics

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/gitrdm/gokanplan/pkg/htn"
)

const namespace = "gokanplan"

// Plan result labels.
const (
	ResultFound    = "found"
	ResultNone     = "none"
	ResultError    = "error"
	ResultCanceled = "canceled"
)

// Collector holds the registered metric vectors.
type Collector struct {
	bindings        *prometheus.CounterVec
	mutations       *prometheus.CounterVec
	plans           *prometheus.CounterVec
	backtracks      prometheus.Counter
	maxDepth        prometheus.Gauge
	compileDuration *prometheus.HistogramVec

	mu   sync.Mutex
	peak int
}

var _ htn.Monitor = (*Collector)(nil)

// NewCollector registers the metrics with reg. Pass a fresh
// prometheus.NewRegistry in tests to avoid duplicate registration.
func NewCollector(reg prometheus.Registerer) *Collector {
	f := promauto.With(reg)
	return &Collector{
		bindings: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bindings_total",
			Help:      "Bindings produced by precondition nodes, by node kind.",
		}, []string{"node"}),
		mutations: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "state_mutations_total",
			Help:      "State mutations, by operation.",
		}, []string{"op"}),
		plans: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "plans_total",
			Help:      "Planning outcomes, by result.",
		}, []string{"result"}),
		backtracks: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "search",
			Name:      "backtracks_total",
			Help:      "Operator applications undone during search.",
		}),
		maxDepth: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "search",
			Name:      "max_depth",
			Help:      "Deepest precondition nesting observed.",
		}),
		compileDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "compiler",
			Name:      "duration_seconds",
			Help:      "Time spent compiling a domain or problem file.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 8),
		}, []string{"kind"}),
	}
}

// RecordBinding implements htn.Monitor.
func (c *Collector) RecordBinding(kind htn.NodeKind) {
	c.bindings.WithLabelValues(string(kind)).Inc()
}

// RecordMutation implements htn.Monitor.
func (c *Collector) RecordMutation(op htn.Mutation) {
	c.mutations.WithLabelValues(string(op)).Inc()
}

// RecordDepth implements htn.Monitor. The gauge only moves up.
func (c *Collector) RecordDepth(depth int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if depth > c.peak {
		c.peak = depth
		c.maxDepth.Set(float64(depth))
	}
}

// RecordBacktrack implements htn.Monitor.
func (c *Collector) RecordBacktrack() {
	c.backtracks.Inc()
}

// RecordPlan implements htn.Monitor.
func (c *Collector) RecordPlan() {
	c.plans.WithLabelValues(ResultFound).Inc()
}

// RecordResult counts a search that ended without a plan.
func (c *Collector) RecordResult(result string) {
	c.plans.WithLabelValues(result).Inc()
}

// ObserveCompile records how long compiling one file of the given kind
// ("domain" or "problem") took.
func (c *Collector) ObserveCompile(kind string, d time.Duration) {
	c.compileDuration.WithLabelValues(kind).Observe(d.Seconds())
}

// Handler exposes g in the Prometheus text format at /metrics.
func Handler(g prometheus.Gatherer) http.Handler {
	r := chi.NewRouter()
	r.Handle("/metrics", promhttp.HandlerFor(g, promhttp.HandlerOpts{}))
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	return r
}

// Serve runs the metrics endpoint on addr until ctx is done.
func Serve(ctx context.Context, addr string, g prometheus.Gatherer, logger *slog.Logger) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           Handler(g),
		ReadHeaderTimeout: 5 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		logger.Info("serving metrics", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
