// Package metrics exposes run progress as Prometheus metrics.
package metrics

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dshills/smellscan/internal/analysis"
)

const namespace = "smellscan"

// Metrics owns a private registry and the run's collectors. It implements
// analysis.Recorder.
type Metrics struct {
	registry    *prometheus.Registry
	tasks       *prometheus.CounterVec
	failures    *prometheus.CounterVec
	inference   *prometheus.HistogramVec
	tokens      *prometheus.CounterVec
	checkpoints *prometheus.CounterVec
	revisions   *prometheus.CounterVec
}

// New creates the collectors on a fresh registry, so repeated calls never
// conflict.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		tasks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tasks_total",
			Help:      "Finished analysis tasks by model alias and status (ok, error, skipped).",
		}, []string{"model", "status"}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "task_failures_total",
			Help:      "Failed analysis tasks by model alias and kind (read, timeout, transport, parse, internal).",
		}, []string{"model", "kind"}),
		tokens: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tokens_total",
			Help:      "Provider-reported tokens used by model alias.",
		}, []string{"model"}),
		inference: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "inference_duration_seconds",
			Help:      "Wall time of inference calls by model alias.",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 20, 30, 60, 120, 300},
		}, []string{"model"}),
		checkpoints: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "checkpoints_total",
			Help:      "Checkpoint artifact writes by status (ok, error).",
		}, []string{"status"}),
		revisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "revisions_total",
			Help:      "Processed revisions by status (ok, error).",
		}, []string{"status"}),
	}
	m.registry.MustRegister(
		m.tasks, m.failures, m.inference, m.tokens, m.checkpoints, m.revisions,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

func (m *Metrics) TaskFinished(model string, status analysis.Status) {
	m.tasks.WithLabelValues(model, string(status)).Inc()
}

func (m *Metrics) TaskFailed(model string, kind analysis.Failure) {
	m.failures.WithLabelValues(model, string(kind)).Inc()
}

func (m *Metrics) InferenceObserved(model string, d time.Duration, tokens int) {
	m.inference.WithLabelValues(model).Observe(d.Seconds())
	if tokens > 0 {
		m.tokens.WithLabelValues(model).Add(float64(tokens))
	}
}

// CheckpointWritten counts an artifact write.
func (m *Metrics) CheckpointWritten(err error) {
	m.checkpoints.WithLabelValues(statusLabel(err)).Inc()
}

// RevisionFinished counts a processed revision.
func (m *Metrics) RevisionFinished(err error) {
	m.revisions.WithLabelValues(statusLabel(err)).Inc()
}

func statusLabel(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Serve exposes /metrics on addr until ctx is done. It returns once the
// listener is bound; serving continues in the background.
func (m *Metrics) Serve(ctx context.Context, addr string, logger *slog.Logger) (net.Addr, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Warn("metrics server stopped", "error", err)
		}
	}()
	return ln.Addr(), nil
}
