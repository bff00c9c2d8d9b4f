// Package metrics exposes routeright's prometheus counters.
//
// All collectors live on a dedicated registry so tests and multiple
// controllers never collide on the global one. Every method is safe on a
// nil *Metrics, which records nothing.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "routeright"

// Outcome labels for finished generations.
const (
	OutcomeSucceeded = "succeeded"
	OutcomeFailed    = "failed"
	OutcomeTimeout   = "timeout"
)

// Metrics holds the collectors for one process.
type Metrics struct {
	registry *prometheus.Registry

	GenerationsStarted   prometheus.Counter
	GenerationsFinished  *prometheus.CounterVec
	GenerationsReset     prometheus.Counter
	GenerationDuration   prometheus.Histogram
	StreamRecordsDropped prometheus.Counter
	StaleEventsDropped   prometheus.Counter
	RequestsTotal        *prometheus.CounterVec
	FeedbackSubmitted    *prometheus.CounterVec
}

// New creates a Metrics with a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		GenerationsStarted: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "generation",
			Name:      "started_total",
			Help:      "Total number of plan generations started.",
		}),
		GenerationsFinished: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "generation",
			Name:      "finished_total",
			Help:      "Total number of plan generations that reached a terminal state.",
		}, []string{"outcome"}),
		GenerationsReset: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "generation",
			Name:      "reset_total",
			Help:      "Total number of generations abandoned by a reset or a newer generation.",
		}),
		GenerationDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "generation",
			Name:      "duration_seconds",
			Help:      "Time from submission to a terminal event.",
			Buckets:   prometheus.ExponentialBuckets(0.25, 2, 10), // 250ms to ~2m
		}),
		StreamRecordsDropped: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "stream",
			Name:      "records_dropped_total",
			Help:      "Stream records dropped because they could not be decoded.",
		}),
		StaleEventsDropped: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "stale_events_dropped_total",
			Help:      "Progress events discarded because their generation was no longer live.",
		}),
		RequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "api",
			Name:      "requests_total",
			Help:      "Requests sent to the planning service.",
		}, []string{"endpoint", "code"}),
		FeedbackSubmitted: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "feedback",
			Name:      "submitted_total",
			Help:      "Feedback submissions by result.",
		}, []string{"result"}),
	}
}

// Registry returns the registry the collectors are registered on.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// GenerationStarted records a new generation.
func (m *Metrics) GenerationStarted() {
	if m == nil {
		return
	}
	m.GenerationsStarted.Inc()
}

// GenerationFinished records a terminal outcome and how long it took.
func (m *Metrics) GenerationFinished(outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.GenerationsFinished.WithLabelValues(outcome).Inc()
	m.GenerationDuration.Observe(elapsed.Seconds())
}

// GenerationReset records an abandoned generation.
func (m *Metrics) GenerationReset() {
	if m == nil {
		return
	}
	m.GenerationsReset.Inc()
}

// RecordDropped counts an undecodable stream record.
func (m *Metrics) RecordDropped() {
	if m == nil {
		return
	}
	m.StreamRecordsDropped.Inc()
}

// StaleDropped counts an event for a dead generation.
func (m *Metrics) StaleDropped() {
	if m == nil {
		return
	}
	m.StaleEventsDropped.Inc()
}

// Request counts a request to the planning service. code is the HTTP status
// or "error" when no response arrived.
func (m *Metrics) Request(endpoint, code string) {
	if m == nil {
		return
	}
	m.RequestsTotal.WithLabelValues(endpoint, code).Inc()
}

// Feedback counts a feedback submission.
func (m *Metrics) Feedback(ok bool) {
	if m == nil {
		return
	}
	result := "ok"
	if !ok {
		result = "failed"
	}
	m.FeedbackSubmitted.WithLabelValues(result).Inc()
}

// Handler returns the /metrics handler for this registry.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Serve exposes /metrics on addr until ctx is cancelled.
func (m *Metrics) Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
