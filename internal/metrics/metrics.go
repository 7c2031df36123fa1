// Package metrics exposes Prometheus instruments for merge runs.
package metrics

import (
	"net/http"
	"time"

	"github.com/rpattn/placement-timeline/internal/domain"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "placement_timeline"

// Recorder owns the run instruments and the registry they live in.
type Recorder struct {
	registry *prometheus.Registry

	runs        *prometheus.CounterVec
	runDuration *prometheus.HistogramVec
	events      *prometheus.CounterVec
	profiles    *prometheus.GaugeVec
	lastSuccess *prometheus.GaugeVec
}

// NewRecorder registers the instruments on a private registry.
func NewRecorder() *Recorder {
	r := &Recorder{registry: prometheus.NewRegistry()}

	r.runs = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "merge_runs_total",
		Help:      "Merge runs by kind and final status",
	}, []string{"kind", "status"})
	r.runDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "merge_run_duration_seconds",
		Help:      "Wall time of a merge run including file IO",
		Buckets:   prometheus.DefBuckets,
	}, []string{"kind"})
	r.events = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "timeline_events_total",
		Help:      "Events processed by merge runs, by outcome",
	}, []string{"kind", "outcome"})
	r.profiles = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "profiles",
		Help:      "Profiles in the dataset after the last run",
	}, []string{"kind"})
	r.lastSuccess = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "last_success_timestamp_seconds",
		Help:      "Unix time of the last completed run",
	}, []string{"kind"})

	r.registry.MustRegister(r.runs, r.runDuration, r.events, r.profiles, r.lastSuccess)
	return r
}

// ObserveRun records a finished run. A nil Recorder is a no-op.
func (r *Recorder) ObserveRun(run domain.MergeRun, elapsed time.Duration) {
	if r == nil {
		return
	}
	kind := string(run.Kind)
	r.runs.WithLabelValues(kind, string(run.Status)).Inc()
	r.runDuration.WithLabelValues(kind).Observe(elapsed.Seconds())

	if run.Status != domain.MergeRunStatusCompleted {
		return
	}
	s := run.Summary
	r.events.WithLabelValues(kind, "matched").Add(float64(s.MatchedEvents))
	r.events.WithLabelValues(kind, "skipped").Add(float64(s.SkippedEvents))
	r.events.WithLabelValues(kind, "added").Add(float64(s.AddedEvents))
	r.events.WithLabelValues(kind, "updated").Add(float64(s.UpdatedEvents))
	r.events.WithLabelValues(kind, "attached").Add(float64(s.AttachedEvents))
	r.profiles.WithLabelValues(kind).Set(float64(s.Profiles))
	r.lastSuccess.WithLabelValues(kind).Set(float64(run.CompletedAt.Unix()))
}

// Registry returns the underlying registry, mainly for tests.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// Handler serves the registry in the Prometheus text format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}
