// Package metrics records verification activity as Prometheus metrics.
//
// A Recorder owns a private registry, so several verification runs in one
// process never share counters. A nil *Recorder is valid and records
// nothing.
package metrics

import (
	"fmt"
	"io"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/common/expfmt"
)

const namespace = "islproof"

// Recorder holds the verification metrics.
type Recorder struct {
	registry *prometheus.Registry

	// clauseEvaluations counts clause outcomes.
	// Labels: kind (precondition, postcondition, invariant), status (proven, not_proven, failed)
	clauseEvaluations *prometheus.CounterVec

	// unknownResults counts clauses left unknown, by root cause.
	// Labels: reason (MISSING_INPUT, EXTERNAL_CALL, ...)
	unknownResults *prometheus.CounterVec

	// cacheRequests counts evaluation cache lookups.
	// Labels: result (hit, miss)
	cacheRequests *prometheus.CounterVec

	// clauseDuration measures wall time spent evaluating one clause.
	clauseDuration prometheus.Histogram
}

// New creates a Recorder with its own registry.
func New() *Recorder {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Recorder{
		registry: reg,
		clauseEvaluations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "clause_evaluations_total",
			Help:      "Clause evaluations by clause kind and evidence status",
		}, []string{"kind", "status"}),
		unknownResults: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "unknown_results_total",
			Help:      "Clauses evaluated to unknown, by root-cause reason",
		}, []string{"reason"}),
		cacheRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "eval_cache_requests_total",
			Help:      "Evaluation cache lookups by outcome",
		}, []string{"result"}),
		clauseDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "clause_eval_duration_seconds",
			Help:      "Time to evaluate one clause",
			Buckets:   []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 2, 5},
		}),
	}
}

// Registry exposes the underlying registry, for tests and exporters.
func (r *Recorder) Registry() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.registry
}

// RecordClause records one clause outcome and how long it took.
func (r *Recorder) RecordClause(kind, status string, took time.Duration) {
	if r == nil {
		return
	}
	r.clauseEvaluations.WithLabelValues(kind, status).Inc()
	r.clauseDuration.Observe(took.Seconds())
}

// RecordUnknown records a clause left unknown for reason.
func (r *Recorder) RecordUnknown(reason string) {
	if r == nil {
		return
	}
	r.unknownResults.WithLabelValues(reason).Inc()
}

// CacheRequest records an evaluation cache lookup.
func (r *Recorder) CacheRequest(hit bool) {
	if r == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	r.cacheRequests.WithLabelValues(result).Inc()
}

// WriteText writes every metric in the Prometheus text exposition format.
func (r *Recorder) WriteText(w io.Writer) error {
	if r == nil {
		return nil
	}
	families, err := r.registry.Gather()
	if err != nil {
		return fmt.Errorf("gather metrics: %w", err)
	}
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return fmt.Errorf("write metric %s: %w", mf.GetName(), err)
		}
	}
	return nil
}
