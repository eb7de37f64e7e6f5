// Package metrics exposes prometheus collectors for the conversation pipeline.
package metrics

import (
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics groups the collectors. A nil *Metrics is valid and records nothing,
// so components can be built without a registry in tests.
type Metrics struct {
	turns      *prometheus.CounterVec
	failures   *prometheus.CounterVec
	latency    *prometheus.HistogramVec
	unresolved prometheus.Counter
	jobsCached prometheus.Gauge
	jobRefresh *prometheus.CounterVec
	staleDrops prometheus.Counter
	clearCalls *prometheus.CounterVec
	registry   *prometheus.Registry
}

func New(reg *prometheus.Registry) *Metrics {
	m := &Metrics{
		turns: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dot_hub_turns_total",
				Help: "Rendered assistant turns by reply type.",
			},
			[]string{"intent"},
		),
		failures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dot_hub_turn_failures_total",
				Help: "Assistant calls that fell back to a friendly message, by reason.",
			},
			[]string{"reason"},
		),
		latency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "dot_hub_turn_latency_ms",
				Help:    "Assistant call latency distribution in milliseconds.",
				Buckets: []float64{100, 250, 500, 1000, 2000, 4000, 8000, 15000, 30000},
			},
			[]string{"success"},
		),
		unresolved: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "dot_hub_unresolved_job_refs_total",
			Help: "Job references from the assistant with no cached record.",
		}),
		jobsCached: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "dot_hub_jobs_cached",
			Help: "Jobs in the local cache snapshot.",
		}),
		jobRefresh: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dot_hub_job_refresh_total",
				Help: "Job cache refreshes by outcome.",
			},
			[]string{"outcome"},
		),
		staleDrops: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "dot_hub_stale_replies_total",
			Help: "Replies discarded because the conversation moved on.",
		}),
		clearCalls: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dot_hub_session_clears_total",
				Help: "Remote session clears by trigger.",
			},
			[]string{"trigger"},
		),
		registry: reg,
	}
	if reg != nil {
		reg.MustRegister(m.collectors()...)
	}
	return m
}

func (m *Metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.turns, m.failures, m.latency, m.unresolved,
		m.jobsCached, m.jobRefresh, m.staleDrops, m.clearCalls,
	}
}

// Registry returns the registry passed to New, or nil.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func norm(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return "unknown"
	}
	return s
}

func (m *Metrics) Turn(intent string) {
	if m == nil {
		return
	}
	m.turns.WithLabelValues(norm(intent)).Inc()
}

func (m *Metrics) TurnFailed(reason string) {
	if m == nil {
		return
	}
	m.failures.WithLabelValues(norm(reason)).Inc()
}

func (m *Metrics) ObserveCall(elapsed time.Duration, success bool) {
	if m == nil {
		return
	}
	label := "false"
	if success {
		label = "true"
	}
	m.latency.WithLabelValues(label).Observe(float64(elapsed.Milliseconds()))
}

func (m *Metrics) Unresolved() {
	if m == nil {
		return
	}
	m.unresolved.Inc()
}

func (m *Metrics) JobsCached(n int) {
	if m == nil {
		return
	}
	m.jobsCached.Set(float64(n))
}

func (m *Metrics) JobRefresh(outcome string) {
	if m == nil {
		return
	}
	m.jobRefresh.WithLabelValues(norm(outcome)).Inc()
}

func (m *Metrics) StaleReply() {
	if m == nil {
		return
	}
	m.staleDrops.Inc()
}

func (m *Metrics) SessionCleared(trigger string) {
	if m == nil {
		return
	}
	m.clearCalls.WithLabelValues(norm(trigger)).Inc()
}
