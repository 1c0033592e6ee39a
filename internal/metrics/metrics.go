// Package metrics exposes the server's Prometheus collectors. All metrics
// live in a private registry so tests can create isolated instances.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics bundles every collector the server updates.
type Metrics struct {
	registry *prometheus.Registry

	HandsStarted   prometheus.Counter
	HandsCompleted prometheus.Counter
	HandSeconds    prometheus.Histogram
	Actions        *prometheus.CounterVec
	ActionTimeouts prometheus.Counter
	EarlyFolds     prometheus.Counter

	PlayersSeated      prometheus.Gauge
	SpectatorsWatching prometheus.Gauge
	TablesActive       prometheus.Gauge
	ConnectionsActive  prometheus.Gauge

	MessagesSent     *prometheus.CounterVec
	MessagesRejected *prometheus.CounterVec

	HistoryRecords  prometheus.Counter
	HistoryFailures *prometheus.CounterVec
}

// New builds a Metrics with a fresh registry that also carries the standard
// Go runtime and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,

		HandsStarted: factory.NewCounter(prometheus.CounterOpts{
			Name: "plo_hands_started_total",
			Help: "Hands dealt across all tables.",
		}),
		HandsCompleted: factory.NewCounter(prometheus.CounterOpts{
			Name: "plo_hands_completed_total",
			Help: "Hands that reached completion.",
		}),
		HandSeconds: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "plo_hand_duration_seconds",
			Help:    "Wall time from deal to hand completion.",
			Buckets: prometheus.ExponentialBuckets(1, 2, 10),
		}),
		Actions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "plo_actions_total",
			Help: "Player actions applied, by kind.",
		}, []string{"action"}),
		ActionTimeouts: factory.NewCounter(prometheus.CounterOpts{
			Name: "plo_action_timeouts_total",
			Help: "Turns resolved by the action timer.",
		}),
		EarlyFolds: factory.NewCounter(prometheus.CounterOpts{
			Name: "plo_early_folds_total",
			Help: "Folds submitted ahead of turn.",
		}),

		PlayersSeated: factory.NewGauge(prometheus.GaugeOpts{
			Name: "plo_players_seated",
			Help: "Players currently holding seats.",
		}),
		SpectatorsWatching: factory.NewGauge(prometheus.GaugeOpts{
			Name: "plo_spectators_watching",
			Help: "Connections watching tables without a seat.",
		}),
		TablesActive: factory.NewGauge(prometheus.GaugeOpts{
			Name: "plo_tables_active",
			Help: "Tables currently registered.",
		}),
		ConnectionsActive: factory.NewGauge(prometheus.GaugeOpts{
			Name: "plo_connections_active",
			Help: "Open websocket connections.",
		}),

		MessagesSent: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "plo_messages_sent_total",
			Help: "Events sent to clients, by event type.",
		}, []string{"type"}),
		MessagesRejected: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "plo_messages_rejected_total",
			Help: "Client messages rejected by validation, by reason.",
		}, []string{"reason"}),

		HistoryRecords: factory.NewCounter(prometheus.CounterOpts{
			Name: "plo_history_records_total",
			Help: "Hand history records accepted for writing.",
		}),
		HistoryFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "plo_history_failures_total",
			Help: "Hand history write failures, by sink.",
		}, []string{"sink"}),
	}
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry for additional collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
