// Package metrics defines the Prometheus collectors exported by the bot.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Navigation event results.
const (
	ResultRendered = "rendered"
	ResultIgnored  = "ignored"
	ResultInvalid  = "invalid"
	ResultFailed   = "failed"
)

// Metrics holds every collector the bot updates.
type Metrics struct {
	SessionsStarted     prometheus.Counter
	ActiveSessions      prometheus.Gauge
	NavigationEvents    *prometheus.CounterVec
	TransportFailures   prometheus.Counter
	PostsImported       prometheus.Counter
	ScheduledDeliveries *prometheus.CounterVec
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		SessionsStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "rewind",
			Name:      "sessions_started_total",
			Help:      "Navigation sessions rendered for the first time.",
		}),
		ActiveSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "rewind",
			Name:      "active_sessions",
			Help:      "Navigation sessions currently held in memory.",
		}),
		NavigationEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "rewind",
			Name:      "navigation_events_total",
			Help:      "Button presses and jump replies by action and result.",
		}, []string{"action", "result"}),
		TransportFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "rewind",
			Name:      "transport_failures_total",
			Help:      "Outward messages that could not be sent or edited.",
		}),
		PostsImported: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "rewind",
			Name:      "posts_imported_total",
			Help:      "Posts stored by archive imports.",
		}),
		ScheduledDeliveries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "rewind",
			Name:      "scheduled_deliveries_total",
			Help:      "Daily rewinds attempted per subscriber, by result.",
		}, []string{"result"}),
	}

	reg.MustRegister(
		m.SessionsStarted,
		m.ActiveSessions,
		m.NavigationEvents,
		m.TransportFailures,
		m.PostsImported,
		m.ScheduledDeliveries,
	)
	return m
}
