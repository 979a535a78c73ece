// Package metrics exposes Prometheus collectors for the session bus and
// the HTTP transport.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// SessionsActive tracks the number of live sessions.
	SessionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "agentui_sessions_active",
			Help: "Number of active sessions",
		},
	)

	// SessionsExpired counts sessions reclaimed by the TTL sweep.
	SessionsExpired = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "agentui_sessions_expired_total",
			Help: "Total number of sessions destroyed by TTL expiry",
		},
	)

	// EventsEmitted counts events published to session streams by kind
	// (ui or action).
	EventsEmitted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "agentui_events_emitted_total",
			Help: "Total number of events published to session streams",
		},
		[]string{"kind"},
	)

	// SubscriberOverflow counts subscribers disconnected because their
	// buffer filled up.
	SubscriberOverflow = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "agentui_subscriber_overflow_total",
			Help: "Total number of subscribers dropped for falling behind",
		},
		[]string{"kind"},
	)

	// EventsRejected counts inbound events dropped at the transport for
	// failing validation or rate limits.
	EventsRejected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "agentui_events_rejected_total",
			Help: "Total number of inbound events rejected",
		},
		[]string{"reason"},
	)

	// AgentRounds counts completed LLM tool-call rounds.
	AgentRounds = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "agentui_agent_rounds_total",
			Help: "Total number of agent tool-call rounds executed",
		},
	)
)
