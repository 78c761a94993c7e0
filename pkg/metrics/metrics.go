package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Push channel metrics
	PushEventsReceivedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "guildme_push_events_received_total",
			Help: "Total push channel events received by event name",
		},
		[]string{"event"},
	)

	PushEventsEmittedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "guildme_push_events_emitted_total",
			Help: "Total push channel events emitted by event name",
		},
		[]string{"event"},
	)

	PushReconnectsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "guildme_push_reconnects_total",
			Help: "Total push channel connection attempts after the first",
		},
	)

	// Remote call metrics
	RemoteCallErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "guildme_remote_call_errors_total",
			Help: "Total failed backend calls by endpoint and status",
		},
		[]string{"endpoint", "status"},
	)

	// Session engine metrics
	ChatSessionsOpenedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "guildme_chat_sessions_opened_total",
			Help: "Total chat sessions opened",
		},
	)

	TrackingPollTicksTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "guildme_tracking_poll_ticks_total",
			Help: "Total location poll ticks issued",
		},
	)

	StaleResponsesDiscardedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "guildme_stale_responses_discarded_total",
			Help: "Total in-flight responses discarded after a session switch",
		},
		[]string{"session"},
	)

	PresenceRefreshesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "guildme_presence_refreshes_total",
			Help: "Total friend directory refreshes",
		},
	)

	NotificationFetchesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "guildme_notification_fetches_total",
			Help: "Total notification feed fetches by feed kind",
		},
		[]string{"feed"},
	)

	FlashMessagesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "guildme_flash_messages_total",
			Help: "Total transient user-visible messages by severity",
		},
		[]string{"severity"},
	)
)

func init() {
	prometheus.MustRegister(
		PushEventsReceivedTotal,
		PushEventsEmittedTotal,
		PushReconnectsTotal,
		RemoteCallErrorsTotal,
		ChatSessionsOpenedTotal,
		TrackingPollTicksTotal,
		StaleResponsesDiscardedTotal,
		PresenceRefreshesTotal,
		NotificationFetchesTotal,
		FlashMessagesTotal,
	)
}

// Handler returns the HTTP handler serving the metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
