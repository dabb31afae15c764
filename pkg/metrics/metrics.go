package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	AuthEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: "rideapp", Name: "auth_events_total", Help: "Auth state change events observed"},
		[]string{"event"},
	)
	StageTransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: "rideapp", Name: "ride_stage_transitions_total", Help: "Ride flow stage transitions applied"},
		[]string{"from", "to"},
	)
	StaleRideEventsTotal = promauto.NewCounter(
		prometheus.CounterOpts{Namespace: "rideapp", Name: "stale_ride_events_total", Help: "Realtime ride events ignored as stale or out of order"},
	)
	BackendErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: "rideapp", Name: "backend_errors_total", Help: "Backend call failures by operation"},
		[]string{"op"},
	)
	RealtimeMessagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: "rideapp", Name: "realtime_messages_total", Help: "Realtime frames received by event"},
		[]string{"event"},
	)
)
