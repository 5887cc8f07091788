package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	SessionsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "livequiz",
		Name:      "sessions_created_total",
		Help:      "Number of live sessions created.",
	})

	TransitionsApplied = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "livequiz",
		Name:      "session_transitions_total",
		Help:      "Number of applied session state transitions.",
	}, []string{"from", "trigger"})

	TransitionsRejected = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "livequiz",
		Name:      "session_transitions_rejected_total",
		Help:      "Number of rejected session state transitions.",
	})

	AttemptsRecorded = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "livequiz",
		Name:      "attempts_recorded_total",
		Help:      "Number of recorded answer attempts.",
	})
)
