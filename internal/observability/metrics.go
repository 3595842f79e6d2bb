package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	activityTransitions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "activity_engine",
		Subsystem: "activity",
		Name:      "transitions_total",
		Help:      "Activity status transitions applied, by action and target status.",
	}, []string{"action", "to"})
	registrationTransitions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "activity_engine",
		Subsystem: "registration",
		Name:      "transitions_total",
		Help:      "Registration status transitions applied, by action and target status.",
	}, []string{"action", "to"})
	checkIns = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "activity_engine",
		Subsystem: "attendance",
		Name:      "checkins_total",
		Help:      "Check-in attempts by method and outcome.",
	}, []string{"method", "outcome"})
	scheduleConflicts = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "activity_engine",
		Subsystem: "schedule",
		Name:      "conflicts_total",
		Help:      "Conflict screenings that found at least one overlapping activity.",
	})
)

func init() {
	prometheus.MustRegister(activityTransitions, registrationTransitions, checkIns, scheduleConflicts)
}

func RecordActivityTransition(action, to string) {
	activityTransitions.WithLabelValues(action, to).Inc()
}

func RecordRegistrationTransition(action, to string) {
	registrationTransitions.WithLabelValues(action, to).Inc()
}

// RecordCheckIn counts an attempt; outcome is "ok" or the error kind.
func RecordCheckIn(method, outcome string) {
	checkIns.WithLabelValues(method, outcome).Inc()
}

func RecordScheduleConflict() {
	scheduleConflicts.Inc()
}
