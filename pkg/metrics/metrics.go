package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	PgErrCount = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "meetdesk",
		Subsystem: "pg",
		Name:      "pg_err_count",
	}, []string{"method"})
	PgDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "meetdesk",
		Subsystem: "pg",
		Name:      "pg_duration",
	}, []string{"method"})
	SchedulerTicks = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "meetdesk",
		Subsystem: "scheduler",
		Name:      "tick_count",
	})
	MeetingsCloned = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "meetdesk",
		Subsystem: "scheduler",
		Name:      "cloned_count",
	})
	CloneErrCount = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "meetdesk",
		Subsystem: "scheduler",
		Name:      "clone_err_count",
	})
)
