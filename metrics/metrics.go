// Package metrics holds the process-wide Prometheus collectors. Everything is
// registered on the default registry and served from the /metrics endpoint.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	PollCycles = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "graphway",
		Subsystem: "poller",
		Name:      "cycles_total",
		Help:      "Number of completed poll cycles.",
	})

	SubmissionsFetched = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "graphway",
		Subsystem: "poller",
		Name:      "submissions_fetched_total",
		Help:      "Raw submission records fetched from the judge.",
	})

	SubmissionsAccepted = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "graphway",
		Subsystem: "contest",
		Name:      "submissions_accepted_total",
		Help:      "Submissions that passed every gate and marked a node solved.",
	})

	SnapshotWrites = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "graphway",
		Subsystem: "contest",
		Name:      "snapshot_writes_total",
		Help:      "Successful contest snapshot writes.",
	})

	SnapshotErrors = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "graphway",
		Subsystem: "contest",
		Name:      "snapshot_errors_total",
		Help:      "Failed contest snapshot writes.",
	})

	JudgeRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "graphway",
		Subsystem: "judge",
		Name:      "request_duration_seconds",
		Help:      "Latency of calls against the external judge API.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"endpoint", "outcome"})
)
