package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// namespace prefixes every instrument.
const namespace = "downtime_alerts"

// Result label values.
const (
	ResultSuccess = "success"
	ResultFailure = "failure"
	ResultSkipped = "skipped"
)

var (
	// PollsTotal counts polling ticks by result.
	PollsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "polls_total",
			Help:      "Total number of alert feed polls",
		},
		[]string{"result"},
	)

	// PollDuration observes the fetch latency of a polling tick.
	PollDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "poll_duration_seconds",
			Help:      "Duration of alert feed fetches in seconds",
			Buckets:   prometheus.DefBuckets,
		},
	)

	// NewAlertsTotal counts alerts detected as new, by type.
	NewAlertsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "new_alerts_total",
			Help:      "Total number of newly arrived alerts",
		},
		[]string{"type"},
	)

	// DispatchTotal counts notification side effects by channel and result.
	DispatchTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dispatch_total",
			Help:      "Total number of notification side effects",
		},
		[]string{"channel", "result"},
	)

	// PushOperationsTotal counts push subscription operations by result.
	PushOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "push_operations_total",
			Help:      "Total number of push subscription operations",
		},
		[]string{"operation", "result"},
	)

	// Connected is 1 while the alert feed is reachable.
	Connected = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "connected",
			Help:      "Whether the alert feed is reachable",
		},
	)

	// Alerts tracks the working set size by status.
	Alerts = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "alerts",
			Help:      "Number of alerts in the working set",
		},
		[]string{"status"},
	)
)

// Result maps an outcome to its label value.
func Result(ok bool) string {
	if ok {
		return ResultSuccess
	}

	return ResultFailure
}

// SetConnected records the connectivity flag.
func SetConnected(connected bool) {
	if connected {
		Connected.Set(1)
		return
	}

	Connected.Set(0)
}
