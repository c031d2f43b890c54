package provision

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	outcomesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "prewarm",
			Subsystem: "provision",
			Name:      "outcomes_total",
			Help:      "Provisioning attempts by outcome",
		},
		[]string{"outcome", "capability"},
	)

	readinessPollsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "prewarm",
			Subsystem: "provision",
			Name:      "readiness_polls_total",
			Help:      "Total readiness poll requests against the loaded-models listing",
		},
	)

	loadTriggersTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "prewarm",
			Subsystem: "provision",
			Name:      "load_triggers_total",
			Help:      "Total load/download triggers issued",
		},
	)
)

func init() {
	prometheus.MustRegister(outcomesTotal, readinessPollsTotal, loadTriggersTotal)
}
