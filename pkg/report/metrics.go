package report

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var runsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "nodectl_reconcile_runs_total",
		Help: "Completed reconcile runs by overall outcome",
	},
	[]string{"outcome"}, // Succeeded, Failed
)
