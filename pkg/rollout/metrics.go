package rollout

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var nodeOutcomes = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "nodectl_rollout_node_outcomes_total",
		Help: "Terminal rollout outcomes per node",
	},
	[]string{"outcome"}, // Succeeded, Failed, Skipped
)
