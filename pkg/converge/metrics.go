package converge

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	applyDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "nodectl_converge_apply_duration_seconds",
			Help:    "Time taken to apply a convergence plan to a node",
			Buckets: []float64{0.1, 0.5, 1, 5, 10, 30, 60, 120},
		},
	)

	restartAttempts = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "nodectl_converge_restart_attempts_total",
			Help: "Total runtime service start/restart attempts, including retries",
		},
	)

	credentialWrites = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nodectl_converge_credential_writes_total",
			Help: "Registry credential provisioning outcomes",
		},
		[]string{"status"}, // written, kept, error
	)
)
