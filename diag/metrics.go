package diag

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	metricDiagnostics = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "prdemo_diagnostics_total",
			Help: "Number of recoverable decode problems by kind",
		},
		[]string{"kind"},
	)
)

func init() {
	prometheus.MustRegister(metricDiagnostics)
}
