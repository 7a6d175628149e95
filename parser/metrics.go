package parser

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	metricParses = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "prdemo_parser_parses_total",
			Help: "Number of parsed demos by result",
		},
		[]string{"result"},
	)
	metricFrames = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "prdemo_parser_frames_total",
			Help: "Number of frames read",
		},
	)
	metricEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "prdemo_parser_events_total",
			Help: "Number of decoded events by type",
		},
		[]string{"type"},
	)
	metricTicks = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "prdemo_parser_ticks_total",
			Help: "Number of tick batches folded into worlds",
		},
	)
	metricBytes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "prdemo_parser_bytes_total",
			Help: "Number of bytes processed, compressed and decompressed",
		},
		[]string{"stage"},
	)
	metricDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "prdemo_parser_duration_seconds",
			Help:    "Time taken to parse a demo",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
		},
	)
)

func init() {
	prometheus.MustRegister(metricParses)
	prometheus.MustRegister(metricFrames)
	prometheus.MustRegister(metricEvents)
	prometheus.MustRegister(metricTicks)
	prometheus.MustRegister(metricBytes)
	prometheus.MustRegister(metricDuration)
}
