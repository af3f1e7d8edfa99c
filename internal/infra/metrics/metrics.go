// File: internal/infra/metrics/metrics.go
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func init() {
	register(updatesTotal, handlerLatencyMs, handlerErrorsTotal)
}

var (
	updatesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bot_updates_total",
			Help: "Telegram updates received, by kind (message, callback, other).",
		},
		[]string{"kind"},
	)

	handlerLatencyMs = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "bot_handler_latency_ms",
			Help:    "Handler latency distribution in milliseconds.",
			Buckets: []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000},
		},
		[]string{"handler", "success"},
	)

	handlerErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bot_handler_errors_total",
			Help: "Handler invocations that ended in an error.",
		},
		[]string{"handler"},
	)
)

func IncUpdate(kind string) {
	updatesTotal.WithLabelValues(norm(kind)).Inc()
}

func ObserveHandler(handler string, d time.Duration, success bool) {
	handlerLatencyMs.WithLabelValues(norm(handler), strconv.FormatBool(success)).
		Observe(float64(d.Microseconds()) / 1000)
	if !success {
		handlerErrorsTotal.WithLabelValues(norm(handler)).Inc()
	}
}
