package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func init() { register(dbQueriesTotal, dbQueryLatencyMs) }

var (
	dbQueriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "db_queries_total",
			Help: "MongoDB operations by collection, operation and outcome.",
		},
		[]string{"collection", "op", "status"}, // status: 'ok', 'error'
	)

	dbQueryLatencyMs = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "db_query_latency_ms",
			Help:    "MongoDB operation latency in milliseconds.",
			Buckets: []float64{1, 2, 5, 10, 25, 50, 100, 250, 500, 1000, 5000},
		},
		[]string{"collection", "op"},
	)
)

func ObserveDBQuery(collection, op string, d time.Duration, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	dbQueriesTotal.WithLabelValues(norm(collection), norm(op), status).Inc()
	dbQueryLatencyMs.WithLabelValues(norm(collection), norm(op)).Observe(float64(d.Microseconds()) / 1000)
}
