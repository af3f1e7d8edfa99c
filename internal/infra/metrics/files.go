package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(filesStoredTotal, batchesStoredTotal, deliveriesTotal, tokensTotal)
}

var (
	filesStoredTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "files_stored_total",
			Help: "Files forwarded to the database channel and saved.",
		},
	)

	batchesStoredTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "batches_stored_total",
			Help: "Batches closed and saved.",
		},
	)

	deliveriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "file_deliveries_total",
			Help: "Copies sent to users, by source and status.",
		},
		[]string{"source", "status"}, // source: 'file', 'batch'; status: 'sent', 'missing', 'failed'
	)

	tokensTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "access_tokens_total",
			Help: "Access token events (generated, verified, rejected).",
		},
		[]string{"event"},
	)
)

func IncFileStored()  { filesStoredTotal.Inc() }
func IncBatchStored() { batchesStoredTotal.Inc() }

func IncDelivery(source, status string) {
	deliveriesTotal.WithLabelValues(norm(source), norm(status)).Inc()
}

func IncToken(event string) {
	tokensTotal.WithLabelValues(norm(event)).Inc()
}
