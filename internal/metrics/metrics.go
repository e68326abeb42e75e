package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recall_http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "recall_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	EmbeddingRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recall_embedding_requests_total",
			Help: "Total number of embedding API calls.",
		},
		[]string{"status"},
	)

	EmbeddingRetriesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "recall_embedding_retries_total",
			Help: "Total number of retried embedding API calls.",
		},
	)

	ChunksProcessedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recall_ingest_chunks_total",
			Help: "Total number of ingested chunks by outcome.",
		},
		[]string{"outcome"},
	)

	MemoriesStoredTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "recall_memories_stored_total",
			Help: "Total number of memory records written.",
		},
	)
)

func init() {
	prometheus.MustRegister(
		HTTPRequestsTotal,
		HTTPRequestDuration,
		EmbeddingRequestsTotal,
		EmbeddingRetriesTotal,
		ChunksProcessedTotal,
		MemoriesStoredTotal,
	)
}
