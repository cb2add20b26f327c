package metrics

import "github.com/prometheus/client_golang/prometheus"

// LLM and ingestion Prometheus metrics.
var (
	EmbeddingRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "novelrag",
			Name:      "embedding_requests_total",
			Help:      "Total number of embedding requests",
		},
		[]string{"provider", "model", "status"},
	)

	EmbeddingRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "novelrag",
			Name:      "embedding_request_duration_seconds",
			Help:      "Embedding request duration in seconds",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"provider", "model"},
	)

	EmbeddingRetriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "novelrag",
			Name:      "embedding_retries_total",
			Help:      "Embedding attempts beyond the first",
		},
		[]string{"provider", "model"},
	)

	IngestChunksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "novelrag",
			Name:      "ingest_chunks_total",
			Help:      "Chunks handled by the ingestion pipeline",
		},
		[]string{"result"}, // "processed" / "skipped"
	)

	IngestJobsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "novelrag",
			Name:      "ingest_jobs_total",
			Help:      "Ingestion jobs by terminal state",
		},
		[]string{"state"}, // "completed" / "error"
	)

	GenerationStreamsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "novelrag",
			Name:      "generation_streams_total",
			Help:      "Answer generation streams by outcome",
		},
		[]string{"status"}, // "ok" / "error"
	)
)

var llmMetricsRegistered bool

// RegisterLLMMetrics registers Prometheus LLM and ingestion metrics. Must be called once from main.
func RegisterLLMMetrics() {
	if llmMetricsRegistered {
		return
	}
	prometheus.MustRegister(EmbeddingRequestsTotal)
	prometheus.MustRegister(EmbeddingRequestDuration)
	prometheus.MustRegister(EmbeddingRetriesTotal)
	prometheus.MustRegister(IngestChunksTotal)
	prometheus.MustRegister(IngestJobsTotal)
	prometheus.MustRegister(GenerationStreamsTotal)
	llmMetricsRegistered = true
}
