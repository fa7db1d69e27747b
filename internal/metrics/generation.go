package metrics

import "github.com/prometheus/client_golang/prometheus"

// Generation and ingest metrics.
var (
	GenerationStagesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "generation_stages_total",
			Help:      "Pipeline stages entered, by stage name",
		},
		[]string{"stage"},
	)

	GenerationSessionDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "generation_session_duration_seconds",
			Help:      "Wall time of a generation run",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600},
		},
		[]string{"outcome"},
	)

	AnalysisTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "analysis_total",
			Help:      "Document analyses by result (hit, miss, error)",
		},
		[]string{"result"},
	)

	IngestDocumentsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "ingest_documents_total",
			Help:      "Documents ingested by category and status",
		},
		[]string{"category", "status"},
	)

	IngestChunksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "ingest_chunks_total",
			Help:      "Chunks indexed by status",
		},
		[]string{"status"},
	)
)

var generationMetricsRegistered bool

// RegisterGenerationMetrics registers pipeline and ingest metrics. Must be called once from main.
func RegisterGenerationMetrics() {
	if generationMetricsRegistered {
		return
	}
	prometheus.MustRegister(GenerationStagesTotal)
	prometheus.MustRegister(GenerationSessionDuration)
	prometheus.MustRegister(AnalysisTotal)
	prometheus.MustRegister(IngestDocumentsTotal)
	prometheus.MustRegister(IngestChunksTotal)
	generationMetricsRegistered = true
}
