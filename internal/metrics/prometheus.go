package metrics

import (
	"sync"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/wikiai/backend/pkg/circuitbreaker"
)

const (
	StatusOK       = "ok"
	StatusDegraded = "degraded"
	StatusError    = "error"
)

var (
	ChatDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "wikiai_chat_duration_seconds",
			Help:    "Chat request duration in seconds, AI call and persistence included",
			Buckets: []float64{0.25, 0.5, 1, 2, 5, 10, 30, 60},
		},
		[]string{"message_type"},
	)

	ChatTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wikiai_chat_total",
			Help: "Total chat exchanges by outcome",
		},
		[]string{"message_type", "status"},
	)

	LLMTokensUsed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wikiai_llm_tokens_used",
			Help: "Total LLM tokens used",
		},
		[]string{"model", "type"},
	)

	LLMCircuitState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "wikiai_llm_circuit_state",
			Help: "Circuit breaker state: 0 closed, 1 half-open, 2 open",
		},
		[]string{"name"},
	)

	DocumentsGenerated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wikiai_documents_generated_total",
			Help: "Total documents rendered for download",
		},
		[]string{"format", "status"},
	)

	FilesExtracted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wikiai_files_extracted_total",
			Help: "Total uploaded files processed by the text extractor",
		},
		[]string{"extension", "status"},
	)

	ExtractedTextChars = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "wikiai_extracted_text_chars",
			Help:    "Characters of text extracted per upload, before truncation",
			Buckets: prometheus.ExponentialBuckets(100, 4, 7),
		},
	)

	SourceTrustScore = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "wikiai_source_trust_score",
			Help:    "Trust scores assigned to analyzed sources",
			Buckets: []float64{0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 1.0},
		},
	)
)

var registerOnce sync.Once

func Init() {
	registerOnce.Do(func() {
		prometheus.MustRegister(ChatDuration)
		prometheus.MustRegister(ChatTotal)
		prometheus.MustRegister(LLMTokensUsed)
		prometheus.MustRegister(LLMCircuitState)
		prometheus.MustRegister(DocumentsGenerated)
		prometheus.MustRegister(FilesExtracted)
		prometheus.MustRegister(ExtractedTextChars)
		prometheus.MustRegister(SourceTrustScore)
	})
}

// RecordCircuitState matches circuitbreaker.Config.OnStateChange.
func RecordCircuitState(name string, _ circuitbreaker.State, to circuitbreaker.State) {
	LLMCircuitState.WithLabelValues(name).Set(float64(to))
}

func MetricsHandler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.Handler())
}
