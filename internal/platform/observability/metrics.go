package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ItemsProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "enricher_items_processed_total",
		Help: "The total number of items processed by an enrichment stage",
	}, []string{"stage", "status"})

	ItemDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "enricher_item_duration_seconds",
		Help:    "Time spent enriching a single item",
		Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 20, 30, 60},
	}, []string{"stage"})

	BatchDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "enricher_batch_duration_seconds",
		Help:    "Duration in seconds to process a pending batch",
		Buckets: []float64{1, 2, 5, 10, 20, 30, 60, 120, 300, 600},
	}, []string{"stage"})

	Backlog = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "enricher_backlog",
		Help: "Number of items still waiting for a stage",
	}, []string{"stage"})

	StageRate = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "enricher_rate_items_per_second",
		Help: "Sliding-window throughput of a stage",
	}, []string{"stage"})

	ItemsTotal = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "enricher_items_total",
		Help: "Total number of stored items",
	})

	// Language model backends
	BackendRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "enricher_backend_requests_total",
		Help: "Requests issued to a language model backend",
	}, []string{"backend", "status"})

	BackendRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "enricher_backend_request_duration_seconds",
		Help:    "Duration of language model backend requests",
		Buckets: prometheus.DefBuckets,
	}, []string{"backend", "task"})

	BackendFallbacks = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "enricher_backend_fallbacks_total",
		Help: "Requests retried on the direct backend after a queued failure",
	}, []string{"task", "kind"})

	BackendCircuitOpen = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "enricher_backend_circuit_open",
		Help: "1 while the circuit breaker of a backend is open",
	}, []string{"backend"})

	// Notifications
	NotifyEdits = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "enricher_notify_edits_total",
		Help: "Status message sends and edits by transport",
	}, []string{"transport", "status"})
)

const (
	StatusSuccess = "success"
	StatusError   = "error"
	StatusSkipped = "skipped"
)

// RecordItem counts one processed item and its duration for a stage.
func RecordItem(stage, status string, seconds float64) {
	ItemsProcessed.WithLabelValues(stage, status).Inc()

	if seconds > 0 {
		ItemDuration.WithLabelValues(stage).Observe(seconds)
	}
}

// RecordBacklog publishes the pending counters read by the status loop.
func RecordBacklog(total, tagsPending, embeddingsPending int64) {
	ItemsTotal.Set(float64(total))
	Backlog.WithLabelValues("tagging").Set(float64(tagsPending))
	Backlog.WithLabelValues("embedding").Set(float64(embeddingsPending))
}

func RecordRate(stage string, rate float64, ok bool) {
	if !ok {
		rate = 0
	}

	StageRate.WithLabelValues(stage).Set(rate)
}

// RecordCircuit publishes the breaker state of a backend.
func RecordCircuit(backend string, open bool) {
	v := 0.0
	if open {
		v = 1
	}

	BackendCircuitOpen.WithLabelValues(backend).Set(v)
}

func RecordNotify(transport string, ok bool) {
	status := StatusSuccess
	if !ok {
		status = StatusError
	}

	NotifyEdits.WithLabelValues(transport, status).Inc()
}
