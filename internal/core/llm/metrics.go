package llm

import (
	"time"

	"github.com/lueurxax/channel-enricher/internal/platform/observability"
)

const (
	statusSuccess = "success"
	statusError   = "error"
	statusSkipped = "skipped"
)

func recordRequest(backend BackendKind, task string, ok bool, elapsed time.Duration) {
	status := statusSuccess
	if !ok {
		status = statusError
	}

	observability.BackendRequests.WithLabelValues(string(backend), status).Inc()
	observability.BackendRequestDuration.WithLabelValues(string(backend), task).Observe(elapsed.Seconds())
}

func recordFallback(task string, kind FailureKind) {
	observability.BackendFallbacks.WithLabelValues(task, string(kind)).Inc()
}

func recordSkipped(backend BackendKind) {
	observability.BackendRequests.WithLabelValues(string(backend), statusSkipped).Inc()
}

func recordCircuit(backend BackendKind, cb *CircuitBreaker) {
	observability.RecordCircuit(string(backend), cb.IsOpen())
}
