package llm

import (
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// CircuitBreakerConfig configures when the queued backend is skipped.
type CircuitBreakerConfig struct {
	Threshold  int
	ResetAfter time.Duration
}

// CircuitBreaker opens after a run of consecutive failures and stays open for ResetAfter.
type CircuitBreaker struct {
	threshold           int
	resetAfter          time.Duration
	consecutiveFailures int
	openUntil           time.Time
	mu                  sync.Mutex
	logger              *zerolog.Logger
	now                 func() time.Time
}

// NewCircuitBreaker creates a circuit breaker. A non-positive threshold never opens.
func NewCircuitBreaker(cfg CircuitBreakerConfig, logger *zerolog.Logger) *CircuitBreaker {
	return &CircuitBreaker{
		threshold:  cfg.Threshold,
		resetAfter: cfg.ResetAfter,
		logger:     logger,
		now:        time.Now,
	}
}

// CanAttempt returns true if the circuit allows an attempt.
func (cb *CircuitBreaker) CanAttempt() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	return !cb.now().Before(cb.openUntil)
}

// RecordSuccess resets the failure count.
func (cb *CircuitBreaker) RecordSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.consecutiveFailures = 0
}

// RecordFailure counts a failure and opens the circuit once the threshold is reached.
func (cb *CircuitBreaker) RecordFailure(backend BackendKind, kind FailureKind) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.consecutiveFailures++

	if cb.threshold <= 0 || cb.consecutiveFailures < cb.threshold {
		return
	}

	cb.openUntil = cb.now().Add(cb.resetAfter)
	cb.consecutiveFailures = 0

	if cb.logger != nil {
		cb.logger.Warn().
			Str(logKeyBackend, string(backend)).
			Str("kind", string(kind)).
			Time("open_until", cb.openUntil).
			Msg("backend circuit breaker opened")
	}
}

// IsOpen returns true if the circuit is currently open.
func (cb *CircuitBreaker) IsOpen() bool {
	return !cb.CanAttempt()
}
