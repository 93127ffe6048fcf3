package llm

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

const (
	logKeyBackend = "backend"
	logKeyKind    = "failure_kind"
	logKeyTask    = "task"
)

// Options selects and configures the backend chain.
type Options struct {
	Backend  BackendKind
	Fallback bool
	Queued   QueuedConfig
	Direct   DirectConfig
	Circuit  CircuitBreakerConfig
}

// FailoverClient calls the primary backend and, when allowed, retries a failed
// call once on the direct backend.
type FailoverClient struct {
	primary   backend
	secondary backend
	direct    *directBackend
	fallback  bool
	breaker   *CircuitBreaker
	logger    *zerolog.Logger
}

var _ Client = (*FailoverClient)(nil)

// New builds the backend chain described by opts.
func New(ctx context.Context, opts Options, logger *zerolog.Logger) (*FailoverClient, error) {
	if opts.Queued.SystemPrompt == "" {
		opts.Queued.SystemPrompt = DefaultSystemPrompt
	}

	if opts.Direct.SystemPrompt == "" {
		opts.Direct.SystemPrompt = DefaultSystemPrompt
	}

	direct, err := newDirectBackend(ctx, opts.Direct)
	if err != nil {
		return nil, fmt.Errorf("direct backend: %w", err)
	}

	if opts.Backend == BackendDirect {
		return &FailoverClient{primary: direct, direct: direct, logger: logger}, nil
	}

	c := &FailoverClient{
		primary:  newQueuedBackend(opts.Queued),
		direct:   direct,
		fallback: opts.Fallback,
		breaker:  NewCircuitBreaker(opts.Circuit, logger),
		logger:   logger,
	}

	if opts.Direct.BaseURL != "" || opts.Direct.APIKey != "" {
		c.secondary = direct
	}

	return c, nil
}

// Close releases SDK clients held by the direct backend.
func (c *FailoverClient) Close() error {
	return c.direct.Close()
}

// Primary reports the configured primary backend kind.
func (c *FailoverClient) Primary() BackendKind {
	return c.primary.Kind()
}

// GenerateTags tags text, failing over to the direct backend when enabled.
func (c *FailoverClient) GenerateTags(ctx context.Context, req TagRequest) (TagResult, error) {
	return callWithFailover(ctx, c, "tags", func(b backend) Outcome[TagResult] {
		return b.GenerateTags(ctx, req)
	})
}

// Embed returns a dense vector for text. An empty vector without error means the
// backend answered but produced nothing usable.
func (c *FailoverClient) Embed(ctx context.Context, text string) ([]float32, error) {
	return callWithFailover(ctx, c, "embed", func(b backend) Outcome[[]float32] {
		return b.Embed(ctx, text)
	})
}

func (c *FailoverClient) canFailover() bool {
	return c.fallback && c.secondary != nil
}

func callWithFailover[T any](ctx context.Context, c *FailoverClient, task string, call func(backend) Outcome[T]) (T, error) {
	var zero T

	if c.canFailover() && c.breaker != nil && !c.breaker.CanAttempt() {
		recordSkipped(c.primary.Kind())
		c.logger.Debug().Str(logKeyTask, task).Msg("primary backend circuit open, using direct backend")

		return invoke(c.secondary, task, call)
	}

	started := time.Now()
	out := call(c.primary)
	recordRequest(c.primary.Kind(), task, out.OK(), time.Since(started))

	if out.OK() {
		if c.breaker != nil {
			c.breaker.RecordSuccess()
			recordCircuit(c.primary.Kind(), c.breaker)
		}

		return out.Value, nil
	}

	if err := ctx.Err(); err != nil {
		return zero, err
	}

	if c.breaker != nil {
		c.breaker.RecordFailure(c.primary.Kind(), out.Failure.Kind)
		recordCircuit(c.primary.Kind(), c.breaker)
	}

	if !c.canFailover() {
		return zero, out.Failure
	}

	c.logger.Warn().
		Err(out.Failure.Err).
		Str(logKeyBackend, string(c.primary.Kind())).
		Str(logKeyKind, string(out.Failure.Kind)).
		Str(logKeyTask, task).
		Msg("primary backend failed, retrying on direct backend")
	recordFallback(task, out.Failure.Kind)

	return invoke(c.secondary, task, call)
}

func invoke[T any](b backend, task string, call func(backend) Outcome[T]) (T, error) {
	started := time.Now()
	out := call(b)
	recordRequest(b.Kind(), task, out.OK(), time.Since(started))

	if !out.OK() {
		var zero T
		return zero, out.Failure
	}

	return out.Value, nil
}
