package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// Direct protocol dialects.
const (
	ProtocolOllama    = "ollama"
	ProtocolOpenAI    = "openai"
	ProtocolAnthropic = "anthropic"
	ProtocolGoogle    = "google"
)

const (
	directDefaultTimeout = 60 * time.Second
	directLimiterBurst   = 2
	directMaxTokens      = 700
	nanosPerSecond       = float64(time.Second)
	errRateLimiter       = "rate limiter: %w"
)

// DirectConfig configures the synchronous backend.
type DirectConfig struct {
	BaseURL      string
	Protocol     string
	APIKey       string
	TagModel     string
	EmbedModel   string
	SystemPrompt string
	Timeout      time.Duration
	// RPS limits outgoing requests; zero disables limiting.
	RPS float64
}

// chatReply is the model text of one synchronous chat call with its metadata.
type chatReply struct {
	content string
	model   string
	tps     float64
}

// dialect is one wire protocol of the direct backend.
type dialect interface {
	chat(ctx context.Context, system, prompt string, temperature float64) (chatReply, error)
	embed(ctx context.Context, text string) ([]float32, error)
	close() error
}

type directBackend struct {
	protocol     string
	systemPrompt string
	dialect      dialect
	limiter      *rate.Limiter
}

func newDirectBackend(ctx context.Context, cfg DirectConfig) (*directBackend, error) {
	if cfg.Timeout <= 0 {
		cfg.Timeout = directDefaultTimeout
	}

	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	cfg.Protocol = strings.ToLower(strings.TrimSpace(cfg.Protocol))

	limit := rate.Inf
	if cfg.RPS > 0 {
		limit = rate.Limit(cfg.RPS)
	}

	var (
		d   dialect
		err error
	)

	switch cfg.Protocol {
	case ProtocolOpenAI:
		d = newOpenAIDialect(cfg)
	case ProtocolAnthropic:
		d = newAnthropicDialect(cfg)
	case ProtocolGoogle:
		d, err = newGoogleDialect(ctx, cfg)
		if err != nil {
			return nil, err
		}
	default:
		cfg.Protocol = ProtocolOllama
		d = newOllamaDialect(cfg)
	}

	return &directBackend{
		protocol:     cfg.Protocol,
		systemPrompt: cfg.SystemPrompt,
		dialect:      d,
		limiter:      rate.NewLimiter(limit, directLimiterBurst),
	}, nil
}

func (b *directBackend) Kind() BackendKind { return BackendDirect }

func (b *directBackend) GenerateTags(ctx context.Context, req TagRequest) Outcome[TagResult] {
	if err := b.limiter.Wait(ctx); err != nil {
		return fail[TagResult](BackendDirect, fmt.Errorf(errRateLimiter, err))
	}

	started := time.Now()

	reply, err := b.dialect.chat(ctx, b.systemPrompt, directTagPrompt(req), req.Temperature)
	if err != nil {
		return fail[TagResult](BackendDirect, err)
	}

	meta := Meta{
		Backend:         BackendDirect,
		Provider:        b.protocol,
		Model:           reply.model,
		Elapsed:         time.Since(started),
		TokensPerSecond: reply.tps,
	}

	return succeed(assembleTags(reply.content, req, meta))
}

// Embed returns an empty vector without error when the backend answered without one.
func (b *directBackend) Embed(ctx context.Context, text string) Outcome[[]float32] {
	if err := b.limiter.Wait(ctx); err != nil {
		return fail[[]float32](BackendDirect, fmt.Errorf(errRateLimiter, err))
	}

	vec, err := b.dialect.embed(ctx, text)
	if err != nil {
		return fail[[]float32](BackendDirect, err)
	}

	return succeed(vec)
}

func (b *directBackend) Close() error {
	return b.dialect.close()
}

func tokensPerSecond(count, durationNanos int64) float64 {
	if count <= 0 || durationNanos <= 0 {
		return 0
	}

	return float64(count) / (float64(durationNanos) / nanosPerSecond)
}
