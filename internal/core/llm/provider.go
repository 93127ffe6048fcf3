package llm

import (
	"context"
	"strings"
	"time"

	"github.com/lueurxax/channel-enricher/internal/core/domain"
)

// BackendKind identifies a model transport.
type BackendKind string

const (
	BackendQueued BackendKind = "queued"
	BackendDirect BackendKind = "direct"
)

// ParseBackendKind maps configuration values to a backend kind.
// Unknown values select the queued backend.
func ParseBackendKind(value string) BackendKind {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "direct", "ollama", "openai":
		return BackendDirect
	default:
		return BackendQueued
	}
}

// TagRequest is the input of a tagging call.
type TagRequest struct {
	Text        string
	MaxTags     int
	Temperature float64
	Candidates  []string
}

// Meta describes how a tagging result was produced.
type Meta struct {
	Backend  BackendKind
	Provider string
	Model    string
	Elapsed  time.Duration
	// TokensPerSecond is the generation speed reported by the model; zero when unknown.
	TokensPerSecond float64
	// Parsed is false when the heuristic scorer replaced unusable model output.
	Parsed bool
}

// TagResult is the outcome of a tagging call before tag normalization.
type TagResult struct {
	Tags  []string
	Emoji []string
	Code  domain.CodeVector
	Meta  Meta
}

// Client tags and embeds text through the configured backend chain.
type Client interface {
	GenerateTags(ctx context.Context, req TagRequest) (TagResult, error)
	Embed(ctx context.Context, text string) ([]float32, error)
}

// backend is one transport. Failures are returned as typed outcomes so that the
// failover decision stays with the caller.
type backend interface {
	Kind() BackendKind
	GenerateTags(ctx context.Context, req TagRequest) Outcome[TagResult]
	Embed(ctx context.Context, text string) Outcome[[]float32]
}
