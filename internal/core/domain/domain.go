package domain

import (
	"strings"
	"time"
)

// ContentItem is a harvested channel post awaiting or holding enrichment.
type ContentItem struct {
	ID                 int64
	MessageID          int64
	ChannelUsername    string
	Content            string
	TS                 time.Time
	TagsProcessed      bool
	EmbeddingProcessed bool
	TagAttempts        int
	EmbeddingAttempts  int
	LastTagError       string
	LastEmbeddingError string
}

// EnrichmentResult is the outcome of tagging a single item.
type EnrichmentResult struct {
	Tags      []string
	Emoji     []string
	Code      CodeVector
	Embedding []float32
}

// EmojiLine joins the emoji sequence the way it is stored and displayed.
func (r EnrichmentResult) EmojiLine() string {
	return JoinEmoji(r.Emoji)
}

// JoinEmoji renders an emoji list as a single space-separated line.
func JoinEmoji(emoji []string) string {
	return strings.Join(emoji, " ")
}

// Stats holds aggregate repository counters used by the status loop.
type Stats struct {
	Total             int
	Tagged            int
	TagsPending       int
	Embedded          int
	EmbeddingsPending int
}

// Stage names reported through ProgressState.
const (
	StageIdle      = "Idle"
	StageStartup   = "Startup"
	StageTagging   = "Tagging"
	StageEmbedding = "Embedding"
)

// ServiceEmoji marks non-substantive service posts and is the default news marker.
const ServiceEmoji = "📰"
