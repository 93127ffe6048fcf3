package enrichment

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/lueurxax/channel-enricher/internal/core/domain"
	coreerrors "github.com/lueurxax/channel-enricher/internal/core/errors"
	"github.com/lueurxax/channel-enricher/internal/core/llm"
	"github.com/lueurxax/channel-enricher/internal/core/tagging"
	"github.com/lueurxax/channel-enricher/internal/platform/observability"
	"github.com/lueurxax/channel-enricher/internal/platform/worker"
)

// TagRepository is the storage surface used by the tagging loop.
type TagRepository interface {
	FetchPendingTags(ctx context.Context, limit int) ([]domain.ContentItem, error)
	SaveTags(ctx context.Context, itemID int64, tags []string) error
	UpdateEnrichment(ctx context.Context, itemID int64, emojiLine string, emoji []string, code domain.CodeVector) error
	MarkTagsProcessed(ctx context.Context, itemID int64) error
	MarkTagError(ctx context.Context, itemID int64, message string) error
}

// TagGenerator produces raw tags, emoji and a code vector for a text.
type TagGenerator interface {
	GenerateTags(ctx context.Context, req llm.TagRequest) (llm.TagResult, error)
}

type TaggerConfig struct {
	BatchSize     int
	MaxTags       int
	MaxChars      int
	Temperature   float64
	UseCandidates bool
	Interval      time.Duration
}

type Tagger struct {
	cfg        TaggerConfig
	repo       TagRepository
	generator  TagGenerator
	normalizer *tagging.Normalizer
	rate       *RateTracker
	tps        *TPSWindow
	progress   *ProgressState
	logger     *zerolog.Logger
}

func NewTagger(
	cfg TaggerConfig,
	repo TagRepository,
	generator TagGenerator,
	normalizer *tagging.Normalizer,
	rate *RateTracker,
	tps *TPSWindow,
	progress *ProgressState,
	logger *zerolog.Logger,
) *Tagger {
	return &Tagger{
		cfg:        cfg,
		repo:       repo,
		generator:  generator,
		normalizer: normalizer,
		rate:       rate,
		tps:        tps,
		progress:   progress,
		logger:     logger,
	}
}

// Run polls for untagged items until ctx is canceled.
func (t *Tagger) Run(ctx context.Context) error {
	return worker.Loop(ctx, worker.Config{
		Name:         stageTagging,
		PollInterval: t.cfg.Interval,
		Process:      t.ProcessBatch,
		OnError: func(err error) bool {
			t.logger.Error().Err(err).Msg("tagging batch failed")
			return true
		},
		Logger: t.logger,
	})
}

// ProcessBatch tags one batch of pending items. Item failures are recorded on
// the item and never abort the batch; only a failed fetch is returned.
func (t *Tagger) ProcessBatch(ctx context.Context) error {
	correlationID := uuid.NewString()
	logger := t.logger.With().Str(logKeyCorrelationID, correlationID).Logger()

	items, err := t.repo.FetchPendingTags(ctx, t.cfg.BatchSize)
	if err != nil {
		return fmt.Errorf("fetch pending tags: %w", err)
	}

	if len(items) == 0 {
		return nil
	}

	started := time.Now()

	logger.Debug().Int(logKeyCount, len(items)).Msg("tagging batch")

	for _, item := range items {
		if ctx.Err() != nil {
			return fmt.Errorf("tagging batch: %w", ctx.Err())
		}

		t.processItem(ctx, &logger, item)
	}

	observability.BatchDuration.WithLabelValues(stageTagging).Observe(time.Since(started).Seconds())

	return nil
}

func (t *Tagger) processItem(ctx context.Context, logger *zerolog.Logger, item domain.ContentItem) {
	started := time.Now()

	err := t.safeTagItem(ctx, logger, item)
	if err == nil {
		return
	}

	if ctx.Err() != nil {
		return
	}

	observability.RecordItem(stageTagging, observability.StatusError, time.Since(started).Seconds())
	t.progress.SetError(detailTagError, err)

	if markErr := t.repo.MarkTagError(ctx, item.ID, err.Error()); markErr != nil {
		logger.Error().Err(markErr).Int64(logKeyItemID, item.ID).Msg("failed to record tagging error")
	}

	logger.Error().Err(err).Int64(logKeyItemID, item.ID).Msg("tagging failed")
}

func (t *Tagger) safeTagItem(ctx context.Context, logger *zerolog.Logger, item domain.ContentItem) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", coreerrors.ErrItemPanic, r)
		}
	}()

	return t.tagItem(ctx, logger, item)
}

func (t *Tagger) tagItem(ctx context.Context, logger *zerolog.Logger, item domain.ContentItem) error {
	if tagging.IsServicePost(item.Content) {
		return t.skipServicePost(ctx, logger, item)
	}

	t.progress.Begin(domain.StageTagging, item, detailTagging)

	prepared := tagging.PrepareText(item.Content, t.cfg.MaxChars)

	var candidates []string
	if t.cfg.UseCandidates {
		candidates = tagging.ExtractCandidates(prepared)
	}

	started := time.Now()

	result, err := t.generator.GenerateTags(ctx, llm.TagRequest{
		Text:        prepared,
		MaxTags:     t.cfg.MaxTags,
		Temperature: t.cfg.Temperature,
		Candidates:  candidates,
	})
	if err != nil {
		return fmt.Errorf("generate tags: %w", err)
	}

	elapsed := time.Since(started)
	tags := t.normalizer.NormalizeTags(result.Tags)

	if len(tags) > 0 {
		if err := t.repo.SaveTags(ctx, item.ID, tags); err != nil {
			return fmt.Errorf("save tags: %w", err)
		}
	}

	emojiLine := domain.JoinEmoji(result.Emoji)

	if err := t.repo.UpdateEnrichment(ctx, item.ID, emojiLine, result.Emoji, result.Code); err != nil {
		return fmt.Errorf("update enrichment: %w", err)
	}

	if err := t.repo.MarkTagsProcessed(ctx, item.ID); err != nil {
		return fmt.Errorf("mark tags processed: %w", err)
	}

	t.rate.Add(1, elapsed)
	t.tps.Add(result.Meta.TokensPerSecond)
	observability.RecordItem(stageTagging, observability.StatusSuccess, elapsed.Seconds())

	t.progress.Set(func(p *Progress) {
		p.Tags = tags
		p.EmojiLine = emojiLine
		p.Code = result.Code
		p.TPS = result.Meta.TokensPerSecond
		p.Detail = fmt.Sprintf("Теги: %d | %d ms", len(tags), elapsed.Milliseconds())
	})

	logger.Info().
		Int64(logKeyItemID, item.ID).
		Int64(logKeyMessageID, item.MessageID).
		Str(logKeyChannel, item.ChannelUsername).
		Strs("tags", tags).
		Str("emoji", emojiLine).
		Str("backend", string(result.Meta.Backend)).
		Bool("parsed", result.Meta.Parsed).
		Int64(logKeyElapsedMS, elapsed.Milliseconds()).
		Float64("tps", result.Meta.TokensPerSecond).
		Msg("item tagged")

	return nil
}

func (t *Tagger) skipServicePost(ctx context.Context, logger *zerolog.Logger, item domain.ContentItem) error {
	marker := []string{domain.ServiceEmoji}

	if err := t.repo.UpdateEnrichment(ctx, item.ID, domain.ServiceEmoji, marker, nil); err != nil {
		return fmt.Errorf("update enrichment: %w", err)
	}

	if err := t.repo.MarkTagsProcessed(ctx, item.ID); err != nil {
		return fmt.Errorf("mark tags processed: %w", err)
	}

	t.progress.Begin(domain.StageTagging, item, detailServicePost)
	t.progress.Set(func(p *Progress) { p.EmojiLine = domain.ServiceEmoji })

	observability.RecordItem(stageTagging, observability.StatusSkipped, 0)
	logger.Info().Int64(logKeyItemID, item.ID).Msg("service post skipped")

	return nil
}
