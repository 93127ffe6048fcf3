package enrichment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/lueurxax/channel-enricher/internal/core/domain"
	coreerrors "github.com/lueurxax/channel-enricher/internal/core/errors"
	"github.com/lueurxax/channel-enricher/internal/core/tagging"
	"github.com/lueurxax/channel-enricher/internal/platform/observability"
	"github.com/lueurxax/channel-enricher/internal/platform/worker"
)

type EmbedRepository interface {
	FetchPendingEmbeddings(ctx context.Context, limit int) ([]domain.ContentItem, error)
	SaveEmbedding(ctx context.Context, itemID int64, model string, vector []float32) error
	MarkEmbeddingProcessed(ctx context.Context, itemID int64) error
	MarkEmbeddingError(ctx context.Context, itemID int64, message string) error
}

type VectorEmbedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

type EmbedderConfig struct {
	BatchSize int
	MaxChars  int
	Model     string
	Interval  time.Duration
}

// Embedder computes dense vectors for tagged items.
type Embedder struct {
	cfg      EmbedderConfig
	repo     EmbedRepository
	backend  VectorEmbedder
	rate     *RateTracker
	progress *ProgressState
	logger   *zerolog.Logger
}

func NewEmbedder(
	cfg EmbedderConfig,
	repo EmbedRepository,
	backend VectorEmbedder,
	rate *RateTracker,
	progress *ProgressState,
	logger *zerolog.Logger,
) *Embedder {
	return &Embedder{
		cfg:      cfg,
		repo:     repo,
		backend:  backend,
		rate:     rate,
		progress: progress,
		logger:   logger,
	}
}

func (e *Embedder) Run(ctx context.Context) error {
	return worker.Loop(ctx, worker.Config{
		Name:         stageEmbedding,
		PollInterval: e.cfg.Interval,
		Process:      e.ProcessBatch,
		OnError: func(err error) bool {
			e.logger.Error().Err(err).Msg("embedding batch failed")
			return true
		},
		Logger: e.logger,
	})
}

func (e *Embedder) ProcessBatch(ctx context.Context) error {
	logger := e.logger.With().Str(logKeyCorrelationID, uuid.NewString()).Logger()

	items, err := e.repo.FetchPendingEmbeddings(ctx, e.cfg.BatchSize)
	if err != nil {
		return fmt.Errorf("fetch pending embeddings: %w", err)
	}

	if len(items) == 0 {
		return nil
	}

	started := time.Now()

	for _, item := range items {
		if ctx.Err() != nil {
			return fmt.Errorf("embedding batch: %w", ctx.Err())
		}

		e.processItem(ctx, &logger, item)
	}

	observability.BatchDuration.WithLabelValues(stageEmbedding).Observe(time.Since(started).Seconds())

	return nil
}

func (e *Embedder) processItem(ctx context.Context, logger *zerolog.Logger, item domain.ContentItem) {
	err := e.safeEmbedItem(ctx, logger, item)
	if err == nil || ctx.Err() != nil {
		return
	}

	observability.RecordItem(stageEmbedding, observability.StatusError, 0)

	if !errors.Is(err, coreerrors.ErrEmptyEmbedding) {
		e.progress.SetError(detailEmbedError, err)
		e.progress.Set(func(p *Progress) { p.EmbedInfo = detailEmbedError })
	}

	if markErr := e.repo.MarkEmbeddingError(ctx, item.ID, err.Error()); markErr != nil {
		logger.Error().Err(markErr).Int64(logKeyItemID, item.ID).Msg("failed to record embedding error")
	}

	logger.Error().Err(err).Int64(logKeyItemID, item.ID).Msg("embedding failed")
}

func (e *Embedder) safeEmbedItem(ctx context.Context, logger *zerolog.Logger, item domain.ContentItem) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", coreerrors.ErrItemPanic, r)
		}
	}()

	return e.embedItem(ctx, logger, item)
}

func (e *Embedder) embedItem(ctx context.Context, logger *zerolog.Logger, item domain.ContentItem) error {
	input := tagging.Truncate(item.Content, e.cfg.MaxChars)

	e.progress.Begin(domain.StageEmbedding, domain.ContentItem{
		ChannelUsername: item.ChannelUsername,
		MessageID:       item.MessageID,
		Content:         input,
	}, detailEmbedding)
	e.progress.Set(func(p *Progress) { p.EmbedInfo = "Модель: " + e.cfg.Model })

	started := time.Now()

	vector, err := e.backend.Embed(ctx, input)
	if err != nil {
		return fmt.Errorf("embed: %w", err)
	}

	elapsed := time.Since(started)

	if len(vector) == 0 {
		e.progress.Set(func(p *Progress) { p.EmbedInfo = coreerrors.ErrEmptyEmbedding.Error() })
		return coreerrors.ErrEmptyEmbedding
	}

	if err := e.repo.SaveEmbedding(ctx, item.ID, e.cfg.Model, vector); err != nil {
		return fmt.Errorf("save embedding: %w", err)
	}

	if err := e.repo.MarkEmbeddingProcessed(ctx, item.ID); err != nil {
		return fmt.Errorf("mark embedding processed: %w", err)
	}

	e.rate.Add(1, elapsed)
	observability.RecordItem(stageEmbedding, observability.StatusSuccess, elapsed.Seconds())

	e.progress.Set(func(p *Progress) {
		p.EmbedInfo = fmt.Sprintf("ok | dim %d | %d ms", len(vector), elapsed.Milliseconds())
	})

	logger.Info().
		Int64(logKeyItemID, item.ID).
		Int("dim", len(vector)).
		Int64(logKeyElapsedMS, elapsed.Milliseconds()).
		Msg("item embedded")

	return nil
}
