// Package app wires configuration, storage, the language model client and the
// notification gateway into the enrichment loops and supervises them.
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/lueurxax/channel-enricher/internal/core/llm"
	"github.com/lueurxax/channel-enricher/internal/core/tagging"
	"github.com/lueurxax/channel-enricher/internal/notify"
	"github.com/lueurxax/channel-enricher/internal/platform/config"
	"github.com/lueurxax/channel-enricher/internal/platform/observability"
	"github.com/lueurxax/channel-enricher/internal/platform/worker"
	"github.com/lueurxax/channel-enricher/internal/process/enrichment"
	db "github.com/lueurxax/channel-enricher/internal/storage"
)

const (
	msgStopped        = "⏹️ channel-enricher остановлен"
	logFieldBackend   = "backend"
	logFieldTransport = "transport"
)

// App holds the application dependencies.
type App struct {
	cfg      *config.Config
	database *db.DB
	logger   *zerolog.Logger
}

func New(cfg *config.Config, database *db.DB, logger *zerolog.Logger) *App {
	return &App{
		cfg:      cfg,
		database: database,
		logger:   logger,
	}
}

// StartHealthServer serves health probes and metrics until ctx is canceled.
func (a *App) StartHealthServer(ctx context.Context) error {
	srv := observability.NewServer(a.database, a.cfg.HealthPort, a.logger)

	if err := srv.Start(ctx); err != nil {
		return fmt.Errorf("health server: %w", err)
	}

	return nil
}

// RunWorker runs the tagging, embedding and status loops until ctx is canceled,
// then publishes the final "stopped" message and releases the backends.
func (a *App) RunWorker(ctx context.Context) error {
	llmClient, err := llm.New(ctx, a.llmOptions(), a.logger)
	if err != nil {
		return fmt.Errorf("llm client: %w", err)
	}

	defer a.closeLLM(llmClient)

	a.logger.Info().Str(logFieldBackend, string(llmClient.Primary())).Bool("fallback", a.cfg.LLMBackendFallback).Msg("llm backend ready")

	normalizer, err := a.newNormalizer()
	if err != nil {
		return err
	}

	progress := enrichment.NewProgressState()

	notifier, gateway := a.newNotifier()
	if gateway != nil {
		defer gateway.Close()
	}

	var publisher enrichment.StatusPublisher
	if notifier != nil {
		progress.MarkStartup()

		publisher = notifier
	}

	tagRate := enrichment.NewRateTracker(0)
	embedRate := enrichment.NewRateTracker(0)
	tps := enrichment.NewTPSWindow(0)

	tagger := a.newTagger(llmClient, normalizer, tagRate, tps, progress)
	embedder := a.newEmbedder(llmClient, embedRate, progress)

	status := enrichment.NewStatus(
		enrichment.StatusConfig{Interval: a.cfg.StatusInterval, NotifyInterval: a.notifyInterval()},
		a.database,
		tagRate,
		embedRate,
		tps,
		progress,
		enrichment.NewHostSampler(""),
		publisher,
		a.logger,
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return tagger.Run(gctx) })
	g.Go(func() error { return embedder.Run(gctx) })
	g.Go(func() error { return status.Run(gctx) })

	err = g.Wait()

	if notifier != nil {
		a.finish(notifier)
	}

	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("enrichment loops: %w", err)
	}

	return nil
}

// RunOnce processes a single tagging batch and a single embedding batch.
func (a *App) RunOnce(ctx context.Context) error {
	llmClient, err := llm.New(ctx, a.llmOptions(), a.logger)
	if err != nil {
		return fmt.Errorf("llm client: %w", err)
	}

	defer a.closeLLM(llmClient)

	normalizer, err := a.newNormalizer()
	if err != nil {
		return err
	}

	progress := enrichment.NewProgressState()

	tagger := a.newTagger(llmClient, normalizer, enrichment.NewRateTracker(0), enrichment.NewTPSWindow(0), progress)
	if err := tagger.ProcessBatch(ctx); err != nil {
		return fmt.Errorf("tagging batch: %w", err)
	}

	embedder := a.newEmbedder(llmClient, enrichment.NewRateTracker(0), progress)
	if err := embedder.ProcessBatch(ctx); err != nil {
		return fmt.Errorf("embedding batch: %w", err)
	}

	return nil
}

func (a *App) newTagger(
	client *llm.FailoverClient,
	normalizer *tagging.Normalizer,
	rate *enrichment.RateTracker,
	tps *enrichment.TPSWindow,
	progress *enrichment.ProgressState,
) *enrichment.Tagger {
	return enrichment.NewTagger(
		enrichment.TaggerConfig{
			BatchSize:     a.cfg.TagBatchSize,
			MaxTags:       a.cfg.TagMaxCount,
			MaxChars:      a.cfg.TagMaxChars,
			Temperature:   a.cfg.TagTemperature,
			UseCandidates: a.cfg.TagUseCandidates,
			Interval:      a.cfg.TaggingInterval,
		},
		a.database,
		client,
		normalizer,
		rate,
		tps,
		progress,
		a.logger,
	)
}

func (a *App) newEmbedder(client *llm.FailoverClient, rate *enrichment.RateTracker, progress *enrichment.ProgressState) *enrichment.Embedder {
	return enrichment.NewEmbedder(
		enrichment.EmbedderConfig{
			BatchSize: a.cfg.EmbedBatchSize,
			MaxChars:  a.cfg.EmbedMaxChars,
			Model:     a.cfg.EmbedModel,
			Interval:  a.cfg.EmbeddingInterval,
		},
		a.database,
		client,
		rate,
		progress,
		a.logger,
	)
}

func (a *App) newNormalizer() (*tagging.Normalizer, error) {
	lemmatizer, err := tagging.ParseLemmas(a.cfg.TagLemmas)
	if err != nil {
		return nil, fmt.Errorf("tag lemmas: %w", err)
	}

	return tagging.NewNormalizer(tagging.BuildAliasMap(a.cfg.TagAliases), lemmatizer), nil
}

func (a *App) closeLLM(client *llm.FailoverClient) {
	if err := client.Close(); err != nil {
		a.logger.Warn().Err(err).Msg("failed to close llm client")
	}
}

func (a *App) finish(notifier *notify.Notifier) {
	_ = worker.RunWithTimeout(context.Background(), a.cfg.NotifyTimeout, func(ctx context.Context) error {
		notifier.Done(ctx, msgStopped)
		return nil
	})
}

func (a *App) notifyInterval() time.Duration {
	if !a.cfg.NotifyEnabled {
		return 0
	}

	return a.cfg.NotifyUpdateInterval
}

func (a *App) llmOptions() llm.Options {
	return llm.Options{
		Backend:  llm.ParseBackendKind(a.cfg.BackendKind()),
		Fallback: a.cfg.LLMBackendFallback,
		Queued: llm.QueuedConfig{
			BaseURL:      a.cfg.LLMQueueBaseURL,
			Provider:     a.cfg.LLMQueueProvider,
			TagModel:     a.cfg.TagModel,
			EmbedModel:   a.cfg.EmbedModel,
			SystemPrompt: a.cfg.SystemPrompt,
			Timeout:      a.cfg.LLMBackendTimeout,
		},
		Direct: llm.DirectConfig{
			BaseURL:      a.cfg.DirectBaseURL,
			Protocol:     a.cfg.DirectProtocol,
			APIKey:       a.cfg.DirectAPIKey,
			TagModel:     a.cfg.TagModel,
			EmbedModel:   a.cfg.EmbedModel,
			SystemPrompt: a.cfg.SystemPrompt,
			Timeout:      a.cfg.DirectTimeout,
			RPS:          a.cfg.DirectRPS,
		},
		Circuit: llm.CircuitBreakerConfig{
			Threshold:  a.cfg.LLMQueueCircuitThresh,
			ResetAfter: a.cfg.LLMQueueCircuitReset,
		},
	}
}

// newNotifier returns nil values when notifications are off or no transport could be built.
func (a *App) newNotifier() (*notify.Notifier, *notify.Gateway) {
	if !a.cfg.NotifyEnabled {
		return nil, nil
	}

	var primary, secondary notify.Transport

	if a.cfg.BrokerEnabled {
		primary = notify.NewBrokerTransport(a.cfg.BrokerBaseURL, a.cfg.BrokerBotID, a.cfg.NotifyTimeout)
	}

	if a.cfg.BotToken != "" && (primary == nil || a.cfg.NotifyFallbackDirect) {
		direct, err := notify.NewDirectTransport(a.cfg.BotToken, a.cfg.NotifyTimeout)
		if err != nil {
			a.logger.Warn().Err(err).Str(logFieldTransport, string(notify.TransportDirect)).Msg("direct notification transport unavailable")
		} else {
			secondary = direct
		}
	}

	gateway, err := notify.NewGateway(primary, secondary, a.logger)
	if err != nil {
		a.logger.Warn().Err(err).Msg("notifications disabled")
		return nil, nil
	}

	return notify.NewNotifier(gateway, a.cfg.NotifyChatID, a.cfg.NotifyUpdateInterval, a.cfg.NotifyTimeout, a.logger), gateway
}
