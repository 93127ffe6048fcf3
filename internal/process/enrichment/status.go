package enrichment

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"github.com/lueurxax/channel-enricher/internal/core/domain"
	"github.com/lueurxax/channel-enricher/internal/platform/observability"
	"github.com/lueurxax/channel-enricher/internal/platform/worker"
)

// StatsSource reads the aggregate counters of the repository.
type StatsSource interface {
	FetchStats(ctx context.Context) (domain.Stats, error)
}

// StatusPublisher receives the rendered status message.
type StatusPublisher interface {
	Update(ctx context.Context, lines []string)
}

// StatusReport is everything one status message is built from.
type StatusReport struct {
	Stats       domain.Stats
	TagRate     float64
	TagRateOK   bool
	EmbedRate   float64
	EmbedRateOK bool
	TagETA      string
	EmbedETA    string
	AvgTPS      float64
	AvgTPSOK    bool
	Host        HostSample
	Progress    Progress
}

type StatusConfig struct {
	// Interval is the period of the log snapshot.
	Interval time.Duration
	// NotifyInterval is the minimum notification update interval; zero without a publisher.
	NotifyInterval time.Duration
}

// Status periodically publishes a live status message and logs aggregate counters.
type Status struct {
	cfg       StatusConfig
	stats     StatsSource
	tagRate   *RateTracker
	embedRate *RateTracker
	tps       *TPSWindow
	progress  *ProgressState
	host      *HostSampler
	publisher StatusPublisher
	logger    *zerolog.Logger
}

func NewStatus(
	cfg StatusConfig,
	stats StatsSource,
	tagRate, embedRate *RateTracker,
	tps *TPSWindow,
	progress *ProgressState,
	host *HostSampler,
	publisher StatusPublisher,
	logger *zerolog.Logger,
) *Status {
	return &Status{
		cfg:       cfg,
		stats:     stats,
		tagRate:   tagRate,
		embedRate: embedRate,
		tps:       tps,
		progress:  progress,
		host:      host,
		publisher: publisher,
		logger:    logger,
	}
}

// Run ticks at the shorter of the status and notification intervals. With a
// publisher attached the log snapshot is taken once at start and then on its
// own, slower, secondary tick.
func (s *Status) Run(ctx context.Context) error {
	cfg := worker.SingleTickerConfig{
		Name:       "status",
		Interval:   s.cfg.Interval,
		RunOnStart: true,
		OnTick:     s.logTick,
		Logger:     s.logger,
	}

	if s.publisher != nil {
		cfg.Interval = s.tick()
		cfg.OnTick = s.publishTick
		cfg.SecondaryInterval = s.cfg.Interval
		cfg.OnSecondaryTick = s.logTick
		cfg.OnStart = s.logTick
	}

	return worker.SingleTickerLoop(ctx, cfg)
}

func (s *Status) tick() time.Duration {
	if s.cfg.NotifyInterval > 0 && s.cfg.NotifyInterval < s.cfg.Interval {
		return s.cfg.NotifyInterval
	}

	return s.cfg.Interval
}

func (s *Status) publishTick(ctx context.Context) {
	report, err := s.Collect(ctx)
	if err != nil {
		s.logger.Warn().Err(err).Msg("status stats unavailable")
		return
	}

	s.publisher.Update(ctx, BuildStatusLines(report))
}

func (s *Status) logTick(ctx context.Context) {
	report, err := s.Collect(ctx)
	if err != nil {
		s.logger.Warn().Err(err).Msg("status stats unavailable")
		return
	}

	event := s.logger.Info().
		Int("total", report.Stats.Total).
		Int("tagged", report.Stats.Tagged).
		Int("pending_tags", report.Stats.TagsPending).
		Int("embedded", report.Stats.Embedded).
		Int("pending_embed", report.Stats.EmbeddingsPending).
		Str("tag_eta", report.TagETA).
		Str("embed_eta", report.EmbedETA)

	if report.TagRateOK {
		event = event.Float64("tag_rate", round2(report.TagRate))
	}

	if report.EmbedRateOK {
		event = event.Float64("embed_rate", round2(report.EmbedRate))
	}

	if report.AvgTPSOK {
		event = event.Float64("tps", round2(report.AvgTPS))
	}

	if h := report.Host; h.Load1 != nil {
		event = event.Float64("load1", *h.Load1)
	}

	if h := report.Host; h.MemUsedMB != nil && h.MemTotalMB != nil {
		event = event.Uint64("mem_used_mb", *h.MemUsedMB).Uint64("mem_total_mb", *h.MemTotalMB)
	}

	if h := report.Host; h.CPUPercent != nil {
		event = event.Float64("cpu_percent", *h.CPUPercent)
	}

	event.Msg("status")
}

// Collect reads the counters, rates and host sample for one status tick.
func (s *Status) Collect(ctx context.Context) (StatusReport, error) {
	stats, err := s.stats.FetchStats(ctx)
	if err != nil {
		return StatusReport{}, fmt.Errorf("fetch stats: %w", err)
	}

	report := StatusReport{Stats: stats}

	report.TagRate, report.TagRateOK = s.tagRate.Rate()
	report.EmbedRate, report.EmbedRateOK = s.embedRate.Rate()
	report.TagETA = FormatETA(ETA(stats.TagsPending, report.TagRate, report.TagRateOK))
	report.EmbedETA = FormatETA(ETA(stats.EmbeddingsPending, report.EmbedRate, report.EmbedRateOK))
	report.AvgTPS, report.AvgTPSOK = s.tps.Average()

	if s.host != nil {
		report.Host = s.host.Sample()
	}

	if s.progress != nil {
		report.Progress = s.progress.Snapshot()
	}

	observability.RecordBacklog(int64(stats.Total), int64(stats.TagsPending), int64(stats.EmbeddingsPending))
	observability.RecordRate(stageTagging, report.TagRate, report.TagRateOK)
	observability.RecordRate(stageEmbedding, report.EmbedRate, report.EmbedRateOK)

	return report, nil
}

// BuildStatusLines renders the human-readable status message.
func BuildStatusLines(r StatusReport) []string {
	p := r.Progress

	stage := p.Stage
	if stage == "" {
		stage = domain.StageIdle
	}

	lines := []string{"⏳ Стадия: " + stage}
	lines = append(lines, progressLines(p)...)

	st := r.Stats
	lines = append(lines, "", fmt.Sprintf("📦 Всего: %d | Теги: %d | Эмбед: %d", st.Total, st.Tagged, st.Embedded))

	if st.Total > 0 {
		lines = append(lines,
			fmt.Sprintf("📊 Теги %s %d/%d", progressBar(float64(st.Tagged)/float64(st.Total)), st.Tagged, st.Total),
			fmt.Sprintf("📊 Эмбед %s %d/%d", progressBar(float64(st.Embedded)/float64(st.Total)), st.Embedded, st.Total),
		)
	}

	lines = append(lines,
		fmt.Sprintf("⏱️ Теги: %d осталось | %s/s | ETA %s", st.TagsPending, formatRate(r.TagRate, r.TagRateOK), r.TagETA),
		fmt.Sprintf("⏱️ Эмбед: %d осталось | %s/s | ETA %s", st.EmbeddingsPending, formatRate(r.EmbedRate, r.EmbedRateOK), r.EmbedETA),
	)

	if perf := perfLine(p, r); perf != "" {
		lines = append(lines, "⚙️ "+perf)
	}

	return lines
}

func progressLines(p Progress) []string {
	var lines []string

	if p.Channel != "" {
		lines = append(lines, "📺 Канал: @"+p.Channel)
	}

	if p.MessageID != 0 {
		lines = append(lines, fmt.Sprintf("🧾 Пост: %d", p.MessageID))
	}

	if p.Preview != "" {
		lines = append(lines, "📝 "+p.Preview)
	}

	if tags := formatTags(p.Tags, tagsLimit); tags != "" {
		lines = append(lines, "🏷️ "+tags)
	}

	if p.EmojiLine != "" {
		lines = append(lines, "✨ "+p.EmojiLine)
	}

	if code := formatCode(p.Code, codeLimit); code != "" {
		lines = append(lines, "🔢 "+code)
	}

	if p.EmbedInfo != "" {
		lines = append(lines, "🧬 "+p.EmbedInfo)
	}

	if p.Detail != "" {
		lines = append(lines, "ℹ️ "+p.Detail)
	}

	if p.LastError != "" {
		lines = append(lines, "⚠️ "+truncateRunes(p.LastError, errorLimit))
	}

	return lines
}

func perfLine(p Progress, r StatusReport) string {
	var parts []string

	switch {
	case p.TPS > 0:
		parts = append(parts, fmt.Sprintf("tps %.2f", p.TPS))
	case r.AvgTPSOK && r.AvgTPS > 0:
		parts = append(parts, fmt.Sprintf("tps~%.2f", r.AvgTPS))
	}

	if r.Host.Load1 != nil {
		parts = append(parts, fmt.Sprintf("load %.2f", *r.Host.Load1))
	}

	if r.Host.MemUsedMB != nil && r.Host.MemTotalMB != nil {
		parts = append(parts, fmt.Sprintf("ram %d/%dMB", *r.Host.MemUsedMB, *r.Host.MemTotalMB))
	}

	if r.Host.CPUPercent != nil {
		parts = append(parts, fmt.Sprintf("cpu %.1f%%", *r.Host.CPUPercent))
	}

	return strings.Join(parts, " | ")
}

func formatRate(rate float64, ok bool) string {
	if !ok || rate == 0 {
		return "-"
	}

	return fmt.Sprintf("%.2f", rate)
}

func formatTags(tags []string, limit int) string {
	if len(tags) == 0 {
		return ""
	}

	if len(tags) <= limit {
		return strings.Join(tags, ", ")
	}

	return strings.Join(tags[:limit], ", ") + " ..."
}

// formatCode lists the highest-valued dimensions first.
func formatCode(code domain.CodeVector, limit int) string {
	if len(code) == 0 {
		return ""
	}

	type pair struct {
		key   string
		value float64
	}

	pairs := make([]pair, 0, len(code))
	for _, k := range domain.CodeKeys {
		if v, ok := code[k]; ok {
			pairs = append(pairs, pair{key: string(k), value: v})
		}
	}

	sort.SliceStable(pairs, func(i, j int) bool { return pairs[i].value > pairs[j].value })

	parts := make([]string, 0, limit)
	for i, p := range pairs {
		if i == limit {
			break
		}

		parts = append(parts, fmt.Sprintf("%s=%.2f", p.key, p.value))
	}

	out := strings.Join(parts, " ")
	if len(pairs) > limit {
		out += " ..."
	}

	return out
}

func progressBar(share float64) string {
	share = math.Max(0, math.Min(1, share))
	filled := int(math.Round(share * progressCells))

	return "[" + strings.Repeat("#", filled) + strings.Repeat("-", progressCells-filled) + "]"
}

// shortPreview collapses whitespace and cuts text to limit runes with a trailing ellipsis.
func shortPreview(text string, limit int) string {
	cleaned := strings.Join(strings.Fields(text), " ")
	if utf8.RuneCountInString(cleaned) <= limit {
		return cleaned
	}

	runes := []rune(cleaned)
	cut := limit - len("...")

	if cut < 0 {
		cut = 0
	}

	return strings.TrimRight(string(runes[:cut]), " ") + "..."
}

func truncateRunes(text string, limit int) string {
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}

	return string(runes[:limit])
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
