package enrichment

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/lueurxax/channel-enricher/internal/core/domain"
	coreerrors "github.com/lueurxax/channel-enricher/internal/core/errors"
	"github.com/lueurxax/channel-enricher/internal/core/llm"
	"github.com/lueurxax/channel-enricher/internal/core/tagging"
)

const (
	methodFetchPendingTags  = "FetchPendingTags"
	methodSaveTags          = "SaveTags"
	methodUpdateEnrichment  = "UpdateEnrichment"
	methodMarkTagsProcessed = "MarkTagsProcessed"
	methodMarkTagError      = "MarkTagError"
	methodGenerateTags      = "GenerateTags"
)

var errBackendDown = errors.New("backend down")

type mockTagRepo struct {
	mock.Mock
}

func (m *mockTagRepo) FetchPendingTags(ctx context.Context, limit int) ([]domain.ContentItem, error) {
	args := m.Called(ctx, limit)

	items, _ := args.Get(0).([]domain.ContentItem)

	return items, args.Error(1)
}

func (m *mockTagRepo) SaveTags(ctx context.Context, itemID int64, tags []string) error {
	return m.Called(ctx, itemID, tags).Error(0)
}

func (m *mockTagRepo) UpdateEnrichment(ctx context.Context, itemID int64, emojiLine string, emoji []string, code domain.CodeVector) error {
	return m.Called(ctx, itemID, emojiLine, emoji, code).Error(0)
}

func (m *mockTagRepo) MarkTagsProcessed(ctx context.Context, itemID int64) error {
	return m.Called(ctx, itemID).Error(0)
}

func (m *mockTagRepo) MarkTagError(ctx context.Context, itemID int64, message string) error {
	return m.Called(ctx, itemID, message).Error(0)
}

type mockGenerator struct {
	mock.Mock
}

func (m *mockGenerator) GenerateTags(ctx context.Context, req llm.TagRequest) (llm.TagResult, error) {
	args := m.Called(ctx, req)

	res, _ := args.Get(0).(llm.TagResult)

	return res, args.Error(1)
}

func newTestTagger(repo TagRepository, gen TagGenerator) (*Tagger, *ProgressState, *RateTracker) {
	logger := zerolog.Nop()
	progress := NewProgressState()
	rate := NewRateTracker(0)

	t := NewTagger(
		TaggerConfig{BatchSize: 10, MaxTags: 30, MaxChars: 2000, Temperature: 0.1, UseCandidates: true, Interval: time.Minute},
		repo, gen, tagging.NewNormalizer(nil, nil), rate, NewTPSWindow(0), progress, &logger,
	)

	return t, progress, rate
}

func TestTagger_ServicePost(t *testing.T) {
	repo := &mockTagRepo{}
	gen := &mockGenerator{}
	item := domain.ContentItem{ID: 1, MessageID: 10, ChannelUsername: "news", Content: "Прямой эфир"}

	repo.On(methodFetchPendingTags, mock.Anything, 10).Return([]domain.ContentItem{item}, nil)
	repo.On(methodUpdateEnrichment, mock.Anything, int64(1), domain.ServiceEmoji, []string{domain.ServiceEmoji}, domain.CodeVector(nil)).Return(nil)
	repo.On(methodMarkTagsProcessed, mock.Anything, int64(1)).Return(nil)

	tagger, progress, _ := newTestTagger(repo, gen)

	require.NoError(t, tagger.ProcessBatch(context.Background()))

	repo.AssertExpectations(t)
	gen.AssertNotCalled(t, methodGenerateTags, mock.Anything, mock.Anything)
	assert.Equal(t, detailServicePost, progress.Snapshot().Detail)
}

func TestTagger_Success(t *testing.T) {
	repo := &mockTagRepo{}
	gen := &mockGenerator{}
	item := domain.ContentItem{ID: 2, MessageID: 20, ChannelUsername: "econ", Content: "Центробанк снова поднял ставку, инфляция ускорилась."}
	code := domain.CodeVector{domain.CodeRates: 0.8}

	repo.On(methodFetchPendingTags, mock.Anything, 10).Return([]domain.ContentItem{item}, nil)
	gen.On(methodGenerateTags, mock.Anything, mock.MatchedBy(func(req llm.TagRequest) bool {
		return req.MaxTags == 30 && req.Text != ""
	})).Return(llm.TagResult{
		Tags:  []string{"инфляция", "инфляция", ""},
		Emoji: []string{"📈", "🏦"},
		Code:  code,
		Meta:  llm.Meta{Backend: llm.BackendQueued, TokensPerSecond: 25, Parsed: true},
	}, nil)
	repo.On(methodSaveTags, mock.Anything, int64(2), mock.MatchedBy(func(tags []string) bool {
		return len(tags) == 1
	})).Return(nil)
	repo.On(methodUpdateEnrichment, mock.Anything, int64(2), "📈 🏦", []string{"📈", "🏦"}, code).Return(nil)
	repo.On(methodMarkTagsProcessed, mock.Anything, int64(2)).Return(nil)

	tagger, progress, rate := newTestTagger(repo, gen)

	require.NoError(t, tagger.ProcessBatch(context.Background()))

	repo.AssertExpectations(t)
	gen.AssertExpectations(t)

	snap := progress.Snapshot()
	assert.Equal(t, domain.StageTagging, snap.Stage)
	assert.Equal(t, "econ", snap.Channel)
	assert.Len(t, snap.Tags, 1)
	assert.InDelta(t, 25.0, snap.TPS, 1e-9)

	_, ok := rate.Rate()
	assert.True(t, ok)
}

func TestTagger_ItemErrorIsRecorded(t *testing.T) {
	repo := &mockTagRepo{}
	gen := &mockGenerator{}
	items := []domain.ContentItem{
		{ID: 3, Content: "Первый содержательный пост о рынке."},
		{ID: 4, Content: "Второй содержательный пост о рынке."},
	}

	repo.On(methodFetchPendingTags, mock.Anything, 10).Return(items, nil)
	gen.On(methodGenerateTags, mock.Anything, mock.Anything).Return(llm.TagResult{}, errBackendDown)
	repo.On(methodMarkTagError, mock.Anything, mock.Anything, mock.MatchedBy(func(msg string) bool {
		return msg != ""
	})).Return(nil)

	tagger, progress, _ := newTestTagger(repo, gen)

	require.NoError(t, tagger.ProcessBatch(context.Background()))

	repo.AssertNumberOfCalls(t, methodMarkTagError, 2)
	repo.AssertNotCalled(t, methodMarkTagsProcessed, mock.Anything, mock.Anything)

	snap := progress.Snapshot()
	assert.Equal(t, detailTagError, snap.Detail)
	assert.Contains(t, snap.LastError, errBackendDown.Error())
}

func TestTagger_PanicIsRecorded(t *testing.T) {
	repo := &mockTagRepo{}
	gen := &mockGenerator{}
	item := domain.ContentItem{ID: 5, Content: "Содержательный пост о рынке."}

	repo.On(methodFetchPendingTags, mock.Anything, 10).Return([]domain.ContentItem{item}, nil)
	gen.On(methodGenerateTags, mock.Anything, mock.Anything).Panic("boom")
	repo.On(methodMarkTagError, mock.Anything, int64(5), mock.AnythingOfType("string")).Return(nil)

	tagger, progress, _ := newTestTagger(repo, gen)

	require.NoError(t, tagger.ProcessBatch(context.Background()))

	repo.AssertExpectations(t)
	assert.Contains(t, progress.Snapshot().LastError, coreerrors.ErrItemPanic.Error())
}

func TestTagger_FetchError(t *testing.T) {
	repo := &mockTagRepo{}
	repo.On(methodFetchPendingTags, mock.Anything, 10).Return(nil, coreerrors.ErrDatabaseUnavailable)

	tagger, _, _ := newTestTagger(repo, &mockGenerator{})

	err := tagger.ProcessBatch(context.Background())
	require.ErrorIs(t, err, coreerrors.ErrDatabaseUnavailable)
}

func TestTagger_CanceledContextSkipsErrorRecording(t *testing.T) {
	repo := &mockTagRepo{}
	gen := &mockGenerator{}
	item := domain.ContentItem{ID: 6, Content: "Содержательный пост о рынке."}

	ctx, cancel := context.WithCancel(context.Background())

	gen.On(methodGenerateTags, mock.Anything, mock.Anything).Run(func(mock.Arguments) {
		cancel()
	}).Return(llm.TagResult{}, context.Canceled)

	tagger, _, _ := newTestTagger(repo, gen)
	tagger.processItem(ctx, tagger.logger, item)

	repo.AssertNotCalled(t, methodMarkTagError, mock.Anything, mock.Anything, mock.Anything)
}
