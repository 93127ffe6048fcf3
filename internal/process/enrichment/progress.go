package enrichment

import (
	"sync"

	"github.com/lueurxax/channel-enricher/internal/core/domain"
)

// Progress is a point-in-time view of what the loops are doing.
type Progress struct {
	Stage     string
	Channel   string
	MessageID int64
	Preview   string
	Tags      []string
	EmojiLine string
	Code      domain.CodeVector
	TPS       float64
	Detail    string
	EmbedInfo string
	LastError string
}

// ProgressState is shared by the tagging, embedding and status loops.
// Writers replace fields without coordinating with each other, so a reader may
// see a mix of two loops' updates. It is telemetry only and never drives control flow.
type ProgressState struct {
	mu  sync.RWMutex
	cur Progress
}

func NewProgressState() *ProgressState {
	return &ProgressState{cur: Progress{Stage: domain.StageIdle}}
}

// MarkStartup reports that the worker is initializing.
func (p *ProgressState) MarkStartup() {
	p.SetStage(domain.StageStartup, detailStartup)
}

// Begin starts reporting a new item and clears the previous item's results.
func (p *ProgressState) Begin(stage string, item domain.ContentItem, detail string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.cur = Progress{
		Stage:     stage,
		Channel:   item.ChannelUsername,
		MessageID: item.MessageID,
		Preview:   shortPreview(item.Content, previewLimit),
		Detail:    detail,
	}
}

// Set applies fn to the current snapshot under the lock.
func (p *ProgressState) Set(fn func(*Progress)) {
	p.mu.Lock()
	defer p.mu.Unlock()

	fn(&p.cur)
}

func (p *ProgressState) SetStage(stage, detail string) {
	p.Set(func(pr *Progress) {
		pr.Stage = stage
		pr.Detail = detail
	})
}

func (p *ProgressState) SetError(detail string, err error) {
	p.Set(func(pr *Progress) {
		pr.Detail = detail
		pr.LastError = err.Error()
	})
}

// Snapshot returns a copy safe to read without the lock.
func (p *ProgressState) Snapshot() Progress {
	p.mu.RLock()
	defer p.mu.RUnlock()

	snap := p.cur
	snap.Tags = append([]string(nil), p.cur.Tags...)

	if p.cur.Code != nil {
		snap.Code = make(domain.CodeVector, len(p.cur.Code))
		for k, v := range p.cur.Code {
			snap.Code[k] = v
		}
	}

	return snap
}
