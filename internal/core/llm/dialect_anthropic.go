package llm

import (
	"context"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

const contentTypeText = "text"

// anthropicDialect speaks the Messages API. It has no embedding endpoint.
type anthropicDialect struct {
	client   anthropic.Client
	tagModel string
}

func newAnthropicDialect(cfg DirectConfig) *anthropicDialect {
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithRequestTimeout(cfg.Timeout),
	}

	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	return &anthropicDialect{
		client:   anthropic.NewClient(opts...),
		tagModel: cfg.TagModel,
	}
}

func (d *anthropicDialect) chat(ctx context.Context, system, prompt string, temperature float64) (chatReply, error) {
	started := time.Now()

	resp, err := d.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:       anthropic.Model(d.tagModel),
		MaxTokens:   directMaxTokens,
		System:      []anthropic.TextBlockParam{{Text: system}},
		Temperature: anthropic.Float(temperature),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		return chatReply{}, &TransportError{Op: "anthropic chat", Err: err}
	}

	var content strings.Builder

	for _, block := range resp.Content {
		if block.Type == contentTypeText {
			content.WriteString(block.Text)
		}
	}

	return chatReply{
		content: content.String(),
		model:   string(resp.Model),
		tps:     tokensPerSecond(resp.Usage.OutputTokens, int64(time.Since(started))),
	}, nil
}

func (d *anthropicDialect) embed(context.Context, string) ([]float32, error) {
	return nil, &ProtocolError{Op: "anthropic embed", Reason: "embeddings are not supported"}
}

func (d *anthropicDialect) close() error { return nil }
