package llm

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/sashabaranov/go-openai"
)

type openaiDialect struct {
	client     *openai.Client
	tagModel   string
	embedModel string
}

func newOpenAIDialect(cfg DirectConfig) *openaiDialect {
	oc := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		oc.BaseURL = cfg.BaseURL
	}

	oc.HTTPClient = &http.Client{Timeout: cfg.Timeout}

	return &openaiDialect{
		client:     openai.NewClientWithConfig(oc),
		tagModel:   cfg.TagModel,
		embedModel: cfg.EmbedModel,
	}
}

func (d *openaiDialect) chat(ctx context.Context, system, prompt string, temperature float64) (chatReply, error) {
	started := time.Now()

	resp, err := d.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: d.tagModel,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Temperature: float32(temperature),
		MaxTokens:   directMaxTokens,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		return chatReply{}, openAIError("openai chat", err)
	}

	if len(resp.Choices) == 0 {
		return chatReply{}, &ProtocolError{Op: "openai chat", Reason: "no choices"}
	}

	return chatReply{
		content: resp.Choices[0].Message.Content,
		model:   resp.Model,
		tps:     tokensPerSecond(int64(resp.Usage.CompletionTokens), int64(time.Since(started))),
	}, nil
}

func (d *openaiDialect) embed(ctx context.Context, text string) ([]float32, error) {
	resp, err := d.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: []string{text},
		Model: openai.EmbeddingModel(d.embedModel),
	})
	if err != nil {
		return nil, openAIError("openai embed", err)
	}

	if len(resp.Data) == 0 {
		return nil, nil
	}

	return resp.Data[0].Embedding, nil
}

func (d *openaiDialect) close() error { return nil }

// openAIError maps go-openai errors onto transport failures, keeping the HTTP status when known.
func openAIError(op string, err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return &TransportError{Op: op, Status: apiErr.HTTPStatusCode, Body: apiErr.Message}
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return &TransportError{Op: op, Status: reqErr.HTTPStatusCode, Err: err}
	}

	return &TransportError{Op: op, Err: err}
}
