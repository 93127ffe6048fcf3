package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

const googleJSONMimeType = "application/json"

type googleDialect struct {
	client     *genai.Client
	tagModel   string
	embedModel string
}

func newGoogleDialect(ctx context.Context, cfg DirectConfig) (*googleDialect, error) {
	opts := []option.ClientOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithEndpoint(cfg.BaseURL))
	}

	client, err := genai.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating google genai client: %w", err)
	}

	return &googleDialect{client: client, tagModel: cfg.TagModel, embedModel: cfg.EmbedModel}, nil
}

func (d *googleDialect) chat(ctx context.Context, system, prompt string, temperature float64) (chatReply, error) {
	started := time.Now()

	model := d.client.GenerativeModel(d.tagModel)
	model.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(system)}}
	model.ResponseMIMEType = googleJSONMimeType
	model.SetTemperature(float32(temperature))
	model.SetMaxOutputTokens(directMaxTokens)

	resp, err := model.GenerateContent(ctx, genai.Text(strings.ToValidUTF8(prompt, "")))
	if err != nil {
		return chatReply{}, &TransportError{Op: "google chat", Err: err}
	}

	var tokens int64
	if resp.UsageMetadata != nil {
		tokens = int64(resp.UsageMetadata.CandidatesTokenCount)
	}

	return chatReply{
		content: googleResponseText(resp),
		model:   d.tagModel,
		tps:     tokensPerSecond(tokens, int64(time.Since(started))),
	}, nil
}

func (d *googleDialect) embed(ctx context.Context, text string) ([]float32, error) {
	resp, err := d.client.EmbeddingModel(d.embedModel).EmbedContent(ctx, genai.Text(text))
	if err != nil {
		return nil, &TransportError{Op: "google embed", Err: err}
	}

	if resp == nil || resp.Embedding == nil {
		return nil, nil
	}

	return resp.Embedding.Values, nil
}

func (d *googleDialect) close() error {
	if err := d.client.Close(); err != nil {
		return fmt.Errorf("closing google genai client: %w", err)
	}

	return nil
}

func googleResponseText(resp *genai.GenerateContentResponse) string {
	if resp == nil {
		return ""
	}

	var out strings.Builder

	for _, candidate := range resp.Candidates {
		if candidate.Content == nil {
			continue
		}

		for _, part := range candidate.Content.Parts {
			if text, ok := part.(genai.Text); ok {
				out.WriteString(string(text))
			}
		}
	}

	return out.String()
}
