package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

const (
	chatPath       = "/api/chat"
	embeddingsPath = "/api/embeddings"
	roleSystem     = "system"
	roleUser       = "user"
)

type ollamaDialect struct {
	baseURL    string
	tagModel   string
	embedModel string
	httpClient *http.Client
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string         `json:"model"`
	Messages []chatMessage  `json:"messages"`
	Options  map[string]any `json:"options"`
	Stream   bool           `json:"stream"`
}

type chatResponse struct {
	Model   string `json:"model"`
	Message struct {
		Content string `json:"content"`
	} `json:"message"`
	EvalCount    int64 `json:"eval_count"`
	EvalDuration int64 `json:"eval_duration"`
}

type embeddingRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

func newOllamaDialect(cfg DirectConfig) *ollamaDialect {
	return &ollamaDialect{
		baseURL:    cfg.BaseURL,
		tagModel:   cfg.TagModel,
		embedModel: cfg.EmbedModel,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}
}

func (d *ollamaDialect) chat(ctx context.Context, system, prompt string, temperature float64) (chatReply, error) {
	payload := chatRequest{
		Model: d.tagModel,
		Messages: []chatMessage{
			{Role: roleSystem, Content: system},
			{Role: roleUser, Content: prompt},
		},
		Options: map[string]any{"temperature": temperature},
		Stream:  false,
	}

	body, err := d.post(ctx, chatPath, payload)
	if err != nil {
		return chatReply{}, err
	}

	var resp chatResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return chatReply{}, &ProtocolError{Op: "ollama chat", Reason: "invalid json", Err: err}
	}

	model := resp.Model
	if model == "" {
		model = d.tagModel
	}

	return chatReply{
		content: resp.Message.Content,
		model:   model,
		tps:     tokensPerSecond(resp.EvalCount, resp.EvalDuration),
	}, nil
}

func (d *ollamaDialect) embed(ctx context.Context, text string) ([]float32, error) {
	body, err := d.post(ctx, embeddingsPath, embeddingRequest{Model: d.embedModel, Prompt: text})
	if err != nil {
		return nil, err
	}

	var resp map[string]any
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, &ProtocolError{Op: "ollama embed", Reason: "invalid json", Err: err}
	}

	return floatList(resp["embedding"]), nil
}

func (d *ollamaDialect) close() error { return nil }

func (d *ollamaDialect) post(ctx context.Context, path string, payload any) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set(headerContentType, contentTypeJSON)

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return nil, &TransportError{Op: "ollama " + path, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{Op: "ollama " + path, Status: resp.StatusCode, Err: err}
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, &TransportError{Op: "ollama " + path, Status: resp.StatusCode, Body: string(body)}
	}

	return body, nil
}
