package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	enqueuePath       = "/v1/llm/request"
	jobPathFmt        = "/v1/jobs/%s"
	queuedMaxTokens   = 700
	queuedPriority    = 2
	queuedMaxAttempts = 2
	queuedSource      = "channel-enricher"

	defaultPollInterval = 500 * time.Millisecond
	minJobTimeout       = 3 * time.Second

	taskChat  = "chat"
	taskEmbed = "embed"

	providerAuto   = "auto"
	providerOllama = "ollama"

	headerContentType = "Content-Type"
	contentTypeJSON   = "application/json"
)

var knownQueuedProviders = map[string]bool{"auto": true, "ollama": true, "openai": true, "openrouter": true}

// QueuedConfig configures the queued-job backend.
type QueuedConfig struct {
	BaseURL      string
	Provider     string
	TagModel     string
	EmbedModel   string
	SystemPrompt string
	Timeout      time.Duration
}

type queuedBackend struct {
	baseURL      string
	provider     string
	tagModel     string
	embedModel   string
	systemPrompt string
	timeout      time.Duration
	pollInterval time.Duration
	httpClient   *http.Client
}

type queuedTask struct {
	Task        string         `json:"task"`
	Provider    string         `json:"provider"`
	Prompt      string         `json:"prompt"`
	Model       string         `json:"model,omitempty"`
	Temperature *float64       `json:"temperature,omitempty"`
	MaxTokens   int            `json:"max_tokens,omitempty"`
	Priority    int            `json:"priority"`
	Source      string         `json:"source"`
	MaxAttempts int            `json:"max_attempts"`
	Options     map[string]any `json:"options,omitempty"`
}

type enqueueResponse struct {
	JobID string `json:"job_id"`
}

type jobResponse struct {
	Status string         `json:"status"`
	Result map[string]any `json:"result"`
	Error  string         `json:"error"`
}

func newQueuedBackend(cfg QueuedConfig) *queuedBackend {
	provider := strings.ToLower(strings.TrimSpace(cfg.Provider))
	if !knownQueuedProviders[provider] {
		provider = providerAuto
	}

	timeout := cfg.Timeout
	if timeout < minJobTimeout {
		timeout = minJobTimeout
	}

	return &queuedBackend{
		baseURL:      strings.TrimRight(cfg.BaseURL, "/"),
		provider:     provider,
		tagModel:     cfg.TagModel,
		embedModel:   cfg.EmbedModel,
		systemPrompt: cfg.SystemPrompt,
		timeout:      timeout,
		pollInterval: defaultPollInterval,
		// Individual requests are bounded by the job budget; polling itself is timed separately.
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (b *queuedBackend) Kind() BackendKind { return BackendQueued }

func (b *queuedBackend) GenerateTags(ctx context.Context, req TagRequest) Outcome[TagResult] {
	temperature := req.Temperature
	task := queuedTask{
		Task:        taskChat,
		Provider:    b.provider,
		Prompt:      queuedTagPrompt(req),
		Temperature: &temperature,
		MaxTokens:   queuedMaxTokens,
		Priority:    queuedPriority,
		Source:      queuedSource,
		MaxAttempts: queuedMaxAttempts,
	}

	if (b.provider == providerAuto || b.provider == providerOllama) && b.tagModel != "" {
		task.Model = b.tagModel
	}

	if b.systemPrompt != "" {
		task.Options = map[string]any{"system": b.systemPrompt}
	}

	started := time.Now()

	result, err := b.run(ctx, task)
	if err != nil {
		return fail[TagResult](BackendQueued, err)
	}

	provider, _ := result["provider"].(string)
	meta := Meta{Backend: BackendQueued, Provider: provider, Model: task.Model, Elapsed: time.Since(started)}

	return succeed(assembleTags(resultText(result), req, meta))
}

func (b *queuedBackend) Embed(ctx context.Context, text string) Outcome[[]float32] {
	provider := b.provider
	if provider != providerAuto && provider != providerOllama {
		provider = providerAuto
	}

	task := queuedTask{
		Task:        taskEmbed,
		Provider:    provider,
		Prompt:      text,
		Model:       b.embedModel,
		Priority:    queuedPriority,
		Source:      queuedSource,
		MaxAttempts: queuedMaxAttempts,
	}

	result, err := b.run(ctx, task)
	if err != nil {
		return fail[[]float32](BackendQueued, err)
	}

	vec := floatList(resultData(result)["embedding"])
	if len(vec) == 0 {
		return fail[[]float32](BackendQueued, &ProtocolError{Op: "queued embed", Reason: "empty embedding"})
	}

	return succeed(vec)
}

func (b *queuedBackend) run(ctx context.Context, task queuedTask) (map[string]any, error) {
	jobID, err := b.enqueue(ctx, task)
	if err != nil {
		return nil, err
	}

	return b.wait(ctx, jobID)
}

func (b *queuedBackend) enqueue(ctx context.Context, task queuedTask) (string, error) {
	payload, err := json.Marshal(task)
	if err != nil {
		return "", fmt.Errorf("marshal task: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.baseURL+enqueuePath, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("create enqueue request: %w", err)
	}

	req.Header.Set(headerContentType, contentTypeJSON)

	status, body, err := b.do(req)
	if err != nil {
		return "", &TransportError{Op: "queued enqueue", Err: err}
	}

	if status != http.StatusOK && status != http.StatusAccepted {
		return "", &TransportError{Op: "queued enqueue", Status: status, Body: string(body)}
	}

	var resp enqueueResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", &TransportError{Op: "queued enqueue", Status: status, Body: string(body), Err: err}
	}

	if resp.JobID == "" {
		return "", &TransportError{Op: "queued enqueue", Status: status, Body: "missing job_id"}
	}

	return resp.JobID, nil
}

func (b *queuedBackend) wait(ctx context.Context, jobID string) (map[string]any, error) {
	url := b.baseURL + fmt.Sprintf(jobPathFmt, jobID)
	started := time.Now()

	for {
		if time.Since(started) > b.timeout {
			return nil, &TimeoutError{JobID: jobID, Timeout: b.timeout}
		}

		job, err := b.poll(ctx, url)
		if err != nil {
			return nil, err
		}

		switch strings.ToLower(job.Status) {
		case "done":
			if job.Result == nil {
				return nil, &ProtocolError{Op: "queued job " + jobID, Reason: "done without structured result"}
			}

			return job.Result, nil
		case "failed", "error", "cancelled", "canceled":
			msg := job.Error
			if msg == "" {
				msg = "job failed"
			}

			return nil, &JobFailure{JobID: jobID, Status: job.Status, Message: msg}
		}

		timer := time.NewTimer(b.pollInterval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
}

func (b *queuedBackend) poll(ctx context.Context, url string) (jobResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return jobResponse{}, fmt.Errorf("create poll request: %w", err)
	}

	status, body, err := b.do(req)
	if err != nil {
		return jobResponse{}, &TransportError{Op: "queued poll", Err: err}
	}

	if status != http.StatusOK {
		return jobResponse{}, &TransportError{Op: "queued poll", Status: status, Body: string(body)}
	}

	var job jobResponse
	if err := json.Unmarshal(body, &job); err != nil {
		return jobResponse{}, &ProtocolError{Op: "queued poll", Reason: "invalid job json", Err: err}
	}

	return job, nil
}

func (b *queuedBackend) do(req *http.Request) (int, []byte, error) {
	resp, err := b.httpClient.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("read body: %w", err)
	}

	return resp.StatusCode, body, nil
}

func resultData(result map[string]any) map[string]any {
	data, _ := result["data"].(map[string]any)
	return data
}

// resultText pulls model text out of a job result, trying the response field,
// then a chat message, then the first OpenAI-style choice.
func resultText(result map[string]any) string {
	data := resultData(result)
	if data == nil {
		return ""
	}

	if s, ok := data["response"].(string); ok && strings.TrimSpace(s) != "" {
		return s
	}

	if msg, ok := data["message"].(map[string]any); ok {
		if s, ok := msg["content"].(string); ok {
			return s
		}
	}

	choices, ok := data["choices"].([]any)
	if !ok || len(choices) == 0 {
		return ""
	}

	first, ok := choices[0].(map[string]any)
	if !ok {
		return ""
	}

	if msg, ok := first["message"].(map[string]any); ok {
		if s, ok := msg["content"].(string); ok {
			return s
		}
	}

	s, _ := first["text"].(string)

	return s
}

func floatList(v any) []float32 {
	items, ok := v.([]any)
	if !ok {
		return nil
	}

	out := make([]float32, 0, len(items))

	for _, item := range items {
		if f, ok := item.(float64); ok {
			out = append(out, float32(f))
		}
	}

	return out
}
