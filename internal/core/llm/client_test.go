package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lueurxax/channel-enricher/internal/platform/observability"
)

const modelAnswer = `{"tags":["ЦБ","Ключевая ставка"],"emoji":["🏦"],"code":{"rates":0.9,"sentiment":-0.2}}`

type queuedStub struct {
	enqueueStatus int
	statuses      []string
	result        map[string]any
	jobError      string

	enqueued atomic.Int32
	polls    atomic.Int32
	lastTask atomic.Value
}

func (s *queuedStub) handler(t *testing.T) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/v1/llm/request", func(w http.ResponseWriter, r *http.Request) {
		s.enqueued.Add(1)

		var task map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&task))
		s.lastTask.Store(task)

		status := s.enqueueStatus
		if status == 0 {
			status = http.StatusAccepted
		}

		w.WriteHeader(status)
		_, _ = w.Write([]byte(`{"job_id":"abc"}`))
	})

	mux.HandleFunc("/v1/jobs/abc", func(w http.ResponseWriter, _ *http.Request) {
		n := int(s.polls.Add(1)) - 1
		status := s.statuses[len(s.statuses)-1]

		if n < len(s.statuses) {
			status = s.statuses[n]
		}

		resp := map[string]any{"status": status}
		if status == "done" {
			resp["result"] = s.result
		}

		if s.jobError != "" {
			resp["error"] = s.jobError
		}

		_ = json.NewEncoder(w).Encode(resp)
	})

	return mux
}

type directStub struct {
	content   string
	embedding any
	calls     atomic.Int32
}

func (s *directStub) handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/api/chat", func(w http.ResponseWriter, _ *http.Request) {
		s.calls.Add(1)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"model":         "qwen",
			"message":       map[string]any{"content": s.content},
			"eval_count":    100,
			"eval_duration": int64(2 * time.Second),
		})
	})

	mux.HandleFunc("/api/embeddings", func(w http.ResponseWriter, _ *http.Request) {
		s.calls.Add(1)
		_ = json.NewEncoder(w).Encode(map[string]any{"embedding": s.embedding})
	})

	return mux
}

func newTestClient(t *testing.T, queuedURL, directURL string, fallback bool) *FailoverClient {
	t.Helper()

	logger := zerolog.Nop()
	c, err := New(context.Background(), Options{
		Backend:  BackendQueued,
		Fallback: fallback,
		Queued:   QueuedConfig{BaseURL: queuedURL, Provider: "auto", TagModel: "qwen", Timeout: time.Second},
		Direct:   DirectConfig{BaseURL: directURL, Protocol: ProtocolOllama, TagModel: "qwen", EmbedModel: "bge"},
		Circuit:  CircuitBreakerConfig{Threshold: 100, ResetAfter: time.Minute},
	}, &logger)
	require.NoError(t, err)

	q, ok := c.primary.(*queuedBackend)
	require.True(t, ok)

	q.pollInterval = 10 * time.Millisecond

	return c
}

func TestGenerateTags_QueuedRunningThenDone(t *testing.T) {
	queued := &queuedStub{
		statuses: []string{"running", "done"},
		result: map[string]any{
			"provider": "ollama",
			"data":     map[string]any{"response": modelAnswer},
		},
	}
	qs := httptest.NewServer(queued.handler(t))
	defer qs.Close()

	direct := &directStub{content: modelAnswer}
	ds := httptest.NewServer(direct.handler())
	defer ds.Close()

	c := newTestClient(t, qs.URL, ds.URL, true)

	res, err := c.GenerateTags(context.Background(), TagRequest{Text: "ЦБ повысил ставку", MaxTags: 10, Temperature: 0.1})
	require.NoError(t, err)

	assert.Equal(t, []string{"ЦБ", "Ключевая ставка"}, res.Tags)
	assert.Equal(t, BackendQueued, res.Meta.Backend)
	assert.True(t, res.Meta.Parsed)
	assert.Contains(t, res.Emoji, "🏦")
	assert.InDelta(t, 0.9, res.Code["rates"], 1e-9)
	assert.Equal(t, int32(2), queued.polls.Load())
	assert.Equal(t, int32(0), direct.calls.Load())

	task, _ := queued.lastTask.Load().(map[string]any)
	assert.Equal(t, "chat", task["task"])
	assert.Equal(t, "qwen", task["model"])
	assert.EqualValues(t, 700, task["max_tokens"])
	assert.EqualValues(t, 2, task["priority"])
	assert.EqualValues(t, 2, task["max_attempts"])
}

func TestGenerateTags_QueuedTimeoutFallsBackOnce(t *testing.T) {
	queued := &queuedStub{statuses: []string{"running"}}
	qs := httptest.NewServer(queued.handler(t))
	defer qs.Close()

	direct := &directStub{content: modelAnswer}
	ds := httptest.NewServer(direct.handler())
	defer ds.Close()

	c := newTestClient(t, qs.URL, ds.URL, true)
	c.primary.(*queuedBackend).timeout = 100 * time.Millisecond

	res, err := c.GenerateTags(context.Background(), TagRequest{Text: "ЦБ повысил ставку", MaxTags: 10})
	require.NoError(t, err)

	assert.Equal(t, int32(1), direct.calls.Load())
	assert.Equal(t, BackendDirect, res.Meta.Backend)
	assert.InDelta(t, 50.0, res.Meta.TokensPerSecond, 1e-9)
}

func TestGenerateTags_TimeoutWithoutFallback(t *testing.T) {
	queued := &queuedStub{statuses: []string{"queued"}}
	qs := httptest.NewServer(queued.handler(t))
	defer qs.Close()

	c := newTestClient(t, qs.URL, "", false)
	c.primary.(*queuedBackend).timeout = 50 * time.Millisecond

	_, err := c.GenerateTags(context.Background(), TagRequest{Text: "x", MaxTags: 5})

	var timeoutErr *TimeoutError
	require.ErrorAs(t, err, &timeoutErr)
	assert.Equal(t, "abc", timeoutErr.JobID)
}

func TestGenerateTags_FallbackDisabledPropagates(t *testing.T) {
	queued := &queuedStub{enqueueStatus: http.StatusInternalServerError, statuses: []string{"done"}}
	qs := httptest.NewServer(queued.handler(t))
	defer qs.Close()

	direct := &directStub{content: modelAnswer}
	ds := httptest.NewServer(direct.handler())
	defer ds.Close()

	c := newTestClient(t, qs.URL, ds.URL, false)

	_, err := c.GenerateTags(context.Background(), TagRequest{Text: "x", MaxTags: 5})
	require.Error(t, err)

	var transportErr *TransportError
	require.ErrorAs(t, err, &transportErr)
	assert.Equal(t, http.StatusInternalServerError, transportErr.Status)
	assert.Equal(t, FailureTransport, KindOf(err))
	assert.Equal(t, int32(0), direct.calls.Load())
}

func TestGenerateTags_FallbackToHeuristics(t *testing.T) {
	queued := &queuedStub{statuses: []string{"failed"}, jobError: "provider down"}
	qs := httptest.NewServer(queued.handler(t))
	defer qs.Close()

	direct := &directStub{content: "извините, не могу"}
	ds := httptest.NewServer(direct.handler())
	defer ds.Close()

	c := newTestClient(t, qs.URL, ds.URL, true)

	res, err := c.GenerateTags(context.Background(), TagRequest{
		Text:       "Нефть Brent подешевела на фоне санкций",
		MaxTags:    10,
		Candidates: []string{"Нефть", "Brent", "Нефть"},
	})
	require.NoError(t, err)

	assert.False(t, res.Meta.Parsed)
	assert.Equal(t, []string{"Нефть", "Brent"}, res.Tags)
	assert.NotEmpty(t, res.Emoji)
	assert.InDelta(t, 0.7, res.Code["commodities"], 1e-9)
	assert.InDelta(t, -0.4, res.Code["sentiment"], 1e-9)
}

func TestGenerateTags_JobFailureKind(t *testing.T) {
	queued := &queuedStub{statuses: []string{"cancelled"}, jobError: "cancelled by operator"}
	qs := httptest.NewServer(queued.handler(t))
	defer qs.Close()

	c := newTestClient(t, qs.URL, "", true)

	_, err := c.GenerateTags(context.Background(), TagRequest{Text: "x", MaxTags: 5})

	var jobErr *JobFailure
	require.ErrorAs(t, err, &jobErr)
	assert.Equal(t, "cancelled by operator", jobErr.Message)
	assert.Equal(t, FailureJob, KindOf(err))
}

func TestEmbed_QueuedEmptyFallsBack(t *testing.T) {
	queued := &queuedStub{
		statuses: []string{"done"},
		result:   map[string]any{"data": map[string]any{"embedding": []any{}}},
	}
	qs := httptest.NewServer(queued.handler(t))
	defer qs.Close()

	direct := &directStub{embedding: []float64{0.1, 0.2, 0.3}}
	ds := httptest.NewServer(direct.handler())
	defer ds.Close()

	c := newTestClient(t, qs.URL, ds.URL, true)

	vec, err := c.Embed(context.Background(), "text")
	require.NoError(t, err)
	assert.Equal(t, []float32{0.1, 0.2, 0.3}, vec)
	assert.Equal(t, int32(1), direct.calls.Load())
}

func TestEmbed_DirectMissingFieldIsEmpty(t *testing.T) {
	direct := &directStub{embedding: "oops"}
	ds := httptest.NewServer(direct.handler())
	defer ds.Close()

	logger := zerolog.Nop()
	c, err := New(context.Background(), Options{Backend: BackendDirect, Direct: DirectConfig{BaseURL: ds.URL}}, &logger)
	require.NoError(t, err)

	vec, err := c.Embed(context.Background(), "text")
	require.NoError(t, err)
	assert.Empty(t, vec)
}

func TestCircuitBreaker_SkipsPrimaryWhenOpen(t *testing.T) {
	queued := &queuedStub{enqueueStatus: http.StatusBadGateway, statuses: []string{"done"}}
	qs := httptest.NewServer(queued.handler(t))
	defer qs.Close()

	direct := &directStub{content: modelAnswer}
	ds := httptest.NewServer(direct.handler())
	defer ds.Close()

	c := newTestClient(t, qs.URL, ds.URL, true)
	c.breaker = NewCircuitBreaker(CircuitBreakerConfig{Threshold: 2, ResetAfter: time.Hour}, c.logger)

	for i := 0; i < 4; i++ {
		_, err := c.GenerateTags(context.Background(), TagRequest{Text: "x", MaxTags: 5})
		require.NoError(t, err)
	}

	assert.Equal(t, int32(2), queued.enqueued.Load())
	assert.Equal(t, int32(4), direct.calls.Load())
	assert.True(t, c.breaker.IsOpen())
	assert.InDelta(t, 1.0, testutil.ToFloat64(observability.BackendCircuitOpen.WithLabelValues(string(BackendQueued))), 1e-9)
}

func TestKindOf_Unclassified(t *testing.T) {
	assert.Equal(t, FailureTransport, KindOf(errors.New("boom")))
	assert.Equal(t, FailureProtocol, KindOf(&ProtocolError{Op: "x", Reason: "y"}))
	assert.Equal(t, FailureTimeout, KindOf(&Failure{Kind: FailureTimeout, Err: &TimeoutError{JobID: "1"}}))
}
