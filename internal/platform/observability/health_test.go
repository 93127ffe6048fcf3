package observability

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

type pingerFunc func(ctx context.Context) error

func (f pingerFunc) Ping(ctx context.Context) error { return f(ctx) }

func TestServerEndpoints(t *testing.T) {
	logger := zerolog.Nop()

	tests := []struct {
		name   string
		pinger Pinger
		path   string
		want   int
	}{
		{name: "healthz", path: "/healthz", want: http.StatusOK},
		{name: "ready", pinger: pingerFunc(func(context.Context) error { return nil }), path: "/readyz", want: http.StatusOK},
		{
			name:   "not ready",
			pinger: pingerFunc(func(context.Context) error { return errors.New("down") }),
			path:   "/readyz",
			want:   http.StatusServiceUnavailable,
		},
		{name: "metrics", path: "/metrics", want: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := NewServer(tt.pinger, 0, &logger)
			rec := httptest.NewRecorder()

			srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.path, nil))

			assert.Equal(t, tt.want, rec.Code)
		})
	}
}

func TestRecordRateUndefinedIsZero(t *testing.T) {
	RecordRate("tagging", 4.5, false)
	RecordRate("embedding", 1.5, true)

	assert.InDelta(t, 0.0, testutil.ToFloat64(StageRate.WithLabelValues("tagging")), 1e-9)
	assert.InDelta(t, 1.5, testutil.ToFloat64(StageRate.WithLabelValues("embedding")), 1e-9)
}

func TestRecordBacklog(t *testing.T) {
	RecordBacklog(10, 3, 2)

	assert.InDelta(t, 10.0, testutil.ToFloat64(ItemsTotal), 1e-9)
	assert.InDelta(t, 3.0, testutil.ToFloat64(Backlog.WithLabelValues("tagging")), 1e-9)
	assert.InDelta(t, 2.0, testutil.ToFloat64(Backlog.WithLabelValues("embedding")), 1e-9)
}

func TestRecordCircuit(t *testing.T) {
	RecordCircuit("queued", true)
	assert.InDelta(t, 1.0, testutil.ToFloat64(BackendCircuitOpen.WithLabelValues("queued")), 1e-9)

	RecordCircuit("queued", false)
	assert.InDelta(t, 0.0, testutil.ToFloat64(BackendCircuitOpen.WithLabelValues("queued")), 1e-9)
}
