package enrichment

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRateTracker(t *testing.T) {
	tr := NewRateTracker(0)

	_, ok := tr.Rate()
	assert.False(t, ok, "no samples")

	tr.Add(5, 0)
	_, ok = tr.Rate()
	assert.False(t, ok, "zero duration is ignored")

	tr.Add(10, 5*time.Second)
	tr.Add(20, 5*time.Second)

	rate, ok := tr.Rate()
	require.True(t, ok)
	assert.InDelta(t, 3.0, rate, 1e-9)
}

func TestRateTracker_Window(t *testing.T) {
	tr := NewRateTracker(2)

	tr.Add(100, time.Second)
	tr.Add(1, time.Second)
	tr.Add(1, time.Second)

	rate, ok := tr.Rate()
	require.True(t, ok)
	assert.InDelta(t, 1.0, rate, 1e-9)
}

func TestTPSWindow(t *testing.T) {
	w := NewTPSWindow(3)

	_, ok := w.Average()
	assert.False(t, ok)

	w.Add(0)
	w.Add(-1)
	_, ok = w.Average()
	assert.False(t, ok, "non-positive readings are ignored")

	for _, v := range []float64{100, 10, 20, 30} {
		w.Add(v)
	}

	avg, ok := w.Average()
	require.True(t, ok)
	assert.InDelta(t, 20.0, avg, 1e-9)
}

func TestETA(t *testing.T) {
	secs, ok := ETA(30, 3, true)
	require.True(t, ok)
	assert.InDelta(t, 10.0, secs, 1e-9)

	_, ok = ETA(30, 0, true)
	assert.False(t, ok)

	_, ok = ETA(30, 3, false)
	assert.False(t, ok)
}

func TestFormatETA(t *testing.T) {
	tests := []struct {
		name    string
		seconds float64
		known   bool
		want    string
	}{
		{name: "unknown", seconds: 10, known: false, want: "-"},
		{name: "zero", seconds: 0, known: true, want: "0m00s"},
		{name: "minutes", seconds: 125, known: true, want: "2m05s"},
		{name: "fractional", seconds: 59.9, known: true, want: "0m59s"},
		{name: "hours", seconds: 3780, known: true, want: "1h03m"},
		{name: "negative", seconds: -5, known: true, want: "0m00s"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatETA(tt.seconds, tt.known))
		})
	}
}
