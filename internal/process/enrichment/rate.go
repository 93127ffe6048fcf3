package enrichment

import (
	"fmt"
	"sync"
	"time"
)

const (
	defaultRateWindow = 30
	defaultTPSWindow  = 20
	secondsPerMinute  = 60
	minutesPerHour    = 60
)

type rateSample struct {
	count    int
	duration time.Duration
}

// RateTracker estimates throughput over the most recent samples.
// The owning loop adds samples while the status loop reads the rate.
type RateTracker struct {
	mu      sync.Mutex
	samples []rateSample
	window  int
}

func NewRateTracker(window int) *RateTracker {
	if window <= 0 {
		window = defaultRateWindow
	}

	return &RateTracker{window: window}
}

// Add records count items handled in d. Non-positive durations are ignored.
func (t *RateTracker) Add(count int, d time.Duration) {
	if d <= 0 {
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	t.samples = append(t.samples, rateSample{count: count, duration: d})
	if len(t.samples) > t.window {
		t.samples = t.samples[len(t.samples)-t.window:]
	}
}

// Rate returns items per second, or false while no time has been recorded.
func (t *RateTracker) Rate() (float64, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	var (
		count int
		total time.Duration
	)

	for _, s := range t.samples {
		count += s.count
		total += s.duration
	}

	if total <= 0 {
		return 0, false
	}

	return float64(count) / total.Seconds(), true
}

// TPSWindow keeps the last few tokens-per-second readings reported by the model.
type TPSWindow struct {
	mu     sync.Mutex
	values []float64
	size   int
}

func NewTPSWindow(size int) *TPSWindow {
	if size <= 0 {
		size = defaultTPSWindow
	}

	return &TPSWindow{size: size}
}

func (w *TPSWindow) Add(tps float64) {
	if tps <= 0 {
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	w.values = append(w.values, tps)
	if len(w.values) > w.size {
		w.values = w.values[len(w.values)-w.size:]
	}
}

func (w *TPSWindow) Average() (float64, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if len(w.values) == 0 {
		return 0, false
	}

	var sum float64
	for _, v := range w.values {
		sum += v
	}

	return sum / float64(len(w.values)), true
}

// ETA returns the seconds needed to drain pending items at rate, or false when the rate is unknown.
func ETA(pending int, rate float64, known bool) (float64, bool) {
	if !known || rate <= 0 {
		return 0, false
	}

	return float64(pending) / rate, true
}

// FormatETA renders seconds as "2m05s", or "1h03m" past an hour. Unknown estimates render as "-".
func FormatETA(seconds float64, known bool) string {
	if !known {
		return "-"
	}

	total := int(seconds)
	if total < 0 {
		total = 0
	}

	mins, secs := total/secondsPerMinute, total%secondsPerMinute
	hours, mins := mins/minutesPerHour, mins%minutesPerHour

	if hours > 0 {
		return fmt.Sprintf("%dh%02dm", hours, mins)
	}

	return fmt.Sprintf("%dm%02ds", mins, secs)
}
