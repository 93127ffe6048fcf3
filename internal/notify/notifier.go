package notify

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

const (
	maxSpinInterval = 800 * time.Millisecond
	defaultTimeout  = 15 * time.Second
)

var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

// Sender is the gateway surface the notifier needs.
type Sender interface {
	Send(ctx context.Context, chatID int64, text string) (Handle, error)
	Edit(ctx context.Context, chatID int64, h Handle, text string) error
}

// Notifier keeps one live status message per process. The first update sends
// it, later updates edit it in place no more often than the update interval,
// and a spinner frame is prefixed between updates while the interval allows.
type Notifier struct {
	sender   Sender
	chatID   int64
	interval time.Duration
	timeout  time.Duration
	logger   *zerolog.Logger
	now      func() time.Time

	mu       sync.Mutex
	handle   *Handle
	text     string
	lastEdit time.Time
	disabled bool
	spinIdx  int

	stopSpin context.CancelFunc
	spinDone chan struct{}
}

func NewNotifier(sender Sender, chatID int64, interval, timeout time.Duration, logger *zerolog.Logger) *Notifier {
	if interval <= 0 {
		interval = maxSpinInterval
	}

	if timeout <= 0 {
		timeout = defaultTimeout
	}

	return &Notifier{
		sender:   sender,
		chatID:   chatID,
		interval: interval,
		timeout:  timeout,
		logger:   logger,
		now:      time.Now,
	}
}

// Update replaces the message body with the non-empty lines.
func (n *Notifier) Update(ctx context.Context, lines []string) {
	text := joinLines(lines)

	n.mu.Lock()
	defer n.mu.Unlock()

	if n.disabled {
		return
	}

	n.text = text

	if n.handle == nil {
		n.startLocked(ctx)
		return
	}

	now := n.now()
	if now.Sub(n.lastEdit) < n.interval {
		return
	}

	if n.editLocked(ctx, text) {
		n.lastEdit = now
	}
}

// Done writes the final text and stops the spinner.
func (n *Notifier) Done(ctx context.Context, text string) {
	n.haltSpinner()

	n.mu.Lock()
	defer n.mu.Unlock()

	if n.disabled {
		return
	}

	n.text = text

	if n.handle == nil {
		n.sendLocked(ctx)
		return
	}

	n.editLocked(ctx, text)
}

// Disabled reports whether the initial send failed.
func (n *Notifier) Disabled() bool {
	n.mu.Lock()
	defer n.mu.Unlock()

	return n.disabled
}

func (n *Notifier) startLocked(ctx context.Context) {
	if !n.sendLocked(ctx) {
		return
	}

	spinCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	n.stopSpin = cancel
	n.spinDone = make(chan struct{})

	go n.spin(spinCtx, n.spinDone)
}

func (n *Notifier) sendLocked(ctx context.Context) bool {
	callCtx, cancel := context.WithTimeout(ctx, n.timeout)
	defer cancel()

	h, err := n.sender.Send(callCtx, n.chatID, n.text)
	if err != nil {
		n.disabled = true
		n.logger.Warn().Err(err).Int64("chat_id", n.chatID).Msg("status message send failed, notifications disabled")

		return false
	}

	n.handle = &h
	n.lastEdit = n.now()

	return true
}

func (n *Notifier) editLocked(ctx context.Context, text string) bool {
	callCtx, cancel := context.WithTimeout(ctx, n.timeout)
	defer cancel()

	if err := n.sender.Edit(callCtx, n.chatID, *n.handle, text); err != nil {
		n.logger.Warn().Err(err).Str("handle", n.handle.String()).Msg("status message edit failed")
		return false
	}

	return true
}

func (n *Notifier) spin(ctx context.Context, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(min(maxSpinInterval, n.interval))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n.spinTick(ctx)
		}
	}
}

func (n *Notifier) spinTick(ctx context.Context) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.handle == nil || ctx.Err() != nil {
		return
	}

	frame := spinnerFrames[n.spinIdx%len(spinnerFrames)]
	n.spinIdx++

	now := n.now()
	if now.Sub(n.lastEdit) < n.interval {
		return
	}

	if n.editLocked(ctx, frame+" "+n.text) {
		n.lastEdit = now
	}
}

func (n *Notifier) haltSpinner() {
	n.mu.Lock()
	stop, done := n.stopSpin, n.spinDone
	n.stopSpin = nil
	n.mu.Unlock()

	if stop == nil {
		return
	}

	stop()
	<-done
}

func joinLines(lines []string) string {
	kept := make([]string, 0, len(lines))

	for _, line := range lines {
		if line != "" {
			kept = append(kept, line)
		}
	}

	return strings.Join(kept, "\n")
}
