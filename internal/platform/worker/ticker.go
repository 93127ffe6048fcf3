package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

const (
	logFieldWorker = "worker"

	// errFmtSingleTickerLoop is the error format for single ticker loop context errors.
	errFmtSingleTickerLoop = "single ticker loop %s: %w"
)

// SingleTickerLoop runs a simple loop with one main ticker and optional secondary tasks.
// The status reporter uses the main tick for notifications and the secondary tick for log snapshots.
func SingleTickerLoop(ctx context.Context, cfg SingleTickerConfig) error {
	logger := getLogger(cfg.Logger)
	logger.Info().Str(logFieldWorker, cfg.Name).Msg("starting single ticker loop")

	runOnStart(ctx, cfg.OnStart)
	defer runOnStop(cfg.OnStop, logger, cfg.Name, "single ticker loop stopped")

	if cfg.RunOnStart {
		runTick(ctx, cfg.OnTick, logger, cfg.Name)
	}

	ticker := time.NewTicker(cfg.Interval)
	defer ticker.Stop()

	if cfg.SecondaryInterval > 0 {
		return runDualTickerLoop(ctx, cfg, ticker)
	}

	return runSingleTickerMainLoop(ctx, cfg, ticker)
}

// runDualTickerLoop handles the loop when a secondary ticker is configured.
func runDualTickerLoop(ctx context.Context, cfg SingleTickerConfig, ticker *time.Ticker) error {
	secondaryTicker := time.NewTicker(cfg.SecondaryInterval)
	defer secondaryTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			return fmt.Errorf(errFmtSingleTickerLoop, cfg.Name, ctx.Err())
		case <-ticker.C:
			runTick(ctx, cfg.OnTick, cfg.Logger, cfg.Name)
		case <-secondaryTicker.C:
			runTick(ctx, cfg.OnSecondaryTick, cfg.Logger, cfg.Name)
		}
	}
}

// runSingleTickerMainLoop handles the loop with only a primary ticker.
func runSingleTickerMainLoop(ctx context.Context, cfg SingleTickerConfig, ticker *time.Ticker) error {
	for {
		select {
		case <-ctx.Done():
			return fmt.Errorf(errFmtSingleTickerLoop, cfg.Name, ctx.Err())
		case <-ticker.C:
			runTick(ctx, cfg.OnTick, cfg.Logger, cfg.Name)
		}
	}
}

// SingleTickerConfig configures a single-ticker loop with optional secondary ticker.
type SingleTickerConfig struct {
	// Name identifies the worker for logging.
	Name string

	// Interval is the main ticker interval.
	Interval time.Duration

	// OnTick is called when the main ticker fires.
	OnTick func(ctx context.Context)

	// RunOnStart runs OnTick immediately when starting.
	RunOnStart bool

	// SecondaryInterval is the interval for secondary periodic tasks (0 to disable).
	SecondaryInterval time.Duration

	// OnSecondaryTick is called when the secondary ticker fires.
	OnSecondaryTick func(ctx context.Context)

	// OnStart is called once when the loop starts.
	OnStart func(ctx context.Context)

	// OnStop is called once when the loop exits.
	OnStop func()

	// Logger for the worker.
	Logger *zerolog.Logger
}

// runTick invokes a tick callback, logging instead of propagating a panic.
func runTick(ctx context.Context, fn func(ctx context.Context), logger *zerolog.Logger, name string) {
	if fn == nil {
		return
	}

	defer RecoverPanic(getLogger(logger), name)

	fn(ctx)
}

// getLogger returns the provided logger or a nop logger if nil.
func getLogger(logger *zerolog.Logger) *zerolog.Logger {
	if logger == nil {
		nop := zerolog.Nop()

		return &nop
	}

	return logger
}

// runOnStart calls the onStart callback if not nil.
func runOnStart(ctx context.Context, onStart func(ctx context.Context)) {
	if onStart != nil {
		onStart(ctx)
	}
}

// runOnStop calls the onStop callback and logs the stop message.
func runOnStop(onStop func(), logger *zerolog.Logger, name, msg string) {
	if onStop != nil {
		onStop()
	}

	logger.Info().Str(logFieldWorker, name).Msg(msg)
}
