// Package flightrecorder keeps a rolling runtime trace in memory and writes it out when a scheduled job
// runs past its deadline.
package flightrecorder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime/trace"
	"sync"
	"time"
)

const (
	defaultMinAge   = 5 * time.Minute
	defaultMaxBytes = 64 * 1024 * 1024
	// defaultCooldown is the minimum time between two captures.
	defaultCooldown = 30 * time.Minute
)

// Recorder manages the flight recorder and the trace files it writes.
type Recorder struct {
	logger      *slog.Logger
	recorder    *trace.FlightRecorder
	directory   string
	cooldown    time.Duration
	now         func() time.Time
	mu          sync.Mutex
	lastCapture time.Time
}

// Config configures a Recorder. Zero values pick the defaults.
type Config struct {
	MinAge   time.Duration
	MaxBytes uint64
	Cooldown time.Duration
	// Directory receives the trace files. It is created when missing.
	Directory string
}

// New creates a Recorder. Call Start to begin recording.
func New(cfg Config, logger *slog.Logger) (*Recorder, error) {
	if cfg.Directory == "" {
		return nil, errors.New("traces directory is required")
	}
	if err := os.MkdirAll(cfg.Directory, 0o750); err != nil { //nolint:mnd // owner and group only.
		return nil, fmt.Errorf("create traces directory: %w", err)
	}
	if cfg.MinAge == 0 {
		cfg.MinAge = defaultMinAge
	}
	if cfg.MaxBytes == 0 {
		cfg.MaxBytes = defaultMaxBytes
	}
	if cfg.Cooldown == 0 {
		cfg.Cooldown = defaultCooldown
	}

	return &Recorder{
		logger:      logger,
		recorder:    trace.NewFlightRecorder(trace.FlightRecorderConfig{MinAge: cfg.MinAge, MaxBytes: cfg.MaxBytes}),
		directory:   cfg.Directory,
		cooldown:    cfg.Cooldown,
		now:         time.Now,
		mu:          sync.Mutex{},
		lastCapture: time.Time{},
	}, nil
}

// Start begins recording.
func (r *Recorder) Start(ctx context.Context) error {
	if err := r.recorder.Start(); err != nil {
		return fmt.Errorf("start flight recorder: %w", err)
	}
	r.logger.LogAttrs(ctx, slog.LevelInfo, "flight recorder started",
		slog.String("directory", r.directory), slog.Duration("cooldown", r.cooldown))
	return nil
}

// Stop ends recording.
func (r *Recorder) Stop(ctx context.Context) {
	r.recorder.Stop()
	r.logger.LogAttrs(ctx, slog.LevelInfo, "flight recorder stopped")
}

// CaptureTrace writes the recorded trace to a file named after reason. Captures within the cooldown
// of the previous one are skipped. Failures are logged, never returned, since the caller is already
// handling a more important error.
func (r *Recorder) CaptureTrace(ctx context.Context, reason string) {
	now := r.now()
	r.mu.Lock()
	if !r.lastCapture.IsZero() && now.Sub(r.lastCapture) < r.cooldown {
		r.mu.Unlock()
		r.logger.LogAttrs(ctx, slog.LevelDebug, "skipping trace capture during cooldown",
			slog.Time("last_capture", r.lastCapture))
		return
	}
	r.lastCapture = now
	r.mu.Unlock()

	path := filepath.Join(r.directory, fmt.Sprintf("%s-%s.trace", reason, now.UTC().Format("20060102-150405")))
	file, err := os.Create(path)
	if err != nil {
		r.logger.LogAttrs(ctx, slog.LevelError, "failed to create trace file",
			slog.String("file", path), slog.Any("error", err))
		return
	}
	defer func() {
		if closeErr := file.Close(); closeErr != nil {
			r.logger.LogAttrs(ctx, slog.LevelError, "failed to close trace file",
				slog.String("file", path), slog.Any("error", closeErr))
		}
	}()

	written, err := r.recorder.WriteTo(file)
	if err != nil {
		r.logger.LogAttrs(ctx, slog.LevelError, "failed to write trace",
			slog.String("file", path), slog.Any("error", err))
		return
	}
	r.logger.LogAttrs(ctx, slog.LevelWarn, "captured trace",
		slog.String("file", path), slog.String("reason", reason), slog.Int64("bytes", written))
}
