package capture

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/pulpa-work/pulpa/internal/observe"
	"github.com/pulpa-work/pulpa/pkg/audio"
)

// ErrAlreadyRecording is returned by Start when a recording is in progress.
// At most one recording session may hold the microphone at a time.
var ErrAlreadyRecording = errors.New("capture: recording already in progress")

// durationTick is how often the elapsed-time watcher runs while recording.
const durationTick = 100 * time.Millisecond

// Config configures a Recorder.
type Config struct {
	// SampleRate and Channels describe the requested capture format.
	SampleRate int
	Channels   int

	// TimeSlice is the encoder flush cadence for incremental chunk delivery.
	TimeSlice time.Duration

	// SilenceThreshold, SilenceDuration configure the level monitor.
	SilenceThreshold float64
	SilenceDuration  time.Duration

	// MaxTurnDuration is the hard ceiling on one recording.
	MaxTurnDuration time.Duration

	// OnAudio receives the finished WAV blob when a recording is stopped
	// with process=true and at least one chunk was captured. Required.
	OnAudio func(wav []byte)

	// OnStop, if set, runs on every stop transition, before any OnAudio
	// delivery. Auto-stops and manual stops both report here.
	OnStop func()

	// OnLevel, if set, receives smoothed level samples while recording.
	OnLevel func(level float64)

	// OnDuration, if set, receives elapsed recording time every 100ms.
	OnDuration func(elapsed time.Duration)

	// Logger for lifecycle events. Nil picks slog.Default.
	Logger *slog.Logger

	// Metrics for the active-recordings gauge. Nil picks the default set.
	Metrics *observe.Metrics
}

// Recorder owns the microphone stream and chunk accumulation for one
// recording at a time. Auto-stop triggers (silence, max duration) funnel
// through the same Stop path as a manual stop.
type Recorder struct {
	device  audio.Device
	cfg     Config
	logger  *slog.Logger
	metrics *observe.Metrics

	mu       sync.Mutex
	active   bool
	starting bool
	stream   audio.Stream
	monitor  *Monitor
	chunks   [][]byte
	format   audio.Format
	started  time.Time
	tickDone chan struct{}
	readDone chan struct{}
}

// NewRecorder returns a Recorder capturing from device.
func NewRecorder(device audio.Device, cfg Config) *Recorder {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	metrics := cfg.Metrics
	if metrics == nil {
		metrics = observe.DefaultMetrics()
	}
	return &Recorder{
		device:  device,
		cfg:     cfg,
		logger:  logger,
		metrics: metrics,
	}
}

// RequestPermission probes microphone access by opening and immediately
// releasing a stream. Returns audio.ErrAccessDenied (possibly wrapped) when
// the user or OS refuses.
func (r *Recorder) RequestPermission(ctx context.Context) error {
	s, err := r.device.Open(ctx, r.streamConfig())
	if err != nil {
		return fmt.Errorf("probe microphone: %w", err)
	}
	return s.Close()
}

// Recording reports whether a recording is currently active.
func (r *Recorder) Recording() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.active
}

// Start acquires the microphone and begins capturing. Per-turn detection
// state (speech confirmation, hit counter, smoothed level) starts from zero;
// nothing leaks from a previous turn.
func (r *Recorder) Start(ctx context.Context) error {
	// The starting flag holds the slot while the device opens, so a second
	// Start racing the open cannot acquire a second stream.
	r.mu.Lock()
	if r.active || r.starting {
		r.mu.Unlock()
		return ErrAlreadyRecording
	}
	r.starting = true
	r.mu.Unlock()

	stream, err := r.device.Open(ctx, r.streamConfig())
	if err != nil {
		r.mu.Lock()
		r.starting = false
		r.mu.Unlock()
		return fmt.Errorf("open capture stream: %w", err)
	}

	monitor := NewMonitor(MonitorConfig{
		SilenceThreshold: r.cfg.SilenceThreshold,
		SilenceDuration:  r.cfg.SilenceDuration,
		OnLevel:          r.cfg.OnLevel,
		OnAutoStop:       func() { r.Stop(true) },
		Logger:           r.logger,
	})

	r.mu.Lock()
	r.starting = false
	r.active = true
	r.stream = stream
	r.monitor = monitor
	r.chunks = nil
	r.format = stream.Format()
	r.started = time.Now()
	r.tickDone = make(chan struct{})
	r.readDone = make(chan struct{})
	tickDone, readDone := r.tickDone, r.readDone
	r.mu.Unlock()

	go r.consume(stream, readDone)
	go r.watchDuration(tickDone)
	monitor.Start(stream.Analyzer())

	r.metrics.ActiveRecordings.Add(ctx, 1)
	r.logger.Info("recording started",
		"sample_rate", r.format.SampleRate,
		"time_slice", r.cfg.TimeSlice)
	return nil
}

// consume drains the stream's frame channel into the chunk accumulator. It
// exits when the stream closes.
func (r *Recorder) consume(stream audio.Stream, done chan struct{}) {
	defer close(done)
	for f := range stream.Frames() {
		if len(f.Data) == 0 {
			continue
		}
		r.mu.Lock()
		r.chunks = append(r.chunks, f.Data)
		r.mu.Unlock()
	}
}

// watchDuration publishes elapsed time and enforces the hard ceiling. The
// ceiling uses the same auto-stop path as silence detection.
func (r *Recorder) watchDuration(done chan struct{}) {
	t := time.NewTicker(durationTick)
	defer t.Stop()
	for {
		select {
		case <-done:
			return
		case <-t.C:
			r.mu.Lock()
			if !r.active {
				r.mu.Unlock()
				return
			}
			elapsed := time.Since(r.started)
			r.mu.Unlock()

			if r.cfg.OnDuration != nil {
				r.cfg.OnDuration(elapsed)
			}
			if elapsed >= r.cfg.MaxTurnDuration {
				r.logger.Info("max turn duration reached, stopping", "elapsed", elapsed)
				r.Stop(true)
				return
			}
		}
	}
}

// Stop ends the active recording and releases the microphone, the monitor
// and both watcher goroutines. When process is true and at least one chunk
// was captured, the concatenated WAV blob is handed to OnAudio. Safe to call
// multiple times and from concurrent auto-stop paths; teardown runs once.
func (r *Recorder) Stop(process bool) {
	r.mu.Lock()
	if !r.active {
		r.mu.Unlock()
		return
	}
	r.active = false
	stream := r.stream
	monitor := r.monitor
	tickDone := r.tickDone
	readDone := r.readDone
	r.stream = nil
	r.monitor = nil
	r.mu.Unlock()

	monitor.Stop()
	close(tickDone)
	if err := stream.Close(); err != nil {
		r.logger.Warn("closing capture stream", "error", err)
	}
	// The consumer exits once the closed stream drains its frame channel.
	<-readDone

	r.mu.Lock()
	chunks := r.chunks
	format := r.format
	elapsed := time.Since(r.started)
	r.chunks = nil
	r.mu.Unlock()

	r.metrics.ActiveRecordings.Add(context.Background(), -1)

	var total int
	for _, c := range chunks {
		total += len(c)
	}
	r.logger.Info("recording stopped",
		"elapsed", elapsed,
		"bytes", total,
		"process", process)

	if r.cfg.OnStop != nil {
		r.cfg.OnStop()
	}

	if !process || total == 0 {
		return
	}
	pcm := make([]byte, 0, total)
	for _, c := range chunks {
		pcm = append(pcm, c...)
	}
	wav, err := audio.EncodeWAV(pcm, format)
	if err != nil {
		r.logger.Error("encoding recording", "error", err)
		return
	}
	r.cfg.OnAudio(wav)
}

func (r *Recorder) streamConfig() audio.StreamConfig {
	return audio.StreamConfig{
		SampleRate:       r.cfg.SampleRate,
		Channels:         r.cfg.Channels,
		TimeSlice:        r.cfg.TimeSlice,
		EchoCancellation: true,
		NoiseSuppression: true,
		AutoGainControl:  true,
	}
}
