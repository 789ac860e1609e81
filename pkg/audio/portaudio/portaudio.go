// Package portaudio implements audio.Device on top of the PortAudio Go
// bindings, capturing 16-bit PCM from the default system microphone.
package portaudio

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/gordonklaus/portaudio"

	"github.com/pulpa-work/pulpa/pkg/audio"
)

// analyzerBins is the number of magnitude buckets exposed through the
// Analyzer view. The level monitor averages them, so resolution matters
// less than stability.
const analyzerBins = 32

// Device opens capture streams against the default PortAudio input device.
type Device struct {
	logger *slog.Logger

	mu   sync.Mutex
	open bool
}

// Option configures a Device.
type Option func(*Device)

// WithLogger sets the logger used for stream lifecycle and drop warnings.
func WithLogger(l *slog.Logger) Option {
	return func(d *Device) {
		d.logger = l
	}
}

// New initializes the PortAudio runtime and returns a Device. The caller must
// Close the device when done to release the runtime.
func New(opts ...Option) (*Device, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("initialize portaudio: %w", err)
	}
	d := &Device{logger: slog.Default()}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

// Close terminates the PortAudio runtime. Open streams must be closed first.
func (d *Device) Close() error {
	return portaudio.Terminate()
}

// Open acquires the default input device and starts delivering frames at the
// configured time-slice cadence. EchoCancellation, NoiseSuppression and
// AutoGainControl are not supported by PortAudio and are ignored.
func (d *Device) Open(ctx context.Context, cfg audio.StreamConfig) (audio.Stream, error) {
	if cfg.SampleRate <= 0 || cfg.Channels <= 0 {
		return nil, fmt.Errorf("portaudio: invalid stream config %+v", cfg)
	}
	if cfg.TimeSlice <= 0 {
		cfg.TimeSlice = 500 * time.Millisecond
	}

	d.mu.Lock()
	if d.open {
		d.mu.Unlock()
		return nil, fmt.Errorf("portaudio: capture stream already open")
	}
	d.open = true
	d.mu.Unlock()

	s := &stream{
		device:   d,
		logger:   d.logger,
		format:   audio.Format{SampleRate: cfg.SampleRate, Channels: cfg.Channels},
		frames:   make(chan audio.Frame, 16),
		analyzer: &levelAnalyzer{},
		sliceLen: int(float64(cfg.SampleRate*cfg.Channels) * cfg.TimeSlice.Seconds()),
		started:  time.Now(),
	}

	// ~10ms of audio per callback keeps analyzer readings fresh without
	// burning CPU on tiny buffers.
	framesPerBuffer := cfg.SampleRate / 100

	pa, err := portaudio.OpenDefaultStream(cfg.Channels, 0, float64(cfg.SampleRate), framesPerBuffer, s.onSamples)
	if err != nil {
		d.release()
		if isAccessDenied(err) {
			return nil, fmt.Errorf("open default input stream: %w", audio.ErrAccessDenied)
		}
		return nil, fmt.Errorf("open default input stream: %w", err)
	}
	s.pa = pa

	if err := pa.Start(); err != nil {
		pa.Close()
		d.release()
		return nil, fmt.Errorf("start input stream: %w", err)
	}

	d.logger.Debug("capture stream opened",
		"sample_rate", cfg.SampleRate,
		"channels", cfg.Channels,
		"time_slice", cfg.TimeSlice)
	return s, nil
}

func (d *Device) release() {
	d.mu.Lock()
	d.open = false
	d.mu.Unlock()
}

type stream struct {
	device *Device
	logger *slog.Logger
	format audio.Format
	frames chan audio.Frame

	analyzer *levelAnalyzer
	sliceLen int
	started  time.Time

	mu      sync.Mutex
	pending []int16

	pa        *portaudio.Stream
	closeOnce sync.Once
	closeErr  error
}

func (s *stream) Frames() <-chan audio.Frame { return s.frames }

func (s *stream) Analyzer() audio.Analyzer { return s.analyzer }

func (s *stream) Format() audio.Format { return s.format }

// onSamples runs on the PortAudio callback thread. It must not block, so a
// full frame channel drops the slice with a warning instead of waiting.
func (s *stream) onSamples(in []int16) {
	s.analyzer.observe(in)

	s.mu.Lock()
	s.pending = append(s.pending, in...)
	if len(s.pending) < s.sliceLen {
		s.mu.Unlock()
		return
	}
	chunk := s.pending
	s.pending = nil
	s.mu.Unlock()

	frame := audio.Frame{
		Data:       int16ToLE(chunk),
		SampleRate: s.format.SampleRate,
		Channels:   s.format.Channels,
		Timestamp:  time.Since(s.started),
	}
	select {
	case s.frames <- frame:
	default:
		s.logger.Warn("capture frame dropped, consumer too slow", "bytes", len(frame.Data))
	}
}

// Close stops and releases the PortAudio stream and closes the frame channel.
// The partial time slice accumulated since the last delivery is flushed as a
// final frame so the tail of the utterance is not lost.
func (s *stream) Close() error {
	s.closeOnce.Do(func() {
		if err := s.pa.Stop(); err != nil {
			s.closeErr = fmt.Errorf("stop input stream: %w", err)
		}
		if err := s.pa.Close(); err != nil && s.closeErr == nil {
			s.closeErr = fmt.Errorf("close input stream: %w", err)
		}
		s.flushPending()
		close(s.frames)
		s.device.release()
		s.logger.Debug("capture stream closed")
	})
	return s.closeErr
}

// flushPending emits the buffered partial slice as one last frame. Safe to
// call after pa.Stop: the callback no longer runs, so pending is stable.
func (s *stream) flushPending() {
	s.mu.Lock()
	chunk := s.pending
	s.pending = nil
	s.mu.Unlock()
	if len(chunk) == 0 {
		return
	}

	frame := audio.Frame{
		Data:       int16ToLE(chunk),
		SampleRate: s.format.SampleRate,
		Channels:   s.format.Channels,
		Timestamp:  time.Since(s.started),
	}
	select {
	case s.frames <- frame:
	default:
		s.logger.Warn("tail capture frame dropped, consumer too slow", "bytes", len(frame.Data))
	}
}

// levelAnalyzer buckets recent sample magnitudes into byte-valued bins. The
// level monitor only averages the bins, so time-domain magnitude buckets are
// an adequate stand-in for a spectral view.
type levelAnalyzer struct {
	mu   sync.Mutex
	bins [analyzerBins]byte
	seen bool
}

func (a *levelAnalyzer) observe(samples []int16) {
	if len(samples) == 0 {
		return
	}
	var bins [analyzerBins]byte
	group := len(samples) / analyzerBins
	if group == 0 {
		group = 1
	}
	for i := 0; i < analyzerBins; i++ {
		start := i * group
		if start >= len(samples) {
			break
		}
		end := start + group
		if end > len(samples) {
			end = len(samples)
		}
		var sum int64
		for _, v := range samples[start:end] {
			if v < 0 {
				sum -= int64(v)
			} else {
				sum += int64(v)
			}
		}
		mean := sum / int64(end-start)
		bins[i] = byte(mean * 255 / 32767)
	}

	a.mu.Lock()
	a.bins = bins
	a.seen = true
	a.mu.Unlock()
}

// FrequencyData returns the current magnitude bins, or an empty slice before
// any audio has been observed.
func (a *levelAnalyzer) FrequencyData() []byte {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.seen {
		return nil
	}
	out := make([]byte, analyzerBins)
	copy(out, a.bins[:])
	return out
}

func int16ToLE(samples []int16) []byte {
	out := make([]byte, len(samples)*2)
	for i, v := range samples {
		out[2*i] = byte(v)
		out[2*i+1] = byte(uint16(v) >> 8)
	}
	return out
}

func isAccessDenied(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "denied") || strings.Contains(msg, "unauthorized")
}

var (
	_ audio.Device = (*Device)(nil)
	_ audio.Stream = (*stream)(nil)
)
