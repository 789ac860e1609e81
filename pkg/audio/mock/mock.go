// Package mock provides test doubles for the audio capture and playback
// interfaces.
//
// Device/Stream/Analyzer let tests drive the capture side deterministically:
// push frames with Stream.PushFrame and steer the level monitor's readings
// with Analyzer.SetFrequencyData. Sink/Playback let tests observe what was
// played and decide when each playback completes or fails.
package mock

import (
	"context"
	"sync"

	"github.com/pulpa-work/pulpa/pkg/audio"
)

// OpenCall records a single invocation of Device.Open.
type OpenCall struct {
	// Ctx is the context passed to Open.
	Ctx context.Context
	// Cfg is the StreamConfig passed to Open.
	Cfg audio.StreamConfig
}

// Device is a mock implementation of audio.Device.
type Device struct {
	mu sync.Mutex

	// OpenStream is the stream returned by Open. If nil, or if the previous
	// stream has been closed, Open creates and returns a fresh *Stream so a
	// Device can serve several capture sessions in one test.
	OpenStream *Stream

	// OpenErr, if non-nil, is returned by Open instead of a stream.
	OpenErr error

	// OpenCalls records every invocation of Open in order.
	OpenCalls []OpenCall
}

// Open records the call and returns OpenStream (or a fresh Stream) and OpenErr.
func (d *Device) Open(ctx context.Context, cfg audio.StreamConfig) (audio.Stream, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.OpenCalls = append(d.OpenCalls, OpenCall{Ctx: ctx, Cfg: cfg})
	if d.OpenErr != nil {
		return nil, d.OpenErr
	}
	if d.OpenStream == nil || d.OpenStream.CloseCount() > 0 {
		d.OpenStream = NewStream()
	}
	return d.OpenStream, nil
}

// Stream is a mock implementation of audio.Stream. Tests feed it frames via
// PushFrame and control the analyzer readings via FreqAnalyzer.
type Stream struct {
	// FreqAnalyzer is returned by Analyzer.
	FreqAnalyzer *Analyzer

	// StreamFormat is returned by Format.
	StreamFormat audio.Format

	mu         sync.Mutex
	frames     chan audio.Frame
	closed     bool
	closeCount int
}

// NewStream returns a Stream with a buffered frame channel, a zeroed analyzer
// and a 48 kHz mono format.
func NewStream() *Stream {
	return &Stream{
		FreqAnalyzer: &Analyzer{},
		StreamFormat: audio.Format{SampleRate: 48000, Channels: 1},
		frames:       make(chan audio.Frame, 64),
	}
}

// PushFrame delivers a frame to the stream's consumers. It is a no-op after
// Close.
func (s *Stream) PushFrame(f audio.Frame) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.frames <- f
}

// Frames returns the frame channel.
func (s *Stream) Frames() <-chan audio.Frame { return s.frames }

// Analyzer returns FreqAnalyzer.
func (s *Stream) Analyzer() audio.Analyzer { return s.FreqAnalyzer }

// Format returns StreamFormat.
func (s *Stream) Format() audio.Format { return s.StreamFormat }

// Close closes the frame channel once and counts invocations.
func (s *Stream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closeCount++
	if !s.closed {
		s.closed = true
		close(s.frames)
	}
	return nil
}

// CloseCount reports how many times Close was called.
func (s *Stream) CloseCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closeCount
}

// Analyzer is a mock implementation of audio.Analyzer whose readings are set
// by the test.
type Analyzer struct {
	mu   sync.Mutex
	bins []byte
}

// SetFrequencyData replaces the bins returned by FrequencyData.
func (a *Analyzer) SetFrequencyData(bins []byte) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.bins = append([]byte(nil), bins...)
}

// FrequencyData returns a copy of the current bins.
func (a *Analyzer) FrequencyData() []byte {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]byte(nil), a.bins...)
}

// PlayCall records a single invocation of Sink.Play.
type PlayCall struct {
	// PCM is the audio blob passed to Play.
	PCM []byte
	// Format is the format passed to Play.
	Format audio.Format
	// Handle is the playback handle Play returned for this call.
	Handle *Playback
}

// Sink is a mock implementation of audio.Sink. Each Play returns a *Playback
// the test finishes explicitly with Complete or Fail.
type Sink struct {
	mu sync.Mutex

	// PlayErr, if non-nil, is returned by Play instead of a handle.
	PlayErr error

	// PlayCalls records every invocation of Play in order.
	PlayCalls []PlayCall

	closeCount int
}

// Play records the call and returns a fresh, still-running Playback handle.
func (s *Sink) Play(ctx context.Context, pcm []byte, format audio.Format) (audio.Playback, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.PlayErr != nil {
		return nil, s.PlayErr
	}
	h := &Playback{done: make(chan struct{})}
	s.PlayCalls = append(s.PlayCalls, PlayCall{
		PCM:    append([]byte(nil), pcm...),
		Format: format,
		Handle: h,
	})
	return h, nil
}

// Close counts invocations.
func (s *Sink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closeCount++
	return nil
}

// CloseCount reports how many times Close was called.
func (s *Sink) CloseCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closeCount
}

// LastPlayback returns the handle from the most recent Play, or nil when
// nothing has been played.
func (s *Sink) LastPlayback() *Playback {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.PlayCalls) == 0 {
		return nil
	}
	return s.PlayCalls[len(s.PlayCalls)-1].Handle
}

// Playback is a mock implementation of audio.Playback. The test decides its
// outcome via Complete or Fail; Stop from the code under test also finishes it.
type Playback struct {
	mu        sync.Mutex
	done      chan struct{}
	finished  bool
	err       error
	stopCount int
}

// Done returns the completion channel.
func (p *Playback) Done() <-chan struct{} { return p.done }

// Err returns the outcome recorded by Complete, Fail or Stop.
func (p *Playback) Err() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.err
}

// Stop finishes the playback with a nil error. Idempotent.
func (p *Playback) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopCount++
	p.finish(nil)
}

// Complete simulates natural end of playback.
func (p *Playback) Complete() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.finish(nil)
}

// Fail simulates a playback error.
func (p *Playback) Fail(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.finish(err)
}

// StopCount reports how many times Stop was called.
func (p *Playback) StopCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stopCount
}

func (p *Playback) finish(err error) {
	if p.finished {
		return
	}
	p.finished = true
	p.err = err
	close(p.done)
}

// Compile-time interface checks.
var (
	_ audio.Device   = (*Device)(nil)
	_ audio.Stream   = (*Stream)(nil)
	_ audio.Analyzer = (*Analyzer)(nil)
	_ audio.Sink     = (*Sink)(nil)
	_ audio.Playback = (*Playback)(nil)
)
