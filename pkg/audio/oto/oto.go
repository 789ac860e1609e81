// Package oto implements audio.Sink on top of the Oto context, playing
// complete 16-bit PCM blobs through the default system output.
package oto

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"

	"github.com/pulpa-work/pulpa/pkg/audio"
)

// pollInterval is how often an in-flight playback checks whether the player
// has drained its buffer.
const pollInterval = 50 * time.Millisecond

// Sink plays PCM blobs through a single Oto context. The context's format is
// fixed at construction; Play rejects blobs in a different format because the
// process-wide Oto context cannot be reconfigured.
type Sink struct {
	logger *slog.Logger
	format audio.Format
	ctx    *oto.Context
	ready  <-chan struct{}

	mu      sync.Mutex
	players []*oto.Player
}

// Option configures a Sink.
type Option func(*Sink)

// WithLogger sets the logger used for playback lifecycle events.
func WithLogger(l *slog.Logger) Option {
	return func(s *Sink) {
		s.logger = l
	}
}

// New creates the Oto context for the given output format.
func New(format audio.Format, opts ...Option) (*Sink, error) {
	if format.SampleRate <= 0 || format.Channels <= 0 {
		return nil, fmt.Errorf("oto: invalid output format %+v", format)
	}
	op := &oto.NewContextOptions{
		SampleRate:   format.SampleRate,
		ChannelCount: format.Channels,
		Format:       oto.FormatSignedInt16LE,
	}
	ctx, ready, err := oto.NewContext(op)
	if err != nil {
		return nil, fmt.Errorf("create oto context: %w", err)
	}
	s := &Sink{
		logger: slog.Default(),
		format: format,
		ctx:    ctx,
		ready:  ready,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Play starts asynchronous playback of pcm and returns its handle. The blob
// must match the sink's configured format.
func (s *Sink) Play(ctx context.Context, pcm []byte, format audio.Format) (audio.Playback, error) {
	if len(pcm) == 0 {
		return nil, audio.ErrEmptyAudio
	}
	if format != s.format {
		return nil, fmt.Errorf("oto: blob format %+v does not match sink format %+v", format, s.format)
	}

	// The context signals readiness once, shortly after creation.
	select {
	case <-s.ready:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	player := s.ctx.NewPlayer(bytes.NewReader(pcm))
	p := &playback{
		player: player,
		done:   make(chan struct{}),
	}

	s.mu.Lock()
	s.players = append(s.players, player)
	s.mu.Unlock()

	player.Play()
	s.logger.Debug("playback started",
		"bytes", len(pcm),
		"duration", format.Duration(len(pcm)))

	go p.wait(ctx)
	return p, nil
}

// Close stops any players still running. The Oto context itself cannot be
// torn down; it is released with the process.
func (s *Sink) Close() error {
	s.mu.Lock()
	players := s.players
	s.players = nil
	s.mu.Unlock()
	for _, p := range players {
		p.Close()
	}
	return nil
}

type playback struct {
	player *oto.Player
	done   chan struct{}

	mu       sync.Mutex
	finished bool
	err      error
}

// wait polls the player until it drains, the context is canceled, or Stop
// closes the handle first.
func (p *playback) wait(ctx context.Context) {
	t := time.NewTicker(pollInterval)
	defer t.Stop()
	for {
		select {
		case <-p.done:
			return
		case <-ctx.Done():
			p.finish(ctx.Err())
			return
		case <-t.C:
			if !p.player.IsPlaying() {
				p.finish(nil)
				return
			}
		}
	}
}

func (p *playback) Done() <-chan struct{} { return p.done }

func (p *playback) Err() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.err
}

// Stop halts playback early. Idempotent.
func (p *playback) Stop() {
	p.finish(nil)
}

func (p *playback) finish(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.finished {
		return
	}
	p.finished = true
	p.err = err
	p.player.Close()
	close(p.done)
}

var (
	_ audio.Sink     = (*Sink)(nil)
	_ audio.Playback = (*playback)(nil)
)
