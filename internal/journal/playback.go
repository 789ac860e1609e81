package journal

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/pulpa-work/pulpa/internal/observe"
	"github.com/pulpa-work/pulpa/pkg/audio"
)

// playbackController plays one synthesized reply at a time. Starting a new
// playback releases the previous one; Interrupt stops the current playback
// synchronously so a recording can start right after.
type playbackController struct {
	sink    audio.Sink
	logger  *slog.Logger
	metrics *observe.Metrics

	// onComplete runs after natural end of playback, onError after a sink
	// failure. Neither runs for an interrupted playback.
	onComplete func()
	onError    func(err error)

	mu      sync.Mutex
	current audio.Playback
}

func newPlaybackController(sink audio.Sink, logger *slog.Logger, metrics *observe.Metrics) *playbackController {
	return &playbackController{
		sink:    sink,
		logger:  logger,
		metrics: metrics,
	}
}

// Play starts playback of a PCM blob. An empty blob is a recoverable
// error (audio.ErrEmptyAudio): nothing plays and the caller returns to
// ready.
func (p *playbackController) Play(ctx context.Context, pcm []byte, format audio.Format) error {
	if len(pcm) == 0 {
		return fmt.Errorf("play reply: %w", audio.ErrEmptyAudio)
	}

	p.mu.Lock()
	if p.current != nil {
		p.current.Stop()
		p.current = nil
	}
	pb, err := p.sink.Play(ctx, pcm, format)
	if err != nil {
		p.mu.Unlock()
		return fmt.Errorf("play reply: %w", err)
	}
	p.current = pb
	p.mu.Unlock()

	p.logger.Debug("playback started", "bytes", len(pcm))
	go p.watch(pb)
	return nil
}

// watch waits for pb to finish. If the playback is still current at that
// point it ended on its own and the completion hooks run; otherwise it was
// interrupted or replaced and Interrupt already handled the state.
func (p *playbackController) watch(pb audio.Playback) {
	<-pb.Done()

	p.mu.Lock()
	if p.current != pb {
		p.mu.Unlock()
		return
	}
	p.current = nil
	p.mu.Unlock()

	if err := pb.Err(); err != nil {
		p.logger.Error("playback failed", "error", err)
		if p.onError != nil {
			p.onError(err)
		}
		return
	}
	p.logger.Debug("playback finished")
	if p.onComplete != nil {
		p.onComplete()
	}
}

// Interrupt stops the current playback. Reports whether one was playing.
func (p *playbackController) Interrupt() bool {
	p.mu.Lock()
	pb := p.current
	p.current = nil
	p.mu.Unlock()
	if pb == nil {
		return false
	}
	pb.Stop()
	p.metrics.Interruptions.Add(context.Background(), 1)
	p.logger.Info("playback interrupted")
	return true
}

// Playing reports whether a playback is in flight.
func (p *playbackController) Playing() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.current != nil
}
