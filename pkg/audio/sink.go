package audio

import (
	"context"
	"errors"
)

// ErrEmptyAudio is returned by Sink.Play when given a zero-length blob.
var ErrEmptyAudio = errors.New("audio: empty audio payload")

// Sink turns finished PCM blobs into audible output.
type Sink interface {
	// Play starts playback of a complete PCM blob in the given format and
	// returns a handle for it. Playback proceeds asynchronously; the handle's
	// Done channel is closed when audio finishes or is stopped.
	Play(ctx context.Context, pcm []byte, format Format) (Playback, error)

	// Close releases the output device. Safe to call more than once.
	Close() error
}

// Playback is a handle to one in-flight playback. Stop is idempotent:
// calling it on an already-finished or already-stopped handle is a no-op.
type Playback interface {
	// Done is closed when playback finishes, fails, or is stopped.
	Done() <-chan struct{}

	// Err reports the playback outcome after Done is closed. It returns nil
	// for natural completion and for a deliberate Stop.
	Err() error

	// Stop halts playback early and releases the handle's resources.
	Stop()
}
