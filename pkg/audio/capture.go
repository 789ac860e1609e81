package audio

import (
	"context"
	"errors"
	"time"
)

// ErrAccessDenied is returned by Device.Open when the user or operating
// system has denied access to the capture hardware.
var ErrAccessDenied = errors.New("audio: microphone access denied")

// StreamConfig holds the parameters requested when opening a capture stream.
type StreamConfig struct {
	// SampleRate in Hz requested from the device.
	SampleRate int

	// Channels requested from the device. Capture is mono in practice.
	Channels int

	// TimeSlice is the cadence at which the stream delivers frames. Audio
	// captured between slices is buffered and emitted as one Frame.
	TimeSlice time.Duration

	// EchoCancellation requests hardware/driver echo cancellation where the
	// backend supports it. Backends without the capability ignore it.
	EchoCancellation bool

	// NoiseSuppression requests driver noise suppression where supported.
	NoiseSuppression bool

	// AutoGainControl requests driver automatic gain control where supported.
	AutoGainControl bool
}

// Device grants access to a capture source. Open acquires the microphone and
// returns a live Stream; only one stream per device may be open at a time.
type Device interface {
	// Open acquires the capture source and starts delivering frames.
	// Returns ErrAccessDenied when permission to the hardware is refused.
	Open(ctx context.Context, cfg StreamConfig) (Stream, error)
}

// Stream is a live capture session. Frames returns a channel producing PCM
// chunks at the configured time-slice cadence; the channel is closed after
// Close. Analyzer exposes a frequency-domain view of the live signal.
type Stream interface {
	// Frames returns the channel of captured audio chunks. The channel is
	// closed once the stream is closed and all buffered frames are drained.
	Frames() <-chan Frame

	// Analyzer returns a frequency-domain view over the live signal.
	Analyzer() Analyzer

	// Format reports the actual capture format granted by the device, which
	// may differ from the requested StreamConfig.
	Format() Format

	// Close releases the capture source. Safe to call more than once.
	Close() error
}

// Analyzer exposes a snapshot of the capture signal's frequency content.
// Implementations bucket the live signal into byte-valued magnitude bins.
type Analyzer interface {
	// FrequencyData returns the current magnitude per frequency bin, each in
	// the range 0..255. An all-zero or empty slice means no signal has been
	// observed yet; callers should skip such samples rather than treat them
	// as silence.
	FrequencyData() []byte
}
