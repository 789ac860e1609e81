// Package audio defines the capture and playback abstractions used by the
// pulpa voice pipeline.
//
// The central capture abstraction is [Device]: a factory for exclusive-access
// microphone [Stream] sessions. A stream delivers incremental PCM chunks as
// [Frame] values and exposes an [Analyzer] view over the live signal so the
// level monitor can derive speech/silence decisions without owning the stream.
//
// On the output side, a [Sink] turns a finished PCM blob into a [Playback]
// handle with deterministic release semantics: every handle either runs to
// completion or is stopped, exactly once, and Stop is safe to call repeatedly.
//
// Implementations must be safe for concurrent use unless documented otherwise.
package audio

import "time"

// Frame represents a single chunk of captured audio flowing through the
// pipeline. Frames are delivered incrementally at the configured time-slice
// cadence so a turn's audio accumulates piecewise rather than only at stop.
type Frame struct {
	// PCM audio data, 16-bit little-endian samples.
	Data []byte

	// SampleRate in Hz (e.g., 48000 for capture, 16000 for synthesis output).
	SampleRate int

	// Channels is the channel count. Capture is mono.
	Channels int

	// Timestamp marks when this frame was captured, relative to stream start.
	Timestamp time.Duration
}

// Format describes the PCM layout of an audio byte stream.
type Format struct {
	// SampleRate in Hz.
	SampleRate int

	// Channels is the channel count (1 = mono, 2 = stereo).
	Channels int
}

// BytesPerSecond returns the byte rate of 16-bit PCM in this format.
func (f Format) BytesPerSecond() int {
	return f.SampleRate * f.Channels * 2
}

// Duration returns the play time of n bytes of 16-bit PCM in this format.
// Returns 0 for a zero-value format.
func (f Format) Duration(n int) time.Duration {
	bps := f.BytesPerSecond()
	if bps == 0 {
		return 0
	}
	return time.Duration(n) * time.Second / time.Duration(bps)
}
