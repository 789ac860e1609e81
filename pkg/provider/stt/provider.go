// Package stt defines the speech-to-text provider abstraction used by the
// turn pipeline.
//
// Providers transcribe a complete recorded turn in one call. Hinting the
// expected language improves accuracy for short utterances, so the recorder's
// configured language tag is passed through on every request.
package stt

import (
	"context"
	"errors"
)

// ErrNoSpeech is returned when the provider processed the audio but found no
// transcribable speech in it. Callers treat it as a recoverable outcome, not
// a provider failure.
var ErrNoSpeech = errors.New("stt: no speech detected")

// Provider transcribes recorded audio.
type Provider interface {
	// Transcribe converts a complete WAV-encoded recording into text.
	// language is a BCP-47 tag such as "es-AR"; providers that only accept
	// base language codes derive them from the tag. Returns ErrNoSpeech when
	// the audio contains nothing transcribable.
	Transcribe(ctx context.Context, wav []byte, language string) (string, error)

	// Name identifies the provider for logs and metrics.
	Name() string
}

// BaseLanguage reduces a BCP-47 tag to its ISO 639-1 base code: "es-AR"
// becomes "es". Tags without a region pass through unchanged.
func BaseLanguage(tag string) string {
	for i := 0; i < len(tag); i++ {
		if tag[i] == '-' || tag[i] == '_' {
			return tag[:i]
		}
	}
	return tag
}
