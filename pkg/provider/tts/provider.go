// Package tts defines the text-to-speech provider abstraction used by the
// turn pipeline to voice AI replies.
package tts

import (
	"context"
	"errors"
	"strings"

	"github.com/pulpa-work/pulpa/pkg/audio"
)

// ErrNoAudio is returned when synthesis succeeded at the protocol level but
// produced no audio. Callers treat it as recoverable: the reply text stands
// even when it cannot be voiced.
var ErrNoAudio = errors.New("tts: synthesis produced no audio")

// Built-in voices used when the user has not picked one.
const (
	// DefaultVoiceSpanish is the fallback voice for es-* sessions.
	DefaultVoiceSpanish = "Nln7vOQhlEPq2ntWRsrb"
	// DefaultVoiceEnglish is the fallback voice for every other language.
	DefaultVoiceEnglish = "INV8b5mw32tMbdlGeZ5E"
)

// DefaultVoice returns the built-in voice ID for a BCP-47 language tag.
func DefaultVoice(language string) string {
	if strings.HasPrefix(language, "es") {
		return DefaultVoiceSpanish
	}
	return DefaultVoiceEnglish
}

// Provider synthesizes speech from reply text.
type Provider interface {
	// Synthesize renders text as PCM in the provider's output Format.
	// voiceID selects the voice; an empty ID falls back to DefaultVoice for
	// the language. Returns ErrNoAudio when the backend yields an empty blob.
	Synthesize(ctx context.Context, text, language, voiceID string) ([]byte, error)

	// Format reports the PCM layout of blobs returned by Synthesize.
	Format() audio.Format

	// Name identifies the provider for logs and metrics.
	Name() string
}
