// Package mock provides a test double for the tts.Provider interface.
//
// Use Provider in unit tests to feed controlled PCM blobs without a live
// synthesis backend and to verify which voice and language each reply was
// synthesized with.
package mock

import (
	"context"
	"sync"

	"github.com/pulpa-work/pulpa/pkg/audio"
	"github.com/pulpa-work/pulpa/pkg/provider/tts"
)

// SynthesizeCall records a single invocation of Synthesize.
type SynthesizeCall struct {
	// Ctx is the context passed to Synthesize.
	Ctx context.Context
	// Text is the reply text passed to Synthesize.
	Text string
	// Language is the language tag passed to Synthesize.
	Language string
	// VoiceID is the voice passed to Synthesize.
	VoiceID string
}

// Provider is a mock implementation of tts.Provider.
// Zero values for response fields cause methods to return zero values and nil
// errors. Set Err fields to inject errors.
type Provider struct {
	mu sync.Mutex

	// Audio is the PCM blob returned by Synthesize.
	Audio []byte

	// SynthesizeErr, if non-nil, is returned as the error from Synthesize.
	SynthesizeErr error

	// OutputFormat is returned by Format. Defaults to 16 kHz mono when zero.
	OutputFormat audio.Format

	// ProviderName is returned by Name. Defaults to "mock".
	ProviderName string

	// SynthesizeCalls records every invocation of Synthesize in order.
	SynthesizeCalls []SynthesizeCall
}

// Synthesize records the call and returns Audio, SynthesizeErr.
func (p *Provider) Synthesize(ctx context.Context, text, language, voiceID string) ([]byte, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.SynthesizeCalls = append(p.SynthesizeCalls, SynthesizeCall{
		Ctx:      ctx,
		Text:     text,
		Language: language,
		VoiceID:  voiceID,
	})
	if p.SynthesizeErr != nil {
		return nil, p.SynthesizeErr
	}
	return append([]byte(nil), p.Audio...), nil
}

// Format returns OutputFormat, or 16 kHz mono when unset.
func (p *Provider) Format() audio.Format {
	if p.OutputFormat == (audio.Format{}) {
		return audio.Format{SampleRate: 16000, Channels: 1}
	}
	return p.OutputFormat
}

// Name returns ProviderName, or "mock" when unset.
func (p *Provider) Name() string {
	if p.ProviderName == "" {
		return "mock"
	}
	return p.ProviderName
}

// Reset clears all recorded calls. Thread-safe.
func (p *Provider) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.SynthesizeCalls = nil
}

var _ tts.Provider = (*Provider)(nil)
