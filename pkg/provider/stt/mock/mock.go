// Package mock provides a test double for the stt.Provider interface.
//
// Use Provider in unit tests to feed controlled transcripts without a live
// transcription backend. All fields are safe to set before calling any
// method; mutating them during a concurrent call is the caller's
// responsibility.
package mock

import (
	"context"
	"sync"

	"github.com/pulpa-work/pulpa/pkg/provider/stt"
)

// TranscribeCall records a single invocation of Transcribe.
type TranscribeCall struct {
	// Ctx is the context passed to Transcribe.
	Ctx context.Context
	// WAV is the audio payload passed to Transcribe.
	WAV []byte
	// Language is the language tag passed to Transcribe.
	Language string
}

// Provider is a mock implementation of stt.Provider.
// Zero values for response fields cause methods to return zero values and nil
// errors. Set Err fields to inject errors.
type Provider struct {
	mu sync.Mutex

	// Transcript is returned by Transcribe. When Transcripts is non-empty it
	// takes precedence and each call consumes the next entry, repeating the
	// last one once exhausted.
	Transcript string

	// Transcripts is an optional per-call sequence of transcripts.
	Transcripts []string

	// TranscribeErr, if non-nil, is returned as the error from Transcribe.
	TranscribeErr error

	// ProviderName is returned by Name. Defaults to "mock".
	ProviderName string

	// TranscribeCalls records every invocation of Transcribe in order.
	TranscribeCalls []TranscribeCall
}

// Transcribe records the call and returns the configured transcript.
func (p *Provider) Transcribe(ctx context.Context, wav []byte, language string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	call := TranscribeCall{
		Ctx:      ctx,
		WAV:      append([]byte(nil), wav...),
		Language: language,
	}
	n := len(p.TranscribeCalls)
	p.TranscribeCalls = append(p.TranscribeCalls, call)
	if p.TranscribeErr != nil {
		return "", p.TranscribeErr
	}
	if len(p.Transcripts) > 0 {
		if n >= len(p.Transcripts) {
			n = len(p.Transcripts) - 1
		}
		return p.Transcripts[n], nil
	}
	return p.Transcript, nil
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
	p.TranscribeCalls = nil
}

var _ stt.Provider = (*Provider)(nil)
