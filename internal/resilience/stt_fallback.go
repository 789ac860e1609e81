package resilience

import (
	"context"
	"errors"
	"strings"

	"github.com/pulpa-work/pulpa/pkg/provider/stt"
)

// STTFallback implements [stt.Provider] with failover across transcription
// backends. A clean "heard nothing" result ([stt.ErrNoSpeech] or an empty
// transcript) counts as success: the recording was understood, there is just
// nothing in it, and asking another backend would only invite hallucinated
// text.
type STTFallback struct {
	group *FallbackGroup[stt.Provider]
}

var _ stt.Provider = (*STTFallback)(nil)

// NewSTTFallback wraps primary as the preferred transcription backend.
func NewSTTFallback(primary stt.Provider, cfg FallbackConfig) *STTFallback {
	return &STTFallback{
		group: NewFallbackGroup(primary, primary.Name(), cfg),
	}
}

// AddFallback registers another transcription backend, tried after every
// earlier one.
func (f *STTFallback) AddFallback(provider stt.Provider) {
	f.group.AddFallback(provider.Name(), provider)
}

// Transcribe runs the recording through the first healthy backend.
func (f *STTFallback) Transcribe(ctx context.Context, wav []byte, language string) (string, error) {
	noSpeech := false
	text, err := With(f.group, func(p stt.Provider) (string, error) {
		t, terr := p.Transcribe(ctx, wav, language)
		if terr != nil {
			if errors.Is(terr, stt.ErrNoSpeech) {
				noSpeech = true
				return "", nil
			}
			return "", terr
		}
		return t, nil
	})
	if err != nil {
		return "", err
	}
	if noSpeech {
		return "", stt.ErrNoSpeech
	}
	return text, nil
}

// Name lists the stacked backends, primary first.
func (f *STTFallback) Name() string {
	names := make([]string, len(f.group.entries))
	for i, e := range f.group.entries {
		names[i] = e.name
	}
	return strings.Join(names, "+")
}
