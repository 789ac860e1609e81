package tts_test

import (
	"testing"

	"github.com/pulpa-work/pulpa/pkg/provider/tts"
)

func TestDefaultVoice(t *testing.T) {
	cases := []struct {
		language string
		want     string
	}{
		{"es-AR", tts.DefaultVoiceSpanish},
		{"es", tts.DefaultVoiceSpanish},
		{"es-MX", tts.DefaultVoiceSpanish},
		{"en-US", tts.DefaultVoiceEnglish},
		{"fr-FR", tts.DefaultVoiceEnglish},
		{"", tts.DefaultVoiceEnglish},
	}
	for _, tc := range cases {
		if got := tts.DefaultVoice(tc.language); got != tc.want {
			t.Errorf("DefaultVoice(%q) = %q, want %q", tc.language, got, tc.want)
		}
	}
}
