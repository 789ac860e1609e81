package config_test

import (
	"strings"
	"testing"

	"github.com/pulpa-work/pulpa/internal/config"
)

const validYAML = `
client:
  log_level: debug
providers:
  stt:
    name: openai-whisper
    api_key: sk-test
  stt_fallback:
    name: deepgram
    api_key: dg-test
  chat:
    name: openai-chat
    api_key: sk-test
    model: gpt-4o-mini
  tts:
    name: elevenlabs
    api_key: el-test
audio:
  sample_rate: 48000
  silence_threshold: 0.025
store:
  postgres_dsn: postgres://localhost/pulpa
profile:
  full_name: Ana
  preferred_language: es-AR
`

func TestLoadFromReaderValid(t *testing.T) {
	t.Parallel()

	cfg, err := config.LoadFromReader(strings.NewReader(validYAML))
	if err != nil {
		t.Fatalf("LoadFromReader() error = %v", err)
	}

	if cfg.Client.LogLevel != config.LogDebug {
		t.Errorf("LogLevel = %q, want %q", cfg.Client.LogLevel, config.LogDebug)
	}
	if cfg.Providers.STT.Name != "openai-whisper" {
		t.Errorf("STT.Name = %q, want openai-whisper", cfg.Providers.STT.Name)
	}
	if cfg.Providers.STTFallback.Name != "deepgram" {
		t.Errorf("STTFallback.Name = %q, want deepgram", cfg.Providers.STTFallback.Name)
	}
	if cfg.Profile.FullName != "Ana" {
		t.Errorf("Profile.FullName = %q, want Ana", cfg.Profile.FullName)
	}
}

func TestLoadFromReaderDefaults(t *testing.T) {
	t.Parallel()

	const minimal = `
providers:
  stt:
    name: openai-whisper
  chat:
    name: openai-chat
  tts:
    name: elevenlabs
`
	cfg, err := config.LoadFromReader(strings.NewReader(minimal))
	if err != nil {
		t.Fatalf("LoadFromReader() error = %v", err)
	}

	if cfg.Audio.SampleRate != config.DefaultSampleRate {
		t.Errorf("SampleRate = %d, want %d", cfg.Audio.SampleRate, config.DefaultSampleRate)
	}
	if cfg.Audio.SilenceThreshold != config.DefaultSilenceThreshold {
		t.Errorf("SilenceThreshold = %v, want %v", cfg.Audio.SilenceThreshold, config.DefaultSilenceThreshold)
	}
	if cfg.Audio.SilenceDurationMs != config.DefaultSilenceDurationMs {
		t.Errorf("SilenceDurationMs = %d, want %d", cfg.Audio.SilenceDurationMs, config.DefaultSilenceDurationMs)
	}
	if cfg.Audio.MaxTurnDurationMs != config.DefaultMaxTurnDurationMs {
		t.Errorf("MaxTurnDurationMs = %d, want %d", cfg.Audio.MaxTurnDurationMs, config.DefaultMaxTurnDurationMs)
	}
	if cfg.Profile.FullName != config.DefaultFullName {
		t.Errorf("Profile.FullName = %q, want %q", cfg.Profile.FullName, config.DefaultFullName)
	}
	if cfg.Profile.PreferredLanguage != config.DefaultLanguage {
		t.Errorf("Profile.PreferredLanguage = %q, want %q", cfg.Profile.PreferredLanguage, config.DefaultLanguage)
	}
}

func TestLoadFromReaderRejectsUnknownFields(t *testing.T) {
	t.Parallel()

	const bad = `
providers:
  stt:
    name: openai-whisper
  chat:
    name: openai-chat
  tts:
    name: elevenlabs
bogus_section:
  value: 1
`
	if _, err := config.LoadFromReader(strings.NewReader(bad)); err == nil {
		t.Fatal("LoadFromReader() accepted unknown top-level field")
	}
}

func TestValidateCollectsAllErrors(t *testing.T) {
	t.Parallel()

	cfg := &config.Config{}
	config.ApplyDefaults(cfg)
	cfg.Client.LogLevel = "loud"
	cfg.Audio.SampleRate = 4000
	cfg.Audio.Channels = 2
	cfg.Audio.SilenceThreshold = 1.5

	err := config.Validate(cfg)
	if err == nil {
		t.Fatal("Validate() = nil, want error")
	}
	for _, want := range []string{"client.log_level", "audio.sample_rate", "audio.channels", "audio.silence_threshold", "providers.stt.name", "providers.chat.name", "providers.tts.name"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("Validate() error missing %q: %v", want, err)
		}
	}
}

func TestValidateRequiresTTSProvider(t *testing.T) {
	t.Parallel()

	cfg := &config.Config{}
	config.ApplyDefaults(cfg)
	cfg.Providers.STT.Name = "openai-whisper"
	cfg.Providers.Chat.Name = "openai-chat"

	err := config.Validate(cfg)
	if err == nil {
		t.Fatal("Validate() accepted a config without providers.tts.name")
	}
	if !strings.Contains(err.Error(), "providers.tts.name") {
		t.Errorf("Validate() error does not name providers.tts.name: %v", err)
	}
}

func TestValidateRejectsCeilingBelowSilenceWindow(t *testing.T) {
	t.Parallel()

	cfg := &config.Config{}
	config.ApplyDefaults(cfg)
	cfg.Providers.STT.Name = "openai-whisper"
	cfg.Providers.Chat.Name = "openai-chat"
	cfg.Providers.TTS.Name = "elevenlabs"
	cfg.Audio.MaxTurnDurationMs = cfg.Audio.SilenceDurationMs

	err := config.Validate(cfg)
	if err == nil {
		t.Fatal("Validate() accepted max_turn_duration_ms <= silence_duration_ms")
	}
	if !strings.Contains(err.Error(), "max_turn_duration_ms") {
		t.Errorf("Validate() error does not name max_turn_duration_ms: %v", err)
	}
}
