// Package config provides the configuration schema and loader for the pulpa
// voice journaling client.
package config

import "time"

// LogLevel controls log verbosity for the client.
type LogLevel string

const (
	LogDebug LogLevel = "debug"
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

// IsValid reports whether l is a recognised log level.
func (l LogLevel) IsValid() bool {
	switch l {
	case LogDebug, LogInfo, LogWarn, LogError:
		return true
	}
	return false
}

// Config is the root configuration structure for pulpa.
// It is typically loaded from a YAML file using [Load] or [LoadFromReader].
type Config struct {
	Client    ClientConfig    `yaml:"client"`
	Providers ProvidersConfig `yaml:"providers"`
	Audio     AudioConfig     `yaml:"audio"`
	Store     StoreConfig     `yaml:"store"`
	Profile   ProfileConfig   `yaml:"profile"`
}

// ClientConfig holds logging and diagnostics settings.
type ClientConfig struct {
	// LogLevel controls verbosity.
	LogLevel LogLevel `yaml:"log_level"`

	// MetricsAddr is the TCP address the Prometheus metrics endpoint listens
	// on (e.g., "localhost:9091"). Empty disables the endpoint.
	MetricsAddr string `yaml:"metrics_addr"`
}

// ProviderEntry configures a single remote collaborator.
type ProviderEntry struct {
	// Name selects the provider implementation.
	Name string `yaml:"name"`

	// APIKey authenticates against the provider.
	APIKey string `yaml:"api_key"`

	// Model overrides the provider's default model, where applicable.
	Model string `yaml:"model"`

	// BaseURL overrides the provider's default endpoint, where applicable.
	BaseURL string `yaml:"base_url"`
}

// ProvidersConfig configures the three pipeline collaborators. A fallback STT
// provider takes over transcription when the primary trips its breaker.
type ProvidersConfig struct {
	STT         ProviderEntry `yaml:"stt"`
	STTFallback ProviderEntry `yaml:"stt_fallback"`
	Chat        ProviderEntry `yaml:"chat"`
	TTS         ProviderEntry `yaml:"tts"`
}

// AudioConfig holds capture and silence detection settings. Zero values are
// replaced with defaults by [ApplyDefaults].
type AudioConfig struct {
	// SampleRate is the capture rate in Hz.
	SampleRate int `yaml:"sample_rate"`

	// Channels is the capture channel count.
	Channels int `yaml:"channels"`

	// TimeSliceMs is the cadence at which recorded audio chunks are
	// delivered, in milliseconds.
	TimeSliceMs int `yaml:"time_slice_ms"`

	// SilenceThreshold is the smoothed level (0..1) below which a monitor
	// sample counts as silence.
	SilenceThreshold float64 `yaml:"silence_threshold"`

	// SilenceDurationMs is how long sustained silence runs before a turn is
	// auto-stopped, in milliseconds.
	SilenceDurationMs int `yaml:"silence_duration_ms"`

	// MaxTurnDurationMs is the hard ceiling on one turn's length, in
	// milliseconds.
	MaxTurnDurationMs int `yaml:"max_turn_duration_ms"`
}

// TimeSlice returns TimeSliceMs as a Duration.
func (a AudioConfig) TimeSlice() time.Duration {
	return time.Duration(a.TimeSliceMs) * time.Millisecond
}

// SilenceDuration returns SilenceDurationMs as a Duration.
func (a AudioConfig) SilenceDuration() time.Duration {
	return time.Duration(a.SilenceDurationMs) * time.Millisecond
}

// MaxTurnDuration returns MaxTurnDurationMs as a Duration.
func (a AudioConfig) MaxTurnDuration() time.Duration {
	return time.Duration(a.MaxTurnDurationMs) * time.Millisecond
}

// StoreConfig holds persistence settings.
type StoreConfig struct {
	// PostgresDSN is the connection string for the conversation store. Empty
	// falls back to the in-memory store; conversations then do not survive
	// the process.
	PostgresDSN string `yaml:"postgres_dsn"`
}

// ProfileConfig describes the journaling user. Zero values are replaced with
// defaults by [ApplyDefaults].
type ProfileConfig struct {
	// FullName is how the assistant may address the user.
	FullName string `yaml:"full_name"`

	// Role is the user's occupation or life role.
	Role string `yaml:"role"`

	// Goals describes what the user wants from their reflection practice.
	Goals string `yaml:"goals"`

	// PreferredLanguage is the BCP-47 tag sessions run in.
	PreferredLanguage string `yaml:"preferred_language"`

	// PreferredVoiceID selects the synthesis voice. Empty picks a built-in
	// voice for the session language.
	PreferredVoiceID string `yaml:"preferred_voice_id"`
}

// Capture and silence detection defaults.
const (
	DefaultSampleRate        = 48000
	DefaultChannels          = 1
	DefaultTimeSliceMs       = 500
	DefaultSilenceThreshold  = 0.025
	DefaultSilenceDurationMs = 4000
	DefaultMaxTurnDurationMs = 50000
)

// Profile defaults.
const (
	DefaultFullName = "Usuario"
	DefaultRole     = "Persona reflexiva"
	DefaultGoals    = "Crecimiento personal y autoconocimiento"
	DefaultLanguage = "es-AR"
)

// ApplyDefaults fills zero-valued audio and profile fields in place.
func ApplyDefaults(cfg *Config) {
	if cfg.Client.LogLevel == "" {
		cfg.Client.LogLevel = LogInfo
	}
	if cfg.Audio.SampleRate == 0 {
		cfg.Audio.SampleRate = DefaultSampleRate
	}
	if cfg.Audio.Channels == 0 {
		cfg.Audio.Channels = DefaultChannels
	}
	if cfg.Audio.TimeSliceMs == 0 {
		cfg.Audio.TimeSliceMs = DefaultTimeSliceMs
	}
	if cfg.Audio.SilenceThreshold == 0 {
		cfg.Audio.SilenceThreshold = DefaultSilenceThreshold
	}
	if cfg.Audio.SilenceDurationMs == 0 {
		cfg.Audio.SilenceDurationMs = DefaultSilenceDurationMs
	}
	if cfg.Audio.MaxTurnDurationMs == 0 {
		cfg.Audio.MaxTurnDurationMs = DefaultMaxTurnDurationMs
	}
	if cfg.Profile.FullName == "" {
		cfg.Profile.FullName = DefaultFullName
	}
	if cfg.Profile.Role == "" {
		cfg.Profile.Role = DefaultRole
	}
	if cfg.Profile.Goals == "" {
		cfg.Profile.Goals = DefaultGoals
	}
	if cfg.Profile.PreferredLanguage == "" {
		cfg.Profile.PreferredLanguage = DefaultLanguage
	}
}
