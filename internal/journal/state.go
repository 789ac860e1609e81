// Package journal drives a voice-journaling session: it dispatches the
// single main action across the recording, processing and playback phases,
// runs the transcribe-reply-synthesize pipeline for each captured turn, and
// keeps the conversation history and its persistence in step.
package journal

import "time"

// Status lines surfaced to the user through State.Status.
const (
	StatusInitial      = "Tap the microphone to begin your reflection"
	StatusReady        = "Ready for your next thought"
	StatusListening    = "Listening..."
	StatusTranscribing = "Transcribing your thoughts..."
	StatusThinking     = "AI is thinking..."
	StatusGenerating   = "Generating audio..."
	StatusPlaying      = "Playing response... (tap to pause)"
	StatusNothingHeard = "Could not hear anything clearly. Try again."
	StatusSaving       = "Saving your session..."
	StatusSaved        = "Session saved."
	StatusNoPermission = "Microphone access needed"
	StatusDeniedDetail = "Microphone access denied. Please enable microphone permissions."
)

// State is a snapshot of the session for a UI layer. At most one of the
// pipeline-phase flags (IsProcessing, IsAIThinking, IsGeneratingAudio,
// IsPlayingAudio) is true at a time.
type State struct {
	IsRecording       bool
	IsProcessing      bool
	IsAIThinking      bool
	IsGeneratingAudio bool
	IsPlayingAudio    bool
	IsSummarising     bool
	HasPermission     bool
	PermissionDenied  bool
	Error             string
	Status            string
	RecordingDuration time.Duration
	AudioLevel        float64
}

// Busy reports whether a turn is mid-pipeline and a new recording must not
// start.
func (s State) Busy() bool {
	return s.IsProcessing || s.IsAIThinking || s.IsGeneratingAudio
}

// resetTransient clears everything a ready state should not carry. The
// permission fields survive.
func (s *State) resetTransient() {
	s.IsRecording = false
	s.IsProcessing = false
	s.IsAIThinking = false
	s.IsGeneratingAudio = false
	s.IsPlayingAudio = false
	s.AudioLevel = 0
	s.RecordingDuration = 0
	s.Error = ""
	if s.HasPermission {
		s.Status = StatusReady
	} else {
		s.Status = StatusNoPermission
	}
}
