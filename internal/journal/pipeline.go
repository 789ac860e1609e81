package journal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/pulpa-work/pulpa/internal/observe"
	"github.com/pulpa-work/pulpa/pkg/audio"
	"github.com/pulpa-work/pulpa/pkg/provider/chat"
	"github.com/pulpa-work/pulpa/pkg/provider/stt"
	"github.com/pulpa-work/pulpa/pkg/provider/tts"
	"github.com/pulpa-work/pulpa/pkg/store"
)

// TurnOutcome describes how a processed recording ended.
type TurnOutcome int

const (
	// TurnCompleted means the reply was produced and handed to playback.
	TurnCompleted TurnOutcome = iota
	// TurnEmpty means nothing intelligible was heard. No turn was appended.
	TurnEmpty
)

// pipeline runs one captured recording through transcription, reply
// generation, synthesis and playback, persisting both turns along the way.
// Stages run strictly in order; the controller guarantees at most one
// ProcessTurn is in flight.
type pipeline struct {
	stt      stt.Provider
	chat     chat.Provider
	tts      tts.Provider
	store    store.Store
	playback *playbackController
	state    *stateStore
	profile  Profile
	logger   *slog.Logger
	metrics  *observe.Metrics
}

// ProcessTurn takes a finished WAV recording through the full turn. A
// TurnEmpty outcome is not an error: the state already shows the
// nothing-heard status and no conversation was touched. A returned error
// means the turn was abandoned mid-pipeline; the caller owns the error
// surface.
func (p *pipeline) ProcessTurn(ctx context.Context, wav []byte, session *Session) (TurnOutcome, error) {
	if p.profile == (Profile{}) {
		return TurnCompleted, errors.New("process turn: no user profile loaded")
	}
	language := p.profile.Language

	p.state.Update(func(s *State) {
		s.IsProcessing = true
		s.IsRecording = false
		s.Status = StatusTranscribing
	})

	transcript, err := p.transcribe(ctx, wav, language)
	if err != nil {
		return TurnCompleted, err
	}
	if transcript == "" {
		p.metrics.EmptyTranscripts.Add(ctx, 1)
		p.metrics.RecordTurn(ctx, "empty")
		p.logger.Info("transcript empty, skipping turn")
		p.state.Update(func(s *State) {
			s.IsProcessing = false
			if s.HasPermission {
				s.Status = StatusNothingHeard
			} else {
				s.Status = StatusNoPermission
			}
		})
		return TurnEmpty, nil
	}

	if err := p.ensureConversation(ctx, session); err != nil {
		return TurnCompleted, err
	}

	// The user turn must be on record before the model sees it. Losing it
	// would desync the stored conversation from the history the model
	// replies to, so a failed write abandons the turn.
	history := session.History()
	if _, err := p.store.AppendTurn(ctx, session.ConversationID(), store.RoleUser, transcript); err != nil {
		p.metrics.RecordProviderError(ctx, "store", "append_user_turn")
		return TurnCompleted, fmt.Errorf("save user turn: %w", err)
	}
	session.Append(chat.RoleUser, transcript)

	p.state.Update(func(s *State) {
		s.IsProcessing = false
		s.IsAIThinking = true
		s.Status = StatusThinking
	})

	reply, err := p.reply(ctx, history, transcript, language)
	if err != nil {
		return TurnCompleted, err
	}

	// A lost model turn only costs the archive one line; the session keeps
	// going with the in-memory copy.
	if _, err := p.store.AppendTurn(ctx, session.ConversationID(), store.RoleModel, reply); err != nil {
		p.metrics.RecordProviderError(ctx, "store", "append_model_turn")
		p.logger.Error("saving model turn", "error", err)
	}
	session.Append(chat.RoleModel, reply)

	p.state.Update(func(s *State) {
		s.IsAIThinking = false
		s.IsGeneratingAudio = true
		s.Status = StatusGenerating
	})

	pcm, err := p.synthesize(ctx, reply, language)
	if err != nil && !errors.Is(err, tts.ErrNoAudio) {
		return TurnCompleted, err
	}

	// The reply text stands even when it cannot be voiced.
	if err := p.playback.Play(ctx, pcm, p.tts.Format()); err != nil {
		if errors.Is(err, audio.ErrEmptyAudio) {
			p.logger.Warn("synthesized reply was empty, skipping playback")
			p.metrics.RecordTurn(ctx, "completed")
			p.state.Update(func(s *State) { s.resetTransient() })
			return TurnCompleted, nil
		}
		return TurnCompleted, err
	}

	p.metrics.RecordTurn(ctx, "completed")
	p.state.Update(func(s *State) {
		s.IsGeneratingAudio = false
		s.IsPlayingAudio = true
		s.Status = StatusPlaying
	})
	return TurnCompleted, nil
}

func (p *pipeline) transcribe(ctx context.Context, wav []byte, language string) (string, error) {
	start := time.Now()
	text, err := p.stt.Transcribe(ctx, wav, language)
	p.metrics.TranscribeDuration.Record(ctx, time.Since(start).Seconds(),
		metric.WithAttributes(attribute.String("provider", p.stt.Name())))
	if err != nil {
		if errors.Is(err, stt.ErrNoSpeech) {
			return "", nil
		}
		p.metrics.RecordProviderError(ctx, p.stt.Name(), "transcribe")
		return "", fmt.Errorf("transcribe recording: %w", err)
	}
	return strings.TrimSpace(text), nil
}

func (p *pipeline) ensureConversation(ctx context.Context, session *Session) error {
	if session.ConversationID() != uuid.Nil {
		return nil
	}
	conv, err := p.store.CreateConversation(ctx)
	if err != nil {
		p.metrics.RecordProviderError(ctx, "store", "create_conversation")
		return fmt.Errorf("start conversation: %w", err)
	}
	session.Bind(conv.ID)
	p.logger.Info("conversation started", "conversation_id", conv.ID)
	return nil
}

func (p *pipeline) reply(ctx context.Context, history []chat.Message, userMessage, language string) (string, error) {
	start := time.Now()
	reply, err := p.chat.Reply(ctx, chat.Request{
		History:     history,
		UserMessage: userMessage,
		Language:    language,
		Profile: chat.Profile{
			FullName: p.profile.FullName,
			Role:     p.profile.Role,
			Goals:    p.profile.Goals,
		},
	})
	p.metrics.ReplyDuration.Record(ctx, time.Since(start).Seconds(),
		metric.WithAttributes(attribute.String("provider", p.chat.Name())))
	if err != nil {
		p.metrics.RecordProviderError(ctx, p.chat.Name(), "reply")
		return "", fmt.Errorf("generate reply: %w", err)
	}
	return reply, nil
}

func (p *pipeline) synthesize(ctx context.Context, text, language string) ([]byte, error) {
	voiceID := p.profile.VoiceID
	if voiceID == "" {
		voiceID = tts.DefaultVoice(language)
	}
	start := time.Now()
	pcm, err := p.tts.Synthesize(ctx, text, language, voiceID)
	p.metrics.SynthesizeDuration.Record(ctx, time.Since(start).Seconds(),
		metric.WithAttributes(attribute.String("provider", p.tts.Name())))
	if err != nil {
		if errors.Is(err, tts.ErrNoAudio) {
			return nil, err
		}
		p.metrics.RecordProviderError(ctx, p.tts.Name(), "synthesize")
		return nil, fmt.Errorf("synthesize reply: %w", err)
	}
	return pcm, nil
}
