package journal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/pulpa-work/pulpa/internal/capture"
	"github.com/pulpa-work/pulpa/internal/observe"
	"github.com/pulpa-work/pulpa/pkg/audio"
	"github.com/pulpa-work/pulpa/pkg/provider/chat"
	"github.com/pulpa-work/pulpa/pkg/provider/stt"
	"github.com/pulpa-work/pulpa/pkg/provider/tts"
	"github.com/pulpa-work/pulpa/pkg/store"
)

const (
	// rerecordDelay separates an interrupt from the follow-up recording so
	// playback teardown settles first.
	rerecordDelay = 100 * time.Millisecond

	// nothingHeardResetDelay keeps the nothing-heard status visible before
	// the session returns to ready on its own.
	nothingHeardResetDelay = 3 * time.Second

	// errorResetDelay is slightly longer so pipeline errors can be read.
	errorResetDelay = 5 * time.Second

	// savedResetDelay shows the session-saved confirmation before ready.
	savedResetDelay = 3 * time.Second
)

// Config wires a Controller.
type Config struct {
	Device audio.Device
	Sink   audio.Sink

	// Capture carries the recorder tuning. The callback fields are owned by
	// the controller and must be left nil.
	Capture capture.Config

	STT        stt.Provider
	Chat       chat.Provider
	TTS        tts.Provider
	Store      store.Store
	Summariser store.Summariser

	Profile Profile

	// OnState, if set, receives every state snapshot, in order. It must not
	// call back into the controller.
	OnState func(State)

	Logger  *slog.Logger
	Metrics *observe.Metrics
}

// Controller owns one journaling session end to end: it requests microphone
// access, dispatches the main action by priority, hands finished recordings
// to the turn pipeline and finishes the session with a stored summary.
type Controller struct {
	cfg     Config
	logger  *slog.Logger
	metrics *observe.Metrics

	state    *stateStore
	session  *Session
	recorder *capture.Recorder
	playback *playbackController
	pipeline *pipeline

	// ctxMu guards runCtx alone so callbacks fired from inside a dispatch
	// (the recorder invokes them synchronously from Stop) never touch c.mu.
	ctxMu  sync.Mutex
	runCtx context.Context

	mu            sync.Mutex
	resetTimer    *time.Timer
	rerecordTimer *time.Timer
	closed        bool

	closeOnce sync.Once
}

// NewController builds the controller and its recorder, playback and
// pipeline plumbing. Call Init before dispatching actions.
func NewController(cfg Config) (*Controller, error) {
	switch {
	case cfg.Device == nil:
		return nil, errors.New("journal: capture device is required")
	case cfg.Sink == nil:
		return nil, errors.New("journal: playback sink is required")
	case cfg.STT == nil || cfg.Chat == nil || cfg.TTS == nil:
		return nil, errors.New("journal: stt, chat and tts providers are required")
	case cfg.Store == nil:
		return nil, errors.New("journal: store is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	metrics := cfg.Metrics
	if metrics == nil {
		metrics = observe.DefaultMetrics()
	}

	c := &Controller{
		cfg:     cfg,
		logger:  logger,
		metrics: metrics,
		session: NewSession(),
		runCtx:  context.Background(),
	}
	c.state = newStateStore(State{Status: StatusInitial}, cfg.OnState)

	c.playback = newPlaybackController(cfg.Sink, logger, metrics)
	c.playback.onComplete = c.resetToReady
	c.playback.onError = func(err error) { c.failWith(fmt.Errorf("play reply: %w", err)) }

	rcfg := cfg.Capture
	rcfg.Logger = logger
	rcfg.Metrics = metrics
	rcfg.OnAudio = c.handleAudio
	rcfg.OnStop = c.handleRecordingStopped
	rcfg.OnLevel = c.handleLevel
	rcfg.OnDuration = c.handleDuration
	c.recorder = capture.NewRecorder(cfg.Device, rcfg)

	c.pipeline = &pipeline{
		stt:      cfg.STT,
		chat:     cfg.Chat,
		tts:      cfg.TTS,
		store:    cfg.Store,
		playback: c.playback,
		state:    c.state,
		profile:  cfg.Profile,
		logger:   logger,
		metrics:  metrics,
	}
	return c, nil
}

// Init requests microphone access up front so the first tap can record
// immediately. ctx also becomes the base context for pipeline work started
// by later actions.
func (c *Controller) Init(ctx context.Context) {
	c.ctxMu.Lock()
	c.runCtx = ctx
	c.ctxMu.Unlock()

	if err := c.recorder.RequestPermission(ctx); err != nil {
		c.logger.Warn("microphone permission request failed", "error", err)
		c.state.Update(func(s *State) {
			s.HasPermission = false
			s.PermissionDenied = true
			s.Status = StatusDeniedDetail
		})
		return
	}
	c.state.Update(func(s *State) {
		s.HasPermission = true
		s.PermissionDenied = false
		s.Status = StatusInitial
	})
}

// State returns the current session snapshot.
func (c *Controller) State() State {
	return c.state.Snapshot()
}

// Session exposes the in-memory conversation, for history views.
func (c *Controller) Session() *Session {
	return c.session
}

// MainAction dispatches the single user control by priority: dismiss a shown
// error, interrupt playback (recording again right after when permission is
// held), stop and process the active recording, start a new one, request
// microphone access, or do nothing while a turn is mid-pipeline.
func (c *Controller) MainAction() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}

	st := c.state.Snapshot()
	switch {
	case st.Error != "":
		c.logger.Debug("dismissing error", "error", st.Error)
		c.cancelResetLocked()
		c.state.Update(func(s *State) { s.resetTransient() })

	case st.IsPlayingAudio:
		c.playback.Interrupt()
		c.state.Update(func(s *State) { s.resetTransient() })
		if st.HasPermission {
			c.rerecordTimer = time.AfterFunc(rerecordDelay, func() {
				c.mu.Lock()
				defer c.mu.Unlock()
				if c.closed {
					return
				}
				c.startRecordingLocked()
			})
		}

	case st.IsRecording:
		c.recorder.Stop(true)

	case st.HasPermission && !st.Busy():
		c.startRecordingLocked()

	case !st.HasPermission:
		// Starting doubles as the permission request; denial lands in the
		// same error surface either way.
		c.startRecordingLocked()

	default:
		c.logger.Debug("main action ignored, session busy")
	}
}

func (c *Controller) context() context.Context {
	c.ctxMu.Lock()
	defer c.ctxMu.Unlock()
	return c.runCtx
}

// startRecordingLocked needs c.mu held.
func (c *Controller) startRecordingLocked() {
	c.cancelResetLocked()
	err := c.recorder.Start(c.context())
	switch {
	case err == nil:
		c.state.Update(func(s *State) {
			s.resetTransient()
			s.HasPermission = true
			s.PermissionDenied = false
			s.IsRecording = true
			s.Status = StatusListening
		})
	case errors.Is(err, audio.ErrAccessDenied):
		c.logger.Warn("microphone access denied")
		c.state.Update(func(s *State) {
			s.HasPermission = false
			s.PermissionDenied = true
			s.Error = "Microphone permission denied."
			s.Status = StatusDeniedDetail
		})
	case errors.Is(err, capture.ErrAlreadyRecording):
		// Dispatch already saw IsRecording; nothing to do.
	default:
		c.failWithLocked(fmt.Errorf("start recording: %w", err))
	}
}

// handleRecordingStopped runs on every recorder stop, before any audio
// delivery. It clears the live-recording fields; handleAudio immediately
// flips the state into processing when a blob follows.
func (c *Controller) handleRecordingStopped() {
	c.state.Update(func(s *State) {
		s.IsRecording = false
		s.AudioLevel = 0
		s.RecordingDuration = 0
		if s.Error == "" && !s.Busy() && !s.IsPlayingAudio {
			if s.HasPermission {
				s.Status = StatusReady
			} else {
				s.Status = StatusNoPermission
			}
		}
	})
}

// handleAudio receives the finished WAV blob and runs the turn pipeline off
// the recorder's goroutine.
func (c *Controller) handleAudio(wav []byte) {
	ctx := c.context()

	go func() {
		outcome, err := c.pipeline.ProcessTurn(ctx, wav, c.session)
		if err != nil {
			c.failWith(err)
			return
		}
		if outcome == TurnEmpty {
			c.scheduleReset(nothingHeardResetDelay)
		}
		// A completed turn ends through the playback hooks.
	}()
}

func (c *Controller) handleLevel(level float64) {
	c.state.Update(func(s *State) {
		if s.IsRecording {
			s.AudioLevel = level
		}
	})
}

func (c *Controller) handleDuration(elapsed time.Duration) {
	c.state.Update(func(s *State) {
		if s.IsRecording {
			s.RecordingDuration = elapsed
		}
	})
}

// FinishSession summarises and closes the active conversation. The session
// is cleared even when summarisation fails so the next sitting starts
// fresh; the error still surfaces to the caller.
func (c *Controller) FinishSession(ctx context.Context) error {
	convID := c.session.ConversationID()
	if convID == uuid.Nil {
		c.logger.Debug("no active session to finish")
		return nil
	}

	c.state.Update(func(s *State) {
		s.IsSummarising = true
		s.Status = StatusSaving
	})
	defer c.state.Update(func(s *State) { s.IsSummarising = false })

	err := c.summarise(ctx, convID)
	c.session.Clear()

	if err != nil {
		c.logger.Error("finishing session", "error", err, "conversation_id", convID)
		c.failWith(fmt.Errorf("finish session: %w", err))
		return err
	}

	c.logger.Info("session finished", "conversation_id", convID)
	c.state.Update(func(s *State) { s.Status = StatusSaved })
	c.scheduleReset(savedResetDelay)
	return nil
}

func (c *Controller) summarise(ctx context.Context, convID uuid.UUID) error {
	if c.cfg.Summariser == nil {
		return nil
	}
	conv, err := c.cfg.Store.Conversation(ctx, convID)
	if err != nil {
		return fmt.Errorf("load conversation: %w", err)
	}
	if len(conv.Turns) == 0 {
		return nil
	}
	summary, err := c.cfg.Summariser.Summarise(ctx, conv.Turns, c.cfg.Profile.Language)
	if err != nil {
		return fmt.Errorf("summarise conversation: %w", err)
	}
	if err := c.cfg.Store.SetSummary(ctx, convID, summary); err != nil {
		return fmt.Errorf("save summary: %w", err)
	}
	return nil
}

// SignOut drops the session without summarising and silences any active
// recording or playback.
func (c *Controller) SignOut() {
	c.mu.Lock()
	c.cancelResetLocked()
	c.mu.Unlock()

	c.recorder.Stop(false)
	c.playback.Interrupt()
	c.session.Clear()
	c.state.Update(func(s *State) { s.resetTransient() })
	c.logger.Info("signed out, session cleared")
}

// Close tears the controller down. Safe to call more than once.
func (c *Controller) Close() {
	c.closeOnce.Do(func() {
		c.mu.Lock()
		c.closed = true
		c.cancelResetLocked()
		c.mu.Unlock()

		c.recorder.Stop(false)
		c.playback.Interrupt()
	})
}

// failWith clears the pipeline flags, surfaces the error and schedules the
// delayed return to ready.
func (c *Controller) failWith(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failWithLocked(err)
}

func (c *Controller) failWithLocked(err error) {
	c.logger.Error("turn failed", "error", err)
	c.state.Update(func(s *State) {
		s.IsRecording = false
		s.IsProcessing = false
		s.IsAIThinking = false
		s.IsGeneratingAudio = false
		s.IsPlayingAudio = false
		s.Error = "Error: " + err.Error()
		if s.HasPermission {
			s.Status = StatusReady
		} else {
			s.Status = StatusNoPermission
		}
	})
	c.scheduleResetLocked(errorResetDelay)
}

func (c *Controller) resetToReady() {
	c.mu.Lock()
	c.cancelResetLocked()
	c.mu.Unlock()
	c.state.Update(func(s *State) { s.resetTransient() })
}

func (c *Controller) scheduleReset(after time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.scheduleResetLocked(after)
}

// scheduleResetLocked needs c.mu held. A newer schedule supersedes a
// pending one.
func (c *Controller) scheduleResetLocked(after time.Duration) {
	if c.closed {
		return
	}
	if c.resetTimer != nil {
		c.resetTimer.Stop()
	}
	c.resetTimer = time.AfterFunc(after, func() {
		c.state.Update(func(s *State) { s.resetTransient() })
	})
}

// cancelResetLocked needs c.mu held.
func (c *Controller) cancelResetLocked() {
	if c.resetTimer != nil {
		c.resetTimer.Stop()
		c.resetTimer = nil
	}
	if c.rerecordTimer != nil {
		c.rerecordTimer.Stop()
		c.rerecordTimer = nil
	}
}
