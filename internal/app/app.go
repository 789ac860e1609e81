// Package app wires the journaling client together: providers, conversation
// store, session controller and the diagnostics HTTP endpoint.
//
// The App owns the full lifecycle: New connects the subsystems, Run blocks
// until the context is cancelled, and Shutdown tears everything down in
// order. Inject test doubles via the Option functions; anything not injected
// is built from the config.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/pulpa-work/pulpa/internal/capture"
	"github.com/pulpa-work/pulpa/internal/config"
	"github.com/pulpa-work/pulpa/internal/health"
	"github.com/pulpa-work/pulpa/internal/journal"
	"github.com/pulpa-work/pulpa/internal/observe"
	"github.com/pulpa-work/pulpa/internal/summary"
	"github.com/pulpa-work/pulpa/pkg/audio"
	"github.com/pulpa-work/pulpa/pkg/provider/chat"
	"github.com/pulpa-work/pulpa/pkg/provider/stt"
	"github.com/pulpa-work/pulpa/pkg/provider/tts"
	"github.com/pulpa-work/pulpa/pkg/store"
	"github.com/pulpa-work/pulpa/pkg/store/postgres"
)

// Providers holds the pipeline collaborators and audio endpoints built by
// main from the config.
type Providers struct {
	STT    stt.Provider
	Chat   chat.Provider
	TTS    tts.Provider
	Device audio.Device
	Sink   audio.Sink
}

// App owns the journaling client's subsystems.
type App struct {
	cfg       *config.Config
	providers *Providers

	store      store.Store
	summariser store.Summariser
	ctrl       *journal.Controller
	health     *health.Handler
	observe    *observe.Provider
	onState    func(journal.State)

	// closers run in order during Shutdown.
	closers  []func() error
	stopOnce sync.Once
}

// Option injects a subsystem instead of building it from config.
type Option func(*App)

// WithStore injects a conversation store.
func WithStore(s store.Store) Option {
	return func(a *App) { a.store = s }
}

// WithSummariser injects a summariser.
func WithSummariser(s store.Summariser) Option {
	return func(a *App) { a.summariser = s }
}

// WithStateListener registers a callback for session state snapshots.
func WithStateListener(fn func(journal.State)) Option {
	return func(a *App) { a.onState = fn }
}

// New wires all subsystems. The metrics provider is initialised first so
// every later component records against it.
func New(ctx context.Context, cfg *config.Config, providers *Providers, opts ...Option) (*App, error) {
	switch {
	case providers == nil:
		return nil, errors.New("app: providers are required")
	case providers.STT == nil || providers.Chat == nil || providers.TTS == nil:
		return nil, errors.New("app: stt, chat and tts providers are required")
	case providers.Device == nil || providers.Sink == nil:
		return nil, errors.New("app: audio device and sink are required")
	}

	a := &App{cfg: cfg, providers: providers}
	for _, o := range opts {
		o(a)
	}

	obs, err := observe.InitProvider(ctx, observe.ProviderConfig{})
	if err != nil {
		return nil, fmt.Errorf("app: init metrics provider: %w", err)
	}
	a.observe = obs
	a.closers = append(a.closers, func() error {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return obs.Shutdown(closeCtx)
	})

	if err := a.initStore(ctx); err != nil {
		return nil, fmt.Errorf("app: init store: %w", err)
	}

	if a.summariser == nil {
		a.summariser = summary.New(providers.Chat, slog.Default())
	}

	ctrl, err := journal.NewController(journal.Config{
		Device: providers.Device,
		Sink:   providers.Sink,
		Capture: capture.Config{
			SampleRate:       cfg.Audio.SampleRate,
			Channels:         cfg.Audio.Channels,
			TimeSlice:        cfg.Audio.TimeSlice(),
			SilenceThreshold: cfg.Audio.SilenceThreshold,
			SilenceDuration:  cfg.Audio.SilenceDuration(),
			MaxTurnDuration:  cfg.Audio.MaxTurnDuration(),
		},
		STT:        providers.STT,
		Chat:       providers.Chat,
		TTS:        providers.TTS,
		Store:      a.store,
		Summariser: a.summariser,
		Profile: journal.Profile{
			FullName: cfg.Profile.FullName,
			Role:     cfg.Profile.Role,
			Goals:    cfg.Profile.Goals,
			Language: cfg.Profile.PreferredLanguage,
			VoiceID:  cfg.Profile.PreferredVoiceID,
		},
		OnState: a.onState,
	})
	if err != nil {
		return nil, fmt.Errorf("app: build controller: %w", err)
	}
	a.ctrl = ctrl

	a.health = health.New(
		health.Checker{Name: "store", Probe: a.probeStore},
	)

	return a, nil
}

// initStore opens the configured store: Postgres when a DSN is set, the
// in-memory store otherwise.
func (a *App) initStore(ctx context.Context) error {
	if a.store != nil {
		return nil
	}
	if dsn := a.cfg.Store.PostgresDSN; dsn != "" {
		pg, err := postgres.New(ctx, dsn)
		if err != nil {
			return err
		}
		a.store = pg
		slog.Info("using postgres conversation store")
	} else {
		a.store = store.NewMemStore()
		slog.Warn("no postgres_dsn configured, conversations will not survive the process")
	}
	a.closers = append(a.closers, a.store.Close)
	return nil
}

// probeStore checks the store with a lookup that is expected to miss. Any
// answer other than ErrNotFound means the backend is unreachable.
func (a *App) probeStore(ctx context.Context) error {
	_, err := a.store.Conversation(ctx, uuid.New())
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return err
	}
	return nil
}

// Controller exposes the session controller for the interactive front end.
func (a *App) Controller() *journal.Controller {
	return a.ctrl
}

// Run requests microphone access and serves the diagnostics endpoint until
// ctx is cancelled. With no metrics_addr configured it just blocks on ctx.
func (a *App) Run(ctx context.Context) error {
	a.ctrl.Init(ctx)

	addr := a.cfg.Client.MetricsAddr
	if addr == "" {
		<-ctx.Done()
		return ctx.Err()
	}

	mux := http.NewServeMux()
	a.health.Register(mux)
	mux.Handle("GET /metrics", promhttp.HandlerFor(a.observe.Registry, promhttp.HandlerOpts{}))

	server := &http.Server{Addr: addr, Handler: mux}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("diagnostics endpoint listening", "addr", addr)
		if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("diagnostics server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(closeCtx); err != nil {
			slog.Warn("diagnostics server shutdown", "error", err)
		}
		return gctx.Err()
	})
	return g.Wait()
}

// Shutdown stops the controller and runs the closers in order. It respects
// the context deadline; remaining closers are skipped once it expires.
func (a *App) Shutdown(ctx context.Context) error {
	var shutdownErr error
	a.stopOnce.Do(func() {
		slog.Info("shutting down", "closers", len(a.closers))
		a.ctrl.Close()

		for i, closer := range a.closers {
			select {
			case <-ctx.Done():
				slog.Warn("shutdown deadline exceeded", "remaining", len(a.closers)-i)
				shutdownErr = ctx.Err()
				return
			default:
			}
			if err := closer(); err != nil {
				slog.Warn("closer error", "index", i, "error", err)
			}
		}
		slog.Info("shutdown complete")
	})
	return shutdownErr
}
