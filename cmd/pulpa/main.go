// Command pulpa is the voice journaling client. It records reflections from
// the default microphone, transcribes them, replies through a chat model and
// speaks the reply back, persisting the conversation along the way.
//
// The terminal is the whole interface: Enter triggers the main action
// (start, stop, interrupt or dismiss depending on the session state), "f"
// finishes the session with a stored summary, and "q" or Ctrl+C quits.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/pulpa-work/pulpa/internal/app"
	"github.com/pulpa-work/pulpa/internal/config"
	"github.com/pulpa-work/pulpa/internal/journal"
	"github.com/pulpa-work/pulpa/internal/resilience"
	otoaudio "github.com/pulpa-work/pulpa/pkg/audio/oto"
	paaudio "github.com/pulpa-work/pulpa/pkg/audio/portaudio"
	"github.com/pulpa-work/pulpa/pkg/provider/chat"
	chatopenai "github.com/pulpa-work/pulpa/pkg/provider/chat/openai"
	"github.com/pulpa-work/pulpa/pkg/provider/stt"
	"github.com/pulpa-work/pulpa/pkg/provider/stt/deepgram"
	sttopenai "github.com/pulpa-work/pulpa/pkg/provider/stt/openai"
	"github.com/pulpa-work/pulpa/pkg/provider/tts"
	"github.com/pulpa-work/pulpa/pkg/provider/tts/elevenlabs"
)

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "config.yaml", "path to the YAML configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(os.Stderr, "pulpa: config file %q not found, copy configs/example.yaml to get started\n", *configPath)
		} else {
			fmt.Fprintf(os.Stderr, "pulpa: %v\n", err)
		}
		return 1
	}

	slog.SetDefault(newLogger(cfg.Client.LogLevel))
	slog.Info("pulpa starting",
		"config", *configPath,
		"language", cfg.Profile.PreferredLanguage,
		"log_level", cfg.Client.LogLevel,
	)

	providers, err := buildProviders(cfg)
	if err != nil {
		slog.Error("failed to build providers", "error", err)
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	application, err := app.New(ctx, cfg, providers, app.WithStateListener(printState()))
	if err != nil {
		slog.Error("failed to initialise application", "error", err)
		return 1
	}

	go readKeys(ctx, stop, application.Controller())

	fmt.Println("pulpa ready: Enter to record, f to finish the session, q to quit")
	if err := application.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("run error", "error", err)
		return 1
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := application.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "error", err)
		return 1
	}
	slog.Info("goodbye")
	return 0
}

// buildProviders constructs the pipeline collaborators and audio endpoints
// from the config.
func buildProviders(cfg *config.Config) (*app.Providers, error) {
	sttProv, err := buildSTT(cfg.Providers.STT)
	if err != nil {
		return nil, fmt.Errorf("stt provider: %w", err)
	}
	if fb := cfg.Providers.STTFallback; fb.Name != "" {
		secondary, err := buildSTT(fb)
		if err != nil {
			return nil, fmt.Errorf("stt fallback provider: %w", err)
		}
		group := resilience.NewSTTFallback(sttProv, resilience.FallbackConfig{})
		group.AddFallback(secondary)
		sttProv = group
	}

	chatProv, err := buildChat(cfg.Providers.Chat)
	if err != nil {
		return nil, fmt.Errorf("chat provider: %w", err)
	}

	ttsProv, err := buildTTS(cfg.Providers.TTS)
	if err != nil {
		return nil, fmt.Errorf("tts provider: %w", err)
	}

	device, err := paaudio.New()
	if err != nil {
		return nil, fmt.Errorf("open audio device: %w", err)
	}

	sink, err := otoaudio.New(ttsProv.Format())
	if err != nil {
		return nil, fmt.Errorf("open playback sink: %w", err)
	}

	return &app.Providers{
		STT:    sttProv,
		Chat:   chatProv,
		TTS:    ttsProv,
		Device: device,
		Sink:   sink,
	}, nil
}

func buildSTT(entry config.ProviderEntry) (stt.Provider, error) {
	switch entry.Name {
	case "openai-whisper":
		var opts []sttopenai.Option
		if entry.BaseURL != "" {
			opts = append(opts, sttopenai.WithBaseURL(entry.BaseURL))
		}
		return sttopenai.New(entry.APIKey, entry.Model, opts...)
	case "deepgram":
		var opts []deepgram.Option
		if entry.BaseURL != "" {
			opts = append(opts, deepgram.WithBaseURL(entry.BaseURL))
		}
		return deepgram.New(entry.APIKey, entry.Model, opts...)
	default:
		return nil, fmt.Errorf("unknown stt provider %q", entry.Name)
	}
}

func buildChat(entry config.ProviderEntry) (chat.Provider, error) {
	switch entry.Name {
	case "openai-chat":
		var opts []chatopenai.Option
		if entry.BaseURL != "" {
			opts = append(opts, chatopenai.WithBaseURL(entry.BaseURL))
		}
		return chatopenai.New(entry.APIKey, entry.Model, opts...)
	default:
		return nil, fmt.Errorf("unknown chat provider %q", entry.Name)
	}
}

func buildTTS(entry config.ProviderEntry) (tts.Provider, error) {
	switch entry.Name {
	case "elevenlabs":
		var opts []elevenlabs.Option
		if entry.Model != "" {
			opts = append(opts, elevenlabs.WithModel(entry.Model))
		}
		return elevenlabs.New(entry.APIKey, opts...)
	default:
		return nil, fmt.Errorf("unknown tts provider %q", entry.Name)
	}
}

// readKeys drives the controller from stdin until ctx ends.
func readKeys(ctx context.Context, quit func(), ctrl *journal.Controller) {
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return
		}
		switch strings.TrimSpace(scanner.Text()) {
		case "":
			ctrl.MainAction()
		case "f":
			if err := ctrl.FinishSession(ctx); err != nil {
				slog.Error("finish session", "error", err)
			}
		case "q":
			quit()
			return
		default:
			fmt.Println("Enter: record/stop, f: finish session, q: quit")
		}
	}
}

// printState writes each status change on its own line; level and duration
// updates are skipped to keep the terminal readable.
func printState() func(journal.State) {
	var last string
	return func(s journal.State) {
		line := s.Status
		if s.Error != "" {
			line = s.Error
		}
		if line == last {
			return
		}
		last = line
		fmt.Println(line)
	}
}

// newLogger builds the process logger for the configured level.
func newLogger(level config.LogLevel) *slog.Logger {
	var l slog.Level
	switch level {
	case config.LogDebug:
		l = slog.LevelDebug
	case config.LogWarn:
		l = slog.LevelWarn
	case config.LogError:
		l = slog.LevelError
	default:
		l = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: l}))
}
