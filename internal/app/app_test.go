package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/pulpa-work/pulpa/internal/config"
	audiomock "github.com/pulpa-work/pulpa/pkg/audio/mock"
	chatmock "github.com/pulpa-work/pulpa/pkg/provider/chat/mock"
	sttmock "github.com/pulpa-work/pulpa/pkg/provider/stt/mock"
	ttsmock "github.com/pulpa-work/pulpa/pkg/provider/tts/mock"
	"github.com/pulpa-work/pulpa/pkg/store"
)

func testConfig() *config.Config {
	cfg := &config.Config{}
	config.ApplyDefaults(cfg)
	return cfg
}

func testProviders() *Providers {
	return &Providers{
		STT:    &sttmock.Provider{Transcript: "hola"},
		Chat:   &chatmock.Provider{Response: "¿y luego?"},
		TTS:    &ttsmock.Provider{Audio: []byte{1, 2}},
		Device: &audiomock.Device{},
		Sink:   &audiomock.Sink{},
	}
}

func TestNewRejectsMissingProviders(t *testing.T) {
	if _, err := New(context.Background(), testConfig(), nil); err == nil {
		t.Error("expected error for nil providers")
	}

	p := testProviders()
	p.Chat = nil
	if _, err := New(context.Background(), testConfig(), p); err == nil {
		t.Error("expected error for missing chat provider")
	}
}

func TestNewFallsBackToMemStore(t *testing.T) {
	a, err := New(context.Background(), testConfig(), testProviders())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer a.Shutdown(context.Background())

	if _, ok := a.store.(*store.MemStore); !ok {
		t.Errorf("store = %T, want *store.MemStore without a DSN", a.store)
	}
	if a.ctrl == nil {
		t.Error("controller not built")
	}
}

func TestProbeStoreTreatsNotFoundAsHealthy(t *testing.T) {
	a, err := New(context.Background(), testConfig(), testProviders())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer a.Shutdown(context.Background())

	if err := a.probeStore(context.Background()); err != nil {
		t.Errorf("probeStore on empty store: %v", err)
	}
}

func TestRunStopsOnContextCancel(t *testing.T) {
	a, err := New(context.Background(), testConfig(), testProviders())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer a.Shutdown(context.Background())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Run returned %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop after cancel")
	}
}

func TestShutdownIsIdempotent(t *testing.T) {
	a, err := New(context.Background(), testConfig(), testProviders())
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if err := a.Shutdown(context.Background()); err != nil {
		t.Fatalf("first Shutdown: %v", err)
	}
	if err := a.Shutdown(context.Background()); err != nil {
		t.Fatalf("second Shutdown: %v", err)
	}
}
