package summary_test

import (
	"context"
	"strings"
	"testing"

	"github.com/pulpa-work/pulpa/internal/summary"
	chatmock "github.com/pulpa-work/pulpa/pkg/provider/chat/mock"
	"github.com/pulpa-work/pulpa/pkg/store"
)

func turnsFixture() []store.Turn {
	return []store.Turn{
		{Role: store.RoleUser, Text: "Hoy me costó concentrarme."},
		{Role: store.RoleModel, Text: "¿Qué crees que te distrajo?"},
		{Role: store.RoleUser, Text: "Creo que el teléfono."},
	}
}

func TestSummariseFlattensConversationWithSpeakerLabels(t *testing.T) {
	t.Parallel()

	provider := &chatmock.Provider{Response: "Descubrí que el teléfono rompe mi concentración."}
	s := summary.New(provider, nil)

	got, err := s.Summarise(context.Background(), turnsFixture(), "es-AR")
	if err != nil {
		t.Fatalf("Summarise: %v", err)
	}
	if got != "Descubrí que el teléfono rompe mi concentración." {
		t.Errorf("summary = %q", got)
	}

	if len(provider.ReplyCalls) != 1 {
		t.Fatalf("ReplyCalls = %d, want 1", len(provider.ReplyCalls))
	}
	req := provider.ReplyCalls[0].Req
	if req.SystemPrompt == "" {
		t.Error("expected a summarisation system prompt")
	}
	if req.MaxTokens != 100 {
		t.Errorf("MaxTokens = %d, want 100", req.MaxTokens)
	}
	if req.Language != "es-AR" {
		t.Errorf("Language = %q, want es-AR", req.Language)
	}
	for _, line := range []string{
		"Usuario: Hoy me costó concentrarme.",
		"Guía: ¿Qué crees que te distrajo?",
		"Usuario: Creo que el teléfono.",
	} {
		if !strings.Contains(req.UserMessage, line) {
			t.Errorf("prompt missing line %q\nprompt: %s", line, req.UserMessage)
		}
	}
}

func TestSummariseRejectsEmptyConversation(t *testing.T) {
	t.Parallel()

	s := summary.New(&chatmock.Provider{Response: "x"}, nil)
	if _, err := s.Summarise(context.Background(), nil, "es-AR"); err == nil {
		t.Fatal("expected error for empty conversation")
	}
}

func TestSummariseRejectsBlankProviderReply(t *testing.T) {
	t.Parallel()

	s := summary.New(&chatmock.Provider{Response: "   "}, nil)
	if _, err := s.Summarise(context.Background(), turnsFixture(), "es-AR"); err == nil {
		t.Fatal("expected error for blank summary")
	}
}
