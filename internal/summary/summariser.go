// Package summary condenses a finished journaling conversation into the
// single first-person line stored on the conversation row.
package summary

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/pulpa-work/pulpa/pkg/provider/chat"
	"github.com/pulpa-work/pulpa/pkg/store"
)

// summaryPrompt asks for one concise, revealing sentence in the user's own
// voice.
const summaryPrompt = "Resume la siguiente conversación de autorreflexión en una única frase " +
	"concisa e reveladora que capture la esencia del descubrimiento del usuario. " +
	"El resumen debe ser en primera persona, desde la perspectiva del usuario."

// maxSummaryTokens caps the summary length; anything past one sentence is
// waste.
const maxSummaryTokens = 100

// Speaker labels used when flattening the conversation for the prompt.
const (
	speakerUser  = "Usuario"
	speakerGuide = "Guía"
)

// Summariser produces conversation summaries through a chat provider. It
// implements store.Summariser.
type Summariser struct {
	chat   chat.Provider
	logger *slog.Logger
}

var _ store.Summariser = (*Summariser)(nil)

// New returns a Summariser backed by the given chat provider.
func New(provider chat.Provider, logger *slog.Logger) *Summariser {
	if logger == nil {
		logger = slog.Default()
	}
	return &Summariser{chat: provider, logger: logger}
}

// Summarise flattens the turns into labelled lines and asks the chat
// provider for a one-sentence first-person summary in the given language.
func (s *Summariser) Summarise(ctx context.Context, turns []store.Turn, language string) (string, error) {
	if len(turns) == 0 {
		return "", errors.New("summarise: conversation has no turns")
	}

	text := flatten(turns)
	reply, err := s.chat.Reply(ctx, chat.Request{
		SystemPrompt: summaryPrompt,
		UserMessage:  "Conversación: " + text,
		Language:     language,
		MaxTokens:    maxSummaryTokens,
	})
	if err != nil {
		return "", fmt.Errorf("summarise conversation: %w", err)
	}
	reply = strings.TrimSpace(reply)
	if reply == "" {
		return "", errors.New("summarise: provider returned an empty summary")
	}
	s.logger.Debug("conversation summarised", "turns", len(turns))
	return reply, nil
}

// flatten renders the turns oldest first, one "Speaker: text" line each.
func flatten(turns []store.Turn) string {
	var b strings.Builder
	for i, t := range turns {
		if i > 0 {
			b.WriteByte('\n')
		}
		label := speakerGuide
		if t.Role == store.RoleUser {
			label = speakerUser
		}
		b.WriteString(label)
		b.WriteString(": ")
		b.WriteString(t.Text)
	}
	return b.String()
}
