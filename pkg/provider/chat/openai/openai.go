// Package openai provides a chat provider backed by the OpenAI API, carrying
// the reflective-interviewer persona used for journaling replies.
package openai

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	oai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/packages/param"
	"github.com/openai/openai-go/shared"

	"github.com/pulpa-work/pulpa/pkg/provider/chat"
)

// basePrompt is the reflective-interviewer persona used when the request does
// not carry its own system prompt.
const basePrompt = `You are a wise, empathetic AI interviewer inspired by Stoic philosophy. Your role is to guide users through deep self-reflection about their daily experiences, emotions, and learnings. Your interviewing style is to ask open-ended, probing questions, maintain context, and help users discover deeper insights. Use a calm, empathetic, and subtly Stoic-inspired questioning approach. Keep your responses conversational, warm, and focused on one thoughtful question at a time.`

// Canned replies for refused or empty completions, matching the language of
// the session.
const (
	safetyReplyES = "Mi política de seguridad me impide responder a eso. ¿Podemos hablar de otra cosa?"
	safetyReplyEN = "My safety policy prevents me from responding to that. Can we talk about something else?"
	emptyReplyES  = "Lo siento, no pude generar una respuesta. Por favor, intenta de nuevo."
	emptyReplyEN  = "Sorry, I could not generate a response. Please try again."
)

// Provider implements chat.Provider using the OpenAI chat completions API.
type Provider struct {
	client oai.Client
	model  string
}

// config holds optional configuration for the provider.
type config struct {
	baseURL string
	timeout time.Duration
}

// Option is a functional option for Provider.
type Option func(*config)

// WithBaseURL overrides the default OpenAI API base URL.
func WithBaseURL(url string) Option {
	return func(c *config) {
		c.baseURL = url
	}
}

// WithTimeout sets a per-request HTTP timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *config) {
		c.timeout = d
	}
}

// New constructs a new OpenAI chat Provider.
func New(apiKey string, model string, opts ...Option) (*Provider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("openai: apiKey must not be empty")
	}
	if model == "" {
		return nil, fmt.Errorf("openai: model must not be empty")
	}

	cfg := &config{}
	for _, o := range opts {
		o(cfg)
	}

	reqOpts := []option.RequestOption{
		option.WithAPIKey(apiKey),
	}
	if cfg.baseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(cfg.baseURL))
	}
	if cfg.timeout > 0 {
		reqOpts = append(reqOpts, option.WithHTTPClient(&http.Client{
			Timeout: cfg.timeout,
		}))
	}

	client := oai.NewClient(reqOpts...)
	return &Provider{client: client, model: model}, nil
}

// Reply implements chat.Provider.
func (p *Provider) Reply(ctx context.Context, req chat.Request) (string, error) {
	messages := []oai.ChatCompletionMessageParamUnion{
		oai.SystemMessage(systemPrompt(req)),
	}
	for _, m := range req.History {
		if strings.TrimSpace(m.Content) == "" {
			continue
		}
		switch m.Role {
		case chat.RoleModel:
			messages = append(messages, oai.AssistantMessage(m.Content))
		default:
			messages = append(messages, oai.UserMessage(m.Content))
		}
	}
	if req.UserMessage != "" {
		messages = append(messages, oai.UserMessage(req.UserMessage))
	}

	params := oai.ChatCompletionNewParams{
		Model:       shared.ChatModel(p.model),
		Messages:    messages,
		Temperature: param.NewOpt(0.7),
	}
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 1024
	}
	params.MaxCompletionTokens = param.NewOpt(int64(maxTokens))

	resp, err := p.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("openai: chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return emptyReply(req.Language), nil
	}

	choice := resp.Choices[0]
	if choice.Message.Refusal != "" {
		return safetyReply(req.Language), nil
	}
	content := strings.TrimSpace(choice.Message.Content)
	if content == "" {
		return emptyReply(req.Language), nil
	}
	return content, nil
}

// Name implements chat.Provider.
func (p *Provider) Name() string {
	return "openai-chat"
}

// systemPrompt assembles the persona, the profile context and the language
// directive for one request.
func systemPrompt(req chat.Request) string {
	if req.SystemPrompt != "" {
		return req.SystemPrompt
	}

	var b strings.Builder
	b.WriteString(basePrompt)

	name := req.Profile.FullName
	if name == "" {
		name = "the user"
	}
	role := req.Profile.Role
	if role == "" {
		role = "not specified"
	}
	fmt.Fprintf(&b, "\n\nAbout the user: their name is %s and their role is %s.", name, role)
	if req.Profile.Goals != "" {
		fmt.Fprintf(&b, " Their goals: %s.", req.Profile.Goals)
	}
	b.WriteString(" Use this to contextualize the conversation, but do not mention it unless strictly relevant.")

	if strings.HasPrefix(req.Language, "es") {
		b.WriteString("\n\nCRITICAL: Respond ONLY in Spanish (Español). Use natural, conversational Spanish appropriate for Argentina/Latin America.")
	} else {
		b.WriteString("\n\nCRITICAL: Respond ONLY in English. Use natural, conversational English.")
	}
	return b.String()
}

func safetyReply(language string) string {
	if strings.HasPrefix(language, "es") {
		return safetyReplyES
	}
	return safetyReplyEN
}

func emptyReply(language string) string {
	if strings.HasPrefix(language, "es") {
		return emptyReplyES
	}
	return emptyReplyEN
}

var _ chat.Provider = (*Provider)(nil)
