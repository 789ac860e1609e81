// Package deepgram provides an STT provider backed by the Deepgram
// pre-recorded transcription API.
package deepgram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pulpa-work/pulpa/pkg/provider/stt"
)

const defaultBaseURL = "https://api.deepgram.com/v1/listen"

// Provider implements stt.Provider using Deepgram's synchronous endpoint.
type Provider struct {
	apiKey  string
	model   string
	baseURL string
	client  *http.Client
}

// config holds optional configuration for the provider.
type config struct {
	baseURL string
	timeout time.Duration
	client  *http.Client
}

// Option is a functional option for Provider.
type Option func(*config)

// WithBaseURL overrides the default Deepgram API endpoint.
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

// WithHTTPClient replaces the HTTP client, overriding WithTimeout.
func WithHTTPClient(client *http.Client) Option {
	return func(c *config) {
		c.client = client
	}
}

// New constructs a new Deepgram Provider.
func New(apiKey string, model string, opts ...Option) (*Provider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("deepgram: apiKey must not be empty")
	}
	if model == "" {
		model = "nova-2"
	}

	cfg := &config{baseURL: defaultBaseURL, timeout: 30 * time.Second}
	for _, o := range opts {
		o(cfg)
	}
	client := cfg.client
	if client == nil {
		client = &http.Client{Timeout: cfg.timeout}
	}

	return &Provider{
		apiKey:  apiKey,
		model:   model,
		baseURL: cfg.baseURL,
		client:  client,
	}, nil
}

// response mirrors the subset of the Deepgram result payload we consume.
type response struct {
	Results struct {
		Channels []struct {
			Alternatives []struct {
				Transcript string `json:"transcript"`
			} `json:"alternatives"`
		} `json:"channels"`
	} `json:"results"`
}

// Transcribe implements stt.Provider.
func (p *Provider) Transcribe(ctx context.Context, wav []byte, language string) (string, error) {
	if len(wav) == 0 {
		return "", fmt.Errorf("deepgram: empty audio payload")
	}

	q := url.Values{}
	q.Set("model", p.model)
	q.Set("smart_format", "true")
	if language != "" {
		q.Set("language", stt.BaseLanguage(language))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"?"+q.Encode(), bytes.NewReader(wav))
	if err != nil {
		return "", fmt.Errorf("deepgram: build request: %w", err)
	}
	req.Header.Set("Authorization", "Token "+p.apiKey)
	req.Header.Set("Content-Type", "audio/wav")

	resp, err := p.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("deepgram: request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("deepgram: unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var out response
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("deepgram: decode response: %w", err)
	}
	if len(out.Results.Channels) == 0 || len(out.Results.Channels[0].Alternatives) == 0 {
		return "", stt.ErrNoSpeech
	}

	text := strings.TrimSpace(out.Results.Channels[0].Alternatives[0].Transcript)
	if text == "" {
		return "", stt.ErrNoSpeech
	}
	return text, nil
}

// Name implements stt.Provider.
func (p *Provider) Name() string {
	return "deepgram"
}

var _ stt.Provider = (*Provider)(nil)
