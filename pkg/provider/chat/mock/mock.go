// Package mock provides a test double for the chat.Provider interface.
//
// Use Provider in unit tests to verify the requests the pipeline builds and
// to feed controlled replies without a live chat backend.
package mock

import (
	"context"
	"sync"

	"github.com/pulpa-work/pulpa/pkg/provider/chat"
)

// ReplyCall records a single invocation of Reply.
type ReplyCall struct {
	// Ctx is the context passed to Reply.
	Ctx context.Context
	// Req is the Request passed to Reply.
	Req chat.Request
}

// Provider is a mock implementation of chat.Provider.
// Zero values for response fields cause methods to return zero values and nil
// errors. Set Err fields to inject errors.
type Provider struct {
	mu sync.Mutex

	// Response is returned by Reply. When Responses is non-empty it takes
	// precedence and each call consumes the next entry, repeating the last
	// one once exhausted.
	Response string

	// Responses is an optional per-call sequence of replies.
	Responses []string

	// ReplyErr, if non-nil, is returned as the error from Reply.
	ReplyErr error

	// ProviderName is returned by Name. Defaults to "mock".
	ProviderName string

	// ReplyCalls records every invocation of Reply in order.
	ReplyCalls []ReplyCall
}

// Reply records the call and returns the configured response.
func (p *Provider) Reply(ctx context.Context, req chat.Request) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := len(p.ReplyCalls)
	p.ReplyCalls = append(p.ReplyCalls, ReplyCall{Ctx: ctx, Req: req})
	if p.ReplyErr != nil {
		return "", p.ReplyErr
	}
	if len(p.Responses) > 0 {
		if n >= len(p.Responses) {
			n = len(p.Responses) - 1
		}
		return p.Responses[n], nil
	}
	return p.Response, nil
}

// Name returns ProviderName, or "mock" when unset.
func (p *Provider) Name() string {
	if p.ProviderName == "" {
		return "mock"
	}
	return p.ProviderName
}

// Reset clears all recorded calls. Thread-safe.
func (p *Provider) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.ReplyCalls = nil
}

var _ chat.Provider = (*Provider)(nil)
