// Package ai adapts chat-completion providers into the scoring oracle,
// resume screener and question generator used by the pipeline.
package ai

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/fairyhunter13/softrate-ats/internal/domain"
)

// ChatClient sends one system+user prompt and returns the model's reply,
// expected to be a JSON object.
type ChatClient interface {
	ChatJSON(ctx context.Context, systemPrompt, userPrompt string, maxTokens int) (string, error)
}

// Limiter is satisfied by the shared Redis token bucket.
type Limiter interface {
	Allow(ctx context.Context, key string, cost int64) (bool, time.Duration, error)
}

// LimitedClient refuses calls once the provider's shared budget is spent.
type LimitedClient struct {
	Next    ChatClient
	Limiter Limiter
	Key     string
}

// ChatJSON implements ChatClient.
func (c LimitedClient) ChatJSON(ctx context.Context, systemPrompt, userPrompt string, maxTokens int) (string, error) {
	if c.Limiter != nil {
		ok, retryAfter, err := c.Limiter.Allow(ctx, c.Key, 1)
		if err != nil {
			slog.Warn("llm rate limiter unavailable", slog.String("key", c.Key), slog.Any("error", err))
		}
		if !ok {
			return "", fmt.Errorf("%w: %s budget exhausted, retry after %s", domain.ErrUpstreamRateLimit, c.Key, retryAfter.Round(time.Second))
		}
	}
	return c.Next.ChatJSON(ctx, systemPrompt, userPrompt, maxTokens)
}
