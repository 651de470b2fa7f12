// Package real implements the chat client backed by the OpenRouter
// chat-completions API.
package real

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	backoff "github.com/cenkalti/backoff/v4"
	"github.com/go-resty/resty/v2"
	"github.com/tidwall/gjson"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/fairyhunter13/softrate-ats/internal/adapter/observability"
	"github.com/fairyhunter13/softrate-ats/internal/config"
	"github.com/fairyhunter13/softrate-ats/internal/domain"
)

const provider = "openrouter"

// Client implements ai.ChatClient over OpenRouter.
type Client struct {
	cfg  config.Config
	http *resty.Client
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model          string            `json:"model"`
	Messages       []chatMessage     `json:"messages"`
	MaxTokens      int               `json:"max_tokens,omitempty"`
	Temperature    float64           `json:"temperature"`
	ResponseFormat map[string]string `json:"response_format,omitempty"`
}

// New constructs a client with a traced transport.
func New(cfg config.Config) *Client {
	hc := &http.Client{
		Timeout:   cfg.LLMRequestTimeout,
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	}
	rc := resty.NewWithClient(hc).
		SetBaseURL(cfg.OpenRouterBaseURL).
		SetAuthToken(cfg.OpenRouterAPIKey).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")
	if cfg.OpenRouterReferer != "" {
		rc.SetHeader("HTTP-Referer", cfg.OpenRouterReferer)
	}
	if cfg.OpenRouterTitle != "" {
		rc.SetHeader("X-Title", cfg.OpenRouterTitle)
	}
	return &Client{cfg: cfg, http: rc}
}

func (c *Client) getBackoffConfig() *backoff.ExponentialBackOff {
	expo := backoff.NewExponentialBackOff()
	maxElapsed, initial, maxInterval, mult := c.cfg.GetAIBackoffConfig()
	expo.MaxElapsedTime = maxElapsed
	expo.InitialInterval = initial
	expo.MaxInterval = maxInterval
	expo.Multiplier = mult
	return expo
}

// ChatJSON sends one system+user exchange and returns the reply content.
// 429 and 5xx are retried with exponential backoff; other 4xx are not.
func (c *Client) ChatJSON(ctx context.Context, systemPrompt, userPrompt string, maxTokens int) (string, error) {
	if c.cfg.OpenRouterAPIKey == "" {
		return "", fmt.Errorf("op=openrouter.chat: %w: missing api key", domain.ErrExternalService)
	}
	body := chatRequest{
		Model: c.cfg.OpenRouterModel,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userPrompt},
		},
		MaxTokens:      maxTokens,
		Temperature:    0.1,
		ResponseFormat: map[string]string{"type": "json_object"},
	}

	start := time.Now()
	var content string
	attempts := 0
	op := func() error {
		attempts++
		resp, err := c.http.R().SetContext(ctx).SetBody(body).Post("/chat/completions")
		if err != nil {
			if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
				return backoff.Permanent(fmt.Errorf("%w: %v", domain.ErrUpstreamTimeout, err))
			}
			return fmt.Errorf("%w: %v", domain.ErrExternalService, err)
		}
		status := resp.StatusCode()
		switch {
		case status == http.StatusTooManyRequests:
			slog.Warn("ai provider rate limited", slog.String("provider", provider), slog.Int("status", status), slog.String("x_request_id", resp.Header().Get("X-Request-Id")))
			return fmt.Errorf("%w: status %d", domain.ErrUpstreamRateLimit, status)
		case status >= 400 && status < 500:
			slog.Warn("ai provider 4xx", slog.String("provider", provider), slog.Int("status", status), slog.String("model", c.cfg.OpenRouterModel), slog.String("body", snippet(resp.Body(), 256)))
			return backoff.Permanent(fmt.Errorf("%w: status %d", domain.ErrExternalService, status))
		case status < 200 || status >= 300:
			slog.Error("ai provider non-2xx", slog.String("provider", provider), slog.Int("status", status), slog.String("model", c.cfg.OpenRouterModel))
			return fmt.Errorf("%w: status %d", domain.ErrExternalService, status)
		}
		raw := resp.Body()
		if msg := gjson.GetBytes(raw, "error.message"); msg.Exists() {
			return backoff.Permanent(fmt.Errorf("%w: %s", domain.ErrExternalService, msg.String()))
		}
		got := gjson.GetBytes(raw, "choices.0.message.content")
		if !got.Exists() || got.String() == "" {
			return fmt.Errorf("%w: empty completion", domain.ErrSchemaInvalid)
		}
		content = got.String()
		observability.RecordAITokens(provider,
			int(gjson.GetBytes(raw, "usage.prompt_tokens").Int()),
			int(gjson.GetBytes(raw, "usage.completion_tokens").Int()))
		return nil
	}

	err := backoff.Retry(op, backoff.WithContext(c.getBackoffConfig(), ctx))
	outcome := "success"
	if err != nil {
		outcome = "error"
		if ctxErr := ctx.Err(); ctxErr != nil && !errors.Is(err, domain.ErrUpstreamTimeout) {
			err = fmt.Errorf("%w: %v", domain.ErrUpstreamTimeout, ctxErr)
		}
	}
	observability.RecordAIRequest(provider, "chat", outcome, time.Since(start))
	if err != nil {
		slog.Error("ai chat failed", slog.String("provider", provider), slog.Int("attempts", attempts), slog.Any("error", err))
		return "", fmt.Errorf("op=openrouter.chat: %w", err)
	}
	return content, nil
}

func snippet(b []byte, n int) string {
	if len(b) > n {
		b = b[:n]
	}
	return string(b)
}
