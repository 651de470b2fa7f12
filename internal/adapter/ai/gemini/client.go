// Package gemini implements the chat client on the Google Gemini API.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	backoff "github.com/cenkalti/backoff/v4"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"google.golang.org/genai"

	"github.com/fairyhunter13/softrate-ats/internal/adapter/observability"
	"github.com/fairyhunter13/softrate-ats/internal/config"
	"github.com/fairyhunter13/softrate-ats/internal/domain"
)

const provider = "gemini"

// contentGenerator is the slice of *genai.Models the client uses.
type contentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, cfg *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// Client implements ai.ChatClient over Gemini.
type Client struct {
	cfg    config.Config
	models contentGenerator
}

// New builds a Gemini client. It fails without an API key.
func New(ctx context.Context, cfg config.Config) (*Client, error) {
	if cfg.GeminiAPIKey == "" {
		return nil, fmt.Errorf("op=gemini.new: %w: GEMINI_API_KEY not set", domain.ErrInvalidArgument)
	}
	gc, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.GeminiAPIKey,
		Backend: genai.BackendGeminiAPI,
		HTTPClient: &http.Client{
			Timeout:   cfg.LLMRequestTimeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("op=gemini.new: %w", err)
	}
	return &Client{cfg: cfg, models: gc.Models}, nil
}

// ChatJSON implements ai.ChatClient.
func (c *Client) ChatJSON(ctx context.Context, systemPrompt, userPrompt string, maxTokens int) (string, error) {
	genCfg := &genai.GenerateContentConfig{
		Temperature:       genai.Ptr(float32(0.1)),
		ResponseMIMEType:  "application/json",
		SystemInstruction: genai.NewContentFromText(systemPrompt, genai.RoleUser),
	}
	if maxTokens > 0 {
		genCfg.MaxOutputTokens = int32(maxTokens)
	}
	contents := []*genai.Content{genai.NewContentFromText(userPrompt, genai.RoleUser)}

	expo := backoff.NewExponentialBackOff()
	expo.MaxElapsedTime, expo.InitialInterval, expo.MaxInterval, expo.Multiplier = c.cfg.GetAIBackoffConfig()

	start := time.Now()
	var text string
	op := func() error {
		resp, err := c.models.GenerateContent(ctx, c.cfg.GeminiModel, contents, genCfg)
		if err != nil {
			return classify(err)
		}
		if resp == nil || len(resp.Candidates) == 0 {
			return fmt.Errorf("%w: no candidates", domain.ErrSchemaInvalid)
		}
		text = strings.TrimSpace(resp.Text())
		if text == "" {
			return fmt.Errorf("%w: empty completion", domain.ErrSchemaInvalid)
		}
		if u := resp.UsageMetadata; u != nil {
			observability.RecordAITokens(provider, int(u.PromptTokenCount), int(u.CandidatesTokenCount))
		}
		return nil
	}
	err := backoff.Retry(op, backoff.WithContext(expo, ctx))
	outcome := "success"
	if err != nil {
		outcome = "error"
		if ctx.Err() != nil && !errors.Is(err, domain.ErrUpstreamTimeout) {
			err = fmt.Errorf("%w: %v", domain.ErrUpstreamTimeout, ctx.Err())
		}
	}
	observability.RecordAIRequest(provider, "chat", outcome, time.Since(start))
	if err != nil {
		slog.Error("ai chat failed", slog.String("provider", provider), slog.String("model", c.cfg.GeminiModel), slog.Any("error", err))
		return "", fmt.Errorf("op=gemini.chat: %w", err)
	}
	return text, nil
}

// classify maps a Gemini error onto the domain taxonomy. Client errors stop
// the retry loop.
func classify(err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return backoff.Permanent(fmt.Errorf("%w: %v", domain.ErrUpstreamTimeout, err))
	}
	code := 0
	var apiErr *genai.APIError
	var apiErrVal genai.APIError
	switch {
	case errors.As(err, &apiErr):
		code = apiErr.Code
	case errors.As(err, &apiErrVal):
		code = apiErrVal.Code
	}
	switch {
	case code == http.StatusTooManyRequests:
		return fmt.Errorf("%w: %v", domain.ErrUpstreamRateLimit, err)
	case code >= 400 && code < 500:
		return backoff.Permanent(fmt.Errorf("%w: %v", domain.ErrExternalService, err))
	default:
		return fmt.Errorf("%w: %v", domain.ErrExternalService, err)
	}
}
