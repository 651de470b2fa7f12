// Package tokencount estimates prompt sizes with tiktoken so resumes and job
// descriptions can be trimmed to a provider's context budget.
package tokencount

import (
	"log/slog"
	"strings"
	"sync"

	tiktoken "github.com/pkoukk/tiktoken-go"
	tiktoken_loader "github.com/pkoukk/tiktoken-go-loader"
)

func init() {
	// Ship the BPE ranks in the binary instead of downloading them.
	tiktoken.SetBpeLoader(tiktoken_loader.NewOfflineLoader())
}

// Counter provides thread-safe token counting for LLM models.
type Counter struct {
	mu        sync.RWMutex
	encodings map[string]*tiktoken.Tiktoken
}

// NewCounter creates a new token counter instance.
func NewCounter() *Counter {
	return &Counter{encodings: make(map[string]*tiktoken.Tiktoken)}
}

// Default is a shared counter.
var Default = NewCounter()

// encoding returns the cached tiktoken encoding for model, or nil when none
// can be loaded.
func (c *Counter) encoding(model string) *tiktoken.Tiktoken {
	name := normalizeModelName(model)

	c.mu.RLock()
	enc, ok := c.encodings[name]
	c.mu.RUnlock()
	if ok {
		return enc
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if enc, ok := c.encodings[name]; ok {
		return enc
	}
	enc, err := tiktoken.EncodingForModel(name)
	if err != nil {
		enc, err = tiktoken.GetEncoding("cl100k_base")
	}
	if err != nil {
		slog.Warn("tiktoken encoding unavailable, estimating by length", slog.String("model", model), slog.Any("error", err))
		enc = nil
	}
	c.encodings[name] = enc
	return enc
}

// normalizeModelName maps provider model ids onto names tiktoken knows.
// Non-OpenAI families are approximated with the GPT-4 encoding.
func normalizeModelName(model string) string {
	model = strings.ToLower(model)
	// e.g. "meta-llama/llama-3.1-8b-instruct:free"
	if i := strings.LastIndex(model, "/"); i >= 0 {
		model = model[i+1:]
	}
	model = strings.TrimSuffix(model, ":free")
	switch {
	case strings.Contains(model, "gpt-3.5"):
		return "gpt-3.5-turbo"
	case strings.Contains(model, "gpt-4o"):
		return "gpt-4o"
	default:
		return "gpt-4"
	}
}

// Count returns the number of tokens in text.
func (c *Counter) Count(text, model string) int {
	if text == "" {
		return 0
	}
	enc := c.encoding(model)
	if enc == nil {
		return (len(text) + 3) / 4
	}
	return len(enc.Encode(text, nil, nil))
}

// ChatTokens counts a system+user chat request including per-message
// framing overhead.
func (c *Counter) ChatTokens(systemPrompt, userPrompt, model string) int {
	const perMessage, replyPriming = 4, 3
	return c.Count(systemPrompt, model) + c.Count(userPrompt, model) + 2*perMessage + replyPriming
}

// Truncate returns text cut to at most maxTokens tokens. It reports whether
// anything was removed.
func (c *Counter) Truncate(text, model string, maxTokens int) (string, bool) {
	if maxTokens <= 0 || text == "" {
		return text, false
	}
	enc := c.encoding(model)
	if enc == nil {
		limit := maxTokens * 4
		if len(text) <= limit {
			return text, false
		}
		return strings.ToValidUTF8(text[:limit], ""), true
	}
	tokens := enc.Encode(text, nil, nil)
	if len(tokens) <= maxTokens {
		return text, false
	}
	return strings.ToValidUTF8(enc.Decode(tokens[:maxTokens]), ""), true
}
