package tokencount

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCount(t *testing.T) {
	c := NewCounter()
	assert.Zero(t, c.Count("", "gpt-4"))
	n := c.Count("Hello, world!", "gpt-4")
	assert.Greater(t, n, 0)
	assert.Less(t, n, 10)
	assert.Equal(t, n, c.Count("Hello, world!", "meta-llama/llama-3.1-8b-instruct:free"))
}

func TestChatTokensIncludesOverhead(t *testing.T) {
	c := NewCounter()
	sys, user := "You are a grader.", "Score this answer."
	assert.Greater(t, c.ChatTokens(sys, user, "gpt-4"), c.Count(sys, "gpt-4")+c.Count(user, "gpt-4"))
}

func TestTruncate(t *testing.T) {
	c := NewCounter()
	long := strings.Repeat("distributed systems engineer with kafka experience. ", 200)

	out, cut := c.Truncate(long, "gpt-4", 50)
	assert.True(t, cut)
	assert.LessOrEqual(t, c.Count(out, "gpt-4"), 50)
	assert.True(t, strings.HasPrefix(long, out))

	out, cut = c.Truncate("short resume", "gpt-4", 50)
	assert.False(t, cut)
	assert.Equal(t, "short resume", out)

	out, cut = c.Truncate(long, "gpt-4", 0)
	assert.False(t, cut)
	assert.Equal(t, long, out)
}

func TestNormalizeModelName(t *testing.T) {
	cases := map[string]string{
		"openai/gpt-4o-mini":                    "gpt-4o",
		"openai/gpt-3.5-turbo":                  "gpt-3.5-turbo",
		"meta-llama/llama-3.1-8b-instruct:free": "gpt-4",
		"gemini-2.0-flash":                      "gpt-4",
	}
	for in, want := range cases {
		assert.Equal(t, want, normalizeModelName(in), in)
	}
}

func TestEncodingCache(t *testing.T) {
	c := NewCounter()
	c.Count("x", "gpt-4")
	c.Count("y", "anthropic/claude-3")
	c.mu.RLock()
	defer c.mu.RUnlock()
	assert.Len(t, c.encodings, 1)
}
