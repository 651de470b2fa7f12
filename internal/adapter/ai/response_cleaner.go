package ai

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/fairyhunter13/softrate-ats/internal/domain"
)

var (
	thinkBlock    = regexp.MustCompile(`(?s)<think>.*?</think>`)
	trailingComma = regexp.MustCompile(`,(\s*[}\]])`)
)

// CleanJSON extracts the first JSON object from a model reply. Models wrap
// answers in code fences, prepend reasoning or leave trailing commas.
func CleanJSON(reply string) (string, error) {
	s := thinkBlock.ReplaceAllString(reply, "")
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	s = extractObject(strings.TrimSpace(s))
	if gjson.Valid(s) {
		return s, nil
	}
	if fixed := trailingComma.ReplaceAllString(s, "$1"); gjson.Valid(fixed) {
		return fixed, nil
	}
	snippet := reply
	if len(snippet) > 200 {
		snippet = snippet[:200]
	}
	return "", fmt.Errorf("%w: reply is not a JSON object: %q", domain.ErrSchemaInvalid, snippet)
}

// extractObject returns the first balanced {...} span, skipping braces
// inside string literals.
func extractObject(s string) string {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return s
	}
	depth, inString, escaped := 0, false, false
	for i := start; i < len(s); i++ {
		c := s[i]
		switch {
		case escaped:
			escaped = false
		case c == '\\' && inString:
			escaped = true
		case c == '"':
			inString = !inString
		case inString:
		case c == '{':
			depth++
		case c == '}':
			depth--
			if depth == 0 {
				return s[start : i+1]
			}
		}
	}
	return s[start:]
}
