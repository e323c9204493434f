package formatting

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrParseFailed is returned when content cannot be parsed as JSON,
// either directly or from a markdown code fence.
var ErrParseFailed = errors.New("failed to parse response")

var jsonBlockRegex = regexp.MustCompile(`(?s)` + "```" + `(?:json)?\s*\n?(.*?)\n?` + "```")

// ExtractJSON returns the JSON document carried by content, unwrapping a
// markdown code fence when present. The result is always valid JSON;
// callers that persist the payload can store it as-is.
func ExtractJSON(content string) (string, error) {
	content = strings.TrimSpace(content)

	if json.Valid([]byte(content)) {
		return content, nil
	}

	matches := jsonBlockRegex.FindStringSubmatch(content)
	if len(matches) >= 2 {
		cleaned := strings.TrimSpace(matches[1])
		if json.Valid([]byte(cleaned)) {
			return cleaned, nil
		}
	}

	return "", fmt.Errorf("%w: %s", ErrParseFailed, content)
}

// Parse attempts to unmarshal content as JSON into T.
// If direct parsing fails, it extracts JSON from a markdown code fence
// and retries. Returns ErrParseFailed if both attempts fail.
func Parse[T any](content string) (T, error) {
	var result T

	cleaned, err := ExtractJSON(content)
	if err != nil {
		return result, err
	}

	if err := json.Unmarshal([]byte(cleaned), &result); err != nil {
		return result, fmt.Errorf("%w: %s", ErrParseFailed, content)
	}

	return result, nil
}
