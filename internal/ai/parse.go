package ai

import (
	"encoding/json"
	"strings"
)

// ParseBranch records whether a structured response parsed cleanly or a
// degraded fallback was used, so callers and tests can tell the two apart.
type ParseBranch int

const (
	ParsedStructured ParseBranch = iota
	ParsedFallback
)

// SocialCaptions holds one caption per platform
type SocialCaptions struct {
	Twitter   string `json:"twitter"`
	Linkedin  string `json:"linkedin"`
	Instagram string `json:"instagram"`
}

// parseHighlights expects a JSON array of strings. If that fails it
// falls back to extracting bullet-marked lines, and as a last resort
// returns the whole response as a single highlight so the result is
// never empty for a non-empty response.
func parseHighlights(raw string) ([]string, ParseBranch) {
	cleaned := stripCodeFences(raw)

	var highlights []string
	if err := json.Unmarshal([]byte(cleaned), &highlights); err == nil && len(highlights) > 0 {
		return highlights, ParsedStructured
	}

	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "-") || strings.HasPrefix(line, "•") {
			line = strings.TrimSpace(strings.TrimLeft(line, "-•"))
			if line != "" {
				highlights = append(highlights, line)
			}
		}
	}
	if len(highlights) > 0 {
		return highlights, ParsedFallback
	}

	if trimmed := strings.TrimSpace(raw); trimmed != "" {
		return []string{trimmed}, ParsedFallback
	}
	return nil, ParsedFallback
}

// parseSocialCaptions expects a JSON object with twitter/linkedin/instagram
// keys. Code fences are stripped before decoding. On parse failure every
// platform falls back to the raw text: a degraded answer, never a hard
// failure.
func parseSocialCaptions(raw string) (SocialCaptions, ParseBranch) {
	cleaned := stripCodeFences(raw)

	var captions SocialCaptions
	if err := json.Unmarshal([]byte(cleaned), &captions); err != nil {
		return SocialCaptions{
			Twitter:   raw,
			Linkedin:  raw,
			Instagram: raw,
		}, ParsedFallback
	}

	// A structurally valid object can still miss a platform; fill the
	// gaps from the raw text rather than returning empty captions.
	if captions.Twitter == "" {
		captions.Twitter = raw
	}
	if captions.Linkedin == "" {
		captions.Linkedin = raw
	}
	if captions.Instagram == "" {
		captions.Instagram = raw
	}
	return captions, ParsedStructured
}

// stripCodeFences removes leading/trailing markdown code-fence markers
func stripCodeFences(content string) string {
	content = strings.TrimSpace(content)

	if strings.HasPrefix(content, "```json") {
		content = strings.TrimPrefix(content, "```json")
		content = strings.TrimSuffix(content, "```")
	} else if strings.HasPrefix(content, "```") {
		content = strings.TrimPrefix(content, "```")
		content = strings.TrimSuffix(content, "```")
	}

	return strings.TrimSpace(content)
}
