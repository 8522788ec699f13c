package ai

import "fmt"

// Template names for the five show-notes sections
const (
	PromptTitle          = "title"
	PromptSummary        = "summary"
	PromptHighlights     = "highlights"
	PromptGuestBio       = "guest-bio"
	PromptSocialCaptions = "social-captions"
)

// sectionNames is the fixed fan-out order (no ordering guarantee at runtime)
var sectionNames = []string{
	PromptTitle,
	PromptSummary,
	PromptHighlights,
	PromptGuestBio,
	PromptSocialCaptions,
}

const systemPrompt = "You are an expert at creating engaging podcast show notes and social media content. When asked to return JSON, return only valid JSON without markdown formatting or code blocks."

var promptTemplates = map[string]string{
	PromptTitle: `Write a single compelling episode title for the podcast transcript below.
Keep it under 80 characters, make it specific to the conversation, and avoid clickbait.
Return only the title text, nothing else.`,

	PromptSummary: `Write a 2-3 paragraph episode summary for the podcast transcript below.
Cover the main topics discussed, the flow of the conversation, and why a listener should care.
Return only the summary text, nothing else.`,

	PromptHighlights: `Extract the 5-8 most interesting highlights from the podcast transcript below.
Each highlight should be a single self-contained sentence capturing a key insight, story, or quote.
Return a JSON array of strings, for example: ["First highlight", "Second highlight"].
Return only the JSON array, no markdown formatting.`,

	PromptGuestBio: `Write a short professional bio (2-4 sentences) for the guest in the podcast transcript below,
based only on what they say about themselves and their work. If no guest can be identified,
write a one-sentence description of the speaker instead.
Return only the bio text, nothing else.`,

	PromptSocialCaptions: `Write social media captions promoting this podcast episode, one per platform:
- twitter: under 280 characters, punchy, with 1-2 relevant hashtags
- linkedin: professional tone, 2-3 sentences
- instagram: casual tone with a hook, 2-3 sentences, a few hashtags
Return a JSON object with exactly the keys "twitter", "linkedin" and "instagram".
Return only the JSON object, no markdown formatting or code blocks.`,
}

// LoadPrompt returns the named prompt template
func LoadPrompt(name string) (string, error) {
	tmpl, ok := promptTemplates[name]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrPromptNotFound, name)
	}
	return tmpl, nil
}
