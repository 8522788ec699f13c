package ai

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"golang.org/x/sync/errgroup"
)

// SLA threshold for the whole fan-out; crossing it logs a warning but
// never fails the request.
const slaLatencyWarn = 120 * time.Second

const (
	sectionTemperature = 0.7
	sectionMaxTokens   = 1000
)

// Metadata aggregates metrics across the five generation calls. Total
// latency is the wall clock of the fan-out, not the sum of the calls,
// since they run concurrently.
type Metadata struct {
	TotalLatencyMs   int64   `json:"total_latency_ms"`
	MaxCallLatencyMs int64   `json:"max_call_latency_ms"`
	TotalTokens      int     `json:"total_tokens"`
	CostUSD          float64 `json:"cost_usd"`
}

// ShowNotes is the assembled generation result
type ShowNotes struct {
	Title          string         `json:"title"`
	Summary        string         `json:"summary"`
	Highlights     []string       `json:"highlights"`
	GuestBio       string         `json:"guest_bio"`
	SocialCaptions SocialCaptions `json:"social_captions"`
	Metadata       Metadata       `json:"metadata"`
}

// Completer is the slice of Client the generator needs; tests substitute
// a counting stub.
type Completer interface {
	ChatComplete(ctx context.Context, messages []openai.ChatCompletionMessage, temperature float32, maxTokens int) (string, CallMetrics, error)
}

// Generator produces show notes from a transcript by fanning out one
// generation call per section.
type Generator struct {
	completer Completer
}

// NewGenerator creates a show-notes generator
func NewGenerator(c Completer) *Generator {
	return &Generator{completer: c}
}

type sectionResult struct {
	text    string
	metrics CallMetrics
}

// Generate runs the five section calls concurrently and assembles the
// result. All five must succeed: a CostExceeded failure propagates as
// ErrCostExceeded, anything else as ErrGenerationFailed, and partial
// results are discarded either way.
func (g *Generator) Generate(ctx context.Context, transcript string) (*ShowNotes, error) {
	if strings.TrimSpace(transcript) == "" {
		return nil, ErrEmptyTranscript
	}

	start := time.Now()

	// Load all templates up front so a missing one fails before any
	// provider call is dispatched.
	templates := make(map[string]string, len(sectionNames))
	for _, name := range sectionNames {
		tmpl, err := LoadPrompt(name)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrGenerationFailed, err)
		}
		templates[name] = tmpl
	}

	results := make(map[string]*sectionResult, len(sectionNames))
	for _, name := range sectionNames {
		results[name] = &sectionResult{}
	}

	group, groupCtx := errgroup.WithContext(ctx)
	for _, name := range sectionNames {
		out := results[name]
		prompt := templates[name]
		group.Go(func() error {
			text, metrics, err := g.completer.ChatComplete(groupCtx, []openai.ChatCompletionMessage{
				{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
				{Role: openai.ChatMessageRoleUser, Content: prompt + "\n\nTranscript:\n" + transcript},
			}, sectionTemperature, sectionMaxTokens)
			if err != nil {
				return err
			}
			out.text = text
			out.metrics = metrics
			return nil
		})
	}

	if err := group.Wait(); err != nil {
		if errors.Is(err, ErrCostExceeded) {
			return nil, err
		}
		log.Printf("[ShowNotes] Generation failed: %v", err)
		return nil, fmt.Errorf("%w: %v", ErrGenerationFailed, err)
	}

	meta := Metadata{TotalLatencyMs: time.Since(start).Milliseconds()}
	for _, name := range sectionNames {
		m := results[name].metrics
		meta.TotalTokens += m.TotalTokens
		meta.CostUSD += m.CostUSD
		if m.LatencyMs > meta.MaxCallLatencyMs {
			meta.MaxCallLatencyMs = m.LatencyMs
		}
	}

	highlights, hlBranch := parseHighlights(results[PromptHighlights].text)
	captions, scBranch := parseSocialCaptions(results[PromptSocialCaptions].text)
	if hlBranch == ParsedFallback {
		log.Printf("[ShowNotes] Highlights response was not a JSON array, used bullet fallback")
	}
	if scBranch == ParsedFallback {
		log.Printf("[ShowNotes] Social captions response was not valid JSON, used raw text for all platforms")
	}

	notes := &ShowNotes{
		Title:          strings.TrimSpace(results[PromptTitle].text),
		Summary:        strings.TrimSpace(results[PromptSummary].text),
		Highlights:     highlights,
		GuestBio:       strings.TrimSpace(results[PromptGuestBio].text),
		SocialCaptions: captions,
		Metadata:       meta,
	}

	log.Printf("[ShowNotes] Generation completed: totalLatencyMs=%d maxCallLatencyMs=%d totalTokens=%d costUSD=%.6f transcriptLength=%d",
		meta.TotalLatencyMs, meta.MaxCallLatencyMs, meta.TotalTokens, meta.CostUSD, len(transcript))

	if time.Since(start) > slaLatencyWarn {
		log.Printf("[ShowNotes] Warning: generation exceeded %s SLA (took %s)", slaLatencyWarn, time.Since(start).Round(time.Millisecond))
	}

	return notes, nil
}
