package ai

import (
	"fmt"

	openai "github.com/sashabaranov/go-openai"
)

// modelRates holds per-token USD rates for a chat model
type modelRates struct {
	Input  float64 // per input token
	Output float64 // per output token
}

// Pricing as of 2024. Unknown models are rejected at startup by
// ValidateModel, never mid-call.
var modelCosts = map[string]modelRates{
	openai.GPT4o: {
		Input:  0.0025 / 1000,
		Output: 0.01 / 1000,
	},
	openai.GPT4oMini: {
		Input:  0.00015 / 1000,
		Output: 0.0006 / 1000,
	},
}

// Whisper is billed per audio minute; duration is unknown before the
// call, so transcription cost is approximated with a flat per-call figure.
const whisperCostPerCall = 0.006

// ValidateModel checks that a chat model has a price table entry
func ValidateModel(model string) error {
	if _, ok := modelCosts[model]; !ok {
		return fmt.Errorf("no pricing configured for model %q", model)
	}
	return nil
}

// costFor computes the USD cost of a chat call from token counts
func costFor(model string, promptTokens, completionTokens int) float64 {
	rates, ok := modelCosts[model]
	if !ok {
		return 0
	}
	return float64(promptTokens)*rates.Input + float64(completionTokens)*rates.Output
}

// estimateTokens approximates the prompt token count of a request from
// its byte length (roughly 4 bytes per token for English text).
func estimateTokens(messages []openai.ChatCompletionMessage) int {
	total := 0
	for _, m := range messages {
		total += len(m.Content)
	}
	return total / 4
}
