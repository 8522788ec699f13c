package ai

import (
	"context"
	"fmt"
	"log"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/gdiab/showscribe/internal/config"
	"github.com/gdiab/showscribe/internal/spend"
)

// CallMetrics describes a single provider call
type CallMetrics struct {
	PromptTokens     int     `json:"prompt_tokens"`
	CompletionTokens int     `json:"completion_tokens"`
	TotalTokens      int     `json:"total_tokens"`
	CostUSD          float64 `json:"cost_usd"`
	LatencyMs        int64   `json:"latency_ms"`
	Model            string  `json:"model"`
}

// Client wraps the OpenAI chat-completion and transcription endpoints
// with per-call cost metrics and a rolling daily spend cap.
type Client struct {
	client      *openai.Client
	chatModel   string
	dailyCapUSD float64
	spend       spend.Store
}

// NewClient creates a provider client
func NewClient(cfg *config.Config, store spend.Store) *Client {
	clientConfig := openai.DefaultConfig(cfg.OpenAIKey)
	if cfg.OpenAIBaseURL != "" {
		clientConfig.BaseURL = cfg.OpenAIBaseURL
	}

	return &Client{
		client:      openai.NewClientWithConfig(clientConfig),
		chatModel:   cfg.ChatModel,
		dailyCapUSD: cfg.DailyCostCapUSD,
		spend:       store,
	}
}

// ChatModel returns the configured chat model name
func (c *Client) ChatModel() string {
	return c.chatModel
}

// ChatComplete issues a chat-completion call. Before dispatching it
// estimates the cost from message byte length and fails with
// ErrCostExceeded if the daily cap would be crossed. Provider errors
// propagate unwrapped; there is no retry, since a retried call that was
// actually billed would double-charge.
func (c *Client) ChatComplete(ctx context.Context, messages []openai.ChatCompletionMessage, temperature float32, maxTokens int) (string, CallMetrics, error) {
	estPrompt := estimateTokens(messages)
	estCompletion := int(float64(estPrompt) * 0.3)
	estCost := costFor(c.chatModel, estPrompt, estCompletion)

	if err := c.checkDailyLimit(ctx, estCost); err != nil {
		return "", CallMetrics{}, err
	}

	start := time.Now()
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.chatModel,
		Messages:    messages,
		Temperature: temperature,
		MaxTokens:   maxTokens,
	})
	if err != nil {
		return "", CallMetrics{}, err
	}

	if len(resp.Choices) == 0 {
		return "", CallMetrics{}, fmt.Errorf("provider returned no choices")
	}

	metrics := CallMetrics{
		PromptTokens:     resp.Usage.PromptTokens,
		CompletionTokens: resp.Usage.CompletionTokens,
		TotalTokens:      resp.Usage.TotalTokens,
		CostUSD:          costFor(c.chatModel, resp.Usage.PromptTokens, resp.Usage.CompletionTokens),
		LatencyMs:        time.Since(start).Milliseconds(),
		Model:            c.chatModel,
	}

	c.recordDailyCost(ctx, metrics.CostUSD)
	logMetrics("chat", metrics)

	return resp.Choices[0].Message.Content, metrics, nil
}

// Transcribe runs Whisper transcription on a local audio file. Audio
// duration is unknown upfront, so there is no cap check before the call;
// a flat per-call cost estimate is recorded afterward.
func (c *Client) Transcribe(ctx context.Context, audioPath string) (string, CallMetrics, error) {
	start := time.Now()
	resp, err := c.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    openai.Whisper1,
		FilePath: audioPath,
		Format:   openai.AudioResponseFormatJSON,
	})
	if err != nil {
		return "", CallMetrics{}, err
	}

	metrics := CallMetrics{
		CostUSD:   whisperCostPerCall,
		LatencyMs: time.Since(start).Milliseconds(),
		Model:     openai.Whisper1,
	}

	c.recordDailyCost(ctx, metrics.CostUSD)
	logMetrics("transcription", metrics)
	log.Printf("[Provider] Transcript length: %d characters", len(resp.Text))

	return resp.Text, metrics, nil
}

// checkDailyLimit fails with ErrCostExceeded when the estimated cost
// would push today's total over the cap. Counter store failures are
// logged and treated as a pass, never as a hard failure.
func (c *Client) checkDailyLimit(ctx context.Context, estimatedCost float64) error {
	today := spend.DayKey(time.Now())
	current, err := c.spend.Get(ctx, today)
	if err != nil {
		log.Printf("[Provider] Warning: cost check failed: %v", err)
		return nil
	}

	if current+estimatedCost > c.dailyCapUSD {
		return fmt.Errorf("%w: current $%.4f + estimated $%.4f > cap $%.2f",
			ErrCostExceeded, current, estimatedCost, c.dailyCapUSD)
	}
	return nil
}

// recordDailyCost records actual spend best-effort after a call
func (c *Client) recordDailyCost(ctx context.Context, cost float64) {
	today := spend.DayKey(time.Now())
	if err := c.spend.Add(ctx, today, cost); err != nil {
		log.Printf("[Provider] Warning: cost recording failed: %v", err)
	}
}

// logMetrics is the sole metrics channel for provider calls
func logMetrics(kind string, m CallMetrics) {
	log.Printf("[Provider] %s call: model=%s promptTokens=%d completionTokens=%d totalTokens=%d costUSD=%.6f latencyMs=%d",
		kind, m.Model, m.PromptTokens, m.CompletionTokens, m.TotalTokens, m.CostUSD, m.LatencyMs)
}
