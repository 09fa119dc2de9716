package llm

import (
	"context"
	"errors"
	"strings"

	"github.com/zulfachrienst/chatbot-rag/internal/reliability"
	"github.com/zulfachrienst/chatbot-rag/internal/upstream"
)

const providerName = "llm"

// OpenAICompleter calls an OpenAI-compatible /chat/completions endpoint
// (Groq, OpenAI, llama.cpp server, vLLM).
type OpenAICompleter struct {
	client      *upstream.Client
	model       string
	temperature float64
	maxTokens   int
}

func NewOpenAICompleter(cfg Config) *OpenAICompleter {
	headers := map[string]string{}
	if key := strings.TrimSpace(cfg.APIKey); key != "" {
		headers["Authorization"] = "Bearer " + key
	}
	return &OpenAICompleter{
		client: upstream.NewClient(upstream.Config{
			Provider:      providerName,
			BaseURL:       cfg.BaseURL,
			Headers:       headers,
			Timeout:       cfg.Timeout,
			RatePerSecond: cfg.RatePerSecond,
		}),
		model:       cfg.Model,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
	}
}

type chatCompletionRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature float64   `json:"temperature"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
	Stream      bool      `json:"stream"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
}

// Complete returns the first choice content. A response with no choices is
// reported as an empty string, not an error.
func (c *OpenAICompleter) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	if len(req.Messages) == 0 {
		return "", reliability.Permanent(providerName, "complete", errors.New("no messages"))
	}
	body := chatCompletionRequest{
		Model:       firstNonEmpty(req.Model, c.model),
		Messages:    req.Messages,
		Temperature: c.temperature,
		MaxTokens:   c.maxTokens,
	}
	if req.Temperature != nil {
		body.Temperature = *req.Temperature
	}
	if req.MaxTokens > 0 {
		body.MaxTokens = req.MaxTokens
	}

	var out chatCompletionResponse
	if err := c.client.PostJSON(ctx, "complete", "/chat/completions", body, &out); err != nil {
		return "", err
	}
	if len(out.Choices) == 0 {
		return "", nil
	}
	return out.Choices[0].Message.Content, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
