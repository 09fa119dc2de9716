package llm

import (
	"context"
	"fmt"
	"strings"
	"time"
)

type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// CompletionRequest is one chat completion call. Empty Model, nil
// Temperature and zero MaxTokens fall back to the completer defaults.
type CompletionRequest struct {
	Model       string
	Messages    []Message
	Temperature *float64
	MaxTokens   int
}

// Completer produces one assistant message for a conversation. Failures are
// reliability.ServiceError values so callers can decide whether to retry.
type Completer interface {
	Complete(ctx context.Context, req CompletionRequest) (string, error)
}

// Config controls completer construction.
type Config struct {
	// Provider is auto, openai or mock. Auto uses the HTTP provider when an
	// API key is present.
	Provider      string
	BaseURL       string
	APIKey        string
	Model         string
	Temperature   float64
	MaxTokens     int
	Timeout       time.Duration
	RatePerSecond float64
}

func NewCompleter(cfg Config) (Completer, error) {
	mode := strings.ToLower(strings.TrimSpace(cfg.Provider))
	if mode == "" {
		mode = "auto"
	}
	switch mode {
	case "auto":
		if strings.TrimSpace(cfg.APIKey) != "" && strings.TrimSpace(cfg.BaseURL) != "" {
			return NewOpenAICompleter(cfg), nil
		}
		return NewMockCompleter(), nil
	case "openai", "groq":
		if strings.TrimSpace(cfg.BaseURL) == "" {
			return nil, fmt.Errorf("llm base url is required for %s provider", mode)
		}
		return NewOpenAICompleter(cfg), nil
	case "mock":
		return NewMockCompleter(), nil
	default:
		return nil, fmt.Errorf("unsupported llm provider %q", cfg.Provider)
	}
}
