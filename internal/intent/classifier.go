package intent

import (
	"context"
	"fmt"
	"strings"

	"github.com/zulfachrienst/chatbot-rag/internal/llm"
)

const systemPrompt = `You classify messages sent to an online shop assistant.
Decide whether the user wants to see many or all products (a full list, every option in a category, a catalog overview) rather than one specific recommendation.
Answer only "yes" or "no".`

// Classifier decides whether a message calls for an expanded product search.
type Classifier struct {
	completer llm.Completer
	model     string
}

// NewClassifier uses model for classification; empty means the completer default.
func NewClassifier(completer llm.Completer, model string) *Classifier {
	return &Classifier{completer: completer, model: model}
}

// WantsExpandedResults asks the model once. Only a trimmed, case-insensitive
// "yes" counts as true. Errors are returned unretried.
func (c *Classifier) WantsExpandedResults(ctx context.Context, message string) (bool, error) {
	temp := 0.0
	out, err := c.completer.Complete(ctx, llm.CompletionRequest{
		Model: c.model,
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: systemPrompt},
			{Role: llm.RoleUser, Content: message},
		},
		Temperature: &temp,
		MaxTokens:   3,
	})
	if err != nil {
		return false, fmt.Errorf("classify intent: %w", err)
	}
	return strings.ToLower(strings.TrimSpace(out)) == "yes", nil
}
