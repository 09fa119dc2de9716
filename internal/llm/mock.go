package llm

import (
	"context"
	"fmt"
	"strings"
)

// MockCompleter provides deterministic local replies when no provider is
// configured. Classification prompts get "yes" or "no"; everything else is
// echoed back with the size of the supplied context.
type MockCompleter struct{}

func NewMockCompleter() *MockCompleter { return &MockCompleter{} }

var expansiveWords = []string{"all", "every", "list", "semua", "daftar", "apa saja"}

func (MockCompleter) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	default:
	}

	var system, last string
	for _, m := range req.Messages {
		switch m.Role {
		case RoleSystem:
			system = m.Content
		case RoleUser:
			last = m.Content
		}
	}
	last = strings.TrimSpace(last)

	if strings.Contains(strings.ToLower(system), "answer only") {
		lower := strings.ToLower(last)
		for _, w := range expansiveWords {
			if strings.Contains(lower, w) {
				return "yes", nil
			}
		}
		return "no", nil
	}
	if last == "" {
		return "", nil
	}
	turns := len(req.Messages) - 2
	if turns < 0 {
		turns = 0
	}
	return fmt.Sprintf("You asked: %s (with %d earlier turns)", last, turns), nil
}
