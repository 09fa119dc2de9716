package generator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/zulfachrienst/chatbot-rag/internal/history"
	"github.com/zulfachrienst/chatbot-rag/internal/llm"
	"github.com/zulfachrienst/chatbot-rag/internal/observability"
	"github.com/zulfachrienst/chatbot-rag/internal/policy"
	"github.com/zulfachrienst/chatbot-rag/internal/promptctx"
	"github.com/zulfachrienst/chatbot-rag/internal/reliability"
)

// FallbackResponse is returned when the model answers with nothing.
const FallbackResponse = "Sorry, I couldn't find the right answer for you at the moment."

// ErrGeneration is wrapped by every Generate failure.
var ErrGeneration = errors.New("response generation failed")

const systemPromptTemplate = `You are a friendly and helpful virtual sales assistant for an online shop.

Your job is to help users make smart purchasing decisions using only the product information below:

%s

Instructions:
- Always respond in the same language the user used (English or Bahasa Indonesia).
- If relevant products are available, suggest the best option(s) clearly, highlighting key features and price.
- When a product is discounted, quote the discounted price and use it for any totals.
- If no product fits, give honest advice and politely ask a clarifying question (budget, preferred features).
- Never invent products, prices, stock or specs that are not in the list above.
- Be brief but clear, helpful and human-like. The reply is read in a chat app: short paragraphs, simple bullet points, no tables or markdown headings.`

type Options struct {
	MaxRetries int
	BaseDelay  time.Duration
	Sleep      func(ctx context.Context, d time.Duration) error
	Logger     *slog.Logger
	Metrics    *observability.Metrics
}

// Generator produces the assistant reply for one user turn.
type Generator struct {
	completer llm.Completer
	opts      Options
	logger    *slog.Logger
}

func New(completer llm.Completer, opts Options) *Generator {
	if opts.BaseDelay <= 0 {
		opts.BaseDelay = time.Second
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Generator{completer: completer, opts: opts, logger: logger.With("component", "generator")}
}

// BuildMessages assembles the system prompt, prior turns in order, then the
// user turn. An empty productContext is replaced by the placeholder.
func BuildMessages(userMessage, productContext string, hist history.History) []llm.Message {
	if strings.TrimSpace(productContext) == "" {
		productContext = promptctx.NoProductsPlaceholder
	}
	msgs := make([]llm.Message, 0, len(hist)+2)
	msgs = append(msgs, llm.Message{Role: llm.RoleSystem, Content: fmt.Sprintf(systemPromptTemplate, productContext)})
	for _, turn := range hist {
		role := llm.RoleUser
		if turn.Role == history.RoleAssistant {
			role = llm.RoleAssistant
		}
		msgs = append(msgs, llm.Message{Role: role, Content: turn.Content})
	}
	return append(msgs, llm.Message{Role: llm.RoleUser, Content: userMessage})
}

// Generate calls the model, retrying transient failures with linear backoff.
// A blank completion is not retried and yields FallbackResponse.
func (g *Generator) Generate(ctx context.Context, userMessage, productContext string, hist history.History) (string, error) {
	msgs := BuildMessages(userMessage, productContext, hist)
	out, attempts, err := reliability.Retry(ctx, reliability.Policy{
		MaxRetries: g.opts.MaxRetries,
		Backoff:    reliability.LinearBackoff(g.opts.BaseDelay),
		Sleep:      g.opts.Sleep,
		OnRetry: func(attempt int, delay time.Duration, err error) {
			g.opts.Metrics.ObserveRetry("llm")
			g.logger.Warn("generation attempt failed, retrying", "attempt", attempt, "delay", delay, "err", err)
		},
	}, func(ctx context.Context, _ int) (string, error) {
		return g.completer.Complete(ctx, llm.CompletionRequest{Messages: msgs})
	})
	if err != nil {
		kind := reliability.KindPermanent
		if reliability.IsTransient(err) {
			kind = reliability.KindTransient
		}
		g.opts.Metrics.ObserveProviderError("llm", kind.String())
		g.logger.Error("generation failed", "attempts", attempts, "err", err)
		return "", fmt.Errorf("%w: %w", ErrGeneration, err)
	}

	reply := strings.TrimSpace(out)
	if reply == "" {
		g.opts.Metrics.ObserveFallback()
		g.logger.Warn("empty completion, using fallback", "message", policy.LogSafe(userMessage, 50))
		return FallbackResponse, nil
	}
	g.logger.Info("response generated", "attempts", attempts, "message", policy.LogSafe(userMessage, 50))
	return reply, nil
}
