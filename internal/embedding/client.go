package embedding

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/zulfachrienst/chatbot-rag/internal/observability"
	"github.com/zulfachrienst/chatbot-rag/internal/reliability"
)

// ErrEmbeddingGeneration is wrapped by every Embed failure.
var ErrEmbeddingGeneration = errors.New("embedding generation failed")

type Options struct {
	MaxRetries int
	BaseDelay  time.Duration
	// Concurrency bounds EmbedBatch fan-out; zero means 8.
	Concurrency int
	Sleep       func(ctx context.Context, d time.Duration) error
	Logger      *slog.Logger
	Metrics     *observability.Metrics
}

// Client wraps a Provider with retry on transient failures.
type Client struct {
	provider Provider
	opts     Options
	logger   *slog.Logger
}

func NewClient(provider Provider, opts Options) *Client {
	if opts.BaseDelay <= 0 {
		opts.BaseDelay = time.Second
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = 8
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{provider: provider, opts: opts, logger: logger.With("component", "embedding")}
}

// Embed returns the embedding for text, retrying transient provider failures
// up to MaxRetries times with linear backoff.
func (c *Client) Embed(ctx context.Context, text string) (Vector, error) {
	name := c.provider.Name()
	vec, attempts, err := reliability.Retry(ctx, reliability.Policy{
		MaxRetries: c.opts.MaxRetries,
		Backoff:    reliability.LinearBackoff(c.opts.BaseDelay),
		Sleep:      c.opts.Sleep,
		OnRetry: func(attempt int, delay time.Duration, err error) {
			c.opts.Metrics.ObserveRetry(name)
			c.logger.Warn("embedding attempt failed, retrying", "attempt", attempt, "delay", delay, "err", err)
		},
	}, func(ctx context.Context, _ int) (Vector, error) {
		return c.provider.Embed(ctx, text)
	})
	if err != nil {
		kind := reliability.KindPermanent
		if reliability.IsTransient(err) {
			kind = reliability.KindTransient
		}
		c.opts.Metrics.ObserveProviderError(name, kind.String())
		c.logger.Error("embedding failed", "attempts", attempts, "err", err)
		return nil, fmt.Errorf("%w: %w", ErrEmbeddingGeneration, err)
	}
	c.logger.Debug("embedding generated", "attempts", attempts, "dim", len(vec))
	return vec, nil
}

// EmbedBatch embeds texts concurrently. Output order matches input order and
// any single failure fails the batch.
func (c *Client) EmbedBatch(ctx context.Context, texts []string) ([]Vector, error) {
	out := make([]Vector, len(texts))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.opts.Concurrency)
	for i, text := range texts {
		g.Go(func() error {
			vec, err := c.Embed(gctx, text)
			if err != nil {
				return fmt.Errorf("batch item %d: %w", i, err)
			}
			out[i] = vec
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
