// Package upstream is the JSON-over-HTTP plumbing shared by the embedding,
// generation and vector index adapters. It rate limits outbound calls and
// classifies failures into reliability.ServiceError kinds. It never retries.
package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/zulfachrienst/chatbot-rag/internal/reliability"
)

const errorBodyLimit = 4 << 10

type Config struct {
	// Provider names the upstream in errors and metrics.
	Provider      string
	BaseURL       string
	Headers       map[string]string
	Timeout       time.Duration
	RatePerSecond float64
	Burst         int
	Transport     http.RoundTripper
}

// Client posts JSON to one upstream base URL.
type Client struct {
	provider string
	baseURL  string
	headers  map[string]string
	http     *http.Client
	limiter  *rate.Limiter
}

func NewClient(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	limit := rate.Inf
	if cfg.RatePerSecond > 0 {
		limit = rate.Limit(cfg.RatePerSecond)
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 5
	}
	headers := make(map[string]string, len(cfg.Headers))
	for k, v := range cfg.Headers {
		headers[k] = v
	}
	return &Client{
		provider: cfg.Provider,
		baseURL:  strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
		headers:  headers,
		http:     &http.Client{Timeout: cfg.Timeout, Transport: cfg.Transport},
		limiter:  rate.NewLimiter(limit, cfg.Burst),
	}
}

func (c *Client) Provider() string { return c.provider }

// PostJSON sends in as JSON to baseURL+path and decodes a 2xx body into out.
// out may be nil.
func (c *Client) PostJSON(ctx context.Context, op, path string, in, out any) error {
	body, err := c.PostRaw(ctx, op, path, in)
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return reliability.Permanent(c.provider, op, fmt.Errorf("decode response: %w", err))
	}
	return nil
}

// PostRaw is PostJSON without decoding; it returns the response body.
func (c *Client) PostRaw(ctx context.Context, op, path string, in any) ([]byte, error) {
	payload, err := json.Marshal(in)
	if err != nil {
		return nil, reliability.Permanent(c.provider, op, fmt.Errorf("marshal request: %w", err))
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, reliability.Permanent(c.provider, op, fmt.Errorf("rate limiter: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url(path), bytes.NewReader(payload))
	if err != nil {
		return nil, reliability.Permanent(c.provider, op, fmt.Errorf("create request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}

	res, err := c.http.Do(req)
	if err != nil {
		return nil, reliability.FromTransport(c.provider, op, fmt.Errorf("send request: %w", err))
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(res.Body, errorBodyLimit))
		return nil, reliability.FromHTTPStatus(c.provider, op, res.StatusCode, strings.TrimSpace(string(snippet)))
	}
	data, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, reliability.FromTransport(c.provider, op, fmt.Errorf("read response: %w", err))
	}
	return data, nil
}

func (c *Client) url(path string) string {
	if path == "" {
		return c.baseURL
	}
	return c.baseURL + "/" + strings.TrimPrefix(path, "/")
}
