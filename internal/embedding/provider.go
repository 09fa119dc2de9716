package embedding

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"hash/fnv"
	"math"
	"strings"
	"time"
	"unicode"

	"github.com/zulfachrienst/chatbot-rag/internal/reliability"
	"github.com/zulfachrienst/chatbot-rag/internal/upstream"
)

// Vector is a dense embedding.
type Vector []float32

// Provider produces one embedding per call. Errors are reliability.ServiceError
// values; a malformed response is permanent.
type Provider interface {
	Name() string
	Embed(ctx context.Context, text string) (Vector, error)
}

type ProviderConfig struct {
	// Provider is auto, huggingface, openai or mock.
	Provider      string
	BaseURL       string
	APIKey        string
	Model         string
	Dim           int
	Timeout       time.Duration
	RatePerSecond float64
}

const defaultHuggingFaceURL = "https://api-inference.huggingface.co/pipeline/feature-extraction"

func NewProvider(cfg ProviderConfig) (Provider, error) {
	mode := strings.ToLower(strings.TrimSpace(cfg.Provider))
	if mode == "" || mode == "auto" {
		switch {
		case strings.TrimSpace(cfg.BaseURL) != "":
			mode = "openai"
		case strings.TrimSpace(cfg.APIKey) != "":
			mode = "huggingface"
		default:
			mode = "mock"
		}
	}
	switch mode {
	case "huggingface", "hf":
		return NewHuggingFaceProvider(cfg), nil
	case "openai":
		if strings.TrimSpace(cfg.BaseURL) == "" {
			return nil, errors.New("embedding base url is required for openai provider")
		}
		return NewOpenAIProvider(cfg), nil
	case "mock":
		return NewMockProvider(cfg.Dim), nil
	default:
		return nil, fmt.Errorf("unsupported embedding provider %q", cfg.Provider)
	}
}

// HuggingFaceProvider calls the Inference API feature-extraction pipeline.
type HuggingFaceProvider struct {
	client *upstream.Client
	model  string
}

func NewHuggingFaceProvider(cfg ProviderConfig) *HuggingFaceProvider {
	base := strings.TrimSpace(cfg.BaseURL)
	if base == "" {
		base = defaultHuggingFaceURL
	}
	headers := map[string]string{}
	if cfg.APIKey != "" {
		headers["Authorization"] = "Bearer " + cfg.APIKey
	}
	return &HuggingFaceProvider{
		client: upstream.NewClient(upstream.Config{
			Provider:      "huggingface",
			BaseURL:       base,
			Headers:       headers,
			Timeout:       cfg.Timeout,
			RatePerSecond: cfg.RatePerSecond,
		}),
		model: cfg.Model,
	}
}

func (p *HuggingFaceProvider) Name() string { return "huggingface" }

type featureExtractionRequest struct {
	Inputs  string         `json:"inputs"`
	Options map[string]any `json:"options,omitempty"`
}

func (p *HuggingFaceProvider) Embed(ctx context.Context, text string) (Vector, error) {
	body, err := p.client.PostRaw(ctx, "embed", p.model, featureExtractionRequest{
		Inputs:  text,
		Options: map[string]any{"wait_for_model": true},
	})
	if err != nil {
		return nil, err
	}
	vec, err := parseFeatureExtraction(body)
	if err != nil {
		return nil, reliability.Permanent(p.Name(), "embed", err)
	}
	return vec, nil
}

// parseFeatureExtraction accepts a flat vector or a batch of one vector.
func parseFeatureExtraction(body []byte) (Vector, error) {
	var flat []float32
	if err := json.Unmarshal(body, &flat); err == nil && len(flat) > 0 {
		return flat, nil
	}
	var nested [][]float32
	if err := json.Unmarshal(body, &nested); err == nil && len(nested) > 0 && len(nested[0]) > 0 {
		return nested[0], nil
	}
	return nil, errors.New("unexpected embedding format")
}

// OpenAIProvider calls an OpenAI-compatible /embeddings endpoint. Ollama's
// {"embedding": [...]} shape is accepted too.
type OpenAIProvider struct {
	client *upstream.Client
	model  string
}

func NewOpenAIProvider(cfg ProviderConfig) *OpenAIProvider {
	headers := map[string]string{}
	if cfg.APIKey != "" {
		headers["Authorization"] = "Bearer " + cfg.APIKey
	}
	return &OpenAIProvider{
		client: upstream.NewClient(upstream.Config{
			Provider:      "openai-embeddings",
			BaseURL:       cfg.BaseURL,
			Headers:       headers,
			Timeout:       cfg.Timeout,
			RatePerSecond: cfg.RatePerSecond,
		}),
		model: cfg.Model,
	}
}

func (p *OpenAIProvider) Name() string { return "openai-embeddings" }

func (p *OpenAIProvider) Embed(ctx context.Context, text string) (Vector, error) {
	var out struct {
		Data []struct {
			Embedding Vector `json:"embedding"`
		} `json:"data"`
		Embedding Vector `json:"embedding"`
	}
	req := map[string]string{"model": p.model, "input": text}
	if err := p.client.PostJSON(ctx, "embed", "/embeddings", req, &out); err != nil {
		return nil, err
	}
	switch {
	case len(out.Data) > 0 && len(out.Data[0].Embedding) > 0:
		return out.Data[0].Embedding, nil
	case len(out.Embedding) > 0:
		return out.Embedding, nil
	default:
		return nil, reliability.Permanent(p.Name(), "embed", errors.New("unexpected embedding format"))
	}
}

// MockProvider hashes words into buckets so texts sharing words land close
// together. Deterministic and offline.
type MockProvider struct {
	dim int
}

func NewMockProvider(dim int) *MockProvider {
	if dim <= 0 {
		dim = 384
	}
	return &MockProvider{dim: dim}
}

func (p *MockProvider) Name() string { return "mock" }

func (p *MockProvider) Embed(ctx context.Context, text string) (Vector, error) {
	if err := ctx.Err(); err != nil {
		return nil, reliability.Permanent(p.Name(), "embed", err)
	}
	vec := make(Vector, p.dim)
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
	for _, w := range words {
		h := fnv.New32a()
		_, _ = h.Write([]byte(w))
		sum := h.Sum32()
		vec[int(sum%uint32(p.dim))] += 1
	}
	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	if norm == 0 {
		vec[0] = 1
		return vec, nil
	}
	scale := float32(1 / math.Sqrt(norm))
	for i := range vec {
		vec[i] *= scale
	}
	return vec, nil
}
