package vectorindex

import (
	"context"
	"strings"
	"time"

	"github.com/zulfachrienst/chatbot-rag/internal/embedding"
	"github.com/zulfachrienst/chatbot-rag/internal/upstream"
)

type PineconeConfig struct {
	APIKey    string
	IndexHost string
	Namespace string
	Timeout   time.Duration
}

// PineconeIndex talks to a Pinecone index data plane over REST.
type PineconeIndex struct {
	client    *upstream.Client
	namespace string
}

func NewPineconeIndex(cfg PineconeConfig) *PineconeIndex {
	host := strings.TrimSpace(cfg.IndexHost)
	if !strings.HasPrefix(host, "http://") && !strings.HasPrefix(host, "https://") {
		host = "https://" + host
	}
	return &PineconeIndex{
		client: upstream.NewClient(upstream.Config{
			Provider: "pinecone",
			BaseURL:  host,
			Headers: map[string]string{
				"Api-Key":                cfg.APIKey,
				"X-Pinecone-API-Version": "2024-07",
			},
			Timeout: cfg.Timeout,
		}),
		namespace: cfg.Namespace,
	}
}

type pineconeVector struct {
	ID       string           `json:"id"`
	Values   embedding.Vector `json:"values"`
	Metadata map[string]any   `json:"metadata,omitempty"`
}

type pineconeUpsertRequest struct {
	Vectors   []pineconeVector `json:"vectors"`
	Namespace string           `json:"namespace,omitempty"`
}

type pineconeQueryRequest struct {
	Vector          embedding.Vector `json:"vector"`
	TopK            int              `json:"topK"`
	IncludeMetadata bool             `json:"includeMetadata"`
	Namespace       string           `json:"namespace,omitempty"`
}

type pineconeQueryResponse struct {
	Matches []Match `json:"matches"`
}

type pineconeDeleteRequest struct {
	IDs       []string `json:"ids"`
	Namespace string   `json:"namespace,omitempty"`
}

// Pinecone recommends upsert batches of about 100 vectors.
const pineconeUpsertBatch = 100

func (x *PineconeIndex) Upsert(ctx context.Context, entries []Entry) error {
	for start := 0; start < len(entries); start += pineconeUpsertBatch {
		end := min(start+pineconeUpsertBatch, len(entries))
		req := pineconeUpsertRequest{Namespace: x.namespace, Vectors: make([]pineconeVector, 0, end-start)}
		for _, e := range entries[start:end] {
			req.Vectors = append(req.Vectors, pineconeVector{ID: e.ID, Values: e.Vector, Metadata: e.Metadata})
		}
		if err := x.client.PostJSON(ctx, "upsert", "/vectors/upsert", req, nil); err != nil {
			return wrap("upsert", err)
		}
	}
	return nil
}

func (x *PineconeIndex) Query(ctx context.Context, vec embedding.Vector, topK int) ([]Match, error) {
	if topK <= 0 {
		return []Match{}, nil
	}
	var out pineconeQueryResponse
	err := x.client.PostJSON(ctx, "query", "/query", pineconeQueryRequest{
		Vector:          vec,
		TopK:            topK,
		IncludeMetadata: true,
		Namespace:       x.namespace,
	}, &out)
	if err != nil {
		return nil, wrap("query", err)
	}
	if out.Matches == nil {
		return []Match{}, nil
	}
	return truncate(out.Matches, topK), nil
}

func (x *PineconeIndex) Delete(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	err := x.client.PostJSON(ctx, "delete", "/vectors/delete", pineconeDeleteRequest{IDs: ids, Namespace: x.namespace}, nil)
	if err != nil {
		return wrap("delete", err)
	}
	return nil
}

func (x *PineconeIndex) Close() error { return nil }
