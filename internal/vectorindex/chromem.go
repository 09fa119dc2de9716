package vectorindex

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/philippgille/chromem-go"

	"github.com/zulfachrienst/chatbot-rag/internal/embedding"
)

// ChromemIndex is an embedded index backed by a chromem-go collection. Vectors
// are always supplied by the caller; the collection never embeds on its own.
type ChromemIndex struct {
	db         *chromem.DB
	collection *chromem.Collection
}

// NewChromemIndex opens a collection. An empty persistDir keeps everything
// in memory.
func NewChromemIndex(persistDir, collection string) (*ChromemIndex, error) {
	var db *chromem.DB
	if strings.TrimSpace(persistDir) == "" {
		db = chromem.NewDB()
	} else {
		var err error
		db, err = chromem.NewPersistentDB(persistDir, false)
		if err != nil {
			return nil, wrap("open", err)
		}
	}
	if collection == "" {
		collection = "products"
	}
	col, err := db.GetOrCreateCollection(collection, nil, refuseEmbedding)
	if err != nil {
		return nil, wrap("open collection", err)
	}
	return &ChromemIndex{db: db, collection: col}, nil
}

func refuseEmbedding(context.Context, string) ([]float32, error) {
	return nil, errors.New("chromem index requires precomputed vectors")
}

func (x *ChromemIndex) Upsert(ctx context.Context, entries []Entry) error {
	if len(entries) == 0 {
		return nil
	}
	docs := make([]chromem.Document, 0, len(entries))
	for _, e := range entries {
		if e.ID == "" || len(e.Vector) == 0 {
			return wrap("upsert", fmt.Errorf("entry %q has no id or vector", e.ID))
		}
		meta := make(map[string]string, len(e.Metadata))
		for k, v := range e.Metadata {
			meta[k] = fmt.Sprint(v)
		}
		docs = append(docs, chromem.Document{
			ID:        e.ID,
			Metadata:  meta,
			Embedding: append([]float32(nil), e.Vector...),
			Content:   meta["name"],
		})
	}
	if err := x.collection.AddDocuments(ctx, docs, 1); err != nil {
		return wrap("upsert", err)
	}
	return nil
}

func (x *ChromemIndex) Query(ctx context.Context, vec embedding.Vector, topK int) ([]Match, error) {
	count := x.collection.Count()
	if count == 0 || topK <= 0 {
		return []Match{}, nil
	}
	n := topK
	if n > count {
		n = count
	}
	results, err := x.collection.QueryEmbedding(ctx, vec, n, nil, nil)
	if err != nil {
		return nil, wrap("query", err)
	}
	out := make([]Match, 0, len(results))
	for _, r := range results {
		out = append(out, Match{ID: r.ID, Score: r.Similarity})
	}
	return truncate(out, topK), nil
}

func (x *ChromemIndex) Delete(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	if err := x.collection.Delete(ctx, nil, nil, ids...); err != nil {
		return wrap("delete", err)
	}
	return nil
}

func (x *ChromemIndex) Count() int { return x.collection.Count() }

func (x *ChromemIndex) Close() error { return nil }
