package vectorindex

import (
	"context"
	"errors"
	"testing"

	"github.com/zulfachrienst/chatbot-rag/internal/embedding"
)

func TestChromemIndexEmptyQuery(t *testing.T) {
	x, err := NewChromemIndex("", "test")
	if err != nil {
		t.Fatalf("NewChromemIndex() error = %v", err)
	}
	matches, err := x.Query(context.Background(), embedding.Vector{1, 0, 0}, 3)
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}
	if matches == nil || len(matches) != 0 {
		t.Fatalf("matches = %#v, want empty non-nil slice", matches)
	}
}

func TestChromemIndexUpsertQueryDelete(t *testing.T) {
	ctx := context.Background()
	x, err := NewChromemIndex("", "test")
	if err != nil {
		t.Fatalf("NewChromemIndex() error = %v", err)
	}
	err = x.Upsert(ctx, []Entry{
		{ID: "p1", Vector: embedding.Vector{1, 0, 0}, Metadata: map[string]any{"name": "Sepatu", "price": 250000}},
		{ID: "p2", Vector: embedding.Vector{0, 1, 0}, Metadata: map[string]any{"name": "Tas"}},
		{ID: "p3", Vector: embedding.Vector{0.9, 0.1, 0}, Metadata: map[string]any{"name": "Sandal"}},
	})
	if err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}

	matches, err := x.Query(ctx, embedding.Vector{1, 0, 0}, 2)
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}
	if len(matches) != 2 {
		t.Fatalf("len(matches) = %d, want 2", len(matches))
	}
	if matches[0].ID != "p1" || matches[1].ID != "p3" {
		t.Fatalf("matches = %+v, want p1 then p3", matches)
	}
	if matches[0].Score < matches[1].Score {
		t.Fatalf("scores not descending: %+v", matches)
	}

	// topK larger than the collection is clamped.
	all, err := x.Query(ctx, embedding.Vector{1, 0, 0}, 50)
	if err != nil || len(all) != 3 {
		t.Fatalf("Query(50) = %d matches, %v; want 3", len(all), err)
	}

	if err := x.Delete(ctx, []string{"p1"}); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if x.Count() != 2 {
		t.Fatalf("Count() = %d, want 2", x.Count())
	}
}

func TestChromemIndexRejectsEntryWithoutVector(t *testing.T) {
	x, _ := NewChromemIndex("", "test")
	err := x.Upsert(context.Background(), []Entry{{ID: "p1"}})
	if !errors.Is(err, ErrVectorIndex) {
		t.Fatalf("err = %v, want ErrVectorIndex", err)
	}
}
