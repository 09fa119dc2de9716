package catalog

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/zulfachrienst/chatbot-rag/internal/embedding"
	"github.com/zulfachrienst/chatbot-rag/internal/vectorindex"
)

type fakeEmbedder struct {
	batches [][]string
	err     error
}

func (f *fakeEmbedder) Embed(ctx context.Context, text string) (embedding.Vector, error) {
	out, err := f.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return out[0], nil
}

func (f *fakeEmbedder) EmbedBatch(_ context.Context, texts []string) ([]embedding.Vector, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.batches = append(f.batches, texts)
	out := make([]embedding.Vector, len(texts))
	for i, text := range texts {
		out[i] = embedding.Vector{float32(len(text)), 1, 0}
	}
	return out, nil
}

func TestIndexerPutBatchSavesAndIndexes(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryStore()
	emb := &fakeEmbedder{}
	idx, err := vectorindex.NewChromemIndex("", "test")
	if err != nil {
		t.Fatalf("NewChromemIndex() error = %v", err)
	}
	x := NewIndexer(store, emb, idx, nil)

	out, err := x.PutBatch(ctx, []Product{
		{Name: "Oppo A5 Pro", Description: "Tahan air", Category: []string{"Smartphone"}, Price: 3499000},
		{ID: "fixed", Name: "Realme 14", Price: 4100000},
	})
	if err != nil {
		t.Fatalf("PutBatch() error = %v", err)
	}
	if out[0].ID == "" || out[1].ID != "fixed" {
		t.Fatalf("ids = %q, %q", out[0].ID, out[1].ID)
	}
	if len(emb.batches) != 1 || emb.batches[0][0] != "Oppo A5 Pro Tahan air Smartphone" {
		t.Fatalf("embed batches = %v", emb.batches)
	}
	if idx.Count() != 2 {
		t.Fatalf("index count = %d, want 2", idx.Count())
	}
	if _, err := store.Get(ctx, out[0].ID); err != nil {
		t.Fatalf("store.Get() error = %v", err)
	}

	if err := x.Delete(ctx, "fixed"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if idx.Count() != 1 {
		t.Fatalf("index count after delete = %d, want 1", idx.Count())
	}
	if _, err := store.Get(ctx, "fixed"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("store.Get(deleted) err = %v, want ErrNotFound", err)
	}
}

func TestIndexerEmbedFailureSavesNothing(t *testing.T) {
	store := NewInMemoryStore()
	idx, _ := vectorindex.NewChromemIndex("", "test")
	x := NewIndexer(store, &fakeEmbedder{err: embedding.ErrEmbeddingGeneration}, idx, nil)

	if _, err := x.Put(context.Background(), Product{Name: "X"}); !errors.Is(err, embedding.ErrEmbeddingGeneration) {
		t.Fatalf("err = %v, want ErrEmbeddingGeneration", err)
	}
	if all, _ := store.List(context.Background()); len(all) != 0 {
		t.Fatalf("store has %d products, want 0", len(all))
	}
}

func TestIndexerPutMergesIntoStoredProduct(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryStore()
	emb := &fakeEmbedder{}
	idx, _ := vectorindex.NewChromemIndex("", "test")
	x := NewIndexer(store, emb, idx, nil)
	t0 := time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC)
	x.now = func() time.Time { return t0 }

	if _, err := x.Put(ctx, Product{ID: "p1", Name: "Infinix Note 50", Description: "Big battery", Stock: 5, Price: 100}); err != nil {
		t.Fatalf("first Put() error = %v", err)
	}
	x.now = func() time.Time { return t0.Add(48 * time.Hour) }
	if _, err := x.Put(ctx, Product{ID: "p1", Price: 90}); err != nil {
		t.Fatalf("second Put() error = %v", err)
	}
	x.now = func() time.Time { return t0.Add(72 * time.Hour) }
	got, err := x.Put(ctx, Product{ID: "p1", Stock: 7})
	if err != nil {
		t.Fatalf("third Put() error = %v", err)
	}

	stored, err := store.Get(ctx, "p1")
	if err != nil {
		t.Fatalf("store.Get() error = %v", err)
	}
	if !stored.CreatedAt.Equal(t0) {
		t.Fatalf("CreatedAt = %v, want %v", stored.CreatedAt, t0)
	}
	if !stored.UpdatedAt.Equal(t0.Add(72 * time.Hour)) {
		t.Fatalf("UpdatedAt = %v, want %v", stored.UpdatedAt, t0.Add(72*time.Hour))
	}
	if stored.Name != "Infinix Note 50" || stored.Description != "Big battery" {
		t.Fatalf("name/description = %q/%q, want originals kept", stored.Name, stored.Description)
	}
	if stored.Price != 90 || stored.Stock != 7 {
		t.Fatalf("price = %v stock = %d, want 90 and 7", stored.Price, stored.Stock)
	}
	if got.Slug != "infinix-note-50" {
		t.Fatalf("Slug = %q, want infinix-note-50", got.Slug)
	}
	if last := emb.batches[len(emb.batches)-1][0]; last != "Infinix Note 50 Big battery" {
		t.Fatalf("re-embedded text = %q", last)
	}
	if idx.Count() != 1 {
		t.Fatalf("index count = %d, want 1", idx.Count())
	}
}

func TestMergeRederivesDiscountOnPriceChange(t *testing.T) {
	stored := Normalize(Product{Name: "Realme 14", Price: 1000, Discount: Discount{Percent: 10}})
	got := Normalize(Merge(stored, Product{Price: 2000}))
	if got.Discount.Percent != 10 || got.Discount.PriceAfterDiscount != 1800 {
		t.Fatalf("Discount = %+v, want 10%% of 2000", got.Discount)
	}
}

func TestIndexerPutUnknownIDWithoutNameIsInvalid(t *testing.T) {
	idx, _ := vectorindex.NewChromemIndex("", "test")
	x := NewIndexer(NewInMemoryStore(), &fakeEmbedder{}, idx, nil)
	if _, err := x.Put(context.Background(), Product{ID: "ghost", Price: 10}); !errors.Is(err, ErrInvalidProduct) {
		t.Fatalf("err = %v, want ErrInvalidProduct", err)
	}
}

func TestIndexerCreateRejectsDuplicateName(t *testing.T) {
	ctx := context.Background()
	idx, _ := vectorindex.NewChromemIndex("", "test")
	x := NewIndexer(NewInMemoryStore(), &fakeEmbedder{}, idx, nil)

	first, err := x.Create(ctx, Product{Name: "Oppo A5 Pro", Description: "Tahan air"})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if first.ID == "" {
		t.Fatalf("Create() returned empty id")
	}
	if _, err := x.Create(ctx, Product{Name: "  oppo a5 PRO ", Description: "again"}); !errors.Is(err, ErrDuplicateName) {
		t.Fatalf("duplicate Create() err = %v, want ErrDuplicateName", err)
	}
	all, _ := x.List(ctx)
	if len(all) != 1 {
		t.Fatalf("products = %d, want 1", len(all))
	}
	if got, err := x.Get(ctx, first.ID); err != nil || got.Name != "Oppo A5 Pro" {
		t.Fatalf("Get() = %+v, %v", got, err)
	}
}
