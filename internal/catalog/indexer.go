package catalog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/zulfachrienst/chatbot-rag/internal/embedding"
	"github.com/zulfachrienst/chatbot-rag/internal/vectorindex"
)

// Embedder is the part of the embedding client the indexer needs.
type Embedder interface {
	Embed(ctx context.Context, text string) (embedding.Vector, error)
	EmbedBatch(ctx context.Context, texts []string) ([]embedding.Vector, error)
}

// Indexer keeps the product store and the vector index in step.
type Indexer struct {
	store    Store
	embedder Embedder
	index    vectorindex.Index
	now      func() time.Time
	logger   *slog.Logger
}

func NewIndexer(store Store, embedder Embedder, index vectorindex.Index, logger *slog.Logger) *Indexer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Indexer{store: store, embedder: embedder, index: index, now: time.Now, logger: logger.With("component", "indexer")}
}

// ErrDuplicateName is returned by Create when a product with the same name
// (case-insensitive) already exists.
var ErrDuplicateName = errors.New("product name already exists")

// ErrInvalidProduct is returned when a product cannot be stored as given.
var ErrInvalidProduct = errors.New("invalid product")

// Get returns one stored product.
func (x *Indexer) Get(ctx context.Context, id string) (Product, error) {
	return x.store.Get(ctx, id)
}

// List returns every stored product.
func (x *Indexer) List(ctx context.Context) ([]Product, error) {
	return x.store.List(ctx)
}

// Create adds a new product under a generated id, refusing names already in
// the catalog.
func (x *Indexer) Create(ctx context.Context, p Product) (Product, error) {
	existing, err := x.store.List(ctx)
	if err != nil {
		return Product{}, fmt.Errorf("list products: %w", err)
	}
	name := strings.TrimSpace(p.Name)
	for _, e := range existing {
		if strings.EqualFold(e.Name, name) {
			return Product{}, fmt.Errorf("%w: %q (id %s)", ErrDuplicateName, name, e.ID)
		}
	}
	p.ID = ""
	return x.Put(ctx, p)
}

// Put saves p (assigning an id when empty) and upserts its vector. A put on
// an existing id merges into the stored product. It returns the stored product.
func (x *Indexer) Put(ctx context.Context, p Product) (Product, error) {
	out, err := x.PutBatch(ctx, []Product{p})
	if err != nil {
		return Product{}, err
	}
	return out[0], nil
}

// PutBatch embeds all products in one batch, then saves and upserts them.
func (x *Indexer) PutBatch(ctx context.Context, products []Product) ([]Product, error) {
	if len(products) == 0 {
		return nil, nil
	}
	now := x.now().UTC()
	texts := make([]string, len(products))
	out := make([]Product, len(products))
	for i, p := range products {
		if p.ID == "" {
			p.ID = uuid.NewString()
		} else {
			stored, err := x.store.Get(ctx, p.ID)
			switch {
			case err == nil:
				p = Merge(stored, p)
			case !errors.Is(err, ErrNotFound):
				return nil, fmt.Errorf("load product %s: %w", p.ID, err)
			}
		}
		if p.CreatedAt.IsZero() {
			p.CreatedAt = now
		}
		p.UpdatedAt = now
		p = Normalize(p)
		if p.Name == "" {
			return nil, fmt.Errorf("%w: product %d: name is required", ErrInvalidProduct, i)
		}
		out[i] = p
		texts[i] = p.EmbeddingText()
	}

	vectors, err := x.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("embed products: %w", err)
	}

	entries := make([]vectorindex.Entry, len(out))
	for i, p := range out {
		if err := x.store.Save(ctx, p); err != nil {
			return nil, fmt.Errorf("save product %s: %w", p.ID, err)
		}
		entries[i] = vectorindex.Entry{ID: p.ID, Vector: vectors[i], Metadata: p.IndexMetadata()}
	}
	if err := x.index.Upsert(ctx, entries); err != nil {
		return nil, fmt.Errorf("index products: %w", err)
	}
	x.logger.Info("products indexed", "count", len(out))
	return out, nil
}

// Delete removes the product document and its vector. Unknown ids succeed.
func (x *Indexer) Delete(ctx context.Context, id string) error {
	if err := x.store.Delete(ctx, id); err != nil && !errors.Is(err, ErrNotFound) {
		return fmt.Errorf("delete product: %w", err)
	}
	if err := x.index.Delete(ctx, []string{id}); err != nil {
		return fmt.Errorf("delete product vector: %w", err)
	}
	return nil
}

// Reindex re-embeds every stored product, e.g. after switching index backend.
func (x *Indexer) Reindex(ctx context.Context) (int, error) {
	products, err := x.store.List(ctx)
	if err != nil {
		return 0, err
	}
	if _, err := x.PutBatch(ctx, products); err != nil {
		return 0, err
	}
	return len(products), nil
}
