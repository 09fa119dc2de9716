package catalog

import (
	"context"
	"errors"
	"sort"
	"sync"
)

// ErrNotFound is returned by Store.Get for an unknown id.
var ErrNotFound = errors.New("product not found")

// Store is the product persistence boundary. Get returns normalized products.
type Store interface {
	Get(ctx context.Context, id string) (Product, error)
	Save(ctx context.Context, p Product) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context) ([]Product, error)
}

// InMemoryStore is a map-backed store for local/dev use and tests.
type InMemoryStore struct {
	mu       sync.RWMutex
	products map[string]Product
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{products: make(map[string]Product)}
}

func (s *InMemoryStore) Get(_ context.Context, id string) (Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.products[id]
	if !ok {
		return Product{}, ErrNotFound
	}
	return p, nil
}

func (s *InMemoryStore) Save(_ context.Context, p Product) error {
	if p.ID == "" {
		return errors.New("product id is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.products[p.ID] = Normalize(p)
	return nil
}

func (s *InMemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.products, id)
	return nil
}

func (s *InMemoryStore) List(_ context.Context) ([]Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Product, 0, len(s.products))
	for _, p := range s.products {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}
