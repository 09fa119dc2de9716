package catalog

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// CachedStore puts an expiring LRU in front of Get. Writes go through to the
// underlying store and invalidate the entry.
type CachedStore struct {
	Store
	cache *expirable.LRU[string, Product]
}

func NewCachedStore(store Store, size int, ttl time.Duration) *CachedStore {
	if size <= 0 {
		size = 512
	}
	return &CachedStore{
		Store: store,
		cache: expirable.NewLRU[string, Product](size, nil, ttl),
	}
}

func (s *CachedStore) Get(ctx context.Context, id string) (Product, error) {
	if p, ok := s.cache.Get(id); ok {
		return p, nil
	}
	p, err := s.Store.Get(ctx, id)
	if err != nil {
		return Product{}, err
	}
	s.cache.Add(id, p)
	return p, nil
}

func (s *CachedStore) Save(ctx context.Context, p Product) error {
	s.cache.Remove(p.ID)
	return s.Store.Save(ctx, p)
}

func (s *CachedStore) Delete(ctx context.Context, id string) error {
	s.cache.Remove(id)
	return s.Store.Delete(ctx, id)
}
