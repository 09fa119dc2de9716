package analytics

import (
	"context"
	"sync"
	"time"
)

type InMemoryBackend struct {
	mu       sync.Mutex
	counters map[string]Counter
}

func NewInMemoryBackend() *InMemoryBackend {
	return &InMemoryBackend{counters: make(map[string]Counter)}
}

func (b *InMemoryBackend) IncrementBatch(_ context.Context, ids []string, at time.Time) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, id := range ids {
		c := b.counters[id]
		c.ProductID = id
		c.InquiryCount++
		c.LastInquiry = at
		b.counters[id] = c
	}
	return nil
}

func (b *InMemoryBackend) Get(_ context.Context, productID string) (Counter, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	c, ok := b.counters[productID]
	if !ok {
		return Counter{}, ErrNoCounter
	}
	return c, nil
}
