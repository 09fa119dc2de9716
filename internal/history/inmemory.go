package history

import (
	"context"
	"sort"
	"sync"
)

// InMemoryBackend is an in-process backend for local/dev use and tests.
type InMemoryBackend struct {
	mu   sync.RWMutex
	docs map[string]History
}

func NewInMemoryBackend() *InMemoryBackend {
	return &InMemoryBackend{docs: make(map[string]History)}
}

func (b *InMemoryBackend) Load(_ context.Context, userID string) (History, bool, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	h, ok := b.docs[userID]
	if !ok {
		return nil, false, nil
	}
	return append(History(nil), h...), true, nil
}

func (b *InMemoryBackend) Save(_ context.Context, userID string, h History) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.docs[userID] = append(History(nil), h...)
	return nil
}

func (b *InMemoryBackend) Delete(_ context.Context, userID string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.docs, userID)
	return nil
}

func (b *InMemoryBackend) ListUsers(_ context.Context) ([]string, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	users := make([]string, 0, len(b.docs))
	for id := range b.docs {
		users = append(users, id)
	}
	sort.Strings(users)
	return users, nil
}

func (b *InMemoryBackend) Close() error { return nil }
