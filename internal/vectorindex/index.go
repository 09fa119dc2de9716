package vectorindex

import (
	"context"
	"errors"
	"fmt"

	"github.com/zulfachrienst/chatbot-rag/internal/embedding"
)

// ErrVectorIndex is wrapped by every failure returned from an Index.
var ErrVectorIndex = errors.New("vector index error")

// Entry is one vector stored under an entity id.
type Entry struct {
	ID       string
	Vector   embedding.Vector
	Metadata map[string]any
}

// Match is a query hit. Higher Score means more similar.
type Match struct {
	ID    string  `json:"id"`
	Score float32 `json:"score"`
}

// Index is a similarity index keyed by entity id. Implementations do not
// retry; callers decide what a failure means.
type Index interface {
	Upsert(ctx context.Context, entries []Entry) error
	// Query returns at most topK matches, best first. An empty index yields
	// an empty slice.
	Query(ctx context.Context, vec embedding.Vector, topK int) ([]Match, error)
	Delete(ctx context.Context, ids []string) error
	Close() error
}

func wrap(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrVectorIndex, op, err)
}

func truncate(matches []Match, topK int) []Match {
	if topK >= 0 && len(matches) > topK {
		return matches[:topK]
	}
	return matches
}
