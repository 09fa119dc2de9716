package history

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// FirestoreBackend stores history under <collection>/<userID> as
// {history: [...], updatedAt}.
type FirestoreBackend struct {
	client     *firestore.Client
	collection string
}

type firestoreDoc struct {
	History   History   `firestore:"history"`
	UpdatedAt time.Time `firestore:"updatedAt"`
}

func NewFirestoreBackend(client *firestore.Client, collection string) *FirestoreBackend {
	if collection == "" {
		collection = "chatHistory"
	}
	return &FirestoreBackend{client: client, collection: collection}
}

func (b *FirestoreBackend) Load(ctx context.Context, userID string) (History, bool, error) {
	snap, err := b.client.Collection(b.collection).Doc(userID).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get history doc: %w", err)
	}
	var doc firestoreDoc
	if err := snap.DataTo(&doc); err != nil {
		return nil, false, fmt.Errorf("decode history doc: %w", err)
	}
	return doc.History, true, nil
}

func (b *FirestoreBackend) Save(ctx context.Context, userID string, h History) error {
	if h == nil {
		h = History{}
	}
	_, err := b.client.Collection(b.collection).Doc(userID).Set(ctx, firestoreDoc{History: h, UpdatedAt: time.Now().UTC()})
	if err != nil {
		return fmt.Errorf("set history doc: %w", err)
	}
	return nil
}

func (b *FirestoreBackend) Delete(ctx context.Context, userID string) error {
	if _, err := b.client.Collection(b.collection).Doc(userID).Delete(ctx); err != nil {
		return fmt.Errorf("delete history doc: %w", err)
	}
	return nil
}

func (b *FirestoreBackend) ListUsers(ctx context.Context) ([]string, error) {
	it := b.client.Collection(b.collection).DocumentRefs(ctx)
	var users []string
	for {
		ref, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("list history docs: %w", err)
		}
		users = append(users, ref.ID)
	}
	return users, nil
}

// Close is a no-op; the client is owned by the caller.
func (b *FirestoreBackend) Close() error { return nil }
