package catalog

import (
	"context"
	"errors"
	"fmt"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// FirestoreStore reads products from a Firestore collection; the document id
// is the product id.
type FirestoreStore struct {
	client     *firestore.Client
	collection string
}

func NewFirestoreStore(client *firestore.Client, collection string) *FirestoreStore {
	if collection == "" {
		collection = "products"
	}
	return &FirestoreStore{client: client, collection: collection}
}

func (s *FirestoreStore) Get(ctx context.Context, id string) (Product, error) {
	snap, err := s.client.Collection(s.collection).Doc(id).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return Product{}, ErrNotFound
	}
	if err != nil {
		return Product{}, fmt.Errorf("get product doc: %w", err)
	}
	return productFromSnapshot(snap)
}

func (s *FirestoreStore) Save(ctx context.Context, p Product) error {
	if p.ID == "" {
		return errors.New("product id is required")
	}
	if _, err := s.client.Collection(s.collection).Doc(p.ID).Set(ctx, Normalize(p)); err != nil {
		return fmt.Errorf("set product doc: %w", err)
	}
	return nil
}

func (s *FirestoreStore) Delete(ctx context.Context, id string) error {
	if _, err := s.client.Collection(s.collection).Doc(id).Delete(ctx); err != nil {
		return fmt.Errorf("delete product doc: %w", err)
	}
	return nil
}

func (s *FirestoreStore) List(ctx context.Context) ([]Product, error) {
	it := s.client.Collection(s.collection).Documents(ctx)
	defer it.Stop()
	var out []Product
	for {
		snap, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("list product docs: %w", err)
		}
		p, err := productFromSnapshot(snap)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

func productFromSnapshot(snap *firestore.DocumentSnapshot) (Product, error) {
	var p Product
	if err := snap.DataTo(&p); err != nil {
		return Product{}, fmt.Errorf("decode product %s: %w", snap.Ref.ID, err)
	}
	p.ID = snap.Ref.ID
	return Normalize(p), nil
}
