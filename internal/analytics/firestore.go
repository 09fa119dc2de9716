package analytics

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// FirestoreBackend keeps counters as <collection>/<productID> documents and
// commits each batch with a single WriteBatch.
type FirestoreBackend struct {
	client     *firestore.Client
	collection string
}

func NewFirestoreBackend(client *firestore.Client, collection string) *FirestoreBackend {
	if collection == "" {
		collection = "productAnalytics"
	}
	return &FirestoreBackend{client: client, collection: collection}
}

func (b *FirestoreBackend) IncrementBatch(ctx context.Context, ids []string, at time.Time) error {
	// A WriteBatch rejects two writes to the same document, so repeated ids
	// are folded into one increment of n.
	counts := make(map[string]int64, len(ids))
	order := make([]string, 0, len(ids))
	for _, id := range ids {
		if counts[id] == 0 {
			order = append(order, id)
		}
		counts[id]++
	}

	batch := b.client.Batch()
	for _, id := range order {
		batch.Set(b.client.Collection(b.collection).Doc(id), map[string]any{
			"inquiryCount": firestore.Increment(counts[id]),
			"lastInquiry":  at,
		}, firestore.MergeAll)
	}
	if _, err := batch.Commit(ctx); err != nil {
		return fmt.Errorf("commit analytics batch: %w", err)
	}
	return nil
}

func (b *FirestoreBackend) Get(ctx context.Context, productID string) (Counter, error) {
	snap, err := b.client.Collection(b.collection).Doc(productID).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return Counter{}, ErrNoCounter
	}
	if err != nil {
		return Counter{}, fmt.Errorf("get counter: %w", err)
	}
	var doc struct {
		InquiryCount int64     `firestore:"inquiryCount"`
		LastInquiry  time.Time `firestore:"lastInquiry"`
	}
	if err := snap.DataTo(&doc); err != nil {
		return Counter{}, fmt.Errorf("decode counter: %w", err)
	}
	return Counter{ProductID: productID, InquiryCount: doc.InquiryCount, LastInquiry: doc.LastInquiry}, nil
}
