package analytics

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/zulfachrienst/chatbot-rag/internal/catalog"
)

type recordingBackend struct {
	*InMemoryBackend
	batches [][]string
	err     error
}

func (b *recordingBackend) IncrementBatch(ctx context.Context, ids []string, at time.Time) error {
	b.batches = append(b.batches, ids)
	if b.err != nil {
		return b.err
	}
	return b.InMemoryBackend.IncrementBatch(ctx, ids, at)
}

func retrieved(ids ...string) []catalog.Retrieved {
	out := make([]catalog.Retrieved, len(ids))
	for i, id := range ids {
		out[i] = catalog.Retrieved{Product: catalog.Product{ID: id}}
	}
	return out
}

func TestRecordInquiriesSkipsEmptyIDs(t *testing.T) {
	b := &recordingBackend{InMemoryBackend: NewInMemoryBackend()}
	r := NewRecorder(b, nil)

	if err := r.RecordInquiries(context.Background(), retrieved("p1", "", "p2")); err != nil {
		t.Fatalf("RecordInquiries() error = %v", err)
	}
	if len(b.batches) != 1 || len(b.batches[0]) != 2 {
		t.Fatalf("batches = %v, want one batch of 2", b.batches)
	}
	c, err := r.Counter(context.Background(), "p1")
	if err != nil || c.InquiryCount != 1 {
		t.Fatalf("Counter(p1) = %+v, %v", c, err)
	}
}

func TestRecordInquiriesNoIDsIsNoop(t *testing.T) {
	b := &recordingBackend{InMemoryBackend: NewInMemoryBackend()}
	r := NewRecorder(b, nil)
	if err := r.RecordInquiries(context.Background(), retrieved("", "")); err != nil {
		t.Fatalf("RecordInquiries() error = %v", err)
	}
	if len(b.batches) != 0 {
		t.Fatalf("batches = %v, want none", b.batches)
	}
}

func TestRecordInquiriesAccumulates(t *testing.T) {
	r := NewRecorder(NewInMemoryBackend(), nil)
	ctx := context.Background()
	_ = r.RecordInquiries(ctx, retrieved("p1", "p2"))
	_ = r.RecordInquiries(ctx, retrieved("p1"))

	c, _ := r.Counter(ctx, "p1")
	if c.InquiryCount != 2 {
		t.Fatalf("InquiryCount = %d, want 2", c.InquiryCount)
	}
	if _, err := r.Counter(ctx, "p9"); !errors.Is(err, ErrNoCounter) {
		t.Fatalf("Counter(p9) err = %v, want ErrNoCounter", err)
	}
}

func TestRecordInquiriesReportsBackendFailure(t *testing.T) {
	b := &recordingBackend{InMemoryBackend: NewInMemoryBackend(), err: errors.New("quota")}
	r := NewRecorder(b, nil)
	if err := r.RecordInquiries(context.Background(), retrieved("p1")); err == nil {
		t.Fatalf("RecordInquiries() error = nil, want error")
	}
	if _, err := r.Counter(context.Background(), "p1"); !errors.Is(err, ErrNoCounter) {
		t.Fatalf("failed batch must not partially apply, err = %v", err)
	}
}
