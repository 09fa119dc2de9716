package analytics

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/zulfachrienst/chatbot-rag/internal/catalog"
)

// Counter is the per-product inquiry tally.
type Counter struct {
	ProductID    string    `json:"product_id"`
	InquiryCount int64     `json:"inquiry_count"`
	LastInquiry  time.Time `json:"last_inquiry"`
}

// ErrNoCounter is returned by Backend.Get for a product never inquired about.
var ErrNoCounter = errors.New("no inquiry counter")

// Backend applies increments atomically: either every id in a batch is
// bumped by one or none is.
type Backend interface {
	IncrementBatch(ctx context.Context, ids []string, at time.Time) error
	Get(ctx context.Context, productID string) (Counter, error)
}

// Recorder counts how often products are surfaced in chat answers.
type Recorder struct {
	backend Backend
	now     func() time.Time
	logger  *slog.Logger
}

func NewRecorder(backend Backend, logger *slog.Logger) *Recorder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Recorder{backend: backend, now: time.Now, logger: logger.With("component", "analytics")}
}

// RecordInquiries bumps the counter of every retrieved product with an id in
// one atomic batch. A product retrieved twice is counted twice.
func (r *Recorder) RecordInquiries(ctx context.Context, products []catalog.Retrieved) error {
	ids := make([]string, 0, len(products))
	for _, p := range products {
		if strings.TrimSpace(p.ID) == "" {
			continue
		}
		ids = append(ids, p.ID)
	}
	if len(ids) == 0 {
		return nil
	}
	if err := r.backend.IncrementBatch(ctx, ids, r.now().UTC()); err != nil {
		return fmt.Errorf("record inquiries: %w", err)
	}
	r.logger.Debug("inquiries recorded", "products", len(ids))
	return nil
}

func (r *Recorder) Counter(ctx context.Context, productID string) (Counter, error) {
	return r.backend.Get(ctx, productID)
}
