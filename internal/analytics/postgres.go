package analytics

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresBackend keeps counters in product_analytics, one row per product.
type PostgresBackend struct {
	pool *pgxpool.Pool
}

func NewPostgresBackend(ctx context.Context, pool *pgxpool.Pool) (*PostgresBackend, error) {
	stmt := `CREATE TABLE IF NOT EXISTS product_analytics (
		product_id TEXT PRIMARY KEY,
		inquiry_count BIGINT NOT NULL DEFAULT 0,
		last_inquiry TIMESTAMPTZ NOT NULL
	);`
	if _, err := pool.Exec(ctx, stmt); err != nil {
		return nil, fmt.Errorf("init schema failed on %q: %w", stmt, err)
	}
	return &PostgresBackend{pool: pool}, nil
}

func (b *PostgresBackend) IncrementBatch(ctx context.Context, ids []string, at time.Time) error {
	tx, err := b.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, id := range ids {
		_, err := tx.Exec(ctx,
			`INSERT INTO product_analytics (product_id, inquiry_count, last_inquiry)
			 VALUES ($1, 1, $2)
			 ON CONFLICT (product_id) DO UPDATE SET
			   inquiry_count = product_analytics.inquiry_count + 1,
			   last_inquiry = EXCLUDED.last_inquiry`,
			id, at,
		)
		if err != nil {
			return fmt.Errorf("increment %s: %w", id, err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func (b *PostgresBackend) Get(ctx context.Context, productID string) (Counter, error) {
	c := Counter{ProductID: productID}
	err := b.pool.QueryRow(ctx,
		`SELECT inquiry_count, last_inquiry FROM product_analytics WHERE product_id=$1`, productID,
	).Scan(&c.InquiryCount, &c.LastInquiry)
	if errors.Is(err, pgx.ErrNoRows) {
		return Counter{}, ErrNoCounter
	}
	if err != nil {
		return Counter{}, fmt.Errorf("query counter: %w", err)
	}
	return c, nil
}
