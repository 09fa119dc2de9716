package history

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresBackend keeps each user's history as one JSONB document.
type PostgresBackend struct {
	pool *pgxpool.Pool
}

func NewPostgresBackend(ctx context.Context, pool *pgxpool.Pool) (*PostgresBackend, error) {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS chat_history (
			user_id TEXT PRIMARY KEY,
			history JSONB NOT NULL DEFAULT '[]'::jsonb,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);`,
	}
	for _, stmt := range stmts {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return nil, fmt.Errorf("init schema failed on %q: %w", stmt, err)
		}
	}
	return &PostgresBackend{pool: pool}, nil
}

func (b *PostgresBackend) Load(ctx context.Context, userID string) (History, bool, error) {
	var raw []byte
	err := b.pool.QueryRow(ctx, `SELECT history FROM chat_history WHERE user_id=$1`, userID).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("query history: %w", err)
	}
	var h History
	if err := json.Unmarshal(raw, &h); err != nil {
		return nil, false, fmt.Errorf("decode history: %w", err)
	}
	return h, true, nil
}

func (b *PostgresBackend) Save(ctx context.Context, userID string, h History) error {
	if h == nil {
		h = History{}
	}
	raw, err := json.Marshal(h)
	if err != nil {
		return fmt.Errorf("encode history: %w", err)
	}
	_, err = b.pool.Exec(ctx,
		`INSERT INTO chat_history (user_id, history, updated_at)
		 VALUES ($1, $2, now())
		 ON CONFLICT (user_id) DO UPDATE SET history = EXCLUDED.history, updated_at = now()`,
		userID, raw,
	)
	if err != nil {
		return fmt.Errorf("save history: %w", err)
	}
	return nil
}

func (b *PostgresBackend) Delete(ctx context.Context, userID string) error {
	if _, err := b.pool.Exec(ctx, `DELETE FROM chat_history WHERE user_id=$1`, userID); err != nil {
		return fmt.Errorf("delete history: %w", err)
	}
	return nil
}

func (b *PostgresBackend) ListUsers(ctx context.Context) ([]string, error) {
	rows, err := b.pool.Query(ctx, `SELECT user_id FROM chat_history ORDER BY user_id`)
	if err != nil {
		return nil, fmt.Errorf("query users: %w", err)
	}
	users, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("scan users: %w", err)
	}
	return users, nil
}

// Close is a no-op; the pool is owned by the caller.
func (b *PostgresBackend) Close() error { return nil }
