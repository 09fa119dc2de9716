package vectorindex

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/zulfachrienst/chatbot-rag/internal/embedding"
)

// PgVectorIndex stores vectors in PostgreSQL with the pgvector extension and
// ranks by cosine similarity. The pool is owned by the caller.
type PgVectorIndex struct {
	pool *pgxpool.Pool
	dim  int
}

func NewPgVectorIndex(ctx context.Context, pool *pgxpool.Pool, dim int) (*PgVectorIndex, error) {
	if dim <= 0 {
		return nil, wrap("open", fmt.Errorf("dimension must be positive"))
	}
	stmts := []string{
		`CREATE EXTENSION IF NOT EXISTS vector;`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS product_vectors (
			id TEXT PRIMARY KEY,
			embedding vector(%d) NOT NULL,
			metadata JSONB NOT NULL DEFAULT '{}'::jsonb,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);`, dim),
		`CREATE INDEX IF NOT EXISTS idx_product_vectors_embedding ON product_vectors USING hnsw (embedding vector_cosine_ops);`,
	}
	for _, stmt := range stmts {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return nil, wrap("init schema", fmt.Errorf("%q: %w", stmt, err))
		}
	}
	return &PgVectorIndex{pool: pool, dim: dim}, nil
}

func (x *PgVectorIndex) checkDim(vec embedding.Vector) error {
	if len(vec) != x.dim {
		return fmt.Errorf("vector length %d does not match dimension %d", len(vec), x.dim)
	}
	return nil
}

func (x *PgVectorIndex) Upsert(ctx context.Context, entries []Entry) error {
	if len(entries) == 0 {
		return nil
	}
	tx, err := x.pool.Begin(ctx)
	if err != nil {
		return wrap("upsert", err)
	}
	defer tx.Rollback(ctx)

	for _, e := range entries {
		if err := x.checkDim(e.Vector); err != nil {
			return wrap("upsert", fmt.Errorf("entry %q: %w", e.ID, err))
		}
		meta, err := json.Marshal(e.Metadata)
		if err != nil {
			return wrap("upsert", fmt.Errorf("marshal metadata: %w", err))
		}
		_, err = tx.Exec(ctx,
			`INSERT INTO product_vectors (id, embedding, metadata, updated_at)
			 VALUES ($1, $2::vector, $3, now())
			 ON CONFLICT (id) DO UPDATE SET
			   embedding = EXCLUDED.embedding,
			   metadata = EXCLUDED.metadata,
			   updated_at = now()`,
			e.ID, pgvector.NewVector(e.Vector), meta,
		)
		if err != nil {
			return wrap("upsert", err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return wrap("upsert", err)
	}
	return nil
}

func (x *PgVectorIndex) Query(ctx context.Context, vec embedding.Vector, topK int) ([]Match, error) {
	if topK <= 0 {
		return []Match{}, nil
	}
	if err := x.checkDim(vec); err != nil {
		return nil, wrap("query", err)
	}
	rows, err := x.pool.Query(ctx,
		`SELECT id, 1 - (embedding <=> $1::vector) AS score
		 FROM product_vectors
		 ORDER BY embedding <=> $1::vector
		 LIMIT $2`,
		pgvector.NewVector(vec), topK,
	)
	if err != nil {
		return nil, wrap("query", err)
	}
	defer rows.Close()

	out := make([]Match, 0, topK)
	for rows.Next() {
		var m Match
		var score float64
		if err := rows.Scan(&m.ID, &score); err != nil {
			return nil, wrap("query", fmt.Errorf("scan row: %w", err))
		}
		m.Score = float32(score)
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, wrap("query", err)
	}
	return out, nil
}

func (x *PgVectorIndex) Delete(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	if _, err := x.pool.Exec(ctx, `DELETE FROM product_vectors WHERE id = ANY($1)`, ids); err != nil {
		return wrap("delete", err)
	}
	return nil
}

func (x *PgVectorIndex) Close() error { return nil }
