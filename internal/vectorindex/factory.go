package vectorindex

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

type Config struct {
	// Backend is chromem, pinecone or pgvector.
	Backend     string
	ChromemPath string
	Collection  string
	Pinecone    PineconeConfig
	Dim         int
	Timeout     time.Duration
}

// New builds the configured backend. pool is required only for pgvector.
func New(ctx context.Context, cfg Config, pool *pgxpool.Pool) (Index, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Backend)) {
	case "", "chromem":
		return NewChromemIndex(cfg.ChromemPath, cfg.Collection)
	case "pinecone":
		pc := cfg.Pinecone
		if pc.Timeout == 0 {
			pc.Timeout = cfg.Timeout
		}
		return NewPineconeIndex(pc), nil
	case "pgvector":
		if pool == nil {
			return nil, fmt.Errorf("pgvector backend requires a postgres pool")
		}
		return NewPgVectorIndex(ctx, pool, cfg.Dim)
	default:
		return nil, fmt.Errorf("unsupported vector index backend %q", cfg.Backend)
	}
}
