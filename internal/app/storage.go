package app

import (
	"context"
	"fmt"
	"log/slog"

	"cloud.google.com/go/firestore"
	"github.com/jackc/pgx/v5/pgxpool"
	"google.golang.org/api/option"

	"github.com/zulfachrienst/chatbot-rag/internal/analytics"
	"github.com/zulfachrienst/chatbot-rag/internal/catalog"
	"github.com/zulfachrienst/chatbot-rag/internal/config"
	"github.com/zulfachrienst/chatbot-rag/internal/history"
)

type storageSetup struct {
	history   history.Backend
	products  catalog.Store
	analytics analytics.Backend
	pool      *pgxpool.Pool
	detail    string
	ready     func(ctx context.Context) error
	cleanup   func() error
}

// resolveStorage opens the document store shared by history, products and
// analytics. One pool or client is opened and handed to every backend.
func resolveStorage(ctx context.Context, cfg config.Config, logger *slog.Logger) (storageSetup, error) {
	switch mode := cfg.ResolvedStorageBackend(); mode {
	case "memory":
		logger.Warn("using in-memory storage; history, products and analytics are lost on restart")
		return storageSetup{
			history:   history.NewInMemoryBackend(),
			products:  catalog.NewInMemoryStore(),
			analytics: analytics.NewInMemoryBackend(),
			detail:    "memory",
		}, nil
	case "postgres":
		return openPostgres(ctx, cfg)
	case "firestore":
		return openFirestore(ctx, cfg)
	default:
		return storageSetup{}, fmt.Errorf("unsupported storage backend %q", mode)
	}
}

func openPostgres(ctx context.Context, cfg config.Config) (storageSetup, error) {
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return storageSetup{}, fmt.Errorf("postgres connect failed: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return storageSetup{}, fmt.Errorf("postgres ping failed: %w", err)
	}
	fail := func(what string, err error) (storageSetup, error) {
		pool.Close()
		return storageSetup{}, fmt.Errorf("%s init failed: %w", what, err)
	}
	hist, err := history.NewPostgresBackend(ctx, pool)
	if err != nil {
		return fail("history store", err)
	}
	products, err := catalog.NewPostgresStore(ctx, pool)
	if err != nil {
		return fail("product store", err)
	}
	counters, err := analytics.NewPostgresBackend(ctx, pool)
	if err != nil {
		return fail("analytics store", err)
	}
	return storageSetup{
		history:   hist,
		products:  products,
		analytics: counters,
		pool:      pool,
		detail:    "postgres",
		ready:     pool.Ping,
		cleanup: func() error {
			pool.Close()
			return nil
		},
	}, nil
}

func openFirestore(ctx context.Context, cfg config.Config) (storageSetup, error) {
	var opts []option.ClientOption
	if cfg.FirestoreCredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.FirestoreCredentialsFile))
	}
	client, err := firestore.NewClient(ctx, cfg.FirestoreProjectID, opts...)
	if err != nil {
		return storageSetup{}, fmt.Errorf("firestore client init failed: %w", err)
	}
	return storageSetup{
		history:   history.NewFirestoreBackend(client, cfg.HistoryCollection),
		products:  catalog.NewFirestoreStore(client, cfg.ProductsCollection),
		analytics: analytics.NewFirestoreBackend(client, cfg.AnalyticsCollection),
		detail:    "firestore:" + cfg.FirestoreProjectID,
		cleanup:   client.Close,
	}, nil
}
