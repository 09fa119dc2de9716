package app

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/zulfachrienst/chatbot-rag/internal/analytics"
	"github.com/zulfachrienst/chatbot-rag/internal/catalog"
	"github.com/zulfachrienst/chatbot-rag/internal/chat"
	"github.com/zulfachrienst/chatbot-rag/internal/config"
	"github.com/zulfachrienst/chatbot-rag/internal/embedding"
	"github.com/zulfachrienst/chatbot-rag/internal/generator"
	"github.com/zulfachrienst/chatbot-rag/internal/history"
	"github.com/zulfachrienst/chatbot-rag/internal/httpapi"
	"github.com/zulfachrienst/chatbot-rag/internal/intent"
	"github.com/zulfachrienst/chatbot-rag/internal/llm"
	"github.com/zulfachrienst/chatbot-rag/internal/observability"
	"github.com/zulfachrienst/chatbot-rag/internal/promptctx"
	"github.com/zulfachrienst/chatbot-rag/internal/vectorindex"
)

type BuildResult struct {
	Config    config.Config
	API       *httpapi.Server
	Chat      *chat.Service
	History   *history.Store
	Products  catalog.Store
	Indexer   *catalog.Indexer
	Analytics *analytics.Recorder
	Metrics   *observability.Metrics
	Storage   string

	// Cleanup should be called on shutdown to release external resources (DB, index files, etc).
	Cleanup func() error
}

// Build wires every component from cfg. Metrics may be nil for one-shot CLI
// commands that never serve /metrics.
func Build(ctx context.Context, cfg config.Config, metrics *observability.Metrics, logger *slog.Logger) (*BuildResult, error) {
	if logger == nil {
		logger = slog.Default()
	}

	storage, err := resolveStorage(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	closeStorage := func() error {
		if storage.cleanup == nil {
			return nil
		}
		return storage.cleanup()
	}

	index, err := vectorindex.New(ctx, vectorindex.Config{
		Backend:     cfg.VectorIndexBackend,
		ChromemPath: cfg.ChromemPath,
		Collection:  cfg.VectorCollection,
		Pinecone: vectorindex.PineconeConfig{
			APIKey:    cfg.PineconeAPIKey,
			IndexHost: cfg.PineconeIndexHost,
			Namespace: cfg.PineconeNamespace,
		},
		Dim:     cfg.EmbeddingDim,
		Timeout: cfg.EmbeddingTimeout,
	}, storage.pool)
	if err != nil {
		_ = closeStorage()
		return nil, fmt.Errorf("vector index init failed: %w", err)
	}

	embedProvider, err := embedding.NewProvider(embedding.ProviderConfig{
		Provider:      cfg.EmbeddingProvider,
		BaseURL:       cfg.EmbeddingBaseURL,
		APIKey:        cfg.EmbeddingAPIKey,
		Model:         cfg.EmbeddingModel,
		Dim:           cfg.EmbeddingDim,
		Timeout:       cfg.EmbeddingTimeout,
		RatePerSecond: cfg.EmbeddingRatePerSecond,
	})
	if err != nil {
		_ = index.Close()
		_ = closeStorage()
		return nil, fmt.Errorf("embedding provider init failed: %w", err)
	}
	embedder := embedding.NewClient(embedProvider, embedding.Options{
		MaxRetries: cfg.EmbeddingMaxRetries,
		BaseDelay:  cfg.EmbeddingRetryBaseDelay,
		Logger:     logger,
		Metrics:    metrics,
	})

	completer, err := llm.NewCompleter(llm.Config{
		Provider:      cfg.LLMProvider,
		BaseURL:       cfg.LLMBaseURL,
		APIKey:        cfg.LLMAPIKey,
		Model:         cfg.LLMModel,
		Temperature:   cfg.LLMTemperature,
		MaxTokens:     cfg.LLMMaxTokens,
		Timeout:       cfg.LLMTimeout,
		RatePerSecond: cfg.LLMRatePerSecond,
	})
	if err != nil {
		_ = index.Close()
		_ = closeStorage()
		return nil, fmt.Errorf("llm init failed: %w", err)
	}

	historyStore := history.NewStore(storage.history, history.Options{
		MaxTurns: cfg.HistoryMaxTurns,
		Logger:   logger,
	})
	products := catalog.NewCachedStore(storage.products, cfg.CatalogCacheSize, cfg.CatalogCacheTTL)
	recorder := analytics.NewRecorder(storage.analytics, logger)
	indexer := catalog.NewIndexer(products, embedder, index, logger)

	chatService, err := chat.NewService(chat.Deps{
		History:    historyStore,
		Classifier: intent.NewClassifier(completer, cfg.IntentModel),
		Embedder:   embedder,
		Index:      index,
		Products:   products,
		Renderer:   promptctx.Builder{Currency: cfg.CurrencySymbol},
		Generator: generator.New(completer, generator.Options{
			MaxRetries: cfg.GenerationMaxRetries,
			BaseDelay:  cfg.GenerationRetryBaseDelay,
			Logger:     logger,
			Metrics:    metrics,
		}),
		Analytics: recorder,
		Metrics:   metrics,
		Logger:    logger,
	}, chat.Config{
		DefaultTopK:  cfg.DefaultTopK,
		ExpandedTopK: cfg.ExpandedTopK,
	})
	if err != nil {
		_ = index.Close()
		_ = closeStorage()
		return nil, err
	}

	api := httpapi.New(cfg, httpapi.Deps{
		Chat:     chatService,
		History:  historyStore,
		Products: indexer,
		Ready:    storage.ready,
		Metrics:  metrics,
		Logger:   logger,
	})

	logger.Info("components ready",
		"storage", storage.detail,
		"vector_index", cfg.VectorIndexBackend,
		"embedding", embedProvider.Name(),
		"llm_model", cfg.LLMModel,
	)

	cleanup := func() error {
		var errs []string
		if err := index.Close(); err != nil {
			errs = append(errs, err.Error())
		}
		if err := historyStore.Close(); err != nil {
			errs = append(errs, err.Error())
		}
		if err := closeStorage(); err != nil {
			errs = append(errs, err.Error())
		}
		if len(errs) > 0 {
			return fmt.Errorf("%s", strings.Join(errs, "; "))
		}
		return nil
	}

	return &BuildResult{
		Config:    cfg,
		API:       api,
		Chat:      chatService,
		History:   historyStore,
		Products:  products,
		Indexer:   indexer,
		Analytics: recorder,
		Metrics:   metrics,
		Storage:   storage.detail,
		Cleanup:   cleanup,
	}, nil
}
