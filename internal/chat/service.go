package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/zulfachrienst/chatbot-rag/internal/catalog"
	"github.com/zulfachrienst/chatbot-rag/internal/embedding"
	"github.com/zulfachrienst/chatbot-rag/internal/history"
	"github.com/zulfachrienst/chatbot-rag/internal/observability"
	"github.com/zulfachrienst/chatbot-rag/internal/policy"
	"github.com/zulfachrienst/chatbot-rag/internal/vectorindex"
)

const (
	DefaultTopK  = 3
	ExpandedTopK = 50

	sideEffectTimeout = 5 * time.Second
	timestampLayout   = "2006-01-02T15:04:05.000Z07:00"
)

// ErrInvalidRequest is returned for an empty user id or message.
var ErrInvalidRequest = errors.New("user id and message are required")

type HistoryStore interface {
	Get(ctx context.Context, userID string) history.History
	Append(ctx context.Context, userID string, role history.Role, content string) error
}

type IntentClassifier interface {
	WantsExpandedResults(ctx context.Context, message string) (bool, error)
}

type Embedder interface {
	Embed(ctx context.Context, text string) (embedding.Vector, error)
}

type Searcher interface {
	Query(ctx context.Context, vec embedding.Vector, topK int) ([]vectorindex.Match, error)
}

type ProductLookup interface {
	Get(ctx context.Context, id string) (catalog.Product, error)
}

type ContextRenderer interface {
	Render(products []catalog.Retrieved) string
}

type ResponseGenerator interface {
	Generate(ctx context.Context, userMessage, productContext string, hist history.History) (string, error)
}

type InquiryRecorder interface {
	RecordInquiries(ctx context.Context, products []catalog.Retrieved) error
}

// Deps are the collaborators of a Service. All are required except Metrics
// and Logger.
type Deps struct {
	History    HistoryStore
	Classifier IntentClassifier
	Embedder   Embedder
	Index      Searcher
	Products   ProductLookup
	Renderer   ContextRenderer
	Generator  ResponseGenerator
	Analytics  InquiryRecorder
	Metrics    *observability.Metrics
	Logger     *slog.Logger
}

type Config struct {
	DefaultTopK  int
	ExpandedTopK int
}

// Result is what a caller gets back for one message.
type Result struct {
	Response        string              `json:"response"`
	RelatedProducts []catalog.Retrieved `json:"relatedProducts"`
	Timestamp       string              `json:"timestamp"`
}

// Service runs the retrieval-augmented answer pipeline for one message at a
// time. It holds no per-request state and is safe for concurrent use.
type Service struct {
	deps   Deps
	cfg    Config
	now    func() time.Time
	logger *slog.Logger
}

func NewService(deps Deps, cfg Config) (*Service, error) {
	switch {
	case deps.History == nil, deps.Classifier == nil, deps.Embedder == nil, deps.Index == nil,
		deps.Products == nil, deps.Renderer == nil, deps.Generator == nil, deps.Analytics == nil:
		return nil, errors.New("chat service: missing dependency")
	}
	if cfg.DefaultTopK <= 0 {
		cfg.DefaultTopK = DefaultTopK
	}
	if cfg.ExpandedTopK <= 0 {
		cfg.ExpandedTopK = ExpandedTopK
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{deps: deps, cfg: cfg, now: time.Now, logger: logger.With("component", "chat")}, nil
}

// ProcessMessage answers message for userID. Embedding, search and generation
// failures abort the run; classification, hydration, analytics and history
// writes degrade without failing it.
func (s *Service) ProcessMessage(ctx context.Context, userID, message string) (Result, error) {
	if strings.TrimSpace(userID) == "" || strings.TrimSpace(message) == "" {
		return Result{}, ErrInvalidRequest
	}
	started := time.Now()
	logger := s.logger.With("user", policy.LogSafe(userID, 0))
	logger.Info("processing message", "message", policy.LogSafe(message, 50))

	mark := time.Now()
	hist := s.deps.History.Get(ctx, userID)
	s.deps.Metrics.ObserveStage(observability.StageHistory, time.Since(mark))

	mark = time.Now()
	topK := s.cfg.DefaultTopK
	expanded, err := s.deps.Classifier.WantsExpandedResults(ctx, message)
	if err != nil {
		logger.Warn("intent classification failed, using default result size", "err", err)
		s.deps.Metrics.ObserveIndicator("intent_failed")
	} else if expanded {
		topK = s.cfg.ExpandedTopK
		s.deps.Metrics.ObserveIndicator("intent_expanded")
	}
	s.deps.Metrics.ObserveStage(observability.StageIntent, time.Since(mark))

	mark = time.Now()
	vec, err := s.deps.Embedder.Embed(ctx, message)
	if err != nil {
		return s.fail(logger, "embed", err)
	}
	s.deps.Metrics.ObserveStage(observability.StageEmbed, time.Since(mark))

	mark = time.Now()
	matches, err := s.deps.Index.Query(ctx, vec, topK)
	if err != nil {
		return s.fail(logger, "retrieve", err)
	}
	s.deps.Metrics.ObserveStage(observability.StageRetrieve, time.Since(mark))

	mark = time.Now()
	related := s.hydrate(ctx, logger, matches)
	s.deps.Metrics.ObserveStage(observability.StageHydrate, time.Since(mark))
	s.deps.Metrics.ObserveRetrieved(len(related))

	mark = time.Now()
	reply, err := s.deps.Generator.Generate(ctx, message, s.deps.Renderer.Render(related), hist)
	if err != nil {
		return s.fail(logger, "generate", err)
	}
	s.deps.Metrics.ObserveStage(observability.StageGenerate, time.Since(mark))

	s.recordInquiriesBestEffort(ctx, logger, related)
	s.appendTurnBestEffort(ctx, logger, userID, history.RoleUser, message)
	s.appendTurnBestEffort(ctx, logger, userID, history.RoleAssistant, reply)

	s.deps.Metrics.ObserveStage(observability.StageTotal, time.Since(started))
	s.deps.Metrics.ObserveChat("ok")
	logger.Info("message answered", "top_k", topK, "matches", len(matches), "products", len(related), "elapsed", time.Since(started))
	return Result{
		Response:        reply,
		RelatedProducts: related,
		Timestamp:       s.now().UTC().Format(timestampLayout),
	}, nil
}

// hydrate resolves matches into products in match order. Unknown ids are
// dropped; lookup failures are logged and dropped too.
func (s *Service) hydrate(ctx context.Context, logger *slog.Logger, matches []vectorindex.Match) []catalog.Retrieved {
	out := make([]catalog.Retrieved, 0, len(matches))
	for _, m := range matches {
		p, err := s.deps.Products.Get(ctx, m.ID)
		if errors.Is(err, catalog.ErrNotFound) {
			logger.Debug("match has no product, dropping", "product_id", m.ID)
			continue
		}
		if err != nil {
			logger.Warn("product lookup failed, dropping match", "product_id", m.ID, "err", err)
			s.deps.Metrics.ObserveIndicator("hydrate_failed")
			continue
		}
		if p.ID == "" {
			p.ID = m.ID
		}
		out = append(out, catalog.Retrieved{Product: p, Similarity: m.Score})
	}
	return out
}

func (s *Service) recordInquiriesBestEffort(ctx context.Context, logger *slog.Logger, related []catalog.Retrieved) {
	ctx, cancel := context.WithTimeout(ctx, sideEffectTimeout)
	defer cancel()
	if err := s.deps.Analytics.RecordInquiries(ctx, related); err != nil {
		logger.Warn("analytics update failed", "err", err)
		s.deps.Metrics.ObserveSideEffectFailure("analytics")
	}
}

func (s *Service) appendTurnBestEffort(ctx context.Context, logger *slog.Logger, userID string, role history.Role, content string) {
	ctx, cancel := context.WithTimeout(ctx, sideEffectTimeout)
	defer cancel()
	if err := s.deps.History.Append(ctx, userID, role, content); err != nil {
		logger.Warn("history append failed", "role", role, "err", err)
		s.deps.Metrics.ObserveSideEffectFailure("history")
	}
}

func (s *Service) fail(logger *slog.Logger, stage string, err error) (Result, error) {
	logger.Error("chat pipeline failed", "stage", stage, "err", err)
	s.deps.Metrics.ObserveChat(stage + "_failed")
	return Result{}, fmt.Errorf("process message: %s: %w", stage, err)
}
