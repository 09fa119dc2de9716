package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/zulfachrienst/chatbot-rag/internal/catalog"
	"github.com/zulfachrienst/chatbot-rag/internal/chat"
	"github.com/zulfachrienst/chatbot-rag/internal/config"
	"github.com/zulfachrienst/chatbot-rag/internal/history"
	"github.com/zulfachrienst/chatbot-rag/internal/observability"
	"github.com/zulfachrienst/chatbot-rag/internal/policy"
	"github.com/zulfachrienst/chatbot-rag/internal/protocol"
)

type ChatService interface {
	ProcessMessage(ctx context.Context, userID, message string) (chat.Result, error)
}

type HistoryAdmin interface {
	Get(ctx context.Context, userID string) history.History
	ListUsers(ctx context.Context) ([]string, error)
	Delete(ctx context.Context, userID string) error
}

type ProductAdmin interface {
	List(ctx context.Context) ([]catalog.Product, error)
	Get(ctx context.Context, id string) (catalog.Product, error)
	Create(ctx context.Context, p catalog.Product) (catalog.Product, error)
	Put(ctx context.Context, p catalog.Product) (catalog.Product, error)
	Delete(ctx context.Context, id string) error
}

// Deps are the services behind the HTTP surface. Products and Ready are
// optional; without Products the admin routes answer 501.
type Deps struct {
	Chat     ChatService
	History  HistoryAdmin
	Products ProductAdmin
	Ready    func(ctx context.Context) error
	Metrics  *observability.Metrics
	Logger   *slog.Logger
}

type Server struct {
	cfg      config.Config
	deps     Deps
	metrics  *observability.Metrics
	logger   *slog.Logger
	upgrader websocket.Upgrader
}

func New(cfg config.Config, deps Deps) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		cfg:     cfg,
		deps:    deps,
		metrics: deps.Metrics,
		logger:  logger.With("component", "httpapi"),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				if cfg.AllowAnyOrigin {
					return true
				}
				origin := strings.TrimSpace(r.Header.Get("Origin"))
				if origin == "" {
					// Non-browser bridges usually omit Origin.
					return true
				}
				u, err := url.Parse(origin)
				if err != nil {
					return false
				}
				if u.Scheme != "http" && u.Scheme != "https" {
					return false
				}
				return strings.EqualFold(u.Host, r.Host)
			},
		},
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Recoverer)

	r.Get("/", s.handleRoot)
	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		observability.MetricsHandler().ServeHTTP(w, r)
	})

	r.Post("/v1/chat", s.handleChat)
	r.Get("/v1/chat/ws", s.handleChatWS)
	r.Get("/v1/history", s.handleListHistory)
	r.Get("/v1/history/{userID}", s.handleGetHistory)
	r.Delete("/v1/history/{userID}", s.handleDeleteHistory)
	r.Get("/v1/products", s.handleListProducts)
	r.Get("/v1/products/{id}", s.handleGetProduct)
	r.Post("/v1/products", s.handlePutProduct)
	r.Delete("/v1/products/{id}", s.handleDeleteProduct)
	r.Get("/v1/perf/latency", s.handlePerfLatency)

	return r
}

func (s *Server) handleRoot(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"message":   "Chatbot RAG API is running",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"status":          "ok",
		"storage_backend": s.cfg.ResolvedStorageBackend(),
		"vector_index":    s.cfg.VectorIndexBackend,
	})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.deps.Ready != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()
		if err := s.deps.Ready(ctx); err != nil {
			s.logger.Warn("readiness check failed", "err", err)
			respondError(w, http.StatusServiceUnavailable, "not_ready", err.Error())
			return
		}
	}
	respondJSON(w, http.StatusOK, map[string]any{"status": "ready"})
}

type chatRequest struct {
	UserID  string `json:"userId"`
	Message string `json:"message"`
}

type chatResponse struct {
	Success   bool        `json:"success"`
	Data      chat.Result `json:"data"`
	RequestID string      `json:"request_id,omitempty"`
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "body must be a JSON object with userId and message")
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		respondError(w, http.StatusBadRequest, "invalid_request", "message is required and must be a string")
		return
	}
	if strings.TrimSpace(req.UserID) == "" {
		respondError(w, http.StatusBadRequest, "invalid_request", "userId is required and must be a string")
		return
	}

	requestID := middleware.GetReqID(r.Context())
	ctx, cancel := s.pipelineContext(r.Context())
	defer cancel()
	res, err := s.deps.Chat.ProcessMessage(ctx, req.UserID, req.Message)
	if err != nil {
		s.logger.Error("chat request failed", "request_id", requestID, "user", policy.LogSafe(req.UserID, 0), "err", err)
		respondError(w, http.StatusInternalServerError, "internal_error", "something went wrong")
		return
	}
	respondJSON(w, http.StatusOK, chatResponse{Success: true, Data: res, RequestID: requestID})
}

// pipelineContext detaches from the client connection so a disconnect does
// not abort retries half way, while still bounding the run.
func (s *Server) pipelineContext(parent context.Context) (context.Context, context.CancelFunc) {
	ctx := context.WithoutCancel(parent)
	if s.cfg.RequestTimeout > 0 {
		return context.WithTimeout(ctx, s.cfg.RequestTimeout)
	}
	return context.WithCancel(ctx)
}

func (s *Server) handleListHistory(w http.ResponseWriter, r *http.Request) {
	users, err := s.deps.History.ListUsers(r.Context())
	if err != nil {
		s.logger.Error("list history users failed", "err", err)
		respondError(w, http.StatusInternalServerError, "internal_error", "could not list users")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"success": true, "data": users})
}

func (s *Server) handleGetHistory(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	if strings.TrimSpace(userID) == "" {
		respondError(w, http.StatusBadRequest, "invalid_user_id", "missing user id")
		return
	}
	h := s.deps.History.Get(r.Context(), userID)
	if h == nil {
		h = history.History{}
	}
	respondJSON(w, http.StatusOK, map[string]any{"success": true, "data": h})
}

func (s *Server) handleDeleteHistory(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	if err := s.deps.History.Delete(r.Context(), userID); err != nil {
		if errors.Is(err, history.ErrInvalidUser) {
			respondError(w, http.StatusBadRequest, "invalid_user_id", err.Error())
			return
		}
		s.logger.Error("delete history failed", "user", policy.LogSafe(userID, 0), "err", err)
		respondError(w, http.StatusInternalServerError, "internal_error", "could not delete history")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListProducts(w http.ResponseWriter, r *http.Request) {
	if s.deps.Products == nil {
		respondError(w, http.StatusNotImplemented, "unavailable", "product admin not configured")
		return
	}
	products, err := s.deps.Products.List(r.Context())
	if err != nil {
		s.logger.Error("product list failed", "err", err)
		respondError(w, http.StatusInternalServerError, "internal_error", "could not list products")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"success": true, "data": products, "count": len(products)})
}

func (s *Server) handleGetProduct(w http.ResponseWriter, r *http.Request) {
	if s.deps.Products == nil {
		respondError(w, http.StatusNotImplemented, "unavailable", "product admin not configured")
		return
	}
	id := chi.URLParam(r, "id")
	p, err := s.deps.Products.Get(r.Context(), id)
	if errors.Is(err, catalog.ErrNotFound) {
		respondError(w, http.StatusNotFound, "not_found", "product not found")
		return
	}
	if err != nil {
		s.logger.Error("product lookup failed", "product_id", id, "err", err)
		respondError(w, http.StatusInternalServerError, "internal_error", "could not load product")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"success": true, "data": p})
}

// handlePutProduct creates a product when the body has no id and merges into
// the stored product otherwise.
func (s *Server) handlePutProduct(w http.ResponseWriter, r *http.Request) {
	if s.deps.Products == nil {
		respondError(w, http.StatusNotImplemented, "unavailable", "product admin not configured")
		return
	}
	var p catalog.Product
	if err := decodeJSON(r, &p); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	create := strings.TrimSpace(p.ID) == ""
	if create && (strings.TrimSpace(p.Name) == "" || strings.TrimSpace(p.Description) == "") {
		respondError(w, http.StatusBadRequest, "invalid_request", "name and description are required")
		return
	}
	ctx, cancel := s.pipelineContext(r.Context())
	defer cancel()

	var (
		stored catalog.Product
		err    error
	)
	if create {
		stored, err = s.deps.Products.Create(ctx, p)
	} else {
		stored, err = s.deps.Products.Put(ctx, p)
	}
	if errors.Is(err, catalog.ErrDuplicateName) {
		respondError(w, http.StatusConflict, "duplicate_product", "a product with this name already exists")
		return
	}
	if errors.Is(err, catalog.ErrInvalidProduct) {
		respondError(w, http.StatusBadRequest, "invalid_request", "name is required for a new product")
		return
	}
	if err != nil {
		s.logger.Error("product upsert failed", "product_id", p.ID, "err", err)
		respondError(w, http.StatusInternalServerError, "internal_error", "could not store product")
		return
	}
	status := http.StatusOK
	if create {
		status = http.StatusCreated
	}
	respondJSON(w, status, map[string]any{"success": true, "data": stored})
}

func (s *Server) handleDeleteProduct(w http.ResponseWriter, r *http.Request) {
	if s.deps.Products == nil {
		respondError(w, http.StatusNotImplemented, "unavailable", "product admin not configured")
		return
	}
	id := chi.URLParam(r, "id")
	if err := s.deps.Products.Delete(r.Context(), id); err != nil {
		s.logger.Error("product delete failed", "product_id", id, "err", err)
		respondError(w, http.StatusInternalServerError, "internal_error", "could not delete product")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleChatWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	s.metrics.ObserveIndicator("ws_connected")

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	inbound := make(chan protocol.ChatMessage, 32)
	outbound := make(chan any, 32)
	runDone := make(chan struct{})

	go func() {
		defer close(runDone)
		defer close(outbound)
		s.runChatConnection(ctx, inbound, outbound)
	}()

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		for msg := range outbound {
			_ = conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := conn.WriteJSON(msg); err != nil {
				s.logger.Warn("websocket write failed", "err", err)
				cancel()
				// Keep draining so the runner never blocks on a dead socket.
				for range outbound {
				}
				return
			}
		}
	}()

	outbound <- protocol.SystemEvent{Type: protocol.TypeSystemEvent, Code: "ready"}

	conn.SetReadLimit(64 << 10)
	_ = conn.SetReadDeadline(time.Now().Add(120 * time.Second))
	conn.SetPongHandler(func(string) error {
		_ = conn.SetReadDeadline(time.Now().Add(120 * time.Second))
		return nil
	})

readLoop:
	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			break
		}
		if msgType != websocket.TextMessage {
			continue
		}
		_ = conn.SetReadDeadline(time.Now().Add(120 * time.Second))
		parsed, err := protocol.ParseClientMessage(data)
		if err != nil {
			select {
			case outbound <- protocol.ErrorEvent{
				Type:   protocol.TypeErrorEvent,
				Code:   "invalid_client_message",
				Detail: err.Error(),
			}:
			case <-ctx.Done():
				break readLoop
			}
			continue
		}
		msg := parsed.(protocol.ChatMessage)
		if msg.RequestID == "" {
			msg.RequestID = uuid.NewString()
		}
		select {
		case <-ctx.Done():
			break readLoop
		case inbound <- msg:
		}
	}

	close(inbound)
	<-runDone
	cancel()
	<-writerDone
	s.metrics.ObserveIndicator("ws_disconnected")
}

// runChatConnection answers socket messages one at a time, in arrival order.
// Runs are detached from the socket so an answer in flight still reaches
// history when the peer goes away.
func (s *Server) runChatConnection(ctx context.Context, inbound <-chan protocol.ChatMessage, outbound chan<- any) {
	for msg := range inbound {
		runCtx, cancel := s.pipelineContext(ctx)
		res, err := s.deps.Chat.ProcessMessage(runCtx, msg.UserID, msg.Message)
		cancel()

		var out any
		if err != nil {
			s.logger.Error("websocket chat failed", "request_id", msg.RequestID, "user", policy.LogSafe(msg.UserID, 0), "err", err)
			out = protocol.ErrorEvent{
				Type:      protocol.TypeErrorEvent,
				RequestID: msg.RequestID,
				Code:      "chat_failed",
				Retryable: true,
				Detail:    "something went wrong",
			}
		} else {
			out = toChatReply(msg, res)
		}
		if ctx.Err() != nil {
			continue
		}
		outbound <- out
	}
}

func toChatReply(msg protocol.ChatMessage, res chat.Result) protocol.ChatReply {
	related := make([]protocol.RelatedProduct, 0, len(res.RelatedProducts))
	for _, p := range res.RelatedProducts {
		related = append(related, protocol.RelatedProduct{
			ID:         p.ID,
			Name:       p.Name,
			Price:      p.EffectivePrice(),
			Similarity: p.Similarity,
		})
	}
	return protocol.ChatReply{
		Type:            protocol.TypeChatReply,
		RequestID:       msg.RequestID,
		UserID:          msg.UserID,
		Response:        res.Response,
		RelatedProducts: related,
		Timestamp:       res.Timestamp,
	}
}

type errorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Code    string `json:"code"`
}

var errEmptyBody = errors.New("empty body")

func decodeJSON(r *http.Request, out any) error {
	if r.Body == nil {
		return errEmptyBody
	}
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(out); err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "eof") {
			return errEmptyBody
		}
		return err
	}
	return nil
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, errorResponse{Error: message, Code: code})
}
