package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/nmoreau/askme/internal/chat"
	"github.com/nmoreau/askme/internal/classify"
	"github.com/nmoreau/askme/internal/composer"
	"github.com/nmoreau/askme/internal/provider"
	"github.com/nmoreau/askme/internal/ratelimit"
	"github.com/nmoreau/askme/internal/retrieval"
)

const maxRequestBodySize = 1 << 20 // 1MB

// Error codes used in pre-stream JSON error bodies.
const (
	codeInvalidJSON       = "INVALID_JSON"
	codeRateLimitExceeded = "RATE_LIMIT_EXCEEDED"
	codeContextError      = "CONTEXT_ERROR"
	codeUnhandledError    = "UNHANDLED_ERROR"
)

// requestCost is the number of rate-limit tokens consumed per chat request.
const requestCost = 1

// Deps holds the wired components the HTTP layer orchestrates.
type Deps struct {
	Adapter   provider.Adapter
	Limiter   *ratelimit.Limiter
	Composer  *composer.Composer
	Retriever *retrieval.Retriever
	Defaults  chat.PromptConfig
}

// NewHandler returns the public HTTP API: the chat endpoint, a health
// probe, and a knowledge-base search endpoint for diagnostics.
func NewHandler(deps Deps) http.Handler {
	r := chi.NewRouter()

	r.Get("/health", handleHealth)
	r.Post("/chat", handleChat(deps))
	r.Options("/chat", handleChatOptions)
	r.Get("/kb/search", handleKBSearch(deps))

	return r
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}

func handleChatOptions(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
	w.WriteHeader(http.StatusNoContent)
}

type chatRequest struct {
	Messages       []chat.Message `json:"messages"`
	ConversationID string         `json:"conversationId"`
	Language       string         `json:"language"`
	UserName       string         `json:"userName"`
	Guardrails     *bool          `json:"guardrails"`
}

func handleChat(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		key := clientKey(r)
		if !deps.Limiter.Allow(key, requestCost) {
			retryAfter, ok := deps.Limiter.RetryAfter(key, requestCost)
			var details map[string]any
			if ok {
				secs := int(retryAfter.Seconds())
				w.Header().Set("Retry-After", fmt.Sprintf("%d", secs))
				details = map[string]any{"retryAfter": secs}
			}
			httpError(w, http.StatusTooManyRequests, codeRateLimitExceeded,
				"too many requests, slow down", details)
			return
		}

		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		defer r.Body.Close()

		var req chatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, codeInvalidJSON,
				fmt.Sprintf("invalid request body: %v", err), nil)
			return
		}

		for i := range req.Messages {
			req.Messages[i].Content = chat.Sanitize(req.Messages[i].Content)
		}

		if err := validateInbound(req.Messages, deps.Defaults.MaxMessageLength); err != nil {
			var verr *chat.ValidationError
			if errors.As(err, &verr) {
				httpError(w, http.StatusBadRequest, verr.Code, verr.Message, nil)
				return
			}
			httpError(w, http.StatusBadRequest, chat.CodeInvalidPayload, err.Error(), nil)
			return
		}

		convID := req.ConversationID
		if convID == "" {
			convID = uuid.New().String()
		}
		w.Header().Set("X-Conversation-Id", convID)

		userMsg := req.Messages[len(req.Messages)-1].Content
		history := req.Messages[:len(req.Messages)-1]

		guardrails := req.Guardrails
		if classify.IsJailbreak(userMsg) {
			forced := true
			guardrails = &forced
			slog.Warn("jailbreak heuristic triggered", "conversation_id", convID, "key", key)
		}

		cfg := deps.Defaults.Merge(req.Language, guardrails)

		messages, err := assemble(deps, userMsg, history, cfg, req.UserName)
		if err != nil {
			slog.Error("context assembly failed", "error", err, "conversation_id", convID)
			httpError(w, http.StatusInternalServerError, codeContextError,
				"failed to assemble conversation context", nil)
			return
		}

		ew, err := newEventWriter(w)
		if err != nil {
			httpError(w, http.StatusInternalServerError, codeUnhandledError,
				"streaming not supported", nil)
			return
		}

		stream, err := deps.Adapter.StreamChat(r.Context(), messages)
		if err != nil {
			perr := provider.Classify(err)
			slog.Error("provider stream failed to open",
				"provider", deps.Adapter.Name(), "code", perr.Code, "error", err,
				"conversation_id", convID)
			ew.WriteError(string(perr.Code), perr.Message)
			return
		}
		defer stream.Close()

		relay(r, ew, stream, convID)
	}
}

// relay pumps provider chunks to the client until the stream ends, an
// error occurs, or the client disconnects. Exactly one terminal event
// is written unless the client went away first.
func relay(r *http.Request, ew *eventWriter, stream provider.Stream, convID string) {
	for {
		select {
		case <-r.Context().Done():
			slog.Debug("client disconnected mid-stream", "conversation_id", convID)
			return
		default:
		}

		text, err := stream.Recv()
		if err == io.EOF {
			ew.WriteDone()
			return
		}
		if err != nil {
			// A disconnect cancels the request context, which surfaces
			// here as a Recv error. That is not a provider failure.
			if r.Context().Err() != nil {
				slog.Debug("client disconnected mid-stream", "conversation_id", convID)
				return
			}
			perr := provider.Classify(err)
			slog.Error("provider stream error", "code", perr.Code, "error", err,
				"conversation_id", convID)
			ew.WriteError(string(perr.Code), perr.Message)
			return
		}
		if text == "" {
			continue
		}
		if werr := ew.WriteContent(text); werr != nil {
			slog.Debug("client write failed", "error", werr, "conversation_id", convID)
			return
		}
	}
}

// validateInbound applies the shared message rules and additionally
// rejects system-role messages, which only the server may inject.
func validateInbound(msgs []chat.Message, maxLen int) error {
	for i, m := range msgs {
		if m.Role == chat.RoleSystem {
			return &chat.ValidationError{
				Code:    chat.CodeInvalidPayload,
				Message: fmt.Sprintf("message %d: system role is not accepted", i),
			}
		}
	}
	return chat.ValidateMessages(msgs, maxLen)
}

// assemble builds the outbound prompt. It fails only when the handler
// was wired without a composer, which means the knowledge base never
// loaded.
func assemble(deps Deps, userMsg string, history []chat.Message, cfg chat.PromptConfig, userName string) ([]chat.Message, error) {
	if deps.Composer == nil {
		return nil, errors.New("composer not configured")
	}
	return deps.Composer.BuildMessages(userMsg, history, cfg, userName), nil
}

// clientKey derives the rate-limit key for a request. Proxy headers
// win over the socket address because the server is expected to sit
// behind a reverse proxy.
func clientKey(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); ip != "" {
		return ip
	}
	return "unknown"
}

func handleKBSearch(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		query := strings.TrimSpace(r.URL.Query().Get("q"))
		if query == "" {
			httpError(w, http.StatusBadRequest, chat.CodeInvalidPayload,
				"query parameter q is required", nil)
			return
		}

		cfg := deps.Defaults.Merge(r.URL.Query().Get("lang"), nil)

		type searchResult struct {
			ID       string  `json:"id"`
			Topic    string  `json:"topic"`
			Question string  `json:"question"`
			Answer   string  `json:"answer"`
			Score    float64 `json:"score"`
		}

		scored := deps.Retriever.FindRelevant(query, cfg)
		results := make([]searchResult, len(scored))
		for i, s := range scored {
			results[i] = searchResult{
				ID:       s.Entry.ID,
				Topic:    s.Entry.Topic,
				Question: s.Entry.QuestionIn(cfg.Language),
				Answer:   s.Entry.AnswerIn(cfg.Language),
				Score:    s.Score,
			}
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{"results": results})
	}
}

func httpError(w http.ResponseWriter, status int, code, msg string, details map[string]any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	body := map[string]any{
		"error": msg,
		"code":  code,
	}
	if details != nil {
		body["details"] = details
	}
	json.NewEncoder(w).Encode(body)
}
