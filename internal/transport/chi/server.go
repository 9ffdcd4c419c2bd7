// Package chi exposes the chat pipeline over HTTP.
package chi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/coachchat/coachchat/internal/domain"
	chatuc "github.com/coachchat/coachchat/internal/usecase/chat"
	healthuc "github.com/coachchat/coachchat/internal/usecase/health"
	"github.com/coachchat/coachchat/internal/usecase/session"
)

// Error codes returned in the "code" field of error responses.
const (
	codeBadRequest      = "bad_request"
	codeValidation      = "validation_failed"
	codeSessionNotFound = "session_not_found"
	codePipelineFailed  = "pipeline_failed"
	codeInternalError   = "internal_error"
)

// pipelineFailedMessage is the only text users see when retrieval or
// generation fails. Provider error text stays in the logs.
const pipelineFailedMessage = "We couldn't process your question. Please try again."

const maxQueryBytes = 16 << 10

// Server handles the chat API.
type Server struct {
	chat     *chatuc.Service
	sessions *session.Store
	health   *healthuc.Service
	logger   *zap.Logger
}

// NewServer creates an HTTP API server.
func NewServer(
	chat *chatuc.Service,
	sessions *session.Store,
	health *healthuc.Service,
	logger *zap.Logger,
) *Server {
	return &Server{chat: chat, sessions: sessions, health: health, logger: logger}
}

// Routes mounts all handlers on the given router.
func (s *Server) Routes(r chi.Router) {
	r.Post("/api/v1/chat", s.handleChat)
	r.Get("/api/v1/sessions/{id}", s.handleGetSession)
	r.Get("/health", s.handleHealth)
	r.Get("/metrics", promhttp.Handler().ServeHTTP)
}

type chatRequest struct {
	SessionID string `json:"session_id,omitempty"`
	Query     string `json:"query"`
}

type chatResponse struct {
	SessionID       string                  `json:"session_id"`
	Answer          string                  `json:"answer"`
	Recommendations []domain.Recommendation `json:"recommendations"`
	ResponseTimeMs  int64                   `json:"response_time_ms"`
}

// handleChat handles POST /api/v1/chat.
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxQueryBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "invalid request body")
		return
	}

	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = s.sessions.Create()
	} else if !s.sessions.Exists(sessionID) {
		writeError(w, http.StatusNotFound, codeSessionNotFound, "session not found")
		return
	}

	answer, err := s.chat.Process(r.Context(), req.Query)
	if err != nil {
		s.handleChatError(w, r, err)
		return
	}

	if err := s.sessions.Append(sessionID,
		domain.ChatTurn{Role: domain.RoleUser, Content: req.Query},
		domain.ChatTurn{
			Role:            domain.RoleAssistant,
			Content:         answer.Text,
			Recommendations: answer.Recommendations,
			ResponseTime:    answer.Elapsed,
		},
	); err != nil {
		// Session swept between the check and the append.
		writeError(w, http.StatusNotFound, codeSessionNotFound, "session not found")
		return
	}

	recs := answer.Recommendations
	if recs == nil {
		recs = []domain.Recommendation{}
	}

	writeJSON(w, http.StatusOK, chatResponse{
		SessionID:       sessionID,
		Answer:          answer.Text,
		Recommendations: recs,
		ResponseTimeMs:  answer.Elapsed.Milliseconds(),
	})
}

type sessionResponse struct {
	SessionID string            `json:"session_id"`
	Turns     []domain.ChatTurn `json:"turns"`
}

// handleGetSession handles GET /api/v1/sessions/{id}.
func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	turns, err := s.sessions.History(id)
	if err != nil {
		writeError(w, http.StatusNotFound, codeSessionNotFound, "session not found")
		return
	}
	if turns == nil {
		turns = []domain.ChatTurn{}
	}

	writeJSON(w, http.StatusOK, sessionResponse{SessionID: id, Turns: turns})
}

// handleHealth handles GET /health.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	httpStatus := http.StatusOK
	if report.Status != healthuc.Healthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, map[string]any{
		"status": report.Status,
		"checks": report.Checks,
	})
}

// handleChatError maps pipeline errors to HTTP responses. Transient
// failures share one generic client message; the cause is logged only.
func (s *Server) handleChatError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, domain.ErrEmptyQuery):
		writeError(w, http.StatusBadRequest, codeValidation, "query must not be empty")
	case errors.Is(err, domain.ErrIndexUnavailable):
		s.logger.Error("Chat pipeline failed", zap.Error(err))
		writeError(w, http.StatusServiceUnavailable, codePipelineFailed, pipelineFailedMessage)
	case errors.Is(err, domain.ErrEmbeddingProvider),
		errors.Is(err, domain.ErrGenerationFailed):
		s.logger.Error("Chat pipeline failed", zap.Error(err))
		writeError(w, http.StatusBadGateway, codePipelineFailed, pipelineFailedMessage)
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		s.logger.Warn("Chat request canceled", zap.Error(err))
		writeError(w, http.StatusRequestTimeout, codePipelineFailed, pipelineFailedMessage)
	default:
		s.logger.Error("Internal error", zap.Error(err))
		writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{Code: code, Message: message})
}
