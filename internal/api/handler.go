// Package api exposes the question-answering service over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"balance-sheet-rag/internal/database"
	"balance-sheet-rag/internal/models"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"
)

// Querier answers one question.
type Querier interface {
	Query(ctx context.Context, req models.QueryRequest) models.Response
}

// CompanyResolver maps a company code to its id.
type CompanyResolver interface {
	CompanyByCode(ctx context.Context, code string) (int64, error)
}

// ChatMessage is one turn of the conversation.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatRequest is the body of POST /chat/query. Exactly one of DocumentID,
// CompanyCode or CompanyID selects the scope.
type ChatRequest struct {
	DocumentID  int64         `json:"document_id,omitempty"`
	CompanyCode string        `json:"company_code,omitempty"`
	CompanyID   int64         `json:"company_id,omitempty"`
	Role        string        `json:"role"`
	Messages    []ChatMessage `json:"messages"`
}

// Handler serves the chat endpoints
type Handler struct {
	service   Querier
	companies CompanyResolver
	timeout   time.Duration
}

// NewHandler creates a new handler. timeout bounds each query; zero disables it.
func NewHandler(service Querier, companies CompanyResolver, timeout time.Duration) *Handler {
	return &Handler{service: service, companies: companies, timeout: timeout}
}

// Router registers the routes on a new mux router.
func (h *Handler) Router() *mux.Router {
	router := mux.NewRouter()
	router.HandleFunc("/health", h.Health).Methods(http.MethodGet)
	router.HandleFunc("/chat/query", h.ChatQuery).Methods(http.MethodPost)
	router.Use(logRequests)
	return router
}

// Health reports liveness.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// ChatQuery answers the latest message of the conversation.
func (h *Handler) ChatQuery(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	if len(req.Messages) == 0 {
		writeError(w, http.StatusBadRequest, "messages must not be empty")
		return
	}
	for _, m := range req.Messages {
		if m.Role != "user" && m.Role != "assistant" {
			writeError(w, http.StatusBadRequest, "message role must be user or assistant")
			return
		}
	}

	ctx := r.Context()
	if h.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.timeout)
		defer cancel()
	}

	scope, status, err := h.resolveScope(ctx, req)
	if err != nil {
		writeError(w, status, err.Error())
		return
	}

	resp := h.service.Query(ctx, models.QueryRequest{
		Scope:    scope,
		Role:     req.Role,
		Question: req.Messages[len(req.Messages)-1].Content,
	})
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) resolveScope(ctx context.Context, req ChatRequest) (models.Scope, int, error) {
	set := 0
	for _, ok := range []bool{req.DocumentID > 0, req.CompanyCode != "", req.CompanyID > 0} {
		if ok {
			set++
		}
	}
	if set != 1 {
		return models.Scope{}, http.StatusBadRequest,
			errors.New("exactly one of document_id, company_code or company_id is required")
	}

	switch {
	case req.DocumentID > 0:
		return models.Scope{DocumentID: req.DocumentID}, 0, nil
	case req.CompanyID > 0:
		return models.Scope{CompanyID: req.CompanyID}, 0, nil
	}

	id, err := h.companies.CompanyByCode(ctx, req.CompanyCode)
	if errors.Is(err, database.ErrNotFound) {
		return models.Scope{}, http.StatusNotFound, errors.New("company not found")
	}
	if err != nil {
		log.Error().Err(err).Str("company_code", req.CompanyCode).Msg("company lookup failed")
		return models.Scope{}, http.StatusInternalServerError, errors.New("company lookup failed")
	}
	return models.Scope{CompanyID: id}, 0, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("failed to write response")
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// statusRecorder captures the status code for request logging.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", rec.status).
			Dur("elapsed", time.Since(start)).
			Msg("request")
	})
}
