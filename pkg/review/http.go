package review

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/matchgrid-ai/platform/pkg/common/logger"
	"github.com/matchgrid-ai/platform/pkg/common/models"
)

// HTTPHandler is the JSON presentation adapter.
type HTTPHandler struct {
	service    *Service
	projection Projection
}

func NewHTTPHandler(service *Service, projection Projection) *HTTPHandler {
	return &HTTPHandler{service: service, projection: projection}
}

func (h *HTTPHandler) Register(router *mux.Router) {
	router.HandleFunc("/review", h.handleBegin).Methods(http.MethodGet)
	router.HandleFunc("/review/{session}/submit", h.handleSubmit).Methods(http.MethodPost)
}

type beginResponse struct {
	SessionID  string     `json:"session_id"`
	Mode       Mode       `json:"mode"`
	Rows       []MatchRow `json:"rows"`
	Projection Projection `json:"projection"`
}

func (h *HTTPHandler) handleBegin(w http.ResponseWriter, r *http.Request) {
	snapshot, err := h.service.Begin(r.Context())
	if err != nil {
		h.writeError(w, err, "failed to load review rows")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(beginResponse{
		SessionID:  snapshot.SessionID,
		Mode:       snapshot.Mode,
		Rows:       snapshot.Rows,
		Projection: h.projection,
	})
}

func (h *HTTPHandler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	sessionID := vars["session"]

	var req models.SubmitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Log.WithError(err).Warn("invalid submit payload")
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	result, err := h.service.Submit(r.Context(), sessionID, req.Edits)
	if err != nil {
		h.writeError(w, err, "failed to commit review edits")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(result)
}

func (h *HTTPHandler) writeError(w http.ResponseWriter, err error, msg string) {
	switch {
	case errors.Is(err, ErrSessionNotFound):
		http.Error(w, "review session not found or expired", http.StatusNotFound)
	case errors.Is(err, ErrSessionNotOpen):
		http.Error(w, "review session is already committing", http.StatusConflict)
	case IsValidationError(err):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, ErrStoreUnavailable):
		logger.Log.WithError(err).Error(msg)
		http.Error(w, "review store unreachable", http.StatusBadGateway)
	case errors.Is(err, ErrQueryFailed):
		logger.Log.WithError(err).Error(msg)
		http.Error(w, "review query failed", http.StatusInternalServerError)
	default:
		logger.Log.WithError(err).Error(msg)
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}
