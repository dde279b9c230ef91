package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"mpgraph/application/queries"
	apperrors "mpgraph/pkg/errors"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// SimilarityQueryHandler answers similarity queries
type SimilarityQueryHandler interface {
	Handle(ctx context.Context, query queries.GetSimilarityQuery) (*queries.GetSimilarityResult, error)
}

// SimilarityHandler handles similarity-related HTTP requests
type SimilarityHandler struct {
	queryHandler SimilarityQueryHandler
	logger       *zap.Logger
}

// NewSimilarityHandler creates a new similarity handler
func NewSimilarityHandler(queryHandler SimilarityQueryHandler, logger *zap.Logger) *SimilarityHandler {
	return &SimilarityHandler{
		queryHandler: queryHandler,
		logger:       logger,
	}
}

// GetSimilarity handles GET /legislators/{legislatorID}/similarity
func (h *SimilarityHandler) GetSimilarity(w http.ResponseWriter, r *http.Request) {
	raw := chi.URLParam(r, "legislatorID")
	id, err := strconv.Atoi(raw)
	if err != nil {
		respondError(w, apperrors.NewValidationError("legislator id must be an integer"))
		return
	}

	result, err := h.queryHandler.Handle(r.Context(), queries.GetSimilarityQuery{LegislatorID: id})
	if err != nil {
		if apperrors.HTTPStatus(err) >= http.StatusInternalServerError {
			h.logger.Error("Failed to get similarity",
				zap.Int("legislator_id", id),
				zap.Error(err),
			)
		}
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, result)
}

// errorResponse is the JSON body of every error reply
type errorResponse struct {
	Error string `json:"error"`
	Type  string `json:"type,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, err error) {
	status := apperrors.HTTPStatus(err)
	body := errorResponse{Error: http.StatusText(status)}
	if appErr := apperrors.GetAppError(err); appErr != nil {
		body.Type = string(appErr.Type)
		if status < http.StatusInternalServerError {
			body.Error = appErr.Message
		}
	}
	respondJSON(w, status, body)
}
