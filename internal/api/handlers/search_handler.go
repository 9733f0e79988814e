package handlers

import (
	"context"
	"net/http"

	"github.com/insightflow/hub/internal/api/response"
	"github.com/insightflow/hub/internal/api/validation"
	"github.com/insightflow/hub/internal/models"
)

// SearchService defines the interface for semantic search over indexed feedback.
type SearchService interface {
	Search(ctx context.Context, req *models.SearchFeedbackRequest) (*models.SearchFeedbackResponse, error)
}

// SearchHandler handles HTTP requests for semantic search.
type SearchHandler struct {
	service SearchService
}

// NewSearchHandler creates a new search handler.
func NewSearchHandler(service SearchService) *SearchHandler {
	return &SearchHandler{service: service}
}

// Search handles POST /v1/feedback/search.
// Results are ordered nearest first; each carries its cosine distance.
func (h *SearchHandler) Search(w http.ResponseWriter, r *http.Request) {
	var req models.SearchFeedbackRequest
	if err := validation.DecodeJSONBody(r, &req); err != nil {
		respondDecodeError(w, err)
		return
	}

	result, err := h.service.Search(r.Context(), &req)
	if err != nil {
		respondServiceError(r.Context(), w, err, "semantic search failed")
		return
	}

	response.RespondSuccess(w, "", result)
}
