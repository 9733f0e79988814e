package handlers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/insightflow/hub/internal/api/response"
	"github.com/insightflow/hub/internal/api/validation"
	"github.com/insightflow/hub/internal/models"
)

// IngestionService turns submitted feedback into an enriched record.
type IngestionService interface {
	Ingest(ctx context.Context, req *models.IngestFeedbackRequest) (*models.FeedbackRecord, error)
}

// FeedbackRecordsService reads stored feedback records.
type FeedbackRecordsService interface {
	GetFeedbackRecord(ctx context.Context, id uuid.UUID) (*models.FeedbackRecord, error)
	ListFeedbackRecords(ctx context.Context, filters *models.ListFeedbackRecordsFilters) (*models.ListFeedbackRecordsResponse, error)
}

// FeedbackRecordsHandler handles HTTP requests for feedback records
type FeedbackRecordsHandler struct {
	ingestion IngestionService
	records   FeedbackRecordsService
}

// NewFeedbackRecordsHandler creates a new feedback records handler
func NewFeedbackRecordsHandler(ingestion IngestionService, records FeedbackRecordsService) *FeedbackRecordsHandler {
	return &FeedbackRecordsHandler{ingestion: ingestion, records: records}
}

// Ingest handles POST /v1/feedback
// @Summary Ingest feedback
// @Description Classify, summarize, tag and index one piece of feedback
// @Tags Feedback
// @Accept json
// @Produce json
// @Param request body IngestFeedbackRequest true "Feedback to ingest"
// @Success 200 {object} Envelope
// @Failure 400 {object} Envelope
// @Failure 500 {object} Envelope
// @Security BearerAuth
// @Router /v1/feedback [post]
func (h *FeedbackRecordsHandler) Ingest(w http.ResponseWriter, r *http.Request) {
	var req models.IngestFeedbackRequest
	if err := validation.DecodeJSONBody(r, &req); err != nil {
		respondDecodeError(w, err)
		return
	}

	record, err := h.ingestion.Ingest(r.Context(), &req)
	if err != nil {
		respondServiceError(r.Context(), w, err, "feedback ingestion failed")
		return
	}

	response.RespondSuccess(w, "Feedback processed successfully", record)
}

// Get handles GET /v1/feedback/{id}
// @Summary Get feedback record
// @Tags Feedback
// @Produce json
// @Param id path string true "Feedback record ID (UUID)"
// @Success 200 {object} Envelope
// @Failure 400 {object} Envelope
// @Failure 404 {object} Envelope
// @Security BearerAuth
// @Router /v1/feedback/{id} [get]
func (h *FeedbackRecordsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.RespondBadRequest(w, "Invalid ID format")
		return
	}

	record, err := h.records.GetFeedbackRecord(r.Context(), id)
	if err != nil {
		respondServiceError(r.Context(), w, err, "get feedback record failed")
		return
	}

	response.RespondSuccess(w, "", record)
}

// List handles GET /v1/feedback with optional tenant_id, sentiment, limit and offset.
func (h *FeedbackRecordsHandler) List(w http.ResponseWriter, r *http.Request) {
	filters := &models.ListFeedbackRecordsFilters{}
	if err := validation.ValidateAndDecodeQueryParams(r, filters); err != nil {
		validation.RespondValidationError(w, err)
		return
	}

	result, err := h.records.ListFeedbackRecords(r.Context(), filters)
	if err != nil {
		respondServiceError(r.Context(), w, err, "list feedback records failed")
		return
	}

	response.RespondSuccess(w, "", result)
}
