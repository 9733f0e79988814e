package handlers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/insightflow/hub/internal/api/response"
	"github.com/insightflow/hub/internal/api/validation"
	"github.com/insightflow/hub/internal/models"
)

// StatsService serves per-tenant aggregates.
type StatsService interface {
	TenantStats(ctx context.Context, tenantID string) (*models.TenantStats, error)
	TopKeywords(ctx context.Context, tenantID string, limit int) ([]models.KeywordTag, error)
}

// TenantsHandler handles the tenant dashboard endpoints.
type TenantsHandler struct {
	service StatsService
}

// NewTenantsHandler creates a new tenants handler.
func NewTenantsHandler(service StatsService) *TenantsHandler {
	return &TenantsHandler{service: service}
}

// Keywords handles GET /v1/tenants/{tenant_id}/keywords
func (h *TenantsHandler) Keywords(w http.ResponseWriter, r *http.Request) {
	filters := &models.TopKeywordsFilters{}
	if err := validation.ValidateAndDecodeQueryParams(r, filters); err != nil {
		validation.RespondValidationError(w, err)
		return
	}

	tags, err := h.service.TopKeywords(r.Context(), chi.URLParam(r, "tenant_id"), filters.Limit)
	if err != nil {
		respondServiceError(r.Context(), w, err, "top keywords failed")
		return
	}

	response.RespondSuccess(w, "", tags)
}

// Stats handles GET /v1/tenants/{tenant_id}/stats
func (h *TenantsHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.TenantStats(r.Context(), chi.URLParam(r, "tenant_id"))
	if err != nil {
		respondServiceError(r.Context(), w, err, "tenant stats failed")
		return
	}

	response.RespondSuccess(w, "", stats)
}
