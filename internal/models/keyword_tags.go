package models

import (
	"time"

	"github.com/google/uuid"
)

// KeywordTag counts how often a token has appeared in a tenant's feedback.
// (TenantID, Name) is unique.
type KeywordTag struct {
	ID        uuid.UUID `json:"id"`
	TenantID  string    `json:"tenant_id"`
	Name      string    `json:"name"`
	Total     int64     `json:"total"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TopKeywordsFilters are the query parameters of GET /v1/tenants/{tenant_id}/keywords.
type TopKeywordsFilters struct {
	Limit int `form:"limit" validate:"omitempty,min=1,max=100"`
}

// TenantStats summarizes a tenant's feedback for dashboards.
type TenantStats struct {
	TenantID         string              `json:"tenant_id"`
	TotalFeedback    int64               `json:"total_feedback"`
	AverageRating    *float64            `json:"average_rating,omitempty"`
	SentimentCounts  map[Sentiment]int64 `json:"sentiment_counts"`
	IndexedDocuments int64               `json:"indexed_documents"`
}
