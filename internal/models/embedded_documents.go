package models

import (
	"time"

	"github.com/google/uuid"
)

// DocumentTypeFeedback is the metadata type for documents derived from feedback records.
const DocumentTypeFeedback = "feedback"

// DocumentMetadata is stored as jsonb next to each embedded document.
type DocumentMetadata struct {
	Type       string    `json:"type"`
	Sentiment  Sentiment `json:"sentiment"`
	FeedbackID uuid.UUID `json:"feedback_id"`
	TenantID   string    `json:"tenant_id"`
}

// EmbeddedDocument holds the fields shared by every document lifecycle state.
type EmbeddedDocument struct {
	ID               uuid.UUID        `json:"id"`
	TenantID         string           `json:"tenant_id"`
	FeedbackRecordID uuid.UUID        `json:"feedback_record_id"`
	Content          string           `json:"content"`
	Metadata         DocumentMetadata `json:"metadata"`
	CreatedAt        time.Time        `json:"created_at"`
}

// UnindexedDocument is a stored document whose vector has not been attached yet.
// It is never returned by similarity search.
type UnindexedDocument struct {
	EmbeddedDocument
}

// IndexedDocument is a document with a stored vector. Only the vector attach and
// similarity search produce values of this type.
type IndexedDocument struct {
	EmbeddedDocument

	Embedding []float32 `json:"-"`
	IndexedAt time.Time `json:"indexed_at"`
}

// ScoredDocument is a similarity search hit. Distance is cosine distance; lower is closer.
type ScoredDocument struct {
	Document IndexedDocument `json:"document"`
	Distance float64         `json:"distance"`
}

// NewDocumentForRecord builds the document content and metadata for a feedback record.
func NewDocumentForRecord(record *FeedbackRecord) EmbeddedDocument {
	return EmbeddedDocument{
		TenantID:         record.TenantID,
		FeedbackRecordID: record.ID,
		Content:          record.Description,
		Metadata: DocumentMetadata{
			Type:       DocumentTypeFeedback,
			Sentiment:  record.Sentiment,
			FeedbackID: record.ID,
			TenantID:   record.TenantID,
		},
	}
}

// DocumentLookup is the stored state of a feedback record's document.
// At most one of Unindexed and Indexed is set; both nil means no document exists.
type DocumentLookup struct {
	Unindexed *UnindexedDocument
	Indexed   *IndexedDocument
}

// SearchFeedbackRequest is the body of POST /v1/feedback/search.
type SearchFeedbackRequest struct {
	Query    string  `json:"query" validate:"required,max=10000,no_null_bytes"`
	TenantID *string `json:"tenantId,omitempty" validate:"omitempty,max=255,no_null_bytes"` //nolint:tagliatelle // API contract
	TopK     int     `json:"topK,omitempty" validate:"omitempty,min=1,max=200"`             //nolint:tagliatelle // API contract
}

// SearchFeedbackResponse lists the nearest indexed documents, closest first.
type SearchFeedbackResponse struct {
	Results []ScoredDocument `json:"results"`
}
