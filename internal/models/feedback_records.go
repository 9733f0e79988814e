package models

import (
	"slices"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
)

// Sentiment is the closed set of labels a feedback record can carry.
type Sentiment string

// Sentiment labels.
const (
	SentimentNegative Sentiment = "negative"
	SentimentNeutral  Sentiment = "neutral"
	SentimentPositive Sentiment = "positive"
)

// Sentiments lists every valid label in a stable order.
func Sentiments() []Sentiment {
	return []Sentiment{SentimentNegative, SentimentNeutral, SentimentPositive}
}

// IsValid reports whether s is one of the three labels.
func (s Sentiment) IsValid() bool {
	return slices.Contains(Sentiments(), s)
}

// ParseSentiment coerces raw model output into the closed label set.
// Output is trimmed, lowercased and stripped of surrounding punctuation; a leading
// "output:" echo is dropped. A sentence is accepted only when a label is its first or last
// word and that word is not negated ("not positive at all", "definitely not negative").
// The second return is false when the text matched no label, in which case SentimentNeutral is returned.
func ParseSentiment(raw string) (Sentiment, bool) {
	s := strings.ToLower(strings.TrimSpace(raw))
	s = strings.TrimPrefix(s, "output:")
	s = strings.Trim(s, " \t\r\n.,!?\"'`*")

	if label := Sentiment(s); label.IsValid() {
		return label, true
	}

	words := strings.FieldsFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && r != '\''
	})
	if len(words) == 0 {
		return SentimentNeutral, false
	}

	first := Sentiment(words[0])
	last := Sentiment(words[len(words)-1])

	if len(words) > 1 && negations[words[len(words)-2]] {
		last = ""
	}

	switch {
	case first.IsValid() && last.IsValid() && first != last:
		return SentimentNeutral, false
	case first.IsValid():
		return first, true
	case last.IsValid():
		return last, true
	default:
		return SentimentNeutral, false
	}
}

var negations = map[string]bool{
	"not": true, "no": true, "never": true, "isn't": true, "wasn't": true, "hardly": true,
}

// FeedbackRecord is one ingested piece of customer feedback with its AI enrichment.
// Records are immutable once created.
type FeedbackRecord struct {
	ID          uuid.UUID `json:"id"`
	TenantID    string    `json:"tenant_id"`
	Rate        *float64  `json:"rate,omitempty"`
	Description string    `json:"description"`
	Sentiment   Sentiment `json:"sentiment"`
	AIResponse  string    `json:"ai_response"`
	CreatedAt   time.Time `json:"created_at"`
}

// IngestFeedbackRequest is the body of POST /v1/feedback.
// API contract uses camelCase (tenantId).
type IngestFeedbackRequest struct {
	TenantID string   `json:"tenantId" validate:"required,max=255,no_null_bytes"` //nolint:tagliatelle // API contract
	Rate     *float64 `json:"rate,omitempty" validate:"omitempty,gte=0,lte=5"`
	Text     string   `json:"text" validate:"required,max=10000,no_null_bytes"`
}

// CreateFeedbackRecordParams is the fully enriched record handed to the repository.
type CreateFeedbackRecordParams struct {
	TenantID    string
	Rate        *float64
	Description string
	Sentiment   Sentiment
	AIResponse  string
}

// ListFeedbackRecordsFilters represents filters for listing feedback records.
type ListFeedbackRecordsFilters struct {
	TenantID  *string `form:"tenant_id" validate:"omitempty,max=255,no_null_bytes"`
	Sentiment *string `form:"sentiment" validate:"omitempty,oneof=negative neutral positive"`
	Limit     int     `form:"limit" validate:"omitempty,min=0,max=1000"`
	Offset    int     `form:"offset" validate:"omitempty,min=0"`
}

// ListFeedbackRecordsResponse is the page returned by GET /v1/feedback.
type ListFeedbackRecordsResponse struct {
	Data   []FeedbackRecord `json:"data"`
	Total  int64            `json:"total"`
	Limit  int              `json:"limit"`
	Offset int              `json:"offset"`
}
