// Package observability provides OpenTelemetry metrics and tracing for the hub API.
package observability

// Metric names (Prometheus / OpenTelemetry).
const (
	MetricNameRequestCount          = "hub_http_requests_total"
	MetricNameRequestDuration       = "hub_http_request_duration_seconds"
	MetricNameRequestBodyTooLarge   = "hub_request_body_too_large_total"
	MetricNameQueryEmbeddingLookups = "hub_query_embedding_lookups_total"
	MetricNameIngestions            = "hub_feedback_ingestions_total"
	MetricNameEnrichmentFailures    = "hub_enrichment_failures_total"
	MetricNameKeywordTagWrites      = "hub_keyword_tag_writes_total"
	MetricNameIngestionDuration     = "hub_feedback_ingestion_duration_seconds"
	MetricNameIndexingJobsEnqueued  = "hub_indexing_jobs_enqueued_total"
	MetricNameIndexingOutcomes      = "hub_indexing_outcomes_total"
	MetricNameIndexingWorkerErrors  = "hub_indexing_worker_errors_total"
	MetricNameIndexingDuration      = "hub_indexing_duration_seconds"
	MetricNameIndexingQueueDepth    = "hub_indexing_queue_depth"
	MetricNameChatResponses         = "hub_chat_responses_total"
	MetricNameChatDuration          = "hub_chat_duration_seconds"
	MetricNameRetrievedDocuments    = "hub_chat_retrieved_documents"
	MetricNameModelProviderFailures = "hub_model_provider_failures_total"
)

// Attribute keys.
const (
	AttrOutcome  = "outcome"
	AttrReason   = "reason"
	AttrStage    = "stage"
	AttrStatus   = "status"
	AttrCategory = "category"
	AttrResult   = "result"
	AttrRoute    = "route"
	AttrSource   = "source"
)

// AllowedIngestionOutcomes for hub_feedback_ingestions_total.
var AllowedIngestionOutcomes = map[string]bool{
	"created":           true,
	"invalid":           true,
	"persist_failed":    true,
	"config_missing":    true,
	"enrichment_failed": true,
}

// AllowedEnrichmentStages for hub_enrichment_failures_total.
var AllowedEnrichmentStages = map[string]bool{
	"classify":  true,
	"summarize": true,
	"tags":      true,
	"index":     true,
}

// AllowedIndexingStatuses for hub_indexing_outcomes_total and hub_indexing_duration_seconds.
var AllowedIndexingStatuses = map[string]bool{
	"indexed":         true,
	"already_indexed": true,
	"skipped_empty":   true,
	"retry":           true,
	"failed_final":    true,
}

// AllowedIndexingWorkerReasons for hub_indexing_worker_errors_total.
var AllowedIndexingWorkerReasons = map[string]bool{
	"get_record_failed": true,
	"embed_failed":      true,
	"store_failed":      true,
	"rate_limit_wait":   true,
	"enqueue_failed":    true,
	"configuration":     true,
}

// AllowedChatCategories for hub_chat_responses_total. "ok" marks a generated answer; the
// rest mirror the failure categories returned to clients.
var AllowedChatCategories = map[string]bool{
	"ok":            true,
	"validation":    true,
	"configuration": true,
	"model_quota":   true,
	"database":      true,
	"embedding":     true,
	"generic":       true,
}

// AllowedQuerySources for the source label of hub_query_embedding_lookups_total.
var AllowedQuerySources = map[string]bool{
	QuerySourceChat:   true,
	QuerySourceSearch: true,
}

// NormalizeReason returns reason if in allowed, otherwise "other".
func NormalizeReason(reason string, allowed map[string]bool) string {
	if allowed[reason] {
		return reason
	}

	return "other"
}
