package observability

import (
	"bytes"
	"context"
	"log/slog"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestNormalizeReason(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		allowed  map[string]bool
		expected string
	}{
		{"known ingestion outcome", "created", AllowedIngestionOutcomes, "created"},
		{"unknown ingestion outcome", "exploded", AllowedIngestionOutcomes, "other"},
		{"known stage", "summarize", AllowedEnrichmentStages, "summarize"},
		{"unknown stage", "", AllowedEnrichmentStages, "other"},
		{"known indexing status", "already_indexed", AllowedIndexingStatuses, "already_indexed"},
		{"known worker reason", "embed_failed", AllowedIndexingWorkerReasons, "embed_failed"},
		{"configuration worker reason", "configuration", AllowedIndexingWorkerReasons, "configuration"},
		{"query source", "chat", AllowedQuerySources, "chat"},
		{"unknown query source", "webhooks", AllowedQuerySources, "other"},
		{"chat category", "model_quota", AllowedChatCategories, "model_quota"},
		{"chat unknown category", "teapot", AllowedChatCategories, "other"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NormalizeReason(tt.input, tt.allowed)
			if got != tt.expected {
				t.Errorf("NormalizeReason(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestBodyLimitRoute(t *testing.T) {
	tests := []struct {
		path     string
		expected string
	}{
		{"/v1/feedback", BodyLimitRouteFeedback},
		{"/v1/feedback/", BodyLimitRouteFeedback},
		{"/v1/feedback/search", BodyLimitRouteSearch},
		{"/v1/chat", BodyLimitRouteChat},
		{"/v1/tenants/acme/stats", BodyLimitRouteOther},
		{"", BodyLimitRouteOther},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			if got := BodyLimitRoute(tt.path); got != tt.expected {
				t.Errorf("BodyLimitRoute(%q) = %q, want %q", tt.path, got, tt.expected)
			}
		})
	}
}

func TestNewMetrics_NilMeter(t *testing.T) {
	m, err := NewMetrics(nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if m != nil {
		t.Fatalf("expected nil metrics for nil meter, got %+v", m)
	}
}

func TestNewMeterProvider_ExposesPrometheus(t *testing.T) {
	ctx := context.Background()

	provider, handler, metrics, err := NewMeterProvider(ctx, MeterProviderConfig{ServiceName: "hub-test"})
	if err != nil {
		t.Fatalf("NewMeterProvider: %v", err)
	}

	t.Cleanup(func() { _ = ShutdownMeterProvider(ctx, provider) })

	metrics.HTTP.RecordRequest(ctx, "POST", "/v1/feedback", "2xx", 120*time.Millisecond)
	metrics.Ingestion.RecordIngestion(ctx, "created", time.Second)
	metrics.Ingestion.RecordTagWrites(ctx, 3, 1)
	metrics.Indexing.RecordIndexingOutcome(ctx, "indexed", 50*time.Millisecond)
	metrics.Indexing.SetQueueDepth(7)
	metrics.Chat.RecordChat(ctx, "ok", 2*time.Second)
	metrics.Cache.RecordQueryEmbeddingLookup(ctx, QuerySourceChat, true)
	metrics.Cache.RecordQueryEmbeddingLookup(ctx, "webhooks", false)
	metrics.BodyLimit.RecordRequestBodyTooLarge(ctx, "/v1/chat")
	metrics.BodyLimit.RecordRequestBodyTooLarge(ctx, "/v1/feedback")

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body := rec.Body.String()
	for _, want := range []string{
		"hub_http_requests_total",
		"hub_feedback_ingestions_total",
		"hub_keyword_tag_writes_total",
		"hub_indexing_outcomes_total",
		"hub_indexing_queue_depth",
		"hub_chat_responses_total",
		"hub_query_embedding_lookups_total",
		`source="chat"`,
		`source="other"`,
		"hub_request_body_too_large_total",
		`route="chat"`,
		`route="feedback"`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("metrics output missing %s", want)
		}
	}
}

func TestTraceContextHandler_AddsRequestAndTenant(t *testing.T) {
	var buf bytes.Buffer

	logger := slog.New(NewTraceContextHandler(slog.NewTextHandler(&buf, nil)))

	ctx := context.WithValue(context.Background(), RequestIDKey, "req-1")
	ctx = WithTenantID(ctx, "acme")

	logger.InfoContext(ctx, "hello")

	out := buf.String()
	if !strings.Contains(out, "request_id=req-1") {
		t.Errorf("missing request_id in %q", out)
	}

	if !strings.Contains(out, "tenant_id=acme") {
		t.Errorf("missing tenant_id in %q", out)
	}
}
