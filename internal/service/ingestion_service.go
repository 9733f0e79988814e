package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"github.com/insightflow/hub/internal/huberrors"
	"github.com/insightflow/hub/internal/models"
	"github.com/insightflow/hub/internal/observability"
	"github.com/insightflow/hub/internal/tokenizer"
)

// DefaultIngestTimeout bounds one ingestion including every model call.
const DefaultIngestTimeout = 60 * time.Second

const maxRate = 5

// IngestionService turns submitted feedback into an enriched, tagged and indexed record.
type IngestionService struct {
	records         FeedbackRecordsRepository
	classifier      *SentimentClassifier
	summarizer      *ResponseSummarizer
	tags            *TagAggregator
	indexer         *EmbeddingIndexer
	inserter        JobInserter
	metrics         observability.IngestionMetrics
	indexingMetrics observability.IndexingMetrics
	timeout         time.Duration
	logger          *slog.Logger
}

// IngestionServiceParams configures IngestionService.
// Classifier and Summarizer are nil when no generation provider is configured; Ingest then fails
// with a ConfigurationError. Indexer, Inserter and the metrics are optional.
type IngestionServiceParams struct {
	Records         FeedbackRecordsRepository
	Classifier      *SentimentClassifier
	Summarizer      *ResponseSummarizer
	Tags            *TagAggregator
	Indexer         *EmbeddingIndexer
	Inserter        JobInserter
	Metrics         observability.IngestionMetrics
	IndexingMetrics observability.IndexingMetrics
	Timeout         time.Duration
	Logger          *slog.Logger
}

// NewIngestionService creates an IngestionService.
func NewIngestionService(p IngestionServiceParams) *IngestionService {
	timeout := p.Timeout
	if timeout <= 0 {
		timeout = DefaultIngestTimeout
	}

	logger := p.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &IngestionService{
		records:         p.Records,
		classifier:      p.Classifier,
		summarizer:      p.Summarizer,
		tags:            p.Tags,
		indexer:         p.Indexer,
		inserter:        p.Inserter,
		metrics:         p.Metrics,
		indexingMetrics: p.IndexingMetrics,
		timeout:         timeout,
		logger:          logger,
	}
}

// Ingest classifies, summarizes and stores one piece of feedback, then tags and indexes it.
// Only validation, the model calls and the record insert can fail the call; tagging and indexing
// failures are logged and the stored record is still returned.
// Work continues if the caller goes away, bounded by the ingestion timeout.
func (s *IngestionService) Ingest(ctx context.Context, req *models.IngestFeedbackRequest) (record *models.FeedbackRecord, err error) {
	start := time.Now()

	params, err := validateIngestRequest(req)
	if err != nil {
		s.recordOutcome(ctx, "invalid", start)

		return nil, err
	}

	if s.classifier == nil || s.summarizer == nil {
		s.recordOutcome(ctx, "config_missing", start)

		return nil, huberrors.NewConfigurationError("GENERATION_API_KEY", "no generation provider configured")
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
	defer cancel()

	ctx = observability.WithTenantID(ctx, params.TenantID)

	ctx, span := observability.StartSpan(ctx, "ingestion.ingest", attribute.String("tenant_id", params.TenantID))
	defer func() { observability.EndSpan(span, err) }()

	if err = s.enrich(ctx, params); err != nil {
		s.recordOutcome(ctx, "enrichment_failed", start)

		return nil, err
	}

	record, err = s.records.Create(ctx, params)
	if err != nil {
		s.recordOutcome(ctx, "persist_failed", start)
		s.logger.ErrorContext(ctx, "failed to persist feedback record", "error", err)

		return nil, fmt.Errorf("persist feedback record: %w", err)
	}

	s.recordTags(ctx, record)
	s.index(ctx, record)

	s.recordOutcome(ctx, "created", start)
	s.logger.InfoContext(ctx, "feedback ingested",
		"feedback_record_id", record.ID, "sentiment", record.Sentiment,
		"duration_ms", time.Since(start).Milliseconds())

	return record, nil
}

// enrich runs classification and summarization concurrently and fills params.
func (s *IngestionService) enrich(ctx context.Context, params *models.CreateFeedbackRecordParams) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		sentiment, err := s.classifier.Classify(gctx, params.Description)
		if err != nil {
			s.recordEnrichmentFailure(ctx, "classify", err)

			return err
		}

		params.Sentiment = sentiment

		return nil
	})

	g.Go(func() error {
		summary, err := s.summarizer.Summarize(gctx, params.Description)
		if err != nil {
			s.recordEnrichmentFailure(ctx, "summarize", err)

			return err
		}

		params.AIResponse = summary

		return nil
	})

	return g.Wait()
}

func (s *IngestionService) recordTags(ctx context.Context, record *models.FeedbackRecord) {
	if s.tags == nil {
		return
	}

	result := s.tags.RecordTokens(ctx, record.TenantID, tokenizer.Tokens(record.Description))

	if s.metrics != nil {
		s.metrics.RecordTagWrites(ctx, result.Recorded, result.Failed)

		if result.Failed > 0 {
			s.metrics.RecordEnrichmentFailure(ctx, "tags")
		}
	}

	if result.Failed > 0 {
		s.logger.WarnContext(ctx, "some keyword tags were not recorded",
			"feedback_record_id", record.ID, "recorded", result.Recorded, "failed", result.Failed)
	}
}

// index stores the record's vector. On failure a re-index job is queued when a job queue is configured,
// except for configuration errors: a missing or rejected embedding key fails every retry the same way.
func (s *IngestionService) index(ctx context.Context, record *models.FeedbackRecord) {
	if s.indexer == nil {
		return
	}

	_, err := s.indexer.IndexFeedback(ctx, record)
	if err == nil || errors.Is(err, ErrNothingToIndex) {
		return
	}

	s.recordEnrichmentFailure(ctx, "index", err)

	if errors.Is(err, huberrors.ErrConfiguration) {
		s.logger.WarnContext(ctx, "feedback not indexed, embedding provider is not configured",
			"feedback_record_id", record.ID, "error", err)

		return
	}
	s.logger.WarnContext(ctx, "feedback indexing failed, record is not searchable yet",
		"feedback_record_id", record.ID, "error", err)

	s.enqueueReindex(ctx, record)
}

func (s *IngestionService) enqueueReindex(ctx context.Context, record *models.FeedbackRecord) {
	if s.inserter == nil {
		return
	}

	if _, err := s.inserter.Insert(ctx, DocumentIndexingArgs{FeedbackRecordID: record.ID}, nil); err != nil {
		if s.indexingMetrics != nil {
			s.indexingMetrics.RecordWorkerError(ctx, "enqueue_failed")
		}

		s.logger.ErrorContext(ctx, "failed to enqueue re-index job", "feedback_record_id", record.ID, "error", err)

		return
	}

	if s.indexingMetrics != nil {
		s.indexingMetrics.RecordJobsEnqueued(ctx, 1)
	}
}

func (s *IngestionService) recordEnrichmentFailure(ctx context.Context, stage string, err error) {
	if s.metrics == nil {
		return
	}

	s.metrics.RecordEnrichmentFailure(ctx, stage)

	switch category := huberrors.Categorize(err); category {
	case huberrors.CategoryModelQuota, huberrors.CategoryConfiguration:
		s.metrics.RecordModelProviderFailure(ctx, string(category))
	}
}

func (s *IngestionService) recordOutcome(ctx context.Context, outcome string, start time.Time) {
	if s.metrics != nil {
		s.metrics.RecordIngestion(ctx, outcome, time.Since(start))
	}
}

// validateIngestRequest checks required fields and returns trimmed create params.
func validateIngestRequest(req *models.IngestFeedbackRequest) (*models.CreateFeedbackRecordParams, error) {
	if req == nil {
		return nil, huberrors.NewValidationError("body", "request body is required")
	}

	text := strings.TrimSpace(req.Text)
	if text == "" {
		return nil, huberrors.NewValidationError("text", "text is required")
	}

	tenantID := strings.TrimSpace(req.TenantID)
	if tenantID == "" {
		return nil, huberrors.NewValidationError("tenantId", "tenantId is required")
	}

	if req.Rate != nil && (math.IsNaN(*req.Rate) || *req.Rate < 0 || *req.Rate > maxRate) {
		return nil, huberrors.NewValidationError("rate", "rate must be between 0 and 5")
	}

	return &models.CreateFeedbackRecordParams{
		TenantID:    tenantID,
		Rate:        req.Rate,
		Description: text,
	}, nil
}
