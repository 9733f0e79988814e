// Package workers provides River job workers.
package workers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/riverqueue/river"
	"golang.org/x/time/rate"

	"github.com/insightflow/hub/internal/huberrors"
	"github.com/insightflow/hub/internal/models"
	"github.com/insightflow/hub/internal/observability"
	"github.com/insightflow/hub/internal/service"
)

const documentIndexingTimeout = 60 * time.Second

type feedbackRecordGetter interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.FeedbackRecord, error)
}

type documentLookup interface {
	LookupByFeedbackRecordID(ctx context.Context, feedbackRecordID uuid.UUID) (*models.DocumentLookup, error)
}

type feedbackIndexer interface {
	IndexFeedback(ctx context.Context, record *models.FeedbackRecord) (*models.IndexedDocument, error)
}

// DocumentIndexingWorker (re)indexes the embedded document of one feedback record.
// Running it again for an indexed record is a no-op.
type DocumentIndexingWorker struct {
	river.WorkerDefaults[service.DocumentIndexingArgs]

	records   feedbackRecordGetter
	documents documentLookup
	indexer   feedbackIndexer
	limiter   *rate.Limiter
	metrics   observability.IndexingMetrics
	logger    *slog.Logger
}

// DocumentIndexingWorkerParams configures DocumentIndexingWorker. Limiter and Metrics may be nil.
type DocumentIndexingWorkerParams struct {
	Records   feedbackRecordGetter
	Documents documentLookup
	Indexer   feedbackIndexer
	Limiter   *rate.Limiter
	Metrics   observability.IndexingMetrics
	Logger    *slog.Logger
}

// NewDocumentIndexingWorker creates a DocumentIndexingWorker.
func NewDocumentIndexingWorker(p DocumentIndexingWorkerParams) *DocumentIndexingWorker {
	logger := p.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &DocumentIndexingWorker{
		records:   p.Records,
		documents: p.Documents,
		indexer:   p.Indexer,
		limiter:   p.Limiter,
		metrics:   p.Metrics,
		logger:    logger,
	}
}

// Timeout limits how long a single indexing job can run.
func (w *DocumentIndexingWorker) Timeout(*river.Job[service.DocumentIndexingArgs]) time.Duration {
	return documentIndexingTimeout
}

// Work loads the record, embeds it and attaches the vector. Missing records are dropped without retry.
// Embedding and store failures are retried until the last attempt.
func (w *DocumentIndexingWorker) Work(ctx context.Context, job *river.Job[service.DocumentIndexingArgs]) error {
	id := job.Args.FeedbackRecordID
	start := time.Now()

	record, err := w.records.GetByID(ctx, id)
	if err != nil {
		w.recordError(ctx, "get_record_failed")

		if errors.Is(err, huberrors.ErrNotFound) {
			w.recordOutcome(ctx, "failed_final", start)
			w.logger.WarnContext(ctx, "indexing: feedback record not found", "feedback_record_id", id)

			return nil
		}

		return w.fail(ctx, job, start, fmt.Errorf("get feedback record: %w", err))
	}

	lookup, err := w.documents.LookupByFeedbackRecordID(ctx, id)
	if err != nil {
		w.recordError(ctx, "store_failed")

		return w.fail(ctx, job, start, fmt.Errorf("lookup document: %w", err))
	}

	if lookup.Indexed != nil {
		w.recordOutcome(ctx, "already_indexed", start)
		w.logger.DebugContext(ctx, "indexing: already indexed", "feedback_record_id", id)

		return nil
	}

	if w.limiter != nil {
		if err := w.limiter.Wait(ctx); err != nil {
			w.recordError(ctx, "rate_limit_wait")

			return w.fail(ctx, job, start, fmt.Errorf("rate limiter: %w", err))
		}
	}

	_, err = w.indexer.IndexFeedback(ctx, record)

	switch {
	case errors.Is(err, service.ErrNothingToIndex):
		w.recordOutcome(ctx, "skipped_empty", start)

		return nil
	case err != nil:
		reason := "store_failed"
		switch {
		case errors.Is(err, huberrors.ErrConfiguration):
			reason = "configuration"
		case huberrors.Categorize(err) == huberrors.CategoryEmbedding || errors.Is(err, huberrors.ErrModelQuota):
			reason = "embed_failed"
		}

		w.recordError(ctx, reason)

		return w.fail(ctx, job, start, err)
	}

	w.recordOutcome(ctx, "indexed", start)
	w.logger.InfoContext(ctx, "indexing: document indexed", "feedback_record_id", id, "attempt", job.Attempt)

	return nil
}

// fail returns err for River to retry, or nil on the last attempt so the job is not retried again.
func (w *DocumentIndexingWorker) fail(
	ctx context.Context, job *river.Job[service.DocumentIndexingArgs], start time.Time, err error,
) error {
	if job.Attempt >= job.MaxAttempts {
		w.recordOutcome(ctx, "failed_final", start)
		w.logger.ErrorContext(ctx, "indexing: giving up",
			"feedback_record_id", job.Args.FeedbackRecordID, "attempt", job.Attempt, "error", err)

		return nil
	}

	w.recordOutcome(ctx, "retry", start)

	return err
}

func (w *DocumentIndexingWorker) recordOutcome(ctx context.Context, status string, start time.Time) {
	if w.metrics != nil {
		w.metrics.RecordIndexingOutcome(ctx, status, time.Since(start))
	}
}

func (w *DocumentIndexingWorker) recordError(ctx context.Context, reason string) {
	if w.metrics != nil {
		w.metrics.RecordWorkerError(ctx, reason)
	}
}
