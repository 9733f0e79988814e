package service

import (
	"context"
	"iter"
	"log/slog"
	"maps"
	"slices"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/insightflow/hub/internal/huberrors"
	"github.com/insightflow/hub/internal/models"
	"github.com/insightflow/hub/internal/tokenizer"
)

const defaultTagMaxConcurrency = 8

// KeywordTagsRepository defines the keyword tag writes and reads used by the services.
type KeywordTagsRepository interface {
	UpsertIncrement(ctx context.Context, tenantID, name string, delta int64) (*models.KeywordTag, error)
	Top(ctx context.Context, tenantID string, limit int) ([]models.KeywordTag, error)
}

// TagResult counts distinct tokens written and skipped by one RecordTokens call.
type TagResult struct {
	Recorded int
	Failed   int
}

// TagAggregator maintains per-tenant keyword counts from tokenized feedback.
type TagAggregator struct {
	repo           KeywordTagsRepository
	maxConcurrency int
	logger         *slog.Logger
}

// NewTagAggregator creates a TagAggregator. maxConcurrency <= 0 uses a default of 8.
func NewTagAggregator(repo KeywordTagsRepository, maxConcurrency int, logger *slog.Logger) *TagAggregator {
	if maxConcurrency <= 0 {
		maxConcurrency = defaultTagMaxConcurrency
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &TagAggregator{repo: repo, maxConcurrency: maxConcurrency, logger: logger}
}

// RecordTokens adds every occurrence in tokens to the tenant's tag totals.
// Each distinct token is one atomic upsert-increment by its occurrence count. A failed write
// is logged and skipped; it never fails the call.
func (a *TagAggregator) RecordTokens(ctx context.Context, tenantID string, tokens iter.Seq[string]) TagResult {
	counts := tokenizer.Counts(tokens)
	if len(counts) == 0 {
		return TagResult{}
	}

	var recorded, failed atomic.Int64

	var g errgroup.Group
	g.SetLimit(a.maxConcurrency)

	for _, token := range slices.Sorted(maps.Keys(counts)) {
		delta := counts[token]

		g.Go(func() error {
			if _, err := a.repo.UpsertIncrement(ctx, tenantID, token, delta); err != nil {
				failed.Add(1)
				a.logger.WarnContext(ctx, "keyword tag write failed",
					"tenant_id", tenantID, "error", huberrors.NewAggregationError(token, err))

				return nil
			}

			recorded.Add(1)

			return nil
		})
	}

	_ = g.Wait()

	return TagResult{Recorded: int(recorded.Load()), Failed: int(failed.Load())}
}

// TopKeywords returns the tenant's most frequent tags.
func (a *TagAggregator) TopKeywords(ctx context.Context, tenantID string, limit int) ([]models.KeywordTag, error) {
	return a.repo.Top(ctx, tenantID, limit)
}
