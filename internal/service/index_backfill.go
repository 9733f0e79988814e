package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/riverqueue/river"
)

const defaultBackfillBatchSize = 500

// UnindexedRecordLister lists feedback records that have no searchable document.
type UnindexedRecordLister interface {
	ListIDsWithoutIndexedDocument(ctx context.Context) ([]uuid.UUID, error)
}

// IndexBackfill enqueues a re-index job for every feedback record missing from the index.
type IndexBackfill struct {
	records   UnindexedRecordLister
	inserter  BulkJobInserter
	batchSize int
}

// NewIndexBackfill creates an IndexBackfill. batchSize <= 0 uses 500 jobs per insert.
func NewIndexBackfill(records UnindexedRecordLister, inserter BulkJobInserter, batchSize int) *IndexBackfill {
	if batchSize <= 0 {
		batchSize = defaultBackfillBatchSize
	}

	return &IndexBackfill{records: records, inserter: inserter, batchSize: batchSize}
}

// Run enqueues the jobs in batches and returns how many were inserted. Jobs are unique by
// record, so ids that already have a pending job are skipped by River and not counted.
func (b *IndexBackfill) Run(ctx context.Context) (int, error) {
	ids, err := b.records.ListIDsWithoutIndexedDocument(ctx)
	if err != nil {
		return 0, fmt.Errorf("list unindexed records: %w", err)
	}

	enqueued := 0

	for start := 0; start < len(ids); start += b.batchSize {
		batch := ids[start:min(start+b.batchSize, len(ids))]

		params := make([]river.InsertManyParams, 0, len(batch))
		for _, id := range batch {
			args := DocumentIndexingArgs{FeedbackRecordID: id}
			opts := args.InsertOpts()
			params = append(params, river.InsertManyParams{Args: args, InsertOpts: &opts})
		}

		results, err := b.inserter.InsertMany(ctx, params)
		if err != nil {
			return enqueued, fmt.Errorf("enqueue backfill batch at %d: %w", start, err)
		}

		for _, res := range results {
			if res != nil && !res.UniqueSkippedAsDuplicate {
				enqueued++
			}
		}
	}

	return enqueued, nil
}
