package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/rivertype"
)

const documentIndexingKind = "document_indexing"

// IndexingQueueName is the River queue used for document re-index jobs.
const IndexingQueueName = "indexing"

// JobInserter inserts River jobs (e.g. *river.Client). Used by ingestion and the backfill command.
type JobInserter interface {
	Insert(ctx context.Context, args river.JobArgs, opts *river.InsertOpts) (*rivertype.JobInsertResult, error)
}

// DocumentIndexingArgs is the job payload for (re)indexing one feedback record's document.
// Uniqueness is by FeedbackRecordID so repeated failures for one record do not pile up jobs.
type DocumentIndexingArgs struct {
	FeedbackRecordID uuid.UUID `json:"feedback_record_id" river:"unique"`
}

// Kind returns the River job kind.
func (DocumentIndexingArgs) Kind() string { return documentIndexingKind }

// InsertOpts routes the job to the indexing queue.
func (DocumentIndexingArgs) InsertOpts() river.InsertOpts {
	return river.InsertOpts{
		Queue:      IndexingQueueName,
		UniqueOpts: river.UniqueOpts{ByArgs: true},
	}
}

var _ river.JobArgsWithInsertOpts = DocumentIndexingArgs{}
