package service

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/rivertype"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubUnindexedLister struct {
	ids []uuid.UUID
	err error
}

func (s *stubUnindexedLister) ListIDsWithoutIndexedDocument(context.Context) ([]uuid.UUID, error) {
	return s.ids, s.err
}

type recordingBulkInserter struct {
	mockJobInserter

	batches   [][]river.InsertManyParams
	duplicate map[uuid.UUID]bool
	failOn    int // 1-based batch number that fails; 0 never fails
}

func (r *recordingBulkInserter) InsertMany(_ context.Context, params []river.InsertManyParams) ([]*rivertype.JobInsertResult, error) {
	r.batches = append(r.batches, params)
	if r.failOn == len(r.batches) {
		return nil, errors.New("connection reset")
	}

	results := make([]*rivertype.JobInsertResult, len(params))
	for i, p := range params {
		args, _ := p.Args.(DocumentIndexingArgs)
		results[i] = &rivertype.JobInsertResult{
			Job:                      &rivertype.JobRow{ID: int64(i + 1)},
			UniqueSkippedAsDuplicate: r.duplicate[args.FeedbackRecordID],
		}
	}

	return results, nil
}

func newIDs(n int) []uuid.UUID {
	ids := make([]uuid.UUID, n)
	for i := range ids {
		ids[i] = uuid.New()
	}

	return ids
}

func TestIndexBackfill_Run(t *testing.T) {
	t.Run("enqueues in batches on the indexing queue", func(t *testing.T) {
		ids := newIDs(5)
		inserter := &recordingBulkInserter{}

		n, err := NewIndexBackfill(&stubUnindexedLister{ids: ids}, inserter, 2).Run(context.Background())

		require.NoError(t, err)
		assert.Equal(t, 5, n)
		require.Len(t, inserter.batches, 3)
		assert.Len(t, inserter.batches[2], 1)

		first := inserter.batches[0][0]
		assert.Equal(t, DocumentIndexingArgs{FeedbackRecordID: ids[0]}, first.Args)
		require.NotNil(t, first.InsertOpts)
		assert.Equal(t, IndexingQueueName, first.InsertOpts.Queue)
		assert.True(t, first.InsertOpts.UniqueOpts.ByArgs)
	})

	t.Run("duplicates are not counted", func(t *testing.T) {
		ids := newIDs(3)
		inserter := &recordingBulkInserter{duplicate: map[uuid.UUID]bool{ids[1]: true}}

		n, err := NewIndexBackfill(&stubUnindexedLister{ids: ids}, inserter, 0).Run(context.Background())

		require.NoError(t, err)
		assert.Equal(t, 2, n)
		assert.Len(t, inserter.batches, 1)
	})

	t.Run("nothing to do", func(t *testing.T) {
		inserter := &recordingBulkInserter{}

		n, err := NewIndexBackfill(&stubUnindexedLister{}, inserter, 10).Run(context.Background())

		require.NoError(t, err)
		assert.Zero(t, n)
		assert.Empty(t, inserter.batches)
	})

	t.Run("batch failure reports what was already enqueued", func(t *testing.T) {
		inserter := &recordingBulkInserter{failOn: 2}

		n, err := NewIndexBackfill(&stubUnindexedLister{ids: newIDs(4)}, inserter, 2).Run(context.Background())

		require.Error(t, err)
		assert.Equal(t, 2, n)
	})

	t.Run("list failure", func(t *testing.T) {
		_, err := NewIndexBackfill(&stubUnindexedLister{err: errors.New("db down")}, &recordingBulkInserter{}, 2).Run(context.Background())

		require.Error(t, err)
	})
}
