package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/rivertype"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/insightflow/hub/internal/huberrors"
	"github.com/insightflow/hub/internal/models"
)

// enrichingGenerator answers the classify prompt with a label and anything else with a suggestion.
func enrichingGenerator(label string) *mockGenerator {
	return &mockGenerator{
		generateFunc: func(ctx context.Context, req models.GenerationRequest) (string, error) {
			if err := ctx.Err(); err != nil {
				return "", err
			}

			if strings.HasPrefix(req.Messages[0].Content, "Classify the sentiment") {
				return label, nil
			}

			return "Consider a price review.", nil
		},
	}
}

type ingestionFixture struct {
	records  *mockFeedbackRecordsRepo
	tags     *memoryTagsRepo
	docs     *mockDocumentsRepo
	client   *mockEmbeddingClient
	inserter *mockJobInserter
}

func newIngestionFixture() *ingestionFixture {
	return &ingestionFixture{
		records:  &mockFeedbackRecordsRepo{},
		tags:     newMemoryTagsRepo(),
		docs:     &mockDocumentsRepo{},
		client:   &mockEmbeddingClient{},
		inserter: &mockJobInserter{},
	}
}

func (f *ingestionFixture) service(gen TextGenerator) *IngestionService {
	return NewIngestionService(IngestionServiceParams{
		Records:    f.records,
		Classifier: NewSentimentClassifier(gen, 0, nil),
		Summarizer: NewResponseSummarizer(gen, 0),
		Tags:       NewTagAggregator(f.tags, 2, nil),
		Indexer:    NewEmbeddingIndexer(f.client, f.docs),
		Inserter:   f.inserter,
	})
}

func TestIngestionService_Ingest(t *testing.T) {
	t.Run("creates enriched record and tags", func(t *testing.T) {
		f := newIngestionFixture()
		attached := false
		f.docs.attachFunc = func(_ context.Context, _ uuid.UUID, vec []float32) (*models.IndexedDocument, error) {
			attached = true

			return &models.IndexedDocument{Embedding: vec}, nil
		}

		rate := 4.0
		record, err := f.service(enrichingGenerator("negative")).Ingest(context.Background(), &models.IngestFeedbackRequest{
			TenantID: " t1 ",
			Rate:     &rate,
			Text:     "Great staff, terrible prices!",
		})
		require.NoError(t, err)

		assert.Equal(t, "t1", record.TenantID)
		assert.Equal(t, models.SentimentNegative, record.Sentiment)
		assert.Equal(t, "Consider a price review.", record.AIResponse)
		assert.InDelta(t, 4.0, *record.Rate, 1e-9)
		assert.True(t, attached)

		for _, token := range []string{"great", "staff", "terrible", "prices"} {
			assert.Equal(t, int64(1), f.tags.total("t1", token), token)
		}
	})

	t.Run("missing text is a validation error and nothing is stored", func(t *testing.T) {
		f := newIngestionFixture()
		f.records.createFunc = func(context.Context, *models.CreateFeedbackRecordParams) (*models.FeedbackRecord, error) {
			t.Error("record must not be created")

			return nil, nil
		}

		_, err := f.service(enrichingGenerator("positive")).Ingest(context.Background(),
			&models.IngestFeedbackRequest{TenantID: "t1", Text: "   "})
		assert.ErrorIs(t, err, huberrors.ErrValidation)
	})

	t.Run("rate out of range", func(t *testing.T) {
		rate := 7.5
		_, err := newIngestionFixture().service(enrichingGenerator("positive")).Ingest(context.Background(),
			&models.IngestFeedbackRequest{TenantID: "t1", Text: "ok", Rate: &rate})
		assert.ErrorIs(t, err, huberrors.ErrValidation)
	})

	t.Run("embedding failure still succeeds and queues re-index", func(t *testing.T) {
		f := newIngestionFixture()
		f.client.createFunc = func(context.Context, []string) ([][]float32, error) {
			return nil, errors.New("embedding provider unavailable")
		}

		var queued []river.JobArgs
		f.inserter.insertFunc = func(_ context.Context, args river.JobArgs, _ *river.InsertOpts) (*rivertype.JobInsertResult, error) {
			queued = append(queued, args)

			return &rivertype.JobInsertResult{}, nil
		}

		record, err := f.service(enrichingGenerator("positive")).Ingest(context.Background(),
			&models.IngestFeedbackRequest{TenantID: "t1", Text: "Love the new store layout"})
		require.NoError(t, err)
		assert.Equal(t, models.SentimentPositive, record.Sentiment)
		assert.NotEmpty(t, record.AIResponse)

		require.Len(t, queued, 1)
		args, ok := queued[0].(DocumentIndexingArgs)
		require.True(t, ok)
		assert.Equal(t, record.ID, args.FeedbackRecordID)
	})

	t.Run("embedding configuration failure does not queue re-index", func(t *testing.T) {
		tests := []struct {
			name    string
			indexer func(f *ingestionFixture) *EmbeddingIndexer
		}{
			{"no embedding provider", func(f *ingestionFixture) *EmbeddingIndexer {
				return NewEmbeddingIndexer(nil, f.docs)
			}},
			{"provider rejects the key", func(f *ingestionFixture) *EmbeddingIndexer {
				f.client.createFunc = func(context.Context, []string) ([][]float32, error) {
					return nil, huberrors.NewConfigurationError("OPENAI_API_KEY", "openai rejected the API key")
				}

				return NewEmbeddingIndexer(f.client, f.docs)
			}},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				f := newIngestionFixture()
				f.inserter.insertFunc = func(context.Context, river.JobArgs, *river.InsertOpts) (*rivertype.JobInsertResult, error) {
					t.Error("re-index job must not be queued for a configuration error")

					return &rivertype.JobInsertResult{}, nil
				}

				gen := enrichingGenerator("neutral")
				svc := NewIngestionService(IngestionServiceParams{
					Records:    f.records,
					Classifier: NewSentimentClassifier(gen, 0, nil),
					Summarizer: NewResponseSummarizer(gen, 0),
					Indexer:    tt.indexer(f),
					Inserter:   f.inserter,
				})

				record, err := svc.Ingest(context.Background(),
					&models.IngestFeedbackRequest{TenantID: "t1", Text: "Parking was easy"})
				require.NoError(t, err)
				assert.Equal(t, models.SentimentNeutral, record.Sentiment)
			})
		}
	})

	t.Run("tag failures do not fail ingestion", func(t *testing.T) {
		f := newIngestionFixture()
		f.tags.failOn["prices"] = true

		_, err := f.service(enrichingGenerator("negative")).Ingest(context.Background(),
			&models.IngestFeedbackRequest{TenantID: "t1", Text: "Great staff, terrible prices!"})
		require.NoError(t, err)
		assert.Equal(t, int64(1), f.tags.total("t1", "staff"))
	})

	t.Run("persist failure is fatal", func(t *testing.T) {
		f := newIngestionFixture()
		f.records.createFunc = func(context.Context, *models.CreateFeedbackRecordParams) (*models.FeedbackRecord, error) {
			return nil, huberrors.NewStoreError("insert feedback record", errors.New("connection refused"))
		}

		_, err := f.service(enrichingGenerator("neutral")).Ingest(context.Background(),
			&models.IngestFeedbackRequest{TenantID: "t1", Text: "fine"})
		assert.ErrorIs(t, err, huberrors.ErrStore)
		assert.Zero(t, f.tags.total("t1", "fine"))
	})

	t.Run("summarizer failure aborts before persisting", func(t *testing.T) {
		f := newIngestionFixture()
		f.records.createFunc = func(context.Context, *models.CreateFeedbackRecordParams) (*models.FeedbackRecord, error) {
			t.Error("record must not be created")

			return nil, nil
		}

		gen := &mockGenerator{
			generateFunc: func(_ context.Context, req models.GenerationRequest) (string, error) {
				if strings.HasPrefix(req.Messages[0].Content, "Classify") {
					return "neutral", nil
				}

				return "", huberrors.NewModelQuotaError("google", errors.New("RESOURCE_EXHAUSTED"))
			},
		}

		_, err := f.service(gen).Ingest(context.Background(), &models.IngestFeedbackRequest{TenantID: "t1", Text: "ok"})
		assert.ErrorIs(t, err, huberrors.ErrModelQuota)
	})

	t.Run("no generator configured", func(t *testing.T) {
		svc := NewIngestionService(IngestionServiceParams{Records: &mockFeedbackRecordsRepo{}})

		_, err := svc.Ingest(context.Background(), &models.IngestFeedbackRequest{TenantID: "t1", Text: "ok"})
		assert.ErrorIs(t, err, huberrors.ErrConfiguration)
	})

	t.Run("ignores caller cancellation", func(t *testing.T) {
		f := newIngestionFixture()
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := f.service(enrichingGenerator("positive")).Ingest(ctx,
			&models.IngestFeedbackRequest{TenantID: "t1", Text: "ok"})
		require.NoError(t, err)
	})

	t.Run("concurrent ingestions count each token exactly", func(t *testing.T) {
		const n = 20

		f := newIngestionFixture()
		svc := f.service(enrichingGenerator("neutral"))

		var wg sync.WaitGroup
		for range n {
			wg.Go(func() {
				_, err := svc.Ingest(context.Background(),
					&models.IngestFeedbackRequest{TenantID: "t1", Text: "Parking is difficult"})
				assert.NoError(t, err)
			})
		}

		wg.Wait()

		assert.Equal(t, int64(n), f.tags.total("t1", "parking"))
		assert.Equal(t, int64(n), f.tags.total("t1", "difficult"))
	})
}
