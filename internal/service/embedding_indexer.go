package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/insightflow/hub/internal/huberrors"
	"github.com/insightflow/hub/internal/models"
	"github.com/insightflow/hub/internal/repository"
)

// Indexing stages reported in IndexingError.
const (
	IndexStageEmbed  = "embed"
	IndexStageInsert = "insert"
	IndexStageAttach = "attach"
	IndexStageLookup = "lookup"
)

// ErrNothingToIndex is returned when a feedback record has no text to embed.
var ErrNothingToIndex = errors.New("feedback record has no text to index")

// EmbeddedDocumentsRepository defines the document writes and reads used for indexing and retrieval.
type EmbeddedDocumentsRepository interface {
	Insert(ctx context.Context, doc models.EmbeddedDocument) (*models.UnindexedDocument, error)
	AttachVector(ctx context.Context, id uuid.UUID, vec []float32) (*models.IndexedDocument, error)
	LookupByFeedbackRecordID(ctx context.Context, feedbackRecordID uuid.UUID) (*models.DocumentLookup, error)
	Nearest(ctx context.Context, vec []float32, tenantID *string, k int) ([]models.ScoredDocument, error)
}

// EmbeddingIndexer turns feedback text into stored, searchable vectors.
type EmbeddingIndexer struct {
	client EmbeddingClient
	repo   EmbeddedDocumentsRepository
}

// NewEmbeddingIndexer creates an EmbeddingIndexer.
func NewEmbeddingIndexer(client EmbeddingClient, repo EmbeddedDocumentsRepository) *EmbeddingIndexer {
	return &EmbeddingIndexer{client: client, repo: repo}
}

// Embed returns one vector per text, in input order, from a single model call.
func (x *EmbeddingIndexer) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if x.client == nil {
		return nil, huberrors.NewConfigurationError("EMBEDDING_API_KEY", "no embedding provider configured")
	}

	vecs, err := x.client.CreateEmbeddings(ctx, texts)
	if err != nil {
		return nil, huberrors.NewIndexingError(IndexStageEmbed, err)
	}

	if len(vecs) != len(texts) {
		return nil, huberrors.NewIndexingError(IndexStageEmbed,
			fmt.Errorf("got %d vectors for %d texts", len(vecs), len(texts)))
	}

	return vecs, nil
}

// AttachVector stores vec on an unindexed document, making it visible to similarity search.
func (x *EmbeddingIndexer) AttachVector(
	ctx context.Context, doc models.UnindexedDocument, vec []float32,
) (*models.IndexedDocument, error) {
	indexed, err := x.repo.AttachVector(ctx, doc.ID, vec)
	if err != nil {
		return nil, huberrors.NewIndexingError(IndexStageAttach, err)
	}

	return indexed, nil
}

// IndexFeedback embeds the record's description and stores it as an indexed document.
// An existing unindexed document for the record is reused; an already indexed one is returned unchanged.
func (x *EmbeddingIndexer) IndexFeedback(ctx context.Context, record *models.FeedbackRecord) (*models.IndexedDocument, error) {
	if strings.TrimSpace(record.Description) == "" {
		return nil, ErrNothingToIndex
	}

	lookup, err := x.repo.LookupByFeedbackRecordID(ctx, record.ID)
	if err != nil {
		return nil, huberrors.NewIndexingError(IndexStageLookup, err)
	}

	if lookup.Indexed != nil {
		return lookup.Indexed, nil
	}

	vecs, err := x.Embed(ctx, []string{record.Description})
	if err != nil {
		return nil, err
	}

	doc := lookup.Unindexed
	if doc == nil {
		doc, err = x.repo.Insert(ctx, models.NewDocumentForRecord(record))
		if errors.Is(err, repository.ErrDocumentExists) {
			// A concurrent indexer inserted the row between lookup and insert.
			lookup, err = x.repo.LookupByFeedbackRecordID(ctx, record.ID)
			switch {
			case err != nil:
			case lookup.Indexed != nil:
				return lookup.Indexed, nil
			case lookup.Unindexed == nil:
				err = repository.ErrDocumentExists
			default:
				doc = lookup.Unindexed
			}
		}

		if err != nil {
			return nil, huberrors.NewIndexingError(IndexStageInsert, err)
		}
	}

	indexed, err := x.AttachVector(ctx, *doc, vecs[0])
	if err != nil {
		if errors.Is(err, repository.ErrDocumentNotAttachable) {
			if current, lookupErr := x.repo.LookupByFeedbackRecordID(ctx, record.ID); lookupErr == nil && current.Indexed != nil {
				return current.Indexed, nil
			}
		}

		return nil, err
	}

	return indexed, nil
}
