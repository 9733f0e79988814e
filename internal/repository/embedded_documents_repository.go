package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/insightflow/hub/internal/huberrors"
	"github.com/insightflow/hub/internal/models"
)

// pgUniqueViolation is the Postgres SQLSTATE for unique_violation.
const pgUniqueViolation = "23505"

// ErrDocumentExists is returned by Insert when the feedback record already has a document.
var ErrDocumentExists = errors.New("embedded document already exists for feedback record")

// ErrDocumentNotAttachable is returned by AttachVector when the document is missing or already indexed.
var ErrDocumentNotAttachable = errors.New("embedded document not found or already indexed")

const embeddedDocumentColumns = `id, tenant_id, feedback_record_id, content, metadata, created_at`

// EmbeddedDocumentsRepository stores feedback documents and their vectors.
// Requires a pool with the pgvector types registered.
type EmbeddedDocumentsRepository struct {
	db *pgxpool.Pool
}

// NewEmbeddedDocumentsRepository creates a new embedded documents repository.
func NewEmbeddedDocumentsRepository(db *pgxpool.Pool) *EmbeddedDocumentsRepository {
	return &EmbeddedDocumentsRepository{db: db}
}

// Insert stores a document without a vector.
func (r *EmbeddedDocumentsRepository) Insert(
	ctx context.Context, doc models.EmbeddedDocument,
) (*models.UnindexedDocument, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return nil, huberrors.NewStoreError("failed to generate document id", err)
	}

	var out models.UnindexedDocument

	err = r.db.QueryRow(ctx, `
		INSERT INTO embedded_documents (id, tenant_id, feedback_record_id, content, metadata)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING `+embeddedDocumentColumns,
		id, doc.TenantID, doc.FeedbackRecordID, doc.Content, doc.Metadata,
	).Scan(&out.ID, &out.TenantID, &out.FeedbackRecordID, &out.Content, &out.Metadata, &out.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return nil, ErrDocumentExists
		}

		return nil, huberrors.NewStoreError("failed to insert embedded document", err)
	}

	return &out, nil
}

// AttachVector stores the vector of an unindexed document, turning it into an indexed one.
// A document is indexed at most once.
func (r *EmbeddedDocumentsRepository) AttachVector(
	ctx context.Context, id uuid.UUID, vec []float32,
) (*models.IndexedDocument, error) {
	var (
		out models.IndexedDocument
		v   pgvector.Vector
	)

	err := r.db.QueryRow(ctx, `
		UPDATE embedded_documents
		SET embedding = $2, indexed_at = now()
		WHERE id = $1 AND embedding IS NULL
		RETURNING `+embeddedDocumentColumns+`, embedding, indexed_at`,
		id, pgvector.NewVector(vec),
	).Scan(&out.ID, &out.TenantID, &out.FeedbackRecordID, &out.Content, &out.Metadata, &out.CreatedAt, &v, &out.IndexedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrDocumentNotAttachable
		}

		return nil, huberrors.NewStoreError("failed to attach document vector", err)
	}

	out.Embedding = v.Slice()

	return &out, nil
}

// LookupByFeedbackRecordID returns the document stored for a feedback record, in whichever state it is.
func (r *EmbeddedDocumentsRepository) LookupByFeedbackRecordID(
	ctx context.Context, feedbackRecordID uuid.UUID,
) (*models.DocumentLookup, error) {
	var (
		doc       models.EmbeddedDocument
		v         *pgvector.Vector
		indexedAt *time.Time
	)

	err := r.db.QueryRow(ctx, `
		SELECT `+embeddedDocumentColumns+`, embedding, indexed_at
		FROM embedded_documents
		WHERE feedback_record_id = $1`, feedbackRecordID,
	).Scan(&doc.ID, &doc.TenantID, &doc.FeedbackRecordID, &doc.Content, &doc.Metadata, &doc.CreatedAt, &v, &indexedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return &models.DocumentLookup{}, nil
		}

		return nil, huberrors.NewStoreError("failed to look up embedded document", err)
	}

	if v == nil || indexedAt == nil {
		return &models.DocumentLookup{Unindexed: &models.UnindexedDocument{EmbeddedDocument: doc}}, nil
	}

	return &models.DocumentLookup{Indexed: &models.IndexedDocument{
		EmbeddedDocument: doc,
		Embedding:        v.Slice(),
		IndexedAt:        *indexedAt,
	}}, nil
}

// Nearest returns up to k indexed documents closest to vec by cosine distance, optionally
// restricted to one tenant. Ties are broken by creation time then ID.
func (r *EmbeddedDocumentsRepository) Nearest(
	ctx context.Context, vec []float32, tenantID *string, k int,
) ([]models.ScoredDocument, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+embeddedDocumentColumns+`, indexed_at, embedding <=> $1 AS distance
		FROM embedded_documents
		WHERE embedding IS NOT NULL
		  AND ($2::text IS NULL OR tenant_id = $2)
		ORDER BY distance, created_at, id
		LIMIT $3`,
		pgvector.NewVector(vec), tenantID, k,
	)
	if err != nil {
		return nil, huberrors.NewStoreError("failed to query nearest documents", err)
	}
	defer rows.Close()

	results := []models.ScoredDocument{}

	for rows.Next() {
		var hit models.ScoredDocument

		d := &hit.Document
		if err := rows.Scan(
			&d.ID, &d.TenantID, &d.FeedbackRecordID, &d.Content, &d.Metadata, &d.CreatedAt,
			&d.IndexedAt, &hit.Distance,
		); err != nil {
			return nil, huberrors.NewStoreError("failed to scan nearest document", err)
		}

		results = append(results, hit)
	}

	if err := rows.Err(); err != nil {
		return nil, huberrors.NewStoreError("error iterating nearest documents", err)
	}

	return results, nil
}
