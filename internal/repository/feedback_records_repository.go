// Package repository provides data access for feedback records, keyword tags, and embedded documents.
package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/insightflow/hub/internal/huberrors"
	"github.com/insightflow/hub/internal/models"
)

const feedbackRecordColumns = `id, tenant_id, rate, description, sentiment, ai_response, created_at`

// FeedbackRecordsRepository handles data access for feedback records.
type FeedbackRecordsRepository struct {
	db *pgxpool.Pool
}

// NewFeedbackRecordsRepository creates a new feedback records repository.
func NewFeedbackRecordsRepository(db *pgxpool.Pool) *FeedbackRecordsRepository {
	return &FeedbackRecordsRepository{db: db}
}

func scanFeedbackRecord(row pgx.Row) (*models.FeedbackRecord, error) {
	var record models.FeedbackRecord

	if err := row.Scan(
		&record.ID, &record.TenantID, &record.Rate, &record.Description,
		&record.Sentiment, &record.AIResponse, &record.CreatedAt,
	); err != nil {
		return nil, err
	}

	return &record, nil
}

// Create inserts a new feedback record.
func (r *FeedbackRecordsRepository) Create(
	ctx context.Context, params *models.CreateFeedbackRecordParams,
) (*models.FeedbackRecord, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("failed to generate feedback record id: %w", err)
	}

	query := `
		INSERT INTO feedback_records (id, tenant_id, rate, description, sentiment, ai_response)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING ` + feedbackRecordColumns

	record, err := scanFeedbackRecord(r.db.QueryRow(ctx, query,
		id, params.TenantID, params.Rate, params.Description, params.Sentiment, params.AIResponse,
	))
	if err != nil {
		return nil, huberrors.NewStoreError("failed to create feedback record", err)
	}

	return record, nil
}

// GetByID retrieves a single feedback record by ID.
func (r *FeedbackRecordsRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.FeedbackRecord, error) {
	query := `SELECT ` + feedbackRecordColumns + ` FROM feedback_records WHERE id = $1`

	record, err := scanFeedbackRecord(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, huberrors.NewNotFoundError("feedback record", "feedback record not found")
		}

		return nil, huberrors.NewStoreError("failed to get feedback record", err)
	}

	return record, nil
}

// buildFilterConditions builds WHERE clause conditions and arguments from filters.
// Returns the WHERE clause (including " WHERE " prefix if conditions exist) and the args slice.
func buildFilterConditions(filters *models.ListFeedbackRecordsFilters) (whereClause string, args []any) {
	var conditions []string

	argCount := 1

	if filters.TenantID != nil {
		conditions = append(conditions, fmt.Sprintf("tenant_id = $%d", argCount))
		args = append(args, *filters.TenantID)
		argCount++
	}

	if filters.Sentiment != nil {
		conditions = append(conditions, fmt.Sprintf("sentiment = $%d", argCount))
		args = append(args, *filters.Sentiment)
	}

	if len(conditions) > 0 {
		whereClause = " WHERE " + strings.Join(conditions, " AND ")
	}

	return whereClause, args
}

// List retrieves feedback records with optional filters, newest first.
func (r *FeedbackRecordsRepository) List(
	ctx context.Context, filters *models.ListFeedbackRecordsFilters,
) ([]models.FeedbackRecord, error) {
	query := `SELECT ` + feedbackRecordColumns + ` FROM feedback_records`

	whereClause, args := buildFilterConditions(filters)
	query += whereClause
	argCount := len(args) + 1

	query += " ORDER BY created_at DESC, id DESC"

	if filters.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argCount)

		args = append(args, filters.Limit)
		argCount++
	}

	if filters.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", argCount)

		args = append(args, filters.Offset)
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, huberrors.NewStoreError("failed to list feedback records", err)
	}
	defer rows.Close()

	records := []models.FeedbackRecord{} // Initialize as empty slice, not nil

	for rows.Next() {
		record, err := scanFeedbackRecord(rows)
		if err != nil {
			return nil, huberrors.NewStoreError("failed to scan feedback record", err)
		}

		records = append(records, *record)
	}

	if err := rows.Err(); err != nil {
		return nil, huberrors.NewStoreError("error iterating feedback records", err)
	}

	return records, nil
}

// Count returns the total count of feedback records matching the filters.
func (r *FeedbackRecordsRepository) Count(ctx context.Context, filters *models.ListFeedbackRecordsFilters) (int64, error) {
	query := `SELECT COUNT(*) FROM feedback_records`

	whereClause, args := buildFilterConditions(filters)
	query += whereClause

	var count int64

	if err := r.db.QueryRow(ctx, query, args...).Scan(&count); err != nil {
		return 0, huberrors.NewStoreError("failed to count feedback records", err)
	}

	return count, nil
}

// Stats aggregates a tenant's feedback: totals, average rating, sentiment split and indexed documents.
func (r *FeedbackRecordsRepository) Stats(ctx context.Context, tenantID string) (*models.TenantStats, error) {
	query := `
		SELECT
			COUNT(*),
			AVG(rate),
			COUNT(*) FILTER (WHERE sentiment = 'negative'),
			COUNT(*) FILTER (WHERE sentiment = 'neutral'),
			COUNT(*) FILTER (WHERE sentiment = 'positive'),
			(SELECT COUNT(*) FROM embedded_documents d WHERE d.tenant_id = $1 AND d.embedding IS NOT NULL)
		FROM feedback_records
		WHERE tenant_id = $1`

	var (
		stats                       = models.TenantStats{TenantID: tenantID}
		negative, neutral, positive int64
	)

	err := r.db.QueryRow(ctx, query, tenantID).Scan(
		&stats.TotalFeedback, &stats.AverageRating,
		&negative, &neutral, &positive,
		&stats.IndexedDocuments,
	)
	if err != nil {
		return nil, huberrors.NewStoreError("failed to compute tenant stats", err)
	}

	stats.SentimentCounts = map[models.Sentiment]int64{
		models.SentimentNegative: negative,
		models.SentimentNeutral:  neutral,
		models.SentimentPositive: positive,
	}

	return &stats, nil
}

// ListIDsWithoutIndexedDocument returns IDs of feedback records whose document is missing or has no vector,
// oldest first. Used to backfill the index.
func (r *FeedbackRecordsRepository) ListIDsWithoutIndexedDocument(ctx context.Context) ([]uuid.UUID, error) {
	rows, err := r.db.Query(ctx, `
		SELECT fr.id FROM feedback_records fr
		WHERE trim(fr.description) != ''
		  AND NOT EXISTS (
		    SELECT 1 FROM embedded_documents d
		    WHERE d.feedback_record_id = fr.id AND d.embedding IS NOT NULL
		  )
		ORDER BY fr.created_at, fr.id`)
	if err != nil {
		return nil, huberrors.NewStoreError("list feedback record ids for backfill", err)
	}
	defer rows.Close()

	var ids []uuid.UUID

	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, huberrors.NewStoreError("scan feedback record id", err)
		}

		ids = append(ids, id)
	}

	if err := rows.Err(); err != nil {
		return nil, huberrors.NewStoreError("iterating backfill ids", err)
	}

	return ids, nil
}
