package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/insightflow/hub/internal/huberrors"
	"github.com/insightflow/hub/internal/models"
)

// KeywordTagsRepository handles data access for per-tenant keyword counters.
type KeywordTagsRepository struct {
	db *pgxpool.Pool
}

// NewKeywordTagsRepository creates a new keyword tags repository.
func NewKeywordTagsRepository(db *pgxpool.Pool) *KeywordTagsRepository {
	return &KeywordTagsRepository{db: db}
}

// UpsertIncrement creates the (tenant, name) tag with total = delta, or adds delta to the
// existing total, in a single statement. Concurrent callers never lose an increment.
func (r *KeywordTagsRepository) UpsertIncrement(
	ctx context.Context, tenantID, name string, delta int64,
) (*models.KeywordTag, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return nil, huberrors.NewStoreError("failed to generate keyword tag id", err)
	}

	var tag models.KeywordTag

	err = r.db.QueryRow(ctx, `
		INSERT INTO keyword_tags (id, tenant_id, name, total)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (tenant_id, name)
		DO UPDATE SET total = keyword_tags.total + EXCLUDED.total, updated_at = now()
		RETURNING id, tenant_id, name, total, created_at, updated_at`,
		id, tenantID, name, delta,
	).Scan(&tag.ID, &tag.TenantID, &tag.Name, &tag.Total, &tag.CreatedAt, &tag.UpdatedAt)
	if err != nil {
		return nil, huberrors.NewStoreError("failed to upsert keyword tag", err)
	}

	return &tag, nil
}

// Top returns the tenant's most frequent keywords, highest total first (ties by name).
func (r *KeywordTagsRepository) Top(ctx context.Context, tenantID string, limit int) ([]models.KeywordTag, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, tenant_id, name, total, created_at, updated_at
		FROM keyword_tags
		WHERE tenant_id = $1
		ORDER BY total DESC, name ASC
		LIMIT $2`, tenantID, limit)
	if err != nil {
		return nil, huberrors.NewStoreError("failed to list keyword tags", err)
	}
	defer rows.Close()

	tags := []models.KeywordTag{}

	for rows.Next() {
		var tag models.KeywordTag
		if err := rows.Scan(&tag.ID, &tag.TenantID, &tag.Name, &tag.Total, &tag.CreatedAt, &tag.UpdatedAt); err != nil {
			return nil, huberrors.NewStoreError("failed to scan keyword tag", err)
		}

		tags = append(tags, tag)
	}

	if err := rows.Err(); err != nil {
		return nil, huberrors.NewStoreError("error iterating keyword tags", err)
	}

	return tags, nil
}
