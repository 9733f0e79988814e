package service

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/insightflow/hub/internal/huberrors"
	"github.com/insightflow/hub/internal/models"
)

const (
	defaultListLimit     = 100
	maxListLimit         = 1000
	defaultKeywordsLimit = 10
	maxKeywordsLimit     = 100
)

// FeedbackRecordsRepository defines the interface for feedback records data access.
type FeedbackRecordsRepository interface {
	Create(ctx context.Context, params *models.CreateFeedbackRecordParams) (*models.FeedbackRecord, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.FeedbackRecord, error)
	List(ctx context.Context, filters *models.ListFeedbackRecordsFilters) ([]models.FeedbackRecord, error)
	Count(ctx context.Context, filters *models.ListFeedbackRecordsFilters) (int64, error)
	Stats(ctx context.Context, tenantID string) (*models.TenantStats, error)
}

// FeedbackRecordsService handles reads of stored feedback records.
type FeedbackRecordsService struct {
	repo            FeedbackRecordsRepository
	allowGlobalList bool
}

// NewFeedbackRecordsService creates a new feedback records service.
// allowGlobalList permits listing without a tenant, across every tenant.
func NewFeedbackRecordsService(repo FeedbackRecordsRepository, allowGlobalList bool) *FeedbackRecordsService {
	return &FeedbackRecordsService{repo: repo, allowGlobalList: allowGlobalList}
}

// GetFeedbackRecord retrieves a single feedback record by ID
func (s *FeedbackRecordsService) GetFeedbackRecord(ctx context.Context, id uuid.UUID) (*models.FeedbackRecord, error) {
	return s.repo.GetByID(ctx, id)
}

// ListFeedbackRecords retrieves a page of feedback records, newest first.
func (s *FeedbackRecordsService) ListFeedbackRecords(
	ctx context.Context, filters *models.ListFeedbackRecordsFilters,
) (*models.ListFeedbackRecordsResponse, error) {
	tenantID, err := scopeTenant(filters.TenantID, s.allowGlobalList)
	if err != nil {
		return nil, err
	}

	filters.TenantID = tenantID

	if filters.Limit <= 0 {
		filters.Limit = defaultListLimit
	}

	if filters.Limit > maxListLimit {
		filters.Limit = maxListLimit
	}

	records, err := s.repo.List(ctx, filters)
	if err != nil {
		return nil, err
	}

	total, err := s.repo.Count(ctx, filters)
	if err != nil {
		return nil, err
	}

	return &models.ListFeedbackRecordsResponse{
		Data:   records,
		Total:  total,
		Limit:  filters.Limit,
		Offset: filters.Offset,
	}, nil
}

// StatsService serves tenant dashboard aggregates.
type StatsService struct {
	records FeedbackRecordsRepository
	tags    *TagAggregator
}

// NewStatsService creates a StatsService.
func NewStatsService(records FeedbackRecordsRepository, tags *TagAggregator) *StatsService {
	return &StatsService{records: records, tags: tags}
}

// TenantStats returns feedback totals for the tenant.
func (s *StatsService) TenantStats(ctx context.Context, tenantID string) (*models.TenantStats, error) {
	tenantID = strings.TrimSpace(tenantID)
	if tenantID == "" {
		return nil, ErrMissingTenantID
	}

	return s.records.Stats(ctx, tenantID)
}

// TopKeywords returns the tenant's most frequent keyword tags, highest total first.
// limit <= 0 returns 10; limit is capped at 100.
func (s *StatsService) TopKeywords(ctx context.Context, tenantID string, limit int) ([]models.KeywordTag, error) {
	tenantID = strings.TrimSpace(tenantID)
	if tenantID == "" {
		return nil, ErrMissingTenantID
	}

	if limit <= 0 {
		limit = defaultKeywordsLimit
	}

	if limit > maxKeywordsLimit {
		return nil, huberrors.NewValidationError("limit", "limit must be at most 100")
	}

	tags, err := s.tags.TopKeywords(ctx, tenantID, limit)
	if err != nil {
		return nil, err
	}

	if tags == nil {
		tags = []models.KeywordTag{}
	}

	return tags, nil
}
