package handlers

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/insightflow/hub/internal/models"
)

type mockIngestionService struct {
	ingestFunc func(ctx context.Context, req *models.IngestFeedbackRequest) (*models.FeedbackRecord, error)
}

func (m *mockIngestionService) Ingest(ctx context.Context, req *models.IngestFeedbackRequest) (*models.FeedbackRecord, error) {
	if m.ingestFunc != nil {
		return m.ingestFunc(ctx, req)
	}

	return &models.FeedbackRecord{ID: uuid.New(), TenantID: req.TenantID, Description: req.Text}, nil
}

type mockFeedbackRecordsService struct {
	getFunc  func(ctx context.Context, id uuid.UUID) (*models.FeedbackRecord, error)
	listFunc func(ctx context.Context, filters *models.ListFeedbackRecordsFilters) (*models.ListFeedbackRecordsResponse, error)
}

func (m *mockFeedbackRecordsService) GetFeedbackRecord(ctx context.Context, id uuid.UUID) (*models.FeedbackRecord, error) {
	if m.getFunc != nil {
		return m.getFunc(ctx, id)
	}

	return nil, errors.New("not implemented")
}

func (m *mockFeedbackRecordsService) ListFeedbackRecords(
	ctx context.Context, filters *models.ListFeedbackRecordsFilters,
) (*models.ListFeedbackRecordsResponse, error) {
	if m.listFunc != nil {
		return m.listFunc(ctx, filters)
	}

	return &models.ListFeedbackRecordsResponse{Data: []models.FeedbackRecord{}}, nil
}

type mockSearchService struct {
	searchFunc func(ctx context.Context, req *models.SearchFeedbackRequest) (*models.SearchFeedbackResponse, error)
}

func (m *mockSearchService) Search(ctx context.Context, req *models.SearchFeedbackRequest) (*models.SearchFeedbackResponse, error) {
	if m.searchFunc != nil {
		return m.searchFunc(ctx, req)
	}

	return &models.SearchFeedbackResponse{Results: []models.ScoredDocument{}}, nil
}

type mockChatService struct {
	replyFunc func(ctx context.Context, req *models.ChatRequest) (*models.ChatMessage, error)
}

func (m *mockChatService) Reply(ctx context.Context, req *models.ChatRequest) (*models.ChatMessage, error) {
	if m.replyFunc != nil {
		return m.replyFunc(ctx, req)
	}

	return &models.ChatMessage{Role: models.ChatRoleAssistant, Content: "ok"}, nil
}

type mockStatsService struct {
	statsFunc    func(ctx context.Context, tenantID string) (*models.TenantStats, error)
	keywordsFunc func(ctx context.Context, tenantID string, limit int) ([]models.KeywordTag, error)
}

func (m *mockStatsService) TenantStats(ctx context.Context, tenantID string) (*models.TenantStats, error) {
	if m.statsFunc != nil {
		return m.statsFunc(ctx, tenantID)
	}

	return &models.TenantStats{TenantID: tenantID}, nil
}

func (m *mockStatsService) TopKeywords(ctx context.Context, tenantID string, limit int) ([]models.KeywordTag, error) {
	if m.keywordsFunc != nil {
		return m.keywordsFunc(ctx, tenantID, limit)
	}

	return []models.KeywordTag{}, nil
}

type mockPinger struct {
	err error
}

func (m *mockPinger) Ping(context.Context) error { return m.err }
