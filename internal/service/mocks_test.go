package service

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/rivertype"

	"github.com/insightflow/hub/internal/models"
	"github.com/insightflow/hub/internal/repository"
)

type mockGenerator struct {
	generateFunc func(ctx context.Context, req models.GenerationRequest) (string, error)
}

func (m *mockGenerator) Generate(ctx context.Context, req models.GenerationRequest) (string, error) {
	if m.generateFunc != nil {
		return m.generateFunc(ctx, req)
	}

	return "", nil
}

type mockEmbeddingClient struct {
	createFunc func(ctx context.Context, inputs []string) ([][]float32, error)
}

func (m *mockEmbeddingClient) CreateEmbeddings(ctx context.Context, inputs []string) ([][]float32, error) {
	if m.createFunc != nil {
		return m.createFunc(ctx, inputs)
	}

	out := make([][]float32, len(inputs))
	for i := range inputs {
		out[i] = []float32{1, 0}
	}

	return out, nil
}

type mockFeedbackRecordsRepo struct {
	createFunc  func(ctx context.Context, params *models.CreateFeedbackRecordParams) (*models.FeedbackRecord, error)
	getByIDFunc func(ctx context.Context, id uuid.UUID) (*models.FeedbackRecord, error)
	listFunc    func(ctx context.Context, filters *models.ListFeedbackRecordsFilters) ([]models.FeedbackRecord, error)
	countFunc   func(ctx context.Context, filters *models.ListFeedbackRecordsFilters) (int64, error)
	statsFunc   func(ctx context.Context, tenantID string) (*models.TenantStats, error)
}

func (m *mockFeedbackRecordsRepo) Create(
	ctx context.Context, params *models.CreateFeedbackRecordParams,
) (*models.FeedbackRecord, error) {
	if m.createFunc != nil {
		return m.createFunc(ctx, params)
	}

	return &models.FeedbackRecord{
		ID:          uuid.New(),
		TenantID:    params.TenantID,
		Rate:        params.Rate,
		Description: params.Description,
		Sentiment:   params.Sentiment,
		AIResponse:  params.AIResponse,
	}, nil
}

func (m *mockFeedbackRecordsRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.FeedbackRecord, error) {
	if m.getByIDFunc != nil {
		return m.getByIDFunc(ctx, id)
	}

	return nil, errors.New("not implemented")
}

func (m *mockFeedbackRecordsRepo) List(
	ctx context.Context, filters *models.ListFeedbackRecordsFilters,
) ([]models.FeedbackRecord, error) {
	if m.listFunc != nil {
		return m.listFunc(ctx, filters)
	}

	return nil, nil
}

func (m *mockFeedbackRecordsRepo) Count(ctx context.Context, filters *models.ListFeedbackRecordsFilters) (int64, error) {
	if m.countFunc != nil {
		return m.countFunc(ctx, filters)
	}

	return 0, nil
}

func (m *mockFeedbackRecordsRepo) Stats(ctx context.Context, tenantID string) (*models.TenantStats, error) {
	if m.statsFunc != nil {
		return m.statsFunc(ctx, tenantID)
	}

	return &models.TenantStats{TenantID: tenantID}, nil
}

// memoryTagsRepo is an in-memory KeywordTagsRepository whose increments are atomic under a mutex,
// mirroring the single-statement upsert.
type memoryTagsRepo struct {
	mu     sync.Mutex
	totals map[string]map[string]int64
	failOn map[string]bool
}

func newMemoryTagsRepo() *memoryTagsRepo {
	return &memoryTagsRepo{totals: make(map[string]map[string]int64), failOn: make(map[string]bool)}
}

func (r *memoryTagsRepo) UpsertIncrement(_ context.Context, tenantID, name string, delta int64) (*models.KeywordTag, error) {
	if r.failOn[name] {
		return nil, errors.New("connection reset")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.totals[tenantID] == nil {
		r.totals[tenantID] = make(map[string]int64)
	}

	r.totals[tenantID][name] += delta

	return &models.KeywordTag{TenantID: tenantID, Name: name, Total: r.totals[tenantID][name]}, nil
}

func (r *memoryTagsRepo) Top(_ context.Context, tenantID string, limit int) ([]models.KeywordTag, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []models.KeywordTag
	for name, total := range r.totals[tenantID] {
		out = append(out, models.KeywordTag{TenantID: tenantID, Name: name, Total: total})
	}

	if len(out) > limit {
		out = out[:limit]
	}

	return out, nil
}

func (r *memoryTagsRepo) total(tenantID, name string) int64 {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.totals[tenantID][name]
}

type mockDocumentsRepo struct {
	insertFunc  func(ctx context.Context, doc models.EmbeddedDocument) (*models.UnindexedDocument, error)
	attachFunc  func(ctx context.Context, id uuid.UUID, vec []float32) (*models.IndexedDocument, error)
	lookupFunc  func(ctx context.Context, feedbackRecordID uuid.UUID) (*models.DocumentLookup, error)
	nearestFunc func(ctx context.Context, vec []float32, tenantID *string, k int) ([]models.ScoredDocument, error)
}

func (m *mockDocumentsRepo) Insert(ctx context.Context, doc models.EmbeddedDocument) (*models.UnindexedDocument, error) {
	if m.insertFunc != nil {
		return m.insertFunc(ctx, doc)
	}

	doc.ID = uuid.New()

	return &models.UnindexedDocument{EmbeddedDocument: doc}, nil
}

func (m *mockDocumentsRepo) AttachVector(ctx context.Context, id uuid.UUID, vec []float32) (*models.IndexedDocument, error) {
	if m.attachFunc != nil {
		return m.attachFunc(ctx, id, vec)
	}

	return &models.IndexedDocument{EmbeddedDocument: models.EmbeddedDocument{ID: id}, Embedding: vec}, nil
}

func (m *mockDocumentsRepo) LookupByFeedbackRecordID(ctx context.Context, feedbackRecordID uuid.UUID) (*models.DocumentLookup, error) {
	if m.lookupFunc != nil {
		return m.lookupFunc(ctx, feedbackRecordID)
	}

	return &models.DocumentLookup{}, nil
}

func (m *mockDocumentsRepo) Nearest(
	ctx context.Context, vec []float32, tenantID *string, k int,
) ([]models.ScoredDocument, error) {
	if m.nearestFunc != nil {
		return m.nearestFunc(ctx, vec, tenantID, k)
	}

	return nil, nil
}

type mockJobInserter struct {
	insertFunc func(ctx context.Context, args river.JobArgs, opts *river.InsertOpts) (*rivertype.JobInsertResult, error)
}

func (m *mockJobInserter) Insert(
	ctx context.Context, args river.JobArgs, opts *river.InsertOpts,
) (*rivertype.JobInsertResult, error) {
	if m.insertFunc != nil {
		return m.insertFunc(ctx, args, opts)
	}

	return &rivertype.JobInsertResult{}, nil
}

var (
	_ FeedbackRecordsRepository   = (*mockFeedbackRecordsRepo)(nil)
	_ KeywordTagsRepository       = (*memoryTagsRepo)(nil)
	_ EmbeddedDocumentsRepository = (*mockDocumentsRepo)(nil)
	_ EmbeddedDocumentsRepository = (*repository.EmbeddedDocumentsRepository)(nil)
	_ KeywordTagsRepository       = (*repository.KeywordTagsRepository)(nil)
	_ FeedbackRecordsRepository   = (*repository.FeedbackRecordsRepository)(nil)
)

func strPtr(s string) *string { return &s }
