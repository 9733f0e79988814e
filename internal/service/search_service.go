package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/insightflow/hub/internal/huberrors"
	"github.com/insightflow/hub/internal/models"
	"github.com/insightflow/hub/internal/observability"
	"github.com/insightflow/hub/pkg/cache"
)

const (
	// DefaultRetrievalLimit is the number of documents retrieved when k is not set.
	DefaultRetrievalLimit = 40
	// MaxRetrievalLimit caps k for any similarity query.
	MaxRetrievalLimit = 200
)

var (
	// ErrEmptyQuery is returned when the search text is blank.
	ErrEmptyQuery = huberrors.NewValidationError("query", "query is required and must be non-empty")
	// ErrMissingTenantID is returned when a query is not scoped to a tenant and global search is off.
	ErrMissingTenantID = huberrors.NewValidationError("tenantId", "tenantId is required")
)

// SimilaritySearch ranks indexed documents by cosine distance to a vector.
type SimilaritySearch struct {
	repo         EmbeddedDocumentsRepository
	defaultLimit int
}

// NewSimilaritySearch creates a SimilaritySearch. defaultLimit <= 0 uses DefaultRetrievalLimit.
func NewSimilaritySearch(repo EmbeddedDocumentsRepository, defaultLimit int) *SimilaritySearch {
	if defaultLimit <= 0 {
		defaultLimit = DefaultRetrievalLimit
	}

	return &SimilaritySearch{repo: repo, defaultLimit: min(defaultLimit, MaxRetrievalLimit)}
}

// Nearest returns up to k indexed documents closest to vec, nearest first.
// A nil tenantID searches every tenant. k <= 0 uses the default limit; k is capped at MaxRetrievalLimit.
func (s *SimilaritySearch) Nearest(
	ctx context.Context, vec []float32, tenantID *string, k int,
) ([]models.ScoredDocument, error) {
	if len(vec) == 0 {
		return nil, huberrors.NewValidationError("vector", "query vector is empty")
	}

	if k <= 0 {
		k = s.defaultLimit
	}

	docs, err := s.repo.Nearest(ctx, vec, tenantID, min(k, MaxRetrievalLimit))
	if err != nil {
		return nil, fmt.Errorf("nearest documents: %w", err)
	}

	return docs, nil
}

// QueryEmbedder embeds question text for retrieval, caching vectors by exact query text.
type QueryEmbedder struct {
	indexer      *EmbeddingIndexer
	cache        *cache.LoaderCache[string, []float32]
	cacheMetrics observability.QueryCacheMetrics
}

// NewQueryEmbedder creates a QueryEmbedder. cacheSize <= 0 disables caching; cacheMetrics may be nil.
func NewQueryEmbedder(indexer *EmbeddingIndexer, cacheSize int, cacheMetrics observability.QueryCacheMetrics) (*QueryEmbedder, error) {
	q := &QueryEmbedder{indexer: indexer, cacheMetrics: cacheMetrics}

	if cacheSize > 0 {
		c, err := cache.NewLoaderCache[string, []float32](cacheSize, func(s string) string { return s })
		if err != nil {
			return nil, fmt.Errorf("query embedding cache: %w", err)
		}

		q.cache = c
	}

	return q, nil
}

// EmbedQuery returns the vector for query. source labels the lookup (observability.QuerySourceChat or
// observability.QuerySourceSearch); chat and search share one cache.
func (q *QueryEmbedder) EmbedQuery(ctx context.Context, source, query string) ([]float32, error) {
	if q.cache == nil {
		return q.load(ctx, query)
	}

	vec, hit, err := q.cache.GetWithStats(ctx, query, q.load)
	if err != nil {
		return nil, err
	}

	if q.cacheMetrics != nil {
		q.cacheMetrics.RecordQueryEmbeddingLookup(ctx, source, hit)
	}

	return vec, nil
}

func (q *QueryEmbedder) load(ctx context.Context, query string) ([]float32, error) {
	vecs, err := q.indexer.Embed(ctx, []string{query})
	if err != nil {
		return nil, err
	}

	return vecs[0], nil
}

// SearchService answers semantic search requests over indexed feedback.
type SearchService struct {
	embedder          *QueryEmbedder
	search            *SimilaritySearch
	allowGlobalSearch bool
	logger            *slog.Logger
}

// NewSearchService creates a SearchService. allowGlobalSearch permits requests without a tenant.
func NewSearchService(embedder *QueryEmbedder, search *SimilaritySearch, allowGlobalSearch bool, logger *slog.Logger) *SearchService {
	if logger == nil {
		logger = slog.Default()
	}

	return &SearchService{embedder: embedder, search: search, allowGlobalSearch: allowGlobalSearch, logger: logger}
}

// Search embeds the query and returns the nearest indexed documents for the tenant.
func (s *SearchService) Search(ctx context.Context, req *models.SearchFeedbackRequest) (*models.SearchFeedbackResponse, error) {
	query := strings.TrimSpace(req.Query)
	if query == "" {
		return nil, ErrEmptyQuery
	}

	tenantID, err := scopeTenant(req.TenantID, s.allowGlobalSearch)
	if err != nil {
		return nil, err
	}

	vec, err := s.embedder.EmbedQuery(ctx, observability.QuerySourceSearch, query)
	if err != nil {
		if !errors.Is(err, huberrors.ErrConfiguration) {
			s.logger.ErrorContext(ctx, "semantic search: embed query failed", "error", err)
		}

		return nil, err
	}

	docs, err := s.search.Nearest(ctx, vec, tenantID, req.TopK)
	if err != nil {
		s.logger.ErrorContext(ctx, "semantic search: nearest failed", "error", err)

		return nil, err
	}

	if docs == nil {
		docs = []models.ScoredDocument{}
	}

	return &models.SearchFeedbackResponse{Results: docs}, nil
}

// scopeTenant trims the tenant id. A blank tenant means global search, which must be allowed.
func scopeTenant(tenantID *string, allowGlobal bool) (*string, error) {
	if tenantID != nil {
		if trimmed := strings.TrimSpace(*tenantID); trimmed != "" {
			return &trimmed, nil
		}
	}

	if !allowGlobal {
		return nil, ErrMissingTenantID
	}

	//nolint:nilnil // nil tenant means search every tenant
	return nil, nil
}
