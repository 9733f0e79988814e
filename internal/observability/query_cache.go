package observability

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Query sources for hub_query_embedding_lookups_total.
const (
	QuerySourceChat   = "chat"
	QuerySourceSearch = "search"
)

// QueryCacheMetrics records query embedding cache lookups. A miss costs one embedding provider call,
// so the hit ratio per source shows how much chat and search traffic the cache absorbs.
type QueryCacheMetrics interface {
	RecordQueryEmbeddingLookup(ctx context.Context, source string, hit bool)
}

type queryCacheMetrics struct {
	lookups metric.Int64Counter
}

// NewQueryCacheMetrics creates QueryCacheMetrics. Returns (nil, nil) when meter is nil (metrics disabled).
func NewQueryCacheMetrics(meter metric.Meter) (QueryCacheMetrics, error) {
	if meter == nil {
		//nolint:nilnil // intentional: callers use "if metrics != nil" when metrics disabled
		return nil, nil
	}

	lookups, err := meter.Int64Counter(
		MetricNameQueryEmbeddingLookups,
		metric.WithDescription("Query embedding cache lookups. Labels source: chat, search; result: hit, miss. "+
			"Provider calls saved = rate(result=hit)."),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, fmt.Errorf("create query embedding lookups counter: %w", err)
	}

	return &queryCacheMetrics{lookups: lookups}, nil
}

func (q *queryCacheMetrics) RecordQueryEmbeddingLookup(ctx context.Context, source string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}

	q.lookups.Add(ctx, 1, metric.WithAttributes(
		attribute.String(AttrSource, NormalizeReason(source, AllowedQuerySources)),
		attribute.String(AttrResult, result),
	))
}
