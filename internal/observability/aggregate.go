package observability

import (
	"fmt"

	"go.opentelemetry.io/otel/metric"
)

// Metrics holds all hub metric collectors. When metrics are disabled the *Metrics is nil.
// Components accept the narrow interface they need and handle a nil value.
type Metrics struct {
	HTTP      HubMetrics
	Ingestion IngestionMetrics
	Indexing  IndexingMetrics
	Chat      ChatMetrics
	Cache     QueryCacheMetrics
	BodyLimit BodyLimitMetrics
}

// NewMetrics creates every collector from the given meter.
// Returns (nil, nil) when meter is nil (metrics disabled).
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	if meter == nil {
		//nolint:nilnil // intentional: callers use "if metrics != nil" when metrics disabled
		return nil, nil
	}

	httpMetrics, err := NewHubMetrics(meter)
	if err != nil {
		return nil, fmt.Errorf("http metrics: %w", err)
	}

	ingestion, err := NewIngestionMetrics(meter)
	if err != nil {
		return nil, fmt.Errorf("ingestion metrics: %w", err)
	}

	indexing, err := NewIndexingMetrics(meter)
	if err != nil {
		return nil, fmt.Errorf("indexing metrics: %w", err)
	}

	chat, err := NewChatMetrics(meter)
	if err != nil {
		return nil, fmt.Errorf("chat metrics: %w", err)
	}

	cache, err := NewQueryCacheMetrics(meter)
	if err != nil {
		return nil, fmt.Errorf("query cache metrics: %w", err)
	}

	bodyLimit, err := NewBodyLimitMetrics(meter)
	if err != nil {
		return nil, fmt.Errorf("body limit metrics: %w", err)
	}

	return &Metrics{
		HTTP:      httpMetrics,
		Ingestion: ingestion,
		Indexing:  indexing,
		Chat:      chat,
		Cache:     cache,
		BodyLimit: bodyLimit,
	}, nil
}
