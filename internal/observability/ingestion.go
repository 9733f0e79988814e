package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// IngestionMetrics records the feedback ingestion pipeline (enrichment, tags, outcome).
type IngestionMetrics interface {
	RecordIngestion(ctx context.Context, outcome string, duration time.Duration)
	RecordEnrichmentFailure(ctx context.Context, stage string)
	RecordTagWrites(ctx context.Context, recorded, failed int)
	RecordModelProviderFailure(ctx context.Context, category string)
}

type ingestionMetrics struct {
	ingestions        metric.Int64Counter
	duration          metric.Float64Histogram
	enrichmentFailure metric.Int64Counter
	tagWrites         metric.Int64Counter
	providerFailures  metric.Int64Counter
}

// NewIngestionMetrics creates IngestionMetrics. Returns (nil, nil) when meter is nil (metrics disabled).
func NewIngestionMetrics(meter metric.Meter) (IngestionMetrics, error) {
	if meter == nil {
		//nolint:nilnil // intentional: callers use "if metrics != nil" when metrics disabled
		return nil, nil
	}

	ingestions, err := meter.Int64Counter(
		MetricNameIngestions,
		metric.WithDescription("Feedback ingestion requests by outcome"),
	)
	if err != nil {
		return nil, fmt.Errorf("create ingestions counter: %w", err)
	}

	duration, err := meter.Float64Histogram(
		MetricNameIngestionDuration,
		metric.WithDescription("Feedback ingestion duration including enrichment (seconds)"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("create ingestion duration histogram: %w", err)
	}

	enrichmentFailure, err := meter.Int64Counter(
		MetricNameEnrichmentFailures,
		metric.WithDescription("Non-fatal enrichment failures by stage (classify, summarize, tags, index)"),
	)
	if err != nil {
		return nil, fmt.Errorf("create enrichment failures counter: %w", err)
	}

	tagWrites, err := meter.Int64Counter(
		MetricNameKeywordTagWrites,
		metric.WithDescription("Keyword tag upserts by result (recorded, failed)"),
	)
	if err != nil {
		return nil, fmt.Errorf("create tag writes counter: %w", err)
	}

	providerFailures, err := meter.Int64Counter(
		MetricNameModelProviderFailures,
		metric.WithDescription("Model provider call failures by category"),
	)
	if err != nil {
		return nil, fmt.Errorf("create provider failures counter: %w", err)
	}

	return &ingestionMetrics{
		ingestions:        ingestions,
		duration:          duration,
		enrichmentFailure: enrichmentFailure,
		tagWrites:         tagWrites,
		providerFailures:  providerFailures,
	}, nil
}

func (m *ingestionMetrics) RecordIngestion(ctx context.Context, outcome string, duration time.Duration) {
	outcome = NormalizeReason(outcome, AllowedIngestionOutcomes)
	attrs := metric.WithAttributes(attribute.String(AttrOutcome, outcome))
	m.ingestions.Add(ctx, 1, attrs)
	m.duration.Record(ctx, duration.Seconds(), attrs)
}

func (m *ingestionMetrics) RecordEnrichmentFailure(ctx context.Context, stage string) {
	stage = NormalizeReason(stage, AllowedEnrichmentStages)
	m.enrichmentFailure.Add(ctx, 1, metric.WithAttributes(attribute.String(AttrStage, stage)))
}

func (m *ingestionMetrics) RecordTagWrites(ctx context.Context, recorded, failed int) {
	if recorded > 0 {
		m.tagWrites.Add(ctx, int64(recorded), metric.WithAttributes(attribute.String(AttrResult, "recorded")))
	}

	if failed > 0 {
		m.tagWrites.Add(ctx, int64(failed), metric.WithAttributes(attribute.String(AttrResult, "failed")))
	}
}

func (m *ingestionMetrics) RecordModelProviderFailure(ctx context.Context, category string) {
	category = NormalizeReason(category, AllowedChatCategories)
	m.providerFailures.Add(ctx, 1, metric.WithAttributes(attribute.String(AttrCategory, category)))
}
