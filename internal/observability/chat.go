package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// ChatMetrics records retrieval-augmented chat requests.
type ChatMetrics interface {
	RecordChat(ctx context.Context, category string, duration time.Duration)
	RecordRetrievedDocuments(ctx context.Context, count int)
}

type chatMetrics struct {
	responses metric.Int64Counter
	duration  metric.Float64Histogram
	retrieved metric.Int64Histogram
}

// NewChatMetrics creates ChatMetrics. Returns (nil, nil) when meter is nil (metrics disabled).
func NewChatMetrics(meter metric.Meter) (ChatMetrics, error) {
	if meter == nil {
		//nolint:nilnil // intentional: callers use "if metrics != nil" when metrics disabled
		return nil, nil
	}

	responses, err := meter.Int64Counter(
		MetricNameChatResponses,
		metric.WithDescription("Chat responses by category (ok or failure category)"),
	)
	if err != nil {
		return nil, fmt.Errorf("create chat responses counter: %w", err)
	}

	duration, err := meter.Float64Histogram(
		MetricNameChatDuration,
		metric.WithDescription("Chat duration including retrieval and generation (seconds)"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("create chat duration histogram: %w", err)
	}

	retrieved, err := meter.Int64Histogram(
		MetricNameRetrievedDocuments,
		metric.WithDescription("Documents retrieved as chat context per request"),
	)
	if err != nil {
		return nil, fmt.Errorf("create retrieved documents histogram: %w", err)
	}

	return &chatMetrics{responses: responses, duration: duration, retrieved: retrieved}, nil
}

func (m *chatMetrics) RecordChat(ctx context.Context, category string, duration time.Duration) {
	category = NormalizeReason(category, AllowedChatCategories)
	attrs := metric.WithAttributes(attribute.String(AttrCategory, category))
	m.responses.Add(ctx, 1, attrs)
	m.duration.Record(ctx, duration.Seconds(), attrs)
}

func (m *chatMetrics) RecordRetrievedDocuments(ctx context.Context, count int) {
	m.retrieved.Record(ctx, int64(count))
}
