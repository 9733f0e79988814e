package observability

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// IndexingMetrics records the document indexing pipeline (inline and River worker).
// Methods accept ctx for future exemplar support.
type IndexingMetrics interface {
	RecordJobsEnqueued(ctx context.Context, count int64)
	RecordIndexingOutcome(ctx context.Context, status string, duration time.Duration)
	RecordWorkerError(ctx context.Context, reason string)
	SetQueueDepth(depth int)
}

type indexingMetrics struct {
	jobsEnqueued metric.Int64Counter
	outcomes     metric.Int64Counter
	workerErrors metric.Int64Counter
	duration     metric.Float64Histogram
	queueDepth   atomic.Int64
	queueGauge   metric.Float64ObservableGauge
}

// NewIndexingMetrics creates IndexingMetrics and registers the queue depth gauge.
// Returns (nil, nil) when meter is nil (metrics disabled).
func NewIndexingMetrics(meter metric.Meter) (IndexingMetrics, error) {
	if meter == nil {
		//nolint:nilnil // intentional: callers use "if metrics != nil" when metrics disabled
		return nil, nil
	}

	jobsEnqueued, err := meter.Int64Counter(
		MetricNameIndexingJobsEnqueued,
		metric.WithDescription("Total document indexing jobs enqueued"),
	)
	if err != nil {
		return nil, fmt.Errorf("create indexing jobs enqueued counter: %w", err)
	}

	outcomes, err := meter.Int64Counter(
		MetricNameIndexingOutcomes,
		metric.WithDescription("Document indexing outcomes by status"),
	)
	if err != nil {
		return nil, fmt.Errorf("create indexing outcomes counter: %w", err)
	}

	workerErrors, err := meter.Int64Counter(
		MetricNameIndexingWorkerErrors,
		metric.WithDescription("Indexing worker errors (get record, embed, store, configuration)"),
	)
	if err != nil {
		return nil, fmt.Errorf("create indexing worker errors counter: %w", err)
	}

	duration, err := meter.Float64Histogram(
		MetricNameIndexingDuration,
		metric.WithDescription("Document indexing duration (seconds)"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("create indexing duration histogram: %w", err)
	}

	m := &indexingMetrics{
		jobsEnqueued: jobsEnqueued,
		outcomes:     outcomes,
		workerErrors: workerErrors,
		duration:     duration,
	}

	queueGauge, err := meter.Float64ObservableGauge(
		MetricNameIndexingQueueDepth,
		metric.WithDescription("Current indexing queue depth (available, retryable, scheduled)"),
		metric.WithFloat64Callback(func(_ context.Context, o metric.Float64Observer) error {
			o.Observe(float64(m.queueDepth.Load()))

			return nil
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("create indexing queue depth gauge: %w", err)
	}

	m.queueGauge = queueGauge

	return m, nil
}

func (m *indexingMetrics) RecordJobsEnqueued(ctx context.Context, count int64) {
	m.jobsEnqueued.Add(ctx, count)
}

func (m *indexingMetrics) RecordIndexingOutcome(ctx context.Context, status string, duration time.Duration) {
	status = NormalizeReason(status, AllowedIndexingStatuses)
	attrs := metric.WithAttributes(attribute.String(AttrStatus, status))
	m.outcomes.Add(ctx, 1, attrs)
	m.duration.Record(ctx, duration.Seconds(), attrs)
}

func (m *indexingMetrics) RecordWorkerError(ctx context.Context, reason string) {
	reason = NormalizeReason(reason, AllowedIndexingWorkerReasons)
	m.workerErrors.Add(ctx, 1, metric.WithAttributes(attribute.String(AttrReason, reason)))
}

func (m *indexingMetrics) SetQueueDepth(depth int) {
	m.queueDepth.Store(int64(depth))
}
