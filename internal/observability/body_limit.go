package observability

import (
	"context"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Body limit routes. Ingest and chat carry the large bodies (feedback text, conversations),
// so their rejections are counted apart from everything else.
const (
	BodyLimitRouteFeedback = "feedback"
	BodyLimitRouteSearch   = "search"
	BodyLimitRouteChat     = "chat"
	BodyLimitRouteOther    = "other"
)

// BodyLimitMetrics counts requests rejected with 413 because the body exceeded MAX_REQUEST_BODY_BYTES.
type BodyLimitMetrics interface {
	RecordRequestBodyTooLarge(ctx context.Context, path string)
}

type bodyLimitMetrics struct {
	tooLarge metric.Int64Counter
}

// NewBodyLimitMetrics creates BodyLimitMetrics. Returns (nil, nil) when meter is nil (metrics disabled).
func NewBodyLimitMetrics(meter metric.Meter) (BodyLimitMetrics, error) {
	if meter == nil {
		//nolint:nilnil // intentional: callers use "if metrics != nil" when metrics disabled
		return nil, nil
	}

	counter, err := meter.Int64Counter(
		MetricNameRequestBodyTooLarge,
		metric.WithDescription("Requests rejected with 413 because the body exceeded the configured limit. "+
			"Label route: feedback, search, chat, other."),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, fmt.Errorf("create request body too large counter: %w", err)
	}

	return &bodyLimitMetrics{tooLarge: counter}, nil
}

func (b *bodyLimitMetrics) RecordRequestBodyTooLarge(ctx context.Context, path string) {
	b.tooLarge.Add(ctx, 1, metric.WithAttributes(attribute.String(AttrRoute, BodyLimitRoute(path))))
}

// BodyLimitRoute maps a request path to a bounded route label.
func BodyLimitRoute(path string) string {
	path = strings.TrimSuffix(path, "/")

	switch path {
	case "/v1/feedback":
		return BodyLimitRouteFeedback
	case "/v1/feedback/search":
		return BodyLimitRouteSearch
	case "/v1/chat":
		return BodyLimitRouteChat
	default:
		return BodyLimitRouteOther
	}
}
