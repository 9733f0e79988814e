package observability

import (
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// newSampler samples root spans at ratio and follows the parent's decision otherwise.
// HTTP requests arrive as roots from otelhttp; re-index jobs start their own roots in the worker.
// ratio >= 1 keeps every trace, ratio <= 0 keeps only traces whose caller already sampled.
func newSampler(ratio float64) sdktrace.Sampler {
	switch {
	case ratio >= 1:
		return sdktrace.ParentBased(sdktrace.AlwaysSample())
	case ratio <= 0:
		return sdktrace.ParentBased(sdktrace.NeverSample())
	default:
		return sdktrace.ParentBased(sdktrace.TraceIDRatioBased(ratio))
	}
}
