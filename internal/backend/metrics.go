package backend

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var meter = otel.Meter("kestrel.backend")

var (
	evalTotal metric.Int64Counter
	batchSize metric.Int64Histogram

	metricsOnce sync.Once
	metricsErr  error
)

// initMetrics initializes the metrics. Safe to call multiple times.
func initMetrics() error {
	metricsOnce.Do(func() {
		var err error

		evalTotal, err = meter.Int64Counter(
			"backend_evaluations_total",
			metric.WithDescription("Total number of positions evaluated"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		batchSize, err = meter.Int64Histogram(
			"backend_batch_size",
			metric.WithDescription("Entries per computed batch"),
		)
		if err != nil {
			metricsErr = err
			return
		}
	})
	return metricsErr
}

// recordEvaluation records one completed forward pass.
func recordEvaluation(ctx context.Context, backend string, entries int) {
	if err := initMetrics(); err != nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("backend", backend))
	evalTotal.Add(ctx, int64(entries), attrs)
	batchSize.Record(ctx, int64(entries), attrs)
}
