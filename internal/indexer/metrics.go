package indexer

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"go.uber.org/zap"

	"github.com/steemit/hnspool/pkg/telemetry"
)

type runMetrics struct {
	persisted metric.Int64Counter
	skipped   metric.Int64Counter
	failed    metric.Int64Counter
	runs      metric.Int64Counter
}

func newRunMetrics(logger *zap.Logger) *runMetrics {
	meter := telemetry.Meter()
	counter := func(name, desc string) metric.Int64Counter {
		c, err := meter.Int64Counter(name, metric.WithDescription(desc))
		if err != nil {
			logger.Warn("Failed to create counter", zap.String("name", name), zap.Error(err))
			return noop.Int64Counter{}
		}
		return c
	}

	return &runMetrics{
		persisted: counter("hnspool.items.persisted", "Items written to the store"),
		skipped:   counter("hnspool.items.skipped", "Items skipped as already known"),
		failed:    counter("hnspool.items.failed", "Items dropped after a fetch, validation or persist failure"),
		runs:      counter("hnspool.runs", "Completed ingestion runs"),
	}
}

func (m *runMetrics) record(ctx context.Context, report *RunReport, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.persisted.Add(ctx, int64(report.Persisted))
	m.skipped.Add(ctx, int64(report.Skipped))
	m.failed.Add(ctx, int64(report.Failed))
	m.runs.Add(ctx, 1, metric.WithAttributes(attribute.String("status", status)))
}
