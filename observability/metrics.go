package observability

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

// Metrics holds the service's metric instruments.
type Metrics struct {
	ingestTotal     metric.Int64Counter
	ingestBytes     metric.Int64Counter
	fetchFailures   metric.Int64Counter
	reconcilePruned metric.Int64Counter
	deleteTotal     metric.Int64Counter
}

// NewMetrics creates the instruments on the global meter provider. Safe to
// call when telemetry is disabled; the no-op provider absorbs all records.
func NewMetrics() (*Metrics, error) {
	meter := otel.Meter("cartercloud")

	ingestTotal, err := meter.Int64Counter("ingest.total",
		metric.WithDescription("Files ingested, by source (upload or fetch)"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating ingest.total counter: %w", err)
	}

	ingestBytes, err := meter.Int64Counter("ingest.bytes",
		metric.WithDescription("Bytes written to blob storage by ingestion"),
		metric.WithUnit("By"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating ingest.bytes counter: %w", err)
	}

	fetchFailures, err := meter.Int64Counter("fetch.failures",
		metric.WithDescription("Remote fetch ingestions that failed"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating fetch.failures counter: %w", err)
	}

	reconcilePruned, err := meter.Int64Counter("reconcile.pruned",
		metric.WithDescription("File records pruned because their blob was missing"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating reconcile.pruned counter: %w", err)
	}

	deleteTotal, err := meter.Int64Counter("delete.total",
		metric.WithDescription("Delete operations handled"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating delete.total counter: %w", err)
	}

	return &Metrics{
		ingestTotal:     ingestTotal,
		ingestBytes:     ingestBytes,
		fetchFailures:   fetchFailures,
		reconcilePruned: reconcilePruned,
		deleteTotal:     deleteTotal,
	}, nil
}

// RecordIngest records a completed ingestion.
func (m *Metrics) RecordIngest(ctx context.Context, source string, bytes int64) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(Attr("source", source))
	m.ingestTotal.Add(ctx, 1, attrs)
	m.ingestBytes.Add(ctx, bytes, attrs)
}

// RecordFetchFailure records a failed remote fetch.
func (m *Metrics) RecordFetchFailure(ctx context.Context) {
	if m == nil {
		return
	}
	m.fetchFailures.Add(ctx, 1)
}

// RecordReconcile records pruned records from a reconciliation pass.
func (m *Metrics) RecordReconcile(ctx context.Context, pruned int) {
	if m == nil || pruned == 0 {
		return
	}
	m.reconcilePruned.Add(ctx, int64(pruned))
}

// RecordDelete records a delete operation.
func (m *Metrics) RecordDelete(ctx context.Context) {
	if m == nil {
		return
	}
	m.deleteTotal.Add(ctx, 1)
}
