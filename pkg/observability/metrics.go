package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	metricRowsTotal       = "lattice.profile.rows.total"
	metricRowsSkipped     = "lattice.profile.rows.skipped.total"
	metricBatchesTotal    = "lattice.profile.batches.total"
	metricPartitionsTotal = "lattice.profile.partitions.merged.total"
	metricStageDuration   = "lattice.profile.stage.duration.seconds"

	attrStage = "stage"
	attrLift  = "lift"
)

// durationBucketBoundaries covers 1ms to 600s, from tiny in-memory inputs to
// long database scans.
var durationBucketBoundaries = []float64{0.001, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300, 600}

// metricBuilder accumulates OTel instrument creation errors,
// enabling batch construction with a single error check.
type metricBuilder struct {
	meter metric.Meter
	err   error
}

func newMetricBuilder(mt metric.Meter) *metricBuilder {
	return &metricBuilder{meter: mt}
}

func (b *metricBuilder) counter(name, desc, unit string) metric.Int64Counter {
	c, err := b.meter.Int64Counter(name, metric.WithDescription(desc), metric.WithUnit(unit))
	b.setErr(name, err)

	return c
}

func (b *metricBuilder) histogram(name, desc, unit string, bounds ...float64) metric.Float64Histogram {
	opts := []metric.Float64HistogramOption{
		metric.WithDescription(desc),
		metric.WithUnit(unit),
	}

	if len(bounds) > 0 {
		opts = append(opts, metric.WithExplicitBucketBoundaries(bounds...))
	}

	h, err := b.meter.Float64Histogram(name, opts...)
	b.setErr(name, err)

	return h
}

// setErr records the first instrument creation error.
func (b *metricBuilder) setErr(name string, err error) {
	if err != nil && b.err == nil {
		b.err = fmt.Errorf("create %s: %w", name, err)
	}
}

// ProfileMetrics holds the instruments recorded by a profiling run.
// Every method is a no-op on a nil receiver.
type ProfileMetrics struct {
	rows       metric.Int64Counter
	skipped    metric.Int64Counter
	batches    metric.Int64Counter
	partitions metric.Int64Counter
	stage      metric.Float64Histogram
}

// NewProfileMetrics creates profiling instruments from the given meter.
func NewProfileMetrics(mt metric.Meter) (*ProfileMetrics, error) {
	b := newMetricBuilder(mt)

	pm := &ProfileMetrics{
		rows:       b.counter(metricRowsTotal, "Rows folded into frequency tables", "{row}"),
		skipped:    b.counter(metricRowsSkipped, "Absent rows skipped", "{row}"),
		batches:    b.counter(metricBatchesTotal, "Row batches dispatched to partitions", "{batch}"),
		partitions: b.counter(metricPartitionsTotal, "Partition states combined into the root", "{partition}"),
		stage:      b.histogram(metricStageDuration, "Duration of profiling stages", "s", durationBucketBoundaries...),
	}

	if b.err != nil {
		return nil, b.err
	}

	return pm, nil
}

// RecordBatch counts one dispatched batch.
func (pm *ProfileMetrics) RecordBatch(ctx context.Context, lift string, rows, skipped int) {
	if pm == nil {
		return
	}

	attrs := metric.WithAttributes(attribute.String(attrLift, lift))
	pm.batches.Add(ctx, 1, attrs)
	pm.rows.Add(ctx, int64(rows), attrs)
	pm.skipped.Add(ctx, int64(skipped), attrs)
}

// RecordMerge counts partition states combined into the root state.
func (pm *ProfileMetrics) RecordMerge(ctx context.Context, partitions int) {
	if pm == nil {
		return
	}

	pm.partitions.Add(ctx, int64(partitions))
}

// RecordStage records how long a named stage took.
func (pm *ProfileMetrics) RecordStage(ctx context.Context, stage string, d time.Duration) {
	if pm == nil {
		return
	}

	pm.stage.Record(ctx, d.Seconds(), metric.WithAttributes(attribute.String(attrStage, stage)))
}
