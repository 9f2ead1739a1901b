// Package profile drives a partitioned frequency profile over a row source:
// rows are lifted into lattices, counted by independent partitions and the
// partition states are combined into one result.
package profile

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"runtime"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	nooptrace "go.opentelemetry.io/otel/trace/noop"
	"golang.org/x/sync/errgroup"

	"github.com/Sumatoshi-tech/lattice/pkg/freq"
	"github.com/Sumatoshi-tech/lattice/pkg/lattice"
	"github.com/Sumatoshi-tech/lattice/pkg/observability"
	"github.com/Sumatoshi-tech/lattice/pkg/source"
	"github.com/Sumatoshi-tech/lattice/pkg/tuple"
)

// DefaultBatchSize is the number of rows handed to a partition at a time.
const DefaultBatchSize = 1024

// Lift kinds recorded in results.
const (
	LiftPower = "power"
	LiftExact = "exact"
)

// ErrArityMismatch is returned when the lifter and the source disagree on
// the number of attributes.
var ErrArityMismatch = errors.New("profile: lifter arity does not match source columns")

// Options tunes a profiling run. The zero value is usable.
type Options struct {
	// Workers is the number of partitions. Zero means GOMAXPROCS.
	Workers int
	// BatchSize is the number of rows per dispatched batch. Zero means DefaultBatchSize.
	BatchSize int
	// Clock measures stage durations. Nil means the real clock.
	Clock clockwork.Clock
	// Logger receives progress logs. Nil means slog.Default().
	Logger *slog.Logger
	// Tracer records one span per run. Nil disables tracing.
	Tracer trace.Tracer
	// Metrics records row and stage counters. Nil disables metrics.
	Metrics *observability.ProfileMetrics
}

func (o Options) withDefaults() Options {
	if o.Workers <= 0 {
		o.Workers = runtime.GOMAXPROCS(0)
	}

	if o.BatchSize <= 0 {
		o.BatchSize = DefaultBatchSize
	}

	if o.Clock == nil {
		o.Clock = clockwork.NewRealClock()
	}

	if o.Logger == nil {
		o.Logger = slog.Default()
	}

	if o.Tracer == nil {
		o.Tracer = nooptrace.NewTracerProvider().Tracer("")
	}

	return o
}

// Aggregate is the un-finalized outcome of a run.
type Aggregate struct {
	RunID      uuid.UUID
	Lift       string
	Columns    []string
	Labels     []string
	State      *freq.State
	Batches    int
	Partitions int
	Duration   time.Duration

	// Keys are the source-ordinal keys of an exact lattice, nil otherwise.
	Keys []lattice.Key
}

// LiftKind names the lattice a lifter produces.
func LiftKind(l lattice.Lifter) string {
	if _, ok := l.(*lattice.ExactLifter); ok {
		return LiftExact
	}

	return LiftPower
}

// Collect reads src to the end, lifting every row with l and counting the
// lattices in Workers independent partitions that are combined at the end.
// The combined state is returned un-finalized. The result does not depend on
// Workers or BatchSize.
func Collect(ctx context.Context, src source.Source, l lattice.Lifter, opts Options) (*Aggregate, error) {
	opts = opts.withDefaults()

	if got := len(src.Columns()); got != l.Arity() {
		return nil, fmt.Errorf("%w: %d columns, lifter arity %d", ErrArityMismatch, got, l.Arity())
	}

	agg := &Aggregate{
		RunID:      uuid.New(),
		Lift:       LiftKind(l),
		Columns:    lattice.Names(source.Bindings(src)),
		Labels:     l.Labels(),
		Partitions: opts.Workers,
	}

	if exact, ok := l.(*lattice.ExactLifter); ok {
		agg.Keys = exact.Keys()
	}

	ctx, span := opts.Tracer.Start(ctx, "lattice.profile.collect", trace.WithAttributes(
		attribute.String("run_id", agg.RunID.String()),
		attribute.String("lift", agg.Lift),
		attribute.Int("width", l.Width()),
		attribute.Int("workers", opts.Workers),
	))
	defer span.End()

	log := opts.Logger.With("run_id", agg.RunID.String())
	log.InfoContext(ctx, "profile started",
		"lift", agg.Lift, "columns", len(agg.Columns), "width", l.Width(),
		"workers", opts.Workers, "batch_size", opts.BatchSize)

	start := opts.Clock.Now()
	shape := freq.ShapeOf(agg.Labels)
	states := make([]*freq.State, opts.Workers)
	batches := make(chan []tuple.Tuple, opts.Workers)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer close(batches)

		for {
			batch, err := source.ReadBatch(gctx, src, opts.BatchSize)
			if errors.Is(err, io.EOF) {
				return nil
			}

			if err != nil {
				return fmt.Errorf("read rows: %w", err)
			}

			select {
			case batches <- batch:
				agg.Batches++
			case <-gctx.Done():
				return gctx.Err()
			}
		}
	})

	for i := range states {
		st := freq.NewShaped(shape)
		states[i] = st

		g.Go(func() error {
			return runPartition(gctx, st, l, agg.Lift, batches, opts.Metrics)
		})
	}

	err := g.Wait()
	if err != nil {
		span.RecordError(err)

		return nil, err
	}

	opts.Metrics.RecordStage(ctx, "count", opts.Clock.Since(start))

	mergeStart := opts.Clock.Now()
	root := freq.NewShaped(shape)

	for i, st := range states {
		err = root.Combine(st)
		if err != nil {
			return nil, fmt.Errorf("combine partition %d: %w", i, err)
		}
	}

	opts.Metrics.RecordMerge(ctx, len(states))
	opts.Metrics.RecordStage(ctx, "merge", opts.Clock.Since(mergeStart))

	agg.State = root
	agg.Duration = opts.Clock.Since(start)

	span.SetAttributes(attribute.Int64("rows", root.Rows()), attribute.Int64("skipped", root.Skipped()))
	log.InfoContext(ctx, "profile collected",
		"rows", humanize.Comma(root.Rows()), "skipped", humanize.Comma(root.Skipped()),
		"batches", agg.Batches, "duration", agg.Duration)

	return agg, nil
}

// runPartition lifts and counts batches until the channel closes. The state
// is owned by this partition alone until the run's errgroup returns.
func runPartition(
	ctx context.Context, st *freq.State, l lattice.Lifter, kind string,
	batches <-chan []tuple.Tuple, metrics *observability.ProfileMetrics,
) error {
	for batch := range batches {
		rows := make([][]uint64, len(batch))
		skipped := 0

		for i, t := range batch {
			if t == nil {
				skipped++

				continue
			}

			hashes, err := l.Hashes(t)
			if err != nil {
				return fmt.Errorf("lift row: %w", err)
			}

			rows[i] = hashes
		}

		err := st.Update(rows)
		if err != nil {
			return err
		}

		metrics.RecordBatch(ctx, kind, len(batch)-skipped, skipped)

		if ctx.Err() != nil {
			return ctx.Err()
		}
	}

	return nil
}

// Result is a finalized profile.
type Result struct {
	RunID    uuid.UUID
	Lift     string
	Columns  []string
	Labels   []string
	Rows     int64
	Skipped  int64
	Maps     []freq.Map
	Duration time.Duration
}

// Finalize finalizes the aggregate's state into a Result. The aggregate's
// state cannot be used afterwards.
func (a *Aggregate) Finalize() (*Result, error) {
	rows, skipped := a.State.Rows(), a.State.Skipped()

	maps, err := a.State.Finalize()
	if err != nil {
		return nil, err
	}

	return &Result{
		RunID:    a.RunID,
		Lift:     a.Lift,
		Columns:  a.Columns,
		Labels:   a.Labels,
		Rows:     rows,
		Skipped:  skipped,
		Maps:     maps,
		Duration: a.Duration,
	}, nil
}

// Run is Collect followed by Finalize.
func Run(ctx context.Context, src source.Source, l lattice.Lifter, opts Options) (*Result, error) {
	agg, err := Collect(ctx, src, l, opts)
	if err != nil {
		return nil, err
	}

	return agg.Finalize()
}
