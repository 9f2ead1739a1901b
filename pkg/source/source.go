// Package source reads rows of attribute values from tabular inputs.
package source

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/Sumatoshi-tech/lattice/pkg/lattice"
	"github.com/Sumatoshi-tech/lattice/pkg/tuple"
)

// Sentinel errors.
var (
	// ErrEmptyInput is returned when an input has no header or column list.
	ErrEmptyInput = errors.New("source: empty input")
	// ErrRowArity is returned when a row has a different number of values than columns.
	ErrRowArity = errors.New("source: row arity does not match columns")
	// ErrUnknownColumn is returned when a projection names a column the source lacks.
	ErrUnknownColumn = errors.New("source: unknown column")
	// ErrDuplicateColumn is returned when a projection names a column twice.
	ErrDuplicateColumn = errors.New("source: duplicate column")
	// ErrInvalidDocument is returned when a JSON document fails schema validation.
	ErrInvalidDocument = errors.New("source: invalid document")
	// ErrInvalidBatchSize is returned by ReadBatch for a non-positive size.
	ErrInvalidBatchSize = errors.New("source: batch size must be positive")
)

// Source yields rows one at a time.
//
// Next returns io.EOF once the input is exhausted and keeps returning it.
// A nil tuple with a nil error is an absent row: it is counted but not profiled.
type Source interface {
	Columns() []string
	Next(ctx context.Context) (tuple.Tuple, error)
	Close() error
}

// Bound is implemented by sources that know which original column each of
// their attributes came from.
type Bound interface {
	Bindings() []lattice.Binding
}

// Bindings returns the attribute bindings of src. Sources that do not record
// ordinals are bound positionally.
func Bindings(src Source) []lattice.Binding {
	if b, ok := src.(Bound); ok {
		return b.Bindings()
	}

	return lattice.PositionalBindings(src.Columns())
}

// ReadBatch reads up to size rows. It returns io.EOF only when no rows remain;
// a final short batch is returned with a nil error.
func ReadBatch(ctx context.Context, src Source, size int) ([]tuple.Tuple, error) {
	if size <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidBatchSize, size)
	}

	batch := make([]tuple.Tuple, 0, size)

	for len(batch) < size {
		err := ctx.Err()
		if err != nil {
			return nil, err
		}

		row, err := src.Next(ctx)
		if errors.Is(err, io.EOF) {
			break
		}

		if err != nil {
			return nil, err
		}

		batch = append(batch, row)
	}

	if len(batch) == 0 {
		return nil, io.EOF
	}

	return batch, nil
}

// ReadAll drains src.
func ReadAll(ctx context.Context, src Source) ([]tuple.Tuple, error) {
	var rows []tuple.Tuple

	for {
		row, err := src.Next(ctx)
		if errors.Is(err, io.EOF) {
			return rows, nil
		}

		if err != nil {
			return rows, err
		}

		rows = append(rows, row)
	}
}

func checkArity(line int64, got, want int) error {
	if got != want {
		return fmt.Errorf("%w: row %d has %d values, want %d", ErrRowArity, line, got, want)
	}

	return nil
}
