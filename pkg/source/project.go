package source

import (
	"context"
	"fmt"

	"github.com/Sumatoshi-tech/lattice/pkg/lattice"
	"github.com/Sumatoshi-tech/lattice/pkg/tuple"
)

// Projection narrows a source to a subset of its columns, in the requested
// order, and remembers each column's position in the original source.
type Projection struct {
	src      Source
	columns  []string
	bindings []lattice.Binding
	pick     []int
}

// Project selects columns by name. An empty selection keeps every column.
// Projecting a projection keeps the ordinals of the original source.
func Project(src Source, names []string) (*Projection, error) {
	all := src.Columns()
	upstream := Bindings(src)

	if len(names) == 0 {
		names = all
	}

	index := make(map[string]int, len(all))
	for i, name := range all {
		if _, dup := index[name]; !dup {
			index[name] = i
		}
	}

	seen := make(map[string]struct{}, len(names))
	bindings := make([]lattice.Binding, len(names))
	pick := make([]int, len(names))

	for i, name := range names {
		pos, ok := index[name]
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownColumn, name)
		}

		if _, dup := seen[name]; dup {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateColumn, name)
		}

		seen[name] = struct{}{}
		pick[i] = pos
		bindings[i] = lattice.Binding{Name: name, Ordinal: upstream[pos].Ordinal}
	}

	return &Projection{
		src:      src,
		columns:  lattice.Names(bindings),
		bindings: bindings,
		pick:     pick,
	}, nil
}

// Columns returns the selected column names.
func (p *Projection) Columns() []string { return p.columns }

// Bindings returns the selected columns with their original ordinals.
func (p *Projection) Bindings() []lattice.Binding { return p.bindings }

// Next returns the next row narrowed to the selected columns. An absent row
// stays absent.
func (p *Projection) Next(ctx context.Context) (tuple.Tuple, error) {
	row, err := p.src.Next(ctx)
	if err != nil || row == nil {
		return nil, err
	}

	out := make(tuple.Tuple, len(p.bindings))
	for i, pos := range p.pick {
		out[i] = row[pos]
	}

	return out, nil
}

// Close closes the underlying source.
func (p *Projection) Close() error { return p.src.Close() }

// Ordinals serves a source whose column names encode their ordinals, as in
// col0, col3. Keys of exact lattices then refer to those ordinals instead of
// column positions.
type Ordinals struct {
	Source

	bindings []lattice.Binding
}

// WithOrdinalsFromNames resolves every column name of src with
// lattice.BindingsFromNames. A name without an ordinal fails with
// lattice.ErrUnresolvedColumnOrdinal.
func WithOrdinalsFromNames(src Source) (*Ordinals, error) {
	bindings, err := lattice.BindingsFromNames(src.Columns())
	if err != nil {
		return nil, err
	}

	return &Ordinals{Source: src, bindings: bindings}, nil
}

// Bindings returns the columns with the ordinals parsed from their names.
func (o *Ordinals) Bindings() []lattice.Binding { return o.bindings }
