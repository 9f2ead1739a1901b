package profile_test

import (
	"context"
	"maps"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/lattice/pkg/freq"
	"github.com/Sumatoshi-tech/lattice/pkg/lattice"
	"github.com/Sumatoshi-tech/lattice/pkg/profile"
)

func TestMerge_EqualsSingleRun(t *testing.T) {
	t.Parallel()

	whole := randomSource(5, 300)

	want, err := profile.Run(context.Background(), whole, powerLifter(t, whole.columns), profile.Options{Workers: 2})
	require.NoError(t, err)

	var partials []profile.Partial

	for _, bounds := range [][2]int{{0, 100}, {100, 250}, {250, 300}} {
		part := randomSource(5, 300)
		part.rows = part.rows[bounds[0]:bounds[1]]

		agg, err := profile.Collect(context.Background(), part, powerLifter(t, part.columns), profile.Options{Workers: 3})
		require.NoError(t, err)

		p, err := agg.Partial()
		require.NoError(t, err)

		partials = append(partials, p)
	}

	merged, err := profile.Merge(partials)
	require.NoError(t, err)
	assert.Equal(t, 3, merged.Partitions)

	got, err := merged.Finalize()
	require.NoError(t, err)

	assert.Equal(t, want.Rows, got.Rows)
	assert.Equal(t, want.Skipped, got.Skipped)
	assert.Equal(t, want.Labels, got.Labels)
	assert.Equal(t, want.Maps, got.Maps)
}

func TestMerge_LeavesPartialsUntouched(t *testing.T) {
	t.Parallel()

	src := randomSource(8, 40)

	agg, err := profile.Collect(context.Background(), src, powerLifter(t, src.columns), profile.Options{})
	require.NoError(t, err)

	p, err := agg.Partial()
	require.NoError(t, err)

	before := maps.Clone(p.State.Positions[0])

	merged, err := profile.Merge([]profile.Partial{p, p})
	require.NoError(t, err)
	assert.Equal(t, 2*p.State.Rows, merged.State.Rows())

	assert.Equal(t, before, p.State.Positions[0])
}

func TestMerge_Mismatch(t *testing.T) {
	t.Parallel()

	src := randomSource(2, 20)

	power, err := profile.Collect(context.Background(), src, powerLifter(t, src.columns), profile.Options{})
	require.NoError(t, err)

	src = randomSource(2, 20)

	exact, err := profile.Collect(context.Background(), src, lattice.NewExactLifter(lattice.PositionalBindings(src.columns), 2), profile.Options{})
	require.NoError(t, err)

	a, err := power.Partial()
	require.NoError(t, err)

	b, err := exact.Partial()
	require.NoError(t, err)

	_, err = profile.Merge([]profile.Partial{a, b})
	require.ErrorIs(t, err, freq.ErrLatticeShapeMismatch)

	_, err = profile.Merge(nil)
	require.ErrorIs(t, err, profile.ErrNoPartials)
}

func TestAggregate_FinalizeOnce(t *testing.T) {
	t.Parallel()

	src := randomSource(4, 10)

	agg, err := profile.Collect(context.Background(), src, powerLifter(t, src.columns), profile.Options{})
	require.NoError(t, err)

	_, err = agg.Finalize()
	require.NoError(t, err)

	_, err = agg.Finalize()
	require.ErrorIs(t, err, freq.ErrStateFinalized)

	_, err = agg.Partial()
	require.ErrorIs(t, err, freq.ErrStateFinalized)
}

func TestMerge_ExactKeysMustMatch(t *testing.T) {
	t.Parallel()

	collect := func(bindings []lattice.Binding) profile.Partial {
		src := randomSource(6, 30)

		agg, err := profile.Collect(context.Background(), src, lattice.NewExactLifter(bindings, 2), profile.Options{})
		require.NoError(t, err)

		p, err := agg.Partial()
		require.NoError(t, err)

		return p
	}

	names := randomSource(6, 1).columns
	positional := lattice.PositionalBindings(names)

	shifted := make([]lattice.Binding, len(positional))
	for i, b := range positional {
		shifted[i] = lattice.Binding{Name: b.Name, Ordinal: b.Ordinal + 10}
	}

	a, b := collect(positional), collect(shifted)
	require.Equal(t, a.Labels, b.Labels)
	assert.Equal(t, lattice.Key{0, 1}, a.Keys[0])

	merged, err := profile.Merge([]profile.Partial{a, collect(positional)})
	require.NoError(t, err)
	assert.Equal(t, a.Keys, merged.Keys)

	_, err = profile.Merge([]profile.Partial{a, b})
	require.ErrorIs(t, err, freq.ErrLatticeShapeMismatch)
}
