package lattice_test

import (
	"fmt"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/lattice/internal/hashutil"
	"github.com/Sumatoshi-tech/lattice/pkg/lattice"
	"github.com/Sumatoshi-tech/lattice/pkg/tuple"
)

// stub is a test double whose elementary hash is its own value.
type stub uint64

func (s stub) Hash() uint64   { return uint64(s) }
func (s stub) String() string { return "v" + strconv.FormatUint(uint64(s), 10) }

func stubTuple(hashes ...uint64) tuple.Tuple {
	t := make(tuple.Tuple, len(hashes))
	for i, h := range hashes {
		t[i] = stub(h)
	}

	return t
}

func TestSubsets_Order(t *testing.T) {
	t.Parallel()

	want := []lattice.Subset{{0}, {0, 1}, {0, 1, 2}, {0, 2}, {1}, {1, 2}, {2}}

	assert.Equal(t, want, lattice.Subsets(3))
	assert.Empty(t, lattice.Subsets(0))
	assert.Equal(t, []lattice.Subset{{0}}, lattice.Subsets(1))
}

func TestCombinationSubsets_Order(t *testing.T) {
	t.Parallel()

	want := []lattice.Subset{{0, 1}, {0, 2}, {0, 3}, {1, 2}, {1, 3}, {2, 3}}

	assert.Equal(t, want, lattice.CombinationSubsets(4, 2))
	assert.Equal(t, []lattice.Subset{{0, 1, 2}}, lattice.CombinationSubsets(3, 3))
	assert.Empty(t, lattice.CombinationSubsets(3, 0))
	assert.Empty(t, lattice.CombinationSubsets(3, 4))
}

func TestLift_Cardinality(t *testing.T) {
	t.Parallel()

	for n := range 11 {
		t.Run(strconv.Itoa(n), func(t *testing.T) {
			t.Parallel()

			hashes := make([]uint64, n)
			for i := range hashes {
				hashes[i] = uint64(i + 1)
			}

			assert.Len(t, lattice.Lift(stubTuple(hashes...)), 1<<n-1)
			assert.Equal(t, 1<<n-1, lattice.Width(n))
		})
	}
}

func TestLift_LiteralValues(t *testing.T) {
	t.Parallel()

	c := hashutil.Combine
	got := lattice.Lift(stubTuple(1, 2, 3))

	want := []uint64{
		c(0, 1),             // {0}
		c(c(0, 1), 2),       // {0,1}
		c(c(c(0, 1), 2), 3), // {0,1,2}
		c(c(0, 1), 3),       // {0,2}
		c(0, 2),             // {1}
		c(c(0, 2), 3),       // {1,2}
		c(0, 3),             // {2}
	}

	require.Equal(t, want, got)
	assert.Equal(t, uint64(0x9e3779ba), got[0])
	assert.Equal(t, uint64(0x28cd94bf13), got[1])
	assert.Equal(t, uint64(0xa16fb58d153), got[2])
	assert.Equal(t, uint64(0x28cd94bf10), got[3])
	assert.Equal(t, uint64(0x9e3779bb), got[4])
	assert.Equal(t, uint64(0x28cd94bf51), got[5])
	assert.Equal(t, uint64(0x9e3779bc), got[6])
}

func TestLift_MatchesSequentialPerSubset(t *testing.T) {
	t.Parallel()

	row := stubTuple(11, 23, 5, 97, 64)
	elem := row.Hashes()
	nodes := lattice.LiftNodes(row)

	require.Len(t, nodes, 31)

	for _, node := range nodes {
		hs := make([]uint64, len(node.Subset))
		for i, idx := range node.Subset {
			hs[i] = elem[idx]
		}

		assert.Equal(t, hashutil.Sequential(hs...), node.Hash, node.Subset.String())
	}
}

func TestLift_Deterministic(t *testing.T) {
	t.Parallel()

	row := tuple.Tuple{tuple.Int(1), tuple.Text("a"), tuple.Float(2.5), tuple.Null{}}

	assert.Equal(t, lattice.Lift(row), lattice.Lift(row))
	assert.Equal(t, lattice.ExactLift(row, 2), lattice.ExactLift(row, 2))
}

func TestLift_OrderSensitive(t *testing.T) {
	t.Parallel()

	ab := lattice.Lift(stubTuple(1, 2))
	ba := lattice.Lift(stubTuple(2, 1))

	// Position 1 is the pair {0,1}; swapping attributes changes its hash.
	assert.NotEqual(t, ab[1], ba[1])
}

func TestLiftStrings(t *testing.T) {
	t.Parallel()

	got := lattice.LiftStrings(tuple.Tuple{tuple.Text("a"), tuple.Text("b"), tuple.Text("c")})

	assert.Equal(t, []string{"a", "ab", "abc", "ac", "b", "bc", "c"}, got)
}

func TestExactLift_Cardinality(t *testing.T) {
	t.Parallel()

	row := stubTuple(1, 2, 3, 4, 5)

	for k := -1; k <= 6; k++ {
		t.Run(fmt.Sprintf("k=%d", k), func(t *testing.T) {
			t.Parallel()

			want := lattice.Binomial(5, k)
			if k < 1 {
				want = 0
			}

			assert.Len(t, lattice.ExactLift(row, k), want)
		})
	}

	assert.Empty(t, lattice.ExactLift(row, 0), "k below range yields an empty lattice")
	assert.Empty(t, lattice.ExactLift(row, 6), "k above range yields an empty lattice")
	assert.Empty(t, lattice.ExactLift(tuple.Tuple{}, 1))
}

func TestExactLift_MatchesLiftPositions(t *testing.T) {
	t.Parallel()

	row := stubTuple(9, 8, 7, 6)
	full := lattice.LiftNodes(row)

	bySubset := make(map[string]uint64, len(full))
	for _, n := range full {
		bySubset[n.Subset.String()] = n.Hash
	}

	for k := 1; k <= 4; k++ {
		subsets := lattice.CombinationSubsets(4, k)
		hashes := lattice.ExactLift(row, k)

		require.Len(t, hashes, len(subsets))

		for i, s := range subsets {
			assert.Equal(t, bySubset[s.String()], hashes[i], "k=%d %s", k, s)
		}
	}
}

func TestExactLiftStrings(t *testing.T) {
	t.Parallel()

	got := lattice.ExactLiftStrings(tuple.Tuple{tuple.Text("a"), tuple.Text("b"), tuple.Text("c")}, 2)

	assert.Equal(t, []string{"ab", "ac", "bc"}, got)
}

func TestBinomial(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 6, lattice.Binomial(4, 2))
	assert.Equal(t, 1, lattice.Binomial(5, 0))
	assert.Equal(t, 1, lattice.Binomial(5, 5))
	assert.Equal(t, 252, lattice.Binomial(10, 5))
	assert.Equal(t, 0, lattice.Binomial(3, 4))
	assert.Equal(t, 0, lattice.Binomial(3, -1))
}

func TestCheckSize(t *testing.T) {
	t.Parallel()

	require.NoError(t, lattice.CheckSize(3, 1))
	require.NoError(t, lattice.CheckSize(3, 3))
	require.ErrorIs(t, lattice.CheckSize(3, 0), lattice.ErrInvalidCombinationSize)
	require.ErrorIs(t, lattice.CheckSize(3, 4), lattice.ErrInvalidCombinationSize)
}

func TestCheckArity(t *testing.T) {
	t.Parallel()

	require.NoError(t, lattice.CheckArity(20))
	require.NoError(t, lattice.CheckArity(lattice.MaxArity))
	require.ErrorIs(t, lattice.CheckArity(lattice.MaxArity+1), lattice.ErrArityTooLarge)
	require.ErrorIs(t, lattice.CheckArity(40), lattice.ErrArityTooLarge)
}

func TestNewPowerLifter_WideTupleRejected(t *testing.T) {
	t.Parallel()

	names := make([]string, 40)
	for i := range names {
		names[i] = lattice.CanonicalName(i)
	}

	_, err := lattice.NewPowerLifter(lattice.PositionalBindings(names))
	require.ErrorIs(t, err, lattice.ErrArityTooLarge)

	// Exact lattices over the same width stay small and are allowed.
	el := lattice.NewExactLifter(lattice.PositionalBindings(names), 2)
	assert.Equal(t, lattice.Binomial(40, 2), el.Width())
}

func TestSubset_Label(t *testing.T) {
	t.Parallel()

	s := lattice.Subset{0, 2}

	assert.Equal(t, "{0,2}", s.String())
	assert.Equal(t, "{city,zip}", s.Label([]string{"city", "street", "zip"}))
	assert.Equal(t, "{city,2}", s.Label([]string{"city"}))
}

func BenchmarkLift8(b *testing.B) {
	row := stubTuple(1, 2, 3, 4, 5, 6, 7, 8)

	for range b.N {
		_ = lattice.Lift(row)
	}
}

func BenchmarkExactLift8x3(b *testing.B) {
	row := stubTuple(1, 2, 3, 4, 5, 6, 7, 8)

	for range b.N {
		_ = lattice.ExactLift(row, 3)
	}
}
