package lattice

import (
	"strings"

	"github.com/Sumatoshi-tech/lattice/internal/hashutil"
	"github.com/Sumatoshi-tech/lattice/pkg/tuple"
)

// Node pairs a subset with its combined hash.
type Node struct {
	Subset Subset
	Hash   uint64
}

// prefixHasher keeps one accumulator per stack depth so that each visit only
// refolds the positions that changed. acc[d] == Sequential(h[stack[0]], ..., h[stack[d]]).
type prefixHasher struct {
	elem []uint64
	acc  []uint64
}

func newPrefixHasher(elem []uint64, depth int) prefixHasher {
	return prefixHasher{elem: elem, acc: make([]uint64, depth)}
}

func (p *prefixHasher) hash(stack []int, from int) uint64 {
	for d := from; d < len(stack); d++ {
		var prev uint64
		if d > 0 {
			prev = p.acc[d-1]
		}

		p.acc[d] = hashutil.Combine(prev, p.elem[stack[d]])
	}

	return p.acc[len(stack)-1]
}

// Lift returns the combined hash of every non-empty subset of t, 2^n - 1
// values in lattice order. Each hash folds the subset's elementary hashes in
// tuple order.
func Lift(t tuple.Tuple) []uint64 {
	return liftHashes(t.Hashes())
}

func liftHashes(elem []uint64) []uint64 {
	out := make([]uint64, 0, Width(len(elem)))
	ph := newPrefixHasher(elem, len(elem))

	walkPowerSet(len(elem), func(stack []int, from int) {
		out = append(out, ph.hash(stack, from))
	})

	return out
}

// LiftNodes is Lift with the subset attached to every hash.
func LiftNodes(t tuple.Tuple) []Node {
	elem := t.Hashes()
	out := make([]Node, 0, Width(len(elem)))
	ph := newPrefixHasher(elem, len(elem))

	walkPowerSet(len(elem), func(stack []int, from int) {
		out = append(out, Node{
			Subset: Subset(append([]int(nil), stack...)),
			Hash:   ph.hash(stack, from),
		})
	})

	return out
}

// LiftStrings is the diagnostic form of Lift: each position is the
// concatenation of the subset's display strings. Not used for aggregation.
func LiftStrings(t tuple.Tuple) []string {
	strs := t.Strings()
	out := make([]string, 0, Width(len(strs)))

	walkPowerSet(len(strs), func(stack []int, _ int) {
		out = append(out, concat(strs, stack))
	})

	return out
}

// ExactLift returns the combined hash of every size-k subset of t, C(n, k)
// values in lexicographic order. A k outside [1, n] yields an empty lattice.
func ExactLift(t tuple.Tuple, k int) []uint64 {
	return exactHashes(t.Hashes(), k)
}

func exactHashes(elem []uint64, k int) []uint64 {
	out := make([]uint64, 0, Binomial(len(elem), k))
	if len(elem) == 0 || k < 1 || k > len(elem) {
		return out
	}

	ph := newPrefixHasher(elem, k)

	walkCombinations(len(elem), k, func(stack []int, from int) {
		out = append(out, ph.hash(stack, from))
	})

	return out
}

// ExactLiftStrings is the diagnostic form of ExactLift.
func ExactLiftStrings(t tuple.Tuple, k int) []string {
	strs := t.Strings()
	out := make([]string, 0, Binomial(len(strs), k))

	walkCombinations(len(strs), k, func(stack []int, _ int) {
		out = append(out, concat(strs, stack))
	})

	return out
}

func concat(strs []string, stack []int) string {
	var sb strings.Builder

	for _, idx := range stack {
		sb.WriteString(strs[idx])
	}

	return sb.String()
}
