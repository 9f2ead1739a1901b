// Package lattice enumerates the attribute lattice of a tuple: the combined
// hash of every non-empty subset of its attributes (Lift) or of every subset
// of a fixed size (ExactLift).
//
// Positions are stable. For a given arity (and size), every call yields the
// same subsets in the same order, independent of row content, so frequency
// tables built from different row batches can be merged position by position.
package lattice

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// MaxArity is the widest tuple a power-set lattice is built for. Positions are
// materialized up front, so 24 attributes (about 16.7M positions per row) is
// the practical ceiling; wider inputs must be projected or lifted with an
// exact size.
const MaxArity = 24

var (
	// ErrInvalidCombinationSize is returned by CheckSize when k is outside [1, n].
	// ExactLift itself never fails on such k; it yields an empty lattice.
	ErrInvalidCombinationSize = errors.New("lattice: combination size must be in [1, arity]")

	// ErrArityTooLarge is returned when a power-set lattice would exceed MaxArity.
	ErrArityTooLarge = errors.New("lattice: arity too large for power-set lattice")

	// ErrArityMismatch is returned when a tuple does not have the arity a lifter was built for.
	ErrArityMismatch = errors.New("lattice: tuple arity mismatch")
)

// Subset is a strictly increasing list of tuple indices.
type Subset []int

// String renders the subset as {0,1,2}.
func (s Subset) String() string {
	parts := make([]string, len(s))

	for i, idx := range s {
		parts[i] = strconv.Itoa(idx)
	}

	return "{" + strings.Join(parts, ",") + "}"
}

// Label renders the subset with attribute names, e.g. {city,zip}.
// Indices without a name fall back to their number.
func (s Subset) Label(names []string) string {
	parts := make([]string, len(s))

	for i, idx := range s {
		if idx < len(names) && names[idx] != "" {
			parts[i] = names[idx]
		} else {
			parts[i] = strconv.Itoa(idx)
		}
	}

	return "{" + strings.Join(parts, ",") + "}"
}

// visitFunc receives the current index stack and the lowest stack position
// that changed since the previous visit. The stack is only valid for the
// duration of the call.
type visitFunc func(stack []int, from int)

// walkPowerSet visits every non-empty subset of 0..n-1 in depth-first order:
// {0},{0,1},{0,1,2},{0,2},{1},{1,2},{2} for n=3.
func walkPowerSet(n int, visit visitFunc) {
	if n <= 0 {
		return
	}

	stack := make([]int, 1, n)

	for {
		top := len(stack) - 1
		visit(stack, top)

		if next := stack[top] + 1; next < n {
			stack = append(stack, next)

			continue
		}

		// The top is n-1: backtrack and advance the new top.
		stack = stack[:top]
		if len(stack) == 0 {
			return
		}

		stack[len(stack)-1]++
	}
}

// walkCombinations visits every size-k subset of 0..n-1 in lexicographic order.
// Nothing is visited unless 1 <= k <= n.
func walkCombinations(n, k int, visit visitFunc) {
	if k < 1 || k > n {
		return
	}

	stack := make([]int, k)
	for i := range stack {
		stack[i] = i
	}

	from := 0

	for {
		visit(stack, from)

		// Rightmost position that can still advance within its feasibility bound.
		pos := k - 1
		for pos >= 0 && stack[pos] == n-k+pos {
			pos--
		}

		if pos < 0 {
			return
		}

		stack[pos]++
		for j := pos + 1; j < k; j++ {
			stack[j] = stack[j-1] + 1
		}

		from = pos
	}
}

// Width returns the power-set lattice width 2^n - 1 (zero for n <= 0).
func Width(n int) int {
	if n <= 0 {
		return 0
	}

	return 1<<n - 1
}

// Binomial returns C(n, k), or zero when k is outside [0, n].
func Binomial(n, k int) int {
	if k < 0 || k > n {
		return 0
	}

	k = min(k, n-k)
	result := 1

	for i := 1; i <= k; i++ {
		result = result * (n - k + i) / i
	}

	return result
}

// CheckSize reports whether k is a valid combination size for arity n.
func CheckSize(n, k int) error {
	if k < 1 || k > n {
		return fmt.Errorf("%w: k=%d, n=%d", ErrInvalidCombinationSize, k, n)
	}

	return nil
}

// CheckArity reports whether a power-set lattice of arity n can be enumerated.
func CheckArity(n int) error {
	if n > MaxArity {
		return fmt.Errorf("%w: %d > %d", ErrArityTooLarge, n, MaxArity)
	}

	return nil
}

// Subsets returns the power-set subsets of arity n in lattice order.
func Subsets(n int) []Subset {
	out := make([]Subset, 0, Width(n))

	walkPowerSet(n, func(stack []int, _ int) {
		out = append(out, Subset(append([]int(nil), stack...)))
	})

	return out
}

// CombinationSubsets returns the size-k subsets of arity n in lattice order.
func CombinationSubsets(n, k int) []Subset {
	out := make([]Subset, 0, Binomial(n, k))

	walkCombinations(n, k, func(stack []int, _ int) {
		out = append(out, Subset(append([]int(nil), stack...)))
	})

	return out
}
