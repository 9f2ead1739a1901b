package lattice

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/Sumatoshi-tech/lattice/pkg/tuple"
)

// Lifter turns tuples of a fixed shape into positional hash lattices.
// Implementations are immutable after construction and safe for concurrent use.
type Lifter interface {
	// Arity is the number of attributes every tuple must have.
	Arity() int
	// Width is the number of lattice positions produced per tuple.
	Width() int
	// Labels names every lattice position, in lattice order.
	Labels() []string
	// Hashes computes the lattice of one tuple.
	Hashes(t tuple.Tuple) ([]uint64, error)
	// Strings computes the diagnostic string lattice of one tuple.
	Strings(t tuple.Tuple) ([]string, error)
}

// PowerLifter lifts tuples into the full power-set lattice.
type PowerLifter struct {
	bindings []Binding
	subsets  []Subset
}

// NewPowerLifter builds a power-set lifter for the given attribute bindings.
func NewPowerLifter(bindings []Binding) (*PowerLifter, error) {
	err := CheckArity(len(bindings))
	if err != nil {
		return nil, err
	}

	return &PowerLifter{
		bindings: bindings,
		subsets:  Subsets(len(bindings)),
	}, nil
}

// Arity implements Lifter.
func (p *PowerLifter) Arity() int { return len(p.bindings) }

// Width implements Lifter.
func (p *PowerLifter) Width() int { return len(p.subsets) }

// Subsets returns the lattice subsets in order. The slice must not be modified.
func (p *PowerLifter) Subsets() []Subset { return p.subsets }

// Labels implements Lifter.
func (p *PowerLifter) Labels() []string { return labels(p.subsets, Names(p.bindings)) }

// Hashes implements Lifter.
func (p *PowerLifter) Hashes(t tuple.Tuple) ([]uint64, error) {
	err := checkTuple(t, len(p.bindings))
	if err != nil {
		return nil, err
	}

	return Lift(t), nil
}

// Strings implements Lifter.
func (p *PowerLifter) Strings(t tuple.Tuple) ([]string, error) {
	err := checkTuple(t, len(p.bindings))
	if err != nil {
		return nil, err
	}

	return LiftStrings(t), nil
}

// Key identifies a size-k subset by source column ordinals.
type Key []int

// String renders the key as [0 2].
func (k Key) String() string {
	parts := make([]string, len(k))

	for i, ord := range k {
		parts[i] = strconv.Itoa(ord)
	}

	return "[" + strings.Join(parts, " ") + "]"
}

// Entry is one key/value pair of an ExactLift dictionary.
type Entry struct {
	Key   Key
	Value uint64
}

// ExactLifter lifts tuples into the size-k lattice. Keys are resolved once
// at construction and shared by every row it lifts.
type ExactLifter struct {
	bindings []Binding
	subsets  []Subset
	keys     []Key
	size     int
}

// NewExactLifter builds a size-k lifter. A k outside [1, len(bindings)]
// produces a lifter whose lattice is empty.
func NewExactLifter(bindings []Binding, k int) *ExactLifter {
	subsets := CombinationSubsets(len(bindings), k)
	keys := make([]Key, len(subsets))

	for i, s := range subsets {
		key := make(Key, len(s))
		for j, idx := range s {
			key[j] = bindings[idx].Ordinal
		}

		keys[i] = key
	}

	return &ExactLifter{
		bindings: bindings,
		subsets:  subsets,
		keys:     keys,
		size:     k,
	}
}

// Size returns the combination size k.
func (e *ExactLifter) Size() int { return e.size }

// Arity implements Lifter.
func (e *ExactLifter) Arity() int { return len(e.bindings) }

// Width implements Lifter.
func (e *ExactLifter) Width() int { return len(e.keys) }

// Keys returns the shared key sequence. The slice and its keys must not be modified.
func (e *ExactLifter) Keys() []Key { return e.keys }

// Labels implements Lifter.
func (e *ExactLifter) Labels() []string { return labels(e.subsets, Names(e.bindings)) }

// Hashes implements Lifter; it returns the value sequence, aligned with Keys.
func (e *ExactLifter) Hashes(t tuple.Tuple) ([]uint64, error) {
	err := checkTuple(t, len(e.bindings))
	if err != nil {
		return nil, err
	}

	return ExactLift(t, e.size), nil
}

// Strings implements Lifter.
func (e *ExactLifter) Strings(t tuple.Tuple) ([]string, error) {
	err := checkTuple(t, len(e.bindings))
	if err != nil {
		return nil, err
	}

	return ExactLiftStrings(t, e.size), nil
}

// Lift pairs the shared keys with the row's values.
func (e *ExactLifter) Lift(t tuple.Tuple) ([]Entry, error) {
	values, err := e.Hashes(t)
	if err != nil {
		return nil, err
	}

	entries := make([]Entry, len(values))
	for i, v := range values {
		entries[i] = Entry{Key: e.keys[i], Value: v}
	}

	return entries, nil
}

// Map is Lift keyed by the rendered key.
func (e *ExactLifter) Map(t tuple.Tuple) (map[string]uint64, error) {
	entries, err := e.Lift(t)
	if err != nil {
		return nil, err
	}

	out := make(map[string]uint64, len(entries))
	for _, en := range entries {
		out[en.Key.String()] = en.Value
	}

	return out, nil
}

func checkTuple(t tuple.Tuple, arity int) error {
	if len(t) != arity {
		return fmt.Errorf("%w: got %d attributes, want %d", ErrArityMismatch, len(t), arity)
	}

	return nil
}

func labels(subsets []Subset, names []string) []string {
	out := make([]string, len(subsets))

	for i, s := range subsets {
		out[i] = s.Label(names)
	}

	return out
}
