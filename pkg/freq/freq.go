// Package freq aggregates per-row hash lattices into one frequency table per
// lattice position.
//
// A State follows the lifecycle New → Update* → Combine* → Finalize. Each
// partition of a parallel run owns its State exclusively while updating it.
// Combine is the only cross-partition operation: it needs exclusive access to
// the destination and only reads the source, so a State is not safe for
// concurrent use and carries no locks.
package freq

import (
	"errors"
	"fmt"
	"maps"
	"strconv"

	"github.com/Sumatoshi-tech/lattice/internal/hashutil"
)

var (
	// ErrLatticeShapeMismatch is returned when rows or states of different
	// lattice shapes meet in one aggregation.
	ErrLatticeShapeMismatch = errors.New("freq: lattice shape mismatch")

	// ErrStateFinalized is returned when a state is used after Finalize.
	ErrStateFinalized = errors.New("freq: state already finalized")

	// ErrSelfCombine is returned when a state is combined into itself.
	ErrSelfCombine = errors.New("freq: cannot combine a state with itself")
)

// Map counts occurrences of combined hashes at one lattice position.
type Map map[uint64]int64

// State is the partial aggregation of one partition.
type State struct {
	maps        []Map
	shape       string
	width       int
	rows        int64
	skipped     int64
	initialized bool
	finalized   bool
}

// New creates an empty state. Its width is fixed by the first row it sees.
func New() *State {
	return &State{}
}

// NewShaped creates an empty state tagged with a lattice shape fingerprint
// (see ShapeOf). Shaped states only combine with states of the same shape
// or with untagged ones.
func NewShaped(shape string) *State {
	return &State{shape: shape}
}

// ShapeOf fingerprints the ordered lattice position labels.
func ShapeOf(labels []string) string {
	var acc uint64

	for _, l := range labels {
		acc = hashutil.Combine(acc, hashutil.FNV64a([]byte(l)))
	}

	return strconv.Itoa(len(labels)) + ":" + strconv.FormatUint(acc, 16)
}

// Shape returns the shape fingerprint, empty when untagged.
func (s *State) Shape() string { return s.shape }

// Width returns the number of lattice positions, zero until initialized.
func (s *State) Width() int { return s.width }

// Initialized reports whether the state has seen a non-null row.
func (s *State) Initialized() bool { return s.initialized }

// Rows returns the number of rows counted.
func (s *State) Rows() int64 { return s.rows }

// Skipped returns the number of null rows ignored.
func (s *State) Skipped() int64 { return s.skipped }

// Update counts one batch of lattices, one per row. A nil row is an absent
// tuple and is skipped. The first non-nil row ever seen fixes the width;
// later batches accumulate. A batch containing a row of another width is
// rejected as a whole.
func (s *State) Update(batch [][]uint64) error {
	if s.finalized {
		return ErrStateFinalized
	}

	width, initialized := s.width, s.initialized

	for i, row := range batch {
		if row == nil {
			continue
		}

		if !initialized {
			width, initialized = len(row), true

			continue
		}

		if len(row) != width {
			return fmt.Errorf("%w: row %d has %d positions, want %d", ErrLatticeShapeMismatch, i, len(row), width)
		}
	}

	if initialized && !s.initialized {
		s.allocate(width)
	}

	for _, row := range batch {
		if row == nil {
			s.skipped++

			continue
		}

		for j, h := range row {
			s.maps[j][h]++
		}

		s.rows++
	}

	return nil
}

// UpdateRow counts a single lattice.
func (s *State) UpdateRow(row []uint64) error {
	return s.Update([][]uint64{row})
}

func (s *State) allocate(width int) {
	s.maps = make([]Map, width)
	for j := range s.maps {
		s.maps[j] = make(Map)
	}

	s.width = width
	s.initialized = true
}

// Combine merges src into s. src is only read and never aliased: when s is
// still empty it receives a deep copy of src's tables. An uninitialized src
// contributes only its row counters.
func (s *State) Combine(src *State) error {
	if s == src {
		return ErrSelfCombine
	}

	if s.finalized || src.finalized {
		return ErrStateFinalized
	}

	if s.shape != "" && src.shape != "" && s.shape != src.shape {
		return fmt.Errorf("%w: shape %s vs %s", ErrLatticeShapeMismatch, s.shape, src.shape)
	}

	if src.initialized {
		switch {
		case !s.initialized:
			s.maps = make([]Map, len(src.maps))
			for j, m := range src.maps {
				s.maps[j] = maps.Clone(m)
			}

			s.width = src.width
			s.initialized = true
		case s.width != src.width:
			return fmt.Errorf("%w: width %d vs %d", ErrLatticeShapeMismatch, s.width, src.width)
		default:
			for j, m := range src.maps {
				mergeAdditive(s.maps[j], m)
			}
		}
	}

	if s.shape == "" {
		s.shape = src.shape
	}

	s.rows += src.rows
	s.skipped += src.skipped

	return nil
}

// mergeAdditive adds every count of src into dst.
func mergeAdditive(dst, src Map) {
	for k, v := range src {
		dst[k] += v
	}
}

// Finalize hands over the tables, one per lattice position in lattice
// order. A state that never saw a row finalizes to an empty list. The state
// cannot be used afterwards.
func (s *State) Finalize() ([]Map, error) {
	if s.finalized {
		return nil, ErrStateFinalized
	}

	out := s.maps
	if out == nil {
		out = []Map{}
	}

	s.maps = nil
	s.finalized = true

	return out, nil
}
