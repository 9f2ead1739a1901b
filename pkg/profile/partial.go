package profile

import (
	"errors"
	"fmt"
	"slices"

	"github.com/google/uuid"

	"github.com/Sumatoshi-tech/lattice/pkg/freq"
	"github.com/Sumatoshi-tech/lattice/pkg/lattice"
)

// ErrNoPartials is returned by Merge when given nothing to merge.
var ErrNoPartials = errors.New("profile: no partial states to merge")

// Partial is the persisted, un-finalized form of an Aggregate. Partials of
// the same lattice written by separate processes merge into one result.
type Partial struct {
	RunID   string        `json:"run_id"`
	Lift    string        `json:"lift"`
	Columns []string      `json:"columns"`
	Labels  []string      `json:"labels"`
	Keys    []lattice.Key `json:"keys,omitempty"`
	State   freq.Snapshot `json:"state"`
}

// Partial snapshots the aggregate. The aggregate stays usable.
func (a *Aggregate) Partial() (Partial, error) {
	snap, err := a.State.Snapshot()
	if err != nil {
		return Partial{}, err
	}

	return Partial{
		RunID:   a.RunID.String(),
		Lift:    a.Lift,
		Columns: a.Columns,
		Labels:  a.Labels,
		Keys:    a.Keys,
		State:   snap,
	}, nil
}

// Merge combines partial states of the same lattice into a fresh aggregate.
// Partials are only read.
func Merge(partials []Partial) (*Aggregate, error) {
	if len(partials) == 0 {
		return nil, ErrNoPartials
	}

	first := partials[0]
	root := freq.NewShaped(freq.ShapeOf(first.Labels))

	for i, p := range partials {
		if p.Lift != first.Lift || !slices.Equal(p.Labels, first.Labels) {
			return nil, fmt.Errorf("partial %d (%s): %w: lattice %s%v differs from %s%v",
				i, p.RunID, freq.ErrLatticeShapeMismatch, p.Lift, p.Labels, first.Lift, first.Labels)
		}

		if !slices.EqualFunc(p.Keys, first.Keys, slices.Equal[lattice.Key]) {
			return nil, fmt.Errorf("partial %d (%s): %w: keys %v differ from %v",
				i, p.RunID, freq.ErrLatticeShapeMismatch, p.Keys, first.Keys)
		}

		st, err := freq.Restore(p.State)
		if err != nil {
			return nil, fmt.Errorf("partial %d (%s): %w", i, p.RunID, err)
		}

		err = root.Combine(st)
		if err != nil {
			return nil, fmt.Errorf("partial %d (%s): %w", i, p.RunID, err)
		}
	}

	return &Aggregate{
		RunID:      uuid.New(),
		Lift:       first.Lift,
		Columns:    first.Columns,
		Labels:     first.Labels,
		Keys:       first.Keys,
		State:      root,
		Partitions: len(partials),
	}, nil
}
