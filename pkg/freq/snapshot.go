package freq

import (
	"errors"
	"fmt"
	"maps"
)

// ErrCorruptSnapshot is returned when a snapshot's tables disagree with its width.
var ErrCorruptSnapshot = errors.New("freq: corrupt snapshot")

// Snapshot is the serializable form of an un-finalized State.
type Snapshot struct {
	Shape       string `json:"shape"`
	Width       int    `json:"width"`
	Rows        int64  `json:"rows"`
	Skipped     int64  `json:"skipped"`
	Initialized bool   `json:"initialized"`
	Positions   []Map  `json:"positions"`
}

// Snapshot copies the state. The copy shares nothing with s.
func (s *State) Snapshot() (Snapshot, error) {
	if s.finalized {
		return Snapshot{}, ErrStateFinalized
	}

	positions := make([]Map, len(s.maps))
	for j, m := range s.maps {
		positions[j] = maps.Clone(m)
	}

	return Snapshot{
		Shape:       s.shape,
		Width:       s.width,
		Rows:        s.rows,
		Skipped:     s.skipped,
		Initialized: s.initialized,
		Positions:   positions,
	}, nil
}

// Restore rebuilds a State from a snapshot. The snapshot's tables are adopted
// by the new state.
func Restore(snap Snapshot) (*State, error) {
	if snap.Initialized && len(snap.Positions) != snap.Width {
		return nil, fmt.Errorf("%w: %d tables for width %d", ErrCorruptSnapshot, len(snap.Positions), snap.Width)
	}

	if !snap.Initialized && len(snap.Positions) != 0 {
		return nil, fmt.Errorf("%w: uninitialized snapshot carries tables", ErrCorruptSnapshot)
	}

	st := &State{
		shape:       snap.Shape,
		rows:        snap.Rows,
		skipped:     snap.Skipped,
		initialized: snap.Initialized,
	}

	if snap.Initialized {
		st.width = snap.Width
		st.maps = make([]Map, snap.Width)

		for j, m := range snap.Positions {
			if m == nil {
				m = make(Map)
			}

			st.maps[j] = m
		}
	}

	return st, nil
}
