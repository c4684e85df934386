// Copyright 2026 The axisdb Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

// Package axis assigns dense integer coordinates to point identities.
//
// Coordinates are slot indexes. A removed identity leaves a tombstone in its
// slot; slots are never compacted, so a coordinate is never handed out twice
// by Add. InsertAt is the one operation that renumbers: it shifts every slot
// at or after the insert position up by one.
package axis

import (
	"errors"
	"fmt"
	"iter"

	"github.com/bpowers/axisdb/internal/bitset"
	"github.com/bpowers/axisdb/value"
)

var (
	ErrPosition = errors.New("insert position out of range")
	ErrCorrupt  = errors.New("inconsistent axis data")
)

// Entry is one identity -> coordinate pair of the index.
type Entry struct {
	Identity   value.Value
	Coordinate int
}

// Axis is not safe for concurrent use.
type Axis struct {
	// slots[c] is the identity at coordinate c, or the zero Value for a tombstone
	slots []value.Value
	index map[value.Value]int
}

func New() *Axis {
	return &Axis{
		index: make(map[value.Value]int),
	}
}

// Add registers identity at the end of the axis. If identity is already
// registered its existing coordinate is returned and added is false.
func (a *Axis) Add(identity value.Value) (coord int, added bool) {
	if c, ok := a.index[identity]; ok {
		return c, false
	}
	coord = len(a.slots)
	a.slots = append(a.slots, identity)
	a.index[identity] = coord
	return coord, true
}

// InsertAt registers identity at slot pos, moving every slot at or after
// pos up by one coordinate. Known identities keep their coordinate and pos
// is ignored. Callers must shift any coordinate-keyed data by +1 from pos
// when added is true.
func (a *Axis) InsertAt(identity value.Value, pos int) (coord int, added bool, err error) {
	if c, ok := a.index[identity]; ok {
		return c, false, nil
	}
	if pos < 0 || pos > len(a.slots) {
		return 0, false, fmt.Errorf("%w: %d not in [0, %d]", ErrPosition, pos, len(a.slots))
	}
	if pos == len(a.slots) {
		c, _ := a.Add(identity)
		return c, true, nil
	}

	a.slots = append(a.slots, value.Value{})
	copy(a.slots[pos+1:], a.slots[pos:])
	a.slots[pos] = identity
	a.rebuildIndex()

	return pos, true, nil
}

func (a *Axis) rebuildIndex() {
	clear(a.index)
	for c, id := range a.slots {
		if id.IsValid() {
			a.index[id] = c
		}
	}
}

func (a *Axis) Coordinate(identity value.Value) (int, bool) {
	c, ok := a.index[identity]
	return c, ok
}

// Identity returns the identity at coord. Out-of-range and tombstoned
// coordinates both report false.
func (a *Axis) Identity(coord int) (value.Value, bool) {
	if coord < 0 || coord >= len(a.slots) {
		return value.Value{}, false
	}
	id := a.slots[coord]
	return id, id.IsValid()
}

// Remove tombstones the slot of identity and returns the vacated coordinate.
func (a *Axis) Remove(identity value.Value) (coord int, ok bool) {
	coord, ok = a.index[identity]
	if !ok {
		return 0, false
	}
	a.slots[coord] = value.Value{}
	delete(a.index, identity)
	return coord, true
}

// Len is the number of live (non-tombstoned) identities.
func (a *Axis) Len() int {
	return len(a.index)
}

// Slots is the number of allocated coordinates, tombstones included.
func (a *Axis) Slots() int {
	return len(a.slots)
}

// All yields live identities in coordinate order. The sequence can be
// ranged over any number of times; it must not be used across mutations.
func (a *Axis) All() iter.Seq2[int, value.Value] {
	return func(yield func(int, value.Value) bool) {
		for c, id := range a.slots {
			if !id.IsValid() {
				continue
			}
			if !yield(c, id) {
				return
			}
		}
	}
}

// Export returns copies of the slot sequence and of the index, the latter
// ordered by coordinate.
func (a *Axis) Export() (slots []value.Value, index []Entry) {
	slots = make([]value.Value, len(a.slots))
	copy(slots, a.slots)
	index = make([]Entry, 0, len(a.index))
	for c, id := range a.All() {
		index = append(index, Entry{Identity: id, Coordinate: c})
	}
	return slots, index
}

// Restore rebuilds an Axis from its exported form. The index must name
// exactly the live slots, each at the coordinate holding that identity.
func Restore(slots []value.Value, index []Entry) (*Axis, error) {
	a := &Axis{
		slots: make([]value.Value, len(slots)),
		index: make(map[value.Value]int, len(index)),
	}
	copy(a.slots, slots)

	occ := bitset.New(len(slots))
	for _, e := range index {
		if !e.Identity.IsValid() {
			return nil, fmt.Errorf("%w: invalid identity at coordinate %d", ErrCorrupt, e.Coordinate)
		}
		if e.Coordinate < 0 || e.Coordinate >= len(slots) || slots[e.Coordinate] != e.Identity {
			return nil, fmt.Errorf("%w: identity %s does not occupy coordinate %d", ErrCorrupt, e.Identity, e.Coordinate)
		}
		if occ.TestAndSet(e.Coordinate) {
			return nil, fmt.Errorf("%w: coordinate %d indexed twice", ErrCorrupt, e.Coordinate)
		}
		if _, dup := a.index[e.Identity]; dup {
			return nil, fmt.Errorf("%w: identity %s indexed twice", ErrCorrupt, e.Identity)
		}
		a.index[e.Identity] = e.Coordinate
	}

	for c, id := range slots {
		if id.IsValid() && !occ.IsSet(c) {
			return nil, fmt.Errorf("%w: live slot %d (%s) missing from index", ErrCorrupt, c, id)
		}
	}

	return a, nil
}
