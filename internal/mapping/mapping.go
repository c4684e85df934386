// Copyright 2026 The axisdb Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

// Package mapping holds the sparse coordinate -> value id table of one
// dimension.
package mapping

import (
	"errors"
	"fmt"
	"iter"
	"sort"

	"github.com/RoaringBitmap/roaring/v2/roaring64"

	"github.com/bpowers/axisdb/internal/intern"
)

var (
	ErrShift   = errors.New("shift moves a coordinate below zero")
	ErrCorrupt = errors.New("inconsistent coordinate mapping")
)

// Entry is one coordinate -> id binding.
type Entry struct {
	Coordinate int
	ID         intern.ID
}

// Mapping is not safe for concurrent use. A coordinate with no entry has no
// value in this dimension.
type Mapping struct {
	// keys mirrors the key set of ids, giving ordered iteration and range removal
	keys *roaring64.Bitmap
	ids  map[uint64]intern.ID
}

func New() *Mapping {
	return &Mapping{
		keys: roaring64.New(),
		ids:  make(map[uint64]intern.ID),
	}
}

// Set binds coord to id, overwriting any previous binding.
func (m *Mapping) Set(coord int, id intern.ID) {
	k := uint64(coord)
	m.ids[k] = id
	m.keys.Add(k)
}

func (m *Mapping) Get(coord int) (intern.ID, bool) {
	if coord < 0 {
		return 0, false
	}
	id, ok := m.ids[uint64(coord)]
	return id, ok
}

func (m *Mapping) Delete(coord int) bool {
	if coord < 0 {
		return false
	}
	k := uint64(coord)
	if _, ok := m.ids[k]; !ok {
		return false
	}
	delete(m.ids, k)
	m.keys.Remove(k)
	return true
}

// Shift re-keys every binding at coordinate >= from to coordinate+amount.
// A negative amount may overwrite bindings below from.
func (m *Mapping) Shift(from, amount int) error {
	if amount == 0 {
		return nil
	}
	if from < 0 {
		from = 0
	}
	keys := m.keys.ToArray()
	i := sort.Search(len(keys), func(i int) bool { return keys[i] >= uint64(from) })
	moved := keys[i:]
	if len(moved) == 0 {
		return nil
	}
	if int(moved[0])+amount < 0 {
		return fmt.Errorf("%w: %d%+d", ErrShift, moved[0], amount)
	}

	ids := make([]intern.ID, len(moved))
	for j, k := range moved {
		ids[j] = m.ids[k]
		delete(m.ids, k)
	}
	m.keys.RemoveRange(moved[0], moved[len(moved)-1]+1)

	for j, k := range moved {
		m.Set(int(k)+amount, ids[j])
	}
	return nil
}

// Replace repoints every binding of from to to and returns how many moved.
func (m *Mapping) Replace(from, to intern.ID) int {
	n := 0
	for k, id := range m.ids {
		if id == from {
			m.ids[k] = to
			n++
		}
	}
	return n
}

func (m *Mapping) Len() int {
	return len(m.ids)
}

// All yields bindings in coordinate order.
func (m *Mapping) All() iter.Seq2[int, intern.ID] {
	return func(yield func(int, intern.ID) bool) {
		for _, k := range m.keys.ToArray() {
			if !yield(int(k), m.ids[k]) {
				return
			}
		}
	}
}

// Export returns the bindings ordered by coordinate.
func (m *Mapping) Export() []Entry {
	entries := make([]Entry, 0, len(m.ids))
	for c, id := range m.All() {
		entries = append(entries, Entry{Coordinate: c, ID: id})
	}
	return entries
}

// Restore rebuilds a Mapping from exported bindings.
func Restore(entries []Entry) (*Mapping, error) {
	m := New()
	for _, e := range entries {
		if e.Coordinate < 0 {
			return nil, fmt.Errorf("%w: negative coordinate %d", ErrCorrupt, e.Coordinate)
		}
		if e.ID == 0 {
			return nil, fmt.Errorf("%w: coordinate %d bound to id 0", ErrCorrupt, e.Coordinate)
		}
		if _, dup := m.Get(e.Coordinate); dup {
			return nil, fmt.Errorf("%w: coordinate %d bound twice", ErrCorrupt, e.Coordinate)
		}
		m.Set(e.Coordinate, e.ID)
	}
	return m, nil
}
