// Copyright 2026 The axisdb Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

// Package intern de-duplicates the values of one dimension into a table of
// small integer ids.
package intern

import (
	"errors"
	"fmt"
	"slices"

	"github.com/bpowers/axisdb/value"
)

// ID references a value within one Interner. Zero is never allocated.
type ID uint64

const firstID ID = 1

var ErrCorrupt = errors.New("inconsistent value table")

// Entry is one id -> value row of the forward table.
type Entry struct {
	ID    ID
	Value value.Value
}

// Interner is a bidirectional value <-> id table. It is not safe for
// concurrent use.
type Interner struct {
	values map[ID]value.Value
	ids    map[value.Value]ID
	next   ID
}

func New() *Interner {
	return &Interner{
		values: make(map[ID]value.Value),
		ids:    make(map[value.Value]ID),
		next:   firstID,
	}
}

// Add returns the id of v, allocating the next id on first occurrence.
func (in *Interner) Add(v value.Value) ID {
	if id, ok := in.ids[v]; ok {
		return id
	}
	id := in.next
	in.next++
	in.values[id] = v
	in.ids[v] = id
	return id
}

func (in *Interner) Get(id ID) (value.Value, bool) {
	v, ok := in.values[id]
	return v, ok
}

func (in *Interner) Lookup(v value.Value) (ID, bool) {
	id, ok := in.ids[v]
	return id, ok
}

// Update rewrites the value behind from's id to the value to, keeping the id, so
// anything referencing that id observes to. If to already had a different
// id, that id is retired and returned as merged; the caller must repoint
// references from merged to id.
func (in *Interner) Update(from, to value.Value) (id, merged ID, ok bool) {
	id, ok = in.ids[from]
	if !ok {
		return 0, 0, false
	}
	if from == to {
		return id, 0, true
	}
	if other, exists := in.ids[to]; exists {
		merged = other
		delete(in.values, other)
	}
	delete(in.ids, from)
	in.values[id] = to
	in.ids[to] = id
	return id, merged, true
}

// Count is the number of live ids.
func (in *Interner) Count() int {
	return len(in.values)
}

// Next is the id the next new value will receive.
func (in *Interner) Next() ID {
	return in.next
}

// Export returns the forward table ordered by id.
func (in *Interner) Export() []Entry {
	entries := make([]Entry, 0, len(in.values))
	for id, v := range in.values {
		entries = append(entries, Entry{ID: id, Value: v})
	}
	slices.SortFunc(entries, func(a, b Entry) int {
		switch {
		case a.ID < b.ID:
			return -1
		case a.ID > b.ID:
			return 1
		}
		return 0
	})
	return entries
}

// Restore rebuilds an Interner from its forward table, its reverse index and
// the id counter, checking that the two directions agree.
func Restore(forward []Entry, reverse map[value.Value]ID, next ID) (*Interner, error) {
	if next < firstID {
		return nil, fmt.Errorf("%w: next id %d below %d", ErrCorrupt, next, firstID)
	}
	in := &Interner{
		values: make(map[ID]value.Value, len(forward)),
		ids:    make(map[value.Value]ID, len(reverse)),
		next:   next,
	}
	for _, e := range forward {
		if e.ID < firstID || e.ID >= next {
			return nil, fmt.Errorf("%w: id %d outside [1, %d)", ErrCorrupt, e.ID, next)
		}
		if !e.Value.IsValid() {
			return nil, fmt.Errorf("%w: id %d holds an invalid value", ErrCorrupt, e.ID)
		}
		if _, dup := in.values[e.ID]; dup {
			return nil, fmt.Errorf("%w: id %d listed twice", ErrCorrupt, e.ID)
		}
		in.values[e.ID] = e.Value
	}
	if len(reverse) != len(in.values) {
		return nil, fmt.Errorf("%w: %d ids but %d reverse entries", ErrCorrupt, len(in.values), len(reverse))
	}
	for v, id := range reverse {
		if got, ok := in.values[id]; !ok || got != v {
			return nil, fmt.Errorf("%w: reverse entry %s -> %d does not round-trip", ErrCorrupt, v, id)
		}
		in.ids[v] = id
	}
	return in, nil
}
