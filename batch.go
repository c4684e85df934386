// Copyright 2026 The axisdb Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package axisdb

import (
	"fmt"

	"github.com/bpowers/axisdb/value"
)

// Record is one point for BatchInsert. A nil Position appends.
type Record struct {
	Identity   value.Value
	Attributes Attributes
	Position   *int
}

// Query is one BatchLookup request.
type Query struct {
	Identity  value.Value
	Dimension string
}

type LookupResult struct {
	Value value.Value
	Found bool
}

// Change is one BatchUpdate request.
type Change struct {
	Identity  value.Value
	Dimension string
	Value     value.Value
}

// BatchInsert inserts records in order under a single lock acquisition and
// returns each record's coordinate at the time it was inserted. Every record
// is validated first; if any is invalid nothing is inserted.
func (db *DB) BatchInsert(records []Record) ([]int, error) {
	for i, r := range records {
		if err := checkRecord(r.Identity, r.Attributes); err != nil {
			return nil, fmt.Errorf("BatchInsert: record %d: %w", i, err)
		}
		if r.Position != nil && *r.Position < 0 {
			return nil, fmt.Errorf("BatchInsert: record %d: %w: negative position %d", i, ErrInvalidInput, *r.Position)
		}
	}

	db.mu.Lock()
	defer db.mu.Unlock()

	if err := db.checkPositionsLocked(records); err != nil {
		return nil, err
	}

	coords := make([]int, len(records))
	for i, r := range records {
		pos := -1
		if r.Position != nil {
			pos = *r.Position
		}
		coord, err := db.insertLocked(r.Identity, r.Attributes, pos)
		if err != nil {
			// unreachable after checkPositionsLocked
			return nil, fmt.Errorf("BatchInsert: record %d: %w", i, err)
		}
		coords[i] = coord
	}
	db.cache.Clear()

	db.logger.Debug("batch insert", "points", len(records))
	return coords, nil
}

// checkPositionsLocked replays the batch's effect on the slot count so an
// out-of-range position is caught before anything is inserted.
func (db *DB) checkPositionsLocked(records []Record) error {
	slots := db.st.axis.Slots()
	fresh := make(map[value.Value]struct{})
	for i, r := range records {
		if _, known := db.st.axis.Coordinate(r.Identity); known {
			continue
		}
		if _, seen := fresh[r.Identity]; seen {
			continue
		}
		if r.Position != nil && *r.Position > slots {
			return fmt.Errorf("BatchInsert: record %d: %w: position %d past %d slots", i, ErrInvalidInput, *r.Position, slots)
		}
		fresh[r.Identity] = struct{}{}
		slots++
	}
	return nil
}

// BatchLookup answers queries in order under a single lock acquisition.
func (db *DB) BatchLookup(queries []Query) []LookupResult {
	db.mu.Lock()
	defer db.mu.Unlock()

	results := make([]LookupResult, len(queries))
	for i, q := range queries {
		results[i].Value, results[i].Found = db.lookupCachedLocked(q.Identity, q.Dimension)
	}
	return results
}

// BatchUpdate applies changes in order and returns how many succeeded.
// Failed changes are logged and skipped.
func (db *DB) BatchUpdate(changes []Change) int {
	db.mu.Lock()
	defer db.mu.Unlock()

	n := 0
	for i, c := range changes {
		err := checkChange(c.Identity, c.Dimension, c.Value)
		if err == nil {
			err = db.updateLocked(c.Identity, c.Dimension, c.Value)
		}
		if err != nil {
			db.logger.Warn("batch update skipped", "index", i, "identity", c.Identity, "dimension", c.Dimension, "err", err)
			continue
		}
		n++
	}
	db.cache.Clear()
	return n
}
