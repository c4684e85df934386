// Copyright 2026 The axisdb Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package storage

import (
	"fmt"
	"time"

	"github.com/bpowers/axisdb/internal/axis"
	"github.com/bpowers/axisdb/internal/intern"
	"github.com/bpowers/axisdb/internal/mapping"
	"github.com/bpowers/axisdb/value"
)

// Version is the library version recorded in saved metadata.
const Version = "1.0.0"

// Metadata describes a saved database. Save maintains every field.
type Metadata struct {
	Version         string    `yaml:"version"`
	FormatVersion   int       `yaml:"format_version"`
	DatabaseID      string    `yaml:"database_id"`
	CreatedAt       time.Time `yaml:"created_at"`
	LastModified    time.Time `yaml:"last_modified"`
	TotalPoints     int       `yaml:"total_points"`
	TotalDimensions int       `yaml:"total_dimensions"`
}

// Snapshot is the complete persisted state of a database.
type Snapshot struct {
	Metadata Metadata

	// Slots holds the central axis by coordinate; the zero Value marks a
	// removed point.
	Slots []value.Value
	// Index maps each live identity to its coordinate, in coordinate order.
	Index []axis.Entry

	// Dimensions in creation order.
	Dimensions []Dimension
}

// Dimension is one attribute's value table and coordinate mapping.
type Dimension struct {
	Name string
	// Values in id order.
	Values []intern.Entry
	// Reverse is filled in by Load from the stored value -> id table; Save
	// derives that table from Values.
	Reverse map[value.Value]intern.ID
	NextID  intern.ID
	// Mapping in coordinate order.
	Mapping []mapping.Entry
}

// checkReferences verifies that every mapping names a live point and a
// value of its own dimension. Per-structure consistency is checked when the
// structures are rebuilt.
func (s *Snapshot) checkReferences() error {
	for _, d := range s.Dimensions {
		if d.NextID < 1 {
			return fmt.Errorf("dimension %q: next id %d, want at least 1", d.Name, d.NextID)
		}
		ids := make(map[intern.ID]struct{}, len(d.Values))
		for _, e := range d.Values {
			ids[e.ID] = struct{}{}
		}
		for _, e := range d.Mapping {
			if e.Coordinate < 0 || e.Coordinate >= len(s.Slots) || !s.Slots[e.Coordinate].IsValid() {
				return fmt.Errorf("dimension %q: mapping names dead coordinate %d", d.Name, e.Coordinate)
			}
			if _, ok := ids[e.ID]; !ok {
				return fmt.Errorf("dimension %q: coordinate %d maps to unknown id %d", d.Name, e.Coordinate, e.ID)
			}
		}
	}
	return nil
}
