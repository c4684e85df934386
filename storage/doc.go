// Copyright 2026 The axisdb Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

// Package storage persists a database snapshot to a single file, guarded
// by an advisory lock on a sidecar "<path>.lock" file.
//
// A database file looks like:
//
//	┌───────────────────┐
//	│ file header       │ 32 bytes
//	├───────────────────┤
//	│ payload           │
//	│ (compressed       │
//	│  msgpack record)  │
//	│                   │
//	└───────────────────┘
//
// The header is little-endian:
//
//	 0    1    2    3    4    5    6    7
//	+----+----+----+----+----+----+----+----+
//	| magic             | format version    |
//	+----+----+----+----+----+----+----+----+
//	|cmp | reserved                         |
//	+----+----+----+----+----+----+----+----+
//	| uncompressed payload length           |
//	+----+----+----+----+----+----+----+----+
//	| farm.Hash64 of the stored payload     |
//	+----+----+----+----+----+----+----+----+
//
// The decompressed payload is a msgpack map:
//
//	{ metadata: {...},
//	  database: {
//	    central_axis: { vector_points: [identity|nil ...],
//	                    coordinate_map: [[identity, coordinate] ...] },
//	    dimensional_spaces: { dim: { value_domain: {id: value},
//	                                 value_to_id: {value: id},
//	                                 next_id: n } },
//	    coordinate_mappings: { dim: {coordinate: id} } } }
//
// Dimensions are written in creation order, values in id order and
// mappings in coordinate order, so a given state always encodes to the
// same bytes apart from metadata timestamps.
package storage
