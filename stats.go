// Copyright 2026 The axisdb Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package axisdb

import "github.com/bpowers/axisdb/storage"

// Stats summarizes a database.
type Stats struct {
	Path            string           `yaml:"path"`
	Points          int              `yaml:"points"`
	Dimensions      int              `yaml:"dimensions"`
	DimensionValues map[string]int   `yaml:"dimension_values"`
	FileSize        int64            `yaml:"file_size_bytes"`
	Metadata        storage.Metadata `yaml:"metadata"`
	CacheHits       int64            `yaml:"cache_hits"`
	CacheMisses     int64            `yaml:"cache_misses"`
}

func (db *DB) Stats() Stats {
	db.mu.Lock()
	s := Stats{
		Path:            db.store.Path(),
		Points:          db.st.axis.Len(),
		Dimensions:      len(db.st.order),
		DimensionValues: make(map[string]int, len(db.st.order)),
	}
	for _, name := range db.st.order {
		s.DimensionValues[name] = db.st.dims[name].values.Count()
	}
	s.CacheHits, s.CacheMisses = db.cache.Stats()
	db.mu.Unlock()

	s.FileSize = db.store.Size()
	s.Metadata = db.store.Metadata()
	return s
}
