// Copyright 2026 The axisdb Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package axisdb

import (
	"context"
	"fmt"

	"github.com/bpowers/axisdb/internal/axis"
	"github.com/bpowers/axisdb/internal/intern"
	"github.com/bpowers/axisdb/internal/mapping"
	"github.com/bpowers/axisdb/storage"
	"github.com/bpowers/axisdb/value"
)

// snapshotLocked copies the state out, so it can be encoded and written
// without holding db.mu.
func (db *DB) snapshotLocked() *storage.Snapshot {
	slots, index := db.st.axis.Export()
	snap := &storage.Snapshot{
		Slots:      slots,
		Index:      index,
		Dimensions: make([]storage.Dimension, 0, len(db.st.order)),
	}
	for _, name := range db.st.order {
		d := db.st.dims[name]
		snap.Dimensions = append(snap.Dimensions, storage.Dimension{
			Name:    name,
			Values:  d.values.Export(),
			NextID:  d.values.Next(),
			Mapping: d.mapping.Export(),
		})
	}
	return snap
}

func restoreState(snap *storage.Snapshot) (state, error) {
	corrupt := func(err error) (state, error) {
		return state{}, fmt.Errorf("%w: %w", storage.ErrCorrupt, err)
	}

	a, err := axis.Restore(snap.Slots, snap.Index)
	if err != nil {
		return corrupt(err)
	}
	st := state{
		axis:  a,
		dims:  make(map[string]*dimension, len(snap.Dimensions)),
		order: make([]string, 0, len(snap.Dimensions)),
	}
	for _, sd := range snap.Dimensions {
		if err := checkDimension(sd.Name); err != nil {
			return corrupt(err)
		}
		if _, dup := st.dims[sd.Name]; dup {
			return corrupt(fmt.Errorf("dimension %q stored twice", sd.Name))
		}

		reverse := sd.Reverse
		if reverse == nil {
			reverse = make(map[value.Value]intern.ID, len(sd.Values))
			for _, e := range sd.Values {
				reverse[e.Value] = e.ID
			}
		}
		values, err := intern.Restore(sd.Values, reverse, sd.NextID)
		if err != nil {
			return corrupt(fmt.Errorf("dimension %q: %w", sd.Name, err))
		}
		m, err := mapping.Restore(sd.Mapping)
		if err != nil {
			return corrupt(fmt.Errorf("dimension %q: %w", sd.Name, err))
		}
		for coord, id := range m.All() {
			if _, live := a.Identity(coord); !live {
				return corrupt(fmt.Errorf("dimension %q: coordinate %d is not a live point", sd.Name, coord))
			}
			if _, ok := values.Get(id); !ok {
				return corrupt(fmt.Errorf("dimension %q: unknown id %d", sd.Name, id))
			}
		}

		st.dims[sd.Name] = &dimension{values: values, mapping: m}
		st.order = append(st.order, sd.Name)
	}
	return st, nil
}

// Save writes the current state to the database file. The state is copied
// under the lock; encoding and I/O happen after it is released.
func (db *DB) Save(ctx context.Context) error {
	db.mu.Lock()
	snap := db.snapshotLocked()
	db.mu.Unlock()

	if err := db.store.Save(ctx, snap); err != nil {
		return fmt.Errorf("Save: %w", err)
	}
	return nil
}

// SaveAsync is Save on a new goroutine; the state is copied before it
// returns. The channel receives exactly one result.
func (db *DB) SaveAsync(ctx context.Context) <-chan error {
	db.mu.Lock()
	snap := db.snapshotLocked()
	db.mu.Unlock()

	return db.store.SaveAsync(ctx, snap)
}

// Reload replaces the in-memory state with the file's contents. On any
// error the current state is kept.
func (db *DB) Reload(ctx context.Context) error {
	snap, err := db.store.Load(ctx)
	if err != nil {
		return fmt.Errorf("Reload: %w", err)
	}
	return db.install(snap, "Reload")
}

// ReloadAsync is Reload on a new goroutine. The channel receives exactly
// one result.
func (db *DB) ReloadAsync(ctx context.Context) <-chan error {
	ch := make(chan error, 1)
	loaded := db.store.LoadAsync(ctx)
	go func() {
		res := <-loaded
		if res.Err != nil {
			ch <- fmt.Errorf("ReloadAsync: %w", res.Err)
			return
		}
		ch <- db.install(res.Snapshot, "ReloadAsync")
	}()
	return ch
}

func (db *DB) install(snap *storage.Snapshot, op string) error {
	st, err := restoreState(snap)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	db.mu.Lock()
	defer db.mu.Unlock()
	db.st = st
	db.cache.Clear()
	return nil
}

// Close saves the database and drops the lookup cache. The DB stays usable
// afterwards.
func (db *DB) Close() error {
	db.mu.Lock()
	snap := db.snapshotLocked()
	db.cache.Clear()
	db.mu.Unlock()

	if err := db.store.Save(context.Background(), snap); err != nil {
		db.logger.Error("save on close failed", "path", db.store.Path(), "err", err)
		return fmt.Errorf("Close: %w", err)
	}
	return nil
}
