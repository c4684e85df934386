// Copyright 2026 The axisdb Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package axisdb

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"sync"

	"github.com/bpowers/axisdb/internal/axis"
	"github.com/bpowers/axisdb/internal/intern"
	"github.com/bpowers/axisdb/internal/lru"
	"github.com/bpowers/axisdb/internal/mapping"
	"github.com/bpowers/axisdb/storage"
	"github.com/bpowers/axisdb/value"
)

// Attributes maps dimension names to values.
type Attributes map[string]value.Value

// Point is the assembled view of one stored point.
type Point struct {
	Coordinate int
	Identity   value.Value
	Attributes Attributes
}

type dimension struct {
	values  *intern.Interner
	mapping *mapping.Mapping
}

func newDimension() *dimension {
	return &dimension{
		values:  intern.New(),
		mapping: mapping.New(),
	}
}

// state is everything that gets persisted.
type state struct {
	axis *axis.Axis
	dims map[string]*dimension
	// order lists dimension names in creation order
	order []string
}

func newState() state {
	return state{
		axis: axis.New(),
		dims: make(map[string]*dimension),
	}
}

type cacheKey struct {
	identity  value.Value
	dimension string
}

// DB is an open database. Methods are safe for concurrent use.
type DB struct {
	store  *storage.Storage
	logger *slog.Logger

	mu    sync.Mutex
	st    state
	cache *lru.Cache[cacheKey, value.Value]
}

// Open loads the database at path, or starts an empty one if no file
// exists yet. A corrupt file or a lock held past the timeout is an error.
func Open(path string, opts ...Option) (*DB, error) {
	options := defaultOptions()
	for _, opt := range opts {
		opt(&options)
	}

	store, err := storage.New(path,
		storage.WithLogger(options.logger),
		storage.WithLockTimeout(options.lockTimeout),
		storage.WithCompression(options.compression))
	if err != nil {
		return nil, fmt.Errorf("storage.New: %w", err)
	}

	db := &DB{
		store:  store,
		logger: options.logger,
		st:     newState(),
		cache:  lru.New[cacheKey, value.Value](options.cacheSize),
	}

	snap, err := store.Load(context.Background())
	switch {
	case errors.Is(err, storage.ErrNotExist):
		db.logger.Info("starting empty database", "path", store.Path())
	case err != nil:
		return nil, fmt.Errorf("store.Load: %w", err)
	default:
		st, err := restoreState(snap)
		if err != nil {
			return nil, err
		}
		db.st = st
	}
	return db, nil
}

// Path is the absolute path of the database file.
func (db *DB) Path() string {
	return db.store.Path()
}

// Insert adds a point at the end of the axis and returns its coordinate.
// Inserting a known identity keeps its coordinate and upserts attrs.
func (db *DB) Insert(identity value.Value, attrs Attributes) (int, error) {
	if err := checkRecord(identity, attrs); err != nil {
		return 0, fmt.Errorf("Insert: %w", err)
	}

	db.mu.Lock()
	defer db.mu.Unlock()
	return db.insertLocked(identity, attrs, -1)
}

// InsertAt adds a point at coordinate pos, shifting every point at or after
// pos up by one in all dimensions. pos may equal the current slot count to
// append. A known identity keeps its coordinate and pos is ignored.
func (db *DB) InsertAt(identity value.Value, attrs Attributes, pos int) (int, error) {
	if err := checkRecord(identity, attrs); err != nil {
		return 0, fmt.Errorf("InsertAt: %w", err)
	}
	if pos < 0 {
		return 0, fmt.Errorf("InsertAt: %w: negative position %d", ErrInvalidInput, pos)
	}

	db.mu.Lock()
	defer db.mu.Unlock()
	return db.insertLocked(identity, attrs, pos)
}

func checkRecord(identity value.Value, attrs Attributes) error {
	if err := checkValue("identity", identity); err != nil {
		return err
	}
	return checkAttributes(attrs)
}

// insertLocked appends when pos < 0.
func (db *DB) insertLocked(identity value.Value, attrs Attributes, pos int) (int, error) {
	var (
		coord int
		added bool
	)
	if pos < 0 {
		coord, added = db.st.axis.Add(identity)
	} else {
		var err error
		coord, added, err = db.st.axis.InsertAt(identity, pos)
		if err != nil {
			return 0, fmt.Errorf("InsertAt: %w: %w", ErrInvalidInput, err)
		}
		// existing bindings at or after pos belong to the points that moved
		if added && coord < db.st.axis.Slots()-1 {
			for _, name := range db.st.order {
				if err := db.st.dims[name].mapping.Shift(coord, 1); err != nil {
					return 0, fmt.Errorf("shift %q: %w", name, err)
				}
			}
		}
	}

	for _, name := range slices.Sorted(maps.Keys(attrs)) {
		d := db.dimensionLocked(name)
		d.mapping.Set(coord, d.values.Add(attrs[name]))
		if !added {
			db.cache.Invalidate(cacheKey{identity, name})
		}
	}

	db.logger.Debug("insert", "identity", identity, "coordinate", coord, "dimensions", len(attrs))
	return coord, nil
}

// dimensionLocked returns the named dimension, creating it if needed.
func (db *DB) dimensionLocked(name string) *dimension {
	d, ok := db.st.dims[name]
	if !ok {
		d = newDimension()
		db.st.dims[name] = d
		db.st.order = append(db.st.order, name)
	}
	return d
}

// Lookup returns the value identity holds in dimension dim.
func (db *DB) Lookup(identity value.Value, dim string) (value.Value, bool) {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.lookupCachedLocked(identity, dim)
}

func (db *DB) lookupCachedLocked(identity value.Value, dim string) (value.Value, bool) {
	key := cacheKey{identity, dim}
	if v, ok := db.cache.Get(key); ok {
		return v, true
	}
	v, ok := db.lookupLocked(identity, dim)
	if ok {
		db.cache.Put(key, v)
	}
	return v, ok
}

func (db *DB) lookupLocked(identity value.Value, dim string) (value.Value, bool) {
	coord, ok := db.st.axis.Coordinate(identity)
	if !ok {
		return value.Value{}, false
	}
	d, ok := db.st.dims[dim]
	if !ok {
		return value.Value{}, false
	}
	id, ok := d.mapping.Get(coord)
	if !ok {
		return value.Value{}, false
	}
	return d.values.Get(id)
}

// Update sets the value of one point in one dimension, creating the
// dimension if needed. Other points holding the old value are unaffected.
func (db *DB) Update(identity value.Value, dim string, v value.Value) error {
	if err := checkChange(identity, dim, v); err != nil {
		return fmt.Errorf("Update: %w", err)
	}

	db.mu.Lock()
	defer db.mu.Unlock()
	return db.updateLocked(identity, dim, v)
}

func checkChange(identity value.Value, dim string, v value.Value) error {
	if err := checkValue("identity", identity); err != nil {
		return err
	}
	if err := checkDimension(dim); err != nil {
		return err
	}
	return checkValue("value", v)
}

func (db *DB) updateLocked(identity value.Value, dim string, v value.Value) error {
	coord, ok := db.st.axis.Coordinate(identity)
	if !ok {
		return fmt.Errorf("Update: %w: identity %s", ErrNotFound, identity)
	}
	d := db.dimensionLocked(dim)
	d.mapping.Set(coord, d.values.Add(v))
	db.cache.Invalidate(cacheKey{identity, dim})

	db.logger.Debug("update", "identity", identity, "dimension", dim, "coordinate", coord)
	return nil
}

// UpdateDimensionValue rewrites oldValue to newValue in dimension dim, for
// every point that holds it. If newValue is already present in dim, the
// two values merge and their points all end up holding newValue.
func (db *DB) UpdateDimensionValue(dim string, oldValue, newValue value.Value) error {
	if err := checkDimension(dim); err != nil {
		return fmt.Errorf("UpdateDimensionValue: %w", err)
	}
	if err := checkValue("old value", oldValue); err != nil {
		return fmt.Errorf("UpdateDimensionValue: %w", err)
	}
	if err := checkValue("new value", newValue); err != nil {
		return fmt.Errorf("UpdateDimensionValue: %w", err)
	}

	db.mu.Lock()
	defer db.mu.Unlock()

	d, ok := db.st.dims[dim]
	if !ok {
		return fmt.Errorf("UpdateDimensionValue: %w: dimension %q", ErrNotFound, dim)
	}
	id, merged, ok := d.values.Update(oldValue, newValue)
	if !ok {
		return fmt.Errorf("UpdateDimensionValue: %w: %s in %q", ErrNotFound, oldValue, dim)
	}
	if merged != 0 {
		n := d.mapping.Replace(merged, id)
		db.logger.Debug("merged dimension values", "dimension", dim, "points", n)
	}
	db.cache.InvalidateFunc(func(k cacheKey) bool { return k.dimension == dim })

	db.logger.Debug("update dimension value", "dimension", dim)
	return nil
}

// Remove deletes the point with the given identity and its attribute
// bindings. Its coordinate is never reused.
func (db *DB) Remove(identity value.Value) bool {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.removeLocked(identity)
}

func (db *DB) removeLocked(identity value.Value) bool {
	coord, ok := db.st.axis.Remove(identity)
	if !ok {
		return false
	}
	for _, name := range db.st.order {
		db.st.dims[name].mapping.Delete(coord)
		db.cache.Invalidate(cacheKey{identity, name})
	}

	db.logger.Debug("remove", "identity", identity, "coordinate", coord)
	return true
}

// Point returns the point with the given identity and every attribute it
// holds.
func (db *DB) Point(identity value.Value) (Point, bool) {
	db.mu.Lock()
	defer db.mu.Unlock()

	coord, ok := db.st.axis.Coordinate(identity)
	if !ok {
		return Point{}, false
	}
	return db.pointLocked(coord, identity), true
}

func (db *DB) pointLocked(coord int, identity value.Value) Point {
	p := Point{
		Coordinate: coord,
		Identity:   identity,
		Attributes: make(Attributes),
	}
	for _, name := range db.st.order {
		d := db.st.dims[name]
		if id, ok := d.mapping.Get(coord); ok {
			p.Attributes[name], _ = d.values.Get(id)
		}
	}
	return p
}

// Points returns every live point in coordinate order.
func (db *DB) Points() []Point {
	db.mu.Lock()
	defer db.mu.Unlock()

	points := make([]Point, 0, db.st.axis.Len())
	for coord, identity := range db.st.axis.All() {
		points = append(points, db.pointLocked(coord, identity))
	}
	return points
}

// Identities returns every live identity in coordinate order.
func (db *DB) Identities() []value.Value {
	db.mu.Lock()
	defer db.mu.Unlock()

	ids := make([]value.Value, 0, db.st.axis.Len())
	for _, identity := range db.st.axis.All() {
		ids = append(ids, identity)
	}
	return ids
}

// Dimensions returns dimension names in creation order.
func (db *DB) Dimensions() []string {
	db.mu.Lock()
	defer db.mu.Unlock()
	return slices.Clone(db.st.order)
}

// Len is the number of live points.
func (db *DB) Len() int {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.st.axis.Len()
}

func (db *DB) DimensionCount() int {
	db.mu.Lock()
	defer db.mu.Unlock()
	return len(db.st.order)
}
