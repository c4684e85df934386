// Copyright 2026 The axisdb Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/bpowers/axisdb/internal/filelock"
)

var (
	// ErrNotExist is returned by Load when there is no database file.
	ErrNotExist = errors.New("database file does not exist")
	// ErrLockTimeout means another holder kept the file lock past the
	// configured timeout. The operation may be retried.
	ErrLockTimeout = errors.New("timed out waiting for database lock")
	// ErrCorrupt covers unreadable headers, checksum mismatches, and
	// payloads that fail to decompress, decode, or validate.
	ErrCorrupt = errors.New("corrupt database file")
)

const (
	DefaultLockTimeout   = 10 * time.Second
	DefaultRetryInterval = 50 * time.Millisecond
)

// Option configures a Storage.
type Option func(*options)

type options struct {
	logger      *slog.Logger
	lockTimeout time.Duration
	retry       time.Duration
	compression Compression
}

// WithLogger sets an optional logger. If not provided, no logging output
// will be produced.
func WithLogger(logger *slog.Logger) Option {
	return func(opts *options) {
		opts.logger = logger
	}
}

// WithLockTimeout bounds how long Save and Load wait for the file lock. A
// zero timeout tries the lock exactly once.
func WithLockTimeout(d time.Duration) Option {
	return func(opts *options) {
		opts.lockTimeout = d
	}
}

// WithRetryInterval sets how often a contended lock is retried.
func WithRetryInterval(d time.Duration) Option {
	return func(opts *options) {
		opts.retry = d
	}
}

// WithCompression selects the payload compression used by Save. Load
// handles every compression regardless.
func WithCompression(c Compression) Option {
	return func(opts *options) {
		opts.compression = c
	}
}

// Storage reads and writes one database file. It is safe for concurrent
// use; cross-process exclusion comes from the lock file.
type Storage struct {
	path        string
	lockPath    string
	logger      *slog.Logger
	lockTimeout time.Duration
	retry       time.Duration
	compression Compression

	mu   sync.Mutex
	meta Metadata
}

func New(path string, opts ...Option) (*Storage, error) {
	options := options{
		logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
		lockTimeout: DefaultLockTimeout,
		retry:       DefaultRetryInterval,
		compression: CompressionGzip,
	}
	for _, opt := range opts {
		opt(&options)
	}
	if !options.compression.valid() {
		return nil, fmt.Errorf("storage: unknown compression %d", uint8(options.compression))
	}

	path, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("filepath.Abs: %w", err)
	}
	return &Storage{
		path:        path,
		lockPath:    path + ".lock",
		logger:      options.logger,
		lockTimeout: options.lockTimeout,
		retry:       options.retry,
		compression: options.compression,
		meta: Metadata{
			Version:       Version,
			FormatVersion: fileFormatVersion,
		},
	}, nil
}

func (s *Storage) Path() string {
	return s.path
}

// Metadata returns the metadata of the last successful Save or Load.
func (s *Storage) Metadata() Metadata {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.meta
}

// Save writes snap to the database file, replacing its previous contents
// atomically. snap.Metadata is ignored; Save stamps fresh metadata and
// commits it only once the file is in place.
func (s *Storage) Save(ctx context.Context, snap *Snapshot) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("os.MkdirAll: %w", err)
	}

	unlock, err := s.lock(ctx)
	if err != nil {
		return err
	}
	defer unlock()

	meta := s.Metadata()
	now := time.Now().UTC().Round(0)
	if meta.DatabaseID == "" {
		meta.DatabaseID = uuid.NewString()
	}
	if meta.CreatedAt.IsZero() {
		meta.CreatedAt = now
	}
	meta.LastModified = now
	meta.Version = Version
	meta.FormatVersion = fileFormatVersion
	meta.TotalPoints = len(snap.Index)
	meta.TotalDimensions = len(snap.Dimensions)

	out := *snap
	out.Metadata = meta
	raw, err := encodeSnapshot(&out)
	if err != nil {
		return fmt.Errorf("encodeSnapshot: %w", err)
	}
	stored, c, err := compress(s.compression, raw)
	if err != nil {
		return fmt.Errorf("compress: %w", err)
	}

	if err := s.writeFile(newFileHeader(c, len(raw), stored), stored); err != nil {
		s.logger.Error("save failed", "path", s.path, "err", err)
		return err
	}

	s.mu.Lock()
	s.meta = meta
	s.mu.Unlock()

	s.logger.Info("saved database",
		"path", s.path,
		"points", meta.TotalPoints,
		"dimensions", meta.TotalDimensions,
		"bytes", fileHeaderSize+len(stored))
	return nil
}

// writeFile writes to a temp file in the target directory and renames it
// over the target, so readers see either the old or the new contents.
func (s *Storage) writeFile(h *fileHeader, stored []byte) error {
	dir := filepath.Dir(s.path)
	f, err := os.CreateTemp(dir, filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("CreateTemp failed (may need permissions for dir %q): %w", dir, err)
	}
	cleanup := func() {
		_ = f.Close()
		_ = os.Remove(f.Name())
	}

	if _, err := h.WriteTo(f); err != nil {
		cleanup()
		return fmt.Errorf("header.WriteTo: %w", err)
	}
	if _, err := f.Write(stored); err != nil {
		cleanup()
		return fmt.Errorf("f.Write: %w", err)
	}
	if err := f.Sync(); err != nil {
		cleanup()
		return fmt.Errorf("f.Sync: %w", err)
	}
	if err := f.Chmod(0o644); err != nil {
		cleanup()
		return fmt.Errorf("f.Chmod: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(f.Name())
		return fmt.Errorf("f.Close: %w", err)
	}
	if err := os.Rename(f.Name(), s.path); err != nil {
		_ = os.Remove(f.Name())
		return fmt.Errorf("os.Rename: %w", err)
	}
	return nil
}

// Load reads and validates the database file.
func (s *Storage) Load(ctx context.Context) (*Snapshot, error) {
	if !s.Exists() {
		return nil, fmt.Errorf("%w: %s", ErrNotExist, s.path)
	}

	unlock, err := s.lock(ctx)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(s.path)
	unlock()
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotExist, s.path)
	} else if err != nil {
		return nil, fmt.Errorf("os.ReadFile: %w", err)
	}

	snap, err := parseFile(data)
	if err != nil {
		s.logger.Warn("load failed", "path", s.path, "err", err)
		return nil, err
	}

	s.mu.Lock()
	s.meta = snap.Metadata
	s.mu.Unlock()

	s.logger.Info("loaded database",
		"path", s.path,
		"points", len(snap.Index),
		"dimensions", len(snap.Dimensions),
		"bytes", len(data))
	return snap, nil
}

func parseFile(data []byte) (*Snapshot, error) {
	var h fileHeader
	if err := h.UnmarshalBytes(data); err != nil {
		return nil, err
	}
	stored := data[fileHeaderSize:]
	if err := h.verify(stored); err != nil {
		return nil, err
	}
	raw, err := decompress(h.compression, stored, h.rawLen)
	if err != nil {
		return nil, err
	}
	snap, err := decodeSnapshot(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: decode: %v", ErrCorrupt, err)
	}
	if err := snap.checkReferences(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	return snap, nil
}

// SaveAsync runs Save on a new goroutine. The channel receives exactly one
// result.
func (s *Storage) SaveAsync(ctx context.Context, snap *Snapshot) <-chan error {
	ch := make(chan error, 1)
	go func() {
		ch <- s.Save(ctx, snap)
	}()
	return ch
}

// LoadResult is delivered by LoadAsync.
type LoadResult struct {
	Snapshot *Snapshot
	Err      error
}

// LoadAsync runs Load on a new goroutine. The channel receives exactly one
// result.
func (s *Storage) LoadAsync(ctx context.Context) <-chan LoadResult {
	ch := make(chan LoadResult, 1)
	go func() {
		snap, err := s.Load(ctx)
		ch <- LoadResult{Snapshot: snap, Err: err}
	}()
	return ch
}

func (s *Storage) Exists() bool {
	fi, err := os.Stat(s.path)
	return err == nil && fi.Mode().IsRegular()
}

// Size is the file size in bytes, or 0 when there is no file.
func (s *Storage) Size() int64 {
	fi, err := os.Stat(s.path)
	if err != nil {
		return 0
	}
	return fi.Size()
}

// Delete removes the database file and forgets its metadata. Deleting a
// missing file is not an error.
func (s *Storage) Delete(ctx context.Context) error {
	if !s.Exists() {
		return nil
	}
	unlock, err := s.lock(ctx)
	if err != nil {
		return err
	}
	defer unlock()

	if err := os.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("os.Remove: %w", err)
	}
	s.mu.Lock()
	s.meta = Metadata{Version: Version, FormatVersion: fileFormatVersion}
	s.mu.Unlock()

	s.logger.Info("deleted database", "path", s.path)
	return nil
}

func (s *Storage) lock(ctx context.Context) (unlock func(), err error) {
	ctx, cancel := context.WithTimeout(ctx, s.lockTimeout)
	defer cancel()

	l := filelock.New(s.lockPath)
	if err := l.Lock(ctx, s.retry); err != nil {
		if errors.Is(err, filelock.ErrTimeout) {
			s.logger.Warn("lock not acquired", "path", s.lockPath, "err", err)
			return nil, fmt.Errorf("%w: %s after %s", ErrLockTimeout, s.path, s.lockTimeout)
		}
		return nil, err
	}
	return func() {
		if err := l.Unlock(); err != nil {
			s.logger.Warn("unlock failed", "path", s.lockPath, "err", err)
		}
	}, nil
}
