// Copyright 2026 The axisdb Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package axisdb

import (
	"io"
	"log/slog"
	"time"

	"github.com/bpowers/axisdb/storage"
)

// DefaultCacheSize is the number of (identity, dimension) lookups cached
// unless WithCacheSize says otherwise.
const DefaultCacheSize = 1000

// Option configures a DB.
type Option func(*options)

type options struct {
	logger      *slog.Logger
	cacheSize   int
	lockTimeout time.Duration
	compression storage.Compression
}

func defaultOptions() options {
	return options{
		logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
		cacheSize:   DefaultCacheSize,
		lockTimeout: storage.DefaultLockTimeout,
		compression: storage.CompressionGzip,
	}
}

// WithLogger sets an optional logger for the database to use. If not
// provided, no logging output will be produced.
func WithLogger(logger *slog.Logger) Option {
	return func(opts *options) {
		opts.logger = logger
	}
}

// WithCacheSize sets the lookup cache capacity. A size <= 0 disables the
// cache.
func WithCacheSize(n int) Option {
	return func(opts *options) {
		opts.cacheSize = n
	}
}

// WithLockTimeout bounds how long loads and saves wait for the file lock.
func WithLockTimeout(d time.Duration) Option {
	return func(opts *options) {
		opts.lockTimeout = d
	}
}

// WithCompression selects how saves compress the file.
func WithCompression(c storage.Compression) Option {
	return func(opts *options) {
		opts.compression = c
	}
}
