// Copyright 2026 The axisdb Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

// Package filelock provides an advisory, exclusive, cross-process lock
// backed by flock(2) on a sidecar file.
package filelock

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"golang.org/x/sys/unix"
	"golang.org/x/time/rate"
)

var ErrTimeout = errors.New("timed out acquiring file lock")

const defaultRetry = 50 * time.Millisecond

// Lock guards one lock file. The lock is held per open file, so two Lock
// values for the same path exclude each other even within one process.
type Lock struct {
	path string
	f    *os.File
}

func New(path string) *Lock {
	return &Lock{path: path}
}

func (l *Lock) Path() string {
	return l.path
}

// Lock blocks until the exclusive lock is held, retrying every retry
// interval. One attempt is always made, even if ctx is already done. It
// returns ErrTimeout once ctx's deadline cannot be met and the context
// error if ctx is canceled.
func (l *Lock) Lock(ctx context.Context, retry time.Duration) error {
	if l.f != nil {
		return fmt.Errorf("filelock: %s already held", l.path)
	}
	if retry <= 0 {
		retry = defaultRetry
	}

	f, err := os.OpenFile(l.path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return fmt.Errorf("filelock: open: %w", err)
	}

	limiter := rate.NewLimiter(rate.Every(retry), 1)
	for {
		err := unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB)
		if err == nil {
			l.f = f
			return nil
		}
		if !errors.Is(err, unix.EWOULDBLOCK) && !errors.Is(err, unix.EINTR) {
			_ = f.Close()
			return fmt.Errorf("filelock: flock: %w", err)
		}

		if err := limiter.Wait(ctx); err != nil {
			_ = f.Close()
			if errors.Is(ctx.Err(), context.Canceled) {
				return ctx.Err()
			}
			return fmt.Errorf("%w: %s", ErrTimeout, l.path)
		}
	}
}

// Unlock releases the lock. The lock file itself is left in place.
func (l *Lock) Unlock() error {
	if l.f == nil {
		return nil
	}
	f := l.f
	l.f = nil
	if err := unix.Flock(int(f.Fd()), unix.LOCK_UN); err != nil {
		_ = f.Close()
		return fmt.Errorf("filelock: unlock: %w", err)
	}
	return f.Close()
}
