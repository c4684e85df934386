// Copyright 2026 The axisdb Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package filelock

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLock_Exclusive(t *testing.T) {
	path := filepath.Join(t.TempDir(), "db.lock")

	held := New(path)
	require.NoError(t, held.Lock(context.Background(), time.Millisecond))

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	other := New(path)
	err := other.Lock(ctx, 10*time.Millisecond)
	require.ErrorIs(t, err, ErrTimeout)

	require.NoError(t, held.Unlock())

	ctx2, cancel2 := context.WithTimeout(context.Background(), time.Second)
	defer cancel2()
	require.NoError(t, other.Lock(ctx2, 10*time.Millisecond))
	require.NoError(t, other.Unlock())
}

func TestLock_Canceled(t *testing.T) {
	path := filepath.Join(t.TempDir(), "db.lock")

	held := New(path)
	require.NoError(t, held.Lock(context.Background(), 0))
	defer held.Unlock()

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()
	err := New(path).Lock(ctx, 5*time.Millisecond)
	require.ErrorIs(t, err, context.Canceled)
}

func TestLock_ExpiredContextStillTriesOnce(t *testing.T) {
	path := filepath.Join(t.TempDir(), "db.lock")

	ctx, cancel := context.WithTimeout(context.Background(), 0)
	defer cancel()
	l := New(path)
	require.NoError(t, l.Lock(ctx, time.Millisecond))

	other := New(path)
	require.ErrorIs(t, other.Lock(ctx, time.Millisecond), ErrTimeout)
	require.NoError(t, l.Unlock())
}

func TestLock_Reacquire(t *testing.T) {
	path := filepath.Join(t.TempDir(), "db.lock")
	l := New(path)

	for i := 0; i < 3; i++ {
		require.NoError(t, l.Lock(context.Background(), 0))
		require.Error(t, l.Lock(context.Background(), 0))
		require.NoError(t, l.Unlock())
	}
	// unlocking twice is harmless
	require.NoError(t, l.Unlock())
	require.FileExists(t, path)
}
