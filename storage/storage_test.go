// Copyright 2026 The axisdb Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package storage

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bpowers/axisdb/internal/axis"
	"github.com/bpowers/axisdb/internal/filelock"
	"github.com/bpowers/axisdb/internal/intern"
	"github.com/bpowers/axisdb/internal/mapping"
	"github.com/bpowers/axisdb/value"
)

func sampleSnapshot(t *testing.T) *Snapshot {
	t.Helper()

	a := axis.New()
	a.Add(value.Text("Domas"))
	a.Add(value.Int(7))
	a.Add(value.Bytes([]byte{0, 1, 2}))
	a.Add(value.Float(math.NaN()))
	_, ok := a.Remove(value.Int(7))
	require.True(t, ok)
	slots, index := a.Export()

	ages := intern.New()
	age28 := ages.Add(value.Int(28))
	ageF := ages.Add(value.Float(1.5))
	ageM := mapping.New()
	ageM.Set(0, age28)
	ageM.Set(2, ageF)
	ageM.Set(3, age28)

	cities := intern.New()
	vilnius := cities.Add(value.Text("Vilnius"))
	cities.Add(value.Bool(true))
	cityM := mapping.New()
	cityM.Set(2, vilnius)

	return &Snapshot{
		Slots: slots,
		Index: index,
		Dimensions: []Dimension{
			{Name: "city", Values: cities.Export(), NextID: cities.Next(), Mapping: cityM.Export()},
			{Name: "age", Values: ages.Export(), NextID: ages.Next(), Mapping: ageM.Export()},
		},
	}
}

func reverseOf(entries []intern.Entry) map[value.Value]intern.ID {
	out := make(map[value.Value]intern.ID, len(entries))
	for _, e := range entries {
		out[e.Value] = e.ID
	}
	return out
}

func requireSameState(t *testing.T, want, got *Snapshot) {
	t.Helper()
	require.Equal(t, want.Slots, got.Slots)
	require.Equal(t, want.Index, got.Index)
	require.Len(t, got.Dimensions, len(want.Dimensions))
	for i, d := range want.Dimensions {
		g := got.Dimensions[i]
		require.Equal(t, d.Name, g.Name)
		require.Equal(t, d.Values, g.Values)
		require.Equal(t, reverseOf(d.Values), g.Reverse)
		require.Equal(t, d.NextID, g.NextID)
		require.Equal(t, d.Mapping, g.Mapping)
	}
}

func TestStorage_RoundTrip(t *testing.T) {
	for _, c := range []Compression{CompressionNone, CompressionGzip, CompressionZstd, CompressionLZ4} {
		t.Run(c.String(), func(t *testing.T) {
			ctx := context.Background()
			path := filepath.Join(t.TempDir(), "nested", "db.axis")
			s, err := New(path, WithCompression(c))
			require.NoError(t, err)

			want := sampleSnapshot(t)
			require.NoError(t, s.Save(ctx, want))
			require.True(t, s.Exists())
			require.Greater(t, s.Size(), int64(fileHeaderSize))

			// a fresh handle sees the same state
			s2, err := New(path)
			require.NoError(t, err)
			got, err := s2.Load(ctx)
			require.NoError(t, err)
			requireSameState(t, want, got)

			// Save ignores and does not modify the caller's metadata
			require.Zero(t, want.Metadata)
			m1, m2 := s.Metadata(), s2.Metadata()
			assert.Equal(t, m1.DatabaseID, m2.DatabaseID)
			assert.Equal(t, m1.TotalPoints, m2.TotalPoints)
			assert.True(t, m1.LastModified.Equal(m2.LastModified))
		})
	}
}

func TestStorage_Deterministic(t *testing.T) {
	snap := sampleSnapshot(t)
	snap.Metadata = Metadata{Version: Version, FormatVersion: fileFormatVersion, DatabaseID: "x"}

	a, err := encodeSnapshot(snap)
	require.NoError(t, err)
	b, err := encodeSnapshot(snap)
	require.NoError(t, err)
	require.Equal(t, a, b)

	decoded, err := decodeSnapshot(a)
	require.NoError(t, err)
	require.Equal(t, snap.Metadata, decoded.Metadata)
	requireSameState(t, snap, decoded)
}

func TestStorage_Metadata(t *testing.T) {
	ctx := context.Background()
	s, err := New(filepath.Join(t.TempDir(), "db.axis"))
	require.NoError(t, err)

	m := s.Metadata()
	require.Empty(t, m.DatabaseID)
	require.True(t, m.CreatedAt.IsZero())

	snap := sampleSnapshot(t)
	require.NoError(t, s.Save(ctx, snap))
	first := s.Metadata()
	_, err = uuid.Parse(first.DatabaseID)
	require.NoError(t, err)
	require.Equal(t, 3, first.TotalPoints)
	require.Equal(t, 2, first.TotalDimensions)
	require.Equal(t, Version, first.Version)
	require.Equal(t, fileFormatVersion, first.FormatVersion)
	require.False(t, first.CreatedAt.IsZero())

	time.Sleep(2 * time.Millisecond)
	snap.Dimensions = snap.Dimensions[:1]
	require.NoError(t, s.Save(ctx, snap))
	second := s.Metadata()
	require.Equal(t, first.DatabaseID, second.DatabaseID)
	require.True(t, first.CreatedAt.Equal(second.CreatedAt))
	require.True(t, second.LastModified.After(first.LastModified))
	require.Equal(t, 1, second.TotalDimensions)

	// metadata survives a reload through a fresh handle
	s2, err := New(s.Path())
	require.NoError(t, err)
	_, err = s2.Load(ctx)
	require.NoError(t, err)
	loaded := s2.Metadata()
	require.Equal(t, second.DatabaseID, loaded.DatabaseID)
	require.True(t, second.CreatedAt.Equal(loaded.CreatedAt))
	require.True(t, second.LastModified.Equal(loaded.LastModified))
}

func TestStorage_Missing(t *testing.T) {
	s, err := New(filepath.Join(t.TempDir(), "db.axis"))
	require.NoError(t, err)

	require.False(t, s.Exists())
	require.Zero(t, s.Size())
	_, err = s.Load(context.Background())
	require.ErrorIs(t, err, ErrNotExist)
	require.NoError(t, s.Delete(context.Background()))
}

func TestStorage_Delete(t *testing.T) {
	ctx := context.Background()
	s, err := New(filepath.Join(t.TempDir(), "db.axis"))
	require.NoError(t, err)
	require.NoError(t, s.Save(ctx, sampleSnapshot(t)))
	require.NotEmpty(t, s.Metadata().DatabaseID)

	require.NoError(t, s.Delete(ctx))
	require.False(t, s.Exists())
	require.Empty(t, s.Metadata().DatabaseID)
}

func TestStorage_Corruption(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "db.axis")
	s, err := New(path)
	require.NoError(t, err)
	require.NoError(t, s.Save(ctx, sampleSnapshot(t)))

	orig, err := os.ReadFile(path)
	require.NoError(t, err)

	corruptions := map[string]func([]byte) []byte{
		"truncated header": func(b []byte) []byte { return b[:fileHeaderSize-1] },
		"truncated payload": func(b []byte) []byte {
			return b[:len(b)-1]
		},
		"bad magic": func(b []byte) []byte {
			b[0] ^= 0xff
			return b
		},
		"flipped payload bit": func(b []byte) []byte {
			b[fileHeaderSize+3] ^= 0x01
			return b
		},
		"bad compression": func(b []byte) []byte {
			b[8] = 9
			return b
		},
	}
	for name, corrupt := range corruptions {
		t.Run(name, func(t *testing.T) {
			data := corrupt(append([]byte(nil), orig...))
			require.NoError(t, os.WriteFile(path, data, 0o644))
			_, err := s.Load(ctx)
			require.ErrorIs(t, err, ErrCorrupt)
		})
	}
}

func TestStorage_DanglingReference(t *testing.T) {
	ctx := context.Background()
	s, err := New(filepath.Join(t.TempDir(), "db.axis"))
	require.NoError(t, err)

	// coordinate 1 was removed
	snap := sampleSnapshot(t)
	snap.Dimensions[0].Mapping = append(snap.Dimensions[0].Mapping, mapping.Entry{Coordinate: 1, ID: 1})
	require.NoError(t, s.Save(ctx, snap))
	_, err = s.Load(ctx)
	require.ErrorIs(t, err, ErrCorrupt)

	snap = sampleSnapshot(t)
	snap.Dimensions[1].Mapping = []mapping.Entry{{Coordinate: 0, ID: 99}}
	require.NoError(t, s.Save(ctx, snap))
	_, err = s.Load(ctx)
	require.ErrorIs(t, err, ErrCorrupt)

	// a missing next_id decodes as zero
	snap = sampleSnapshot(t)
	snap.Dimensions[0].NextID = 0
	require.NoError(t, s.Save(ctx, snap))
	_, err = s.Load(ctx)
	require.ErrorIs(t, err, ErrCorrupt)
}

func TestStorage_ZeroLockTimeout(t *testing.T) {
	ctx := context.Background()
	s, err := New(filepath.Join(t.TempDir(), "db.axis"), WithLockTimeout(0))
	require.NoError(t, err)

	require.NoError(t, s.Save(ctx, sampleSnapshot(t)))
	_, err = s.Load(ctx)
	require.NoError(t, err)
}

func TestStorage_LockTimeout(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "db.axis")
	s, err := New(path, WithLockTimeout(50*time.Millisecond), WithRetryInterval(5*time.Millisecond))
	require.NoError(t, err)
	require.NoError(t, s.Save(ctx, sampleSnapshot(t)))
	before, err := os.ReadFile(path)
	require.NoError(t, err)

	held := filelock.New(path + ".lock")
	require.NoError(t, held.Lock(ctx, time.Millisecond))

	_, err = s.Load(ctx)
	require.ErrorIs(t, err, ErrLockTimeout)

	meta := s.Metadata()
	err = s.Save(ctx, &Snapshot{})
	require.ErrorIs(t, err, ErrLockTimeout)
	// a failed save leaves both the file and the metadata alone
	require.Equal(t, meta, s.Metadata())
	after, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, before, after)

	require.NoError(t, held.Unlock())
	_, err = s.Load(ctx)
	require.NoError(t, err)
}

func TestStorage_Async(t *testing.T) {
	ctx := context.Background()
	s, err := New(filepath.Join(t.TempDir(), "db.axis"), WithCompression(CompressionZstd))
	require.NoError(t, err)

	want := sampleSnapshot(t)
	require.NoError(t, <-s.SaveAsync(ctx, want))

	res := <-s.LoadAsync(ctx)
	require.NoError(t, res.Err)
	requireSameState(t, want, res.Snapshot)
}

func TestStorage_EmptySnapshot(t *testing.T) {
	ctx := context.Background()
	s, err := New(filepath.Join(t.TempDir(), "db.axis"), WithCompression(CompressionLZ4))
	require.NoError(t, err)
	require.NoError(t, s.Save(ctx, &Snapshot{}))

	got, err := s.Load(ctx)
	require.NoError(t, err)
	require.Empty(t, got.Slots)
	require.Empty(t, got.Index)
	require.Empty(t, got.Dimensions)
	require.Zero(t, s.Metadata().TotalPoints)
}

func TestParseCompression(t *testing.T) {
	for c := CompressionNone; c <= CompressionLZ4; c++ {
		got, err := ParseCompression(c.String())
		require.NoError(t, err)
		require.Equal(t, c, got)
	}
	_, err := ParseCompression("brotli")
	require.Error(t, err)

	_, err = New("x", WithCompression(Compression(7)))
	require.Error(t, err)
}
