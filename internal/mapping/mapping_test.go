// Copyright 2026 The axisdb Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package mapping

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/bpowers/axisdb/internal/intern"
)

func bindings(m *Mapping) map[int]intern.ID {
	out := make(map[int]intern.ID)
	for c, id := range m.All() {
		out[c] = id
	}
	return out
}

func TestMapping_SetGet(t *testing.T) {
	m := New()
	m.Set(3, 1)
	m.Set(0, 2)

	id, ok := m.Get(3)
	require.True(t, ok)
	require.Equal(t, intern.ID(1), id)

	_, ok = m.Get(1)
	require.False(t, ok)
	_, ok = m.Get(-1)
	require.False(t, ok)

	// overwrite
	m.Set(3, 7)
	id, _ = m.Get(3)
	require.Equal(t, intern.ID(7), id)
	require.Equal(t, 2, m.Len())
}

func TestMapping_Delete(t *testing.T) {
	m := New()
	m.Set(1, 1)
	require.True(t, m.Delete(1))
	require.False(t, m.Delete(1))
	require.False(t, m.Delete(-3))
	require.Zero(t, m.Len())
	require.Empty(t, m.Export())
}

func TestMapping_AllIsOrdered(t *testing.T) {
	m := New()
	for _, c := range []int{9, 2, 5, 0, 1000000} {
		m.Set(c, intern.ID(c+1))
	}
	var coords []int
	for c := range m.All() {
		coords = append(coords, c)
	}
	require.Equal(t, []int{0, 2, 5, 9, 1000000}, coords)
}

func TestMapping_Shift(t *testing.T) {
	m := New()
	m.Set(0, 10)
	m.Set(1, 11)
	m.Set(2, 12)
	m.Set(4, 14)

	require.NoError(t, m.Shift(1, 1))
	require.Equal(t, map[int]intern.ID{0: 10, 2: 11, 3: 12, 5: 14}, bindings(m))

	// nothing at or past 100
	require.NoError(t, m.Shift(100, 1))
	require.Equal(t, 4, m.Len())

	require.NoError(t, m.Shift(0, 0))
	require.Equal(t, map[int]intern.ID{0: 10, 2: 11, 3: 12, 5: 14}, bindings(m))

	require.NoError(t, m.Shift(2, -1))
	require.Equal(t, map[int]intern.ID{0: 10, 1: 11, 2: 12, 4: 14}, bindings(m))

	require.ErrorIs(t, m.Shift(0, -1), ErrShift)
	require.Equal(t, 4, m.Len())
}

func TestMapping_Replace(t *testing.T) {
	m := New()
	m.Set(0, 1)
	m.Set(1, 2)
	m.Set(2, 1)

	require.Equal(t, 2, m.Replace(1, 3))
	require.Equal(t, map[int]intern.ID{0: 3, 1: 2, 2: 3}, bindings(m))
	require.Zero(t, m.Replace(99, 4))
}

func TestMapping_ExportRestore(t *testing.T) {
	m := New()
	m.Set(5, 1)
	m.Set(2, 2)
	m.Set(7, 1)

	entries := m.Export()
	require.Equal(t, []Entry{{2, 2}, {5, 1}, {7, 1}}, entries)

	out, err := Restore(entries)
	require.NoError(t, err)
	require.Equal(t, bindings(m), bindings(out))

	for name, bad := range map[string][]Entry{
		"negative":  {{-1, 1}},
		"zero id":   {{0, 0}},
		"duplicate": {{1, 1}, {1, 2}},
	} {
		_, err := Restore(bad)
		require.ErrorIs(t, err, ErrCorrupt, name)
	}
}
