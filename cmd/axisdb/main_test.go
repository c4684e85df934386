// Copyright 2026 The axisdb Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package main

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/bpowers/axisdb"
)

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	err := run(context.Background(), args, &stdout, &stderr)
	return stdout.String(), err
}

func TestCLI_Usage(t *testing.T) {
	for _, args := range [][]string{
		nil,
		{"frobnicate"},
		{"-bogus"},
		{"get", "only-a-file"},
		{"put", "db", "id", "no-equals-sign"},
		{"gen", "-compression", "brotli", "db"},
	} {
		_, err := runCLI(t, args...)
		require.ErrorIs(t, err, errUsage, "%q", args)
	}
}

func TestCLI_PutGetRm(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cli.axis")

	out, err := runCLI(t, "put", path, "Domas", "age=28", "city=Vilnius")
	require.NoError(t, err)
	require.Equal(t, "0\n", out)
	out, err = runCLI(t, "put", path, "Jonas", "age=28")
	require.NoError(t, err)
	require.Equal(t, "1\n", out)
	out, err = runCLI(t, "put", "-at", "0", path, "Ruta", "age=31.5")
	require.NoError(t, err)
	require.Equal(t, "0\n", out)

	out, err = runCLI(t, "get", path, "Domas")
	require.NoError(t, err)
	var p pointView
	require.NoError(t, yaml.Unmarshal([]byte(out), &p))
	require.Equal(t, 1, p.Coordinate)
	require.Equal(t, "Domas", p.Identity)
	require.Equal(t, map[string]any{"age": 28, "city": "Vilnius"}, p.Attributes)

	out, err = runCLI(t, "get", path, "Ruta", "age")
	require.NoError(t, err)
	require.Equal(t, "age: 31.5\n", out)

	_, err = runCLI(t, "get", path, "Nobody")
	require.ErrorIs(t, err, axisdb.ErrNotFound)

	_, err = runCLI(t, "rm", path, "Jonas", "Nobody")
	require.ErrorIs(t, err, axisdb.ErrNotFound)

	out, err = runCLI(t, "dump", path)
	require.NoError(t, err)
	var points []pointView
	require.NoError(t, yaml.Unmarshal([]byte(out), &points))
	require.Len(t, points, 2)
	require.Equal(t, "Ruta", points[0].Identity)
	require.Equal(t, "Domas", points[1].Identity)
}

func TestCLI_GenStats(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.axis")
	b := filepath.Join(dir, "b.axis")

	out, err := runCLI(t, "gen", "-n", "2500", "-seed", "7", a)
	require.NoError(t, err)
	require.Equal(t, "2500\n", out)
	_, err = runCLI(t, "gen", "-n", "10", "-compression", "zstd", b)
	require.NoError(t, err)

	out, err = runCLI(t, "stats", a)
	require.NoError(t, err)
	var one axisdb.Stats
	require.NoError(t, yaml.Unmarshal([]byte(out), &one))
	require.Equal(t, 2500, one.Points)
	require.Equal(t, 4, one.Dimensions)
	require.Equal(t, 16, one.DimensionValues["bucket"])
	require.Equal(t, 2, one.DimensionValues["even"])
	require.Equal(t, 2500, one.Metadata.TotalPoints)

	out, err = runCLI(t, "stats", a, b)
	require.NoError(t, err)
	var many []axisdb.Stats
	require.NoError(t, yaml.Unmarshal([]byte(out), &many))
	require.Len(t, many, 2)
	require.Equal(t, 2500, many[0].Points)
	require.Equal(t, 10, many[1].Points)

	_, err = runCLI(t, "stats", filepath.Join(dir, "missing.axis"))
	require.Error(t, err)
}
