// Copyright 2026 The axisdb Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"github.com/bpowers/axisdb"
	"github.com/bpowers/axisdb/value"
)

// openExisting refuses to conjure an empty database out of a typo.
func openExisting(path string, e *env) (*axisdb.DB, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, err
	}
	return axisdb.Open(path, axisdb.WithLogger(e.logger))
}

func writeYAML(w io.Writer, v any) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return err
	}
	return enc.Close()
}

// plain converts a Value to something yaml renders readably.
func plain(v value.Value) any {
	if v.Kind() == value.KindBytes {
		return v.String()
	}
	return v.Any()
}

type pointView struct {
	Coordinate int            `yaml:"coordinate"`
	Identity   any            `yaml:"identity"`
	Attributes map[string]any `yaml:"attributes,omitempty"`
}

func viewOf(p axisdb.Point) pointView {
	pv := pointView{Coordinate: p.Coordinate, Identity: plain(p.Identity)}
	if len(p.Attributes) > 0 {
		pv.Attributes = make(map[string]any, len(p.Attributes))
		for name, v := range p.Attributes {
			pv.Attributes[name] = plain(v)
		}
	}
	return pv
}

func statsCmd(ctx context.Context, e *env, args []string) error {
	if len(args) < 1 {
		return errUsage
	}

	stats := make([]axisdb.Stats, len(args))
	var g errgroup.Group
	g.SetLimit(4)
	for i, path := range args {
		g.Go(func() error {
			db, err := openExisting(path, e)
			if err != nil {
				return err
			}
			stats[i] = db.Stats()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	if len(stats) == 1 {
		return writeYAML(e.stdout, stats[0])
	}
	return writeYAML(e.stdout, stats)
}

func getCmd(ctx context.Context, e *env, args []string) error {
	if len(args) < 2 {
		return errUsage
	}
	db, err := openExisting(args[0], e)
	if err != nil {
		return err
	}
	identity := value.Parse(args[1])

	p, ok := db.Point(identity)
	if !ok {
		return fmt.Errorf("%s: %w", identity, axisdb.ErrNotFound)
	}
	if len(args) == 2 {
		return writeYAML(e.stdout, viewOf(p))
	}

	attrs := make(map[string]any, len(args)-2)
	for _, dim := range args[2:] {
		v, ok := db.Lookup(identity, dim)
		if !ok {
			return fmt.Errorf("%s/%s: %w", identity, dim, axisdb.ErrNotFound)
		}
		attrs[dim] = plain(v)
	}
	return writeYAML(e.stdout, attrs)
}

func parseAttributes(args []string) (axisdb.Attributes, error) {
	attrs := make(axisdb.Attributes, len(args))
	for _, arg := range args {
		name, raw, ok := strings.Cut(arg, "=")
		if !ok {
			return nil, fmt.Errorf("%w: attribute %q is not DIM=VALUE", errUsage, arg)
		}
		attrs[name] = value.Parse(raw)
	}
	return attrs, nil
}

func putCmd(ctx context.Context, e *env, args []string) error {
	fs := flag.NewFlagSet("put", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	at := fs.Int("at", -1, "insert at this coordinate instead of appending")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}
	if fs.NArg() < 2 {
		return errUsage
	}
	path := fs.Arg(0)
	identity := value.Parse(fs.Arg(1))
	attrs, err := parseAttributes(fs.Args()[2:])
	if err != nil {
		return err
	}

	db, err := axisdb.Open(path, axisdb.WithLogger(e.logger))
	if err != nil {
		return err
	}
	var coord int
	if *at >= 0 {
		coord, err = db.InsertAt(identity, attrs, *at)
	} else {
		coord, err = db.Insert(identity, attrs)
	}
	if err != nil {
		return err
	}
	if err := db.Save(ctx); err != nil {
		return err
	}
	_, err = fmt.Fprintf(e.stdout, "%d\n", coord)
	return err
}

func rmCmd(ctx context.Context, e *env, args []string) error {
	if len(args) < 2 {
		return errUsage
	}
	db, err := openExisting(args[0], e)
	if err != nil {
		return err
	}
	var missing []string
	for _, arg := range args[1:] {
		if !db.Remove(value.Parse(arg)) {
			missing = append(missing, arg)
		}
	}
	if err := db.Save(ctx); err != nil {
		return err
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", axisdb.ErrNotFound, strings.Join(missing, ", "))
	}
	return nil
}

func dumpCmd(ctx context.Context, e *env, args []string) error {
	if len(args) != 1 {
		return errUsage
	}
	db, err := openExisting(args[0], e)
	if err != nil {
		return err
	}
	points := db.Points()
	views := make([]pointView, len(points))
	for i, p := range points {
		views[i] = viewOf(p)
	}
	return writeYAML(e.stdout, views)
}
