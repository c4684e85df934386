// Copyright 2026 The axisdb Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

// Command axisdb inspects and edits axisdb database files.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
)

const usage = `usage: axisdb [-v] <command> [arguments]

commands:
  stats FILE...                      print statistics for each file
  get FILE IDENTITY [DIMENSION...]   print a point, or some of its attributes
  put [-at N] FILE IDENTITY DIM=VALUE...
                                     insert or upsert a point
  rm FILE IDENTITY...                remove points
  dump FILE                          print every point
  gen [-n N] [-seed S] FILE          fill FILE with generated points

Identities and values are parsed as integers, floats, true/false, or text.
`

var errUsage = errors.New("bad usage")

func main() {
	err := run(context.Background(), os.Args[1:], os.Stdout, os.Stderr)
	if errors.Is(err, errUsage) {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	} else if err != nil {
		fmt.Fprintf(os.Stderr, "axisdb: %s\n", err)
		os.Exit(1)
	}
}

type command func(ctx context.Context, env *env, args []string) error

var commands = map[string]command{
	"stats": statsCmd,
	"get":   getCmd,
	"put":   putCmd,
	"rm":    rmCmd,
	"dump":  dumpCmd,
	"gen":   genCmd,
}

type env struct {
	stdout io.Writer
	logger *slog.Logger
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("axisdb", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	verbose := fs.Bool("v", false, "log progress to stderr")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}
	if fs.NArg() < 1 {
		return errUsage
	}
	cmd, ok := commands[fs.Arg(0)]
	if !ok {
		return fmt.Errorf("%w: unknown command %q", errUsage, fs.Arg(0))
	}

	level := slog.LevelWarn
	if *verbose {
		level = slog.LevelDebug
	}
	e := &env{
		stdout: stdout,
		logger: slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level})),
	}
	return cmd(ctx, e, fs.Args()[1:])
}
