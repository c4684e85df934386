// Copyright 2026 The axisdb Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package main

import (
	"context"
	"crypto/hmac"
	crand "crypto/rand"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"flag"
	"fmt"
	"io"
	"math/rand/v2"

	"github.com/bpowers/axisdb"
	"github.com/bpowers/axisdb/storage"
	"github.com/bpowers/axisdb/value"
)

const (
	prefix    = "pref_"
	suffixLen = 16
	hmacKey   = "d259c7f656caf7f1"
	genBatch  = 1000
)

func newRand(seed uint64) *rand.Rand {
	if seed == 0 {
		var seedBytes [8]byte
		_, _ = crand.Read(seedBytes[:])
		seed = binary.LittleEndian.Uint64(seedBytes[:])
	}
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

func genCmd(ctx context.Context, e *env, args []string) error {
	fs := flag.NewFlagSet("gen", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	n := fs.Int("n", 10000, "number of points")
	seed := fs.Uint64("seed", 0, "random seed (0 picks one)")
	compression := fs.String("compression", storage.CompressionGzip.String(), "none, gzip, zstd or lz4")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}
	if fs.NArg() != 1 || *n < 0 {
		return errUsage
	}
	c, err := storage.ParseCompression(*compression)
	if err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}

	db, err := axisdb.Open(fs.Arg(0), axisdb.WithLogger(e.logger), axisdb.WithCompression(c))
	if err != nil {
		return err
	}

	rng := newRand(*seed)
	h := hmac.New(sha256.New, []byte(hmacKey))
	batch := make([]axisdb.Record, 0, genBatch)
	flush := func() error {
		if _, err := db.BatchInsert(batch); err != nil {
			return err
		}
		batch = batch[:0]
		return nil
	}

	for i := 0; i < *n; i++ {
		var buf [suffixLen / 2]byte
		for j := range buf {
			buf[j] = byte(rng.UintN(256))
		}
		label := fmt.Sprintf("%s%x", prefix, buf)
		h.Reset()
		h.Write([]byte(label))

		batch = append(batch, axisdb.Record{
			Identity: value.Text(hex.EncodeToString(h.Sum(nil))),
			Attributes: axisdb.Attributes{
				"label":  value.Text(label),
				"bucket": value.Int(int64(i % 16)),
				"score":  value.Float(rng.Float64()),
				"even":   value.Bool(i%2 == 0),
			},
		})
		if len(batch) == genBatch {
			if err := flush(); err != nil {
				return err
			}
		}
	}
	if err := flush(); err != nil {
		return err
	}
	if err := db.Save(ctx); err != nil {
		return err
	}

	e.logger.Info("generated points", "path", db.Path(), "points", *n)
	_, err = fmt.Fprintf(e.stdout, "%d\n", db.Len())
	return err
}
