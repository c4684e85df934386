// Copyright 2026 The axisdb Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package storage

import (
	"bytes"
	"fmt"
	"io"
	"sync"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Compression selects how the snapshot payload is stored.
type Compression uint8

const (
	CompressionNone Compression = iota
	CompressionGzip
	CompressionZstd
	// CompressionLZ4 uses lz4 block mode; incompressible payloads are
	// stored uncompressed.
	CompressionLZ4
)

func (c Compression) valid() bool {
	return c <= CompressionLZ4
}

func (c Compression) String() string {
	switch c {
	case CompressionNone:
		return "none"
	case CompressionGzip:
		return "gzip"
	case CompressionZstd:
		return "zstd"
	case CompressionLZ4:
		return "lz4"
	default:
		return fmt.Sprintf("Compression(%d)", uint8(c))
	}
}

// ParseCompression maps a name as printed by String back to a Compression.
func ParseCompression(s string) (Compression, error) {
	for c := CompressionNone; c <= CompressionLZ4; c++ {
		if c.String() == s {
			return c, nil
		}
	}
	return 0, fmt.Errorf("unknown compression %q", s)
}

// zstd encoders and decoders are safe for concurrent EncodeAll/DecodeAll.
var (
	zstdEncoder = sync.OnceValues(func() (*zstd.Encoder, error) {
		return zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	})
	zstdDecoder = sync.OnceValues(func() (*zstd.Decoder, error) {
		return zstd.NewReader(nil)
	})
)

// compress returns the stored form of raw and the compression actually
// applied, which differs from c only when lz4 finds raw incompressible.
func compress(c Compression, raw []byte) ([]byte, Compression, error) {
	switch c {
	case CompressionNone:
		return raw, CompressionNone, nil
	case CompressionGzip:
		var buf bytes.Buffer
		zw := gzip.NewWriter(&buf)
		if _, err := zw.Write(raw); err != nil {
			return nil, c, fmt.Errorf("gzip: %w", err)
		}
		if err := zw.Close(); err != nil {
			return nil, c, fmt.Errorf("gzip: %w", err)
		}
		return buf.Bytes(), c, nil
	case CompressionZstd:
		enc, err := zstdEncoder()
		if err != nil {
			return nil, c, fmt.Errorf("zstd.NewWriter: %w", err)
		}
		return enc.EncodeAll(raw, nil), c, nil
	case CompressionLZ4:
		dst := make([]byte, lz4.CompressBlockBound(len(raw)))
		n, err := lz4.CompressBlock(raw, dst, nil)
		if err != nil {
			return nil, c, fmt.Errorf("lz4: %w", err)
		}
		if n == 0 {
			return raw, CompressionNone, nil
		}
		return dst[:n], c, nil
	default:
		return nil, c, fmt.Errorf("unknown compression %d", uint8(c))
	}
}

const (
	// maxSizeHint caps preallocation driven by the untrusted header length.
	maxSizeHint = 64 << 20
	lz4MaxRatio = 256
)

func decompress(c Compression, stored []byte, rawLen uint64) ([]byte, error) {
	var (
		raw []byte
		err error
	)
	switch c {
	case CompressionNone:
		raw = stored
	case CompressionGzip:
		var zr *gzip.Reader
		if zr, err = gzip.NewReader(bytes.NewReader(stored)); err != nil {
			return nil, fmt.Errorf("%w: gzip: %v", ErrCorrupt, err)
		}
		// one byte of slack so an overlong stream is caught below
		raw, err = io.ReadAll(io.LimitReader(zr, int64(rawLen)+1))
		if err == nil {
			err = zr.Close()
		}
	case CompressionZstd:
		var dec *zstd.Decoder
		if dec, err = zstdDecoder(); err != nil {
			return nil, fmt.Errorf("zstd.NewReader: %w", err)
		}
		raw, err = dec.DecodeAll(stored, make([]byte, 0, min(rawLen, maxSizeHint)))
	case CompressionLZ4:
		if rawLen > uint64(len(stored))*lz4MaxRatio {
			return nil, fmt.Errorf("%w: lz4: implausible length %d for %d stored bytes", ErrCorrupt, rawLen, len(stored))
		}
		raw = make([]byte, rawLen)
		var n int
		n, err = lz4.UncompressBlock(stored, raw)
		raw = raw[:n]
	default:
		return nil, fmt.Errorf("%w: unknown compression %d", ErrCorrupt, uint8(c))
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCorrupt, c, err)
	}
	if uint64(len(raw)) != rawLen {
		return nil, fmt.Errorf("%w: %s: decompressed size mismatch (%d != %d)", ErrCorrupt, c, len(raw), rawLen)
	}
	return raw, nil
}
