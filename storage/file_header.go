// Copyright 2026 The axisdb Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package storage

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/dgryski/go-farm"
)

const (
	magicHeader       = 0xC0FFEE1A
	fileFormatVersion = 1
	fileHeaderSize    = 32
)

type fileHeader struct {
	magic         uint32
	formatVersion uint32
	compression   Compression
	rawLen        uint64
	checksum      uint64
}

func newFileHeader(c Compression, rawLen int, stored []byte) *fileHeader {
	return &fileHeader{
		magic:         magicHeader,
		formatVersion: fileFormatVersion,
		compression:   c,
		rawLen:        uint64(rawLen),
		checksum:      farm.Hash64(stored),
	}
}

func (h *fileHeader) MarshalTo(buf []byte) error {
	if len(buf) < fileHeaderSize {
		return fmt.Errorf("buf too short: %d < %d", len(buf), fileHeaderSize)
	}
	buf = buf[:fileHeaderSize]
	clear(buf)

	binary.LittleEndian.PutUint32(buf[0:4], h.magic)
	binary.LittleEndian.PutUint32(buf[4:8], h.formatVersion)
	buf[8] = byte(h.compression)
	binary.LittleEndian.PutUint64(buf[16:24], h.rawLen)
	binary.LittleEndian.PutUint64(buf[24:32], h.checksum)
	return nil
}

func (h *fileHeader) WriteTo(w io.Writer) (n int64, err error) {
	var buf [fileHeaderSize]byte
	if err := h.MarshalTo(buf[:]); err != nil {
		return 0, err
	}
	if _, err = w.Write(buf[:]); err != nil {
		return 0, fmt.Errorf("write: %w", err)
	}
	return fileHeaderSize, nil
}

func (h *fileHeader) UnmarshalBytes(headerBytes []byte) error {
	if len(headerBytes) < fileHeaderSize {
		return fmt.Errorf("%w: header too short: %d < %d", ErrCorrupt, len(headerBytes), fileHeaderSize)
	}
	headerBytes = headerBytes[:fileHeaderSize]

	h.magic = binary.LittleEndian.Uint32(headerBytes[0:4])
	if h.magic != magicHeader {
		return fmt.Errorf("%w: bad magic number (%x) -- not an axisdb file", ErrCorrupt, h.magic)
	}

	h.formatVersion = binary.LittleEndian.Uint32(headerBytes[4:8])
	if h.formatVersion != fileFormatVersion {
		return fmt.Errorf("%w: can only read v%d files; found v%d", ErrCorrupt, fileFormatVersion, h.formatVersion)
	}

	h.compression = Compression(headerBytes[8])
	if !h.compression.valid() {
		return fmt.Errorf("%w: unknown compression %d", ErrCorrupt, headerBytes[8])
	}
	h.rawLen = binary.LittleEndian.Uint64(headerBytes[16:24])
	h.checksum = binary.LittleEndian.Uint64(headerBytes[24:32])
	return nil
}

// verify checks the stored payload against the header checksum.
func (h *fileHeader) verify(stored []byte) error {
	if sum := farm.Hash64(stored); sum != h.checksum {
		return fmt.Errorf("%w: checksum mismatch (%x != %x)", ErrCorrupt, sum, h.checksum)
	}
	return nil
}
