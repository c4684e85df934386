// Copyright 2026 The axisdb Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package storage

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileHeader_RoundTrip(t *testing.T) {
	payload := []byte("some stored payload")
	origH := newFileHeader(CompressionZstd, 1234, payload)
	require.Equal(t, uint32(magicHeader), origH.magic)
	require.Equal(t, uint32(fileFormatVersion), origH.formatVersion)

	// this should be an error
	err := origH.MarshalTo(nil)
	assert.Error(t, err)

	var newH fileHeader
	headerBytes := make([]byte, fileHeaderSize)
	// missing magic number
	err = newH.UnmarshalBytes(headerBytes)
	assert.ErrorIs(t, err, ErrCorrupt)

	require.NoError(t, origH.MarshalTo(headerBytes))

	err = newH.UnmarshalBytes(nil)
	assert.ErrorIs(t, err, ErrCorrupt)

	require.NoError(t, newH.UnmarshalBytes(headerBytes))
	assert.Equal(t, origH, &newH)
	assert.NoError(t, newH.verify(payload))
	assert.ErrorIs(t, newH.verify([]byte("some stored payloaD")), ErrCorrupt)

	// reserved bytes stay zero
	assert.Equal(t, make([]byte, 7), headerBytes[9:16])

	// unknown versions are rejected
	origH.formatVersion = 666
	require.NoError(t, origH.MarshalTo(headerBytes))
	assert.ErrorIs(t, newH.UnmarshalBytes(headerBytes), ErrCorrupt)

	// as are unknown compression codes
	origH.formatVersion = fileFormatVersion
	origH.compression = 42
	require.NoError(t, origH.MarshalTo(headerBytes))
	assert.ErrorIs(t, newH.UnmarshalBytes(headerBytes), ErrCorrupt)
}

func TestFileHeader_WriteTo(t *testing.T) {
	h := newFileHeader(CompressionNone, 3, []byte("abc"))

	var buf bytes.Buffer
	n, err := h.WriteTo(&buf)
	require.NoError(t, err)
	require.Equal(t, int64(fileHeaderSize), n)
	require.Equal(t, fileHeaderSize, buf.Len())

	var newH fileHeader
	require.NoError(t, newH.UnmarshalBytes(buf.Bytes()))
	assert.Equal(t, h, &newH)
}
