package compression

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/pierrec/lz4"
)

// Frame markers written before every lz4 value.
const (
	frameRaw byte = 0x00
	frameLZ4 byte = 0x01
)

// maxDecompressedSize bounds the length header so corrupt data cannot
// trigger a huge allocation.
const maxDecompressedSize = 64 << 20

var ErrCorruptFrame = errors.New("corrupt compressed frame")

// NoCompressor implements a pass-through compressor that doesn't compress data.
type NoCompressor struct{}

// Name returns the name of the compressor.
func (c *NoCompressor) Name() string {
	return "none"
}

// Compress returns a copy of data.
func (c *NoCompressor) Compress(data []byte) ([]byte, error) {
	return append([]byte(nil), data...), nil
}

// Decompress returns a copy of data.
func (c *NoCompressor) Decompress(data []byte) ([]byte, error) {
	return append([]byte(nil), data...), nil
}

// LZ4Compressor implements LZ4 block compression. Each value is framed
// as a marker byte and the uvarint decompressed length; values that do
// not shrink are stored raw.
type LZ4Compressor struct{}

// Name returns the name of the compressor.
func (c *LZ4Compressor) Name() string {
	return "lz4"
}

// Compress compresses data using LZ4.
func (c *LZ4Compressor) Compress(data []byte) ([]byte, error) {
	header := make([]byte, 1+binary.MaxVarintLen64)
	n := binary.PutUvarint(header[1:], uint64(len(data)))
	header = header[:1+n]

	compressed := make([]byte, lz4.CompressBlockBound(len(data)))
	size, err := lz4.CompressBlock(data, compressed, nil)
	if err != nil {
		return nil, fmt.Errorf("lz4 compression failed: %w", err)
	}

	// CompressBlock reports 0 for incompressible input
	if size == 0 || size >= len(data) {
		header[0] = frameRaw
		return append(header, data...), nil
	}

	header[0] = frameLZ4
	return append(header, compressed[:size]...), nil
}

// Decompress decompresses a frame written by Compress.
func (c *LZ4Compressor) Decompress(data []byte) ([]byte, error) {
	if len(data) < 2 {
		return nil, ErrCorruptFrame
	}

	length, n := binary.Uvarint(data[1:])
	if n <= 0 || length > maxDecompressedSize {
		return nil, ErrCorruptFrame
	}
	body := data[1+n:]

	switch data[0] {
	case frameRaw:
		if uint64(len(body)) != length {
			return nil, ErrCorruptFrame
		}
		return append([]byte(nil), body...), nil
	case frameLZ4:
		out := make([]byte, length)
		size, err := lz4.UncompressBlock(body, out)
		if err != nil {
			return nil, fmt.Errorf("lz4 decompression failed: %w", err)
		}
		if uint64(size) != length {
			return nil, ErrCorruptFrame
		}
		return out, nil
	default:
		return nil, ErrCorruptFrame
	}
}
