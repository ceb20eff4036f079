package compression

import (
	"bytes"
	"crypto/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAvailable(t *testing.T) {
	assert.Equal(t, []string{"lz4", "none"}, Available())
	assert.True(t, IsAvailable("lz4"))
	assert.False(t, IsAvailable("zstd"))

	_, err := Get("zstd")
	assert.Error(t, err)
}

func TestLZ4(t *testing.T) {
	c, err := Get("lz4")
	require.NoError(t, err)

	random := make([]byte, 512)
	_, err = rand.Read(random)
	require.NoError(t, err)

	tests := []struct {
		name string
		data []byte
	}{
		{"empty", []byte{}},
		{"short", []byte("abc")},
		{"repetitive", bytes.Repeat([]byte("escrow"), 200)},
		{"random", random},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			packed, err := c.Compress(tc.data)
			require.NoError(t, err)

			unpacked, err := c.Decompress(packed)
			require.NoError(t, err)
			assert.Equal(t, len(tc.data), len(unpacked))
			assert.True(t, bytes.Equal(tc.data, unpacked))
		})
	}
}

func TestLZ4Shrinks(t *testing.T) {
	c := &LZ4Compressor{}
	data := bytes.Repeat([]byte{0x42}, 4096)

	packed, err := c.Compress(data)
	require.NoError(t, err)
	assert.Less(t, len(packed), len(data))
	assert.Equal(t, frameLZ4, packed[0])
}

func TestLZ4RejectsCorrupt(t *testing.T) {
	c := &LZ4Compressor{}

	for _, data := range [][]byte{nil, {0x01}, {0x07, 0x03, 'a', 'b', 'c'}, {0x00, 0x05, 'a'}} {
		_, err := c.Decompress(data)
		assert.Error(t, err)
	}
}
