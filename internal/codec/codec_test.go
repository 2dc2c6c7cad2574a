package codec

import (
	"bytes"
	"crypto/rand"
	"encoding/binary"
	"testing"

	"github.com/klauspost/compress/s2"
	"github.com/pierrec/lz4/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleData(t *testing.T) []byte {
	t.Helper()
	noise := make([]byte, 64*1024)
	_, err := rand.Read(noise)
	require.NoError(t, err)
	return append(bytes.Repeat([]byte("II*\x00 tiff strip "), 20000), noise...)
}

func TestRoundTripAllCodecs(t *testing.T) {
	data := sampleData(t)
	for _, name := range Names() {
		t.Run(name, func(t *testing.T) {
			c, err := Lookup(name)
			require.NoError(t, err)
			assert.Equal(t, name, c.Name())

			enc, err := c.Encode(data)
			require.NoError(t, err)
			assert.Less(t, len(enc), len(data))

			dec, err := c.Decode(enc)
			require.NoError(t, err)
			assert.True(t, bytes.Equal(data, dec))
		})
	}
}

func TestEmptyInput(t *testing.T) {
	for _, name := range Names() {
		t.Run(name, func(t *testing.T) {
			c, err := Lookup(name)
			require.NoError(t, err)
			enc, err := c.Encode(nil)
			require.NoError(t, err)
			dec, err := c.Decode(enc)
			require.NoError(t, err)
			assert.Empty(t, dec)
		})
	}
}

// Output of the snappy codec must be plain Snappy block format.
func TestSnappyIsBlockFormat(t *testing.T) {
	data := sampleData(t)
	c, err := Lookup("snappy")
	require.NoError(t, err)

	enc, err := c.Encode(data)
	require.NoError(t, err)

	n, err := s2.DecodedLen(enc)
	require.NoError(t, err)
	assert.Equal(t, len(data), n)

	dec, err := s2.Decode(nil, enc)
	require.NoError(t, err)
	assert.Equal(t, data, dec)
}

// The lz4 output is one raw block behind its uncompressed length.
func TestLZ4IsSingleBlock(t *testing.T) {
	data := sampleData(t)
	c, err := Lookup("lz4")
	require.NoError(t, err)

	enc, err := c.Encode(data)
	require.NoError(t, err)

	size, hdr := binary.Uvarint(enc)
	require.Positive(t, hdr)
	assert.Equal(t, uint64(len(data)), size)

	out := make([]byte, size)
	n, err := lz4.UncompressBlock(enc[hdr:], out)
	require.NoError(t, err)
	assert.Equal(t, len(data), n)
	assert.Equal(t, data, out)

	_, err = c.Decode(enc[:len(enc)/2])
	assert.Error(t, err, "truncated block")
}

func TestDecodeCorrupt(t *testing.T) {
	for _, name := range Names() {
		t.Run(name, func(t *testing.T) {
			c, err := Lookup(name)
			require.NoError(t, err)
			_, err = c.Decode([]byte{0xff, 0xff, 0xff, 0xff, 0xff, 0x00, 0x01})
			assert.Error(t, err)
		})
	}
}

func TestLookup(t *testing.T) {
	c, err := Lookup(" Snappy ")
	require.NoError(t, err)
	assert.Equal(t, ".snappy", c.Ext())

	_, err = Lookup("gzip")
	assert.Error(t, err)

	assert.Equal(t, []string{"lz4", "s2", "snappy", "zstd"}, Names())
}

func TestForPath(t *testing.T) {
	tests := map[string]string{
		"/out/test_01_00001.snappy": "snappy",
		"x.s2":                      "s2",
		"x.zst":                     "zstd",
		"x.lz4":                     "lz4",
	}
	for path, want := range tests {
		c, err := ForPath(path)
		require.NoError(t, err, path)
		assert.Equal(t, want, c.Name())
	}

	_, err := ForPath("x.tif")
	assert.Error(t, err)
}
