// Package codec compresses a whole container buffer in one block.
package codec

import (
	"encoding/binary"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/klauspost/compress/s2"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// DefaultName is the codec used when none is configured.
const DefaultName = "snappy"

// Codec turns a container buffer into a single compressed blob and back.
type Codec interface {
	// Name is the configuration key ("snappy", "s2", "zstd", "lz4").
	Name() string
	// Ext is the output file extension including the dot.
	Ext() string
	Encode(src []byte) ([]byte, error)
	Decode(src []byte) ([]byte, error)
}

var registry = map[string]Codec{
	"snappy": snappyCodec{},
	"s2":     s2Codec{},
	"zstd":   newZstdCodec(),
	"lz4":    lz4Codec{},
}

// Lookup returns the codec registered under name.
//
//nolint:ireturn // registry lookup returns the interface
func Lookup(name string) (Codec, error) {
	c, ok := registry[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return nil, fmt.Errorf("unknown codec %q (have %s)", name, strings.Join(Names(), ", "))
	}
	return c, nil
}

// ForPath picks the codec whose extension matches path.
//
//nolint:ireturn // registry lookup returns the interface
func ForPath(path string) (Codec, error) {
	ext := filepath.Ext(path)
	for _, c := range registry {
		if c.Ext() == ext {
			return c, nil
		}
	}
	return nil, fmt.Errorf("no codec for extension %q", ext)
}

// Names lists registered codec names in sorted order.
func Names() []string {
	names := make([]string, 0, len(registry))
	for n := range registry {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// snappyCodec writes the raw Snappy block format, readable by any Snappy
// decoder. S2's snappy-compatible encoder is considerably faster than the
// reference implementation.
type snappyCodec struct{}

func (snappyCodec) Name() string { return "snappy" }
func (snappyCodec) Ext() string  { return ".snappy" }

func (snappyCodec) Encode(src []byte) ([]byte, error) {
	if len(src) > s2.MaxBlockSize {
		return nil, fmt.Errorf("snappy: %d bytes exceeds block limit", len(src))
	}
	return s2.EncodeSnappy(nil, src), nil
}

func (snappyCodec) Decode(src []byte) ([]byte, error) {
	out, err := s2.Decode(nil, src)
	if err != nil {
		return nil, fmt.Errorf("snappy decode: %w", err)
	}
	return out, nil
}

type s2Codec struct{}

func (s2Codec) Name() string { return "s2" }
func (s2Codec) Ext() string  { return ".s2" }

func (s2Codec) Encode(src []byte) ([]byte, error) {
	if len(src) > s2.MaxBlockSize {
		return nil, fmt.Errorf("s2: %d bytes exceeds block limit", len(src))
	}
	return s2.Encode(nil, src), nil
}

func (s2Codec) Decode(src []byte) ([]byte, error) {
	out, err := s2.Decode(nil, src)
	if err != nil {
		return nil, fmt.Errorf("s2 decode: %w", err)
	}
	return out, nil
}

// zstdCodec shares one encoder and decoder; EncodeAll and DecodeAll are
// safe for concurrent use.
type zstdCodec struct {
	enc *zstd.Encoder
	dec *zstd.Decoder
}

func newZstdCodec() *zstdCodec {
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		panic(fmt.Sprintf("zstd encoder: %v", err))
	}
	dec, err := zstd.NewReader(nil, zstd.WithDecoderConcurrency(0))
	if err != nil {
		panic(fmt.Sprintf("zstd decoder: %v", err))
	}
	return &zstdCodec{enc: enc, dec: dec}
}

func (*zstdCodec) Name() string { return "zstd" }
func (*zstdCodec) Ext() string  { return ".zst" }

func (c *zstdCodec) Encode(src []byte) ([]byte, error) {
	return c.enc.EncodeAll(src, make([]byte, 0, len(src)/2)), nil
}

func (c *zstdCodec) Decode(src []byte) ([]byte, error) {
	out, err := c.dec.DecodeAll(src, nil)
	if err != nil {
		return nil, fmt.Errorf("zstd decode: %w", err)
	}
	return out, nil
}

// lz4Codec writes one raw LZ4 block behind a uvarint holding the
// uncompressed length. The block format carries no length of its own.
type lz4Codec struct{}

// maxLZ4Ratio bounds the expansion of a valid block, so a corrupt length
// prefix cannot force a huge allocation.
const maxLZ4Ratio = 255

func (lz4Codec) Name() string { return "lz4" }
func (lz4Codec) Ext() string  { return ".lz4" }

func (lz4Codec) Encode(src []byte) ([]byte, error) {
	if len(src) > s2.MaxBlockSize {
		return nil, fmt.Errorf("lz4: %d bytes exceeds block limit", len(src))
	}
	out := make([]byte, binary.MaxVarintLen64+lz4.CompressBlockBound(len(src)))
	hdr := binary.PutUvarint(out, uint64(len(src)))
	if len(src) == 0 {
		return out[:hdr], nil
	}
	n, err := lz4.CompressBlock(src, out[hdr:], nil)
	if err != nil {
		return nil, fmt.Errorf("lz4 encode: %w", err)
	}
	return out[:hdr+n], nil
}

func (lz4Codec) Decode(src []byte) ([]byte, error) {
	size, hdr := binary.Uvarint(src)
	if hdr <= 0 {
		return nil, errors.New("lz4 decode: bad length prefix")
	}
	body := src[hdr:]
	if size > uint64(len(body))*maxLZ4Ratio {
		return nil, fmt.Errorf("lz4 decode: length %d too large for %d byte block", size, len(body))
	}
	out := make([]byte, size)
	if size == 0 {
		return out, nil
	}
	n, err := lz4.UncompressBlock(body, out)
	if err != nil {
		return nil, fmt.Errorf("lz4 decode: %w", err)
	}
	if uint64(n) != size {
		return nil, fmt.Errorf("lz4 decode: got %d bytes, want %d", n, size)
	}
	return out, nil
}
