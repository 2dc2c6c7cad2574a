// Package tarball builds uncompressed ustar containers in memory.
//
// The layout is fixed-record: one 512-byte header per member, the member
// bytes padded with zeros to the next 512-byte boundary, and two all-zero
// blocks as the terminator. Any POSIX tar reader can read the result.
package tarball

import (
	"errors"
	"fmt"
	"strconv"
	"time"
)

// BlockSize is the tar record size.
const BlockSize = 512

// Field offsets within a header block.
const (
	offName     = 0
	offMode     = 100
	offUID      = 108
	offGID      = 116
	offSize     = 124
	offMtime    = 136
	offChksum   = 148
	offTypeflag = 156
	offMagic    = 257
	offVersion  = 263
	offUname    = 265
	offGname    = 297

	lenName   = 100
	lenSize   = 12
	lenMtime  = 12
	lenChksum = 8
	lenUname  = 32
	lenGname  = 32
)

// Placeholder ownership written into every header.
const (
	DefaultUname = "user"
	DefaultGname = "group"
)

const maxOctal11 = 1<<33 - 1 // largest value 11 octal digits hold

var (
	// ErrNameTooLong is returned for member names over 100 bytes.
	ErrNameTooLong = errors.New("member name exceeds 100 bytes")
	// ErrTooLarge is returned for members that do not fit the size field.
	ErrTooLarge = errors.New("member exceeds 8 GiB ustar limit")
)

// Header describes one archive member.
type Header struct {
	ModTime time.Time
	Name    string // base name, no directories
	Uname   string
	Gname   string
	Size    int64
}

// Block is one encoded header record.
type Block [BlockSize]byte

// Encode renders h as a ustar header block with a valid checksum.
func (h Header) Encode() (Block, error) {
	var blk Block

	if h.Name == "" {
		return blk, errors.New("empty member name")
	}
	if len(h.Name) > lenName {
		return blk, fmt.Errorf("%w: %q", ErrNameTooLong, h.Name)
	}
	if h.Size < 0 || h.Size > maxOctal11 {
		return blk, fmt.Errorf("%w: %s is %d bytes", ErrTooLarge, h.Name, h.Size)
	}
	mtime := h.ModTime.Unix()
	if mtime < 0 || mtime > maxOctal11 {
		mtime = 0
	}

	uname, gname := h.Uname, h.Gname
	if uname == "" {
		uname = DefaultUname
	}
	if gname == "" {
		gname = DefaultGname
	}

	copy(blk[offName:offName+lenName], h.Name)
	copy(blk[offMode:], "000644 \x00")
	copy(blk[offUID:], "000000 \x00")
	copy(blk[offGID:], "000000 \x00")
	putOctal(blk[offSize:offSize+lenSize], h.Size)
	putOctal(blk[offMtime:offMtime+lenMtime], mtime)
	blk[offTypeflag] = '0'
	copy(blk[offMagic:], "ustar\x00")
	copy(blk[offVersion:], "00")
	copy(blk[offUname:offUname+lenUname-1], uname)
	copy(blk[offGname:offGname+lenGname-1], gname)

	sum := blk.Checksum()
	copy(blk[offChksum:offChksum+lenChksum], fmt.Sprintf("%06o\x00 ", sum))
	return blk, nil
}

// Checksum sums all header bytes as unsigned values with the checksum
// field read as spaces.
func (b *Block) Checksum() int64 {
	var sum int64
	for i, c := range b {
		if i >= offChksum && i < offChksum+lenChksum {
			c = ' '
		}
		sum += int64(c)
	}
	return sum
}

// StoredChecksum parses the six-digit octal checksum field.
func (b *Block) StoredChecksum() (int64, error) {
	field := b[offChksum : offChksum+6]
	v, err := strconv.ParseInt(string(field), 8, 64)
	if err != nil {
		return 0, fmt.Errorf("parse checksum %q: %w", field, err)
	}
	return v, nil
}

// putOctal writes v as zero-padded octal filling all but the last byte,
// which stays NUL.
func putOctal(dst []byte, v int64) {
	s := fmt.Sprintf("%0*o", len(dst)-1, v)
	copy(dst, s)
	dst[len(dst)-1] = 0
}

// paddingFor returns how many zero bytes follow n bytes of member data.
func paddingFor(n int64) int64 {
	return (BlockSize - n%BlockSize) % BlockSize
}
