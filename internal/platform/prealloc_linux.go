//go:build linux

package platform

import (
	"os"

	"golang.org/x/sys/unix"
)

// minPrealloc is the smallest size worth an fallocate call.
const minPrealloc = 64 << 10

// preallocate asks the filesystem to reserve size bytes for f so a
// container lands in as few extents as possible. Filesystems without
// fallocate support are ignored.
//
//nolint:gosec // G115: fd values are small non-negative integers
func preallocate(f *os.File, size int64) {
	if size < minPrealloc {
		return
	}
	_ = unix.Fallocate(int(f.Fd()), 0, 0, size)
}
