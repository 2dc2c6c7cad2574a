//go:build darwin

package platform

import (
	"errors"
	"os"

	"golang.org/x/sys/unix"
)

// clone makes a copy-on-write clone of src at dst when the filesystem
// supports it. A false result with a nil error means the caller should copy
// the bytes itself.
func clone(src, dst string) (bool, error) {
	err := unix.Clonefile(src, dst, 0)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, unix.ENOTSUP) || errors.Is(err, unix.EXDEV) {
		return false, nil
	}
	return false, err
}

func copyContents(in, out *os.File, size int64) (CopyResult, error) {
	preallocate(out, size)
	return copyReadWrite(in, out, size)
}
