//go:build linux

package platform

import (
	"errors"
	"os"

	"golang.org/x/sys/unix"
)

func clone(_, _ string) (bool, error) { return false, nil }

// copyContents tries the most efficient copy method available on Linux,
// falling through on unsupported or cross-device errors as long as nothing
// has been written yet.
func copyContents(in, out *os.File, size int64) (CopyResult, error) {
	preallocate(out, size)

	result, err := copyFileRange(in, out, size)
	if err == nil || result.BytesWritten > 0 || !isFallbackErr(err) {
		return result, err
	}

	result, err = copySendfile(in, out, size)
	if err == nil || result.BytesWritten > 0 || !isFallbackErr(err) {
		return result, err
	}

	return copyReadWrite(in, out, size)
}

//nolint:gosec // G115: fd values are small non-negative integers
func copyFileRange(in, out *os.File, size int64) (CopyResult, error) {
	var roff, woff int64
	remaining := size

	var total int64
	for remaining > 0 {
		n, err := unix.CopyFileRange(int(in.Fd()), &roff, int(out.Fd()), &woff, int(remaining), 0)
		if err != nil {
			return CopyResult{BytesWritten: total, Method: CopyFileRange}, err
		}
		if n == 0 {
			break
		}
		remaining -= int64(n)
		total += int64(n)
	}

	return CopyResult{BytesWritten: total, Method: CopyFileRange}, nil
}

//nolint:gosec // G115: fd values are small non-negative integers
func copySendfile(in, out *os.File, size int64) (CopyResult, error) {
	var offset int64
	remaining := size

	var total int64
	for remaining > 0 {
		n, err := unix.Sendfile(int(out.Fd()), int(in.Fd()), &offset, int(remaining))
		if err != nil {
			return CopyResult{BytesWritten: total, Method: Sendfile}, err
		}
		if n == 0 {
			break
		}
		remaining -= int64(n)
		total += int64(n)
	}

	return CopyResult{BytesWritten: total, Method: Sendfile}, nil
}

// isFallbackErr reports whether err should trigger the next copy strategy.
func isFallbackErr(err error) bool {
	return errors.Is(err, unix.ENOSYS) ||
		errors.Is(err, unix.EXDEV) ||
		errors.Is(err, unix.EINVAL) ||
		errors.Is(err, unix.ENOTSUP) ||
		errors.Is(err, unix.EOPNOTSUPP)
}
