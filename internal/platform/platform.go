// Package platform holds the OS-specific file paths the monitor writes
// through: kernel-assisted copies for representative images and
// preallocated, synced writes for compressed containers.
package platform

import (
	"fmt"
	"os"
)

// CopyMethod identifies which syscall/strategy was used for a copy.
type CopyMethod int

const (
	ReadWrite     CopyMethod = iota
	CopyFileRange            // Linux copy_file_range(2)
	Sendfile                 // Linux sendfile(2)
	Clonefile                // macOS clonefile(2)
)

func (m CopyMethod) String() string {
	switch m {
	case ReadWrite:
		return "read_write"
	case CopyFileRange:
		return "copy_file_range"
	case Sendfile:
		return "sendfile"
	case Clonefile:
		return "clonefile"
	default:
		return "unknown"
	}
}

// CopyResult reports the outcome of a copy operation.
type CopyResult struct {
	BytesWritten int64
	Method       CopyMethod
}

// CopyFile copies src into dst, which must not exist yet. The new file keeps
// the source permission bits and is synced before CopyFile returns. On error
// dst is removed.
func CopyFile(src, dst string) (CopyResult, error) {
	in, err := os.Open(src)
	if err != nil {
		return CopyResult{}, err
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return CopyResult{}, err
	}
	size := info.Size()

	cloned, err := clone(src, dst)
	if err != nil {
		return CopyResult{}, err
	}
	if cloned {
		return CopyResult{BytesWritten: size, Method: Clonefile}, nil
	}

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, info.Mode().Perm())
	if err != nil {
		return CopyResult{}, err
	}

	result, err := copyContents(in, out, size)
	if err == nil && result.BytesWritten != size {
		err = fmt.Errorf("short copy of %s: %d of %d bytes", src, result.BytesWritten, size)
	}
	if err == nil {
		err = out.Sync()
	}
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(dst)
		return result, err
	}
	return result, nil
}

// WriteFile creates path (which must not exist), reserves len(data) bytes,
// writes data and syncs it to disk. On error path is removed.
func WriteFile(path string, data []byte, perm os.FileMode) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, perm)
	if err != nil {
		return err
	}

	preallocate(f, int64(len(data)))
	_, err = f.Write(data)
	if err == nil {
		err = f.Sync()
	}
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(path)
	}
	return err
}
