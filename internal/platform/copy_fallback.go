//go:build !linux && !darwin

package platform

import "os"

func clone(_, _ string) (bool, error) { return false, nil }

func copyContents(in, out *os.File, size int64) (CopyResult, error) {
	preallocate(out, size)
	return copyReadWrite(in, out, size)
}
