//go:build !linux

package platform

import "os"

// preallocate does nothing where fallocate(2) is unavailable.
func preallocate(*os.File, int64) {}
