package engine

import (
	"encoding/hex"
	"fmt"
	"io"
	"os"

	"github.com/cespare/xxhash/v2"
	"github.com/zeebo/blake3"
)

const hashBufSize = 32 * 1024

// HashFile computes the BLAKE3 hash of the file at path, returning the hex-encoded digest.
func HashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	h := blake3.New()
	if _, err := io.CopyBuffer(h, f, make([]byte, hashBufSize)); err != nil {
		return "", fmt.Errorf("hash %s: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// sameFile reports whether a and b hash to the same BLAKE3 digest.
func sameFile(a, b string) (bool, error) {
	ha, err := HashFile(a)
	if err != nil {
		return false, err
	}
	hb, err := HashFile(b)
	if err != nil {
		return false, err
	}
	return ha == hb, nil
}

// checkBlob reads path back and compares its xxhash with the in-memory blob.
func checkBlob(path string, blob []byte) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	h := xxhash.New()
	n, err := io.CopyBuffer(h, f, make([]byte, hashBufSize))
	if err != nil {
		return fmt.Errorf("read back %s: %w", path, err)
	}
	if n != int64(len(blob)) || h.Sum64() != xxhash.Sum64(blob) {
		return fmt.Errorf("%w: %s (%d bytes on disk, %d expected)", errDigestMismatch, path, n, len(blob))
	}
	return nil
}
