package engine

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/bamsammich/snapset/internal/platform"
)

const tmpSuffix = ".snapset-tmp"

var errDigestMismatch = errors.New("digest mismatch")

// outputWriter places compressed containers and representative copies in the
// output directory. Everything is written under a hidden temporary name and
// renamed into place, so a final path only ever holds complete data.
type outputWriter struct {
	logger *slog.Logger
	tmps   tmpRegistry
	dir    string
	verify bool
}

func tmpPathFor(final string) string {
	dir := filepath.Dir(final)
	base := filepath.Base(final)
	return filepath.Join(dir, fmt.Sprintf(".%s.%s%s", base, uuid.New().String()[:8], tmpSuffix))
}

func isTmpName(name string) bool {
	return strings.HasPrefix(name, ".") && strings.HasSuffix(name, tmpSuffix)
}

// ensureDir creates the output directory if it has gone missing since
// startup.
func (w *outputWriter) ensureDir() error {
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return fmt.Errorf("create output directory %s: %w", w.dir, err)
	}
	return nil
}

// writeBlob durably writes blob to path. With verify on, the temporary file
// is read back and checked before the rename.
func (w *outputWriter) writeBlob(path string, blob []byte) error {
	if err := w.ensureDir(); err != nil {
		return err
	}
	tmp := tmpPathFor(path)
	w.tmps.add(tmp)
	defer func() {
		w.tmps.remove(tmp)
		_ = os.Remove(tmp) // no-op if rename succeeded
	}()

	if err := platform.WriteFile(tmp, blob, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", tmp, err)
	}
	if w.verify {
		if err := checkBlob(tmp, blob); err != nil {
			return err
		}
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("rename %s -> %s: %w", tmp, path, err)
	}
	return nil
}

// copyRepresentative copies src into the output directory under its own base
// name, replacing any earlier copy. With verify on, a copy whose BLAKE3
// digest differs from the source yields an error wrapping errDigestMismatch;
// the copy is left in place.
func (w *outputWriter) copyRepresentative(src string) (string, platform.CopyResult, error) {
	dst := filepath.Join(w.dir, filepath.Base(src))
	if err := w.ensureDir(); err != nil {
		return dst, platform.CopyResult{}, err
	}
	tmp := tmpPathFor(dst)
	w.tmps.add(tmp)
	defer func() {
		w.tmps.remove(tmp)
		_ = os.Remove(tmp)
	}()

	result, err := platform.CopyFile(src, tmp)
	if err != nil {
		return dst, result, fmt.Errorf("copy %s: %w", src, err)
	}
	if err := os.Rename(tmp, dst); err != nil {
		return dst, result, fmt.Errorf("rename %s -> %s: %w", tmp, dst, err)
	}

	if w.verify {
		same, err := sameFile(src, dst)
		if err != nil {
			return dst, result, fmt.Errorf("verify %s: %w", dst, err)
		}
		if !same {
			return dst, result, fmt.Errorf("%w: %s differs from %s", errDigestMismatch, dst, src)
		}
	}
	return dst, result, nil
}

// removeStale deletes temporary files left in the output directory by a
// process that was killed mid-write.
func (w *outputWriter) removeStale() int {
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		w.logger.Warn("cannot list output directory for stale temp files", "path", w.dir, "error", err)
		return 0
	}

	removed := 0
	for _, e := range entries {
		if !e.Type().IsRegular() || !isTmpName(e.Name()) {
			continue
		}
		path := filepath.Join(w.dir, e.Name())
		if err := os.Remove(path); err != nil {
			w.logger.Warn("cannot remove stale temp file", "path", path, "error", err)
			continue
		}
		w.logger.Info("removed stale temp file", "path", path)
		removed++
	}
	return removed
}

// tmpRegistry tracks in-progress temporary files so shutdown can remove any a
// worker did not get to.
type tmpRegistry struct {
	mu    sync.Mutex
	paths map[string]struct{}
}

func (r *tmpRegistry) add(path string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.paths == nil {
		r.paths = make(map[string]struct{})
	}
	r.paths[path] = struct{}{}
}

func (r *tmpRegistry) remove(path string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.paths, path)
}

// cleanup removes every registered file and empties the registry.
func (r *tmpRegistry) cleanup() {
	r.mu.Lock()
	paths := make([]string, 0, len(r.paths))
	for p := range r.paths {
		paths = append(paths, p)
	}
	r.paths = nil
	r.mu.Unlock()

	for _, p := range paths {
		_ = os.Remove(p)
	}
}
