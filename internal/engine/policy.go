package engine

import (
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/bamsammich/snapset/internal/codec"
)

// IsComplete reports whether set holds at least k files.
func IsComplete(set FileSet, k int) bool {
	return len(set.Files) >= k
}

// OutputPath is where the compressed container for a set whose
// representative is firstFile lives: the representative's stem plus ext,
// inside outDir.
func OutputPath(outDir, firstFile, ext string) string {
	base := filepath.Base(firstFile)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	return filepath.Join(outDir, stem+ext)
}

// IsProcessed reports whether the output for set already exists. This is the
// only completion marker; nothing else is persisted.
func IsProcessed(set FileSet, outDir string, c codec.Codec) bool {
	if set.FirstFile == "" {
		return false
	}
	_, err := os.Stat(OutputPath(outDir, set.FirstFile, c.Ext()))
	return err == nil
}

// tracker remembers, for the lifetime of one Monitor, which sets were handed
// to a worker (or found processed) and the last member count logged for
// incomplete sets. Losing it on restart is harmless: IsProcessed rederives
// the same answers from disk.
type tracker struct {
	mu         sync.Mutex
	dispatched map[setKey]struct{}
	incomplete map[setKey]int
}

func newTracker() *tracker {
	return &tracker{
		dispatched: make(map[setKey]struct{}),
		incomplete: make(map[setKey]int),
	}
}

func (t *tracker) isDispatched(k setKey) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.dispatched[k]
	return ok
}

func (t *tracker) markDispatched(k setKey) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.dispatched[k] = struct{}{}
	delete(t.incomplete, k)
}

// forget drops k so the next poll reconsiders it.
func (t *tracker) forget(k setKey) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.dispatched, k)
}

// noteIncomplete records n members for k and reports whether that count is
// new, i.e. worth logging.
func (t *tracker) noteIncomplete(k setKey, n int) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if prev, ok := t.incomplete[k]; ok && prev == n {
		return false
	}
	t.incomplete[k] = n
	return true
}

// pruneIncomplete drops incomplete entries for sets no longer on disk.
func (t *tracker) pruneIncomplete(seen map[setKey]struct{}) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for k := range t.incomplete {
		if _, ok := seen[k]; !ok {
			delete(t.incomplete, k)
		}
	}
}
