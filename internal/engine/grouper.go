package engine

import (
	"cmp"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"github.com/bamsammich/snapset/internal/filter"
)

// SetStart returns the first sequence number of the window of size k that
// holds seq.
func SetStart(seq, k int) int {
	return ((seq-1)/k)*k + 1
}

// GroupFiles lists dir and groups the regular files matching tmpl into
// windows of k sequence numbers per run. Sets are ordered by run, then by
// SetStart. Names with a sequence number below 1 are ignored.
func GroupFiles(dir string, tmpl *filter.Template, k int) ([]FileSet, error) {
	if k < 1 {
		return nil, fmt.Errorf("set size must be at least 1, got %d", k)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", dir, err)
	}

	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", dir, err)
	}

	groups := make(map[setKey]*FileSet)
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		run, seq, ok := tmpl.Match(entry.Name())
		if !ok || seq < 1 {
			continue
		}

		key := setKey{run: run, setStart: SetStart(seq, k)}
		set, exists := groups[key]
		if !exists {
			set = &FileSet{Run: key.run, SetStart: key.setStart}
			groups[key] = set
		}

		path := filepath.Join(abs, entry.Name())
		set.Files = append(set.Files, path)
		if seq == key.setStart && (set.FirstFile == "" || path < set.FirstFile) {
			set.FirstFile = path
		}
	}

	sets := make([]FileSet, 0, len(groups))
	for _, set := range groups {
		slices.Sort(set.Files)
		sets = append(sets, *set)
	}
	slices.SortFunc(sets, func(a, b FileSet) int {
		if c := cmp.Compare(a.Run, b.Run); c != 0 {
			return c
		}
		return cmp.Compare(a.SetStart, b.SetStart)
	})
	return sets, nil
}
