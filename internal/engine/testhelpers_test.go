package engine

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/bamsammich/snapset/internal/event"
	"github.com/bamsammich/snapset/internal/stats"
)

// imageName returns the default-template name for (run, seq).
func imageName(run, seq int) string {
	return fmt.Sprintf("test_%02d_%05d.tif", run, seq)
}

// imageData is deterministic, distinct content for (run, seq).
func imageData(run, seq int) []byte {
	return fmt.Appendf(nil, "II*\x00 run=%d seq=%d %s", run, seq, string(make([]byte, seq%700)))
}

// writeImages creates files for run with sequence numbers from..to inclusive
// and returns their paths.
func writeImages(t *testing.T, dir string, run, from, to int) []string {
	t.Helper()
	var paths []string
	for seq := from; seq <= to; seq++ {
		p := filepath.Join(dir, imageName(run, seq))
		require.NoError(t, os.WriteFile(p, imageData(run, seq), 0o644))
		paths = append(paths, p)
	}
	return paths
}

type testMonitor struct {
	*Monitor
	events chan event.Event
	stats  *stats.Collector
	watch  string
	out    string
}

func newTestMonitor(t *testing.T, setSize int, mutate ...func(*Config)) *testMonitor {
	t.Helper()
	root := t.TempDir()
	watch := filepath.Join(root, "watch")
	out := filepath.Join(root, "out")
	require.NoError(t, os.MkdirAll(watch, 0o755))

	events := make(chan event.Event, 1024)
	collector := stats.NewCollector()
	cfg := Config{
		WatchDir:     watch,
		OutputDir:    out,
		SetSize:      setSize,
		PollInterval: 10 * time.Millisecond,
		Events:       events,
		Stats:        collector,
		Logger:       slog.New(slog.DiscardHandler),
	}
	for _, fn := range mutate {
		fn(&cfg)
	}

	m, err := NewMonitor(cfg)
	require.NoError(t, err)
	t.Cleanup(m.Close)
	return &testMonitor{Monitor: m, events: events, stats: collector, watch: watch, out: out}
}

// drain returns every event currently buffered.
func (tm *testMonitor) drain() []event.Event {
	var evs []event.Event
	for {
		select {
		case e := <-tm.events:
			evs = append(evs, e)
		default:
			return evs
		}
	}
}

func countType(evs []event.Event, typ event.Type) int {
	n := 0
	for _, e := range evs {
		if e.Type == typ {
			n++
		}
	}
	return n
}

func listDir(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}
