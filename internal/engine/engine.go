// Package engine watches a directory for numbered image files, archives
// each complete set into a compressed container and removes the originals.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/bamsammich/snapset/internal/codec"
	"github.com/bamsammich/snapset/internal/event"
	"github.com/bamsammich/snapset/internal/filter"
	"github.com/bamsammich/snapset/internal/stats"
)

const (
	DefaultSetSize      = 100
	DefaultPollInterval = time.Second
	DefaultWorkers      = 4
)

// Config describes a monitor.
type Config struct {
	Events       chan<- event.Event
	Stats        stats.Writer     // nil means a private collector
	Logger       *slog.Logger     // nil means slog.Default()
	Template     *filter.Template // nil means filter.DefaultTemplate
	Codec        codec.Codec      // nil means snappy
	WatchDir     string
	OutputDir    string
	SetSize      int
	PollInterval time.Duration
	Workers      int
	Verify       bool
}

// Monitor owns one watch/output directory pair. Run may be called once.
type Monitor struct {
	logger  *slog.Logger
	stats   stats.Writer
	tracker *tracker
	queue   *DeleteQueue
	writer  *outputWriter
	cfg     Config
}

// NewMonitor validates cfg, fills in defaults and starts the delete queue.
func NewMonitor(cfg Config) (*Monitor, error) {
	if cfg.WatchDir == "" {
		return nil, errors.New("watch directory is required")
	}
	if cfg.OutputDir == "" {
		return nil, errors.New("output directory is required")
	}
	if cfg.SetSize == 0 {
		cfg.SetSize = DefaultSetSize
	}
	if cfg.SetSize < 1 {
		return nil, fmt.Errorf("set size must be at least 1, got %d", cfg.SetSize)
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	if cfg.Workers <= 0 {
		cfg.Workers = DefaultWorkers
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Stats == nil {
		cfg.Stats = stats.NewCollector()
	}
	if cfg.Template == nil {
		cfg.Template = filter.MustCompile(filter.DefaultTemplate)
	}
	if cfg.Codec == nil {
		c, err := codec.Lookup(codec.DefaultName)
		if err != nil {
			return nil, err
		}
		cfg.Codec = c
	}

	return &Monitor{
		cfg:     cfg,
		logger:  cfg.Logger,
		stats:   cfg.Stats,
		tracker: newTracker(),
		writer:  &outputWriter{dir: cfg.OutputDir, verify: cfg.Verify, logger: cfg.Logger},
		queue: NewDeleteQueue(DeleteQueueConfig{
			Events: cfg.Events,
			Stats:  cfg.Stats,
			Logger: cfg.Logger,
		}),
	}, nil
}

// Run polls the watch directory until ctx is cancelled. On cancellation it
// stops dispatching, waits for in-flight sets, drains the delete queue and
// returns nil. The only error it returns wraps ErrFatal.
func (m *Monitor) Run(ctx context.Context) error {
	defer m.Close()

	if err := os.MkdirAll(m.cfg.OutputDir, 0o755); err != nil {
		return fmt.Errorf("%w: create output directory %s: %w", ErrFatal, m.cfg.OutputDir, err)
	}
	if n := m.writer.removeStale(); n > 0 {
		m.logger.Info("cleaned output directory", "stale_temp_files", n)
	}

	m.logger.Info("monitoring",
		"watch_dir", m.cfg.WatchDir,
		"output_dir", m.cfg.OutputDir,
		"pattern", m.cfg.Template.String(),
		"set_size", m.cfg.SetSize,
		"codec", m.cfg.Codec.Name(),
		"workers", m.cfg.Workers,
	)

	sem := semaphore.NewWeighted(int64(m.cfg.Workers))
	var wg sync.WaitGroup

	timer := time.NewTimer(0)
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			m.logger.Info("waiting for in-flight sets")
			wg.Wait()
			m.logger.Info("waiting for delete queue", "pending", m.queue.Len())
			m.queue.Close()
			m.logger.Info("monitor stopped")
			return nil
		case <-timer.C:
		}

		m.poll(ctx, sem, &wg)
		m.logger.Debug("delete queue", "pending", m.queue.Len())
		timer.Reset(m.cfg.PollInterval)
	}
}

// Close drains the delete queue and removes temporary files a worker left
// behind. Run calls it on return; callers using ProcessSet directly must
// call it themselves.
func (m *Monitor) Close() {
	m.queue.Close()
	m.writer.tmps.cleanup()
}

// poll runs one SCAN, CLASSIFY, DISPATCH pass. Dispatch blocks while all
// worker slots are busy.
func (m *Monitor) poll(ctx context.Context, sem *semaphore.Weighted, wg *sync.WaitGroup) {
	sets, err := GroupFiles(m.cfg.WatchDir, m.cfg.Template, m.cfg.SetSize)
	if err != nil {
		m.logger.Warn("scan failed", "path", m.cfg.WatchDir, "error", err)
		return
	}
	m.logger.Debug("scan complete", "sets", len(sets))
	m.emit(event.Event{Type: event.ScanComplete, Files: len(sets)})

	seen := make(map[setKey]struct{}, len(sets))
	var pending int64
	for _, set := range sets {
		if ctx.Err() != nil {
			return
		}
		key := set.key()
		seen[key] = struct{}{}

		if m.tracker.isDispatched(key) {
			continue
		}

		if IsProcessed(set, m.cfg.OutputDir, m.cfg.Codec) {
			m.tracker.markDispatched(key)
			if !IsComplete(set, m.cfg.SetSize) {
				// Typically only the kept representative is left.
				m.logger.Debug("ignoring leftovers of processed set", "run", set.Run, "set", set.SetStart)
				continue
			}
			m.logger.Info("set already processed", "run", set.Run, "set", set.SetStart)
			m.stats.AddSetsSkipped(1)
			m.emit(event.Event{Type: event.SetSkipped, Run: set.Run, SetStart: set.SetStart})
			continue
		}

		if !IsComplete(set, m.cfg.SetSize) || set.FirstFile == "" {
			pending++
			m.noteIncomplete(set)
			continue
		}

		if err := sem.Acquire(ctx, 1); err != nil {
			return // shutting down
		}
		m.dispatch(ctx, sem, wg, set)
	}

	m.tracker.pruneIncomplete(seen)
	m.stats.SetPending(pending)
}

// dispatch hands set to a worker holding one sem slot, which it releases.
// A dispatched set runs to completion even if shutdown has begun.
func (m *Monitor) dispatch(ctx context.Context, sem *semaphore.Weighted, wg *sync.WaitGroup, set FileSet) {
	m.tracker.markDispatched(set.key())
	m.logger.Info("processing set", "run", set.Run, "set", set.SetStart, "files", len(set.Files))

	setCtx := context.WithoutCancel(ctx)
	wg.Add(1)
	go func() {
		defer wg.Done()
		defer sem.Release(1)
		if outcome, _ := m.ProcessSet(setCtx, set); outcome == OutcomeFailed {
			m.tracker.forget(set.key())
		}
	}()
}

func (m *Monitor) noteIncomplete(set FileSet) {
	if !m.tracker.noteIncomplete(set.key(), len(set.Files)) {
		return
	}
	if set.FirstFile == "" && len(set.Files) >= m.cfg.SetSize {
		m.logger.Warn("set has no file at its start sequence",
			"run", set.Run, "set", set.SetStart, "files", len(set.Files))
	} else {
		m.logger.Info("set incomplete",
			"run", set.Run, "set", set.SetStart, "files", len(set.Files), "need", m.cfg.SetSize)
	}
	m.emit(event.Event{Type: event.SetIncomplete, Run: set.Run, SetStart: set.SetStart, Files: len(set.Files)})
}

func (m *Monitor) emit(e event.Event) {
	event.Emit(m.cfg.Events, e)
}
