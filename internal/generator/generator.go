// Package generator writes synthetic numbered image files at a fixed
// cadence, standing in for the acquisition software that feeds the monitor.
package generator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/bamsammich/snapset/internal/filter"
	"github.com/bamsammich/snapset/internal/platform"
)

// Defaults match the reference acquisition setup.
const (
	DefaultImagesPerRun = 1800
	DefaultInterval     = 30 * time.Millisecond
	DefaultSize         = 1 << 20
)

// Config describes one generation job.
type Config struct {
	Logger       *slog.Logger
	Template     *filter.Template
	Dir          string
	Data         []byte // written verbatim to every file
	Count        int
	ImagesPerRun int
	StartRun     int           // 0 means 1
	Interval     time.Duration // 0 means as fast as possible
}

// Name returns the file name for the i-th file (0-based) of a job.
func (c Config) Name(i int) (string, error) {
	run := c.StartRun + i/c.ImagesPerRun
	seq := i%c.ImagesPerRun + 1
	return c.Template.Format(run, seq)
}

func (c *Config) validate() error {
	if c.Dir == "" {
		return errors.New("target directory is required")
	}
	if c.Template == nil {
		return errors.New("template is required")
	}
	if c.Count < 0 {
		return fmt.Errorf("count must not be negative, got %d", c.Count)
	}
	if c.ImagesPerRun < 1 {
		return fmt.Errorf("images per run must be at least 1, got %d", c.ImagesPerRun)
	}
	if c.ImagesPerRun > c.Template.MaxSeq() {
		return fmt.Errorf("%d images per run do not fit template %s", c.ImagesPerRun, c.Template)
	}
	if c.StartRun == 0 {
		c.StartRun = 1
	}
	if c.Count > 0 {
		if _, err := c.Name(c.Count - 1); err != nil {
			return err
		}
	}
	return nil
}

// Run writes cfg.Count files into cfg.Dir, one per cfg.Interval, and returns
// how many it wrote. Each file appears atomically under its final name. It
// stops early, returning ctx.Err(), when ctx is cancelled.
func Run(ctx context.Context, cfg Config) (int, error) {
	if err := cfg.validate(); err != nil {
		return 0, err
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return 0, fmt.Errorf("create %s: %w", cfg.Dir, err)
	}

	limit := rate.Inf
	if cfg.Interval > 0 {
		limit = rate.Every(cfg.Interval)
	}
	limiter := rate.NewLimiter(limit, 1)

	start := time.Now()
	for i := range cfg.Count {
		if err := limiter.Wait(ctx); err != nil {
			return i, err
		}

		name, err := cfg.Name(i)
		if err != nil {
			return i, err
		}
		if i%cfg.ImagesPerRun == 0 {
			cfg.Logger.Info("starting run", "run", cfg.StartRun+i/cfg.ImagesPerRun)
		}

		if err := writeAtomic(filepath.Join(cfg.Dir, name), cfg.Data); err != nil {
			return i, err
		}
		cfg.Logger.Debug("wrote file", "path", name)
	}

	elapsed := time.Since(start)
	cfg.Logger.Info("generation complete",
		"files", cfg.Count,
		"bytes", int64(cfg.Count)*int64(len(cfg.Data)),
		"elapsed", elapsed.Round(time.Millisecond),
	)
	return cfg.Count, nil
}

// writeAtomic writes data under a hidden temporary name next to path and
// renames it into place, so a watcher never lists a partial file.
func writeAtomic(path string, data []byte) error {
	tmp := filepath.Join(filepath.Dir(path),
		fmt.Sprintf(".%s.%s.part", filepath.Base(path), uuid.New().String()[:8]))
	if err := platform.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("rename %s -> %s: %w", tmp, path, err)
	}
	return nil
}

// Pattern returns size bytes of deterministic filler starting with a
// little-endian TIFF signature.
func Pattern(size int) []byte {
	buf := make([]byte, size)
	for i := range buf {
		buf[i] = byte(i % 251)
	}
	copy(buf, "II*\x00")
	return buf
}
