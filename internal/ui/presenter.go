// Package ui renders monitor events and statistics for the terminal and
// sets up the process-wide log handlers.
package ui

import (
	"io"
	"time"

	"golang.org/x/term"

	"github.com/bamsammich/snapset/internal/stats"
)

const defaultProgressInterval = 5 * time.Second

// Presenter consumes events and displays progress.
type Presenter interface {
	// Run consumes events until the channel closes. Blocks until done.
	Run(events <-chan Event) error
	// Summary returns the final summary line.
	Summary() string
}

// Config configures a Presenter.
type Config struct {
	Writer           io.Writer
	ErrWriter        io.Writer
	Stats            stats.ReadTicker
	OutputDir        string
	ProgressInterval time.Duration // 0 means 5s
	TermWidth        int           // status line width on a TTY
	IsTTY            bool
	Quiet            bool
}

// NewPresenter creates the appropriate presenter based on configuration.
//
//nolint:ireturn // factory selects the presenter implementation
func NewPresenter(cfg Config) Presenter {
	if cfg.Quiet {
		return &quietPresenter{stats: cfg.Stats}
	}
	interval := cfg.ProgressInterval
	if interval <= 0 {
		interval = defaultProgressInterval
	}
	return &plainPresenter{
		w:        cfg.Writer,
		errW:     cfg.ErrWriter,
		stats:    cfg.Stats,
		outDir:   cfg.OutputDir,
		interval: interval,
		tty:      cfg.IsTTY,
		width:    cfg.TermWidth,
	}
}

// Terminal reports whether fd is a terminal and, if so, its width in
// columns (80 when the size cannot be read). Width is 0 for non-terminals.
func Terminal(fd uintptr) (isTTY bool, width int) {
	if !term.IsTerminal(int(fd)) {
		return false, 0
	}
	w, _, err := term.GetSize(int(fd))
	if err != nil || w <= 0 {
		return true, 80
	}
	return true, w
}
