package ui

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/bamsammich/snapset/internal/stats"
)

// plainPresenter prints one line per archived set to stdout and a periodic
// status line to stderr. On a TTY the status line is redrawn in place.
type plainPresenter struct {
	w        io.Writer
	errW     io.Writer
	stats    stats.ReadTicker
	outDir   string
	interval time.Duration
	width    int
	tty      bool
	drawn    bool // a status line without newline is on screen
}

func (p *plainPresenter) Run(events <-chan Event) error {
	tick := time.NewTicker(time.Second)
	defer tick.Stop()
	progress := time.NewTicker(p.interval)
	defer progress.Stop()

	for {
		select {
		case ev, ok := <-events:
			if !ok {
				p.clearStatus()
				return nil
			}
			p.handleEvent(ev)
		case <-tick.C:
			p.stats.Tick()
		case <-progress.C:
			p.printProgress()
		}
	}
}

func (p *plainPresenter) handleEvent(ev Event) {
	path := StripRoot(p.outDir, ev.Path)
	switch ev.Type {
	case SetArchived:
		p.println("%s  %s files  %s -> %s  %s",
			path, FormatCount(int64(ev.Files)),
			FormatBytes(ev.Size), FormatBytes(ev.Stored),
			FormatDuration(ev.Duration))
	case SetFailed:
		p.println("run %d set %d  %s", ev.Run, ev.SetStart, errText(ev.Error))
	case SetSkipped:
		p.println("run %d set %d  already processed", ev.Run, ev.SetStart)
	case MemberSkipped:
		p.println("skipped member: %s", ev.Path)
	case VerifyFailed:
		p.println("MISMATCH: %s", path)
	case DeleteFailed:
		p.println("delete failed: %s  %s", ev.Path, errText(ev.Error))
	case ScanComplete, SetIncomplete, SetStarted, RepresentativeCopied, DeleteFile:
		// covered by the status line and the log
	}
}

func (p *plainPresenter) println(format string, args ...any) {
	p.clearStatus()
	fmt.Fprintf(p.w, format+"\n", args...)
}

func (p *plainPresenter) printProgress() {
	snap := p.stats.Snapshot()
	line := fmt.Sprintf("archived %s sets  %s files  pending %d  in %s  %s  deleted %s",
		FormatCount(snap.SetsArchived),
		FormatCount(snap.FilesArchived),
		snap.SetsPending,
		FormatBytes(snap.BytesIn),
		FormatRate(p.stats.RollingSpeed(10)),
		FormatCount(snap.FilesDeleted),
	)
	if failed := snap.SetsFailed + snap.DeleteFailed + snap.VerifyFailed; failed > 0 {
		line += fmt.Sprintf("  errors %d", failed)
	}

	if !p.tty {
		fmt.Fprintln(p.errW, "progress: "+line)
		return
	}
	if p.width > 1 && len(line) >= p.width {
		line = line[:p.width-1]
	}
	fmt.Fprint(p.errW, "\r\033[K"+line)
	p.drawn = true
}

func (p *plainPresenter) clearStatus() {
	if p.drawn {
		fmt.Fprint(p.errW, "\r\033[K")
		p.drawn = false
	}
}

func (p *plainPresenter) Summary() string {
	return CompletionSummary(p.stats.Snapshot())
}

func errText(err error) string {
	if err == nil {
		return "error"
	}
	return strings.TrimSpace(err.Error())
}
