package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/bamsammich/snapset/internal/event"
	"github.com/bamsammich/snapset/internal/tarball"
)

// ProcessSet archives one complete set: build the container, compress it,
// write the output, copy the representative file and queue the originals
// for deletion. A set whose output already exists is left alone and
// reported as OutcomeAlreadyProcessed. The returned error is a *SetError
// when the outcome is OutcomeFailed and nil otherwise.
func (m *Monitor) ProcessSet(ctx context.Context, set FileSet) (Outcome, error) {
	log := m.logger.With("run", set.Run, "set", set.SetStart)

	if set.FirstFile == "" || !IsComplete(set, m.cfg.SetSize) {
		return OutcomeIncomplete, nil
	}

	out := OutputPath(m.cfg.OutputDir, set.FirstFile, m.cfg.Codec.Ext())
	if IsProcessed(set, m.cfg.OutputDir, m.cfg.Codec) {
		log.Info("set already processed", "path", out)
		m.stats.AddSetsSkipped(1)
		m.emit(event.Event{Type: event.SetSkipped, Path: out, Run: set.Run, SetStart: set.SetStart})
		return OutcomeAlreadyProcessed, nil
	}

	if err := ctx.Err(); err != nil {
		return m.fail(log, set, StageArchive, err)
	}

	start := time.Now()
	m.emit(event.Event{
		Type: event.SetStarted, Path: out, Run: set.Run, SetStart: set.SetStart, Files: len(set.Files),
	})

	container, skipped := tarball.Build(set.Files, log)
	for _, p := range skipped {
		m.stats.AddMembersSkipped(1)
		m.emit(event.Event{Type: event.MemberSkipped, Path: p, Run: set.Run, SetStart: set.SetStart})
	}
	if len(skipped) == len(set.Files) {
		return m.fail(log, set, StageArchive, errors.New("no readable members"))
	}

	blob, err := m.cfg.Codec.Encode(container)
	if err != nil {
		return m.fail(log, set, StageCompress, fmt.Errorf("%s: %w", m.cfg.Codec.Name(), err))
	}

	if err := m.writer.writeBlob(out, blob); err != nil {
		return m.fail(log, set, StageWrite, err)
	}

	m.copyRepresentative(log, set)

	// Unreadable members stay on disk; they are not in the container.
	originals := set.Files
	if len(skipped) > 0 {
		originals = slices.DeleteFunc(slices.Clone(set.Files), func(p string) bool {
			return slices.Contains(skipped, p)
		})
	}
	m.queue.Push(DeleteTask{Files: originals, Keep: set.FirstFile})

	elapsed := time.Since(start)
	archived := len(set.Files) - len(skipped)
	m.stats.AddSetsArchived(1)
	m.stats.AddFilesArchived(int64(archived))
	m.stats.AddBytesIn(int64(len(container)))
	m.stats.AddBytesOut(int64(len(blob)))
	m.emit(event.Event{
		Type:     event.SetArchived,
		Path:     out,
		Run:      set.Run,
		SetStart: set.SetStart,
		Files:    archived,
		Size:     int64(len(container)),
		Stored:   int64(len(blob)),
		Duration: elapsed,
	})
	log.Info("archived set",
		"path", out,
		"files", archived,
		"size", len(container),
		"stored", len(blob),
		"elapsed_ms", elapsed.Milliseconds(),
	)
	return OutcomeArchived, nil
}

// copyRepresentative failures never fail the set: the container already
// holds the file.
func (m *Monitor) copyRepresentative(log *slog.Logger, set FileSet) {
	dst, result, err := m.writer.copyRepresentative(set.FirstFile)
	switch {
	case errors.Is(err, errDigestMismatch):
		m.stats.AddVerifyFailed(1)
		m.emit(event.Event{Type: event.VerifyFailed, Path: dst, Run: set.Run, SetStart: set.SetStart, Error: err})
		log.Warn("representative copy does not match source", "path", dst, "error", err)
	case err != nil:
		log.Warn("cannot copy representative file", "path", set.FirstFile, "error", err)
	default:
		m.emit(event.Event{
			Type: event.RepresentativeCopied, Path: dst, Run: set.Run, SetStart: set.SetStart, Size: result.BytesWritten,
		})
	}
}

func (m *Monitor) fail(log *slog.Logger, set FileSet, stage string, err error) (Outcome, error) {
	setErr := &SetError{Run: set.Run, SetStart: set.SetStart, Stage: stage, Err: err}
	m.stats.AddSetsFailed(1)
	m.emit(event.Event{Type: event.SetFailed, Run: set.Run, SetStart: set.SetStart, Error: setErr})
	log.Error("set failed, will retry", "stage", stage, "error", err)
	return OutcomeFailed, setErr
}
