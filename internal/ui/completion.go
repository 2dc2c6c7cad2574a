package ui

import (
	"fmt"

	"github.com/bamsammich/snapset/internal/stats"
)

// CompletionSummary builds a final summary line from a snapshot.
// Format: done ✓  sets 12  files 1,200  size 1.2 GiB -> 310 MiB (25.8%)  avg 41.0 MiB/s  time 3m 17s  errors 0
func CompletionSummary(snap stats.Snapshot) string {
	avgSpeed := 0.0
	if snap.Elapsed.Seconds() > 0 {
		avgSpeed = float64(snap.BytesIn) / snap.Elapsed.Seconds()
	}

	errs := snap.SetsFailed + snap.DeleteFailed + snap.VerifyFailed
	icon := "✓"
	if errs > 0 {
		icon = "✗"
	}

	base := fmt.Sprintf("done %s  sets %s  files %s  size %s -> %s (%.1f%%)  avg %s  time %s",
		icon,
		FormatCount(snap.SetsArchived),
		FormatCount(snap.FilesArchived),
		FormatBytes(snap.BytesIn),
		FormatBytes(snap.BytesOut),
		snap.Ratio()*100,
		FormatRate(avgSpeed),
		FormatDuration(snap.Elapsed),
	)
	if snap.SetsPending > 0 {
		base += fmt.Sprintf("  pending %d", snap.SetsPending)
	}
	return base + fmt.Sprintf("  errors %d", errs)
}
