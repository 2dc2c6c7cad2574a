package ui

import "github.com/bamsammich/snapset/internal/event"

// Event is re-exported so presenters read like the monitor's own types.
type Event = event.Event

// Re-export event types for convenience.
const (
	ScanComplete         = event.ScanComplete
	SetIncomplete        = event.SetIncomplete
	SetStarted           = event.SetStarted
	SetArchived          = event.SetArchived
	SetSkipped           = event.SetSkipped
	SetFailed            = event.SetFailed
	MemberSkipped        = event.MemberSkipped
	RepresentativeCopied = event.RepresentativeCopied
	VerifyFailed         = event.VerifyFailed
	DeleteFile           = event.DeleteFile
	DeleteFailed         = event.DeleteFailed
)
