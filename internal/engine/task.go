package engine

import (
	"errors"
	"fmt"
)

// FileSet is one window of SetSize consecutive sequence numbers within a
// run. It is rebuilt on every scan and never mutated afterwards.
type FileSet struct {
	FirstFile string   // member whose sequence equals SetStart, or "" if absent
	Files     []string // absolute paths, sorted
	Run       int
	SetStart  int // 1-based sequence number opening the window
}

type setKey struct {
	run      int
	setStart int
}

func (s FileSet) key() setKey { return setKey{run: s.Run, setStart: s.SetStart} }

// DeleteTask asks the delete queue to remove Files, except Keep.
type DeleteTask struct {
	Keep  string
	Files []string
}

// Outcome classifies what ProcessSet did with a set.
type Outcome int

const (
	OutcomeArchived Outcome = iota + 1
	OutcomeAlreadyProcessed
	OutcomeIncomplete
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeArchived:
		return "archived"
	case OutcomeAlreadyProcessed:
		return "already-processed"
	case OutcomeIncomplete:
		return "incomplete"
	case OutcomeFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Processing stages reported in SetError.
const (
	StageArchive  = "archive"
	StageCompress = "compress"
	StageWrite    = "write"
)

// ErrFatal marks failures that stop the monitor.
var ErrFatal = errors.New("fatal")

// SetError is a set-level failure. No output exists for the set afterwards,
// so the next poll retries it.
type SetError struct {
	Err      error
	Stage    string
	Run      int
	SetStart int
}

func (e *SetError) Error() string {
	return fmt.Sprintf("run %d set %d: %s: %v", e.Run, e.SetStart, e.Stage, e.Err)
}

func (e *SetError) Unwrap() error { return e.Err }
