package event

import "time"

// Type identifies the kind of event.
type Type int

const (
	ScanComplete Type = iota + 1
	SetIncomplete
	SetStarted
	SetArchived
	SetSkipped
	SetFailed
	MemberSkipped
	RepresentativeCopied
	VerifyFailed
	DeleteFile
	DeleteFailed
)

var typeNames = [...]string{
	ScanComplete:         "ScanComplete",
	SetIncomplete:        "SetIncomplete",
	SetStarted:           "SetStarted",
	SetArchived:          "SetArchived",
	SetSkipped:           "SetSkipped",
	SetFailed:            "SetFailed",
	MemberSkipped:        "MemberSkipped",
	RepresentativeCopied: "RepresentativeCopied",
	VerifyFailed:         "VerifyFailed",
	DeleteFile:           "DeleteFile",
	DeleteFailed:         "DeleteFailed",
}

func (t Type) String() string {
	if t > 0 && int(t) < len(typeNames) {
		return typeNames[t]
	}
	return "Unknown"
}

// Event represents a single progress event from the monitor.
type Event struct {
	Timestamp time.Time
	Error     error
	Type      Type
	Path      string // output path, member path or deleted path
	Run       int
	SetStart  int
	Files     int   // members in the set (or sets found, for ScanComplete)
	Size      int64 // container bytes
	Stored    int64 // compressed bytes
	Duration  time.Duration
}

// Emit sends e on ch without blocking. A nil channel or a full buffer drops
// the event.
func Emit(ch chan<- Event, e Event) {
	if ch == nil {
		return
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now()
	}
	select {
	case ch <- e:
	default:
	}
}
