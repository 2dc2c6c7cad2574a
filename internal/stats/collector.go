package stats

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

const ringSize = 60

// Writer is the write side of a Collector, used by workers and the delete
// queue.
type Writer interface {
	AddSetsArchived(n int64)
	AddSetsFailed(n int64)
	AddSetsSkipped(n int64)
	AddFilesArchived(n int64)
	AddMembersSkipped(n int64)
	AddBytesIn(n int64)
	AddBytesOut(n int64)
	AddFilesDeleted(n int64)
	AddDeleteFailed(n int64)
	AddVerifyFailed(n int64)
	SetPending(n int64)
}

// Reader is the read side, used by presenters.
type Reader interface {
	Snapshot() Snapshot
	RollingSpeed(seconds int) float64
	RollingSetsPerSec(seconds int) float64
}

// ReadTicker is a Reader that presenters also drive once per second.
type ReadTicker interface {
	Reader
	Tick()
}

// Collector tracks monitor statistics using lock-free atomic counters.
type Collector struct {
	startTime time.Time

	setsArchived   atomic.Int64
	setsFailed     atomic.Int64
	setsSkipped    atomic.Int64
	setsPending    atomic.Int64
	filesArchived  atomic.Int64
	membersSkipped atomic.Int64
	bytesIn        atomic.Int64
	bytesOut       atomic.Int64
	filesDeleted   atomic.Int64
	deleteFailed   atomic.Int64
	verifyFailed   atomic.Int64

	// Ring buffer, written only by Tick().
	mu         sync.Mutex
	throughput [ringSize]int64 // container bytes delta per second
	setsPerSec [ringSize]int64
	ringIdx    int
	ringCount  int // samples written, capped at ringSize
	lastBytes  int64
	lastSets   int64
}

// NewCollector creates a Collector with startTime set to now.
func NewCollector() *Collector {
	return &Collector{startTime: time.Now()}
}

// Snapshot is a point-in-time read of all counters.
type Snapshot struct {
	SetsArchived   int64
	SetsFailed     int64
	SetsSkipped    int64
	SetsPending    int64
	FilesArchived  int64
	MembersSkipped int64
	BytesIn        int64
	BytesOut       int64
	FilesDeleted   int64
	DeleteFailed   int64
	VerifyFailed   int64
	Elapsed        time.Duration
}

func (c *Collector) AddSetsArchived(n int64)   { c.setsArchived.Add(n) }
func (c *Collector) AddSetsFailed(n int64)     { c.setsFailed.Add(n) }
func (c *Collector) AddSetsSkipped(n int64)    { c.setsSkipped.Add(n) }
func (c *Collector) AddFilesArchived(n int64)  { c.filesArchived.Add(n) }
func (c *Collector) AddMembersSkipped(n int64) { c.membersSkipped.Add(n) }
func (c *Collector) AddBytesIn(n int64)        { c.bytesIn.Add(n) }
func (c *Collector) AddBytesOut(n int64)       { c.bytesOut.Add(n) }
func (c *Collector) AddFilesDeleted(n int64)   { c.filesDeleted.Add(n) }
func (c *Collector) AddDeleteFailed(n int64)   { c.deleteFailed.Add(n) }
func (c *Collector) AddVerifyFailed(n int64)   { c.verifyFailed.Add(n) }

// SetPending records how many sets are waiting for more files.
func (c *Collector) SetPending(n int64) { c.setsPending.Store(n) }

// Snapshot returns a point-in-time read of all counters.
func (c *Collector) Snapshot() Snapshot {
	return Snapshot{
		SetsArchived:   c.setsArchived.Load(),
		SetsFailed:     c.setsFailed.Load(),
		SetsSkipped:    c.setsSkipped.Load(),
		SetsPending:    c.setsPending.Load(),
		FilesArchived:  c.filesArchived.Load(),
		MembersSkipped: c.membersSkipped.Load(),
		BytesIn:        c.bytesIn.Load(),
		BytesOut:       c.bytesOut.Load(),
		FilesDeleted:   c.filesDeleted.Load(),
		DeleteFailed:   c.deleteFailed.Load(),
		VerifyFailed:   c.verifyFailed.Load(),
		Elapsed:        c.Elapsed(),
	}
}

// Tick snapshots byte/set deltas into the ring buffer. Called 1/sec by the presenter.
func (c *Collector) Tick() {
	currentBytes := c.bytesIn.Load()
	currentSets := c.setsArchived.Load()

	c.mu.Lock()
	defer c.mu.Unlock()

	c.throughput[c.ringIdx] = currentBytes - c.lastBytes
	c.setsPerSec[c.ringIdx] = currentSets - c.lastSets
	c.lastBytes = currentBytes
	c.lastSets = currentSets

	c.ringIdx = (c.ringIdx + 1) % ringSize
	if c.ringCount < ringSize {
		c.ringCount++
	}
}

// RollingSpeed returns average archived bytes/sec over the last n seconds of samples.
func (c *Collector) RollingSpeed(seconds int) float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.rollingAvg(c.throughput[:], seconds)
}

// RollingSetsPerSec returns average sets/sec over the last n seconds.
func (c *Collector) RollingSetsPerSec(seconds int) float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.rollingAvg(c.setsPerSec[:], seconds)
}

func (c *Collector) rollingAvg(buf []int64, n int) float64 {
	count := min(n, c.ringCount)
	if count <= 0 {
		return 0
	}
	var sum int64
	for i := range count {
		idx := (c.ringIdx - 1 - i + ringSize) % ringSize
		sum += buf[idx]
	}
	return float64(sum) / float64(count)
}

// Elapsed returns time since collector creation.
func (c *Collector) Elapsed() time.Duration {
	return time.Since(c.startTime)
}

// Ratio returns stored/container bytes, or 0 before anything is archived.
func (s Snapshot) Ratio() float64 {
	if s.BytesIn == 0 {
		return 0
	}
	return float64(s.BytesOut) / float64(s.BytesIn)
}

func (s Snapshot) String() string {
	return fmt.Sprintf(
		"archived=%d failed=%d skipped=%d pending=%d files=%d in=%d out=%d deleted=%d",
		s.SetsArchived, s.SetsFailed, s.SetsSkipped, s.SetsPending,
		s.FilesArchived, s.BytesIn, s.BytesOut, s.FilesDeleted,
	)
}

// FormatBytes returns a human-readable byte count.
func FormatBytes(b int64) string {
	const unit = 1024
	if b < unit {
		return fmt.Sprintf("%d B", b)
	}
	div, exp := int64(unit), 0
	for n := b / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(b)/float64(div), "KMGTPE"[exp])
}
