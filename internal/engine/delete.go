package engine

import (
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/hashicorp/go-multierror"

	"github.com/bamsammich/snapset/internal/event"
	"github.com/bamsammich/snapset/internal/stats"
)

// DeleteQueueConfig wires a DeleteQueue to the monitor's sinks.
type DeleteQueueConfig struct {
	Events chan<- event.Event
	Stats  stats.Writer
	Logger *slog.Logger
}

// DeleteQueue removes archived originals on a single background goroutine,
// one task at a time in arrival order. Failures are logged and dropped.
type DeleteQueue struct {
	cfg     DeleteQueueConfig
	mu      sync.Mutex
	cond    *sync.Cond
	tasks   []DeleteTask
	closed  bool
	done    chan struct{}
	closeMu sync.Once
}

// NewDeleteQueue starts the consumer goroutine. Close must be called to stop
// it.
func NewDeleteQueue(cfg DeleteQueueConfig) *DeleteQueue {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	q := &DeleteQueue{cfg: cfg, done: make(chan struct{})}
	q.cond = sync.NewCond(&q.mu)
	go q.consume()
	return q
}

// Push enqueues task. It returns false, dropping the task, once Close has
// been called.
func (q *DeleteQueue) Push(task DeleteTask) bool {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		q.cfg.Logger.Warn("delete queue closed, originals left in place", "files", len(task.Files))
		return false
	}
	q.tasks = append(q.tasks, task)
	q.mu.Unlock()
	q.cond.Signal()
	return true
}

// Len returns the number of tasks waiting to be consumed.
func (q *DeleteQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.tasks)
}

// Close stops accepting tasks, lets the consumer finish everything already
// queued, and waits for it to exit. It is safe to call more than once.
func (q *DeleteQueue) Close() {
	q.closeMu.Do(func() {
		q.mu.Lock()
		q.closed = true
		q.mu.Unlock()
		q.cond.Broadcast()
	})
	<-q.done
}

func (q *DeleteQueue) consume() {
	defer close(q.done)
	for {
		q.mu.Lock()
		for len(q.tasks) == 0 && !q.closed {
			q.cond.Wait()
		}
		if len(q.tasks) == 0 {
			q.mu.Unlock()
			return
		}
		task := q.tasks[0]
		q.tasks[0] = DeleteTask{}
		q.tasks = q.tasks[1:]
		q.mu.Unlock()

		q.run(task)
	}
}

// run deletes every file in task except Keep. Missing files count as
// already deleted.
func (q *DeleteQueue) run(task DeleteTask) {
	keep := ""
	if task.Keep != "" {
		keep = filepath.Clean(task.Keep)
	}

	var result *multierror.Error
	for _, path := range task.Files {
		if filepath.Clean(path) == keep {
			q.cfg.Logger.Debug("keeping representative file", "path", path)
			continue
		}
		if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			result = multierror.Append(result, err)
			continue
		}
		if q.cfg.Stats != nil {
			q.cfg.Stats.AddFilesDeleted(1)
		}
		event.Emit(q.cfg.Events, event.Event{Type: event.DeleteFile, Path: path})
	}

	if result == nil {
		return
	}
	for _, err := range result.Errors {
		path := ""
		var pe *fs.PathError
		if errors.As(err, &pe) {
			path = pe.Path
		}
		q.cfg.Logger.Warn("cannot delete file", "path", path, "error", err)
		if q.cfg.Stats != nil {
			q.cfg.Stats.AddDeleteFailed(1)
		}
		event.Emit(q.cfg.Events, event.Event{Type: event.DeleteFailed, Path: path, Error: err})
	}
	q.cfg.Logger.Debug("delete task finished", "failed", len(result.Errors), "files", len(task.Files))
}

