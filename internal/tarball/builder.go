package tarball

import (
	"bytes"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

const initialCapacity = 1 << 20 // 1 MiB

// Builder accumulates members into an in-memory container.
type Builder struct {
	buf      bytes.Buffer
	members  int
	finished bool
}

// NewBuilder returns a Builder whose buffer is pre-sized for sizeHint bytes
// of member data (0 means 1 MiB).
func NewBuilder(sizeHint int) *Builder {
	b := &Builder{}
	if sizeHint <= 0 {
		sizeHint = initialCapacity
	}
	b.buf.Grow(sizeHint)
	return b
}

// Add appends one member built from hdr and data. hdr.Size is taken from
// len(data).
func (b *Builder) Add(hdr Header, data []byte) error {
	if b.finished {
		return fmt.Errorf("add %s: builder already finished", hdr.Name)
	}
	hdr.Size = int64(len(data))
	blk, err := hdr.Encode()
	if err != nil {
		return err
	}
	b.buf.Write(blk[:])
	b.buf.Write(data)
	b.buf.Write(make([]byte, paddingFor(hdr.Size)))
	b.members++
	return nil
}

// AddFile reads the file at path and appends it under its base name.
func (b *Builder) AddFile(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("stat %s: %w", path, err)
	}
	if !info.Mode().IsRegular() {
		return fmt.Errorf("%s is not a regular file", path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	return b.Add(Header{
		Name:    filepath.Base(path),
		ModTime: info.ModTime(),
	}, data)
}

// Members returns the number of members added so far.
func (b *Builder) Members() int { return b.members }

// Bytes appends the two-block terminator (once) and returns the container.
func (b *Builder) Bytes() []byte {
	if !b.finished {
		b.buf.Write(make([]byte, 2*BlockSize))
		b.finished = true
	}
	return b.buf.Bytes()
}

// Build archives paths in order. A member that cannot be read is logged and
// left out; its path is returned in skipped.
func Build(paths []string, logger *slog.Logger) (data []byte, skipped []string) {
	if logger == nil {
		logger = slog.Default()
	}

	var hint int64
	for _, p := range paths {
		if info, err := os.Stat(p); err == nil {
			hint += BlockSize + info.Size() + paddingFor(info.Size())
		}
	}

	b := NewBuilder(int(hint) + 2*BlockSize)
	for _, p := range paths {
		if err := b.AddFile(p); err != nil {
			logger.Warn("skipping archive member", "path", p, "error", err)
			skipped = append(skipped, p)
		}
	}
	return b.Bytes(), skipped
}
