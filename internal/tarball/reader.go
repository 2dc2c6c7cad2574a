package tarball

import (
	"archive/tar"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"
)

// Member is one entry read back from a container.
type Member struct {
	ModTime time.Time
	Name    string
	Data    []byte
}

// ReadAll parses a container produced by Builder (or any ustar writer).
func ReadAll(data []byte) ([]Member, error) {
	tr := tar.NewReader(bytes.NewReader(data))
	var members []Member
	for {
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			return members, nil
		}
		if err != nil {
			return members, fmt.Errorf("read header %d: %w", len(members), err)
		}
		body, err := io.ReadAll(tr)
		if err != nil {
			return members, fmt.Errorf("read %s: %w", hdr.Name, err)
		}
		members = append(members, Member{
			Name:    hdr.Name,
			ModTime: hdr.ModTime,
			Data:    body,
		})
	}
}

// Extract writes every member of data into dir and returns the paths written.
func Extract(data []byte, dir string) ([]string, error) {
	members, err := ReadAll(data)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create %s: %w", dir, err)
	}

	written := make([]string, 0, len(members))
	for _, m := range members {
		name := filepath.Base(m.Name)
		if name != m.Name || name == "." || name == ".." {
			return written, fmt.Errorf("refusing member with path component: %q", m.Name)
		}
		dst := filepath.Join(dir, name)
		if err := os.WriteFile(dst, m.Data, 0o644); err != nil {
			return written, fmt.Errorf("write %s: %w", dst, err)
		}
		if !m.ModTime.IsZero() {
			_ = os.Chtimes(dst, m.ModTime, m.ModTime)
		}
		written = append(written, dst)
	}
	return written, nil
}
