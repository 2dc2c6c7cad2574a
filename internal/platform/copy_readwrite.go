package platform

import (
	"io"
	"os"
	"sync"
)

const bufferSize = 1 << 20 // 1 MiB

var bufPool = sync.Pool{
	New: func() any {
		b := make([]byte, bufferSize)
		return &b
	},
}

// copyReadWrite copies size bytes from the start of in to the start of out
// using positioned reads and writes through a pooled buffer.
func copyReadWrite(in, out *os.File, size int64) (CopyResult, error) {
	bufp := bufPool.Get().(*[]byte)
	defer bufPool.Put(bufp)
	buf := *bufp

	var offset int64
	for offset < size {
		toRead := min(size-offset, bufferSize)

		n, err := in.ReadAt(buf[:toRead], offset)
		if n > 0 {
			if _, werr := out.WriteAt(buf[:n], offset); werr != nil {
				return CopyResult{BytesWritten: offset, Method: ReadWrite}, werr
			}
			offset += int64(n)
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return CopyResult{BytesWritten: offset, Method: ReadWrite}, err
		}
	}

	return CopyResult{BytesWritten: offset, Method: ReadWrite}, nil
}
