//go:build unix

package loader

import (
	"os"

	"golang.org/x/sys/unix"
)

type mmapCloser struct {
	data []byte
}

func (c mmapCloser) Close() error {
	return unix.Munmap(c.data)
}

// tryMap attempts a read-only, copy-on-write mapping of path. It reports
// ok=false on any failure so the caller can fall back to a plain read
// without surfacing a partial error: an unmappable file (a pipe, a file
// on a file system without mmap support, a permissions problem that only
// shows up at mmap time) is exactly the condition the fallback exists for.
func tryMap(path string) (data []byte, closer Closer, ok bool) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, false
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil || info.Size() == 0 {
		return nil, nil, false
	}

	mapped, err := unix.Mmap(int(f.Fd()), 0, int(info.Size()), unix.PROT_READ, unix.MAP_PRIVATE)
	if err != nil {
		return nil, nil, false
	}
	return mapped, mmapCloser{data: mapped}, true
}
