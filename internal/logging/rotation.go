package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
)

// RotatingWriter caps a log file's size. Mirrored cmake and compiler
// output can run to hundreds of megabytes on large builds, so the file
// rolls over once it would pass the limit. Safe for concurrent use; the
// work queue writes tool output from several goroutines.
type RotatingWriter struct {
	mu    sync.Mutex
	f     *os.File
	path  string
	size  int64
	limit int64
	keep  int
}

// NewRotatingWriter opens path for appending. Once writes would push the
// file past maxSizeMB it is renamed to path.1 and a fresh file started,
// keeping maxBackups rotated files. Zero or negative arguments fall back
// to 10 MB and 2 backups.
func NewRotatingWriter(path string, maxSizeMB, maxBackups int) (*RotatingWriter, error) {
	if maxSizeMB <= 0 {
		maxSizeMB = 10
	}
	if maxBackups <= 0 {
		maxBackups = 2
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("creating log directory: %w", err)
	}

	rw := &RotatingWriter{
		path:  path,
		limit: int64(maxSizeMB) << 20,
		keep:  maxBackups,
	}
	if err := rw.open(); err != nil {
		return nil, err
	}
	return rw, nil
}

// Write appends p, rotating first when it would cross the size limit.
func (rw *RotatingWriter) Write(p []byte) (int, error) {
	rw.mu.Lock()
	defer rw.mu.Unlock()

	if rw.size+int64(len(p)) > rw.limit {
		if err := rw.rotate(); err != nil {
			return 0, fmt.Errorf("rotating log: %w", err)
		}
	}
	n, err := rw.f.Write(p)
	rw.size += int64(n)
	return n, err
}

// Close releases the underlying file.
func (rw *RotatingWriter) Close() error {
	rw.mu.Lock()
	defer rw.mu.Unlock()

	if rw.f == nil {
		return nil
	}
	err := rw.f.Close()
	rw.f = nil
	return err
}

func (rw *RotatingWriter) open() error {
	f, err := os.OpenFile(rw.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("opening log file: %w", err)
	}
	st, err := f.Stat()
	if err != nil {
		f.Close()
		return fmt.Errorf("stating log file: %w", err)
	}
	rw.f = f
	rw.size = st.Size()
	return nil
}

// rotate shifts older backups up one slot, drops the one past keep and
// renames the live file to .1. Renames of missing backups are ignored.
func (rw *RotatingWriter) rotate() error {
	if rw.f != nil {
		rw.f.Close()
	}

	os.Remove(fmt.Sprintf("%s.%d", rw.path, rw.keep))
	for i := rw.keep - 1; i >= 1; i-- {
		os.Rename(fmt.Sprintf("%s.%d", rw.path, i), fmt.Sprintf("%s.%d", rw.path, i+1))
	}
	os.Rename(rw.path, rw.path+".1")

	return rw.open()
}

// TeeWriter mirrors writes to both sinks, so tool output reaches the
// console and the build log in one pass.
func TeeWriter(a, b io.Writer) io.Writer {
	return io.MultiWriter(a, b)
}
