package log

import (
	"io"
	"os"
	"sync"

	"github.com/fxamacker/cbor/v2"
)

// FileLogger appends CBOR-encoded events to a file. It is safe for
// concurrent use.
//
// With a size limit set, the file is moved to "<path>.1" once it grows past
// the limit and a fresh file is started, so at most two generations exist.
type FileLogger struct {
	mu      sync.Mutex
	path    string
	maxSize int64

	file    *os.File
	size    int64
	enc     *cbor.Encoder
	dropped uint64
	closed  bool
}

// NewFileLogger opens path for appending, creating it if needed.
func NewFileLogger(path string) (*FileLogger, error) {
	return NewRotatingFileLogger(path, 0)
}

// NewRotatingFileLogger is NewFileLogger with a size limit in bytes.
// A limit of zero or less disables rotation.
func NewRotatingFileLogger(path string, maxSize int64) (*FileLogger, error) {
	l := &FileLogger{path: path, maxSize: maxSize}
	if err := l.open(); err != nil {
		return nil, err
	}
	return l, nil
}

func (l *FileLogger) open() error {
	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return err
	}
	l.file = f
	l.size = info.Size()
	l.enc = NewEncoder(&sizeCounter{w: f, n: &l.size})
	return nil
}

// Log appends event. Events that cannot be written are counted, not
// reported; logging never fails the caller's I/O.
func (l *FileLogger) Log(event Event) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return
	}
	if l.maxSize > 0 && l.size >= l.maxSize {
		if err := l.rotate(); err != nil {
			l.dropped++
			return
		}
	}
	if err := l.enc.Encode(event); err != nil {
		l.dropped++
	}
}

// rotate must be called with l.mu held.
func (l *FileLogger) rotate() error {
	if err := l.file.Close(); err != nil {
		return err
	}
	if err := os.Rename(l.path, l.path+".1"); err != nil {
		return err
	}
	return l.open()
}

// Dropped returns the number of events that could not be written.
func (l *FileLogger) Dropped() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.dropped
}

// Close closes the file. Later Log calls are ignored and later Close calls
// return nil.
func (l *FileLogger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return nil
	}
	l.closed = true
	return l.file.Close()
}

type sizeCounter struct {
	w io.Writer
	n *int64
}

func (c *sizeCounter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	*c.n += int64(n)
	return n, err
}

var _ Logger = (*FileLogger)(nil)
