package sink

import (
	"fmt"
	"os"
	"sync"
)

// File writes the download into a single regular file.
type File struct {
	mu sync.Mutex
	f  *os.File
}

var _ Sink = &File{}

// Create opens path truncated to zero length. Parallel transfers restart
// from offset zero, so stale partial data must not survive.
func Create(path string) (*File, error) {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, fmt.Errorf("error opening file: %w", err)
	}
	return &File{f: f}, nil
}

// OpenExisting opens path keeping whatever is already on disk, so a
// sequential transfer can continue past the resume offset.
func OpenExisting(path string) (*File, error) {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE, 0o644)
	if err != nil {
		return nil, fmt.Errorf("error opening file: %w", err)
	}
	return &File{f: f}, nil
}

// Preallocate extends the file to size bytes by writing a single byte at
// the end, letting the filesystem reserve the span before workers start.
func (s *File) Preallocate(size int64) error {
	if size <= 0 {
		return nil
	}
	if _, err := s.f.WriteAt([]byte{0}, size-1); err != nil {
		return fmt.Errorf("error preallocating file: %w", err)
	}
	return nil
}

func (s *File) WriteAt(p []byte, off int64) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.f.WriteAt(p, off)
}

func (s *File) Close() error {
	return s.f.Close()
}
