package sink

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// PartSize is the default span of one part file: 4 GiB minus 64 KiB, so a
// part never exceeds what 32-bit offset APIs and older filesystems handle.
const PartSize = int64(4<<30 - 64<<10)

// SplitWriter fans one logical file out into numbered part files under a
// directory named after the target. Offsets map to parts by integer
// division; one part is held open at a time.
type SplitWriter struct {
	mu       sync.Mutex
	dir      string
	partSize int64
	idx      int
	part     *os.File
}

var _ Sink = &SplitWriter{}

// OpenSplit prepares the part directory at base. A plain file left at base
// by an earlier non-split download is removed first.
func OpenSplit(base string, partSize int64) (*SplitWriter, error) {
	if partSize <= 0 {
		partSize = PartSize
	}
	if st, err := os.Stat(base); err == nil && !st.IsDir() {
		if err := os.Remove(base); err != nil {
			return nil, fmt.Errorf("error replacing file with part directory: %w", err)
		}
	}
	if err := os.MkdirAll(base, 0o755); err != nil {
		return nil, fmt.Errorf("error creating part directory: %w", err)
	}
	return &SplitWriter{dir: base, partSize: partSize, idx: -1}, nil
}

// WriteAt writes p at the logical offset off, splitting across part
// boundaries as needed. A single call touches at most len(p)/partSize+1
// parts.
func (s *SplitWriter) WriteAt(p []byte, off int64) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	written := 0
	for len(p) > 0 {
		idx := int(off / s.partSize)
		inPart := off % s.partSize
		n := int64(len(p))
		if rem := s.partSize - inPart; n > rem {
			n = rem
		}
		part, err := s.openPart(idx)
		if err != nil {
			return written, err
		}
		w, err := part.WriteAt(p[:n], inPart)
		written += w
		if err != nil {
			return written, fmt.Errorf("error writing part %02d: %w", idx, err)
		}
		p = p[n:]
		off += n
	}
	return written, nil
}

func (s *SplitWriter) openPart(idx int) (*os.File, error) {
	if idx == s.idx && s.part != nil {
		return s.part, nil
	}
	if s.part != nil {
		if err := s.part.Close(); err != nil {
			return nil, fmt.Errorf("error closing part %02d: %w", s.idx, err)
		}
		s.part = nil
	}
	f, err := os.OpenFile(PartPath(s.dir, idx), os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, fmt.Errorf("error opening part %02d: %w", idx, err)
	}
	s.idx = idx
	s.part = f
	return f, nil
}

func (s *SplitWriter) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.part == nil {
		return nil
	}
	err := s.part.Close()
	s.part = nil
	if err != nil {
		return fmt.Errorf("error closing part %02d: %w", s.idx, err)
	}
	return nil
}

// PartPath returns the path of part idx under dir. Parts are numbered with
// two digits so shell globs list them in order.
func PartPath(dir string, idx int) string {
	return filepath.Join(dir, fmt.Sprintf("%02d", idx))
}

// LocalSize reports how many contiguous bytes of a split download are
// already on disk. Counting stops at the first missing, empty, or short
// part; a short part marks the write frontier.
func LocalSize(dir string, partSize int64) int64 {
	if partSize <= 0 {
		partSize = PartSize
	}
	var total int64
	for idx := 0; ; idx++ {
		st, err := os.Stat(PartPath(dir, idx))
		if err != nil {
			break
		}
		sz := st.Size()
		if sz <= 0 {
			break
		}
		total += sz
		if sz < partSize {
			break
		}
	}
	return total
}
