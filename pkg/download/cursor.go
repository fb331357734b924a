package download

import "sync"

// cursor hands out chunk ranges to workers and holds the shared transfer
// state. The first recorded error wins; once set, claims are denied so
// siblings drain after finishing their current attempt.
type cursor struct {
	mu          sync.Mutex
	next        int64
	size        int64
	chunk       int64
	transferred int64
	lastStatus  int
	err         error
}

func newCursor(size, chunk int64) *cursor {
	return &cursor{size: size, chunk: chunk}
}

// claim reserves the next chunk range [start,end], both inclusive. ok is
// false once the file is fully claimed or a failure was recorded.
func (c *cursor) claim() (start, end int64, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil || c.next >= c.size {
		return 0, 0, false
	}
	start = c.next
	end = start + c.chunk - 1
	if end > c.size-1 {
		end = c.size - 1
	}
	c.next = end + 1
	return start, end, true
}

// fail records err unless a failure is already recorded, and reports
// whether this call was the recording one.
func (c *cursor) fail(err error) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return false
	}
	c.err = err
	return true
}

func (c *cursor) failed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err != nil
}

// advance accounts a written chunk and the status code that delivered it,
// returning the running total.
func (c *cursor) advance(n int64, status int) int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.transferred += n
	c.lastStatus = status
	return c.transferred
}

func (c *cursor) progress() (transferred int64, lastStatus int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.transferred, c.lastStatus
}
