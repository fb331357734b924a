package sink

import "io"

// Sink receives ranged writes from download workers. Implementations
// serialize WriteAt internally so workers holding disjoint ranges can write
// without further coordination.
type Sink interface {
	io.WriterAt
	io.Closer
}
