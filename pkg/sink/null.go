package sink

// Discard accepts and drops every write. It stands in for a real sink when
// measuring transfer speed without disk involvement.
type Discard struct{}

var _ Sink = Discard{}

func (Discard) WriteAt(p []byte, off int64) (int, error) {
	return len(p), nil
}

func (Discard) Close() error {
	return nil
}
