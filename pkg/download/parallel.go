package download

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/davget/davget/pkg/sink"
)

// runParallel fans workers out over a shared cursor, each with its own
// transport session. The group carries no derived context: a failure stops
// new claims through the cursor but lets siblings finish the attempt they
// are on.
func (d *Downloader) runParallel(ctx context.Context, url string, size int64, plan Plan, snk sink.Sink, attempts int) (int64, int, error) {
	cur := newCursor(size, plan.ChunkSize)
	var g errgroup.Group
	for i := 0; i < plan.Parallel; i++ {
		req := d.remote.DataSession()
		g.Go(func() error {
			return d.fetchRange(ctx, req, cur, url, snk, attempts)
		})
	}
	err := g.Wait()
	transferred, lastStatus := cur.progress()
	if err != nil {
		return transferred, lastStatus, err
	}
	if transferred <= 0 {
		return transferred, lastStatus, ErrNoData
	}
	return transferred, lastStatus, nil
}
