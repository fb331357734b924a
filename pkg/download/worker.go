package download

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/davget/davget/pkg/client"
	"github.com/davget/davget/pkg/logging"
	"github.com/davget/davget/pkg/sink"
)

// Requester issues one buffered GET. *client.Session satisfies it.
type Requester interface {
	Get(ctx context.Context, url string, headers map[string]string) (*client.Response, error)
}

func rangeHeader(start, end int64) map[string]string {
	return map[string]string{"Range": fmt.Sprintf("bytes=%d-%d", start, end)}
}

// fetchRange claims and downloads chunks until the cursor runs dry. Each
// chunk gets an attempt budget; only a 206 with a non-empty body counts.
// The worker that records the cursor's first failure returns it, so the
// errgroup join surfaces exactly that error and nothing else.
func (d *Downloader) fetchRange(ctx context.Context, req Requester, cur *cursor, url string, snk sink.Sink, attempts int) error {
	log := logging.GetLogger()
	for {
		start, end, ok := cur.claim()
		if !ok {
			return nil
		}

		for attempt := 1; ; attempt++ {
			if cur.failed() {
				return nil
			}
			if err := ctx.Err(); err != nil {
				return recordFailure(cur, fmt.Errorf("download cancelled: %w", err))
			}

			retryable, err := d.fetchOnce(ctx, req, cur, url, snk, start, end)
			if err == nil {
				break
			}
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return recordFailure(cur, fmt.Errorf("download cancelled: %w", err))
			}
			log.Warn().
				Str("url", url).
				Int64("start", start).
				Int64("end", end).
				Int("attempt", attempt).
				Int("attempts", attempts).
				Err(err).
				Msg("Chunk attempt failed")
			if !retryable || attempt >= attempts {
				return recordFailure(cur, fmt.Errorf("chunk %d-%d: %w", start, end, err))
			}
			if err := sleepSliced(ctx, d.opts.BackoffDelay, d.opts.BackoffSlices); err != nil {
				return recordFailure(cur, fmt.Errorf("download cancelled: %w", err))
			}
		}
	}
}

// fetchOnce runs one attempt for [start,end] and reports whether a failure
// is worth retrying: transport errors and 5xx responses are, other status
// codes are not, and an empty body is retried in case the server served a
// bad range once.
func (d *Downloader) fetchOnce(ctx context.Context, req Requester, cur *cursor, url string, snk sink.Sink, start, end int64) (retryable bool, err error) {
	resp, err := req.Get(ctx, url, rangeHeader(start, end))
	if err != nil {
		return true, err
	}
	if resp.StatusCode != http.StatusPartialContent {
		return resp.StatusCode >= 500, client.ErrUnexpectedStatus(resp.StatusCode)
	}
	if len(resp.Body) == 0 {
		return true, ErrEmptyBody
	}
	if _, err := snk.WriteAt(resp.Body, start); err != nil {
		return false, err
	}
	transferred := cur.advance(int64(len(resp.Body)), resp.StatusCode)
	if d.opts.Progress != nil {
		d.opts.Progress(transferred, cur.size)
	}
	return false, nil
}

// recordFailure returns err only when this call recorded it first.
func recordFailure(cur *cursor, err error) error {
	if cur.fail(err) {
		return err
	}
	return nil
}

// sleepSliced waits delay in slices so a parked worker still notices
// cancellation within one slice.
func sleepSliced(ctx context.Context, delay time.Duration, slices int) error {
	if slices < 1 {
		slices = 1
	}
	slice := delay / time.Duration(slices)
	for i := 0; i < slices; i++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(slice):
		}
	}
	return nil
}
