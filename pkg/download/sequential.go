package download

import (
	"context"
	"fmt"
	"net/http"

	"github.com/davget/davget/pkg/client"
	"github.com/davget/davget/pkg/logging"
	"github.com/davget/davget/pkg/sink"
)

// sequential walks the file in order from start, one ranged GET at a time,
// with no per-chunk retries. A 200 means the server ignored Range and sent
// everything, so the loop ends after that write; an empty body is natural
// EOF. The returned offset includes start, so a resumed download that hits
// EOF immediately still counts the bytes already on disk.
func (d *Downloader) sequential(ctx context.Context, req Requester, url string, size, chunk, start int64, snk sink.Sink) (int64, int, error) {
	log := logging.GetLogger()
	offset := start
	lastStatus := 0
	for offset < size {
		if err := ctx.Err(); err != nil {
			return offset, lastStatus, fmt.Errorf("download cancelled: %w", err)
		}
		end := offset + chunk - 1
		if end > size-1 {
			end = size - 1
		}
		resp, err := req.Get(ctx, url, rangeHeader(offset, end))
		if err != nil {
			return offset, lastStatus, fmt.Errorf("chunk %d-%d: %w", offset, end, err)
		}
		if resp.StatusCode != http.StatusPartialContent && resp.StatusCode != http.StatusOK {
			return offset, lastStatus, fmt.Errorf("chunk %d-%d: %w", offset, end, client.ErrUnexpectedStatus(resp.StatusCode))
		}
		lastStatus = resp.StatusCode
		if len(resp.Body) == 0 {
			log.Debug().Str("url", url).Int64("offset", offset).Msg("Empty body, treating as EOF")
			break
		}
		if _, err := snk.WriteAt(resp.Body, offset); err != nil {
			return offset, lastStatus, fmt.Errorf("chunk %d-%d: %w", offset, end, err)
		}
		offset += int64(len(resp.Body))
		if d.opts.Progress != nil {
			d.opts.Progress(offset, size)
		}
		if resp.StatusCode == http.StatusOK {
			break
		}
	}
	if offset <= 0 {
		return 0, lastStatus, ErrNoData
	}
	return offset, lastStatus, nil
}
