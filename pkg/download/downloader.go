package download

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/davget/davget/pkg/client"
	"github.com/davget/davget/pkg/dav"
	"github.com/davget/davget/pkg/fsutil"
	"github.com/davget/davget/pkg/logging"
	"github.com/davget/davget/pkg/sink"
)

// Mode names how a download was executed.
type Mode string

const (
	ModeFallback        Mode = "fallback"
	ModeSequential      Mode = "sequential"
	ModeParallel        Mode = "parallel"
	ModeSequentialSplit Mode = "sequential-split"
	ModeParallelSplit   Mode = "parallel-split"
	ModeComplete        Mode = "already-complete"
)

// Result describes a finished download.
type Result struct {
	BytesTransferred int64
	Size             int64
	Elapsed          time.Duration
	StatusCode       int
	Output           string
	Mode             Mode
}

// Downloader runs the ranged download engine against one Remote.
type Downloader struct {
	remote   *dav.Remote
	resolver fsutil.Resolver
	opts     Options
}

// New returns a Downloader for remote. Zero values in opts fall back to
// the documented defaults.
func New(remote *dav.Remote, opts Options) *Downloader {
	return &Downloader{
		remote:   remote,
		resolver: fsutil.Resolver{Fallback: opts.FallbackDir},
		opts:     opts.withDefaults(),
	}
}

// Get downloads the remote file at path into dest. The size is resolved
// via PROPFIND; when that fails the whole body is fetched in one GET.
// Known sizes go through the chunk planner, which picks sequential or
// parallel execution and a single-file or split layout.
func (d *Downloader) Get(ctx context.Context, path, dest string) (*Result, error) {
	log := logging.GetLogger()
	started := time.Now()

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("download cancelled: %w", err)
	}

	url := d.remote.URL(path)
	size, err := d.remote.Size(ctx, path)
	if err != nil && (errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)) {
		return nil, fmt.Errorf("download cancelled: %w", err)
	}
	if err != nil || size <= 0 {
		log.Info().Str("path", path).AnErr("cause", err).Msg("Size unknown, falling back to single GET")
		res, ferr := d.fallback(ctx, url, dest)
		if ferr != nil {
			return nil, ferr
		}
		res.Elapsed = time.Since(started)
		d.logPerf(url, res)
		return res, nil
	}

	plan := MakePlan(size, d.opts)
	log.Debug().
		Str("url", url).
		Int64("size", size).
		Int64("chunk_size", plan.ChunkSize).
		Int("connections", plan.Parallel).
		Bool("split", plan.Split).
		Msg("Planned download")

	var res *Result
	if plan.Split {
		res, err = d.getSplit(ctx, url, dest, size, plan)
	} else {
		res, err = d.getSingle(ctx, url, dest, size, plan)
	}
	if err != nil {
		return nil, err
	}
	res.Size = size
	res.Elapsed = time.Since(started)
	d.logPerf(url, res)
	return res, nil
}

func (d *Downloader) getSingle(ctx context.Context, url, dest string, size int64, plan Plan) (*Result, error) {
	log := logging.GetLogger()
	output, err := d.resolver.ResolveTarget(dest)
	if err != nil {
		return nil, err
	}

	if !d.opts.Force {
		local := localFileSize(output)
		if local > 0 && local < size {
			log.Info().
				Str("output", output).
				Int64("local_size", local).
				Int64("remote_size", size).
				Msg("Resuming sequential download")
			snk, err := sink.OpenExisting(output)
			if err != nil {
				return nil, err
			}
			n, status, derr := d.sequential(ctx, d.remote.DataSession(), url, size, plan.ChunkSize, local, snk)
			return finishSink(snk, &Result{BytesTransferred: n, StatusCode: status, Output: output, Mode: ModeSequential}, derr)
		}
		if local > 0 && local >= size {
			return nil, fmt.Errorf("%s already has %s: %w", output, humanize.IBytes(uint64(local)), ErrDestinationExists)
		}
	}

	useParallel := plan.wantsParallel(size) && d.probe(ctx, url)
	snk, err := sink.Create(output)
	if err != nil {
		return nil, err
	}

	if useParallel {
		if err := snk.Preallocate(size); err != nil {
			_ = snk.Close()
			return nil, err
		}
		n, status, derr := d.runParallel(ctx, url, size, plan, snk, d.opts.ChunkRetries)
		return finishSink(snk, &Result{BytesTransferred: n, StatusCode: status, Output: output, Mode: ModeParallel}, derr)
	}
	n, status, derr := d.sequential(ctx, d.remote.DataSession(), url, size, plan.ChunkSize, 0, snk)
	return finishSink(snk, &Result{BytesTransferred: n, StatusCode: status, Output: output, Mode: ModeSequential}, derr)
}

func (d *Downloader) getSplit(ctx context.Context, url, dest string, size int64, plan Plan) (*Result, error) {
	log := logging.GetLogger()
	base, err := d.resolver.ResolveTarget(dest)
	if err != nil {
		return nil, err
	}
	partSize := d.opts.PartSize
	if partSize <= 0 {
		partSize = sink.PartSize
	}

	if d.opts.Force {
		if err := os.RemoveAll(base); err != nil {
			return nil, fmt.Errorf("removing %s: %w", base, err)
		}
	}

	local := sink.LocalSize(base, partSize)
	if local >= size {
		log.Info().Str("output", base).Int64("size", size).Msg("Split download already complete")
		return &Result{BytesTransferred: size, Output: base, Mode: ModeComplete}, nil
	}

	if plan.wantsParallel(size) && d.probe(ctx, url) {
		snk, err := sink.OpenSplit(base, partSize)
		if err != nil {
			return nil, err
		}
		n, status, derr := d.runParallel(ctx, url, size, plan, snk, d.opts.SplitChunkRetries)
		return finishSink(snk, &Result{BytesTransferred: n, StatusCode: status, Output: base, Mode: ModeParallelSplit}, derr)
	}

	snk, err := sink.OpenSplit(base, partSize)
	if err != nil {
		return nil, err
	}
	if local > 0 {
		log.Info().
			Str("output", base).
			Int64("local_size", local).
			Int64("remote_size", size).
			Msg("Resuming split download")
	}
	n, status, derr := d.sequential(ctx, d.remote.DataSession(), url, size, plan.ChunkSize, local, snk)
	return finishSink(snk, &Result{BytesTransferred: n, StatusCode: status, Output: base, Mode: ModeSequentialSplit}, derr)
}

// fallback fetches the whole body in one unranged GET when the size could
// not be resolved. Any 2xx is accepted and the body may legitimately be
// empty.
func (d *Downloader) fallback(ctx context.Context, url, dest string) (*Result, error) {
	resp, err := d.remote.Control().Get(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("fallback get: %w", err)
	}
	if !resp.Success() {
		return nil, fmt.Errorf("fallback get: %w", client.ErrUnexpectedStatus(resp.StatusCode))
	}
	if err := os.WriteFile(dest, resp.Body, 0o644); err != nil {
		return nil, fmt.Errorf("writing %s: %w", dest, err)
	}
	n := int64(len(resp.Body))
	return &Result{BytesTransferred: n, Size: n, StatusCode: resp.StatusCode, Output: dest, Mode: ModeFallback}, nil
}

// probe reports whether the server honors byte ranges; only a 206 for the
// one-byte probe counts.
func (d *Downloader) probe(ctx context.Context, url string) bool {
	log := logging.GetLogger()
	resp, err := d.remote.Control().Get(ctx, url, map[string]string{"Range": "bytes=0-0"})
	if err != nil {
		log.Warn().Str("url", url).Err(err).Msg("Range probe failed")
		return false
	}
	if resp.StatusCode != http.StatusPartialContent {
		log.Debug().Str("url", url).Int("status", resp.StatusCode).Msg("Range probe unsupported")
		return false
	}
	return true
}

func (d *Downloader) logPerf(url string, res *Result) {
	elapsed := res.Elapsed.Seconds()
	var throughput float64
	if elapsed > 0 {
		throughput = float64(res.BytesTransferred) / elapsed / float64(humanize.MiByte)
	}
	logging.GetLogger().Info().
		Str("url", url).
		Str("output", res.Output).
		Str("mode", string(res.Mode)).
		Str("size", humanize.IBytes(uint64(res.BytesTransferred))).
		Str("elapsed", fmt.Sprintf("%.2fs", elapsed)).
		Str("throughput", fmt.Sprintf("%.2f MiB/s", throughput)).
		Msg("Complete")
}

// finishSink closes the sink, preferring the transfer error over any close
// error.
func finishSink(s sink.Sink, res *Result, err error) (*Result, error) {
	cerr := s.Close()
	if err != nil {
		return nil, err
	}
	if cerr != nil {
		return nil, fmt.Errorf("closing output: %w", cerr)
	}
	return res, nil
}

func localFileSize(path string) int64 {
	st, err := os.Stat(path)
	if err != nil || st.IsDir() {
		return 0
	}
	return st.Size()
}
