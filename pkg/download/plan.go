package download

import "github.com/dustin/go-humanize"

const (
	minChunkSize     int64 = 1 * humanize.MiByte
	maxChunkSize     int64 = 32 * humanize.MiByte
	defaultChunkSize int64 = 8 * humanize.MiByte

	// maxWindow bounds chunkSize*parallel, the bytes held in flight at
	// once.
	maxWindow int64 = 256 * humanize.MiByte

	// splitThreshold is the largest size stored as a single output file.
	// Anything bigger always uses the split part layout.
	splitThreshold int64 = 0xFFFFFFFF

	maxParallelSingle = 32
	maxParallelSplit  = 16
)

// Plan fixes the chunk size, worker count, and output layout for one
// download of a known size.
type Plan struct {
	ChunkSize int64
	Parallel  int
	Split     bool
}

// MakePlan clamps the configured hints against size. The window cap is
// satisfied by shrinking the chunk size, never by dropping workers, and
// the chunk never shrinks below the 1 MiB floor.
func MakePlan(size int64, opts Options) Plan {
	chunk := opts.ChunkSize
	if chunk <= 0 {
		chunk = defaultChunkSize
	}
	if chunk < minChunkSize {
		chunk = minChunkSize
	} else if chunk > maxChunkSize {
		chunk = maxChunkSize
	}

	split := size > splitThreshold || opts.ForceSplit

	maxParallel := maxParallelSingle
	if split {
		maxParallel = maxParallelSplit
	}
	parallel := opts.Connections
	if parallel < 1 {
		parallel = 1
	} else if parallel > maxParallel {
		parallel = maxParallel
	}

	if chunk*int64(parallel) > maxWindow {
		chunk = maxWindow / int64(parallel)
		if chunk < minChunkSize {
			chunk = minChunkSize
		}
	}
	return Plan{ChunkSize: chunk, Parallel: parallel, Split: split}
}

// wantsParallel reports whether the plan justifies parallel execution at
// all; the server still has to pass the range probe.
func (p Plan) wantsParallel(size int64) bool {
	return p.Parallel > 1 && size > p.ChunkSize
}
