package download

import (
	"time"
)

const (
	defaultConnections       = 4
	defaultChunkRetries      = 6
	defaultSplitChunkRetries = 10
	defaultBackoffDelay      = 5 * time.Second
	defaultBackoffSlices     = 50
)

// ProgressFunc receives transfer progress after every written chunk. It is
// called on the hot path and must return quickly.
type ProgressFunc func(transferred, total int64)

// Options tunes one Downloader. Zero values mean the documented defaults.
type Options struct {
	// ChunkSize is the ranged-request size hint in bytes, clamped by the
	// planner to [1 MiB, 32 MiB]. Zero means 8 MiB.
	ChunkSize int64

	// Connections is the parallelism hint, clamped to [1,32] for single
	// files and [1,16] for split layouts. Zero means 4.
	Connections int

	// ForceSplit selects the split part layout regardless of file size.
	ForceSplit bool

	// PartSize overrides the split part size. Zero means 4 GiB - 64 KiB.
	PartSize int64

	// ChunkRetries is the attempt budget per chunk for single-file
	// parallel downloads. Zero means 6.
	ChunkRetries int

	// SplitChunkRetries is the attempt budget per chunk for split
	// parallel downloads. Zero means 10.
	SplitChunkRetries int

	// BackoffDelay is slept between attempts of the same chunk. Zero
	// means 5s.
	BackoffDelay time.Duration

	// BackoffSlices divides BackoffDelay into short sleeps so a parked
	// worker notices cancellation quickly. Zero means 50.
	BackoffSlices int

	// Force discards local data and restarts the download from scratch.
	Force bool

	// FallbackDir receives downloads whose requested directory cannot be
	// created. Empty means a per-user downloads directory.
	FallbackDir string

	// Progress, when set, is invoked after every chunk write.
	Progress ProgressFunc
}

func (o Options) withDefaults() Options {
	if o.ChunkSize <= 0 {
		o.ChunkSize = defaultChunkSize
	}
	if o.Connections <= 0 {
		o.Connections = defaultConnections
	}
	if o.ChunkRetries <= 0 {
		o.ChunkRetries = defaultChunkRetries
	}
	if o.SplitChunkRetries <= 0 {
		o.SplitChunkRetries = defaultSplitChunkRetries
	}
	if o.BackoffDelay <= 0 {
		o.BackoffDelay = defaultBackoffDelay
	}
	if o.BackoffSlices <= 0 {
		o.BackoffSlices = defaultBackoffSlices
	}
	return o
}
