package download

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/davget/davget/pkg/client"
)

func init() {
	zerolog.SetGlobalLevel(zerolog.WarnLevel)
}

func generateTestContent(size int64) []byte {
	content := make([]byte, size)
	for i := range content {
		content[i] = byte(rand.Intn(256))
	}
	return content
}

func testDownloader(opts Options) *Downloader {
	return &Downloader{opts: opts.withDefaults()}
}

// memSink collects writes in memory for assertions.
type memSink struct {
	mu   sync.Mutex
	data []byte
}

func (m *memSink) WriteAt(p []byte, off int64) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if need := int(off) + len(p); need > len(m.data) {
		grown := make([]byte, need)
		copy(grown, m.data)
		m.data = grown
	}
	copy(m.data[off:], p)
	return len(p), nil
}

func (m *memSink) Close() error { return nil }

// stubRequester serves ranges of payload. respond, when set, may override
// single calls; returning (nil, nil) falls through to the payload.
type stubRequester struct {
	mu      sync.Mutex
	payload []byte
	calls   int
	ranges  []string
	respond func(call int, start, end int64) (*client.Response, error)
}

func (s *stubRequester) Get(_ context.Context, _ string, headers map[string]string) (*client.Response, error) {
	s.mu.Lock()
	call := s.calls
	s.calls++
	rng := headers["Range"]
	s.ranges = append(s.ranges, rng)
	s.mu.Unlock()

	var start, end int64
	if _, err := fmt.Sscanf(rng, "bytes=%d-%d", &start, &end); err != nil {
		return nil, fmt.Errorf("bad range header %q: %w", rng, err)
	}
	if s.respond != nil {
		if resp, err := s.respond(call, start, end); resp != nil || err != nil {
			return resp, err
		}
	}
	if end > int64(len(s.payload))-1 {
		end = int64(len(s.payload)) - 1
	}
	return &client.Response{StatusCode: http.StatusPartialContent, Body: s.payload[start : end+1]}, nil
}

func (s *stubRequester) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func TestFetchRangeDownloadsAllChunks(t *testing.T) {
	payload := generateTestContent(100)
	req := &stubRequester{payload: payload}
	cur := newCursor(100, 32)
	snk := &memSink{}
	d := testDownloader(Options{})

	err := d.fetchRange(context.Background(), req, cur, "http://files.local/f", snk, 3)
	require.NoError(t, err)

	transferred, status := cur.progress()
	assert.Equal(t, int64(100), transferred)
	assert.Equal(t, http.StatusPartialContent, status)
	assert.Equal(t, payload, snk.data)
	assert.Equal(t, []string{"bytes=0-31", "bytes=32-63", "bytes=64-95", "bytes=96-99"}, req.ranges)
}

func TestFetchRangeRetriesTransientFailure(t *testing.T) {
	payload := generateTestContent(64)
	req := &stubRequester{payload: payload}
	req.respond = func(call int, start, end int64) (*client.Response, error) {
		if call == 0 {
			return &client.Response{StatusCode: http.StatusServiceUnavailable, Body: []byte("busy")}, nil
		}
		return nil, nil
	}
	cur := newCursor(64, 32)
	snk := &memSink{}
	d := testDownloader(Options{BackoffDelay: 20 * time.Millisecond, BackoffSlices: 2})

	err := d.fetchRange(context.Background(), req, cur, "http://files.local/f", snk, 3)
	require.NoError(t, err)
	assert.Equal(t, payload, snk.data)
	assert.Equal(t, 3, req.callCount(), "first chunk twice, second chunk once")
}

func TestFetchRangeRetriesEmptyBody(t *testing.T) {
	payload := generateTestContent(48)
	req := &stubRequester{payload: payload}
	req.respond = func(call int, start, end int64) (*client.Response, error) {
		if call == 0 {
			return &client.Response{StatusCode: http.StatusPartialContent}, nil
		}
		return nil, nil
	}
	cur := newCursor(48, 48)
	snk := &memSink{}
	d := testDownloader(Options{BackoffDelay: 20 * time.Millisecond, BackoffSlices: 2})

	err := d.fetchRange(context.Background(), req, cur, "http://files.local/f", snk, 3)
	require.NoError(t, err)
	assert.Equal(t, payload, snk.data)
}

func TestFetchRangeGivesUpOnNonRetryableStatus(t *testing.T) {
	req := &stubRequester{payload: generateTestContent(64)}
	req.respond = func(call int, start, end int64) (*client.Response, error) {
		return &client.Response{StatusCode: http.StatusNotFound, Body: []byte("gone")}, nil
	}
	cur := newCursor(64, 32)
	d := testDownloader(Options{BackoffDelay: 20 * time.Millisecond, BackoffSlices: 2})

	err := d.fetchRange(context.Background(), req, cur, "http://files.local/f", &memSink{}, 5)
	require.Error(t, err)

	var statusErr client.HTTPStatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusNotFound, statusErr.StatusCode)
	assert.Equal(t, 1, req.callCount(), "4xx must not be retried")
	assert.True(t, cur.failed())
}

func TestFetchRangeExhaustsRetryBudget(t *testing.T) {
	req := &stubRequester{payload: generateTestContent(64)}
	req.respond = func(call int, start, end int64) (*client.Response, error) {
		return &client.Response{StatusCode: http.StatusBadGateway, Body: []byte("bad")}, nil
	}
	cur := newCursor(64, 64)
	d := testDownloader(Options{BackoffDelay: 10 * time.Millisecond, BackoffSlices: 2})

	err := d.fetchRange(context.Background(), req, cur, "http://files.local/f", &memSink{}, 2)
	require.Error(t, err)

	var statusErr client.HTTPStatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusBadGateway, statusErr.StatusCode)
	assert.Equal(t, 2, req.callCount())
}

func TestFetchRangeSilentWhenFailureAlreadyRecorded(t *testing.T) {
	req := &stubRequester{payload: generateTestContent(64)}
	cur := newCursor(64, 32)
	require.True(t, cur.fail(errors.New("sibling failed")))
	d := testDownloader(Options{})

	err := d.fetchRange(context.Background(), req, cur, "http://files.local/f", &memSink{}, 3)
	assert.NoError(t, err)
	assert.Zero(t, req.callCount(), "no claims after a recorded failure")
}

func TestFetchRangeCancelledDuringBackoff(t *testing.T) {
	req := &stubRequester{payload: generateTestContent(64)}
	req.respond = func(call int, start, end int64) (*client.Response, error) {
		return &client.Response{StatusCode: http.StatusServiceUnavailable}, nil
	}
	cur := newCursor(64, 64)
	d := testDownloader(Options{BackoffDelay: 5 * time.Second, BackoffSlices: 50})

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(150 * time.Millisecond)
		cancel()
	}()

	started := time.Now()
	err := d.fetchRange(ctx, req, cur, "http://files.local/f", &memSink{}, 6)
	elapsed := time.Since(started)

	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Less(t, elapsed, 2*time.Second, "sliced backoff must notice cancellation early")
}

func TestRecordFailureFirstWins(t *testing.T) {
	cur := newCursor(100, 10)
	first := errors.New("first")
	second := errors.New("second")

	assert.Equal(t, first, recordFailure(cur, first))
	assert.NoError(t, recordFailure(cur, second))
}

func TestSleepSlicedHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(100 * time.Millisecond)
		cancel()
	}()

	started := time.Now()
	err := sleepSliced(ctx, 5*time.Second, 50)
	elapsed := time.Since(started)

	assert.ErrorIs(t, err, context.Canceled)
	assert.Less(t, elapsed, 1*time.Second)
}

func TestSleepSlicedCompletes(t *testing.T) {
	err := sleepSliced(context.Background(), 50*time.Millisecond, 5)
	assert.NoError(t, err)
}
