package download

import (
	"errors"
	"sort"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCursorPartitionsFile(t *testing.T) {
	cur := newCursor(10000000, 4000000)

	type span struct{ start, end int64 }
	var spans []span
	for {
		start, end, ok := cur.claim()
		if !ok {
			break
		}
		spans = append(spans, span{start, end})
	}

	require.Equal(t, []span{
		{0, 3999999},
		{4000000, 7999999},
		{8000000, 9999999},
	}, spans)
}

func TestCursorExactMultiple(t *testing.T) {
	cur := newCursor(8, 4)

	start, end, ok := cur.claim()
	require.True(t, ok)
	assert.Equal(t, int64(0), start)
	assert.Equal(t, int64(3), end)

	start, end, ok = cur.claim()
	require.True(t, ok)
	assert.Equal(t, int64(4), start)
	assert.Equal(t, int64(7), end)

	_, _, ok = cur.claim()
	assert.False(t, ok)
}

func TestCursorFirstErrorWins(t *testing.T) {
	cur := newCursor(100, 10)
	first := errors.New("first failure")
	second := errors.New("second failure")

	assert.True(t, cur.fail(first))
	assert.False(t, cur.fail(second))
	assert.True(t, cur.failed())
	assert.Equal(t, first, cur.err)

	_, _, ok := cur.claim()
	assert.False(t, ok, "claims must be denied after a failure")
}

func TestCursorConcurrentClaimsAreDisjoint(t *testing.T) {
	const size = 1000
	const chunk = 7
	cur := newCursor(size, chunk)

	var mu sync.Mutex
	var starts []int64
	covered := int64(0)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				start, end, ok := cur.claim()
				if !ok {
					return
				}
				mu.Lock()
				starts = append(starts, start)
				covered += end - start + 1
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(size), covered)
	sort.Slice(starts, func(i, j int) bool { return starts[i] < starts[j] })
	for i, s := range starts {
		assert.Equal(t, int64(i*chunk), s)
	}
}

func TestCursorAccounting(t *testing.T) {
	cur := newCursor(100, 10)

	assert.Equal(t, int64(10), cur.advance(10, 206))
	assert.Equal(t, int64(25), cur.advance(15, 206))

	transferred, status := cur.progress()
	assert.Equal(t, int64(25), transferred)
	assert.Equal(t, 206, status)
}
