package pcache

import (
	"context"
	"sync"
	"testing"

	"github.com/arloliu/blobkit/fiber"
	"github.com/stretchr/testify/require"
)

// TestFiberPoolFansOutConcurrentPreads exercises the §4.9 collaborator
// contract end to end: a fiber.Pool fans Pread calls for many overlapping
// offsets out across its workers (falling back to inline execution once a
// worker's single job slot is full), and every result must still match an
// uncached read of the same bytes.
func TestFiberPoolFansOutConcurrentPreads(t *testing.T) {
	c := New(4, 8)
	src := makeSource(PageSize * 8)
	fi := c.Open(src)

	pool := fiber.New(3)

	const jobs = 64
	var mu sync.Mutex
	results := make([][]byte, jobs)
	errsOut := make([]error, jobs)

	var wg sync.WaitGroup
	wg.Add(jobs)
	for i := 0; i < jobs; i++ {
		i := i
		pool.Submit(func() {
			defer wg.Done()
			off := int64((i * 37) % (PageSize*8 - 16))
			buf, err := c.Pread(context.Background(), fi, off, 16)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errsOut[i] = err

				return
			}
			results[i] = append([]byte(nil), buf.Bytes()...)
			buf.Discard()
		})
	}
	wg.Wait()
	pool.Reap()

	want := make([]byte, PageSize*8)
	for i := range want {
		want[i] = byte(i)
	}

	for i := 0; i < jobs; i++ {
		require.NoError(t, errsOut[i])
		off := int64((i * 37) % (PageSize*8 - 16))
		require.Equal(t, want[off:off+16], results[i])
	}
}
