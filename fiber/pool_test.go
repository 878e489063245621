package fiber

import (
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSubmitRunsAllJobs(t *testing.T) {
	p := New(4)
	var count int64
	const n = 100
	for i := 0; i < n; i++ {
		p.Submit(func() { atomic.AddInt64(&count, 1) })
	}
	p.Reap()
	require.Equal(t, int64(n), count)
}

func TestSubmitFallsBackInlineWhenFull(t *testing.T) {
	p := New(1)
	started := make(chan struct{})
	block := make(chan struct{})

	p.Submit(func() {
		close(started)
		<-block
	})
	<-started // the one worker has claimed this job and is now blocked on it

	p.Submit(func() { <-block }) // occupies the one free buffered slot

	var ran int32
	p.Submit(func() { // no free slot left: must run inline, synchronously
		atomic.StoreInt32(&ran, 1)
	})
	require.Equal(t, int32(1), atomic.LoadInt32(&ran))

	close(block)
	p.Reap()
}

func TestReapIsIdempotent(t *testing.T) {
	p := New(2)
	p.Reap()
	require.NotPanics(t, func() { p.Reap() })
}
