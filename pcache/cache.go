package pcache

import (
	"context"
	"io"
	"sync"
	"sync/atomic"

	"github.com/arloliu/blobkit/errs"
)

// shardPrime mixes a file id and page index into a shard index; the exact
// constant doesn't matter, only that it scrambles adjacent page indices
// across shards so a sequential scan doesn't hammer one shard's mutex.
const shardPrime = 0x9E3779B185EBCA87

// pin is one (shard, page) pair a Buffer is holding a reference to.
type pin struct {
	shard *shard
	page  *page
}

// Buffer is a caller-held view into cached bytes: either a zero-copy slice
// into a single pinned page, or a caller-owned copy assembled from several
// page fragments. Discard releases any held page references; it is safe to
// call more than once.
type Buffer struct {
	pins []pin
	view []byte
}

// Bytes returns the buffer's current view. It is only valid until Discard
// is called.
func (b *Buffer) Bytes() []byte { return b.view }

// Discard releases every page reference this buffer holds.
func (b *Buffer) Discard() {
	for _, pn := range b.pins {
		pn.shard.release(pn.page)
	}
	b.pins = nil
}

// Cache is the sharded concurrent page cache. Zero value is not usable;
// construct with New.
type Cache struct {
	shards []*shard

	nextFI int64

	srcMu   sync.RWMutex
	sources map[int64]io.ReaderAt
	pending map[int64]bool
}

// New builds a cache of numShards independent shards, each budgeted for
// pagesPerShard resident 4KiB pages.
func New(numShards, pagesPerShard int) *Cache {
	if numShards < 1 {
		numShards = 1
	}
	shards := make([]*shard, numShards)
	for i := range shards {
		shards[i] = newShard(pagesPerShard)
	}

	return &Cache{
		shards:  shards,
		sources: make(map[int64]io.ReaderAt),
		pending: make(map[int64]bool),
	}
}

// Open registers src under a freshly allocated, cluster-wide file id; the
// same id is valid against every shard.
func (c *Cache) Open(src io.ReaderAt) int64 {
	fi := atomic.AddInt64(&c.nextFI, 1)
	c.srcMu.Lock()
	c.sources[fi] = src
	c.srcMu.Unlock()

	return fi
}

// Close drops fi's source immediately; any concurrent Pread against fi
// afterward is the caller's responsibility to avoid, matching the spec's
// "subsequent pread is UB" contract for the hard close.
func (c *Cache) Close(fi int64) {
	c.srcMu.Lock()
	delete(c.sources, fi)
	delete(c.pending, fi)
	c.srcMu.Unlock()
}

// SafeClose marks fi pending-drop: outstanding pins keep working, new
// Preads against fi fail, and fi's pages become eviction donors as they are
// released.
func (c *Cache) SafeClose(fi int64) {
	c.srcMu.Lock()
	c.pending[fi] = true
	delete(c.sources, fi)
	c.srcMu.Unlock()

	for _, sh := range c.shards {
		sh.markPendingDrop(fi)
	}
}

func (c *Cache) lookupSource(fi int64) (io.ReaderAt, bool, error) {
	c.srcMu.RLock()
	defer c.srcMu.RUnlock()

	if c.pending[fi] {
		return nil, false, errs.ErrInvalidFileHandle
	}
	src, open := c.sources[fi]
	if !open {
		return nil, false, errs.ErrInvalidFileHandle
	}

	return src, true, nil
}

func (c *Cache) shardFor(fi int64, idx uint64) *shard {
	h := uint64(fi)*shardPrime ^ idx

	return c.shards[h%uint64(len(c.shards))]
}

// fetch returns the pinned, loaded page covering (fi, idx), pulling it
// through src on a miss and cooperatively waiting on a concurrent loader's
// completion signal on a race.
func (s *shard) fetch(ctx context.Context, fi int64, idx uint64, src io.ReaderAt) (*page, error) {
	key := pageKey{fi: fi, idx: idx}

	s.mu.Lock()
	if p, ok := s.table[key]; ok {
		s.pin(p)
		s.admit.touch(key)
		s.mu.Unlock()

		if err := waitLoaded(ctx, p); err != nil {
			s.release(p)

			return nil, err
		}
		if !p.loaded {
			// the concurrent loader failed; its error already surfaced there
			s.release(p)

			return nil, errs.ErrShortRead
		}

		return p, nil
	}

	p, err := s.allocPage(key)
	if err != nil {
		s.mu.Unlock()

		return nil, err
	}
	s.table[key] = p
	if s.fileSet[fi] == nil {
		s.fileSet[fi] = make(map[*page]struct{})
	}
	s.fileSet[fi][p] = struct{}{}
	s.admit.touch(key)
	s.mu.Unlock()

	n, rerr := src.ReadAt(p.data[:], int64(idx)*PageSize)
	if rerr != nil && rerr != io.EOF {
		s.mu.Lock()
		s.unlinkLocked(p)
		close(p.done)
		s.unpin(p) // drop the allocator's own pin; waiters drop theirs on !loaded
		s.mu.Unlock()

		return nil, rerr
	}

	s.mu.Lock()
	p.size = n
	p.loaded = true
	close(p.done)
	s.mu.Unlock()

	return p, nil
}

func waitLoaded(ctx context.Context, p *page) error {
	select {
	case <-p.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Pread reads length bytes at offset from fi, returning a zero-copy Buffer
// when the request fits in a single page, or a caller-owned copy assembled
// from every covered page's fragment otherwise.
func (c *Cache) Pread(ctx context.Context, fi int64, offset, length int64) (*Buffer, error) {
	if length <= 0 {
		return &Buffer{}, nil
	}

	src, _, err := c.lookupSource(fi)
	if err != nil {
		return nil, err
	}

	firstPage := uint64(offset) / PageSize
	lastPage := uint64(offset+length-1) / PageSize

	if firstPage == lastPage {
		sh := c.shardFor(fi, firstPage)
		p, err := sh.fetch(ctx, fi, firstPage, src)
		if err != nil {
			return nil, err
		}
		start := int(uint64(offset) % PageSize)
		end := start + int(length)
		if end > p.size {
			sh.release(p)

			return nil, errs.ErrShortRead
		}

		return &Buffer{pins: []pin{{sh, p}}, view: p.data[start:end]}, nil
	}

	var pins []pin
	out := make([]byte, length)
	written := int64(0)

	releaseAll := func() {
		for _, pn := range pins {
			pn.shard.release(pn.page)
		}
	}

	for idx := firstPage; idx <= lastPage; idx++ {
		sh := c.shardFor(fi, idx)
		p, err := sh.fetch(ctx, fi, idx, src)
		if err != nil {
			releaseAll()

			return nil, err
		}
		pins = append(pins, pin{sh, p})

		pageStart := int64(idx) * PageSize
		fragStart := int64(0)
		if pageStart < offset {
			fragStart = offset - pageStart
		}
		fragEnd := int64(PageSize)
		if pageStart+PageSize > offset+length {
			fragEnd = offset + length - pageStart
		}
		if fragEnd > int64(p.size) {
			releaseAll()

			return nil, errs.ErrShortRead
		}
		n := copy(out[written:], p.data[fragStart:fragEnd])
		written += int64(n)
	}

	releaseAll()

	return &Buffer{view: out[:written]}, nil
}
