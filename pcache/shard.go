package pcache

import (
	"container/list"
	"sync"

	"github.com/arloliu/blobkit/errs"
)

// maxAdmissionProbe bounds how far back from the LRU tail a shard will walk
// looking for a colder candidate before giving up and evicting the true
// tail regardless.
const maxAdmissionProbe = 4

// shard is one independent slice of the cache: its own mutex, hash table,
// LRU list, per-file page sets, and free list of pending-drop donor pages.
type shard struct {
	mu sync.Mutex

	maxPages  int
	allocated int // page structs minted so far, capped at maxPages

	table map[pageKey]*page
	lru   *list.List // Value is *page; only refCount==0 pages live here

	fileSet     map[int64]map[*page]struct{}
	pendingDrop map[int64]bool
	freeList    []*page

	admit *admission
}

func newShard(maxPages int) *shard {
	if maxPages < 1 {
		maxPages = 1
	}

	return &shard{
		maxPages:    maxPages,
		table:       make(map[pageKey]*page),
		lru:         list.New(),
		fileSet:     make(map[int64]map[*page]struct{}),
		pendingDrop: make(map[int64]bool),
		admit:       newAdmission(maxPages),
	}
}

// pin removes p from the LRU list (if present) and increments its ref
// count. Must be called with s.mu held.
func (s *shard) pin(p *page) {
	if p.refCount == 0 && p.elem != nil {
		s.lru.Remove(p.elem)
		p.elem = nil
	}
	p.refCount++
}

// unpin decrements p's ref count and, once it reaches zero, either hands it
// to the free list (if its file is pending-drop) or reinserts it at the
// front of the LRU list. Must be called with s.mu held.
func (s *shard) unpin(p *page) {
	p.refCount--
	if p.refCount != 0 {
		return
	}
	if s.pendingDrop[p.key.fi] {
		s.unlinkLocked(p)
		s.freeList = append(s.freeList, p)

		return
	}
	p.elem = s.lru.PushFront(p)
}

func (s *shard) release(p *page) {
	s.mu.Lock()
	s.unpin(p)
	s.mu.Unlock()
}

// unlinkLocked removes p from the hash table, its file's page set, and the
// LRU list (if present). Must be called with s.mu held.
func (s *shard) unlinkLocked(p *page) {
	delete(s.table, p.key)
	if set := s.fileSet[p.key.fi]; set != nil {
		delete(set, p)
		if len(set) == 0 {
			delete(s.fileSet, p.key.fi)
		}
	}
	if p.elem != nil {
		s.lru.Remove(p.elem)
		p.elem = nil
	}
}

// markPendingDrop marks fi as pending-drop: its already-unpinned pages move
// straight to the free list; pinned pages follow once unpin observes the
// pending flag.
func (s *shard) markPendingDrop(fi int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.pendingDrop[fi] = true
	for p := range s.fileSet[fi] {
		if p.refCount == 0 {
			s.unlinkLocked(p)
			s.freeList = append(s.freeList, p)
		}
	}
}

// pickVictim returns the LRU element to evict: the tail, unless the
// admission sketch still considers it hot and a colder candidate sits
// within maxAdmissionProbe nodes of it.
func (s *shard) pickVictim() *list.Element {
	e := s.lru.Back()
	if e == nil {
		return nil
	}
	best := e
	for i := 0; i < maxAdmissionProbe; i++ {
		p := e.Value.(*page)
		if !s.admit.hot(p.key) {
			return e
		}
		prev := e.Prev()
		if prev == nil {
			break
		}
		e = prev
	}

	return best
}

// allocPage returns a page struct ready to be keyed and pinned by the
// caller: reused from the free list, freshly minted while under the shard's
// page budget, or reclaimed from the LRU tail. Must be called with s.mu
// held.
func (s *shard) allocPage(key pageKey) (*page, error) {
	var p *page
	switch {
	case len(s.freeList) > 0:
		n := len(s.freeList)
		p = s.freeList[n-1]
		s.freeList = s.freeList[:n-1]
	case s.allocated < s.maxPages:
		p = &page{}
		s.allocated++
	default:
		e := s.pickVictim()
		if e == nil {
			return nil, errs.ErrPageCacheExhausted
		}
		p = e.Value.(*page)
		s.unlinkLocked(p)
	}

	p.key = key
	p.size = 0
	p.loaded = false
	p.elem = nil
	p.done = make(chan struct{})
	p.refCount = 1 // pin transfers to the caller performing the load

	return p, nil
}
