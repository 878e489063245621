// Package pcache implements the sharded concurrent page cache: M
// independent shards, each holding fixed 4KiB pages behind a hash table and
// an LRU list, with per-shard mutexes and cooperative load-wait instead of
// a spin loop.
package pcache

import "container/list"

// PageSize is the fixed page granularity every shard allocates in.
const PageSize = 4096

// pageKey identifies a page by owning file id and page index, mirroring the
// spec's `(fi << 32) | (offset >> 12)` hash key without hand-rolling the
// bit-packing: Go map keys on the (fi, idx) struct directly.
type pageKey struct {
	fi  int64
	idx uint64
}

// page is one cache slot. Once allocated, a page struct is reused across
// evictions rather than freed, so its fields are reset by allocPage on reuse
// instead of letting the GC churn through new allocations.
type page struct {
	key      pageKey
	data     [PageSize]byte
	size     int // bytes actually filled; short only for a file's last page
	refCount int32
	loaded   bool
	done     chan struct{} // closed once the loader finishes pread

	// elem is non-nil exactly when refCount == 0 and the page sits in the
	// shard's LRU list; pinning removes it, unpinning reinserts at front.
	elem *list.Element
}
