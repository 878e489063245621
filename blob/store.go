// Package blob implements the blob store family (§4.5, §4.6): addressable,
// immutable, random-access containers of byte records. Every concrete store
// implements the Store interface; Reorder and Purge produce new,
// independently finalized stores rather than mutating in place.
package blob

import (
	"context"

	"github.com/arloliu/blobkit/errs"
)

// MetadataView is a zero-copy view into a store's backing memory, returned
// by Metadata so a caller can later substitute an equivalent view from
// another mapping without touching record bytes (§4.5 "Metadata-block list").
// When Data is backed by a memory mapping, Detach copies it into owned
// memory so the view outlives the mapping's lifetime.
type MetadataView struct {
	Name string
	Data []byte
}

// Detach returns a copy of the view backed by freshly allocated memory,
// safe to retain after the originating mapping is unmapped.
func (v MetadataView) Detach() MetadataView {
	owned := make([]byte, len(v.Data))
	copy(owned, v.Data)

	return MetadataView{Name: v.Name, Data: owned}
}

// Store is the common contract every concrete blob store satisfies.
type Store interface {
	// NumRecords returns N, the number of records.
	NumRecords() int
	// TotalDataSize returns the sum of uncompressed record lengths.
	TotalDataSize() uint64
	// MemSize returns the store's resident memory footprint in bytes.
	MemSize() uint64

	// GetRecord returns a copy of record id's bytes.
	GetRecord(id int) ([]byte, error)
	// GetRecordAppend appends record id's bytes to dst and returns the
	// extended slice. cache is accepted as a per-iterator offset cache, but
	// no store in this module reads or fills it: every call locates the
	// record afresh.
	GetRecordAppend(id int, dst []byte, cache *OffsetCache) ([]byte, error)

	// PreadRecord reads record id's bytes via reader, a caller-supplied
	// function reading len(p) bytes at baseOffset+off into p, enabling
	// cache-backed or fiber-async I/O (§4.5).
	PreadRecord(ctx context.Context, reader RecordReader, baseOffset int64, id int) ([]byte, error)

	// Reorder produces a new store whose record i holds the bytes of this
	// store's record perm[i] (perm must be a bijection over [0,N)).
	Reorder(perm []int) (Store, error)
	// Purge produces a new store containing only the records whose id is
	// not set in deleted, preserving relative order.
	Purge(deleted []bool) (Store, error)

	// Metadata returns zero-copy views into the store's backing memory
	// (header, payload, offset index, …) for detachment/inspection.
	Metadata() []MetadataView
}

// RecordReader reads len(p) bytes at baseOffset+off into p, the abstraction
// PreadRecord uses so callers can plug in a page-cache-backed or
// fiber-scheduled reader without the store depending on either (§4.5).
type RecordReader func(ctx context.Context, p []byte, off int64) (int, error)

// OffsetCache is the per-iterator offset cache type GetRecordAppend
// accepts. No store in this module reads or fills it.
type OffsetCache struct {
	BlockStart int
	Offsets    []uint64
}

// validateID returns errs.ErrInvalidRecordID if id is outside [0,n).
func validateID(id, n int) error {
	if id < 0 || id >= n {
		return errs.ErrInvalidRecordID
	}

	return nil
}

// validatePermutation checks that perm is a bijection over [0,len(perm)).
func validatePermutation(perm []int) error {
	seen := make([]bool, len(perm))
	for _, p := range perm {
		if p < 0 || p >= len(perm) || seen[p] {
			return errs.ErrInvalidPermutation
		}
		seen[p] = true
	}

	return nil
}

// validateDeleteBitmap checks deleted has exactly n entries.
func validateDeleteBitmap(deleted []bool, n int) error {
	if len(deleted) != n {
		return errs.ErrInvalidDeleteBitmap
	}

	return nil
}
