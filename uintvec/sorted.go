package uintvec

import (
	"encoding/binary"

	"github.com/arloliu/blobkit/errs"
)

// SortedBlockSize is the block granularity used by SortedUintVec: every
// block stores its base offset plus bit-packed deltas from that base; a
// lookup unpacks only the delta it needs, and no block cache is kept
// (§3 Offset index).
const SortedBlockSize = 128

// Sorted is a block-compressed monotone (non-decreasing) sequence. Each
// block holds a u64 base value and fixed-width deltas from that base,
// trading a per-block decompression for much smaller storage than a flat
// Min0 vector when the sequence has small local deltas relative to its
// overall range (the common case for cumulative byte offsets).
type Sorted struct {
	blockBase  []uint64
	blockWidth []uint8
	blocks     []*Min0
	length     int
}

// BuildSorted packs a non-decreasing sequence into fixed-size blocks.
func BuildSorted(values []uint64) (*Sorted, error) {
	for i := 1; i < len(values); i++ {
		if values[i] < values[i-1] {
			return nil, errs.ErrBadOffsetIndex
		}
	}

	s := &Sorted{length: len(values)}
	for start := 0; start < len(values); start += SortedBlockSize {
		end := start + SortedBlockSize
		if end > len(values) {
			end = len(values)
		}
		base := values[start]
		deltas := make([]uint64, end-start)
		for i := start; i < end; i++ {
			deltas[i-start] = values[i] - base
		}
		blk := BuildMin0(deltas)
		s.blockBase = append(s.blockBase, base)
		s.blockWidth = append(s.blockWidth, blk.Width())
		s.blocks = append(s.blocks, blk)
	}

	return s, nil
}

// Get returns the value at index i, decompressing only the containing block.
func (s *Sorted) Get(i int) uint64 {
	blockIdx := i / SortedBlockSize
	within := i % SortedBlockSize

	return s.blockBase[blockIdx] + s.blocks[blockIdx].Get(within)
}

// Get2 returns (v[i], v[i+1]), straddling a block boundary when necessary.
func (s *Sorted) Get2(i int) (uint64, uint64) {
	return s.Get(i), s.Get(i + 1)
}

// Len returns the number of stored values.
func (s *Sorted) Len() int { return s.length }

// NumBlocks returns the number of compressed blocks.
func (s *Sorted) NumBlocks() int { return len(s.blocks) }

// Bytes returns a flattened serialization of every block (base values are
// not included; callers needing persistence serialize blockBase
// separately). It exists mainly so a Sorted index can be surfaced as a
// MetadataView alongside a store's payload.
func (s *Sorted) Bytes() []byte {
	var out []byte
	for _, b := range s.blocks {
		out = append(out, b.Bytes()...)
	}

	return out
}

func (s *Sorted) blockLen(blockIdx int) int {
	start := blockIdx * SortedBlockSize
	end := start + SortedBlockSize
	if end > s.length {
		end = s.length
	}

	return end - start
}

// Serialize returns a self-contained byte encoding of the sequence: for
// each block, its 8-byte little-endian base, a 1-byte width, then the
// block's packed delta bits. LoadSorted is the inverse, given the same
// length. Unlike Bytes, this round-trips through a file (§6 offset index).
func (s *Sorted) Serialize() []byte {
	out := make([]byte, 0, len(s.blocks)*9)
	for i, blk := range s.blocks {
		var hdr [9]byte
		binary.LittleEndian.PutUint64(hdr[0:8], s.blockBase[i])
		hdr[8] = blk.Width()
		out = append(out, hdr[:]...)

		packedLen := (s.blockLen(i)*int(blk.Width()) + 7) / 8
		out = append(out, blk.Bytes()[:packedLen]...)
	}

	return out
}

// LoadSorted reconstructs a Sorted sequence of the given logical length from
// bytes previously produced by Serialize.
func LoadSorted(data []byte, length int) (*Sorted, error) {
	s := &Sorted{length: length}
	numBlocks := (length + SortedBlockSize - 1) / SortedBlockSize

	off := 0
	for i := 0; i < numBlocks; i++ {
		if off+9 > len(data) {
			return nil, errs.ErrShortRead
		}
		base := binary.LittleEndian.Uint64(data[off : off+8])
		width := data[off+8]
		off += 9

		blen := s.blockLen(i)
		need := (blen*int(width) + 7) / 8
		if off+need > len(data) {
			return nil, errs.ErrShortRead
		}
		blk, err := LoadMin0(data[off:off+need], width, blen)
		if err != nil {
			return nil, err
		}
		off += need

		s.blockBase = append(s.blockBase, base)
		s.blockWidth = append(s.blockWidth, width)
		s.blocks = append(s.blocks, blk)
	}

	return s, nil
}
