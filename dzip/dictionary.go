// Package dzip implements the dictionary-zip blob store (§4.7): LZ-style
// global-dictionary matching combined with local back-reference matching,
// a two-pass encoder (optional entropy second pass), multi-threaded
// pipelined build, reorder/purge, and an embedded-dictionary option.
package dzip

import (
	"bytes"
	"sort"

	"github.com/arloliu/blobkit/errs"
)

// SortMode controls how sample substrings are ordered before being
// concatenated into the dictionary buffer (§4.7 "Sample stage").
type SortMode int

const (
	SortNone SortMode = iota
	SortLeft
	SortRight
	SortBoth
)

const maxDictSize = 1<<31 - 1 // ~2GiB-1, §3 "Dictionary-zip instance"

// BuildDictionary concatenates sample byte slices into a single dictionary
// buffer, optionally sorting by left (as-is), right (reversed), or both
// (each appearing twice, forward and reverse-sorted) to improve
// compressibility, then deduplicating adjacent identical entries.
func BuildDictionary(samples [][]byte, mode SortMode) ([]byte, error) {
	entries := make([][]byte, len(samples))
	copy(entries, samples)

	switch mode {
	case SortLeft:
		sortEntries(entries, false)
	case SortRight:
		sortEntries(entries, true)
	case SortBoth:
		left := append([][]byte(nil), entries...)
		right := append([][]byte(nil), entries...)
		sortEntries(left, false)
		sortEntries(right, true)
		entries = append(left, right...)
	}

	entries = dedupAdjacent(entries)

	var total int
	for _, e := range entries {
		total += len(e)
	}
	if total > maxDictSize {
		return nil, errs.ErrDictionaryTooLarge
	}

	dict := make([]byte, 0, total)
	for _, e := range entries {
		dict = append(dict, e...)
	}

	return dict, nil
}

// sortEntries sorts by raw byte order (left) or by reversed-byte order
// (right), the two variants §4.7 names for improving adjacency of common
// prefixes/suffixes across samples.
func sortEntries(entries [][]byte, reversed bool) {
	key := func(b []byte) []byte {
		if !reversed {
			return b
		}
		rev := make([]byte, len(b))
		for i, c := range b {
			rev[len(b)-1-i] = c
		}

		return rev
	}

	sort.Slice(entries, func(i, j int) bool {
		return bytes.Compare(key(entries[i]), key(entries[j])) < 0
	})
}

// dedupAdjacent drops entries equal to their immediate predecessor. It runs
// in every sort mode; after a sort all duplicates are adjacent, while under
// SortNone only duplicates that sit next to each other in the input order
// are dropped and scattered ones are kept.
func dedupAdjacent(entries [][]byte) [][]byte {
	if len(entries) == 0 {
		return entries
	}
	out := entries[:1]
	for i := 1; i < len(entries); i++ {
		if bytes.Equal(entries[i], entries[i-1]) {
			continue
		}
		out = append(out, entries[i])
	}

	return out
}

// GlobalOffsetBits returns gOffsetBits = ceil(log2(dictSize-4)) + 1, the bit
// width used to pack a Global token's dictionary offset (§3).
func GlobalOffsetBits(dictSize int) int {
	n := dictSize - 4
	if n < 1 {
		n = 1
	}
	bits := 0
	for (1 << bits) < n {
		bits++
	}

	return bits + 1
}
