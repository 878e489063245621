// Package xxh wraps github.com/cespare/xxhash/v2 with the seeded-digest
// convention used for blob store file checksums (§6 Seeds): each store class
// has its own 64-bit seed constant, mixed into the digest ahead of the
// checksummed bytes. cespare/xxhash/v2 does not expose a seed parameter on
// its public Sum64 API, so the seed is folded in by writing it as an 8-byte
// little-endian prefix to a streaming digest before the payload. This is an
// internal convention, not wire compatibility with any other XXH64
// implementation — acceptable since cross-project format compatibility is an
// explicit non-goal.
package xxh

import (
	"encoding/binary"

	"github.com/cespare/xxhash/v2"
)

// Sum64Seeded returns the seeded XXH64 digest of data.
func Sum64Seeded(seed uint64, data []byte) uint64 {
	d := xxhash.New()
	var seedBuf [8]byte
	binary.LittleEndian.PutUint64(seedBuf[:], seed)
	_, _ = d.Write(seedBuf[:])
	_, _ = d.Write(data)

	return d.Sum64()
}

// Digest is a streaming seeded XXH64 digest, used when the checksummed region
// is assembled incrementally (header + padded payload sections)
// instead of as one contiguous slice.
type Digest struct {
	d *xxhash.Digest
}

// NewSeeded creates a streaming digest pre-seeded with seed.
func NewSeeded(seed uint64) *Digest {
	d := xxhash.New()
	var seedBuf [8]byte
	binary.LittleEndian.PutUint64(seedBuf[:], seed)
	_, _ = d.Write(seedBuf[:])

	return &Digest{d: d}
}

// Write feeds more bytes into the digest.
func (dg *Digest) Write(p []byte) (int, error) {
	return dg.d.Write(p)
}

// Sum64 returns the digest computed so far.
func (dg *Digest) Sum64() uint64 {
	return dg.d.Sum64()
}

// ID computes the (unseeded) xxHash64 of a string, used for non-checksum
// identifier hashing (e.g. hashing a metric/record key into a uint64 id).
func ID(data string) uint64 {
	return xxhash.Sum64String(data)
}
