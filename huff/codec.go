package huff

import (
	"github.com/arloliu/blobkit/bitio"
	"github.com/arloliu/blobkit/errs"
)

// encodeN is the single generic interleaved encoder: it splits data into N
// equal-ish shares (by input record count) and writes their codes into N
// independent bit streams that a decoder later consumes in lockstep. Per
// §9 Design Notes this is written once as a generic loop parameterized by N,
// with Encode1/2/4/8 as thin dispatches, rather than fanned-out templates.
func encodeN(t *Table, records [][]byte, n int) []bitio.EntropyBits {
	writers := make([]*bitio.ReverseWriter, n)
	for i := range writers {
		writers[i] = bitio.NewReverseWriter(64)
	}

	for i, rec := range records {
		w := writers[i%n]
		ctxIdx := FirstSymContext
		for j, b := range rec {
			if t.Order == 1 && j > 0 {
				ctxIdx = int(rec[j-1])
			}
			c := t.context(ctxIdx)
			l := c.length[b]
			w.Write(uint64(c.code[b]), l)
		}
	}

	out := make([]bitio.EntropyBits, n)
	for i, w := range writers {
		out[i] = w.Finish()
	}

	return out
}

// decodeN is the generic interleaved decoder counterpart to encodeN. lens
// gives each record's known byte length (the blob store always knows record
// lengths independently of the entropy layer, per §4.3).
func decodeN(t *Table, streams []bitio.EntropyBits, lens []int, n int) ([][]byte, error) {
	if len(streams) != n {
		return nil, errs.ErrHuffmanOverrun
	}

	readers := make([]*bitio.ForwardReader, n)
	for i, s := range streams {
		readers[i] = bitio.NewForwardReader(s)
	}

	out := make([][]byte, len(lens))
	for i, l := range lens {
		r := readers[i%n]
		rec := make([]byte, l)
		ctxIdx := FirstSymContext
		for j := 0; j < l; j++ {
			if t.Order == 1 && j > 0 {
				ctxIdx = int(rec[j-1])
			}
			c := t.context(ctxIdx)
			window := r.Peek(MaxBits)
			sym := c.decSym[window]
			length := c.decLen[window]
			if length == 0 {
				return nil, errs.ErrHuffmanOverrun
			}
			r.UpdateSize(uint64(length))
			rec[j] = sym
		}
		out[i] = rec
	}

	return out, nil
}

// Encode1 encodes records through a single non-interleaved bit stream.
func Encode1(t *Table, records [][]byte) bitio.EntropyBits { return encodeN(t, records, 1)[0] }

// Encode2 encodes records interleaved across 2 independent bit streams.
func Encode2(t *Table, records [][]byte) []bitio.EntropyBits { return encodeN(t, records, 2) }

// Encode4 encodes records interleaved across 4 independent bit streams.
func Encode4(t *Table, records [][]byte) []bitio.EntropyBits { return encodeN(t, records, 4) }

// Encode8 encodes records interleaved across 8 independent bit streams.
func Encode8(t *Table, records [][]byte) []bitio.EntropyBits { return encodeN(t, records, 8) }

// Decode1 decodes a single non-interleaved bit stream back into len(lens) records.
func Decode1(t *Table, stream bitio.EntropyBits, lens []int) ([][]byte, error) {
	return decodeN(t, []bitio.EntropyBits{stream}, lens, 1)
}

// Decode2 decodes 2 interleaved bit streams back into len(lens) records.
func Decode2(t *Table, streams []bitio.EntropyBits, lens []int) ([][]byte, error) {
	return decodeN(t, streams, lens, 2)
}

// Decode4 decodes 4 interleaved bit streams back into len(lens) records.
func Decode4(t *Table, streams []bitio.EntropyBits, lens []int) ([][]byte, error) {
	return decodeN(t, streams, lens, 4)
}

// Decode8 decodes 8 interleaved bit streams back into len(lens) records.
func Decode8(t *Table, streams []bitio.EntropyBits, lens []int) ([][]byte, error) {
	return decodeN(t, streams, lens, 8)
}
