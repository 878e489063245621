// Package rans implements 64-bit-state range-ANS (rANS) order-0/1/2 codecs
// (§4.4): precomputed reciprocal-multiply encoder symbols, 1/2/4/8-way
// parallel streams, and recursive bootstrap tables.
package rans

import (
	"math/bits"

	"github.com/arloliu/blobkit/hist"
)

const (
	// ProbBits is M's bit width: the normalised total frequency is 2^ProbBits.
	ProbBits = 12
	// ProbScale is the normalised total frequency, M.
	ProbScale = 1 << ProbBits
	// LowerBound is L, the renormalization lower bound for encoder state x.
	LowerBound = 1 << 16
)

// EncSymbol is the precomputed reciprocal-multiply encoder symbol (§3).
type EncSymbol struct {
	RcpFreq  uint64 // ceil(2^(shift+63) / freq), or 2^64-1 when freq==1
	Freq     uint16
	Bias     uint16
	CmplFreq uint16 // ProbScale - freq
	RcpShift uint16
}

// DecSymbol is the decoder-side symbol: (start, freq) within [0, ProbScale).
type DecSymbol struct {
	Start uint16
	Freq  uint16
}

// Model is a normalised order-0 frequency table (ProbScale total) plus the
// derived encoder/decoder symbols and the cumulative-frequency-to-symbol
// lookup table used by decode.
type Model struct {
	Freq  [256]uint16
	Start [256]uint16
	Enc   [256]EncSymbol
	Dec   [256]DecSymbol
	// slot maps a cumulative frequency slot in [0, ProbScale) to its symbol.
	slot [ProbScale]uint8
}

// BuildModel normalises raw counts to ProbScale and derives every symbol.
func BuildModel(counts []uint64) *Model {
	norm := make([]uint32, len(counts))
	for i, c := range counts {
		norm[i] = uint32(c)
	}
	hist.Normalise(norm, ProbScale)

	m := &Model{}
	var cum uint16
	for i := 0; i < len(norm) && i < 256; i++ {
		f := uint16(norm[i])
		m.Freq[i] = f
		m.Start[i] = cum
		if f > 0 {
			m.Dec[i] = DecSymbol{Start: cum, Freq: f}
			m.Enc[i] = buildEncSymbol(cum, f)
			for s := cum; s < cum+f; s++ {
				m.slot[s] = uint8(i)
			}
		}
		cum += f
	}

	return m
}

// buildEncSymbol derives the reciprocal-multiply fields for one symbol, per
// the §4.4 encoder-symbol-setup formulas.
func buildEncSymbol(start uint16, freq uint16) EncSymbol {
	s := EncSymbol{Freq: freq, CmplFreq: uint16(ProbScale - int(freq)), Bias: start}
	if freq == 1 {
		s.RcpFreq = ^uint64(0)
		s.RcpShift = 0
		s.Bias = start + ProbScale - 1

		return s
	}

	shift := bits.Len32(uint32(freq) - 1) // ceil(log2(freq))
	// rcp_freq = floor((2^(shift+63) + freq - 1) / freq), a 128-by-64-bit
	// division: the high word 2^(shift-1) is below freq, so the quotient
	// fits in a uint64 and mulhi(x, rcp_freq) >> rcp_shift equals x / freq.
	rcp, _ := bits.Div64(uint64(1)<<uint(shift-1), uint64(freq)-1, uint64(freq))
	s.RcpFreq = rcp
	s.RcpShift = uint16(shift - 1)

	return s
}
