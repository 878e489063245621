package rans

import (
	"github.com/arloliu/blobkit/errs"
)

// state is one rANS lane's 64-bit state. The valid band is
// [LowerBound, LowerBound<<32); renormalization moves 32 bits at a time
// (§4.4 "Renorm writes 4 bytes to output when x >= (L>>12)*2^32*freq").
type state struct{ x uint64 }

func newState() state { return state{x: LowerBound} }

// encodeOne advances the encoder state by one symbol, first pushing a
// 32-bit renorm word when x would leave the valid band after the step.
func (s *state) encodeOne(words *[]uint32, sym *EncSymbol) {
	xMax := ((LowerBound >> ProbBits) << 32) * uint64(sym.Freq)
	if s.x >= xMax {
		*words = append(*words, uint32(s.x))
		s.x >>= 32
	}

	q := mulhi(s.x, sym.RcpFreq) >> sym.RcpShift
	s.x = s.x + uint64(sym.Bias) + q*uint64(sym.CmplFreq)
}

func mulhi(a, b uint64) uint64 {
	hi, _ := mul128(a, b)

	return hi
}

func mul128(a, b uint64) (hi, lo uint64) {
	const mask32 = 0xFFFFFFFF
	aLo, aHi := a&mask32, a>>32
	bLo, bHi := b&mask32, b>>32

	t := aLo * bLo
	w0 := t & mask32
	k := t >> 32

	t = aHi*bLo + k
	w1 := t & mask32
	w2 := t >> 32

	t = aLo*bHi + w1
	k = t >> 32

	lo = (k << 32) | w0
	hi = aHi*bHi + w2 + k

	return hi, lo
}

// stateBytes is the flush width of the final encoder state. The state never
// exceeds 48 bits (x < LowerBound<<32 = 2^48), so 6 bytes always suffice.
const stateBytes = 6

// flushStream lays out an encoded stream in the order the decoder consumes
// it: the flushed final state first, then the renorm words in reverse
// emission order.
func flushStream(s *state, words []uint32) []byte {
	out := make([]byte, 0, stateBytes+4*len(words))
	for b := 0; b < stateBytes; b++ {
		out = append(out, byte(s.x>>(8*b)))
	}
	for i := len(words) - 1; i >= 0; i-- {
		w := words[i]
		out = append(out, byte(w), byte(w>>8), byte(w>>16), byte(w>>24))
	}

	return out
}

// openStream reads back the flushed state and returns it with the read
// position of the first renorm word.
func openStream(stream []byte) (uint64, int, error) {
	if len(stream) < stateBytes {
		return 0, 0, errs.ErrRansStateOOB
	}
	var x uint64
	for b := 0; b < stateBytes; b++ {
		x |= uint64(stream[b]) << (8 * b)
	}
	if x < LowerBound {
		return 0, 0, errs.ErrRansStateOOB
	}

	return x, stateBytes, nil
}

// EncodeOrder0 rANS-encodes data right-to-left through a single stream
// (§4.4 "Encoding is right-to-left").
func EncodeOrder0(m *Model, data []byte) []byte {
	var words []uint32
	s := newState()
	for i := len(data) - 1; i >= 0; i-- {
		s.encodeOne(&words, &m.Enc[data[i]])
	}

	return flushStream(&s, words)
}

// DecodeOrder0 decodes n symbols from a stream produced by EncodeOrder0.
// Malformed input (truncated stream, state outside the valid band) returns
// ErrRansStateOOB; the caller surfaces it as corruption (§7).
func DecodeOrder0(m *Model, stream []byte, n int) ([]byte, error) {
	return decodeWithModels(stream, n, func(int, []byte) *Model { return m })
}

// EncodeOrder0N encodes data interleaved across n independent rANS lanes,
// index-mod-n, mirroring huff's Encode×N parallel-stream shape (§4.4
// "Multi-way streams").
func EncodeOrder0N(m *Model, data []byte, n int) [][]byte {
	lanes := make([][]byte, n)
	for lane := 0; lane < n; lane++ {
		var sub []byte
		for i := lane; i < len(data); i += n {
			sub = append(sub, data[i])
		}
		lanes[lane] = EncodeOrder0(m, sub)
	}

	return lanes
}

// DecodeOrder0N is the inverse of EncodeOrder0N: total and n must be the
// values used at encode time, and each lane's symbol count is derived from
// them.
func DecodeOrder0N(m *Model, lanes [][]byte, total int, n int) ([]byte, error) {
	out := make([]byte, total)
	for lane := 0; lane < n; lane++ {
		count := total / n
		if lane < total%n {
			count++
		}
		dec, err := DecodeOrder0(m, lanes[lane], count)
		if err != nil {
			return nil, err
		}
		j := 0
		for i := lane; i < total; i += n {
			out[i] = dec[j]
			j++
		}
	}

	return out, nil
}
