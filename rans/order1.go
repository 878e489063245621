package rans

import (
	"github.com/arloliu/blobkit/errs"
	"github.com/arloliu/blobkit/hist"
)

// Order1Model holds one normalised Model per preceding-byte context plus the
// first-symbol model for position 0, which has no real predecessor (§4.4).
// A context that never occurred is left nil.
type Order1Model struct {
	First *Model
	Ctx   [256]*Model
}

// BuildOrder1Model builds all per-context models from an order>=1 histogram.
func BuildOrder1Model(h *hist.Histogram) *Order1Model {
	m := &Order1Model{First: buildContextModel(h.FirstSym[:], h.FirstTotal)}
	for a := 0; a < 256; a++ {
		if h.O1Size[a] == 0 {
			continue
		}
		counts := make([]uint64, 256)
		for c := 0; c < 256; c++ {
			counts[c] = h.O1(a, c)
		}
		m.Ctx[a] = BuildModel(counts)
	}

	return m
}

func buildContextModel(counts []uint64, total uint64) *Model {
	if total == 0 {
		return nil
	}

	return BuildModel(counts)
}

func (m *Order1Model) at(i int, prefix []byte) *Model {
	if i == 0 {
		return m.First
	}

	return m.Ctx[prefix[i-1]]
}

// EncodeOrder1 encodes data right-to-left through a single stream, switching
// the model per symbol on its preceding byte. Every (context, symbol) pair
// must have been counted by the histogram the model was built from.
func EncodeOrder1(m *Order1Model, data []byte) []byte {
	var words []uint32
	s := newState()
	for i := len(data) - 1; i >= 0; i-- {
		ctx := m.at(i, data)
		s.encodeOne(&words, &ctx.Enc[data[i]])
	}

	return flushStream(&s, words)
}

// DecodeOrder1 decodes n symbols from a stream produced by EncodeOrder1.
func DecodeOrder1(m *Order1Model, stream []byte, n int) ([]byte, error) {
	return decodeWithModels(stream, n, func(i int, out []byte) *Model {
		return m.at(i, out)
	})
}

// Order2Model conditions each symbol on its two preceding bytes, falling
// back to the order-1 and first-symbol models for the first two positions
// (§4.4). Contexts are held sparsely; most byte pairs never occur.
type Order2Model struct {
	First *Model
	O1    *Order1Model
	Ctx   map[int]*Model
}

// BuildOrder2Model builds per-context models for every (a,b) prefix pair
// with nonzero occurrences, from an order-2 histogram.
func BuildOrder2Model(h *hist.Histogram) *Order2Model {
	m := &Order2Model{
		First: buildContextModel(h.FirstSym[:], h.FirstTotal),
		O1:    BuildOrder1Model(h),
		Ctx:   make(map[int]*Model),
	}
	for a := 0; a < 256; a++ {
		for b := 0; b < 256; b++ {
			idx := a*256 + b
			if h.O2Size(a, b) == 0 {
				continue
			}
			counts := make([]uint64, 256)
			for c := 0; c < 256; c++ {
				counts[c] = h.O2(a, b, c)
			}
			m.Ctx[idx] = BuildModel(counts)
		}
	}

	return m
}

func (m *Order2Model) at(i int, prefix []byte) *Model {
	switch i {
	case 0:
		return m.First
	case 1:
		return m.O1.Ctx[prefix[0]]
	default:
		return m.Ctx[int(prefix[i-2])*256+int(prefix[i-1])]
	}
}

// EncodeOrder2 encodes data right-to-left through a single stream with
// two-byte conditioning.
func EncodeOrder2(m *Order2Model, data []byte) []byte {
	var words []uint32
	s := newState()
	for i := len(data) - 1; i >= 0; i-- {
		ctx := m.at(i, data)
		s.encodeOne(&words, &ctx.Enc[data[i]])
	}

	return flushStream(&s, words)
}

// DecodeOrder2 decodes n symbols from a stream produced by EncodeOrder2.
func DecodeOrder2(m *Order2Model, stream []byte, n int) ([]byte, error) {
	return decodeWithModels(stream, n, func(i int, out []byte) *Model {
		return m.at(i, out)
	})
}

// decodeWithModels is the shared context-switching decode loop: models picks
// the model for position i given the already-decoded prefix out[:i].
func decodeWithModels(stream []byte, n int, models func(i int, out []byte) *Model) ([]byte, error) {
	x, pos, err := openStream(stream)
	if err != nil {
		return nil, err
	}

	out := make([]byte, n)
	for i := 0; i < n; i++ {
		ctx := models(i, out)
		if ctx == nil {
			return nil, errs.ErrRansStateOOB
		}
		slot := uint16(x & (ProbScale - 1))
		sym := ctx.slot[slot]
		dec := &ctx.Dec[sym]
		if dec.Freq == 0 {
			return nil, errs.ErrRansStateOOB
		}
		out[i] = sym

		x = uint64(dec.Freq)*(x>>ProbBits) + uint64(slot) - uint64(dec.Start)
		if x < LowerBound {
			if pos+4 > len(stream) {
				if i+1 < n {
					return nil, errs.ErrRansStateOOB
				}

				continue
			}
			w := uint64(stream[pos]) | uint64(stream[pos+1])<<8 |
				uint64(stream[pos+2])<<16 | uint64(stream[pos+3])<<24
			x = x<<32 | w
			pos += 4
		}
	}

	return out, nil
}
