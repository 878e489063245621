// Package uintvec implements the two offset-index encodings shared by every
// blob store (§3 Offset index): UintVecMin0, a flat bit-packed vector, and
// SortedUintVec, a block-compressed monotone sequence. Both expose O(1)
// Get2(i) returning (v[i], v[i+1]).
package uintvec

import "github.com/arloliu/blobkit/errs"

// Min0 is a bit-packed vector where every value occupies the same fixed
// width, ceil(log2(maxValue+1)) bits but at least 1, with no minimum-value subtraction
// (the "min0" name reflects that the baseline is always zero for offset
// indices, unlike a general min-max packed vector).
type Min0 struct {
	bits   []byte
	width  uint8
	length int
}

// BitWidth returns the number of bits needed to represent maxValue.
func BitWidth(maxValue uint64) uint8 {
	w := uint8(0)
	for (uint64(1) << w) <= maxValue {
		w++
	}
	if w == 0 {
		w = 1
	}

	return w
}

// BuildMin0 packs values at width = BitWidth(max(values)).
func BuildMin0(values []uint64) *Min0 {
	var maxV uint64
	for _, v := range values {
		if v > maxV {
			maxV = v
		}
	}
	width := BitWidth(maxV)
	v := &Min0{width: width, length: len(values)}
	v.bits = make([]byte, (len(values)*int(width)+7)/8+8) // +8 slack for u64 overread safety
	for i, val := range values {
		v.set(i, val)
	}

	return v
}

func (v *Min0) set(i int, val uint64) {
	bitOff := i * int(v.width)
	for b := uint8(0); b < v.width; b++ {
		if val&(1<<b) != 0 {
			byteIdx := (bitOff + int(b)) / 8
			bitIdx := (bitOff + int(b)) % 8
			v.bits[byteIdx] |= 1 << bitIdx
		}
	}
}

// Get returns the value at index i.
func (v *Min0) Get(i int) uint64 {
	bitOff := i * int(v.width)
	var val uint64
	for b := uint8(0); b < v.width; b++ {
		byteIdx := (bitOff + int(b)) / 8
		bitIdx := (bitOff + int(b)) % 8
		if v.bits[byteIdx]&(1<<bitIdx) != 0 {
			val |= 1 << b
		}
	}

	return val
}

// Get2 returns (v[i], v[i+1]) in one call, the access pattern every blob
// store uses to bound a record's byte range.
func (v *Min0) Get2(i int) (uint64, uint64) {
	return v.Get(i), v.Get(i + 1)
}

// Len returns the number of stored values.
func (v *Min0) Len() int { return v.length }

// Bytes returns the packed representation for serialization.
func (v *Min0) Bytes() []byte { return v.bits }

// Width returns the fixed bit width used per value.
func (v *Min0) Width() uint8 { return v.width }

// LoadMin0 reconstructs a Min0 view over previously packed bytes.
func LoadMin0(data []byte, width uint8, length int) (*Min0, error) {
	need := (length*int(width) + 7) / 8
	if len(data) < need {
		return nil, errs.ErrShortRead
	}

	return &Min0{bits: data, width: width, length: length}, nil
}
