package rans

import "github.com/arloliu/blobkit/errs"

// nestedFlag is the leading sentinel byte that marks a table header as
// itself rANS-order-0 compressed, mirroring huff's table-header nesting
// convention (§4.3, §4.4 "a leading byte 255 flags the nesting").
const nestedFlag = 255

// EncodeTableRaw serializes a normalised frequency table (256 uint16
// entries) using a simple run-length scheme over the alphabet: each run is
// (runLength byte, value uint16) for a stretch of identical frequencies,
// which is compact for the common case of long zero-runs in a sparse
// alphabet. Runs are capped at 254 so a run-length byte can never equal
// nestedFlag, keeping the leading byte of a raw table unambiguous.
func EncodeTableRaw(freq [256]uint16) []byte {
	var out []byte
	i := 0
	for i < 256 {
		v := freq[i]
		j := i + 1
		for j < 256 && freq[j] == v && j-i < 254 {
			j++
		}
		out = append(out, byte(j-i), byte(v), byte(v>>8))
		i = j
	}

	return out
}

// DecodeTableRaw is the inverse of EncodeTableRaw.
func DecodeTableRaw(data []byte) ([256]uint16, error) {
	var freq [256]uint16
	pos := 0
	idx := 0
	for pos+3 <= len(data) && idx < 256 {
		run := int(data[pos])
		v := uint16(data[pos+1]) | uint16(data[pos+2])<<8
		for k := 0; k < run && idx < 256; k++ {
			freq[idx] = v
			idx++
		}
		pos += 3
	}
	if idx != 256 {
		return freq, errs.ErrBadOffsetIndex
	}

	return freq, nil
}

// compressTableBlob rANS-order-0 compresses an already-serialized table
// blob, prefixing the nested form with nestedFlag; the raw blob is kept
// when nesting doesn't win.
func compressTableBlob(raw []byte) []byte {
	var byteCounts [256]uint64
	for _, b := range raw {
		byteCounts[b]++
	}
	inner := BuildModel(byteCounts[:])
	encoded := EncodeOrder0(inner, raw)

	innerTable := EncodeTableRaw(inner.Freq)
	nested := make([]byte, 0, 1+len(innerTable)+4+len(encoded))
	nested = append(nested, nestedFlag)
	nested = append(nested, innerTable...)
	nested = appendUint32(nested, uint32(len(raw)))
	nested = append(nested, encoded...)

	if len(nested) < len(raw) {
		return nested
	}

	return raw
}

// decompressTableBlob is the inverse of compressTableBlob.
func decompressTableBlob(data []byte) ([]byte, error) {
	if len(data) == 0 || data[0] != nestedFlag {
		return data, nil
	}

	pos := 1
	innerFreq, err := DecodeTableRaw(data[pos:])
	if err != nil {
		return nil, err
	}
	pos += len(EncodeTableRaw(innerFreq))
	if pos+4 > len(data) {
		return nil, errs.ErrShortHeader
	}
	n := int(readUint32(data[pos:]))
	pos += 4

	inner := BuildModel(widenFreq(innerFreq))

	return DecodeOrder0(inner, data[pos:], n)
}

// EncodeTableRecursive wraps EncodeTableRaw and, when the order-0-compressed
// form of that raw serialization is smaller, replaces it with a nested
// rANS-order-0 encoding prefixed by nestedFlag (§4.4 "Table on disk").
func EncodeTableRecursive(freq [256]uint16) []byte {
	return compressTableBlob(EncodeTableRaw(freq))
}

// DecodeTableRecursive is the inverse of EncodeTableRecursive.
func DecodeTableRecursive(data []byte) ([256]uint16, error) {
	raw, err := decompressTableBlob(data)
	if err != nil {
		return [256]uint16{}, err
	}

	return DecodeTableRaw(raw)
}

// EncodeOrder1Tables serializes an order-1 model's 257 frequency tables
// (the first-symbol context, then the 256 prior-byte contexts, absent
// contexts as all-zero tables) and compresses the concatenation through a
// single rANS-order-0 pass when that is smaller (§4.4 "Order-1 tables are
// themselves rANS-order-0 compressed recursively").
func EncodeOrder1Tables(m *Order1Model) []byte {
	var raw []byte
	raw = append(raw, EncodeTableRaw(ctxFreq(m.First))...)
	for a := 0; a < 256; a++ {
		raw = append(raw, EncodeTableRaw(ctxFreq(m.Ctx[a]))...)
	}

	return compressTableBlob(raw)
}

// DecodeOrder1Tables reconstructs an order-1 model from bytes produced by
// EncodeOrder1Tables.
func DecodeOrder1Tables(data []byte) (*Order1Model, error) {
	raw, err := decompressTableBlob(data)
	if err != nil {
		return nil, err
	}

	m := &Order1Model{}
	pos := 0
	for i := 0; i < 257; i++ {
		freq, err := DecodeTableRaw(raw[pos:])
		if err != nil {
			return nil, err
		}
		pos += len(EncodeTableRaw(freq))
		model := modelFromFreq(freq)
		if i == 0 {
			m.First = model
		} else {
			m.Ctx[i-1] = model
		}
	}

	return m, nil
}

func ctxFreq(m *Model) [256]uint16 {
	if m == nil {
		return [256]uint16{}
	}

	return m.Freq
}

// modelFromFreq rebuilds a Model from an already-normalised frequency table;
// Normalise is an identity on input that already sums to ProbScale. An
// all-zero table means the context never occurred and stays nil.
func modelFromFreq(freq [256]uint16) *Model {
	any := false
	for _, f := range freq {
		if f != 0 {
			any = true

			break
		}
	}
	if !any {
		return nil
	}

	return BuildModel(widenFreq(freq))
}

func widenFreq(freq [256]uint16) []uint64 {
	out := make([]uint64, 256)
	for i, v := range freq {
		out[i] = uint64(v)
	}

	return out
}

func appendUint32(b []byte, v uint32) []byte {
	return append(b, byte(v), byte(v>>8), byte(v>>16), byte(v>>24))
}

func readUint32(b []byte) uint32 {
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
}
