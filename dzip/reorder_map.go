package dzip

// EncodeReorderMap RLE-encodes a new->old id permutation the way the source
// spills one to disk when a reorder rewrite is too large to hold entirely in
// memory (§6 "Reorder map file"). Each run is a (firstOldID, runLength)
// varint pair covering the longest stretch of consecutive new ids whose old
// ids increase by exactly 1; a permutation close to identity (the common
// case for an incremental reorder) collapses to very few runs.
func EncodeReorderMap(perm []int) []byte {
	var out []byte
	i := 0
	for i < len(perm) {
		start := perm[i]
		runLen := 1
		for i+runLen < len(perm) && perm[i+runLen] == start+runLen {
			runLen++
		}
		out = writeVarint(out, uint64(start))
		out = writeVarint(out, uint64(runLen))
		i += runLen
	}

	return out
}

// DecodeReorderMap reconstructs the permutation produced by EncodeReorderMap,
// validating that it has exactly n entries and is a bijection over [0,n).
func DecodeReorderMap(data []byte, n int) ([]int, error) {
	perm := make([]int, 0, n)
	pos := 0
	for pos < len(data) {
		start, p, err := readVarint(data, pos)
		if err != nil {
			return nil, err
		}
		runLen, p2, err := readVarint(data, p)
		if err != nil {
			return nil, err
		}
		pos = p2
		for k := uint64(0); k < runLen; k++ {
			perm = append(perm, int(start+k))
		}
	}

	if err := validatePermutation(perm, n); err != nil {
		return nil, err
	}

	return perm, nil
}
