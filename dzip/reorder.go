package dzip

import (
	"github.com/arloliu/blobkit/blob"
	"github.com/arloliu/blobkit/errs"
	"github.com/arloliu/blobkit/uintvec"
)

// Reorder rebuilds a new store whose record i holds the bytes of this
// store's record perm[i] (§4.7 "Reorder"). Dictionary bytes, entropy table,
// and any embedded-dict block are copied verbatim; only the offset index
// (rebuilt with the same encoding the source used), payload order, and
// entropyBitmap are permuted.
func (s *Store) Reorder(perm []int) (blob.Store, error) {
	if err := validatePermutation(perm, s.records); err != nil {
		return nil, err
	}

	newBitmap := make([]bool, len(perm))
	var payload []byte
	offsetVals := make([]uint64, len(perm)+1)
	var total uint64

	for i, src := range perm {
		begin, end := s.offsets.Get2(src)
		body := append([]byte(nil), s.payload[begin:end]...)
		offsetVals[i] = total
		total += uint64(len(body))
		payload = append(payload, body...)
		if src < len(s.entropyBitmap) {
			newBitmap[i] = s.entropyBitmap[src]
		}
	}
	offsetVals[len(perm)] = total

	var offsets offsetIndex
	if _, packed := s.offsets.(*uintvec.Min0); packed {
		offsets = uintvec.BuildMin0(offsetVals)
	} else {
		sorted, err := uintvec.BuildSorted(offsetVals)
		if err != nil {
			return nil, err
		}
		offsets = sorted
	}

	return s.rebuildWith(payload, offsets, newBitmap, s.unzipSize), nil
}

// Purge rebuilds a new store containing only records whose id is not set
// in deleted (§4.7 "Purge"): same shape as Reorder, but skipping deleted
// ids; the new offset index is always UintVecMin0 with recomputed bit
// width. Deleted records are inflated once to learn how much of unzipSize
// leaves with them.
func (s *Store) Purge(deleted []bool) (blob.Store, error) {
	if len(deleted) != s.records {
		return nil, errs.ErrInvalidDeleteBitmap
	}

	var newBitmap []bool
	var payload []byte
	var offsetVals []uint64
	var total uint64
	unzipSize := s.unzipSize

	for id := 0; id < s.records; id++ {
		if deleted[id] {
			rec, err := s.bodyAt(id)
			if err != nil {
				return nil, err
			}
			unzipSize -= uint64(len(rec))

			continue
		}
		begin, end := s.offsets.Get2(id)
		body := append([]byte(nil), s.payload[begin:end]...)
		offsetVals = append(offsetVals, total)
		total += uint64(len(body))
		payload = append(payload, body...)
		if id < len(s.entropyBitmap) {
			newBitmap = append(newBitmap, s.entropyBitmap[id])
		} else {
			newBitmap = append(newBitmap, false)
		}
	}
	offsetVals = append(offsetVals, total)

	return s.rebuildWith(payload, uintvec.BuildMin0(offsetVals), newBitmap, unzipSize), nil
}

func (s *Store) rebuildWith(payload []byte, offsets offsetIndex, bitmap []bool, unzipSize uint64) *Store {
	return &Store{
		dict:              s.dict,
		embeddedDict:      s.embeddedDict,
		embeddedDictCodec: s.embeddedDictCodec,
		payload:           payload,
		offsets:           offsets,
		unzipSize:         unzipSize,
		entropyTable:      s.entropyTable,
		entropyBitmap:     bitmap,
		checksumType:      s.checksumType,
		records:           len(bitmap),
	}
}

func validatePermutation(perm []int, n int) error {
	if len(perm) != n {
		return errs.ErrInvalidPermutation
	}
	seen := make([]bool, n)
	for _, p := range perm {
		if p < 0 || p >= n || seen[p] {
			return errs.ErrInvalidPermutation
		}
		seen[p] = true
	}

	return nil
}
