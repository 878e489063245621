package blob

import (
	"context"
	"io"

	"github.com/arloliu/blobkit/errs"
	"github.com/arloliu/blobkit/format"
	"github.com/arloliu/blobkit/uintvec"
)

// MixedLenStore partitions records by whether their length equals a fixed
// constant (§4.6 "Mixed-length"): fixed-length records are packed
// tightly (no per-record offsets needed), variable-length records keep
// their own offset index, and a rank bitmap maps a global id to its
// partition-local rank.
type MixedLenStore struct {
	fixedLen   int
	isFixed    []bool // per global id
	fixedRank  []int  // cumulative count of fixed records up to and including i
	varRank    []int  // cumulative count of variable records up to and including i
	fixedBytes []byte
	varPayload []byte
	varOffsets *uintvec.Min0
}

// BuildMixedLenStore partitions records by fixedLen, the mode length.
func BuildMixedLenStore(records [][]byte, fixedLen int) *MixedLenStore {
	n := len(records)
	s := &MixedLenStore{
		fixedLen:  fixedLen,
		isFixed:   make([]bool, n),
		fixedRank: make([]int, n),
		varRank:   make([]int, n),
	}

	var varRecords [][]byte
	fixedCount, varCount := 0, 0
	for i, r := range records {
		if len(r) == fixedLen {
			s.isFixed[i] = true
			s.fixedBytes = append(s.fixedBytes, r...)
			fixedCount++
		} else {
			varRecords = append(varRecords, r)
			varCount++
		}
		s.fixedRank[i] = fixedCount
		s.varRank[i] = varCount
	}

	varOffsetVals := make([]uint64, len(varRecords)+1)
	var total uint64
	for i, r := range varRecords {
		varOffsetVals[i] = total
		total += uint64(len(r))
	}
	varOffsetVals[len(varRecords)] = total
	s.varOffsets = uintvec.BuildMin0(varOffsetVals)

	for _, r := range varRecords {
		s.varPayload = append(s.varPayload, r...)
	}

	return s
}

func (s *MixedLenStore) NumRecords() int { return len(s.isFixed) }

func (s *MixedLenStore) TotalDataSize() uint64 {
	return uint64(len(s.fixedBytes)) + uint64(len(s.varPayload))
}

func (s *MixedLenStore) MemSize() uint64 {
	return uint64(len(s.fixedBytes)) + uint64(len(s.varPayload)) + uint64(len(s.varOffsets.Bytes())) +
		uint64(len(s.isFixed)) + format.HeaderSize + format.FooterSize
}

func (s *MixedLenStore) GetRecord(id int) ([]byte, error) {
	if err := validateID(id, s.NumRecords()); err != nil {
		return nil, err
	}
	if s.isFixed[id] {
		rank := s.fixedRank[id] - 1
		begin := rank * s.fixedLen
		out := make([]byte, s.fixedLen)
		copy(out, s.fixedBytes[begin:begin+s.fixedLen])

		return out, nil
	}
	rank := s.varRank[id] - 1
	begin, end := s.varOffsets.Get2(rank)
	out := make([]byte, end-begin)
	copy(out, s.varPayload[begin:end])

	return out, nil
}

func (s *MixedLenStore) GetRecordAppend(id int, dst []byte, cache *OffsetCache) ([]byte, error) {
	rec, err := s.GetRecord(id)
	if err != nil {
		return nil, err
	}

	return append(dst, rec...), nil
}

func (s *MixedLenStore) PreadRecord(ctx context.Context, reader RecordReader, baseOffset int64, id int) ([]byte, error) {
	if err := validateID(id, s.NumRecords()); err != nil {
		return nil, err
	}
	if s.isFixed[id] {
		rank := s.fixedRank[id] - 1
		begin := int64(rank * s.fixedLen)
		buf := make([]byte, s.fixedLen)
		n, err := reader(ctx, buf, baseOffset+begin)
		if err != nil {
			return nil, err
		}
		if n != len(buf) {
			return nil, errs.ErrShortRead
		}

		return buf, nil
	}

	return s.GetRecord(id)
}

func (s *MixedLenStore) Reorder(perm []int) (Store, error) {
	if err := validatePermutation(perm); err != nil {
		return nil, err
	}
	records := make([][]byte, len(perm))
	for i, src := range perm {
		rec, err := s.GetRecord(src)
		if err != nil {
			return nil, err
		}
		records[i] = rec
	}

	return BuildMixedLenStore(records, s.fixedLen), nil
}

func (s *MixedLenStore) Purge(deleted []bool) (Store, error) {
	if err := validateDeleteBitmap(deleted, s.NumRecords()); err != nil {
		return nil, err
	}
	var records [][]byte
	for id := 0; id < s.NumRecords(); id++ {
		if deleted[id] {
			continue
		}
		rec, err := s.GetRecord(id)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}

	return BuildMixedLenStore(records, s.fixedLen), nil
}

func (s *MixedLenStore) Metadata() []MetadataView {
	return []MetadataView{
		{Name: "fixedBytes", Data: s.fixedBytes},
		{Name: "varPayload", Data: s.varPayload},
		{Name: "varOffsets", Data: s.varOffsets.Bytes()},
	}
}

// packIsFixed packs the per-record partition bitmap at 1 bit/record. Both
// fixedRank and varRank are cumulative counts over this bitmap, so only it
// (not the ranks themselves) needs to persist.
func packIsFixed(isFixed []bool) []byte {
	out := make([]byte, (len(isFixed)+7)/8)
	for i, f := range isFixed {
		if f {
			out[i/8] |= 1 << (uint(i) % 8)
		}
	}

	return out
}

func unpackIsFixed(data []byte, n int) ([]bool, []int, []int, error) {
	if len(data) < (n+7)/8 {
		return nil, nil, nil, errs.ErrShortRead
	}
	isFixed := make([]bool, n)
	fixedRank := make([]int, n)
	varRank := make([]int, n)
	fixedCount, varCount := 0, 0
	for i := 0; i < n; i++ {
		if data[i/8]&(1<<(uint(i)%8)) != 0 {
			isFixed[i] = true
			fixedCount++
		} else {
			varCount++
		}
		fixedRank[i] = fixedCount
		varRank[i] = varCount
	}

	return isFixed, fixedRank, varRank, nil
}

// Save writes the complete on-disk file image (§6 layout): fixedBytes,
// varPayload, varOffsets, and the isFixed partition bitmap, in that order.
func (s *MixedLenStore) Save(w io.Writer) (uint64, error) {
	varOffsetsBytes := s.varOffsets.Bytes()
	bitmap := packIsFixed(s.isFixed)

	base := format.FileHeaderBase{
		ClassTag:      format.ClassMixedLen,
		UnzipSize:     uint64(len(s.fixedBytes) + len(s.varPayload)),
		Records:       uint64(s.NumRecords()),
		ChecksumType:  format.ChecksumNone,
		FormatVersion: 1,
	}
	fixedNum := uint64(0)
	if len(s.isFixed) > 0 {
		fixedNum = uint64(s.fixedRank[len(s.fixedRank)-1])
	}
	ext := format.MixedLenHeaderExt{
		UnzipSize:                  base.UnzipSize,
		OffsetsUintBits:            s.varOffsets.Width(),
		FixedLen:                   uint32(s.fixedLen),
		IsFixedRankSelectBytesDiv8: uint32(len(bitmap)),
		VarLenBytes:                uint64(len(s.varPayload)),
		FixedNum:                   fixedNum,
	}
	sections := []format.Section{
		{Name: "fixedBytes", Data: s.fixedBytes},
		{Name: "varPayload", Data: s.varPayload},
		{Name: "varOffsets", Data: varOffsetsBytes},
		{Name: "isFixed", Data: bitmap},
	}

	return format.WriteFile(w, base, ext.Bytes(), sections, format.SeedMixedLen)
}

// LoadMixedLenStore reconstructs a MixedLenStore from a file image written
// by Save.
func LoadMixedLenStore(data []byte) (*MixedLenStore, error) {
	base, extBytes, sections, err := format.ReadFile(data, format.ClassMixedLen, format.SeedMixedLen)
	if err != nil {
		return nil, err
	}
	ext, err := format.ParseMixedLenHeaderExt(extBytes)
	if err != nil {
		return nil, err
	}

	n := int(base.Records)
	fixedBytesLen := int(ext.FixedNum) * int(ext.FixedLen)
	varOffsetsLen := (int(n-int(ext.FixedNum)+1)*int(ext.OffsetsUintBits) + 7) / 8

	off := 0
	fixedBytesAligned := format.AlignUp(fixedBytesLen)
	if len(sections) < fixedBytesAligned {
		return nil, errs.ErrShortRead
	}
	fixedBytes := sections[off:fixedBytesLen]
	off += fixedBytesAligned

	varPayloadAligned := format.AlignUp(int(ext.VarLenBytes))
	if len(sections) < off+varPayloadAligned {
		return nil, errs.ErrShortRead
	}
	varPayload := sections[off : off+int(ext.VarLenBytes)]
	off += varPayloadAligned

	varOffsetsAligned := format.AlignUp(varOffsetsLen)
	if len(sections) < off+varOffsetsAligned {
		return nil, errs.ErrShortRead
	}
	varOffsetsData := sections[off : off+varOffsetsLen]
	off += varOffsetsAligned

	bitmapLen := int(ext.IsFixedRankSelectBytesDiv8)
	bitmapAligned := format.AlignUp(bitmapLen)
	if len(sections) < off+bitmapAligned {
		return nil, errs.ErrShortRead
	}
	bitmap := sections[off : off+bitmapLen]

	isFixed, fixedRank, varRank, err := unpackIsFixed(bitmap, n)
	if err != nil {
		return nil, err
	}

	varOffsets, err := uintvec.LoadMin0(varOffsetsData, ext.OffsetsUintBits, n-int(ext.FixedNum)+1)
	if err != nil {
		return nil, err
	}

	return &MixedLenStore{
		fixedLen:   int(ext.FixedLen),
		isFixed:    isFixed,
		fixedRank:  fixedRank,
		varRank:    varRank,
		fixedBytes: fixedBytes,
		varPayload: varPayload,
		varOffsets: varOffsets,
	}, nil
}
