package blob

import (
	"context"
	"io"

	"github.com/arloliu/blobkit/bitio"
	"github.com/arloliu/blobkit/errs"
	"github.com/arloliu/blobkit/format"
	"github.com/arloliu/blobkit/hist"
	"github.com/arloliu/blobkit/huff"
	"github.com/arloliu/blobkit/uintvec"
)

// EntropyZipStore whole-corpus Huffman-encodes every record under a single
// shared code table, order-0 or order-1, with record boundaries tracked as
// bit offsets (§4.6 "Entropy-zip").
type EntropyZipStore struct {
	table      *huff.Table
	order      format.EntropyOrder
	bits       bitio.EntropyBits
	bitOffsets *uintvec.Sorted // N+1 bit offsets into bits.Data
	lens       []int           // byte length of each record, needed by the decoder
}

// ChooseOrder picks order-1 over order-0 when it is expected to win by a
// comfortable margin, per §4.6: "order-1 wins when est_o0*15/16 >= est_o1".
func ChooseOrder(h *hist.Histogram) format.EntropyOrder {
	estO0 := h.EstimateSize()
	estO1 := h.EstimateSizeOrder1()
	if estO0*15/16 >= estO1 {
		return format.Order1
	}

	return format.Order0
}

// BuildEntropyZipStore builds the shared table (order chosen by the caller)
// and Huffman-encodes every record through a single (non-interleaved)
// stream, recording each record's start/end bit offset.
func BuildEntropyZipStore(records [][]byte, order format.EntropyOrder) (*EntropyZipStore, error) {
	h := hist.New(int(order), 0, 1<<32-1)
	for _, r := range records {
		h.AddRecord(r)
	}
	h.Finish()

	var table *huff.Table
	var err error
	if order == format.Order1 {
		table, err = huff.BuildOrder1(h)
	} else {
		table, err = huff.BuildOrder0(&h.O0)
	}
	if err != nil {
		return nil, err
	}

	w := bitio.NewReverseWriter(len(records) * 8)
	bitOffsetVals := make([]uint64, len(records)+1)
	lens := make([]int, len(records))
	for i, rec := range records {
		bitOffsetVals[i] = w.BitLen()
		lens[i] = len(rec)
		ctxIdx := huff.FirstSymContext
		for j, b := range rec {
			if order == format.Order1 && j > 0 {
				ctxIdx = int(rec[j-1])
			}
			encodeSymbol(w, table, ctxIdx, b)
		}
	}
	bitOffsetVals[len(records)] = w.BitLen()

	bitOffsets, err := uintvec.BuildSorted(bitOffsetVals)
	if err != nil {
		return nil, err
	}

	return &EntropyZipStore{
		table:      table,
		order:      order,
		bits:       w.Finish(),
		bitOffsets: bitOffsets,
		lens:       lens,
	}, nil
}

// encodeSymbol and decodeSymbol are package-level helpers rather than
// exported huff API because entropy-zip needs single-symbol granularity to
// track per-record bit offsets, unlike huff's whole-record Encode×N entry
// points.
func encodeSymbol(w *bitio.ReverseWriter, t *huff.Table, ctxIdx int, b byte) {
	l, code := t.CodeFor(ctxIdx, b)
	w.Write(uint64(code), l)
}

func (s *EntropyZipStore) NumRecords() int { return len(s.lens) }

func (s *EntropyZipStore) TotalDataSize() uint64 {
	var total uint64
	for _, l := range s.lens {
		total += uint64(l)
	}

	return total
}

func (s *EntropyZipStore) MemSize() uint64 {
	return uint64(len(s.bits.Data)) + format.HeaderSize + format.FooterSize
}

func (s *EntropyZipStore) decodeAt(id int) ([]byte, error) {
	begin, end := s.bitOffsets.Get2(id)
	sub := bitio.EntropyBits{Data: s.bits.Data, SizeInBits: end}
	r := bitio.NewForwardReader(sub)
	r.UpdateSize(begin)

	l := s.lens[id]
	rec := make([]byte, l)
	ctxIdx := huff.FirstSymContext
	for j := 0; j < l; j++ {
		if s.order == format.Order1 && j > 0 {
			ctxIdx = int(rec[j-1])
		}
		sym, length, ok := s.table.DecodeOne(ctxIdx, r.Peek(huff.MaxBits))
		if !ok {
			return nil, errs.ErrHuffmanOverrun
		}
		r.UpdateSize(uint64(length))
		rec[j] = sym
	}

	return rec, nil
}

func (s *EntropyZipStore) GetRecord(id int) ([]byte, error) {
	if err := validateID(id, s.NumRecords()); err != nil {
		return nil, err
	}

	return s.decodeAt(id)
}

func (s *EntropyZipStore) GetRecordAppend(id int, dst []byte, cache *OffsetCache) ([]byte, error) {
	rec, err := s.GetRecord(id)
	if err != nil {
		return nil, err
	}

	return append(dst, rec...), nil
}

func (s *EntropyZipStore) PreadRecord(ctx context.Context, reader RecordReader, baseOffset int64, id int) ([]byte, error) {
	// Entropy-zip records are not byte-aligned, so pread-with-cache falls
	// back to in-memory decode; the whole bitstream is expected to already
	// be resident (entropy-zip stores are typically small / hot).
	return s.GetRecord(id)
}

func (s *EntropyZipStore) Reorder(perm []int) (Store, error) {
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

	return BuildEntropyZipStore(records, s.order)
}

func (s *EntropyZipStore) Purge(deleted []bool) (Store, error) {
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

	return BuildEntropyZipStore(records, s.order)
}

func (s *EntropyZipStore) Metadata() []MetadataView {
	return []MetadataView{
		{Name: "bits", Data: s.bits.Data},
		{Name: "bitOffsets", Data: s.bitOffsets.Bytes()},
	}
}

// Save writes the complete on-disk file image (§6 layout): the Huffman
// table (self-compressed when that is smaller, flagged via EntropyFlags
// NOCOMPRESS_TABLE otherwise), the packed bitstream, the block-compressed
// bit-offset index, and (as the final section, so it needs no length field
// of its own) the per-record byte lengths the decoder needs since record
// bit lengths are not fixed width.
func (s *EntropyZipStore) Save(w io.Writer) (uint64, error) {
	tableBytes := s.table.CompressedBytes()
	var flags uint8
	if len(tableBytes) > 0 && tableBytes[0] != 255 {
		flags |= format.EntropyFlagNoCompressTable
	}
	offsetsBytes := s.bitOffsets.Serialize()

	lensVals := make([]uint64, len(s.lens))
	for i, l := range s.lens {
		lensVals[i] = uint64(l)
	}
	lensVec := uintvec.BuildMin0(lensVals)
	lensSection := append([]byte{lensVec.Width()}, lensVec.Bytes()...)

	base := format.FileHeaderBase{
		ClassTag:      format.ClassEntropyZip,
		UnzipSize:     s.TotalDataSize(),
		Records:       uint64(s.NumRecords()),
		ChecksumType:  format.ChecksumNone,
		FormatVersion: 1,
	}
	ext := format.EntropyZipHeaderExt{
		ContentBits:  s.bits.SizeInBits,
		OffsetsBytes: uint64(len(offsetsBytes)),
		EntropyOrder: uint8(s.order),
		EntropyFlags: flags,
		TableBytes:   uint64(len(tableBytes)),
	}
	sections := []format.Section{
		{Name: "table", Data: tableBytes},
		{Name: "bits", Data: s.bits.Data},
		{Name: "bitOffsets", Data: offsetsBytes},
		{Name: "lens", Data: lensSection},
	}

	return format.WriteFile(w, base, ext.Bytes(), sections, format.SeedEntropyZip)
}

// LoadEntropyZipStore reconstructs an EntropyZipStore from a file image
// written by Save.
func LoadEntropyZipStore(data []byte) (*EntropyZipStore, error) {
	base, extBytes, sections, err := format.ReadFile(data, format.ClassEntropyZip, format.SeedEntropyZip)
	if err != nil {
		return nil, err
	}
	ext, err := format.ParseEntropyZipHeaderExt(extBytes)
	if err != nil {
		return nil, err
	}

	off := 0
	tableAligned := format.AlignUp(int(ext.TableBytes))
	if len(sections) < tableAligned {
		return nil, errs.ErrShortRead
	}
	table, err := huff.LoadTable(sections[:int(ext.TableBytes)])
	if err != nil {
		return nil, err
	}
	off += tableAligned

	bitsLen := (int(ext.ContentBits) + 7) / 8
	bitsAligned := format.AlignUp(bitsLen)
	if len(sections) < off+bitsAligned {
		return nil, errs.ErrShortRead
	}
	bitsData := sections[off : off+bitsLen]
	off += bitsAligned

	offsetsAligned := format.AlignUp(int(ext.OffsetsBytes))
	if len(sections) < off+offsetsAligned {
		return nil, errs.ErrShortRead
	}
	bitOffsets, err := uintvec.LoadSorted(sections[off:off+int(ext.OffsetsBytes)], int(base.Records)+1)
	if err != nil {
		return nil, err
	}
	off += offsetsAligned

	if len(sections) < off+1 {
		return nil, errs.ErrShortRead
	}
	lensWidth := sections[off]
	lensVec, err := uintvec.LoadMin0(sections[off+1:], lensWidth, int(base.Records))
	if err != nil {
		return nil, err
	}
	lens := make([]int, base.Records)
	for i := range lens {
		lens[i] = int(lensVec.Get(i))
	}

	return &EntropyZipStore{
		table:      table,
		order:      format.EntropyOrder(ext.EntropyOrder),
		bits:       bitio.EntropyBits{Data: bitsData, SizeInBits: ext.ContentBits},
		bitOffsets: bitOffsets,
		lens:       lens,
	}, nil
}
