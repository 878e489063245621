package blob

import (
	"context"
	"io"

	"github.com/arloliu/blobkit/errs"
	"github.com/arloliu/blobkit/format"
	"github.com/arloliu/blobkit/uintvec"
)

// PlainStore is concatenated records plus a packed offset index (§4.6
// "Plain"): get(i) is two Get2 reads plus a memcpy.
type PlainStore struct {
	payload []byte
	offsets *uintvec.Min0
}

// BuildPlainStore concatenates records and builds their packed offset index.
func BuildPlainStore(records [][]byte) *PlainStore {
	offsets := make([]uint64, len(records)+1)
	var total uint64
	for i, r := range records {
		offsets[i] = total
		total += uint64(len(r))
	}
	offsets[len(records)] = total

	payload := make([]byte, 0, total)
	for _, r := range records {
		payload = append(payload, r...)
	}

	return &PlainStore{payload: payload, offsets: uintvec.BuildMin0(offsets)}
}

func (s *PlainStore) NumRecords() int       { return s.offsets.Len() - 1 }
func (s *PlainStore) TotalDataSize() uint64 { return uint64(len(s.payload)) }
func (s *PlainStore) MemSize() uint64 {
	return uint64(len(s.payload)) + uint64(len(s.offsets.Bytes())) + format.HeaderSize + format.FooterSize
}

func (s *PlainStore) GetRecord(id int) ([]byte, error) {
	if err := validateID(id, s.NumRecords()); err != nil {
		return nil, err
	}
	begin, end := s.offsets.Get2(id)
	out := make([]byte, end-begin)
	copy(out, s.payload[begin:end])

	return out, nil
}

func (s *PlainStore) GetRecordAppend(id int, dst []byte, cache *OffsetCache) ([]byte, error) {
	if err := validateID(id, s.NumRecords()); err != nil {
		return nil, err
	}
	begin, end := s.offsets.Get2(id)

	return append(dst, s.payload[begin:end]...), nil
}

func (s *PlainStore) PreadRecord(ctx context.Context, reader RecordReader, baseOffset int64, id int) ([]byte, error) {
	if err := validateID(id, s.NumRecords()); err != nil {
		return nil, err
	}
	begin, end := s.offsets.Get2(id)
	buf := make([]byte, end-begin)
	n, err := reader(ctx, buf, baseOffset+int64(begin))
	if err != nil {
		return nil, err
	}
	if n != len(buf) {
		return nil, errs.ErrShortRead
	}

	return buf, nil
}

func (s *PlainStore) Reorder(perm []int) (Store, error) {
	if err := validatePermutation(perm); err != nil {
		return nil, err
	}
	n := s.NumRecords()
	records := make([][]byte, n)
	for i, src := range perm {
		rec, err := s.GetRecord(src)
		if err != nil {
			return nil, err
		}
		records[i] = rec
	}

	return BuildPlainStore(records), nil
}

func (s *PlainStore) Purge(deleted []bool) (Store, error) {
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

	return BuildPlainStore(records), nil
}

func (s *PlainStore) Metadata() []MetadataView {
	return []MetadataView{
		{Name: "payload", Data: s.payload},
		{Name: "offsets", Data: s.offsets.Bytes()},
	}
}

// Save writes the complete on-disk file image (§6 layout) for this store:
// header, payload section, offsets section, footer.
func (s *PlainStore) Save(w io.Writer) (uint64, error) {
	offsetsBytes := s.offsets.Bytes()
	base := format.FileHeaderBase{
		ClassTag:      format.ClassPlain,
		UnzipSize:     uint64(len(s.payload)),
		Records:       uint64(s.NumRecords()),
		ChecksumType:  format.ChecksumXXH64,
		FormatVersion: 1,
	}
	ext := format.PlainHeaderExt{
		ContentBytes:    uint64(len(s.payload)),
		OffsetsBytes:    uint64(len(offsetsBytes)),
		OffsetsUintBits: s.offsets.Width(),
	}
	sections := []format.Section{
		{Name: "payload", Data: s.payload},
		{Name: "offsets", Data: offsetsBytes},
	}

	return format.WriteFile(w, base, ext.Bytes(), sections, format.SeedPlain)
}

// LoadPlainStore reconstructs a PlainStore from a file image written by Save.
func LoadPlainStore(data []byte) (*PlainStore, error) {
	base, extBytes, sections, err := format.ReadFile(data, format.ClassPlain, format.SeedPlain)
	if err != nil {
		return nil, err
	}
	ext, err := format.ParsePlainHeaderExt(extBytes)
	if err != nil {
		return nil, err
	}

	payloadLen := format.AlignUp(int(ext.ContentBytes))
	if len(sections) < payloadLen+int(ext.OffsetsBytes) {
		return nil, errs.ErrShortRead
	}
	payload := sections[:int(ext.ContentBytes)]
	offsetsData := sections[payloadLen : payloadLen+int(ext.OffsetsBytes)]

	offsets, err := uintvec.LoadMin0(offsetsData, ext.OffsetsUintBits, int(base.Records)+1)
	if err != nil {
		return nil, err
	}

	return &PlainStore{payload: payload, offsets: offsets}, nil
}
