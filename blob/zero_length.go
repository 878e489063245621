package blob

import (
	"context"
	"io"

	"github.com/arloliu/blobkit/format"
)

// ZeroLengthStore is the degenerate store where every record is empty: only
// a header is persisted (§4.6 "Zero-length").
type ZeroLengthStore struct {
	records int
}

// NewZeroLengthStore creates a store of n empty records.
func NewZeroLengthStore(n int) *ZeroLengthStore {
	return &ZeroLengthStore{records: n}
}

func (s *ZeroLengthStore) NumRecords() int       { return s.records }
func (s *ZeroLengthStore) TotalDataSize() uint64 { return 0 }
func (s *ZeroLengthStore) MemSize() uint64       { return format.HeaderSize + format.FooterSize }
func (s *ZeroLengthStore) GetRecord(id int) ([]byte, error) {
	if err := validateID(id, s.records); err != nil {
		return nil, err
	}

	return nil, nil
}

func (s *ZeroLengthStore) GetRecordAppend(id int, dst []byte, cache *OffsetCache) ([]byte, error) {
	if err := validateID(id, s.records); err != nil {
		return nil, err
	}

	return dst, nil
}

func (s *ZeroLengthStore) PreadRecord(ctx context.Context, reader RecordReader, baseOffset int64, id int) ([]byte, error) {
	if err := validateID(id, s.records); err != nil {
		return nil, err
	}

	return nil, nil
}

func (s *ZeroLengthStore) Reorder(perm []int) (Store, error) {
	if err := validatePermutation(perm); err != nil {
		return nil, err
	}

	return NewZeroLengthStore(s.records), nil
}

func (s *ZeroLengthStore) Purge(deleted []bool) (Store, error) {
	if err := validateDeleteBitmap(deleted, s.records); err != nil {
		return nil, err
	}
	survivors := 0
	for _, d := range deleted {
		if !d {
			survivors++
		}
	}

	return NewZeroLengthStore(survivors), nil
}

func (s *ZeroLengthStore) Metadata() []MetadataView { return nil }

// Save writes the header-and-footer-only file image (§6): a zero-length
// store carries no payload sections at all.
func (s *ZeroLengthStore) Save(w io.Writer) (uint64, error) {
	base := format.FileHeaderBase{
		ClassTag:      format.ClassZeroLength,
		Records:       uint64(s.records),
		ChecksumType:  format.ChecksumXXH64,
		FormatVersion: 1,
	}

	return format.WriteFile(w, base, nil, nil, format.SeedZeroLength)
}

// LoadZeroLengthStore reconstructs a ZeroLengthStore from a file image
// written by Save.
func LoadZeroLengthStore(data []byte) (*ZeroLengthStore, error) {
	base, _, _, err := format.ReadFile(data, format.ClassZeroLength, format.SeedZeroLength)
	if err != nil {
		return nil, err
	}

	return &ZeroLengthStore{records: int(base.Records)}, nil
}
