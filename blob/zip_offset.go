package blob

import (
	"context"
	"io"

	"github.com/arloliu/blobkit/compress"
	"github.com/arloliu/blobkit/errs"
	"github.com/arloliu/blobkit/format"
	"github.com/arloliu/blobkit/internal/checksum"
	"github.com/arloliu/blobkit/uintvec"
)

// ZipOffsetStore is like PlainStore but with a block-compressed offset
// index (SortedUintVec) and an optional whole-record codec plus trailer
// checksum per record (§4.6 "Zip-offset").
type ZipOffsetStore struct {
	payload         []byte
	offsets         *uintvec.Sorted
	checksumType    format.ChecksumType
	compressionType format.CompressionType
	codec           compress.Codec // nil when records are stored uncompressed
}

// ZipOffsetOptions configures BuildZipOffsetStore. Compression identifies
// the codec by its on-disk tag (§6) so Save/Load can round-trip it without
// the caller supplying a codec again at load time; it must match Codec when
// Codec is non-nil.
type ZipOffsetOptions struct {
	Checksum    format.ChecksumType
	Compression format.CompressionType
	Codec       compress.Codec
}

// BuildZipOffsetStore compresses each record (if a codec is configured),
// appends an optional checksum trailer, and builds the block-compressed
// offset index over the resulting bodies.
func BuildZipOffsetStore(records [][]byte, opts ZipOffsetOptions) (*ZipOffsetStore, error) {
	bodies := make([][]byte, len(records))
	for i, r := range records {
		body := r
		if opts.Codec != nil {
			compressed, err := opts.Codec.Compress(r)
			if err != nil {
				return nil, err
			}
			body = compressed
		}
		body = appendTrailer(body, opts.Checksum)
		bodies[i] = body
	}

	offsetVals := make([]uint64, len(bodies)+1)
	var total uint64
	for i, b := range bodies {
		offsetVals[i] = total
		total += uint64(len(b))
	}
	offsetVals[len(bodies)] = total

	payload := make([]byte, 0, total)
	for _, b := range bodies {
		payload = append(payload, b...)
	}

	offsets, err := uintvec.BuildSorted(offsetVals)
	if err != nil {
		return nil, err
	}

	return &ZipOffsetStore{
		payload:         payload,
		offsets:         offsets,
		checksumType:    opts.Checksum,
		compressionType: opts.Compression,
		codec:           opts.Codec,
	}, nil
}

func appendTrailer(body []byte, ct format.ChecksumType) []byte {
	switch ct {
	case format.ChecksumCRC16C:
		v := checksum.CRC16C(body)

		return append(body, byte(v), byte(v>>8))
	case format.ChecksumCRC32C:
		v := checksum.CRC32C(body)

		return append(body, byte(v), byte(v>>8), byte(v>>16), byte(v>>24))
	default:
		return body
	}
}

func verifyTrailer(body []byte, ct format.ChecksumType) ([]byte, error) {
	switch ct {
	case format.ChecksumCRC16C:
		if len(body) < 2 {
			return nil, errs.ErrShortRead
		}
		data, trailer := body[:len(body)-2], body[len(body)-2:]
		want := uint16(trailer[0]) | uint16(trailer[1])<<8
		if checksum.CRC16C(data) != want {
			return nil, errs.ErrBadCRC16C
		}

		return data, nil
	case format.ChecksumCRC32C:
		if len(body) < 4 {
			return nil, errs.ErrShortRead
		}
		data, trailer := body[:len(body)-4], body[len(body)-4:]
		want := uint32(trailer[0]) | uint32(trailer[1])<<8 | uint32(trailer[2])<<16 | uint32(trailer[3])<<24
		if checksum.CRC32C(data) != want {
			return nil, errs.ErrBadCRC32C
		}

		return data, nil
	default:
		return body, nil
	}
}

func (s *ZipOffsetStore) NumRecords() int { return s.offsets.Len() - 1 }
func (s *ZipOffsetStore) TotalDataSize() uint64 {
	var total uint64
	for id := 0; id < s.NumRecords(); id++ {
		if rec, err := s.bodyAt(id); err == nil {
			total += uint64(len(rec))
		}
	}

	return total
}
func (s *ZipOffsetStore) MemSize() uint64 {
	return uint64(len(s.payload)) + format.HeaderSize + format.FooterSize
}

func (s *ZipOffsetStore) bodyAt(id int) ([]byte, error) {
	begin, end := s.offsets.Get2(id)
	body, err := verifyTrailer(s.payload[begin:end], s.checksumType)
	if err != nil {
		return nil, err
	}
	if s.codec != nil {
		return s.codec.Decompress(body)
	}
	out := make([]byte, len(body))
	copy(out, body)

	return out, nil
}

func (s *ZipOffsetStore) GetRecord(id int) ([]byte, error) {
	if err := validateID(id, s.NumRecords()); err != nil {
		return nil, err
	}

	return s.bodyAt(id)
}

func (s *ZipOffsetStore) GetRecordAppend(id int, dst []byte, cache *OffsetCache) ([]byte, error) {
	rec, err := s.GetRecord(id)
	if err != nil {
		return nil, err
	}

	return append(dst, rec...), nil
}

func (s *ZipOffsetStore) PreadRecord(ctx context.Context, reader RecordReader, baseOffset int64, id int) ([]byte, error) {
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
	body, err := verifyTrailer(buf, s.checksumType)
	if err != nil {
		return nil, err
	}
	if s.codec != nil {
		return s.codec.Decompress(body)
	}

	return body, nil
}

func (s *ZipOffsetStore) Reorder(perm []int) (Store, error) {
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

	return BuildZipOffsetStore(records, ZipOffsetOptions{Checksum: s.checksumType, Compression: s.compressionType, Codec: s.codec})
}

func (s *ZipOffsetStore) Purge(deleted []bool) (Store, error) {
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

	return BuildZipOffsetStore(records, ZipOffsetOptions{Checksum: s.checksumType, Compression: s.compressionType, Codec: s.codec})
}

func (s *ZipOffsetStore) Metadata() []MetadataView {
	return []MetadataView{{Name: "payload", Data: s.payload}}
}

// Save writes the complete on-disk file image (§6 layout). Zip-offset has
// no class-specific header extension of its own in §6, so it reuses the
// Plain store's extension layout (contentBytes/offsetsBytes): the
// SortedUintVec offsets section is itself self-describing per block, and
// the codec and checksum tags travel as a two-byte prefix on that section
// (compression tag first, then checksum tag).
func (s *ZipOffsetStore) Save(w io.Writer) (uint64, error) {
	offsetsPayload := s.offsets.Serialize()
	offsetsSection := make([]byte, 2+len(offsetsPayload))
	offsetsSection[0] = byte(s.compressionType)
	offsetsSection[1] = byte(s.checksumType)
	copy(offsetsSection[2:], offsetsPayload)

	base := format.FileHeaderBase{
		ClassTag:      format.ClassZipOffset,
		UnzipSize:     s.TotalDataSize(),
		Records:       uint64(s.NumRecords()),
		ChecksumType:  s.checksumType,
		FormatVersion: 1,
	}
	ext := format.PlainHeaderExt{
		ContentBytes: uint64(len(s.payload)),
		OffsetsBytes: uint64(len(offsetsSection)),
	}
	sections := []format.Section{
		{Name: "payload", Data: s.payload},
		{Name: "offsets", Data: offsetsSection},
	}

	return format.WriteFile(w, base, ext.Bytes(), sections, format.SeedZipOffset)
}

// LoadZipOffsetStore reconstructs a ZipOffsetStore from a file image written
// by Save.
func LoadZipOffsetStore(data []byte) (*ZipOffsetStore, error) {
	base, extBytes, sections, err := format.ReadFile(data, format.ClassZipOffset, format.SeedZipOffset)
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
	offsetsSection := sections[payloadLen : payloadLen+int(ext.OffsetsBytes)]
	if len(offsetsSection) < 2 {
		return nil, errs.ErrShortRead
	}
	compressionType := format.CompressionType(offsetsSection[0])
	checksumType := format.ChecksumType(offsetsSection[1])

	offsets, err := uintvec.LoadSorted(offsetsSection[2:], int(base.Records)+1)
	if err != nil {
		return nil, err
	}

	var codec compress.Codec
	if compressionType != format.CompressionNone {
		codec, err = compress.GetCodec(compressionType)
		if err != nil {
			return nil, err
		}
	}

	return &ZipOffsetStore{
		payload:         payload,
		offsets:         offsets,
		checksumType:    checksumType,
		compressionType: compressionType,
		codec:           codec,
	}, nil
}
