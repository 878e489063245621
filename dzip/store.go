package dzip

import (
	"context"

	"github.com/arloliu/blobkit/blob"
	"github.com/arloliu/blobkit/compress"
	"github.com/arloliu/blobkit/errs"
	"github.com/arloliu/blobkit/format"
	"github.com/arloliu/blobkit/huff"
	"github.com/arloliu/blobkit/internal/checksum"
	"github.com/arloliu/blobkit/uintvec"
)

// offsetIndex is the tagged-variant replacement for the source's raw union
// of UintVecMin0/SortedUintVec (§9 Design Notes): both encodings satisfy it,
// and the on-disk discriminator is zipOffsets_log2_blockUnits != 0.
type offsetIndex interface {
	Get2(i int) (uint64, uint64)
	Len() int
}

var (
	_ offsetIndex = (*uintvec.Min0)(nil)
	_ offsetIndex = (*uintvec.Sorted)(nil)
)

// Store is the finalized, immutable dictionary-zip blob store (§3
// "Dictionary-zip instance", §4.7). It satisfies blob.Store.
type Store struct {
	dict              []byte // always resident for decode, whether embedded or supplied out-of-band
	embeddedDict      []byte // non-nil only when the dictionary was persisted inside the file, possibly compressed
	embeddedDictCodec format.CompressionType
	payload           []byte
	offsets           offsetIndex
	unzipSize         uint64 // sum of uncompressed record lengths

	entropyTable  *huff.Table
	entropyBitmap []bool

	checksumType format.ChecksumType
	records      int
}

var _ blob.Store = (*Store)(nil)

func (s *Store) NumRecords() int       { return s.records }
func (s *Store) TotalDataSize() uint64 { return s.unzipSize }
func (s *Store) MemSize() uint64 {
	return uint64(len(s.dict)) + uint64(len(s.payload)) + format.HeaderSize + format.FooterSize
}

// Dictionary returns the shared dictionary bytes Global tokens reference.
func (s *Store) Dictionary() []byte { return s.dict }

// EmbeddedDictBytes decompresses and returns the dictionary block persisted
// inside the file when built WithEmbeddedDict, using the codec selected at
// build time (§4.7 "Finalize": "optional embedded dictionary (raw or
// ZSTD-compressed in place)"). It returns (nil, false, nil) when the store
// was not built with an embedded dictionary.
func (s *Store) EmbeddedDictBytes() ([]byte, bool, error) {
	if s.embeddedDict == nil {
		return nil, false, nil
	}
	if s.embeddedDictCodec == format.CompressionNone {
		return s.embeddedDict, true, nil
	}
	codec, err := compress.GetCodec(s.embeddedDictCodec)
	if err != nil {
		return nil, false, err
	}
	raw, err := codec.Decompress(s.embeddedDict)
	if err != nil {
		return nil, false, err
	}

	return raw, true, nil
}

// decodeBody turns a record's raw body bytes (still checksum-trailed and
// possibly entropy-coded) into the decoded record. It is shared by bodyAt
// (body sliced from the resident payload) and PreadRecord (body read
// through reader), so the pread path exercises the exact same decode as an
// in-memory get.
func (s *Store) decodeBody(id int, body []byte) ([]byte, error) {
	var want uint32
	hasCRC := s.checksumType == format.ChecksumCRC32C
	if hasCRC {
		if len(body) < 4 {
			return nil, errs.ErrShortRead
		}
		trailer := body[len(body)-4:]
		want = uint32(trailer[0]) | uint32(trailer[1])<<8 | uint32(trailer[2])<<16 | uint32(trailer[3])<<24
		body = body[:len(body)-4]
	}

	tokenBytes := body
	if id < len(s.entropyBitmap) && s.entropyBitmap[id] {
		decoded, err := huffDecodeBytes(s.entropyTable, body)
		if err != nil {
			return nil, err
		}
		tokenBytes = decoded
	}

	tokens, err := DecodeTokens(tokenBytes)
	if err != nil {
		return nil, err
	}
	rec := decodeRecord(tokens, s.dict)

	// the trailer covers the original record bytes, so it is checked after
	// the full inflate rather than over the encoded form
	if hasCRC && checksum.CRC32C(rec) != want {
		return nil, errs.ErrBadCRC32C
	}

	return rec, nil
}

func (s *Store) bodyAt(id int) ([]byte, error) {
	begin, end := s.offsets.Get2(id)

	return s.decodeBody(id, s.payload[begin:end])
}

func (s *Store) GetRecord(id int) ([]byte, error) {
	if id < 0 || id >= s.records {
		return nil, errs.ErrInvalidRecordID
	}

	return s.bodyAt(id)
}

func (s *Store) GetRecordAppend(id int, dst []byte, cache *blob.OffsetCache) ([]byte, error) {
	rec, err := s.GetRecord(id)
	if err != nil {
		return nil, err
	}

	return append(dst, rec...), nil
}

func (s *Store) PreadRecord(ctx context.Context, reader blob.RecordReader, baseOffset int64, id int) ([]byte, error) {
	if id < 0 || id >= s.records {
		return nil, errs.ErrInvalidRecordID
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

	return s.decodeBody(id, buf)
}

func (s *Store) Metadata() []blob.MetadataView {
	views := []blob.MetadataView{
		{Name: "payload", Data: s.payload},
	}
	if s.embeddedDict != nil {
		views = append(views, blob.MetadataView{Name: "dict", Data: s.embeddedDict})
	}

	return views
}
