package dzip

import (
	"io"

	"github.com/arloliu/blobkit/errs"
	"github.com/arloliu/blobkit/format"
	"github.com/arloliu/blobkit/huff"
	"github.com/arloliu/blobkit/internal/checksum"
	"github.com/arloliu/blobkit/internal/xxh"
	"github.com/arloliu/blobkit/uintvec"
)

// packBitmap and unpackBitmap mirror blob's per-record partition bitmap
// (1 bit/record), used here for entropyBitmap.
func packBitmap(bits []bool) []byte {
	out := make([]byte, (len(bits)+7)/8)
	for i, b := range bits {
		if b {
			out[i/8] |= 1 << (uint(i) % 8)
		}
	}

	return out
}

func unpackBitmap(data []byte, n int) ([]bool, error) {
	if len(data) < (n+7)/8 {
		return nil, errs.ErrShortRead
	}
	out := make([]bool, n)
	for i := 0; i < n; i++ {
		out[i] = data[i/8]&(1<<(uint(i)%8)) != 0
	}

	return out, nil
}

// zipOffsetsLog2BlockUnits is log2(uintvec.SortedBlockSize), recorded in the
// header for the sorted offset encoding. Load uses the field only to choose
// the encoding (nonzero selects the sorted vector, zero selects Min0); the
// block size itself always comes from uintvec.SortedBlockSize.
const zipOffsetsLog2BlockUnits = 7 // 1<<7 == uintvec.SortedBlockSize

// Save writes the complete on-disk file image (§6 "Dict-zip extension"):
// payload, offset index, optional entropy bitmap, optional entropy table,
// optional embedded dictionary, in that order. headerCRC is computed over
// the assembled 128-byte header with its own field zeroed, per §6. The
// offset index keeps whichever encoding the store holds: SortedUintVec
// (zipOffsets_log2_blockUnits != 0) or UintVecMin0 (== 0, with
// offsetsUintBits giving the packed width).
func (s *Store) Save(w io.Writer) (uint64, error) {
	var offsetsBytes []byte
	var offsetsUintBits uint8
	var offsetsBlockUnits uint8
	switch idx := s.offsets.(type) {
	case *uintvec.Sorted:
		offsetsBytes = idx.Serialize()
		offsetsBlockUnits = zipOffsetsLog2BlockUnits
	case *uintvec.Min0:
		offsetsBytes = idx.Bytes()
		offsetsUintBits = idx.Width()
	}

	sections := []format.Section{
		{Name: "payload", Data: s.payload},
		{Name: "offsets", Data: offsetsBytes},
	}

	entropyAlgo := format.EntropyNone
	var tableBytes []byte
	if s.entropyTable != nil {
		entropyAlgo = format.EntropyHuffman
		tableBytes = s.entropyTable.CompressedBytes()
		sections = append(sections, format.Section{Name: "entropyBitmap", Data: packBitmap(s.entropyBitmap)})
		sections = append(sections, format.Section{Name: "entropyTable", Data: tableBytes})
	}

	embeddedDictPresent := uint8(0)
	if s.embeddedDict != nil {
		embeddedDictPresent = 1
		sections = append(sections, format.Section{Name: "embeddedDict", Data: s.embeddedDict})
	}

	crc32cLevel := uint8(0)
	if s.checksumType == format.ChecksumCRC32C {
		crc32cLevel = 1
	}

	var entropyTableCRC uint32
	if tableBytes != nil {
		entropyTableCRC = checksum.CRC32C(tableBytes)
	}

	base := format.FileHeaderBase{
		ClassTag:       format.ClassDictZip,
		UnzipSize:      s.TotalDataSize(),
		Records:        uint64(s.records),
		GlobalDictSize: uint64(len(s.dict)),
		ChecksumType:   s.checksumType,
		FormatVersion:  1,
	}
	base.FileSize = format.ComputeFileSize(sections)

	ext := format.DictZipHeaderExt{
		OffsetArrayBytes:         uint64(len(offsetsBytes)),
		PtrListBytes:             uint64(len(s.payload)),
		EmbeddedDict:             uint8(s.embeddedDictCodec) & 0xF,
		EmbeddedDictAligned:      embeddedDictPresent,
		EntropyTableSize:         uint32(len(tableBytes)),
		OffsetsUintBits:          offsetsUintBits,
		CRC32CLevel:              crc32cLevel,
		EntropyAlgo:              uint8(entropyAlgo),
		IsNewRefEncoding:         true,
		ZipOffsetsLog2BlockUnits: offsetsBlockUnits,
		EntropyTableCRC:          entropyTableCRC,
		DictXXHash:               xxh.Sum64Seeded(format.SeedDictZip, s.dict),
		OffsetsCRC:               checksum.CRC32C(offsetsBytes),
	}

	headerBytes := append(base.Bytes(), ext.Bytes()...)
	ext.HeaderCRC = format.ComputeHeaderCRC(headerBytes)

	return format.WriteFile(w, base, ext.Bytes(), sections, format.SeedDictZip)
}

// Load reconstructs a Store from a file image written by Save. dict must be
// the same dictionary bytes used at build time; its XXH64 is checked
// against the header's dictXXHash.
func Load(data []byte, dict []byte) (*Store, error) {
	base, extBytes, sections, err := format.ReadFile(data, format.ClassDictZip, format.SeedDictZip)
	if err != nil {
		return nil, err
	}
	ext, err := format.ParseDictZipHeaderExt(extBytes)
	if err != nil {
		return nil, err
	}
	if xxh.Sum64Seeded(format.SeedDictZip, dict) != ext.DictXXHash {
		return nil, errs.ErrBadXXHash
	}

	off := 0
	payloadLen := format.AlignUp(int(ext.PtrListBytes))
	if len(sections) < payloadLen {
		return nil, errs.ErrShortRead
	}
	payload := sections[:int(ext.PtrListBytes)]
	off += payloadLen

	offsetsAligned := format.AlignUp(int(ext.OffsetArrayBytes))
	if len(sections) < off+offsetsAligned {
		return nil, errs.ErrShortRead
	}
	offsetsData := sections[off : off+int(ext.OffsetArrayBytes)]
	if checksum.CRC32C(offsetsData) != ext.OffsetsCRC {
		return nil, errs.ErrBadCRC32C
	}
	var offsets offsetIndex
	if ext.ZipOffsetsLog2BlockUnits != 0 {
		offsets, err = uintvec.LoadSorted(offsetsData, int(base.Records)+1)
	} else {
		offsets, err = uintvec.LoadMin0(offsetsData, ext.OffsetsUintBits, int(base.Records)+1)
	}
	if err != nil {
		return nil, err
	}
	off += offsetsAligned

	var entropyTable *huff.Table
	var entropyBitmap []bool
	if format.EntropyAlgo(ext.EntropyAlgo) == format.EntropyHuffman {
		bitmapLen := (int(base.Records) + 7) / 8
		bitmapAligned := format.AlignUp(bitmapLen)
		if len(sections) < off+bitmapAligned {
			return nil, errs.ErrShortRead
		}
		entropyBitmap, err = unpackBitmap(sections[off:off+bitmapLen], int(base.Records))
		if err != nil {
			return nil, err
		}
		off += bitmapAligned

		tableAligned := format.AlignUp(int(ext.EntropyTableSize))
		if len(sections) < off+tableAligned {
			return nil, errs.ErrShortRead
		}
		tableData := sections[off : off+int(ext.EntropyTableSize)]
		if checksum.CRC32C(tableData) != ext.EntropyTableCRC {
			return nil, errs.ErrBadTableCRC
		}
		entropyTable, err = huff.LoadTable(tableData)
		if err != nil {
			return nil, err
		}
		off += tableAligned
	}

	var embeddedDict []byte
	embeddedDictCodec := format.CompressionType(ext.EmbeddedDict)
	if ext.EmbeddedDictAligned != 0 {
		embeddedDict = append([]byte(nil), sections[off:]...)
	} else {
		embeddedDictCodec = format.CompressionNone
	}

	return &Store{
		dict:              dict,
		embeddedDict:      embeddedDict,
		embeddedDictCodec: embeddedDictCodec,
		payload:           payload,
		offsets:           offsets,
		unzipSize:         base.UnzipSize,
		entropyTable:      entropyTable,
		entropyBitmap:     entropyBitmap,
		checksumType:      base.ChecksumType,
		records:           int(base.Records),
	}, nil
}
