package format

import (
	"github.com/arloliu/blobkit/endian"
	"github.com/arloliu/blobkit/errs"
)

// Universal on-disk layout (§6):
//
//	[FileHeaderBase 80B][class-specific header fields <=48B]  // total header = 128B
//	[payload blocks, each 16-byte aligned, zero-padded]
//	[optional embedded dict block, 16-byte aligned]
//	[BlobStoreFileFooter 64B]
//
// The final 4 bytes of the file are always footerLength.
const (
	HeaderSize       = 128
	HeaderBaseSize   = 80
	HeaderClassSize  = HeaderSize - HeaderBaseSize // 48
	FooterSize       = 64
	Alignment        = 16
	MagicString      = "terark-blob-store" // 17 bytes
	MagicSize        = 17
	ClassNameTagSize = 20
)

// Seeds used for the footer's class-specific seeded XXH64 (§6 Seeds).
const (
	SeedBlobStoreGeneric uint64 = 0x6873614874636944 // "DictHash"
	SeedDictZip          uint64 = 0x4b52414e53425a44 // "DZBSNARK"
	SeedPlain            uint64 = 0x5342426e69616c50 // "PlainBBS"
	SeedMixedLen         uint64 = 0x6e654c646578694d // "MixedLen"
	SeedEntropyZip       uint64 = 0x5342425f5a617445 // "EtaZ_BBS"
	SeedZipOffset        uint64 = 0x6873614f70695a5a // "ZZipOash" style filler, distinct from generic
	SeedZeroLength       uint64 = 0x6568546f72655a30 // "0ZeroThe" style filler
)

// ClassName enumerates the blob store class tags written into the header.
type ClassName string

const (
	ClassZeroLength ClassName = "ZeroLengthBlobStore"
	ClassPlain      ClassName = "PlainBlobStore"
	ClassZipOffset  ClassName = "ZipOffsetBlobStore"
	ClassMixedLen   ClassName = "MixedLenBlobStore"
	ClassEntropyZip ClassName = "EntropyZipBlobStore"
	ClassDictZip    ClassName = "DictZipBlobStore"
	ClassNestTrie   ClassName = "NestLoudsTrieBlobStore"
)

// FileHeaderBase is the common 80-byte prefix of every blob store header.
// Field layout (little-endian):
//
//	[0:17]   magic "terark-blob-store"
//	[17:37]  classTag (20 bytes, zero-padded)
//	[37:45]  fileSize        u64
//	[45:53]  unzipSize       u64
//	[53:61]  records         u64
//	[61:69]  globalDictSize  u64
//	[69]     checksumType    u8
//	[70]     formatVersion   u8
//	[71:80]  reserved (9 bytes)
type FileHeaderBase struct {
	ClassTag       ClassName
	FileSize       uint64
	UnzipSize      uint64
	Records        uint64
	GlobalDictSize uint64
	ChecksumType   ChecksumType
	FormatVersion  uint8
}

// Bytes serializes the base header into a HeaderBaseSize-byte slice.
func (h *FileHeaderBase) Bytes() []byte {
	buf := make([]byte, HeaderBaseSize)
	copy(buf[0:MagicSize], MagicString)

	tag := []byte(h.ClassTag)
	if len(tag) > ClassNameTagSize {
		tag = tag[:ClassNameTagSize]
	}
	copy(buf[MagicSize:MagicSize+ClassNameTagSize], tag)

	eng := endian.GetLittleEndianEngine()
	off := MagicSize + ClassNameTagSize
	eng.PutUint64(buf[off:off+8], h.FileSize)
	eng.PutUint64(buf[off+8:off+16], h.UnzipSize)
	eng.PutUint64(buf[off+16:off+24], h.Records)
	eng.PutUint64(buf[off+24:off+32], h.GlobalDictSize)
	buf[off+32] = byte(h.ChecksumType)
	buf[off+33] = h.FormatVersion

	return buf
}

// ParseFileHeaderBase parses the common 80-byte prefix.
func ParseFileHeaderBase(data []byte) (*FileHeaderBase, error) {
	if len(data) < HeaderBaseSize {
		return nil, errs.ErrShortHeader
	}
	if string(data[0:MagicSize]) != MagicString {
		return nil, errs.ErrBadMagic
	}

	tagEnd := MagicSize + ClassNameTagSize
	tagBytes := data[MagicSize:tagEnd]
	n := 0
	for n < len(tagBytes) && tagBytes[n] != 0 {
		n++
	}

	eng := endian.GetLittleEndianEngine()
	off := tagEnd
	h := &FileHeaderBase{
		ClassTag:       ClassName(tagBytes[:n]),
		FileSize:       eng.Uint64(data[off : off+8]),
		UnzipSize:      eng.Uint64(data[off+8 : off+16]),
		Records:        eng.Uint64(data[off+16 : off+24]),
		GlobalDictSize: eng.Uint64(data[off+24 : off+32]),
		ChecksumType:   ChecksumType(data[off+32]),
		FormatVersion:  data[off+33],
	}

	return h, nil
}

// FileFooter is the common 64-byte suffix of every blob store file.
//
//	[0:8]   fileXXHash    u64
//	[8:56]  reserved (48 bytes)
//	[56:60] footerLength  u32 (always == FooterSize; present for forward compat)
//	[60:64] footerLength again, duplicated as the literal last 4 bytes of the
//	        file per §6 ("the final 4 bytes of the file are always footerLength")
type FileFooter struct {
	FileXXHash uint64
}

// Bytes serializes the footer given the already-computed seeded XXH64 over
// every preceding byte of the file (header + payload blocks, including
// zero-padding).
func (f *FileFooter) Bytes() []byte {
	buf := make([]byte, FooterSize)
	eng := endian.GetLittleEndianEngine()
	eng.PutUint64(buf[0:8], f.FileXXHash)
	eng.PutUint32(buf[FooterSize-4:FooterSize], uint32(FooterSize))
	eng.PutUint32(buf[FooterSize-8:FooterSize-4], uint32(FooterSize))

	return buf
}

// ParseFileFooter parses the trailing 64 bytes of a file and validates that
// footerLength (the last 4 bytes) equals FooterSize.
func ParseFileFooter(data []byte) (*FileFooter, error) {
	if len(data) < FooterSize {
		return nil, errs.ErrShortFooter
	}

	eng := endian.GetLittleEndianEngine()
	footerLen := eng.Uint32(data[len(data)-4:])
	if footerLen != FooterSize {
		return nil, errs.ErrBadFooterLength
	}

	return &FileFooter{FileXXHash: eng.Uint64(data[0:8])}, nil
}

// AlignUp rounds n up to the next multiple of Alignment.
func AlignUp(n int) int {
	rem := n % Alignment
	if rem == 0 {
		return n
	}

	return n + (Alignment - rem)
}

// PadTo returns buf zero-padded so its length is a multiple of Alignment.
func PadTo(buf []byte) []byte {
	target := AlignUp(len(buf))
	if target == len(buf) {
		return buf
	}
	padded := make([]byte, target)
	copy(padded, buf)

	return padded
}
