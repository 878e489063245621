// Package format defines the on-disk wire format shared by every blob store:
// the 128-byte universal header, 64-byte footer, class-name tags, checksum
// seeds, and the small enums (compression / entropy / checksum level) that
// headers encode. All multi-byte integers are little-endian; cross-endian
// wire compatibility is out of scope.
package format

// CompressionType identifies the general-purpose body/embedded-dict codec.
// Values are preserved from the codec enumeration this module was adapted
// from so compress.CreateCodec needs no changes.
type CompressionType uint8

const (
	CompressionNone CompressionType = 0x1
	CompressionZstd CompressionType = 0x2
	CompressionS2   CompressionType = 0x3
	CompressionLZ4  CompressionType = 0x4
)

func (c CompressionType) String() string {
	switch c {
	case CompressionNone:
		return "None"
	case CompressionZstd:
		return "Zstd"
	case CompressionS2:
		return "S2"
	case CompressionLZ4:
		return "LZ4"
	default:
		return "Unknown"
	}
}

// EntropyAlgo identifies the second-pass entropy coder, if any, applied over
// a blob store's payload or per-record bodies.
type EntropyAlgo uint8

const (
	EntropyNone    EntropyAlgo = 0x0
	EntropyHuffman EntropyAlgo = 0x1
	EntropyRans    EntropyAlgo = 0x2
)

func (e EntropyAlgo) String() string {
	switch e {
	case EntropyNone:
		return "None"
	case EntropyHuffman:
		return "Huffman"
	case EntropyRans:
		return "Rans"
	default:
		return "Unknown"
	}
}

// EntropyOrder identifies the context order used by a histogram/codec.
type EntropyOrder uint8

const (
	Order0 EntropyOrder = 0
	Order1 EntropyOrder = 1
	Order2 EntropyOrder = 2
)

// ChecksumType identifies the per-record or file-level checksum algorithm.
type ChecksumType uint8

const (
	ChecksumNone   ChecksumType = 0x0
	ChecksumCRC16C ChecksumType = 0x1
	ChecksumCRC32C ChecksumType = 0x2
	ChecksumXXH64  ChecksumType = 0x3
)

func (c ChecksumType) String() string {
	switch c {
	case ChecksumNone:
		return "None"
	case ChecksumCRC16C:
		return "CRC16C"
	case ChecksumCRC32C:
		return "CRC32C"
	case ChecksumXXH64:
		return "XXH64"
	default:
		return "Unknown"
	}
}

// OffsetEncoding selects between the two offset-index representations every
// blob store needing N+1 offsets may use (§3 Offset index).
type OffsetEncoding uint8

const (
	// OffsetPacked stores every offset at a fixed bit width (UintVecMin0).
	OffsetPacked OffsetEncoding = 0x0
	// OffsetSorted stores offsets block-compressed (SortedUintVec).
	OffsetSorted OffsetEncoding = 0x1
)
