package format

import (
	"github.com/arloliu/blobkit/endian"
	"github.com/arloliu/blobkit/errs"
	"github.com/arloliu/blobkit/internal/checksum"
)

// padExt right-pads (or truncates) buf to HeaderClassSize, matching the
// spec's "class-specific header fields <=48B" allowance for classes whose
// extension doesn't use every byte.
func padExt(buf []byte) []byte {
	if len(buf) >= HeaderClassSize {
		return buf[:HeaderClassSize]
	}
	out := make([]byte, HeaderClassSize)
	copy(out, buf)

	return out
}

// PlainHeaderExt is PlainBlobStore's 48-byte class-specific header extension
// (§6 "Plain store header extension").
type PlainHeaderExt struct {
	ContentBytes    uint64
	OffsetsBytes    uint64
	OffsetsUintBits uint8
}

func (e PlainHeaderExt) Bytes() []byte {
	buf := make([]byte, 17)
	eng := endian.GetLittleEndianEngine()
	eng.PutUint64(buf[0:8], e.ContentBytes)
	eng.PutUint64(buf[8:16], e.OffsetsBytes)
	buf[16] = e.OffsetsUintBits

	return padExt(buf)
}

func ParsePlainHeaderExt(data []byte) (PlainHeaderExt, error) {
	if len(data) < HeaderClassSize {
		return PlainHeaderExt{}, errs.ErrShortHeader
	}
	eng := endian.GetLittleEndianEngine()

	return PlainHeaderExt{
		ContentBytes:    eng.Uint64(data[0:8]),
		OffsetsBytes:    eng.Uint64(data[8:16]),
		OffsetsUintBits: data[16],
	}, nil
}

// MixedLenHeaderExt is MixedLenBlobStore's 48-byte class-specific header
// extension (§6 "Mixed-length extension").
type MixedLenHeaderExt struct {
	UnzipSize                  uint64
	OffsetsUintBits            uint8
	ChecksumLevel              uint8
	FixedLen                   uint32
	IsFixedRankSelectBytesDiv8 uint32
	VarLenBytes                uint64
	FixedNum                   uint64
}

func (e MixedLenHeaderExt) Bytes() []byte {
	buf := make([]byte, 40)
	eng := endian.GetLittleEndianEngine()
	eng.PutUint64(buf[0:8], e.UnzipSize)
	buf[8] = e.OffsetsUintBits
	buf[9] = e.ChecksumLevel
	// buf[10:16] reserved padding
	eng.PutUint32(buf[16:20], e.FixedLen)
	eng.PutUint32(buf[20:24], e.IsFixedRankSelectBytesDiv8)
	eng.PutUint64(buf[24:32], e.VarLenBytes)
	eng.PutUint64(buf[32:40], e.FixedNum)

	return padExt(buf)
}

func ParseMixedLenHeaderExt(data []byte) (MixedLenHeaderExt, error) {
	if len(data) < HeaderClassSize {
		return MixedLenHeaderExt{}, errs.ErrShortHeader
	}
	eng := endian.GetLittleEndianEngine()

	return MixedLenHeaderExt{
		UnzipSize:                  eng.Uint64(data[0:8]),
		OffsetsUintBits:            data[8],
		ChecksumLevel:              data[9],
		FixedLen:                   eng.Uint32(data[16:20]),
		IsFixedRankSelectBytesDiv8: eng.Uint32(data[20:24]),
		VarLenBytes:                eng.Uint64(data[24:32]),
		FixedNum:                   eng.Uint64(data[32:40]),
	}, nil
}

// EntropyFlagNoCompressTable is EntropyZipHeaderExt.EntropyFlags bit 0: set
// when the decoder table is stored raw rather than self-compressed (§4.6,
// §9.iii). Pre-formatVersion-1 files have the bit zero and still carry an
// uncompressed table; huff.LoadTable disambiguates by the leading byte, so
// both generations load through the same path.
const EntropyFlagNoCompressTable uint8 = 0x01

// EntropyZipHeaderExt is EntropyZipBlobStore's 48-byte class-specific header
// extension (§6 "Entropy-zip extension").
type EntropyZipHeaderExt struct {
	ContentBits           uint64
	OffsetsBytes          uint64
	OffsetsLog2BlockUnits uint8
	EntropyOrder          uint8
	ChecksumLevel         uint8
	EntropyFlags          uint8
	TableBytes            uint64
}

func (e EntropyZipHeaderExt) Bytes() []byte {
	buf := make([]byte, 32)
	eng := endian.GetLittleEndianEngine()
	eng.PutUint64(buf[0:8], e.ContentBits)
	eng.PutUint64(buf[8:16], e.OffsetsBytes)
	buf[16] = e.OffsetsLog2BlockUnits
	buf[17] = e.EntropyOrder
	buf[18] = e.ChecksumLevel
	buf[19] = e.EntropyFlags
	// buf[20:24] reserved padding
	eng.PutUint64(buf[24:32], e.TableBytes)

	return padExt(buf)
}

func ParseEntropyZipHeaderExt(data []byte) (EntropyZipHeaderExt, error) {
	if len(data) < HeaderClassSize {
		return EntropyZipHeaderExt{}, errs.ErrShortHeader
	}
	eng := endian.GetLittleEndianEngine()

	return EntropyZipHeaderExt{
		ContentBits:           eng.Uint64(data[0:8]),
		OffsetsBytes:          eng.Uint64(data[8:16]),
		OffsetsLog2BlockUnits: data[16],
		EntropyOrder:          data[17],
		ChecksumLevel:         data[18],
		EntropyFlags:          data[19],
		TableBytes:            eng.Uint64(data[24:32]),
	}, nil
}

// DictZipHeaderExt is DictZipBlobStore's 48-byte class-specific header
// extension (§6 "Dict-zip extension"). Flags packs isNewRefEncoding (bit 0)
// and zipOffsets_log2_blockUnits (high nibble) into one byte, matching the
// spec's description of the high nibble living inside the flags byte.
// EmbeddedDict/EmbeddedDictAligned are repurposed as the embedded-dict
// codec tag and its presence flag, respectively (dzip.Store.Save/Load).
type DictZipHeaderExt struct {
	OffsetArrayBytes         uint64
	PtrListBytes             uint64
	EmbeddedDict             uint8 // low nibble: embedded-dict compression codec tag
	EmbeddedDictAligned      uint8 // high nibble: 1 when an embedded-dict block is present
	EntropyTableSize         uint32
	OffsetsUintBits          uint8
	CRC32CLevel              uint8
	EntropyAlgo              uint8
	IsNewRefEncoding         bool
	ZipOffsetsLog2BlockUnits uint8 // 0..15, high nibble of the flags byte
	EntropyTableCRC          uint32
	DictXXHash               uint64
	OffsetsCRC               uint32
	HeaderCRC                uint32
}

func (e DictZipHeaderExt) Bytes() []byte {
	buf := make([]byte, 48)
	eng := endian.GetLittleEndianEngine()
	eng.PutUint64(buf[0:8], e.OffsetArrayBytes)
	eng.PutUint64(buf[8:16], e.PtrListBytes)
	buf[16] = (e.EmbeddedDictAligned << 4) | (e.EmbeddedDict & 0xF)
	// buf[17:20] reserved padding
	eng.PutUint32(buf[20:24], e.EntropyTableSize)
	buf[24] = e.OffsetsUintBits
	buf[25] = e.CRC32CLevel
	buf[26] = e.EntropyAlgo

	flags := uint8(0)
	if e.IsNewRefEncoding {
		flags |= 0x01
	}
	flags |= (e.ZipOffsetsLog2BlockUnits & 0xF) << 4
	buf[27] = flags

	eng.PutUint32(buf[28:32], e.EntropyTableCRC)
	eng.PutUint64(buf[32:40], e.DictXXHash)
	eng.PutUint32(buf[40:44], e.OffsetsCRC)
	eng.PutUint32(buf[44:48], e.HeaderCRC)

	return buf
}

func ParseDictZipHeaderExt(data []byte) (DictZipHeaderExt, error) {
	if len(data) < HeaderClassSize {
		return DictZipHeaderExt{}, errs.ErrShortHeader
	}
	eng := endian.GetLittleEndianEngine()
	flags := data[27]

	return DictZipHeaderExt{
		OffsetArrayBytes:         eng.Uint64(data[0:8]),
		PtrListBytes:             eng.Uint64(data[8:16]),
		EmbeddedDict:             data[16] & 0xF,
		EmbeddedDictAligned:      data[16] >> 4,
		EntropyTableSize:         eng.Uint32(data[20:24]),
		OffsetsUintBits:          data[24],
		CRC32CLevel:              data[25],
		EntropyAlgo:              data[26],
		IsNewRefEncoding:         flags&0x01 != 0,
		ZipOffsetsLog2BlockUnits: flags >> 4,
		EntropyTableCRC:          eng.Uint32(data[28:32]),
		DictXXHash:               eng.Uint64(data[32:40]),
		OffsetsCRC:               eng.Uint32(data[40:44]),
		HeaderCRC:                eng.Uint32(data[44:48]),
	}, nil
}

// ComputeHeaderCRC returns the CRC32C of a 128-byte header with its trailing
// HeaderCRC field (the last 4 bytes, per DictZipHeaderExt's layout) zeroed.
// The dictionary-zip Save stores this value in HeaderCRC; WriteFile and
// ReadFile neither compute nor check it.
func ComputeHeaderCRC(header []byte) uint32 {
	buf := append([]byte(nil), header...)
	n := len(buf)
	buf[n-4], buf[n-3], buf[n-2], buf[n-1] = 0, 0, 0, 0

	return checksum.CRC32C(buf)
}
