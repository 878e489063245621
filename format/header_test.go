package format

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFileHeaderBaseRoundTrip(t *testing.T) {
	h := &FileHeaderBase{
		ClassTag:       ClassPlain,
		FileSize:       4096,
		UnzipSize:      2048,
		Records:        10,
		GlobalDictSize: 0,
		ChecksumType:   ChecksumXXH64,
		FormatVersion:  1,
	}

	parsed, err := ParseFileHeaderBase(h.Bytes())
	require.NoError(t, err)
	require.Equal(t, h, parsed)
}

func TestParseFileHeaderBaseRejectsBadMagic(t *testing.T) {
	h := &FileHeaderBase{ClassTag: ClassPlain, FileSize: 128}
	buf := h.Bytes()
	buf[0] = 'x'
	_, err := ParseFileHeaderBase(buf)
	require.Error(t, err)
}

func TestFileFooterRoundTrip(t *testing.T) {
	f := &FileFooter{FileXXHash: 0xdeadbeefcafef00d}
	parsed, err := ParseFileFooter(f.Bytes())
	require.NoError(t, err)
	require.Equal(t, f.FileXXHash, parsed.FileXXHash)
}

func TestParseFileFooterRejectsBadLength(t *testing.T) {
	f := &FileFooter{FileXXHash: 1}
	buf := f.Bytes()
	buf[len(buf)-1] = 0
	_, err := ParseFileFooter(buf)
	require.Error(t, err)
}

func TestAlignUpAndPadTo(t *testing.T) {
	require.Equal(t, 0, AlignUp(0))
	require.Equal(t, 16, AlignUp(1))
	require.Equal(t, 16, AlignUp(16))
	require.Equal(t, 32, AlignUp(17))

	padded := PadTo([]byte{1, 2, 3})
	require.Len(t, padded, 16)
	require.Equal(t, []byte{1, 2, 3}, padded[:3])
}

func TestPlainHeaderExtRoundTrip(t *testing.T) {
	e := PlainHeaderExt{ContentBytes: 1000, OffsetsBytes: 40, OffsetsUintBits: 10}
	parsed, err := ParsePlainHeaderExt(e.Bytes())
	require.NoError(t, err)
	require.Equal(t, e, parsed)
}

func TestMixedLenHeaderExtRoundTrip(t *testing.T) {
	e := MixedLenHeaderExt{
		UnzipSize:                  999,
		OffsetsUintBits:            5,
		ChecksumLevel:              1,
		FixedLen:                   4,
		IsFixedRankSelectBytesDiv8: 8,
		VarLenBytes:                200,
		FixedNum:                   50,
	}
	parsed, err := ParseMixedLenHeaderExt(e.Bytes())
	require.NoError(t, err)
	require.Equal(t, e, parsed)
}

func TestEntropyZipHeaderExtRoundTrip(t *testing.T) {
	e := EntropyZipHeaderExt{
		ContentBits:           12345,
		OffsetsBytes:          64,
		OffsetsLog2BlockUnits: 7,
		EntropyOrder:          1,
		ChecksumLevel:         2,
		EntropyFlags:          0,
		TableBytes:            257 * 256,
	}
	parsed, err := ParseEntropyZipHeaderExt(e.Bytes())
	require.NoError(t, err)
	require.Equal(t, e, parsed)
}

func TestDictZipHeaderExtRoundTrip(t *testing.T) {
	e := DictZipHeaderExt{
		OffsetArrayBytes:         128,
		PtrListBytes:             0,
		EmbeddedDict:             1,
		EmbeddedDictAligned:      1,
		EntropyTableSize:         65793,
		OffsetsUintBits:          0,
		CRC32CLevel:              1,
		EntropyAlgo:              1,
		IsNewRefEncoding:         true,
		ZipOffsetsLog2BlockUnits: 7,
		EntropyTableCRC:          0x12345678,
		DictXXHash:               0xaabbccddeeff0011,
		OffsetsCRC:               0x1,
		HeaderCRC:                0x2,
	}
	parsed, err := ParseDictZipHeaderExt(e.Bytes())
	require.NoError(t, err)
	require.Equal(t, e, parsed)
}

func TestComputeHeaderCRCIgnoresTrailer(t *testing.T) {
	h1 := make([]byte, HeaderSize)
	h2 := append([]byte(nil), h1...)
	h2[len(h2)-1] = 0xFF // only the HeaderCRC trailer differs
	require.Equal(t, ComputeHeaderCRC(h1), ComputeHeaderCRC(h2))

	h3 := append([]byte(nil), h1...)
	h3[0] = 0xFF
	require.NotEqual(t, ComputeHeaderCRC(h1), ComputeHeaderCRC(h3))
}
