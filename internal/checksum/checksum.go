// Package checksum implements the two lightweight per-record checksum
// algorithms blob stores may embed (CRC16C, a reflected table-driven CRC16
// over polynomial 0x8005, table constant 0xA001, and CRC32C, the Castagnoli
// CRC32 variant). File-level checksums use
// the seeded XXH64 in internal/xxh instead.
package checksum

import "hash/crc32"

var crc16Table [256]uint16

func init() {
	for i := uint16(0); i < 256; i++ {
		k := i
		for j := 0; j < 8; j++ {
			if k&1 != 0 {
				k = (k >> 1) ^ 0xa001
			} else {
				k >>= 1
			}
		}
		crc16Table[i] = k
	}
}

// CRC16C computes the table-driven CRC16 checksum used as a compact
// per-record trailer.
func CRC16C(buf []byte) uint16 {
	var got uint16
	for _, ch := range buf {
		got = crc16Table[byte(got)^ch] ^ got>>8
	}

	return got
}

var castagnoli = crc32.MakeTable(crc32.Castagnoli)

// CRC32C computes the Castagnoli CRC32 checksum used as a per-record
// trailer when more error-detection strength than CRC16C is wanted.
func CRC32C(buf []byte) uint32 {
	return crc32.Checksum(buf, castagnoli)
}
