package format

import (
	"io"

	"github.com/arloliu/blobkit/errs"
	"github.com/arloliu/blobkit/internal/xxh"
)

// checksumVerifyEnabled is the external collaborator §7 calls
// isChecksumVerifyEnabled(): when disabled, ReadFile skips the file-level
// XXH64 check at load time. Defaults to enabled.
var checksumVerifyEnabled = true

// SetChecksumVerifyEnabled toggles whether ReadFile verifies a loaded file's
// footer XXH64 (§7 "Checksum verification is globally toggled by an
// external isChecksumVerifyEnabled() collaborator; when off, stores skip
// XXH64 verification at load time").
func SetChecksumVerifyEnabled(enabled bool) { checksumVerifyEnabled = enabled }

// IsChecksumVerifyEnabled reports the current toggle state.
func IsChecksumVerifyEnabled() bool { return checksumVerifyEnabled }

// Section is one named, 16-byte-aligned payload block written between a
// file's header and footer (§6 "payload blocks, each 16-byte aligned,
// zero-padded"). Order is significant: readers re-slice the concatenated,
// alignment-padded section bytes using lengths they recorded in the
// class-specific header extension.
type Section struct {
	Name string
	Data []byte
}

// ComputeFileSize returns the total file size WriteFile would produce for
// the given sections: header + every section aligned up + footer. Callers
// needing a header field (e.g. a self-referential headerCRC) that depends
// on the final fileSize can compute it here before calling WriteFile.
func ComputeFileSize(sections []Section) uint64 {
	fileSize := uint64(HeaderSize)
	for _, sec := range sections {
		fileSize += uint64(AlignUp(len(sec.Data)))
	}
	fileSize += uint64(FooterSize)

	return fileSize
}

// WriteFile assembles a complete blob-store file: the 128-byte header
// (base 80B + class-specific 48B extension), every section zero-padded to
// Alignment in order, and the 64-byte footer whose fileXXHash seeds with
// seed and covers every preceding byte, including section padding (§6).
// base.FileSize is computed here from the section lengths and Alignment;
// any value the caller set on it is overwritten.
func WriteFile(w io.Writer, base FileHeaderBase, classExt []byte, sections []Section, seed uint64) (uint64, error) {
	if len(classExt) != HeaderClassSize {
		classExt = padExt(classExt)
	}

	fileSize := ComputeFileSize(sections)
	base.FileSize = fileSize

	digest := xxh.NewSeeded(seed)

	headerBytes := append(base.Bytes(), classExt...)
	if err := writeAll(w, headerBytes); err != nil {
		return 0, err
	}
	if _, err := digest.Write(headerBytes); err != nil {
		return 0, err
	}

	for _, sec := range sections {
		padded := PadTo(sec.Data)
		if err := writeAll(w, padded); err != nil {
			return 0, err
		}
		if _, err := digest.Write(padded); err != nil {
			return 0, err
		}
	}

	footer := &FileFooter{FileXXHash: digest.Sum64()}
	if err := writeAll(w, footer.Bytes()); err != nil {
		return 0, err
	}

	return fileSize, nil
}

func writeAll(w io.Writer, p []byte) error {
	n, err := w.Write(p)
	if err != nil {
		return err
	}
	if n != len(p) {
		return errs.ErrShortWrite
	}

	return nil
}

// ReadFile validates a complete file image previously written by WriteFile:
// magic, class tag, footerLength, recorded fileSize against the actual
// buffer length, and (when checksum verification is enabled) the seeded
// XXH64 over every byte preceding the footer. It returns the parsed base
// header, the raw 48-byte class extension, and the concatenated,
// alignment-padded section bytes for the caller to re-slice with lengths
// recorded in its own class extension.
func ReadFile(data []byte, wantClass ClassName, seed uint64) (*FileHeaderBase, []byte, []byte, error) {
	base, err := ParseFileHeaderBase(data)
	if err != nil {
		return nil, nil, nil, err
	}
	if base.ClassTag != wantClass {
		return nil, nil, nil, errs.ErrBadClassTag
	}
	if uint64(len(data)) < base.FileSize {
		return nil, nil, nil, errs.ErrTruncatedFile
	}
	file := data[:base.FileSize]
	if len(file) < HeaderSize+FooterSize {
		return nil, nil, nil, errs.ErrShortHeader
	}

	footer, err := ParseFileFooter(file[len(file)-FooterSize:])
	if err != nil {
		return nil, nil, nil, err
	}
	if checksumVerifyEnabled {
		got := xxh.Sum64Seeded(seed, file[:len(file)-FooterSize])
		if got != footer.FileXXHash {
			return nil, nil, nil, errs.ErrBadXXHash
		}
	}

	classExt := file[HeaderBaseSize:HeaderSize]
	sections := file[HeaderSize : len(file)-FooterSize]

	return base, classExt, sections, nil
}
