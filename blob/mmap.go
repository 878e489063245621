package blob

import (
	"os"

	"golang.org/x/sys/unix"
)

// MappedFile is a read-only memory mapping of a finalized store file,
// backing the zero-copy MetadataView slices Metadata returns until Close
// unmaps it (§5 "Stores loaded via mmap own the mapping and unmap at
// destruction").
type MappedFile struct {
	data []byte
	f    *os.File
}

// OpenMapped mmaps path read-only for the lifetime of the returned
// MappedFile. The caller must call Close once done; any MetadataView slice
// backed by it should be Detach()-ed before that happens if it needs to
// outlive the mapping.
func OpenMapped(path string) (*MappedFile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()

		return nil, err
	}
	size := int(info.Size())
	if size == 0 {
		// unix.Mmap rejects a zero-length mapping; an empty file has no
		// bytes worth mapping, so hand back an empty, already-"mapped" view.
		return &MappedFile{f: f}, nil
	}

	data, err := unix.Mmap(int(f.Fd()), 0, size, unix.PROT_READ, unix.MAP_SHARED)
	if err != nil {
		f.Close()

		return nil, err
	}

	return &MappedFile{data: data, f: f}, nil
}

// Bytes returns the mapped file contents. The slice is only valid until
// Close.
func (m *MappedFile) Bytes() []byte { return m.data }

// Close unmaps the file and releases the underlying descriptor.
func (m *MappedFile) Close() error {
	var mErr error
	if m.data != nil {
		mErr = unix.Munmap(m.data)
		m.data = nil
	}
	fErr := m.f.Close()
	if mErr != nil {
		return mErr
	}

	return fErr
}
