package blob

import (
	"context"
	"testing"

	"github.com/arloliu/blobkit/errs"
	"github.com/arloliu/blobkit/format"
	"github.com/stretchr/testify/require"
)

func sampleRecords() [][]byte {
	return [][]byte{
		[]byte("alpha"),
		[]byte(""),
		[]byte("beta record longer than alpha"),
		[]byte("gamma"),
	}
}

func TestPlainStoreRoundTrip(t *testing.T) {
	records := sampleRecords()
	s := BuildPlainStore(records)
	require.Equal(t, len(records), s.NumRecords())
	for i, want := range records {
		got, err := s.GetRecord(i)
		require.NoError(t, err)
		require.Equal(t, want, got)
	}
	_, err := s.GetRecord(len(records))
	require.ErrorIs(t, err, errs.ErrInvalidRecordID)
}

func TestZipOffsetStoreWithChecksum(t *testing.T) {
	records := sampleRecords()
	s, err := BuildZipOffsetStore(records, ZipOffsetOptions{Checksum: format.ChecksumCRC32C})
	require.NoError(t, err)
	for i, want := range records {
		got, err := s.GetRecord(i)
		require.NoError(t, err)
		require.Equal(t, want, got)
	}
}

func TestMixedLenStoreRoundTrip(t *testing.T) {
	records := [][]byte{
		[]byte("fixed"),
		[]byte("fixed"),
		[]byte("variable length record"),
		[]byte("fixed"),
	}
	s := BuildMixedLenStore(records, 5)
	for i, want := range records {
		got, err := s.GetRecord(i)
		require.NoError(t, err)
		require.Equal(t, want, got)
	}
}

func TestEntropyZipStoreRoundTrip(t *testing.T) {
	records := [][]byte{
		[]byte("the quick brown fox"),
		[]byte("jumps over the lazy dog"),
		[]byte(""),
		[]byte("a"),
	}
	s, err := BuildEntropyZipStore(records, format.Order1)
	require.NoError(t, err)
	for i, want := range records {
		got, err := s.GetRecord(i)
		require.NoError(t, err)
		require.Equal(t, want, got)
	}
}

func TestPlainStoreReorderAndPurge(t *testing.T) {
	records := sampleRecords()
	s := BuildPlainStore(records)

	reordered, err := s.Reorder([]int{3, 2, 1, 0})
	require.NoError(t, err)
	got, err := reordered.GetRecord(0)
	require.NoError(t, err)
	require.Equal(t, records[3], got)

	purged, err := s.Purge([]bool{false, true, false, false})
	require.NoError(t, err)
	require.Equal(t, 3, purged.NumRecords())
}

func TestPlainStorePreadRecord(t *testing.T) {
	records := sampleRecords()
	s := BuildPlainStore(records)

	reader := func(ctx context.Context, p []byte, off int64) (int, error) {
		copy(p, s.payload[off:])

		return len(p), nil
	}

	got, err := s.PreadRecord(context.Background(), reader, 0, 2)
	require.NoError(t, err)
	require.Equal(t, records[2], got)
}
