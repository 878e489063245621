package dzip

import (
	"bytes"
	"testing"

	"github.com/arloliu/blobkit/format"
	"github.com/stretchr/testify/require"
)

func TestStoreSaveLoadRoundTrip(t *testing.T) {
	samples := [][]byte{[]byte("the quick brown fox jumps over the lazy dog")}
	builder, err := NewBuilder(samples, BuilderOptions{Checksum: format.ChecksumCRC32C})
	require.NoError(t, err)

	records := [][]byte{
		[]byte("the quick brown fox"),
		[]byte("jumps over"),
		[]byte(""),
	}
	store, err := builder.Build(records)
	require.NoError(t, err)

	var buf bytes.Buffer
	fileSize, err := store.Save(&buf)
	require.NoError(t, err)
	require.Equal(t, uint64(buf.Len()), fileSize)

	loaded, err := Load(buf.Bytes(), store.Dictionary())
	require.NoError(t, err)
	require.Equal(t, store.NumRecords(), loaded.NumRecords())

	for i, want := range records {
		got, err := loaded.GetRecord(i)
		require.NoError(t, err)
		require.Equal(t, want, got)
	}
}

func TestStoreSaveLoadRoundTripWithEntropyAndEmbeddedDict(t *testing.T) {
	dictContent := []byte("the quick brown fox jumps over the lazy dog, repeated for compressibility, " +
		"the quick brown fox jumps over the lazy dog, repeated for compressibility")
	samples := [][]byte{dictContent}
	builder, err := NewBuilder(samples, BuilderOptions{
		EnableEntropy:     true,
		EntropyOrder:      format.Order1,
		EmbedDict:         true,
		EmbeddedDictCodec: format.CompressionZstd,
	})
	require.NoError(t, err)

	var records [][]byte
	for i := 0; i < 8; i++ {
		records = append(records, []byte("the quick brown fox jumps over the lazy dog"))
	}
	store, err := builder.Build(records)
	require.NoError(t, err)

	var buf bytes.Buffer
	_, err = store.Save(&buf)
	require.NoError(t, err)

	loaded, err := Load(buf.Bytes(), store.Dictionary())
	require.NoError(t, err)

	for i, want := range records {
		got, err := loaded.GetRecord(i)
		require.NoError(t, err)
		require.Equal(t, want, got)
	}

	raw, ok, err := loaded.EmbeddedDictBytes()
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, store.Dictionary(), raw)
}

func TestSaveLoadAfterPurgeKeepsPackedOffsets(t *testing.T) {
	samples := [][]byte{[]byte("sample dictionary content for matching")}
	builder, err := NewBuilder(samples, BuilderOptions{})
	require.NoError(t, err)

	store, err := builder.Build([][]byte{[]byte("alpha"), []byte("beta"), []byte("gamma")})
	require.NoError(t, err)

	purged, err := store.Purge([]bool{false, true, false})
	require.NoError(t, err)

	var buf bytes.Buffer
	_, err = purged.(*Store).Save(&buf)
	require.NoError(t, err)

	loaded, err := Load(buf.Bytes(), store.Dictionary())
	require.NoError(t, err)
	require.Equal(t, 2, loaded.NumRecords())

	got, err := loaded.GetRecord(1)
	require.NoError(t, err)
	require.Equal(t, []byte("gamma"), got)
}

func TestLoadRejectsWrongDictionary(t *testing.T) {
	samples := [][]byte{[]byte("sample dictionary content for matching")}
	builder, err := NewBuilder(samples, BuilderOptions{})
	require.NoError(t, err)

	store, err := builder.Build([][]byte{[]byte("alpha"), []byte("beta")})
	require.NoError(t, err)

	var buf bytes.Buffer
	_, err = store.Save(&buf)
	require.NoError(t, err)

	_, err = Load(buf.Bytes(), []byte("a completely different dictionary"))
	require.Error(t, err)
}
