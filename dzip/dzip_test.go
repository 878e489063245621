package dzip

import (
	"testing"

	"github.com/arloliu/blobkit/format"
	"github.com/stretchr/testify/require"
)

func TestTokenEncodeDecodeRoundTrip(t *testing.T) {
	tokens := []Token{
		{Tag: TagLiteral, Literal: []byte("hello")},
		{Tag: TagGlobal, DictOff: 42, Len: 10},
		{Tag: TagRLE, Len: 5, Distance: 1},
		{Tag: TagNearShort, Distance: 3, Len: 4},
	}
	buf := EncodeTokens(tokens)
	decoded, err := DecodeTokens(buf)
	require.NoError(t, err)
	require.Equal(t, tokens, decoded)
}

func TestBuildDictionaryDedupAdjacent(t *testing.T) {
	samples := [][]byte{[]byte("abc"), []byte("abc"), []byte("xyz")}
	dict, err := BuildDictionary(samples, SortLeft)
	require.NoError(t, err)
	require.Equal(t, "abcxyz", string(dict))
}

func TestSuffixArrayLongestMatch(t *testing.T) {
	data := []byte("banana bandana")
	sa := BuildSuffixArray(data)
	off, l := sa.LongestMatch([]byte("banda"))
	require.GreaterOrEqual(t, l, 3)
	require.True(t, off >= 0 && off < len(data))
}

func TestEncodeDecodeRecordRoundTrip(t *testing.T) {
	dict := []byte("the quick brown fox jumps over the lazy dog")
	sa := BuildSuffixArray(dict)
	global := NewGlobalMatcher(sa, BuildSuffixCache(sa, 2, 16))

	rec := []byte("a quick brown fox ran, a quick brown fox ran again")
	tokens := encodeRecord(rec, global, defaultMaxProbe, false)
	decoded := decodeRecord(tokens, dict)
	require.Equal(t, rec, decoded)
}

func TestBuilderBuildAndReadBack(t *testing.T) {
	samples := [][]byte{
		[]byte("the quick brown fox jumps over the lazy dog"),
		[]byte("pack my box with five dozen liquor jugs"),
	}
	builder, err := NewBuilder(samples, BuilderOptions{Checksum: format.ChecksumCRC32C})
	require.NoError(t, err)

	records := [][]byte{
		[]byte("the quick brown fox"),
		[]byte("five dozen liquor jugs, again"),
		[]byte(""),
		[]byte("a"),
	}
	store, err := builder.Build(records)
	require.NoError(t, err)
	require.Equal(t, len(records), store.NumRecords())

	for i, want := range records {
		got, err := store.GetRecord(i)
		require.NoError(t, err)
		require.Equal(t, want, got)
	}
}

func TestBuilderWithEntropyPass(t *testing.T) {
	samples := [][]byte{[]byte("the quick brown fox jumps over the lazy dog repeatedly")}
	builder, err := NewBuilder(samples, BuilderOptions{EnableEntropy: true, EntropyOrder: format.Order1})
	require.NoError(t, err)

	var records [][]byte
	for i := 0; i < 8; i++ {
		records = append(records, []byte("the quick brown fox jumps over the lazy dog"))
	}
	store, err := builder.Build(records)
	require.NoError(t, err)

	for i, want := range records {
		got, err := store.GetRecord(i)
		require.NoError(t, err)
		require.Equal(t, want, got)
	}
}

func TestBuilderEmbeddedDictRoundTrips(t *testing.T) {
	dictContent := []byte("the quick brown fox jumps over the lazy dog, repeated for compressibility, " +
		"the quick brown fox jumps over the lazy dog, repeated for compressibility")
	samples := [][]byte{dictContent}
	builder, err := NewBuilder(samples, BuilderOptions{EmbedDict: true, EmbeddedDictCodec: format.CompressionZstd})
	require.NoError(t, err)

	records := [][]byte{[]byte("the quick brown fox")}
	store, err := builder.Build(records)
	require.NoError(t, err)

	raw, ok, err := store.EmbeddedDictBytes()
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, store.Dictionary(), raw)
}

func TestStoreReorderAndPurge(t *testing.T) {
	samples := [][]byte{[]byte("sample dictionary content for matching")}
	builder, err := NewBuilder(samples, BuilderOptions{})
	require.NoError(t, err)

	records := [][]byte{[]byte("alpha"), []byte("beta"), []byte("gamma")}
	store, err := builder.Build(records)
	require.NoError(t, err)

	reordered, err := store.Reorder([]int{2, 0, 1})
	require.NoError(t, err)
	got, err := reordered.GetRecord(0)
	require.NoError(t, err)
	require.Equal(t, records[2], got)

	purged, err := store.Purge([]bool{false, true, false})
	require.NoError(t, err)
	require.Equal(t, 2, purged.NumRecords())
}
