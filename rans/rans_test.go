package rans

import (
	"testing"

	"github.com/arloliu/blobkit/hist"
	"github.com/stretchr/testify/require"
)

func countsOf(data []byte) []uint64 {
	counts := make([]uint64, 256)
	for _, b := range data {
		counts[b]++
	}

	return counts
}

func TestOrder0RoundTrip(t *testing.T) {
	data := []byte("the quick brown fox jumps over the lazy dog, again and again and again")
	m := BuildModel(countsOf(data))

	encoded := EncodeOrder0(m, data)
	decoded, err := DecodeOrder0(m, encoded, len(data))
	require.NoError(t, err)
	require.Equal(t, data, decoded)
}

func TestOrder0RoundTripSkewedAlphabet(t *testing.T) {
	data := make([]byte, 0, 10000)
	for i := 0; i < 9000; i++ {
		data = append(data, 'a')
	}
	for i := 0; i < 900; i++ {
		data = append(data, 'b')
	}
	for i := 0; i < 100; i++ {
		data = append(data, 'c')
	}
	m := BuildModel(countsOf(data))

	encoded := EncodeOrder0(m, data)
	decoded, err := DecodeOrder0(m, encoded, len(data))
	require.NoError(t, err)
	require.Equal(t, data, decoded)
}

func TestEncodeOrder0NRoundTrip(t *testing.T) {
	data := []byte("interleaved rANS streams must reconstruct the original byte sequence exactly")
	m := BuildModel(countsOf(data))

	lanes := EncodeOrder0N(m, data, 4)
	require.Len(t, lanes, 4)

	decoded, err := DecodeOrder0N(m, lanes, len(data), 4)
	require.NoError(t, err)
	require.Equal(t, data, decoded)
}

func TestOrder1RoundTrip(t *testing.T) {
	data := []byte("mississippi river runs past mississippi mud, mississippi again")
	h := hist.New(1, 0, 1<<20)
	h.AddRecord(data)
	h.Finish()
	m := BuildOrder1Model(h)

	encoded := EncodeOrder1(m, data)
	decoded, err := DecodeOrder1(m, encoded, len(data))
	require.NoError(t, err)
	require.Equal(t, data, decoded)
}

func TestOrder2RoundTrip(t *testing.T) {
	data := []byte("abracadabra abracadabra abracadabra alakazam")
	h := hist.New(2, 0, 1<<20)
	h.AddRecord(data)
	h.Finish()
	m := BuildOrder2Model(h)

	encoded := EncodeOrder2(m, data)
	decoded, err := DecodeOrder2(m, encoded, len(data))
	require.NoError(t, err)
	require.Equal(t, data, decoded)
}

func TestOrder1TablesRoundTrip(t *testing.T) {
	data := []byte("the rain in spain stays mainly in the plain, plainly")
	h := hist.New(1, 0, 1<<20)
	h.AddRecord(data)
	h.Finish()
	m := BuildOrder1Model(h)

	loaded, err := DecodeOrder1Tables(EncodeOrder1Tables(m))
	require.NoError(t, err)

	// the reloaded model must decode a stream the original encoded
	encoded := EncodeOrder1(m, data)
	decoded, err := DecodeOrder1(loaded, encoded, len(data))
	require.NoError(t, err)
	require.Equal(t, data, decoded)
}

func TestTableRecursiveRoundTrip(t *testing.T) {
	data := []byte("aaaaaaaaaaaaaaaaaaaaaaaaaaaabbbbbbbbbbbbccccccccd")
	m := BuildModel(countsOf(data))

	encoded := EncodeTableRecursive(m.Freq)
	decoded, err := DecodeTableRecursive(encoded)
	require.NoError(t, err)
	require.Equal(t, m.Freq, decoded)
}
