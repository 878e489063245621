package uintvec

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMin0RoundTrip(t *testing.T) {
	values := []uint64{0, 5, 12, 12, 100, 4095, 4096}
	v := BuildMin0(values)

	for i, want := range values {
		require.Equal(t, want, v.Get(i))
	}
}

func TestMin0Get2(t *testing.T) {
	values := []uint64{0, 10, 25, 40}
	v := BuildMin0(values)

	a, b := v.Get2(1)
	require.Equal(t, uint64(10), a)
	require.Equal(t, uint64(25), b)
}

func TestBitWidthMonotone(t *testing.T) {
	require.Equal(t, uint8(1), BitWidth(0))
	require.Equal(t, uint8(1), BitWidth(1))
	require.Equal(t, uint8(2), BitWidth(2))
	require.Equal(t, uint8(8), BitWidth(255))
	require.Equal(t, uint8(9), BitWidth(256))
}

func TestSortedRoundTripAcrossBlocks(t *testing.T) {
	values := make([]uint64, 500)
	var cur uint64
	for i := range values {
		values[i] = cur
		cur += uint64(i%7 + 1)
	}

	s, err := BuildSorted(values)
	require.NoError(t, err)
	require.Equal(t, len(values), s.Len())
	require.Greater(t, s.NumBlocks(), 1)

	for i, want := range values {
		require.Equal(t, want, s.Get(i))
	}
}

func TestBuildSortedRejectsNonMonotone(t *testing.T) {
	_, err := BuildSorted([]uint64{0, 5, 3})
	require.Error(t, err)
}

func TestSortedSerializeRoundTrip(t *testing.T) {
	values := make([]uint64, 300)
	var cur uint64
	for i := range values {
		values[i] = cur
		cur += uint64(i%5 + 1)
	}
	s, err := BuildSorted(values)
	require.NoError(t, err)

	loaded, err := LoadSorted(s.Serialize(), s.Len())
	require.NoError(t, err)
	require.Equal(t, s.NumBlocks(), loaded.NumBlocks())
	for i, want := range values {
		require.Equal(t, want, loaded.Get(i))
	}
}

func TestSortedSerializeRoundTripSingleValue(t *testing.T) {
	s, err := BuildSorted([]uint64{0})
	require.NoError(t, err)
	loaded, err := LoadSorted(s.Serialize(), s.Len())
	require.NoError(t, err)
	require.Equal(t, uint64(0), loaded.Get(0))
}

func TestSortedGet2StraddlesBlockBoundary(t *testing.T) {
	values := make([]uint64, SortedBlockSize+1)
	for i := range values {
		values[i] = uint64(i)
	}
	s, err := BuildSorted(values)
	require.NoError(t, err)

	a, b := s.Get2(SortedBlockSize - 1)
	require.Equal(t, uint64(SortedBlockSize-1), a)
	require.Equal(t, uint64(SortedBlockSize), b)
}
