package codec

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHistoryRing_InitialStateHasNoPrev(t *testing.T) {
	r := NewHistoryRing(2)
	defer r.Close()

	require.Nil(t, r.Prev())
	require.Nil(t, r.PrevPrev())
}

func TestHistoryRing_IFrameSetsBothPrevSlots(t *testing.T) {
	r := NewHistoryRing(1)
	defer r.Close()

	cur := r.Current()
	cur[0] = 100
	r.Advance(true)

	require.Equal(t, []int32{100}, r.Prev())
	require.Equal(t, []int32{100}, r.PrevPrev())
}

func TestHistoryRing_PFrameRotates(t *testing.T) {
	r := NewHistoryRing(1)
	defer r.Close()

	r.Current()[0] = 1
	r.Advance(true) // I: prev=prevPrev=1

	r.Current()[0] = 2
	r.Advance(false) // P: prevPrev=1, prev=2

	require.Equal(t, []int32{2}, r.Prev())
	require.Equal(t, []int32{1}, r.PrevPrev())

	r.Current()[0] = 3
	r.Advance(false) // P: prevPrev=2, prev=3

	require.Equal(t, []int32{3}, r.Prev())
	require.Equal(t, []int32{2}, r.PrevPrev())
}

func TestHistoryRing_ResetClearsHistory(t *testing.T) {
	r := NewHistoryRing(1)
	defer r.Close()

	r.Current()[0] = 5
	r.Advance(true)
	require.NotNil(t, r.Prev())

	r.Reset()
	require.Nil(t, r.Prev())
	require.Nil(t, r.PrevPrev())
}

func TestHistoryRing_DistinctBuffersAfterRotation(t *testing.T) {
	r := NewHistoryRing(1)
	defer r.Close()

	r.Current()[0] = 1
	r.Advance(true)
	r.Current()[0] = 2
	r.Advance(false)

	// Current buffer must not alias Prev/PrevPrev: mutating it shouldn't
	// change the committed history.
	r.Current()[0] = 999
	require.Equal(t, []int32{2}, r.Prev())
	require.Equal(t, []int32{1}, r.PrevPrev())
}
