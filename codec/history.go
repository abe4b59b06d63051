package codec

import "github.com/arloliu/bblog/internal/pool"

// HistoryRing holds up to two historical main frames (an I-frame or
// P-frame's reconstructed field values) behind the current frame being
// decoded, as PREVIOUS/STRAIGHT_LINE/AVERAGE_2/INC predictors require.
// Its three buffers are drawn from the shared int32 slice pool and reused
// for the lifetime of one dispatch pass rather than reallocated per frame.
type HistoryRing struct {
	buf     [3][]int32
	cleanup [3]func()

	curIdx, prevIdx, prevPrevIdx int
	hasPrev, hasPrevPrev         bool
}

// NewHistoryRing allocates the three fixed-width buffers for a frame
// definition with fieldCount fields.
func NewHistoryRing(fieldCount int) *HistoryRing {
	r := &HistoryRing{prevIdx: -1, prevPrevIdx: -1}
	for i := range r.buf {
		r.buf[i], r.cleanup[i] = pool.GetInt32Slice(fieldCount)
	}
	return r
}

// Current returns the buffer the next frame should be decoded into.
func (r *HistoryRing) Current() []int32 {
	return r.buf[r.curIdx]
}

// Prev returns the previous main frame's values, or nil if none exists yet.
func (r *HistoryRing) Prev() []int32 {
	if !r.hasPrev {
		return nil
	}
	return r.buf[r.prevIdx]
}

// PrevPrev returns the frame before Prev, or nil if none exists yet.
func (r *HistoryRing) PrevPrev() []int32 {
	if !r.hasPrevPrev {
		return nil
	}
	return r.buf[r.prevPrevIdx]
}

// Advance commits the buffer last returned by Current into the history and
// rotates in a fresh buffer for the next decode. On an I-frame both
// previous slots point at the new frame, matching the reference decoder's
// behavior of resetting prediction continuity at every I.
func (r *HistoryRing) Advance(isIFrame bool) {
	if isIFrame {
		r.prevIdx = r.curIdx
		r.prevPrevIdx = r.curIdx
		r.hasPrev = true
		r.hasPrevPrev = true
	} else {
		r.prevPrevIdx = r.prevIdx
		r.hasPrevPrev = r.hasPrev
		r.prevIdx = r.curIdx
		r.hasPrev = true
	}

	for i := 0; i < 3; i++ {
		if i != r.prevIdx && i != r.prevPrevIdx {
			r.curIdx = i
			break
		}
	}
}

// Reset clears both previous slots, forcing the next frame's predictors to
// fall back to their no-history behavior. Used when the main stream
// resynchronizes after a corrupt frame.
func (r *HistoryRing) Reset() {
	r.hasPrev = false
	r.hasPrevPrev = false
}

// Close returns all three buffers to the pool. The ring must not be used
// afterward.
func (r *HistoryRing) Close() {
	for _, c := range r.cleanup {
		if c != nil {
			c()
		}
	}
}
