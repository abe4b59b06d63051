package frame

import "github.com/arloliu/bblog/format"

// Stats accumulates per-frame-type counters across one Dispatcher.All pass,
// mirroring the reference decoder's frame statistics block.
type Stats struct {
	Bytes      map[format.FrameKind]int64
	SizeCount  map[format.FrameKind]map[int]int64
	ValidCount map[format.FrameKind]int64

	CorruptCount                   int64
	TotalCorruptedFrames           int64
	IntentionallyAbsentIterations  int64
}

// NewStats returns a Stats with its maps initialized.
func NewStats() *Stats {
	return &Stats{
		Bytes:      make(map[format.FrameKind]int64),
		SizeCount:  make(map[format.FrameKind]map[int]int64),
		ValidCount: make(map[format.FrameKind]int64),
	}
}

func (s *Stats) recordValid(kind format.FrameKind, length int) {
	s.Bytes[kind] += int64(length)
	s.ValidCount[kind]++
	if s.SizeCount[kind] == nil {
		s.SizeCount[kind] = make(map[int]int64)
	}
	s.SizeCount[kind][length]++
}

func (s *Stats) recordCorrupt() {
	s.CorruptCount++
	s.TotalCorruptedFrames++
}
