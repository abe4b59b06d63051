// Package frame drives a sub-log's byte stream through the header's field
// definitions one frame at a time, reconstructing main (I/P), slow (S), and
// event (E) frames and validating each against its neighbors.
package frame

import "github.com/arloliu/bblog/format"

// EventPayload holds the fields of an E-frame's type-specific payload. Only
// the fields relevant to EventKind are populated; the rest stay zero.
type EventPayload struct {
	Time         int32
	NewFlags     int32
	LastFlags    int32
	Reason       int32
	LogIteration int32
	CurrentTime  int32
	LogEnd       bool
}

// FrameEvent is yielded once per frame (or once per corrupt byte run) by
// Dispatcher.All. Valid reports whether the frame passed acceptance; an
// invalid frame still reports its Kind and Offset so a caller can track
// where the stream desynchronized.
type FrameEvent struct {
	Kind      format.FrameKind
	Valid     bool
	Offset    int
	Length    int
	Iteration int32
	Time      int32

	// Values holds the reconstructed field values for I/P/S frames. It is
	// nil for E-frames and for frames that failed acceptance (Valid false). For I/P frames this aliases the dispatcher's history ring
	// buffer and is only valid until the next iteration of All's loop; a
	// caller that retains a frame past that point must copy it.
	Values []int32

	EventKind format.EventKind
	EventData EventPayload
}
