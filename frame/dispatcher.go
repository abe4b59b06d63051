package frame

import (
	"iter"

	"github.com/arloliu/bblog/codec"
	"github.com/arloliu/bblog/format"
	"github.com/arloliu/bblog/header"
	"github.com/arloliu/bblog/stream"
)

const (
	maxFrameLength  = 256
	maxIterationGap = 5000
	maxTimeGapUs    = 10_000_000
)

// Dispatcher drives one sub-log's frame stream against its header-derived
// field definitions and system configuration.
type Dispatcher struct {
	Defs *header.FrameDefs
	Cfg  *header.SysConfig
}

// NewDispatcher returns a Dispatcher bound to a parsed header.
func NewDispatcher(defs *header.FrameDefs, cfg *header.SysConfig) *Dispatcher {
	return &Dispatcher{Defs: defs, Cfg: cfg}
}

// All returns an iterator yielding one FrameEvent per frame found in s, in
// stream order, until EOF. Corrupt byte runs are yielded as invalid events
// rather than raised as errors, matching the reference decoder's
// resume-after-corruption behavior. stats, if non-nil, accumulates
// per-type byte/validity counters as the iteration proceeds; it is
// populated incrementally, so it only reflects the full pass once the
// range loop has been run to completion.
//
// The range-over-func loop mirrors the teacher's own sequential decode
// iterators: callers break out of the range early to stop parsing, and
// resources (the history ring) are released when the range loop ends.
func (d *Dispatcher) All(s *stream.ByteStream, stats *Stats) iter.Seq[FrameEvent] {
	return func(yield func(FrameEvent) bool) {
		iFieldCount := d.Defs.I.Count
		if iFieldCount == 0 {
			iFieldCount = 1
		}
		ring := codec.NewHistoryRing(iFieldCount)
		defer ring.Close()

		mainStreamValid := true
		lastIteration := int32(-1)
		lastTime := int32(-1)

		iIterIdx, hasIterIdx := d.Defs.I.IndexOf("loopIteration")
		iTimeIdx, hasTimeIdx := d.Defs.I.IndexOf("time")

		for {
			frameStart := s.Pos()
			marker := s.ReadByte()
			if marker < 0 {
				return
			}

			kind := format.FrameKindForMarker(byte(marker))

			if kind == format.FrameUnknown {
				if marker == 'G' || marker == 'H' {
					// GPS frames are not decoded; skip the marker byte only
					// and keep searching without disturbing validity.
					continue
				}

				mainStreamValid = false
				ring.Reset()
				if stats != nil {
					stats.recordCorrupt()
				}
				ev := FrameEvent{Kind: format.FrameUnknown, Offset: frameStart, Length: 1}
				if !yield(ev) {
					return
				}
				s.SetPos(frameStart + 1)
				continue
			}

			var (
				ev         FrameEvent
				prehocGood bool
				skipped    int32
			)

			mainTime := lastTime
			if mainTime < 0 {
				mainTime = 0
			}

			switch kind {
			case format.FrameIntra:
				ctx := &codec.Context{
					Def:               d.Defs.I,
					Cfg:               d.Cfg,
					Prev:              ring.Prev(),
					LastMainFrameTime: mainTime,
				}
				cur := ring.Current()
				err := codec.DecodeFrame(ctx, cur, s)
				ev.Values = cur
				if hasIterIdx {
					ev.Iteration = cur[iIterIdx]
				}
				if hasTimeIdx {
					ev.Time = cur[iTimeIdx]
				}
				prehocGood = err == nil && acceptMainJump(lastIteration, lastTime, ev.Iteration, ev.Time)

			case format.FramePredicted:
				skipped = countSkipped(d.Cfg, lastIteration)
				ctx := &codec.Context{
					Def:               d.Defs.P,
					Cfg:               d.Cfg,
					Prev:              ring.Prev(),
					PrevPrev:          ring.PrevPrev(),
					Skipped:           skipped,
					LastMainFrameTime: mainTime,
				}
				cur := ring.Current()
				err := codec.DecodeFrame(ctx, cur, s)
				ev.Values = cur
				if hasIterIdx {
					ev.Iteration = cur[iIterIdx]
				}
				if hasTimeIdx {
					ev.Time = cur[iTimeIdx]
				}
				prehocGood = err == nil && mainStreamValid && acceptMainJump(lastIteration, lastTime, ev.Iteration, ev.Time)

			case format.FrameSlow:
				ctx := &codec.Context{Def: d.Defs.S, Cfg: d.Cfg, LastMainFrameTime: mainTime}
				vals := make([]int32, d.Defs.S.Count)
				err := codec.DecodeFrame(ctx, vals, s)
				ev.Values = vals
				prehocGood = err == nil

			case format.FrameEvent:
				eventByte := s.ReadByte()
				if eventByte < 0 {
					prehocGood = false
					break
				}
				ev.EventKind = format.EventKind(eventByte)
				payload, ok := parseEventPayload(s, ev.EventKind)
				ev.EventData = payload
				prehocGood = ok
			}

			length := s.Pos() - frameStart
			nextOK := d.peekNextMarkerOK(s)
			accepted := prehocGood && length <= maxFrameLength && nextOK

			ev.Kind = kind
			ev.Offset = frameStart
			ev.Length = length
			ev.Valid = accepted
			if !accepted {
				ev.Values = nil
			}

			if accepted {
				if stats != nil {
					stats.recordValid(kind, length)
					if kind == format.FramePredicted {
						stats.IntentionallyAbsentIterations += int64(skipped)
					}
				}

				switch kind {
				case format.FrameIntra:
					ring.Advance(true)
					lastIteration, lastTime = ev.Iteration, ev.Time
					mainStreamValid = true
				case format.FramePredicted:
					ring.Advance(false)
					lastIteration, lastTime = ev.Iteration, ev.Time
				case format.FrameEvent:
					if ev.EventKind == format.EventLoggingResume {
						lastIteration = ev.EventData.LogIteration
						lastTime = ev.EventData.CurrentTime
						mainStreamValid = true
					}
					if ev.EventKind == format.EventLogEnd && ev.EventData.LogEnd {
						s.SetEnd(s.Pos())
					}
				}
			} else {
				mainStreamValid = false
				ring.Reset()
				if stats != nil {
					stats.recordCorrupt()
				}
			}

			if !yield(ev) {
				return
			}

			if !accepted {
				s.SetPos(frameStart + 1)
			}
		}
	}
}

// peekNextMarkerOK reports whether the byte immediately following the
// current stream position begins a recognized frame type, or is EOF.
func (d *Dispatcher) peekNextMarkerOK(s *stream.ByteStream) bool {
	next := s.PeekChar()
	if next < 0 {
		return true
	}
	if next == 'G' || next == 'H' {
		return true
	}
	return format.FrameKindForMarker(byte(next)) != format.FrameUnknown
}

// acceptMainJump reports whether a main frame's iteration/time advanced
// sanely from the previous main frame (or is the very first one).
func acceptMainJump(lastIteration, lastTime, iteration, time int32) bool {
	if lastIteration < 0 {
		return true
	}
	if iteration < lastIteration || time < lastTime {
		return false
	}
	if iteration-lastIteration > maxIterationGap {
		return false
	}
	if time-lastTime > maxTimeGapUs {
		return false
	}
	return true
}

// parseEventPayload reads the type-specific payload following an E-frame's
// one-byte event kind. A LOG_END whose literal does not match the expected
// 11-byte marker is reported as not-ok: it is almost certainly a false
// positive 0xFF byte rather than a genuine end-of-log marker, so the caller
// treats the frame as corrupt and resynchronizes instead of terminating.
func parseEventPayload(s *stream.ByteStream, kind format.EventKind) (EventPayload, bool) {
	var p EventPayload

	switch kind {
	case format.EventSyncBeep:
		p.Time = int32(s.ReadUnsignedVB())
	case format.EventFlightMode:
		p.NewFlags = int32(s.ReadUnsignedVB())
		p.LastFlags = int32(s.ReadUnsignedVB())
	case format.EventDisarm:
		p.Reason = int32(s.ReadUnsignedVB())
	case format.EventLoggingResume:
		p.LogIteration = int32(s.ReadUnsignedVB())
		p.CurrentTime = int32(s.ReadUnsignedVB())
	case format.EventLogEnd:
		literal := s.ReadString(11)
		if literal != "End of log\x00" {
			return p, false
		}
		p.LogEnd = true
	default:
		// Unrecognized event kind: no payload layout is known, so nothing
		// further is consumed.
	}

	return p, true
}
