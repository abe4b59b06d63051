// Package index scans a full blackbox log buffer for sub-log boundaries and
// builds, for each one, a directory of chunk entry points usable for random
// access without re-parsing the whole sub-log from the start.
package index

import (
	"github.com/arloliu/bblog/format"
	"github.com/arloliu/bblog/frame"
	"github.com/arloliu/bblog/header"
	"github.com/arloliu/bblog/stream"
)

// subLogMarker is the sub-log boundary: every sub-log in a concatenated log
// file begins with this exact 60-byte product line.
var subLogMarker = []byte("H Product:Blackbox flight data recorder by Nicholas Sherlock\n")

// chunkStride is how many I-frames make up one random-access chunk.
const chunkStride = 4

// Directory is one sub-log's index: its header-derived schema plus the
// sampled entry points used for time-range and offset-based chunk access.
type Directory struct {
	StartOffset int
	EndOffset   int

	Cfg  *header.SysConfig
	Defs *header.FrameDefs

	// Error is non-empty when this sub-log could not be opened: a header
	// parse failure, or (after a full scan) never having produced a usable
	// main frame.
	Error string

	MinTime int32
	MaxTime int32

	// Times, Offsets, AvgThrottle, InitialSlow, and HasEvent are parallel,
	// one entry per chunkStride'th I-frame.
	Times       []int32
	Offsets     []int
	AvgThrottle []float64
	InitialSlow [][]int32
	HasEvent    []bool

	Stats *frame.Stats
}

// Build scans data for sub-log boundaries and returns one Directory per
// sub-log found, in file order.
func Build(data []byte) []*Directory {
	offsets := stream.New(data).AllIndicesOf(subLogMarker)
	if len(offsets) < 2 {
		return nil
	}

	dirs := make([]*Directory, 0, len(offsets)-1)
	for i := 0; i < len(offsets)-1; i++ {
		dirs = append(dirs, buildOne(data, offsets[i], offsets[i+1]))
	}
	return dirs
}

func buildOne(data []byte, start, end int) *Directory {
	dir := &Directory{StartOffset: start, EndOffset: end, MinTime: -1, MaxTime: -1}

	s := stream.NewWindow(data, start, end)
	cfg, defs, err := header.Parse(s)
	dir.Cfg, dir.Defs = cfg, defs
	if err != nil {
		dir.Error = err.Error()
		return dir
	}

	motorIdxs := mainMotorIndices(defs.I)

	dispatcher := frame.NewDispatcher(defs, cfg)
	stats := frame.NewStats()
	dir.Stats = stats

	lastSlow := make([]int32, defs.S.Count)
	iframeCount := 0
	minSet := false
	sawEndMarker := false

	for ev := range dispatcher.All(s, stats) {
		if !ev.Valid {
			continue
		}

		switch ev.Kind {
		case format.FrameIntra:
			if iframeCount%chunkStride == 0 {
				dir.Times = append(dir.Times, ev.Time)
				dir.Offsets = append(dir.Offsets, ev.Offset)
				dir.AvgThrottle = append(dir.AvgThrottle, meanOf(ev.Values, motorIdxs))
				dir.InitialSlow = append(dir.InitialSlow, append([]int32(nil), lastSlow...))
				dir.HasEvent = append(dir.HasEvent, false)
			}
			iframeCount++

			if !minSet || ev.Time < dir.MinTime {
				dir.MinTime = ev.Time
				minSet = true
			}
			if ev.Time > dir.MaxTime {
				dir.MaxTime = ev.Time
			}
		case format.FramePredicted:
			if ev.Time > dir.MaxTime {
				dir.MaxTime = ev.Time
			}
		case format.FrameSlow:
			copy(lastSlow, ev.Values)
		case format.FrameEvent:
			if len(dir.HasEvent) > 0 {
				dir.HasEvent[len(dir.HasEvent)-1] = true
			}
			if ev.EventKind == format.EventLogEnd && ev.EventData.LogEnd {
				sawEndMarker = true
			}
		}
	}

	if !minSet {
		if sawEndMarker {
			dir.Error = ": Logging paused, no data"
		} else {
			dir.Error = ": Log truncated, no data"
		}
	}

	return dir
}

// mainMotorIndices returns the indices of any "motor[N]" fields present in
// def, in field order.
func mainMotorIndices(def *header.FieldDef) []int {
	var idxs []int
	for n := 0; n < 8; n++ {
		name := motorFieldName(n)
		if idx, ok := def.IndexOf(name); ok {
			idxs = append(idxs, idx)
		}
	}
	return idxs
}

func motorFieldName(n int) string {
	return "motor[" + string(rune('0'+n)) + "]"
}

func meanOf(values []int32, idxs []int) float64 {
	if len(idxs) == 0 {
		return 0
	}
	var sum float64
	for _, idx := range idxs {
		if idx < len(values) {
			sum += float64(values[idx])
		}
	}
	return sum / float64(len(idxs))
}
