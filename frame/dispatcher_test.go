package frame

import (
	"testing"

	"github.com/arloliu/bblog/format"
	"github.com/arloliu/bblog/header"
	"github.com/arloliu/bblog/stream"
	"github.com/stretchr/testify/require"
)

func encodeUnsignedVB(u uint32) []byte {
	var out []byte
	for {
		b := byte(u & 0x7F)
		u >>= 7
		if u != 0 {
			out = append(out, b|0x80)
		} else {
			out = append(out, b)
			break
		}
	}
	return out
}

func simpleFieldDef(names []string, predictors []format.PredictorType, encodings []format.EncodingType) *header.FieldDef {
	def := &header.FieldDef{Predictor: predictors, Encoding: encodings, Count: len(names), Name: names}
	def.NameToIndex = make(map[string]int, len(names))
	for i, n := range names {
		def.NameToIndex[n] = i
	}
	return def
}

func simpleDefs() *header.FrameDefs {
	names := []string{"loopIteration", "time"}
	i := simpleFieldDef(names, []format.PredictorType{format.PredictorInc, format.PredictorPrevious},
		[]format.EncodingType{format.EncodingUnsignedVB, format.EncodingUnsignedVB})
	p := simpleFieldDef(names, []format.PredictorType{format.PredictorInc, format.PredictorPrevious},
		[]format.EncodingType{format.EncodingUnsignedVB, format.EncodingUnsignedVB})
	s := simpleFieldDef(nil, nil, nil)
	e := simpleFieldDef(nil, nil, nil)
	return &header.FrameDefs{I: i, P: p, S: s, E: e}
}

func TestDispatcher_SingleIFrame(t *testing.T) {
	defs := simpleDefs()
	cfg := &header.SysConfig{FrameIntervalI: 1, PNum: 1, PDenom: 1}

	var data []byte
	data = append(data, 'I')
	data = append(data, encodeUnsignedVB(10)...) // loopIteration raw (INC predictor ignores raw read... actually reads raw via UnsignedVB encoding regardless of predictor)
	data = append(data, encodeUnsignedVB(500)...)

	d := NewDispatcher(defs, cfg)
	s := stream.New(data)

	var events []FrameEvent
	for ev := range d.All(s, nil) {
		events = append(events, ev)
	}

	require.Len(t, events, 1)
	require.True(t, events[0].Valid)
	require.Equal(t, format.FrameIntra, events[0].Kind)
	require.Equal(t, int32(500), events[0].Time)
}

func TestDispatcher_IThenPFrameMonotonic(t *testing.T) {
	defs := simpleDefs()
	cfg := &header.SysConfig{FrameIntervalI: 1, PNum: 1, PDenom: 1}

	var data []byte
	data = append(data, 'I')
	data = append(data, encodeUnsignedVB(0)...)
	data = append(data, encodeUnsignedVB(1000)...)

	data = append(data, 'P')
	data = append(data, encodeUnsignedVB(0)...) // INC predictor ignores raw value entirely
	data = append(data, encodeUnsignedVB(50)...) // time delta via PREVIOUS predictor

	d := NewDispatcher(defs, cfg)
	s := stream.New(data)

	var events []FrameEvent
	for ev := range d.All(s, nil) {
		events = append(events, ev)
	}

	require.Len(t, events, 2)
	require.True(t, events[0].Valid)
	require.True(t, events[1].Valid)
	require.Equal(t, int32(1000), events[0].Time)
	require.Equal(t, int32(1050), events[1].Time)
	require.GreaterOrEqual(t, events[1].Iteration, events[0].Iteration)
}

func TestDispatcher_CorruptMarkerTriggersResync(t *testing.T) {
	defs := simpleDefs()
	cfg := &header.SysConfig{FrameIntervalI: 1, PNum: 1, PDenom: 1}

	var data []byte
	data = append(data, 'I')
	data = append(data, encodeUnsignedVB(0)...)
	data = append(data, encodeUnsignedVB(1000)...)
	data = append(data, 0xFE) // unrecognized marker byte
	data = append(data, 'I')
	data = append(data, encodeUnsignedVB(0)...)
	data = append(data, encodeUnsignedVB(2000)...)

	d := NewDispatcher(defs, cfg)
	s := stream.New(data)

	var events []FrameEvent
	stats := NewStats()
	for ev := range d.All(s, stats) {
		events = append(events, ev)
	}

	var sawCorrupt bool
	for _, ev := range events {
		if !ev.Valid {
			sawCorrupt = true
		}
	}
	require.True(t, sawCorrupt)
	require.Greater(t, stats.CorruptCount, int64(0))
}

func TestDispatcher_EventFrameSyncBeep(t *testing.T) {
	defs := simpleDefs()
	cfg := &header.SysConfig{FrameIntervalI: 1, PNum: 1, PDenom: 1}

	var data []byte
	data = append(data, 'E')
	data = append(data, byte(format.EventSyncBeep))
	data = append(data, encodeUnsignedVB(12345)...)

	d := NewDispatcher(defs, cfg)
	s := stream.New(data)

	var events []FrameEvent
	for ev := range d.All(s, nil) {
		events = append(events, ev)
	}

	require.Len(t, events, 1)
	require.True(t, events[0].Valid)
	require.Equal(t, format.FrameEvent, events[0].Kind)
	require.Equal(t, int32(12345), events[0].EventData.Time)
}

func TestDispatcher_LogEndTerminatesStream(t *testing.T) {
	defs := simpleDefs()
	cfg := &header.SysConfig{FrameIntervalI: 1, PNum: 1, PDenom: 1}

	var data []byte
	data = append(data, 'E')
	data = append(data, byte(format.EventLogEnd))
	data = append(data, []byte("End of log\x00")...)
	data = append(data, 'I') // should never be reached
	data = append(data, encodeUnsignedVB(0)...)
	data = append(data, encodeUnsignedVB(1)...)

	d := NewDispatcher(defs, cfg)
	s := stream.New(data)

	var events []FrameEvent
	for ev := range d.All(s, nil) {
		events = append(events, ev)
	}

	require.Len(t, events, 1)
	require.True(t, events[0].EventData.LogEnd)
}

func TestDispatcher_EarlyBreakStopsIteration(t *testing.T) {
	defs := simpleDefs()
	cfg := &header.SysConfig{FrameIntervalI: 1, PNum: 1, PDenom: 1}

	var data []byte
	for i := 0; i < 3; i++ {
		data = append(data, 'I')
		data = append(data, encodeUnsignedVB(0)...)
		data = append(data, encodeUnsignedVB(uint32(i*10))...)
	}

	d := NewDispatcher(defs, cfg)
	s := stream.New(data)

	count := 0
	for range d.All(s, nil) {
		count++
		break
	}
	require.Equal(t, 1, count)
}
