// Package blackbox is the public facade over a parsed flight log: opening
// sub-logs, listing available time ranges and fields, and decoding chunks
// of main frames on demand with their computed (derived) fields attached.
package blackbox

import (
	"fmt"
	"sort"

	"github.com/arloliu/bblog/cache"
	"github.com/arloliu/bblog/compress"
	"github.com/arloliu/bblog/errs"
	"github.com/arloliu/bblog/format"
	"github.com/arloliu/bblog/frame"
	"github.com/arloliu/bblog/header"
	"github.com/arloliu/bblog/index"
	"github.com/arloliu/bblog/internal/options"
	"github.com/arloliu/bblog/stream"
)

// Log is a decoded blackbox file: one or more concatenated sub-logs, each
// independently indexed, with one open at a time.
type Log struct {
	data []byte
	dirs []*index.Directory

	cfg   *config
	cache *cache.ChunkCache

	current    int
	fieldNames []string
	fieldIdx   *fieldIndex
	motorCount int
	cellCount  int
}

// Open indexes every sub-log in data and opens the first one.
func Open(data []byte, opts ...Option) (*Log, error) {
	cfg := defaultConfig()
	if err := options.Apply(cfg, opts...); err != nil {
		return nil, err
	}

	dirs := index.Build(data)
	if len(dirs) == 0 {
		return nil, errs.ErrNoLogOpen
	}

	codec, err := compress.GetCodec(cfg.chunkCacheCodec)
	if err != nil {
		return nil, err
	}

	l := &Log{
		data:    data,
		dirs:    dirs,
		cfg:     cfg,
		cache:   cache.New(codec, cfg.chunkCacheHotSize),
		current: -1,
	}

	if err := l.OpenSubLog(0); err != nil {
		return nil, err
	}
	return l, nil
}

// GetLogCount returns how many sub-logs were found.
func (l *Log) GetLogCount() int {
	return len(l.dirs)
}

// GetLogError returns the sub-log's indexing error, or "" if it opened
// cleanly.
func (l *Log) GetLogError(i int) (string, error) {
	dir, err := l.dir(i)
	if err != nil {
		return "", err
	}
	return dir.Error, nil
}

// OpenSubLog switches the facade to sub-log i, invalidating the chunk
// cache and rebuilding derived field metadata. It fails if that sub-log's
// directory recorded an indexing error.
func (l *Log) OpenSubLog(i int) error {
	dir, err := l.dir(i)
	if err != nil {
		return err
	}
	if dir.Error != "" {
		return fmt.Errorf("blackbox: sub-log %d: %s", i, dir.Error)
	}

	l.current = i
	l.cache.Invalidate()
	l.fieldIdx = buildFieldIndex(dir.Defs.I)
	l.motorCount = countMotors(l.fieldIdx)
	l.cellCount = estimateCellCount(dir.Cfg)
	l.fieldNames = buildFieldNames(dir, l.fieldIdx, l.motorCount)

	return nil
}

func (l *Log) dir(i int) (*index.Directory, error) {
	if i < 0 || i >= len(l.dirs) {
		return nil, errs.ErrLogIndexOutOfRange
	}
	return l.dirs[i], nil
}

func (l *Log) currentDir() (*index.Directory, error) {
	return l.dir(l.current)
}

// GetMinTime returns the earliest I-frame time recorded for sub-log i.
func (l *Log) GetMinTime(i int) (int32, error) {
	dir, err := l.dir(i)
	if err != nil {
		return 0, err
	}
	return dir.MinTime, nil
}

// GetMaxTime returns the latest main-frame time recorded for sub-log i.
func (l *Log) GetMaxTime(i int) (int32, error) {
	dir, err := l.dir(i)
	if err != nil {
		return 0, err
	}
	return dir.MaxTime, nil
}

// GetSysConfig returns the parsed header configuration for sub-log i.
func (l *Log) GetSysConfig(i int) (*header.SysConfig, error) {
	dir, err := l.dir(i)
	if err != nil {
		return nil, err
	}
	return dir.Cfg, nil
}

// LogStats is a sub-log's frame statistics plus the field names they are
// indexed against.
type LogStats struct {
	*frame.Stats
	Field []string
}

// GetStats returns sub-log i's frame statistics.
func (l *Log) GetStats(i int) (*LogStats, error) {
	dir, err := l.dir(i)
	if err != nil {
		return nil, err
	}

	field := append([]string(nil), dir.Defs.I.Name...)
	if dir.Defs.S != nil && dir.Defs.S.Count > 0 {
		field = append(field, dir.Defs.S.Name...)
	}

	return &LogStats{Stats: dir.Stats, Field: field}, nil
}

// GetMainFieldNames returns the current sub-log's field names: I's names,
// then S's, then the computed fields that sub-log's data actually supports.
func (l *Log) GetMainFieldNames() []string {
	return l.fieldNames
}

// GetMainFieldIndexByName returns the position of name in GetMainFieldNames,
// or false if it isn't present.
func (l *Log) GetMainFieldIndexByName(name string) (int, bool) {
	for i, n := range l.fieldNames {
		if n == name {
			return i, true
		}
	}
	return -1, false
}

// GetActivitySummary returns the current sub-log's chunk-entry times,
// average throttle per chunk, and whether an event landed in that chunk —
// enough to render an activity overview without decoding any frames.
func (l *Log) GetActivitySummary() ([]int32, []float64, []bool, error) {
	dir, err := l.currentDir()
	if err != nil {
		return nil, nil, nil, err
	}
	return dir.Times, dir.AvgThrottle, dir.HasEvent, nil
}

// GetChunksInTimeRange decodes and returns every chunk in the current
// sub-log whose entry time falls within [t0, t1], using the lower of the
// two matching chunk-entry indices on each side (binary-search-or-previous).
func (l *Log) GetChunksInTimeRange(t0, t1 int32) ([]*cache.Entry, error) {
	return l.chunksInRange(t0, t1, searchOrPrev, searchOrPrev)
}

// GetSmoothedChunksInTimeRange is like GetChunksInTimeRange but the upper
// bound resolves to the next chunk entry at or after t1 rather than the
// previous one, including one extra trailing chunk for smoothing filters
// that need a little lookahead past the nominal range.
func (l *Log) GetSmoothedChunksInTimeRange(t0, t1 int32) ([]*cache.Entry, error) {
	return l.chunksInRange(t0, t1, searchOrPrev, searchOrNext)
}

func (l *Log) chunksInRange(t0, t1 int32, lowSearch, highSearch func([]int32, int32) int) ([]*cache.Entry, error) {
	dir, err := l.currentDir()
	if err != nil {
		return nil, err
	}
	if len(dir.Times) == 0 {
		return nil, nil
	}

	lo := lowSearch(dir.Times, t0)
	hi := highSearch(dir.Times, t1)
	if hi >= len(dir.Times) {
		hi = len(dir.Times) - 1
	}
	if lo > hi {
		return nil, nil
	}

	out := make([]*cache.Entry, 0, hi-lo+1)
	for c := lo; c <= hi; c++ {
		entry, err := l.decodeChunk(dir, c)
		if err != nil {
			return nil, err
		}
		out = append(out, entry)
	}
	return out, nil
}

// GetFrameAtTime locates t within the current sub-log's chunks and returns
// the indices of the previous, current (strictly-after), and next frame in
// that chunk's decoded frame slice.
func (l *Log) GetFrameAtTime(t int32) (prev, cur, next int, entry *cache.Entry, err error) {
	dir, err := l.currentDir()
	if err != nil {
		return 0, 0, 0, nil, err
	}
	if len(dir.Times) == 0 {
		return 0, 0, 0, nil, errs.ErrNoLogOpen
	}

	c := searchOrPrev(dir.Times, t)
	entry, err = l.decodeChunk(dir, c)
	if err != nil {
		return 0, 0, 0, nil, err
	}

	idx := sort.Search(len(entry.Frames), func(i int) bool {
		timeIdx, ok := l.timeFieldIndex(dir)
		if !ok {
			return false
		}
		return entry.Frames[i][timeIdx] > t
	})

	prev = idx - 1
	if prev < 0 {
		prev = 0
	}
	cur = idx
	next = idx + 1
	if next >= len(entry.Frames) {
		next = len(entry.Frames) - 1
	}

	return prev, cur, next, entry, nil
}

func (l *Log) timeFieldIndex(dir *index.Directory) (int, bool) {
	return dir.Defs.I.IndexOf("time")
}

func (l *Log) decodeChunk(dir *index.Directory, c int) (*cache.Entry, error) {
	if cached, ok, err := l.cache.Get(c); err != nil {
		return nil, err
	} else if ok {
		return cached, nil
	}

	start := dir.Offsets[c]
	end := dir.EndOffset
	if c+1 < len(dir.Offsets) {
		end = dir.Offsets[c+1]
	}

	s := stream.NewWindow(l.data, start, end)
	dispatcher := frame.NewDispatcher(dir.Defs, dir.Cfg)

	lastSlow := append([]int32(nil), dir.InitialSlow[c]...)
	entry := &cache.Entry{}
	gapPending := false

	for ev := range dispatcher.All(s, frame.NewStats()) {
		switch ev.Kind {
		case format.FrameIntra, format.FramePredicted:
			if !ev.Valid {
				gapPending = true
				continue
			}
			entry.Frames = append(entry.Frames, append(append([]int32(nil), ev.Values...), lastSlow...))
			entry.GapStartsHere = append(entry.GapStartsHere, gapPending)
			gapPending = false
		case format.FrameSlow:
			if ev.Valid {
				copy(lastSlow, ev.Values)
			}
		case format.FrameEvent:
			if !ev.Valid {
				continue
			}
			entry.Events = append(entry.Events, cache.EventEntry{
				FrameIndex: len(entry.Frames),
				Kind:       ev.EventKind,
				Data:       ev.EventData,
			})
			if ev.EventKind == format.EventLoggingResume {
				gapPending = true
			}
		}
	}

	injectComputedFields(dir.Cfg, l.fieldIdx, entry, l.motorCount)
	fillEventTimestamps(entry, dir)

	l.cache.Put(c, entry)
	return entry, nil
}

// fillEventTimestamps backfills Time on events carried in EventData where
// the event kind has none of its own (e.g. DISARM), using the following
// main frame's time within the same chunk. An event that trails the chunk's
// last frame takes that last frame's time; the next chunk is not consulted.
// Only when the chunk has no frames at all does it take the sub-log's
// MaxTime.
func fillEventTimestamps(entry *cache.Entry, dir *index.Directory) {
	timeIdx, ok := dir.Defs.I.IndexOf("time")
	if !ok {
		return
	}
	for i := range entry.Events {
		ev := &entry.Events[i]
		if ev.Data.Time != 0 || ev.Data.CurrentTime != 0 {
			continue
		}
		if ev.FrameIndex < len(entry.Frames) {
			ev.Data.Time = entry.Frames[ev.FrameIndex][timeIdx]
		} else if len(entry.Frames) > 0 {
			ev.Data.Time = entry.Frames[len(entry.Frames)-1][timeIdx]
		} else {
			ev.Data.Time = dir.MaxTime
		}
	}
}

func countMotors(fi *fieldIndex) int {
	n := 0
	for i := 0; i < 8; i++ {
		if fi.hasMotor[i] {
			n = i + 1
		}
	}
	return n
}

// estimateCellCount guesses the battery's cell count from the reference
// voltage and the configured per-cell maximum, the smallest k in [1,8]
// whose k-cell maximum exceeds the logged reference voltage.
func estimateCellCount(cfg *header.SysConfig) int {
	if cfg.VbatMaxCellVoltage <= 0 {
		return 0
	}
	for k := 1; k <= 8; k++ {
		if cfg.VbatRef < k*cfg.VbatMaxCellVoltage {
			return k
		}
	}
	return 8
}

func buildFieldNames(dir *index.Directory, fi *fieldIndex, motorCount int) []string {
	names := append([]string(nil), dir.Defs.I.Name...)
	if dir.Defs.S != nil && dir.Defs.S.Count > 0 {
		names = append(names, dir.Defs.S.Name...)
	}

	for axis := 0; axis < 3; axis++ {
		if fi.hasPI[axis] {
			names = append(names, fmt.Sprintf("pidSum[%d]", axis))
		}
	}
	for axis := 0; axis < 4; axis++ {
		if fi.hasRC[axis] || fi.hasSet[axis] {
			names = append(names, fmt.Sprintf("rcCommand[%d]", axis))
		}
	}
	for axis := 0; axis < 3; axis++ {
		if fi.hasGyro[axis] {
			names = append(names, fmt.Sprintf("pidError[%d]", axis))
		}
	}
	for m := 0; m < motorCount && m < 8; m++ {
		if fi.hasMotor[m] {
			names = append(names, fmt.Sprintf("motorLegacy[%d]", m))
		}
	}

	return names
}

func searchOrPrev(times []int32, t int32) int {
	i := sort.Search(len(times), func(i int) bool { return times[i] > t })
	if i == 0 {
		return 0
	}
	return i - 1
}

func searchOrNext(times []int32, t int32) int {
	i := sort.Search(len(times), func(i int) bool { return times[i] >= t })
	if i >= len(times) {
		return len(times) - 1
	}
	return i
}
