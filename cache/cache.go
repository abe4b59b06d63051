// Package cache implements the facade's chunk cache: a small hot window of
// fully decoded chunks, with chunks that fall out of that window kept
// compressed instead of discarded, so a later cache hit costs a
// decompression rather than a full re-parse of the frame stream.
package cache

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"sync"

	"github.com/arloliu/bblog/compress"
	"github.com/arloliu/bblog/format"
	"github.com/arloliu/bblog/frame"
)

// EventEntry is one E-frame recorded in a decoded chunk, positioned by its
// index into Entry.Frames (the main frame immediately following it, or
// len(Frames) if it trails the chunk).
type EventEntry struct {
	FrameIndex int
	Kind       format.EventKind
	Data       frame.EventPayload
}

// Entry is one fully decoded chunk: every main frame's reconstructed field
// values, its events, and which frame indices start a predictor-reset gap
// (a corrupt run or a LOGGING_RESUME).
type Entry struct {
	Frames        [][]int32
	Events        []EventEntry
	GapStartsHere []bool
}

// gobEntry mirrors Entry for gob encoding; Entry itself is not registered
// with gob directly so its exported shape can evolve independently of the
// wire format used only internally by this cache.
type gobEntry struct {
	Frames        [][]int32
	Events        []EventEntry
	GapStartsHere []bool
}

func (e *Entry) marshal() ([]byte, error) {
	var buf bytes.Buffer
	ge := gobEntry{Frames: e.Frames, Events: e.Events, GapStartsHere: e.GapStartsHere}
	if err := gob.NewEncoder(&buf).Encode(&ge); err != nil {
		return nil, fmt.Errorf("cache: marshal chunk: %w", err)
	}
	return buf.Bytes(), nil
}

func unmarshalEntry(data []byte) (*Entry, error) {
	var ge gobEntry
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&ge); err != nil {
		return nil, fmt.Errorf("cache: unmarshal chunk: %w", err)
	}
	return &Entry{Frames: ge.Frames, Events: ge.Events, GapStartsHere: ge.GapStartsHere}, nil
}

// coldEntry is a hot Entry's cold-storage form: its gob-encoded bytes, run
// through the cache's configured compress.Codec.
type coldEntry struct {
	compressed []byte
}

// ChunkCache holds decoded chunks for the currently open sub-log, keyed by
// chunk index. A fixed-size hot window keeps the most recently used chunks
// decoded as-is; older chunks are compressed rather than evicted outright.
//
// Every method takes an internal mutex, so a ChunkCache may be called from
// several goroutines.
type ChunkCache struct {
	mu sync.Mutex

	codec   compress.Codec
	hotSize int

	hot  map[int]*Entry
	cold map[int]*coldEntry
	lru  []int // most-recently-used hot key at the end
}

// New returns a ChunkCache that keeps up to hotSize chunks decoded and
// compresses the rest with codec. A nil codec disables cold storage:
// chunks that fall out of the hot window are simply dropped, and Get
// reports a miss for them.
func New(codec compress.Codec, hotSize int) *ChunkCache {
	if hotSize < 1 {
		hotSize = 1
	}
	return &ChunkCache{
		codec:   codec,
		hotSize: hotSize,
		hot:     make(map[int]*Entry),
		cold:    make(map[int]*coldEntry),
	}
}

// Put stores a freshly decoded chunk, evicting the least-recently-used hot
// chunk (compressing it, if a codec is configured) if the hot window is
// full.
func (c *ChunkCache) Put(key int, e *Entry) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.cold, key)
	c.hot[key] = e
	c.touch(key)
	c.evictIfNeeded()
}

// Get returns the chunk at key, decompressing it from cold storage and
// promoting it to the hot window if needed. The second return reports
// whether the chunk was present at all (hot or cold).
func (c *ChunkCache) Get(key int) (*Entry, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.hot[key]; ok {
		c.touch(key)
		return e, true, nil
	}

	cold, ok := c.cold[key]
	if !ok {
		return nil, false, nil
	}

	raw, err := c.codec.Decompress(cold.compressed)
	if err != nil {
		return nil, true, fmt.Errorf("cache: decompress chunk %d: %w", key, err)
	}
	entry, err := unmarshalEntry(raw)
	if err != nil {
		return nil, true, err
	}

	delete(c.cold, key)
	c.hot[key] = entry
	c.touch(key)
	c.evictIfNeeded()

	return entry, true, nil
}

// Invalidate drops every cached chunk. Called by the facade when switching
// sub-logs.
func (c *ChunkCache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.hot = make(map[int]*Entry)
	c.cold = make(map[int]*coldEntry)
	c.lru = nil
}

func (c *ChunkCache) touch(key int) {
	for i, k := range c.lru {
		if k == key {
			c.lru = append(c.lru[:i], c.lru[i+1:]...)
			break
		}
	}
	c.lru = append(c.lru, key)
}

func (c *ChunkCache) evictIfNeeded() {
	for len(c.lru) > c.hotSize {
		oldest := c.lru[0]
		c.lru = c.lru[1:]

		e, ok := c.hot[oldest]
		if !ok {
			continue
		}
		delete(c.hot, oldest)

		if c.codec == nil {
			continue
		}
		raw, err := e.marshal()
		if err != nil {
			continue
		}
		compressed, err := c.codec.Compress(raw)
		if err != nil {
			continue
		}
		c.cold[oldest] = &coldEntry{compressed: compressed}
	}
}
