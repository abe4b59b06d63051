// Package stream implements the byte-level reader the rest of the decoder is
// built on: a cursor over an immutable buffer with the unsigned/signed
// varint, sign-extension, and tagged-group primitives the wire format needs.
package stream

import (
	"bytes"

	"github.com/arloliu/bblog/endian"
)

var le = endian.GetLittleEndianEngine()

// ByteStream is a cursor-based reader over an immutable byte buffer.
//
// start <= pos <= end <= len(data) always holds. EOF is a flag, not a
// terminal state: a read attempted past end sets it and returns a sentinel
// value, and reads keep working after it is set. Once set, it stays set
// until the caller clears it with ResetEOF (e.g. after repositioning pos).
type ByteStream struct {
	data  []byte
	start int
	end   int
	pos   int
	eof   bool
}

// New wraps data in a ByteStream spanning its full length.
func New(data []byte) *ByteStream {
	return &ByteStream{data: data, start: 0, end: len(data), pos: 0}
}

// NewWindow wraps data in a ByteStream restricted to [start, end).
// Used to decode one chunk or one sub-log out of a larger shared buffer.
func NewWindow(data []byte, start, end int) *ByteStream {
	return &ByteStream{data: data, start: start, end: end, pos: start}
}

// Pos returns the current cursor position.
func (s *ByteStream) Pos() int { return s.pos }

// SetPos repositions the cursor. Used by the dispatcher to rewind after a
// corrupt frame; the facade reaches a chunk's byte range through NewWindow.
func (s *ByteStream) SetPos(pos int) { s.pos = pos }

// Start returns the window's lower bound.
func (s *ByteStream) Start() int { return s.start }

// End returns the window's upper bound (exclusive).
func (s *ByteStream) End() int { return s.end }

// SetEnd truncates the window, used by the LOG_END event to stop parsing at
// the literal "End of log" marker instead of the buffer's physical end.
func (s *ByteStream) SetEnd(end int) { s.end = end }

// EOF reports whether any read has run past end since the stream was
// created or ResetEOF was last called.
func (s *ByteStream) EOF() bool { return s.eof }

// ResetEOF clears the EOF flag, e.g. after the caller repositions pos.
func (s *ByteStream) ResetEOF() { s.eof = false }

// Remaining returns the number of unread bytes in the window.
func (s *ByteStream) Remaining() int {
	if s.pos >= s.end {
		return 0
	}
	return s.end - s.pos
}

// ReadByte reads one byte and advances pos. Returns -1 and sets EOF at end.
func (s *ByteStream) ReadByte() int {
	if s.pos >= s.end {
		s.eof = true
		return -1
	}
	b := s.data[s.pos]
	s.pos++
	return int(b)
}

// ReadChar is an alias for ReadByte; the wire format has no distinct
// character type, but the stream's callers read header text one byte at a
// time as ASCII.
func (s *ByteStream) ReadChar() int { return s.ReadByte() }

// PeekChar returns the next byte without advancing pos, or -1 at end.
func (s *ByteStream) PeekChar() int {
	if s.pos >= s.end {
		return -1
	}
	return int(s.data[s.pos])
}

// UnreadChar steps pos back by one, undoing the last ReadByte/ReadChar.
func (s *ByteStream) UnreadChar() {
	if s.pos > s.start {
		s.pos--
	}
}

// ReadU16 reads a little-endian uint16.
func (s *ByteStream) ReadU16() uint16 {
	if s.pos+2 > s.end {
		s.eof = true
		return 0
	}
	v := le.Uint16(s.data[s.pos:])
	s.pos += 2
	return v
}

// ReadU32 reads a little-endian uint32.
func (s *ByteStream) ReadU32() uint32 {
	if s.pos+4 > s.end {
		s.eof = true
		return 0
	}
	v := le.Uint32(s.data[s.pos:])
	s.pos += 4
	return v
}

// ReadS16 reads a little-endian int16 (sign-extended to int32 for the field
// vector's common width).
func (s *ByteStream) ReadS16() int32 {
	return int32(int16(s.ReadU16()))
}

// ReadLine reads ASCII bytes up to but not past the next '\n' or NUL.
// The terminator itself is consumed but not included in the result.
func (s *ByteStream) ReadLine() string {
	start := s.pos
	for s.pos < s.end {
		b := s.data[s.pos]
		if b == '\n' || b == 0 {
			line := string(s.data[start:s.pos])
			s.pos++
			return line
		}
		s.pos++
	}
	s.eof = true
	return string(s.data[start:s.pos])
}

// ReadString reads exactly n bytes and returns them joined as a string.
func (s *ByteStream) ReadString(n int) string {
	if s.pos+n > s.end {
		s.eof = true
		n = s.end - s.pos
		if n < 0 {
			n = 0
		}
	}
	v := string(s.data[s.pos : s.pos+n])
	s.pos += n
	return v
}

// ReadUnsignedVB reads a variable-byte unsigned integer: up to 5 bytes of
// 7 data bits each, continuation signaled by the 0x80 bit of each byte. A
// stream with more than 5 continuation bytes is malformed and yields 0
// rather than an error, per the wire format's tolerance for truncated logs.
func (s *ByteStream) ReadUnsignedVB() uint32 {
	var result uint32
	var shift uint
	for i := 0; i < 5; i++ {
		c := s.ReadByte()
		if c < 0 {
			return result
		}
		result |= uint32(c&0x7F) << shift
		if c&0x80 == 0 {
			return result
		}
		shift += 7
	}
	return 0
}

// ReadSignedVB ZigZag-decodes ReadUnsignedVB.
func (s *ByteStream) ReadSignedVB() int32 {
	u := s.ReadUnsignedVB()
	return int32(u>>1) ^ -int32(u&1)
}

// SignExtend widens a bits-wide two's-complement value held in the low bits
// of v to a full-width int32, preserving its arithmetic value.
func SignExtend(v uint32, bits uint) int32 {
	shift := 32 - bits
	return int32(v<<shift) >> shift
}

// AllIndicesOf returns every offset within [start, end) where marker occurs,
// plus end itself as a sentinel final entry (so callers can treat adjacent
// results as [lo, hi) ranges without a special case for the last one).
func (s *ByteStream) AllIndicesOf(marker []byte) []int {
	var out []int
	search := s.data[s.start:s.end]
	base := s.start
	off := 0
	for {
		idx := bytes.Index(search[off:], marker)
		if idx < 0 {
			break
		}
		out = append(out, base+off+idx)
		off += idx + 1
	}
	out = append(out, s.end)
	return out
}
