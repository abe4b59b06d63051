package stream

// ReadTag2_3S32 decodes three signed fields packed by selector bits in the
// top two bits of the lead byte: 2-bit triples, 4-bit triples, 6-bit
// triples, or (selector 3) a per-field 8/16/24/32-bit mixed layout whose
// own 2-bit size selectors occupy the lead byte's low 6 bits, one pair per
// field, consumed low-to-high.
func (s *ByteStream) ReadTag2_3S32(out []int32) {
	lead := byte(s.ReadByte())

	switch lead >> 6 {
	case 0:
		out[0] = SignExtend(uint32(lead>>4)&0x03, 2)
		out[1] = SignExtend(uint32(lead>>2)&0x03, 2)
		out[2] = SignExtend(uint32(lead)&0x03, 2)
	case 1:
		out[0] = SignExtend(uint32(lead)&0x0F, 4)
		b1 := byte(s.ReadByte())
		out[1] = SignExtend(uint32(b1>>4), 4)
		out[2] = SignExtend(uint32(b1)&0x0F, 4)
	case 2:
		out[0] = SignExtend(uint32(lead)&0x3F, 6)
		b1 := byte(s.ReadByte())
		out[1] = SignExtend(uint32(b1)&0x3F, 6)
		b2 := byte(s.ReadByte())
		out[2] = SignExtend(uint32(b2)&0x3F, 6)
	case 3:
		selector := lead
		for i := 0; i < 3; i++ {
			out[i] = s.readSizedSigned(selector & 0x03)
			selector >>= 2
		}
	}
}

// readSizedSigned reads a signed value whose width is chosen by a 2-bit
// selector: 0=8-bit, 1=16-bit, 2=24-bit, 3=32-bit (raw, no sign-extend
// needed since it already spans the full width).
func (s *ByteStream) readSizedSigned(selector byte) int32 {
	switch selector {
	case 0:
		return SignExtend(uint32(byte(s.ReadByte())), 8)
	case 1:
		b1 := uint32(byte(s.ReadByte()))
		b2 := uint32(byte(s.ReadByte()))
		return SignExtend(b1|(b2<<8), 16)
	case 2:
		b1 := uint32(byte(s.ReadByte()))
		b2 := uint32(byte(s.ReadByte()))
		b3 := uint32(byte(s.ReadByte()))
		return SignExtend(b1|(b2<<8)|(b3<<16), 24)
	default:
		b1 := uint32(byte(s.ReadByte()))
		b2 := uint32(byte(s.ReadByte()))
		b3 := uint32(byte(s.ReadByte()))
		b4 := uint32(byte(s.ReadByte()))
		return int32(b1 | (b2 << 8) | (b3 << 16) | (b4 << 24))
	}
}

// ReadTag2_3SVariable decodes three signed fields using the same top-2-bit
// selector as ReadTag2_3S32, but with different packed widths: 2-bit
// triples, a 5-5-4 bit triple, an 8-7-7 bit triple, or (selector 3) the
// same mixed 8/16/24/32 layout as ReadTag2_3S32.
func (s *ByteStream) ReadTag2_3SVariable(out []int32) {
	lead := byte(s.ReadByte())

	switch lead >> 6 {
	case 0:
		out[0] = SignExtend(uint32(lead>>4)&0x03, 2)
		out[1] = SignExtend(uint32(lead>>2)&0x03, 2)
		out[2] = SignExtend(uint32(lead)&0x03, 2)
	case 1:
		b1 := byte(s.ReadByte())
		out[0] = SignExtend((uint32(lead)>>1)&0x1F, 5)
		out[1] = SignExtend(((uint32(lead)<<4)|uint32(b1>>4))&0x1F, 5)
		out[2] = SignExtend(uint32(b1)&0x0F, 4)
	case 2:
		b1 := byte(s.ReadByte())
		b2 := byte(s.ReadByte())
		out[0] = SignExtend((uint32(lead)&0x3F)<<2|uint32(b1>>6), 8)
		out[1] = SignExtend((uint32(b1)&0x3F)<<1|uint32(b2>>7), 7)
		out[2] = SignExtend(uint32(b2)&0x7F, 7)
	case 3:
		selector := lead
		for i := 0; i < 3; i++ {
			out[i] = s.readSizedSigned(selector & 0x03)
			selector >>= 2
		}
	}
}

// ReadTag8_4S16V1 decodes four signed fields using a one-byte, 2-bit-per-field
// selector: {0: zero, 1: 4-bit, 2: 8-bit, 3: 16-bit}. Adjacent 4-bit fields
// share one byte, high nibble first.
func (s *ByteStream) ReadTag8_4S16V1(out []int32) {
	selector := byte(s.ReadByte())
	var nibbleByte byte
	havePending := false

	for i := 0; i < 4; i++ {
		switch (selector >> uint(i*2)) & 0x03 {
		case 0:
			out[i] = 0
		case 1:
			if havePending {
				out[i] = SignExtend(uint32(nibbleByte)&0x0F, 4)
				havePending = false
			} else {
				nibbleByte = byte(s.ReadByte())
				out[i] = SignExtend(uint32(nibbleByte>>4), 4)
				havePending = true
			}
		case 2:
			out[i] = SignExtend(uint32(byte(s.ReadByte())), 8)
		case 3:
			b1 := uint32(byte(s.ReadByte()))
			b2 := uint32(byte(s.ReadByte()))
			out[i] = SignExtend(b1|(b2<<8), 16)
		}
	}
}

// ReadTag8_4S16V2 is the "Data version" >= 2 variant: the nibble consumed by
// a 4-bit field is kept in a single rolling cursor across the whole group,
// and an 8 or 16-bit field encountered while a nibble is pending straddles
// the nibble boundary instead of realigning to a byte boundary.
func (s *ByteStream) ReadTag8_4S16V2(out []int32) {
	selector := byte(s.ReadByte())
	var pending byte
	havePending := false

	for i := 0; i < 4; i++ {
		switch (selector >> uint(i*2)) & 0x03 {
		case 0:
			out[i] = 0
		case 1:
			if havePending {
				out[i] = SignExtend(uint32(pending)&0x0F, 4)
				havePending = false
			} else {
				b := byte(s.ReadByte())
				out[i] = SignExtend(uint32(b>>4), 4)
				pending = b
				havePending = true
			}
		case 2:
			if !havePending {
				out[i] = SignExtend(uint32(byte(s.ReadByte())), 8)
			} else {
				next := byte(s.ReadByte())
				out[i] = SignExtend(uint32(pending&0x0F)<<4|uint32(next>>4), 8)
				pending = next
				// havePending stays true: the low nibble of next carries forward.
			}
		case 3:
			if !havePending {
				b1 := uint32(byte(s.ReadByte()))
				b2 := uint32(byte(s.ReadByte()))
				out[i] = SignExtend(b1|(b2<<8), 16)
			} else {
				b1 := byte(s.ReadByte())
				b2 := byte(s.ReadByte())
				hi := uint32(pending&0x0F)<<4 | uint32(b1>>4)
				lo := uint32(b1&0x0F)<<4 | uint32(b2>>4)
				out[i] = SignExtend(hi|(lo<<8), 16)
				pending = b2
			}
		}
	}
}

// ReadTag8_4S16 dispatches to the v1 or v2 layout based on the header's
// "Data version" field (version < 2 selects v1).
func (s *ByteStream) ReadTag8_4S16(out []int32, dataVersion int) {
	if dataVersion < 2 {
		s.ReadTag8_4S16V1(out)
	} else {
		s.ReadTag8_4S16V2(out)
	}
}

// ReadTag8_8SVB decodes n signed-VB fields. With n == 1 it reads a single
// signed-VB directly; otherwise a leading bitmap byte marks which of up to
// 8 slots hold a signed-VB, the rest are zero.
func (s *ByteStream) ReadTag8_8SVB(out []int32, n int) {
	if n <= 0 {
		return
	}
	if n == 1 {
		out[0] = s.ReadSignedVB()
		return
	}

	header := byte(s.ReadByte())
	for i := 0; i < n && i < 8; i++ {
		if header&(1<<uint(i)) != 0 {
			out[i] = s.ReadSignedVB()
		} else {
			out[i] = 0
		}
	}
}
