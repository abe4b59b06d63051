// Package format defines the small closed enumerations shared across the
// decoder: frame marker kinds, per-field encoding and predictor codes, event
// kinds, and the chunk-cache compression algorithm.
package format

// FrameKind identifies a frame marker byte in the binary stream.
type FrameKind uint8

const (
	FrameUnknown FrameKind = iota
	FrameIntra             // I-frame: self-contained main-loop snapshot.
	FramePredicted         // P-frame: delta-encoded against history.
	FrameSlow              // S-frame: infrequently-changing state.
	FrameEvent             // E-frame: arm/disarm/mode change/log end.
)

func (k FrameKind) String() string {
	switch k {
	case FrameIntra:
		return "I"
	case FramePredicted:
		return "P"
	case FrameSlow:
		return "S"
	case FrameEvent:
		return "E"
	default:
		return "Unknown"
	}
}

// Marker returns the wire marker byte for the frame kinds that own one.
// FrameUnknown has no marker and returns 0.
func (k FrameKind) Marker() byte {
	switch k {
	case FrameIntra:
		return 'I'
	case FramePredicted:
		return 'P'
	case FrameSlow:
		return 'S'
	case FrameEvent:
		return 'E'
	default:
		return 0
	}
}

// FrameKindForMarker maps a wire marker byte to its FrameKind. Any other
// byte, including the GPS markers 'G'/'H', maps to FrameUnknown; the
// dispatcher checks for 'G'/'H' itself so it doesn't treat them as
// corruption.
func FrameKindForMarker(marker byte) FrameKind {
	switch marker {
	case 'I':
		return FrameIntra
	case 'P':
		return FramePredicted
	case 'S':
		return FrameSlow
	case 'E':
		return FrameEvent
	default:
		return FrameUnknown
	}
}

// EncodingType is the per-field wire encoding code read from a `Field <T>
// encoding` header line.
type EncodingType uint8

const (
	EncodingSignedVB      EncodingType = 0
	EncodingUnsignedVB    EncodingType = 1
	EncodingNeg14Bit      EncodingType = 3
	EncodingTag8_8SVB     EncodingType = 6
	EncodingTag2_3S32     EncodingType = 7
	EncodingTag8_4S16     EncodingType = 8
	EncodingNull          EncodingType = 9
	EncodingTag2_3SVariable EncodingType = 10
)

func (e EncodingType) String() string {
	switch e {
	case EncodingSignedVB:
		return "SIGNED_VB"
	case EncodingUnsignedVB:
		return "UNSIGNED_VB"
	case EncodingNeg14Bit:
		return "NEG_14BIT"
	case EncodingTag8_8SVB:
		return "TAG8_8SVB"
	case EncodingTag2_3S32:
		return "TAG2_3S32"
	case EncodingTag8_4S16:
		return "TAG8_4S16"
	case EncodingNull:
		return "NULL"
	case EncodingTag2_3SVariable:
		return "TAG2_3SVARIABLE"
	default:
		return "Unknown"
	}
}

// IsGroup reports whether this encoding spans more than one field at a time.
func (e EncodingType) IsGroup() bool {
	switch e {
	case EncodingTag8_8SVB, EncodingTag2_3S32, EncodingTag8_4S16, EncodingTag2_3SVariable:
		return true
	default:
		return false
	}
}

// PredictorType is the per-field reconstruction rule read from a `Field <T>
// predictor` header line.
type PredictorType uint8

const (
	PredictorZero             PredictorType = 0
	PredictorPrevious         PredictorType = 1
	PredictorStraightLine     PredictorType = 2
	PredictorAverage2         PredictorType = 3
	PredictorMotor0           PredictorType = 5
	PredictorInc              PredictorType = 6
	Predictor1500             PredictorType = 8
	PredictorVBatRef          PredictorType = 9
	PredictorLastMainFrameTime PredictorType = 10
	PredictorMinMotor         PredictorType = 11
)

func (p PredictorType) String() string {
	switch p {
	case PredictorZero:
		return "ZERO"
	case PredictorPrevious:
		return "PREVIOUS"
	case PredictorStraightLine:
		return "STRAIGHT_LINE"
	case PredictorAverage2:
		return "AVERAGE_2"
	case PredictorMotor0:
		return "MOTOR_0"
	case PredictorInc:
		return "INC"
	case Predictor1500:
		return "1500"
	case PredictorVBatRef:
		return "VBATREF"
	case PredictorLastMainFrameTime:
		return "LAST_MAIN_FRAME_TIME"
	case PredictorMinMotor:
		return "MINMOTOR"
	default:
		return "Unknown"
	}
}

// EventKind identifies the one-byte discriminator of an E-frame payload.
type EventKind uint8

const (
	EventSyncBeep      EventKind = 0
	EventLoggingResume EventKind = 14
	EventFlightMode    EventKind = 30
	EventDisarm        EventKind = 15
	EventLogEnd        EventKind = 255
)

func (e EventKind) String() string {
	switch e {
	case EventSyncBeep:
		return "SYNC_BEEP"
	case EventFlightMode:
		return "FLIGHT_MODE"
	case EventDisarm:
		return "DISARM"
	case EventLoggingResume:
		return "LOGGING_RESUME"
	case EventLogEnd:
		return "LOG_END"
	default:
		return "Unknown"
	}
}

// CompressionType selects the codec used for cold chunk-cache entries.
type CompressionType uint8

const (
	CompressionNone CompressionType = 0x1
	CompressionZstd CompressionType = 0x2
	CompressionS2   CompressionType = 0x3
	CompressionLZ4  CompressionType = 0x4
)

func (c CompressionType) String() string {
	switch c {
	case CompressionNone:
		return "None"
	case CompressionZstd:
		return "Zstd"
	case CompressionS2:
		return "S2"
	case CompressionLZ4:
		return "LZ4"
	default:
		return "Unknown"
	}
}
