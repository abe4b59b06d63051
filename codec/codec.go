// Package codec drives a frame definition's per-field encoding and
// predictor arrays to reconstruct one frame's absolute integer values from
// its raw wire bytes and up to two historical frames.
package codec

import (
	"github.com/arloliu/bblog/errs"
	"github.com/arloliu/bblog/format"
	"github.com/arloliu/bblog/header"
	"github.com/arloliu/bblog/stream"
)

// Context carries the cross-field state a predictor may need beyond the raw
// decoded value: the two historical frames (nil if unavailable), how many
// loop iterations were intentionally skipped before this frame, the frame's
// own field definition (for MOTOR_0's field lookup), and the last main
// frame's time (for LAST_MAIN_FRAME_TIME, used by S-frames; 0 before any
// main frame has been accepted).
type Context struct {
	Def               *header.FieldDef
	Cfg               *header.SysConfig
	Prev              []int32 // nil when no history exists yet
	PrevPrev          []int32 // nil for I-frames, and unless decoding a P-frame with two-deep history
	Skipped           int32
	LastMainFrameTime int32
}

// DecodeFrame fills cur with one frame's reconstructed field values,
// consuming bytes from s according to def's per-field encoding array and
// reconstructing absolutes via its predictor array. Group encodings consume
// several fields at once; the loop advances past the whole group.
func DecodeFrame(ctx *Context, cur []int32, s *stream.ByteStream) error {
	def := ctx.Def

	for i := 0; i < def.Count; {
		enc := def.Encoding[i]

		switch enc {
		case format.EncodingTag2_3S32:
			group := groupOut3()
			s.ReadTag2_3S32(group[:])
			if err := applyGroup(ctx, cur, i, group[:]); err != nil {
				return err
			}
			i += 3
		case format.EncodingTag2_3SVariable:
			group := groupOut3()
			s.ReadTag2_3SVariable(group[:])
			if err := applyGroup(ctx, cur, i, group[:]); err != nil {
				return err
			}
			i += 3
		case format.EncodingTag8_4S16:
			group := groupOut4()
			s.ReadTag8_4S16(group[:], ctx.Cfg.DataVersion)
			if err := applyGroup(ctx, cur, i, group[:]); err != nil {
				return err
			}
			i += 4
		case format.EncodingTag8_8SVB:
			n := runLength(def, i, format.EncodingTag8_8SVB, 8)
			group := make([]int32, n)
			s.ReadTag8_8SVB(group, n)
			if err := applyGroup(ctx, cur, i, group); err != nil {
				return err
			}
			i += n
		default:
			raw, err := decodeSingle(enc, s)
			if err != nil {
				return err
			}
			v, err := applyPredictor(ctx, def.Predictor[i], raw, i, cur)
			if err != nil {
				return err
			}
			cur[i] = v
			i++
		}
	}

	return nil
}

func groupOut3() [3]int32 { return [3]int32{} }
func groupOut4() [4]int32 { return [4]int32{} }

// runLength counts how many consecutive fields from i share enc, capped at
// max; TAG8_8SVB groups a run of up to 8 adjacent same-coded fields rather
// than a fixed count.
func runLength(def *header.FieldDef, i int, enc format.EncodingType, max int) int {
	n := 0
	for i+n < def.Count && n < max && def.Encoding[i+n] == enc {
		n++
	}
	if n == 0 {
		n = 1
	}
	return n
}

func decodeSingle(enc format.EncodingType, s *stream.ByteStream) (int32, error) {
	switch enc {
	case format.EncodingSignedVB:
		return s.ReadSignedVB(), nil
	case format.EncodingUnsignedVB:
		return int32(s.ReadUnsignedVB()), nil
	case format.EncodingNeg14Bit:
		return -stream.SignExtend(s.ReadUnsignedVB(), 14), nil
	case format.EncodingNull:
		return 0, nil
	default:
		return 0, errs.ErrUnknownFrameMarker
	}
}

// applyGroup applies each field's predictor to a freshly decoded group of
// raw values, in field order, then returns to the caller so it can advance
// past the whole group.
func applyGroup(ctx *Context, cur []int32, start int, raw []int32) error {
	def := ctx.Def
	for j, v := range raw {
		idx := start + j
		if idx >= def.Count {
			break
		}
		out, err := applyPredictor(ctx, def.Predictor[idx], v, idx, cur)
		if err != nil {
			return err
		}
		cur[idx] = out
	}
	return nil
}

// applyPredictor reconstructs an absolute field value from its raw decoded
// delta, per spec.md §4.3's predictor table.
func applyPredictor(ctx *Context, pred format.PredictorType, raw int32, idx int, cur []int32) (int32, error) {
	switch pred {
	case format.PredictorZero:
		return raw, nil
	case format.PredictorPrevious:
		if ctx.Prev == nil {
			return raw, nil
		}
		return raw + ctx.Prev[idx], nil
	case format.PredictorStraightLine:
		if ctx.Prev == nil || ctx.PrevPrev == nil {
			return raw, nil
		}
		return raw + 2*ctx.Prev[idx] - ctx.PrevPrev[idx], nil
	case format.PredictorAverage2:
		if ctx.Prev == nil || ctx.PrevPrev == nil {
			return raw, nil
		}
		return raw + truncDiv2(ctx.Prev[idx]+ctx.PrevPrev[idx]), nil
	case format.PredictorMotor0:
		motorIdx, ok := ctx.Def.IndexOf("motor[0]")
		if !ok || motorIdx >= idx {
			return 0, errs.ErrMissingPredictorInput
		}
		return raw + cur[motorIdx], nil
	case format.PredictorInc:
		prevVal := int32(0)
		if ctx.Prev != nil {
			prevVal = ctx.Prev[idx]
		}
		return ctx.Skipped + 1 + prevVal, nil
	case format.Predictor1500:
		return raw + 1500, nil
	case format.PredictorVBatRef:
		return raw + int32(ctx.Cfg.VbatRef), nil
	case format.PredictorLastMainFrameTime:
		return raw + ctx.LastMainFrameTime, nil
	case format.PredictorMinMotor:
		return raw + int32(ctx.Cfg.MotorOutput[0]), nil
	default:
		return raw, nil
	}
}

// truncDiv2 divides by 2 truncating toward zero, matching C integer
// division semantics (Go's / already truncates toward zero for ints, so
// this just documents the invariant at the one call site that depends on
// it).
func truncDiv2(v int32) int32 {
	return v / 2
}
