package codec

import (
	"testing"

	"github.com/arloliu/bblog/errs"
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

func encodeSignedVB(v int32) []byte {
	zigzag := uint32(v<<1) ^ uint32(v>>31)
	return encodeUnsignedVB(zigzag)
}

func fieldDef(names []string, predictors []format.PredictorType, encodings []format.EncodingType) *header.FieldDef {
	def := &header.FieldDef{
		Predictor: predictors,
		Encoding:  encodings,
		Count:     len(names),
	}
	def.Name = names
	def.NameToIndex = make(map[string]int, len(names))
	for i, n := range names {
		def.NameToIndex[n] = i
	}
	return def
}

func TestDecodeFrame_SingleFieldZeroPredictor(t *testing.T) {
	def := fieldDef(
		[]string{"loopIteration", "time"},
		[]format.PredictorType{format.PredictorZero, format.PredictorZero},
		[]format.EncodingType{format.EncodingUnsignedVB, format.EncodingUnsignedVB},
	)
	var data []byte
	data = append(data, encodeUnsignedVB(5)...)
	data = append(data, encodeUnsignedVB(1000)...)

	ctx := &Context{Def: def, Cfg: &header.SysConfig{}}
	cur := make([]int32, 2)
	err := DecodeFrame(ctx, cur, stream.New(data))

	require.NoError(t, err)
	require.Equal(t, int32(5), cur[0])
	require.Equal(t, int32(1000), cur[1])
}

func TestDecodeFrame_PreviousPredictorNoHistory(t *testing.T) {
	def := fieldDef(
		[]string{"time"},
		[]format.PredictorType{format.PredictorPrevious},
		[]format.EncodingType{format.EncodingSignedVB},
	)
	data := encodeSignedVB(42)

	ctx := &Context{Def: def, Cfg: &header.SysConfig{}}
	cur := make([]int32, 1)
	err := DecodeFrame(ctx, cur, stream.New(data))

	require.NoError(t, err)
	require.Equal(t, int32(42), cur[0])
}

func TestDecodeFrame_PreviousPredictorWithHistory(t *testing.T) {
	def := fieldDef(
		[]string{"time"},
		[]format.PredictorType{format.PredictorPrevious},
		[]format.EncodingType{format.EncodingSignedVB},
	)
	data := encodeSignedVB(10)

	ctx := &Context{Def: def, Cfg: &header.SysConfig{}, Prev: []int32{1000}}
	cur := make([]int32, 1)
	err := DecodeFrame(ctx, cur, stream.New(data))

	require.NoError(t, err)
	require.Equal(t, int32(1010), cur[0])
}

func TestApplyPredictor_StraightLine(t *testing.T) {
	ctx := &Context{Prev: []int32{100}, PrevPrev: []int32{80}}
	v, err := applyPredictor(ctx, format.PredictorStraightLine, 0, 0, nil)
	require.NoError(t, err)
	// straight line: 2*100 - 80 = 120
	require.Equal(t, int32(120), v)
}

func TestApplyPredictor_StraightLineNoHistoryFallsBackToRaw(t *testing.T) {
	ctx := &Context{}
	v, err := applyPredictor(ctx, format.PredictorStraightLine, 7, 0, nil)
	require.NoError(t, err)
	require.Equal(t, int32(7), v)
}

func TestApplyPredictor_Average2(t *testing.T) {
	ctx := &Context{Prev: []int32{10}, PrevPrev: []int32{4}}
	v, err := applyPredictor(ctx, format.PredictorAverage2, 1, 0, nil)
	require.NoError(t, err)
	// avg(10,4)=7, +1 = 8
	require.Equal(t, int32(8), v)
}

func TestApplyPredictor_Motor0(t *testing.T) {
	def := fieldDef(
		[]string{"motor[0]", "motor[1]"},
		[]format.PredictorType{format.PredictorZero, format.PredictorMotor0},
		[]format.EncodingType{format.EncodingUnsignedVB, format.EncodingUnsignedVB},
	)
	ctx := &Context{Def: def}
	cur := []int32{1500, 0}

	v, err := applyPredictor(ctx, format.PredictorMotor0, 20, 1, cur)
	require.NoError(t, err)
	require.Equal(t, int32(1520), v)
}

func TestApplyPredictor_Motor0MissingFieldFails(t *testing.T) {
	def := fieldDef(
		[]string{"motor[1]"},
		[]format.PredictorType{format.PredictorMotor0},
		[]format.EncodingType{format.EncodingUnsignedVB},
	)
	ctx := &Context{Def: def}
	cur := []int32{0}

	_, err := applyPredictor(ctx, format.PredictorMotor0, 20, 0, cur)
	require.ErrorIs(t, err, errs.ErrMissingPredictorInput)
}

func TestApplyPredictor_Motor0OutOfOrderFails(t *testing.T) {
	def := fieldDef(
		[]string{"motor[1]", "motor[0]"},
		[]format.PredictorType{format.PredictorMotor0, format.PredictorZero},
		[]format.EncodingType{format.EncodingUnsignedVB, format.EncodingUnsignedVB},
	)
	ctx := &Context{Def: def}
	cur := []int32{0, 0}

	_, err := applyPredictor(ctx, format.PredictorMotor0, 20, 0, cur)
	require.ErrorIs(t, err, errs.ErrMissingPredictorInput)
}

func TestApplyPredictor_Inc(t *testing.T) {
	ctx := &Context{Skipped: 2, Prev: []int32{50}}
	v, err := applyPredictor(ctx, format.PredictorInc, 0, 0, nil)
	require.NoError(t, err)
	require.Equal(t, int32(53), v)
}

func TestApplyPredictor_1500AndVBatRefAndMinMotor(t *testing.T) {
	ctx := &Context{Cfg: &header.SysConfig{VbatRef: 330, MotorOutput: [2]int{1150, 1850}}}

	v, err := applyPredictor(ctx, format.Predictor1500, 10, 0, nil)
	require.NoError(t, err)
	require.Equal(t, int32(1510), v)

	v, err = applyPredictor(ctx, format.PredictorVBatRef, 5, 0, nil)
	require.NoError(t, err)
	require.Equal(t, int32(335), v)

	v, err = applyPredictor(ctx, format.PredictorMinMotor, 3, 0, nil)
	require.NoError(t, err)
	require.Equal(t, int32(1153), v)
}

func TestApplyPredictor_LastMainFrameTime(t *testing.T) {
	ctx := &Context{LastMainFrameTime: 9000}
	v, err := applyPredictor(ctx, format.PredictorLastMainFrameTime, 12, 0, nil)
	require.NoError(t, err)
	require.Equal(t, int32(9012), v)
}

func TestDecodeFrame_Tag2_3S32Group(t *testing.T) {
	def := fieldDef(
		[]string{"a", "b", "c"},
		[]format.PredictorType{format.PredictorZero, format.PredictorZero, format.PredictorZero},
		[]format.EncodingType{format.EncodingTag2_3S32, format.EncodingTag2_3S32, format.EncodingTag2_3S32},
	)
	data := []byte{0b00_01_10_11}

	ctx := &Context{Def: def, Cfg: &header.SysConfig{}}
	cur := make([]int32, 3)
	err := DecodeFrame(ctx, cur, stream.New(data))

	require.NoError(t, err)
	require.Equal(t, int32(1), cur[0])
	require.Equal(t, int32(-2), cur[1])
	require.Equal(t, int32(-1), cur[2])
}

func TestDecodeFrame_Tag8_8SVBRun(t *testing.T) {
	names := []string{"motor[0]", "motor[1]", "motor[2]"}
	preds := []format.PredictorType{format.PredictorZero, format.PredictorZero, format.PredictorZero}
	encs := []format.EncodingType{format.EncodingTag8_8SVB, format.EncodingTag8_8SVB, format.EncodingTag8_8SVB}
	def := fieldDef(names, preds, encs)

	var data []byte
	data = append(data, 0b0000_0101) // slots 0 and 2 present
	data = append(data, encodeSignedVB(10)...)
	data = append(data, encodeSignedVB(-20)...)

	ctx := &Context{Def: def, Cfg: &header.SysConfig{}}
	cur := make([]int32, 3)
	err := DecodeFrame(ctx, cur, stream.New(data))

	require.NoError(t, err)
	require.Equal(t, int32(10), cur[0])
	require.Equal(t, int32(0), cur[1])
	require.Equal(t, int32(-20), cur[2])
}

func TestDecodeFrame_UnknownEncodingFails(t *testing.T) {
	def := fieldDef(
		[]string{"x"},
		[]format.PredictorType{format.PredictorZero},
		[]format.EncodingType{format.EncodingType(99)},
	)
	ctx := &Context{Def: def, Cfg: &header.SysConfig{}}
	cur := make([]int32, 1)
	err := DecodeFrame(ctx, cur, stream.New(nil))

	require.ErrorIs(t, err, errs.ErrUnknownFrameMarker)
}
