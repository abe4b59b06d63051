package header

import (
	"strings"
	"testing"

	"github.com/arloliu/bblog/errs"
	"github.com/arloliu/bblog/format"
	"github.com/arloliu/bblog/stream"
	"github.com/stretchr/testify/require"
)

func buildHeader(lines ...string) []byte {
	return []byte(strings.Join(lines, "\n") + "\n")
}

func minimalIPHeader(extra ...string) []byte {
	lines := []string{
		"H Product:Blackbox flight data recorder by Nicholas Sherlock",
		"H Data version:2",
		"H Field I name:loopIteration,time,motor[0],motor[1]",
		"H Field I signed:0,0,0,0",
		"H Field I predictor:0,0,0,0",
		"H Field I encoding:1,1,1,1",
		"H Field P predictor:1,1,1,1",
		"H Field P encoding:0,0,0,0",
	}
	lines = append(lines, extra...)
	return buildHeader(lines...)
}

func TestParse_MinimalCompleteHeader(t *testing.T) {
	s := stream.New(minimalIPHeader())
	cfg, defs, err := Parse(s)

	require.NoError(t, err)
	require.True(t, defs.I.Complete())
	require.True(t, defs.P.Complete())
	require.Equal(t, 4, defs.I.Count)
	require.Equal(t, []string{"loopIteration", "time", "motor[0]", "motor[1]"}, defs.P.Name)
	require.Equal(t, 2, cfg.DataVersion)
}

func TestParse_MissingIFrameIsHeaderIncomplete(t *testing.T) {
	s := stream.New(buildHeader("H Product:x", "H Data version:1"))
	_, _, err := Parse(s)
	require.ErrorIs(t, err, errs.ErrHeaderIncomplete)
}

func TestParse_PInheritsFromIWhenAbsent(t *testing.T) {
	lines := []string{
		"H Product:x",
		"H Field I name:loopIteration,time",
		"H Field I signed:0,0",
		"H Field I predictor:0,0",
		"H Field I encoding:1,1",
		"H Field P predictor:1,1",
		"H Field P encoding:0,0",
	}
	s := stream.New(buildHeader(lines...))
	_, defs, err := Parse(s)

	require.NoError(t, err)
	require.Equal(t, defs.I.Name, defs.P.Name)
	require.Equal(t, defs.I.Count, defs.P.Count)
}

func TestParse_StopsAtFrameMarker(t *testing.T) {
	data := append(minimalIPHeader(), 'I', 0x01, 0x02)
	s := stream.New(data)
	_, _, err := Parse(s)
	require.NoError(t, err)

	require.Equal(t, int('I'), s.ReadByte())
}

func TestParse_IIntervalAndPInterval(t *testing.T) {
	extra := []string{"H I interval:256", "H P interval:1/8"}
	s := stream.New(minimalIPHeader(extra...))
	cfg, _, err := Parse(s)

	require.NoError(t, err)
	require.Equal(t, 256, cfg.FrameIntervalI)
	require.Equal(t, 1, cfg.PNum)
	require.Equal(t, 8, cfg.PDenom)
}

func TestParse_PIntervalSingleValue(t *testing.T) {
	extra := []string{"H P interval:4"}
	s := stream.New(minimalIPHeader(extra...))
	cfg, _, err := Parse(s)

	require.NoError(t, err)
	require.Equal(t, 1, cfg.PNum)
	require.Equal(t, 4, cfg.PDenom)
}

func TestParse_CSVVectors(t *testing.T) {
	extra := []string{"H rollPID:70,10,64,0"}
	s := stream.New(minimalIPHeader(extra...))
	cfg, _, err := Parse(s)

	require.NoError(t, err)
	require.Equal(t, []int{70, 10, 64, 0}, cfg.RollPID)
}

func TestParse_VbatCellVoltage(t *testing.T) {
	extra := []string{"H vbatcellvoltage:330,350,430"}
	s := stream.New(minimalIPHeader(extra...))
	cfg, _, err := Parse(s)

	require.NoError(t, err)
	require.Equal(t, 330, cfg.VbatMinCellVoltage)
	require.Equal(t, 350, cfg.VbatWarningCellVoltage)
	require.Equal(t, 430, cfg.VbatMaxCellVoltage)
}

func TestParse_FirmwareRevisionBetaflight(t *testing.T) {
	extra := []string{"H Firmware revision:Betaflight 4.2.0"}
	s := stream.New(minimalIPHeader(extra...))
	cfg, _, err := Parse(s)

	require.NoError(t, err)
	require.Equal(t, FirmwareBetaflight, cfg.FirmwareType)
	require.Equal(t, "4.2.0", cfg.FirmwareVersion)
}

func TestParse_UnrecognizedKeyGoesToUnknownHeaders(t *testing.T) {
	extra := []string{"H some_future_key:123"}
	s := stream.New(minimalIPHeader(extra...))
	cfg, _, err := Parse(s)

	require.NoError(t, err)
	require.Contains(t, cfg.UnknownHeaders, HeaderKV{Key: "some_future_key", Value: "123"})
}

func TestParse_MinMaxThrottleSeedsMotorOutput(t *testing.T) {
	extra := []string{"H minthrottle:192", "H maxthrottle:2047"}
	s := stream.New(minimalIPHeader(extra...))
	cfg, _, err := Parse(s)

	require.NoError(t, err)
	require.Equal(t, [2]int{192, 2047}, cfg.MotorOutput)
}

func TestParse_FieldSignedPredictorEncoding(t *testing.T) {
	s := stream.New(minimalIPHeader())
	_, defs, err := Parse(s)

	require.NoError(t, err)
	require.Equal(t, []format.EncodingType{format.EncodingUnsignedVB, format.EncodingUnsignedVB, format.EncodingUnsignedVB, format.EncodingUnsignedVB}, defs.I.Encoding)
	require.Equal(t, format.PredictorPrevious, defs.P.Predictor[0])
}

func TestFirmwareAtLeast(t *testing.T) {
	require.True(t, FirmwareAtLeast(FirmwareBetaflight, "4.2.0", FirmwareBetaflight, "3.1.0"))
	require.False(t, FirmwareAtLeast(FirmwareBetaflight, "3.0.0", FirmwareBetaflight, "3.1.0"))
	require.False(t, FirmwareAtLeast(FirmwareCleanflight, "4.2.0", FirmwareBetaflight, "3.1.0"))
}

func TestDetectFirmware(t *testing.T) {
	cases := []struct {
		in       string
		wantType FirmwareType
		wantVer  string
	}{
		{"Betaflight 4.2.0", FirmwareBetaflight, "4.2.0"},
		{"Cleanflight 2.0", FirmwareCleanflight, "2.0"},
		{"INAV 2.6.1", FirmwareINAV, "2.6.1"},
		{"Raceflight 1.0.0", FirmwareRaceflight, "1.0.0"},
		{"garbage", FirmwareUnknown, ""},
	}
	for _, c := range cases {
		got, _, _, ver := detectFirmware(c.in)
		require.Equal(t, c.wantType, got, c.in)
		require.Equal(t, c.wantVer, ver, c.in)
	}
}
