// Package header parses the textual "H key:value" lines at the start of a
// sub-log into a typed system-configuration record and one field definition
// per frame type.
package header

import (
	"math"
	"strconv"
	"strings"

	"github.com/arloliu/bblog/errs"
	"github.com/arloliu/bblog/format"
	"github.com/arloliu/bblog/stream"
)

// HeaderKV is one header line that didn't match any recognized key.
type HeaderKV struct {
	Key   string
	Value string
}

// FieldDef is the per-frame-type field schema populated by "Field <T> ..."
// header lines.
type FieldDef struct {
	Name        []string
	NameToIndex map[string]int
	Signed      []bool
	Predictor   []format.PredictorType
	Encoding    []format.EncodingType
	Count       int
}

// Complete reports whether this definition has a usable, fully populated
// field schema.
func (d *FieldDef) Complete() bool {
	return d != nil && d.Count > 0 && len(d.Encoding) == d.Count && len(d.Predictor) == d.Count
}

// IndexOf returns the position of name in this definition, or -1 and false
// if it isn't present. Unlike a zero-value check on NameToIndex, this
// distinguishes "index 0" from "absent".
func (d *FieldDef) IndexOf(name string) (int, bool) {
	if d == nil {
		return -1, false
	}
	i, ok := d.NameToIndex[name]
	return i, ok
}

// setNames records the ordered field name list and (re)builds NameToIndex
// and the Signed slot sizing, mirroring what the reference parser does when
// a "Field <T> name" line is seen.
func (d *FieldDef) setNames(names []string) {
	d.Name = names
	d.Count = len(names)
	d.NameToIndex = make(map[string]int, len(names))
	for i, n := range names {
		d.NameToIndex[n] = i
	}
	if len(d.Signed) < d.Count {
		d.Signed = make([]bool, d.Count)
	}
}

// FrameDefs holds the field schema for each of the four frame types. P
// inherits Name/NameToIndex/Signed from I, per the shared main-frame schema.
type FrameDefs struct {
	I *FieldDef
	P *FieldDef
	S *FieldDef
	E *FieldDef
}

func newFrameDefs() *FrameDefs {
	return &FrameDefs{I: &FieldDef{}, P: &FieldDef{}, S: &FieldDef{}, E: &FieldDef{}}
}

func (fd *FrameDefs) byType(t byte) *FieldDef {
	switch t {
	case 'I':
		return fd.I
	case 'P':
		return fd.P
	case 'S':
		return fd.S
	case 'E':
		return fd.E
	default:
		return nil
	}
}

// fieldNameAliases translates legacy field names to their current form.
var fieldNameAliases = map[string]string{
	"gyroData":  "gyroADC",
	"gyroDataX": "gyroADCX",
	"gyroDataY": "gyroADCY",
	"gyroDataZ": "gyroADCZ",
}

// headerKeyAliases normalizes historical header key spellings before
// dispatch.
var headerKeyAliases = map[string]string{
	"dterm_lowpass_hz":     "dterm_lpf_hz",
	"dterm_lowpass_dyn_hz": "dterm_lpf_dyn_hz",
	"acc_hardware":         "acc_sensor",
}

// SysConfig is the typed system-configuration record built from header
// lines, seeded with the defaults the reference decoder assumes when a key
// is never overridden.
type SysConfig struct {
	FrameIntervalI int // "I interval", minimum 1.
	PNum           int // "P interval" numerator.
	PDenom         int // "P interval" denominator.

	LoopTime         int
	PidProcessDenom  int
	DebugMode        int
	Features         int
	MotorPwmProtocol string
	PidController    int
	DataVersion      int

	Rates      []int
	RollPID    []int
	PitchPID   []int
	YawPID     []int
	DMin       []int
	RcExpo     []int
	RateLimits []int

	RcRate             int
	RcRates            []int
	MotorOutput        [2]int
	DtermLpfHz         int
	DtermLpfDynHz      []int
	DshotBidir         int
	RcSmoothingCutoffs []int

	PidSumLimit    int
	PidSumLimitYaw int

	VbatRef                int
	VbatMinCellVoltage     int
	VbatWarningCellVoltage int
	VbatMaxCellVoltage     int

	YawRateAccelLimit float64
	RateAccelLimit    float64

	MinThrottle int
	MaxThrottle int

	GyroScale float64

	DigitalIdleOffset int
	DtermCutHz        int

	FirmwareType    FirmwareType
	Firmware        string
	FirmwarePatch   int
	FirmwareVersion string

	UnknownHeaders []HeaderKV
}

// defaultSysConfig mirrors the reference decoder's seed values, overwritten
// progressively as header lines are parsed.
func defaultSysConfig() *SysConfig {
	return &SysConfig{
		FrameIntervalI: 32,
		PNum:           1,
		PDenom:         1,
		RcRate:         90,
		MotorOutput:    [2]int{1150, 1850},
		GyroScale:      1e-4,
	}
}

// Parse reads header lines from s until EOF or a non-"H " byte is seen
// (the first frame marker), then validates the completion gate.
func Parse(s *stream.ByteStream) (*SysConfig, *FrameDefs, error) {
	cfg := defaultSysConfig()
	defs := newFrameDefs()

	for {
		marker := s.ReadByte()
		if marker < 0 {
			break
		}
		if marker != 'H' {
			s.UnreadChar()
			break
		}

		// Consume the separating space; tolerate its absence.
		if s.PeekChar() == ' ' {
			s.ReadByte()
		}

		line := s.ReadLine()
		key, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}

		applyHeaderLine(cfg, defs, key, value)
	}

	if !defs.I.Complete() {
		return cfg, defs, errs.ErrHeaderIncomplete
	}
	if defs.P.Count == 0 {
		defs.P.Name = defs.I.Name
		defs.P.NameToIndex = defs.I.NameToIndex
		defs.P.Signed = defs.I.Signed
		defs.P.Count = defs.I.Count
	}
	if !defs.P.Complete() {
		return cfg, defs, errs.ErrHeaderIncomplete
	}

	return cfg, defs, nil
}

func applyHeaderLine(cfg *SysConfig, defs *FrameDefs, key, value string) {
	if fieldKey, sub, ok := parseFieldKey(key); ok {
		applyFieldLine(defs.byType(fieldKey), sub, value)
		return
	}

	if alias, ok := headerKeyAliases[key]; ok {
		key = alias
	}

	switch key {
	case "I interval":
		if n, err := strconv.Atoi(value); err == nil && n >= 1 {
			cfg.FrameIntervalI = n
		}
	case "P interval":
		if a, b, ok := strings.Cut(value, "/"); ok {
			cfg.PNum = atoiOr(a, cfg.PNum)
			cfg.PDenom = atoiOr(b, cfg.PDenom)
		} else {
			cfg.PNum = 1
			cfg.PDenom = atoiOr(value, cfg.PDenom)
		}
	case "Data version":
		cfg.DataVersion = atoiOr(value, cfg.DataVersion)
	case "looptime":
		cfg.LoopTime = atoiOr(value, cfg.LoopTime)
	case "pid_process_denom":
		cfg.PidProcessDenom = atoiOr(value, cfg.PidProcessDenom)
	case "debug_mode":
		cfg.DebugMode = atoiOr(value, cfg.DebugMode)
	case "features":
		cfg.Features = atoiOr(value, cfg.Features)
	case "motor_pwm_protocol":
		cfg.MotorPwmProtocol = value
	case "pidController":
		cfg.PidController = atoiOr(value, cfg.PidController)
	case "rates":
		cfg.Rates = parseCSVInts(value)
	case "rollPID":
		cfg.RollPID = parseCSVInts(value)
	case "pitchPID":
		cfg.PitchPID = parseCSVInts(value)
	case "yawPID":
		cfg.YawPID = parseCSVInts(value)
	case "d_min":
		cfg.DMin = parseCSVInts(value)
	case "rc_expo":
		cfg.RcExpo = parseCSVInts(value)
	case "rate_limits":
		cfg.RateLimits = parseCSVInts(value)
	case "rc_rates":
		cfg.RcRates = parseCSVInts(value)
		if len(cfg.RcRates) > 0 {
			cfg.RcRate = cfg.RcRates[0]
		}
	case "rc_smoothing_cutoffs":
		cfg.RcSmoothingCutoffs = parseCSVInts(value)
	case "dterm_lpf_hz":
		cfg.DtermLpfHz = atoiOr(value, cfg.DtermLpfHz)
	case "dterm_lpf_dyn_hz":
		cfg.DtermLpfDynHz = parseCSVInts(value)
	case "dshot_bidir":
		cfg.DshotBidir = atoiOr(value, cfg.DshotBidir)
	case "pidSumLimit":
		cfg.PidSumLimit = atoiOr(value, cfg.PidSumLimit)
	case "pidSumLimitYaw":
		cfg.PidSumLimitYaw = atoiOr(value, cfg.PidSumLimitYaw)
	case "vbatref":
		cfg.VbatRef = atoiOr(value, cfg.VbatRef)
	case "vbatcellvoltage":
		v := parseCSVInts(value)
		if len(v) >= 3 {
			cfg.VbatMinCellVoltage = v[0]
			cfg.VbatWarningCellVoltage = v[1]
			cfg.VbatMaxCellVoltage = v[2]
		}
	case "yawRateAccelLimit":
		cfg.YawRateAccelLimit = scaleIfAtLeastRateGate(cfg, atofOr(value, 0))
	case "rateAccelLimit":
		cfg.RateAccelLimit = scaleIfAtLeastRateGate(cfg, atofOr(value, 0))
	case "minthrottle":
		cfg.MinThrottle = atoiOr(value, cfg.MinThrottle)
		cfg.MotorOutput[0] = cfg.MinThrottle
	case "maxthrottle":
		cfg.MaxThrottle = atoiOr(value, cfg.MaxThrottle)
		cfg.MotorOutput[1] = cfg.MaxThrottle
	case "motorOutput":
		v := parseCSVInts(value)
		if len(v) >= 2 {
			cfg.MotorOutput[0] = v[0]
			cfg.MotorOutput[1] = v[1]
		}
	case "gyro.scale", "gyro_scale":
		bits := parseHexUint32(value)
		scale := float64(math.Float32frombits(bits))
		switch cfg.FirmwareType {
		case FirmwareBetaflight, FirmwareCleanflight, FirmwareINAV:
			scale *= math.Pi / 180 * 1e-6
		}
		cfg.GyroScale = scale
	case "digitalIdleOffset":
		cfg.DigitalIdleOffset = atoiOr(value, cfg.DigitalIdleOffset)
	case "dterm_cut_hz":
		cfg.DtermCutHz = atoiOr(value, cfg.DtermCutHz)
	case "Firmware revision":
		cfg.FirmwareType, cfg.Firmware, cfg.FirmwarePatch, cfg.FirmwareVersion = detectFirmware(value)
	default:
		cfg.UnknownHeaders = append(cfg.UnknownHeaders, HeaderKV{Key: key, Value: value})
	}
}

// scaleIfAtLeastRateGate divides by 1000 when the firmware is at or after
// the version gate named in spec.md §4.2 for yawRateAccelLimit and
// rateAccelLimit (Betaflight 3.1.0 or Cleanflight 2.0.0), and leaves the
// value as-is otherwise. Firmware detection must already have run: "Firmware
// revision" is expected earlier in the header than these keys in practice,
// and if it hasn't, the value is left unscaled.
func scaleIfAtLeastRateGate(cfg *SysConfig, v float64) float64 {
	if FirmwareAtLeast(cfg.FirmwareType, cfg.FirmwareVersion, FirmwareBetaflight, "3.1.0") ||
		FirmwareAtLeast(cfg.FirmwareType, cfg.FirmwareVersion, FirmwareCleanflight, "2.0.0") {
		return v / 1000
	}
	return v
}

func parseFieldKey(key string) (frameType byte, sub string, ok bool) {
	const prefix = "Field "
	if !strings.HasPrefix(key, prefix) {
		return 0, "", false
	}
	rest := key[len(prefix):]
	sp := strings.IndexByte(rest, ' ')
	if sp < 0 || sp != 1 {
		return 0, "", false
	}
	t := rest[0]
	if t != 'I' && t != 'P' && t != 'S' && t != 'E' {
		return 0, "", false
	}
	return t, rest[sp+1:], true
}

func applyFieldLine(def *FieldDef, sub, value string) {
	if def == nil {
		return
	}
	switch sub {
	case "name":
		names := strings.Split(value, ",")
		for i, n := range names {
			if alias, ok := fieldNameAliases[n]; ok {
				names[i] = alias
			}
		}
		def.setNames(names)
	case "signed":
		flags := parseCSVInts(value)
		def.Signed = make([]bool, len(flags))
		for i, f := range flags {
			def.Signed[i] = f != 0
		}
	case "predictor":
		codes := parseCSVInts(value)
		def.Predictor = make([]format.PredictorType, len(codes))
		for i, c := range codes {
			def.Predictor[i] = format.PredictorType(c)
		}
	case "encoding":
		codes := parseCSVInts(value)
		def.Encoding = make([]format.EncodingType, len(codes))
		for i, c := range codes {
			def.Encoding[i] = format.EncodingType(c)
		}
	}
}

// parseCSVInts splits a comma-separated vector and coerces each element: an
// element containing '.' is parsed as a float and truncated to an integer,
// anything else is parsed as an integer, falling back to 0 for anything
// else (the reference parser keeps the literal string; this decoder has no
// use for per-element strings once coerced, since every CSV vector feeds a
// numeric config field).
func parseCSVInts(value string) []int {
	parts := strings.Split(value, ",")
	out := make([]int, len(parts))
	for i, p := range parts {
		p = strings.TrimSpace(p)
		if strings.Contains(p, ".") {
			f, err := strconv.ParseFloat(p, 64)
			if err == nil {
				out[i] = int(f)
				continue
			}
		}
		out[i] = atoiOr(p, 0)
	}
	return out
}

func atoiOr(s string, fallback int) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return fallback
	}
	return n
}

func atofOr(s string, fallback float64) float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return fallback
	}
	return f
}

func parseHexUint32(s string) uint32 {
	s = strings.TrimPrefix(strings.TrimSpace(s), "0x")
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return 0
	}
	return uint32(v)
}
