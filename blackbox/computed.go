package blackbox

import (
	"fmt"

	"github.com/arloliu/bblog/cache"
	"github.com/arloliu/bblog/header"
)

// fieldIndex caches the main frame field indices the computed-field
// injectors need, looked up once per sub-log rather than once per frame.
type fieldIndex struct {
	axisP, axisI, axisD, axisF [3]int
	hasPI                      [3]bool // true iff both P and I exist for that axis
	hasD, hasF                 [3]bool // true iff D (resp. F) also exists for that axis

	rcCommand [4]int
	hasRC     [4]bool
	setpoint  [4]int
	hasSet    [4]bool
	gyroADC   [3]int
	hasGyro   [3]bool

	motor    [8]int
	hasMotor [8]bool
}

func buildFieldIndex(def *header.FieldDef) *fieldIndex {
	fi := &fieldIndex{}

	for axis := 0; axis < 3; axis++ {
		p, pOK := def.IndexOf(fmt.Sprintf("axisP[%d]", axis))
		i, iOK := def.IndexOf(fmt.Sprintf("axisI[%d]", axis))
		d, dOK := def.IndexOf(fmt.Sprintf("axisD[%d]", axis))
		f, fOK := def.IndexOf(fmt.Sprintf("axisF[%d]", axis))
		if pOK && iOK {
			fi.axisP[axis], fi.axisI[axis] = p, i
			fi.hasPI[axis] = true
			if dOK {
				fi.axisD[axis] = d
				fi.hasD[axis] = true
			}
			if fOK {
				fi.axisF[axis] = f
				fi.hasF[axis] = true
			}
		}

		if g, ok := def.IndexOf(fmt.Sprintf("gyroADC[%d]", axis)); ok {
			fi.gyroADC[axis] = g
			fi.hasGyro[axis] = true
		}
	}

	for axis := 0; axis < 4; axis++ {
		if rc, ok := def.IndexOf(fmt.Sprintf("rcCommand[%d]", axis)); ok {
			fi.rcCommand[axis] = rc
			fi.hasRC[axis] = true
		}
		if sp, ok := def.IndexOf(fmt.Sprintf("setpoint[%d]", axis)); ok {
			fi.setpoint[axis] = sp
			fi.hasSet[axis] = true
		}
	}

	for m := 0; m < 8; m++ {
		if idx, ok := def.IndexOf(fmt.Sprintf("motor[%d]", m)); ok {
			fi.motor[m] = idx
			fi.hasMotor[m] = true
		}
	}

	return fi
}

// injectComputedFields appends the derived fields to every frame in entry,
// in the fixed order PID sum, scaled RC command, PID error, motor legacy
// copy, skipping any family whose source fields are absent.
func injectComputedFields(cfg *header.SysConfig, fi *fieldIndex, entry *cache.Entry, motorCount int) {
	betaflight4 := header.FirmwareAtLeast(cfg.FirmwareType, cfg.FirmwareVersion, header.FirmwareBetaflight, "4.0.0")

	scaledRC := make([]float64, 4)

	for k, f := range entry.Frames {
		f = appendPIDSum(cfg, fi, f)

		for axis := 0; axis < 4; axis++ {
			scaledRC[axis] = 0
		}
		f, scaledRC = appendScaledRC(cfg, fi, f, betaflight4, scaledRC)
		f = appendPIDError(cfg, fi, f, scaledRC)
		f = appendMotorLegacy(fi, f, motorCount)

		entry.Frames[k] = f
	}
}

func appendPIDSum(cfg *header.SysConfig, fi *fieldIndex, f []int32) []int32 {
	for axis := 0; axis < 3; axis++ {
		if !fi.hasPI[axis] {
			continue
		}
		sum := f[fi.axisP[axis]] + f[fi.axisI[axis]]
		if fi.hasD[axis] {
			sum += f[fi.axisD[axis]]
		}
		if fi.hasF[axis] {
			sum += f[fi.axisF[axis]]
		}

		limit := cfg.PidSumLimit
		if axis == 2 && cfg.PidSumLimitYaw > 0 {
			limit = cfg.PidSumLimitYaw
		}
		if limit > 0 {
			sum = clampI32(sum, -int32(limit), int32(limit))
		}

		f = append(f, sum)
	}
	return f
}

func appendScaledRC(cfg *header.SysConfig, fi *fieldIndex, f []int32, betaflight4 bool, out []float64) ([]int32, []float64) {
	for axis := 0; axis < 4; axis++ {
		var v float64
		switch {
		case betaflight4 && fi.hasSet[axis]:
			v = float64(f[fi.setpoint[axis]])
			if axis == 3 {
				v /= 10
			}
		case fi.hasRC[axis]:
			if axis == 3 {
				v = float64(f[fi.rcCommand[axis]])
			} else {
				v = rcCommandRawToDegPerSec(cfg, f[fi.rcCommand[axis]], axis)
			}
		default:
			continue
		}
		out[axis] = v
		f = append(f, int32(v))
	}
	return f, out
}

func appendPIDError(cfg *header.SysConfig, fi *fieldIndex, f []int32, scaledRC []float64) []int32 {
	for axis := 0; axis < 3; axis++ {
		if !fi.hasGyro[axis] {
			continue
		}
		gyroRate := gyroRawToDegPerSec(cfg.GyroScale, f[fi.gyroADC[axis]])
		errVal := scaledRC[axis] - gyroRate
		f = append(f, int32(errVal))
	}
	return f
}

func appendMotorLegacy(fi *fieldIndex, f []int32, motorCount int) []int32 {
	for m := 0; m < motorCount && m < 8; m++ {
		if !fi.hasMotor[m] {
			continue
		}
		f = append(f, f[fi.motor[m]])
	}
	return f
}
