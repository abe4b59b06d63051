package blackbox

import (
	"math"

	"github.com/arloliu/bblog/header"
)

const degPerRad = math.Pi / 180

// gyroRawToDegPerSec converts a raw gyroADC sample to degrees/second using
// the header's gyro scale (already normalized to rad/LSB by header.Parse
// for Betaflight/Cleanflight/INAV firmwares).
func gyroRawToDegPerSec(gyroScale float64, raw int32) float64 {
	return (gyroScale * 1e6 / degPerRad) * float64(raw)
}

// rcCommandRawToDegPerSec reconstructs the commanded rotation rate for one
// axis from its raw rcCommand value, following the Betaflight/Cleanflight
// rate curve. axis is 0 (roll), 1 (pitch), or 2 (yaw).
func rcCommandRawToDegPerSec(cfg *header.SysConfig, rc int32, axis int) float64 {
	f := float64(rc) / 500
	af := math.Abs(f)

	if expoAt(cfg, axis) != 0 {
		e := float64(expoAt(cfg, axis)) / 100
		f = f*af*af*af*e + f*(1-e)
	}

	r := rcRateAt(cfg, axis) / 100
	if r > 2 {
		r += 14.54 * (r - 2)
	}

	angleRate := 200 * r * f

	if rate := rateAt(cfg, axis); rate != 0 {
		denom := clampF(1-af*float64(rate)/100, 0.01, 1)
		angleRate /= denom
	}

	limit, hasLimit := rateLimitAt(cfg, axis)
	if cfg.PidController == 0 || !hasLimit {
		v := clampF(angleRate*4.1, -8190, 8190)
		return float64(int32(v) >> 2)
	}

	return clampF(angleRate, -float64(limit), float64(limit))
}

func expoAt(cfg *header.SysConfig, axis int) int {
	if axis < len(cfg.RcExpo) {
		return cfg.RcExpo[axis]
	}
	return 0
}

func rateAt(cfg *header.SysConfig, axis int) int {
	if axis < len(cfg.Rates) {
		return cfg.Rates[axis]
	}
	return 0
}

func rateLimitAt(cfg *header.SysConfig, axis int) (int, bool) {
	if axis < len(cfg.RateLimits) {
		return cfg.RateLimits[axis], true
	}
	return 0, false
}

func rcRateAt(cfg *header.SysConfig, axis int) float64 {
	if axis < len(cfg.RcRates) && cfg.RcRates[axis] != 0 {
		return float64(cfg.RcRates[axis])
	}
	return float64(cfg.RcRate)
}

func clampF(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clampI32(v, lo, hi int32) int32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
