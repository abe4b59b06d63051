package frame

import "github.com/arloliu/bblog/header"

// isLogged reports whether main-loop iteration k is one the sampling rate
// actually records, per the I/P interval configuration.
func isLogged(cfg *header.SysConfig, k int32) bool {
	interval := int32(cfg.FrameIntervalI)
	num := int32(cfg.PNum)
	denom := int32(cfg.PDenom)
	if interval <= 0 {
		interval = 1
	}
	if denom <= 0 {
		denom = 1
	}
	return floorMod(floorMod(k, interval)+num-1, denom) < num
}

func floorMod(a, b int32) int32 {
	m := a % b
	if m < 0 {
		m += b
	}
	return m
}

// countSkipped returns how many iterations between lastIteration (exclusive)
// and the next logged iteration were intentionally dropped by the sampling
// rate. A negative lastIteration (no main frame parsed yet) skips nothing.
func countSkipped(cfg *header.SysConfig, lastIteration int32) int32 {
	if lastIteration < 0 {
		return 0
	}

	var skipped int32
	k := lastIteration + 1
	for !isLogged(cfg, k) {
		skipped++
		k++
		if skipped > 1_000_000 {
			break
		}
	}
	return skipped
}
