package header

import (
	"regexp"
	"strconv"
	"strings"
)

// FirmwareType identifies which flight-controller firmware family wrote a
// sub-log's header. Numeric values match the wire convention used by the
// firmwares themselves (visible in logs' "Firmware type" field), so a
// golden-fixture comparison like "firmwareType == 3" means Betaflight.
type FirmwareType int

const (
	FirmwareUnknown    FirmwareType = 0
	FirmwareBaseflight FirmwareType = 1
	FirmwareCleanflight FirmwareType = 2
	FirmwareBetaflight FirmwareType = 3
	FirmwareINAV       FirmwareType = 4
	FirmwareRaceflight FirmwareType = 5
)

func (t FirmwareType) String() string {
	switch t {
	case FirmwareBaseflight:
		return "Baseflight"
	case FirmwareCleanflight:
		return "Cleanflight"
	case FirmwareBetaflight:
		return "Betaflight"
	case FirmwareINAV:
		return "INAV"
	case FirmwareRaceflight:
		return "Raceflight"
	default:
		return "Unknown"
	}
}

var firmwareRevisionRE = regexp.MustCompile(`(Betaflight|Cleanflight|Raceflight|INAV)\s+(\d+)\.(\d+)(?:\.(\d+))?`)

// detectFirmware parses a "Firmware revision" header value of the form
// "Betaflight 4.2.0" into its type, name, patch level, and dotted version
// string. An unrecognized value leaves the type Unknown and the version
// empty.
func detectFirmware(value string) (FirmwareType, string, int, string) {
	m := firmwareRevisionRE.FindStringSubmatch(value)
	if m == nil {
		return FirmwareUnknown, value, 0, ""
	}

	var t FirmwareType
	switch m[1] {
	case "Betaflight":
		t = FirmwareBetaflight
	case "Cleanflight":
		t = FirmwareCleanflight
	case "Raceflight":
		t = FirmwareRaceflight
	case "INAV":
		t = FirmwareINAV
	}

	patch, _ := strconv.Atoi(m[4])
	version := m[2] + "." + m[3]
	if m[4] != "" {
		version += "." + m[4]
	}

	return t, m[1], patch, version
}

// FirmwareAtLeast reports whether a sub-log's detected firmware matches
// wantType and its version is >= want (dotted major.minor[.patch]).
// Different firmware families are never comparable to each other: this
// predicate is how spec.md's scattered version gates ("Betaflight >= 3.1.0
// or Cleanflight >= 2.0.0") get expressed as one call per gate instead of
// inline parsing at every read site.
func FirmwareAtLeast(gotType FirmwareType, gotVersion string, wantType FirmwareType, want string) bool {
	if gotType != wantType || gotVersion == "" {
		return false
	}
	return compareVersions(gotVersion, want) >= 0
}

// compareVersions compares two "major.minor[.patch]" strings numerically,
// treating a missing component as 0.
func compareVersions(a, b string) int {
	pa := versionParts(a)
	pb := versionParts(b)
	for i := 0; i < 3; i++ {
		if pa[i] != pb[i] {
			if pa[i] < pb[i] {
				return -1
			}
			return 1
		}
	}
	return 0
}

func versionParts(v string) [3]int {
	var out [3]int
	parts := strings.SplitN(v, ".", 3)
	for i := 0; i < len(parts) && i < 3; i++ {
		n, err := strconv.Atoi(parts[i])
		if err == nil {
			out[i] = n
		}
	}
	return out
}
