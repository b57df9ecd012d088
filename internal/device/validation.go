package device

import (
	"fmt"
	"math"
	"regexp"
	"strings"

	"github.com/google/uuid"

	"github.com/nerrad567/gray-logic-zigbee/internal/capability"
)

const (
	maxNameLength = 100
	maxIDLength   = 64

	// maxCalibrationRatio bounds the per-device calibration factor.
	maxCalibrationRatio = 100
)

var ieeePattern = regexp.MustCompile(`^0x[0-9a-f]{16}$`)

// ValidateDevice checks a device before it is persisted.
func ValidateDevice(d *Device) error {
	var errs []string

	if !validID(d.ID) {
		errs = append(errs, fmt.Sprintf("id %q must be 1-%d characters without '/', '+' or '#'", d.ID, maxIDLength))
	}
	if name := strings.TrimSpace(d.Name); name == "" || len(name) > maxNameLength {
		errs = append(errs, fmt.Sprintf("name must be 1-%d characters", maxNameLength))
	}
	if d.IEEEAddress != "" && !ieeePattern.MatchString(d.IEEEAddress) {
		errs = append(errs, fmt.Sprintf("ieee_address %q must be 0x followed by 16 lower-case hex digits", d.IEEEAddress))
	}
	if !capability.IsValidClass(d.Class) {
		errs = append(errs, fmt.Sprintf("class %q is not recognised", d.Class))
	}
	for _, c := range d.Capabilities {
		if err := capability.Validate(c); err != nil {
			errs = append(errs, err.Error())
		}
	}
	if d.GangCount < 1 {
		errs = append(errs, "gang_count must be at least 1")
	}
	if err := ValidateSettings(d.Settings); err != nil {
		errs = append(errs, err.Error())
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidDevice, strings.Join(errs, "; "))
	}
	return nil
}

// ValidateSettings checks the configurable settings range.
func ValidateSettings(s Settings) error {
	r := s.CalibrationRatio
	if math.IsNaN(r) || math.IsInf(r, 0) || r < 0 || r > maxCalibrationRatio {
		return fmt.Errorf("%w: calibration_ratio %v must be within [0, %d]", ErrInvalidSettings, r, maxCalibrationRatio)
	}
	return nil
}

// NormaliseIEEE lower-cases an IEEE address and adds the 0x prefix.
func NormaliseIEEE(addr string) string {
	addr = strings.ToLower(strings.TrimSpace(addr))
	if addr == "" || strings.HasPrefix(addr, "0x") {
		return addr
	}
	return "0x" + addr
}

// GenerateID returns a new device ID for devices registered without a
// transport identifier.
func GenerateID() string {
	return uuid.New().String()
}

func validID(id string) bool {
	return id != "" && len(id) <= maxIDLength && !strings.ContainsAny(id, "/+#")
}
