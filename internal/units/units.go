// Package units provides the length and volume units used by the stem volume
// formulas, and the conversions between them.
package units

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

// ErrUnknownUnit is returned when a unit string is not one of the known units.
var ErrUnknownUnit = errors.New("unknown unit")

// Length unit constants
const (
	MM = "mm"
	CM = "cm"
	DM = "dm"
	M  = "m"
)

// Volume unit constants. The ln forms mean the formula returns the natural
// logarithm of the volume in the inner unit.
const (
	DM3   = "dm3"
	M3    = "m3"
	LnDM3 = "ln(dm3)"
	LnM3  = "ln(m3)"
)

// ValidLengthUnits contains all valid length units, smallest first.
var ValidLengthUnits = []string{MM, CM, DM, M}

// ValidHeightUnits contains the length units a formula may declare for tree height.
var ValidHeightUnits = []string{DM, M}

// ValidVolumeUnits contains all valid volume units.
var ValidVolumeUnits = []string{DM3, M3, LnDM3, LnM3}

// metres per unit
var lengthFactors = map[string]float64{
	MM: 0.001,
	CM: 0.01,
	DM: 0.1,
	M:  1,
}

// IsValidLength checks if the given unit is a valid length unit.
func IsValidLength(unit string) bool {
	_, ok := lengthFactors[unit]
	return ok
}

// IsValidHeight checks if the given unit is valid for a height parameter.
func IsValidHeight(unit string) bool {
	return unit == DM || unit == M
}

// IsValidVolume checks if the given unit is a valid volume unit.
func IsValidVolume(unit string) bool {
	switch unit {
	case DM3, M3, LnDM3, LnM3:
		return true
	}
	return false
}

// GetValidLengthUnitsString returns a comma-separated string of length units for error messages
func GetValidLengthUnitsString() string {
	return strings.Join(ValidLengthUnits, ", ")
}

// GetValidVolumeUnitsString returns a comma-separated string of volume units for error messages
func GetValidVolumeUnitsString() string {
	return strings.Join(ValidVolumeUnits, ", ")
}

// LengthFactor returns the multiplier that converts a length in from units
// into to units.
func LengthFactor(from, to string) (float64, error) {
	f, ok := lengthFactors[from]
	if !ok {
		return 0, fmt.Errorf("%w: %q (valid: %s)", ErrUnknownUnit, from, GetValidLengthUnitsString())
	}
	t, ok := lengthFactors[to]
	if !ok {
		return 0, fmt.Errorf("%w: %q (valid: %s)", ErrUnknownUnit, to, GetValidLengthUnitsString())
	}
	return f / t, nil
}

// ConvertLength converts value from one length unit to another.
func ConvertLength(value float64, from, to string) (float64, error) {
	factor, err := LengthFactor(from, to)
	if err != nil {
		return 0, err
	}
	return value * factor, nil
}

// ConvertVolumeToM3 converts a formula result in the given volume unit to
// cubic metres. Logarithmic units are exponentiated before scaling.
func ConvertVolumeToM3(value float64, unit string) (float64, error) {
	if !IsValidVolume(unit) {
		return 0, fmt.Errorf("%w: %q (valid: %s)", ErrUnknownUnit, unit, GetValidVolumeUnitsString())
	}

	if strings.HasPrefix(unit, "ln(") {
		value = math.Exp(value)
		unit = unit[3 : len(unit)-1]
	}

	if unit == DM3 {
		value /= 1000
	}
	return value, nil
}
