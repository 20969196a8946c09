package mlx90614

import (
	"math"

	"github.com/spf13/cast"
)

const (
	kelvinPerCount  = 0.02
	kelvinOffset    = 273.15
	emissivityScale = 65535
)

// RawToCelsius converts a temperature register value (0.02 K per count) to degrees Celsius.
func RawToCelsius(raw uint16) float64 {
	return float64(raw)*kelvinPerCount - kelvinOffset
}

// CelsiusToRaw converts degrees Celsius to the nearest temperature register value. Results
// outside the register range saturate at 0 and 0xFFFF.
func CelsiusToRaw(celsius float64) uint16 {
	raw := math.Round((celsius + kelvinOffset) / kelvinPerCount)
	switch {
	case raw <= 0 || math.IsNaN(raw):
		return 0
	case raw >= math.MaxUint16:
		return math.MaxUint16
	}
	return uint16(raw)
}

// EmissivityToRaw converts an emissivity in [0, 1] to the EEPROM register value.
func EmissivityToRaw(emissivity float64) (uint16, error) {
	if math.IsNaN(emissivity) || emissivity < 0 || emissivity > 1 {
		return 0, &InvalidArgumentError{Name: "emissivity", Value: emissivity, Want: "in [0.0, 1.0]"}
	}
	return uint16(math.Round(emissivity * emissivityScale)), nil
}

// RawToEmissivity converts the EEPROM emissivity register value to a fraction.
func RawToEmissivity(raw uint16) float64 {
	return float64(raw) / emissivityScale
}

// ParseEmissivity reads an emissivity argument as it arrives in a DoCommand map: a float, an
// integer or a numeric string. Anything else, nil and bools included, is an
// InvalidArgumentError. The range is checked by EmissivityToRaw.
func ParseEmissivity(arg interface{}) (float64, error) {
	switch v := arg.(type) {
	case float64, float32, int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return cast.ToFloat64E(v)
	case string:
		emissivity, err := cast.ToFloat64E(v)
		if err != nil {
			return 0, &InvalidArgumentError{Name: "emissivity", Value: v, Want: "a number"}
		}
		return emissivity, nil
	default:
		return 0, &InvalidArgumentError{Name: "emissivity", Value: arg, Want: "a number"}
	}
}
