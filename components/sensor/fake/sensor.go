// Package fake implements a fake MLX90614 sensor that answers from memory, for trying the
// tooling without hardware.
package fake

import (
	"context"
	"sync"

	"github.com/pkg/errors"

	"go.viam.com/mlx90614/components/sensor"
	"go.viam.com/mlx90614/components/sensor/mlx90614"
)

// NewSensor returns a fake sensor reporting fixed temperatures and a factory emissivity of 1.0.
func NewSensor() *Sensor {
	return &Sensor{
		Ambient:    mlx90614.RawToCelsius(0x3A34),
		Object:     mlx90614.RawToCelsius(0x3AD2),
		emissivity: 1.0,
	}
}

// Sensor is a fake Sensor that mirrors the readings and DoCommand verbs of the real driver.
type Sensor struct {
	mu         sync.Mutex
	Ambient    float64
	Object     float64
	emissivity float64
	asleep     bool
}

var _ sensor.Sensor = (*Sensor)(nil)

var errAsleep = errors.New("fake sensor is asleep")

// Readings always returns the set values.
func (s *Sensor) Readings(ctx context.Context, extra map[string]interface{}) (map[string]interface{}, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.asleep {
		return nil, errAsleep
	}
	return map[string]interface{}{
		mlx90614.AmbientReadingKey: s.Ambient,
		mlx90614.ObjectReadingKey:  s.Object,
	}, nil
}

// DoCommand handles the same verbs as the real sensor.
func (s *Sensor) DoCommand(ctx context.Context, cmd map[string]interface{}) (map[string]interface{}, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.asleep {
		return nil, errAsleep
	}

	if raw, ok := cmd[mlx90614.ConfigureEmissivityKey]; ok {
		emissivity, err := mlx90614.ParseEmissivity(raw)
		if err != nil {
			return nil, err
		}
		if _, err := mlx90614.EmissivityToRaw(emissivity); err != nil {
			return nil, err
		}
		s.emissivity = emissivity
		return map[string]interface{}{mlx90614.EmissivityKey: emissivity}, nil
	}
	if _, ok := cmd[mlx90614.EmissivityKey]; ok {
		return map[string]interface{}{mlx90614.EmissivityKey: s.emissivity}, nil
	}
	if _, ok := cmd[mlx90614.FlagsKey]; ok {
		return map[string]interface{}{
			mlx90614.FlagsKey: uint16(0x0010),
			"ready":           true,
			"eeprom_busy":     false,
			"eeprom_dead":     false,
		}, nil
	}
	if _, ok := cmd[mlx90614.IDKey]; ok {
		return map[string]interface{}{mlx90614.IDKey: "0000000000000000"}, nil
	}
	if _, ok := cmd[mlx90614.RegistersKey]; ok {
		return map[string]interface{}{
			mlx90614.CommandAmbientTemperature.String(): mlx90614.CelsiusToRaw(s.Ambient),
			mlx90614.CommandObjectTemperature1.String(): mlx90614.CelsiusToRaw(s.Object),
			mlx90614.CommandEmissivity.String():         emissivityRaw(s.emissivity),
			mlx90614.CommandReadFlags.String():          uint16(0x0010),
		}, nil
	}
	if _, ok := cmd[mlx90614.SleepKey]; ok {
		s.asleep = true
		return map[string]interface{}{mlx90614.SleepKey: true}, nil
	}
	return nil, errors.Errorf("unknown command %v", cmd)
}

// Close does nothing.
func (s *Sensor) Close(ctx context.Context) error {
	return nil
}

func emissivityRaw(emissivity float64) uint16 {
	raw, err := mlx90614.EmissivityToRaw(emissivity)
	if err != nil {
		return 0
	}
	return raw
}
