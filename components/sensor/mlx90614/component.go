package mlx90614

import (
	"context"
	"fmt"
	"sync"

	"github.com/go-viper/mapstructure/v2"
	"github.com/pkg/errors"
	"go.viam.com/utils"

	"go.viam.com/mlx90614/components/board/genericlinux/buses"
	"go.viam.com/mlx90614/components/sensor"
	"go.viam.com/mlx90614/logging"
)

// DoCommand verbs.
const (
	ConfigureEmissivityKey = "configure_emissivity"
	EmissivityKey          = "emissivity"
	FlagsKey               = "flags"
	IDKey                  = "id"
	RegistersKey           = "registers"
	SleepKey               = "sleep"
)

// Readings keys.
const (
	AmbientReadingKey = "ambient_celsius"
	ObjectReadingKey  = "object_celsius"
	Object2ReadingKey = "object_2_celsius"
)

// Config is used for converting config attributes.
type Config struct {
	I2CBus  string `json:"i2c_bus"`
	I2CAddr int    `json:"i2c_addr,omitempty"`
	// Emissivity, when set, is written to the chip at construction.
	Emissivity  *float64 `json:"emissivity,omitempty"`
	ReadObject2 bool     `json:"read_object_2,omitempty"`
}

// Validate ensures all parts of the config are valid, and then returns the list of things we
// depend on.
func (conf *Config) Validate(path string) ([]string, error) {
	if conf.I2CBus == "" {
		return nil, utils.NewConfigValidationFieldRequiredError(path, "i2c_bus")
	}
	if conf.I2CAddr < 0 || conf.I2CAddr > 0x7F {
		return nil, utils.NewConfigValidationError(path,
			errors.Errorf("i2c_addr 0x%X is not a 7-bit address", conf.I2CAddr))
	}
	if conf.Emissivity != nil {
		if _, err := EmissivityToRaw(*conf.Emissivity); err != nil {
			return nil, utils.NewConfigValidationError(path, err)
		}
	}
	return []string{conf.I2CBus}, nil
}

// Address returns the configured address or DefaultAddress.
func (conf *Config) Address() byte {
	if conf.I2CAddr == 0 {
		return DefaultAddress
	}
	return byte(conf.I2CAddr)
}

// ConfigFromAttributes decodes and validates a generic attribute map, as read from a JSON
// config file. Numeric fields also accept strings such as "0x5B".
func ConfigFromAttributes(attributes map[string]interface{}) (*Config, error) {
	var conf Config
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "json",
		Result:           &conf,
		ErrorUnused:      true,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return nil, err
	}
	if err := decoder.Decode(attributes); err != nil {
		return nil, errors.Wrap(err, "failed to decode mlx90614 attributes")
	}
	if _, err := conf.Validate("mlx90614"); err != nil {
		return nil, err
	}
	return &conf, nil
}

// NewSensor returns a sensor backed by the chip described by conf on bus. If conf sets an
// emissivity it is written before returning.
func NewSensor(
	ctx context.Context,
	bus buses.I2C,
	conf *Config,
	logger logging.Logger,
	opts ...Option,
) (sensor.Sensor, error) {
	if _, err := conf.Validate("mlx90614"); err != nil {
		return nil, err
	}
	if conf.I2CAddr == 0 {
		logger.Debugf("using default i2c address 0x%02X", DefaultAddress)
	}

	dev, err := NewDevice(bus, conf.Address(), append([]Option{WithLogger(logger)}, opts...)...)
	if err != nil {
		return nil, err
	}
	s := &mlxSensor{dev: dev, readObject2: conf.ReadObject2, logger: logger}

	if conf.Emissivity != nil {
		if err := dev.ConfigureEmissivity(ctx, *conf.Emissivity); err != nil {
			return nil, errors.Wrap(err, "failed to configure emissivity")
		}
	}
	return s, nil
}

// mlxSensor serializes access to the device, since sensors are polled from several goroutines.
type mlxSensor struct {
	mu          sync.Mutex
	dev         *Device
	readObject2 bool
	logger      logging.Logger
}

// Readings returns the ambient and object temperatures in degrees Celsius.
func (s *mlxSensor) Readings(ctx context.Context, extra map[string]interface{}) (map[string]interface{}, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ambient, err := s.dev.ReadAmbientTemperature(ctx)
	if err != nil {
		return nil, err
	}
	object, err := s.dev.ReadObjectTemperature(ctx)
	if err != nil {
		return nil, err
	}
	readings := map[string]interface{}{
		AmbientReadingKey: ambient,
		ObjectReadingKey:  object,
	}
	if s.readObject2 {
		object2, err := s.dev.ReadObject2Temperature(ctx)
		if err != nil {
			return nil, err
		}
		readings[Object2ReadingKey] = object2
	}
	return readings, nil
}

// DoCommand handles the operations that do not fit Readings. Exactly one verb is expected.
func (s *mlxSensor) DoCommand(ctx context.Context, cmd map[string]interface{}) (map[string]interface{}, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(cmd) != 1 {
		return nil, errors.Errorf("expected exactly one command, got %d", len(cmd))
	}

	var verb string
	var arg interface{}
	for k, v := range cmd {
		verb, arg = k, v
		break
	}

	switch verb {
	case ConfigureEmissivityKey:
		emissivity, err := ParseEmissivity(arg)
		if err != nil {
			return nil, err
		}
		if err := s.dev.ConfigureEmissivity(ctx, emissivity); err != nil {
			return nil, err
		}
		return map[string]interface{}{EmissivityKey: emissivity}, nil
	case EmissivityKey:
		emissivity, err := s.dev.ReadEmissivity(ctx)
		if err != nil {
			return nil, err
		}
		return map[string]interface{}{EmissivityKey: emissivity}, nil
	case FlagsKey:
		flags, err := s.dev.ReadFlags(ctx)
		if err != nil {
			return nil, err
		}
		return map[string]interface{}{
			FlagsKey:      uint16(flags),
			"ready":       flags.Ready(),
			"eeprom_busy": flags.EEPROMBusy(),
			"eeprom_dead": flags.EEPROMDead(),
		}, nil
	case IDKey:
		id, err := s.dev.ReadID(ctx)
		if err != nil {
			return nil, err
		}
		return map[string]interface{}{IDKey: fmt.Sprintf("%016X", id)}, nil
	case RegistersKey:
		values, err := s.dev.DumpRegisters(ctx)
		if err != nil {
			return nil, err
		}
		resp := make(map[string]interface{}, len(values))
		for _, v := range values {
			resp[v.Command.String()] = v.Value
		}
		return resp, nil
	case SleepKey:
		if err := s.dev.Sleep(ctx); err != nil {
			return nil, err
		}
		s.logger.Warn("mlx90614 is asleep and will not answer until power cycled")
		return map[string]interface{}{SleepKey: true}, nil
	default:
		return nil, errors.Errorf("unknown command %q", verb)
	}
}

// Close does nothing: the bus belongs to the caller.
func (s *mlxSensor) Close(ctx context.Context) error {
	return nil
}
