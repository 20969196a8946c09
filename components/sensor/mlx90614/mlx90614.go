// Package mlx90614 implements a driver for the Melexis MLX90614 infrared thermometer. A datasheet
// for this chip is at https://www.melexis.com/en/documents/documentation/datasheets/datasheet-mlx90614
//
// The chip speaks SMBus: every word read or written carries a CRC-8 packet error code (PEC)
// computed over the whole transaction, address bytes included. Reads whose PEC does not match
// are rejected rather than returned.
//
// We support reading the ambient and both object temperatures, the raw IR channels, the status
// flags and the chip ID, writing any EEPROM cell (emissivity in particular) and putting the chip
// to sleep. We do not support PWM output, nor waking the chip from sleep: once asleep it only
// answers again after a power cycle.
//
// A Device holds no lock. Calls on the same Device must not overlap.
package mlx90614

import (
	"context"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"

	"go.viam.com/mlx90614/components/board/genericlinux/buses"
	"go.viam.com/mlx90614/logging"
)

const (
	// DefaultAddress is the factory SMBus address of the chip.
	DefaultAddress = 0x5A

	// TransactionTimeout is the deadline put on the context of every bus transaction. Buses that
	// cannot interrupt a transfer, such as the periph.io I2cBus, only check it before starting;
	// a transfer that hangs once started is bounded by the kernel's I2C adapter timeout instead.
	TransactionTimeout = 100 * time.Millisecond
)

// Device is a handle to one MLX90614 on a bus. The bus is borrowed; the Device never closes it.
type Device struct {
	bus     buses.I2C
	address byte
	clock   clock.Clock
	logger  logging.Logger
}

// Option configures a Device.
type Option func(*Device)

// WithClock replaces the clock used for EEPROM settle delays.
func WithClock(clk clock.Clock) Option {
	return func(d *Device) {
		d.clock = clk
	}
}

// WithLogger sets the logger. The default discards everything.
func WithLogger(logger logging.Logger) Option {
	return func(d *Device) {
		d.logger = logger
	}
}

// NewDevice returns a handle to the chip at the 7-bit address on bus.
func NewDevice(bus buses.I2C, address byte, opts ...Option) (*Device, error) {
	if bus == nil {
		return nil, errors.New("mlx90614 needs an I2C bus")
	}
	if address > 0x7F {
		return nil, &InvalidArgumentError{Name: "address", Value: address, Want: "a 7-bit I2C address"}
	}
	d := &Device{
		bus:     bus,
		address: address,
		clock:   clock.New(),
		logger:  logging.NewBlankLogger("mlx90614"),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

// Address returns the 7-bit bus address of the chip.
func (d *Device) Address() byte {
	return d.address
}

// ConfigureEmissivity stores the emissivity used by the chip for its object temperature. The
// factory value is 1.0. The EEPROM is only written when the stored value differs.
func (d *Device) ConfigureEmissivity(ctx context.Context, emissivity float64) error {
	raw, err := EmissivityToRaw(emissivity)
	if err != nil {
		return err
	}
	return d.writeEEPROM(ctx, CommandEmissivity, raw)
}

// ReadEmissivity returns the emissivity currently stored in EEPROM.
func (d *Device) ReadEmissivity(ctx context.Context) (float64, error) {
	raw, err := d.readU16(ctx, CommandEmissivity)
	if err != nil {
		return 0, err
	}
	return RawToEmissivity(raw), nil
}

// ReadAmbientTemperature returns the die temperature in degrees Celsius.
func (d *Device) ReadAmbientTemperature(ctx context.Context) (float64, error) {
	return d.readTemperature(ctx, CommandAmbientTemperature)
}

// ReadObjectTemperature returns the temperature seen by the first IR channel in degrees Celsius.
func (d *Device) ReadObjectTemperature(ctx context.Context) (float64, error) {
	return d.readTemperature(ctx, CommandObjectTemperature1)
}

// ReadObject2Temperature returns the temperature seen by the second IR channel. Only dual zone
// parts populate it.
func (d *Device) ReadObject2Temperature(ctx context.Context) (float64, error) {
	return d.readTemperature(ctx, CommandObjectTemperature2)
}

func (d *Device) readTemperature(ctx context.Context, cmd Command) (float64, error) {
	raw, err := d.readU16(ctx, cmd)
	if err != nil {
		return 0, err
	}
	return RawToCelsius(raw), nil
}

// ReadRawIR returns the raw reading of IR channel 1 or 2.
func (d *Device) ReadRawIR(ctx context.Context, channel int) (uint16, error) {
	switch channel {
	case 1:
		return d.readU16(ctx, CommandRawIRChannel1)
	case 2:
		return d.readU16(ctx, CommandRawIRChannel2)
	default:
		return 0, &InvalidArgumentError{Name: "IR channel", Value: channel, Want: "1 or 2"}
	}
}

// ReadFlags returns the status flags word.
func (d *Device) ReadFlags(ctx context.Context) (Flags, error) {
	raw, err := d.readU16(ctx, CommandReadFlags)
	if err != nil {
		return 0, err
	}
	return Flags(raw), nil
}

// ReadID returns the 64-bit factory ID, with ID number 1 as the least significant word.
func (d *Device) ReadID(ctx context.Context) (uint64, error) {
	var id uint64
	for i, cmd := range []Command{CommandIDNumber1, CommandIDNumber2, CommandIDNumber3, CommandIDNumber4} {
		word, err := d.readU16(ctx, cmd)
		if err != nil {
			return 0, err
		}
		id |= uint64(word) << (16 * i)
	}
	return id, nil
}

// ReadRegister reads the raw word of any readable register.
func (d *Device) ReadRegister(ctx context.Context, cmd Command) (uint16, error) {
	if !cmd.IsReadable() {
		return 0, errors.Wrapf(ErrNotReadable, "%s", cmd)
	}
	return d.readU16(ctx, cmd)
}

// RegisterValue is one word read by DumpRegisters.
type RegisterValue struct {
	Command Command
	Value   uint16
}

// DumpRegisters reads every readable register in command order. It stops at the first failure.
func (d *Device) DumpRegisters(ctx context.Context) ([]RegisterValue, error) {
	var values []RegisterValue
	for c := 0; c <= 0xFF; c++ {
		cmd := Command(c)
		if !cmd.IsReadable() {
			continue
		}
		value, err := d.readU16(ctx, cmd)
		if err != nil {
			return nil, err
		}
		values = append(values, RegisterValue{Command: cmd, Value: value})
	}
	return values, nil
}

// WriteEEPROM stores a raw word in an EEPROM cell, erasing it first. Nothing is written when the
// cell already holds value. See writeEEPROM for what happens on a failed write.
func (d *Device) WriteEEPROM(ctx context.Context, cmd Command, value uint16) error {
	if !cmd.IsEEPROM() {
		return errors.Wrapf(ErrNotEEPROM, "%s", cmd)
	}
	return d.writeEEPROM(ctx, cmd, value)
}

// Sleep puts the chip into its low power mode. The chip stops answering on the bus until it is
// power cycled; later calls on this Device fail with a TransportError.
func (d *Device) Sleep(ctx context.Context) error {
	frame := newSleepFrame(d.address)
	pec := frame.pec()

	d.logger.Infof("putting mlx90614 at 0x%02X to sleep", d.address)
	return d.withHandle(ctx, "sleep", CommandSleep, func(ctx context.Context, handle buses.I2CHandle) error {
		return handle.WriteBlockData(ctx, byte(CommandSleep), []byte{pec})
	})
}
