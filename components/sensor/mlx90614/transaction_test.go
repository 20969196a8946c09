package mlx90614

import (
	"context"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/pkg/errors"
	"go.viam.com/test"

	"go.viam.com/mlx90614/components/board/genericlinux/buses"
	"go.viam.com/mlx90614/logging"
	"go.viam.com/mlx90614/testutils/inject"
)

func injectedDevice(t *testing.T, handle *inject.I2CHandle) *Device {
	t.Helper()
	if handle.CloseFunc == nil {
		handle.CloseFunc = func() error { return nil }
	}
	bus := &inject.I2C{OpenHandleFunc: func(addr byte) (buses.I2CHandle, error) { return handle, nil }}
	dev, err := NewDevice(bus, DefaultAddress, WithLogger(logging.NewTestLogger(t)))
	test.That(t, err, test.ShouldBeNil)
	return dev
}

func TestReadU16(t *testing.T) {
	ctx := context.Background()

	t.Run("valid PEC returns the little endian word", func(t *testing.T) {
		var gotRegister byte
		var gotCount uint8
		handle := &inject.I2CHandle{}
		handle.ReadBlockDataFunc = func(ctx context.Context, register byte, numBytes uint8) ([]byte, error) {
			gotRegister, gotCount = register, numBytes
			return []byte{0x34, 0x3A, 0x1B}, nil
		}
		dev := injectedDevice(t, handle)

		value, err := dev.readU16(ctx, CommandAmbientTemperature)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, value, test.ShouldEqual, 0x3A34)
		test.That(t, gotRegister, test.ShouldEqual, 0x06)
		test.That(t, gotCount, test.ShouldEqual, 3)
	})

	t.Run("bad PEC is rejected and the word dropped", func(t *testing.T) {
		handle := &inject.I2CHandle{}
		handle.ReadBlockDataFunc = func(ctx context.Context, register byte, numBytes uint8) ([]byte, error) {
			return []byte{0x34, 0x3A, 0x1C}, nil
		}
		dev := injectedDevice(t, handle)

		value, err := dev.readU16(ctx, CommandAmbientTemperature)
		test.That(t, value, test.ShouldEqual, 0)
		test.That(t, IsChecksumError(err), test.ShouldBeTrue)
		test.That(t, IsTransportError(err), test.ShouldBeFalse)
		var checksumErr *ChecksumError
		test.That(t, errors.As(err, &checksumErr), test.ShouldBeTrue)
		test.That(t, checksumErr.Got, test.ShouldEqual, 0x1C)
		test.That(t, checksumErr.Want, test.ShouldEqual, 0x1B)
	})

	t.Run("bus error is surfaced unchanged", func(t *testing.T) {
		busErr := errors.New("arbitration lost")
		handle := &inject.I2CHandle{}
		handle.ReadBlockDataFunc = func(ctx context.Context, register byte, numBytes uint8) ([]byte, error) {
			return nil, busErr
		}
		dev := injectedDevice(t, handle)

		_, err := dev.readU16(ctx, CommandObjectTemperature1)
		test.That(t, IsTransportError(err), test.ShouldBeTrue)
		test.That(t, errors.Is(err, busErr), test.ShouldBeTrue)
		test.That(t, err.Error(), test.ShouldContainSubstring, "object_temperature_1")
	})

	t.Run("short read is a transport error", func(t *testing.T) {
		handle := &inject.I2CHandle{}
		handle.ReadBlockDataFunc = func(ctx context.Context, register byte, numBytes uint8) ([]byte, error) {
			return []byte{0x34}, nil
		}
		dev := injectedDevice(t, handle)

		_, err := dev.readU16(ctx, CommandAmbientTemperature)
		test.That(t, IsTransportError(err), test.ShouldBeTrue)
	})

	t.Run("failing to open the handle is a transport error", func(t *testing.T) {
		bus := &inject.I2C{OpenHandleFunc: func(addr byte) (buses.I2CHandle, error) {
			return nil, errors.New("bus busy")
		}}
		dev, err := NewDevice(bus, DefaultAddress)
		test.That(t, err, test.ShouldBeNil)

		_, err = dev.readU16(ctx, CommandAmbientTemperature)
		test.That(t, IsTransportError(err), test.ShouldBeTrue)
	})

	t.Run("failing to close the handle is reported", func(t *testing.T) {
		handle := &inject.I2CHandle{}
		handle.ReadBlockDataFunc = func(ctx context.Context, register byte, numBytes uint8) ([]byte, error) {
			return []byte{0x34, 0x3A, 0x1B}, nil
		}
		handle.CloseFunc = func() error { return errors.New("close failed") }
		dev := injectedDevice(t, handle)

		_, err := dev.readU16(ctx, CommandAmbientTemperature)
		test.That(t, err, test.ShouldNotBeNil)
		test.That(t, IsTransportError(err), test.ShouldBeTrue)
		test.That(t, err.Error(), test.ShouldContainSubstring, "close failed")
	})

	t.Run("every transaction carries the timeout", func(t *testing.T) {
		var deadline time.Time
		var hasDeadline bool
		handle := &inject.I2CHandle{}
		handle.ReadBlockDataFunc = func(ctx context.Context, register byte, numBytes uint8) ([]byte, error) {
			deadline, hasDeadline = ctx.Deadline()
			return []byte{0x34, 0x3A, 0x1B}, nil
		}
		dev := injectedDevice(t, handle)

		_, err := dev.readU16(ctx, CommandAmbientTemperature)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, hasDeadline, test.ShouldBeTrue)
		test.That(t, time.Until(deadline), test.ShouldBeLessThanOrEqualTo, TransactionTimeout)
	})
}

func TestWriteU16(t *testing.T) {
	ctx := context.Background()

	t.Run("payload is low byte, high byte, PEC", func(t *testing.T) {
		var gotRegister byte
		var gotData []byte
		handle := &inject.I2CHandle{}
		handle.WriteBlockDataFunc = func(ctx context.Context, register byte, data []byte) error {
			gotRegister, gotData = register, data
			return nil
		}
		dev := injectedDevice(t, handle)

		test.That(t, dev.writeU16(ctx, CommandEmissivity, 0x8000), test.ShouldBeNil)
		test.That(t, gotRegister, test.ShouldEqual, 0x24)
		if diff := cmp.Diff([]byte{0x00, 0x80, 0xA1}, gotData); diff != "" {
			t.Errorf("unexpected payload (-want +got):\n%s", diff)
		}
	})

	t.Run("bus error is a transport error", func(t *testing.T) {
		handle := &inject.I2CHandle{}
		handle.WriteBlockDataFunc = func(ctx context.Context, register byte, data []byte) error {
			return errNoAck
		}
		dev := injectedDevice(t, handle)

		err := dev.writeU16(ctx, CommandEmissivity, 0)
		test.That(t, IsTransportError(err), test.ShouldBeTrue)
		test.That(t, errors.Is(err, errNoAck), test.ShouldBeTrue)
	})

	t.Run("non default address changes the PEC", func(t *testing.T) {
		chip := newFakeChip()
		chip.address = 0x5B
		chip.regs[CommandEmissivity] = 0
		dev := chip.newDevice(t)

		test.That(t, dev.writeU16(ctx, CommandEmissivity, 0x1234), test.ShouldBeNil)
		test.That(t, chip.register(CommandEmissivity), test.ShouldEqual, 0x1234)
		value, err := dev.readU16(ctx, CommandEmissivity)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, value, test.ShouldEqual, 0x1234)
	})
}
