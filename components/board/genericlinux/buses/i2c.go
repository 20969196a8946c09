package buses

import (
	"context"
	"fmt"
	"sync"

	"github.com/pkg/errors"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"

	"go.viam.com/mlx90614/logging"
)

var (
	initHostOnce sync.Once
	initHostErr  error
)

// I2cBus implements I2C on top of a periph.io bus. Only one handle may be open at a time; the
// bus mutex is held from OpenHandle until the handle is closed.
type I2cBus struct {
	mu     sync.Mutex
	conn   i2c.Bus
	closer func() error
	name   string
	logger logging.Logger
}

// NewI2cBus opens the named Linux I2C bus ("1", "/dev/i2c-1", "I2C1", ...) through periph.io.
// The periph.io host drivers are loaded on first use.
func NewI2cBus(name string, logger logging.Logger) (*I2cBus, error) {
	initHostOnce.Do(func() {
		_, initHostErr = host.Init()
	})
	if initHostErr != nil {
		return nil, errors.Wrap(initHostErr, "failed to initialize periph.io host drivers")
	}

	conn, err := i2creg.Open(name)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open I2C bus %q", name)
	}
	bus := NewI2cBusFromConn(conn, logger)
	bus.name = name
	bus.closer = conn.Close
	return bus, nil
}

// NewI2cBusFromConn wraps an already open periph.io bus. The caller keeps ownership of conn;
// Close on the returned bus does not close it.
func NewI2cBusFromConn(conn i2c.Bus, logger logging.Logger) *I2cBus {
	if logger == nil {
		logger = logging.NewBlankLogger("i2c")
	}
	return &I2cBus{conn: conn, name: conn.String(), logger: logger}
}

// OpenHandle locks the bus and returns a handle addressing addr. The handle MUST be closed.
func (bus *I2cBus) OpenHandle(addr byte) (I2CHandle, error) {
	if addr > 0x7F {
		return nil, errors.Errorf("I2C address 0x%X is not a 7-bit address", addr)
	}
	bus.mu.Lock()
	return &i2cHandle{bus: bus, dev: &i2c.Dev{Bus: bus.conn, Addr: uint16(addr)}}, nil
}

// Close releases the underlying bus if this value opened it.
func (bus *I2cBus) Close() error {
	if bus.closer == nil {
		return nil
	}
	return bus.closer()
}

func (bus *I2cBus) String() string {
	return fmt.Sprintf("i2c bus %s", bus.name)
}

// i2cHandle checks ctx before each transfer. periph.io's Tx takes no context, so a transfer in
// progress runs until the kernel adapter times out.
type i2cHandle struct {
	bus       *I2cBus
	dev       *i2c.Dev
	closeOnce sync.Once
}

func (h *i2cHandle) ReadBlockData(ctx context.Context, register byte, numBytes uint8) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	results := make([]byte, numBytes)
	if err := h.dev.Tx([]byte{register}, results); err != nil {
		return nil, errors.Wrapf(err, "failed reading %d bytes from register 0x%02X at address 0x%02X on %s",
			numBytes, register, h.dev.Addr, h.bus)
	}
	h.bus.logger.CDebugf(ctx, "read register 0x%02X at 0x%02X: % X", register, h.dev.Addr, results)
	return results, nil
}

func (h *i2cHandle) WriteBlockData(ctx context.Context, register byte, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	rawData := make([]byte, 0, len(data)+1)
	rawData = append(rawData, register)
	rawData = append(rawData, data...)
	if err := h.dev.Tx(rawData, nil); err != nil {
		return errors.Wrapf(err, "failed writing %d bytes to register 0x%02X at address 0x%02X on %s",
			len(data), register, h.dev.Addr, h.bus)
	}
	h.bus.logger.CDebugf(ctx, "wrote register 0x%02X at 0x%02X: % X", register, h.dev.Addr, data)
	return nil
}

func (h *i2cHandle) Close() error {
	h.closeOnce.Do(h.bus.mu.Unlock)
	return nil
}
