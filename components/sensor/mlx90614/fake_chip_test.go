package mlx90614

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"

	"go.viam.com/mlx90614/components/board/genericlinux/buses"
	"go.viam.com/mlx90614/logging"
	"go.viam.com/mlx90614/testutils/inject"
)

var errNoAck = errors.New("no acknowledge from device")

type busWrite struct {
	command Command
	data    []byte
	at      time.Time
}

// fakeChip emulates the SMBus side of an MLX90614: a register file, PEC generation on reads, PEC
// checking on writes, the erase-before-write rule of the EEPROM and sleep.
type fakeChip struct {
	mu      sync.Mutex
	address byte
	regs    map[Command]uint16
	clk     *clock.Mock

	asleep     bool
	corruptPEC bool
	failWrites int // fail the nth write from now, 1-based; 0 disables

	reads  []Command
	writes []busWrite
}

func newFakeChip() *fakeChip {
	return &fakeChip{
		address: DefaultAddress,
		regs: map[Command]uint16{
			CommandAmbientTemperature: 0x3A34,
			CommandObjectTemperature1: 0x3AD2,
			CommandObjectTemperature2: 0x3B00,
			CommandRawIRChannel1:      0x0123,
			CommandRawIRChannel2:      0x0456,
			CommandEmissivity:         0xFFFF,
			CommandReadFlags:          flagInit,
			CommandIDNumber1:          0x1111,
			CommandIDNumber2:          0x2222,
			CommandIDNumber3:          0x3333,
			CommandIDNumber4:          0x4444,
		},
		clk: clock.NewMock(),
	}
}

func (c *fakeChip) bus() *inject.I2C {
	handle := &inject.I2CHandle{}
	handle.ReadBlockDataFunc = c.readBlockData
	handle.WriteBlockDataFunc = c.writeBlockData
	handle.CloseFunc = func() error { return nil }

	return &inject.I2C{OpenHandleFunc: func(addr byte) (buses.I2CHandle, error) {
		if addr != c.address {
			return nil, errors.Errorf("nothing at address 0x%02X", addr)
		}
		return handle, nil
	}}
}

func (c *fakeChip) readBlockData(ctx context.Context, register byte, numBytes uint8) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.asleep {
		return nil, errNoAck
	}
	cmd := Command(register)
	c.reads = append(c.reads, cmd)

	value := c.regs[cmd]
	lo, hi := byte(value), byte(value>>8)
	pec := CRC8([]byte{c.address << 1, register, c.address<<1 | 1, lo, hi})
	if c.corruptPEC {
		pec ^= 0x5A
	}
	return []byte{lo, hi, pec}[:numBytes], nil
}

func (c *fakeChip) writeBlockData(ctx context.Context, register byte, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.asleep {
		return errNoAck
	}
	cmd := Command(register)
	c.writes = append(c.writes, busWrite{command: cmd, data: append([]byte(nil), data...), at: c.clk.Now()})

	if c.failWrites > 0 {
		c.failWrites--
		if c.failWrites == 0 {
			return errNoAck
		}
	}

	if cmd == CommandSleep {
		if len(data) != 1 || data[0] != CRC8([]byte{c.address << 1, register}) {
			return errors.New("bad sleep PEC")
		}
		c.asleep = true
		return nil
	}

	if len(data) != 3 || data[2] != CRC8([]byte{c.address << 1, register, data[0], data[1]}) {
		return errors.New("bad write PEC")
	}
	if !cmd.IsEEPROM() {
		return errors.Errorf("%s is not writable", cmd)
	}
	value := uint16(data[0]) | uint16(data[1])<<8
	if value != 0 && c.regs[cmd] != 0 {
		return errors.Errorf("%s written without erase", cmd)
	}
	c.regs[cmd] = value
	return nil
}

func (c *fakeChip) reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reads = nil
	c.writes = nil
}

func (c *fakeChip) register(cmd Command) uint16 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.regs[cmd]
}

func (c *fakeChip) newDevice(t *testing.T) *Device {
	t.Helper()
	dev, err := NewDevice(c.bus(), c.address, WithClock(c.clk), WithLogger(logging.NewTestLogger(t)))
	if err != nil {
		t.Fatal(err)
	}
	return dev
}

// runAdvancingClock runs fn while pushing the mock clock forward in settle delay steps until fn
// returns. It returns how much mock time passed.
func runAdvancingClock(t *testing.T, clk *clock.Mock, fn func() error) (time.Duration, error) {
	t.Helper()
	start := clk.Now()
	done := make(chan error, 1)
	go func() {
		done <- fn()
	}()

	deadline := time.After(5 * time.Second)
	for {
		select {
		case err := <-done:
			return clk.Now().Sub(start), err
		case <-deadline:
			t.Fatal("operation did not finish")
		case <-time.After(time.Millisecond):
			clk.Add(EEPROMSettleDelay)
		}
	}
}
