package mlx90614

import (
	"context"

	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"go.viam.com/mlx90614/components/board/genericlinux/buses"
)

// wordTransferSize is the number of bytes of a word read or write: data low, data high, PEC.
const wordTransferSize = 3

// withHandle runs fn against a freshly opened handle under the transaction timeout. Every bus
// failure, including a failure to close the handle afterwards, comes back as a TransportError.
func (d *Device) withHandle(
	ctx context.Context,
	op string,
	cmd Command,
	fn func(ctx context.Context, handle buses.I2CHandle) error,
) (err error) {
	ctx, cancel := context.WithTimeout(ctx, TransactionTimeout)
	defer cancel()

	handle, err := d.bus.OpenHandle(d.address)
	if err != nil {
		return &TransportError{Op: op, Command: cmd, Err: err}
	}
	defer func() {
		if closeErr := handle.Close(); closeErr != nil {
			err = multierr.Combine(err, &TransportError{Op: "close", Command: cmd, Err: closeErr})
		}
	}()

	if err := fn(ctx, handle); err != nil {
		return &TransportError{Op: op, Command: cmd, Err: err}
	}
	return nil
}

// readU16 reads one data word and checks its packet error code. On a mismatch the word is
// dropped and a ChecksumError returned.
func (d *Device) readU16(ctx context.Context, cmd Command) (uint16, error) {
	var data []byte
	err := d.withHandle(ctx, "read", cmd, func(ctx context.Context, handle buses.I2CHandle) error {
		var err error
		data, err = handle.ReadBlockData(ctx, byte(cmd), wordTransferSize)
		if err != nil {
			return err
		}
		if len(data) != wordTransferSize {
			return errors.Errorf("expected %d bytes, got %d", wordTransferSize, len(data))
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	frame := newReadFrame(d.address, cmd, data[0], data[1])
	if want := frame.pec(); data[2] != want {
		d.logger.Debugw("dropping word with bad PEC", "command", cmd, "data", data, "want", want)
		return 0, &ChecksumError{Command: cmd, Got: data[2], Want: want}
	}

	value := uint16(data[0]) | uint16(data[1])<<8
	d.logger.Debugf("read %s = 0x%04X", cmd, value)
	return value, nil
}

// writeU16 writes one data word followed by its packet error code. Nothing is read back.
func (d *Device) writeU16(ctx context.Context, cmd Command, value uint16) error {
	frame := newWriteFrame(d.address, cmd, value)
	payload := []byte{frame[2], frame[3], frame.pec()}

	d.logger.Debugf("write %s = 0x%04X", cmd, value)
	return d.withHandle(ctx, "write", cmd, func(ctx context.Context, handle buses.I2CHandle) error {
		return handle.WriteBlockData(ctx, byte(cmd), payload)
	})
}
