// Package buses offers I2C buses for generic Linux systems.
package buses

import (
	"context"
)

// I2C represents a shareable I2C bus on the board.
type I2C interface {
	// OpenHandle locks returns a handle interface that MUST be closed when done.
	// you cannot have 2 open for the same addr
	OpenHandle(addr byte) (I2CHandle, error)
}

// I2CHandle is similar to an io handle. It MUST be closed to release the bus.
type I2CHandle interface {
	// ReadBlockData writes the register byte and then reads numBytes back in the same
	// transaction (a repeated start on SMBus devices).
	ReadBlockData(ctx context.Context, register byte, numBytes uint8) ([]byte, error)
	// WriteBlockData writes the register byte followed by data in one transaction.
	WriteBlockData(ctx context.Context, register byte, data []byte) error

	// Close closes the handle and releases the lock on the bus.
	Close() error
}
