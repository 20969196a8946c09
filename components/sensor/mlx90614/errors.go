package mlx90614

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	// ErrNotEEPROM is returned when an EEPROM write targets a command that is not a persistent
	// register.
	ErrNotEEPROM = errors.New("command does not address an EEPROM register")
	// ErrNotReadable is returned when a read targets a command that has no data word.
	ErrNotReadable = errors.New("command does not address a readable register")
)

// TransportError wraps a failure of the bus itself: the transaction could not be opened,
// carried out or it timed out. The bus error is kept unchanged and is reachable through Unwrap.
type TransportError struct {
	Op      string
	Command Command
	Err     error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("mlx90614 %s %s: %v", e.Op, e.Command, e.Err)
}

// Unwrap returns the bus error.
func (e *TransportError) Unwrap() error {
	return e.Err
}

// ChecksumError is returned when the packet error code sent by the device does not match the
// one computed over the received frame. The data word is discarded.
type ChecksumError struct {
	Command Command
	Got     byte
	Want    byte
}

func (e *ChecksumError) Error() string {
	return fmt.Sprintf("mlx90614 read %s: packet error code mismatch, got 0x%02X want 0x%02X",
		e.Command, e.Got, e.Want)
}

// InvalidArgumentError reports a value outside the range an operation accepts. Values are never
// clamped.
type InvalidArgumentError struct {
	Name  string
	Value interface{}
	Want  string
}

func (e *InvalidArgumentError) Error() string {
	return fmt.Sprintf("invalid %s %v, must be %s", e.Name, e.Value, e.Want)
}

// IsTransportError reports whether err (or anything it wraps) is a TransportError.
func IsTransportError(err error) bool {
	var target *TransportError
	return errors.As(err, &target)
}

// IsChecksumError reports whether err (or anything it wraps) is a ChecksumError.
func IsChecksumError(err error) bool {
	var target *ChecksumError
	return errors.As(err, &target)
}

// IsInvalidArgumentError reports whether err (or anything it wraps) is an InvalidArgumentError.
func IsInvalidArgumentError(err error) bool {
	var target *InvalidArgumentError
	return errors.As(err, &target)
}
