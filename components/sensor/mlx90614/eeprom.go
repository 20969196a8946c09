package mlx90614

import (
	"context"
	"time"
)

// EEPROMSettleDelay is the minimum time the chip needs to finish an EEPROM erase or write.
const EEPROMSettleDelay = 10 * time.Millisecond

// writeEEPROM stores value in an EEPROM cell. The cell is only touched when its current content
// differs from value, so repeating a write is free of EEPROM wear. A differing cell is erased to
// 0x0000 and then written, each followed by EEPROMSettleDelay.
//
// If the final write fails the cell stays erased. Callers that need the old value back have to
// read it first and restore it themselves.
func (d *Device) writeEEPROM(ctx context.Context, cmd Command, value uint16) error {
	if !cmd.IsEEPROM() {
		return ErrNotEEPROM
	}

	current, err := d.readU16(ctx, cmd)
	if err != nil {
		return err
	}
	if current == value {
		d.logger.Debugf("%s already 0x%04X, skipping EEPROM write", cmd, value)
		return nil
	}

	d.logger.Infof("updating %s from 0x%04X to 0x%04X", cmd, current, value)
	if err := d.writeU16(ctx, cmd, 0x0000); err != nil {
		return err
	}
	d.clock.Sleep(EEPROMSettleDelay)

	if err := d.writeU16(ctx, cmd, value); err != nil {
		d.logger.Warnw("EEPROM cell left erased after failed write", "command", cmd, "error", err)
		return err
	}
	d.clock.Sleep(EEPROMSettleDelay)
	return nil
}
