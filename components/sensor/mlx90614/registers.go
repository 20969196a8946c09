package mlx90614

import "fmt"

// Command selects a register (or the sleep action) on the device. The set is fixed by the chip.
type Command byte

// RAM registers. Read only, refreshed by the chip's DSP.
const (
	CommandRawIRChannel1      Command = 0x04
	CommandRawIRChannel2      Command = 0x05
	CommandAmbientTemperature Command = 0x06
	CommandObjectTemperature1 Command = 0x07
	CommandObjectTemperature2 Command = 0x08
)

// EEPROM registers. Writable, but every write must be preceded by an erase.
const (
	CommandToMax           Command = 0x20
	CommandToMin           Command = 0x21
	CommandPWMControl      Command = 0x22
	CommandTaRange         Command = 0x23
	CommandEmissivity      Command = 0x24
	CommandConfigRegister1 Command = 0x25
	CommandSMBusAddress    Command = 0x2E
	CommandIDNumber1       Command = 0x3C
	CommandIDNumber2       Command = 0x3D
	CommandIDNumber3       Command = 0x3E
	CommandIDNumber4       Command = 0x3F
)

const (
	// CommandReadFlags reads the status flags word.
	CommandReadFlags Command = 0xF0
	// CommandSleep puts the device into sleep mode. It only wakes up after a power cycle.
	CommandSleep Command = 0xFF
)

var commandNames = map[Command]string{
	CommandRawIRChannel1:      "raw_ir_channel_1",
	CommandRawIRChannel2:      "raw_ir_channel_2",
	CommandAmbientTemperature: "ambient_temperature",
	CommandObjectTemperature1: "object_temperature_1",
	CommandObjectTemperature2: "object_temperature_2",
	CommandToMax:              "to_max",
	CommandToMin:              "to_min",
	CommandPWMControl:         "pwm_control",
	CommandTaRange:            "ta_range",
	CommandEmissivity:         "emissivity",
	CommandConfigRegister1:    "config_register_1",
	CommandSMBusAddress:       "smbus_address",
	CommandIDNumber1:          "id_number_1",
	CommandIDNumber2:          "id_number_2",
	CommandIDNumber3:          "id_number_3",
	CommandIDNumber4:          "id_number_4",
	CommandReadFlags:          "read_flags",
	CommandSleep:              "sleep",
}

func (c Command) String() string {
	if name, ok := commandNames[c]; ok {
		return name
	}
	return fmt.Sprintf("unknown_command(0x%02X)", byte(c))
}

// IsRAM reports whether c addresses one of the volatile registers.
func (c Command) IsRAM() bool {
	return c >= CommandRawIRChannel1 && c <= CommandObjectTemperature2
}

// IsEEPROM reports whether c addresses one of the persistent registers.
func (c Command) IsEEPROM() bool {
	switch c {
	case CommandToMax, CommandToMin, CommandPWMControl, CommandTaRange, CommandEmissivity,
		CommandConfigRegister1, CommandSMBusAddress,
		CommandIDNumber1, CommandIDNumber2, CommandIDNumber3, CommandIDNumber4:
		return true
	default:
		return false
	}
}

// IsReadable reports whether c returns a data word when read.
func (c Command) IsReadable() bool {
	return c.IsRAM() || c.IsEEPROM() || c == CommandReadFlags
}

// Bits of the flags word.
const (
	flagInit       = 1 << 4 // low while the power-on initialization is still running
	flagEEPROMDead = 1 << 5
	flagEEPROMBusy = 1 << 7
)

// Flags is the status word read with CommandReadFlags.
type Flags uint16

// Ready reports whether the power-on initialization has finished.
func (f Flags) Ready() bool {
	return f&flagInit != 0
}

// EEPROMDead reports a double error detected in the EEPROM.
func (f Flags) EEPROMDead() bool {
	return f&flagEEPROMDead != 0
}

// EEPROMBusy reports whether a previous EEPROM write is still in progress.
func (f Flags) EEPROMBusy() bool {
	return f&flagEEPROMBusy != 0
}

func (f Flags) String() string {
	return fmt.Sprintf("flags(0x%04X ready=%t eeprom_busy=%t eeprom_dead=%t)",
		uint16(f), f.Ready(), f.EEPROMBusy(), f.EEPROMDead())
}
