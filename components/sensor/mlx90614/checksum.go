package mlx90614

// crc8Polynomial is x^8 + x^2 + x + 1, the SMBus packet error code polynomial.
const crc8Polynomial = 0x07

// CRC8 computes the SMBus packet error code over data: CRC-8 with polynomial 0x07, initial
// value 0, no reflection and no final XOR. The device runs the same computation, so it has to
// match bit for bit.
func CRC8(data []byte) byte {
	var crc byte
	for _, b := range data {
		crc ^= b
		for i := 0; i < 8; i++ {
			if crc&0x80 != 0 {
				crc = (crc << 1) ^ crc8Polynomial
			} else {
				crc <<= 1
			}
		}
	}
	return crc
}

// The PEC covers every byte on the wire, including the address bytes that the bus layer sends
// on its own. These frames rebuild that sequence.
type (
	// {write address, command, read address, data low, data high}
	readFrame [5]byte
	// {write address, command, data low, data high}
	writeFrame [4]byte
	// {write address, command}
	sleepFrame [2]byte
)

func writeAddress(addr byte) byte {
	return addr << 1
}

func readAddress(addr byte) byte {
	return addr<<1 + 1
}

func newReadFrame(addr byte, cmd Command, lo, hi byte) readFrame {
	return readFrame{writeAddress(addr), byte(cmd), readAddress(addr), lo, hi}
}

func newWriteFrame(addr byte, cmd Command, value uint16) writeFrame {
	return writeFrame{writeAddress(addr), byte(cmd), byte(value), byte(value >> 8)}
}

func newSleepFrame(addr byte) sleepFrame {
	return sleepFrame{writeAddress(addr), byte(CommandSleep)}
}

func (f readFrame) pec() byte  { return CRC8(f[:]) }
func (f writeFrame) pec() byte { return CRC8(f[:]) }
func (f sleepFrame) pec() byte { return CRC8(f[:]) }
