package mlx90614

import (
	"testing"

	"go.viam.com/test"
)

func TestCRC8(t *testing.T) {
	tests := []struct {
		name     string
		data     []byte
		expected byte
	}{
		{name: "empty data", data: []byte{}, expected: 0x00},
		{name: "nil data", data: nil, expected: 0x00},
		{name: "single zero", data: []byte{0x00}, expected: 0x00},
		{name: "single one", data: []byte{0x01}, expected: 0x07},
		{name: "single 0xFF", data: []byte{0xFF}, expected: 0xF3},
		{name: "CRC-8/SMBUS check string", data: []byte("123456789"), expected: 0xF4},
		{name: "sleep frame at 0x5A", data: []byte{0xB4, 0xFF}, expected: 0xE8},
		{name: "ambient read frame", data: []byte{0xB4, 0x06, 0xB5, 0x34, 0x3A}, expected: 0x1B},
		{name: "emissivity erase frame", data: []byte{0xB4, 0x24, 0x00, 0x00}, expected: 0x28},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			test.That(t, CRC8(tt.data), test.ShouldEqual, tt.expected)
		})
	}
}

func TestCRC8MatchesTable(t *testing.T) {
	// A byte-at-a-time table for the same polynomial must agree with the bit loop.
	var table [256]byte
	for i := range table {
		table[i] = CRC8([]byte{byte(i)})
	}
	test.That(t, table[0x01], test.ShouldEqual, 0x07)
	test.That(t, table[0x80], test.ShouldEqual, 0x89)

	data := []byte{0xB4, 0x07, 0xB5, 0xD2, 0x3A, 0x00, 0x42, 0x99}
	var crc byte
	for _, b := range data {
		crc = table[crc^b]
	}
	test.That(t, CRC8(data), test.ShouldEqual, crc)
	// Same input, same output.
	test.That(t, CRC8(data), test.ShouldEqual, CRC8(append([]byte(nil), data...)))
}

func TestFrames(t *testing.T) {
	read := newReadFrame(DefaultAddress, CommandAmbientTemperature, 0x34, 0x3A)
	test.That(t, read, test.ShouldResemble, readFrame{0xB4, 0x06, 0xB5, 0x34, 0x3A})
	test.That(t, read.pec(), test.ShouldEqual, 0x1B)

	write := newWriteFrame(DefaultAddress, CommandEmissivity, 0x8000)
	test.That(t, write, test.ShouldResemble, writeFrame{0xB4, 0x24, 0x00, 0x80})
	test.That(t, write.pec(), test.ShouldEqual, 0xA1)

	sleep := newSleepFrame(DefaultAddress)
	test.That(t, sleep, test.ShouldResemble, sleepFrame{0xB4, 0xFF})
	test.That(t, sleep.pec(), test.ShouldEqual, 0xE8)
}
