// Package wire implements the binary sensor frame format used on the paddle
// link. All multi-byte fields are little-endian.
//
// Frame layout (31 bytes, optionally 32 with a trailing battery byte):
//
//	[0]  0x5A      header sentinel
//	[1]  0xA5      header sentinel
//	[2]  u32       device timestamp, milliseconds (wraps)
//	[6]  f32 ×6    accelX accelY accelZ gyroX gyroY gyroZ
//	[30] u8        XOR checksum over bytes 0..29
//	[31] u8        battery percent (optional)
package wire

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"github.com/racketlab/swingtrace/internal/motion"
)

const (
	// FrameSize is the mandatory frame length without the battery byte.
	FrameSize = 31
	// FrameSizeWithBattery is the frame length including the battery byte.
	FrameSizeWithBattery = 32

	header0 = 0x5A
	header1 = 0xA5

	checksumOffset = 30
)

// Sentinel decode errors. Callers match with errors.Is; the link layer drops
// bad frames per-frame without tearing down the connection.
var (
	ErrBadLength        = errors.New("wire: frame shorter than 31 bytes")
	ErrBadHeader        = errors.New("wire: header sentinel mismatch")
	ErrChecksumMismatch = errors.New("wire: checksum mismatch")
)

// Checksum returns the XOR of all bytes in data.
func Checksum(data []byte) byte {
	var sum byte
	for _, b := range data {
		sum ^= b
	}
	return sum
}

// Decode validates and decodes a single frame into a motion sample. It is a
// pure function: no side effects, no retries.
func Decode(data []byte) (motion.Sample, error) {
	if len(data) < FrameSize {
		return motion.Sample{}, fmt.Errorf("%w: got %d", ErrBadLength, len(data))
	}
	if data[0] != header0 || data[1] != header1 {
		return motion.Sample{}, fmt.Errorf("%w: got 0x%02X 0x%02X", ErrBadHeader, data[0], data[1])
	}
	if got := Checksum(data[:checksumOffset]); got != data[checksumOffset] {
		return motion.Sample{}, fmt.Errorf("%w: computed 0x%02X, frame carries 0x%02X",
			ErrChecksumMismatch, got, data[checksumOffset])
	}

	s := motion.Sample{
		TimestampMs: binary.LittleEndian.Uint32(data[2:6]),
		AccelX:      f32(data[6:10]),
		AccelY:      f32(data[10:14]),
		AccelZ:      f32(data[14:18]),
		GyroX:       f32(data[18:22]),
		GyroY:       f32(data[22:26]),
		GyroZ:       f32(data[26:30]),
	}
	if len(data) >= FrameSizeWithBattery {
		s.BatteryPct = data[checksumOffset+1]
		s.HasBattery = true
	}
	return s, nil
}

// Encode serialises a motion sample into a frame. Samples carrying a battery
// reading produce the 32-byte form, others the 31-byte form. Used by tests,
// the emulator, and replay tooling.
func Encode(s motion.Sample) []byte {
	size := FrameSize
	if s.HasBattery {
		size = FrameSizeWithBattery
	}
	buf := make([]byte, size)
	buf[0] = header0
	buf[1] = header1
	binary.LittleEndian.PutUint32(buf[2:6], s.TimestampMs)
	putF32(buf[6:10], s.AccelX)
	putF32(buf[10:14], s.AccelY)
	putF32(buf[14:18], s.AccelZ)
	putF32(buf[18:22], s.GyroX)
	putF32(buf[22:26], s.GyroY)
	putF32(buf[26:30], s.GyroZ)
	buf[checksumOffset] = Checksum(buf[:checksumOffset])
	if s.HasBattery {
		buf[checksumOffset+1] = s.BatteryPct
	}
	return buf
}

func f32(b []byte) float32 {
	return math.Float32frombits(binary.LittleEndian.Uint32(b))
}

func putF32(b []byte, v float32) {
	binary.LittleEndian.PutUint32(b, math.Float32bits(v))
}
