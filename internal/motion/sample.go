// Package motion holds the decoded inertial sample types and the bounded
// buffers the stroke pipeline reads from.
package motion

import "math"

// Sample is one decoded inertial reading from the paddle sensor. Samples are
// immutable once decoded; every downstream stage receives copies, never live
// references into a buffer.
type Sample struct {
	// TimestampMs is the device clock in milliseconds. It is a free-running
	// uint32 and wraps; always compare timestamps with ElapsedMs.
	TimestampMs uint32

	// Accelerometer, m/s² per axis.
	AccelX, AccelY, AccelZ float32

	// Gyroscope, °/s per axis.
	GyroX, GyroY, GyroZ float32

	// BatteryPct is only meaningful when HasBattery is set; the trailing
	// battery byte is optional on the wire.
	BatteryPct uint8
	HasBattery bool
}

// AccelMagnitude returns the Euclidean norm of the acceleration vector.
func (s Sample) AccelMagnitude() float64 {
	ax, ay, az := float64(s.AccelX), float64(s.AccelY), float64(s.AccelZ)
	return math.Sqrt(ax*ax + ay*ay + az*az)
}

// GyroMagnitude returns the Euclidean norm of the angular velocity vector.
func (s Sample) GyroMagnitude() float64 {
	gx, gy, gz := float64(s.GyroX), float64(s.GyroY), float64(s.GyroZ)
	return math.Sqrt(gx*gx + gy*gy + gz*gz)
}

// ElapsedMs returns the wrap-aware elapsed time from an earlier device
// timestamp to a later one. Unsigned subtraction handles the uint32 rollover.
func ElapsedMs(from, to uint32) uint32 {
	return to - from
}
