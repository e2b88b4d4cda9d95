package wire

import (
	"bytes"
	"errors"
	"io"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/racketlab/swingtrace/internal/motion"
)

func testSample() motion.Sample {
	return motion.Sample{
		TimestampMs: 123456,
		AccelX:      1.5,
		AccelY:      -2.25,
		AccelZ:      9.8,
		GyroX:       0.125,
		GyroY:       -4.5,
		GyroZ:       3.75,
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	want := testSample()

	frame := Encode(want)
	if len(frame) != FrameSize {
		t.Fatalf("expected %d byte frame, got %d", FrameSize, len(frame))
	}

	got, err := Decode(frame)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestEncodeDecodeBattery(t *testing.T) {
	want := testSample()
	want.BatteryPct = 87
	want.HasBattery = true

	frame := Encode(want)
	if len(frame) != FrameSizeWithBattery {
		t.Fatalf("expected %d byte frame, got %d", FrameSizeWithBattery, len(frame))
	}

	got, err := Decode(frame)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestDecodeShortFrame(t *testing.T) {
	_, err := Decode(make([]byte, FrameSize-1))
	if !errors.Is(err, ErrBadLength) {
		t.Errorf("expected ErrBadLength, got %v", err)
	}
}

func TestDecodeBadHeader(t *testing.T) {
	frame := Encode(testSample())
	frame[1] = 0x00

	_, err := Decode(frame)
	if !errors.Is(err, ErrBadHeader) {
		t.Errorf("expected ErrBadHeader, got %v", err)
	}
}

func TestDecodeChecksumMismatch(t *testing.T) {
	frame := Encode(testSample())
	// Flip one payload bit; the stored checksum no longer matches.
	frame[10] ^= 0x01

	_, err := Decode(frame)
	if !errors.Is(err, ErrChecksumMismatch) {
		t.Errorf("expected ErrChecksumMismatch, got %v", err)
	}
}

func TestDecodeDoesNotPanicOnEmpty(t *testing.T) {
	if _, err := Decode(nil); !errors.Is(err, ErrBadLength) {
		t.Errorf("expected ErrBadLength for nil input, got %v", err)
	}
}

func TestScannerResync(t *testing.T) {
	s := testSample()
	s.HasBattery = true
	s.BatteryPct = 50
	frame := Encode(s)

	// Garbage, one frame, garbage containing a lone 0x5A, another frame.
	var stream bytes.Buffer
	stream.Write([]byte{0x00, 0x5A, 0x00, 0xFF})
	stream.Write(frame)
	stream.Write([]byte{0x5A, 0x10})
	s2 := s
	s2.TimestampMs += 50
	stream.Write(Encode(s2))

	sc := NewScanner(&stream)

	first, err := sc.Next()
	if err != nil {
		t.Fatalf("first Next failed: %v", err)
	}
	got, err := Decode(first)
	if err != nil {
		t.Fatalf("first frame did not decode: %v", err)
	}
	if got.TimestampMs != s.TimestampMs {
		t.Errorf("expected timestamp %d, got %d", s.TimestampMs, got.TimestampMs)
	}

	second, err := sc.Next()
	if err != nil {
		t.Fatalf("second Next failed: %v", err)
	}
	got2, err := Decode(second)
	if err != nil {
		t.Fatalf("second frame did not decode: %v", err)
	}
	if got2.TimestampMs != s2.TimestampMs {
		t.Errorf("expected timestamp %d, got %d", s2.TimestampMs, got2.TimestampMs)
	}

	if _, err := sc.Next(); err != io.EOF {
		t.Errorf("expected EOF after stream drained, got %v", err)
	}
}
