package motion

import (
	"math"
	"testing"
)

func sampleAt(ts uint32, ax float64) Sample {
	return Sample{TimestampMs: ts, AccelX: float32(ax), AccelZ: 9.8}
}

func TestRingEvictsOldest(t *testing.T) {
	r := NewRing(3)
	for i := 0; i < 5; i++ {
		r.Push(sampleAt(uint32(i*50), float64(i)))
	}

	if r.Len() != 3 {
		t.Fatalf("expected 3 buffered samples, got %d", r.Len())
	}

	got := r.Recent(3)
	for i, want := range []uint32{100, 150, 200} {
		if got[i].TimestampMs != want {
			t.Errorf("sample %d: expected timestamp %d, got %d", i, want, got[i].TimestampMs)
		}
	}
}

func TestRingRecentShort(t *testing.T) {
	r := NewRing(10)
	r.Push(sampleAt(0, 1))
	r.Push(sampleAt(50, 2))

	got := r.Recent(5)
	if len(got) != 2 {
		t.Fatalf("expected 2 samples, got %d", len(got))
	}
	if got[0].TimestampMs != 0 || got[1].TimestampMs != 50 {
		t.Errorf("samples out of order: %v", got)
	}
}

func TestRingRecentCopies(t *testing.T) {
	r := NewRing(4)
	r.Push(sampleAt(0, 1))

	got := r.Recent(1)
	got[0].AccelX = 99

	if again := r.Recent(1); again[0].AccelX == 99 {
		t.Error("Recent returned a reference into live storage")
	}
}

func TestRingSnapshotDuration(t *testing.T) {
	r := NewRing(100)
	for i := 0; i < 20; i++ {
		r.Push(sampleAt(uint32(i*50), 0))
	}

	// 200ms back from the newest sample at 950ms covers 750..950.
	got := r.Snapshot(200)
	if len(got) != 5 {
		t.Fatalf("expected 5 samples in a 200ms snapshot, got %d", len(got))
	}
	if got[0].TimestampMs != 750 {
		t.Errorf("expected snapshot to start at 750, got %d", got[0].TimestampMs)
	}
}

func TestElapsedMsWraps(t *testing.T) {
	from := uint32(math.MaxUint32 - 10)
	if got := ElapsedMs(from, 20); got != 31 {
		t.Errorf("expected 31ms across the wrap, got %d", got)
	}
}

func TestWindowMetrics(t *testing.T) {
	samples := []Sample{
		{TimestampMs: 0, AccelZ: 9.8},
		{TimestampMs: 50, AccelX: 30, AccelZ: 9.8, GyroY: 12},
		{TimestampMs: 100, AccelZ: 9.8},
	}
	w := NewWindow(samples)

	if w.DurationMs() != 100 {
		t.Errorf("expected 100ms duration, got %d", w.DurationMs())
	}
	wantPeak := math.Sqrt(30*30 + 9.8*9.8)
	if math.Abs(w.PeakAccel()-wantPeak) > 1e-6 {
		t.Errorf("expected peak accel %.4f, got %.4f", wantPeak, w.PeakAccel())
	}
	if w.PeakGyro() != 12 {
		t.Errorf("expected peak gyro 12, got %.4f", w.PeakGyro())
	}
}

func TestWindowMeanJerkShort(t *testing.T) {
	w := NewWindow([]Sample{sampleAt(0, 0), sampleAt(50, 10)})
	if w.MeanJerk() != 0 {
		t.Errorf("expected zero jerk for a two-sample window, got %.4f", w.MeanJerk())
	}
}

func TestWindowMeanJerkConstantMotion(t *testing.T) {
	var samples []Sample
	for i := 0; i < 10; i++ {
		samples = append(samples, sampleAt(uint32(i*50), 5))
	}
	w := NewWindow(samples)
	if w.MeanJerk() != 0 {
		t.Errorf("expected zero jerk for constant acceleration, got %.4f", w.MeanJerk())
	}
}
