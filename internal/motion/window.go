package motion

// Window is a contiguous run of samples representing one candidate swing,
// together with per-sample timestamps relative to the window start. A window
// is owned exclusively by the pipeline stage processing it.
type Window struct {
	Samples []Sample
	// RelMs[i] is the elapsed milliseconds from the first sample to Samples[i].
	RelMs []uint32
}

// NewWindow builds a window from a sample run, computing relative timestamps.
// The slice is not copied; callers hand over ownership.
func NewWindow(samples []Sample) Window {
	rel := make([]uint32, len(samples))
	if len(samples) > 0 {
		start := samples[0].TimestampMs
		for i, s := range samples {
			rel[i] = ElapsedMs(start, s.TimestampMs)
		}
	}
	return Window{Samples: samples, RelMs: rel}
}

// Len returns the number of samples in the window.
func (w Window) Len() int { return len(w.Samples) }

// DurationMs returns the time span covered by the window.
func (w Window) DurationMs() uint32 {
	if len(w.RelMs) == 0 {
		return 0
	}
	return w.RelMs[len(w.RelMs)-1]
}

// PeakAccel returns the maximum acceleration magnitude in the window.
func (w Window) PeakAccel() float64 {
	var peak float64
	for _, s := range w.Samples {
		if m := s.AccelMagnitude(); m > peak {
			peak = m
		}
	}
	return peak
}

// PeakGyro returns the maximum angular velocity magnitude in the window.
func (w Window) PeakGyro() float64 {
	var peak float64
	for _, s := range w.Samples {
		if m := s.GyroMagnitude(); m > peak {
			peak = m
		}
	}
	return peak
}

// MeanJerk returns the mean second-difference magnitude of the acceleration
// series. Windows with fewer than three samples have no defined second
// difference and return zero; the scorer softens that case itself.
func (w Window) MeanJerk() float64 {
	if len(w.Samples) < 3 {
		return 0
	}
	var sum float64
	for i := 2; i < len(w.Samples); i++ {
		a, b, c := w.Samples[i-2], w.Samples[i-1], w.Samples[i]
		dx := float64(c.AccelX) - 2*float64(b.AccelX) + float64(a.AccelX)
		dy := float64(c.AccelY) - 2*float64(b.AccelY) + float64(a.AccelY)
		dz := float64(c.AccelZ) - 2*float64(b.AccelZ) + float64(a.AccelZ)
		sum += mag3(dx, dy, dz)
	}
	return sum / float64(len(w.Samples)-2)
}
