// Package features converts variable-length motion windows into the fixed
// input shape the classifier requires.
package features

import (
	"gonum.org/v1/gonum/interp"

	"github.com/racketlab/swingtrace/internal/motion"
)

// NumChannels is the classifier channel count, ordered
// accelX accelY accelZ gyroX gyroY gyroZ.
const NumChannels = 6

// DefaultSequenceLength is the classifier's required sequence length.
const DefaultSequenceLength = 50

// FixedWindow is a normalised window with exactly the classifier sequence
// length. Values[i] holds the six standardized channel values for step i.
type FixedWindow struct {
	Values [][NumChannels]float32
}

// Len returns the sequence length.
func (f FixedWindow) Len() int { return len(f.Values) }

// Flatten returns the window as a single float64 slice in [step][channel]
// order, the layout expected by the inference engines.
func (f FixedWindow) Flatten() []float64 {
	out := make([]float64, 0, len(f.Values)*NumChannels)
	for _, row := range f.Values {
		for _, v := range row {
			out = append(out, float64(v))
		}
	}
	return out
}

// Calibration holds the fixed per-channel standardization constants. The
// defaults assume gravity on the accelerometer Z axis at rest.
type Calibration struct {
	AccelMean [3]float64
	AccelStd  [3]float64
	GyroMean  [3]float64
	GyroStd   [3]float64
}

// DefaultCalibration returns the stock calibration constants.
func DefaultCalibration() Calibration {
	return Calibration{
		AccelMean: [3]float64{0, 0, 9.8},
		AccelStd:  [3]float64{5, 5, 5},
		GyroMean:  [3]float64{0, 0, 0},
		GyroStd:   [3]float64{2, 2, 2},
	}
}

// Normalizer resamples windows to the target sequence length and applies
// per-channel standardization.
type Normalizer struct {
	seqLen int
	cal    Calibration
}

// NewNormalizer creates a Normalizer. A non-positive sequence length falls
// back to DefaultSequenceLength; a zero calibration falls back to the stock
// constants.
func NewNormalizer(seqLen int, cal Calibration) *Normalizer {
	if seqLen <= 0 {
		seqLen = DefaultSequenceLength
	}
	if cal == (Calibration{}) {
		cal = DefaultCalibration()
	}
	return &Normalizer{seqLen: seqLen, cal: cal}
}

// SequenceLength returns the fixed output length.
func (n *Normalizer) SequenceLength() int { return n.seqLen }

// Rest returns the canonical rest window: gravity on accel Z, everything else
// zero, standardized. Empty captures normalise to this rather than failing.
func (n *Normalizer) Rest() FixedWindow {
	rest := n.standardize([NumChannels]float64{0, 0, 9.8, 0, 0, 0})
	out := make([][NumChannels]float32, n.seqLen)
	for i := range out {
		out[i] = rest
	}
	return FixedWindow{Values: out}
}

// Normalize resamples the window to the target sequence length via linear
// interpolation over the index space, then standardizes each channel with the
// fixed calibration constants. A window already at target length is
// standardized without resampling.
func (n *Normalizer) Normalize(w motion.Window) FixedWindow {
	switch {
	case w.Len() == 0:
		return n.Rest()
	case n.seqLen == 1:
		// A one-step target keeps the newest sample; interpolation needs at
		// least two grid points on the output side.
		raw := channelValues(w.Samples[w.Len()-1])
		return FixedWindow{Values: [][NumChannels]float32{n.standardize(raw)}}
	case w.Len() == 1:
		// A single sample stretches to a constant series.
		raw := channelValues(w.Samples[0])
		out := make([][NumChannels]float32, n.seqLen)
		std := n.standardize(raw)
		for i := range out {
			out[i] = std
		}
		return FixedWindow{Values: out}
	case w.Len() == n.seqLen:
		out := make([][NumChannels]float32, n.seqLen)
		for i, s := range w.Samples {
			out[i] = n.standardize(channelValues(s))
		}
		return FixedWindow{Values: out}
	}

	resampled := n.resample(w)
	out := make([][NumChannels]float32, n.seqLen)
	for i, raw := range resampled {
		out[i] = n.standardize(raw)
	}
	return FixedWindow{Values: out}
}

// resample stretches or squeezes the raw channel series onto the target index
// grid with piecewise-linear interpolation.
func (n *Normalizer) resample(w motion.Window) [][NumChannels]float64 {
	srcLen := w.Len()
	xs := make([]float64, srcLen)
	for i := range xs {
		xs[i] = float64(i)
	}

	out := make([][NumChannels]float64, n.seqLen)
	ys := make([]float64, srcLen)
	scale := float64(srcLen-1) / float64(n.seqLen-1)

	for ch := 0; ch < NumChannels; ch++ {
		for i, s := range w.Samples {
			ys[i] = channelValues(s)[ch]
		}
		var pl interp.PiecewiseLinear
		if err := pl.Fit(xs, ys); err != nil {
			// xs is strictly increasing by construction; Fit cannot fail here.
			continue
		}
		for j := 0; j < n.seqLen; j++ {
			out[j][ch] = pl.Predict(float64(j) * scale)
		}
	}
	return out
}

func (n *Normalizer) standardize(raw [NumChannels]float64) [NumChannels]float32 {
	var out [NumChannels]float32
	for i := 0; i < 3; i++ {
		out[i] = float32((raw[i] - n.cal.AccelMean[i]) / n.cal.AccelStd[i])
		out[i+3] = float32((raw[i+3] - n.cal.GyroMean[i]) / n.cal.GyroStd[i])
	}
	return out
}

func channelValues(s motion.Sample) [NumChannels]float64 {
	return [NumChannels]float64{
		float64(s.AccelX), float64(s.AccelY), float64(s.AccelZ),
		float64(s.GyroX), float64(s.GyroY), float64(s.GyroZ),
	}
}
