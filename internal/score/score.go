// Package score derives a 1-10 quality score and feedback text from a
// classified swing. The derivation is purely deterministic; no learned
// component.
package score

import (
	"math"

	"github.com/racketlab/swingtrace/internal/classify"
	"github.com/racketlab/swingtrace/internal/motion"
)

// Normalisation ceilings for the quality sub-metrics.
const (
	peakAccelCeiling = 50.0 // m/s²
	peakGyroCeiling  = 15.0 // °/s-scale units
	meanJerkCeiling  = 20.0
)

// Outcome is the externally visible unit of work: one per detected stroke.
type Outcome struct {
	Stroke           classify.StrokeType
	Score            int // 1-10, or 0 for an Unknown classification
	Feedback         string
	Confidence       float32
	PeakAcceleration float32
	DurationMs       uint32
}

// Evaluate combines the raw window metrics and the classification into an
// outcome. Every detected swing produces exactly one outcome, including the
// degraded Unknown case.
func Evaluate(w motion.Window, res classify.Result) Outcome {
	out := Outcome{
		Stroke:           res.Stroke,
		Confidence:       res.Confidence,
		PeakAcceleration: float32(w.PeakAccel()),
		DurationMs:       w.DurationMs(),
	}
	if res.Stroke == classify.Unknown {
		out.Score = 0
		out.Feedback = Feedback(classify.Unknown, 0)
		return out
	}

	quality := 0.3*clamp01(w.PeakAccel()/peakAccelCeiling) +
		0.2*Smoothness(w) +
		0.2*clamp01(w.PeakGyro()/peakGyroCeiling) +
		0.3*float64(res.Confidence)

	score := int(math.Round(quality*9 + 1))
	if score < 1 {
		score = 1
	}
	if score > 10 {
		score = 10
	}

	out.Score = score
	out.Feedback = Feedback(res.Stroke, score)
	return out
}

// Smoothness maps the window's mean jerk onto [0,1], where 1 is perfectly
// smooth. Windows too short for a second difference are softened to 0.5
// rather than treated as perfect.
func Smoothness(w motion.Window) float64 {
	if w.Len() < 3 {
		return 0.5
	}
	return 1 - clamp01(w.MeanJerk()/meanJerkCeiling)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
