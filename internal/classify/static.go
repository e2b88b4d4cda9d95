package classify

import (
	"github.com/racketlab/swingtrace/internal/features"
)

// Static is a deterministic Classifier returning a fixed result or error on
// every call. It stands in for the real engine in tests and in dev mode where
// no model artifact is available.
type Static struct {
	Result Result
	Err    error
}

// Classify returns the configured result regardless of input.
func (s *Static) Classify(features.FixedWindow) (Result, error) {
	if s.Err != nil {
		return Result{}, s.Err
	}
	return s.Result, nil
}

// NewStatic builds a stub that always reports the given stroke with the given
// confidence.
func NewStatic(stroke StrokeType, confidence float32) *Static {
	probs := map[StrokeType]float32{stroke: confidence}
	return &Static{Result: Result{Stroke: stroke, Confidence: confidence, Probabilities: probs}}
}
