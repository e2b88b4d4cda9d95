package classify

import (
	"github.com/racketlab/swingtrace/internal/features"
	"github.com/racketlab/swingtrace/internal/monitoring"
)

// DefaultConfidenceGate is the minimum arg-max probability required to accept
// a non-Unknown label.
const DefaultConfidenceGate = 0.3

// Result is the typed classification of one window. Produced once per window
// and never mutated.
type Result struct {
	Stroke        StrokeType
	Confidence    float32
	Probabilities map[StrokeType]float32
}

// Classifier is the inference contract: fixed input shape
// [1, sequenceLength, 6], softmax-like probability vector of NumClasses out.
type Classifier interface {
	Classify(w features.FixedWindow) (Result, error)
}

// Adapter wraps a Classifier with the confidence gate and the degrade-to-
// Unknown policy. Classification failure must never abort the pipeline, so
// Adapter.Classify returns no error: any engine failure becomes Unknown with
// confidence zero. The adapter does not retry; re-enqueueing is the caller's
// decision.
type Adapter struct {
	engine   Classifier
	gate     float32
	counters *monitoring.Counters
}

// NewAdapter wraps engine with the given confidence gate. A negative gate
// falls back to DefaultConfidenceGate; an explicit zero disables gating so
// every argmax label is accepted.
func NewAdapter(engine Classifier, gate float64, counters *monitoring.Counters) *Adapter {
	if gate < 0 {
		gate = DefaultConfidenceGate
	}
	if counters == nil {
		counters = monitoring.Default
	}
	return &Adapter{engine: engine, gate: float32(gate), counters: counters}
}

// Classify runs inference and applies the gate. Below-gate results keep their
// probability map but are forced to Unknown regardless of the arg-max class.
func (a *Adapter) Classify(w features.FixedWindow) Result {
	res, err := a.engine.Classify(w)
	if err != nil {
		a.counters.InferenceFailures.Add(1)
		monitoring.Logf("classify: inference failed, degrading to unknown: %v", err)
		return Result{Stroke: Unknown, Confidence: 0}
	}
	if res.Confidence < a.gate {
		res.Stroke = Unknown
	}
	return res
}
