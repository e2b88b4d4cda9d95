package classify

import (
	"encoding/json"
	"fmt"
	"math"
	"os"

	"github.com/racketlab/swingtrace/internal/features"
	"github.com/racketlab/swingtrace/internal/monitoring"
)

// LinearModel is a softmax classifier over the flattened fixed window. The
// weight matrix is [NumClasses][sequenceLength*6]; the artifact is a JSON
// export of the trained model.
type LinearModel struct {
	SequenceLength int         `json:"sequence_length"`
	Weights        [][]float64 `json:"weights"`
	Bias           []float64   `json:"bias"`
}

// LoadLinearModel reads a model artifact from a JSON file and validates its
// shape against the classifier contract.
func LoadLinearModel(path string) (*LinearModel, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read model file: %w", err)
	}

	var m LinearModel
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to unmarshal model: %w", err)
	}
	if err := m.validate(); err != nil {
		return nil, err
	}

	monitoring.Logf("classify: loaded linear model from %s (seq_len=%d)", path, m.SequenceLength)
	return &m, nil
}

func (m *LinearModel) validate() error {
	if m.SequenceLength <= 0 {
		return fmt.Errorf("model sequence_length must be positive, got %d", m.SequenceLength)
	}
	if len(m.Weights) != NumClasses {
		return fmt.Errorf("model has %d weight rows, want %d", len(m.Weights), NumClasses)
	}
	want := m.SequenceLength * features.NumChannels
	for i, row := range m.Weights {
		if len(row) != want {
			return fmt.Errorf("weight row %d has %d values, want %d", i, len(row), want)
		}
	}
	if len(m.Bias) != NumClasses {
		return fmt.Errorf("model has %d bias values, want %d", len(m.Bias), NumClasses)
	}
	return nil
}

// Classify computes softmax probabilities for the window. The input shape
// must match the model's sequence length; a mismatch is an inference error
// that the adapter degrades to Unknown.
func (m *LinearModel) Classify(w features.FixedWindow) (Result, error) {
	input := w.Flatten()
	if len(input) != m.SequenceLength*features.NumChannels {
		return Result{}, fmt.Errorf("input has %d values, model wants %d",
			len(input), m.SequenceLength*features.NumChannels)
	}

	logits := make([]float64, NumClasses)
	for c := 0; c < NumClasses; c++ {
		sum := m.Bias[c]
		row := m.Weights[c]
		for i, v := range input {
			sum += row[i] * v
		}
		logits[c] = sum
	}

	probs := softmax(logits)

	best := 0
	for c := 1; c < NumClasses; c++ {
		if probs[c] > probs[best] {
			best = c
		}
	}

	byType := make(map[StrokeType]float32, NumClasses)
	for c, p := range probs {
		byType[FromClassIndex(c)] = float32(p)
	}

	return Result{
		Stroke:        FromClassIndex(best),
		Confidence:    float32(probs[best]),
		Probabilities: byType,
	}, nil
}

// softmax converts logits to a probability vector, shifting by the max logit
// to keep the exponentials finite.
func softmax(logits []float64) []float64 {
	max := logits[0]
	for _, v := range logits[1:] {
		if v > max {
			max = v
		}
	}
	out := make([]float64, len(logits))
	var sum float64
	for i, v := range logits {
		out[i] = math.Exp(v - max)
		sum += out[i]
	}
	for i := range out {
		out[i] /= sum
	}
	return out
}
