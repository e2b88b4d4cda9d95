package classify

import (
	"encoding/json"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/racketlab/swingtrace/internal/features"
	"github.com/racketlab/swingtrace/internal/monitoring"
)

func emptyWindow(seqLen int) features.FixedWindow {
	return features.FixedWindow{Values: make([][features.NumChannels]float32, seqLen)}
}

func TestAdapterPassesConfidentResult(t *testing.T) {
	engine := NewStatic(ForehandDrive, 0.9)
	a := NewAdapter(engine, 0.3, &monitoring.Counters{})

	res := a.Classify(emptyWindow(50))
	if res.Stroke != ForehandDrive {
		t.Errorf("expected forehand_drive, got %s", res.Stroke)
	}
	if res.Confidence != 0.9 {
		t.Errorf("expected confidence 0.9, got %f", res.Confidence)
	}
}

func TestAdapterGatesLowConfidence(t *testing.T) {
	engine := NewStatic(BackhandSlice, 0.25)
	a := NewAdapter(engine, 0.3, &monitoring.Counters{})

	res := a.Classify(emptyWindow(50))
	if res.Stroke != Unknown {
		t.Errorf("below-gate result should be unknown, got %s", res.Stroke)
	}
	// The probability map survives the gate.
	if res.Probabilities[BackhandSlice] != 0.25 {
		t.Errorf("expected probabilities to survive gating, got %v", res.Probabilities)
	}
}

func TestAdapterZeroGateAcceptsEverything(t *testing.T) {
	engine := NewStatic(BackhandSlice, 0.05)
	// An explicit zero gate disables gating; only a negative gate falls back
	// to the default.
	a := NewAdapter(engine, 0, &monitoring.Counters{})

	res := a.Classify(emptyWindow(50))
	if res.Stroke != BackhandSlice {
		t.Errorf("zero gate must accept the argmax label, got %s", res.Stroke)
	}

	a = NewAdapter(engine, -1, &monitoring.Counters{})
	if res := a.Classify(emptyWindow(50)); res.Stroke != Unknown {
		t.Errorf("negative gate should fall back to the default, got %s", res.Stroke)
	}
}

func TestAdapterDegradesEngineFailure(t *testing.T) {
	counters := &monitoring.Counters{}
	engine := &Static{Err: errors.New("inference backend gone")}
	a := NewAdapter(engine, 0.3, counters)

	res := a.Classify(emptyWindow(50))
	if res.Stroke != Unknown {
		t.Errorf("engine failure should degrade to unknown, got %s", res.Stroke)
	}
	if res.Confidence != 0 {
		t.Errorf("degraded result should carry zero confidence, got %f", res.Confidence)
	}
	if counters.InferenceFailures.Load() != 1 {
		t.Errorf("expected 1 inference failure counted, got %d", counters.InferenceFailures.Load())
	}
}

func TestStrokeTypeNames(t *testing.T) {
	if Unknown.String() != "unknown" {
		t.Errorf("unexpected name for Unknown: %s", Unknown)
	}
	if Serve.String() != "serve" {
		t.Errorf("unexpected name for Serve: %s", Serve)
	}
	if FromName("backhand_topspin") != BackhandTopspin {
		t.Error("FromName failed to round-trip backhand_topspin")
	}
	if FromName("not_a_stroke") != Unknown {
		t.Error("unrecognised name should map to Unknown")
	}
}

func TestClassIndexRoundTrip(t *testing.T) {
	for i := 0; i < NumClasses; i++ {
		st := FromClassIndex(i)
		if st == Unknown {
			t.Fatalf("class index %d mapped to Unknown", i)
		}
		if st.ClassIndex() != i {
			t.Errorf("class index %d round-tripped to %d", i, st.ClassIndex())
		}
	}
	if FromClassIndex(-1) != Unknown || FromClassIndex(NumClasses) != Unknown {
		t.Error("out-of-range indices should map to Unknown")
	}
}

// biasOnlyModel returns a model whose weights are zero, so the bias vector
// alone decides the softmax.
func biasOnlyModel(seqLen int, bias []float64) *LinearModel {
	weights := make([][]float64, NumClasses)
	for i := range weights {
		weights[i] = make([]float64, seqLen*features.NumChannels)
	}
	return &LinearModel{SequenceLength: seqLen, Weights: weights, Bias: bias}
}

func TestLinearModelArgmax(t *testing.T) {
	bias := make([]float64, NumClasses)
	bias[Serve.ClassIndex()] = 5

	m := biasOnlyModel(10, bias)
	res, err := m.Classify(emptyWindow(10))
	if err != nil {
		t.Fatalf("Classify failed: %v", err)
	}
	if res.Stroke != Serve {
		t.Errorf("expected serve, got %s", res.Stroke)
	}
	if res.Confidence <= 0.9 {
		t.Errorf("expected dominant probability, got %f", res.Confidence)
	}

	var sum float64
	for _, p := range res.Probabilities {
		sum += float64(p)
	}
	if math.Abs(sum-1) > 1e-3 {
		t.Errorf("probabilities should sum to 1, got %f", sum)
	}
}

func TestLinearModelShapeMismatch(t *testing.T) {
	m := biasOnlyModel(10, make([]float64, NumClasses))
	if _, err := m.Classify(emptyWindow(9)); err == nil {
		t.Error("expected an error for a mis-shaped input")
	}
}

func TestLoadLinearModelValidatesShape(t *testing.T) {
	dir := t.TempDir()

	good := biasOnlyModel(4, make([]float64, NumClasses))
	writeModel := func(name string, m *LinearModel) string {
		data, err := json.Marshal(m)
		if err != nil {
			t.Fatalf("marshal failed: %v", err)
		}
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, data, 0o644); err != nil {
			t.Fatalf("write failed: %v", err)
		}
		return path
	}

	if _, err := LoadLinearModel(writeModel("good.json", good)); err != nil {
		t.Errorf("valid model failed to load: %v", err)
	}

	bad := biasOnlyModel(4, make([]float64, NumClasses))
	bad.Weights = bad.Weights[:NumClasses-1]
	if _, err := LoadLinearModel(writeModel("bad.json", bad)); err == nil {
		t.Error("expected a validation error for a truncated weight matrix")
	}

	if _, err := LoadLinearModel(filepath.Join(dir, "missing.json")); err == nil {
		t.Error("expected an error for a missing file")
	}
}
