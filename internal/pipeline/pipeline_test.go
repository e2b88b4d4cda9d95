package pipeline

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/racketlab/swingtrace/internal/classify"
	"github.com/racketlab/swingtrace/internal/config"
	"github.com/racketlab/swingtrace/internal/features"
	"github.com/racketlab/swingtrace/internal/highlight"
	"github.com/racketlab/swingtrace/internal/monitoring"
	"github.com/racketlab/swingtrace/internal/motion"
	"github.com/racketlab/swingtrace/internal/score"
)

type memStore struct {
	mu         sync.Mutex
	began      []string
	devices    []string
	ended      []string
	outcomes   []score.Outcome
	highlights []highlight.Entry
	endStats   []SessionStats
}

func (m *memStore) BeginSession(_ context.Context, id, deviceID string, _ time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.began = append(m.began, id)
	m.devices = append(m.devices, deviceID)
	return nil
}

func (m *memStore) EndSession(_ context.Context, id string, stats SessionStats) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ended = append(m.ended, id)
	m.endStats = append(m.endStats, stats)
	return nil
}

func (m *memStore) SaveOutcome(_ context.Context, _ string, o score.Outcome) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.outcomes = append(m.outcomes, o)
	return nil
}

func (m *memStore) SaveHighlight(_ context.Context, _ string, e highlight.Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.highlights = append(m.highlights, e)
	return nil
}

func restSample(ts uint32) motion.Sample {
	return motion.Sample{TimestampMs: ts, AccelZ: 9.8}
}

func spikeSample(ts uint32) motion.Sample {
	return motion.Sample{TimestampMs: ts, AccelX: 40, AccelZ: 9.8, GyroY: 10}
}

// feedSlowly paces delivery so the bounded ingest channel never sheds.
func feedSlowly(p *Pipeline, samples []motion.Sample) {
	for _, s := range samples {
		p.HandleSample(s)
		time.Sleep(50 * time.Microsecond)
	}
}

func TestEndToEndSingleStroke(t *testing.T) {
	st := &memStore{}
	counters := &monitoring.Counters{}
	p := New(nil, classify.NewStatic(classify.ForehandDrive, 0.95), st, counters)

	outcomes := make(chan score.Outcome, 8)
	p.SetOutcomeHandler(func(o score.Outcome) { outcomes <- o })

	p.Start()
	defer p.Stop()
	sessionID := p.StartSession("AA:BB:CC:DD:EE:FF")

	// Five seconds of rest at 20 Hz, one sharp swing, then a second spike
	// inside the cooldown that must be debounced away.
	var samples []motion.Sample
	for i := 0; i < 100; i++ {
		samples = append(samples, restSample(uint32(i*50)))
	}
	samples = append(samples, spikeSample(5000))
	for i := 1; i <= 3; i++ {
		samples = append(samples, restSample(5000+uint32(i*50)))
	}
	samples = append(samples, spikeSample(5200))
	feedSlowly(p, samples)

	var out score.Outcome
	select {
	case out = <-outcomes:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for an outcome")
	}

	if out.Stroke != classify.ForehandDrive {
		t.Errorf("expected forehand_drive, got %s", out.Stroke)
	}
	if out.Score < 7 || out.Score > 10 {
		t.Errorf("expected a strong swing to score 7-10, got %d", out.Score)
	}
	if out.Feedback == "" {
		t.Error("outcome is missing feedback")
	}

	// The debounced second spike must not surface.
	select {
	case extra := <-outcomes:
		t.Fatalf("unexpected second outcome: %+v", extra)
	case <-time.After(100 * time.Millisecond):
	}

	// Score >= 8 auto-saves a highlight.
	st.mu.Lock()
	if len(st.outcomes) != 1 {
		t.Errorf("expected 1 persisted outcome, got %d", len(st.outcomes))
	}
	if len(st.highlights) != 1 {
		t.Fatalf("expected 1 auto-saved highlight, got %d", len(st.highlights))
	}
	if !st.highlights[0].AutoSaved {
		t.Error("highlight not flagged auto-saved")
	}
	if len(st.began) != 1 || st.began[0] != sessionID {
		t.Errorf("session start not persisted: %v", st.began)
	}
	if len(st.devices) != 1 || st.devices[0] != "AA:BB:CC:DD:EE:FF" {
		t.Errorf("session device not persisted: %v", st.devices)
	}
	st.mu.Unlock()

	if counters.OutcomesEmitted.Load() != 1 {
		t.Errorf("expected 1 emitted outcome, got %d", counters.OutcomesEmitted.Load())
	}
	if counters.HighlightsSaved.Load() != 1 {
		t.Errorf("expected 1 saved highlight, got %d", counters.HighlightsSaved.Load())
	}

	stats := p.Stats()
	if stats.StrokeCount != 1 {
		t.Errorf("expected 1 stroke in session stats, got %d", stats.StrokeCount)
	}
	if stats.ByType["forehand_drive"] != 1 {
		t.Errorf("per-type breakdown wrong: %v", stats.ByType)
	}

	p.StopSession()
	st.mu.Lock()
	if len(st.ended) != 1 || st.endStats[0].StrokeCount != 1 {
		t.Errorf("session end not persisted with final stats: %v", st.endStats)
	}
	st.mu.Unlock()
}

func TestZeroCooldownConfigReachesSegmenter(t *testing.T) {
	// cooldown_ms: 0 is a valid override per Validate and must survive all
	// the way to the segmenter instead of being swapped for the default, so
	// two spikes 100ms apart produce two outcomes.
	zero := 0
	cfg := &config.Config{CooldownMs: &zero}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("zero cooldown failed validation: %v", err)
	}

	p := New(cfg, classify.NewStatic(classify.ForehandDrive, 0.95), nil, &monitoring.Counters{})

	outcomes := make(chan score.Outcome, 8)
	p.SetOutcomeHandler(func(o score.Outcome) { outcomes <- o })

	p.Start()
	defer p.Stop()
	p.StartSession("")

	feedSlowly(p, []motion.Sample{restSample(0), spikeSample(1000), spikeSample(1100)})

	for i := 0; i < 2; i++ {
		select {
		case <-outcomes:
		case <-time.After(2 * time.Second):
			t.Fatalf("got %d outcomes, expected 2 with the debounce disabled", i)
		}
	}
}

// blockingEngine parks inside Classify until released, so a session can end
// while a window is in flight.
type blockingEngine struct {
	entered chan struct{}
	release chan struct{}
}

func (e *blockingEngine) Classify(features.FixedWindow) (classify.Result, error) {
	e.entered <- struct{}{}
	<-e.release
	return classify.Result{Stroke: classify.Serve, Confidence: 0.9}, nil
}

func TestStaleOutcomeDiscardedAfterStop(t *testing.T) {
	engine := &blockingEngine{
		entered: make(chan struct{}, 1),
		release: make(chan struct{}),
	}
	counters := &monitoring.Counters{}
	p := New(nil, engine, nil, counters)

	called := make(chan score.Outcome, 1)
	p.SetOutcomeHandler(func(o score.Outcome) { called <- o })

	p.Start()
	p.StartSession("")

	feedSlowly(p, []motion.Sample{restSample(0), spikeSample(50)})

	// The worker is now parked inside the classifier.
	select {
	case <-engine.entered:
	case <-time.After(2 * time.Second):
		t.Fatal("classifier never entered")
	}

	p.StopSession()
	close(engine.release)

	select {
	case o := <-called:
		t.Fatalf("stale outcome surfaced after session stop: %+v", o)
	case <-time.After(100 * time.Millisecond):
	}
	if counters.OutcomesDiscarded.Load() != 1 {
		t.Errorf("expected 1 discarded outcome, got %d", counters.OutcomesDiscarded.Load())
	}

	p.Stop()
}

func TestUnknownOutcomeStillEmitted(t *testing.T) {
	// Confidence below the 0.3 gate degrades to Unknown but still surfaces.
	p := New(nil, classify.NewStatic(classify.Serve, 0.2), nil, &monitoring.Counters{})

	outcomes := make(chan score.Outcome, 1)
	p.SetOutcomeHandler(func(o score.Outcome) { outcomes <- o })

	p.Start()
	defer p.Stop()
	p.StartSession("")

	feedSlowly(p, []motion.Sample{restSample(0), spikeSample(50)})

	select {
	case out := <-outcomes:
		if out.Stroke != classify.Unknown {
			t.Errorf("expected unknown stroke, got %s", out.Stroke)
		}
		if out.Score != 0 {
			t.Errorf("unknown stroke must score 0, got %d", out.Score)
		}
		if out.Feedback == "" {
			t.Error("unknown outcome should carry fallback feedback")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for the degraded outcome")
	}
}

func TestMarkHighlightManualCapture(t *testing.T) {
	st := &memStore{}
	p := New(nil, classify.NewStatic(classify.ForehandDrive, 0.9), st, &monitoring.Counters{})

	p.Start()
	defer p.Stop()
	p.StartSession("")

	var samples []motion.Sample
	for i := 0; i < 20; i++ {
		samples = append(samples, restSample(uint32(i*50)))
	}
	feedSlowly(p, samples)

	// Give ingest a moment to drain the channel.
	deadline := time.After(2 * time.Second)
	for {
		if entry, ok := p.MarkHighlight(); ok {
			if entry.AutoSaved {
				t.Error("manual capture must not be flagged auto-saved")
			}
			return
		}
		select {
		case <-deadline:
			t.Fatal("manual highlight never captured")
		case <-time.After(time.Millisecond):
		}
	}
}

func TestAggregator(t *testing.T) {
	a := NewAggregator()
	a.Reset("s1")

	a.Observe(score.Outcome{Stroke: classify.Serve, Score: 8, Confidence: 0.9})
	a.Observe(score.Outcome{Stroke: classify.Serve, Score: 6, Confidence: 0.7})
	a.Observe(score.Outcome{Stroke: classify.DropShot, Score: 10, Confidence: 0.95})

	got := a.Snapshot()
	if got.StrokeCount != 3 {
		t.Errorf("expected 3 strokes, got %d", got.StrokeCount)
	}
	if got.ByType["serve"] != 2 || got.ByType["drop_shot"] != 1 {
		t.Errorf("per-type counts wrong: %v", got.ByType)
	}
	if got.AvgScore != 8 {
		t.Errorf("expected average score 8, got %f", got.AvgScore)
	}
	if got.MaxScore != 10 {
		t.Errorf("expected max score 10, got %d", got.MaxScore)
	}

	// Snapshots are copies.
	got.ByType["serve"] = 99
	if a.Snapshot().ByType["serve"] != 2 {
		t.Error("snapshot aliases live aggregator state")
	}
}
