// Package pipeline wires the stroke-processing stages together: decoded
// samples in, scored outcomes and highlight entries out.
//
// Concurrency model: the ingest goroutine is the only writer to the detection
// ring and the highlight buffer; the worker goroutine runs
// segmentation→normalise→classify→score off the receive path. Windows travel
// over a FIFO channel, so outcomes are delivered in detection order even when
// classification latency varies.
package pipeline

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/racketlab/swingtrace/internal/classify"
	"github.com/racketlab/swingtrace/internal/config"
	"github.com/racketlab/swingtrace/internal/features"
	"github.com/racketlab/swingtrace/internal/highlight"
	"github.com/racketlab/swingtrace/internal/monitoring"
	"github.com/racketlab/swingtrace/internal/motion"
	"github.com/racketlab/swingtrace/internal/score"
	"github.com/racketlab/swingtrace/internal/segment"
)

// Store is the persistence collaborator. The core holds no durable state:
// outcomes and highlights are handed over and forgotten.
type Store interface {
	BeginSession(ctx context.Context, sessionID, deviceID string, startedAt time.Time) error
	SaveOutcome(ctx context.Context, sessionID string, o score.Outcome) error
	SaveHighlight(ctx context.Context, sessionID string, e highlight.Entry) error
	EndSession(ctx context.Context, sessionID string, stats SessionStats) error
}

// OutcomeHandler receives each stroke outcome for an active session, in
// detection order.
type OutcomeHandler func(score.Outcome)

// Pipeline owns the full processing chain for one sensor link.
type Pipeline struct {
	ring       *motion.Ring
	segmenter  *segment.Segmenter
	normalizer *features.Normalizer
	classifier *classify.Adapter
	highlights *highlight.Buffer
	store      Store
	counters   *monitoring.Counters

	samples chan motion.Sample
	windows chan taggedWindow

	mu            sync.Mutex
	agg           *Aggregator
	onOutcome     OutcomeHandler
	sessionID     string
	sessionCtx    context.Context
	sessionCancel context.CancelFunc
	active        bool
	lastOutcome   *score.Outcome

	runCancel context.CancelFunc
	wg        sync.WaitGroup
}

// New assembles a pipeline from the tuning config, an inference engine, and
// an optional store (nil disables persistence).
func New(cfg *config.Config, engine classify.Classifier, st Store, counters *monitoring.Counters) *Pipeline {
	if cfg == nil {
		cfg = config.Empty()
	}
	if counters == nil {
		counters = monitoring.Default
	}

	ring := motion.NewRing(cfg.GetRingCapacity())
	// Knobs whose zero is a valid override (cooldown, gate, auto-save score)
	// are handed down as set or unset, not as resolved values, so an explicit
	// zero in the config survives to the stage that honours it.
	return &Pipeline{
		ring: ring,
		segmenter: segment.New(ring, segment.Params{
			TriggerThreshold: cfg.GetTriggerThreshold(),
			CooldownMs:       cfg.CooldownMs,
			WindowLength:     cfg.GetWindowLength(),
			Counters:         counters,
		}),
		normalizer: features.NewNormalizer(cfg.GetWindowLength(), features.Calibration{}),
		classifier: classify.NewAdapter(engine, cfg.GetConfidenceGate(), counters),
		highlights: highlight.NewBuffer(highlight.Params{
			HorizonMs:     cfg.GetHighlightHorizonMs(),
			SpanMs:        cfg.GetHighlightSpanMs(),
			AutoSaveScore: cfg.AutoSaveScore,
			KeyPointLimit: cfg.GetKeyPointLimit(),
		}),
		store:    st,
		counters: counters,
		samples:  make(chan motion.Sample, 64),
		windows:  make(chan taggedWindow, 8),
		agg:      NewAggregator(),
	}
}

// taggedWindow carries the session generation a window was detected under, so
// stale work is discarded after a session ends.
type taggedWindow struct {
	window    motion.Window
	sessionID string
}

// SetOutcomeHandler registers the outcome callback.
func (p *Pipeline) SetOutcomeHandler(h OutcomeHandler) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.onOutcome = h
}

// Start launches the ingest and worker goroutines.
func (p *Pipeline) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	p.runCancel = cancel

	p.wg.Add(2)
	go p.ingest(ctx)
	go p.work(ctx)
}

// Stop tears the pipeline down, cancelling any active session first.
func (p *Pipeline) Stop() {
	p.StopSession()
	if p.runCancel != nil {
		p.runCancel()
	}
	p.wg.Wait()
}

// HandleSample is the producer entry point, called from the link layer for
// every decoded sample. It never blocks the receive path: the bounded channel
// plus the ring's FIFO eviction are the backpressure mechanism, so overload
// silently sheds the oldest data instead of stalling the transport.
func (p *Pipeline) HandleSample(s motion.Sample) {
	select {
	case p.samples <- s:
	default:
		p.counters.FramesDropped.Add(1)
	}
}

// ObserveHeartRate records a concurrent heart-rate reading for highlight
// metadata.
func (p *Pipeline) ObserveHeartRate(bpm int) {
	p.highlights.ObserveHeartRate(bpm)
}

// StartSession begins a new session bound to the given device and returns the
// session ID. Any previous session is stopped first. An empty deviceID is
// valid when the frame source has no address, replay for instance.
func (p *Pipeline) StartSession(deviceID string) string {
	p.StopSession()

	ctx, cancel := context.WithCancel(context.Background())
	id := uuid.NewString()

	p.mu.Lock()
	p.sessionID = id
	p.sessionCtx = ctx
	p.sessionCancel = cancel
	p.active = true
	p.lastOutcome = nil
	p.agg.Reset(id)
	st := p.store
	p.mu.Unlock()

	if st != nil {
		if err := st.BeginSession(ctx, id, deviceID, time.Now()); err != nil {
			monitoring.Logf("pipeline: failed to persist session start: %v", err)
		}
	}
	monitoring.Logf("pipeline: session %s started", id)
	return id
}

// StopSession ends the active session. In-flight windows detected under it
// are discarded by the worker rather than surfacing stale outcomes.
func (p *Pipeline) StopSession() {
	p.mu.Lock()
	if !p.active {
		p.mu.Unlock()
		return
	}
	p.active = false
	id := p.sessionID
	cancel := p.sessionCancel
	stats := p.agg.Snapshot()
	st := p.store
	p.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if st != nil {
		// The session context is already cancelled; closing the record is
		// bookkeeping that should still happen.
		if err := st.EndSession(context.Background(), id, stats); err != nil {
			monitoring.Logf("pipeline: failed to persist session end: %v", err)
		}
	}
	monitoring.Logf("pipeline: session %s stopped (%d strokes)", id, stats.StrokeCount)
}

// Stats returns a snapshot of the running session aggregates.
func (p *Pipeline) Stats() SessionStats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.agg.Snapshot()
}

// MarkHighlight captures a manual highlight around the most recent motion,
// sharing the exact code path of automatic capture apart from the AutoSaved
// flag.
func (p *Pipeline) MarkHighlight() (highlight.Entry, bool) {
	recent := p.ring.Recent(1)
	if len(recent) == 0 {
		return highlight.Entry{}, false
	}

	p.mu.Lock()
	outcome := score.Outcome{Stroke: classify.Unknown}
	if p.lastOutcome != nil {
		outcome = *p.lastOutcome
	}
	id := p.sessionID
	ctx := p.sessionCtx
	st := p.store
	active := p.active
	p.mu.Unlock()

	entry, ok := p.highlights.CreateHighlight(recent[0].TimestampMs, outcome, false)
	if !ok {
		return highlight.Entry{}, false
	}
	if st != nil && active {
		if err := st.SaveHighlight(ctx, id, entry); err != nil {
			monitoring.Logf("pipeline: failed to persist manual highlight: %v", err)
		}
	}
	p.counters.HighlightsSaved.Add(1)
	return entry, true
}

// ingest is the single writer for both buffers. Decoding order is delivery
// order, so pushes are strictly sequential per link.
func (p *Pipeline) ingest(ctx context.Context) {
	defer p.wg.Done()
	defer close(p.windows)

	for {
		select {
		case <-ctx.Done():
			return
		case s := <-p.samples:
			p.ring.Push(s)
			p.highlights.Record(s)

			w, ok := p.segmenter.Observe(s)
			if !ok {
				continue
			}
			p.mu.Lock()
			id := p.sessionID
			active := p.active
			p.mu.Unlock()
			if !active {
				continue
			}
			select {
			case p.windows <- taggedWindow{window: w, sessionID: id}:
			case <-ctx.Done():
				return
			}
		}
	}
}

// work drains detected windows in arrival order.
func (p *Pipeline) work(ctx context.Context) {
	defer p.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case tw, ok := <-p.windows:
			if !ok {
				return
			}
			p.process(tw)
		}
	}
}

// process turns one window into exactly one outcome attempt. Classification
// failure degrades inside the adapter; the only discard path is a session
// that ended while the window was in flight.
func (p *Pipeline) process(tw taggedWindow) {
	fixed := p.normalizer.Normalize(tw.window)
	result := p.classifier.Classify(fixed)
	outcome := score.Evaluate(tw.window, result)

	p.mu.Lock()
	if !p.active || p.sessionID != tw.sessionID {
		p.counters.OutcomesDiscarded.Add(1)
		p.mu.Unlock()
		return
	}
	id := p.sessionID
	ctx := p.sessionCtx
	st := p.store
	handler := p.onOutcome
	p.agg.Observe(outcome)
	o := outcome
	p.lastOutcome = &o
	p.mu.Unlock()

	p.counters.OutcomesEmitted.Add(1)
	if handler != nil {
		handler(outcome)
	}
	if st != nil {
		if err := st.SaveOutcome(ctx, id, outcome); err != nil {
			monitoring.Logf("pipeline: failed to persist outcome: %v", err)
		}
	}

	if p.highlights.ShouldAutoSave(outcome.Score) {
		eventTs := tw.window.Samples[len(tw.window.Samples)-1].TimestampMs
		entry, ok := p.highlights.CreateHighlight(eventTs, outcome, true)
		if !ok {
			return
		}
		p.counters.HighlightsSaved.Add(1)
		if st != nil {
			if err := st.SaveHighlight(ctx, id, entry); err != nil {
				monitoring.Logf("pipeline: failed to persist highlight: %v", err)
			}
		}
	}
}
