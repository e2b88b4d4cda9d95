// Package highlight keeps the long-horizon motion record from which notable
// swings are materialised as replayable highlight entries.
package highlight

import (
	"sort"
	"sync"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/stat"

	"github.com/racketlab/swingtrace/internal/classify"
	"github.com/racketlab/swingtrace/internal/motion"
	"github.com/racketlab/swingtrace/internal/score"
)

// Defaults for the capture parameters.
const (
	DefaultHorizonMs     = 180000 // three minutes
	DefaultSpanMs        = 5000   // ± around the event timestamp
	DefaultAutoSaveScore = 8
	DefaultKeyPointLimit = 10
)

// KeyPoint marks a notable instant inside a highlight.
type KeyPoint struct {
	OffsetMs       uint32  `json:"offset_ms"` // from the start of the extracted span
	AccelMagnitude float64 `json:"accel_magnitude"`
}

// MotionSummary aggregates the extracted span.
type MotionSummary struct {
	PeakAcceleration   float64    `json:"peak_acceleration"`
	AvgAngularVelocity float64    `json:"avg_angular_velocity"`
	DurationMs         uint32     `json:"duration_ms"`
	KeyPoints          []KeyPoint `json:"key_points"` // bounded, highest-acceleration instants
}

// Entry is one materialised highlight, handed to the persistence collaborator.
// Lifetime beyond the highlight horizon is the collaborator's concern.
type Entry struct {
	ID           string
	TimestampMs  uint32
	Stroke       classify.StrokeType
	Score        int
	Confidence   float32
	HeartRateBpm int // 0 when no reading was available
	AutoSaved    bool
	Summary      MotionSummary
}

// record pairs a sample with whatever was concurrently known.
type record struct {
	sample    motion.Sample
	heartRate int
}

// Buffer is the second, independent circular store. Every sample feeds it
// unconditionally; entries older than the horizon are evicted on insert. All
// reads hand out copies, never references into live storage.
type Buffer struct {
	mu            sync.Mutex
	horizonMs     uint32
	spanMs        uint32
	autoSaveScore int
	keyPointLimit int

	records       []record
	lastHeartRate int
}

// Params configures a Buffer. Zero values fall back to the defaults, except
// AutoSaveScore: nil means default, an explicit zero auto-saves every scored
// stroke.
type Params struct {
	HorizonMs     int
	SpanMs        int
	AutoSaveScore *int
	KeyPointLimit int
}

// NewBuffer creates a highlight buffer.
func NewBuffer(p Params) *Buffer {
	if p.HorizonMs <= 0 {
		p.HorizonMs = DefaultHorizonMs
	}
	if p.SpanMs <= 0 {
		p.SpanMs = DefaultSpanMs
	}
	autoSave := DefaultAutoSaveScore
	if p.AutoSaveScore != nil {
		autoSave = *p.AutoSaveScore
	}
	if p.KeyPointLimit <= 0 {
		p.KeyPointLimit = DefaultKeyPointLimit
	}
	return &Buffer{
		horizonMs:     uint32(p.HorizonMs),
		spanMs:        uint32(p.SpanMs),
		autoSaveScore: autoSave,
		keyPointLimit: p.KeyPointLimit,
	}
}

// Record appends a sample, tagging it with the most recent heart-rate reading
// and evicting everything older than the horizon.
func (b *Buffer) Record(s motion.Sample) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.records = append(b.records, record{sample: s, heartRate: b.lastHeartRate})

	// Evict from the front; records arrive in time order.
	cut := 0
	for cut < len(b.records) &&
		motion.ElapsedMs(b.records[cut].sample.TimestampMs, s.TimestampMs) > b.horizonMs {
		cut++
	}
	if cut > 0 {
		b.records = append(b.records[:0:0], b.records[cut:]...)
	}
}

// ObserveHeartRate records the latest heart-rate reading; subsequent samples
// carry it until a newer reading arrives.
func (b *Buffer) ObserveHeartRate(bpm int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.lastHeartRate = bpm
}

// Len returns the number of buffered records.
func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.records)
}

// ShouldAutoSave is the pure auto-capture threshold check.
func (b *Buffer) ShouldAutoSave(score int) bool {
	return score >= b.autoSaveScore
}

// CreateHighlight extracts the buffered records within the fixed span around
// the event timestamp and returns a highlight entry. Manual and automatic
// capture share this path; only the autoSaved flag differs. The second return
// is false when no buffered motion falls inside the span.
func (b *Buffer) CreateHighlight(eventTimestampMs uint32, outcome score.Outcome, autoSaved bool) (Entry, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	var span []record
	for _, r := range b.records {
		if withinSpan(r.sample.TimestampMs, eventTimestampMs, b.spanMs) {
			span = append(span, r)
		}
	}
	if len(span) == 0 {
		return Entry{}, false
	}

	entry := Entry{
		ID:           uuid.NewString(),
		TimestampMs:  eventTimestampMs,
		Stroke:       outcome.Stroke,
		Score:        outcome.Score,
		Confidence:   outcome.Confidence,
		HeartRateBpm: span[len(span)-1].heartRate,
		AutoSaved:    autoSaved,
		Summary:      b.summarise(span),
	}
	return entry, true
}

// summarise computes the aggregate motion statistics for the extracted span.
func (b *Buffer) summarise(span []record) MotionSummary {
	start := span[0].sample.TimestampMs
	gyro := make([]float64, len(span))

	var peak float64
	for i, r := range span {
		gyro[i] = r.sample.GyroMagnitude()
		if m := r.sample.AccelMagnitude(); m > peak {
			peak = m
		}
	}

	return MotionSummary{
		PeakAcceleration:   peak,
		AvgAngularVelocity: stat.Mean(gyro, nil),
		DurationMs:         motion.ElapsedMs(start, span[len(span)-1].sample.TimestampMs),
		KeyPoints:          b.keyPoints(span, start),
	}
}

// keyPoints picks the highest-acceleration instants of the span, capped at
// the configured limit and returned in time order.
func (b *Buffer) keyPoints(span []record, start uint32) []KeyPoint {
	points := make([]KeyPoint, len(span))
	for i, r := range span {
		points[i] = KeyPoint{
			OffsetMs:       motion.ElapsedMs(start, r.sample.TimestampMs),
			AccelMagnitude: r.sample.AccelMagnitude(),
		}
	}
	sort.Slice(points, func(i, j int) bool {
		return points[i].AccelMagnitude > points[j].AccelMagnitude
	})
	if len(points) > b.keyPointLimit {
		points = points[:b.keyPointLimit]
	}
	sort.Slice(points, func(i, j int) bool {
		return points[i].OffsetMs < points[j].OffsetMs
	})
	return points
}

// withinSpan reports whether ts falls inside event ± span on the wrapping
// device clock.
func withinSpan(ts, event, span uint32) bool {
	return motion.ElapsedMs(ts, event) <= span || motion.ElapsedMs(event, ts) <= span
}
