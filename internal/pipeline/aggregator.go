package pipeline

import (
	"time"

	"github.com/racketlab/swingtrace/internal/score"
)

// SessionStats is the running aggregate for one session. All fields are
// copies; snapshots never alias live state.
type SessionStats struct {
	SessionID     string
	StartedAt     time.Time
	StrokeCount   int
	ByType        map[string]int
	AvgScore      float64
	MaxScore      int
	AvgConfidence float64
	StrokesPerMin float64
}

// SessionAggregator accumulates outcomes into per-session statistics. The
// pipeline owns one per session; alternative implementations can feed remote
// stats sinks.
type SessionAggregator interface {
	Reset(sessionID string)
	Observe(o score.Outcome)
	Snapshot() SessionStats
}

// Aggregator is the in-memory SessionAggregator. Callers hold the pipeline
// lock; the aggregator itself is not synchronised.
type Aggregator struct {
	sessionID     string
	startedAt     time.Time
	strokeCount   int
	byType        map[string]int
	scoreSum      int
	maxScore      int
	confidenceSum float64
}

var _ SessionAggregator = (*Aggregator)(nil)

// NewAggregator creates an empty aggregator.
func NewAggregator() *Aggregator {
	return &Aggregator{byType: make(map[string]int)}
}

// Reset clears all aggregates for a new session.
func (a *Aggregator) Reset(sessionID string) {
	a.sessionID = sessionID
	a.startedAt = time.Now()
	a.strokeCount = 0
	a.byType = make(map[string]int)
	a.scoreSum = 0
	a.maxScore = 0
	a.confidenceSum = 0
}

// Observe folds one outcome into the aggregates.
func (a *Aggregator) Observe(o score.Outcome) {
	a.strokeCount++
	a.byType[o.Stroke.String()]++
	a.scoreSum += o.Score
	if o.Score > a.maxScore {
		a.maxScore = o.Score
	}
	a.confidenceSum += float64(o.Confidence)
}

// Snapshot returns an immutable copy of the current aggregates.
func (a *Aggregator) Snapshot() SessionStats {
	byType := make(map[string]int, len(a.byType))
	for k, v := range a.byType {
		byType[k] = v
	}

	stats := SessionStats{
		SessionID:   a.sessionID,
		StartedAt:   a.startedAt,
		StrokeCount: a.strokeCount,
		ByType:      byType,
		MaxScore:    a.maxScore,
	}
	if a.strokeCount > 0 {
		stats.AvgScore = float64(a.scoreSum) / float64(a.strokeCount)
		stats.AvgConfidence = a.confidenceSum / float64(a.strokeCount)
	}
	if !a.startedAt.IsZero() {
		if mins := time.Since(a.startedAt).Minutes(); mins > 0 {
			stats.StrokesPerMin = float64(a.strokeCount) / mins
		}
	}
	return stats
}
