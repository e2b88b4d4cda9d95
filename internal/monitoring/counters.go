package monitoring

import "sync/atomic"

// Counters aggregates the per-process observability counters for the ingest
// pipeline. Framing errors are dropped per frame rather than escalated, so the
// counters are the only place sustained garbling becomes visible.
type Counters struct {
	FramesDecoded     atomic.Int64
	FramesDropped     atomic.Int64
	ChecksumFailures  atomic.Int64
	HeaderFailures    atomic.Int64
	LengthFailures    atomic.Int64
	Reconnects        atomic.Int64
	InferenceFailures atomic.Int64
	WindowsSegmented  atomic.Int64
	OutcomesEmitted   atomic.Int64
	OutcomesDiscarded atomic.Int64
	HighlightsSaved   atomic.Int64
}

// Snapshot is an immutable copy of the counter values at one instant.
type Snapshot struct {
	FramesDecoded     int64 `json:"frames_decoded"`
	FramesDropped     int64 `json:"frames_dropped"`
	ChecksumFailures  int64 `json:"checksum_failures"`
	HeaderFailures    int64 `json:"header_failures"`
	LengthFailures    int64 `json:"length_failures"`
	Reconnects        int64 `json:"reconnects"`
	InferenceFailures int64 `json:"inference_failures"`
	WindowsSegmented  int64 `json:"windows_segmented"`
	OutcomesEmitted   int64 `json:"outcomes_emitted"`
	OutcomesDiscarded int64 `json:"outcomes_discarded"`
	HighlightsSaved   int64 `json:"highlights_saved"`
}

// Default is the process-wide counter set used when no explicit instance is
// injected.
var Default = &Counters{}

// Read returns a point-in-time snapshot of all counters.
func (c *Counters) Read() Snapshot {
	return Snapshot{
		FramesDecoded:     c.FramesDecoded.Load(),
		FramesDropped:     c.FramesDropped.Load(),
		ChecksumFailures:  c.ChecksumFailures.Load(),
		HeaderFailures:    c.HeaderFailures.Load(),
		LengthFailures:    c.LengthFailures.Load(),
		Reconnects:        c.Reconnects.Load(),
		InferenceFailures: c.InferenceFailures.Load(),
		WindowsSegmented:  c.WindowsSegmented.Load(),
		OutcomesEmitted:   c.OutcomesEmitted.Load(),
		OutcomesDiscarded: c.OutcomesDiscarded.Load(),
		HighlightsSaved:   c.HighlightsSaved.Load(),
	}
}
