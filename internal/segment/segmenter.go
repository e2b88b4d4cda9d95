// Package segment locates swing onset inside the continuous sample stream and
// cuts fixed-length motion windows for classification.
package segment

import (
	"github.com/racketlab/swingtrace/internal/monitoring"
	"github.com/racketlab/swingtrace/internal/motion"
)

// Defaults for the detection parameters.
const (
	DefaultTriggerThreshold = 15.0
	DefaultCooldownMs       = 500
	DefaultWindowLength     = 50
)

// Segmenter watches the detection ring for acceleration spikes. A window is
// emitted when the magnitude crosses the trigger threshold and the cooldown
// since the previous trigger has elapsed. The cooldown is a deliberate
// debounce: repeated threshold crossings inside it belong to the same swing
// and must not produce a second window.
type Segmenter struct {
	ring       *motion.Ring
	threshold  float64
	cooldownMs uint32
	windowLen  int

	counters *monitoring.Counters

	triggered     bool
	lastTriggerMs uint32
}

// Params configures a Segmenter. Zero values fall back to the defaults,
// except CooldownMs: nil means default, an explicit zero disables the
// debounce entirely.
type Params struct {
	TriggerThreshold float64
	CooldownMs       *int
	WindowLength     int
	Counters         *monitoring.Counters
}

// New creates a Segmenter reading windows out of ring.
func New(ring *motion.Ring, p Params) *Segmenter {
	if p.TriggerThreshold <= 0 {
		p.TriggerThreshold = DefaultTriggerThreshold
	}
	cooldownMs := DefaultCooldownMs
	if p.CooldownMs != nil {
		cooldownMs = *p.CooldownMs
	}
	if p.WindowLength <= 0 {
		p.WindowLength = DefaultWindowLength
	}
	if p.Counters == nil {
		p.Counters = monitoring.Default
	}
	return &Segmenter{
		ring:       ring,
		threshold:  p.TriggerThreshold,
		cooldownMs: uint32(cooldownMs),
		windowLen:  p.WindowLength,
		counters:   p.Counters,
	}
}

// Observe inspects one freshly buffered sample and reports whether it
// completed a swing. Callers must have pushed the sample into the ring before
// observing it, so the emitted window includes the triggering sample.
//
// During cold start the ring may hold fewer samples than the target window;
// the window is emitted short and the normaliser stretches it.
func (s *Segmenter) Observe(sample motion.Sample) (motion.Window, bool) {
	if sample.AccelMagnitude() <= s.threshold {
		return motion.Window{}, false
	}
	if s.triggered && motion.ElapsedMs(s.lastTriggerMs, sample.TimestampMs) < s.cooldownMs {
		return motion.Window{}, false
	}

	s.triggered = true
	s.lastTriggerMs = sample.TimestampMs
	s.counters.WindowsSegmented.Add(1)

	return motion.NewWindow(s.ring.Recent(s.windowLen)), true
}

// Warm reports whether the ring holds at least one full window of samples.
// Early-session windows emitted before warm-up are shorter and may bias
// scores; suppressing them is a caller policy, not enforced here.
func (s *Segmenter) Warm() bool {
	return s.ring.Len() >= s.windowLen
}
