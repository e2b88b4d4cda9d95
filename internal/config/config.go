// Package config holds the tuning surface for the stroke pipeline. The JSON
// schema uses pointer fields so partial configs are safe: omitted fields fall
// back to the documented defaults via the Get* accessors.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Config is the root tuning configuration. All values are overridable at
// construction; invalid values fail fast in Validate rather than at runtime.
type Config struct {
	// Segmentation params
	WindowLength     *int     `json:"window_length,omitempty"`     // samples per emitted window
	TriggerThreshold *float64 `json:"trigger_threshold,omitempty"` // accel magnitude, m/s²
	CooldownMs       *int     `json:"cooldown_ms,omitempty"`       // debounce between triggers
	RingCapacity     *int     `json:"ring_capacity,omitempty"`     // detection ring size, samples
	SampleRateHz     *int     `json:"sample_rate_hz,omitempty"`    // nominal sensor rate

	// Classification params
	ConfidenceGate *float64 `json:"confidence_gate,omitempty"` // min probability for a known label

	// Highlight params
	AutoSaveScore      *int `json:"auto_save_score,omitempty"`      // min score for auto capture
	HighlightHorizonMs *int `json:"highlight_horizon_ms,omitempty"` // highlight buffer span
	HighlightSpanMs    *int `json:"highlight_span_ms,omitempty"`    // ± extraction window around an event
	KeyPointLimit      *int `json:"key_point_limit,omitempty"`      // cap on summary key points

	// Link params
	MaxReconnectAttempts *int `json:"max_reconnect_attempts,omitempty"`
	ReconnectDelayMs     *int `json:"reconnect_delay_ms,omitempty"`
	BadFrameWarnStreak   *int `json:"bad_frame_warn_streak,omitempty"` // consecutive bad frames before a warning
}

// Empty returns a Config with all fields unset; every accessor then reports
// its default.
func Empty() *Config {
	return &Config{}
}

// Load reads a Config from a JSON file. Fields omitted from the file retain
// their defaults, so partial configs are safe.
func Load(path string) (*Config, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Empty()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks that all set values are usable. Construction-time failure is
// deliberate: a negative cooldown or an out-of-range gate must never reach the
// running pipeline.
func (c *Config) Validate() error {
	if c.WindowLength != nil && *c.WindowLength <= 0 {
		return fmt.Errorf("window_length must be positive, got %d", *c.WindowLength)
	}
	if c.TriggerThreshold != nil && *c.TriggerThreshold <= 0 {
		return fmt.Errorf("trigger_threshold must be positive, got %f", *c.TriggerThreshold)
	}
	if c.CooldownMs != nil && *c.CooldownMs < 0 {
		return fmt.Errorf("cooldown_ms must be non-negative, got %d", *c.CooldownMs)
	}
	if c.RingCapacity != nil && *c.RingCapacity <= 0 {
		return fmt.Errorf("ring_capacity must be positive, got %d", *c.RingCapacity)
	}
	if c.SampleRateHz != nil && *c.SampleRateHz <= 0 {
		return fmt.Errorf("sample_rate_hz must be positive, got %d", *c.SampleRateHz)
	}
	if c.ConfidenceGate != nil && (*c.ConfidenceGate < 0 || *c.ConfidenceGate > 1) {
		return fmt.Errorf("confidence_gate must be between 0 and 1, got %f", *c.ConfidenceGate)
	}
	if c.AutoSaveScore != nil && (*c.AutoSaveScore < 0 || *c.AutoSaveScore > 10) {
		return fmt.Errorf("auto_save_score must be between 0 and 10, got %d", *c.AutoSaveScore)
	}
	if c.HighlightHorizonMs != nil && *c.HighlightHorizonMs <= 0 {
		return fmt.Errorf("highlight_horizon_ms must be positive, got %d", *c.HighlightHorizonMs)
	}
	if c.HighlightSpanMs != nil && *c.HighlightSpanMs <= 0 {
		return fmt.Errorf("highlight_span_ms must be positive, got %d", *c.HighlightSpanMs)
	}
	if c.KeyPointLimit != nil && *c.KeyPointLimit <= 0 {
		return fmt.Errorf("key_point_limit must be positive, got %d", *c.KeyPointLimit)
	}
	if c.MaxReconnectAttempts != nil && *c.MaxReconnectAttempts < 0 {
		return fmt.Errorf("max_reconnect_attempts must be non-negative, got %d", *c.MaxReconnectAttempts)
	}
	if c.ReconnectDelayMs != nil && *c.ReconnectDelayMs < 0 {
		return fmt.Errorf("reconnect_delay_ms must be non-negative, got %d", *c.ReconnectDelayMs)
	}
	if c.BadFrameWarnStreak != nil && *c.BadFrameWarnStreak <= 0 {
		return fmt.Errorf("bad_frame_warn_streak must be positive, got %d", *c.BadFrameWarnStreak)
	}
	return nil
}

// GetWindowLength returns the window_length value or the default.
func (c *Config) GetWindowLength() int {
	if c.WindowLength == nil {
		return 50
	}
	return *c.WindowLength
}

// GetTriggerThreshold returns the trigger_threshold value or the default.
func (c *Config) GetTriggerThreshold() float64 {
	if c.TriggerThreshold == nil {
		return 15.0
	}
	return *c.TriggerThreshold
}

// GetCooldownMs returns the cooldown_ms value or the default.
func (c *Config) GetCooldownMs() int {
	if c.CooldownMs == nil {
		return 500
	}
	return *c.CooldownMs
}

// GetRingCapacity returns the ring_capacity value or the default
// (five seconds at the nominal sample rate).
func (c *Config) GetRingCapacity() int {
	if c.RingCapacity == nil {
		return 5 * c.GetSampleRateHz()
	}
	return *c.RingCapacity
}

// GetSampleRateHz returns the sample_rate_hz value or the default.
func (c *Config) GetSampleRateHz() int {
	if c.SampleRateHz == nil {
		return 20
	}
	return *c.SampleRateHz
}

// GetConfidenceGate returns the confidence_gate value or the default.
func (c *Config) GetConfidenceGate() float64 {
	if c.ConfidenceGate == nil {
		return 0.3
	}
	return *c.ConfidenceGate
}

// GetAutoSaveScore returns the auto_save_score value or the default.
func (c *Config) GetAutoSaveScore() int {
	if c.AutoSaveScore == nil {
		return 8
	}
	return *c.AutoSaveScore
}

// GetHighlightHorizonMs returns the highlight_horizon_ms value or the default.
func (c *Config) GetHighlightHorizonMs() int {
	if c.HighlightHorizonMs == nil {
		return 180000
	}
	return *c.HighlightHorizonMs
}

// GetHighlightSpanMs returns the highlight_span_ms value or the default.
func (c *Config) GetHighlightSpanMs() int {
	if c.HighlightSpanMs == nil {
		return 5000
	}
	return *c.HighlightSpanMs
}

// GetKeyPointLimit returns the key_point_limit value or the default.
func (c *Config) GetKeyPointLimit() int {
	if c.KeyPointLimit == nil {
		return 10
	}
	return *c.KeyPointLimit
}

// GetMaxReconnectAttempts returns the max_reconnect_attempts value or the default.
func (c *Config) GetMaxReconnectAttempts() int {
	if c.MaxReconnectAttempts == nil {
		return 5
	}
	return *c.MaxReconnectAttempts
}

// GetReconnectDelayMs returns the reconnect_delay_ms value or the default.
func (c *Config) GetReconnectDelayMs() int {
	if c.ReconnectDelayMs == nil {
		return 2000
	}
	return *c.ReconnectDelayMs
}

// GetBadFrameWarnStreak returns the bad_frame_warn_streak value or the default.
func (c *Config) GetBadFrameWarnStreak() int {
	if c.BadFrameWarnStreak == nil {
		return 50
	}
	return *c.BadFrameWarnStreak
}
