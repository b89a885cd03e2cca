package notifications

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Policy selects how events are assigned to bundles.
type Policy string

const (
	PolicyExact   Policy = "exact"   // fixed daily slots
	PolicyPredict Policy = "predict" // adaptive gap thresholds
)

// ErrInvalidPolicy is returned for any policy other than exact or predict.
var ErrInvalidPolicy = errors.New("invalid policy")

// ParsePolicy validates a policy selector.
func ParsePolicy(s string) (Policy, error) {
	switch p := Policy(strings.ToLower(strings.TrimSpace(s))); p {
	case PolicyExact, PolicyPredict:
		return p, nil
	}
	return "", fmt.Errorf("%w %q: must be %q or %q", ErrInvalidPolicy, s, PolicyExact, PolicyPredict)
}

// Thresholds parametrises the predict policy: the minimum gap, in minutes,
// that starts a new bundle, keyed by time of day and how many distinct
// friends the receiver has across the whole dataset.
type Thresholds struct {
	// Daytime is DayStartHour < h < DayEndHour; everything else is night.
	DayStartHour  int `yaml:"day_start_hour"`
	DayEndHour    int `yaml:"day_end_hour"`
	BreadthCutoff int `yaml:"friend_breadth_cutoff"` // friend_count >= cutoff is "high"

	DayLow    int `yaml:"day_low"`
	DayHigh   int `yaml:"day_high"`
	NightLow  int `yaml:"night_low"`
	NightHigh int `yaml:"night_high"`
}

// DefaultThresholds returns the production threshold table.
func DefaultThresholds() Thresholds {
	return Thresholds{
		DayStartHour:  5,
		DayEndHour:    20,
		BreadthCutoff: 5,
		DayLow:        37,
		DayHigh:       98,
		NightLow:      22,
		NightHigh:     49,
	}
}

// For returns the threshold in minutes for an event at hour h whose receiver
// has friendCount distinct friends.
func (t Thresholds) For(h, friendCount int) int {
	high := friendCount >= t.BreadthCutoff
	if t.DayStartHour < h && h < t.DayEndHour {
		if high {
			return t.DayHigh
		}
		return t.DayLow
	}
	if high {
		return t.NightHigh
	}
	return t.NightLow
}

// Validate reports whether the table is usable.
func (t Thresholds) Validate() error {
	if t.DayStartHour < 0 || t.DayEndHour > 24 || t.DayStartHour >= t.DayEndHour {
		return fmt.Errorf("daytime window (%d, %d) must satisfy 0 <= start < end <= 24", t.DayStartHour, t.DayEndHour)
	}
	if t.BreadthCutoff < 1 {
		return fmt.Errorf("friend_breadth_cutoff must be at least 1, got %d", t.BreadthCutoff)
	}
	for name, v := range map[string]int{
		"day_low": t.DayLow, "day_high": t.DayHigh,
		"night_low": t.NightLow, "night_high": t.NightHigh,
	} {
		if v < 0 {
			return fmt.Errorf("%s must not be negative, got %d", name, v)
		}
	}
	return nil
}

// LoadThresholds reads a YAML file over the defaults. Keys missing from the
// file keep their default values. An empty path returns the defaults.
func LoadThresholds(path string) (Thresholds, error) {
	t := DefaultThresholds()
	if path == "" {
		return t, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return t, fmt.Errorf("read thresholds: %w", err)
	}
	if err := yaml.Unmarshal(b, &t); err != nil {
		return t, fmt.Errorf("parse thresholds %s: %w", path, err)
	}
	if err := t.Validate(); err != nil {
		return t, fmt.Errorf("thresholds %s: %w", path, err)
	}
	return t, nil
}
