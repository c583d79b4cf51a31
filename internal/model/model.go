package model

import (
	"fmt"
	"strings"
	"time"

	"suntimes/internal/solar"
)

// SunEventType distinguishes sunrise from sunset.
type SunEventType string

const (
	Sunrise SunEventType = "sunrise"
	Sunset  SunEventType = "sunset"
)

func (t SunEventType) String() string { return string(t) }

// Title returns the human label used in calendar feeds and CLI output.
func (t SunEventType) Title() string {
	switch t {
	case Sunrise:
		return "Sunrise"
	case Sunset:
		return "Sunset"
	default:
		return string(t)
	}
}

// ParseSunEventType accepts "sunrise" or "sunset" in any case.
func ParseSunEventType(s string) (SunEventType, error) {
	switch SunEventType(strings.ToLower(strings.TrimSpace(s))) {
	case Sunrise:
		return Sunrise, nil
	case Sunset:
		return Sunset, nil
	}
	return "", fmt.Errorf("unknown sun event type %q", s)
}

// SunEvent is a single sunrise or sunset resolved to an absolute instant.
type SunEvent struct {
	// Date is the local civil date the event was computed for.
	Date solar.CivilDate
	Type SunEventType
	// At is the event instant in the location used for the computation.
	At time.Time
	// Coordinate is the position the event was computed for.
	Coordinate solar.Coordinate
}

// AlertConfig controls whether an alert fires for one event type and how far
// before (negative) or after (positive) the event it fires.
type AlertConfig struct {
	Enabled       bool `yaml:"enabled" json:"enabled"`
	OffsetMinutes int  `yaml:"offset_minutes" json:"offset_minutes"`
}

// Alert is a planned trigger derived from a SunEvent and its AlertConfig.
type Alert struct {
	Event     SunEvent
	TriggerAt time.Time
}
