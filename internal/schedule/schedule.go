package schedule

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/teambition/rrule-go"

	"suntimes/internal/config"
	appLog "suntimes/internal/log"
	"suntimes/internal/model"
	"suntimes/internal/solar"
)

const (
	// DefaultDays plans today and tomorrow.
	DefaultDays = 2
	maxDays     = 366
)

// OffsetMinutes returns the UTC offset (minutes east) in effect at local
// midnight of date in loc. Seasonal changes later in the day are ignored,
// so every event of one date shares a single offset.
func OffsetMinutes(date solar.CivilDate, loc *time.Location) int {
	_, off := date.Midnight(loc).Zone()
	return off / 60
}

// EventsFor computes the sunrise and sunset of date at coord and resolves
// them to absolute instants in loc. Absent events are omitted.
func EventsFor(date solar.CivilDate, coord solar.Coordinate, loc *time.Location) []model.SunEvent {
	times := solar.Compute(date, coord, OffsetMinutes(date, loc))
	midnight := date.Midnight(loc)

	events := make([]model.SunEvent, 0, 2)
	if times.Sunrise != nil {
		events = append(events, model.SunEvent{
			Date:       date,
			Type:       model.Sunrise,
			At:         midnight.Add(time.Duration(*times.Sunrise) * time.Second),
			Coordinate: coord,
		})
	}
	if times.Sunset != nil {
		events = append(events, model.SunEvent{
			Date:       date,
			Type:       model.Sunset,
			At:         midnight.Add(time.Duration(*times.Sunset) * time.Second),
			Coordinate: coord,
		})
	}
	return events
}

// Dates returns days consecutive civil dates starting at from.
func Dates(from solar.CivilDate, days int) ([]solar.CivilDate, error) {
	if days <= 0 {
		return nil, nil
	}
	if days > maxDays {
		return nil, fmt.Errorf("schedule: %d days exceeds maximum of %d", days, maxDays)
	}
	r, err := rrule.NewRRule(rrule.ROption{
		Freq:    rrule.DAILY,
		Count:   days,
		Dtstart: from.Midnight(time.UTC),
	})
	if err != nil {
		return nil, fmt.Errorf("schedule: daily rule: %w", err)
	}
	all := r.All()
	out := make([]solar.CivilDate, 0, len(all))
	for _, t := range all {
		out = append(out, solar.DateOf(t))
	}
	return out, nil
}

// Planner turns sun events for a fixed location into alert triggers.
type Planner struct {
	loc     *time.Location
	coord   solar.Coordinate
	sunrise model.AlertConfig
	sunset  model.AlertConfig
}

// NewPlanner validates its inputs; the solar core itself assumes valid ones.
func NewPlanner(loc *time.Location, coord solar.Coordinate, sunrise, sunset model.AlertConfig) (*Planner, error) {
	if loc == nil {
		return nil, errors.New("schedule: nil location")
	}
	if err := coord.Validate(); err != nil {
		return nil, err
	}
	return &Planner{loc: loc, coord: coord, sunrise: sunrise, sunset: sunset}, nil
}

// FromConfig builds a Planner from the application configuration.
func FromConfig(cfg *config.Config) (*Planner, error) {
	loc, err := cfg.TimeLocation()
	if err != nil {
		return nil, fmt.Errorf("schedule: timezone %q: %w", cfg.Timezone, err)
	}
	return NewPlanner(loc, cfg.Location.Coordinate(), cfg.Sunrise, cfg.Sunset)
}

func (p *Planner) Location() *time.Location { return p.loc }

func (p *Planner) Coordinate() solar.Coordinate { return p.coord }

// Today returns the current civil date in the planner's location.
func (p *Planner) Today(now time.Time) solar.CivilDate {
	return solar.DateOf(now.In(p.loc))
}

// Events returns all sun events for days dates starting at from, in
// chronological order.
func (p *Planner) Events(from solar.CivilDate, days int) ([]model.SunEvent, error) {
	if err := from.Validate(); err != nil {
		return nil, err
	}
	dates, err := Dates(from, days)
	if err != nil {
		return nil, err
	}
	events := make([]model.SunEvent, 0, 2*len(dates))
	for _, d := range dates {
		events = append(events, EventsFor(d, p.coord, p.loc)...)
	}
	return events, nil
}

// Alerts plans triggers for enabled event types over days dates starting
// with today. Triggers already in the past relative to now are dropped.
func (p *Planner) Alerts(now time.Time, days int) ([]model.Alert, error) {
	events, err := p.Events(p.Today(now), days)
	if err != nil {
		return nil, err
	}
	alerts := make([]model.Alert, 0, len(events))
	for _, ev := range events {
		ac := p.configFor(ev.Type)
		if !ac.Enabled {
			continue
		}
		trigger := ev.At.Add(time.Duration(ac.OffsetMinutes) * time.Minute)
		if trigger.Before(now) {
			continue
		}
		alerts = append(alerts, model.Alert{Event: ev, TriggerAt: trigger})
	}
	sort.SliceStable(alerts, func(i, j int) bool {
		return alerts[i].TriggerAt.Before(alerts[j].TriggerAt)
	})
	appLog.Debug("planned alerts",
		"coordinate", p.coord.String(),
		"timezone", p.loc.String(),
		"days", days,
		"events", len(events),
		"alerts", len(alerts),
	)
	return alerts, nil
}

func (p *Planner) configFor(t model.SunEventType) model.AlertConfig {
	if t == model.Sunrise {
		return p.sunrise
	}
	return p.sunset
}
