package ics

import (
	"fmt"
	"time"

	ical "github.com/arran4/golang-ical"

	appLog "suntimes/internal/log"
	"suntimes/internal/model"
	"suntimes/internal/solar"
)

const productID = "-//suntimes//sun events//EN"

// Options controls calendar-level metadata.
type Options struct {
	// Name is shown by calendar clients as the subscription title.
	Name string
	// LocationName labels each event's LOCATION; the coordinate is used
	// when empty.
	LocationName string
	// Timezone is advertised via X-WR-TIMEZONE. Event times are always UTC.
	Timezone string
	// Stamp is written as DTSTAMP; defaults to time.Now().
	Stamp time.Time
}

// EventUID returns a UID that stays stable across regenerations of the
// feed, so clients update events in place instead of duplicating them.
func EventUID(ev model.SunEvent) string {
	return fmt.Sprintf("%s-%s-%s@suntimes", ev.Type, ev.Date, ev.Coordinate)
}

// BuildCalendar converts sun events to a VCALENDAR with one zero-length
// VEVENT per event.
func BuildCalendar(events []model.SunEvent, opts Options) *ical.Calendar {
	stamp := opts.Stamp
	if stamp.IsZero() {
		stamp = time.Now()
	}

	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId(productID)
	if opts.Name != "" {
		cal.SetXWRCalName(opts.Name)
	}
	if opts.Timezone != "" {
		cal.SetXWRTimezone(opts.Timezone)
	}

	for _, ev := range events {
		ve := cal.AddEvent(EventUID(ev))
		ve.SetDtStampTime(stamp.UTC())
		ve.SetStartAt(ev.At.UTC())
		ve.SetEndAt(ev.At.UTC())
		ve.SetSummary(ev.Type.Title())
		ve.SetDescription(describe(ev))
		ve.SetProperty(ical.ComponentPropertyGeo, geo(ev.Coordinate))
		if opts.LocationName != "" {
			ve.SetLocation(opts.LocationName)
		} else {
			ve.SetLocation(ev.Coordinate.String())
		}
		ve.SetProperty(ical.ComponentPropertyCategories, string(ev.Type))
	}
	return cal
}

// Render serializes the calendar for events.
func Render(events []model.SunEvent, opts Options) []byte {
	cal := BuildCalendar(events, opts)
	out := cal.Serialize()
	appLog.Debug("ics feed rendered", "events", len(events), "bytes", len(out))
	return []byte(out)
}

func describe(ev model.SunEvent) string {
	return fmt.Sprintf("%s on %s at %s (%s)", ev.Type.Title(), ev.Date, ev.At.Format("15:04:05 MST"), ev.Coordinate)
}

func geo(c solar.Coordinate) string {
	return fmt.Sprintf("%.6f;%.6f", c.Latitude, c.Longitude)
}
