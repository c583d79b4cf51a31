package ics

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"
	"strings"

	ical "github.com/arran4/golang-ical"

	appLog "suntimes/internal/log"
	"suntimes/internal/model"
	"suntimes/internal/solar"
)

const uidSuffix = "@suntimes"

// ParseEvents reads a feed produced by Render back into sun events. VEVENTs
// that were not produced by this package are skipped.
func ParseEvents(body []byte) ([]model.SunEvent, error) {
	if len(body) == 0 {
		return nil, errors.New("empty ICS body")
	}

	cal, err := ical.ParseCalendar(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("ics parse: %w", err)
	}

	events := make([]model.SunEvent, 0)
	for _, ve := range cal.Events() {
		ev, perr := parseVEvent(ve)
		if perr != nil {
			// Log and skip this event, but keep parsing others.
			appLog.Debug("ics vevent skipped", "uid", ve.Id(), "reason", perr.Error())
			continue
		}
		events = append(events, ev)
	}
	return events, nil
}

func parseVEvent(ve *ical.VEvent) (model.SunEvent, error) {
	var out model.SunEvent

	uidProp := ve.GetProperty(ical.ComponentPropertyUniqueId)
	if uidProp == nil || uidProp.Value == "" {
		return out, errors.New("missing UID")
	}
	typ, date, coord, err := parseUID(uidProp.Value)
	if err != nil {
		return out, err
	}

	// GetStartAt honours the trailing Z, so At comes back in UTC.
	start, err := ve.GetStartAt()
	if err != nil {
		return out, fmt.Errorf("DTSTART: %w", err)
	}

	out.Type = typ
	out.Date = date
	out.At = start
	out.Coordinate = coord
	return out, nil
}

// parseUID splits "<type>-<YYYY-MM-DD>-<lat>,<lon>@suntimes".
func parseUID(uid string) (model.SunEventType, solar.CivilDate, solar.Coordinate, error) {
	var (
		typ   model.SunEventType
		date  solar.CivilDate
		coord solar.Coordinate
	)
	body, ok := strings.CutSuffix(uid, uidSuffix)
	if !ok {
		return typ, date, coord, fmt.Errorf("foreign UID %q", uid)
	}
	rawType, rest, ok := strings.Cut(body, "-")
	if !ok || len(rest) < len("2006-01-02-") {
		return typ, date, coord, fmt.Errorf("malformed UID %q", uid)
	}
	typ, err := model.ParseSunEventType(rawType)
	if err != nil {
		return typ, date, coord, err
	}
	date, err = solar.ParseCivilDate(rest[:10])
	if err != nil {
		return typ, date, coord, err
	}
	lat, lon, ok := strings.Cut(rest[11:], ",")
	if !ok {
		return typ, date, coord, fmt.Errorf("malformed coordinate in UID %q", uid)
	}
	if coord.Latitude, err = strconv.ParseFloat(lat, 64); err != nil {
		return typ, date, coord, err
	}
	if coord.Longitude, err = strconv.ParseFloat(lon, 64); err != nil {
		return typ, date, coord, err
	}
	return typ, date, coord, nil
}
