package ics

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"suntimes/internal/model"
	"suntimes/internal/solar"
)

func sampleEvents() []model.SunEvent {
	sydney := solar.Coordinate{Latitude: -33.8688, Longitude: 151.2093}
	date := solar.NewCivilDate(2024, time.April, 9)
	aest := time.FixedZone("AEST", 10*3600)
	return []model.SunEvent{
		{Date: date, Type: model.Sunrise, At: time.Date(2024, time.April, 9, 6, 14, 3, 0, aest), Coordinate: sydney},
		{Date: date, Type: model.Sunset, At: time.Date(2024, time.April, 9, 17, 41, 55, 0, aest), Coordinate: sydney},
	}
}

func TestEventUID(t *testing.T) {
	ev := sampleEvents()[0]
	assert.Equal(t, "sunrise-2024-04-09--33.8688,151.2093@suntimes", EventUID(ev))
}

func TestRenderAndParse(t *testing.T) {
	events := sampleEvents()
	stamp := time.Date(2024, time.April, 1, 0, 0, 0, 0, time.UTC)
	body := Render(events, Options{Name: "Sydney sun", LocationName: "Sydney", Timezone: "Australia/Sydney", Stamp: stamp})

	text := string(body)
	assert.Contains(t, text, "BEGIN:VCALENDAR")
	assert.Contains(t, text, "X-WR-CALNAME:Sydney sun")
	assert.Contains(t, text, "SUMMARY:Sunrise")
	assert.Contains(t, text, "SUMMARY:Sunset")
	assert.Contains(t, text, "DTSTART:20240408T201403Z")
	assert.Equal(t, 2, strings.Count(text, "BEGIN:VEVENT"))

	got, err := ParseEvents(body)
	require.NoError(t, err)
	require.Len(t, got, len(events))
	for i := range events {
		assert.Equal(t, events[i].Type, got[i].Type)
		assert.Equal(t, events[i].Date, got[i].Date)
		assert.Equal(t, events[i].Coordinate, got[i].Coordinate)
		assert.True(t, events[i].At.Equal(got[i].At), "instant %v != %v", events[i].At, got[i].At)
	}
}

func TestParseEventsSkipsForeign(t *testing.T) {
	body := "BEGIN:VCALENDAR\r\nVERSION:2.0\r\nPRODID:-//other//EN\r\n" +
		"BEGIN:VEVENT\r\nUID:meeting-1@example.com\r\nDTSTART:20240101T100000Z\r\nSUMMARY:Standup\r\nEND:VEVENT\r\n" +
		"END:VCALENDAR\r\n"
	got, err := ParseEvents([]byte(body))
	require.NoError(t, err)
	assert.Empty(t, got)

	_, err = ParseEvents(nil)
	assert.Error(t, err)
}

func TestParseUID(t *testing.T) {
	typ, date, coord, err := parseUID("sunset-2023-06-21-40.7128,-74.0060@suntimes")
	require.NoError(t, err)
	assert.Equal(t, model.Sunset, typ)
	assert.Equal(t, solar.NewCivilDate(2023, time.June, 21), date)
	assert.Equal(t, solar.Coordinate{Latitude: 40.7128, Longitude: -74.006}, coord)

	for _, bad := range []string{
		"sunset-2023-06-21-40.7128,-74.0060",
		"noon-2023-06-21-40.7128,-74.0060@suntimes",
		"sunset-2023-13-21-40.7128,-74.0060@suntimes",
		"sunset-2023-06-21-40.7128@suntimes",
		"sunset@suntimes",
	} {
		_, _, _, err := parseUID(bad)
		assert.Error(t, err, bad)
	}
}
