package solar_test

import (
	"sync"
	"testing"
	"time"

	"github.com/mooncaker816/learnmeeus/v3/julian"
	"github.com/mooncaker816/learnmeeus/v3/solstice"
	"github.com/nathan-osman/go-sunrise"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"suntimes/internal/solar"
)

var newYork = solar.Coordinate{Latitude: 40.7128, Longitude: -74.0060}

func clock(h, m int) int { return h*3600 + m*60 }

func TestComputeNewYorkSolstice(t *testing.T) {
	got := solar.Compute(solar.NewCivilDate(2023, time.June, 21), newYork, -240)
	require.True(t, got.HasSunrise(), "sunrise missing")
	require.True(t, got.HasSunset(), "sunset missing")

	assert.InDelta(t, clock(5, 24), *got.Sunrise, 5*60)
	assert.InDelta(t, clock(20, 30), *got.Sunset, 5*60)
}

func TestComputeDeterministic(t *testing.T) {
	date := solar.NewCivilDate(2024, time.March, 3)
	coord := solar.Coordinate{Latitude: 51.5074, Longitude: -0.1278}
	first := solar.Compute(date, coord, 0)
	require.True(t, first.HasSunrise())

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got := solar.Compute(date, coord, 0)
			assert.Equal(t, *first.Sunrise, *got.Sunrise)
			assert.Equal(t, *first.Sunset, *got.Sunset)
		}()
	}
	wg.Wait()
}

func TestComputePolar(t *testing.T) {
	arctic := solar.Coordinate{Latitude: 80, Longitude: 15}
	for _, year := range []int{2022, 2023, 2024} {
		june := jdeDate(solstice.June(year))
		got := solar.Compute(june, arctic, 120)
		assert.False(t, got.HasSunset(), "midnight sun expected on %v", june)

		december := jdeDate(solstice.December(year))
		got = solar.Compute(december, arctic, 60)
		assert.False(t, got.HasSunrise(), "polar night expected on %v", december)
	}

	// The southern hemisphere mirrors the seasons.
	antarctic := solar.Coordinate{Latitude: -80, Longitude: 0}
	got := solar.Compute(solar.NewCivilDate(2023, time.June, 21), antarctic, 0)
	assert.False(t, got.HasSunrise())

	pole := solar.Coordinate{Latitude: 90, Longitude: 0}
	got = solar.Compute(solar.NewCivilDate(2023, time.June, 21), pole, 0)
	assert.Equal(t, solar.SolarTimes{}, got)
}

func jdeDate(jde float64) solar.CivilDate {
	y, m, d := julian.JDToCalendar(jde)
	return solar.NewCivilDate(y, time.Month(m), int(d))
}

func TestComputeSymmetricAroundNoon(t *testing.T) {
	cases := []struct {
		name   string
		date   solar.CivilDate
		coord  solar.Coordinate
		offset int
	}{
		{"new york summer", solar.NewCivilDate(2023, time.June, 21), newYork, -240},
		{"sydney winter", solar.NewCivilDate(2023, time.June, 21), solar.Coordinate{Latitude: -33.8688, Longitude: 151.2093}, 600},
		{"quito equinox", solar.NewCivilDate(2024, time.March, 20), solar.Coordinate{Latitude: -0.1807, Longitude: -78.4678}, -300},
		{"reykjavik autumn", solar.NewCivilDate(2024, time.October, 1), solar.Coordinate{Latitude: 64.1466, Longitude: -21.9426}, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := solar.Compute(tc.date, tc.coord, tc.offset)
			require.True(t, got.HasSunrise())
			require.True(t, got.HasSunset())
			noon := solar.SolarNoon(tc.date, tc.coord, tc.offset)

			morning := noon - *got.Sunrise
			evening := *got.Sunset - noon
			assert.InDelta(t, morning, evening, 2)
		})
	}
}

func TestDayLengthTrend(t *testing.T) {
	cases := []struct {
		coord  solar.Coordinate
		offset int
	}{
		{newYork, -300},
		{solar.Coordinate{Latitude: 48.8566, Longitude: 2.3522}, 60},
		{solar.Coordinate{Latitude: 35.6762, Longitude: 139.6503}, 540},
	}
	for _, tc := range cases {
		summer, ok := solar.Compute(solar.NewCivilDate(2023, time.June, 21), tc.coord, tc.offset).DayLength()
		require.True(t, ok)
		winter, ok := solar.Compute(solar.NewCivilDate(2023, time.December, 21), tc.coord, tc.offset).DayLength()
		require.True(t, ok)
		assert.Greater(t, summer, winter, "coordinate %v", tc.coord)
	}
}

func TestComputeOffsetShift(t *testing.T) {
	date := solar.NewCivilDate(2023, time.September, 14)
	base := solar.Compute(date, newYork, -300)
	shifted := solar.Compute(date, newYork, -240)
	require.True(t, base.HasSunrise() && shifted.HasSunrise())
	require.True(t, base.HasSunset() && shifted.HasSunset())

	assert.InDelta(t, *base.Sunrise+3600, *shifted.Sunrise, 1)
	assert.InDelta(t, *base.Sunset+3600, *shifted.Sunset, 1)
}

func TestComputeOutOfDayIsAbsent(t *testing.T) {
	// Tokyo evaluated at UTC-9 pushes sunrise before local midnight.
	tokyo := solar.Coordinate{Latitude: 35.6762, Longitude: 139.6503}
	got := solar.Compute(solar.NewCivilDate(2023, time.June, 21), tokyo, -9*60)
	assert.False(t, got.HasSunrise())
	assert.True(t, got.HasSunset())
}

// TestComputeAgainstReference compares against an independent implementation
// of the sunrise equation; both should agree to within a few minutes.
func TestComputeAgainstReference(t *testing.T) {
	cases := []struct {
		coord  solar.Coordinate
		date   solar.CivilDate
		offset int
	}{
		{newYork, solar.NewCivilDate(2023, time.June, 21), -240},
		{newYork, solar.NewCivilDate(2023, time.December, 21), -300},
		{solar.Coordinate{Latitude: 37.3229978, Longitude: -122.0321823}, solar.NewCivilDate(2024, time.January, 1), -480},
		{solar.Coordinate{Latitude: -33.8688, Longitude: 151.2093}, solar.NewCivilDate(2024, time.April, 9), 600},
		{solar.Coordinate{Latitude: 1.3521, Longitude: 103.8198}, solar.NewCivilDate(2025, time.August, 30), 480},
	}
	for _, tc := range cases {
		got := solar.Compute(tc.date, tc.coord, tc.offset)
		require.True(t, got.HasSunrise() && got.HasSunset(), "%v at %v", tc.date, tc.coord)

		wantRise, wantSet := sunrise.SunriseSunset(tc.coord.Latitude, tc.coord.Longitude, tc.date.Year, tc.date.Month, tc.date.Day)
		midnight := tc.date.Midnight(time.FixedZone("", tc.offset*60))
		rise := midnight.Add(time.Duration(*got.Sunrise) * time.Second)
		set := midnight.Add(time.Duration(*got.Sunset) * time.Second)

		// The reference anchors on the UTC date, which can be a day off
		// from the local one; compare time of day modulo 24h.
		assert.InDelta(t, 0, wrapDiff(rise, wantRise).Minutes(), 5, "sunrise %v at %v", tc.date, tc.coord)
		assert.InDelta(t, 0, wrapDiff(set, wantSet).Minutes(), 5, "sunset %v at %v", tc.date, tc.coord)
	}
}

func wrapDiff(a, b time.Time) time.Duration {
	d := a.Sub(b) % (24 * time.Hour)
	if d > 12*time.Hour {
		d -= 24 * time.Hour
	}
	if d < -12*time.Hour {
		d += 24 * time.Hour
	}
	return d
}

func TestJulianDay(t *testing.T) {
	assert.Equal(t, 2451545.0, solar.JulianDay(solar.NewCivilDate(2000, time.January, 1)))
	assert.Equal(t, 0.0, solar.JulianCentury(2451545.0))

	for _, d := range []solar.CivilDate{
		solar.NewCivilDate(1900, time.February, 28),
		solar.NewCivilDate(2000, time.February, 29),
		solar.NewCivilDate(2023, time.June, 21),
		solar.NewCivilDate(2100, time.March, 1),
	} {
		// The integer formula yields the day number at noon.
		want := julian.CalendarGregorianToJD(d.Year, int(d.Month), float64(d.Day)+0.5)
		assert.InDelta(t, want, solar.JulianDay(d), 1e-9, "date %v", d)
	}
}

func TestSolarPositionSeasons(t *testing.T) {
	june := solar.SolarPosition(solar.JulianCentury(solar.JulianDay(solar.NewCivilDate(2023, time.June, 21))))
	assert.InDelta(t, 23.44, june.Declination, 0.1)

	december := solar.SolarPosition(solar.JulianCentury(solar.JulianDay(solar.NewCivilDate(2023, time.December, 21))))
	assert.InDelta(t, -23.44, december.Declination, 0.1)

	// Equation of time peaks near +16 minutes in early November.
	november := solar.SolarPosition(solar.JulianCentury(solar.JulianDay(solar.NewCivilDate(2023, time.November, 3))))
	assert.InDelta(t, 16.4, november.EquationOfTime, 0.5)
}
