package solar

import (
	"errors"
	"fmt"
	"math"
	"time"
)

var (
	// ErrInvalidCoordinate is returned by Coordinate.Validate for latitudes
	// outside [-90, 90], longitudes outside [-180, 180] or NaN components.
	ErrInvalidCoordinate = errors.New("solar: invalid coordinate")
	// ErrInvalidDate is returned by CivilDate.Validate for dates that do not
	// exist in the proleptic Gregorian calendar.
	ErrInvalidDate = errors.New("solar: invalid civil date")
)

// Coordinate is a geographic position in degrees.
type Coordinate struct {
	Latitude  float64 `yaml:"latitude" json:"latitude"`
	Longitude float64 `yaml:"longitude" json:"longitude"`
}

// Validate reports whether c is usable as input to Compute.
func (c Coordinate) Validate() error {
	if math.IsNaN(c.Latitude) || c.Latitude < -90 || c.Latitude > 90 {
		return fmt.Errorf("%w: latitude %v", ErrInvalidCoordinate, c.Latitude)
	}
	if math.IsNaN(c.Longitude) || c.Longitude < -180 || c.Longitude > 180 {
		return fmt.Errorf("%w: longitude %v", ErrInvalidCoordinate, c.Longitude)
	}
	return nil
}

func (c Coordinate) String() string {
	return fmt.Sprintf("%.4f,%.4f", c.Latitude, c.Longitude)
}

// CivilDate is a calendar date without a time component.
type CivilDate struct {
	Year  int
	Month time.Month
	Day   int
}

// NewCivilDate is a convenience constructor.
func NewCivilDate(year int, month time.Month, day int) CivilDate {
	return CivilDate{Year: year, Month: month, Day: day}
}

// DateOf returns the civil date of t in t's own location.
func DateOf(t time.Time) CivilDate {
	y, m, d := t.Date()
	return CivilDate{Year: y, Month: m, Day: d}
}

// ParseCivilDate parses a YYYY-MM-DD string.
func ParseCivilDate(s string) (CivilDate, error) {
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return CivilDate{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return DateOf(t), nil
}

// Validate reports whether d names a real day.
func (d CivilDate) Validate() error {
	if d.Month < time.January || d.Month > time.December || d.Day < 1 {
		return fmt.Errorf("%w: %v", ErrInvalidDate, d)
	}
	// time.Date normalizes overflow (Feb 30 -> Mar 2), so a round trip
	// detects days past the end of the month.
	if DateOf(d.Midnight(time.UTC)) != d {
		return fmt.Errorf("%w: %v", ErrInvalidDate, d)
	}
	return nil
}

// Midnight returns the first instant of d in loc.
func (d CivilDate) Midnight(loc *time.Location) time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, loc)
}

// AddDays returns the date n days after d.
func (d CivilDate) AddDays(n int) CivilDate {
	return DateOf(d.Midnight(time.UTC).AddDate(0, 0, n))
}

func (d CivilDate) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

// SolarTimes is the result of Compute. Each field holds seconds past local
// midnight of the input date, or nil when the event does not occur.
type SolarTimes struct {
	Sunrise *int
	Sunset  *int
}

func (s SolarTimes) HasSunrise() bool { return s.Sunrise != nil }

func (s SolarTimes) HasSunset() bool { return s.Sunset != nil }

// DayLength returns sunset minus sunrise when both are present.
func (s SolarTimes) DayLength() (time.Duration, bool) {
	if s.Sunrise == nil || s.Sunset == nil {
		return 0, false
	}
	return time.Duration(*s.Sunset-*s.Sunrise) * time.Second, true
}
