package solar

import (
	"math"
)

// NOTE: This file implements the NOAA solar-position approximation used to
// derive sunrise and sunset. All functions are pure and safe for concurrent
// use; nothing here allocates shared state.

const (
	// secondsPerDay is the length of a civil day used when converting a
	// fraction-of-day into seconds past local midnight.
	secondsPerDay = 86400

	// j2000 is the Julian day of the J2000.0 epoch.
	j2000 = 2451545.0

	// daysPerCentury is the length of a Julian century in days.
	daysPerCentury = 36525.0

	// sunriseZenith is the zenith angle of the sun's centre at sunrise/sunset:
	// 90° plus atmospheric refraction plus the solar disk's angular radius.
	sunriseZenith = 90.833
)

// Position holds the two quantities of the sun's apparent position that the
// sunrise computation needs.
type Position struct {
	// Declination of the sun in degrees.
	Declination float64
	// EquationOfTime in minutes (apparent minus mean solar time).
	EquationOfTime float64
}

// Compute returns the local sunrise and sunset of date at coord for a caller
// resolved UTC offset (minutes east of UTC). It never fails: polar day/night
// and out-of-range results are reported as absent fields.
func Compute(date CivilDate, coord Coordinate, utcOffsetMinutes int) SolarTimes {
	jc := JulianCentury(JulianDay(date))
	pos := SolarPosition(jc)

	ha := hourAngleSunrise(coord.Latitude, pos.Declination)
	if math.IsNaN(ha) {
		return SolarTimes{}
	}

	noon := solarNoonFraction(pos.EquationOfTime, coord.Longitude, utcOffsetMinutes)
	delta := ha * 4.0 / 1440.0

	return SolarTimes{
		Sunrise: fractionToSeconds(noon - delta),
		Sunset:  fractionToSeconds(noon + delta),
	}
}

// SolarNoon returns local solar noon of date at coord as seconds past local
// midnight. Unlike sunrise/sunset it exists on every day, including polar
// day and night.
func SolarNoon(date CivilDate, coord Coordinate, utcOffsetMinutes int) int {
	jc := JulianCentury(JulianDay(date))
	pos := SolarPosition(jc)
	return int(roundHalfUp(solarNoonFraction(pos.EquationOfTime, coord.Longitude, utcOffsetMinutes) * secondsPerDay))
}

// JulianDay converts a proleptic Gregorian date to its (integral, noon based)
// Julian day number.
func JulianDay(date CivilDate) float64 {
	y := date.Year
	m := int(date.Month)
	d := date.Day

	a := (14 - m) / 12
	yp := y + 4800 - a
	mp := m + 12*a - 3

	return float64(d+(153*mp+2)/5+365*yp+yp/4-yp/100+yp/400) - 32045.0
}

// JulianCentury converts a Julian day to Julian centuries since J2000.0.
func JulianCentury(jd float64) float64 {
	return (jd - j2000) / daysPerCentury
}

// SolarPosition computes the sun's declination and the equation of time for
// the Julian century jc.
func SolarPosition(jc float64) Position {
	meanLong := normalizeAngle(280.46646 + jc*(36000.76983+0.0003032*jc))
	meanAnomaly := 357.52911 + jc*(35999.05029-0.0001537*jc)
	eccent := 0.016708634 - jc*(0.000042037+0.0000001267*jc)

	eqOfCenter := math.Sin(rad(meanAnomaly))*(1.914602-jc*(0.004817+0.000014*jc)) +
		math.Sin(rad(2*meanAnomaly))*(0.019993-0.000101*jc) +
		math.Sin(rad(3*meanAnomaly))*0.000289

	trueLong := meanLong + eqOfCenter
	omega := 125.04 - 1934.136*jc
	appLong := trueLong - 0.00569 - 0.00478*math.Sin(rad(omega))

	meanObliq := 23.0 + (26.0+((21.448-jc*(46.815+jc*(0.00059-jc*0.001813)))/60.0))/60.0
	obliqCorr := meanObliq + 0.00256*math.Cos(rad(omega))

	decl := deg(math.Asin(math.Sin(rad(obliqCorr)) * math.Sin(rad(appLong))))

	y := math.Tan(rad(obliqCorr/2)) * math.Tan(rad(obliqCorr/2))
	l0 := rad(meanLong)
	m := rad(meanAnomaly)
	eqTime := 4.0 * deg(y*math.Sin(2*l0)-
		2*eccent*math.Sin(m)+
		4*eccent*y*math.Sin(m)*math.Cos(2*l0)-
		0.5*y*y*math.Sin(4*l0)-
		1.25*eccent*eccent*math.Sin(2*m))

	return Position{Declination: decl, EquationOfTime: eqTime}
}

// hourAngleSunrise returns the sunrise hour angle in degrees, or NaN when the
// sun never crosses the horizon that day.
func hourAngleSunrise(latitude, declination float64) float64 {
	latRad := rad(latitude)
	declRad := rad(declination)
	cosH := (math.Cos(rad(sunriseZenith)) - math.Sin(latRad)*math.Sin(declRad)) /
		(math.Cos(latRad) * math.Cos(declRad))
	if math.IsNaN(cosH) || cosH < -1 || cosH > 1 {
		return math.NaN()
	}
	return deg(math.Acos(cosH))
}

func solarNoonFraction(eqTime, longitude float64, utcOffsetMinutes int) float64 {
	return (720.0 - eqTime - 4*longitude + float64(utcOffsetMinutes)) / 1440.0
}

// fractionToSeconds rounds a fraction of a day to seconds past midnight.
// Values outside [0, 86400] are treated as absent.
func fractionToSeconds(fraction float64) *int {
	s := roundHalfUp(fraction * secondsPerDay)
	if math.IsNaN(s) || s < 0 || s > secondsPerDay {
		return nil
	}
	v := int(s)
	return &v
}

// roundHalfUp rounds to the nearest integer with ties toward +Inf, so a
// fraction a hair before midnight (-0.5s) still lands on 0.
func roundHalfUp(v float64) float64 {
	return math.Floor(v + 0.5)
}

func normalizeAngle(angle float64) float64 {
	r := math.Mod(angle, 360.0)
	if r < 0 {
		r += 360.0
	}
	return r
}

func rad(d float64) float64 { return d * math.Pi / 180.0 }

func deg(r float64) float64 { return r * 180.0 / math.Pi }
