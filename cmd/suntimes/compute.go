package main

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"suntimes/internal/config"
	"suntimes/internal/ics"
	appLog "suntimes/internal/log"
	"suntimes/internal/model"
	"suntimes/internal/schedule"
	"suntimes/internal/solar"
)

type computeFlags struct {
	date   string
	lat    float64
	lon    float64
	tz     string
	offset int
	days   int
	ics    bool
}

var computeOpts computeFlags

var computeCmd = &cobra.Command{
	Use:   "compute",
	Short: "Print sunrise and sunset for one or more dates",
	Example: `  suntimes compute --date 2023-06-21 --lat 40.7128 --lon -74.006 --tz America/New_York
  suntimes compute --lat 80 --lon 15 --offset 60 --days 7`,
	Args: cobra.NoArgs,
	RunE: runCompute,
}

func init() {
	f := computeCmd.Flags()
	f.StringVar(&computeOpts.date, "date", "", "First date, YYYY-MM-DD (default: today)")
	f.Float64Var(&computeOpts.lat, "lat", 0, "Latitude in degrees (default: configured location)")
	f.Float64Var(&computeOpts.lon, "lon", 0, "Longitude in degrees (default: configured location)")
	f.StringVar(&computeOpts.tz, "tz", "", "IANA timezone (default: configured timezone)")
	f.IntVar(&computeOpts.offset, "offset", 0, "Fixed UTC offset in minutes; overrides --tz")
	f.IntVar(&computeOpts.days, "days", 1, "Number of consecutive dates")
	f.BoolVar(&computeOpts.ics, "ics", false, "Write an iCalendar feed instead of a table")
}

func runCompute(cmd *cobra.Command, _ []string) error {
	conf, err := config.Load(configPath)
	if conf == nil {
		return err
	}
	if err != nil {
		appLog.Debug("using default config", "path", configPath, "reason", err.Error())
	}
	if err := conf.ApplyEnv(); err != nil {
		return err
	}

	flags := cmd.Flags()
	coord := conf.Location.Coordinate()
	if flags.Changed("lat") {
		coord.Latitude = computeOpts.lat
	}
	if flags.Changed("lon") {
		coord.Longitude = computeOpts.lon
	}

	var loc *time.Location
	switch {
	case flags.Changed("offset"):
		loc = time.FixedZone(fmt.Sprintf("UTC%+03d:%02d", computeOpts.offset/60, abs(computeOpts.offset%60)), computeOpts.offset*60)
	case computeOpts.tz != "":
		if loc, err = time.LoadLocation(computeOpts.tz); err != nil {
			return fmt.Errorf("timezone %q: %w", computeOpts.tz, err)
		}
	default:
		if loc, err = conf.TimeLocation(); err != nil {
			return fmt.Errorf("timezone %q: %w", conf.Timezone, err)
		}
	}

	planner, err := schedule.NewPlanner(loc, coord, conf.Sunrise, conf.Sunset)
	if err != nil {
		return err
	}

	from := planner.Today(time.Now())
	if computeOpts.date != "" {
		if from, err = solar.ParseCivilDate(computeOpts.date); err != nil {
			return err
		}
	}

	out := cmd.OutOrStdout()
	if computeOpts.ics {
		events, err := planner.Events(from, computeOpts.days)
		if err != nil {
			return err
		}
		_, err = out.Write(ics.Render(events, ics.Options{
			Name:         "Sunrise & sunset",
			LocationName: conf.Location.Name,
			Timezone:     loc.String(),
		}))
		return err
	}

	dates, err := schedule.Dates(from, computeOpts.days)
	if err != nil {
		return err
	}
	return printTable(out, dates, coord, loc, conf.TimeFormat24h)
}

func printTable(w io.Writer, dates []solar.CivilDate, coord solar.Coordinate, loc *time.Location, h24 bool) error {
	if _, err := fmt.Fprintf(w, "location %s  zone %s\n", coord, loc); err != nil {
		return err
	}
	for _, d := range dates {
		offset := schedule.OffsetMinutes(d, loc)
		times := solar.Compute(d, coord, offset)
		noon := solar.SolarNoon(d, coord, offset)

		length := "-"
		if dl, ok := times.DayLength(); ok {
			length = dl.String()
		}
		_, err := fmt.Fprintf(w, "%s  %s %s  %s %s  noon %s  day %s\n",
			d,
			model.Sunrise.Title(), clockOrAbsent(times.Sunrise, h24),
			model.Sunset.Title(), clockOrAbsent(times.Sunset, h24),
			schedule.FormatClock(noon, h24),
			length,
		)
		if err != nil {
			return err
		}
	}
	return nil
}

func clockOrAbsent(sec *int, h24 bool) string {
	if sec == nil {
		return "none"
	}
	return schedule.FormatClock(*sec, h24)
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
