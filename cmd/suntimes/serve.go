package main

import (
	"github.com/spf13/cobra"

	appLog "suntimes/internal/log"
	"suntimes/internal/refresh"
	"suntimes/internal/schedule"
	"suntimes/internal/web"
)

var serveListen string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the refresh scheduler and HTTP API",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveListen, "listen", "", "HTTP listen address (overrides config if set)")
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	conf, err := loadConfig()
	if err != nil {
		return err
	}
	// CLI --listen overrides config file listen if provided.
	if serveListen != "" {
		conf.Listen = serveListen
	}

	appLog.Info("effective config",
		"listen", conf.Listen,
		"timezone", conf.Timezone,
		"location", conf.Location.Coordinate().String(),
		"sunrise_alert", conf.Sunrise.Enabled,
		"sunset_alert", conf.Sunset.Enabled,
		"horizon_days", conf.HorizonDays,
		"refresh", conf.RefreshCron,
	)

	planner, err := schedule.FromConfig(conf)
	if err != nil {
		return err
	}
	runner, err := refresh.NewRunner(planner, conf.RefreshCron, conf.HorizonDays)
	if err != nil {
		return err
	}
	if err := runner.Start(ctx); err != nil {
		return err
	}
	defer runner.Stop()

	srv := web.NewServer(conf, planner, runner)
	if err := web.StartServer(ctx, srv); err != nil {
		return err
	}
	appLog.Info("suntimes exiting")
	return nil
}
