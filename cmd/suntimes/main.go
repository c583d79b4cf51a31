package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"suntimes/internal/config"
	appLog "suntimes/internal/log"
)

const version = "0.1.0"

var (
	configPath string
	debug      bool
	logLevel   string
)

var rootCmd = &cobra.Command{
	Use:           "suntimes",
	Short:         "Sunrise and sunset times, alert planning and calendar feeds",
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := config.LoadDotEnv(); err != nil {
			return fmt.Errorf("load .env: %w", err)
		}
		level := appLog.ParseLevel(logLevel)
		if debug {
			level = appLog.LevelDebug
		}
		appLog.SetLevel(level)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		appLog.Sync()
	},
}

func init() {
	defaultPath := os.Getenv(config.EnvConfigPath)
	if defaultPath == "" {
		defaultPath = "/etc/suntimes/config.yaml"
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", defaultPath, "Path to config file")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, error)")

	rootCmd.AddCommand(serveCmd, computeCmd)
}

func main() {
	// Root context with cancellation on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		appLog.Error("suntimes failed", err)
		appLog.Sync()
		stop()
		os.Exit(1)
	}
}

// loadConfig loads the YAML file, applies environment overrides and
// validates the result.
func loadConfig() (*config.Config, error) {
	conf, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config %s: %w", configPath, err)
	}
	if err := conf.ApplyEnv(); err != nil {
		return nil, err
	}
	conf.Normalize()
	if err := conf.Validate(); err != nil {
		return nil, err
	}
	return conf, nil
}
