package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	cfgFile   string
	logFormat string
)

var rootCmd = &cobra.Command{
	Use:   "weatherlogd",
	Short: "Weather lookup and weather-log service",
	Long: `weatherlogd resolves free-text locations to coordinates, fetches current
conditions and the 5-day forecast from OpenWeatherMap, collapses sub-daily
forecast samples into one entry per calendar day, and persists weather logs
(location + date range + raw forecast snapshot) in SQLite or PostgreSQL.
It exposes a REST API for live lookups, log CRUD, and JSON/CSV export.`,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file path")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "json", "log format (text or json)")
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
