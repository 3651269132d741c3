package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/chikamichka/weatherlogd/internal/config"
	"github.com/chikamichka/weatherlogd/internal/export"
	"github.com/chikamichka/weatherlogd/internal/store"
)

var (
	exportFormat string
	exportOutput string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export stored weather logs as JSON or CSV",
	RunE:  runExport,
}

func init() {
	exportCmd.Flags().StringVar(&exportFormat, "format", export.FormatJSON, "export format (json or csv)")
	exportCmd.Flags().StringVar(&exportOutput, "output", "", "output file (defaults to stdout)")
	rootCmd.AddCommand(exportCmd)
}

func runExport(cmd *cobra.Command, args []string) error {
	setupLogging()

	if exportFormat != export.FormatJSON && exportFormat != export.FormatCSV {
		return fmt.Errorf("unsupported export format %q (json or csv)", exportFormat)
	}

	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}

	var s store.Store
	switch cfg.Storage.Driver {
	case "sqlite":
		s, err = store.NewSQLiteStore(cfg.DSN())
	case "postgres":
		s, err = store.NewPostgresStore(cfg.DSN())
	default:
		return fmt.Errorf("unknown storage driver: %s", cfg.Storage.Driver)
	}
	if err != nil {
		return err
	}
	defer s.Close() //nolint:errcheck

	logs, err := s.ListLogs(context.Background())
	if err != nil {
		return fmt.Errorf("listing logs: %w", err)
	}

	out := os.Stdout
	if exportOutput != "" {
		f, err := os.OpenFile(exportOutput, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
		if err != nil {
			return fmt.Errorf("opening output file: %w", err)
		}
		defer f.Close() //nolint:errcheck
		out = f
	}

	return export.Write(out, exportFormat, logs)
}
