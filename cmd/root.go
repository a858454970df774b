package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/lehigh-university-libraries/srp/internal/srpcmd"
	"github.com/spf13/cobra"
)

func NewRootCmd() *cobra.Command {
	var verbose bool
	var logFormat string

	cmd := &cobra.Command{
		Use:   "srp",
		Short: "Serials holdings reconciliation against the licensing report",
		Long: `srp matches ILS serial records and publisher title lists against the
licensing report, picks the best current access for every matched title and
flags records that need manual review.

Ambiguous matches are never resolved automatically: they are written to a
separate report and resolved through a resolutions file on the next run.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Load .env file if present (ignore errors)
			_ = godotenv.Load()
			return setupLogging(verbose, logFormat)
		},
	}

	cmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "Verbose logging")
	cmd.PersistentFlags().StringVar(&logFormat, "log-format", "text", "Log format (text or json)")

	// Add subcommands
	cmd.AddCommand(srpcmd.NewMatchCmd())
	cmd.AddCommand(srpcmd.NewClassifyCmd())
	cmd.AddCommand(newCacheCmd())

	return cmd
}

func setupLogging(verbose bool, format string) error {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	switch format {
	case "text", "":
		handler = slog.NewTextHandler(os.Stderr, opts)
	case "json":
		handler = slog.NewJSONHandler(os.Stderr, opts)
	default:
		return fmt.Errorf("unsupported log format: %s", format)
	}
	slog.SetDefault(slog.New(handler))
	return nil
}
