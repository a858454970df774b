package srpcmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/lehigh-university-libraries/srp/internal/config"
	"github.com/lehigh-university-libraries/srp/internal/reconcile"
	"github.com/lehigh-university-libraries/srp/internal/report"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
)

// matchFlags are command line overrides of the configuration file.
type matchFlags struct {
	configPath  string
	licensing   []string
	sierra      []string
	titleList   []string
	provider    string
	cache       string
	output      string
	resolutions string
	parquet     bool
	concurrency int
	today       string
}

// NewMatchCmd creates the match command
func NewMatchCmd() *cobra.Command {
	var f matchFlags

	cmd := &cobra.Command{
		Use:   "match",
		Short: "Match records against the licensing report and write the reports",
		Long: `Load the licensing report, match every ILS and title list record against it,
retry unmatched ILS records with identifiers from the bibliographic lookup
service and write the reports.

Records matching more than one licensed title go to the extramatches report
and a resolutions template. Fill in keep or drop for each entry, save it as
the resolutions file and run match again.`,
		Example: `  # Match a Sierra export using srp.yaml for everything else
  srp match --sierra sierra.txt

  # Match all title lists in a directory, without lookups
  srp match --titlelist 'titlelists/**/*.txt' --provider none

  # Reproduce an earlier run's embargo dates
  srp match --today 2024-07-01 --output runs/2024-07-01`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, f)
			if err != nil {
				return err
			}
			return executeMatch(cmd.Context(), cfg, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVar(&f.configPath, "config", config.DefaultPath, "Path to the YAML configuration file")
	cmd.Flags().StringSliceVar(&f.licensing, "licensing", nil, "Licensing report files or globs")
	cmd.Flags().StringSliceVar(&f.sierra, "sierra", nil, "Sierra export files or globs")
	cmd.Flags().StringSliceVar(&f.titleList, "titlelist", nil, "Title list files or globs")
	cmd.Flags().StringVar(&f.provider, "provider", "", "Lookup provider (worldcat, googlebooks or none)")
	cmd.Flags().StringVar(&f.cache, "cache", "", "Path to the lookup cache file")
	cmd.Flags().StringVar(&f.output, "output", "", "Output directory")
	cmd.Flags().StringVar(&f.resolutions, "resolutions", "", "Path to the manual resolutions file")
	cmd.Flags().BoolVar(&f.parquet, "parquet", false, "Also write matched.parquet")
	cmd.Flags().IntVar(&f.concurrency, "concurrency", 0, "Number of concurrent lookups")
	cmd.Flags().StringVar(&f.today, "today", "", "Date to compute embargoes against (YYYY-MM-DD)")

	return cmd
}

func loadConfig(cmd *cobra.Command, f matchFlags) (*config.Config, error) {
	cfg, err := config.Load(f.configPath, cmd.Flags().Changed("config"))
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("licensing") {
		cfg.Inputs.Licensing = f.licensing
	}
	if flags.Changed("sierra") {
		cfg.Inputs.Sierra = f.sierra
	}
	if flags.Changed("titlelist") {
		cfg.Inputs.TitleList = f.titleList
	}
	if flags.Changed("provider") {
		cfg.Lookup.Provider = f.provider
	}
	if flags.Changed("cache") {
		cfg.Lookup.Cache = f.cache
	}
	if flags.Changed("output") {
		cfg.Output.Dir = f.output
	}
	if flags.Changed("resolutions") {
		cfg.Resolutions = f.resolutions
	}
	if flags.Changed("parquet") {
		cfg.Output.Parquet = f.parquet
	}
	if flags.Changed("concurrency") {
		cfg.Lookup.Concurrency = f.concurrency
	}
	if flags.Changed("today") {
		cfg.Today = f.today
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func executeMatch(ctx context.Context, cfg *config.Config, out io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}
	now := time.Now()
	slog.Info("Starting reconciliation", "licensing", cfg.Inputs.Licensing, "provider", cfg.Lookup.Provider)

	result, err := reconcile.Run(ctx, reconcile.Options{Config: cfg, Now: now})
	if err != nil {
		return err
	}

	summary, err := result.Write(cfg, now, slog.Default())
	if err != nil {
		return fmt.Errorf("failed to write reports: %w", err)
	}

	if err := report.RenderSummary(out, summary, isTerminal(out)); err != nil {
		return err
	}

	fmt.Fprintf(out, "\nResults saved to: %s\n", cfg.Output.Dir)
	ambiguous := 0
	for _, s := range summary.Sources {
		ambiguous += s.Ambiguous
	}
	if ambiguous > 0 {
		fmt.Fprintf(out, "\n%d records matched more than one title. Resolve them with:\n", ambiguous)
		fmt.Fprintf(out, "  cp %s %s\n", filepath.Join(cfg.Output.Dir, reconcile.TemplateFile), cfg.Resolutions)
		fmt.Fprintf(out, "  # fill in keep or drop for each record, then run srp match again\n")
	}
	return nil
}

func isTerminal(w io.Writer) bool {
	file, ok := w.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
