package reconcile

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/lehigh-university-libraries/srp/internal/config"
	"github.com/lehigh-university-libraries/srp/internal/holdings"
	"github.com/lehigh-university-libraries/srp/internal/match"
	"github.com/lehigh-university-libraries/srp/internal/report"
	"github.com/lehigh-university-libraries/srp/internal/review"
)

// Output file names.
const (
	ParquetFile  = "matched.parquet"
	TemplateFile = "resolutions_template.yaml"
)

// MatchedFile is the matched report of a source.
func MatchedFile(kind match.Kind) string {
	return fmt.Sprintf("output_%s.txt", kind)
}

// AmbiguousFile is the ambiguous report of a source.
func AmbiguousFile(kind match.Kind) string {
	return fmt.Sprintf("output_problem_%s_extramatches.txt", kind)
}

// Write writes every report into cfg.Output.Dir and returns the run summary,
// which is also saved there.
func (res *Result) Write(cfg *config.Config, now time.Time, logger *slog.Logger) (*report.Summary, error) {
	if logger == nil {
		logger = slog.Default()
	}
	dir := cfg.Output.Dir
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	summary := res.summarize(cfg, now)
	views := report.Views(res.Catalog.HasAccess)
	var outputs []string
	out := func(name string) string {
		p := filepath.Join(dir, name)
		outputs = append(outputs, p)
		return p
	}

	var ambiguous []*match.Record
	for _, b := range res.Batches {
		if err := report.WriteMatched(out(MatchedFile(b.Kind)), b.Header, b.Records, views); err != nil {
			return nil, err
		}
		if err := report.WriteAmbiguous(out(AmbiguousFile(b.Kind)), b.Header, b.Records, views); err != nil {
			return nil, err
		}
		for _, r := range b.Records {
			if r.Ambiguous() {
				ambiguous = append(ambiguous, r)
			}
		}
	}

	descriptors := report.UsedDescriptors(res.Records())
	for _, d := range descriptors {
		if d.Failed() {
			summary.FailedDescriptors++
		}
	}
	if err := report.WriteDescriptors(out(report.DescriptorsFile), descriptors); err != nil {
		return nil, err
	}
	if err := report.WriteList(out(report.MissingKeysFile), res.Diagnostics.MissingKeys()); err != nil {
		return nil, err
	}
	if err := report.WriteSharedIdentifiers(out(report.SharedIdentifiersFile), res.Index.SharedIdentifiers()); err != nil {
		return nil, err
	}

	if len(ambiguous) > 0 {
		if err := res.writeTemplate(out(TemplateFile), ambiguous); err != nil {
			return nil, err
		}
	}

	if cfg.Output.Parquet {
		rows := make([]report.MatchedRow, 0, len(res.Records()))
		for _, r := range res.Records() {
			rows = append(rows, report.NewMatchedRow(res.RunID, r, res.Catalog.HasAccess))
		}
		if err := report.WriteParquet(out(ParquetFile), rows); err != nil {
			return nil, err
		}
	}

	summaryPath := out(report.SummaryFile)
	summary.Outputs = outputs
	if err := report.SaveSummary(summaryPath, summary); err != nil {
		return nil, err
	}

	logger.Info("Reports written", "dir", dir, "files", len(outputs))
	return summary, nil
}

func (res *Result) writeTemplate(path string, ambiguous []*match.Record) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer file.Close()
	if err := review.WriteTemplate(file, ambiguous); err != nil {
		return err
	}
	return file.Close()
}

func (res *Result) summarize(cfg *config.Config, now time.Time) *report.Summary {
	s := &report.Summary{
		RunID:     res.RunID,
		Timestamp: now.Format(time.RFC3339),
		Today:     res.Today.Format(holdings.DateLayout),
		Inputs: report.Inputs{
			Licensing: cfg.Inputs.Licensing,
		},
		Titles:            len(res.Catalog.Titles),
		AccessPoints:      res.Catalog.AccessPoints,
		ExcludedKeys:      len(res.Catalog.Excluded),
		FreePaidViews:     res.Catalog.HasAccess,
		MissingKeys:       len(res.Diagnostics.MissingKeys()),
		SharedIdentifiers: len(res.Index.SharedIdentifiers()),
		Strategies:        make(map[string]int),
		Enrichment:        res.Enrichment,
		Lookup: report.LookupCounts{
			Provider:  cfg.Lookup.Provider,
			Cache:     cfg.Lookup.Cache,
			CacheHits: res.CacheHits,
			Fetches:   res.Fetches,
		},
		Warnings: res.Resolution.Warnings,
	}

	for _, b := range res.Batches {
		switch b.Kind {
		case match.KindSierra:
			s.Inputs.Sierra = b.Inputs
		case match.KindTitleList:
			s.Inputs.TitleList = b.Inputs
		}

		counts := report.SourceCounts{Kind: string(b.Kind), Records: len(b.Records)}
		for _, r := range b.Records {
			switch {
			case r.MatchCount() == 0:
				counts.Unmatched++
			case r.Ambiguous():
				counts.Ambiguous++
			default:
				counts.Matched++
			}
			if r.Strategy == match.StrategyManual {
				counts.Resolved++
			}
			if r.NeedsReview {
				counts.NeedsReview++
			}
			s.Strategies[string(r.Strategy)]++
		}
		s.Sources = append(s.Sources, counts)
	}
	return s
}
