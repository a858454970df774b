// Package reconcile runs one batch reconciliation: load the licensing
// dataset, match every external record, enrich the unmatched ones, apply
// manual resolutions and write the reports.
package reconcile

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/lehigh-university-libraries/srp/internal/config"
	"github.com/lehigh-university-libraries/srp/internal/enrich"
	"github.com/lehigh-university-libraries/srp/internal/holdings"
	"github.com/lehigh-university-libraries/srp/internal/lookup"
	"github.com/lehigh-university-libraries/srp/internal/match"
	"github.com/lehigh-university-libraries/srp/internal/review"
	"github.com/lehigh-university-libraries/srp/internal/tabular"
)

// Options configures Run.
type Options struct {
	Config *config.Config
	// Now is the run clock; zero means time.Now. Config.Today overrides the
	// date used for embargoes.
	Now time.Time
	// Lookup replaces the configured lookup service and cache.
	Lookup enrich.Lookup
	Logger *slog.Logger
}

// Batch holds the records read from one kind of source.
type Batch struct {
	Kind    match.Kind
	Inputs  []string
	Header  []string
	Records []*match.Record
}

// Result is the outcome of a run.
type Result struct {
	RunID       string
	Today       time.Time
	Catalog     *holdings.Catalog
	Index       *match.Index
	Diagnostics *match.Diagnostics
	Batches     []*Batch
	Enrichment  enrich.Stats
	Resolution  review.Outcome
	CacheHits   int64
	Fetches     int64
}

// Records returns the records of every batch.
func (r *Result) Records() []*match.Record {
	var all []*match.Record
	for _, b := range r.Batches {
		all = append(all, b.Records...)
	}
	return all
}

// Run reconciles the configured inputs. It fails on unreadable inputs and on
// invalid whitelist or free/paid values; every per-record problem is
// reported in the outputs instead.
func Run(ctx context.Context, opts Options) (*Result, error) {
	cfg := opts.Config
	if cfg == nil {
		return nil, fmt.Errorf("no configuration")
	}
	now := opts.Now
	if now.IsZero() {
		now = time.Now()
	}
	today, err := cfg.TodayDate(now)
	if err != nil {
		return nil, err
	}

	res := &Result{
		RunID:       uuid.NewString(),
		Today:       today,
		Diagnostics: match.NewDiagnostics(),
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("run_id", res.RunID)

	logger.Info("Loading licensing dataset", "inputs", cfg.Inputs.Licensing, "today", today.Format(holdings.DateLayout))
	licensing, err := tabular.ReadAll(cfg.Inputs.Licensing...)
	if err != nil {
		return nil, fmt.Errorf("failed to read licensing dataset: %w", err)
	}
	res.Catalog, err = holdings.Load(licensing, cfg.Columns.Licensing, today)
	if err != nil {
		return nil, fmt.Errorf("failed to load licensing dataset: %w", err)
	}
	res.Index = match.NewIndex(res.Catalog.Titles, res.Catalog.Excluded)

	inputs, err := expandInputs(cfg)
	if err != nil {
		return nil, err
	}
	names := tabular.DisplayNames(inputs.all())
	for _, in := range inputs {
		batch, err := res.matchSource(in.kind, in.paths, names, cfg, logger)
		if err != nil {
			return nil, err
		}
		res.Batches = append(res.Batches, batch)
	}

	if err := res.enrich(ctx, opts, logger); err != nil {
		return nil, err
	}

	for _, r := range res.Records() {
		r.Finalize()
	}

	resolutions, err := review.Load(cfg.Resolutions)
	if err != nil {
		return nil, err
	}
	res.Resolution = resolutions.Apply(res.Records())
	for _, w := range res.Resolution.Warnings {
		logger.Warn("Resolution not applied", "detail", w)
	}
	if res.Resolution.Resolved > 0 {
		logger.Info("Applied manual resolutions", "resolved", res.Resolution.Resolved)
	}

	return res, nil
}

type sourceInputs struct {
	kind  match.Kind
	paths []string
}

type inputSet []sourceInputs

func (s inputSet) all() []string {
	var paths []string
	for _, in := range s {
		paths = append(paths, in.paths...)
	}
	return paths
}

// expandInputs resolves the record inputs of every kind. A file may only be
// read as one kind, since its record ids would otherwise repeat.
func expandInputs(cfg *config.Config) (inputSet, error) {
	var set inputSet
	kindOf := make(map[string]match.Kind)
	for _, in := range []struct {
		kind     match.Kind
		patterns []string
	}{
		{match.KindSierra, cfg.Inputs.Sierra},
		{match.KindTitleList, cfg.Inputs.TitleList},
	} {
		if len(in.patterns) == 0 {
			continue
		}
		paths, err := tabular.Expand(in.patterns...)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve %s inputs: %w", in.kind, err)
		}
		for _, p := range paths {
			if k, ok := kindOf[p]; ok && k != in.kind {
				return nil, fmt.Errorf("%s is listed as both %s and %s input", p, k, in.kind)
			}
			kindOf[p] = in.kind
		}
		set = append(set, sourceInputs{kind: in.kind, paths: paths})
	}
	return set, nil
}

func (res *Result) matchSource(kind match.Kind, paths []string, names map[string]string, cfg *config.Config, logger *slog.Logger) (*Batch, error) {
	batch := &Batch{Kind: kind, Inputs: paths}

	var tables []*tabular.Table
	for _, p := range paths {
		table, err := tabular.ReadFile(p)
		if err != nil {
			return nil, err
		}
		table.Name = names[p]
		tables = append(tables, table)

		sources, err := match.Sources(table, kind, cfg.Columns.Sierra, cfg.Columns.TitleList)
		if err != nil {
			return nil, err
		}
		for _, src := range sources {
			r := match.NewRecord(src)
			res.Index.Match(r, res.Diagnostics)
			r.Settle(match.StrategyDirect)
			batch.Records = append(batch.Records, r)
		}
	}
	batch.Header = tabular.MergeHeaders(tables...)

	matched := 0
	for _, r := range batch.Records {
		if r.MatchCount() > 0 {
			matched++
		}
	}
	logger.Info("Matched records", "source", kind, "records", len(batch.Records), "matched", matched)
	return batch, nil
}

func (res *Result) enrich(ctx context.Context, opts Options, logger *slog.Logger) error {
	cfg := opts.Config
	client := opts.Lookup

	var cached *lookup.Cached
	var cache *lookup.Cache
	if client == nil {
		var err error
		cache, err = lookup.OpenCache(cfg.Lookup.Cache, logger)
		if err != nil {
			return err
		}
		if err := cache.Lock(); err != nil {
			return err
		}
		defer func() {
			if err := cache.Unlock(); err != nil {
				logger.Warn("Failed to unlock lookup cache", "error", err)
			}
		}()

		service, err := lookup.NewClient(ctx, cfg.Lookup.Settings())
		if err != nil {
			return fmt.Errorf("failed to create lookup client: %w", err)
		}
		cached = lookup.NewCached(service, cache)
		client = cached
	}

	workflow := &enrich.Workflow{
		Index:       res.Index,
		Diagnostics: res.Diagnostics,
		Lookup:      client,
		Concurrency: cfg.Lookup.Concurrency,
		Logger:      logger,
	}
	stats, err := workflow.Run(ctx, res.Records())
	res.Enrichment = stats

	if cached != nil {
		res.CacheHits, res.Fetches = cached.Stats()
		// Keep what was fetched even when the run was interrupted.
		if saveErr := cache.Save(); saveErr != nil {
			logger.Warn("Failed to save lookup cache", "path", cache.Path(), "error", saveErr)
		}
	}
	return err
}
