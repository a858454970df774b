// Package enrich retries unmatched records with identifiers from a
// bibliographic lookup and, failing that, with their weak identifiers.
package enrich

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/lehigh-university-libraries/srp/internal/match"
)

// DefaultConcurrency bounds parallel lookups when none is configured.
const DefaultConcurrency = 4

// Lookup returns auxiliary identifiers for a bibliographic lookup key.
type Lookup interface {
	Lookup(ctx context.Context, key string) ([]string, error)
}

// Workflow runs fallback enrichment over unmatched records.
type Workflow struct {
	Index       *match.Index
	Diagnostics *match.Diagnostics
	// Lookup may be nil, in which case only weak identifiers are tried.
	Lookup      Lookup
	Concurrency int
	Logger      *slog.Logger
}

// Stats counts enrichment outcomes.
type Stats struct {
	Candidates     int `yaml:"candidates"`
	Lookups        int `yaml:"lookups"`
	LookupFailures int `yaml:"lookup_failures"`
	ByLookup       int `yaml:"matched_by_lookup"`
	ByWeak         int `yaml:"matched_by_weak_identifier"`
}

type counters struct {
	candidates, lookups, failures, byLookup, byWeak atomic.Int64
}

// Run enriches every record with no matches. Records are independent and
// processed in parallel; the index is only read. A failed lookup is logged
// and the record moves on to its weak identifiers. Only cancellation of ctx
// stops the run.
func (w *Workflow) Run(ctx context.Context, records []*match.Record) (Stats, error) {
	logger := w.Logger
	if logger == nil {
		logger = slog.Default()
	}
	concurrency := w.Concurrency
	if concurrency < 1 {
		concurrency = DefaultConcurrency
	}

	var pending []*match.Record
	for _, r := range records {
		if r.MatchCount() == 0 {
			pending = append(pending, r)
		}
	}
	logger.Info("Enriching unmatched records", "records", len(pending), "concurrency", concurrency)

	var c counters
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	for i, r := range pending {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			logger.Debug("Enriching record", "id", r.ID(), "progress", fmt.Sprintf("%d/%d", i+1, len(pending)))
			return w.enrich(gctx, logger, r, &c)
		})
	}

	err := g.Wait()
	stats := Stats{
		Candidates:     int(c.candidates.Load()),
		Lookups:        int(c.lookups.Load()),
		LookupFailures: int(c.failures.Load()),
		ByLookup:       int(c.byLookup.Load()),
		ByWeak:         int(c.byWeak.Load()),
	}
	if err != nil {
		return stats, fmt.Errorf("enrichment interrupted: %w", err)
	}

	logger.Info("Enrichment complete",
		"matched_by_lookup", stats.ByLookup,
		"matched_by_weak_identifier", stats.ByWeak,
		"lookup_failures", stats.LookupFailures)
	return stats, nil
}

func (w *Workflow) enrich(ctx context.Context, logger *slog.Logger, r *match.Record, c *counters) error {
	c.candidates.Add(1)

	if key := r.Source.LookupKey(); key != "" && w.Lookup != nil {
		c.lookups.Add(1)
		ids, err := w.Lookup.Lookup(ctx, key)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			c.failures.Add(1)
			logger.Warn("Lookup failed, continuing without enrichment", "id", r.ID(), "key", key, "error", err)
		} else {
			r.AddIdentifiers(ids...)
		}

		if w.Index.Match(r, w.Diagnostics) > 0 {
			r.Note(match.NoteLookup)
			r.Settle(match.StrategyLookup)
			c.byLookup.Add(1)
			return nil
		}
	}

	weak := r.Source.WeakIdentifiers()
	if len(weak) == 0 {
		return nil
	}
	r.AddIdentifiers(weak...)
	if w.Index.Match(r, w.Diagnostics) > 0 {
		r.Note(match.NoteWeak)
		r.Settle(match.StrategyWeak)
		r.NeedsReview = true
		c.byWeak.Add(1)
	}
	return nil
}
