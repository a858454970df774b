package enrich

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/lehigh-university-libraries/srp/internal/holdings"
	"github.com/lehigh-university-libraries/srp/internal/match"
	"github.com/lehigh-university-libraries/srp/internal/tabular"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var today = time.Date(2024, time.March, 15, 0, 0, 0, 0, time.UTC)

type fakeLookup struct {
	mu      sync.Mutex
	results map[string][]string
	errs    map[string]error
	keys    []string
}

func (f *fakeLookup) Lookup(ctx context.Context, key string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.keys = append(f.keys, key)
	if err := f.errs[key]; err != nil {
		return nil, err
	}
	return f.results[key], nil
}

func testIndex() *match.Index {
	var titles []*holdings.Title
	for key, issn := range map[string]string{
		"ssj0001": "1234-5678",
		"ssj0002": "2222-3333",
		"ssj0003": "9999-0000",
	} {
		t := holdings.NewTitle(key)
		t.Add(holdings.NewAccessPoint(holdings.AccessPoint{TitleKey: key, Resource: "ResourceA", ISSN: issn}, today))
		titles = append(titles, t)
	}
	return match.NewIndex(titles, nil)
}

func sierra(line int, bib, issnA, issnY string) *match.Record {
	row := tabular.Row{Line: line, Values: map[string]string{"1": bib, "022|a": issnA, "022|y": issnY}}
	return match.NewRecord(match.NewSierraRecord("sierra.txt", row, match.DefaultSierraColumns()))
}

func keys(r *match.Record) []string {
	var out []string
	for _, t := range r.Matches() {
		out = append(out, t.Key)
	}
	return out
}

func TestWorkflowRun(t *testing.T) {
	ix := testIndex()
	diag := match.NewDiagnostics()

	direct := sierra(2, "111", "1234-5678", "")
	require.Equal(t, 1, ix.Match(direct, diag))
	direct.Settle(match.StrategyDirect)

	byLookup := sierra(3, "222", "", "9999-0000")
	byWeak := sierra(4, "333", "", "9999-0000")
	failed := sierra(5, "444", "", "9999-0000")
	noLookupKey := sierra(6, "ss-local", "", "")
	nothing := sierra(7, "555", "", "")

	lookup := &fakeLookup{
		results: map[string][]string{"222": {"2222-3333"}, "333": {"0000-0000"}},
		errs:    map[string]error{"444": errors.New("service down")},
	}

	records := []*match.Record{direct, byLookup, byWeak, failed, noLookupKey, nothing}
	for _, r := range records[1:] {
		ix.Match(r, diag)
	}

	w := &Workflow{Index: ix, Diagnostics: diag, Lookup: lookup, Concurrency: 2}
	stats, err := w.Run(context.Background(), records)
	require.NoError(t, err)

	assert.Equal(t, Stats{Candidates: 5, Lookups: 4, LookupFailures: 1, ByLookup: 1, ByWeak: 2}, stats)
	assert.ElementsMatch(t, []string{"222", "333", "444", "555"}, lookup.keys, "matched records are never looked up")

	assert.Equal(t, match.StrategyDirect, direct.Strategy)
	assert.Empty(t, direct.Annotation())

	assert.Equal(t, []string{"ssj0002"}, keys(byLookup), "weak identifiers are not tried after a lookup match")
	assert.Equal(t, match.StrategyLookup, byLookup.Strategy)
	assert.True(t, byLookup.HasNote(match.NoteLookup))
	assert.False(t, byLookup.NeedsReview)
	assert.Contains(t, byLookup.Identifiers(), "2222-3333")

	assert.Equal(t, []string{"ssj0003"}, keys(byWeak))
	assert.Equal(t, match.StrategyWeak, byWeak.Strategy)
	assert.True(t, byWeak.HasNote(match.NoteWeak))
	assert.True(t, byWeak.NeedsReview)

	assert.Equal(t, []string{"ssj0003"}, keys(failed), "a failed lookup falls through to weak identifiers")
	assert.Equal(t, match.StrategyWeak, failed.Strategy)

	assert.Equal(t, 0, noLookupKey.MatchCount())
	assert.Equal(t, 0, nothing.MatchCount())
	assert.Equal(t, match.StrategyNone, nothing.Strategy)
}

func TestWorkflowWithoutLookup(t *testing.T) {
	ix := testIndex()
	r := sierra(2, "222", "", "1234-5678")

	w := &Workflow{Index: ix, Diagnostics: match.NewDiagnostics()}
	stats, err := w.Run(context.Background(), []*match.Record{r})
	require.NoError(t, err)

	assert.Equal(t, 0, stats.Lookups)
	assert.Equal(t, 1, stats.ByWeak)
	assert.Equal(t, []string{"ssj0001"}, keys(r))
}

func TestWorkflowCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	w := &Workflow{Index: testIndex(), Diagnostics: match.NewDiagnostics(), Lookup: &fakeLookup{}}
	_, err := w.Run(ctx, []*match.Record{sierra(2, "222", "", "")})
	assert.ErrorIs(t, err, context.Canceled)
}
