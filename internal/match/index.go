package match

import (
	"sort"

	"github.com/lehigh-university-libraries/srp/internal/holdings"
)

// Index looks up licensed titles by key and by identifier. It is read-only
// once built and safe for concurrent matching.
type Index struct {
	byKey    map[string]*holdings.Title
	byID     map[string][]*holdings.Title
	excluded map[string]struct{}
}

// NewIndex indexes titles. Keys in excluded are known to the licensing
// report but were whitelisted out, so they never produce missing-key
// diagnostics.
func NewIndex(titles []*holdings.Title, excluded map[string]struct{}) *Index {
	ix := &Index{
		byKey:    make(map[string]*holdings.Title, len(titles)),
		byID:     make(map[string][]*holdings.Title),
		excluded: make(map[string]struct{}, len(excluded)),
	}
	for k := range excluded {
		ix.excluded[k] = struct{}{}
	}
	for _, t := range titles {
		ix.byKey[t.Key] = t
		for _, id := range t.Identifiers() {
			ix.byID[id] = append(ix.byID[id], t)
		}
	}
	return ix
}

// Title returns the title registered under key.
func (ix *Index) Title(key string) (*holdings.Title, bool) {
	t, ok := ix.byKey[key]
	return t, ok
}

// Excluded reports whether key was whitelisted out of the licensing report.
func (ix *Index) Excluded(key string) bool {
	_, ok := ix.excluded[key]
	return ok
}

// Len returns the number of indexed titles.
func (ix *Index) Len() int {
	return len(ix.byKey)
}

// Match adds every title reachable from the record's key candidate and
// identifiers to its matches and returns the match count. Matching again
// after adding identifiers only adds what is new. A key candidate missing
// from the report, and not excluded, is noted on the record and recorded in
// diag.
func (ix *Index) Match(r *Record, diag *Diagnostics) int {
	if key := r.Source.KeyCandidate(); key != "" {
		if t, ok := ix.byKey[key]; ok {
			r.addMatch(key, t)
		} else if !ix.Excluded(key) {
			diag.MissingKey(key)
			r.Note(NoteKeyNotFound)
		}
	}

	for _, id := range r.Identifiers() {
		for _, t := range ix.byID[id] {
			r.addMatch(id, t)
		}
	}
	return r.MatchCount()
}

// SharedIdentifier is an identifier carried by more than one title.
type SharedIdentifier struct {
	Identifier string
	TitleKeys  []string
}

// SharedIdentifiers lists identifiers that map to several titles, sorted by
// identifier. These are the source of ambiguous matches.
func (ix *Index) SharedIdentifiers() []SharedIdentifier {
	var shared []SharedIdentifier
	for id, titles := range ix.byID {
		if len(titles) < 2 {
			continue
		}
		keys := make([]string, 0, len(titles))
		for _, t := range titles {
			keys = append(keys, t.Key)
		}
		shared = append(shared, SharedIdentifier{Identifier: id, TitleKeys: keys})
	}
	sort.Slice(shared, func(i, j int) bool {
		return shared[i].Identifier < shared[j].Identifier
	})
	return shared
}
