package match

import (
	"slices"
	"strings"

	"github.com/lehigh-university-libraries/srp/internal/holdings"
)

// Notes written onto records.
const (
	NoteKeyNotFound   = "key not found in licensing report"
	NoteNoIdentifiers = "no key and no identifiers to match"
	NoteLookup        = "matched using identifiers from bibliographic lookup"
	NoteWeak          = "matched using 022|y; review"
	NoteResolved      = "ambiguity resolved manually"
)

// Strategy records which step produced a record's matches.
type Strategy string

const (
	StrategyNone   Strategy = "none"
	StrategyDirect Strategy = "direct"
	StrategyLookup Strategy = "lookup"
	StrategyWeak   Strategy = "weak"
	StrategyManual Strategy = "manual"
)

// Provenance is one (identifier, title) pair that produced a match. The
// identifier is the key candidate for key matches.
type Provenance struct {
	Identifier string
	TitleKey   string
}

// Record is the matching state of one external record.
type Record struct {
	Source Source

	Strategy Strategy
	// NeedsReview is set when the matches came from low-confidence identifiers.
	NeedsReview bool

	ids     []string
	idSet   map[string]struct{}
	matches []*holdings.Title
	byKey   map[string]struct{}
	prov    []Provenance
	provSet map[Provenance]struct{}
	notes   []string
}

// NewRecord starts matching state for src with its own identifiers.
func NewRecord(src Source) *Record {
	r := &Record{
		Source:   src,
		Strategy: StrategyNone,
		idSet:    make(map[string]struct{}),
		byKey:    make(map[string]struct{}),
		provSet:  make(map[Provenance]struct{}),
	}
	r.AddIdentifiers(src.Identifiers()...)
	return r
}

// ID returns the source record id.
func (r *Record) ID() string {
	return r.Source.ID()
}

// AddIdentifiers merges identifiers into the record and returns how many
// were new. Placeholders are ignored.
func (r *Record) AddIdentifiers(ids ...string) int {
	added := 0
	for _, raw := range ids {
		id, ok := holdings.CleanIdentifier(raw)
		if !ok {
			continue
		}
		if _, exists := r.idSet[id]; exists {
			continue
		}
		r.idSet[id] = struct{}{}
		r.ids = append(r.ids, id)
		added++
	}
	return added
}

// Identifiers returns the identifier set in insertion order.
func (r *Record) Identifiers() []string {
	return r.ids
}

// Matches returns matched titles in the order they were first matched.
func (r *Record) Matches() []*holdings.Title {
	return r.matches
}

// MatchCount is the number of distinct matched titles.
func (r *Record) MatchCount() int {
	return len(r.matches)
}

// Best returns the matched title to report. It is only meaningful when the
// record is not ambiguous.
func (r *Record) Best() *holdings.Title {
	if len(r.matches) == 0 {
		return nil
	}
	return r.matches[0]
}

// Ranked returns the matches ordered by their best access, best first.
func (r *Record) Ranked() []*holdings.Title {
	return holdings.SortByBest(r.matches)
}

// Ambiguous reports whether more than one title matched.
func (r *Record) Ambiguous() bool {
	return len(r.matches) > 1
}

// Provenance returns the distinct (identifier, title) pairs behind the matches.
func (r *Record) Provenance() []Provenance {
	return r.prov
}

func (r *Record) addMatch(identifier string, t *holdings.Title) {
	p := Provenance{Identifier: identifier, TitleKey: t.Key}
	if _, ok := r.provSet[p]; !ok {
		r.provSet[p] = struct{}{}
		r.prov = append(r.prov, p)
	}
	if _, ok := r.byKey[t.Key]; ok {
		return
	}
	r.byKey[t.Key] = struct{}{}
	r.matches = append(r.matches, t)
}

// Note appends text to the record annotation unless it is already there.
func (r *Record) Note(text string) {
	if slices.Contains(r.notes, text) {
		return
	}
	r.notes = append(r.notes, text)
}

// HasNote reports whether text was noted.
func (r *Record) HasNote(text string) bool {
	return slices.Contains(r.notes, text)
}

// Annotation renders the notes as "a; b; ".
func (r *Record) Annotation() string {
	var b strings.Builder
	for _, n := range r.notes {
		b.WriteString(n)
		b.WriteString("; ")
	}
	return b.String()
}

// Settle records s as the strategy that produced the matches, if there are
// matches and no earlier strategy claimed them.
func (r *Record) Settle(s Strategy) {
	if len(r.matches) > 0 && r.Strategy == StrategyNone {
		r.Strategy = s
	}
}

// Finalize notes records that had nothing to match with.
func (r *Record) Finalize() {
	if len(r.matches) == 0 && r.Source.KeyCandidate() == "" && len(r.ids) == 0 {
		r.Note(NoteNoIdentifiers)
	}
}

// Keep narrows the matches to the title with key. It reports false when that
// title is not among the matches.
func (r *Record) Keep(key string) bool {
	for _, t := range r.matches {
		if t.Key == key {
			r.matches = []*holdings.Title{t}
			r.byKey = map[string]struct{}{key: {}}
			return true
		}
	}
	return false
}

// Drop removes the titles with the given keys from the matches and returns
// the keys that were not matched.
func (r *Record) Drop(keys ...string) []string {
	var unknown []string
	for _, key := range keys {
		if _, ok := r.byKey[key]; !ok {
			unknown = append(unknown, key)
			continue
		}
		delete(r.byKey, key)
		r.matches = slices.DeleteFunc(r.matches, func(t *holdings.Title) bool {
			return t.Key == key
		})
	}
	return unknown
}
