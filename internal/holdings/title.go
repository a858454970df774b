package holdings

import (
	"slices"
	"strings"
)

// Filter restricts which access points take part in ranking.
type Filter int

const (
	FilterAll Filter = iota
	FilterFree
	FilterPaid
)

// Suffix is appended to report column names for the filtered views.
func (f Filter) Suffix() string {
	switch f {
	case FilterFree:
		return "free"
	case FilterPaid:
		return "paid"
	default:
		return ""
	}
}

func (f Filter) accepts(ap *AccessPoint) bool {
	switch f {
	case FilterFree:
		return ap.Access == Free
	case FilterPaid:
		return ap.Access == Paid
	default:
		return true
	}
}

// Title groups the access points that share a licensed-title key.
type Title struct {
	Key string

	points []*AccessPoint
	ids    []string
	idSet  map[string]struct{}
}

// NewTitle returns an empty title for key.
func NewTitle(key string) *Title {
	return &Title{
		Key:   key,
		idSet: make(map[string]struct{}),
	}
}

// Add appends an access point and records its identifiers.
func (t *Title) Add(ap *AccessPoint) {
	t.points = append(t.points, ap)
	for _, id := range ap.Identifiers() {
		if _, ok := t.idSet[id]; ok {
			continue
		}
		t.idSet[id] = struct{}{}
		t.ids = append(t.ids, id)
	}
}

// AccessPoints returns the access points in load order.
func (t *Title) AccessPoints() []*AccessPoint {
	return t.points
}

// Identifiers returns the distinct identifiers of all access points, in the
// order they were first seen.
func (t *Title) Identifiers() []string {
	return t.ids
}

// Name is the title as given on the first access point.
func (t *Title) Name() string {
	if len(t.points) == 0 {
		return ""
	}
	return t.points[0].TitleName
}

// Rank returns the best access points under filter f.
//
// Active access points all tie and beat everything else. Without any, the
// embargoes ending latest win, and failing those the fixed ends ending latest.
// Ties keep every tied access point in load order. An empty result means the
// title has no access points passing the filter.
func (t *Title) Rank(f Filter) []*AccessPoint {
	buckets := make(map[EndMode][]*AccessPoint, 3)
	for _, ap := range t.points {
		if f.accepts(ap) {
			buckets[ap.EndMode()] = append(buckets[ap.EndMode()], ap)
		}
	}

	if active := buckets[Active]; len(active) > 0 {
		return active
	}
	for _, mode := range []EndMode{TimeLimited, Ended} {
		if points := buckets[mode]; len(points) > 0 {
			return latest(points)
		}
	}
	return nil
}

func latest(points []*AccessPoint) []*AccessPoint {
	best := points[0].End()
	for _, ap := range points[1:] {
		if ap.End().Compare(best) > 0 {
			best = ap.End()
		}
	}
	var winners []*AccessPoint
	for _, ap := range points {
		if ap.End().Compare(best) == 0 {
			winners = append(winners, ap)
		}
	}
	return winners
}

// Summary describes the winners of a ranking.
type Summary struct {
	End       EndDate
	Resources string
}

// Empty reports whether the ranking had no winners.
func (s Summary) Empty() bool {
	return s.End.Mode == 0
}

// Summary ranks the title under f and describes the winners. All winners
// share one end date, so the first one supplies it.
func (t *Title) Summary(f Filter) Summary {
	winners := t.Rank(f)
	if len(winners) == 0 {
		return Summary{}
	}
	names := make([]string, 0, len(winners))
	for _, ap := range winners {
		names = append(names, ap.Resource)
	}
	return Summary{
		End:       winners[0].End(),
		Resources: strings.Join(names, " | "),
	}
}

// SortByBest orders titles by their best end date, best first. Titles
// without access points sort last; equal titles keep their relative order.
func SortByBest(titles []*Title) []*Title {
	sorted := slices.Clone(titles)
	slices.SortStableFunc(sorted, func(a, b *Title) int {
		return b.Summary(FilterAll).End.Compare(a.Summary(FilterAll).End)
	})
	return sorted
}
