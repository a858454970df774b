package match

import (
	"sort"
	"sync"
)

// Diagnostics collects run-wide data-quality findings from the matching
// phase. It is safe for concurrent use.
type Diagnostics struct {
	missing map[string]struct{}
	mu      sync.RWMutex
}

func NewDiagnostics() *Diagnostics {
	return &Diagnostics{
		missing: make(map[string]struct{}),
	}
}

// MissingKey records a key absent from the licensing report. It returns true
// only the first time a key is recorded.
func (d *Diagnostics) MissingKey(key string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, exists := d.missing[key]; exists {
		return false
	}
	d.missing[key] = struct{}{}
	return true
}

// MissingKeys returns the recorded keys sorted.
func (d *Diagnostics) MissingKeys() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()

	result := make([]string, 0, len(d.missing))
	for k := range d.missing {
		result = append(result, k)
	}
	sort.Strings(result)
	return result
}
