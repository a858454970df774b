package tabular

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// Expand resolves input patterns to file paths. Plain paths must exist;
// patterns with glob characters (including **) must match at least one file.
// The result is deduplicated and keeps pattern order.
func Expand(patterns ...string) ([]string, error) {
	seen := make(map[string]struct{})
	var paths []string
	add := func(p string) {
		if _, ok := seen[p]; ok {
			return
		}
		seen[p] = struct{}{}
		paths = append(paths, p)
	}

	for _, pattern := range patterns {
		pattern = strings.TrimSpace(pattern)
		if pattern == "" {
			continue
		}

		if !containsGlob(pattern) {
			info, err := os.Stat(pattern)
			if err != nil {
				return nil, fmt.Errorf("input not found: %w", err)
			}
			if info.IsDir() {
				return nil, fmt.Errorf("input is a directory: %s", pattern)
			}
			add(filepath.Clean(pattern))
			continue
		}

		// Use doublestar for ** support
		matches, err := doublestar.FilepathGlob(pattern, doublestar.WithFilesOnly())
		if err != nil {
			return nil, fmt.Errorf("glob error: %w", err)
		}
		if len(matches) == 0 {
			return nil, fmt.Errorf("no files match pattern: %s", pattern)
		}
		sort.Strings(matches)
		for _, m := range matches {
			add(m)
		}
	}

	return paths, nil
}

// ReadAll expands patterns and reads every matching file.
func ReadAll(patterns ...string) ([]*Table, error) {
	paths, err := Expand(patterns...)
	if err != nil {
		return nil, err
	}
	tables := make([]*Table, 0, len(paths))
	for _, p := range paths {
		t, err := ReadFile(p)
		if err != nil {
			return nil, err
		}
		tables = append(tables, t)
	}
	return tables, nil
}

// DisplayNames gives each path a short name: its base name, or as many
// trailing path elements as it takes to tell it apart from the other paths.
// Repeated paths get the same name.
func DisplayNames(paths []string) map[string]string {
	parts := make(map[string][]string, len(paths))
	depth := make(map[string]int, len(paths))
	var unique []string
	for _, p := range paths {
		if _, ok := parts[p]; ok {
			continue
		}
		parts[p] = strings.Split(filepath.ToSlash(filepath.Clean(p)), "/")
		depth[p] = 1
		unique = append(unique, p)
	}

	name := func(p string) string {
		elems := parts[p]
		d := min(depth[p], len(elems))
		return strings.Join(elems[len(elems)-d:], "/")
	}

	for {
		groups := make(map[string][]string)
		for _, p := range unique {
			n := name(p)
			groups[n] = append(groups[n], p)
		}
		grew := false
		for _, group := range groups {
			if len(group) < 2 {
				continue
			}
			for _, p := range group {
				if depth[p] < len(parts[p]) {
					depth[p]++
					grew = true
				}
			}
		}
		if !grew {
			break
		}
	}

	names := make(map[string]string, len(unique))
	for _, p := range unique {
		names[p] = name(p)
	}
	return names
}

// containsGlob checks if a pattern contains glob characters.
func containsGlob(pattern string) bool {
	return strings.ContainsAny(pattern, "*?[{")
}
