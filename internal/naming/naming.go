// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package naming assigns unique output filenames within one batch.
//
// The first input with a given base name keeps the bare name; later inputs
// sharing it receive _1, _2, ... suffixes in the order they are assigned.
// A Registry is not safe for concurrent use: callers assign names in input
// order from a single goroutine.
package naming

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
)

// Registry tracks the base names seen in one batch and every name issued.
type Registry struct {
	ext    string
	counts map[string]int
	issued map[string]bool
}

// NewRegistry returns an empty registry that issues names with the given
// extension (e.g. ".jpg").
func NewRegistry(ext string) *Registry {
	return &Registry{
		ext:    ext,
		counts: make(map[string]int),
		issued: make(map[string]bool),
	}
}

// Assign returns the output name for an input filename. The extension of
// filename is replaced by the registry extension.
func (r *Registry) Assign(filename string) string {
	return r.AssignIn("", filename)
}

// AssignIn is Assign scoped to a directory: names issued for different
// directories never collide with each other. The returned value is the bare
// filename, not joined with dir.
func (r *Registry) AssignIn(dir, filename string) string {
	base := Stem(filename)
	key := filepath.Join(dir, base)

	n, seen := r.counts[key]
	if !seen {
		r.counts[key] = 0
		name := base + r.ext
		if !r.issued[filepath.Join(dir, name)] {
			r.issued[filepath.Join(dir, name)] = true
			return name
		}
	}

	for {
		n++
		name := fmt.Sprintf("%s_%d%s", base, n, r.ext)
		if !r.issued[filepath.Join(dir, name)] {
			r.counts[key] = n
			r.issued[filepath.Join(dir, name)] = true
			return name
		}
	}
}

// Stem returns the final path element of name without its extension.
func Stem(name string) string {
	base := filepath.Base(name)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

var invalidChars = regexp.MustCompile(`[<>:"/\\|?*\x00-\x1f]`)

// Sanitize reduces a client-supplied filename to a safe single path element.
// Both slash styles are treated as separators and only the last element is
// kept, then characters that are invalid on common filesystems become
// underscores. It returns "" when nothing usable remains.
func Sanitize(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	if i := strings.LastIndex(name, "/"); i >= 0 {
		name = name[i+1:]
	}
	name = invalidChars.ReplaceAllString(name, "_")
	name = strings.TrimSpace(name)
	if name == "." || name == ".." {
		return ""
	}
	return name
}
