// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package batch

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pdiddy/heic-converter/internal/heic"
)

// Resolve expands paths into the list of files to convert. Files are taken
// as given; directories contribute their .heic/.heif entries (any case),
// descending into subdirectories when recursive is set. Missing paths and
// unreadable directories produce a warning line on w and are skipped.
//
// The result is sorted and deduplicated case-insensitively on the cleaned
// absolute path, so x.heic and x.HEIC in one directory yield one input.
func Resolve(paths []string, recursive bool, w io.Writer) []string {
	var found []string
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			fmt.Fprintf(w, "warning: path not found: %s\n", p)
			continue
		}
		if !info.IsDir() {
			found = append(found, p)
			continue
		}

		matches := scanDir(p, recursive, w)
		if len(matches) == 0 {
			fmt.Fprintf(w, "No HEIC files found in: %s\n", p)
			continue
		}
		fmt.Fprintf(w, "Found %d HEIC file(s) in %s\n", len(matches), p)
		found = append(found, matches...)
	}
	return dedupe(found)
}

func scanDir(dir string, recursive bool, w io.Writer) []string {
	if !recursive {
		entries, err := os.ReadDir(dir)
		if err != nil {
			fmt.Fprintf(w, "warning: cannot read %s: %v\n", dir, err)
			return nil
		}
		var matches []string
		for _, e := range entries {
			path := filepath.Join(dir, e.Name())
			if heic.IsHEIC(e.Name()) && isFile(path, e, w) {
				matches = append(matches, path)
			}
		}
		return matches
	}

	var matches []string
	filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			fmt.Fprintf(w, "warning: cannot read %s: %v\n", path, err)
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if heic.IsHEIC(d.Name()) && isFile(path, d, w) {
			matches = append(matches, path)
		}
		return nil
	})
	return matches
}

// isFile reports whether a scanned entry is a regular file, following
// symlinks. A link whose target is missing is reported on w.
func isFile(path string, d fs.DirEntry, w io.Writer) bool {
	if d.Type().IsRegular() {
		return true
	}
	if d.Type()&fs.ModeSymlink == 0 {
		return false
	}
	info, err := os.Stat(path)
	if err != nil {
		fmt.Fprintf(w, "warning: broken link %s: %v\n", path, err)
		return false
	}
	return info.Mode().IsRegular()
}

// dedupe sorts paths and keeps the first of each case-insensitive
// normalized path.
func dedupe(paths []string) []string {
	sorted := append([]string(nil), paths...)
	sort.Strings(sorted)

	seen := make(map[string]bool, len(sorted))
	out := make([]string, 0, len(sorted))
	for _, p := range sorted {
		key := normalize(p)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, p)
	}
	return out
}

func normalize(p string) string {
	if abs, err := filepath.Abs(p); err == nil {
		p = abs
	}
	return strings.ToLower(filepath.Clean(p))
}
