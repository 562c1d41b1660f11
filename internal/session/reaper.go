// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package session

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Reap deletes sessions created more than ttl ago: the directory, any
// archive, and the index entry. It also deletes session directories,
// archives, and temporary archives under the root that the index does not
// know about and whose modification time is older than ttl. Only names
// that parse as session tokens are considered, so unrelated files in the
// root are never touched. A ttl of zero or less disables reaping.
//
// The returned count is the number of sessions removed.
func (s *Store) Reap(ctx context.Context, ttl time.Duration) (int, error) {
	if ttl <= 0 {
		return 0, nil
	}
	cutoff := s.now().Add(-ttl)

	ids, err := s.index.Expired(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	removed := 0
	for _, id := range ids {
		if err := s.removeSession(id); err != nil {
			s.log.Printf("reaper: session %s: %v", id, err)
			continue
		}
		if err := s.index.Delete(ctx, id); err != nil {
			return removed, err
		}
		removed++
	}

	n, err := s.reapOrphans(ctx, cutoff)
	return removed + n, err
}

func (s *Store) reapOrphans(ctx context.Context, cutoff time.Time) (int, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		return 0, err
	}

	removed := 0
	for _, e := range entries {
		id, ok := sessionIDFromEntry(e)
		if !ok {
			continue
		}
		info, err := e.Info()
		if err != nil || !info.ModTime().Before(cutoff) {
			continue
		}
		if _, err := s.index.Get(ctx, id); err == nil {
			continue
		} else if !errors.Is(err, ErrSessionNotFound) {
			return removed, err
		}

		if err := os.RemoveAll(filepath.Join(s.root, e.Name())); err != nil {
			s.log.Printf("reaper: %s: %v", e.Name(), err)
			continue
		}
		if e.IsDir() {
			removed++
		}
	}
	return removed, nil
}

// sessionIDFromEntry extracts the token from a session directory, a
// session archive, or a temporary archive.
func sessionIDFromEntry(e os.DirEntry) (string, bool) {
	name := e.Name()
	if e.IsDir() {
		return name, validID(name)
	}
	if strings.HasSuffix(name, ".tmp") {
		name, _, _ = strings.Cut(name, ".")
		return name, validID(name)
	}
	id, ok := strings.CutSuffix(name, ".zip")
	return id, ok && validID(id)
}

func (s *Store) removeSession(id string) error {
	if err := os.RemoveAll(filepath.Join(s.root, id)); err != nil {
		return err
	}
	if err := os.Remove(filepath.Join(s.root, id+".zip")); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// RunReaper calls Reap every interval until ctx is done. It returns
// immediately when ttl or interval is not positive.
func (s *Store) RunReaper(ctx context.Context, interval, ttl time.Duration) {
	if ttl <= 0 || interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := s.Reap(ctx, ttl)
			if err != nil {
				s.log.Printf("reaper: %v", err)
			}
			if n > 0 {
				s.log.Printf("reaper: removed %d expired session(s)", n)
			}
		}
	}
}
