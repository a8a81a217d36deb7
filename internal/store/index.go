package store

import (
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

// index is the in-memory mapping from logical key to resolved file path.
// It is mutated by API calls after their queued job completes and by watch
// callbacks at any time, so every access goes through the lock.
type index struct {
	mu    sync.RWMutex
	byKey map[string]string
}

func newIndex() *index {
	return &index{byKey: make(map[string]string)}
}

func (ix *index) get(key string) (string, bool) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	path, ok := ix.byKey[key]
	return path, ok
}

func (ix *index) put(key, path string) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.byKey[key] = path
}

func (ix *index) delete(key string) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	delete(ix.byKey, key)
}

// keyByPath scans for the key mapped to a file path. Used by the watcher
// to reconcile external unlinks, which only carry the path.
func (ix *index) keyByPath(path string) (string, bool) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	for key, p := range ix.byKey {
		if p == path {
			return key, true
		}
	}
	return "", false
}

// keysUnder returns the sorted keys whose file path falls under the given
// directory prefix. The prefix must be a cleaned absolute directory path.
func (ix *index) keysUnder(prefix string) []string {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	keys := make([]string, 0, len(ix.byKey))
	for key, path := range ix.byKey {
		if underDir(path, prefix) {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return keys
}

// purgeUnder drops every entry whose path falls under the directory
// prefix and returns how many were removed.
func (ix *index) purgeUnder(prefix string) int {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	n := 0
	for key, path := range ix.byKey {
		if underDir(path, prefix) {
			delete(ix.byKey, key)
			n++
		}
	}
	return n
}

// replace swaps the whole mapping, used by rescans.
func (ix *index) replace(byKey map[string]string) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.byKey = byKey
}

func (ix *index) size() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.byKey)
}

// underDir reports whether path sits at or below dir.
func underDir(path, dir string) bool {
	if path == dir {
		return true
	}
	sep := string(filepath.Separator)
	if !strings.HasSuffix(dir, sep) {
		dir += sep
	}
	return strings.HasPrefix(path, dir)
}
