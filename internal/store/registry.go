package store

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"localstore/internal/logging"
)

// Registry hands out one shared Store per canonical directory path.
// Acquisition is idempotent: two Acquire calls with the same path (in any
// spelling) return the same instance. Registry-held instances live for
// the lifetime of the process and are never closed by the registry.
type Registry struct {
	mu        sync.Mutex
	opts      Options
	instances map[string]*Store
}

// NewRegistry creates a registry whose instances are opened with opts.
func NewRegistry(opts Options) *Registry {
	return &Registry{
		opts:      opts,
		instances: make(map[string]*Store),
	}
}

// Acquire returns the store for dir, creating directory, index, watcher
// and temp-file sweep on first acquisition. If the directory of an
// already-acquired store has been removed from under it, the directory is
// recreated and the index rebuilt before the instance is returned.
func (r *Registry) Acquire(dir string) (*Store, error) {
	canon, err := canonicalPath(dir)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if st, ok := r.instances[canon]; ok {
		if _, err := os.Stat(canon); os.IsNotExist(err) {
			logging.Boot("directory %s vanished, recreating", canon)
			if err := os.MkdirAll(canon, 0755); err != nil {
				return nil, fmt.Errorf("failed to recreate storage directory %s: %w", canon, err)
			}
			st.watch.addTree(canon)
			if err := st.Rescan(); err != nil {
				return nil, fmt.Errorf("failed to rescan recreated directory %s: %w", canon, err)
			}
		}
		return st, nil
	}

	st, err := Open(canon, r.opts)
	if err != nil {
		return nil, err
	}
	r.instances[canon] = st
	return st, nil
}

// canonicalPath resolves dir to a cleaned absolute path, following
// symlinks when the target already exists so that two spellings of one
// directory share an instance.
func canonicalPath(dir string) (string, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("failed to resolve path %q: %w", dir, err)
	}
	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		return resolved, nil
	}
	return abs, nil
}

// siblingTable tracks every live Store per canonical directory so index
// mutations from one instance propagate synchronously to the others, not
// only through the watcher.
var siblingTable = struct {
	mu    sync.RWMutex
	byDir map[string][]*Store
}{byDir: make(map[string][]*Store)}

func registerSibling(st *Store) {
	siblingTable.mu.Lock()
	defer siblingTable.mu.Unlock()
	siblingTable.byDir[st.dir] = append(siblingTable.byDir[st.dir], st)
}

func deregisterSibling(st *Store) {
	siblingTable.mu.Lock()
	defer siblingTable.mu.Unlock()
	live := siblingTable.byDir[st.dir][:0]
	for _, s := range siblingTable.byDir[st.dir] {
		if s != st {
			live = append(live, s)
		}
	}
	if len(live) == 0 {
		delete(siblingTable.byDir, st.dir)
	} else {
		siblingTable.byDir[st.dir] = live
	}
}

// forEachSibling applies fn to every live store on dir, including the
// caller's own instance.
func forEachSibling(dir string, fn func(*Store)) {
	siblingTable.mu.RLock()
	stores := make([]*Store, len(siblingTable.byDir[dir]))
	copy(stores, siblingTable.byDir[dir])
	siblingTable.mu.RUnlock()

	for _, s := range stores {
		fn(s)
	}
}
