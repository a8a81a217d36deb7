package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"localstore/internal/logging"
)

// Options tune a Store instance.
type Options struct {
	// SuppressionTTL bounds how long a self-write token waits for its
	// watch event before being discarded. Zero means the 5s default.
	SuppressionTTL time.Duration

	// SweepStaleTemp removes leftover temporary files found at startup.
	SweepStaleTemp bool
}

// DefaultOptions are the options used by the registry-less Open("...")
// convenience paths and the CLI.
func DefaultOptions() Options {
	return Options{SuppressionTTL: 5 * time.Second, SweepStaleTemp: true}
}

// Store is one storage instance rooted at a directory. Each logical key
// maps to one JSON record file named by the key's digest; folders are
// plain nested subdirectories. All same-path I/O runs through per-path
// FIFO lanes; external file changes are reconciled by the watcher.
type Store struct {
	dir      string
	idx      *index
	queue    *opQueue
	suppress *suppressionSet
	watch    *watcher

	closeOnce sync.Once
	closeErr  error
}

// Open creates a standalone store on dir: creates the directory, rebuilds
// the index from its contents, starts the watch layer and sweeps stale
// temporary files. Unlike Registry.Acquire it always returns a fresh
// instance; multiple instances on one directory stay convergent through
// the sibling table and the watcher.
func Open(dir string, opts Options) (*Store, error) {
	canon, err := canonicalPath(dir)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(canon, 0755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory %s: %w", canon, err)
	}

	st := &Store{
		dir:      canon,
		idx:      newIndex(),
		queue:    newOpQueue(),
		suppress: newSuppressionSet(opts.SuppressionTTL),
	}

	res, err := scanTree(canon)
	if err != nil {
		return nil, fmt.Errorf("failed to scan storage directory %s: %w", canon, err)
	}
	st.idx.replace(res.records)

	w, err := newWatcher(st)
	if err != nil {
		return nil, fmt.Errorf("failed to start watch layer for %s: %w", canon, err)
	}
	st.watch = w
	registerSibling(st)
	w.start()

	if opts.SweepStaleTemp && len(res.staleTemp) > 0 {
		go sweepStaleTemp(res.staleTemp)
	}

	logging.Boot("store ready at %s (%d records)", canon, st.idx.size())
	return st, nil
}

// Dir returns the canonical root directory of this instance.
func (st *Store) Dir() string {
	return st.dir
}

// Close stops the watch layer and detaches the instance from the sibling
// table. Pending queued jobs still complete; the instance must not be
// used afterwards.
func (st *Store) Close() error {
	st.closeOnce.Do(func() {
		deregisterSibling(st)
		st.closeErr = st.watch.stop()
	})
	return st.closeErr
}

// SetItem writes value under key inside folder ("" for the root). The
// record lands via write-temp-then-rename so readers never observe a
// partial document. On success every instance sharing the directory sees
// the new index entry immediately.
func (st *Store) SetItem(ctx context.Context, key string, value interface{}, folder string) error {
	if key == "" {
		return fmt.Errorf("key must not be empty")
	}

	data, err := encodeRecord(key, value)
	if err != nil {
		return err
	}

	dir, err := st.resolveFolder(folder)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create folder %s: %w", dir, err)
	}

	final := filepath.Join(dir, Digest(key))
	st.suppress.mark(final)

	err = st.queue.Do(ctx, final, func() error {
		tmp := tempName(final)
		if err := os.WriteFile(tmp, data, 0644); err != nil {
			_ = os.Remove(tmp)
			return fmt.Errorf("failed to write temp file: %w", err)
		}
		if err := os.Rename(tmp, final); err != nil {
			_ = os.Remove(tmp)
			return fmt.Errorf("failed to finalize record: %w", err)
		}
		return nil
	})
	if err != nil {
		// No mutation reached the final path, so the token will never
		// be consumed by an event; drop it and leave the index alone.
		st.suppress.consume(final)
		return fmt.Errorf("failed to write record for key %q: %w", key, err)
	}

	forEachSibling(st.dir, func(s *Store) {
		s.idx.put(key, final)
	})
	logging.StoreDebug("setItem %q -> %s", key, final)
	return nil
}

// GetItem returns the value stored under key. A key that was never
// written, a vanished file, a corrupt record, or an embedded key that
// does not match all surface as (nil, false, nil); the only error is ctx
// cancellation while the read is queued.
func (st *Store) GetItem(ctx context.Context, key string) (json.RawMessage, bool, error) {
	path, ok := st.idx.get(key)
	if !ok {
		logging.Get(logging.CategoryStore).Warnf("getItem: unknown key %q", key)
		return nil, false, nil
	}

	var value json.RawMessage
	var found bool
	err := st.queue.Do(ctx, path, func() error {
		data, err := os.ReadFile(path)
		if err != nil {
			logging.Get(logging.CategoryStore).Warnf("getItem: failed to read %s for key %q: %v", path, key, err)
			return nil
		}
		rec, err := decodeRecord(data)
		if err != nil {
			logging.Get(logging.CategoryStore).Warnf("getItem: corrupt record %s for key %q: %v", path, key, err)
			return nil
		}
		if rec.Key != key {
			// Digest collision or a foreign file that landed on this
			// name; trusting the filename here would serve the wrong
			// record.
			logging.Get(logging.CategoryStore).Warnf("getItem: record %s holds key %q, wanted %q", path, rec.Key, key)
			return nil
		}
		value = rec.Value
		found = true
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return value, found, nil
}

// GetJSON decodes the value stored under key into out. Missing keys
// report found=false without touching out.
func (st *Store) GetJSON(ctx context.Context, key string, out interface{}) (bool, error) {
	raw, found, err := st.GetItem(ctx, key)
	if err != nil || !found {
		return false, err
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return false, fmt.Errorf("failed to decode value for key %q: %w", key, err)
	}
	return true, nil
}

// RemoveItem deletes the record for key. Unknown keys log a warning and
// no-op. An unlink failure is logged and swallowed: the operation still
// resolves and the index entry is dropped on every sharing instance.
func (st *Store) RemoveItem(ctx context.Context, key string) error {
	path, ok := st.idx.get(key)
	if !ok {
		logging.Get(logging.CategoryStore).Warnf("removeItem: unknown key %q", key)
		return nil
	}

	st.suppress.mark(path)
	err := st.queue.Do(ctx, path, func() error {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			logging.Get(logging.CategoryStore).Warnf("removeItem: failed to unlink %s for key %q: %v", path, key, err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	forEachSibling(st.dir, func(s *Store) {
		s.idx.delete(key)
	})
	logging.StoreDebug("removeItem %q (%s)", key, path)
	return nil
}

// Keys returns the sorted logical keys stored under folder ("" for the
// whole store). It reads only the cached index, never the filesystem.
func (st *Store) Keys(folder string) []string {
	dir, err := st.resolveFolder(folder)
	if err != nil {
		return nil
	}
	return st.idx.keysUnder(dir)
}

// Clear recursively empties folder ("" wipes the whole store) and purges
// matching index entries on every sharing instance. This bypasses the
// per-path lanes and the suppression set: watch backends do not emit
// reliable per-file events for bulk wipes, so instances outside this
// process may need Rescan to reconverge.
func (st *Store) Clear(folder string) error {
	dir, err := st.resolveFolder(folder)
	if err != nil {
		return err
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read folder %s: %w", dir, err)
	}
	for _, entry := range entries {
		if err := os.RemoveAll(filepath.Join(dir, entry.Name())); err != nil {
			return fmt.Errorf("failed to clear folder %s: %w", dir, err)
		}
	}

	purged := 0
	forEachSibling(st.dir, func(s *Store) {
		purged += s.idx.purgeUnder(dir)
	})
	logging.Store("cleared %s (%d index entries purged)", dir, purged)
	return nil
}

// Rescan rebuilds the index from directory contents. Recovery path for
// bulk external mutations that the watch backend did not report
// per-file.
func (st *Store) Rescan() error {
	res, err := scanTree(st.dir)
	if err != nil {
		return fmt.Errorf("failed to rescan %s: %w", st.dir, err)
	}
	st.idx.replace(res.records)
	logging.Scan("rescan of %s complete: %d records", st.dir, len(res.records))
	return nil
}

// resolveFolder maps a caller-supplied folder to an absolute subdirectory
// of the store root. Absolute paths and traversal outside the root are
// rejected.
func (st *Store) resolveFolder(folder string) (string, error) {
	if folder == "" {
		return st.dir, nil
	}
	if filepath.IsAbs(folder) {
		return "", fmt.Errorf("folder must be relative: %q", folder)
	}
	dir := filepath.Join(st.dir, folder)
	if dir != st.dir && !strings.HasPrefix(dir, st.dir+string(filepath.Separator)) {
		return "", fmt.Errorf("folder escapes storage root: %q", folder)
	}
	return dir, nil
}
