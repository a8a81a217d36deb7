package store

import (
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"localstore/internal/logging"

	"github.com/fsnotify/fsnotify"
)

// watcher is the sync layer: it subscribes to filesystem notifications
// for the store root and every subdirectory, drops events caused by the
// engine's own writes (suppression tokens, consumed at most once), and
// reconciles genuinely external changes into the index. It is owned by
// exactly one Store and stopped by Store.Close.
type watcher struct {
	mu      sync.Mutex
	fsw     *fsnotify.Watcher
	store   *Store
	stopCh  chan struct{}
	doneCh  chan struct{}
	running bool
}

func newWatcher(st *Store) (*watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &watcher{
		fsw:    fsw,
		store:  st,
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
	}
	w.addTree(st.dir)
	return w, nil
}

// addTree registers dir and all nested subdirectories with the
// subscription. fsnotify is not recursive on its own.
func (w *watcher) addTree(dir string) {
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil || !d.IsDir() {
			return nil
		}
		if err := w.fsw.Add(path); err != nil {
			logging.Get(logging.CategoryWatch).Warnf("failed to watch %s: %v", path, err)
		}
		return nil
	})
	if err != nil {
		logging.Get(logging.CategoryWatch).Warnf("failed to walk %s for watching: %v", dir, err)
	}
}

// start launches the event loop. Non-blocking.
func (w *watcher) start() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.running {
		return
	}
	w.running = true
	go w.run()
	logging.Watch("watching %s", w.store.dir)
}

// stop shuts the event loop down and waits for it to exit.
func (w *watcher) stop() error {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return w.fsw.Close()
	}
	w.running = false
	w.mu.Unlock()

	close(w.stopCh)
	<-w.doneCh

	if err := w.fsw.Close(); err != nil {
		return err
	}
	logging.Watch("stopped watching %s", w.store.dir)
	return nil
}

// run is the main event loop. The ticker expires suppression tokens whose
// watch event never arrived, e.g. on platforms that coalesce events.
func (w *watcher) run() {
	defer close(w.doneCh)

	sweepTicker := time.NewTicker(time.Second)
	defer sweepTicker.Stop()

	for {
		select {
		case <-w.stopCh:
			return

		case event, ok := <-w.fsw.Events:
			if !ok {
				logging.Watch("event channel closed for %s", w.store.dir)
				return
			}
			w.handleEvent(event)

		case err, ok := <-w.fsw.Errors:
			if !ok {
				logging.Watch("error channel closed for %s", w.store.dir)
				return
			}
			logging.Get(logging.CategoryWatch).Errorf("watch error on %s: %v", w.store.dir, err)

		case <-sweepTicker.C:
			if n := w.store.suppress.sweep(time.Now()); n > 0 {
				logging.WatchDebug("expired %d stale suppression tokens", n)
			}
		}
	}
}

// handleEvent reconciles a single filesystem event.
func (w *watcher) handleEvent(event fsnotify.Event) {
	path := filepath.Clean(event.Name)
	if isTempName(filepath.Base(path)) {
		return
	}

	switch {
	case event.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
		if w.store.suppress.consume(path) {
			logging.WatchDebug("suppressed self-delete event for %s", path)
			return
		}
		w.reconcileRemove(path)

	case event.Op&(fsnotify.Create|fsnotify.Write) != 0:
		if info, err := os.Stat(path); err == nil && info.IsDir() {
			// Externally created subdirectory: watch it and fold any
			// records already inside into the index.
			w.addTree(path)
			w.reconcileSubtree(path)
			return
		}
		if w.store.suppress.consume(path) {
			logging.WatchDebug("suppressed self-write event for %s", path)
			return
		}
		w.reconcileUpsert(path)
	}
	// Chmod and other ops carry no content change.
}

// reconcileUpsert folds an externally added or changed record file into
// the index, keyed by the embedded key. Decode failures leave the index
// unchanged.
func (w *watcher) reconcileUpsert(path string) {
	data, err := os.ReadFile(path)
	if err != nil {
		// The file can vanish between the event and the read; that is
		// an unlink we will see separately.
		if !os.IsNotExist(err) {
			logging.Get(logging.CategoryWatch).Warnf("failed to read external change %s: %v", path, err)
		}
		return
	}
	rec, err := decodeRecord(data)
	if err != nil {
		logging.Get(logging.CategoryWatch).Warnf("ignoring external file %s: %v", path, err)
		return
	}

	w.store.idx.put(rec.Key, path)
	logging.WatchDebug("reconciled external write of key %q (%s)", rec.Key, path)
}

// reconcileRemove drops the index entry matching an externally unlinked
// path, if any.
func (w *watcher) reconcileRemove(path string) {
	key, ok := w.store.idx.keyByPath(path)
	if !ok {
		return
	}
	w.store.idx.delete(key)
	logging.WatchDebug("reconciled external delete of key %q (%s)", key, path)
}

// reconcileSubtree scans a directory that appeared externally and upserts
// every record found inside.
func (w *watcher) reconcileSubtree(dir string) {
	res, err := scanTree(dir)
	if err != nil {
		logging.Get(logging.CategoryWatch).Warnf("failed to scan new directory %s: %v", dir, err)
		return
	}
	for key, path := range res.records {
		w.store.idx.put(key, path)
	}
}
