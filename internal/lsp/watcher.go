package lsp

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/nhath/ezmongo/internal/schema"
)

// SnapshotWatcher keeps an analyzer's schema snapshot in sync with the file
// the interactive client writes after each connect.
type SnapshotWatcher struct {
	mu       sync.Mutex
	watcher  *fsnotify.Watcher
	path     string
	analyzer *Analyzer
	log      *zap.Logger
	running  bool
	stopCh   chan struct{}
	doneCh   chan struct{}
}

// NewSnapshotWatcher creates a watcher for the snapshot at path.
func NewSnapshotWatcher(path string, analyzer *Analyzer, log *zap.Logger) (*SnapshotWatcher, error) {
	if log == nil {
		log = zap.NewNop()
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &SnapshotWatcher{
		watcher:  watcher,
		path:     path,
		analyzer: analyzer,
		log:      log,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}, nil
}

// Start loads the current snapshot and watches for replacements. It does
// not block.
func (w *SnapshotWatcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	w.mu.Unlock()

	// The snapshot is replaced by rename, so watch its directory.
	dir := filepath.Dir(w.path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		w.log.Warn("creating snapshot directory", zap.String("dir", dir), zap.Error(err))
	}
	if err := w.watcher.Add(dir); err != nil {
		w.mu.Lock()
		w.running = false
		w.mu.Unlock()
		return err
	}
	w.reload()

	go w.run(ctx)
	return nil
}

// Stop ends watching and waits for the loop to exit.
func (w *SnapshotWatcher) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		w.watcher.Close()
		return
	}
	w.running = false
	w.mu.Unlock()

	close(w.stopCh)
	<-w.doneCh
	if err := w.watcher.Close(); err != nil {
		w.log.Warn("closing snapshot watcher", zap.Error(err))
	}
}

func (w *SnapshotWatcher) run(ctx context.Context) {
	defer close(w.doneCh)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != filepath.Clean(w.path) {
				continue
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename|fsnotify.Remove) != 0 {
				w.reload()
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.log.Warn("snapshot watcher", zap.Error(err))
		}
	}
}

func (w *SnapshotWatcher) reload() {
	snap, err := schema.Read(w.path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		w.analyzer.SetSnapshot(nil)
	case err != nil:
		// A half-written file keeps the previous snapshot.
		w.log.Debug("reading snapshot", zap.String("path", w.path), zap.Error(err))
	default:
		w.analyzer.SetSnapshot(snap)
		w.log.Debug("snapshot loaded", zap.String("database", snap.Database), zap.Int("databases", len(snap.Databases)))
	}
}
