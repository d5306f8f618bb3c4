package workspace

import (
	"context"
	"io/fs"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/bep/debounce"
	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// DefaultWatchDelay is how long the watcher waits for a burst of file events
// to settle before reloading
const DefaultWatchDelay = 500 * time.Millisecond

// Watcher reloads a project whenever its folder changes
type Watcher struct {
	loader   *Loader
	folder   string
	onChange func(*Project)
	logger   *zap.Logger

	watcher  *fsnotify.Watcher
	debounce func(func())

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}

	// reloadMu is held for the whole of a reload, onChange included
	reloadMu sync.Mutex
}

// NewWatcher creates a watcher for folder. onChange receives every reloaded
// project. It runs on a debounce timer goroutine, one call at a time, and is
// never called once Close has returned. onChange must not call Close.
func NewWatcher(loader *Loader, folder string, delay time.Duration, onChange func(*Project)) (*Watcher, error) {
	if delay <= 0 {
		delay = DefaultWatchDelay
	}
	abs, err := filepath.Abs(folder)
	if err != nil {
		return nil, err
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &Watcher{
		loader:   loader,
		folder:   abs,
		onChange: onChange,
		logger:   loader.logger.Named("watch"),
		watcher:  w,
		debounce: debounce.New(delay),
	}, nil
}

// Start registers the folder tree and begins watching until ctx is done or
// Close is called
func (w *Watcher) Start(ctx context.Context) error {
	if err := w.addTree(w.folder); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	w.mu.Lock()
	w.cancel = cancel
	w.done = make(chan struct{})
	w.mu.Unlock()

	go w.watchLoop(ctx)
	return nil
}

// Close stops watching and releases the OS watcher
func (w *Watcher) Close() error {
	w.mu.Lock()
	cancel, done := w.cancel, w.done
	w.cancel = nil
	w.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}

	// Wait out a reload that is already running; later ones see the
	// cancelled context.
	w.reloadMu.Lock()
	w.reloadMu.Unlock()

	return w.watcher.Close()
}

// addTree adds dir and every directory below it that a tree listing would visit
func (w *Watcher) addTree(dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != w.folder && skipName(d.Name(), true) {
			return filepath.SkipDir
		}
		return w.watcher.Add(path)
	})
}

func (w *Watcher) watchLoop(ctx context.Context) {
	defer close(w.done)
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !w.relevant(ev) {
				continue
			}
			if ev.Op&fsnotify.Create != 0 {
				// New directories need their own watch.
				_ = w.addTree(ev.Name)
			}
			w.debounce(func() { w.reload(ctx) })
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Debug("watch error", zap.Error(err))
		}
	}
}

func (w *Watcher) relevant(ev fsnotify.Event) bool {
	if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
		return false
	}
	rel, err := filepath.Rel(w.folder, ev.Name)
	if err != nil || rel == "." {
		return false
	}
	parts := strings.Split(filepath.ToSlash(rel), "/")
	for _, dir := range parts[:len(parts)-1] {
		if skipName(dir, true) {
			return false
		}
	}
	return !skipName(parts[len(parts)-1], false)
}

func (w *Watcher) reload(ctx context.Context) {
	w.reloadMu.Lock()
	defer w.reloadMu.Unlock()

	if ctx.Err() != nil {
		return
	}
	project, err := w.loader.Load(ctx, w.folder)
	if err != nil {
		w.logger.Warn("failed to reload project", zap.String("folder", w.folder), zap.Error(err))
		return
	}
	if ctx.Err() != nil {
		return
	}
	w.onChange(project)
}
