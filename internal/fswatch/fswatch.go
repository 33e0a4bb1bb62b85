// Package fswatch watches a project tree for source-file changes and
// debounces them into batched rescan triggers (spec §4.14 "watch mode",
// an added domain-stack component).
package fswatch

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

var watchedExtensions = map[string]bool{
	".ts": true, ".tsx": true, ".js": true, ".jsx": true, ".mjs": true, ".cjs": true,
	".json": true,
}

var ignoredDirNames = map[string]bool{
	"node_modules": true, ".git": true, ".next": true, "dist": true,
	"build": true, "coverage": true, ".protoscan": true,
}

const defaultDebounce = 500 * time.Millisecond

// Watcher batches filesystem change events under root and invokes onChange
// once activity settles.
type Watcher struct {
	root      string
	debounce  time.Duration
	onChange  func(changedFiles []string)
	watcher   *fsnotify.Watcher
	stop      chan struct{}
	watching  bool
	watchingM sync.Mutex
}

// New creates a Watcher rooted at root. debounce <= 0 uses the default
// (500ms, matching the teacher's live-reindex debounce window).
func New(root string, debounce time.Duration, onChange func(changedFiles []string)) *Watcher {
	if debounce <= 0 {
		debounce = defaultDebounce
	}
	return &Watcher{root: root, debounce: debounce, onChange: onChange}
}

// Start begins watching until Stop is called. It blocks until
// directory registration completes, then runs the event loop in the
// background.
func (w *Watcher) Start() error {
	w.watchingM.Lock()
	if w.watching {
		w.watchingM.Unlock()
		return fmt.Errorf("already watching")
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		w.watchingM.Unlock()
		return fmt.Errorf("failed to create watcher: %w", err)
	}

	w.watcher = fsw
	w.watching = true
	w.stop = make(chan struct{})
	w.watchingM.Unlock()

	if err := w.addWatchDirs(); err != nil {
		w.Stop()
		return fmt.Errorf("failed to add watch directories: %w", err)
	}

	var debounceTimer *time.Timer
	pending := make(map[string]bool)
	var pendingMu sync.Mutex

	processChange := func(file string) {
		rel, err := filepath.Rel(w.root, file)
		if err != nil {
			return
		}
		if !watchedExtensions[filepath.Ext(file)] {
			return
		}

		pendingMu.Lock()
		pending[rel] = true
		pendingMu.Unlock()

		if debounceTimer != nil {
			debounceTimer.Stop()
		}
		debounceTimer = time.AfterFunc(w.debounce, func() {
			pendingMu.Lock()
			files := make([]string, 0, len(pending))
			for f := range pending {
				files = append(files, f)
			}
			pending = make(map[string]bool)
			pendingMu.Unlock()

			if len(files) > 0 && w.onChange != nil {
				w.onChange(files)
			}
		})
	}

	go func() {
		for {
			select {
			case <-w.stop:
				return
			case event, ok := <-fsw.Events:
				if !ok {
					return
				}
				if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) != 0 {
					processChange(event.Name)
				}
			case _, ok := <-fsw.Errors:
				if !ok {
					return
				}
			}
		}
	}()

	return nil
}

// addWatchDirs recursively registers every non-ignored directory under
// root with the underlying watcher (fsnotify does not watch recursively).
func (w *Watcher) addWatchDirs() error {
	return filepath.Walk(w.root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil
		}
		if !info.IsDir() {
			return nil
		}
		if path != w.root && (ignoredDirNames[info.Name()] || strings.HasPrefix(info.Name(), ".")) {
			return filepath.SkipDir
		}
		return w.watcher.Add(path)
	})
}

// Stop ends the watch loop and releases the underlying watcher.
func (w *Watcher) Stop() {
	w.watchingM.Lock()
	defer w.watchingM.Unlock()
	if !w.watching {
		return
	}
	close(w.stop)
	_ = w.watcher.Close()
	w.watching = false
}
