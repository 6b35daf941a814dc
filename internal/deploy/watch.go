package deploy

import (
	"log/slog"
	"time"

	"github.com/fsnotify/fsnotify"
)

// RedeployFunc is called with the watched path after each debounced change.
type RedeployFunc func(path string)

// Watcher redeploys a plugin file whenever it changes on disk.
// Changes are debounced (300ms) so editor save bursts trigger one deploy.
type Watcher struct {
	path     string
	watcher  *fsnotify.Watcher
	redeploy RedeployFunc
	debounce time.Duration
	stopChan chan struct{}
}

// NewWatcher creates a file watcher for path.
func NewWatcher(path string, redeploy RedeployFunc) (*Watcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &Watcher{
		path:     path,
		watcher:  w,
		redeploy: redeploy,
		debounce: 300 * time.Millisecond,
	}, nil
}

// Start begins watching the file for changes.
func (w *Watcher) Start() error {
	if err := w.watcher.Add(w.path); err != nil {
		return err
	}

	w.stopChan = make(chan struct{})
	go w.watchLoop()

	slog.Info("watching for changes", "path", w.path)
	return nil
}

// Stop halts the file watcher.
func (w *Watcher) Stop() {
	if w.stopChan != nil {
		close(w.stopChan)
	}
	w.watcher.Close()
}

func (w *Watcher) watchLoop() {
	var debounceTimer *time.Timer

	for {
		select {
		case <-w.stopChan:
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}

			// Debounce: reset timer on each change
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			debounceTimer = time.AfterFunc(w.debounce, func() {
				w.redeploy(w.path)
			})

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			slog.Error("file watcher error", "error", err)
		}
	}
}
