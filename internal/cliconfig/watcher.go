package cliconfig

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/parcelops/shipledger/internal/ports"
)

// DefaultDebounceDelay is the wait after a file change before the reload
// callback fires; editors tend to emit several events per save.
const DefaultDebounceDelay = 100 * time.Millisecond

// Watcher monitors a config file and invokes a callback when it changes.
// The watch is on the parent directory, so atomic save strategies (write
// temp file, rename over the original) are observed too.
type Watcher struct {
	path     string
	debounce time.Duration
	onChange func()
	logger   ports.Logger

	mu     sync.Mutex
	timer  *time.Timer
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewWatcher creates a watcher for the config file at path. onChange runs
// on the watcher goroutine after the debounce delay; keep it quick.
func NewWatcher(path string, onChange func(), logger ports.Logger) *Watcher {
	return &Watcher{
		path:     path,
		debounce: DefaultDebounceDelay,
		onChange: onChange,
		logger:   logger,
	}
}

// Start begins watching until the context is canceled or Stop is called.
func (w *Watcher) Start(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := watcher.Add(filepath.Dir(w.path)); err != nil {
		watcher.Close()
		return err
	}

	watchCtx, cancel := context.WithCancel(ctx)
	w.mu.Lock()
	w.cancel = cancel
	w.mu.Unlock()

	w.wg.Add(1)
	go w.loop(watchCtx, watcher)
	return nil
}

// Stop ends the watch and waits for the watcher goroutine.
func (w *Watcher) Stop() {
	w.mu.Lock()
	cancel := w.cancel
	if w.timer != nil {
		w.timer.Stop()
	}
	w.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	w.wg.Wait()
}

func (w *Watcher) loop(ctx context.Context, watcher *fsnotify.Watcher) {
	defer w.wg.Done()
	defer watcher.Close()

	target := filepath.Base(w.path)
	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != target {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			w.debounceFire()

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("config watcher error", ports.Err(err))
		}
	}
}

func (w *Watcher) debounceFire() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, w.onChange)
}
